// matmul.go
//
// Engine-level MatMul override. Eligible multiplications (dense, 2D,
// row-major float32) are routed through the extern matmul kernel for
// the current build: the cuBLASLt shim on CUDA builds, the BLAS-backed
// reference kernel everywhere else. Everything else, and any kernel
// failure, goes through the embedded StdEng implementation.

package cublaslt

import (
	"fmt"

	"gorgonia.org/tensor"
	"k8s.io/klog/v2"
)

// isRowMajorContiguous2D reports whether d is a 2D dense tensor with the
// standard row-major layout the extern kernels expect:
//
//	shape = [rows, cols]
//	strides = [cols, 1]
func isRowMajorContiguous2D(d *tensor.Dense) bool {
	if d.Dims() != 2 {
		return false
	}
	shape := d.Shape()
	strides := d.Strides()
	if len(shape) != 2 || len(strides) != 2 {
		return false
	}
	rows, cols := shape[0], shape[1]
	return strides[1] == 1 && strides[0] == cols && rows > 0 && cols > 0
}

// MatMul offloads 2D float32 matrix multiplication (with standard
// row-major layout) to the registered extern kernel. For everything
// else (non-dense tensors, non-float32 dtypes, non-2D shapes,
// non-standard strides, or any kernel failure) it transparently falls
// back to the embedded StdEng implementation.
func (e *CublasLtEng) MatMul(a, b, prealloc tensor.Tensor) error {
	// Fast path only for dense, float32, 2D row-major matrices.
	da, okA := a.(*tensor.Dense)
	db, okB := b.(*tensor.Dense)
	dc, okC := prealloc.(*tensor.Dense)
	if !okA || !okB || !okC {
		return e.StdEng.MatMul(a, b, prealloc)
	}

	if da.Dtype() != tensor.Float32 || db.Dtype() != tensor.Float32 || dc.Dtype() != tensor.Float32 {
		return e.StdEng.MatMul(a, b, prealloc)
	}

	if !isRowMajorContiguous2D(da) || !isRowMajorContiguous2D(db) || !isRowMajorContiguous2D(dc) {
		return e.StdEng.MatMul(a, b, prealloc)
	}

	shapeA := da.Shape()
	shapeB := db.Shape()
	shapeC := dc.Shape()

	m, kA := shapeA[0], shapeA[1]
	kB, n := shapeB[0], shapeB[1]

	if kA != kB {
		return fmt.Errorf("cublaslt: MatMul shape mismatch: a=%v, b=%v (inner dims %d vs %d)", shapeA, shapeB, kA, kB)
	}
	if len(shapeC) != 2 || shapeC[0] != m || shapeC[1] != n {
		return fmt.Errorf("cublaslt: MatMul prealloc shape mismatch: expected [%d %d], got %v", m, n, shapeC)
	}

	kernel, err := LookupExtern(ExternMatmulName)
	if err != nil {
		return e.StdEng.MatMul(a, b, prealloc)
	}

	// On any kernel error, fall back to the CPU implementation so that
	// callers still get correct results even without a working CUDA
	// setup.
	if err := kernel(da, db, dc, false, false, nil, nil, nil, false); err != nil {
		klog.V(2).Infof("cublaslt: extern matmul failed, falling back to StdEng: %v", err)
		return e.StdEng.MatMul(a, b, prealloc)
	}

	return nil
}
