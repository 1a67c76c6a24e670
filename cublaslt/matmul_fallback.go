//go:build !cuda || !cgo

// matmul_fallback.go
//
// CPU reference kernel for ExternMatmulName on builds without the
// cuBLASLt shim. It reproduces the extern routine's contract (operand
// transposes, per-tensor scale factors, output rescale) on top of
// gonum's BLAS, so nodes built by Matmul stay executable everywhere.
// FastAccum is accepted and ignored: accumulation precision is the
// native library's knob.

package cublaslt

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
	"gorgonia.org/tensor"
)

func init() {
	RegisterExtern(ExternMatmulName, cpuMatmul)
}

func blasTranspose(t bool) blas.Transpose {
	if t {
		return blas.Trans
	}
	return blas.NoTrans
}

// scaleValue extracts the scalar from a scale tensor; nil means no
// scaling (factor 1). Scale tensors must hold exactly one float32.
func scaleValue(s *tensor.Dense) (float32, error) {
	if s == nil {
		return 1, nil
	}
	switch data := s.Data().(type) {
	case float32:
		return data, nil
	case []float32:
		if len(data) == 1 {
			return data[0], nil
		}
	}
	return 0, errors.Errorf("cublaslt: scale tensors must hold exactly one float32 value, got %v tensor of shape %v", s.Dtype(), s.Shape())
}

// cpuMatmul computes out = scaleD * (scaleA * scaleB * op(lhs) x op(rhs)),
// where op applies the corresponding transpose flag. All operands must
// share one element type; Float32, Float64 and Float16 are supported.
// The fp8 element types have no host numerics and require the CUDA
// build.
func cpuMatmul(lhs, rhs, out *tensor.Dense, transposeA, transposeB bool, scaleA, scaleB, scaleD *tensor.Dense, fastAccum bool) error {
	_ = fastAccum

	if !isRowMajorContiguous2D(lhs) || !isRowMajorContiguous2D(rhs) || !isRowMajorContiguous2D(out) {
		return errors.New("cublaslt: reference matmul requires dense 2D row-major operands")
	}

	shapeA := lhs.Shape()
	shapeB := rhs.Shape()
	shapeC := out.Shape()

	// Dimensions of op(lhs) and op(rhs).
	n, k := shapeA[0], shapeA[1]
	if transposeA {
		n, k = k, n
	}
	kb, m := shapeB[0], shapeB[1]
	if transposeB {
		kb, m = m, kb
	}

	if k != kb {
		return errors.Errorf("cublaslt: reference matmul inner dimension mismatch: lhs=%v (transpose=%v), rhs=%v (transpose=%v)", shapeA, transposeA, shapeB, transposeB)
	}
	if shapeC[0] != n || shapeC[1] != m {
		return errors.Errorf("cublaslt: reference matmul output shape mismatch: expected [%d %d], got %v", n, m, shapeC)
	}

	sa, err := scaleValue(scaleA)
	if err != nil {
		return err
	}
	sb, err := scaleValue(scaleB)
	if err != nil {
		return err
	}
	sd, err := scaleValue(scaleD)
	if err != nil {
		return err
	}
	alpha := sa * sb

	dt := lhs.Dtype()
	if rhs.Dtype() != dt || out.Dtype() != dt {
		return errors.Errorf("cublaslt: reference matmul requires matching element types, got lhs=%v rhs=%v out=%v", dt, rhs.Dtype(), out.Dtype())
	}

	switch dt {
	case tensor.Float32:
		adata, okA := lhs.Data().([]float32)
		bdata, okB := rhs.Data().([]float32)
		cdata, okC := out.Data().([]float32)
		if !okA || !okB || !okC {
			return errors.New("cublaslt: reference matmul expected float32 backing slices")
		}
		gemm32(transposeA, transposeB, alpha, adata, shapeA[0], shapeA[1], bdata, shapeB[0], shapeB[1], cdata, n, m)
		if sd != 1 {
			for i := range cdata[:n*m] {
				cdata[i] *= sd
			}
		}
	case tensor.Float64:
		adata, okA := lhs.Data().([]float64)
		bdata, okB := rhs.Data().([]float64)
		cdata, okC := out.Data().([]float64)
		if !okA || !okB || !okC {
			return errors.New("cublaslt: reference matmul expected float64 backing slices")
		}
		a := blas64.General{Rows: shapeA[0], Cols: shapeA[1], Stride: shapeA[1], Data: adata}
		b := blas64.General{Rows: shapeB[0], Cols: shapeB[1], Stride: shapeB[1], Data: bdata}
		c := blas64.General{Rows: n, Cols: m, Stride: m, Data: cdata}
		blas64.Gemm(blasTranspose(transposeA), blasTranspose(transposeB), float64(alpha), a, b, 0, c)
		if sd != 1 {
			for i := range c.Data[:n*m] {
				c.Data[i] *= float64(sd)
			}
		}
	case Float16:
		adata, okA := lhs.Data().([]F16)
		bdata, okB := rhs.Data().([]F16)
		cdata, okC := out.Data().([]F16)
		if !okA || !okB || !okC {
			return errors.New("cublaslt: reference matmul expected F16 backing slices")
		}
		a32 := widenF16(adata)
		b32 := widenF16(bdata)
		c32 := make([]float32, n*m)
		gemm32(transposeA, transposeB, alpha, a32, shapeA[0], shapeA[1], b32, shapeB[0], shapeB[1], c32, n, m)
		for i, v := range c32 {
			cdata[i] = F16FromFloat32(v * sd)
		}
	case Float8E4M3, Float8E5M2:
		return errors.Errorf("cublaslt: %v matmul requires the CUDA build", dt)
	default:
		return errors.Errorf("cublaslt: reference matmul does not support element type %v", dt)
	}

	return nil
}

// gemm32 wraps blas32.Gemm over row-major backing slices.
func gemm32(transposeA, transposeB bool, alpha float32, adata []float32, ar, ac int, bdata []float32, br, bc int, cdata []float32, cr, cc int) {
	a := blas32.General{Rows: ar, Cols: ac, Stride: ac, Data: adata}
	b := blas32.General{Rows: br, Cols: bc, Stride: bc, Data: bdata}
	c := blas32.General{Rows: cr, Cols: cc, Stride: cc, Data: cdata}
	blas32.Gemm(blasTranspose(transposeA), blasTranspose(transposeB), alpha, a, b, 0, c)
}

func widenF16(in []F16) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = v.Float32()
	}
	return out
}
