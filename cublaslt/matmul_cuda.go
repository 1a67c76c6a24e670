//go:build cuda && cgo

// matmul_cuda.go
//
// CUDA kernel for ExternMatmulName. It marshals the extern argument
// list into the flat C ABI of the cuBLASLt shim (cublaslt_matmul.cu)
// and maps its status codes back to Go errors. Tensor memory stays in
// regular Go/CPU space; the shim stages it through device buffers.

package cublaslt

/*
#cgo LDFLAGS: -lcublasLt -lcudart
#include "cublaslt_matmul.h"
*/
import "C"

import (
	"unsafe"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

func init() {
	RegisterExtern(ExternMatmulName, cudaMatmul)
}

// dtypeTag maps an element type to the shim's dtype enumeration
// (CUBLASLT_SHIM_* in cublaslt_matmul.h).
func dtypeTag(dt tensor.Dtype) (C.int, error) {
	switch dt {
	case tensor.Float32:
		return C.CUBLASLT_SHIM_F32, nil
	case tensor.Float64:
		return C.CUBLASLT_SHIM_F64, nil
	case Float16:
		return C.CUBLASLT_SHIM_F16, nil
	case Float8E4M3:
		return C.CUBLASLT_SHIM_F8E4M3, nil
	case Float8E5M2:
		return C.CUBLASLT_SHIM_F8E5M2, nil
	case tensor.Int8:
		return C.CUBLASLT_SHIM_I8, nil
	case tensor.Int32:
		return C.CUBLASLT_SHIM_I32, nil
	default:
		return 0, errors.Errorf("cublaslt: element type %v is not supported by the cuBLASLt shim", dt)
	}
}

// densePtr returns the base pointer of a dense tensor's backing slice.
func densePtr(d *tensor.Dense) (unsafe.Pointer, error) {
	switch data := d.Data().(type) {
	case []float32:
		return unsafe.Pointer(&data[0]), nil
	case []float64:
		return unsafe.Pointer(&data[0]), nil
	case []F16:
		return unsafe.Pointer(&data[0]), nil
	case []F8E4M3:
		return unsafe.Pointer(&data[0]), nil
	case []F8E5M2:
		return unsafe.Pointer(&data[0]), nil
	case []int8:
		return unsafe.Pointer(&data[0]), nil
	case []int32:
		return unsafe.Pointer(&data[0]), nil
	default:
		return nil, errors.Errorf("cublaslt: unsupported backing slice %T", data)
	}
}

// scalePtr returns the float32 pointer of a scale tensor, or nil when
// the scale is absent.
func scalePtr(s *tensor.Dense) (*C.float, error) {
	if s == nil {
		return nil, nil
	}
	data, ok := s.Data().([]float32)
	if !ok || len(data) != 1 {
		return nil, errors.Errorf("cublaslt: scale tensors must hold exactly one float32 value, got %v tensor of shape %v", s.Dtype(), s.Shape())
	}
	return (*C.float)(unsafe.Pointer(&data[0])), nil
}

func cBool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

// cudaMatmul invokes the native routine with the documented argument
// order: lhs, rhs, out, transposeA, transposeB, scaleA, scaleB, scaleD,
// fastAccum. Argument and numeric validation beyond pointer marshalling
// is the library's responsibility.
func cudaMatmul(lhs, rhs, out *tensor.Dense, transposeA, transposeB bool, scaleA, scaleB, scaleD *tensor.Dense, fastAccum bool) error {
	if !isRowMajorContiguous2D(lhs) || !isRowMajorContiguous2D(rhs) || !isRowMajorContiguous2D(out) {
		return errors.New("cublaslt: matmul requires dense 2D row-major operands")
	}

	aPtr, err := densePtr(lhs)
	if err != nil {
		return err
	}
	bPtr, err := densePtr(rhs)
	if err != nil {
		return err
	}
	dPtr, err := densePtr(out)
	if err != nil {
		return err
	}

	saPtr, err := scalePtr(scaleA)
	if err != nil {
		return err
	}
	sbPtr, err := scalePtr(scaleB)
	if err != nil {
		return err
	}
	sdPtr, err := scalePtr(scaleD)
	if err != nil {
		return err
	}

	aTag, err := dtypeTag(lhs.Dtype())
	if err != nil {
		return err
	}
	bTag, err := dtypeTag(rhs.Dtype())
	if err != nil {
		return err
	}
	dTag, err := dtypeTag(out.Dtype())
	if err != nil {
		return err
	}

	shapeA := lhs.Shape()
	shapeB := rhs.Shape()
	shapeD := out.Shape()

	status := C.cublasltMatmul(
		aPtr, C.int(shapeA[0]), C.int(shapeA[1]), aTag,
		bPtr, C.int(shapeB[0]), C.int(shapeB[1]), bTag,
		dPtr, C.int(shapeD[0]), C.int(shapeD[1]), dTag,
		cBool(transposeA), cBool(transposeB),
		saPtr, sbPtr, sdPtr,
		cBool(fastAccum),
	)
	if status != 0 {
		return errors.Errorf("cublaslt: native matmul failed with status %d", int(status))
	}
	return nil
}
