// dtype.go
//
// Reduced-precision element types for extern matmul nodes. Host code
// treats these as opaque bit patterns; their numerics live in the
// native library. Float16 additionally gets host-side conversion so the
// CPU reference kernel can execute f16 nodes.

package cublaslt

import (
	"reflect"

	"github.com/x448/float16"
	"gorgonia.org/tensor"
)

// F16 is an IEEE 754 half-precision value stored as raw bits.
type F16 uint16

// Float32 widens f to float32.
func (f F16) Float32() float32 { return float16.Frombits(uint16(f)).Float32() }

// F16FromFloat32 narrows v to half precision with round-to-nearest-even.
func F16FromFloat32(v float32) F16 { return F16(float16.Fromfloat32(v).Bits()) }

// F8E4M3 is an 8-bit float (4 exponent / 3 mantissa bits) stored as raw
// bits. Only the CUDA build can compute with it.
type F8E4M3 uint8

// F8E5M2 is an 8-bit float (5 exponent / 2 mantissa bits) stored as raw
// bits. Only the CUDA build can compute with it.
type F8E5M2 uint8

var (
	// Float16 is the element type tag for F16 tensors.
	Float16 = tensor.Dtype{Type: reflect.TypeOf(F16(0))}
	// Float8E4M3 is the element type tag for F8E4M3 tensors.
	Float8E4M3 = tensor.Dtype{Type: reflect.TypeOf(F8E4M3(0))}
	// Float8E5M2 is the element type tag for F8E5M2 tensors.
	Float8E5M2 = tensor.Dtype{Type: reflect.TypeOf(F8E5M2(0))}
)

func init() {
	tensor.Register(Float16)
	tensor.Register(Float8E4M3)
	tensor.Register(Float8E5M2)
}

// ScaleTensor builds a size-1 float32 tensor holding a per-tensor
// quantization scale factor, the only form the scale arguments of
// Matmul accept.
func ScaleTensor(v float32) *tensor.Dense {
	return tensor.New(tensor.WithShape(1), tensor.WithBacking([]float32{v}))
}
