// node.go
//
// Symbolic extern-call node for cuBLASLt matrix multiplication. Matmul
// builds the node only: it records the output shape/dtype contract and
// the argument list of the native routine, and defers all execution
// (and all validation) to the kernel registered under ExternMatmulName.

package cublaslt

import (
	"fmt"

	"gorgonia.org/tensor"
)

// ExternMatmulName is the registry name of the native matmul routine an
// ExternOp built by Matmul resolves to.
const ExternMatmulName = "cublaslt.matmul"

// MatmulOptions carries the optional arguments of Matmul. The zero value
// requests an untransposed multiply with inferred output shape and dtype
// and no quantization scales.
//
// ScaleA, ScaleB and ScaleD, when set, must each be a size-1 float32
// tensor (see ScaleTensor). They are used together on the FP8 path and
// must be nil for int8 calls; that precondition belongs to the caller
// and to cuBLASLt itself, and is deliberately not checked here.
// FastAccum selects reduced-precision accumulation and is only
// meaningful alongside the scale factors.
type MatmulOptions struct {
	TransposeA bool
	TransposeB bool

	// N and M override the inferred output dimensions when non-zero.
	N int
	M int

	// Dtype overrides the output element type. The zero value inherits
	// the element type of lhs.
	Dtype tensor.Dtype

	ScaleA *tensor.Dense
	ScaleB *tensor.Dense
	ScaleD *tensor.Dense

	FastAccum bool
}

// ExternOp is a symbolic description of one cuBLASLt matmul call:
// the output shape and element type, the referenced input tensors, and
// the non-tensor parameters of the native routine. It is immutable
// after construction and holds no results; Eval resolves it against
// the extern registry.
type ExternOp struct {
	name  string
	shape tensor.Shape
	dtype tensor.Dtype

	// inputs is the fixed-order operand list: lhs, rhs, scaleA, scaleB,
	// scaleD. Absent scales stay nil rather than being dropped, so the
	// positions always line up with the native argument order.
	inputs [5]*tensor.Dense

	transposeA bool
	transposeB bool
	fastAccum  bool
}

// Matmul builds the extern node for lhs × rhs.
//
// The output shape is (n, m) with n taken from the non-contracted
// dimension of lhs (rows, or columns when TransposeA) and m from the
// non-contracted dimension of rhs (columns, or rows when TransposeB),
// unless opts.N/opts.M override them. The output dtype is lhs's unless
// opts.Dtype is set.
//
// No validation happens here: malformed shapes or dtype combinations
// surface from the kernel at Eval time, keeping error behavior aligned
// with the native library's own checks.
func Matmul(lhs, rhs *tensor.Dense, opts MatmulOptions) *ExternOp {
	n := opts.N
	if n == 0 {
		if opts.TransposeA {
			n = lhs.Shape()[1]
		} else {
			n = lhs.Shape()[0]
		}
	}
	m := opts.M
	if m == 0 {
		if opts.TransposeB {
			m = rhs.Shape()[0]
		} else {
			m = rhs.Shape()[1]
		}
	}

	dt := opts.Dtype
	if dt.Type == nil {
		dt = lhs.Dtype()
	}

	return &ExternOp{
		name:       ExternMatmulName,
		shape:      tensor.Shape{n, m},
		dtype:      dt,
		inputs:     [5]*tensor.Dense{lhs, rhs, opts.ScaleA, opts.ScaleB, opts.ScaleD},
		transposeA: opts.TransposeA,
		transposeB: opts.TransposeB,
		fastAccum:  opts.FastAccum,
	}
}

// Name returns the extern routine name the node resolves to.
func (op *ExternOp) Name() string { return op.name }

// Shape returns the output shape (n, m).
func (op *ExternOp) Shape() tensor.Shape { return op.shape.Clone() }

// Dtype returns the output element type.
func (op *ExternOp) Dtype() tensor.Dtype { return op.dtype }

// Inputs returns the operand list in fixed order: lhs, rhs, scaleA,
// scaleB, scaleD. Absent scales are nil entries, never omitted.
func (op *ExternOp) Inputs() []*tensor.Dense {
	in := make([]*tensor.Dense, len(op.inputs))
	copy(in, op.inputs[:])
	return in
}

// TransposeA reports whether lhs is logically transposed.
func (op *ExternOp) TransposeA() bool { return op.transposeA }

// TransposeB reports whether rhs is logically transposed.
func (op *ExternOp) TransposeB() bool { return op.transposeB }

// FastAccum reports whether reduced-precision accumulation was requested.
func (op *ExternOp) FastAccum() bool { return op.fastAccum }

// ExternArgs returns the native call's argument list for the given
// output buffer, in the wire order of the routine:
//
//	lhs, rhs, out, transposeA, transposeB, scaleA, scaleB, scaleD, fastAccum
func (op *ExternOp) ExternArgs(out *tensor.Dense) []interface{} {
	return []interface{}{
		op.inputs[0], op.inputs[1], out,
		op.transposeA, op.transposeB,
		op.inputs[2], op.inputs[3], op.inputs[4],
		op.fastAccum,
	}
}

func (op *ExternOp) String() string {
	return fmt.Sprintf("%s(%v)%v", op.name, op.dtype, op.shape)
}
