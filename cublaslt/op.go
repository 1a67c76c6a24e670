// op.go
//
// Gorgonia integration: a gorgonia.Op that places the extern matmul in
// an expression graph. The graph node carries only lhs and rhs as
// children; transpose flags, scale tensors, the fast-accumulation
// toggle and the dtype override are attributes of the op itself, so
// the symbolic arity stays at two.

package cublaslt

import (
	"fmt"
	"hash"
	"hash/fnv"

	"github.com/chewxy/hm"
	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// MatmulNode inserts the extern cuBLASLt matmul into the expression
// graph of a and b and returns the symbolic result node. Shape and dtype follow
// the same rules as Matmul; execution happens when a VM runs the graph
// and resolves the node through the extern registry.
func MatmulNode(a, b *gorgonia.Node, opts MatmulOptions) (*gorgonia.Node, error) {
	op := &matmulOp{
		transposeA: opts.TransposeA,
		transposeB: opts.TransposeB,
		fastAccum:  opts.FastAccum,
		n:          opts.N,
		m:          opts.M,
		dtype:      opts.Dtype,
		scaleA:     opts.ScaleA,
		scaleB:     opts.ScaleB,
		scaleD:     opts.ScaleD,
	}
	n, err := gorgonia.ApplyOp(op, a, b)
	if err != nil {
		return nil, errors.Wrap(err, "cublaslt: applying matmul op")
	}
	return n, nil
}

type matmulOp struct {
	transposeA bool
	transposeB bool
	fastAccum  bool
	n, m       int
	dtype      tensor.Dtype
	scaleA     *tensor.Dense
	scaleB     *tensor.Dense
	scaleD     *tensor.Dense
}

var _ gorgonia.Op = (*matmulOp)(nil)

func (op *matmulOp) Arity() int { return 2 }

func (op *matmulOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	t := gorgonia.TensorType{Dims: 2, Of: a}
	if op.dtype.Type != nil {
		return hm.NewFnType(t, t, gorgonia.TensorType{Dims: 2, Of: op.dtype})
	}
	return hm.NewFnType(t, t, t)
}

func (op *matmulOp) InferShape(ns ...gorgonia.DimSizer) (tensor.Shape, error) {
	if len(ns) != 2 {
		return nil, errors.Errorf("cublaslt: matmul op expects 2 input shapes, got %d", len(ns))
	}

	n := op.n
	if n == 0 {
		axis := 0
		if op.transposeA {
			axis = 1
		}
		var err error
		if n, err = ns[0].DimSize(axis); err != nil {
			return nil, errors.Wrap(err, "cublaslt: inferring output rows")
		}
	}

	m := op.m
	if m == 0 {
		axis := 1
		if op.transposeB {
			axis = 0
		}
		var err error
		if m, err = ns[1].DimSize(axis); err != nil {
			return nil, errors.Wrap(err, "cublaslt: inferring output cols")
		}
	}

	return tensor.Shape{n, m}, nil
}

func (op *matmulOp) Do(vals ...gorgonia.Value) (gorgonia.Value, error) {
	if len(vals) != 2 {
		return nil, errors.Errorf("cublaslt: matmul op expects 2 inputs, got %d", len(vals))
	}
	lhs, ok := vals[0].(*tensor.Dense)
	if !ok {
		return nil, errors.Errorf("cublaslt: matmul op expects a dense lhs, got %T", vals[0])
	}
	rhs, ok := vals[1].(*tensor.Dense)
	if !ok {
		return nil, errors.Errorf("cublaslt: matmul op expects a dense rhs, got %T", vals[1])
	}

	node := Matmul(lhs, rhs, MatmulOptions{
		TransposeA: op.transposeA,
		TransposeB: op.transposeB,
		N:          op.n,
		M:          op.m,
		Dtype:      op.dtype,
		ScaleA:     op.scaleA,
		ScaleB:     op.scaleB,
		ScaleD:     op.scaleD,
		FastAccum:  op.fastAccum,
	})
	return node.Eval()
}

func (op *matmulOp) ReturnsPtr() bool     { return false }
func (op *matmulOp) CallsExtern() bool    { return true }
func (op *matmulOp) OverwritesInput() int { return -1 }

func (op *matmulOp) WriteHash(h hash.Hash) {
	fmt.Fprintf(h, "%s-ta=%v-tb=%v-fa=%v-n=%d-m=%d-dt=%v", ExternMatmulName, op.transposeA, op.transposeB, op.fastAccum, op.n, op.m, op.dtype)
}

func (op *matmulOp) Hashcode() uint32 {
	h := fnv.New32a()
	op.WriteHash(h)
	return h.Sum32()
}

func (op *matmulOp) String() string { return "CublasLtMatmul" }
