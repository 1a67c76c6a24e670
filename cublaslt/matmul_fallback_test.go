//go:build !cuda || !cgo

package cublaslt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func float32Matrix(rows, cols int, data []float32) *tensor.Dense {
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(data))
}

// A = [[1 2 3] [4 5 6]], B = [[1 2] [3 4] [5 6]], A x B = [[22 28] [49 64]].
var (
	evalA    = []float32{1, 2, 3, 4, 5, 6}
	evalAT   = []float32{1, 4, 2, 5, 3, 6}
	evalB    = []float32{1, 2, 3, 4, 5, 6}
	evalBT   = []float32{1, 3, 5, 2, 4, 6}
	evalWant = []float32{22, 28, 49, 64}
)

func TestEvalComputesProduct(t *testing.T) {
	tests := []struct {
		name string
		lhs  *tensor.Dense
		rhs  *tensor.Dense
		opts MatmulOptions
	}{
		{"no transposes", float32Matrix(2, 3, evalA), float32Matrix(3, 2, evalB), MatmulOptions{}},
		{"transpose lhs", float32Matrix(3, 2, evalAT), float32Matrix(3, 2, evalB), MatmulOptions{TransposeA: true}},
		{"transpose rhs", float32Matrix(2, 3, evalA), float32Matrix(2, 3, evalBT), MatmulOptions{TransposeB: true}},
		{"transpose both", float32Matrix(3, 2, evalAT), float32Matrix(2, 3, evalBT), MatmulOptions{TransposeA: true, TransposeB: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := Matmul(tt.lhs, tt.rhs, tt.opts)
			out, err := node.Eval()
			require.NoError(t, err)
			assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
			assert.Equal(t, evalWant, out.Data())
		})
	}
}

func TestEvalAppliesScaleFactors(t *testing.T) {
	lhs := float32Matrix(2, 3, evalA)
	rhs := float32Matrix(3, 2, evalB)

	node := Matmul(lhs, rhs, MatmulOptions{
		ScaleA: ScaleTensor(2),
		ScaleB: ScaleTensor(3),
		ScaleD: ScaleTensor(0.5),
	})
	out, err := node.Eval()
	require.NoError(t, err)

	// D = 0.5 * (2 * 3 * A x B) = 3 * A x B
	want := make([]float32, len(evalWant))
	for i, v := range evalWant {
		want[i] = 3 * v
	}
	assert.Equal(t, want, out.Data())
}

func TestEvalFloat64(t *testing.T) {
	lhs := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float64{1, 2, 3, 4}))
	rhs := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float64{5, 6, 7, 8}))

	node := Matmul(lhs, rhs, MatmulOptions{})
	require.Equal(t, tensor.Float64, node.Dtype())

	out, err := node.Eval()
	require.NoError(t, err)
	assert.Equal(t, []float64{19, 22, 43, 50}, out.Data())
}

func TestEvalFloat16(t *testing.T) {
	f16s := func(vs ...float32) []F16 {
		out := make([]F16, len(vs))
		for i, v := range vs {
			out[i] = F16FromFloat32(v)
		}
		return out
	}

	lhs := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking(f16s(1, 2, 3, 4)))
	rhs := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking(f16s(5, 6, 7, 8)))

	node := Matmul(lhs, rhs, MatmulOptions{})
	require.Equal(t, Float16, node.Dtype())

	out, err := node.Eval()
	require.NoError(t, err)

	got, ok := out.Data().([]F16)
	require.True(t, ok, "expected F16 backing, got %T", out.Data())
	want := []float32{19, 22, 43, 50} // exactly representable in half precision
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i], got[i].Float32(), "element %d", i)
	}
}

func TestEvalFp8RequiresCUDA(t *testing.T) {
	lhs := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]F8E4M3{0, 0, 0, 0}))
	rhs := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]F8E4M3{0, 0, 0, 0}))

	node := Matmul(lhs, rhs, MatmulOptions{
		ScaleA:    ScaleTensor(1),
		ScaleB:    ScaleTensor(1),
		ScaleD:    ScaleTensor(1),
		FastAccum: true,
	})
	_, err := node.Eval()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CUDA build")
}

func TestEvalInnerDimensionMismatch(t *testing.T) {
	lhs := zeroMatrix(tensor.Float32, 2, 3)
	rhs := zeroMatrix(tensor.Float32, 4, 5)

	// The builder constructs the node without complaint; the kernel
	// rejects it at execution time.
	node := Matmul(lhs, rhs, MatmulOptions{})
	assert.Equal(t, tensor.Shape{2, 5}, node.Shape())

	_, err := node.Eval()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inner dimension mismatch")
}

func TestEvalExplicitDimsMismatchSurfacesAtExecution(t *testing.T) {
	lhs := float32Matrix(2, 3, evalA)
	rhs := float32Matrix(3, 2, evalB)

	node := Matmul(lhs, rhs, MatmulOptions{N: 7})
	_, err := node.Eval()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output shape mismatch")
}

func TestEvalRejectsMalformedScaleTensor(t *testing.T) {
	lhs := float32Matrix(2, 3, evalA)
	rhs := float32Matrix(3, 2, evalB)
	bad := float32Matrix(1, 2, []float32{1, 2})

	node := Matmul(lhs, rhs, MatmulOptions{ScaleA: bad})
	_, err := node.Eval()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one float32")
}

func TestEvalMixedDtypesRejected(t *testing.T) {
	lhs := float32Matrix(2, 2, []float32{1, 2, 3, 4})
	rhs := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float64{1, 2, 3, 4}))

	node := Matmul(lhs, rhs, MatmulOptions{})
	_, err := node.Eval()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matching element types")
}

func TestEvalFastAccumIgnoredOnCPU(t *testing.T) {
	lhs := float32Matrix(2, 3, evalA)
	rhs := float32Matrix(3, 2, evalB)

	node := Matmul(lhs, rhs, MatmulOptions{FastAccum: true})
	out, err := node.Eval()
	require.NoError(t, err)
	assert.Equal(t, evalWant, out.Data())
}
