// registry.go
//
// Process-global registry of extern kernels. Build-tagged files register
// the routine named by ExternMatmulName at init time: the cgo cuBLASLt
// kernel on cuda builds, the CPU reference kernel everywhere else.

package cublaslt

import (
	"sync"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"k8s.io/klog/v2"
)

// MatmulKernel executes one extern matmul call. The parameter order
// mirrors the native routine's argument list (see ExternOp.ExternArgs).
// Kernels own all validation: shape and layout checks, dtype support
// and scale handling happen here, at execution time.
type MatmulKernel func(lhs, rhs, out *tensor.Dense, transposeA, transposeB bool, scaleA, scaleB, scaleD *tensor.Dense, fastAccum bool) error

var (
	externMu      sync.RWMutex
	externKernels = make(map[string]MatmulKernel)
)

// RegisterExtern registers kernel under name, replacing any previous
// registration. Registering a nil kernel panics.
func RegisterExtern(name string, kernel MatmulKernel) {
	if kernel == nil {
		panic("cublaslt: RegisterExtern called with nil kernel")
	}
	externMu.Lock()
	externKernels[name] = kernel
	externMu.Unlock()
	klog.V(2).Infof("cublaslt: registered extern kernel %q", name)
}

// LookupExtern returns the kernel registered under name.
func LookupExtern(name string) (MatmulKernel, error) {
	externMu.RLock()
	kernel, ok := externKernels[name]
	externMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("cublaslt: no extern kernel registered under %q", name)
	}
	return kernel, nil
}

// Eval resolves the node: it allocates the output tensor from the
// node's shape and dtype, looks up the extern kernel by name and
// invokes it with the node's argument list.
func (op *ExternOp) Eval() (*tensor.Dense, error) {
	kernel, err := LookupExtern(op.name)
	if err != nil {
		return nil, err
	}

	out := tensor.New(tensor.Of(op.dtype), tensor.WithShape(op.shape...))
	if klog.V(3).Enabled() {
		klog.Infof("cublaslt: eval %v args=%v", op, op.ExternArgs(out))
	}

	if err := kernel(op.inputs[0], op.inputs[1], out, op.transposeA, op.transposeB, op.inputs[2], op.inputs[3], op.inputs[4], op.fastAccum); err != nil {
		return nil, errors.Wrapf(err, "extern %q", op.name)
	}
	return out, nil
}
