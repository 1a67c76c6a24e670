// engine.go
package cublaslt

import "gorgonia.org/tensor"

// CublasLtEng is a tensor.Engine implementation that offloads eligible
// matrix multiplications to the extern kernel registered under
// ExternMatmulName and delegates everything else to the embedded
// tensor.StdEng.
type CublasLtEng struct {
	tensor.StdEng
}

// NewCublasLtEng constructs a new CublasLtEng and performs any one-time
// native-library initialization for the current build (a no-op on
// non-CUDA builds).
func NewCublasLtEng() *CublasLtEng {
	e := &CublasLtEng{
		StdEng: tensor.StdEng{},
	}
	initCublasLtEngine(e)
	return e
}

// Compile-time check that *CublasLtEng satisfies tensor.Engine.
var _ tensor.Engine = (*CublasLtEng)(nil)
