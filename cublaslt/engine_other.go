//go:build !cuda || !cgo

// engine_other.go
//
// Non-CUDA (or non-cgo) stub for CublasLtEng initialization. On these
// builds the extern registry holds the CPU reference kernel, so there
// is nothing to set up.

package cublaslt

func initCublasLtEngine(e *CublasLtEng) {
	_ = e
	// No-op without the native library.
}
