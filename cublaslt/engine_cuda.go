//go:build cuda && cgo

// engine_cuda.go
//
// CUDA-specific initialization for CublasLtEng. This ensures the shared
// cuBLASLt handle used by the extern matmul kernel is created eagerly
// when a new engine is constructed, rather than lazily on the first
// multiplication.

package cublaslt

/*
#cgo LDFLAGS: -lcublasLt -lcudart
#include "cublaslt_matmul.h"
*/
import "C"

import "k8s.io/klog/v2"

// initCublasLtEngine performs one-time cuBLASLt setup. Failure is not
// fatal here: the kernel reports its own errors per call and the engine
// falls back to the CPU path.
func initCublasLtEngine(e *CublasLtEng) {
	_ = e
	if status := C.cublasltEnsureInit(); status != 0 {
		klog.Warningf("cublaslt: cuBLASLt handle initialization failed (status %d); matmuls will fall back to CPU", int(status))
	}
}
