//go:build cuda

package oracle

/*
#cgo LDFLAGS: -L${SRCDIR} -lkernel -L/usr/local/cuda/lib64 -lcudart
#include "bindings.h"
*/
import "C"
import "log"

// CUDAPredictor offloads batch feature evaluation to the Nvidia GPU. It
// carries the CGO bridge shape so a real trained model's forward pass can
// be substituted without touching callers; the kernel returns both the
// regression outputs (ŷ, d̂) packed into a two-element C array.
type CUDAPredictor struct{}

// NewPredictor returns the CUDA-accelerated Predictor.
func NewPredictor() Predictor {
	log.Println("[CUDA] oracle predictor compiled with hardware acceleration enabled")
	return CUDAPredictor{}
}

func (CUDAPredictor) Predict(f Features, mask Mask) (yMeas, yDiscr float64) {
	cFeatures := make([]C.double, len(f))
	for i, v := range f {
		cFeatures[i] = C.double(v)
	}
	var out [2]C.double
	C.PredictCUDA((*C.double)(&cFeatures[0]), C.int(len(cFeatures)), (*C.double)(&out[0]))
	return float64(out[0]), float64(out[1])
}
