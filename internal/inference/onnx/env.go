// Package onnx runs exported encoder-decoder translation models with ONNX
// Runtime and Hugging Face tokenizers.
package onnx

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// Init loads the ONNX Runtime shared library. It must be called once before
// any model is loaded.
func Init(dylib string) error {
	if ort.IsInitialized() {
		return nil
	}
	if dylib != "" {
		ort.SetSharedLibraryPath(dylib)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnx runtime: %w", err)
	}
	return nil
}

func Destroy() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}
