// Package inference holds the runtime-independent parts of local
// sequence-to-sequence inference: on-disk model layout, model config,
// batch padding and greedy decoding.
package inference

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrMissingFile is returned when a model directory lacks a required file.
var ErrMissingFile = errors.New("missing model file")

type Quantization string

const (
	QuantNone Quantization = ""
	Quant8Bit Quantization = "8bit"
	Quant4Bit Quantization = "4bit"
)

// Suffix is appended to ONNX file names of quantized exports.
func (q Quantization) Suffix() string {
	switch q {
	case Quant8Bit:
		return "_quantized"
	case Quant4Bit:
		return "_q4"
	default:
		return ""
	}
}

func (q Quantization) String() string {
	if q == QuantNone {
		return "none"
	}
	return string(q)
}

// Layout is the set of files making up one exported model:
//
//	<root>/<name>/tokenizer.json
//	<root>/<name>/config.json
//	<root>/<name>/onnx/encoder_model<suffix>.onnx
//	<root>/<name>/onnx/decoder_model<suffix>.onnx
type Layout struct {
	Dir       string
	Tokenizer string
	Config    string
	Encoder   string
	Decoder   string
}

// Resolve locates the files of model name under root. Names keep their
// "org/model" form and map onto nested directories.
func Resolve(root, name string, quant Quantization) (Layout, error) {
	if name == "" || strings.Contains(name, "..") {
		return Layout{}, fmt.Errorf("invalid model name %q", name)
	}
	dir := filepath.Join(root, filepath.FromSlash(name))
	l := Layout{
		Dir:       dir,
		Tokenizer: filepath.Join(dir, "tokenizer.json"),
		Config:    filepath.Join(dir, "config.json"),
		Encoder:   filepath.Join(dir, "onnx", "encoder_model"+quant.Suffix()+".onnx"),
		Decoder:   filepath.Join(dir, "onnx", "decoder_model"+quant.Suffix()+".onnx"),
	}
	for _, p := range []string{l.Tokenizer, l.Config, l.Encoder, l.Decoder} {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Layout{}, fmt.Errorf("%w: %s", ErrMissingFile, p)
			}
			return Layout{}, err
		}
	}
	return l, nil
}
