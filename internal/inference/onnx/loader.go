package onnx

import (
	"context"
	"errors"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/MimeLyc/dataset-translator/internal/inference"
	"github.com/MimeLyc/dataset-translator/internal/translator"
	"github.com/MimeLyc/dataset-translator/pkg/log"
)

// Loader loads exported models from a local directory tree.
type Loader struct {
	ModelDir     string
	Quantization inference.Quantization
	// Device is "cpu" or "cuda".
	Device string
}

var _ translator.ModelLoader = (*Loader)(nil)

func (l *Loader) Load(_ context.Context, name string) (translator.Model, translator.Tokenizer, error) {
	layout, err := inference.Resolve(l.ModelDir, name, l.Quantization)
	if err != nil {
		if errors.Is(err, inference.ErrMissingFile) {
			return nil, nil, fmt.Errorf("%s: %w", name, errors.Join(translator.ErrModelNotFound, err))
		}
		return nil, nil, err
	}

	cfg, err := inference.ReadModelConfig(layout.Config)
	if err != nil {
		return nil, nil, err
	}

	opts, err := l.sessionOptions()
	if err != nil {
		return nil, nil, err
	}
	if opts != nil {
		defer opts.Destroy()
	}

	model, err := NewSeq2Seq(layout, cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	tokenizer, err := NewTokenizer(layout.Tokenizer, cfg.PadTokenID)
	if err != nil {
		model.Close()
		return nil, nil, fmt.Errorf("load tokenizer: %w", err)
	}

	log.Debug("Loaded %s (quantization %s, device %s)", name, l.Quantization, l.device())
	return model, tokenizer, nil
}

func (l *Loader) device() string {
	if l.Device == "" {
		return "cpu"
	}
	return l.Device
}

func (l *Loader) sessionOptions() (*ort.SessionOptions, error) {
	if l.device() != "cuda" {
		return nil, nil
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, err
	}
	cuda, err := ort.NewCUDAProviderOptions()
	if err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("cuda provider options: %w", err)
	}
	defer cuda.Destroy()

	if err := opts.AppendExecutionProviderCUDA(cuda); err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("enable cuda: %w", err)
	}
	return opts, nil
}
