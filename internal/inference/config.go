package inference

import (
	"encoding/json"
	"fmt"
	"os"
)

// ModelConfig is the subset of a model's config.json used for generation.
type ModelConfig struct {
	DecoderStartTokenID int64 `json:"decoder_start_token_id"`
	EOSTokenID          int64 `json:"eos_token_id"`
	PadTokenID          int64 `json:"pad_token_id"`
	VocabSize           int   `json:"vocab_size"`
	MaxLength           int   `json:"max_length"`
}

func ReadModelConfig(path string) (ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ModelConfig{}, err
	}

	cfg := ModelConfig{DecoderStartTokenID: -1}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ModelConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	// T5-style models start decoding from the pad token.
	if cfg.DecoderStartTokenID < 0 {
		cfg.DecoderStartTokenID = cfg.PadTokenID
	}
	return cfg, nil
}
