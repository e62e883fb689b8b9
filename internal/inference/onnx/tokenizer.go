package onnx

import (
	"github.com/daulet/tokenizers"

	"github.com/MimeLyc/dataset-translator/internal/inference"
	"github.com/MimeLyc/dataset-translator/internal/translator"
)

// Tokenizer adapts a tokenizer.json file to translator.Tokenizer.
type Tokenizer struct {
	tk    *tokenizers.Tokenizer
	padID int64
}

var _ translator.Tokenizer = (*Tokenizer)(nil)

func NewTokenizer(path string, padID int64) (*Tokenizer, error) {
	tk, err := tokenizers.FromFile(path)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{tk: tk, padID: padID}, nil
}

func (t *Tokenizer) Encode(texts []string, maxLength int) (translator.Encoded, error) {
	seqs := make([][]int64, len(texts))
	for i, text := range texts {
		ids, _ := t.tk.Encode(text, true)
		seq := make([]int64, len(ids))
		for j, id := range ids {
			seq[j] = int64(id)
		}
		seqs[i] = seq
	}
	ids, mask := inference.PadBatch(seqs, maxLength, t.padID)
	return translator.Encoded{InputIDs: ids, AttentionMask: mask}, nil
}

func (t *Tokenizer) Decode(ids []int64) (string, error) {
	raw := make([]uint32, len(ids))
	for i, id := range ids {
		raw[i] = uint32(id)
	}
	return t.tk.Decode(raw, true), nil
}

func (t *Tokenizer) Close() error {
	return t.tk.Close()
}
