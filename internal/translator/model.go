package translator

import (
	"context"
	"errors"
)

// ErrModelNotFound is returned by a ModelLoader when no model exists under a name.
var ErrModelNotFound = errors.New("model not found")

// Encoded is a right-padded batch of token ids.
type Encoded struct {
	InputIDs      [][]int64
	AttentionMask [][]int64
}

type Tokenizer interface {
	// Encode tokenizes texts into one padded batch. Sequences longer than
	// maxLength are truncated when maxLength > 0.
	Encode(texts []string, maxLength int) (Encoded, error)
	// Decode turns generated ids into text, skipping special tokens.
	Decode(ids []int64) (string, error)
	Close() error
}

type Model interface {
	// Generate returns one id sequence per input row.
	Generate(ctx context.Context, in Encoded, maxNewTokens int) ([][]int64, error)
	Close() error
}

type ModelLoader interface {
	Load(ctx context.Context, name string) (Model, Tokenizer, error)
}
