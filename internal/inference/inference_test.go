package inference

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModel(t *testing.T, root, name, suffix string) {
	t.Helper()
	dir := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "onnx"), 0o755))
	for _, f := range []string{
		"tokenizer.json",
		"config.json",
		filepath.Join("onnx", "encoder_model"+suffix+".onnx"),
		filepath.Join("onnx", "decoder_model"+suffix+".onnx"),
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("{}"), 0o644))
	}
}

func TestResolve(t *testing.T) {
	root := t.TempDir()
	writeModel(t, root, "Helsinki-NLP/opus-mt-de-en", "")
	writeModel(t, root, "google/madlad400-3b-mt", "_q4")

	l, err := Resolve(root, "Helsinki-NLP/opus-mt-de-en", QuantNone)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Helsinki-NLP", "opus-mt-de-en", "onnx", "encoder_model.onnx"), l.Encoder)

	l, err = Resolve(root, "google/madlad400-3b-mt", Quant4Bit)
	require.NoError(t, err)
	assert.Equal(t, "decoder_model_q4.onnx", filepath.Base(l.Decoder))

	_, err = Resolve(root, "google/madlad400-3b-mt", Quant8Bit)
	assert.True(t, errors.Is(err, ErrMissingFile))

	_, err = Resolve(root, "Helsinki-NLP/opus-mt-xx-yy", QuantNone)
	assert.True(t, errors.Is(err, ErrMissingFile))

	_, err = Resolve(root, "../escape", QuantNone)
	assert.Error(t, err)
}

func TestReadModelConfig(t *testing.T) {
	dir := t.TempDir()

	marian := filepath.Join(dir, "marian.json")
	require.NoError(t, os.WriteFile(marian,
		[]byte(`{"decoder_start_token_id": 58100, "eos_token_id": 0, "pad_token_id": 58100, "vocab_size": 58101}`), 0o644))
	cfg, err := ReadModelConfig(marian)
	require.NoError(t, err)
	assert.Equal(t, int64(58100), cfg.DecoderStartTokenID)
	assert.Equal(t, int64(0), cfg.EOSTokenID)

	t5 := filepath.Join(dir, "t5.json")
	require.NoError(t, os.WriteFile(t5, []byte(`{"eos_token_id": 2, "pad_token_id": 1}`), 0o644))
	cfg, err = ReadModelConfig(t5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cfg.DecoderStartTokenID)
}

func TestPadBatch(t *testing.T) {
	ids, mask := PadBatch([][]int64{{5, 6, 7, 2}, {8, 2}}, 3, 0)

	assert.Equal(t, [][]int64{{5, 6, 2}, {8, 2, 0}}, ids)
	assert.Equal(t, [][]int64{{1, 1, 1}, {1, 1, 0}}, mask)
	assert.Equal(t, []int64{5, 6, 2, 8, 2, 0}, Flatten(ids))
}

func TestGreedy(t *testing.T) {
	cfg := ModelConfig{DecoderStartTokenID: 9, EOSTokenID: 2, PadTokenID: 0}
	// row 0 emits 5, 6, EOS; row 1 emits 7, EOS
	script := [][]int64{{5, 7}, {6, 2}, {2, 4}}

	steps := 0
	step := func(_ context.Context, decoderIDs [][]int64) ([][]float32, error) {
		logits := make([][]float32, len(decoderIDs))
		for i := range decoderIDs {
			assert.Len(t, decoderIDs[i], steps+1)
			logits[i] = make([]float32, 10)
			logits[i][script[steps][i]] = 1
		}
		steps++
		return logits, nil
	}

	out, err := Greedy(context.Background(), 2, cfg, 10, step)
	require.NoError(t, err)

	assert.Equal(t, [][]int64{{5, 6}, {7}}, out)
	assert.Equal(t, 3, steps)
}

func TestGreedy_StopsAtMaxNewTokens(t *testing.T) {
	cfg := ModelConfig{EOSTokenID: 2}
	step := func(_ context.Context, decoderIDs [][]int64) ([][]float32, error) {
		return [][]float32{{0, 0, 0, 1}}, nil
	}

	out, err := Greedy(context.Background(), 1, cfg, 4, step)
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{3, 3, 3, 3}}, out)
}

func TestArgmax(t *testing.T) {
	assert.Equal(t, int64(2), Argmax([]float32{0.1, -1, 3, 2.9}))
	assert.Equal(t, int64(0), Argmax([]float32{1}))
}
