package onnx

import (
	"context"
	"errors"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/MimeLyc/dataset-translator/internal/inference"
	"github.com/MimeLyc/dataset-translator/internal/translator"
)

// Seq2Seq is an encoder-decoder pair exported without past key values.
// Every decoding step reruns the decoder over the whole prefix.
type Seq2Seq struct {
	encoder *ort.DynamicAdvancedSession
	decoder *ort.DynamicAdvancedSession
	config  inference.ModelConfig
}

var _ translator.Model = (*Seq2Seq)(nil)

func NewSeq2Seq(layout inference.Layout, cfg inference.ModelConfig, opts *ort.SessionOptions) (*Seq2Seq, error) {
	encoder, err := ort.NewDynamicAdvancedSession(layout.Encoder,
		[]string{"input_ids", "attention_mask"},
		[]string{"last_hidden_state"},
		opts)
	if err != nil {
		return nil, fmt.Errorf("create encoder session: %w", err)
	}

	decoder, err := ort.NewDynamicAdvancedSession(layout.Decoder,
		[]string{"encoder_attention_mask", "input_ids", "encoder_hidden_states"},
		[]string{"logits"},
		opts)
	if err != nil {
		encoder.Destroy()
		return nil, fmt.Errorf("create decoder session: %w", err)
	}

	return &Seq2Seq{encoder: encoder, decoder: decoder, config: cfg}, nil
}

func (m *Seq2Seq) Generate(ctx context.Context, in translator.Encoded, maxNewTokens int) ([][]int64, error) {
	batch := len(in.InputIDs)
	if batch == 0 {
		return nil, nil
	}
	width := int64(len(in.InputIDs[0]))
	shape := ort.NewShape(int64(batch), width)

	inputIDs, err := ort.NewTensor(shape, inference.Flatten(in.InputIDs))
	if err != nil {
		return nil, err
	}
	defer inputIDs.Destroy()
	mask, err := ort.NewTensor(shape, inference.Flatten(in.AttentionMask))
	if err != nil {
		return nil, err
	}
	defer mask.Destroy()

	encoded := []ort.Value{nil}
	if err := m.encoder.Run([]ort.Value{inputIDs, mask}, encoded); err != nil {
		return nil, fmt.Errorf("run encoder: %w", err)
	}
	defer encoded[0].Destroy()

	return inference.Greedy(ctx, batch, m.config, maxNewTokens, func(_ context.Context, decoderIDs [][]int64) ([][]float32, error) {
		return m.step(mask, encoded[0], decoderIDs)
	})
}

func (m *Seq2Seq) step(mask, hidden ort.Value, decoderIDs [][]int64) ([][]float32, error) {
	batch := int64(len(decoderIDs))
	steps := int64(len(decoderIDs[0]))

	ids, err := ort.NewTensor(ort.NewShape(batch, steps), inference.Flatten(decoderIDs))
	if err != nil {
		return nil, err
	}
	defer ids.Destroy()

	outputs := []ort.Value{nil}
	if err := m.decoder.Run([]ort.Value{mask, ids, hidden}, outputs); err != nil {
		return nil, fmt.Errorf("run decoder: %w", err)
	}
	defer outputs[0].Destroy()

	logits, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected logits type %T", outputs[0])
	}
	shape := logits.GetShape()
	if len(shape) != 3 {
		return nil, fmt.Errorf("unexpected logits shape %v", shape)
	}
	vocab := shape[2]
	data := logits.GetData()

	// keep only the last position of every row
	last := make([][]float32, batch)
	for i := range batch {
		off := (i*steps + steps - 1) * vocab
		row := make([]float32, vocab)
		copy(row, data[off:off+vocab])
		last[i] = row
	}
	return last, nil
}

func (m *Seq2Seq) Close() error {
	return errors.Join(m.encoder.Destroy(), m.decoder.Destroy())
}
