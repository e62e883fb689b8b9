package inference

import "context"

// StepFunc runs the decoder over the tokens generated so far and returns
// the next-token logits for every row.
type StepFunc func(ctx context.Context, decoderIDs [][]int64) ([][]float32, error)

// Greedy decodes batch rows by always taking the most likely next token.
// Rows stop at EOS; finished rows are padded while the rest continue. The
// returned sequences exclude the start token.
func Greedy(ctx context.Context, batch int, cfg ModelConfig, maxNewTokens int, step StepFunc) ([][]int64, error) {
	decoderIDs := make([][]int64, batch)
	done := make([]bool, batch)
	for i := range decoderIDs {
		decoderIDs[i] = []int64{cfg.DecoderStartTokenID}
	}

	remaining := batch
	for n := 0; n < maxNewTokens && remaining > 0; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logits, err := step(ctx, decoderIDs)
		if err != nil {
			return nil, err
		}
		for i := range decoderIDs {
			next := cfg.PadTokenID
			if !done[i] {
				next = Argmax(logits[i])
				if next == cfg.EOSTokenID {
					done[i] = true
					remaining--
				}
			}
			decoderIDs[i] = append(decoderIDs[i], next)
		}
	}

	out := make([][]int64, batch)
	for i, ids := range decoderIDs {
		out[i] = trimGenerated(ids[1:], cfg)
	}
	return out, nil
}

func trimGenerated(ids []int64, cfg ModelConfig) []int64 {
	for i, id := range ids {
		if id == cfg.EOSTokenID {
			return ids[:i]
		}
	}
	return ids
}
