package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/MimeLyc/dataset-translator/internal/apperr"
)

// MadladModelName is the multilingual model loaded by --use_madlad.
const MadladModelName = "google/madlad400-3b-mt"

// MultilingualBackend drives one model that covers every language. The target
// is selected with a <2xx> marker, and texts are generated one at a time.
type MultilingualBackend struct {
	name         string
	model        Model
	tokenizer    Tokenizer
	maxNewTokens int
}

// NewMultilingualBackend loads the model up front; it stays resident for the
// whole run.
func NewMultilingualBackend(ctx context.Context, loader ModelLoader, name string) (*MultilingualBackend, error) {
	model, tokenizer, err := loader.Load(ctx, name)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrModelResolution, "load multilingual model").WithContext("model", name)
	}
	return &MultilingualBackend{
		name:         name,
		model:        model,
		tokenizer:    tokenizer,
		maxNewTokens: maxSequenceLength,
	}, nil
}

func (b *MultilingualBackend) Translate(
	ctx context.Context,
	texts []string,
	_ string,
	targetLang string,
) ([]Translation, error) {
	ret := make([]Translation, 0, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		enc, err := b.tokenizer.Encode([]string{targetMarker(targetLang, text)}, 0)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrTranslation, "tokenize text").WithContext("item", i)
		}
		outputs, err := b.model.Generate(ctx, enc, b.maxNewTokens)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, apperr.Wrap(err, apperr.ErrTranslation, "generate text").WithContext("item", i)
		}
		if len(outputs) == 0 {
			return nil, apperr.New(apperr.ErrTranslation, "model returned no sequence").WithContext("item", i)
		}
		out, err := b.tokenizer.Decode(outputs[0])
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrTranslation, "decode text").WithContext("item", i)
		}
		ret = append(ret, Translation{Text: out, Status: StatusTranslated})
	}
	return ret, nil
}

func (b *MultilingualBackend) Close() error {
	return (&CachedModel{Name: b.name, Model: b.model, Tokenizer: b.tokenizer}).Close()
}

// targetMarker prefixes text with the <2xx> target token; newlines are
// flattened because the model treats each input as one line.
func targetMarker(targetLang, text string) string {
	return fmt.Sprintf("<2%s> %s", targetLang, strings.ReplaceAll(text, "\n", " "))
}
