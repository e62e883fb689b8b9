package translator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/MimeLyc/dataset-translator/internal/apperr"
	"github.com/MimeLyc/dataset-translator/pkg/log"
)

const (
	// PivotLanguage is the intermediate language used when no direct model exists.
	PivotLanguage = "en"

	maxSequenceLength = 1024
)

// alternativeModels covers pairs with no Helsinki-NLP model.
var alternativeModels = map[string]string{
	"en-pl": "gsarti/opus-mt-tc-en-pl",
	"en-ja": "gsarti/opus-mt-tc-base-en-ja",
}

// sourceLanguageAliases maps dataset codes to the codes used in model names.
var sourceLanguageAliases = map[string]string{
	"pt-BR": "bzs",
	"uk-UA": "uk",
}

// PairwiseBackend translates with one model per language pair and pivots
// through English when a pair has no model of its own.
type PairwiseBackend struct {
	loader ModelLoader
	cache  *ModelCache
}

func NewPairwiseBackend(loader ModelLoader, cache *ModelCache) *PairwiseBackend {
	if cache == nil {
		cache = NewModelCache()
	}
	return &PairwiseBackend{
		loader: loader,
		cache:  cache,
	}
}

func (b *PairwiseBackend) Translate(
	ctx context.Context,
	texts []string,
	sourceLang string,
	targetLang string,
) ([]Translation, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if direct := b.resolve(ctx, sourceLang, targetLang); direct != nil {
		out, err := b.generate(ctx, direct, texts)
		if err != nil {
			return nil, err
		}
		return translated(out), nil
	}

	toPivot := b.resolve(ctx, sourceLang, PivotLanguage)
	fromPivot := b.resolve(ctx, PivotLanguage, targetLang)
	if toPivot == nil || fromPivot == nil {
		return nil, fmt.Errorf("%s -> %s: %w", sourceLang, targetLang, ErrNoTranslation)
	}

	intermediate, err := b.generate(ctx, toPivot, texts)
	if err != nil {
		return nil, err
	}
	out, err := b.generate(ctx, fromPivot, intermediate)
	if err != nil {
		return nil, err
	}
	return translated(out), nil
}

// Release drops every cached model and hands freed memory back to the OS.
func (b *PairwiseBackend) Release() error {
	err := b.cache.Clear()
	debug.FreeOSMemory()
	return err
}

// resolve returns the model for a pair, or nil when none can be loaded.
func (b *PairwiseBackend) resolve(ctx context.Context, sourceLang, targetLang string) *CachedModel {
	if alias, ok := sourceLanguageAliases[sourceLang]; ok {
		sourceLang = alias
	}
	key := sourceLang + "-" + targetLang

	if m, known := b.cache.Lookup(key); known {
		return m
	}

	for _, name := range candidateModelNames(sourceLang, targetLang) {
		model, tokenizer, err := b.loader.Load(ctx, name)
		if err != nil {
			if !errors.Is(err, ErrModelNotFound) {
				log.Warn("Failed to load model %s: %v", name, err)
			}
			continue
		}
		log.Info("Loaded model %s for %s", name, key)
		m := &CachedModel{Name: name, Model: model, Tokenizer: tokenizer}
		b.cache.Put(key, m)
		return m
	}

	log.Debug("No model for %s", key)
	b.cache.PutMiss(key)
	return nil
}

// candidateModelNames lists the names tried for a pair, in order.
func candidateModelNames(sourceLang, targetLang string) []string {
	names := []string{
		fmt.Sprintf("Helsinki-NLP/opus-mt-%s-%s", sourceLang, targetLang),
		fmt.Sprintf("Helsinki-NLP/opus-mt-tc-big-%s-%s", sourceLang, targetLang),
	}
	if alt, ok := alternativeModels[sourceLang+"-"+targetLang]; ok {
		names = append(names, alt)
	}
	return names
}

func (b *PairwiseBackend) generate(ctx context.Context, m *CachedModel, texts []string) ([]string, error) {
	enc, err := m.Tokenizer.Encode(texts, maxSequenceLength)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrTranslation, "tokenize batch").WithContext("model", m.Name)
	}

	outputs, err := m.Model.Generate(ctx, enc, maxSequenceLength)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperr.Wrap(err, apperr.ErrTranslation, "generate batch").WithContext("model", m.Name)
	}
	if len(outputs) != len(texts) {
		return nil, apperr.Newf(apperr.ErrTranslation, "model returned %d sequences for %d texts", len(outputs), len(texts)).
			WithContext("model", m.Name)
	}

	ret := make([]string, len(outputs))
	for i, ids := range outputs {
		text, err := m.Tokenizer.Decode(ids)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrTranslation, "decode sequence").WithContext("model", m.Name)
		}
		ret[i] = text
	}
	return ret, nil
}
