package translator

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"google.golang.org/genai"

	"github.com/MimeLyc/dataset-translator/internal/apperr"
	"github.com/MimeLyc/dataset-translator/pkg/log"
)

// MaxLLMBatchSize keeps one batch within the API's 60 requests per minute.
const MaxLLMBatchSize = 60

// ContentGenerator sends one prompt to the remote model.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error)
}

type LLMOptions struct {
	// DispatchDelay separates the start of consecutive requests in a batch.
	DispatchDelay time.Duration
	Retry         RetryPolicy
}

func DefaultLLMOptions() LLMOptions {
	return LLMOptions{
		DispatchDelay: time.Second,
		Retry:         DefaultRetryPolicy(),
	}
}

// LLMBackend sends one request per text to a generation API, staggering
// dispatches and joining the whole batch before returning.
type LLMBackend struct {
	client ContentGenerator
	opts   LLMOptions

	mu       sync.Mutex
	reported map[string]bool
}

func NewLLMBackend(client ContentGenerator, opts LLMOptions) *LLMBackend {
	return &LLMBackend{
		client:   client,
		opts:     opts,
		reported: make(map[string]bool),
	}
}

func (b *LLMBackend) Translate(
	ctx context.Context,
	texts []string,
	sourceLang string,
	targetLang string,
) ([]Translation, error) {
	if len(texts) > MaxLLMBatchSize {
		return nil, apperr.Newf(apperr.ErrConfig,
			"batch size cannot be more than %d for the LLM backend (60 requests per minute), got %d",
			MaxLLMBatchSize, len(texts))
	}

	_, sourceOK := GeminiLanguage(sourceLang)
	targetName, targetOK := GeminiLanguage(targetLang)
	if !sourceOK || !targetOK {
		b.reportUnsupported(sourceLang, targetLang)
		return nil, apperr.NewWithCause(apperr.ErrUnsupportedLanguage,
			fmt.Sprintf("cannot translate %s -> %s", sourceLang, targetLang), ErrNoTranslation)
	}

	prompt := translationPrompt(targetName)
	results := make([]Translation, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	var dispatchErr error
	for i, text := range texts {
		if i > 0 {
			if dispatchErr = sleepContext(gctx, b.opts.DispatchDelay); dispatchErr != nil {
				break
			}
		}
		g.Go(func() error {
			tr, err := b.translateOne(gctx, prompt, text, sourceLang, targetLang, i)
			if err != nil {
				return err
			}
			results[i] = tr
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperr.Wrap(err, apperr.ErrAPI, "LLM request failed").
			WithContext("source", sourceLang).
			WithContext("target", targetLang)
	}
	if dispatchErr != nil {
		return nil, dispatchErr
	}
	return results, nil
}

// translateOne never fails for decode problems or exhausted retries; those
// fall back to the source text. Non-retryable API errors fail the batch.
func (b *LLMBackend) translateOne(
	ctx context.Context,
	prompt, text, sourceLang, targetLang string,
	item int,
) (Translation, error) {
	var resp *genai.GenerateContentResponse
	err := b.opts.Retry.Do(ctx, func() error {
		var err error
		resp, err = b.client.GenerateContent(ctx, prompt+"\n"+text)
		if err != nil && isTransient(err) {
			log.Debug("Transient LLM error on item %d, retrying: %v", item, err)
		}
		return err
	}, isTransient)
	if err != nil {
		if ctx.Err() != nil || !isTransient(err) {
			return Translation{}, err
		}
		log.Warn("Error during translation of item %d after retries, returning source language: %v", item, err)
		return Translation{Text: text, Status: StatusFallback}, nil
	}

	out, tier := DecodeResponse(resp)
	if tier == TierFailed {
		err := apperr.New(apperr.ErrDecode, "undecodable response, returning source language").
			WithContext("item", item)
		log.Warn("%v", err)
		return Translation{Text: text, Status: StatusFallback}, nil
	}
	if tier != TierText {
		log.Debug("Item %d decoded via %s tier", item, tier)
	}
	if looksUntranslated(out, sourceLang, targetLang) {
		return Translation{Text: out, Status: StatusUntranslated}, nil
	}
	return Translation{Text: out, Status: StatusTranslated}, nil
}

// reportUnsupported logs once per unseen source language.
func (b *LLMBackend) reportUnsupported(sourceLang, targetLang string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reported[sourceLang] {
		return
	}
	b.reported[sourceLang] = true
	log.Warn("LLM backend cannot translate from source language %s or to target language %s, returning originals",
		sourceLang, targetLang)
}

func translationPrompt(targetName string) string {
	return fmt.Sprintf("Translate text below to %s language and preserve formatting and special characters. "+
		"Respond with translated text ONLY. Here is text to translate:\n", targetName)
}

// minDetectRunes is the shortest output checked for the source language;
// detection on shorter text is noise.
const minDetectRunes = 40

// looksUntranslated reports a confident detection of the source language in
// text when source and target differ.
func looksUntranslated(text, sourceLang, targetLang string) bool {
	if utf8.RuneCountInString(text) < minDetectRunes {
		return false
	}
	source := baseLanguage(sourceLang)
	if source == "" || source == baseLanguage(targetLang) {
		return false
	}
	info := whatlanggo.Detect(text)
	return info.IsReliable() && info.Lang.Iso6391() == source
}

func baseLanguage(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
