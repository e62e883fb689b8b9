package translator

import (
	"context"
	"errors"
)

// ErrNoTranslation is returned when a backend cannot translate a batch at all.
// Callers keep the original records and move on.
var ErrNoTranslation = errors.New("no translation available")

type Status int

const (
	// StatusTranslated means Text came back from the model or API.
	StatusTranslated Status = iota
	// StatusFallback means Text is the untouched source text.
	StatusFallback
	// StatusUntranslated means Text came back but still reads as the
	// source language.
	StatusUntranslated
)

func (s Status) String() string {
	switch s {
	case StatusTranslated:
		return "translated"
	case StatusFallback:
		return "fallback"
	case StatusUntranslated:
		return "untranslated"
	default:
		return "unknown"
	}
}

type Translation struct {
	Text   string
	Status Status
}

// Translator is the contract every backend implements. On success the result
// has exactly one entry per input text, in input order.
type Translator interface {
	Translate(
		ctx context.Context,
		texts []string,
		sourceLang string,
		targetLang string,
	) ([]Translation, error)
}

// Releaser is implemented by backends holding model memory that can be freed
// between source-language groups.
type Releaser interface {
	Release() error
}

func translated(texts []string) []Translation {
	ret := make([]Translation, len(texts))
	for i, t := range texts {
		ret[i] = Translation{Text: t, Status: StatusTranslated}
	}
	return ret
}
