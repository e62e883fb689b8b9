package translator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/dataset-translator/internal/apperr"
)

func TestMultilingualBackend_PrefixesTargetMarker(t *testing.T) {
	loader := newFakeLoader(map[string]string{MadladModelName: "madlad"})
	b, err := NewMultilingualBackend(context.Background(), loader, MadladModelName)
	require.NoError(t, err)

	out, err := b.Translate(context.Background(), []string{"line one\nline two", "short"}, "en", "de")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"madlad(<2de> line one line two)",
		"madlad(<2de> short)",
	}, texts(out))

	model := loader.models[0]
	require.NoError(t, b.Close())
	assert.True(t, model.closed)
}

func TestMultilingualBackend_GeneratesOneTextAtATime(t *testing.T) {
	loader := newFakeLoader(map[string]string{MadladModelName: "madlad"})
	b, err := NewMultilingualBackend(context.Background(), loader, MadladModelName)
	require.NoError(t, err)

	_, err = b.Translate(context.Background(), []string{"a", "b", "c"}, "en", "fr")
	require.NoError(t, err)

	tok := b.tokenizer.(*fakeTokenizer)
	assert.Equal(t, [][]string{{"<2fr> a"}, {"<2fr> b"}, {"<2fr> c"}}, tok.encoded)
}

func TestMultilingualBackend_LoadFailure(t *testing.T) {
	loader := newFakeLoader(nil)
	_, err := NewMultilingualBackend(context.Background(), loader, MadladModelName)

	require.Error(t, err)
	assert.True(t, apperr.IsErrorType(err, apperr.ErrModelResolution))
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestMultilingualBackend_CancelledContext(t *testing.T) {
	loader := newFakeLoader(map[string]string{MadladModelName: "madlad"})
	b, err := NewMultilingualBackend(context.Background(), loader, MadladModelName)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Translate(ctx, []string{"a"}, "en", "fr")
	assert.True(t, errors.Is(err, context.Canceled))
}
