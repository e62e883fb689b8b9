package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/dataset-translator/internal/apperr"
	"github.com/MimeLyc/dataset-translator/internal/inference"
)

func baseOptions() []Option {
	return []Option{
		WithTargetLanguage("de"),
		WithCheckpointLocation("/tmp/out"),
	}
}

func TestNewFromEnv_Defaults(t *testing.T) {
	cfg, err := NewFromEnv(baseOptions()...)
	require.NoError(t, err)

	assert.Equal(t, BackendOpus, cfg.Translator)
	assert.Equal(t, "OpenAssistant/oasst1", cfg.Dataset.Name)
	assert.Equal(t, "text", cfg.Dataset.TextField)
	assert.Equal(t, "lang", cfg.Dataset.LangField)
	assert.Equal(t, 400, cfg.Checkpoint.Every)
	assert.Equal(t, 20, cfg.Checkpoint.BatchSize)
	assert.Equal(t, NamingBatchStart, cfg.Checkpoint.FinalNaming)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	assert.Equal(t, time.Second, cfg.LLM.DispatchDelay)
	assert.Equal(t, "./models", cfg.Model.Dir)
	assert.Equal(t, filepath.Join("/tmp/out", "journal.db"), cfg.JournalFile())
	assert.False(t, cfg.AcceleratorDevice())
}

func TestNewFromEnv_ReadsEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("LLM_DISPATCH_DELAY", "250ms")
	t.Setenv("MODEL_DIR", "/models")
	t.Setenv("HF_TOKEN", "hf_x")

	cfg, err := NewFromEnv(append(baseOptions(), WithTranslator(BackendGemini))...)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.LLM.APIKey)
	assert.Equal(t, 250*time.Millisecond, cfg.LLM.DispatchDelay)
	assert.Equal(t, "/models", cfg.Model.Dir)
	assert.Equal(t, "hf_x", cfg.Hub.Token)
}

func TestWithAPIKey_OverridesEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := NewFromEnv(append(baseOptions(), WithTranslator(BackendGemini), WithAPIKey("flag-key"))...)
	require.NoError(t, err)
	assert.Equal(t, "flag-key", cfg.LLM.APIKey)

	cfg, err = NewFromEnv(append(baseOptions(), WithTranslator(BackendGemini), WithAPIKey(""))...)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.LLM.APIKey)
}

func TestWithQuantization(t *testing.T) {
	tests := []struct {
		quant8, quant4 bool
		want           inference.Quantization
	}{
		{false, false, inference.QuantNone},
		{true, false, inference.Quant8Bit},
		{false, true, inference.Quant4Bit},
		{true, true, inference.Quant4Bit},
	}
	for _, tt := range tests {
		cfg, err := NewFromEnv(append(baseOptions(),
			WithTranslator(BackendMadlad), WithQuantization(tt.quant8, tt.quant4))...)
		require.NoError(t, err)
		assert.Equal(t, tt.want, cfg.Model.Quantization)
	}
}

func TestWithQuantization_IgnoredOutsideMadlad(t *testing.T) {
	for _, b := range []Backend{BackendOpus, BackendGemini} {
		t.Setenv("GEMINI_API_KEY", "key")
		cfg, err := NewFromEnv(append(baseOptions(), WithTranslator(b), WithQuantization(true, false))...)
		require.NoError(t, err)
		assert.Equal(t, inference.QuantNone, cfg.Model.Quantization, "translator %s", b)
	}
}

func TestWithJournal(t *testing.T) {
	cfg, err := NewFromEnv(append(baseOptions(), WithJournal("/var/run.db", false))...)
	require.NoError(t, err)
	assert.Equal(t, "/var/run.db", cfg.JournalFile())

	cfg, err = NewFromEnv(append(baseOptions(), WithJournal("/var/run.db", true))...)
	require.NoError(t, err)
	assert.Empty(t, cfg.JournalFile())
}

func TestValidate_Faults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	tests := []struct {
		name string
		opts []Option
		want string
	}{
		{
			name: "checkpoint_n not a multiple of batch_size",
			opts: append(baseOptions(), WithCheckpointing(10, 3)),
			want: "multiple of batch_size",
		},
		{
			name: "zero batch size",
			opts: append(baseOptions(), WithCheckpointing(10, 0)),
			want: "batch_size must be positive",
		},
		{
			name: "missing target",
			opts: []Option{WithCheckpointLocation("/tmp/out")},
			want: "target language is required",
		},
		{
			name: "missing checkpoint location",
			opts: []Option{WithTargetLanguage("de")},
			want: "checkpoint location is required",
		},
		{
			name: "gemini without key",
			opts: append(baseOptions(), WithTranslator(BackendGemini)),
			want: "GEMINI_API_KEY",
		},
		{
			name: "gemini batch too large",
			opts: append(baseOptions(), WithTranslator(BackendGemini), WithAPIKey("k"), WithCheckpointing(610, 61)),
			want: "cannot be more than 60",
		},
		{
			name: "unknown translator",
			opts: append(baseOptions(), WithTranslator("deepl")),
			want: "unknown translator",
		},
		{
			name: "unknown device",
			opts: append(baseOptions(), WithDevice("tpu")),
			want: "unknown device",
		},
		{
			name: "unknown final naming",
			opts: append(baseOptions(), WithFinalNaming("last")),
			want: "unknown final checkpoint naming",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFromEnv(tt.opts...)
			require.Error(t, err)
			assert.True(t, apperr.IsErrorType(err, apperr.ErrConfig))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
