package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"

	"github.com/MimeLyc/dataset-translator/internal/apperr"
	"github.com/MimeLyc/dataset-translator/internal/inference"
	"github.com/MimeLyc/dataset-translator/internal/translator"
	"github.com/MimeLyc/dataset-translator/pkg/log"
)

// Config holds all run configuration.
// Positional arguments and flags arrive as Options; the rest is read from
// environment variables with sensible defaults.
//
// Environment Variables:
// LLM Configuration:
// - GEMINI_API_KEY: API key for the gemini_pro translator (overridden by --token)
// - GEMINI_MODEL: Model name to use (default: gemini-2.0-flash)
// - LLM_DISPATCH_DELAY: Delay between request dispatches in a batch (default: 1s)
// - LLM_MAX_RETRIES: Retries for a request failing with a server error (default: 5)
// - LLM_RETRY_INITIAL_INTERVAL: First retry delay (default: 1s)
// - LLM_RETRY_MAX_INTERVAL: Upper bound of the retry delay (default: 30s)
//
// Model Configuration:
// - MODEL_DIR: Root of exported ONNX models (default: ./models)
// - ONNX_RUNTIME_DYLIB: Path of the ONNX Runtime shared library (optional)
//
// Dataset Configuration:
// - HF_DATASETS_SERVER_URL: Hub datasets server (default: https://datasets-server.huggingface.co)
// - HF_TOKEN: Hub access token for gated datasets (optional)
//
// System Configuration:
// - LOG_LEVEL: debug, info, warn or error (default: info)
type Config struct {
	TargetLanguage     string `json:"target_language"`
	CheckpointLocation string `json:"checkpoint_location"`

	Translator Backend `json:"translator"`

	Dataset    DatasetConfig    `json:"dataset"`
	Checkpoint CheckpointConfig `json:"checkpoint"`
	Model      ModelConfig      `json:"model"`
	LLM        LLMConfig        `json:"llm"`
	Hub        HubConfig        `json:"hub"`

	LogLevel string `json:"log_level" env:"LOG_LEVEL" envDefault:"info"`
}

type Backend string

const (
	BackendOpus   Backend = "opus"
	BackendMadlad Backend = "madlad"
	BackendGemini Backend = "gemini_pro"
)

// FinalCheckpointNaming selects the offset used to name the checkpoint
// written when a source-language group ends.
type FinalCheckpointNaming string

const (
	// NamingBatchStart uses the offset of the group's last batch.
	NamingBatchStart FinalCheckpointNaming = "batch_start"
	// NamingCumulative uses the number of records processed in the group.
	NamingCumulative FinalCheckpointNaming = "cumulative"
)

type DatasetConfig struct {
	Name      string `json:"name"`
	TextField string `json:"text_field"`
	LangField string `json:"lang_field"`
}

type CheckpointConfig struct {
	// Every is the number of processed records between checkpoints.
	Every       int                   `json:"every"`
	BatchSize   int                   `json:"batch_size"`
	FinalNaming FinalCheckpointNaming `json:"final_naming"`
	// JournalPath overrides <checkpoint_location>/journal.db.
	JournalPath string `json:"journal_path"`
	NoJournal   bool   `json:"no_journal"`
}

type ModelConfig struct {
	Dir              string                 `json:"dir" env:"MODEL_DIR" envDefault:"./models"`
	OnnxRuntimeDylib string                 `json:"onnx_runtime_dylib" env:"ONNX_RUNTIME_DYLIB"`
	Quantization     inference.Quantization `json:"quantization"`
	// Device is "cpu" or "cuda".
	Device string `json:"device"`
}

type LLMConfig struct {
	APIKey               string        `json:"-" env:"GEMINI_API_KEY"`
	Model                string        `json:"model" env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	DispatchDelay        time.Duration `json:"dispatch_delay" env:"LLM_DISPATCH_DELAY" envDefault:"1s"`
	MaxRetries           int           `json:"max_retries" env:"LLM_MAX_RETRIES" envDefault:"5"`
	RetryInitialInterval time.Duration `json:"retry_initial_interval" env:"LLM_RETRY_INITIAL_INTERVAL" envDefault:"1s"`
	RetryMaxInterval     time.Duration `json:"retry_max_interval" env:"LLM_RETRY_MAX_INTERVAL" envDefault:"30s"`
}

type HubConfig struct {
	URL   string `json:"url" env:"HF_DATASETS_SERVER_URL" envDefault:"https://datasets-server.huggingface.co"`
	Token string `json:"-" env:"HF_TOKEN"`
}

// Option is a function type for configuring Config
type Option func(*Config)

func WithTargetLanguage(lang string) Option {
	return func(c *Config) { c.TargetLanguage = lang }
}

func WithCheckpointLocation(dir string) Option {
	return func(c *Config) { c.CheckpointLocation = dir }
}

func WithDataset(name, textField, langField string) Option {
	return func(c *Config) {
		c.Dataset = DatasetConfig{Name: name, TextField: textField, LangField: langField}
	}
}

func WithCheckpointing(every, batchSize int) Option {
	return func(c *Config) {
		c.Checkpoint.Every = every
		c.Checkpoint.BatchSize = batchSize
	}
}

func WithTranslator(b Backend) Option {
	return func(c *Config) { c.Translator = b }
}

// WithQuantization picks the MADLAD export. 4-bit wins when both are set.
func WithQuantization(quant8, quant4 bool) Option {
	return func(c *Config) {
		switch {
		case quant4:
			c.Model.Quantization = inference.Quant4Bit
		case quant8:
			c.Model.Quantization = inference.Quant8Bit
		default:
			c.Model.Quantization = inference.QuantNone
		}
	}
}

func WithDevice(device string) Option {
	return func(c *Config) { c.Model.Device = device }
}

func WithFinalNaming(n FinalCheckpointNaming) Option {
	return func(c *Config) { c.Checkpoint.FinalNaming = n }
}

func WithJournal(path string, disabled bool) Option {
	return func(c *Config) {
		c.Checkpoint.JournalPath = path
		c.Checkpoint.NoJournal = disabled
	}
}

// WithAPIKey overrides GEMINI_API_KEY when key is non-empty.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		if key != "" {
			c.LLM.APIKey = key
		}
	}
}

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		Translator: BackendOpus,
		Dataset: DatasetConfig{
			Name:      "OpenAssistant/oasst1",
			TextField: "text",
			LangField: "lang",
		},
		Checkpoint: CheckpointConfig{
			Every:       400,
			BatchSize:   20,
			FinalNaming: NamingBatchStart,
		},
		Model: ModelConfig{
			Device: "cpu",
		},
	}

	if err := env.Parse(config); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrConfig, "parse environment")
	}

	for _, opt := range opts {
		opt(config)
	}
	config.normalize()

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// normalize drops settings that do not apply to the selected translator.
// Quantization only selects the MADLAD export; pairwise models are always
// loaded at full precision.
func (c *Config) normalize() {
	if c.Translator != BackendMadlad && c.Model.Quantization != inference.QuantNone {
		log.Warn("Ignoring %s quantization, it only applies to the madlad translator", c.Model.Quantization)
		c.Model.Quantization = inference.QuantNone
	}
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if strings.TrimSpace(c.TargetLanguage) == "" {
		return apperr.New(apperr.ErrConfig, "target language is required")
	}
	if _, err := language.Parse(c.TargetLanguage); err != nil {
		return apperr.Wrap(err, apperr.ErrConfig, "invalid target language").WithContext("target", c.TargetLanguage)
	}
	if strings.TrimSpace(c.CheckpointLocation) == "" {
		return apperr.New(apperr.ErrConfig, "checkpoint location is required")
	}
	if c.Dataset.Name == "" || c.Dataset.TextField == "" || c.Dataset.LangField == "" {
		return apperr.New(apperr.ErrConfig, "dataset name, text field and language field are required")
	}

	cp := c.Checkpoint
	if cp.BatchSize <= 0 {
		return apperr.Newf(apperr.ErrConfig, "batch_size must be positive, got %d", cp.BatchSize)
	}
	if cp.Every <= 0 {
		return apperr.Newf(apperr.ErrConfig, "checkpoint_n must be positive, got %d", cp.Every)
	}
	if cp.Every%cp.BatchSize != 0 {
		return apperr.Newf(apperr.ErrConfig,
			"checkpoint_n must be a multiple of batch_size, got %d and %d", cp.Every, cp.BatchSize)
	}
	switch cp.FinalNaming {
	case NamingBatchStart, NamingCumulative:
	default:
		return apperr.Newf(apperr.ErrConfig, "unknown final checkpoint naming %q", cp.FinalNaming)
	}

	switch c.Model.Device {
	case "cpu", "cuda":
	default:
		return apperr.Newf(apperr.ErrConfig, "unknown device %q, expected cpu or cuda", c.Model.Device)
	}

	switch c.Translator {
	case BackendOpus, BackendMadlad:
	case BackendGemini:
		if c.LLM.APIKey == "" {
			return apperr.New(apperr.ErrConfig, "GEMINI_API_KEY or --token is required for the gemini_pro translator")
		}
		if cp.BatchSize > translator.MaxLLMBatchSize {
			return apperr.Newf(apperr.ErrConfig,
				"batch size cannot be more than %d for the gemini_pro translator (60 requests per minute)", translator.MaxLLMBatchSize)
		}
		if c.LLM.MaxRetries < 0 {
			return apperr.Newf(apperr.ErrConfig, "LLM_MAX_RETRIES must not be negative, got %d", c.LLM.MaxRetries)
		}
	default:
		return apperr.Newf(apperr.ErrConfig, "unknown translator %q", c.Translator)
	}
	return nil
}

// JournalFile returns the run journal path, or "" when journaling is off.
func (c *Config) JournalFile() string {
	if c.Checkpoint.NoJournal {
		return ""
	}
	if c.Checkpoint.JournalPath != "" {
		return c.Checkpoint.JournalPath
	}
	return filepath.Join(c.CheckpointLocation, "journal.db")
}

// AcceleratorDevice reports whether models run on a GPU, where memory is
// released between source-language groups.
func (c *Config) AcceleratorDevice() bool {
	return c.Model.Device == "cuda"
}

func (c *Config) String() string {
	return fmt.Sprintf("translator=%s target=%s dataset=%s checkpoint_n=%d batch_size=%d device=%s quantization=%s",
		c.Translator, c.TargetLanguage, c.Dataset.Name, c.Checkpoint.Every, c.Checkpoint.BatchSize,
		c.Model.Device, c.Model.Quantization)
}
