package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/MimeLyc/dataset-translator/internal/checkpoint"
	"github.com/MimeLyc/dataset-translator/internal/config"
	"github.com/MimeLyc/dataset-translator/internal/dataset"
	"github.com/MimeLyc/dataset-translator/internal/inference/onnx"
	"github.com/MimeLyc/dataset-translator/internal/llm"
	"github.com/MimeLyc/dataset-translator/internal/persistence"
	"github.com/MimeLyc/dataset-translator/internal/service"
	"github.com/MimeLyc/dataset-translator/internal/translator"
	"github.com/MimeLyc/dataset-translator/pkg/log"
)

type runFlags struct {
	dataset     string
	textField   string
	langField   string
	checkpointN int
	batchSize   int
	useMadlad   bool
	quant8      bool
	quant4      bool
	translator  string
	token       string
	device      string
	finalNaming string
	journal     string
	noJournal   bool
}

func newRootCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:              "dataset-translator <target_lang> <checkpoint_location>",
		Short:            "Translate a multi-turn dataset into one target language with resumable checkpoints",
		Args:             cobra.ExactArgs(2),
		PersistentPreRun: setupEnv,
		SilenceUsage:     true,
		SilenceErrors:    true,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend := config.Backend(f.translator)
			if f.useMadlad {
				backend = config.BackendMadlad
			}
			cfg, err := config.NewFromEnv(
				config.WithTargetLanguage(args[0]),
				config.WithCheckpointLocation(args[1]),
				config.WithDataset(f.dataset, f.textField, f.langField),
				config.WithCheckpointing(f.checkpointN, f.batchSize),
				config.WithTranslator(backend),
				config.WithQuantization(f.quant8, f.quant4),
				config.WithDevice(f.device),
				config.WithFinalNaming(config.FinalCheckpointNaming(f.finalNaming)),
				config.WithJournal(f.journal, f.noJournal),
				config.WithAPIKey(f.token),
			)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.dataset, "base_dataset", "OpenAssistant/oasst1", "Hub dataset name or local dataset path")
	fl.StringVar(&f.textField, "base_dataset_text_field", "text", "record field holding the text to translate")
	fl.StringVar(&f.langField, "base_dataset_lang_field", "lang", "record field holding the source language code")
	fl.IntVar(&f.checkpointN, "checkpoint_n", 400, "records between checkpoints, a multiple of batch_size")
	fl.IntVar(&f.batchSize, "batch_size", 20, "records translated per batch")
	fl.BoolVar(&f.useMadlad, "use_madlad", false, "shorthand for --translator madlad")
	fl.BoolVar(&f.quant8, "madlad_quant", false, "load the 8-bit MADLAD export")
	fl.BoolVar(&f.quant4, "madlad_quant4", false, "load the 4-bit MADLAD export")
	fl.StringVar(&f.translator, "translator", string(config.BackendOpus), "translator backend: opus, madlad or gemini_pro")
	fl.StringVar(&f.token, "token", "", "Gemini API key, overrides GEMINI_API_KEY")
	fl.StringVar(&f.device, "device", "cpu", "inference device: cpu or cuda")
	fl.StringVar(&f.finalNaming, "final_checkpoint_naming", string(config.NamingBatchStart),
		"offset naming of a group's last checkpoint: batch_start or cumulative")
	fl.StringVar(&f.journal, "journal", "", "run journal path (default <checkpoint_location>/journal.db)")
	fl.BoolVar(&f.noJournal, "no_journal", false, "do not record runs and flushes")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) (err error) {
	log.Info("Starting translation: %s", cfg.String())

	backend, closeBackend, err := newBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBackend()

	ds, err := dataset.NewAutoLoader(cfg.Hub.URL, cfg.Hub.Token).Load(ctx, cfg.Dataset.Name)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(ds.Len(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("translating"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("records"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { _, _ = os.Stderr.WriteString("\n") }),
	)
	opts := []service.DriverOption{service.WithProgress(bar)}

	driverCfg := service.DriverConfig{
		TargetLanguage:       cfg.TargetLanguage,
		TextField:            cfg.Dataset.TextField,
		LangField:            cfg.Dataset.LangField,
		BatchSize:            cfg.Checkpoint.BatchSize,
		CheckpointN:          cfg.Checkpoint.Every,
		FinalNaming:          cfg.Checkpoint.FinalNaming,
		ReleaseBetweenGroups: cfg.AcceleratorDevice() && cfg.Translator == config.BackendOpus,
	}

	if path := cfg.JournalFile(); path != "" {
		journal, jerr := persistence.NewSQLiteStore(path)
		if jerr != nil {
			return jerr
		}
		defer journal.Close()

		rec, jerr := journal.StartRun(ctx, cfg.TargetLanguage, string(cfg.Translator), cfg.Dataset.Name)
		if jerr != nil {
			return jerr
		}
		driverCfg.RunID = rec.ID
		opts = append(opts, service.WithJournal(journal))
		defer func() {
			// the run context may already be cancelled
			if ferr := journal.FinishRun(context.WithoutCancel(ctx), rec.ID, err); ferr != nil {
				log.Warn("Failed to finish run %s in journal: %v", rec.ID, ferr)
			}
		}()
	}

	driver, err := service.NewDriver(driverCfg, backend, checkpoint.NewStore(cfg.CheckpointLocation), opts...)
	if err != nil {
		return err
	}

	stats, err := driver.Run(ctx, ds)
	_ = bar.Finish()
	log.Info("Processed %d groups: %d translated (%d still in source language), %d skipped, %d dropped batches, %d checkpoints",
		stats.Groups, stats.Translated, stats.Untranslated, stats.Skipped, stats.DroppedBatches, stats.Checkpoints)
	if errors.Is(err, context.Canceled) {
		log.Warn("Interrupted, rerun the same command to resume")
	}
	return err
}

// newBackend builds the configured translator and a function releasing it.
func newBackend(ctx context.Context, cfg *config.Config) (translator.Translator, func(), error) {
	switch cfg.Translator {
	case config.BackendGemini:
		client, err := llm.NewClient(ctx, &llm.Config{APIKey: cfg.LLM.APIKey, Model: cfg.LLM.Model})
		if err != nil {
			return nil, nil, err
		}
		log.Info("Using LLM translator %s", client.Model())
		retry := translator.DefaultRetryPolicy()
		retry.MaxRetries = cfg.LLM.MaxRetries
		retry.InitialInterval = cfg.LLM.RetryInitialInterval
		retry.MaxInterval = cfg.LLM.RetryMaxInterval
		b := translator.NewLLMBackend(client, translator.LLMOptions{
			DispatchDelay: cfg.LLM.DispatchDelay,
			Retry:         retry,
		})
		return b, func() {}, nil
	}

	if err := onnx.Init(cfg.Model.OnnxRuntimeDylib); err != nil {
		return nil, nil, err
	}
	loader := &onnx.Loader{
		ModelDir:     cfg.Model.Dir,
		Quantization: cfg.Model.Quantization,
		Device:       cfg.Model.Device,
	}

	if cfg.Translator == config.BackendMadlad {
		b, err := translator.NewMultilingualBackend(ctx, loader, translator.MadladModelName)
		if err != nil {
			_ = onnx.Destroy()
			return nil, nil, err
		}
		return b, func() {
			if err := b.Close(); err != nil {
				log.Warn("Failed to close model: %v", err)
			}
			_ = onnx.Destroy()
		}, nil
	}

	b := translator.NewPairwiseBackend(loader, translator.NewModelCache())
	return b, func() {
		if err := b.Release(); err != nil {
			log.Warn("Failed to release models: %v", err)
		}
		_ = onnx.Destroy()
	}, nil
}
