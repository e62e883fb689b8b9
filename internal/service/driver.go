package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MimeLyc/dataset-translator/internal/apperr"
	"github.com/MimeLyc/dataset-translator/internal/checkpoint"
	"github.com/MimeLyc/dataset-translator/internal/config"
	"github.com/MimeLyc/dataset-translator/internal/dataset"
	"github.com/MimeLyc/dataset-translator/internal/persistence"
	"github.com/MimeLyc/dataset-translator/internal/translator"
	"github.com/MimeLyc/dataset-translator/pkg/log"
)

// Driver walks folds, source-language groups and batches, translating each
// batch and flushing translated records to the checkpoint store.
type Driver struct {
	cfg      DriverConfig
	backend  translator.Translator
	store    CheckpointStore
	journal  FlushRecorder
	progress Progress
}

type DriverOption func(*Driver)

func WithJournal(j FlushRecorder) DriverOption {
	return func(d *Driver) { d.journal = j }
}

func WithProgress(p Progress) DriverOption {
	return func(d *Driver) { d.progress = p }
}

func NewDriver(cfg DriverConfig, backend translator.Translator, store CheckpointStore, opts ...DriverOption) (*Driver, error) {
	if cfg.BatchSize <= 0 || cfg.CheckpointN <= 0 || cfg.CheckpointN%cfg.BatchSize != 0 {
		return nil, apperr.Newf(apperr.ErrConfig,
			"checkpoint_n must be a positive multiple of batch_size, got %d and %d", cfg.CheckpointN, cfg.BatchSize)
	}
	if cfg.FinalNaming == "" {
		cfg.FinalNaming = config.NamingBatchStart
	}
	d := &Driver{
		cfg:     cfg,
		backend: backend,
		store:   store,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run translates every fold of ds. Batches the backend cannot translate are
// dropped; configuration, checkpoint and permanent API errors stop the run.
func (d *Driver) Run(ctx context.Context, ds *dataset.Dataset) (Stats, error) {
	var stats Stats
	for _, fold := range ds.Folds {
		groups, err := dataset.GroupByField(fold.Records, d.cfg.LangField)
		if err != nil {
			return stats, err
		}
		for _, group := range groups {
			if err := d.runGroup(ctx, fold.Name, group, &stats); err != nil {
				return stats, err
			}
			stats.Groups++
			d.release()
		}
	}
	return stats, nil
}

func (d *Driver) runGroup(ctx context.Context, fold string, group dataset.Group, stats *Stats) error {
	key := checkpoint.PartitionKey{Fold: fold, SourceLanguage: group.Language}
	records := group.Records

	start, err := d.store.ResumeOffset(key)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCheckpoint, "read resume offset").WithContext("partition", key.String())
	}
	skipped := min(start, len(records))
	log.Info("Got %d records for source language %s (%s), skipping %d",
		len(records), group.Language, languageName(group.Language), start)
	stats.Skipped += skipped
	d.advance(skipped)

	var (
		buffer    []dataset.Record
		lastStart = start
		consumed  = start
		processed bool
	)
	for cnt := start; cnt < len(records); cnt += d.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := records[cnt:min(cnt+d.cfg.BatchSize, len(records))]
		lastStart, processed = cnt, true

		merged, err := d.translateBatch(ctx, batch, group.Language)
		if err != nil {
			return err
		}
		if merged == nil {
			stats.DroppedBatches++
		} else {
			buffer = append(buffer, merged.records...)
			stats.Translated += len(merged.records)
			stats.Untranslated += merged.untranslated
		}
		consumed = cnt + len(batch)
		d.advance(len(batch))

		// n is a multiple of the batch size, so only full batches can land on a boundary
		if consumed%d.cfg.CheckpointN == 0 {
			log.Info("Writing out checkpoint #%d for source language %s", consumed, group.Language)
			if err := d.flush(ctx, key, consumed, buffer, false); err != nil {
				return err
			}
			stats.Checkpoints++
			buffer = nil
		}
	}

	if !processed || len(buffer) == 0 {
		return nil
	}

	offset := lastStart
	if d.cfg.FinalNaming == config.NamingCumulative {
		offset = consumed
	}
	// batch_start naming can land on a file from this or an earlier run
	if d.store.Exists(key, offset) {
		log.Warn("Final checkpoint for source language %s overwrites %s",
			group.Language, d.store.Path(key, offset))
	}
	if err := d.flush(ctx, key, offset, buffer, true); err != nil {
		return err
	}
	stats.Checkpoints++
	return nil
}

type mergedBatch struct {
	records      []dataset.Record
	untranslated int
}

// translateBatch returns merged copies of batch, or nil when the backend has
// no translation for it.
func (d *Driver) translateBatch(ctx context.Context, batch []dataset.Record, sourceLang string) (*mergedBatch, error) {
	texts := make([]string, len(batch))
	for i, r := range batch {
		v, ok := r[d.cfg.TextField]
		if !ok {
			return nil, apperr.Newf(apperr.ErrDataset, "record has no field %q", d.cfg.TextField)
		}
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		texts[i] = s
	}

	out, err := d.backend.Translate(ctx, texts, sourceLang, d.cfg.TargetLanguage)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, translator.ErrNoTranslation):
		log.Debug("No translation for %s -> %s, dropping %d records", sourceLang, d.cfg.TargetLanguage, len(batch))
		return nil, nil
	case apperr.IsErrorType(err, apperr.ErrTranslation):
		log.Warn("Dropping batch of %d %s records: %v", len(batch), sourceLang, err)
		return nil, nil
	default:
		return nil, err
	}
	if len(out) != len(batch) {
		log.Warn("Backend returned %d results for %d texts, dropping batch", len(out), len(batch))
		return nil, nil
	}

	merged := &mergedBatch{records: make([]dataset.Record, len(batch))}
	for i, r := range batch {
		m := r.Clone()
		m[d.cfg.TextField] = out[i].Text
		m[d.cfg.LangField] = d.cfg.TargetLanguage
		merged.records[i] = m
		if out[i].Status == translator.StatusUntranslated {
			merged.untranslated++
		}
	}
	if merged.untranslated > 0 {
		log.Warn("%d of %d records still read as %s after translation to %s",
			merged.untranslated, len(batch), sourceLang, d.cfg.TargetLanguage)
	}
	return merged, nil
}

func (d *Driver) flush(ctx context.Context, key checkpoint.PartitionKey, offset int, records []dataset.Record, final bool) error {
	if err := d.store.Write(key, offset, records); err != nil {
		return apperr.Wrap(err, apperr.ErrCheckpoint, "write checkpoint").
			WithContext("partition", key.String()).
			WithContext("offset", offset)
	}
	if d.journal == nil {
		return nil
	}
	err := d.journal.RecordFlush(ctx, persistence.Flush{
		RunID:          d.cfg.RunID,
		Fold:           key.Fold,
		SourceLanguage: key.SourceLanguage,
		Offset:         offset,
		Records:        len(records),
		Final:          final,
		Path:           d.store.Path(key, offset),
	})
	if err != nil {
		log.Warn("Failed to journal checkpoint %s: %v", d.store.Path(key, offset), err)
	}
	return nil
}

func (d *Driver) release() {
	if !d.cfg.ReleaseBetweenGroups {
		return
	}
	r, ok := d.backend.(translator.Releaser)
	if !ok {
		return
	}
	if err := r.Release(); err != nil {
		log.Warn("Failed to release model memory: %v", err)
	}
}

func (d *Driver) advance(n int) {
	if d.progress == nil || n <= 0 {
		return
	}
	_ = d.progress.Add(n)
}
