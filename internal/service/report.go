package service

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/MimeLyc/dataset-translator/internal/apperr"
	"github.com/MimeLyc/dataset-translator/internal/checkpoint"
	"github.com/MimeLyc/dataset-translator/internal/persistence"
	"github.com/MimeLyc/dataset-translator/pkg/file"
	"github.com/MimeLyc/dataset-translator/pkg/log"
)

// SummaryReader reads aggregated journal data.
type SummaryReader interface {
	Summaries(ctx context.Context) ([]persistence.PartitionSummary, error)
}

// PartitionStatus describes the checkpoint state of one partition.
type PartitionStatus struct {
	Key          checkpoint.PartitionKey
	LanguageName string
	ResumeOffset int
	// Journal is nil when no journal entry exists for the partition.
	Journal *persistence.PartitionSummary
}

func (s PartitionStatus) LastFlushAt() time.Time {
	if s.Journal == nil {
		return time.Time{}
	}
	return s.Journal.LastFlushAt
}

// Status lists every partition under store. journal may be nil.
func Status(ctx context.Context, store *checkpoint.Store, journal SummaryReader) ([]PartitionStatus, error) {
	keys, err := store.Partitions()
	if err != nil {
		return nil, err
	}

	summaries := make(map[checkpoint.PartitionKey]persistence.PartitionSummary)
	if journal != nil {
		rows, err := journal.Summaries(ctx)
		if err != nil {
			log.Warn("Failed to read journal: %v", err)
		}
		for _, r := range rows {
			summaries[checkpoint.PartitionKey{Fold: r.Fold, SourceLanguage: r.SourceLanguage}] = r
		}
	}

	ret := make([]PartitionStatus, 0, len(keys))
	for _, key := range keys {
		offset, err := store.ResumeOffset(key)
		if err != nil {
			return nil, err
		}
		st := PartitionStatus{
			Key:          key,
			LanguageName: languageName(key.SourceLanguage),
			ResumeOffset: offset,
		}
		if sum, ok := summaries[key]; ok {
			st.Journal = &sum
		}
		ret = append(ret, st)
	}
	return ret, nil
}

// CombinedFold is one file written by Combine.
type CombinedFold struct {
	Fold    string
	Path    string
	Records int
}

// Combine concatenates the checkpoints of every partition, in offset order,
// into <outDir>/<fold>.jsonl. Each output file is written atomically.
func Combine(store *checkpoint.Store, outDir string) ([]CombinedFold, error) {
	keys, err := store.Partitions()
	if err != nil {
		return nil, err
	}

	var (
		ret []CombinedFold
		buf bytes.Buffer
		cur *CombinedFold
	)
	writeFold := func() error {
		if cur == nil {
			return nil
		}
		if err := file.WriteAtomic(cur.Path, buf.Bytes(), 0o644); err != nil {
			return apperr.Wrap(err, apperr.ErrCheckpoint, "write combined fold").WithContext("path", cur.Path)
		}
		log.Info("Wrote %d records to %s", cur.Records, cur.Path)
		ret = append(ret, *cur)
		buf.Reset()
		return nil
	}

	// keys are sorted by fold, so each fold is contiguous
	for _, key := range keys {
		if cur == nil || cur.Fold != key.Fold {
			if err := writeFold(); err != nil {
				return nil, err
			}
			cur = &CombinedFold{Fold: key.Fold, Path: filepath.Join(outDir, key.Fold+".jsonl")}
		}

		records, err := store.Load(key)
		if err != nil {
			return nil, err
		}
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				return nil, apperr.Wrap(err, apperr.ErrCheckpoint, "encode record").WithContext("partition", key.String())
			}
		}
		cur.Records += len(records)
	}
	if err := writeFold(); err != nil {
		return nil, err
	}
	return ret, nil
}
