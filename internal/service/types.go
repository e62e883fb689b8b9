package service

import (
	"context"

	"github.com/MimeLyc/dataset-translator/internal/checkpoint"
	"github.com/MimeLyc/dataset-translator/internal/config"
	"github.com/MimeLyc/dataset-translator/internal/dataset"
	"github.com/MimeLyc/dataset-translator/internal/persistence"
)

// CheckpointStore is the part of checkpoint.Store the driver needs.
type CheckpointStore interface {
	ResumeOffset(key checkpoint.PartitionKey) (int, error)
	Write(key checkpoint.PartitionKey, offset int, records []dataset.Record) error
	Path(key checkpoint.PartitionKey, offset int) string
	Exists(key checkpoint.PartitionKey, offset int) bool
}

// FlushRecorder journals checkpoint writes. Failures are logged, not fatal.
type FlushRecorder interface {
	RecordFlush(ctx context.Context, f persistence.Flush) error
}

// Progress advances by the number of records consumed, skipped ones included.
type Progress interface {
	Add(n int) error
}

type DriverConfig struct {
	TargetLanguage string
	TextField      string
	LangField      string
	BatchSize      int
	CheckpointN    int
	FinalNaming    config.FinalCheckpointNaming
	// ReleaseBetweenGroups frees backend model memory after each
	// source-language group.
	ReleaseBetweenGroups bool
	RunID                string
}

// Stats summarises one Run.
type Stats struct {
	Groups     int
	Skipped    int
	Translated int
	// Untranslated counts written records whose text still reads as the
	// source language.
	Untranslated   int
	DroppedBatches int
	Checkpoints    int
}
