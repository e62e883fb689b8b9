package persistence

import "time"

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

type Run struct {
	ID             string
	TargetLanguage string
	Translator     string
	Dataset        string
	Status         RunStatus
	Error          string
	StartedAt      time.Time
	FinishedAt     *time.Time
}

// Flush is one checkpoint file written by a run.
type Flush struct {
	RunID          string
	Fold           string
	SourceLanguage string
	Offset         int
	Records        int
	// Final marks the flush at the end of a source-language group.
	Final     bool
	Path      string
	CreatedAt time.Time
}

// PartitionSummary aggregates the flushes of one fold and source language.
type PartitionSummary struct {
	Fold           string
	SourceLanguage string
	Flushes        int
	Records        int
	LastOffset     int
	LastFlushAt    time.Time
}
