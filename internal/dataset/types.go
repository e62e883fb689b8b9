package dataset

import (
	"context"
	"maps"
)

// Record is one conversational turn. Only the configured text and language
// fields are touched by the pipeline; everything else passes through.
type Record map[string]any

// Clone returns a shallow copy so the pipeline can rewrite text and language
// without mutating the loaded dataset.
func (r Record) Clone() Record {
	return maps.Clone(r)
}

// Fold is one named split of a dataset, e.g. "train" or "validation".
type Fold struct {
	Name    string
	Records []Record
}

type Dataset struct {
	Name  string
	Folds []Fold
}

// Len is the number of records across all folds.
func (d *Dataset) Len() int {
	total := 0
	for _, f := range d.Folds {
		total += len(f.Records)
	}
	return total
}

// Loader resolves a dataset name to its folds.
type Loader interface {
	Load(ctx context.Context, name string) (*Dataset, error)
}
