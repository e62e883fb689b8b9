package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MimeLyc/dataset-translator/internal/apperr"
	"github.com/MimeLyc/dataset-translator/pkg/file"
)

// defaultFold names the only fold of a dataset loaded from a single file.
const defaultFold = "train"

var recordExts = map[string]bool{
	".json":  true,
	".jsonl": true,
}

// LocalLoader reads datasets from disk. A directory yields one fold per
// <fold>.json / <fold>.jsonl file, a single file yields the fold "train".
// Both JSON arrays and newline-delimited objects are accepted.
type LocalLoader struct{}

func (LocalLoader) Load(ctx context.Context, name string) (*Dataset, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrDataset, "stat dataset").WithContext("path", name)
	}

	if !info.IsDir() {
		records, err := readRecordsFile(name)
		if err != nil {
			return nil, err
		}
		return &Dataset{Name: name, Folds: []Fold{{Name: defaultFold, Records: records}}}, nil
	}

	entries, err := os.ReadDir(name)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrDataset, "read dataset directory").WithContext("path", name)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	ds := &Dataset{Name: name}
	for _, entry := range entries {
		if entry.IsDir() || !recordExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(name, entry.Name())
		records, err := readRecordsFile(path)
		if err != nil {
			return nil, err
		}
		ds.Folds = append(ds.Folds, Fold{Name: file.TrimExt(path), Records: records})
	}

	if len(ds.Folds) == 0 {
		return nil, apperr.New(apperr.ErrDataset, "no .json or .jsonl folds found").WithContext("path", name)
	}
	return ds, nil
}

func readRecordsFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrDataset, "open fold file").WithContext("path", path)
	}
	defer f.Close()

	records, err := DecodeRecords(f)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrDataset, "decode fold file").WithContext("path", path)
	}
	return records, nil
}

// DecodeRecords reads either a JSON array of objects or a stream of objects.
// Numbers are kept as json.Number so untouched fields round-trip verbatim.
func DecodeRecords(r io.Reader) ([]Record, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	dec.UseNumber()

	if first == '[' {
		var records []Record
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
		return records, nil
	}

	var records []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
