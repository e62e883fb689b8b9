package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/MimeLyc/dataset-translator/internal/apperr"
	"github.com/MimeLyc/dataset-translator/internal/dataset"
	"github.com/MimeLyc/dataset-translator/pkg/file"
)

const partitionDirPrefix = "from_"

var checkpointFilePattern = regexp.MustCompile(`^upto_(\d+)\.json$`)

// PartitionKey identifies one unit of resumability.
type PartitionKey struct {
	Fold           string
	SourceLanguage string
}

func (k PartitionKey) String() string {
	return k.Fold + "/" + partitionDirPrefix + k.SourceLanguage
}

// FileName is the checkpoint file name for a cumulative offset.
func FileName(offset int) string {
	return fmt.Sprintf("upto_%d.json", offset)
}

// Store lays checkpoints out as <root>/<fold>/from_<lang>/upto_<offset>.json.
// It assumes a single writer per root.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

// Dir is the directory holding the checkpoints of key.
func (s *Store) Dir(key PartitionKey) string {
	return filepath.Join(s.root, key.Fold, partitionDirPrefix+key.SourceLanguage)
}

// Path is the checkpoint file for key at offset.
func (s *Store) Path(key PartitionKey, offset int) string {
	return filepath.Join(s.Dir(key), FileName(offset))
}

// ResumeOffset creates the partition directory if needed and returns the
// largest offset among its checkpoint files, or 0. Files that do not match
// the naming pattern are ignored.
func (s *Store) ResumeOffset(key PartitionKey) (int, error) {
	dir := s.Dir(key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, apperr.Wrap(err, apperr.ErrCheckpoint, "create partition directory").WithContext("dir", dir)
	}

	offsets, err := s.offsets(dir)
	if err != nil {
		return 0, err
	}
	if len(offsets) == 0 {
		return 0, nil
	}
	return offsets[len(offsets)-1], nil
}

// Write stores records as a JSON array named by offset, replacing any file
// with the same offset. The file is written to a temp name and renamed.
func (s *Store) Write(key PartitionKey, offset int, records []dataset.Record) error {
	if records == nil {
		records = []dataset.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return apperr.Wrap(err, apperr.ErrCheckpoint, "encode checkpoint").
			WithContext("partition", key.String()).
			WithContext("offset", offset)
	}

	path := s.Path(key, offset)
	if err := file.WriteAtomic(path, data, 0o644); err != nil {
		return apperr.Wrap(err, apperr.ErrCheckpoint, "write checkpoint").WithContext("path", path)
	}
	return nil
}

// Exists reports whether a checkpoint file for offset is already on disk.
func (s *Store) Exists(key PartitionKey, offset int) bool {
	_, err := os.Stat(s.Path(key, offset))
	return err == nil
}

// Load concatenates every checkpoint of key in offset order.
func (s *Store) Load(key PartitionKey) ([]dataset.Record, error) {
	dir := s.Dir(key)
	offsets, err := s.offsets(dir)
	if err != nil {
		return nil, err
	}

	var all []dataset.Record
	for _, offset := range offsets {
		path := filepath.Join(dir, FileName(offset))
		f, err := os.Open(path)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrCheckpoint, "open checkpoint").WithContext("path", path)
		}
		records, err := dataset.DecodeRecords(f)
		_ = f.Close()
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrCheckpoint, "decode checkpoint").WithContext("path", path)
		}
		all = append(all, records...)
	}
	return all, nil
}

// Partitions lists every partition directory under the root, sorted by fold
// then language.
func (s *Store) Partitions() ([]PartitionKey, error) {
	folds, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCheckpoint, "read checkpoint root").WithContext("root", s.root)
	}

	var keys []PartitionKey
	for _, fold := range folds {
		if !fold.IsDir() {
			continue
		}
		langs, err := os.ReadDir(filepath.Join(s.root, fold.Name()))
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrCheckpoint, "read fold directory").WithContext("fold", fold.Name())
		}
		for _, lang := range langs {
			if !lang.IsDir() || !strings.HasPrefix(lang.Name(), partitionDirPrefix) {
				continue
			}
			keys = append(keys, PartitionKey{
				Fold:           fold.Name(),
				SourceLanguage: strings.TrimPrefix(lang.Name(), partitionDirPrefix),
			})
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Fold != keys[j].Fold {
			return keys[i].Fold < keys[j].Fold
		}
		return keys[i].SourceLanguage < keys[j].SourceLanguage
	})
	return keys, nil
}

// offsets returns the parsed checkpoint offsets in dir, ascending.
func (s *Store) offsets(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCheckpoint, "read partition directory").WithContext("dir", dir)
	}

	var offsets []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := checkpointFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		offsets = append(offsets, n)
	}
	sort.Ints(offsets)
	return offsets, nil
}
