package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore is the run journal: one row per run and one per checkpoint
// file written. Checkpoint files stay the source of truth for resumption.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		// embed.FS paths always use forward slashes
		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// StartRun records a new run and returns it with a fresh id.
func (s *SQLiteStore) StartRun(ctx context.Context, targetLanguage, translator, dataset string) (*Run, error) {
	run := &Run{
		ID:             uuid.NewString(),
		TargetLanguage: targetLanguage,
		Translator:     translator,
		Dataset:        dataset,
		Status:         RunRunning,
		StartedAt:      time.Now().UTC(),
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, target_language, translator, dataset, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.TargetLanguage,
		run.Translator,
		run.Dataset,
		string(run.Status),
		run.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// FinishRun marks a run succeeded, or failed when runErr is non-nil.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, runErr error) error {
	status, msg := RunSucceeded, ""
	if runErr != nil {
		status, msg = RunFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(status),
		msg,
		time.Now().UTC(),
		runID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) RecordFlush(ctx context.Context, f Flush) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO flushes (run_id, fold, source_language, record_offset, records, final, path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.RunID,
		f.Fold,
		f.SourceLanguage,
		f.Offset,
		f.Records,
		f.Final,
		f.Path,
		f.CreatedAt,
	)
	return err
}

func (s *SQLiteStore) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, target_language, translator, dataset, status, error, started_at, finished_at
		 FROM runs
		 ORDER BY started_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]Run, 0)
	for rows.Next() {
		var item Run
		var status string
		var finished sql.NullTime
		if err := rows.Scan(
			&item.ID,
			&item.TargetLanguage,
			&item.Translator,
			&item.Dataset,
			&status,
			&item.Error,
			&item.StartedAt,
			&finished,
		); err != nil {
			return nil, err
		}
		item.Status = RunStatus(status)
		if finished.Valid {
			t := finished.Time
			item.FinishedAt = &t
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *SQLiteStore) Flushes(ctx context.Context, runID string) ([]Flush, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, fold, source_language, record_offset, records, final, path, created_at
		 FROM flushes
		 WHERE run_id = ?
		 ORDER BY id ASC`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]Flush, 0)
	for rows.Next() {
		var item Flush
		if err := rows.Scan(
			&item.RunID,
			&item.Fold,
			&item.SourceLanguage,
			&item.Offset,
			&item.Records,
			&item.Final,
			&item.Path,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Summaries aggregates flushes across all runs per partition.
func (s *SQLiteStore) Summaries(ctx context.Context) ([]PartitionSummary, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT fold, source_language, COUNT(*), SUM(records), MAX(record_offset), MAX(created_at)
		 FROM flushes
		 GROUP BY fold, source_language
		 ORDER BY fold ASC, source_language ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]PartitionSummary, 0)
	for rows.Next() {
		var item PartitionSummary
		var last string
		if err := rows.Scan(
			&item.Fold,
			&item.SourceLanguage,
			&item.Flushes,
			&item.Records,
			&item.LastOffset,
			&last,
		); err != nil {
			return nil, err
		}
		item.LastFlushAt = parseAggregateTime(last)
		ret = append(ret, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// parseAggregateTime reads a timestamp returned by an aggregate, which loses
// the column's declared type and comes back as text.
func parseAggregateTime(v string) time.Time {
	for _, layout := range []string{
		// time.Time.String, which the driver uses when binding time values
		"2006-01-02 15:04:05.999999999 -0700 MST",
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
