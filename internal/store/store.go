package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/loykin/adorun/internal/common"
	"github.com/loykin/adorun/internal/retry"
	"github.com/loykin/adorun/internal/store/postgresql"
	"github.com/loykin/adorun/internal/store/sqlite"
)

// Dialect hides the SQL differences between backends.
type Dialect interface {
	Name() string
	Connect(ctx context.Context, dsn string) (*sql.DB, error)
	Placeholder(index int) string
	Returning() bool
	BoolToStorage(b bool) any
	BoolFromStorage(val any) bool
	TimeToStorage(t time.Time) any
	TimeFromStorage(val any) string
	EnsureStatements(runs, items string) []string
}

// Run is one batch execution as recorded in the journal.
type Run struct {
	ID         int64
	Resource   string
	Operation  string
	ItemCount  int
	Failed     int
	Aborted    bool
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
	Items      []RunItem
}

// RunItem is one recorded output. Seq is its position in the output list;
// Index is the input item it came from.
type RunItem struct {
	Seq    int
	Index  int
	Failed bool
	Output map[string]any
}

// Store is the run-history journal.
type Store struct {
	db      *sql.DB
	dialect Dialect
	tables  TableNames
	retry   *retry.Policy
	logger  *common.Logger
}

// Open connects to the configured backend and ensures the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}
	var (
		d   Dialect
		dsn string
	)
	switch cfg.Driver() {
	case TypePostgres:
		d, dsn = postgresql.NewDialect(), cfg.Postgres.ConnString()
		if dsn == "" {
			return nil, errors.New("postgres store requires dsn or host")
		}
	default:
		d, dsn = sqlite.NewDialect(), cfg.SQLite.DSN()
	}
	db, err := d.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	st := New(db, d, cfg.Tables())
	if err := st.Ensure(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

// New wraps an open database. The caller is responsible for Ensure.
func New(db *sql.DB, d Dialect, tables TableNames) *Store {
	return &Store{
		db:      db,
		dialect: d,
		tables:  tables,
		retry:   retry.DefaultPolicy(),
		logger:  common.GetLogger().WithStore(d.Name()),
	}
}

// SetRetryPolicy replaces the write retry policy; nil restores the default.
func (s *Store) SetRetryPolicy(p *retry.Policy) {
	if p == nil {
		p = retry.DefaultPolicy()
	}
	s.retry = p
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ensure creates the journal tables when missing.
func (s *Store) Ensure(ctx context.Context) error {
	s.logger.Debug("ensuring journal schema", "tables", []string{s.tables.Runs, s.tables.RunItems})
	for i, q := range s.dialect.EnsureStatements(s.tables.Runs, s.tables.RunItems) {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			s.logger.Error("failed to create journal table", "error", err, "table_index", i+1)
			return fmt.Errorf("failed to create table %d in schema setup: %w", i+1, err)
		}
	}
	return nil
}

// placeholders renders n placeholders starting at position from.
func (s *Store) placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = s.dialect.Placeholder(from + i)
	}
	return strings.Join(ph, ", ")
}

// RecordRun stores the run and its items in one transaction and returns the
// new run id.
func (s *Store) RecordRun(ctx context.Context, run Run) (int64, error) {
	var id int64
	err := retry.Do(ctx, s.retry, "record run", func() error {
		var err error
		id, err = s.recordRun(ctx, run)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("run recorded", "run_id", id, "resource", run.Resource, "operation", run.Operation, "items", run.ItemCount, "failed", run.Failed)
	return id, nil
}

func (s *Store) recordRun(ctx context.Context, run Run) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var errText any
	if run.Error != "" {
		errText = run.Error
	}
	args := []any{
		run.Resource, run.Operation, run.ItemCount, run.Failed,
		s.dialect.BoolToStorage(run.Aborted), errText,
		s.dialect.TimeToStorage(run.StartedAt), s.dialect.TimeToStorage(run.FinishedAt),
	}
	q := fmt.Sprintf("INSERT INTO %s(resource, operation, item_count, failed_count, aborted, error, started_at, finished_at) VALUES(%s)",
		s.tables.Runs, s.placeholders(1, len(args)))

	var id int64
	if s.dialect.Returning() {
		if err := tx.QueryRowContext(ctx, q+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
	} else {
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, err
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, err
		}
	}

	itemQ := fmt.Sprintf("INSERT INTO %s(run_id, seq, item_index, failed, output) VALUES(%s)", s.tables.RunItems, s.placeholders(1, 5))
	for seq, it := range run.Items {
		out, err := json.Marshal(it.Output)
		if err != nil {
			return 0, fmt.Errorf("encode item %d output: %w", it.Index, err)
		}
		if _, err := tx.ExecContext(ctx, itemQ, id, seq, it.Index, s.dialect.BoolToStorage(it.Failed), string(out)); err != nil {
			return 0, err
		}
	}
	return id, tx.Commit()
}

// ListRuns returns recorded runs newest first. limit <= 0 returns all runs.
// Items are not loaded; use RunItems.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := fmt.Sprintf("SELECT id, resource, operation, item_count, failed_count, aborted, error, started_at, finished_at FROM %s ORDER BY id DESC", s.tables.Runs)
	var args []any
	if limit > 0 {
		q += " LIMIT " + s.dialect.Placeholder(1)
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			aborted           any
			errText           sql.NullString
			started, finished any
		)
		if err := rows.Scan(&r.ID, &r.Resource, &r.Operation, &r.ItemCount, &r.Failed, &aborted, &errText, &started, &finished); err != nil {
			return nil, err
		}
		r.Aborted = s.dialect.BoolFromStorage(aborted)
		r.Error = errText.String
		if r.StartedAt, err = s.parseTime(started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = s.parseTime(finished); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) parseTime(val any) (time.Time, error) {
	raw := s.dialect.TimeFromStorage(val)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return t, nil
}

// RunItems returns the recorded outputs of one run in output order.
func (s *Store) RunItems(ctx context.Context, runID int64) ([]RunItem, error) {
	q := fmt.Sprintf("SELECT seq, item_index, failed, output FROM %s WHERE run_id = %s ORDER BY seq ASC", s.tables.RunItems, s.dialect.Placeholder(1))
	rows, err := s.db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []RunItem
	for rows.Next() {
		var (
			it     RunItem
			failed any
			raw    string
		)
		if err := rows.Scan(&it.Seq, &it.Index, &failed, &raw); err != nil {
			return nil, err
		}
		it.Failed = s.dialect.BoolFromStorage(failed)
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&it.Output); err != nil {
			return nil, fmt.Errorf("decode item %d output: %w", it.Index, err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
