// Package resultsdb records benchmark runs in Postgres so timings can be
// compared across sessions.
package resultsdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/justjake/querybench/pkg/stats"
)

var (
	ErrPermissionDenied = errors.New("results database permission denied")
	ErrDuplicateRun     = errors.New("run already recorded")
)

const schemaSQL = `create table if not exists querybench_runs (
	session_id text primary key,
	recorded_at timestamptz not null,
	schema_version int not null,
	architecture text not null,
	platform text not null,
	cpu_cores int not null,
	ram_gb int not null
);
create table if not exists querybench_timings (
	session_id text not null references querybench_runs (session_id) on delete cascade,
	query_index int not null,
	query_string text not null,
	table_length int not null,
	execution_time_ms double precision not null,
	primary key (session_id, query_index, table_length)
)`

const insertRunSQL = `insert into querybench_runs
	(session_id, recorded_at, schema_version, architecture, platform, cpu_cores, ram_gb)
	values ($1, $2, $3, $4, $5, $6, $7)`

const insertTimingSQL = `insert into querybench_timings
	(session_id, query_index, query_string, table_length, execution_time_ms)
	values ($1, $2, $3, $4, $5)`

const recentRunsSQL = `select r.session_id, r.recorded_at, r.architecture, r.platform, count(t.session_id)
	from querybench_runs r left join querybench_timings t using (session_id)
	group by r.session_id, r.recorded_at, r.architecture, r.platform
	order by r.recorded_at desc
	limit $1`

// Store is a connection to the results database.
type Store struct {
	conn   *pgx.Conn
	logger *slog.Logger
}

// Open connects to dsn. A non-empty password overrides the one in dsn.
func Open(ctx context.Context, dsn, password string, logger *slog.Logger) (*Store, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse results-db: %w", err)
	}
	if password != "" {
		cfg.Password = password
	}
	// Statements are few and one-shot; skip the prepare round trips.
	cfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect results-db %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{conn: conn, logger: logger}, nil
}

// Close disconnects.
func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// EnsureSchema creates the history tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create results schema: %w", classify(err))
	}
	return nil
}

// RecordRun stores doc as one run row plus one timing row per query and
// table length, atomically.
func (s *Store) RecordRun(ctx context.Context, doc *stats.Document, recordedAt time.Time) error {
	if doc.SessionID == "" {
		return errors.New("record run: statistics have no session id")
	}

	batch := &pgx.Batch{}
	batch.Queue(insertRunSQL,
		doc.SessionID, recordedAt.UTC(), doc.Schema,
		doc.Architecture, doc.Platform, doc.CPUCores, doc.RAMGB)

	timings := 0
	for _, q := range doc.Queries {
		for i, ms := range q.ExecutionTimesMS {
			if i >= len(q.TableLengths) {
				break
			}
			batch.Queue(insertTimingSQL, doc.SessionID, q.QueryIndex, q.QueryString, q.TableLengths[i], ms)
			timings++
		}
	}

	err := pgx.BeginFunc(ctx, s.conn, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("record run %s: %w", doc.SessionID, classify(err))
	}

	s.logger.Info("recorded run in results database",
		"session_id", doc.SessionID,
		"timings", timings)
	return nil
}

// RunSummary is one row of the run history.
type RunSummary struct {
	SessionID    string    `json:"session_id"`
	RecordedAt   time.Time `json:"recorded_at"`
	Architecture string    `json:"architecture"`
	Platform     string    `json:"platform"`
	Timings      int64     `json:"timings"`
}

// RecentRuns lists up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.conn.Query(ctx, recentRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", classify(err))
	}
	runs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (RunSummary, error) {
		var r RunSummary
		err := row.Scan(&r.SessionID, &r.RecordedAt, &r.Architecture, &r.Platform, &r.Timings)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", classify(err))
	}
	return runs, nil
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.InsufficientPrivilege:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, pgErr.Message)
	case pgerrcode.UniqueViolation:
		return fmt.Errorf("%w: %s", ErrDuplicateRun, pgErr.Message)
	default:
		return err
	}
}
