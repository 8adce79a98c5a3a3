package resultsdb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgmock"
	"github.com/jackc/pgproto3/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justjake/querybench/pkg/stats"
	pgtest "github.com/justjake/querybench/pkg/testing"
)

func testDocument() *stats.Document {
	return &stats.Document{
		Header: stats.Header{
			Schema:    stats.SchemaVersion,
			SessionID: "cq0abc",
			HostSpecs: stats.HostSpecs{Architecture: "x86_64", Platform: "linux", CPUCores: 8, RAMGB: 16},
		},
		Queries: []stats.Record{{
			QueryIndex:       0,
			QueryString:      "select A from T where B = 2",
			TableLengths:     []int{10, 100},
			ExecutionTimesMS: []float64{1.5, 12},
		}},
	}
}

// openStore runs steps after the startup exchange and connects a Store.
func openStore(t *testing.T, steps ...pgmock.Step) (*Store, <-chan error) {
	t.Helper()
	all := append(pgtest.AcceptConnSteps(), steps...)
	all = append(all, pgtest.WaitForClose())

	server := pgtest.NewMockServer(t, all...)
	t.Cleanup(func() { server.Close() })
	errCh := server.Start()

	store, err := Open(context.Background(), server.DSN(), "secret", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return store, errCh
}

func closeStore(t *testing.T, store *Store, errCh <-chan error) {
	t.Helper()
	require.NoError(t, store.Close(context.Background()))
	require.NoError(t, <-errCh)
}

func TestOpen_InvalidDSN(t *testing.T) {
	_, err := Open(context.Background(), "postgres://%zz", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse results-db")
}

func TestEnsureSchema(t *testing.T) {
	store, errCh := openStore(t, pgtest.AnyQuerySteps('I', "CREATE TABLE", "CREATE TABLE")...)
	require.NoError(t, store.EnsureSchema(context.Background()))
	closeStore(t, store, errCh)
}

func TestEnsureSchema_PermissionDenied(t *testing.T) {
	store, errCh := openStore(t, pgtest.FailedQuerySteps(pgerrcode.InsufficientPrivilege, "permission denied for schema public")...)

	err := store.EnsureSchema(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPermissionDenied))
	assert.Contains(t, err.Error(), "permission denied for schema public")

	closeStore(t, store, errCh)
}

func TestRecordRun(t *testing.T) {
	var steps []pgmock.Step
	steps = append(steps, pgtest.AnyQuerySteps('T', "BEGIN")...)
	steps = append(steps, pgtest.AnyQuerySteps('T', "INSERT 0 1", "INSERT 0 1", "INSERT 0 1")...)
	steps = append(steps, pgtest.AnyQuerySteps('I', "COMMIT")...)

	store, errCh := openStore(t, steps...)
	require.NoError(t, store.RecordRun(context.Background(), testDocument(), time.Now()))
	closeStore(t, store, errCh)
}

func TestRecordRun_Duplicate(t *testing.T) {
	var steps []pgmock.Step
	steps = append(steps, pgtest.AnyQuerySteps('T', "BEGIN")...)
	steps = append(steps, pgtest.FailedQuerySteps(pgerrcode.UniqueViolation, `duplicate key value violates unique constraint "querybench_runs_pkey"`)...)
	steps = append(steps, pgtest.AnyQuerySteps('I', "ROLLBACK")...)

	store, errCh := openStore(t, steps...)
	err := store.RecordRun(context.Background(), testDocument(), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateRun))
	assert.Contains(t, err.Error(), "cq0abc")

	closeStore(t, store, errCh)
}

func TestRecordRun_RequiresSessionID(t *testing.T) {
	store, errCh := openStore(t)
	doc := testDocument()
	doc.SessionID = ""
	assert.Error(t, store.RecordRun(context.Background(), doc, time.Now()))
	closeStore(t, store, errCh)
}

func TestRecentRuns(t *testing.T) {
	fields := []pgproto3.FieldDescription{
		pgtest.TextField("session_id", 25),
		pgtest.TextField("recorded_at", 1184),
		pgtest.TextField("architecture", 25),
		pgtest.TextField("platform", 25),
		pgtest.TextField("count", 20),
	}
	store, errCh := openStore(t,
		pgtest.ExpectAnyQuery(),
		pgtest.SendRowDescription(fields),
		pgtest.SendDataRow([][]byte{
			[]byte("cq0abc"), []byte("2024-03-01 12:30:00+00"), []byte("x86_64"), []byte("linux"), []byte("60"),
		}),
		pgtest.SendCommandComplete("SELECT 1"),
		pgtest.SendReadyForQuery('I'),
	)

	runs, err := store.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "cq0abc", runs[0].SessionID)
	assert.Equal(t, int64(60), runs[0].Timings)
	assert.True(t, runs[0].RecordedAt.Equal(time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)))

	closeStore(t, store, errCh)
}
