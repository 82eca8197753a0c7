package frontend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"goreldb/internal/catalog"
	"goreldb/internal/executor"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := executor.NewEngine(catalog.NewMemFS(), "/data", t.TempDir())
	require.NoError(t, err)
	session := executor.NewSession(eng)
	return NewEngine(session, 4)
}

func mustPrepare(t *testing.T, e *Engine, src string) *Portal {
	t.Helper()
	p, err := e.Prepare(context.Background(), src)
	require.NoError(t, err, "prepare %q", src)
	return p
}

func TestPrepareFetchRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	defer e.Close()

	mustPrepare(t, e, "CREATE DATABASE demo")
	mustPrepare(t, e, "USE demo")
	mustPrepare(t, e, "CREATE TABLE nums (n INT)")
	mustPrepare(t, e, "INSERT INTO nums (n) VALUES (1), (2), (3)")

	p := mustPrepare(t, e, "SELECT n FROM nums ORDER BY n")
	rows, more, err := p.Fetch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.True(t, more, "expected more rows pending after first batch")

	rows, more, err = p.Fetch(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.False(t, more, "expected no more rows pending after final batch")
}

func TestPrepareParseErrorSurfaces(t *testing.T) {
	e := newTestEngine(t)
	defer e.Close()

	_, err := e.Prepare(context.Background(), "NOT VALID SQL")
	require.Error(t, err)
}

func TestPrepareSerializesStatements(t *testing.T) {
	e := newTestEngine(t)
	defer e.Close()

	mustPrepare(t, e, "CREATE DATABASE demo")
	mustPrepare(t, e, "USE demo")
	mustPrepare(t, e, "CREATE TABLE t (id INT)")

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := e.Prepare(context.Background(), "INSERT INTO t (id) VALUES (1)")
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs, "concurrent insert failed")
	}

	p := mustPrepare(t, e, "SELECT id FROM t")
	rows, _, err := p.Fetch(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, rows, n, "expected %d rows from serialized inserts", n)
}
