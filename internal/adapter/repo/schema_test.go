package repo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type recordingExecutor struct {
	queries []string
	failOn  int
}

func (r *recordingExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	r.queries = append(r.queries, query)
	if r.failOn > 0 && len(r.queries) == r.failOn {
		return pgconn.CommandTag{}, errors.New("boom")
	}
	return pgconn.CommandTag{}, nil
}

func (r *recordingExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return nil
}

func (r *recordingExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func TestEnsureSchemaCreatesBothTables(t *testing.T) {
	exec := &recordingExecutor{}
	if err := EnsureSchema(context.Background(), exec); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if len(exec.queries) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(exec.queries))
	}
	for i, table := range []string{"generation_runs", "provider_credentials"} {
		q := exec.queries[i]
		if !strings.HasPrefix(q, "--sql ") {
			t.Fatalf("statement %d lacks marker: %q", i, q)
		}
		if !strings.Contains(q, "create table if not exists "+table) {
			t.Fatalf("statement %d does not create %s", i, table)
		}
	}
}

func TestEnsureSchemaStopsOnError(t *testing.T) {
	exec := &recordingExecutor{failOn: 1}
	err := EnsureSchema(context.Background(), exec)
	if err == nil || !strings.Contains(err.Error(), "ensure schema") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if len(exec.queries) != 1 {
		t.Fatalf("expected to stop after first failure, ran %d", len(exec.queries))
	}
}
