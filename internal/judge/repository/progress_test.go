package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"sqldrill/internal/common/db"
	"sqldrill/internal/judge/repository"
	pkgerrors "sqldrill/pkg/errors"
)

type fakeRow struct {
	err error
}

func (r *fakeRow) Scan(dest ...interface{}) error { return r.err }

type fakeMainDB struct {
	execQuery string
	execArgs  []interface{}
	execErr   error
	rowErr    error
}

func (d *fakeMainDB) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	return nil, errors.New("not implemented")
}

func (d *fakeMainDB) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	return &fakeRow{err: d.rowErr}
}

func (d *fakeMainDB) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	d.execQuery = query
	d.execArgs = args
	return nil, d.execErr
}

func (d *fakeMainDB) Transaction(ctx context.Context, fn func(tx db.Transaction) error) error {
	return errors.New("not implemented")
}
func (d *fakeMainDB) BeginTx(ctx context.Context, opts *db.TxOptions) (db.Transaction, error) {
	return nil, errors.New("not implemented")
}
func (d *fakeMainDB) Ping(ctx context.Context) error { return nil }
func (d *fakeMainDB) Close() error                   { return nil }
func (d *fakeMainDB) Stats() db.Stats                { return db.Stats{} }

func TestRecordAttemptRequiresSessionAndProblem(t *testing.T) {
	t.Parallel()
	repo := repository.NewProgressRepository(&fakeMainDB{})

	if err := repo.RecordAttempt(context.Background(), "", "p1", 1, true, 10); !pkgerrors.Is(err, pkgerrors.InvalidParams) {
		t.Fatalf("missing session: %v", err)
	}
	if err := repo.RecordAttempt(context.Background(), "s1", "", 1, true, 10); !pkgerrors.Is(err, pkgerrors.InvalidParams) {
		t.Fatalf("missing problem: %v", err)
	}
}

func TestRecordAttemptUpsertsAtomically(t *testing.T) {
	t.Parallel()
	database := &fakeMainDB{}
	repo := repository.NewProgressRepository(database)

	if err := repo.RecordAttempt(context.Background(), "s1", "p1", 7, true, 42); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(database.execQuery, "ON CONFLICT (session_id, problem_id)") {
		t.Fatalf("expected upsert, got %q", database.execQuery)
	}
	if !strings.Contains(database.execQuery, "LEAST(COALESCE(user_problem_progress.best_execution_ms") {
		t.Fatal("best execution time should only improve")
	}
	if !strings.Contains(database.execQuery, "user_problem_progress.status = 'completed' OR $4") {
		t.Fatal("completed status should be sticky")
	}

	want := []interface{}{"s1", "p1", int64(7), true, int64(42)}
	if len(database.execArgs) != len(want) {
		t.Fatalf("args = %v", database.execArgs)
	}
	for i := range want {
		if database.execArgs[i] != want[i] {
			t.Fatalf("arg[%d] = %v, want %v", i, database.execArgs[i], want[i])
		}
	}
}

func TestRecordAttemptWrapsDatabaseFailure(t *testing.T) {
	t.Parallel()
	repo := repository.NewProgressRepository(&fakeMainDB{execErr: errors.New("connection reset")})

	err := repo.RecordAttempt(context.Background(), "s1", "p1", 1, false, 5)
	if !pkgerrors.Is(err, pkgerrors.ProgressRecordFailed) {
		t.Fatalf("expected ProgressRecordFailed, got %v", err)
	}
}

func TestGetProgressMapsNoRows(t *testing.T) {
	t.Parallel()
	repo := repository.NewProgressRepository(&fakeMainDB{rowErr: sql.ErrNoRows})

	_, err := repo.GetProgress(context.Background(), "s1", "p1", 1)
	if !pkgerrors.Is(err, pkgerrors.ProgressNotFound) {
		t.Fatalf("expected ProgressNotFound, got %v", err)
	}
}
