package sandbox_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"sqldrill/internal/common/db"
	"sqldrill/internal/judge/model"
	"sqldrill/internal/judge/sandbox"
	pkgerrors "sqldrill/pkg/errors"
)

type fakeTableRows struct {
	tables []string
	idx    int
}

func (r *fakeTableRows) Next() bool {
	if r.idx >= len(r.tables) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeTableRows) Scan(dest ...interface{}) error {
	*(dest[0].(*string)) = r.tables[r.idx-1]
	return nil
}

func (r *fakeTableRows) Close() error               { return nil }
func (r *fakeTableRows) Err() error                 { return nil }
func (r *fakeTableRows) Columns() ([]string, error) { return []string{"Tables_in_sandbox"}, nil }

type fakeSandboxDB struct {
	execs   []string
	tables  []string
	failOn  string
	execErr error
}

func (d *fakeSandboxDB) Query(ctx context.Context, query string, args ...interface{}) (db.Rows, error) {
	if query == "SHOW TABLES" {
		return &fakeTableRows{tables: d.tables}, nil
	}
	return nil, errors.New("unexpected query: " + query)
}

func (d *fakeSandboxDB) QueryRow(ctx context.Context, query string, args ...interface{}) db.Row {
	return nil
}

func (d *fakeSandboxDB) Exec(ctx context.Context, query string, args ...interface{}) (db.Result, error) {
	d.execs = append(d.execs, query)
	if d.failOn != "" && strings.Contains(query, d.failOn) {
		return nil, d.execErr
	}
	return nil, nil
}

func (d *fakeSandboxDB) Transaction(ctx context.Context, fn func(tx db.Transaction) error) error {
	return errors.New("not implemented")
}
func (d *fakeSandboxDB) BeginTx(ctx context.Context, opts *db.TxOptions) (db.Transaction, error) {
	return nil, errors.New("not implemented")
}
func (d *fakeSandboxDB) Ping(ctx context.Context) error { return nil }
func (d *fakeSandboxDB) Close() error                   { return nil }
func (d *fakeSandboxDB) Stats() db.Stats                { return db.Stats{} }

func newManager(dialect model.Dialect, database db.Database) *sandbox.Manager {
	return sandbox.NewManager(map[model.Dialect]db.Database{dialect: database})
}

func TestPrepareRejectsUnknownDialect(t *testing.T) {
	t.Parallel()
	m := newManager(model.DialectPostgreSQL, &fakeSandboxDB{})
	_, err := m.Prepare(context.Background(), model.DialectMySQL, nil)
	if !pkgerrors.Is(err, pkgerrors.DialectNotSupported) {
		t.Fatalf("expected DialectNotSupported, got %v", err)
	}
}

func TestPrepareMySQLWipesThenAppliesFixture(t *testing.T) {
	t.Parallel()
	database := &fakeSandboxDB{tables: []string{"employees", "orders"}}
	m := newManager(model.DialectMySQL, database)

	fixture := &model.ProblemFixture{
		Dialect:  model.DialectMySQL,
		SetupSQL: "CREATE TABLE employees (id INT); CREATE TABLE orders (id INT);",
		SeedSQL:  "INSERT INTO employees VALUES (1)",
	}
	handle, err := m.Prepare(context.Background(), model.DialectMySQL, fixture)
	if err != nil {
		t.Fatal(err)
	}
	defer handle.Teardown()

	want := []string{
		"SET FOREIGN_KEY_CHECKS = 0",
		"DROP TABLE IF EXISTS `employees`",
		"DROP TABLE IF EXISTS `orders`",
		"SET FOREIGN_KEY_CHECKS = 1",
		"CREATE TABLE employees (id INT)",
		" CREATE TABLE orders (id INT)",
		"INSERT INTO employees VALUES (1)",
	}
	if len(database.execs) != len(want) {
		t.Fatalf("execs = %q", database.execs)
	}
	for i, stmt := range want {
		if database.execs[i] != stmt {
			t.Fatalf("exec[%d] = %q, want %q", i, database.execs[i], stmt)
		}
	}
}

func TestPreparePostgresWipesWithServerSideBlock(t *testing.T) {
	t.Parallel()
	database := &fakeSandboxDB{}
	m := newManager(model.DialectPostgreSQL, database)

	fixture := &model.ProblemFixture{
		Dialect:  model.DialectPostgreSQL,
		SetupSQL: "CREATE TABLE employees (id INT); INSERT INTO employees VALUES (1);",
	}
	handle, err := m.Prepare(context.Background(), model.DialectPostgreSQL, fixture)
	if err != nil {
		t.Fatal(err)
	}
	defer handle.Teardown()

	if len(database.execs) != 2 {
		t.Fatalf("execs = %q", database.execs)
	}
	if !strings.Contains(database.execs[0], "pg_tables") || !strings.Contains(database.execs[0], "DROP TABLE IF EXISTS") {
		t.Fatalf("wipe script = %q", database.execs[0])
	}
	// Multi-statement scripts stay intact for this engine.
	if database.execs[1] != fixture.SetupSQL {
		t.Fatalf("setup = %q", database.execs[1])
	}
}

func TestPrepareWithoutFixtureSkipsReset(t *testing.T) {
	t.Parallel()
	database := &fakeSandboxDB{}
	m := newManager(model.DialectPostgreSQL, database)

	handle, err := m.Prepare(context.Background(), model.DialectPostgreSQL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer handle.Teardown()

	if len(database.execs) != 0 {
		t.Fatalf("expected no statements, got %q", database.execs)
	}
	if handle.ID == "" || handle.DB == nil {
		t.Fatal("handle not populated")
	}
}

func TestPrepareSerializesPerDialect(t *testing.T) {
	t.Parallel()
	m := newManager(model.DialectPostgreSQL, &fakeSandboxDB{})

	first, err := m.Prepare(context.Background(), model.DialectPostgreSQL, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := m.Prepare(ctx, model.DialectPostgreSQL, nil); !pkgerrors.Is(err, pkgerrors.SandboxBusy) {
		t.Fatalf("expected SandboxBusy while held, got %v", err)
	}

	first.Teardown()
	second, err := m.Prepare(context.Background(), model.DialectPostgreSQL, nil)
	if err != nil {
		t.Fatalf("expected sandbox free after teardown, got %v", err)
	}
	second.Teardown()
}

func TestPrepareSetupFailureReleasesSandbox(t *testing.T) {
	t.Parallel()
	database := &fakeSandboxDB{failOn: "CREATE TABLE", execErr: errors.New("boom")}
	m := newManager(model.DialectPostgreSQL, database)

	fixture := &model.ProblemFixture{SetupSQL: "CREATE TABLE t (id INT)"}
	_, err := m.Prepare(context.Background(), model.DialectPostgreSQL, fixture)
	if !pkgerrors.Is(err, pkgerrors.SandboxSetupFailed) {
		t.Fatalf("expected SandboxSetupFailed, got %v", err)
	}

	handle, err := m.Prepare(context.Background(), model.DialectPostgreSQL, nil)
	if err != nil {
		t.Fatalf("sandbox still held after failed prepare: %v", err)
	}
	handle.Teardown()
}

func TestTeardownIsIdempotent(t *testing.T) {
	t.Parallel()
	m := newManager(model.DialectPostgreSQL, &fakeSandboxDB{})
	handle, err := m.Prepare(context.Background(), model.DialectPostgreSQL, nil)
	if err != nil {
		t.Fatal(err)
	}
	handle.Teardown()
	handle.Teardown()

	next, err := m.Prepare(context.Background(), model.DialectPostgreSQL, nil)
	if err != nil {
		t.Fatal(err)
	}
	next.Teardown()
}
