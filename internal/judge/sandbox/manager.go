// Package sandbox owns the per-dialect scratch databases. Each dialect has
// exactly one sandbox, so preparation, execution, and teardown of one
// submission are serialized per dialect; concurrent submissions for the same
// dialect wait their turn instead of seeing each other's tables.
package sandbox

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"sqldrill/internal/common/db"
	"sqldrill/internal/judge/model"
	"sqldrill/pkg/errors"
	"sqldrill/pkg/utils/logger"

	"go.uber.org/zap"
)

// Handle is an exclusive lease on a prepared sandbox. It must be released
// with Teardown on every path once the submission is done with the database.
type Handle struct {
	ID      string
	Dialect model.Dialect
	DB      db.Database

	release func()
}

// Teardown releases the sandbox for the next submission. Safe to call more
// than once.
func (h *Handle) Teardown() {
	if h.release != nil {
		h.release()
		h.release = nil
	}
}

// Manager serializes access to the sandbox database of each dialect.
type Manager struct {
	databases map[model.Dialect]db.Database
	slots     map[model.Dialect]chan struct{}
}

// NewManager builds a manager over the configured sandbox databases.
func NewManager(databases map[model.Dialect]db.Database) *Manager {
	slots := make(map[model.Dialect]chan struct{}, len(databases))
	for dialect := range databases {
		slot := make(chan struct{}, 1)
		slot <- struct{}{}
		slots[dialect] = slot
	}
	return &Manager{databases: databases, slots: slots}
}

// Supports reports whether a sandbox is configured for the dialect.
func (m *Manager) Supports(dialect model.Dialect) bool {
	_, ok := m.databases[dialect]
	return ok
}

// Prepare acquires the dialect's sandbox, wipes it, and applies the fixture.
// A nil fixture (ad hoc execution without a problem) skips the reset and
// leaves whatever state the last setup produced. Preparation is fail-closed:
// any wipe or setup error releases the sandbox and aborts the submission.
func (m *Manager) Prepare(ctx context.Context, dialect model.Dialect, fixture *model.ProblemFixture) (*Handle, error) {
	database, ok := m.databases[dialect]
	if !ok {
		return nil, errors.Newf(errors.DialectNotSupported, "no sandbox configured for dialect %q", dialect)
	}

	slot := m.slots[dialect]
	select {
	case <-slot:
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.SandboxBusy)
	}

	handle := &Handle{
		ID:      uuid.New().String(),
		Dialect: dialect,
		DB:      database,
		release: func() { slot <- struct{}{} },
	}

	if fixture != nil && strings.TrimSpace(fixture.SetupSQL) != "" {
		if err := m.reset(ctx, handle, fixture); err != nil {
			handle.Teardown()
			return nil, err
		}
	}

	logger.Debug(ctx, "sandbox prepared",
		zap.String("sandbox_id", handle.ID),
		zap.String("dialect", string(dialect)))
	return handle, nil
}

func (m *Manager) reset(ctx context.Context, handle *Handle, fixture *model.ProblemFixture) error {
	var err error
	switch handle.Dialect {
	case model.DialectMySQL:
		err = wipeMySQL(ctx, handle.DB)
	case model.DialectPostgreSQL:
		err = wipePostgreSQL(ctx, handle.DB)
	default:
		return errors.Newf(errors.DialectNotSupported, "no wipe strategy for dialect %q", handle.Dialect)
	}
	if err != nil {
		return errors.Wrap(err, errors.SandboxWipeFailed)
	}

	if err := m.applySetup(ctx, handle, fixture.SetupSQL); err != nil {
		return errors.Wrap(err, errors.SandboxSetupFailed)
	}
	if strings.TrimSpace(fixture.SeedSQL) != "" {
		if err := m.applySetup(ctx, handle, fixture.SeedSQL); err != nil {
			return errors.Wrap(err, errors.SandboxSeedFailed)
		}
	}
	return nil
}

// applySetup runs fixture DDL and seed statements. MySQL connections reject
// multi-statement strings, so the script is split on semicolons there;
// PostgreSQL takes the script whole, which keeps dollar-quoted bodies intact.
func (m *Manager) applySetup(ctx context.Context, handle *Handle, script string) error {
	if handle.Dialect != model.DialectMySQL {
		_, err := handle.DB.Exec(ctx, script)
		return err
	}
	for _, stmt := range strings.Split(script, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := handle.DB.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// wipeMySQL drops every table in the sandbox schema with foreign key checks
// suspended so drop order does not matter.
func wipeMySQL(ctx context.Context, database db.Database) error {
	if _, err := database.Exec(ctx, "SET FOREIGN_KEY_CHECKS = 0"); err != nil {
		return err
	}

	rows, err := database.Query(ctx, "SHOW TABLES")
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, name := range tables {
		if _, err := database.Exec(ctx, "DROP TABLE IF EXISTS `"+name+"`"); err != nil {
			return err
		}
	}

	_, err = database.Exec(ctx, "SET FOREIGN_KEY_CHECKS = 1")
	return err
}

const postgresWipeScript = `
DO $$
DECLARE
    r RECORD;
BEGIN
    FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
        EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
    END LOOP;
END $$;
`

// wipePostgreSQL drops every table in the public schema in one server-side
// block, cascading to dependent objects.
func wipePostgreSQL(ctx context.Context, database db.Database) error {
	_, err := database.Exec(ctx, postgresWipeScript)
	return err
}
