// Package repository provides data access over the main metadata database.
// Sandbox databases are never touched from here.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"sqldrill/internal/common/cache"
	"sqldrill/internal/common/db"
	"sqldrill/internal/judge/model"
	"sqldrill/pkg/errors"
)

const (
	fixtureCacheTTL      = 10 * time.Minute
	fixtureCacheEmptyTTL = 30 * time.Second
)

// FixtureRepository loads the per-(problem, dialect) sandbox fixture.
type FixtureRepository interface {
	// GetFixture resolves a problem by UUID or numeric id and returns its
	// fixture for the dialect. The numeric id is only consulted when the
	// UUID is empty.
	GetFixture(ctx context.Context, problemID string, numericID int64, dialect model.Dialect) (*model.ProblemFixture, error)
}

type fixtureRepository struct {
	db    db.Database
	cache cache.Cache
}

// NewFixtureRepository creates a fixture repository backed by the main
// database with a cache in front. A nil cache disables caching.
func NewFixtureRepository(database db.Database, c cache.Cache) FixtureRepository {
	return &fixtureRepository{db: database, cache: c}
}

func (r *fixtureRepository) GetFixture(ctx context.Context, problemID string, numericID int64, dialect model.Dialect) (*model.ProblemFixture, error) {
	if r.cache == nil {
		return r.fetchFixture(ctx, problemID, numericID, dialect)
	}

	key := fixtureCacheKey(problemID, numericID, dialect)
	fixture, err := cache.GetWithCached(ctx, r.cache, key, fixtureCacheTTL, fixtureCacheEmptyTTL,
		func(f *model.ProblemFixture) bool { return f == nil },
		func(f *model.ProblemFixture) string {
			data, _ := json.Marshal(f)
			return string(data)
		},
		func(s string) (*model.ProblemFixture, error) {
			var f model.ProblemFixture
			if err := json.Unmarshal([]byte(s), &f); err != nil {
				return nil, err
			}
			return &f, nil
		},
		func(ctx context.Context) (*model.ProblemFixture, error) {
			return r.fetchFixture(ctx, problemID, numericID, dialect)
		},
	)
	if err != nil {
		return nil, err
	}
	if fixture == nil {
		// Cached absence.
		return nil, errors.New(errors.FixtureNotFound)
	}
	return fixture, nil
}

func (r *fixtureRepository) fetchFixture(ctx context.Context, problemID string, numericID int64, dialect model.Dialect) (*model.ProblemFixture, error) {
	var (
		id       string
		numID    int64
		isActive bool
	)
	var row db.Row
	if problemID != "" {
		row = r.db.QueryRow(ctx, `SELECT id, numeric_id, is_active FROM problems WHERE id = $1`, problemID)
	} else {
		row = r.db.QueryRow(ctx, `SELECT id, numeric_id, is_active FROM problems WHERE numeric_id = $1`, numericID)
	}
	if err := row.Scan(&id, &numID, &isActive); err != nil {
		if db.IsNoRows(err) {
			return nil, errors.New(errors.ProblemNotFound)
		}
		return nil, errors.Wrap(err, errors.DatabaseError)
	}
	if !isActive {
		return nil, errors.New(errors.ProblemNotActive)
	}

	var (
		setupSQL       string
		sampleData     sql.NullString
		expectedOutput sql.NullString
	)
	row = r.db.QueryRow(ctx, `
		SELECT setup_sql, sample_data, expected_output
		FROM problem_schemas
		WHERE problem_id = $1 AND sql_dialect = $2`,
		id, string(dialect))
	if err := row.Scan(&setupSQL, &sampleData, &expectedOutput); err != nil {
		if db.IsNoRows(err) {
			return nil, errors.Newf(errors.FixtureNotFound, "no %s fixture for problem %s", dialect, id)
		}
		return nil, errors.Wrap(err, errors.DatabaseError)
	}

	fixture := &model.ProblemFixture{
		ProblemID: id,
		NumericID: numID,
		Dialect:   dialect,
		SetupSQL:  setupSQL,
		SeedSQL:   sampleData.String,
	}
	if expectedOutput.Valid && expectedOutput.String != "" {
		if err := json.Unmarshal([]byte(expectedOutput.String), &fixture.ExpectedOutput); err != nil {
			return nil, errors.Wrapf(err, errors.FixtureLoadFailed, "malformed expected output for problem %s", id)
		}
	}
	return fixture, nil
}

func fixtureCacheKey(problemID string, numericID int64, dialect model.Dialect) string {
	if problemID != "" {
		return fmt.Sprintf("judge:fixture:%s:%s", dialect, problemID)
	}
	return fmt.Sprintf("judge:fixture:%s:n%d", dialect, numericID)
}
