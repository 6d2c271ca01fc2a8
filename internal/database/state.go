package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// State describes how far a data store is from being ready to serve.
type State struct {
	Dialect Dialect

	// Exists is false when the SQLite file is missing. PostgreSQL databases
	// always exist once reachable.
	Exists bool

	SchemaVersion int32
	LatestVersion int32
	Users         int64
	Ingredients   int64
}

// NeedsSeed reports whether the seeder has work to do: the store is
// missing, its schema is behind, or a baseline table is empty.
func (s *State) NeedsSeed() bool {
	return s.Reason() != ""
}

// Reason explains NeedsSeed, or returns "" for a ready store.
func (s *State) Reason() string {
	switch {
	case !s.Exists:
		return "database does not exist"
	case s.SchemaVersion < s.LatestVersion:
		return fmt.Sprintf("schema version %d is behind %d", s.SchemaVersion, s.LatestVersion)
	case s.Users == 0:
		return "no users"
	case s.Ingredients == 0:
		return "no ingredients"
	default:
		return ""
	}
}

// Inspect probes the store behind url without changing it. A missing SQLite
// file is reported, never created.
func Inspect(ctx context.Context, url string) (*State, error) {
	target, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	latest, err := LatestVersion(target.Dialect)
	if err != nil {
		return nil, err
	}
	state := &State{Dialect: target.Dialect, LatestVersion: latest}

	var db *sql.DB
	switch target.Dialect {
	case Postgres:
		connConfig, err := pgx.ParseConfig(target.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to parse pgx config: %w", err)
		}
		db = stdlib.OpenDB(*connConfig)

	case SQLite:
		if target.InMemory() {
			// a fresh connection to a transient store is always empty
			return state, nil
		}
		if _, err := os.Stat(target.Path); errors.Is(err, os.ErrNotExist) {
			return state, nil
		} else if err != nil {
			return nil, fmt.Errorf("checking database file: %w", err)
		}
		// mode=rw fails instead of creating a missing file.
		db, err = sql.Open("sqlite3", "file:"+target.Path+"?mode=rw&_busy_timeout=5000")
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	state.Exists = true

	hasVersion, err := tableExists(ctx, db, target.Dialect, VersionTable)
	if err != nil {
		return nil, err
	}
	if hasVersion {
		if state.SchemaVersion, err = currentVersion(ctx, db); err != nil {
			return nil, err
		}
	}

	if state.Users, err = countRows(ctx, db, target.Dialect, "users"); err != nil {
		return nil, err
	}
	if state.Ingredients, err = countRows(ctx, db, target.Dialect, "ingredients"); err != nil {
		return nil, err
	}

	return state, nil
}

func tableExists(ctx context.Context, db *sql.DB, dialect Dialect, table string) (bool, error) {
	var query string
	switch dialect {
	case Postgres:
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`
	default:
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	}

	var n int
	if err := db.QueryRowContext(ctx, Rebind(dialect, query), table).Scan(&n); err != nil {
		return false, fmt.Errorf("looking up table %s: %w", table, err)
	}
	return n > 0, nil
}

// countRows returns 0 for a missing table.
func countRows(ctx context.Context, db *sql.DB, dialect Dialect, table string) (int64, error) {
	ok, err := tableExists(ctx, db, dialect, table)
	if err != nil || !ok {
		return 0, err
	}

	var n int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+quoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
