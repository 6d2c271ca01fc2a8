package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
	tern "github.com/jackc/tern/v2/migrate"
	"github.com/rs/zerolog"
)

// VersionTable records the applied schema version for both dialects.
const VersionTable = "schema_version"

// Both dialects use tern's file layout: NNN_name.sql, with the up and down
// halves separated by sqlMarker.
//
//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

const sqlMarker = "---- create above / drop below ----"

var migrationPattern = regexp.MustCompile(`^(\d+)_.+\.sql$`)

// Migration is one parsed migration file.
type Migration struct {
	Sequence int32
	Name     string
	Up       string
	Down     string
}

func migrationsFS(dialect Dialect) (fs.FS, error) {
	subtree, err := fs.Sub(migrations, path.Join("migrations", string(dialect)))
	if err != nil {
		return nil, fmt.Errorf("retrieving database migrations subtree: %w", err)
	}
	return subtree, nil
}

// LoadMigrations parses the embedded migrations of a dialect in order.
// Sequences must start at 1 and have no gaps.
func LoadMigrations(dialect Dialect) ([]Migration, error) {
	fsys, err := migrationsFS(dialect)
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	var out []Migration
	for _, entry := range entries {
		match := migrationPattern.FindStringSubmatch(entry.Name())
		if entry.IsDir() || match == nil {
			continue
		}
		seq, err := strconv.ParseInt(match[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", entry.Name(), err)
		}

		body, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		up, down, _ := strings.Cut(string(body), sqlMarker)

		out = append(out, Migration{
			Sequence: int32(seq),
			Name:     entry.Name(),
			Up:       strings.TrimSpace(up),
			Down:     strings.TrimSpace(down),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	for i, m := range out {
		if m.Sequence != int32(i+1) {
			return nil, fmt.Errorf("migration %s: expected sequence %d", m.Name, i+1)
		}
	}

	return out, nil
}

// LatestVersion is the schema version reached after all migrations ran.
func LatestVersion(dialect Dialect) (int32, error) {
	ms, err := LoadMigrations(dialect)
	if err != nil {
		return 0, err
	}
	return int32(len(ms)), nil
}

// Migrate brings the schema to the latest version.
func Migrate(ctx context.Context, db *Database, logger *zerolog.Logger) error {
	var from, to int32
	var err error

	switch db.Dialect {
	case Postgres:
		from, to, err = migratePostgres(ctx, db.DB)
	default:
		from, to, err = migrateSQLite(ctx, db.DB)
	}
	if err != nil {
		return err
	}

	if from == to {
		logger.Info().Msgf("database schema up to date, version %d", to)
	} else {
		logger.Info().Msgf("migrated database schema, from %d to %d", from, to)
	}
	return nil
}

func migratePostgres(ctx context.Context, db *sql.DB) (from, to int32, err error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("acquiring migration connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn any) error {
		stdConn, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}

		m, err := tern.NewMigrator(ctx, stdConn.Conn(), VersionTable)
		if err != nil {
			return fmt.Errorf("constructing database migrator: %w", err)
		}

		subtree, err := migrationsFS(Postgres)
		if err != nil {
			return err
		}
		if err := m.LoadMigrations(subtree); err != nil {
			return fmt.Errorf("loading database migrations: %w", err)
		}

		from, err = m.GetCurrentVersion(ctx)
		if err != nil {
			return fmt.Errorf("retrieving current database migration version: %w", err)
		}

		if err := m.Migrate(ctx); err != nil {
			return err
		}
		to = int32(len(m.Migrations))
		return nil
	})
	return from, to, err
}

func migrateSQLite(ctx context.Context, db *sql.DB) (from, to int32, err error) {
	ms, err := LoadMigrations(SQLite)
	if err != nil {
		return 0, 0, err
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+VersionTable+` (version INTEGER NOT NULL)`); err != nil {
		return 0, 0, fmt.Errorf("creating %s: %w", VersionTable, err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO `+VersionTable+` (version)
		SELECT 0 WHERE NOT EXISTS (SELECT 1 FROM `+VersionTable+`)`); err != nil {
		return 0, 0, fmt.Errorf("initializing %s: %w", VersionTable, err)
	}

	from, err = currentVersion(ctx, db)
	if err != nil {
		return 0, 0, err
	}
	if from > int32(len(ms)) {
		return 0, 0, fmt.Errorf("database schema version %d is newer than the latest known migration %d", from, len(ms))
	}

	for _, m := range ms[from:] {
		if err := applySQLite(ctx, db, m); err != nil {
			return from, 0, err
		}
	}

	return from, int32(len(ms)), nil
}

func applySQLite(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %s: %w", m.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return fmt.Errorf("migration %s: %w", m.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE `+VersionTable+` SET version = ?`, m.Sequence); err != nil {
		return fmt.Errorf("migration %s: recording version: %w", m.Name, err)
	}

	return tx.Commit()
}

// currentVersion returns 0 for an empty version table.
func currentVersion(ctx context.Context, db *sql.DB) (int32, error) {
	var version int32
	err := db.QueryRowContext(ctx, `SELECT version FROM `+VersionTable).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", VersionTable, err)
	}
	return version, nil
}
