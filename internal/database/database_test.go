package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/deppfellow/formula-lab/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		dialect Dialect
		path    string
		wantErr bool
	}{
		{name: "relative sqlite", url: "sqlite:///./cosmetic_formula_lab.db", dialect: SQLite, path: "./cosmetic_formula_lab.db"},
		{name: "absolute sqlite", url: "sqlite:////var/lib/lab.db", dialect: SQLite, path: "/var/lib/lab.db"},
		{name: "memory sqlite", url: "sqlite:///:memory:", dialect: SQLite},
		{name: "file uri", url: "file:lab.db", dialect: SQLite, path: "lab.db"},
		{name: "bare path", url: "data/lab.db", dialect: SQLite, path: "data/lab.db"},
		{name: "postgres", url: "postgres://u:p@localhost:5432/lab", dialect: Postgres},
		{name: "postgresql", url: "postgresql://u:p@localhost/lab?sslmode=disable", dialect: Postgres},
		{name: "mysql", url: "mysql://u:p@localhost/lab", wantErr: true},
		{name: "empty", url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := ParseURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, target.Dialect)
			assert.Equal(t, tt.path, target.Path)
			if tt.dialect == SQLite {
				assert.Contains(t, target.DSN, "_foreign_keys=on")
			}
		})
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM users WHERE email = ? AND id > ?"
	assert.Equal(t, q, Rebind(SQLite, q))
	assert.Equal(t, "SELECT * FROM users WHERE email = $1 AND id > $2", Rebind(Postgres, q))
}

func TestLoadMigrationsBothDialects(t *testing.T) {
	pg, err := LoadMigrations(Postgres)
	require.NoError(t, err)
	lite, err := LoadMigrations(SQLite)
	require.NoError(t, err)

	require.Len(t, lite, len(pg))
	for i := range pg {
		assert.Equal(t, pg[i].Name, lite[i].Name)
		assert.NotEmpty(t, lite[i].Up)
		assert.NotEmpty(t, lite[i].Down)
	}
}

func openTestDB(t *testing.T, url string) *Database {
	t.Helper()
	cfg := config.Default()
	cfg.Database.URL = url
	logger := zerolog.Nop()

	db, err := Open(context.Background(), cfg, &logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateSQLiteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lab.db")
	db := openTestDB(t, "sqlite:///"+path)
	logger := zerolog.Nop()

	require.NoError(t, Migrate(ctx, db, &logger))
	require.NoError(t, Migrate(ctx, db, &logger))

	version, err := currentVersion(ctx, db.DB)
	require.NoError(t, err)
	latest, err := LatestVersion(SQLite)
	require.NoError(t, err)
	assert.Equal(t, latest, version)

	var rows int
	require.NoError(t, db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_version`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestInspectMissingFileDoesNotCreateIt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")

	state, err := Inspect(context.Background(), "sqlite:///"+path)
	require.NoError(t, err)
	assert.False(t, state.Exists)
	assert.True(t, state.NeedsSeed())
	assert.Equal(t, "database does not exist", state.Reason())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestInspectEmptyFileNeedsSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	state, err := Inspect(context.Background(), "sqlite:///"+path)
	require.NoError(t, err)
	assert.True(t, state.Exists)
	assert.Equal(t, int32(0), state.SchemaVersion)
	assert.True(t, state.NeedsSeed())
}

func TestInspectMigratedStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lab.db")
	url := "sqlite:///" + path
	db := openTestDB(t, url)
	logger := zerolog.Nop()
	require.NoError(t, Migrate(ctx, db, &logger))

	state, err := Inspect(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, state.LatestVersion, state.SchemaVersion)
	assert.Equal(t, "no users", state.Reason())

	_, err = db.DB.ExecContext(ctx, `INSERT INTO users (first_name, last_name, email, hashed_password) VALUES ('a', 'b', 'a@b.test', 'x')`)
	require.NoError(t, err)
	state, err = Inspect(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, "no ingredients", state.Reason())

	_, err = db.DB.ExecContext(ctx, `INSERT INTO ingredients (name, inci_name) VALUES ('Water', 'Aqua')`)
	require.NoError(t, err)
	state, err = Inspect(ctx, url)
	require.NoError(t, err)
	assert.False(t, state.NeedsSeed())
	assert.Equal(t, int64(1), state.Users)
	assert.Equal(t, int64(1), state.Ingredients)
}
