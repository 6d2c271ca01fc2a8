package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/deppfellow/formula-lab/internal/config"
	"github.com/deppfellow/formula-lab/internal/database"
	"github.com/deppfellow/formula-lab/internal/seed"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) count(call string) int {
	n := 0
	for _, c := range r.list() {
		if c == call {
			n++
		}
	}
	return n
}

type fakeInstaller struct {
	rec        *recorder
	upgradeErr error
	installErr error
}

func (f *fakeInstaller) Upgrade(context.Context, []string) error {
	f.rec.add("upgrade")
	return f.upgradeErr
}

func (f *fakeInstaller) Install(context.Context, []string) error {
	f.rec.add("install")
	return f.installErr
}

// storeSeeder seeds the SQLite store in-process, standing in for the
// installed binary's seed subcommand.
type storeSeeder struct {
	rec *recorder
	url string
	err error
}

func (s *storeSeeder) Seed(ctx context.Context, _ []string) error {
	s.rec.add("seed")
	if s.err != nil {
		return s.err
	}
	return seedStore(ctx, s.url)
}

func seedStore(ctx context.Context, url string) error {
	cfg := config.Default()
	cfg.Database.URL = url
	logger := zerolog.Nop()

	db, err := database.Open(ctx, cfg, &logger, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = seed.New(db, &logger, bcrypt.MinCost).Run(ctx)
	return err
}

type fakeLauncher struct {
	rec *recorder
	env []string
	err error
}

func (f *fakeLauncher) Launch(_ context.Context, env []string) error {
	f.rec.add("launch")
	f.env = env
	return f.err
}

type fixture struct {
	root      string
	url       string
	dbPath    string
	rec       *recorder
	installer *fakeInstaller
	seeder    *storeSeeder
	launcher  *fakeLauncher
	cfg       *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/lab\n\ngo 1.25.0\n"), 0o644))

	dbPath := filepath.Join(root, "cosmetic_formula_lab.db")
	url := "sqlite:///" + dbPath
	rec := &recorder{}

	cfg := config.Default()
	cfg.Database.URL = url
	cfg.Bootstrap.Reload = false

	return &fixture{
		root:      root,
		url:       url,
		dbPath:    dbPath,
		rec:       rec,
		installer: &fakeInstaller{rec: rec},
		seeder:    &storeSeeder{rec: rec, url: url},
		launcher:  &fakeLauncher{rec: rec},
		cfg:       cfg,
	}
}

func (f *fixture) bootstrapper(t *testing.T, opts ...Option) *Bootstrapper {
	t.Helper()
	logger := zerolog.Nop()
	base := []Option{
		WithBaseEnviron(func() []string { return []string{"PATH=/usr/bin", "HOME=/home/lab"} }),
		WithInstaller(f.installer),
		WithSeeder(f.seeder),
		WithLauncher(f.launcher),
	}
	b, err := New(f.cfg, f.root, &logger, append(base, opts...)...)
	require.NoError(t, err)
	return b
}

func (f *fixture) envDir() string {
	return filepath.Join(f.root, ".runtime")
}

func TestRunFreshCheckout(t *testing.T) {
	f := newFixture(t)

	report, err := f.bootstrapper(t).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []State{
		StateStart,
		StateEnvChecked,
		StateEnvActivated,
		StateDepsInstalled,
		StateStructureChecked,
		StateDBChecked,
		StateSeeded,
		StateServing,
	}, report.States)
	assert.True(t, report.EnvCreated)
	assert.True(t, report.Seeded)
	assert.Equal(t, "database does not exist", report.SeedReason)
	assert.Equal(t, []string{"upgrade", "install", "seed", "launch"}, f.rec.list())

	assert.DirExists(t, filepath.Join(f.envDir(), "bin"))
	assert.FileExists(t, f.dbPath)
	assert.FileExists(t, filepath.Join(f.root, "static", "openapi.html"))

	state, err := database.Inspect(context.Background(), f.url)
	require.NoError(t, err)
	assert.False(t, state.NeedsSeed())
}

func TestRunWithEnvironmentAndDatabasePresent(t *testing.T) {
	f := newFixture(t)
	marker := filepath.Join(f.envDir(), "marker")
	require.NoError(t, os.MkdirAll(f.envDir(), 0o755))
	require.NoError(t, os.WriteFile(marker, []byte("keep"), 0o644))
	require.NoError(t, seedStore(context.Background(), f.url))

	report, err := f.bootstrapper(t, WithStructureChecker(nil)).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.EnvCreated)
	assert.False(t, report.Seeded)
	assert.Equal(t, []State{
		StateStart,
		StateEnvChecked,
		StateEnvActivated,
		StateDepsInstalled,
		StateDBChecked,
		StateServing,
	}, report.States)
	assert.Equal(t, []string{"upgrade", "install", "launch"}, f.rec.list())
	assert.FileExists(t, marker)
}

func TestRunInstallFailureDoesNotLaunch(t *testing.T) {
	f := newFixture(t)
	f.installer.installErr = errors.New("proxy.golang.org: no such host")

	report, err := f.bootstrapper(t).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "install dependencies")

	assert.Equal(t, StateEnvActivated, report.Last())
	assert.Equal(t, []string{"upgrade", "install"}, f.rec.list())
	assert.Zero(t, f.rec.count("launch"))
	assert.NoFileExists(t, f.dbPath)
}

func TestRunUpgradeFailureStopsBeforeInstall(t *testing.T) {
	f := newFixture(t)
	f.installer.upgradeErr = errors.New("toolchain not available")

	_, err := f.bootstrapper(t).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upgrade toolchain")
	assert.Equal(t, []string{"upgrade"}, f.rec.list())
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.bootstrapper(t).Run(ctx)
	require.NoError(t, err)
	second, err := f.bootstrapper(t).Run(ctx)
	require.NoError(t, err)

	assert.True(t, first.EnvCreated)
	assert.False(t, second.EnvCreated)
	assert.True(t, first.Seeded)
	assert.False(t, second.Seeded)
	assert.Equal(t, 1, f.rec.count("seed"))
	assert.Equal(t, 2, f.rec.count("launch"))
}

func TestRunInstallsAndSeedsBeforeLaunch(t *testing.T) {
	f := newFixture(t)

	_, err := f.bootstrapper(t).Run(context.Background())
	require.NoError(t, err)

	calls := f.rec.list()
	launch := indexOf(calls, "launch")
	require.NotEqual(t, -1, launch)
	assert.Less(t, indexOf(calls, "install"), launch)
	assert.Less(t, indexOf(calls, "seed"), launch)
	assert.Equal(t, len(calls)-1, launch)
}

func TestRunSeedsExistingButEmptyDatabase(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.dbPath, nil, 0o644))

	report, err := f.bootstrapper(t).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Seeded)
	assert.Contains(t, report.SeedReason, "schema version 0 is behind")
	assert.Equal(t, 1, f.rec.count("seed"))
}

func TestRunSeedFailureDoesNotLaunch(t *testing.T) {
	f := newFixture(t)
	f.seeder.err = errors.New("seed exited with status 1")

	report, err := f.bootstrapper(t).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed database")
	assert.Equal(t, StateDBChecked, report.Last())
	assert.Zero(t, f.rec.count("launch"))
}

func TestRunStructureFailureDoesNotLaunch(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.Remove(filepath.Join(f.root, "go.mod")))

	report, err := f.bootstrapper(t).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "go.mod")
	assert.Equal(t, StateDepsInstalled, report.Last())
	assert.Zero(t, f.rec.count("seed"))
	assert.Zero(t, f.rec.count("launch"))
}

func TestRunLaunchesWithActivatedEnvironment(t *testing.T) {
	f := newFixture(t)

	_, err := f.bootstrapper(t, WithStructureChecker(nil)).Run(context.Background())
	require.NoError(t, err)

	env := envMap(f.launcher.env)
	assert.True(t, strings.HasPrefix(env["PATH"], filepath.Join(f.envDir(), "bin")))
	assert.Equal(t, f.url, env["FORMULALAB_DATABASE__URL"])
	assert.Equal(t, "/home/lab", env["HOME"])
}

func TestRunInspectFailureIsFatal(t *testing.T) {
	f := newFixture(t)
	inspect := func(context.Context, string) (*database.State, error) {
		return nil, errors.New("connection refused")
	}

	_, err := f.bootstrapper(t, WithInspector(inspect)).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check database")
	assert.Zero(t, f.rec.count("launch"))
}

func indexOf(calls []string, call string) int {
	for i, c := range calls {
		if c == call {
			return i
		}
	}
	return -1
}

func envMap(env []string) map[string]string {
	out := make(map[string]string, len(env))
	for _, kv := range env {
		k, v, _ := strings.Cut(kv, "=")
		out[k] = v
	}
	return out
}

func TestNewForwardsEnvFile(t *testing.T) {
	f := newFixture(t)
	f.cfg.Bootstrap.Reload = true
	logger := zerolog.Nop()

	b, err := New(f.cfg, f.root, &logger, WithEnvFile("staging.env"))
	require.NoError(t, err)

	seeder, ok := b.seeder.(*SeedCommand)
	require.True(t, ok)
	assert.Equal(t, "staging.env", seeder.EnvFile)

	launcher, ok := b.launcher.(*ProcessLauncher)
	require.True(t, ok)
	assert.Equal(t, []string{"--env-file", "staging.env", "serve"}, launcher.Args)
	assert.NotNil(t, launcher.Reload)
	assert.NotNil(t, launcher.Rebuild)

	b, err = New(f.cfg, f.root, &logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"serve"}, b.launcher.(*ProcessLauncher).Args)
}
