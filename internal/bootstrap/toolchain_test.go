package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/deppfellow/formula-lab/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	commands []Command
	failOn   string
}

func (r *fakeRunner) Run(_ context.Context, cmd Command) error {
	r.commands = append(r.commands, cmd)
	if r.failOn != "" && cmd.String() == r.failOn {
		return errors.New("exit status 1")
	}
	return nil
}

func (r *fakeRunner) lines() []string {
	out := make([]string, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c.String())
	}
	return out
}

const testManifest = `module github.com/deppfellow/formula-lab

go 1.25.0

require (
	github.com/labstack/echo/v4 v4.13.4
	github.com/rs/zerolog v1.34.0
)
`

func newTestToolchain(t *testing.T, manifest string) (*Toolchain, *fakeRunner, *Environment) {
	t.Helper()
	root := t.TempDir()
	if manifest != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte(manifest), 0o644))
	}

	env, err := NewEnvironment(root, ".runtime")
	require.NoError(t, err)

	runner := &fakeRunner{}
	logger := zerolog.Nop()
	return NewToolchain(runner, config.Default().Bootstrap, root, env, &logger), runner, env
}

func TestToolchainReadManifest(t *testing.T) {
	tc, _, _ := newTestToolchain(t, testManifest)

	mf, err := tc.ReadManifest()
	require.NoError(t, err)
	assert.Equal(t, "github.com/deppfellow/formula-lab", mf.Module.Mod.Path)
	assert.Equal(t, "1.25.0", mf.Go.Version)
	assert.Len(t, mf.Require, 2)
}

func TestToolchainReadManifestErrors(t *testing.T) {
	tc, _, _ := newTestToolchain(t, "")
	_, err := tc.ReadManifest()
	require.Error(t, err)

	tc, _, _ = newTestToolchain(t, "go 1.25.0\n")
	_, err = tc.ReadManifest()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no module directive")

	tc, _, _ = newTestToolchain(t, "module\n\trequire (\n")
	_, err = tc.ReadManifest()
	require.Error(t, err)
}

func TestToolchainUpgradeAndInstall(t *testing.T) {
	tc, runner, env := newTestToolchain(t, testManifest)
	ctx := context.Background()
	vars := []string{"PATH=/usr/bin"}

	require.NoError(t, tc.Upgrade(ctx, vars))
	require.NoError(t, tc.Install(ctx, vars))

	assert.Equal(t, []string{
		"go version",
		"go mod download",
		"go build -o " + ServerBinary(env) + " ./cmd/formulalab",
	}, runner.lines())
	for _, cmd := range runner.commands {
		assert.Equal(t, vars, cmd.Env)
		assert.Equal(t, filepath.Dir(env.Dir()), cmd.Dir)
	}
}

func TestToolchainUpgradeNeedsManifest(t *testing.T) {
	tc, runner, _ := newTestToolchain(t, "")

	require.Error(t, tc.Upgrade(context.Background(), nil))
	assert.Empty(t, runner.commands)
}

func TestToolchainInstallStopsOnDownloadFailure(t *testing.T) {
	tc, runner, _ := newTestToolchain(t, testManifest)
	runner.failOn = "go mod download"

	require.Error(t, tc.Install(context.Background(), nil))
	assert.Equal(t, []string{"go mod download"}, runner.lines())
}

func TestSeedCommand(t *testing.T) {
	runner := &fakeRunner{}
	s := NewSeedCommand(runner, "/srv/lab/.runtime/bin/formulalab", "/srv/lab")

	require.NoError(t, s.Seed(context.Background(), []string{"A=1"}))
	require.Len(t, runner.commands, 1)
	assert.Equal(t, "/srv/lab/.runtime/bin/formulalab seed", runner.commands[0].String())
	assert.Equal(t, "/srv/lab", runner.commands[0].Dir)
	assert.Equal(t, []string{"A=1"}, runner.commands[0].Env)

	s.EnvFile = "staging.env"
	require.NoError(t, s.Seed(context.Background(), nil))
	require.Len(t, runner.commands, 2)
	assert.Equal(t, "/srv/lab/.runtime/bin/formulalab --env-file staging.env seed", runner.commands[1].String())
}
