package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/deppfellow/formula-lab/internal/config"
	"github.com/rs/zerolog"
	"golang.org/x/mod/modfile"
)

// BinaryName is the name of the server binary inside the environment.
const BinaryName = "formulalab"

// Toolchain installs the project into an Environment with the go command.
type Toolchain struct {
	runner   Runner
	goBinary string
	root     string
	manifest string
	pkg      string
	output   string
	logger   *zerolog.Logger
}

func NewToolchain(runner Runner, cfg config.BootstrapConfig, root string, env *Environment, logger *zerolog.Logger) *Toolchain {
	return &Toolchain{
		runner:   runner,
		goBinary: cfg.GoBinary,
		root:     root,
		manifest: cfg.Manifest,
		pkg:      cfg.Package,
		output:   ServerBinary(env),
		logger:   logger,
	}
}

// ServerBinary is the path of the server binary built into env.
func ServerBinary(env *Environment) string {
	name := BinaryName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(env.BinDir(), name)
}

// ReadManifest parses the dependency manifest.
func (t *Toolchain) ReadManifest() (*modfile.File, error) {
	path := filepath.Join(t.root, t.manifest)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	mf, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if mf.Module == nil {
		return nil, fmt.Errorf("manifest %s has no module directive", path)
	}
	return mf, nil
}

// Upgrade runs the go command once inside the activated environment so it
// switches to the toolchain the manifest asks for before anything is built.
func (t *Toolchain) Upgrade(ctx context.Context, env []string) error {
	mf, err := t.ReadManifest()
	if err != nil {
		return err
	}

	event := t.logger.Info().Str("module", mf.Module.Mod.Path)
	if mf.Go != nil {
		event = event.Str("go", mf.Go.Version)
	}
	if mf.Toolchain != nil {
		event = event.Str("toolchain", mf.Toolchain.Name)
	}
	event.Int("requirements", len(mf.Require)).Msg("read manifest")

	return t.run(ctx, env, "version")
}

// Install downloads every module the manifest requires and builds the
// server binary into the environment.
func (t *Toolchain) Install(ctx context.Context, env []string) error {
	if err := t.run(ctx, env, "mod", "download"); err != nil {
		return err
	}
	return t.Build(ctx, env)
}

// Build compiles the server binary only; the reloader calls it on change.
func (t *Toolchain) Build(ctx context.Context, env []string) error {
	if err := t.run(ctx, env, "build", "-o", t.output, t.pkg); err != nil {
		return err
	}
	t.logger.Info().Str("binary", t.output).Msg("built server")
	return nil
}

func (t *Toolchain) run(ctx context.Context, env []string, args ...string) error {
	return t.runner.Run(ctx, Command{
		Name: t.goBinary,
		Args: args,
		Dir:  t.root,
		Env:  env,
	})
}
