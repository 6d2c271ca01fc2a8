// Package bootstrap prepares a local runtime environment and launches the
// server from it.
//
// A run walks a fixed sequence of states:
//
//	START -> ENV_CHECKED -> ENV_ACTIVATED -> DEPS_INSTALLED
//	      -> [STRUCTURE_CHECKED] -> DB_CHECKED -> [SEEDED] -> SERVING
//
// Every step is fatal on failure. Running twice never recreates the
// environment and never reseeds a ready data store.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/deppfellow/formula-lab/internal/config"
	"github.com/deppfellow/formula-lab/internal/database"
	"github.com/rs/zerolog"
)

type State string

const (
	StateStart            State = "START"
	StateEnvChecked       State = "ENV_CHECKED"
	StateEnvActivated     State = "ENV_ACTIVATED"
	StateDepsInstalled    State = "DEPS_INSTALLED"
	StateStructureChecked State = "STRUCTURE_CHECKED"
	StateDBChecked        State = "DB_CHECKED"
	StateSeeded           State = "SEEDED"
	StateServing          State = "SERVING"
)

// Report records what a run did.
type Report struct {
	States     []State
	EnvCreated bool
	Layout     *LayoutReport
	DB         *database.State
	Seeded     bool
	SeedReason string
}

// Last is the state the run reached.
func (r *Report) Last() State {
	if len(r.States) == 0 {
		return ""
	}
	return r.States[len(r.States)-1]
}

// Installer upgrades the toolchain and installs the project's dependencies
// into an activated environment.
type Installer interface {
	Upgrade(ctx context.Context, env []string) error
	Install(ctx context.Context, env []string) error
}

type StructureChecker interface {
	Check() (*LayoutReport, error)
}

// Inspector probes the data store without modifying it.
type Inspector func(ctx context.Context, url string) (*database.State, error)

type Seeder interface {
	Seed(ctx context.Context, env []string) error
}

type Launcher interface {
	Launch(ctx context.Context, env []string) error
}

type Bootstrapper struct {
	cfg    *config.Config
	logger *zerolog.Logger

	env       *Environment
	envFile   string
	baseEnv   func() []string
	installer Installer
	layout    StructureChecker
	inspect   Inspector
	seeder    Seeder
	launcher  Launcher
}

type Option func(*Bootstrapper)

func WithInstaller(i Installer) Option { return func(b *Bootstrapper) { b.installer = i } }

// WithStructureChecker replaces the layout check; nil skips the step.
func WithStructureChecker(c StructureChecker) Option {
	return func(b *Bootstrapper) { b.layout = c }
}

func WithInspector(fn Inspector) Option { return func(b *Bootstrapper) { b.inspect = fn } }
func WithSeeder(s Seeder) Option        { return func(b *Bootstrapper) { b.seeder = s } }
func WithLauncher(l Launcher) Option    { return func(b *Bootstrapper) { b.launcher = l } }

// WithBaseEnviron sets the variables the environment is activated on top of.
func WithBaseEnviron(fn func() []string) Option {
	return func(b *Bootstrapper) { b.baseEnv = fn }
}

// WithEnvFile passes the dotenv file on to the seed and serve subcommands
// of the default seeder and launcher.
func WithEnvFile(path string) Option { return func(b *Bootstrapper) { b.envFile = path } }

// New wires the default collaborators for the project at root: the go
// toolchain, the layout check, the seed subcommand and a process launcher
// that reloads on change when cfg.Bootstrap.Reload is set. Options replace
// any of them.
func New(cfg *config.Config, root string, logger *zerolog.Logger, opts ...Option) (*Bootstrapper, error) {
	env, err := NewEnvironment(root, cfg.Bootstrap.EnvDir)
	if err != nil {
		return nil, err
	}

	b := &Bootstrapper{
		cfg:     cfg,
		logger:  logger,
		env:     env,
		baseEnv: os.Environ,
		inspect: database.Inspect,
	}
	if cfg.Bootstrap.StructureCheck {
		b.layout = NewLayout(root, cfg.Bootstrap.Manifest, logger)
	}
	for _, opt := range opts {
		opt(b)
	}

	runner := NewExecRunner(logger)
	toolchain := NewToolchain(runner, cfg.Bootstrap, root, env, logger)
	binary := ServerBinary(env)

	if b.installer == nil {
		b.installer = toolchain
	}
	if b.seeder == nil {
		seeder := NewSeedCommand(runner, binary, root)
		seeder.EnvFile = b.envFile
		b.seeder = seeder
	}
	if b.launcher == nil {
		launcher := NewProcessLauncher(binary, root, logger)
		launcher.Args = SubcommandArgs(b.envFile, "serve")
		if cfg.Bootstrap.Reload {
			launcher.Reload = &ReloadOptions{
				Root:  root,
				Dirs:  cfg.Bootstrap.WatchDirs,
				Exts:  cfg.Bootstrap.WatchExts,
				Delay: cfg.Bootstrap.ReloadDelay,
				Skip:  []string{env.Dir()},
			}
			launcher.Rebuild = toolchain.Build
		}
		b.launcher = launcher
	}
	return b, nil
}

func (b *Bootstrapper) Environment() *Environment { return b.env }

// Run executes the bootstrap sequence and blocks while the server is
// serving. The report reflects every state reached, including on failure.
func (b *Bootstrapper) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{}
	b.enter(report, StateStart)

	created, err := b.env.Ensure()
	if err != nil {
		return report, fmt.Errorf("ensure environment: %w", err)
	}
	report.EnvCreated = created
	if created {
		b.logger.Info().Str("dir", b.env.Dir()).Msg("created runtime environment")
	} else {
		b.logger.Info().Str("dir", b.env.Dir()).Msg("runtime environment already exists")
	}
	b.enter(report, StateEnvChecked)

	env := b.env.Environ(b.baseEnv(), b.cfg)
	b.enter(report, StateEnvActivated)

	if err := b.installer.Upgrade(ctx, env); err != nil {
		return report, fmt.Errorf("upgrade toolchain: %w", err)
	}
	if err := b.installer.Install(ctx, env); err != nil {
		return report, fmt.Errorf("install dependencies: %w", err)
	}
	b.enter(report, StateDepsInstalled)

	if b.layout != nil {
		layout, err := b.layout.Check()
		report.Layout = layout
		if err != nil {
			return report, fmt.Errorf("check structure: %w", err)
		}
		b.enter(report, StateStructureChecked)
	}

	if err := b.ensureSeedData(ctx, env, report); err != nil {
		return report, err
	}

	b.enter(report, StateServing)
	b.logger.Info().
		Dur("setup", time.Since(start)).
		Str("addr", b.cfg.Addr()).
		Msg("launching server")

	if err := b.launcher.Launch(ctx, env); err != nil {
		return report, fmt.Errorf("launch server: %w", err)
	}
	return report, nil
}

// ensureSeedData seeds at most once per run, and only when the store is
// missing, behind on schema, or has an empty baseline table.
func (b *Bootstrapper) ensureSeedData(ctx context.Context, env []string, report *Report) error {
	state, err := b.inspect(ctx, b.cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("check database: %w", err)
	}
	report.DB = state
	b.enter(report, StateDBChecked)

	if !state.NeedsSeed() {
		b.logger.Info().
			Int32("schema_version", state.SchemaVersion).
			Int64("users", state.Users).
			Int64("ingredients", state.Ingredients).
			Msg("database ready, skipping seed")
		return nil
	}

	report.SeedReason = state.Reason()
	b.logger.Info().Str("reason", report.SeedReason).Msg("seeding database")

	if err := b.seeder.Seed(ctx, env); err != nil {
		return fmt.Errorf("seed database: %w", err)
	}
	report.Seeded = true
	b.enter(report, StateSeeded)
	return nil
}

func (b *Bootstrapper) enter(report *Report, s State) {
	report.States = append(report.States, s)
	b.logger.Debug().Str("state", string(s)).Msg("bootstrap state")
}
