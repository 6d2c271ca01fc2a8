package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// DefaultStopTimeout bounds how long a server gets to exit after an interrupt.
const DefaultStopTimeout = 10 * time.Second

// ProcessLauncher runs the server binary in the foreground, sharing the
// terminal. With reload options set it rebuilds and restarts the server when
// watched sources change.
type ProcessLauncher struct {
	Binary string
	Args   []string
	Dir    string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	StopTimeout time.Duration

	// Reload is nil when reload-on-change is off.
	Reload *ReloadOptions

	// Rebuild runs before every restart. A failed rebuild keeps the running
	// server.
	Rebuild func(ctx context.Context, env []string) error

	logger *zerolog.Logger
}

func NewProcessLauncher(binary, dir string, logger *zerolog.Logger) *ProcessLauncher {
	return &ProcessLauncher{
		Binary:      binary,
		Args:        []string{"serve"},
		Dir:         dir,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		StopTimeout: DefaultStopTimeout,
		logger:      logger,
	}
}

// Launch blocks until ctx is cancelled or, without reload, until the server
// exits. Cancellation stops the server and is not an error.
func (l *ProcessLauncher) Launch(ctx context.Context, env []string) error {
	if l.Reload != nil {
		return l.launchWithReload(ctx, env)
	}

	p, err := l.start(env)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return l.stop(p)
	case <-p.exited:
		if p.err != nil {
			return fmt.Errorf("server exited: %w", p.err)
		}
		l.logger.Info().Msg("server exited")
		return nil
	}
}

type process struct {
	cmd    *exec.Cmd
	exited chan struct{}
	err    error
}

func (p *process) running() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

func (l *ProcessLauncher) start(env []string) (*process, error) {
	cmd := exec.Command(l.Binary, l.Args...)
	cmd.Dir = l.Dir
	cmd.Env = env
	cmd.Stdin = l.Stdin
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting server: %w", err)
	}
	l.logger.Info().Int("pid", cmd.Process.Pid).Str("binary", l.Binary).Msg("server started")

	p := &process{cmd: cmd, exited: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		close(p.exited)
	}()
	return p, nil
}

// stop interrupts the server and kills it after StopTimeout. An exit caused
// by the interrupt is not reported as an error.
func (l *ProcessLauncher) stop(p *process) error {
	if !p.running() {
		return nil
	}

	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		// interrupts are not deliverable on every platform
		_ = p.cmd.Process.Kill()
	}

	timeout := l.StopTimeout
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}

	select {
	case <-p.exited:
	case <-time.After(timeout):
		l.logger.Warn().Int("pid", p.cmd.Process.Pid).Msg("server did not stop in time, killing it")
		_ = p.cmd.Process.Kill()
		<-p.exited
	}

	l.logger.Info().Int("pid", p.cmd.Process.Pid).Msg("server stopped")
	return nil
}
