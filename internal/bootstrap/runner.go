package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Command is one child process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands to completion.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as child processes sharing the terminal.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
	logger *zerolog.Logger
}

func NewExecRunner(logger *zerolog.Logger) *ExecRunner {
	return &ExecRunner{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		logger: logger,
	}
}

func (r *ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	start := time.Now()
	r.logger.Debug().Str("command", c.String()).Str("dir", c.Dir).Msg("running command")

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", c, err)
	}

	r.logger.Debug().
		Str("command", c.String()).
		Dur("duration", time.Since(start)).
		Msg("command finished")
	return nil
}
