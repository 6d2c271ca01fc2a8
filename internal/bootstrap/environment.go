package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deppfellow/formula-lab/internal/config"
)

// Environment is the isolated runtime directory. It holds the built server
// binary and the module and build caches used to produce it.
//
//	<dir>/bin        server binary, first on PATH
//	<dir>/pkg/mod    GOMODCACHE
//	<dir>/cache      GOCACHE
type Environment struct {
	dir string
}

// NewEnvironment resolves dir against root.
func NewEnvironment(root, dir string) (*Environment, error) {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving environment directory: %w", err)
	}
	return &Environment{dir: abs}, nil
}

func (e *Environment) Dir() string    { return e.dir }
func (e *Environment) BinDir() string { return filepath.Join(e.dir, "bin") }

// Exists reports whether the environment directory is present.
func (e *Environment) Exists() (bool, error) {
	info, err := os.Stat(e.dir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%s exists and is not a directory", e.dir)
	}
	return true, nil
}

// Ensure creates the environment when it is absent and reports whether it
// did. An existing environment is left untouched.
func (e *Environment) Ensure() (bool, error) {
	exists, err := e.Exists()
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := os.MkdirAll(e.BinDir(), 0o755); err != nil {
		return false, fmt.Errorf("creating environment: %w", err)
	}
	return true, nil
}

// activatedKeys are replaced rather than inherited from the parent.
var activatedKeys = map[string]bool{
	"PATH":       true,
	"GOBIN":      true,
	"GOMODCACHE": true,
	"GOCACHE":    true,
}

// Environ activates the environment on top of base: the environment's bin
// directory leads PATH, Go caches point inside it, and cfg is rendered as
// FORMULALAB_* variables, replacing any inherited ones.
func (e *Environment) Environ(base []string, cfg *config.Config) []string {
	out := make([]string, 0, len(base)+8)
	path := ""
	for _, kv := range base {
		key, value, _ := strings.Cut(kv, "=")
		if key == "PATH" {
			path = value
		}
		if activatedKeys[key] || strings.HasPrefix(key, config.EnvPrefix) {
			continue
		}
		out = append(out, kv)
	}

	if path != "" {
		path = e.BinDir() + string(os.PathListSeparator) + path
	} else {
		path = e.BinDir()
	}

	out = append(out,
		"PATH="+path,
		"GOBIN="+e.BinDir(),
		"GOMODCACHE="+filepath.Join(e.dir, "pkg", "mod"),
		"GOCACHE="+filepath.Join(e.dir, "cache"),
	)
	return append(out, cfg.Environ()...)
}
