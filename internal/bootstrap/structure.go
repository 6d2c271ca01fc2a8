package bootstrap

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

//go:embed defaults
var defaults embed.FS

// FileSpec is a file the project needs at runtime. Files with a Default are
// restored from the embedded copy when missing; the rest are required.
type FileSpec struct {
	Path    string
	Default string
}

// LayoutReport lists what a structure check had to create.
type LayoutReport struct {
	CreatedDirs  []string
	CreatedFiles []string
}

// Layout verifies the directories and files the server reads from disk.
type Layout struct {
	root   string
	dirs   []string
	files  []FileSpec
	logger *zerolog.Logger
}

// NewLayout returns the layout of a Formula Lab checkout. manifest is always
// required.
func NewLayout(root, manifest string, logger *zerolog.Logger) *Layout {
	return &Layout{
		root: root,
		dirs: []string{
			"static",
			"templates/emails",
			"internal/database/migrations/postgres",
			"internal/database/migrations/sqlite",
		},
		files: []FileSpec{
			{Path: manifest},
			{Path: "static/openapi.html", Default: "defaults/openapi.html"},
			{Path: "static/openapi.json", Default: "defaults/openapi.json"},
			{Path: "templates/emails/welcome.html", Default: "defaults/welcome.html"},
		},
		logger: logger,
	}
}

// Check creates missing directories, restores missing default files, and
// fails when a required file is absent or a path has the wrong type.
func (l *Layout) Check() (*LayoutReport, error) {
	report := &LayoutReport{}

	for _, dir := range l.dirs {
		created, err := l.ensureDir(dir)
		if err != nil {
			return report, err
		}
		if created {
			report.CreatedDirs = append(report.CreatedDirs, dir)
		}
	}

	var missing []string
	for _, spec := range l.files {
		full := filepath.Join(l.root, filepath.FromSlash(spec.Path))
		info, err := os.Stat(full)
		switch {
		case err == nil && info.IsDir():
			return report, fmt.Errorf("%s is a directory, expected a file", spec.Path)
		case err == nil:
			continue
		case !errors.Is(err, os.ErrNotExist):
			return report, fmt.Errorf("checking %s: %w", spec.Path, err)
		}

		if spec.Default == "" {
			missing = append(missing, spec.Path)
			continue
		}
		if err := l.restore(spec, full); err != nil {
			return report, err
		}
		report.CreatedFiles = append(report.CreatedFiles, spec.Path)
	}

	if len(missing) > 0 {
		return report, fmt.Errorf("project structure is incomplete, missing: %s", strings.Join(missing, ", "))
	}

	l.logger.Info().
		Strs("created_dirs", report.CreatedDirs).
		Strs("created_files", report.CreatedFiles).
		Msg("project structure checked")
	return report, nil
}

func (l *Layout) ensureDir(dir string) (bool, error) {
	full := filepath.Join(l.root, filepath.FromSlash(dir))
	info, err := os.Stat(full)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("%s exists and is not a directory", dir)
		}
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("checking %s: %w", dir, err)
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return false, fmt.Errorf("creating %s: %w", dir, err)
	}
	return true, nil
}

func (l *Layout) restore(spec FileSpec, full string) error {
	body, err := fs.ReadFile(defaults, path.Clean(spec.Default))
	if err != nil {
		return fmt.Errorf("reading default for %s: %w", spec.Path, err)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(spec.Path), err)
	}
	if err := os.WriteFile(full, body, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", spec.Path, err)
	}
	l.logger.Warn().Str("path", spec.Path).Msg("restored missing file from default")
	return nil
}
