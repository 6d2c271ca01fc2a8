package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLayout(t *testing.T, withManifest bool) (*Layout, string) {
	t.Helper()
	root := t.TempDir()
	if withManifest {
		require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644))
	}
	logger := zerolog.Nop()
	return NewLayout(root, "go.mod", &logger), root
}

func TestLayoutCheckCreatesMissingParts(t *testing.T) {
	layout, root := newTestLayout(t, true)

	report, err := layout.Check()
	require.NoError(t, err)
	assert.Contains(t, report.CreatedDirs, "static")
	assert.Contains(t, report.CreatedDirs, "templates/emails")
	assert.ElementsMatch(t, []string{
		"static/openapi.html",
		"static/openapi.json",
		"templates/emails/welcome.html",
	}, report.CreatedFiles)

	body, err := os.ReadFile(filepath.Join(root, "templates", "emails", "welcome.html"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "{{.UserFirstName}}")

	report, err = layout.Check()
	require.NoError(t, err)
	assert.Empty(t, report.CreatedDirs)
	assert.Empty(t, report.CreatedFiles)
}

func TestLayoutCheckKeepsExistingFiles(t *testing.T) {
	layout, root := newTestLayout(t, true)
	custom := filepath.Join(root, "static", "openapi.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(custom), 0o755))
	require.NoError(t, os.WriteFile(custom, []byte("custom"), 0o644))

	report, err := layout.Check()
	require.NoError(t, err)
	assert.NotContains(t, report.CreatedFiles, "static/openapi.html")

	body, err := os.ReadFile(custom)
	require.NoError(t, err)
	assert.Equal(t, "custom", string(body))
}

func TestLayoutCheckMissingManifest(t *testing.T) {
	layout, _ := newTestLayout(t, false)

	_, err := layout.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing: go.mod")
}

func TestLayoutCheckWrongTypes(t *testing.T) {
	layout, root := newTestLayout(t, true)
	require.NoError(t, os.WriteFile(filepath.Join(root, "static"), nil, 0o644))

	_, err := layout.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")

	layout, root = newTestLayout(t, true)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "static", "openapi.json"), 0o755))

	_, err = layout.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}
