package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command against a config in dir and returns stdout.
func runCLI(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()

	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(append([]string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--env-file", filepath.Join(dir, "missing.env"),
	}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(io.Discard)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`app:
  log_level: error
  timezone: UTC
database:
  driver: sqlite
  url: "file:%s"
`, filepath.Join(dir, "wordl.db"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o600))
	return dir
}

func TestCLI_MigrateImportQuizStats(t *testing.T) {
	dir := writeConfig(t)

	out, err := runCLI(t, dir, "", "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "applied 1 migration(s)")

	out, err = runCLI(t, dir, "", "migrate", "version")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	out, err = runCLI(t, dir, "", "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "VERSION")

	out, err = runCLI(t, dir, "apple - olma\n\nbook: kitob\nbad line\n", "import", "--user", "1", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "added 2 word(s)")
	assert.Contains(t, out, "Line 4: no separator found")

	out, err = runCLI(t, dir, "q\n", "quiz", "--user", "1", "--count", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "quiz finished: 0 correct, 0 wrong, 2 unanswered")

	out, err = runCLI(t, dir, "", "stats", "--user", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Points: 0")
	assert.Contains(t, out, "No answers recorded yet.")
}

func TestCLI_WordsAndGroups(t *testing.T) {
	dir := writeConfig(t)

	out, err := runCLI(t, dir, "", "words", "add", "--user", "7", "sun - quyosh")
	require.NoError(t, err)
	assert.Contains(t, out, "added #1 sun - quyosh")

	out, err = runCLI(t, dir, "", "words", "delete", "--user", "7", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted #1")

	_, err = runCLI(t, dir, "", "words", "delete", "--user", "7", "1")
	assert.Error(t, err)

	out, err = runCLI(t, dir, "", "group", "create", "--user", "7", "Class A")
	require.NoError(t, err)
	assert.Contains(t, out, `created group #1 "Class A"`)

	_, err = runCLI(t, dir, "", "words", "clear", "--user", "8", "--group", "1")
	assert.Error(t, err, "only the owner may clear a group")

	out, err = runCLI(t, dir, "", "group", "delete", "--user", "7", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted group #1")
}

func TestCLI_RejectsUnknownMigrateCommand(t *testing.T) {
	dir := writeConfig(t)

	_, err := runCLI(t, dir, "", "migrate", "sideways")
	assert.Error(t, err)
}
