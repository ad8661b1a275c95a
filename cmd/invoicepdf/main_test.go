package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/invoicepdf/internal/fixture"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runContext(t, context.Background(), args...)
}

func runContext(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", fixture.TableTemplate("combined_items", 120))
	out, _, err := run(t, "validate", "--template", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok: 3 element(s), strict mode")

	bad := writeFile(t, dir, "bad.json", []byte(`{"elements":[{"type":"text"},{"type":"chart"}]}`))
	out, _, err = run(t, "validate", "--template", bad, "--json")
	require.Error(t, err)
	var report struct {
		Valid    bool
		Problems []string
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Valid)
	assert.Len(t, report.Problems, 2)

	out, _, err = run(t, "validate", "--template", bad, "--lenient")
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, "test.env", nil)
	tpl := writeFile(t, dir, "tpl.json", fixture.FullTemplate(""))
	data, err := json.Marshal(fixture.Context(3, 1, 1))
	require.NoError(t, err)
	dataPath := writeFile(t, dir, "data.json", data)
	pdf := filepath.Join(dir, "out.pdf")

	_, logs, err := run(t, "render", "--env-file", env, "-t", tpl, "-d", dataPath, "-o", pdf)
	require.NoError(t, err)
	assert.Contains(t, logs, "document rendered")
	assert.Contains(t, logs, `"path":"primary"`)

	raw, err := os.ReadFile(pdf)
	require.NoError(t, err)
	pages, err := fixture.PageCount(raw)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
}

func TestFailedRenderLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, "test.env", nil)
	tpl := writeFile(t, dir, "tpl.json", fixture.FullTemplate(""))
	data, err := json.Marshal(fixture.Context(3, 1, 1))
	require.NoError(t, err)
	dataPath := writeFile(t, dir, "data.json", data)
	pdf := filepath.Join(dir, "out.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = runContext(t, ctx, "render", "--env-file", env, "-t", tpl, "-d", dataPath, "-o", pdf)
	require.ErrorIs(t, err, context.Canceled)
	_, err = os.Stat(pdf)
	assert.True(t, os.IsNotExist(err), "output file must not exist")
}

func TestRenderCommandToStdout(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, "test.env", nil)
	tpl := writeFile(t, dir, "tpl.json", []byte(`{"html":"<p>{{ customer.name }}</p>"}`))
	data, err := json.Marshal(fixture.Context(1, 0, 0))
	require.NoError(t, err)

	out, logs, err := run(t, "render", "--env-file", env, "-t", tpl, "-d", writeFile(t, dir, "data.json", data))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "%PDF"))
	assert.Contains(t, logs, `"path":"fallback"`)
}

func TestRenderCommandNeedsData(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, "test.env", nil)
	tpl := writeFile(t, dir, "tpl.json", fixture.FullTemplate(""))

	_, _, err := run(t, "render", "--env-file", env, "-t", tpl)
	assert.ErrorContains(t, err, "--data or --document-id")

	_, _, err = run(t, "render", "--env-file", env, "-t", tpl, "--document-id", "4")
	assert.ErrorContains(t, err, "needs a database")
}

func TestPreviewCommand(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, "test.env", nil)
	tpl := writeFile(t, dir, "tpl.json", fixture.TableTemplate("combined_items", 306))
	data, err := json.Marshal(fixture.Context(38, 1, 1))
	require.NoError(t, err)

	out, _, err := run(t, "preview", "--env-file", env, "-t", tpl, "-d", writeFile(t, dir, "data.json", data), "--paged")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "<section"))
}

func TestBadConfig(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, "test.env", nil)
	cfg := writeFile(t, dir, "config.yaml", []byte("cache: {driver: disk}\n"))
	tpl := writeFile(t, dir, "tpl.json", fixture.FullTemplate(""))

	_, _, err := run(t, "preview", "--config", cfg, "--env-file", env, "-t", tpl)
	assert.ErrorContains(t, err, "load config")
}
