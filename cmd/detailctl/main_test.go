package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detailinfra/internal/csvio"
)

// run executes detailctl against a fresh queue with no database or NATS.
func run(t *testing.T, queuePath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DETAIL_DATABASE_URL", "")
	t.Setenv("DETAIL_NATS_URL", "")
	t.Setenv("DETAIL_CONFIG", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--queue-path", queuePath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	q := filepath.Join(t.TempDir(), "queue.db")
	out, err := run(t, q, "classify", "Ford", "F-150")
	require.NoError(t, err)
	assert.Contains(t, out, "Truck/Van/Large SUV")
	assert.Contains(t, out, "tier: truck")
}

func TestClassifySaveQueuesWithoutDatabase(t *testing.T) {
	q := filepath.Join(t.TempDir(), "queue.db")
	out, err := run(t, q, "classify", "--save", "honda", "civic")
	require.NoError(t, err)
	assert.Contains(t, out, "Honda Civic")
	assert.Contains(t, out, "Saved locally")

	out, err = run(t, q, "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "Civic")

	out, err = run(t, q, "sync")
	require.NoError(t, err)
	assert.Equal(t, "0 synced, 1 still queued\n", out)
}

func TestClassifySaveRequiresAdmin(t *testing.T) {
	q := filepath.Join(t.TempDir(), "queue.db")
	_, err := run(t, q, "--role", "employee", "classify", "--save", "Honda", "Civic")
	assert.Error(t, err)
}

func TestEstimateCommand(t *testing.T) {
	q := filepath.Join(t.TempDir(), "queue.db")
	out, err := run(t, q, "estimate", "full-detail", "Toyota", "Camry", "--miles", "12")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: $292.00")

	out, err = run(t, q, "estimate", "basic-exterior", "--tier", "truck")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: $75.00")

	_, err = run(t, q, "estimate", "basic-exterior")
	assert.Error(t, err)
	_, err = run(t, q, "estimate", "teleport", "--tier", "truck")
	assert.Error(t, err)
}

func TestTemplateImportExport(t *testing.T) {
	dir := t.TempDir()
	q := filepath.Join(dir, "queue.db")

	out, err := run(t, q, "template")
	require.NoError(t, err)
	assert.Equal(t, csvio.HeaderLine, strings.TrimSpace(out))

	file := filepath.Join(dir, "rows.csv")
	data := csvio.HeaderLine + "\nToyota,Tacoma,2016,,Truck/Van/Large SUV,false,\n,Nameless,,,Compact/Sedan,false,\n"
	require.NoError(t, os.WriteFile(file, []byte(data), 0o600))

	out, err = run(t, q, "import", "-q", file)
	require.NoError(t, err)
	assert.Contains(t, out, "0 inserted, 1 queued, 1 rejected")

	exported := filepath.Join(dir, "export.csv")
	_, err = run(t, q, "export", "-o", exported)
	require.NoError(t, err)
	b, err := os.ReadFile(exported)
	require.NoError(t, err)
	assert.Contains(t, string(b), "Toyota,Tacoma,2016,,Truck/Van/Large SUV,false,")
}

func TestMigrateRequiresDatabase(t *testing.T) {
	q := filepath.Join(t.TempDir(), "queue.db")
	_, err := run(t, q, "migrate")
	assert.EqualError(t, err, "DATABASE_URL not set")
}
