package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rmatrack/internal/idgen"
	"github.com/roach88/rmatrack/internal/testutil"
)

var cliNow = time.Date(2024, time.March, 14, 9, 30, 0, 0, time.Local)

const configTemplate = `data_dir: %q
store:
  backend: %s
  excel_path: %s
log:
  level: error
roles:
  creators: [creator@example.com]
  inspectors: [inspector@example.com]
  reviewers: [reviewer@example.com]
`

// env is an isolated data directory with a config file.
type env struct {
	t      *testing.T
	dir    string
	config string
}

func newEnv(t *testing.T) *env {
	return newEnvWith(t, "csv", `""`)
}

func newEnvWith(t *testing.T, backend, excelPath string) *env {
	t.Helper()
	for _, k := range []string{"RMA_DATA_DIR", "RMA_STORE_BACKEND", "RMA_LOG_LEVEL", "RMA_LOG_FORMAT", IdentityEnv} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "rmatrack.yaml")
	content := fmt.Sprintf(configTemplate, dir, backend, excelPath)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return &env{t: t, dir: dir, config: path}
}

// run executes the root command with fixed clock and ids.
func (e *env) run(args ...string) (string, error) {
	e.t.Helper()
	opts := &RootOptions{
		Clock: testutil.NewFixedClock(cliNow),
		IDs:   idgen.NewFixedGenerator("RMA-2403AAA", "RMA-2403AAB", "RMA-2403AAC"),
	}
	cmd := newRootCommand(opts)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// runJSON executes with --format json and decodes the envelope.
func (e *env) runJSON(args ...string) (CLIResponse, error) {
	e.t.Helper()
	out, err := e.run(append([]string{"--format", "json"}, args...)...)
	var resp CLIResponse
	require.NoError(e.t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp, err
}

func (e *env) submit() {
	e.t.Helper()
	_, err := e.run("submit", "--as", "creator@example.com",
		"--customer", "Acme", "--product", "Pump-7", "--reason-codes", "leak")
	require.NoError(e.t, err)
}

// field returns data[key] from a decoded envelope.
func field(t *testing.T, resp CLIResponse, key string) interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return data[key]
}
