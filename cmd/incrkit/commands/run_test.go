package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/incrkit/internal/config"
	"github.com/Sumatoshi-tech/incrkit/internal/corpus"
)

const (
	testWorkers    = "2"
	testIterations = "3"
)

var smallCorpus = corpus.SyntheticOptions{Documents: 2, Lines: 32, Vocabulary: 6, MaxTokens: 3, Seed: 3}

func smallLoader(ctx context.Context, seed uint64, paths ...string) (*corpus.Corpus, error) {
	if len(paths) > 0 {
		return corpus.Load(ctx, paths...)
	}

	opts := smallCorpus
	if seed != 0 {
		opts.Seed = seed
	}

	return corpus.Synthetic(opts), nil
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// executeRun runs the command against an empty config file with small
// workload settings and returns stdout and stderr.
func executeRun(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cfgPath := writeTestFile(t, "incrkit.yaml", "")

	cmd := newRunCommandWithDeps(smallLoader)

	var stdout, stderr bytes.Buffer

	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{
		"--config", cfgPath,
		"--workers", testWorkers,
		"--iterations", testIterations,
		"--no-color",
	}, args...))

	err := cmd.Execute()

	return stdout.String(), stderr.String(), err
}

func TestRunCommand_Flags(t *testing.T) {
	t.Parallel()

	cmd := NewRunCommand()

	for _, name := range []string{
		"config", "workers", "iterations", "window", "seed", "no-cache",
		"format", "names", "diagnostics-addr", "no-color",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	assert.Equal(t, config.FormatText, cmd.Flags().Lookup("format").DefValue)
	assert.Equal(t, "false", cmd.Flags().Lookup("no-cache").DefValue)
}

func TestRunCommand_TextReport(t *testing.T) {
	t.Parallel()

	stdout, stderr, err := executeRun(t)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stdout, "/* Diagnostics\nCounters:\n"))
	assert.Contains(t, stdout, "\nTrace Log:\n")
	assert.Contains(t, stdout, "Intern Hit")
	assert.Contains(t, stdout, "Language (Synthetic)")
	assert.True(t, strings.HasSuffix(stdout, "*/\n"))

	assert.Contains(t, stderr, "workload finished in")
	assert.Contains(t, stderr, "workers 2")
}

func TestRunCommand_TableReport(t *testing.T) {
	t.Parallel()

	stdout, _, err := executeRun(t, "--format", "TABLE")
	require.NoError(t, err)

	assert.Contains(t, stdout, "COUNTER")
	assert.Contains(t, stdout, "Intern Hit")
	assert.NotContains(t, stdout, "Trace Log:")
}

func TestRunCommand_PlotReport(t *testing.T) {
	t.Parallel()

	stdout, _, err := executeRun(t, "--format", config.FormatPlot)
	require.NoError(t, err)

	assert.Contains(t, stdout, "echarts")
	assert.Contains(t, stdout, "Intern Hit")
}

func TestRunCommand_NoCache(t *testing.T) {
	t.Parallel()

	stdout, _, err := executeRun(t, "--no-cache")
	require.NoError(t, err)

	assert.NotContains(t, stdout, "Intern Hit")
	assert.Contains(t, stdout, "Intern Miss")
}

func TestRunCommand_NamesFile(t *testing.T) {
	t.Parallel()

	namesPath := writeTestFile(t, "names.yaml", "stages:\n  - id: 6\n    name: Lookup Miss\n")

	stdout, _, err := executeRun(t, "--names", namesPath)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Lookup Miss")
	assert.NotContains(t, stdout, "Intern Miss")
}

func TestRunCommand_InvalidNamesFile(t *testing.T) {
	t.Parallel()

	namesPath := writeTestFile(t, "names.yaml", "stages:\n  - id: 4096\n    name: Out Of Range\n")

	_, _, err := executeRun(t, "--names", namesPath)
	require.Error(t, err)
}

func TestRunCommand_Paths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {\n\tprintln(1)\n}\n"), 0o600))

	stdout, _, err := executeRun(t, dir)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Language (Go)")
}

func TestRunCommand_MissingPath(t *testing.T) {
	t.Parallel()

	_, _, err := executeRun(t, filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestRunCommand_InvalidFlags(t *testing.T) {
	t.Parallel()

	_, _, err := executeRun(t, "--format", "xml")
	require.ErrorIs(t, err, config.ErrInvalidFormat)

	_, _, err = executeRun(t, "--window=-1")
	require.ErrorIs(t, err, config.ErrInvalidWindow)
}

func TestRunCommand_ConfigFileApplies(t *testing.T) {
	t.Parallel()

	cfgPath := writeTestFile(t, "incrkit.yaml", "workload:\n  workers: 1\n  iterations: 1\nreport:\n  format: table\n")

	cmd := newRunCommandWithDeps(smallLoader)

	var stdout, stderr bytes.Buffer

	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--config", cfgPath, "--no-color"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "COUNTER")
	assert.Contains(t, stderr.String(), "workers 1")
}

func TestRunCommand_DiagnosticsServer(t *testing.T) {
	t.Parallel()

	_, stderr, err := executeRun(t, "--diagnostics-addr", "127.0.0.1:0")
	require.NoError(t, err)

	assert.Contains(t, stderr, "diagnostics listening on http://127.0.0.1:")
}

func TestRunCommand_DiagnosticsBadAddr(t *testing.T) {
	t.Parallel()

	_, _, err := executeRun(t, "--diagnostics-addr", "not-an-address")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start diagnostics server")
}
