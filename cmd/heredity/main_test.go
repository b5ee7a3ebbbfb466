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
)

const potterCSV = `name,mother,father,trait
Harry,Lily,James,
James,,,1
Lily,,,0
`

// setup writes a data file and a minimal config file into a temp dir
func setup(t *testing.T, name, data, cfg string) (dataPath, cfgPath string) {
	t.Helper()
	dir := t.TempDir()
	dataPath = filepath.Join(dir, name)
	cfgPath = filepath.Join(dir, "heredity.yaml")
	require.NoError(t, os.WriteFile(dataPath, []byte(data), 0o644))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return dataPath, cfgPath
}

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRunPrintsTextReport(t *testing.T) {
	data, cfg := setup(t, "family0.csv", potterCSV, "version: 1\nlog:\n  level: warn\n")

	code, out, _ := runCLI("-config", cfg, data)
	require.Equal(t, exitOK, code)

	assert.True(t, strings.HasPrefix(out, "Harry:\n  Gene:\n    2: "))
	assert.Contains(t, out, "James:\n  Gene:\n")
	assert.Contains(t, out, "Lily:\n  Gene:\n")
	assert.Equal(t, 3, strings.Count(out, "  Trait:\n"))
	assert.True(t, strings.HasSuffix(out, "    True: 0.0000\n    False: 1.0000\n"), "Lily is observed without the trait")
}

func TestRunJSONOutput(t *testing.T) {
	data, cfg := setup(t, "family0.yaml",
		"individuals:\n  - name: Harry\n    mother: Lily\n    father: James\n  - name: James\n    trait: true\n  - name: Lily\n    trait: false\n",
		"version: 1\n")

	code, out, _ := runCLI("-config", cfg, "-output", "json", "-workers", "3", data)
	require.Equal(t, exitOK, code)

	var report struct {
		Individuals []struct {
			Name string `json:"name"`
		} `json:"individuals"`
		Worlds uint64 `json:"worlds"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, uint64(54), report.Worlds)
	require.Len(t, report.Individuals, 3)
	assert.Equal(t, "Harry", report.Individuals[0].Name)
}

func TestRunFormatOverride(t *testing.T) {
	data, cfg := setup(t, "family.txt", potterCSV, "version: 1\n")

	code, _, _ := runCLI("-config", cfg, data)
	assert.Equal(t, exitError, code, "unknown extension")

	code, out, _ := runCLI("-config", cfg, "-format", "csv", data)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Harry:")
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no data file", nil},
		{"two data files", []string{"a.csv", "b.csv"}},
		{"bad output", []string{"-output", "xml", "a.csv"}},
		{"negative workers", []string{"-workers", "-1", "a.csv"}},
		{"unknown flag", []string{"-frobnicate", "a.csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, _ := runCLI(tt.args...)
			assert.Equal(t, exitUsage, code)
			assert.Empty(t, out)
		})
	}
}

func TestRunFailures(t *testing.T) {
	t.Run("malformed family", func(t *testing.T) {
		data, cfg := setup(t, "bad.csv", "name,mother,father,trait\nHarry,Lily,,\nLily,,,\n", "version: 1\n")
		code, out, errOut := runCLI("-config", cfg, data)
		assert.Equal(t, exitError, code)
		assert.Empty(t, out)
		assert.Contains(t, errOut, "single_parent")
	})

	t.Run("missing file", func(t *testing.T) {
		_, cfg := setup(t, "x.csv", potterCSV, "version: 1\n")
		code, _, _ := runCLI("-config", cfg, filepath.Join(t.TempDir(), "missing.csv"))
		assert.Equal(t, exitError, code)
	})

	t.Run("invalid model config", func(t *testing.T) {
		data, cfg := setup(t, "family0.csv", potterCSV, "model:\n  mutation: 1.5\n")
		code, _, errOut := runCLI("-config", cfg, data)
		assert.Equal(t, exitError, code)
		assert.Contains(t, errOut, "mutation")
	})

	t.Run("too many individuals", func(t *testing.T) {
		data, cfg := setup(t, "family0.csv", potterCSV, "inference:\n  max_individuals: 2\n")
		code, _, _ := runCLI("-config", cfg, data)
		assert.Equal(t, exitError, code)
	})
}

func TestRunCustomGenePrior(t *testing.T) {
	data, cfg := setup(t, "root.csv", "name,mother,father,trait\nLily,,,\n",
		"model:\n  gene: {0: 0.5, 1: 0.25, 2: 0.25}\n")

	code, out, _ := runCLI("-config", cfg, data)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "    2: 0.2500\n    1: 0.2500\n    0: 0.5000\n")
}
