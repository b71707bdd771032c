package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		src  string
		code int
		diag string
	}{
		{"SECTION TEXT\nSTOP\n", exitOK, ""},
		{"A: EQU\nSECTION TEXT\nSTOP\n", exitPreprocess, "[Syntactic error] line 1: "},
		{"SECTION TEXT\nX: STOP\nX: STOP\n", exitSymbols, "[Semantic error] line 3: "},
		{"SECTION TEXT\nLOAD Y\nSTOP\n", exitCode, "[Semantic error] line 2: "},
	}

	for i, test := range tests {
		base := filepath.Join(dir, "prog"+string(rune('a'+i)))
		require.NoError(t, os.WriteFile(base+".asm", []byte(test.src), 0644))

		var stderr bytes.Buffer
		code := run([]string{base}, nil, &stderr)
		assert.Equal(t, test.code, code, "source %q", test.src)
		if test.diag != "" {
			assert.Contains(t, stderr.String(), test.diag)
		}

		_, err := os.Stat(base + ".obj")
		assert.Equal(t, test.code == exitOK, err == nil)
	}
}

func TestRunUsage(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, exitUsage, run(nil, nil, &stderr))
	assert.Equal(t, exitUsage, run([]string{"a", "b"}, nil, &stderr))
	assert.Contains(t, stderr.String(), "usage:")

	stderr.Reset()
	assert.Equal(t, exitFile, run([]string{filepath.Join(t.TempDir(), "missing")}, nil, &stderr))
	assert.Contains(t, stderr.String(), "sbasm:")
}
