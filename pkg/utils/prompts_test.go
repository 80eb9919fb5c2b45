package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrompt(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "qa.txt")
	require.NoError(t, os.WriteFile(path, []byte("\n  Answer from the transcript only.\n"), 0644))

	content, err := LoadPrompt(path)
	require.NoError(t, err)
	assert.Equal(t, "Answer from the transcript only.", content)

	_, err = LoadPrompt(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("   \n"), 0644))
	_, err = LoadPrompt(empty)
	assert.Error(t, err)
}

func TestLoadPromptWithFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qa.txt")
	require.NoError(t, os.WriteFile(path, []byte("Actual prompt"), 0644))

	assert.Equal(t, "Actual prompt", LoadPromptWithFallback(path, "fallback"))
	assert.Equal(t, "fallback", LoadPromptWithFallback(filepath.Join(dir, "missing.txt"), "fallback"))
	assert.Equal(t, "fallback", LoadPromptWithFallback("", "fallback"))
}
