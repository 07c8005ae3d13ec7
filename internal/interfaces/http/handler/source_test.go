package handler

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gofmt collapses runs of blank lines; catch files that skipped it
func TestHandlerSources_NoConsecutiveBlankLines(t *testing.T) {
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, name := range files {
		src, err := os.ReadFile(name)
		require.NoError(t, err)
		src = bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
		assert.False(t, bytes.Contains(src, []byte("\n\n\n")), "%s has consecutive blank lines", name)
	}
}
