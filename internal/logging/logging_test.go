package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Level: "WARN", Console: &buf, NoColor: true})
	require.NoError(t, err)
	defer closeFn()

	logger.Info().Msg("hidden")
	logger.Warn().Str("student", "20231234").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "student=20231234")
}

func TestNewInvalidLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ojspy.log")
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Console: &buf, NoColor: true, FilePath: path})
	require.NoError(t, err)
	logger.Info().Int("problems", 3).Msg("problem list loaded")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"problems":3`)
	assert.Contains(t, buf.String(), "problem list loaded")
}

func TestLineWriter(t *testing.T) {
	var lines []string
	w := NewLineWriter(func(line string) { lines = append(lines, line) })

	_, err := w.Write([]byte("first\r\nsec"))
	require.NoError(t, err)
	_, err = w.Write([]byte("ond\nthi"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, lines)

	w.Flush()
	assert.Equal(t, []string{"first", "second", "thi"}, lines)
}
