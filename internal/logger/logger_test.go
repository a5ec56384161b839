package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecorderKeepsLastLines(t *testing.T) {
	rec := NewRecorder(3)
	l := zap.New(rec)
	for i := 0; i < 5; i++ {
		l.Info(fmt.Sprintf("line %d", i))
	}
	l.Debug("hidden")
	l.Warn("careful")

	lines := rec.Lines()
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], "line 3"))
	assert.True(t, strings.HasSuffix(lines[2], "WARN careful"))
	assert.True(t, strings.HasPrefix(lines[2], "["))
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "xranchor.log")
	l, err := New(Options{File: path, Verbose: true})
	require.NoError(t, err)

	l.Debug("debug line", zap.String("k", "v"))
	l.Info("placed model")
	l.Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"debug line"`)
	assert.Contains(t, string(data), `"msg":"placed model"`)
	assert.Len(t, l.Lines(), 1)
}
