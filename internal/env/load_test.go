package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(`
# search
GOOGLE_SEARCH_API_KEY="abc123"
export XRANCHOR_TEST_HOST='http://gpu:11434'
XRANCHOR_TEST_KEEP=from-file
not a pair
=missing-key
`), 0644))

	t.Setenv("GOOGLE_SEARCH_API_KEY", "")
	os.Unsetenv("GOOGLE_SEARCH_API_KEY")
	t.Setenv("XRANCHOR_TEST_HOST", "")
	os.Unsetenv("XRANCHOR_TEST_HOST")
	t.Setenv("XRANCHOR_TEST_KEEP", "from-process")

	require.NoError(t, Load(path))
	assert.Equal(t, "abc123", os.Getenv("GOOGLE_SEARCH_API_KEY"))
	assert.Equal(t, "http://gpu:11434", os.Getenv("XRANCHOR_TEST_HOST"))
	assert.Equal(t, "from-process", os.Getenv("XRANCHOR_TEST_KEEP"))
}

func TestLoadMissingFile(t *testing.T) {
	assert.NoError(t, Load(filepath.Join(t.TempDir(), ".env")))
}
