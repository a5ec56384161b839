package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceName(t *testing.T) {
	tests := []struct {
		url, ct, cd, want string
	}{
		{"https://example.com/img/koala.jpg?w=800", "image/jpeg", "", "koala.jpg"},
		{"https://example.com/img/koala", "image/png; charset=binary", "", "koala.png"},
		{"https://example.com/a/b.webp", "application/octet-stream", "", "b.webp"},
		{"https://example.com/x", "image/gif", `attachment; filename="my photo.gif"`, "my_photo.gif"},
		{"https://example.com/", "", "", "download.bin"},
		{"https://example.com/raw", "text/plain", "", "raw.bin"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, resourceName(tt.url, tt.ct, tt.cd))
		})
	}
}

func TestFetchAndSave(t *testing.T) {
	body := []byte("\x89PNG\r\n\x1a\nrest")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	res, err := Fetch(context.Background(), srv.URL+"/pics/stop-sign")
	require.NoError(t, err)
	assert.Equal(t, body, res.Data)
	assert.Equal(t, "image/png", res.ContentType)
	assert.Equal(t, "stop-sign.png", res.Name)

	dir := filepath.Join(t.TempDir(), "textures")
	path, err := Save(res, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "stop-sign.png"), path)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestFetchNonOK(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Download(context.Background(), srv.URL+"/missing.png", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}
