package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// exerciseStorage runs the behaviour every backend must share.
func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()
	key := PreviewKey(uuid.New(), "image/png")

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Put(ctx, key, strings.NewReader("preview-bytes"), PutOptions{ContentType: "image/png"}))

	err = s.Put(ctx, key, strings.NewReader("again"), PutOptions{})
	assert.True(t, IsKeyExists(err), "got %v", err)

	require.NoError(t, s.Put(ctx, key, strings.NewReader("replaced"), PutOptions{Overwrite: true}))

	body, info, err := s.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, body.Close())
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(data))
	assert.Equal(t, int64(len("replaced")), info.Size)
	assert.Equal(t, "image/png", info.ContentType)

	url, err := s.URL(ctx, key, 0)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, key), url)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key), "delete is idempotent")

	_, _, err = s.Get(ctx, key)
	assert.True(t, IsNotFound(err), "got %v", err)

	err = s.Put(ctx, "previews/big.png", bytes.NewReader(make([]byte, 11)), PutOptions{MaxSize: 10})
	assert.True(t, IsTooLarge(err), "got %v", err)

	for _, bad := range []string{"", "../escape.png", "previews/../../etc/passwd", "/abs.png"} {
		assert.True(t, IsInvalidKey(s.Put(ctx, bad, strings.NewReader("x"), PutOptions{})), "key %q", bad)
	}
}

func TestMemoryStorage(t *testing.T) {
	s := NewMemoryStorage("http://localhost/files/", testLogger())
	exerciseStorage(t, s)
	assert.Equal(t, 0, s.Len())
}

func TestLocalStorage(t *testing.T) {
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir(), BaseURL: "http://localhost/files"}, testLogger())
	require.NoError(t, err)
	exerciseStorage(t, s)
}

func TestMemoryStorage_ServeHTTP(t *testing.T) {
	s := NewMemoryStorage("http://example.test/files", testLogger())
	require.NoError(t, s.Put(context.Background(), "previews/a.jpg", strings.NewReader("jpeg"), PutOptions{ContentType: "image/jpeg"}))

	srv := httptest.NewServer(http.StripPrefix("/files/", s))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/files/previews/a.jpg")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))

	missing, err := http.Get(srv.URL + "/files/previews/missing.jpg")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestLocalStorage_ServeHTTPHidesDirectories(t *testing.T) {
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir(), BaseURL: "/files"}, testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "previews/x/a.png", strings.NewReader("png"), PutOptions{}))

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/previews/x/a.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/previews/x/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_SelectsProvider(t *testing.T) {
	s, err := New(Config{}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, s)

	s, err = New(Config{Provider: ProviderLocal, BaseURL: "/files", Local: LocalConfig{BasePath: t.TempDir()}}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = New(Config{Provider: "ftp"}, testLogger())
	assert.Error(t, err)
}

func TestPreviewKey(t *testing.T) {
	id := uuid.New()
	a := PreviewKey(id, "image/jpeg")
	b := PreviewKey(id, "image/jpeg")

	assert.True(t, strings.HasPrefix(a, "previews/"+id.String()+"/"))
	assert.True(t, strings.HasSuffix(a, ".jpg"))
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(PreviewKey(id, "image/webp"), ".webp"))
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/gif", DetectContentType("image/gif", "a.png", nil))
	assert.Equal(t, "image/webp", DetectContentType("", "a.webp", nil))
	assert.Equal(t, "image/png", DetectContentType("", "noext", bytes.NewReader([]byte("\x89PNG\r\n\x1a\n0000"))))
	assert.Equal(t, "application/octet-stream", DetectContentType("", "noext", nil))
}
