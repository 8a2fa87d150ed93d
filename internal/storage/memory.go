package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// MemoryStorage Implementation
// =============================================================================

// MemoryStorage implements the Storage interface with an in-process map.
// Objects live as long as the process. It also serves its objects over
// HTTP so previews can be displayed without an external store.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
	logger  *slog.Logger
}

type memoryObject struct {
	data        []byte
	contentType string
	modified    time.Time
	etag        string
}

// NewMemoryStorage creates an empty MemoryStorage whose URLs are prefixed
// with baseURL.
func NewMemoryStorage(baseURL string, logger *slog.Logger) *MemoryStorage {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		baseURL = "memory:/"
	}
	return &MemoryStorage{
		objects: make(map[string]memoryObject),
		baseURL: baseURL,
		logger:  logger,
	}
}

// Put stores data at the specified key.
func (s *MemoryStorage) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return opError("Put", key, err)
	}

	reader := data
	if opts.MaxSize > 0 {
		reader = io.LimitReader(data, opts.MaxSize+1)
	}
	buf, err := io.ReadAll(reader)
	if err != nil {
		return opError("Put", key, fmt.Errorf("failed to read data: %w", err))
	}
	if opts.MaxSize > 0 && int64(len(buf)) > opts.MaxSize {
		return opError("Put", key, ErrTooLarge)
	}

	sum := md5.Sum(buf)
	obj := memoryObject{
		data:        buf,
		contentType: DetectContentType(opts.ContentType, key, bytes.NewReader(buf)),
		modified:    time.Now(),
		etag:        hex.EncodeToString(sum[:]),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; exists && !opts.Overwrite {
		return opError("Put", key, ErrKeyExists)
	}
	s.objects[key] = obj

	s.logger.Debug("stored object in memory", "key", key, "size", len(buf), "content_type", obj.contentType)
	return nil
}

// Get retrieves the data at the specified key.
func (s *MemoryStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	if err := validateKey(key); err != nil {
		return nil, ObjectInfo{}, opError("Get", key, err)
	}

	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ObjectInfo{}, opError("Get", key, ErrNotFound)
	}

	info := ObjectInfo{
		Key:          key,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.modified,
		ETag:         obj.etag,
	}
	return io.NopCloser(bytes.NewReader(obj.data)), info, nil
}

// Delete removes the object at the specified key.
func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return opError("Delete", key, err)
	}

	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()

	s.logger.Debug("deleted object from memory", "key", key)
	return nil
}

// URL returns baseURL/key. The expires parameter is ignored.
func (s *MemoryStorage) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateKey(key); err != nil {
		return "", opError("URL", key, err)
	}
	return fmt.Sprintf("%s/%s", s.baseURL, key), nil
}

// Exists checks if an object exists at the specified key.
func (s *MemoryStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := validateKey(key); err != nil {
		return false, opError("Exists", key, err)
	}

	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	return ok, nil
}

// Len returns the number of stored objects.
func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// ServeHTTP serves the object named by the request path.
// Mount it behind http.StripPrefix.
func (s *MemoryStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")
	if validateKey(key) != nil {
		http.NotFound(w, r)
		return
	}

	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("ETag", `"`+obj.etag+`"`)
	w.Header().Set("Content-Type", obj.contentType)
	http.ServeContent(w, r, key, obj.modified, bytes.NewReader(obj.data))
}
