package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// =============================================================================
// LocalStorage Implementation
// =============================================================================

// LocalStorage implements the Storage interface using the local filesystem.
// It stores files in a base directory and serves them via HTTP.
//
// Path traversal prevention is enforced in resolvePath().
type LocalStorage struct {
	basePath string // Root directory for file storage
	baseURL  string // Base URL for file access
	files    http.Handler
	logger   *slog.Logger
}

// NewLocalStorage creates a new LocalStorage instance.
//
// The base directory is created if it doesn't exist.
func NewLocalStorage(cfg LocalConfig, logger *slog.Logger) (*LocalStorage, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("local storage base path is required")
	}

	absPath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	logger.Info("initialized local storage",
		"base_path", absPath,
		"base_url", baseURL,
	)

	return &LocalStorage{
		basePath: absPath,
		baseURL:  baseURL,
		files:    http.FileServer(http.Dir(absPath)),
		logger:   logger,
	}, nil
}

// =============================================================================
// Interface Implementation
// =============================================================================

// Put stores data at the specified key.
//
// The file is written to a temporary sibling and renamed into place so a
// concurrent reader never observes a partial preview.
func (s *LocalStorage) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	filePath, err := s.resolvePath(key)
	if err != nil {
		return opError("Put", key, err)
	}

	if !opts.Overwrite {
		if _, err := os.Stat(filePath); err == nil {
			return opError("Put", key, ErrKeyExists)
		}
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return opError("Put", key, fmt.Errorf("failed to create directory: %w", err))
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return opError("Put", key, fmt.Errorf("failed to create file: %w", err))
	}
	defer os.Remove(tmp.Name())

	reader := data
	if opts.MaxSize > 0 {
		reader = io.LimitReader(data, opts.MaxSize+1)
	}
	written, err := io.Copy(tmp, reader)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return opError("Put", key, fmt.Errorf("failed to write file: %w", err))
	}
	if opts.MaxSize > 0 && written > opts.MaxSize {
		return opError("Put", key, ErrTooLarge)
	}

	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return opError("Put", key, fmt.Errorf("failed to move file into place: %w", err))
	}

	s.logger.Debug("stored file",
		"key", key,
		"path", filePath,
		"size", written,
		"content_type", opts.ContentType,
	)

	return nil
}

// Get retrieves the data at the specified key.
func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if ctx.Err() != nil {
		return nil, ObjectInfo{}, ctx.Err()
	}

	filePath, err := s.resolvePath(key)
	if err != nil {
		return nil, ObjectInfo{}, opError("Get", key, err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ObjectInfo{}, opError("Get", key, ErrNotFound)
		}
		return nil, ObjectInfo{}, opError("Get", key, fmt.Errorf("failed to open file: %w", err))
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, ObjectInfo{}, opError("Get", key, fmt.Errorf("failed to stat file: %w", err))
	}

	info := ObjectInfo{
		Key:          key,
		Size:         stat.Size(),
		ContentType:  DetectContentType("", key, nil),
		LastModified: stat.ModTime(),
	}

	return file, info, nil
}

// Delete removes the object at the specified key.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	filePath, err := s.resolvePath(key)
	if err != nil {
		return opError("Delete", key, err)
	}

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return opError("Delete", key, fmt.Errorf("failed to delete file: %w", err))
	}

	s.logger.Debug("deleted file", "key", key, "path", filePath)

	return nil
}

// URL returns baseURL/key. Local files never expire.
func (s *LocalStorage) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	if _, err := s.resolvePath(key); err != nil {
		return "", opError("URL", key, err)
	}

	return fmt.Sprintf("%s/%s", s.baseURL, key), nil
}

// Exists checks if an object exists at the specified key.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	filePath, err := s.resolvePath(key)
	if err != nil {
		return false, opError("Exists", key, err)
	}

	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, opError("Exists", key, fmt.Errorf("failed to stat file: %w", err))
	}

	return true, nil
}

// ServeHTTP serves stored files. Mount it behind http.StripPrefix.
func (s *LocalStorage) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filePath, err := s.resolvePath(strings.TrimPrefix(r.URL.Path, "/"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if stat, err := os.Stat(filePath); err != nil || stat.IsDir() {
		http.NotFound(w, r)
		return
	}
	s.files.ServeHTTP(w, r)
}

// =============================================================================
// Internal Helpers
// =============================================================================

// resolvePath converts a storage key to an absolute file path inside the
// base directory.
func (s *LocalStorage) resolvePath(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	absPath := filepath.Join(s.basePath, filepath.FromSlash(key))

	rel, err := filepath.Rel(s.basePath, absPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrInvalidKey
	}

	return absPath, nil
}
