package storage

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// =============================================================================
// Content Type Detection
// =============================================================================

// DetectContentType determines the MIME type of an object.
//
// Detection priority:
// 1. If providedType is non-empty, use it directly
// 2. Try to detect from the key extension
// 3. Sniff the first 512 bytes of data (if available)
// 4. Fall back to "application/octet-stream"
func DetectContentType(providedType, key string, data io.Reader) string {
	if providedType != "" {
		return providedType
	}

	ext := strings.ToLower(filepath.Ext(key))
	if contentType, ok := imageExtensions[ext]; ok {
		return contentType
	}
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}

	if data != nil {
		buffer := make([]byte, 512)
		n, err := io.ReadFull(data, buffer)
		if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
			return http.DetectContentType(buffer[:n])
		}
	}

	return "application/octet-stream"
}

// =============================================================================
// File Extension Helpers
// =============================================================================

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ExtensionForContentType returns the file extension used for keys of the
// given MIME type.
func ExtensionForContentType(contentType string) string {
	baseType := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))

	switch baseType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}

	if exts, err := mime.ExtensionsByType(baseType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// validateKey rejects empty keys and keys that try to climb out of the
// storage root.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
