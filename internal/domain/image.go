// Package domain contains core business types and interfaces.
//
// This file defines the SelectedImage type and the constraints applied to
// photographs before they are submitted for analysis.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Image Constants
// =============================================================================

// SupportedImageTypes maps MIME types to their human-readable names.
var SupportedImageTypes = map[string]string{
	"image/jpeg": "JPEG",
	"image/png":  "PNG",
	"image/webp": "WEBP",
}

const (
	// MaxImageSize is the maximum allowed size for an analyzed image (4MiB).
	MaxImageSize = 4 * 1024 * 1024

	// PreviewMaxWidth is the maximum width for generated previews.
	PreviewMaxWidth = 1024

	// PreviewMaxHeight is the maximum height for generated previews.
	PreviewMaxHeight = 1024

	// PreviewJPEGQuality is the JPEG quality for preview generation (0-100).
	PreviewJPEGQuality = 85
)

// =============================================================================
// Image Domain Types
// =============================================================================

// ImageFile is a file selection event from the UI.
type ImageFile struct {
	Filename    string // Original filename, informational
	ContentType string // Declared MIME type
	SizeBytes   int64  // Declared byte length
	Data        []byte // Raw image bytes
}

// Size returns the declared size, falling back to len(Data) when the
// declaration is missing.
func (f ImageFile) Size() int64 {
	if f.SizeBytes > 0 {
		return f.SizeBytes
	}
	return int64(len(f.Data))
}

// SelectedImage is the image currently held by a workflow controller.
type SelectedImage struct {
	ID          uuid.UUID // Identifier used for preview keys and tracing
	Filename    string    // Original filename
	ContentType string    // Normalized MIME type
	SizeBytes   int64     // Size in bytes
	Data        []byte    // Raw image bytes
	SelectedAt  time.Time // When the image was selected
}

// NewSelectedImage builds a SelectedImage from a selection event.
func NewSelectedImage(f ImageFile, now time.Time) *SelectedImage {
	return &SelectedImage{
		ID:          uuid.New(),
		Filename:    f.Filename,
		ContentType: NormalizeContentType(f.ContentType),
		SizeBytes:   f.Size(),
		Data:        f.Data,
		SelectedAt:  now,
	}
}

// =============================================================================
// Validation Helpers
// =============================================================================

// NormalizeContentType strips parameters and case from a MIME type and
// folds the non-standard image/jpg alias into image/jpeg.
func NormalizeContentType(contentType string) string {
	base := strings.Split(contentType, ";")[0]
	base = strings.TrimSpace(strings.ToLower(base))
	if base == "image/jpg" {
		return "image/jpeg"
	}
	return base
}

// IsValidImageContentType checks if the content type is supported.
func IsValidImageContentType(contentType string) bool {
	_, ok := SupportedImageTypes[NormalizeContentType(contentType)]
	return ok
}

// ValidateImageContentType returns an invalid input error for unsupported types.
func ValidateImageContentType(contentType string) error {
	if !IsValidImageContentType(contentType) {
		return Errorf(EINVALID, "image.validate", "Unsupported image type %q. Please upload a PNG, JPG, or WEBP image.", contentType)
	}
	return nil
}

// ValidateImageSize checks if the file size is within limits.
func ValidateImageSize(size int64) error {
	if size > MaxImageSize {
		return Errorf(EINVALID, "image.validate", "File is too large (%.1fMB). Please upload an image under %dMB.", float64(size)/(1024*1024), MaxImageSize/(1024*1024))
	}
	if size <= 0 {
		return Invalid("image.validate", "Image file is empty")
	}
	return nil
}
