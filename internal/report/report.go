// Package report renders a completed analysis as a downloadable document.
//
// This package defines a Generator interface implemented by PDFGenerator,
// along with the palette and formatting helpers shared by report layouts.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/DukeRupert/defectlens/internal/presentation"
	"github.com/DukeRupert/defectlens/internal/storage"
)

// =============================================================================
// Generator Interface
// =============================================================================

// Generator defines the interface for report generators.
type Generator interface {
	// Generate creates a report and writes it to the provided writer.
	// Returns the number of bytes written and any error.
	Generate(ctx context.Context, data *Data, w io.Writer) (int64, error)

	// ContentType returns the MIME type of the generated document.
	ContentType() string
}

// Data is everything a generator needs to render one analysis.
type Data struct {
	Report      presentation.Report // Must carry a condition
	Image       *ImageData          // Preview to embed; nil to omit
	GeneratedAt time.Time
}

// HasResult reports whether the data describes a completed analysis.
func (d *Data) HasResult() bool {
	return d != nil && d.Report.Condition != nil
}

// =============================================================================
// Colors
// =============================================================================

// BrandColors defines the color palette for reports.
var BrandColors = struct {
	Navy       string // Header bar and section titles
	TextDark   string // Primary text
	TextMuted  string // Secondary text
	Border     string // Borders and dividers
	Background string // Light background
}{
	Navy:       "#1E3A5F",
	TextDark:   "#1F2937",
	TextMuted:  "#6B7280",
	Border:     "#E5E7EB",
	Background: "#F9FAFB",
}

// PaletteColors maps the presentation palette names to hex colors.
var PaletteColors = map[string]string{
	"red":     "#DC2626", // Red-600
	"green":   "#16A34A", // Green-600
	"emerald": "#10B981", // Emerald-500
	"yellow":  "#EAB308", // Yellow-500
}

// PaletteColor returns the hex color for a palette name.
func PaletteColor(name string) string {
	if color, ok := PaletteColors[name]; ok {
		return color
	}
	return BrandColors.TextMuted
}

// =============================================================================
// Color Conversion Helpers
// =============================================================================

// HexToRGB converts a hex color string to RGB values.
// Input format: "#RRGGBB" or "RRGGBB"
func HexToRGB(hex string) (r, g, b int) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}

	r = hexToDec(hex[0:2])
	g = hexToDec(hex[2:4])
	b = hexToDec(hex[4:6])
	return
}

// hexToDec converts a 2-character hex string to decimal.
func hexToDec(hex string) int {
	val := 0
	for _, c := range hex {
		val *= 16
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	return val
}

// =============================================================================
// Text Formatting Helpers
// =============================================================================

// TruncateText truncates text to a maximum number of runes, adding an
// ellipsis if needed.
func TruncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// FormatDateTime formats a datetime for display in reports.
func FormatDateTime(t time.Time) string {
	return t.Format("January 2, 2006 at 3:04 PM")
}

// =============================================================================
// Preview Images
// =============================================================================

// ImageData holds preview bytes for embedding in reports.
type ImageData struct {
	Data        []byte
	ContentType string
}

// ImageLoader abstracts preview fetching for report generation.
type ImageLoader interface {
	Load(ctx context.Context, key string) (*ImageData, error)
}

// StorageImageLoader reads previews from object storage.
type StorageImageLoader struct {
	store storage.Storage
}

// NewStorageImageLoader creates an ImageLoader backed by store.
func NewStorageImageLoader(store storage.Storage) *StorageImageLoader {
	return &StorageImageLoader{store: store}
}

// Load fetches the preview stored at key.
// Returns nil, nil if the key is empty.
func (l *StorageImageLoader) Load(ctx context.Context, key string) (*ImageData, error) {
	if key == "" {
		return nil, nil
	}

	rc, info, err := l.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get preview: %w", err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("read preview data: %w", err)
	}

	return &ImageData{
		Data:        buf.Bytes(),
		ContentType: storage.DetectContentType(info.ContentType, key, bytes.NewReader(buf.Bytes())),
	}, nil
}
