package preview

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/disintegration/imaging"

	// Registers the WebP decoder with image.Decode.
	_ "golang.org/x/image/webp"
)

// ThumbnailProcessor handles preview generation from images.
type ThumbnailProcessor interface {
	// GenerateThumbnail returns JPEG bytes that fit within maxWidth x maxHeight
	// along with the original width and height.
	GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error)
}

// imagingProcessor implements ThumbnailProcessor using the imaging library.
type imagingProcessor struct {
	quality int
}

// NewImagingProcessor creates a new thumbnail processor using the imaging library.
func NewImagingProcessor() ThumbnailProcessor {
	return &imagingProcessor{quality: domain.PreviewJPEGQuality}
}

// GenerateThumbnail decodes JPEG, PNG or WebP data and re-encodes it as a
// JPEG that preserves the aspect ratio. Images already inside the bounds
// are re-encoded without resizing.
func (p *imagingProcessor) GenerateThumbnail(data io.Reader, maxWidth, maxHeight int) ([]byte, int, int, error) {
	img, _, err := image.Decode(data)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width > maxWidth || height > maxHeight {
		img = imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return buf.Bytes(), width, height, nil
}
