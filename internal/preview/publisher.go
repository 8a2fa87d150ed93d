// Package preview publishes displayable previews of selected images.
//
// A preview is created when an image is selected and released when the image
// is replaced or the workflow is disposed. Each Create is paired with exactly
// one Release by the caller.
package preview

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/DukeRupert/defectlens/internal/domain"
	"github.com/DukeRupert/defectlens/internal/metrics"
	"github.com/DukeRupert/defectlens/internal/storage"
)

// Ref identifies a published preview.
type Ref struct {
	Key    string // Storage key
	URL    string // Displayable URL
	Width  int    // Original image width, 0 when undecodable
	Height int    // Original image height, 0 when undecodable
}

// IsZero reports whether r refers to no preview.
func (r Ref) IsZero() bool {
	return r.Key == ""
}

// Config controls preview generation.
type Config struct {
	MaxSize int           // Longest edge in pixels
	URLTTL  time.Duration // Lifetime of signed URLs; 0 lets the store decide
}

// Publisher creates and releases previews in a storage backend.
type Publisher struct {
	store     storage.Storage
	processor ThumbnailProcessor
	config    Config
	logger    *slog.Logger
}

// NewPublisher creates a Publisher backed by store.
func NewPublisher(store storage.Storage, processor ThumbnailProcessor, config Config, logger *slog.Logger) *Publisher {
	if processor == nil {
		processor = NewImagingProcessor()
	}
	if config.MaxSize <= 0 {
		config.MaxSize = domain.PreviewMaxWidth
	}
	return &Publisher{
		store:     store,
		processor: processor,
		config:    config,
		logger:    logger,
	}
}

// Create publishes a preview for img and returns its reference.
//
// The image is re-encoded as a bounded JPEG when it can be decoded. When it
// cannot, the original bytes are published unchanged so the user still sees
// what they picked.
func (p *Publisher) Create(ctx context.Context, img *domain.SelectedImage) (Ref, error) {
	const op = "preview.create"

	data, contentType := img.Data, img.ContentType
	var width, height int

	thumb, w, h, err := p.processor.GenerateThumbnail(bytes.NewReader(img.Data), p.config.MaxSize, p.config.MaxSize)
	if err != nil {
		p.logger.Warn("Preview thumbnail failed, publishing original", "image_id", img.ID, "error", err)
	} else {
		data, contentType, width, height = thumb, "image/jpeg", w, h
	}

	key := storage.PreviewKey(img.ID, contentType)
	if err := p.store.Put(ctx, key, bytes.NewReader(data), storage.PutOptions{ContentType: contentType}); err != nil {
		return Ref{}, domain.Internal(err, op, "Failed to publish preview")
	}

	url, err := p.store.URL(ctx, key, p.config.URLTTL)
	if err != nil {
		if delErr := p.store.Delete(ctx, key); delErr != nil {
			p.logger.Error("Failed to clean up unpublished preview", "key", key, "error", delErr)
		}
		return Ref{}, domain.Internal(err, op, "Failed to publish preview")
	}

	metrics.PreviewsLive.Inc()
	p.logger.Debug("Preview published", "image_id", img.ID, "key", key, "size", len(data))

	return Ref{Key: key, URL: url, Width: width, Height: height}, nil
}

// Release deletes the preview. Releasing the zero Ref is a no-op.
func (p *Publisher) Release(ctx context.Context, ref Ref) error {
	if ref.IsZero() {
		return nil
	}
	if err := p.store.Delete(ctx, ref.Key); err != nil {
		return domain.Internal(err, "preview.release", "Failed to release preview")
	}
	metrics.PreviewsLive.Dec()
	return nil
}
