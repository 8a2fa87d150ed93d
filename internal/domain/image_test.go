package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateImageSize(t *testing.T) {
	tests := []struct {
		name    string
		size    int64
		wantErr bool
	}{
		{"empty", 0, true},
		{"one byte", 1, false},
		{"two megabytes", 2 * 1024 * 1024, false},
		{"exactly at limit", MaxImageSize, false},
		{"one byte over", MaxImageSize + 1, true},
		{"five megabytes", 5 * 1024 * 1024, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImageSize(tt.size)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, IsInvalidInput(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateImageContentType(t *testing.T) {
	for _, ct := range []string{"image/png", "image/jpeg", "image/webp", "IMAGE/PNG", "image/jpeg; charset=binary", "image/jpg"} {
		assert.NoError(t, ValidateImageContentType(ct), ct)
	}
	for _, ct := range []string{"", "image/gif", "image/heic", "application/pdf"} {
		err := ValidateImageContentType(ct)
		assert.Error(t, err, ct)
		assert.Equal(t, EINVALID, ErrorCode(err))
	}
}

func TestNewSelectedImage(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	img := NewSelectedImage(ImageFile{
		Filename:    "facade.JPG",
		ContentType: "image/jpg",
		Data:        []byte("abc"),
	}, now)

	assert.Equal(t, "image/jpeg", img.ContentType)
	assert.Equal(t, int64(3), img.SizeBytes)
	assert.Equal(t, now, img.SelectedAt)
	assert.NotEqual(t, uuid.Nil, img.ID)
}
