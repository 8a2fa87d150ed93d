package report

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/DukeRupert/defectlens/internal/presentation"
	"github.com/DukeRupert/defectlens/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completedReport() presentation.Report {
	return presentation.Report{
		State: "completed",
		Image: &presentation.ImageView{Filename: "façade.jpg", ContentType: "image/jpeg", SizeMB: 1.2},
		Condition: &presentation.ConditionView{
			Label:   "Damaged",
			Color:   "red",
			Damaged: true,
			Summary: "Spalling at the balcony slab edge with exposed rebar.",
		},
		Defects: []presentation.DefectCard{
			{Kind: "Concrete Spalling", Label: "Concrete Spalling", Description: "Exposed reinforcement, 30 cm wide.", Percent: 91, Bucket: "High", Color: "emerald"},
			{Kind: "Cracks", Label: "Cracks", Description: "Hairline crack below the window sill.", Percent: 45, Bucket: "Medium", Color: "yellow"},
			{Kind: "Other", Label: "Other", Description: "Staining of unclear origin.", Percent: 0, Bucket: "Low", Color: "red"},
		},
	}
}

func encodeImage(t *testing.T, format string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.RGBA{B: 255, A: 255})
	}
	var buf bytes.Buffer
	switch format {
	case "png":
		require.NoError(t, png.Encode(&buf, img))
	default:
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	}
	return buf.Bytes()
}

func TestPDFGenerator_Generate(t *testing.T) {
	tests := []struct {
		name  string
		image *ImageData
	}{
		{"no image", nil},
		{"jpeg preview", &ImageData{Data: encodeImage(t, "jpeg"), ContentType: "image/jpeg"}},
		{"png preview", &ImageData{Data: encodeImage(t, "png"), ContentType: "image/png"}},
		{"webp is skipped", &ImageData{Data: []byte("RIFF0000WEBPVP8 "), ContentType: "image/webp"}},
		{"corrupt jpeg is skipped", &ImageData{Data: []byte("not a jpeg"), ContentType: "image/jpeg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := &Data{Report: completedReport(), Image: tt.image, GeneratedAt: time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)}

			var buf bytes.Buffer
			n, err := NewPDFGenerator().Generate(context.Background(), data, &buf)
			require.NoError(t, err)
			assert.Equal(t, int64(buf.Len()), n)
			assert.True(t, strings.HasPrefix(buf.String(), "%PDF-"))
		})
	}
}

func TestPDFGenerator_NoDefects(t *testing.T) {
	rep := completedReport()
	rep.Condition.Label, rep.Condition.Color, rep.Condition.Damaged = "Sound", "green", false
	rep.Defects = nil

	var buf bytes.Buffer
	_, err := NewPDFGenerator().Generate(context.Background(), &Data{Report: rep, GeneratedAt: time.Now()}, &buf)
	require.NoError(t, err)
	assert.NotZero(t, buf.Len())
}

func TestPDFGenerator_ManyDefectsPaginate(t *testing.T) {
	rep := completedReport()
	for i := 0; i < 40; i++ {
		rep.Defects = append(rep.Defects, rep.Defects[1])
	}

	var buf bytes.Buffer
	_, err := NewPDFGenerator().Generate(context.Background(), &Data{Report: rep, GeneratedAt: time.Now()}, &buf)
	require.NoError(t, err)

	m := regexp.MustCompile(`/Count (\d+)`).FindStringSubmatch(buf.String())
	require.Len(t, m, 2)
	pages, err := strconv.Atoi(m[1])
	require.NoError(t, err)
	assert.Greater(t, pages, 1)
}

func TestPDFGenerator_RequiresResult(t *testing.T) {
	g := NewPDFGenerator()

	_, err := g.Generate(context.Background(), &Data{Report: presentation.Report{State: "ready"}}, io.Discard)
	assert.ErrorIs(t, err, ErrNoResult)

	_, err = g.Generate(context.Background(), nil, io.Discard)
	assert.ErrorIs(t, err, ErrNoResult)

	assert.Equal(t, "application/pdf", g.ContentType())
}

func TestPDFGenerator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPDFGenerator().Generate(ctx, &Data{Report: completedReport()}, io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHexToRGB(t *testing.T) {
	tests := []struct {
		hex     string
		r, g, b int
	}{
		{"#1E3A5F", 30, 58, 95},
		{"dc2626", 220, 38, 38},
		{"#FFF", 0, 0, 0},
		{"", 0, 0, 0},
	}

	for _, tt := range tests {
		r, g, b := HexToRGB(tt.hex)
		assert.Equal(t, []int{tt.r, tt.g, tt.b}, []int{r, g, b}, tt.hex)
	}
}

func TestPaletteColor(t *testing.T) {
	assert.Equal(t, "#DC2626", PaletteColor("red"))
	assert.Equal(t, "#10B981", PaletteColor("emerald"))
	assert.Equal(t, BrandColors.TextMuted, PaletteColor("mauve"))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 10))
	assert.Equal(t, "façade-...", TruncateText("façade-north-elevation.jpg", 10))
	assert.Equal(t, "ab", TruncateText("abcdef", 2))
}

func TestStorageImageLoader(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	data := encodeImage(t, "jpeg")
	require.NoError(t, store.Put(ctx, "previews/a/b.jpg", bytes.NewReader(data), storage.PutOptions{}))

	loader := NewStorageImageLoader(store)

	img, err := loader.Load(ctx, "previews/a/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, data, img.Data)
	assert.Equal(t, "image/jpeg", img.ContentType)

	img, err = loader.Load(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, img)

	_, err = loader.Load(ctx, "previews/missing.jpg")
	assert.True(t, storage.IsNotFound(err))
}
