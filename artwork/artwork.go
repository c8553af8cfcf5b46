package artwork

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
	color_extractor "github.com/marekm4/color-extractor"
	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"
)

const (
	// DefaultAccent is Spotify green, used whenever no suitable colour
	// can be pulled from the cover art.
	DefaultAccent = "53b14f"

	coverSize         = 300
	maxPaletteColours = 10
	luminanceCutoff   = 80
	fetchCacheSize    = 128
)

// Extractor fetches cover art, re-encodes it at a fixed square size and
// picks a display accent colour from its palette. It never fails to the
// caller: any fetch or decode problem yields no image bytes and the
// fallback accent.
type Extractor struct {
	client  *http.Client
	fetches *lru.Cache[string, []byte]
}

func NewExtractor(client *http.Client) (*Extractor, error) {
	fetches, err := lru.New[string, []byte](fetchCacheSize)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		client:  client,
		fetches: fetches,
	}, nil
}

// Extract returns resized PNG bytes plus the chosen accent colour as a
// bare hex string. With skipDark set, palette candidates below the
// luminance cutoff are passed over in favour of the first light one.
func (e *Extractor) Extract(ctx context.Context, coverURL string, skipDark bool) ([]byte, string) {
	if coverURL == "" {
		return nil, DefaultAccent
	}

	raw, err := e.fetchCover(ctx, coverURL)
	if err != nil {
		slog.With(slog.String("cover_url", coverURL), slog.Any("error", err)).Error("Failed to fetch cover art")
		return nil, DefaultAccent
	}

	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		slog.With(slog.String("cover_url", coverURL), slog.Any("error", err)).Error("Failed to decode cover art")
		return nil, DefaultAccent
	}

	resized := image.NewRGBA(image.Rect(0, 0, coverSize, coverSize))
	draw.CatmullRom.Scale(resized, resized.Bounds(), decoded, decoded.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resized); err != nil {
		slog.With(slog.String("cover_url", coverURL), slog.Any("error", err)).Error("Failed to re-encode cover art")
		return nil, DefaultAccent
	}

	palette := color_extractor.ExtractColors(decoded)
	if len(palette) > maxPaletteColours {
		palette = palette[:maxPaletteColours]
	}

	return buf.Bytes(), SelectAccent(palette, skipDark, DefaultAccent)
}

// SelectAccent walks palette candidates in saliency order. Dark colours are
// skipped when requested, otherwise the first candidate wins outright.
func SelectAccent(palette []color.Color, skipDark bool, fallback string) string {
	for _, c := range palette {
		r, g, b := rgb(c)
		if skipDark && isDark(r, g, b) {
			continue
		}
		return fmt.Sprintf("%02x%02x%02x", r, g, b)
	}
	return fallback
}

// Perceptual luminance, same weighting as ITU-R BT.601.
func isDark(r, g, b uint8) bool {
	return float64(r)*0.299+float64(g)*0.587+float64(b)*0.114 < luminanceCutoff
}

func rgb(c color.Color) (uint8, uint8, uint8) {
	r, g, b, _ := c.RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

func (e *Extractor) fetchCover(ctx context.Context, coverURL string) ([]byte, error) {
	if cached, ok := e.fetches.Get(coverURL); ok {
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return nil, err
	}

	res, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork: cover endpoint returned %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	e.fetches.Add(coverURL, body)
	return body, nil
}
