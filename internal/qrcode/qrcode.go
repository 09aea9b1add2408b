// Package qrcode renders form URLs as PNG QR codes.
package qrcode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	goqrcode "github.com/skip2/go-qrcode"
)

// Default rendering parameters.
const (
	DefaultSize   = 300
	DefaultMargin = 2
)

var (
	// DefaultDark is slate-900.
	DefaultDark = color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff}
	// DefaultLight is white.
	DefaultLight = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// ErrEmptyContent is returned when there is nothing to encode.
var ErrEmptyContent = errors.New("qrcode: empty content")

// Options controls rendering. A zero Size or colour falls back to the
// defaults and Margin is taken as given. Level applies only when LevelSet is
// true; otherwise Medium recovery is used.
type Options struct {
	Size     int
	Margin   int
	Dark     color.Color
	Light    color.Color
	Level    goqrcode.RecoveryLevel
	LevelSet bool
}

// Generator encodes strings into PNG images.
type Generator struct {
	size   int
	margin int
	dark   color.Color
	light  color.Color
	level  goqrcode.RecoveryLevel
}

// NewGenerator constructs a Generator from opts.
func NewGenerator(opts Options) *Generator {
	g := &Generator{
		size:   opts.Size,
		margin: opts.Margin,
		dark:   opts.Dark,
		light:  opts.Light,
		level:  goqrcode.Medium,
	}
	if g.size <= 0 {
		g.size = DefaultSize
	}
	if g.margin < 0 {
		g.margin = 0
	}
	if g.dark == nil {
		g.dark = DefaultDark
	}
	if g.light == nil {
		g.light = DefaultLight
	}
	if opts.LevelSet {
		g.level = opts.Level
	}
	return g
}

// Default returns a generator with a 300 pixel width and a two module margin.
func Default() *Generator {
	return NewGenerator(Options{Margin: DefaultMargin})
}

// PNG encodes content and returns the image bytes.
func (g *Generator) PNG(content string) ([]byte, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	code, err := goqrcode.New(content, g.level)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	code.DisableBorder = true

	img := g.render(code.Bitmap())
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL wraps PNG bytes in a base64 data URL.
func DataURL(pngBytes []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
}

// render scales the module matrix to the configured width. The scale may be
// fractional, so the final image can be a few pixels narrower than size.
func (g *Generator) render(modules [][]bool) image.Image {
	count := len(modules)
	scale := float64(g.size) / float64(count+g.margin*2)
	side := int(math.Floor(float64(count+g.margin*2) * scale))
	offset := float64(g.margin) * scale

	palette := color.Palette{g.light, g.dark}
	img := image.NewPaletted(image.Rect(0, 0, side, side), palette)
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			fx, fy := float64(x), float64(y)
			if fx < offset || fy < offset || fx >= float64(side)-offset || fy >= float64(side)-offset {
				continue
			}
			row := int(math.Floor((fy - offset) / scale))
			col := int(math.Floor((fx - offset) / scale))
			if row < count && col < count && modules[row][col] {
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	return img
}
