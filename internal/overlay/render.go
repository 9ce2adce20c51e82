// Package overlay rasterizes text and layers still images over a composition.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// ErrOverlayRenderFailed is returned when text cannot be rasterized.
var ErrOverlayRenderFailed = errors.New("overlay render failed")

const (
	// DefaultFontSize is the text size in pixels before fitting.
	DefaultFontSize = 24.0
	minFontSize     = 8.0
	// Text is fitted into this fraction of the canvas width.
	fitFraction = 0.9
)

// Renderer draws centered white text in a bold face.
type Renderer struct {
	FontSize float64

	font *sfnt.Font
}

var (
	defaultOnce sync.Once
	defaultFont *sfnt.Font
	defaultErr  error
)

func goBold() (*sfnt.Font, error) {
	defaultOnce.Do(func() {
		defaultFont, defaultErr = opentype.Parse(gobold.TTF)
	})
	return defaultFont, defaultErr
}

// NewRenderer returns a Renderer using the font file at fontFile, or Go Bold
// when fontFile is empty. fontSize <= 0 means DefaultFontSize.
func NewRenderer(fontSize float64, fontFile string) (*Renderer, error) {
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}
	var (
		f   *sfnt.Font
		err error
	)
	if fontFile == "" {
		f, err = goBold()
	} else {
		var data []byte
		data, err = os.ReadFile(fontFile)
		if err == nil {
			f, err = opentype.Parse(data)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load font: %v", ErrOverlayRenderFailed, err)
	}
	return &Renderer{FontSize: fontSize, font: f}, nil
}

// RenderText draws text with the default renderer.
func RenderText(text string, size image.Point) (*image.RGBA, error) {
	r, err := NewRenderer(DefaultFontSize, "")
	if err != nil {
		return nil, err
	}
	return r.RenderText(text, size)
}

// RenderText draws text centered on a transparent canvas of size. Lines are
// split on newlines; the font shrinks when the widest line would not fit.
func (r *Renderer) RenderText(text string, size image.Point) (*image.RGBA, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", ErrOverlayRenderFailed, size.X, size.Y)
	}
	img := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return img, nil
	}

	face, err := r.fittedFace(lines, size)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	metrics := face.Metrics()
	lineHeight := metrics.Height
	block := lineHeight.Mul(fixed.I(len(lines)))
	top := (fixed.I(size.Y) - block) / 2

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
	}
	for i, line := range lines {
		width := drawer.MeasureString(line)
		x := (fixed.I(size.X) - width) / 2
		baseline := top + lineHeight.Mul(fixed.I(i)) + metrics.Ascent
		drawer.Dot = fixed.Point26_6{X: x, Y: baseline}
		drawer.DrawString(line)
	}
	return img, nil
}

// RenderContextual draws text for a context-specific overlay. It currently
// shares RenderText's styling.
func (r *Renderer) RenderContextual(text string, size image.Point) (*image.RGBA, error) {
	return r.RenderText(text, size)
}

func (r *Renderer) fittedFace(lines []string, size image.Point) (font.Face, error) {
	fontSize := r.FontSize
	for {
		face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
			Size:    fontSize,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOverlayRenderFailed, err)
		}
		widest := fixed.Int26_6(0)
		for _, line := range lines {
			if w := font.MeasureString(face, line); w > widest {
				widest = w
			}
		}
		limit := fixed.Int26_6(float64(fixed.I(size.X)) * fitFraction)
		if widest <= limit || fontSize <= minFontSize {
			return face, nil
		}
		face.Close()
		next := fontSize * float64(limit) / float64(widest)
		if next >= fontSize {
			next = fontSize - 1
		}
		if next < minFontSize {
			next = minFontSize
		}
		fontSize = next
	}
}
