// Package render draws challenge text onto a noisy canvas.
package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
)

// RenderConfig controls canvas size and the amount of noise.
type RenderConfig struct {
	Width, Height int     // canvas size in pixels
	Margin        int     // horizontal space left free, split across both sides
	NoiseLines    int     // background strokes
	NoiseDots     int     // speckle count
	MaxRotation   float64 // degrees, either direction
	JitterX       int     // max horizontal offset per glyph
	JitterY       int     // max vertical offset per glyph
}

// DefaultConfig is the 600x200 layout served to clients.
func DefaultConfig() RenderConfig {
	return RenderConfig{
		Width:       600,
		Height:      200,
		Margin:      60,
		NoiseLines:  4,
		NoiseDots:   200,
		MaxRotation: 25,
		JitterX:     5,
		JitterY:     15,
	}
}

// Obfuscator renders text into images. It is safe for concurrent use.
type Obfuscator struct {
	cfg    RenderConfig
	font   *truetype.Font
	logger *zap.Logger
}

// New parses the bundled bold font. If that fails every glyph falls back to
// basicfont, which is small but always present.
func New(cfg RenderConfig, logger *zap.Logger) *Obfuscator {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := truetype.Parse(gobold.TTF)
	if err != nil {
		logger.Warn("bold font unavailable, using basic face", zap.Error(err))
	}
	return &Obfuscator{cfg: cfg, font: f, logger: logger}
}

// Render draws text with noise taken from rng. The same text and seed always
// produce the same pixels.
func (o *Obfuscator) Render(text string, rng *rand.Rand) image.Image {
	cfg := o.cfg
	dc := gg.NewContext(cfg.Width, cfg.Height)

	dc.SetRGB255(between(rng, 235, 255), between(rng, 235, 255), between(rng, 235, 255))
	dc.Clear()

	drawNoiseLines(dc, cfg, rng)
	drawNoiseDots(dc, cfg, rng)

	chars := []rune(text)
	if len(chars) == 0 {
		return dc.Image()
	}
	slot := float64(cfg.Width-cfg.Margin) / float64(len(chars))
	size := min(slot, float64(cfg.Height)/2) * 0.9
	face := o.face(size)
	tileSide := int(size * 1.4)
	if tileSide < 16 {
		tileSide = 16
	}

	for i, ch := range chars {
		cx := float64(cfg.Margin)/2 + slot*(float64(i)+0.5) + float64(between(rng, -cfg.JitterX, cfg.JitterX))
		cy := float64(cfg.Height)/2 + float64(between(rng, -cfg.JitterY, cfg.JitterY))
		col := color.RGBA{
			R: uint8(between(rng, 0, 150)),
			G: uint8(between(rng, 0, 150)),
			B: uint8(between(rng, 0, 150)),
			A: 255,
		}
		angle := (rng.Float64()*2 - 1) * cfg.MaxRotation

		tile := drawGlyphTile(ch, face, col, tileSide)

		// The tile is transparent outside the glyph, so compositing it under
		// rotation leaves the neighbouring noise and glyphs untouched.
		dc.Push()
		dc.RotateAbout(gg.Radians(angle), cx, cy)
		dc.DrawImageAnchored(tile, int(cx), int(cy), 0.5, 0.5)
		dc.Pop()
	}
	return dc.Image()
}

// RenderPNG renders text and encodes the canvas as PNG.
func (o *Obfuscator) RenderPNG(text string, rng *rand.Rand) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, o.Render(text, rng)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderDataURI renders text with a freshly seeded source and returns it as a
// data:image/png;base64 string.
func (o *Obfuscator) RenderDataURI(text string) (string, error) {
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	data, err := o.RenderPNG(text, rng)
	if err != nil {
		return "", err
	}
	return EncodeDataURI(MimePNG, data), nil
}

// face returns a new face per call; truetype faces cache glyphs and are not
// safe to share between goroutines.
func (o *Obfuscator) face(size float64) font.Face {
	if o.font == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(o.font, &truetype.Options{Size: size, Hinting: font.HintingFull})
}

func drawNoiseLines(dc *gg.Context, cfg RenderConfig, rng *rand.Rand) {
	for i := 0; i < cfg.NoiseLines; i++ {
		dc.SetRGB255(between(rng, 100, 200), between(rng, 100, 200), between(rng, 100, 200))
		dc.SetLineWidth(float64(between(rng, 2, 4)))
		dc.DrawLine(
			float64(rng.IntN(cfg.Width)), float64(rng.IntN(cfg.Height)),
			float64(rng.IntN(cfg.Width)), float64(rng.IntN(cfg.Height)),
		)
		dc.Stroke()
	}
}

func drawNoiseDots(dc *gg.Context, cfg RenderConfig, rng *rand.Rand) {
	for i := 0; i < cfg.NoiseDots; i++ {
		dc.SetRGB255(between(rng, 150, 255), between(rng, 150, 255), between(rng, 150, 255))
		dc.SetPixel(rng.IntN(cfg.Width), rng.IntN(cfg.Height))
	}
}

// drawGlyphTile draws one centred character on a transparent square.
func drawGlyphTile(ch rune, face font.Face, col color.Color, side int) image.Image {
	tile := gg.NewContext(side, side)
	tile.SetFontFace(face)
	tile.SetColor(col)
	tile.DrawStringAnchored(string(ch), float64(side)/2, float64(side)/2, 0.5, 0.5)
	return tile.Image()
}

// between returns a uniform int in [lo, hi].
func between(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}
