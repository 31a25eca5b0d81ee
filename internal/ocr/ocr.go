// Package ocr wraps a deterministic optical character recognizer.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os/exec"
	"strings"
)

// ErrUnavailable is returned when the OCR binary cannot be started.
var ErrUnavailable = errors.New("ocr engine unavailable")

// Engine reads text from a grayscale image.
type Engine interface {
	Recognize(ctx context.Context, img *image.Gray) (string, error)
}

// Grayscale converts img to 8-bit luminance.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// Tesseract runs the tesseract command line tool, feeding the image on stdin.
type Tesseract struct {
	Command string
	// PageSegMode 7 treats the image as a single text line.
	PageSegMode int
	Whitelist   string
}

// NewTesseract returns an engine using command (tesseract when empty).
func NewTesseract(command, whitelist string) *Tesseract {
	if command == "" {
		command = "tesseract"
	}
	return &Tesseract{Command: command, PageSegMode: 7, Whitelist: whitelist}
}

func (t *Tesseract) Recognize(ctx context.Context, img *image.Gray) (string, error) {
	path, err := exec.LookPath(t.Command)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return "", fmt.Errorf("encode ocr input: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, t.args()...)
	cmd.Stdin = &in
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(out)), nil
}

func (t *Tesseract) args() []string {
	args := []string{"stdin", "stdout", "--psm", fmt.Sprint(t.PageSegMode)}
	if t.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+t.Whitelist)
	}
	return args
}
