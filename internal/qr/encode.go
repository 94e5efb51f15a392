// Package qr encodes identity payloads into QR rasters and recovers them
// from images lifted out of uploaded documents.
package qr

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	qrcode "github.com/skip2/go-qrcode"
)

// Encoder renders payloads as grayscale QR images.
type Encoder struct {
	Level    qrcode.RecoveryLevel
	ModulePx int
}

// NewEncoder returns an encoder with medium error correction and 4px modules.
func NewEncoder() *Encoder {
	return &Encoder{Level: qrcode.Medium, ModulePx: 4}
}

// Image renders content with a quiet-zone border. Each module is ModulePx
// pixels wide.
func (e *Encoder) Image(content []byte) (*image.Gray, error) {
	q, err := qrcode.New(string(content), e.Level)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	px := e.ModulePx
	if px < 1 {
		px = 1
	}
	src := q.Image(-px)
	gray := image.NewGray(src.Bounds())
	draw.Draw(gray, gray.Bounds(), src, src.Bounds().Min, draw.Src)
	return gray, nil
}

// PNG renders content as an 8-bit grayscale PNG.
func (e *Encoder) PNG(content []byte) ([]byte, error) {
	img, err := e.Image(content)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("qr png: %w", err)
	}
	return buf.Bytes(), nil
}
