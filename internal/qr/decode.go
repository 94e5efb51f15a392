package qr

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"

	"github.com/kwarc/cheatsheets/internal/fields"
	"github.com/kwarc/cheatsheets/internal/identity"
	"github.com/kwarc/cheatsheets/internal/pixels"
)

// DefaultScales are the nearest-neighbour upscale factors tried per image.
// Small embedded codes often fall below the finder-pattern minimum at 1x.
var DefaultScales = []int{1, 2, 4}

// NotFoundError is returned when no candidate image yielded a payload.
type NotFoundError struct {
	Attempted int
	// Last payload error, if some image decoded but did not parse.
	Cause error
}

func (e *NotFoundError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no valid QR payload in %d image(s): %v", e.Attempted, e.Cause)
	}
	return fmt.Sprintf("no QR code found in %d image(s)", e.Attempted)
}

func (e *NotFoundError) Unwrap() error { return e.Cause }

// Result describes a successful decode.
type Result struct {
	Fields fields.Fields
	Text   string
	Image  int
	Scale  int
	Layout pixels.Layout
}

// Decoder searches candidate images for an identity QR code.
type Decoder struct {
	scales []int
	signer *identity.Signer
}

// NewDecoder builds a decoder. A nil signer accepts unsigned and signed
// payloads alike without checking signatures.
func NewDecoder(signer *identity.Signer) *Decoder {
	return &Decoder{scales: DefaultScales, signer: signer}
}

// DecodeImage tries every scale on img and returns the first QR text.
func (d *Decoder) DecodeImage(img image.Image) (string, int, error) {
	var lastErr error = pixels.ErrImageTooLarge
	b := img.Bounds()
	for _, s := range d.scales {
		if !pixels.WithinBudget(b.Dx(), b.Dy(), s) {
			continue
		}
		candidate := img
		if s > 1 {
			candidate = imaging.Resize(img, b.Dx()*s, b.Dy()*s, imaging.NearestNeighbor)
		}
		text, err := readQR(candidate)
		if err == nil {
			return text, s, nil
		}
		lastErr = err
	}
	return "", 0, lastErr
}

// Decode walks images in order and returns the first one whose QR payload
// parses. Images that decode to foreign payloads are skipped.
func (d *Decoder) Decode(ctx context.Context, images []pixels.Raw) (*Result, error) {
	var payloadErr error
	for i, raw := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, layout, err := pixels.Normalize(raw)
		if err != nil {
			continue
		}
		text, scale, err := d.DecodeImage(img)
		if err != nil {
			continue
		}
		f, err := ParsePayload(text, d.signer)
		if err != nil {
			payloadErr = err
			continue
		}
		return &Result{Fields: f, Text: text, Image: i, Scale: scale, Layout: layout}, nil
	}
	return nil, &NotFoundError{Attempted: len(images), Cause: payloadErr}
}

func readQR(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", err
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	res, err := zxqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", err
	}
	if res.GetText() == "" {
		return "", errors.New("empty qr text")
	}
	return res.GetText(), nil
}
