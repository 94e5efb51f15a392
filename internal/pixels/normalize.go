// Package pixels turns raw image sample buffers of uncertain layout into
// RGBA images.
//
// Producers disagree on raw buffer conventions: some emit tightly packed
// samples, some prefix every row with one filter/padding byte. The layout is
// inferred from the buffer length against the image dimensions using three
// hypotheses tried in a fixed order, each represented explicitly so it can
// be tested on its own.
package pixels

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// Kind names the hypothesis that explained a buffer.
type Kind int

const (
	// NoPadding: len is exactly width*height*channels with channels in [1,4].
	NoPadding Kind = iota
	// RowPadded: len is height*(width*channels+1), one leading byte per row.
	RowPadded
	// BestEffort: nothing matched; channels is the rounded per-pixel ratio.
	BestEffort
)

func (k Kind) String() string {
	switch k {
	case NoPadding:
		return "no-padding"
	case RowPadded:
		return "row-padded"
	case BestEffort:
		return "best-effort"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Layout is the inferred decision.
type Layout struct {
	Kind     Kind
	Channels int
}

func (l Layout) String() string {
	return fmt.Sprintf("%s(%d)", l.Kind, l.Channels)
}

// Raw is an undecoded sample buffer.
type Raw struct {
	Width  int
	Height int
	Data   []byte
}

// MaxPixels caps width*height of any image handled for one upload.
const MaxPixels = 4096 * 4096

var (
	ErrEmptyImage    = errors.New("image has no pixels")
	ErrImageTooLarge = errors.New("image exceeds pixel budget")
	paddedCandidates = []int{1, 3, 4}
)

// WithinBudget reports whether a width×height image, upscaled by scale,
// stays within MaxPixels.
func WithinBudget(width, height, scale int) bool {
	if width <= 0 || height <= 0 || scale <= 0 {
		return false
	}
	return width <= MaxPixels/height/(scale*scale)
}

// Infer picks the layout of a buffer of length n for a width×height image.
func Infer(width, height, n int) (Layout, error) {
	if width <= 0 || height <= 0 || n <= 0 {
		return Layout{}, ErrEmptyImage
	}
	if !WithinBudget(width, height, 1) {
		return Layout{}, ErrImageTooLarge
	}
	pixels := width * height

	if n%pixels == 0 {
		if ch := n / pixels; ch >= 1 && ch <= 4 {
			return Layout{Kind: NoPadding, Channels: ch}, nil
		}
	}

	for _, ch := range paddedCandidates {
		if n == height*(width*ch+1) {
			return Layout{Kind: RowPadded, Channels: ch}, nil
		}
	}

	ch := int(math.Round(float64(n) / float64(pixels)))
	if ch < 1 {
		ch = 1
	}
	return Layout{Kind: BestEffort, Channels: ch}, nil
}

// Unpad removes the leading byte of every row. Short buffers yield short
// rows; missing samples are left zero.
func Unpad(data []byte, width, height, channels int) []byte {
	rowIn := width*channels + 1
	rowOut := width * channels
	out := make([]byte, rowOut*height)
	for y := 0; y < height; y++ {
		start := y*rowIn + 1
		if start >= len(data) {
			break
		}
		end := min(start+rowOut, len(data))
		copy(out[y*rowOut:], data[start:end])
	}
	return out
}

// ToRGBA expands tightly packed samples with the given channel count.
// 1 = gray, 2 = gray+alpha, 3 = RGB, 4+ = RGBA (extra samples ignored).
func ToRGBA(data []byte, width, height, channels int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	at := func(i int) byte {
		if i < len(data) {
			return data[i]
		}
		return 0
	}
	for p := 0; p < width*height; p++ {
		src := p * channels
		dst := p * 4
		switch channels {
		case 1:
			v := at(src)
			img.Pix[dst], img.Pix[dst+1], img.Pix[dst+2], img.Pix[dst+3] = v, v, v, 255
		case 2:
			v := at(src)
			img.Pix[dst], img.Pix[dst+1], img.Pix[dst+2], img.Pix[dst+3] = v, v, v, at(src+1)
		case 3:
			img.Pix[dst], img.Pix[dst+1], img.Pix[dst+2], img.Pix[dst+3] = at(src), at(src+1), at(src+2), 255
		default:
			img.Pix[dst], img.Pix[dst+1], img.Pix[dst+2], img.Pix[dst+3] = at(src), at(src+1), at(src+2), at(src+3)
		}
	}
	return img
}

// Normalize infers the layout of r and returns the RGBA image.
func Normalize(r Raw) (*image.RGBA, Layout, error) {
	layout, err := Infer(r.Width, r.Height, len(r.Data))
	if err != nil {
		return nil, Layout{}, err
	}
	data := r.Data
	if layout.Kind == RowPadded {
		data = Unpad(data, r.Width, r.Height, layout.Channels)
	}
	return ToRGBA(data, r.Width, r.Height, layout.Channels), layout, nil
}
