// Package verify recovers the identity embedded in an uploaded cheat sheet.
// It runs the QR and watermark channels concurrently, reconciles them and
// derives the checksum and stored file name.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kwarc/cheatsheets/internal/common"
	"github.com/kwarc/cheatsheets/internal/fields"
	"github.com/kwarc/cheatsheets/internal/logging"
	"github.com/kwarc/cheatsheets/internal/pdfx"
	"github.com/kwarc/cheatsheets/internal/pixels"
	"github.com/kwarc/cheatsheets/internal/qr"
	"github.com/kwarc/cheatsheets/internal/watermark"
)

// Limits are checked before any extraction work starts.
type Limits struct {
	MaxBytes int64
	MaxPages int
	Timeout  time.Duration
}

// DefaultLimits are used for zero fields.
var DefaultLimits = Limits{
	MaxBytes: 20 << 20,
	MaxPages: 50,
	Timeout:  30 * time.Second,
}

// Report is everything extraction learned about one document.
type Report struct {
	Reconciliation
	Checksum  string        `json:"checksum"`
	QR        fields.Fields `json:"qr"`
	Watermark fields.Fields `json:"watermark"`
	QRErr     error         `json:"-"`
	WMErr     error         `json:"-"`
	Pages     int           `json:"pages"`
}

// FileName returns the stored name for this document uploaded by userID.
func (r *Report) FileName(userID string) string {
	return FileName(r.Fields.InstanceID, userID, r.Fields.WeekID, r.Checksum)
}

// Extractor runs the extraction pipeline.
type Extractor struct {
	decoder *qr.Decoder
	limits  Limits
	logger  logging.Logger
}

// NewExtractor builds an Extractor. Zero limits fall back to DefaultLimits.
func NewExtractor(decoder *qr.Decoder, limits Limits, l logging.Logger) *Extractor {
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = DefaultLimits.MaxBytes
	}
	if limits.MaxPages <= 0 {
		limits.MaxPages = DefaultLimits.MaxPages
	}
	if limits.Timeout <= 0 {
		limits.Timeout = DefaultLimits.Timeout
	}
	return &Extractor{decoder: decoder, limits: limits, logger: l.With("module", "verify")}
}

// Limits returns the effective limits.
func (e *Extractor) Limits() Limits {
	return e.limits
}

// Extract checks the ceilings, then runs both channels and reconciles them.
// Channel failures end up in the report diagnostics; only ceiling
// violations, unreadable documents and the timeout are returned as errors.
func (e *Extractor) Extract(ctx context.Context, data []byte) (*Report, error) {
	if int64(len(data)) > e.limits.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", common.ErrorDocumentTooLarge, len(data), e.limits.MaxBytes)
	}
	pages, err := pdfx.PageCount(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorUnreadableDocument, err)
	}
	if pages < 1 {
		return nil, fmt.Errorf("%w: no pages", common.ErrorUnreadableDocument)
	}
	if pages > e.limits.MaxPages {
		return nil, fmt.Errorf("%w: %d pages, limit %d", common.ErrorDocumentTooLarge, pages, e.limits.MaxPages)
	}

	ctx, cancel := context.WithTimeout(ctx, e.limits.Timeout)
	defer cancel()

	r := &Report{Checksum: Checksum(data), Pages: pages}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.QR, r.QRErr = e.qrChannel(gctx, data)
		return channelErr(gctx, r.QRErr)
	})
	g.Go(func() error {
		r.Watermark, r.WMErr = e.watermarkChannel(gctx, data)
		return channelErr(gctx, r.WMErr)
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %s", common.ErrorExtractionTimeout, e.limits.Timeout)
		}
		return nil, err
	}

	r.Reconciliation = Reconcile(r.QR, r.QRErr, r.Watermark, r.WMErr)
	e.logger.Debug(ctx, "extraction finished",
		"checksum", r.Checksum,
		"diagnostics", r.Diagnostics,
		"missing", r.Missing,
	)
	return r, nil
}

// channelErr surfaces only cancellation; other failures are diagnostics.
func channelErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	return nil
}

func (e *Extractor) qrChannel(ctx context.Context, data []byte) (fields.Fields, error) {
	images, err := pdfx.PageImages(ctx, data, 1)
	if err != nil {
		return fields.Fields{}, err
	}
	raws := make([]pixels.Raw, len(images))
	for i, img := range images {
		raws[i] = img.Raw
	}
	res, err := e.decoder.Decode(ctx, raws)
	if err != nil {
		return fields.Fields{}, err
	}
	e.logger.Debug(ctx, "qr decoded", "image", images[res.Image].Key, "scale", res.Scale, "layout", res.Layout.String())
	return res.Fields, nil
}

func (e *Extractor) watermarkChannel(ctx context.Context, data []byte) (fields.Fields, error) {
	text, err := pdfx.Text(ctx, data, e.limits.MaxPages)
	if err != nil {
		return fields.Fields{}, err
	}
	return watermark.Parse(text)
}
