package verify

import (
	"strings"

	"github.com/kwarc/cheatsheets/internal/fields"
)

// Reconciliation is the outcome of merging the QR and watermark channels.
type Reconciliation struct {
	Fields      fields.Fields `json:"fields"`
	Missing     []string      `json:"missing,omitempty"`
	Diagnostics string        `json:"diagnostics"`
}

// Complete reports whether every required key resolved.
func (r Reconciliation) Complete() bool {
	return len(r.Missing) == 0
}

// Reconcile prefers QR values field by field and falls back to the
// watermark. A failed channel contributes no values.
func Reconcile(qr fields.Fields, qrErr error, wm fields.Fields, wmErr error) Reconciliation {
	if qrErr != nil {
		qr = fields.Fields{}
	}
	if wmErr != nil {
		wm = fields.Fields{}
	}
	// studentId is only trusted from the QR code
	wm.StudentID = ""

	merged := fields.Merge(qr, wm)
	return Reconciliation{
		Fields:      merged,
		Missing:     merged.Missing(),
		Diagnostics: Diagnostics(qrErr, wmErr),
	}
}

// Diagnostics renders "QR: ok | Watermark: ok" with an error message in
// place of "ok" for each failed channel.
func Diagnostics(qrErr, wmErr error) string {
	var b strings.Builder
	if qrErr != nil {
		b.WriteString("QR error: " + qrErr.Error())
	} else {
		b.WriteString("QR: ok")
	}
	b.WriteString(" | ")
	if wmErr != nil {
		b.WriteString("Watermark error: " + wmErr.Error())
	} else {
		b.WriteString("Watermark: ok")
	}
	return b.String()
}
