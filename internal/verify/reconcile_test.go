package verify

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/kwarc/cheatsheets/internal/fields"
)

func TestReconcile_QRWins(t *testing.T) {
	qr := fields.Fields{CourseID: "from-qr", StudentID: "u123"}
	wm := fields.Fields{CourseID: "from-watermark", InstanceID: "ws", StudentName: "Jane Doe"}

	got := Reconcile(qr, nil, wm, nil)

	want := fields.Fields{CourseID: "from-qr", StudentID: "u123", InstanceID: "ws", StudentName: "Jane Doe"}
	if diff := cmp.Diff(want, got.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "QR: ok | Watermark: ok", got.Diagnostics)
	assert.Equal(t, []string{fields.UniversityID, fields.WeekID, fields.DownloadDate}, got.Missing)
	assert.False(t, got.Complete())
}

func TestReconcile_StudentIDOnlyFromQR(t *testing.T) {
	wm := fields.Fields{StudentID: "forged"}
	got := Reconcile(fields.Fields{}, errors.New("no QR code found in 0 image(s)"), wm, nil)

	assert.Empty(t, got.Fields.StudentID)
	assert.Contains(t, got.Missing, fields.StudentID)
}

func TestReconcile_Complete(t *testing.T) {
	qr := fields.Fields{
		CourseID: "ai-1", InstanceID: "WS25-26", UniversityID: "FAU",
		StudentID: "u123", WeekID: "3", DownloadDate: "2025-01-10T10:00:00Z",
	}
	got := Reconcile(qr, nil, fields.Fields{}, errors.New("no watermark fields found"))

	assert.True(t, got.Complete())
	assert.Nil(t, got.Missing)
	assert.Equal(t, "QR: ok | Watermark error: no watermark fields found", got.Diagnostics)
}

func TestDiagnostics(t *testing.T) {
	assert.Equal(t, "QR: ok | Watermark: ok", Diagnostics(nil, nil))
	assert.Equal(t, "QR error: boom | Watermark: ok", Diagnostics(errors.New("boom"), nil))
	assert.Equal(t, "QR error: a | Watermark error: b", Diagnostics(errors.New("a"), errors.New("b")))
}
