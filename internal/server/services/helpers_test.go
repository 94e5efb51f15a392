package services

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
	"github.com/stretchr/testify/require"

	"github.com/kwarc/cheatsheets/internal/common"
	"github.com/kwarc/cheatsheets/internal/dbx"
	"github.com/kwarc/cheatsheets/internal/logging"
	"github.com/kwarc/cheatsheets/internal/qr"
	"github.com/kwarc/cheatsheets/internal/server/models"
	"github.com/kwarc/cheatsheets/internal/server/repositories/submissions"
	"github.com/kwarc/cheatsheets/internal/verify"
	"github.com/kwarc/cheatsheets/internal/window"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var lockQuery = regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)

func expectLockedTx(mock sqlmock.Sqlmock, commit bool) {
	mock.ExpectBegin()
	mock.ExpectExec(lockQuery).WithArgs(sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

// sheetPDF is a one-page upload with a QR image of payload and a watermark
// line carrying the student name.
func sheetPDF(t *testing.T, payload string) []byte {
	t.Helper()
	enc := &qr.Encoder{Level: qrcode.Low, ModulePx: 1}
	code, err := enc.Image([]byte(payload))
	require.NoError(t, err)

	canvas := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	off := (64 - code.Bounds().Dx()) / 2
	draw.Draw(canvas, code.Bounds().Add(image.Pt(off, off)), code, image.Point{}, draw.Src)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, canvas))

	doc := gofpdf.New("P", "pt", "A4", "")
	doc.SetFont("Helvetica", "", 11)
	doc.AddPage()
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	doc.RegisterImageOptionsReader("code", opts, &img)
	doc.ImageOptions("code", 400, 40, 128, 128, false, opts, 0, "")
	doc.Text(40, 60, "Student Name: Jane Doe")

	var out bytes.Buffer
	require.NoError(t, doc.Output(&out))
	return out.Bytes()
}

func scenarioPayload(downloadDate string) string {
	return `{"courseId":"ai-1","instanceId":"WS25-26","universityId":"FAU","studentId":"u123","weekId":"3","downloadDate":"` + downloadDate + `"}`
}

var scenarioSlot = models.SlotKey{UserID: "u123", InstanceID: "WS25-26", CourseID: "ai-1", UniversityID: "FAU", WeekID: "3"}

func openGate() *window.Gate {
	return window.NewGate(window.Policy{StartDay: time.Monday, EndDay: time.Sunday}, nil)
}

func newExtractor() *verify.Extractor {
	return verify.NewExtractor(qr.NewDecoder(nil), verify.Limits{}, logging.Nop{})
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// --- fakes ---

type fakeSubmissionsRepo struct {
	rows map[models.SlotKey]*models.Submission

	getErr    error
	createErr error
	updateErr error
	listErr   error

	creates int
	updates int

	listArgs []string
}

func newFakeSubmissionsRepo(rows ...*models.Submission) *fakeSubmissionsRepo {
	f := &fakeSubmissionsRepo{rows: map[models.SlotKey]*models.Submission{}}
	for _, r := range rows {
		f.rows[r.SlotKey] = r
	}
	return f
}

func (f *fakeSubmissionsRepo) Get(_ context.Context, key models.SlotKey) (*models.Submission, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.rows[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSubmissionsRepo) Create(_ context.Context, s *models.Submission) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.creates++
	cp := *s
	f.rows[s.SlotKey] = &cp
	return nil
}

func (f *fakeSubmissionsRepo) Update(_ context.Context, s *models.Submission) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates++
	cp := *s
	f.rows[s.SlotKey] = &cp
	return nil
}

func (f *fakeSubmissionsRepo) List(_ context.Context, courseID, instanceID, userID string) ([]*models.Submission, error) {
	f.listArgs = []string{courseID, instanceID, userID}
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Submission
	for _, s := range f.rows {
		if s.CourseID == courseID && s.InstanceID == instanceID && (userID == "" || s.UserID == userID) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (f *fakeSubmissionsRepo) ListByFilePrefix(_ context.Context, prefix string) ([]*models.Submission, error) {
	var out []*models.Submission
	for _, s := range f.rows {
		if strings.HasPrefix(s.FileName, prefix+"_") {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (f *fakeSubmissionsRepo) GetByChecksum(_ context.Context, checksum, userID string) (*models.Submission, error) {
	for _, s := range f.rows {
		if s.Checksum == checksum && (userID == "" || s.UserID == userID) {
			return s, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeRepoManager struct {
	s *fakeSubmissionsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Submissions(dbx.DBTX) submissions.Repository  { return m.s }

// recordingStore records calls and keeps files in memory.
type recordingStore struct {
	files   map[string][]byte
	calls   []string
	openErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{files: map[string][]byte{}}
}

func (s *recordingStore) Replace(_ context.Context, prefix, name string, data []byte) (bool, error) {
	s.calls = append(s.calls, "replace "+name)
	replaced := false
	for k := range s.files {
		if strings.HasPrefix(k, prefix+"_") {
			delete(s.files, k)
			replaced = true
		}
	}
	s.files[name] = data
	return replaced, nil
}

func (s *recordingStore) Remove(_ context.Context, name string) (bool, error) {
	s.calls = append(s.calls, "remove "+name)
	_, ok := s.files[name]
	delete(s.files, name)
	return ok, nil
}

func (s *recordingStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	b, ok := s.files[name]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type presigningStore struct {
	*recordingStore
}

func (s presigningStore) PresignGet(_ context.Context, name string) (string, error) {
	return "https://bucket.example/" + name + "?sig=1", nil
}
