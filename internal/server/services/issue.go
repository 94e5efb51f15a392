package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kwarc/cheatsheets/internal/compose"
	"github.com/kwarc/cheatsheets/internal/identity"
	"github.com/kwarc/cheatsheets/internal/logging"
	"github.com/kwarc/cheatsheets/internal/server/auth"
	"github.com/kwarc/cheatsheets/internal/timex"
	"github.com/kwarc/cheatsheets/internal/verify"
)

// UnknownStudentName is printed when the token carries no name.
const UnknownStudentName = "Unknown"

// IssueRequest is the body of a sheet issuance call.
type IssueRequest struct {
	CourseName   string `json:"courseName" validate:"required"`
	CourseID     string `json:"courseId" validate:"required"`
	InstanceID   string `json:"instanceId" validate:"required"`
	UniversityID string `json:"universityId" validate:"required"`
}

var issueValidate = validator.New(validator.WithRequiredStructEnabled())

var issueFieldNames = map[string]string{
	"CourseName":   "courseName",
	"CourseID":     "courseId",
	"InstanceID":   "instanceId",
	"UniversityID": "universityId",
}

// Validate returns a MissingFieldsError naming every absent field.
func (r IssueRequest) Validate() error {
	err := issueValidate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, issueFieldNames[fe.StructField()])
	}
	return &MissingFieldsError{Fields: missing}
}

// IssuedSheet is a rendered sheet and the identity it carries.
type IssuedSheet struct {
	Sheet    identity.Sheet
	PDF      []byte
	FileName string
	Signed   bool
	// ClientPayload is set when the QR carries the compact unsigned payload.
	ClientPayload bool
}

// IssueService renders personalized sheets for authenticated students.
type IssueService struct {
	composer      *compose.Composer
	signer        *identity.Signer
	semesterStart time.Time
	now           func() time.Time
	clientPayload bool
	logger        logging.Logger
}

// NewIssueService wires the service. A nil signer renders a placeholder in
// place of the QR code.
func NewIssueService(c *compose.Composer, signer *identity.Signer, semesterStart time.Time, now func() time.Time, l logging.Logger) *IssueService {
	if now == nil {
		now = time.Now
	}
	return &IssueService{
		composer:      c,
		signer:        signer,
		semesterStart: semesterStart,
		now:           now,
		logger:        l.With("module", "issue"),
	}
}

// WithClientPayload makes Issue embed the compact {uid,email,course,nonce,ts}
// payload instead of a signed sheet envelope.
func (s *IssueService) WithClientPayload(on bool) *IssueService {
	s.clientPayload = on
	return s
}

// BuildSheet fills the server-owned identity fields and draws a fresh nonce.
func (s *IssueService) BuildSheet(id auth.Identity, req IssueRequest) (identity.Sheet, error) {
	now := s.now().UTC()
	name := id.Name
	if name == "" {
		name = UnknownStudentName
	}
	nonce, err := identity.NewNonce(now, nil)
	if err != nil {
		return identity.Sheet{}, err
	}
	return identity.Sheet{
		GenerationID: uuid.NewString(),
		UniversityID: req.UniversityID,
		InstanceID:   req.InstanceID,
		CourseID:     req.CourseID,
		CourseName:   req.CourseName,
		StudentID:    id.UserID,
		StudentName:  name,
		WeekID:       WeekID(s.semesterStart, now),
		DownloadDate: now.Format(time.RFC3339),
		Nonce:        nonce,
	}, nil
}

// Issue validates req and renders the caller's sheet.
func (s *IssueService) Issue(ctx context.Context, id auth.Identity, req IssueRequest) (*IssuedSheet, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sheet, err := s.BuildSheet(id, req)
	if err != nil {
		return nil, err
	}

	var content []byte
	switch {
	case s.clientPayload:
		content, err = identity.BuildPayload(id.UserID, id.Email, sheet.CourseID, sheet.Nonce, s.now())
	case s.signer != nil:
		content, err = s.signer.Seal(sheet)
	default:
		s.logger.Warn(ctx, "qr secret not configured, issuing sheet without qr code", "user_id", id.UserID)
	}
	if err != nil {
		return nil, err
	}

	pdf, err := s.composer.Render(ctx, sheet, content)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "sheet issued",
		"user_id", id.UserID,
		"course_id", sheet.CourseID,
		"week_id", sheet.WeekID,
		"generation_id", sheet.GenerationID,
		"nonce", sheet.Nonce,
	)
	return &IssuedSheet{
		Sheet:         sheet,
		PDF:           pdf,
		FileName:      IssuedFileName(sheet),
		Signed:        content != nil && !s.clientPayload,
		ClientPayload: s.clientPayload,
	}, nil
}

// WeekID formats the semester week containing now as W{n}.
func WeekID(semesterStart, now time.Time) string {
	return "W" + strconv.Itoa(timex.WeekNumber(semesterStart, now))
}

// IssuedFileName is the attachment name offered for a rendered sheet.
func IssuedFileName(s identity.Sheet) string {
	return "cheatsheet_" + verify.Sanitize(s.CourseID) + "_" + verify.Sanitize(s.WeekID) + ".pdf"
}
