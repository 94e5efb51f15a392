package rest

import (
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/kwarc/cheatsheets/internal/common"
	"github.com/kwarc/cheatsheets/internal/fields"
	"github.com/kwarc/cheatsheets/internal/server/models"
	"github.com/kwarc/cheatsheets/internal/server/services"
)

type uploadResponse struct {
	FileName     string        `json:"fileName"`
	Checksum     string        `json:"checksum"`
	Replaced     bool          `json:"replaced"`
	Diagnostics  string        `json:"diagnostics"`
	Fields       fields.Fields `json:"fields"`
	StudentName  string        `json:"studentName,omitempty"`
	DownloadDate string        `json:"downloadDate,omitempty"`
}

type submissionDTO struct {
	UserID         string    `json:"userId"`
	StudentName    string    `json:"studentName"`
	CourseID       string    `json:"courseId"`
	InstanceID     string    `json:"instanceId"`
	UniversityID   string    `json:"universityId"`
	WeekID         string    `json:"weekId"`
	Checksum       string    `json:"checksum"`
	FileName       string    `json:"fileName"`
	DateOfDownload string    `json:"dateOfDownload"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toDTO(s *models.Submission) submissionDTO {
	return submissionDTO{
		UserID:         s.UserID,
		StudentName:    s.StudentName,
		CourseID:       s.CourseID,
		InstanceID:     s.InstanceID,
		UniversityID:   s.UniversityID,
		WeekID:         s.WeekID,
		Checksum:       s.Checksum,
		FileName:       s.FileName,
		DateOfDownload: s.DateOfDownload,
		UpdatedAt:      s.UpdatedAt,
	}
}

func (s *RESTServer) readUpload(c *fiber.Ctx) ([]byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "malformed multipart request: missing file field")
	}
	if s.opts.MaxUploadBytes > 0 && fh.Size > s.opts.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", common.ErrorDocumentTooLarge, fh.Size, s.opts.MaxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "malformed multipart request")
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *RESTServer) handleUpload(c *fiber.Ctx) error {
	caller := callerOf(c)
	if err := s.submissions.Admit(c.UserContext(), caller); err != nil {
		return err
	}

	data, err := s.readUpload(c)
	if err != nil {
		return err
	}

	res, err := s.submissions.Submit(c.UserContext(), caller, data)
	if err != nil {
		return err
	}

	code := fiber.StatusOK
	if res.Outcome == services.OutcomeCreated {
		code = fiber.StatusCreated
	}
	return success(c, code, string(res.Outcome), uploadResponse{
		FileName:     res.Submission.FileName,
		Checksum:     res.Submission.Checksum,
		Replaced:     res.FileReplaced,
		Diagnostics:  res.Report.Diagnostics,
		Fields:       res.Report.Fields,
		StudentName:  res.Submission.StudentName,
		DownloadDate: res.Submission.DateOfDownload,
	})
}

func (s *RESTServer) handleCreate(c *fiber.Ctx) error {
	var req services.IssueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	out, err := s.issue.Issue(c.UserContext(), identityOf(c), req)
	if err != nil {
		return err
	}

	c.Attachment(out.FileName)
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Send(out.PDF)
}

func (s *RESTServer) handleList(c *fiber.Ctx) error {
	rows, err := s.archive.List(c.UserContext(), callerOf(c), c.Query("courseId"), c.Query("instanceId"), c.Query("userId"))
	if err != nil {
		return err
	}
	out := make([]submissionDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, toDTO(r))
	}
	return success(c, fiber.StatusOK, "ok", out)
}

func (s *RESTServer) handleFile(c *fiber.Ctx) error {
	f, err := s.archive.File(c.UserContext(), callerOf(c), c.Params("checksum"))
	if err != nil {
		return err
	}
	if f.URL != "" {
		return c.Redirect(f.URL, fiber.StatusFound)
	}
	defer f.Body.Close()

	data, err := io.ReadAll(f.Body)
	if err != nil {
		return err
	}
	disposition := "inline"
	if c.QueryBool("download") {
		disposition = "attachment"
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`%s; filename="%s"`, disposition, f.Submission.FileName))
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.Send(data)
}
