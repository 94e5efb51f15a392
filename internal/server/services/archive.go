package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/kwarc/cheatsheets/internal/common"
	"github.com/kwarc/cheatsheets/internal/logging"
	"github.com/kwarc/cheatsheets/internal/server/models"
	"github.com/kwarc/cheatsheets/internal/server/repositories/repomanager"
	"github.com/kwarc/cheatsheets/internal/storage"
)

var checksumRe = regexp.MustCompile(`^[0-9a-f]{8}$`)

// StoredFile is a located sheet. Exactly one of Body and URL is set.
type StoredFile struct {
	Submission *models.Submission
	Body       io.ReadCloser
	URL        string
}

// ArchiveService lists and serves accepted sheets.
type ArchiveService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.Store
	logger      logging.Logger
}

func NewArchiveService(db *sql.DB, m repomanager.RepositoryManager, store storage.Store, l logging.Logger) *ArchiveService {
	return &ArchiveService{db: db, repomanager: m, store: store, logger: l.With("module", "archive")}
}

// List returns the rows of a course instance. Without userID instructors see
// every user and students see their own rows.
func (s *ArchiveService) List(ctx context.Context, c Caller, courseID, instanceID, userID string) ([]*models.Submission, error) {
	var missing []string
	if courseID == "" {
		missing = append(missing, "courseId")
	}
	if instanceID == "" {
		missing = append(missing, "instanceId")
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	switch {
	case userID != "" && userID != c.UserID && !c.Instructor:
		return nil, common.ErrorForbidden
	case userID == "" && !c.Instructor:
		userID = c.UserID
	}

	return s.repomanager.Submissions(s.db).List(ctx, courseID, instanceID, userID)
}

// File locates the sheet with checksum visible to the caller.
func (s *ArchiveService) File(ctx context.Context, c Caller, checksum string) (*StoredFile, error) {
	if s.store == nil {
		return nil, common.ErrorStorageNotConfigured
	}
	if !checksumRe.MatchString(checksum) {
		return nil, common.ErrorNotFound
	}

	owner := c.UserID
	if c.Instructor {
		owner = ""
	}
	sub, err := s.repomanager.Submissions(s.db).GetByChecksum(ctx, checksum, owner)
	if err != nil {
		return nil, err
	}

	if err := storage.ValidateName(sub.FileName); err != nil {
		s.logger.Error(ctx, "ledger row names a file outside storage", "file", sub.FileName, "error", err)
		return nil, &IntegrityError{FileName: sub.FileName, Err: err}
	}

	if p, ok := s.store.(storage.Presigner); ok {
		url, err := p.PresignGet(ctx, sub.FileName)
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", sub.FileName, err)
		}
		return &StoredFile{Submission: sub, URL: url}, nil
	}

	body, err := s.store.Open(ctx, sub.FileName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "ledger row without stored file", "file", sub.FileName)
		}
		return nil, err
	}
	return &StoredFile{Submission: sub, Body: body}, nil
}
