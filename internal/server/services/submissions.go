// Package services contains server-side business logic: accepting uploaded
// sheets into the ledger, issuing new sheets and browsing the archive.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kwarc/cheatsheets/internal/common"
	"github.com/kwarc/cheatsheets/internal/dbx"
	"github.com/kwarc/cheatsheets/internal/logging"
	"github.com/kwarc/cheatsheets/internal/server/models"
	"github.com/kwarc/cheatsheets/internal/server/repositories/repomanager"
	"github.com/kwarc/cheatsheets/internal/storage"
	"github.com/kwarc/cheatsheets/internal/verify"
	"github.com/kwarc/cheatsheets/internal/window"
)

// Outcome of an accepted upload.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeAlready  Outcome = "already uploaded"
	OutcomeReplaced Outcome = "replaced"
)

// Caller is the authenticated user of a request. Instructors bypass the
// upload window and may browse other users' sheets.
type Caller struct {
	UserID     string
	Instructor bool
}

// SubmissionResult describes an accepted upload.
type SubmissionResult struct {
	Outcome    Outcome
	Submission *models.Submission
	// FileReplaced is true when a previous file of the slot was deleted.
	FileReplaced bool
	Report       *verify.Report
}

// SubmissionService verifies uploads and keeps one sheet per slot.
type SubmissionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.Store
	extractor   *verify.Extractor
	gate        *window.Gate
	logger      logging.Logger
}

// NewSubmissionService wires the service. A nil store means storage is not
// configured and every upload fails before parsing.
func NewSubmissionService(db *sql.DB, m repomanager.RepositoryManager, store storage.Store,
	extractor *verify.Extractor, gate *window.Gate, l logging.Logger) *SubmissionService {
	return &SubmissionService{
		db:          db,
		repomanager: m,
		store:       store,
		extractor:   extractor,
		gate:        gate,
		logger:      l.With("module", "submissions"),
	}
}

// Admit runs the checks that need no document: the upload window, then the
// storage configuration. Transports call it before reading the body.
func (s *SubmissionService) Admit(ctx context.Context, c Caller) error {
	if err := s.gate.Check(c.Instructor); err != nil {
		s.logger.Info(ctx, "upload outside window", "user_id", c.UserID)
		return err
	}
	if s.store == nil {
		return common.ErrorStorageNotConfigured
	}
	return nil
}

// Submit runs the whole acceptance pipeline for one uploaded document.
func (s *SubmissionService) Submit(ctx context.Context, c Caller, data []byte) (*SubmissionResult, error) {
	if err := s.Admit(ctx, c); err != nil {
		return nil, err
	}

	report, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	if !report.Complete() {
		return nil, &IncompleteError{Diagnostics: report.Diagnostics, Missing: report.Missing, Fields: report.Fields}
	}

	f := report.Fields
	if f.StudentID != c.UserID {
		// the slot stays keyed by the authenticated uploader
		s.logger.Warn(ctx, "sheet was issued to another student",
			"user_id", c.UserID, "student_id", f.StudentID, "instructor", c.Instructor)
	}
	sub := &models.Submission{
		SlotKey: models.SlotKey{
			UserID:       c.UserID,
			InstanceID:   f.InstanceID,
			CourseID:     f.CourseID,
			UniversityID: f.UniversityID,
			WeekID:       f.WeekID,
		},
		StudentName:    f.StudentName,
		Checksum:       report.Checksum,
		FileName:       report.FileName(c.UserID),
		DateOfDownload: f.DownloadDate,
	}
	prefix := verify.SlotPrefix(f.InstanceID, c.UserID, f.WeekID)

	res := &SubmissionResult{Submission: sub, Report: report}
	wrote := false

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		k := sub.SlotKey
		if err := dbx.AdvisoryXactLock(ctx, tx, dbx.LockKey(k.UserID, k.InstanceID, k.CourseID, k.UniversityID, k.WeekID)); err != nil {
			return err
		}

		repo := s.repomanager.Submissions(tx)
		existing, err := repo.Get(ctx, k)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		if existing != nil && existing.Checksum == sub.Checksum {
			res.Outcome = OutcomeAlready
			res.Submission = existing
			return nil
		}

		stale := ""
		if existing != nil && existing.FileName != sub.FileName {
			if err := storage.ValidateName(existing.FileName); err != nil {
				s.logger.Error(ctx, "ledger row names a file outside storage",
					"file", existing.FileName, "user_id", k.UserID, "error", err)
				return &IntegrityError{FileName: existing.FileName, Err: err}
			}
			stale = existing.FileName
		}

		// the stored name has no course or university, so another slot of the
		// same user, instance and week shares the prefix
		sharing, err := repo.ListByFilePrefix(ctx, prefix)
		if err != nil {
			return err
		}
		for _, o := range sharing {
			if o.SlotKey != k {
				s.logger.Warn(ctx, "upload replaces a file recorded for another slot",
					"file", o.FileName, "user_id", o.UserID,
					"course_id", o.CourseID, "university_id", o.UniversityID,
					"upload_course_id", k.CourseID, "upload_university_id", k.UniversityID)
			}
		}

		replaced, err := s.store.Replace(ctx, prefix, sub.FileName, data)
		if err != nil {
			return fmt.Errorf("store %s: %w", sub.FileName, err)
		}
		wrote = true

		if stale != "" {
			removed, err := s.store.Remove(ctx, stale)
			if err != nil {
				return &IntegrityError{FileName: stale, Err: err}
			}
			replaced = replaced || removed
		}
		res.FileReplaced = replaced

		if existing == nil {
			res.Outcome = OutcomeCreated
			return repo.Create(ctx, sub)
		}
		res.Outcome = OutcomeReplaced
		return repo.Update(ctx, sub)
	})
	if err != nil {
		if wrote {
			s.compensate(ctx, sub.FileName)
		}
		return nil, err
	}

	s.logger.Info(ctx, "upload accepted",
		"outcome", string(res.Outcome),
		"user_id", c.UserID,
		"file", res.Submission.FileName,
		"diagnostics", report.Diagnostics,
	)
	return res, nil
}

// compensate removes a file written for a transaction that did not commit.
func (s *SubmissionService) compensate(ctx context.Context, name string) {
	removed, err := s.store.Remove(context.WithoutCancel(ctx), name)
	if err != nil {
		s.logger.Error(ctx, "compensating delete failed", "file", name, "error", err)
		return
	}
	s.logger.Warn(ctx, "compensating delete after failed ledger write", "file", name, "removed", removed)
}
