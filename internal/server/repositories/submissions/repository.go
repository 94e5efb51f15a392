package submissions

import (
	"context"

	"github.com/kwarc/cheatsheets/internal/server/models"
)

// Repository is the submission ledger.
type Repository interface {
	// Get returns the row of a slot or common.ErrorNotFound.
	Get(ctx context.Context, key models.SlotKey) (*models.Submission, error)
	Create(ctx context.Context, s *models.Submission) error
	// Update overwrites the checksum, file name, download date and student
	// name of an existing slot.
	Update(ctx context.Context, s *models.Submission) error
	// List returns rows of a course instance; an empty userID lists all users.
	List(ctx context.Context, courseID, instanceID, userID string) ([]*models.Submission, error)
	// ListByFilePrefix returns every row whose stored file would be removed
	// when a new version is written under prefix.
	ListByFilePrefix(ctx context.Context, prefix string) ([]*models.Submission, error)
	// GetByChecksum finds a row by checksum; an empty userID matches any user.
	GetByChecksum(ctx context.Context, checksum, userID string) (*models.Submission, error)
}
