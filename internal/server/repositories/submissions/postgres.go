// Package submissions persists the one-row-per-slot submission ledger.
package submissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kwarc/cheatsheets/internal/common"
	"github.com/kwarc/cheatsheets/internal/dbx"
	"github.com/kwarc/cheatsheets/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const columns = `user_id, instance_id, course_id, university_id, week_id,
		 student_name, checksum, file_name, date_of_download, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (*models.Submission, error) {
	s := &models.Submission{}
	err := row.Scan(&s.UserID, &s.InstanceID, &s.CourseID, &s.UniversityID, &s.WeekID,
		&s.StudentName, &s.Checksum, &s.FileName, &s.DateOfDownload, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) Get(ctx context.Context, key models.SlotKey) (*models.Submission, error) {
	query :=
		`SELECT ` + columns + ` FROM cheatsheets
		 WHERE user_id = $1 AND instance_id = $2 AND course_id = $3 AND university_id = $4 AND week_id = $5
		 `

	s, err := scanSubmission(r.db.QueryRowContext(ctx, query,
		key.UserID, key.InstanceID, key.CourseID, key.UniversityID, key.WeekID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Submission) error {
	query :=
		`INSERT INTO cheatsheets (user_id, instance_id, course_id, university_id, week_id,
		 student_name, checksum, file_name, date_of_download)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		s.UserID, s.InstanceID, s.CourseID, s.UniversityID, s.WeekID,
		s.StudentName, s.Checksum, s.FileName, s.DateOfDownload,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, s *models.Submission) error {
	query :=
		`UPDATE cheatsheets
		 SET checksum = $6, file_name = $7, date_of_download = $8, student_name = $9, updated_at = now()
		 WHERE user_id = $1 AND instance_id = $2 AND course_id = $3 AND university_id = $4 AND week_id = $5
		 `

	res, err := r.db.ExecContext(ctx, query,
		s.UserID, s.InstanceID, s.CourseID, s.UniversityID, s.WeekID,
		s.Checksum, s.FileName, s.DateOfDownload, s.StudentName)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, courseID, instanceID, userID string) ([]*models.Submission, error) {
	query :=
		`SELECT ` + columns + ` FROM cheatsheets
		 WHERE course_id = $1 AND instance_id = $2 AND ($3::text = '' OR user_id = $3)
		 ORDER BY user_id, week_id
		 `

	return r.queryRows(ctx, query, courseID, instanceID, userID)
}

func (r *PostgresRepository) ListByFilePrefix(ctx context.Context, prefix string) ([]*models.Submission, error) {
	query :=
		`SELECT ` + columns + ` FROM cheatsheets
		 WHERE left(file_name, length($1)) = $1
		 ORDER BY user_id, course_id, university_id
		 `

	return r.queryRows(ctx, query, prefix+"_")
}

func (r *PostgresRepository) queryRows(ctx context.Context, query string, args ...any) ([]*models.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) GetByChecksum(ctx context.Context, checksum, userID string) (*models.Submission, error) {
	query :=
		`SELECT ` + columns + ` FROM cheatsheets
		 WHERE checksum = $1 AND ($2::text = '' OR user_id = $2)
		 ORDER BY updated_at DESC
		 LIMIT 1
		 `

	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, checksum, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
