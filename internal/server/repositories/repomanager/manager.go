package repomanager

import (
	"context"
	"database/sql"

	"github.com/kwarc/cheatsheets/internal/dbx"
	"github.com/kwarc/cheatsheets/internal/server/repositories/submissions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Submissions(db dbx.DBTX) submissions.Repository
}
