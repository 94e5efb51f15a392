package submissions

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwarc/cheatsheets/internal/common"
	"github.com/kwarc/cheatsheets/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

var (
	key = models.SlotKey{UserID: "u123", InstanceID: "WS25-26", CourseID: "ai-1", UniversityID: "FAU", WeekID: "3"}

	rowColumns = []string{"user_id", "instance_id", "course_id", "university_id", "week_id",
		"student_name", "checksum", "file_name", "date_of_download", "created_at", "updated_at"}

	ts = time.Date(2025, 10, 14, 9, 0, 0, 0, time.UTC)
)

func sampleRow() *sqlmock.Rows {
	return sqlmock.NewRows(rowColumns).AddRow("u123", "WS25-26", "ai-1", "FAU", "3",
		"Jane Doe", "deadbeef", "ws25-26_u123_3_deadbeef.pdf", "2025-01-10T10:00:00Z", ts, ts)
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+user_id,.*FROM\s+cheatsheets\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+instance_id\s*=\s*\$2.*week_id\s*=\s*\$5\s*$`
	mock.ExpectQuery(q).WithArgs("u123", "WS25-26", "ai-1", "FAU", "3").WillReturnRows(sampleRow())

	got, err := repo.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, key, got.SlotKey)
	assert.Equal(t, "deadbeef", got.Checksum)
	assert.Equal(t, "Jane Doe", got.StudentName)
	assert.Equal(t, ts, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+cheatsheets`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), key)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGet_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+cheatsheets`).WillReturnError(errors.New("db down"))

	_, err := repo.Get(context.Background(), key)
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+cheatsheets\s*\(.*\)\s*VALUES\s*\(\$1,.*\$9\)\s*RETURNING\s+created_at,\s*updated_at\s*$`
	mock.ExpectQuery(q).
		WithArgs("u123", "WS25-26", "ai-1", "FAU", "3", "Jane Doe", "deadbeef", "f.pdf", "2025-01-10").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(ts, ts))

	s := &models.Submission{SlotKey: key, StudentName: "Jane Doe", Checksum: "deadbeef", FileName: "f.pdf", DateOfDownload: "2025-01-10"}
	require.NoError(t, repo.Create(context.Background(), s))
	assert.Equal(t, ts, s.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+cheatsheets`).WillReturnError(errors.New("duplicate key value violates unique constraint"))

	err := repo.Create(context.Background(), &models.Submission{SlotKey: key})
	assert.ErrorContains(t, err, "db error: duplicate key")
}

func TestUpdate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+cheatsheets\s+SET\s+checksum\s*=\s*\$6,\s*file_name\s*=\s*\$7.*WHERE\s+user_id\s*=\s*\$1.*$`
	mock.ExpectExec(q).
		WithArgs("u123", "WS25-26", "ai-1", "FAU", "3", "cafebabe", "new.pdf", "2025-02-01", "Jane Doe").
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := &models.Submission{SlotKey: key, StudentName: "Jane Doe", Checksum: "cafebabe", FileName: "new.pdf", DateOfDownload: "2025-02-01"}
	require.NoError(t, repo.Update(context.Background(), s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_NoRows(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+cheatsheets`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Update(context.Background(), &models.Submission{SlotKey: key}), common.ErrorNotFound)
}

func TestUpdate_RowsAffectedError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+cheatsheets`).WillReturnResult(sqlmock.NewErrorResult(errors.New("ra fail")))
	assert.ErrorContains(t, repo.Update(context.Background(), &models.Submission{SlotKey: key}), "db error: ra fail")
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT.*FROM\s+cheatsheets\s+WHERE\s+course_id\s*=\s*\$1\s+AND\s+instance_id\s*=\s*\$2.*ORDER\s+BY\s+user_id,\s*week_id\s*$`
	rows := sampleRow().AddRow("u999", "WS25-26", "ai-1", "FAU", "4",
		"Max", "cafebabe", "ws25-26_u999_4_cafebabe.pdf", "2025-01-11", ts, ts)
	mock.ExpectQuery(q).WithArgs("ai-1", "WS25-26", "").WillReturnRows(rows)

	got, err := repo.List(context.Background(), "ai-1", "WS25-26", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u999", got[1].UserID)
}

func TestList_ScanError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+cheatsheets`).WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))

	_, err := repo.List(context.Background(), "ai-1", "WS25-26", "u1")
	assert.ErrorContains(t, err, "db error")
}

func TestListByFilePrefix(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT.*FROM\s+cheatsheets\s+WHERE\s+left\(file_name,\s*length\(\$1\)\)\s*=\s*\$1`
	rows := sampleRow().AddRow("u123", "WS25-26", "ml-2", "FAU", "3",
		"Jane Doe", "cafebabe", "ws25-26_u123_3_cafebabe.pdf", "2025-01-11", ts, ts)
	mock.ExpectQuery(q).WithArgs("ws25-26_u123_3_").WillReturnRows(rows)

	got, err := repo.ListByFilePrefix(context.Background(), "ws25-26_u123_3")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ml-2", got[1].CourseID)

	mock.ExpectQuery(q).WillReturnError(errors.New("db down"))
	_, err = repo.ListByFilePrefix(context.Background(), "ws25-26_u123_3")
	assert.ErrorContains(t, err, "db error: db down")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByChecksum(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT.*FROM\s+cheatsheets\s+WHERE\s+checksum\s*=\s*\$1.*LIMIT\s+1\s*$`
	mock.ExpectQuery(q).WithArgs("deadbeef", "u123").WillReturnRows(sampleRow())

	got, err := repo.GetByChecksum(context.Background(), "deadbeef", "u123")
	require.NoError(t, err)
	assert.Equal(t, "ws25-26_u123_3_deadbeef.pdf", got.FileName)

	mock.ExpectQuery(q).WithArgs("00000000", "").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByChecksum(context.Background(), "00000000", "")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
