package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/edustack/portal-api/internal/models"
)

func newDriveRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestFolderRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newDriveRepoMock(t)
	defer cleanup()

	repo := NewFolderRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO folders")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	folder := &models.Folder{
		Name:    "Semester 1",
		OwnerID: "owner-1",
	}
	require.NoError(t, repo.Create(context.Background(), folder))
	require.NotEmpty(t, folder.ID)
	require.False(t, folder.CreatedAt.IsZero())

	rows := sqlmock.NewRows([]string{"id", "name", "parent_id", "owner_id", "created_at", "updated_at", "deleted_at", "deleted_by", "original_parent_id"}).
		AddRow(folder.ID, folder.Name, nil, folder.OwnerID, time.Now(), time.Now(), nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, parent_id, owner_id")).
		WithArgs(folder.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), folder.ID)
	require.NoError(t, err)
	require.Equal(t, folder.ID, found.ID)
	require.True(t, found.Live())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepositoryCreateDuplicateName(t *testing.T) {
	db, mock, cleanup := newDriveRepoMock(t)
	defer cleanup()

	repo := NewFolderRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO folders")).
		WillReturnError(&pq.Error{Code: pgUniqueViolation})

	err := repo.Create(context.Background(), &models.Folder{Name: "Dup", OwnerID: "owner-1"})
	require.ErrorIs(t, err, ErrDuplicateName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepositoryListChildrenRoot(t *testing.T) {
	db, mock, cleanup := newDriveRepoMock(t)
	defer cleanup()

	repo := NewFolderRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "parent_id", "owner_id", "created_at", "updated_at", "deleted_at", "deleted_by", "original_parent_id"}).
		AddRow("f-1", "Assignments", nil, "owner-1", time.Now(), time.Now(), nil, nil, nil).
		AddRow("f-2", "Notes", nil, "owner-1", time.Now(), time.Now(), nil, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("parent_id IS NULL AND deleted_at IS NULL")).
		WithArgs("owner-1").
		WillReturnRows(rows)

	folders, err := repo.ListChildren(context.Background(), "owner-1", nil)
	require.NoError(t, err)
	require.Len(t, folders, 2)
	require.Equal(t, "Assignments", folders[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepositoryRenameMissing(t *testing.T) {
	db, mock, cleanup := newDriveRepoMock(t)
	defer cleanup()

	repo := NewFolderRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE folders SET name = $2")).
		WithArgs("f-gone", "New Name", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Rename(context.Background(), "f-gone", "New Name")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFolderRepositoryUpdateParent(t *testing.T) {
	db, mock, cleanup := newDriveRepoMock(t)
	defer cleanup()

	repo := NewFolderRepository(db)
	dest := "f-dest"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE folders SET parent_id = $2")).
		WithArgs("f-1", &dest, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateParent(context.Background(), "f-1", &dest))

	// A folder trashed mid-flight loses the conditional update.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE folders SET parent_id = $2")).
		WithArgs("f-trashed", &dest, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.UpdateParent(context.Background(), "f-trashed", &dest), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
