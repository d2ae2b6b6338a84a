package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edustack/portal-api/internal/models"
)

// pgUniqueViolation is the PostgreSQL error code raised when a live sibling
// already carries the requested name.
const pgUniqueViolation = "23505"

// ErrDuplicateName signals a live-sibling name collision.
var ErrDuplicateName = errors.New("duplicate name among live siblings")

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	return errors.Is(err, ErrDuplicateName)
}

// FolderRepository handles folder persistence.
type FolderRepository struct {
	db *sqlx.DB
}

// NewFolderRepository constructs the repository.
func NewFolderRepository(db *sqlx.DB) *FolderRepository {
	return &FolderRepository{db: db}
}

const folderColumns = `id, name, parent_id, owner_id, created_at, updated_at, deleted_at, deleted_by, original_parent_id`

// Create inserts a folder at its parent location.
func (r *FolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	if folder.ID == "" {
		folder.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if folder.CreatedAt.IsZero() {
		folder.CreatedAt = now
	}
	folder.UpdatedAt = now
	const query = `INSERT INTO folders
	(id, name, parent_id, owner_id, created_at, updated_at, deleted_at, deleted_by, original_parent_id)
	VALUES (:id, :name, :parent_id, :owner_id, :created_at, :updated_at, :deleted_at, :deleted_by, :original_parent_id)`
	if _, err := r.db.NamedExecContext(ctx, query, folder); err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("create folder: %w", err)
	}
	return nil
}

// GetByID retrieves one folder regardless of deletion state. Trash paths and
// restore targets need deleted rows to stay reachable.
func (r *FolderRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1`
	var folder models.Folder
	if err := r.db.GetContext(ctx, &folder, query, id); err != nil {
		return nil, err
	}
	return &folder, nil
}

// GetLiveByID retrieves one folder outside the trash.
func (r *FolderRepository) GetLiveByID(ctx context.Context, id string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1 AND deleted_at IS NULL`
	var folder models.Folder
	if err := r.db.GetContext(ctx, &folder, query, id); err != nil {
		return nil, err
	}
	return &folder, nil
}

// ListChildren returns the live child folders under parentID (nil = root),
// ordered by name for stable sibling listings.
func (r *FolderRepository) ListChildren(ctx context.Context, ownerID string, parentID *string) ([]models.Folder, error) {
	var (
		query string
		args  []interface{}
	)
	if parentID == nil {
		query = `SELECT ` + folderColumns + ` FROM folders
		WHERE owner_id = $1 AND parent_id IS NULL AND deleted_at IS NULL ORDER BY name ASC`
		args = []interface{}{ownerID}
	} else {
		query = `SELECT ` + folderColumns + ` FROM folders
		WHERE owner_id = $1 AND parent_id = $2 AND deleted_at IS NULL ORDER BY name ASC`
		args = []interface{}{ownerID, *parentID}
	}
	folders := make([]models.Folder, 0)
	if err := r.db.SelectContext(ctx, &folders, query, args...); err != nil {
		return nil, fmt.Errorf("list child folders: %w", err)
	}
	return folders, nil
}

// Rename updates a live folder's name. Missing or trashed rows surface as
// sql.ErrNoRows so the caller can distinguish not-found from conflict.
func (r *FolderRepository) Rename(ctx context.Context, id, name string) error {
	const query = `UPDATE folders SET name = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, name, time.Now().UTC())
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("rename folder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check folder rename rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateParent reparents a live folder. The deleted_at guard is the
// optimistic-concurrency check: a folder trashed between validation and this
// write loses with sql.ErrNoRows instead of silently resurfacing.
func (r *FolderRepository) UpdateParent(ctx context.Context, id string, parentID *string) error {
	const query = `UPDATE folders SET parent_id = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, parentID, time.Now().UTC())
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("move folder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check folder move rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
