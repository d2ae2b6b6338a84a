package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/portal-api/internal/models"
)

// FileRepository handles file metadata persistence. Bytes live in the
// external blob store; only content refs are recorded here.
type FileRepository struct {
	db *sqlx.DB
}

// NewFileRepository constructs the repository.
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

const fileColumns = `id, name, content_type, folder_id, owner_id, uploader_id, content_ref, description, size_bytes, uploaded_at, deleted_at, deleted_by, original_folder_id`

// Create inserts file metadata for an uploaded blob.
func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO files
	(id, name, content_type, folder_id, owner_id, uploader_id, content_ref, description, size_bytes, uploaded_at, deleted_at, deleted_by, original_folder_id)
	VALUES (:id, :name, :content_type, :folder_id, :owner_id, :uploader_id, :content_ref, :description, :size_bytes, :uploaded_at, :deleted_at, :deleted_by, :original_folder_id)`
	if _, err := r.db.NamedExecContext(ctx, query, file); err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("create file: %w", err)
	}
	return nil
}

// GetByID retrieves one file regardless of deletion state.
func (r *FileRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	var file models.File
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		return nil, err
	}
	return &file, nil
}

// GetLiveByID retrieves one file outside the trash.
func (r *FileRepository) GetLiveByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND deleted_at IS NULL`
	var file models.File
	if err := r.db.GetContext(ctx, &file, query, id); err != nil {
		return nil, err
	}
	return &file, nil
}

// ListByFolder returns the live files directly inside folderID (nil = root).
// A failing folder-scoped query is a hard error; it never widens to an
// owner-wide listing.
func (r *FileRepository) ListByFolder(ctx context.Context, ownerID string, folderID *string) ([]models.File, error) {
	var (
		query string
		args  []interface{}
	)
	if folderID == nil {
		query = `SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1 AND folder_id IS NULL AND deleted_at IS NULL ORDER BY name ASC`
		args = []interface{}{ownerID}
	} else {
		query = `SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1 AND folder_id = $2 AND deleted_at IS NULL ORDER BY name ASC`
		args = []interface{}{ownerID, *folderID}
	}
	files := make([]models.File, 0)
	if err := r.db.SelectContext(ctx, &files, query, args...); err != nil {
		return nil, fmt.Errorf("list files in folder: %w", err)
	}
	return files, nil
}

// UpdateMeta renames a live file and/or replaces its description.
func (r *FileRepository) UpdateMeta(ctx context.Context, id string, name *string, description *string) error {
	const query = `UPDATE files SET
		name = COALESCE($2, name),
		description = COALESCE($3, description)
	WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, name, description)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("update file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check file update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateFolder moves a live file into folderID (nil = root). The deleted_at
// guard makes concurrent trash/move races resolve to exactly one winner.
func (r *FileRepository) UpdateFolder(ctx context.Context, id string, folderID *string) error {
	const query = `UPDATE files SET folder_id = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, folderID)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("move file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check file move rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
