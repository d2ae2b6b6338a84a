package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/edustack/portal-api/internal/models"
)

// ErrCascadeConflict signals that the live subtree changed between snapshot
// and stamp; the whole cascade was rolled back and may be retried.
var ErrCascadeConflict = errors.New("subtree changed during cascade")

// TrashRepository owns the cascade transitions between the live tree and the
// trash: soft-delete, restore, and permanent purge.
type TrashRepository struct {
	db *sqlx.DB
}

// NewTrashRepository constructs the repository.
func NewTrashRepository(db *sqlx.DB) *TrashRepository {
	return &TrashRepository{db: db}
}

// liveSubtreeQuery collects the ids of a folder and all its live descendant
// folders, owner-scoped.
const liveSubtreeQuery = `WITH RECURSIVE subtree AS (
	SELECT id FROM folders WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
	UNION ALL
	SELECT f.id FROM folders f INNER JOIN subtree s ON f.parent_id = s.id
	WHERE f.deleted_at IS NULL
)
SELECT id FROM subtree`

// trashedSubtreeQuery collects a trashed folder plus every trashed folder
// whose recorded original parent chain leads back to it. Membership follows
// original_parent_id, not parent_id, so it reconstructs the cascade that put
// the items in the trash even after later live-tree mutations.
const trashedSubtreeQuery = `WITH RECURSIVE subtree AS (
	SELECT id FROM folders WHERE id = $1 AND owner_id = $2 AND deleted_at IS NOT NULL
	UNION ALL
	SELECT f.id FROM folders f INNER JOIN subtree s ON f.original_parent_id = s.id
	WHERE f.deleted_at IS NOT NULL
)
SELECT id FROM subtree`

// SoftDeleteFolderCascade stamps the folder and its entire live subtree as
// deleted in one transaction. Each item records its own parent at the moment
// of deletion. Returns the number of folders and files stamped.
func (r *TrashRepository) SoftDeleteFolderCascade(ctx context.Context, ownerID, folderID, actorID string, deletedAt time.Time) (int, int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin soft-delete cascade: %w", err)
	}

	var folderIDs []string
	if err := tx.SelectContext(ctx, &folderIDs, liveSubtreeQuery, folderID, ownerID); err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, 0, fmt.Errorf("collect live subtree: %w", err)
	}
	if len(folderIDs) == 0 {
		tx.Rollback() //nolint:errcheck
		return 0, 0, sql.ErrNoRows
	}

	const stampFolders = `UPDATE folders SET
		deleted_at = $2, deleted_by = $3, original_parent_id = parent_id
	WHERE id = ANY($1) AND deleted_at IS NULL`
	res, err := tx.ExecContext(ctx, stampFolders, pq.Array(folderIDs), deletedAt, actorID)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, 0, fmt.Errorf("stamp folders: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, 0, fmt.Errorf("check stamped folders: %w", err)
	}
	if int(affected) != len(folderIDs) {
		// A concurrent actor moved or deleted part of the snapshot.
		tx.Rollback() //nolint:errcheck
		return 0, 0, ErrCascadeConflict
	}

	const stampFiles = `UPDATE files SET
		deleted_at = $2, deleted_by = $3, original_folder_id = folder_id
	WHERE folder_id = ANY($1) AND deleted_at IS NULL`
	res, err = tx.ExecContext(ctx, stampFiles, pq.Array(folderIDs), deletedAt, actorID)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, 0, fmt.Errorf("stamp files: %w", err)
	}
	fileCount, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, 0, fmt.Errorf("check stamped files: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit soft-delete cascade: %w", err)
	}
	return len(folderIDs), int(fileCount), nil
}

// SoftDeleteFile stamps a single live file as deleted, the one-item
// degenerate case of the folder cascade.
func (r *TrashRepository) SoftDeleteFile(ctx context.Context, ownerID, fileID, actorID string, deletedAt time.Time) error {
	const query = `UPDATE files SET
		deleted_at = $3, deleted_by = $4, original_folder_id = folder_id
	WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, fileID, ownerID, deletedAt, actorID)
	if err != nil {
		return fmt.Errorf("soft delete file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check soft-deleted file rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RestoreFolder revives a single trashed folder at parentID, clearing the
// deletion triple. Losing the conditional update (already restored or
// purged) surfaces as sql.ErrNoRows.
func (r *TrashRepository) RestoreFolder(ctx context.Context, folderID string, parentID *string) error {
	const query = `UPDATE folders SET
		parent_id = $2, deleted_at = NULL, deleted_by = NULL, original_parent_id = NULL, updated_at = $3
	WHERE id = $1 AND deleted_at IS NOT NULL`
	res, err := r.db.ExecContext(ctx, query, folderID, parentID, time.Now().UTC())
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("restore folder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check restored folder rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RestoreFile revives a single trashed file into folderID.
func (r *TrashRepository) RestoreFile(ctx context.Context, fileID string, folderID *string) error {
	const query = `UPDATE files SET
		folder_id = $2, deleted_at = NULL, deleted_by = NULL, original_folder_id = NULL
	WHERE id = $1 AND deleted_at IS NOT NULL`
	res, err := r.db.ExecContext(ctx, query, fileID, folderID)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("restore file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check restored file rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RestoreFolderCascade revives a trashed folder and everything trashed under
// it, in one transaction. The root reattaches to rootParentID (the caller
// resolves fallback-to-root); descendants reattach to their own recorded
// original locations, which were restored in the same statement batch.
// Returns the total number of folders and files revived.
func (r *TrashRepository) RestoreFolderCascade(ctx context.Context, ownerID, folderID string, rootParentID *string) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin restore cascade: %w", err)
	}
	now := time.Now().UTC()

	var folderIDs []string
	if err := tx.SelectContext(ctx, &folderIDs, trashedSubtreeQuery, folderID, ownerID); err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, fmt.Errorf("collect trashed subtree: %w", err)
	}
	if len(folderIDs) == 0 {
		tx.Rollback() //nolint:errcheck
		return 0, sql.ErrNoRows
	}

	const restoreRoot = `UPDATE folders SET
		parent_id = $2, deleted_at = NULL, deleted_by = NULL, original_parent_id = NULL, updated_at = $3
	WHERE id = $1 AND deleted_at IS NOT NULL`
	res, err := tx.ExecContext(ctx, restoreRoot, folderID, rootParentID, now)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, fmt.Errorf("restore cascade root: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil || affected == 0 {
		tx.Rollback() //nolint:errcheck
		if err != nil {
			return 0, fmt.Errorf("check restored root: %w", err)
		}
		return 0, ErrCascadeConflict
	}

	restored := 1
	if len(folderIDs) > 1 {
		const restoreDescendants = `UPDATE folders SET
			parent_id = original_parent_id, deleted_at = NULL, deleted_by = NULL, original_parent_id = NULL, updated_at = $3
		WHERE id = ANY($1) AND id <> $2 AND deleted_at IS NOT NULL`
		res, err = tx.ExecContext(ctx, restoreDescendants, pq.Array(folderIDs), folderID, now)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return 0, fmt.Errorf("restore descendant folders: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return 0, fmt.Errorf("check restored descendants: %w", err)
		}
		if int(affected) != len(folderIDs)-1 {
			tx.Rollback() //nolint:errcheck
			return 0, ErrCascadeConflict
		}
		restored += int(affected)
	}

	const restoreFiles = `UPDATE files SET
		folder_id = original_folder_id, deleted_at = NULL, deleted_by = NULL, original_folder_id = NULL
	WHERE original_folder_id = ANY($1) AND deleted_at IS NOT NULL`
	res, err = tx.ExecContext(ctx, restoreFiles, pq.Array(folderIDs))
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, fmt.Errorf("restore cascade files: %w", err)
	}
	fileCount, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, fmt.Errorf("check restored files: %w", err)
	}
	restored += int(fileCount)

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit restore cascade: %w", err)
	}
	return restored, nil
}

// ListTrash returns an owner's trashed folders and files in one projection,
// most recently deleted first, independent of current tree shape.
func (r *TrashRepository) ListTrash(ctx context.Context, ownerID string, filter models.TrashFilter) ([]models.TrashEntry, error) {
	builder := strings.Builder{}
	args := []interface{}{ownerID}

	nameCond := ""
	if filter.NameContains != "" {
		args = append(args, "%"+filter.NameContains+"%")
		nameCond = fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}

	includeFolders := filter.Kind == "" || filter.Kind == models.KindFolder
	includeFiles := filter.Kind == "" || filter.Kind == models.KindFile

	if includeFolders {
		builder.WriteString(`SELECT 'FOLDER' AS kind, id, name, owner_id, deleted_at, deleted_by, original_parent_id, 0 AS size_bytes
		FROM folders WHERE owner_id = $1 AND deleted_at IS NOT NULL`)
		builder.WriteString(nameCond)
	}
	if includeFolders && includeFiles {
		builder.WriteString(" UNION ALL ")
	}
	if includeFiles {
		builder.WriteString(`SELECT 'FILE' AS kind, id, name, owner_id, deleted_at, deleted_by, original_folder_id AS original_parent_id, size_bytes
		FROM files WHERE owner_id = $1 AND deleted_at IS NOT NULL`)
		builder.WriteString(nameCond)
	}
	builder.WriteString(" ORDER BY deleted_at DESC, id DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	entries := make([]models.TrashEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	return entries, nil
}

// PurgeFolderCascade permanently deletes a trashed folder, every trashed
// folder beneath it, and their files, returning the purged count and the
// content refs whose blobs should be cleaned up.
func (r *TrashRepository) PurgeFolderCascade(ctx context.Context, ownerID, folderID string) (int, []string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("begin purge cascade: %w", err)
	}

	var folderIDs []string
	if err := tx.SelectContext(ctx, &folderIDs, trashedSubtreeQuery, folderID, ownerID); err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, nil, fmt.Errorf("collect purge subtree: %w", err)
	}
	if len(folderIDs) == 0 {
		tx.Rollback() //nolint:errcheck
		return 0, nil, sql.ErrNoRows
	}

	var refs []string
	const purgeFiles = `DELETE FROM files
	WHERE original_folder_id = ANY($1) AND deleted_at IS NOT NULL RETURNING content_ref`
	if err := tx.SelectContext(ctx, &refs, purgeFiles, pq.Array(folderIDs)); err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, nil, fmt.Errorf("purge cascade files: %w", err)
	}

	const purgeFolders = `DELETE FROM folders WHERE id = ANY($1) AND deleted_at IS NOT NULL`
	res, err := tx.ExecContext(ctx, purgeFolders, pq.Array(folderIDs))
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, nil, fmt.Errorf("purge cascade folders: %w", err)
	}
	folderCount, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, nil, fmt.Errorf("check purged folders: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("commit purge cascade: %w", err)
	}
	return int(folderCount) + len(refs), refs, nil
}

// PurgeFile permanently deletes one trashed file and returns its content ref.
func (r *TrashRepository) PurgeFile(ctx context.Context, ownerID, fileID string) (string, error) {
	const query = `DELETE FROM files
	WHERE id = $1 AND owner_id = $2 AND deleted_at IS NOT NULL RETURNING content_ref`
	var ref string
	if err := r.db.GetContext(ctx, &ref, query, fileID, ownerID); err != nil {
		return "", err
	}
	return ref, nil
}

// EmptyTrash permanently deletes all of an owner's trashed items, returning
// the purged count and orphaned content refs.
func (r *TrashRepository) EmptyTrash(ctx context.Context, ownerID string) (int, []string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("begin empty trash: %w", err)
	}

	var refs []string
	const purgeFiles = `DELETE FROM files
	WHERE owner_id = $1 AND deleted_at IS NOT NULL RETURNING content_ref`
	if err := tx.SelectContext(ctx, &refs, purgeFiles, ownerID); err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, nil, fmt.Errorf("empty trash files: %w", err)
	}

	const purgeFolders = `DELETE FROM folders WHERE owner_id = $1 AND deleted_at IS NOT NULL`
	res, err := tx.ExecContext(ctx, purgeFolders, ownerID)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, nil, fmt.Errorf("empty trash folders: %w", err)
	}
	folderCount, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, nil, fmt.Errorf("check emptied folders: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("commit empty trash: %w", err)
	}
	return int(folderCount) + len(refs), refs, nil
}

// PurgeExpired permanently deletes every trashed item, across all owners,
// whose deleted_at is older than cutoff. Running it twice is safe: the
// second pass simply matches nothing.
func (r *TrashRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int, []string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("begin expired purge: %w", err)
	}

	var refs []string
	const purgeFiles = `DELETE FROM files
	WHERE deleted_at IS NOT NULL AND deleted_at < $1 RETURNING content_ref`
	if err := tx.SelectContext(ctx, &refs, purgeFiles, cutoff); err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, nil, fmt.Errorf("purge expired files: %w", err)
	}

	const purgeFolders = `DELETE FROM folders WHERE deleted_at IS NOT NULL AND deleted_at < $1`
	res, err := tx.ExecContext(ctx, purgeFolders, cutoff)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, nil, fmt.Errorf("purge expired folders: %w", err)
	}
	folderCount, err := res.RowsAffected()
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return 0, nil, fmt.Errorf("check purged expired folders: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("commit expired purge: %w", err)
	}
	return int(folderCount) + len(refs), refs, nil
}

// Stats aggregates an owner's live and trashed usage in one round trip.
func (r *TrashRepository) Stats(ctx context.Context, ownerID string) (*models.DriveStats, error) {
	const query = `SELECT
		$1::text AS owner_id,
		(SELECT COUNT(*) FROM folders WHERE owner_id = $1 AND deleted_at IS NULL) AS live_folders,
		(SELECT COUNT(*) FROM files WHERE owner_id = $1 AND deleted_at IS NULL) AS live_files,
		(SELECT COUNT(*) FROM folders WHERE owner_id = $1 AND deleted_at IS NOT NULL)
			+ (SELECT COUNT(*) FROM files WHERE owner_id = $1 AND deleted_at IS NOT NULL) AS trashed_items,
		(SELECT COALESCE(SUM(size_bytes), 0) FROM files WHERE owner_id = $1 AND deleted_at IS NULL) AS total_bytes`
	var stats models.DriveStats
	if err := r.db.GetContext(ctx, &stats, query, ownerID); err != nil {
		return nil, fmt.Errorf("drive stats: %w", err)
	}
	return &stats, nil
}
