package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/edustack/portal-api/internal/models"
	"github.com/edustack/portal-api/internal/repository"
	appErrors "github.com/edustack/portal-api/pkg/errors"
)

type trashStore interface {
	SoftDeleteFolderCascade(ctx context.Context, ownerID, folderID, actorID string, deletedAt time.Time) (int, int, error)
	SoftDeleteFile(ctx context.Context, ownerID, fileID, actorID string, deletedAt time.Time) error
	RestoreFolder(ctx context.Context, folderID string, parentID *string) error
	RestoreFile(ctx context.Context, fileID string, folderID *string) error
	RestoreFolderCascade(ctx context.Context, ownerID, folderID string, rootParentID *string) (int, error)
	ListTrash(ctx context.Context, ownerID string, filter models.TrashFilter) ([]models.TrashEntry, error)
	PurgeFolderCascade(ctx context.Context, ownerID, folderID string) (int, []string, error)
	PurgeFile(ctx context.Context, ownerID, fileID string) (string, error)
	EmptyTrash(ctx context.Context, ownerID string) (int, []string, error)
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, []string, error)
	Stats(ctx context.Context, ownerID string) (*models.DriveStats, error)
}

type trashFolderResolver interface {
	GetByID(ctx context.Context, id string) (*models.Folder, error)
}

type trashFileResolver interface {
	GetByID(ctx context.Context, id string) (*models.File, error)
}

type blobCleanupScheduler interface {
	Schedule(refs []string)
}

// TrashServiceConfig holds retention parameters.
type TrashServiceConfig struct {
	RetentionWindow time.Duration
}

// TrashService owns the trash lifecycle: soft-delete cascades, restores with
// fallback-to-root, the trash listing, and permanent purges.
type TrashService struct {
	trash   trashStore
	folders trashFolderResolver
	files   trashFileResolver
	paths   *PathService
	events  *EventBroker
	metrics *MetricsService
	cleanup blobCleanupScheduler
	logger  *zap.Logger
	cfg     TrashServiceConfig
}

// NewTrashService constructs the service with defaults.
func NewTrashService(trash trashStore, folders trashFolderResolver, files trashFileResolver, paths *PathService, events *EventBroker, metrics *MetricsService, cleanup blobCleanupScheduler, logger *zap.Logger, cfg TrashServiceConfig) *TrashService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetentionWindow <= 0 {
		cfg.RetentionWindow = 30 * 24 * time.Hour
	}
	return &TrashService{
		trash:   trash,
		folders: folders,
		files:   files,
		paths:   paths,
		events:  events,
		metrics: metrics,
		cleanup: cleanup,
		logger:  logger,
		cfg:     cfg,
	}
}

// DeleteFolder soft-deletes a folder and its entire live subtree as one
// logical unit.
func (s *TrashService) DeleteFolder(ctx context.Context, folderID string, actor *models.JWTClaims) error {
	folder, err := s.ownedFolder(ctx, folderID, actor)
	if err != nil {
		return err
	}
	if !folder.Live() {
		return appErrors.ErrAlreadyDeleted
	}

	folders, files, err := s.trash.SoftDeleteFolderCascade(ctx, folder.OwnerID, folderID, actor.UserID, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCascadeConflict):
			return appErrors.ErrCascadeFailure
		case errors.Is(err, sql.ErrNoRows):
			// Raced another delete between the read and the snapshot.
			return appErrors.ErrAlreadyDeleted
		default:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete folder")
		}
	}
	s.logger.Info("folder soft-deleted",
		zap.String("folder_id", folderID),
		zap.String("actor_id", actor.UserID),
		zap.Int("folders", folders),
		zap.Int("files", files))

	s.paths.Invalidate(ctx, folder.OwnerID)
	s.metrics.RecordTreeMutation(models.ChangeTrashed)
	s.publish(models.KindFolder, models.ChangeTrashed, folderID, folder.OwnerID)
	return nil
}

// DeleteFile soft-deletes one file, the degenerate one-item cascade.
func (s *TrashService) DeleteFile(ctx context.Context, fileID string, actor *models.JWTClaims) error {
	file, err := s.ownedFile(ctx, fileID, actor)
	if err != nil {
		return err
	}
	if !file.Live() {
		return appErrors.ErrAlreadyDeleted
	}

	if err := s.trash.SoftDeleteFile(ctx, file.OwnerID, fileID, actor.UserID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrAlreadyDeleted
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete file")
	}

	s.metrics.RecordTreeMutation(models.ChangeTrashed)
	s.publish(models.KindFile, models.ChangeTrashed, fileID, file.OwnerID)
	return nil
}

// Restore revives one trashed item at its recorded original location, or at
// the root when that location is itself deleted or gone. A restored item must
// never land under a still-deleted ancestor.
func (s *TrashService) Restore(ctx context.Context, id string, kind models.ItemKind, actor *models.JWTClaims) error {
	switch kind {
	case models.KindFolder:
		folder, err := s.ownedFolder(ctx, id, actor)
		if err != nil {
			return err
		}
		if folder.Live() {
			return appErrors.ErrNotFound
		}
		parentID := s.resolveRestoreParent(ctx, folder.OriginalParentID)
		if err := s.trash.RestoreFolder(ctx, id, parentID); err != nil {
			return s.mapRestoreErr(err)
		}
		s.paths.Invalidate(ctx, folder.OwnerID)
		s.metrics.RecordTreeMutation(models.ChangeRestored)
		s.publish(models.KindFolder, models.ChangeRestored, id, folder.OwnerID)
		return nil
	case models.KindFile:
		file, err := s.ownedFile(ctx, id, actor)
		if err != nil {
			return err
		}
		if file.Live() {
			return appErrors.ErrNotFound
		}
		folderID := s.resolveRestoreParent(ctx, file.OriginalFolderID)
		if err := s.trash.RestoreFile(ctx, id, folderID); err != nil {
			return s.mapRestoreErr(err)
		}
		s.metrics.RecordTreeMutation(models.ChangeRestored)
		s.publish(models.KindFile, models.ChangeRestored, id, file.OwnerID)
		return nil
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown item kind")
	}
}

// RestoreFolderWithContents revives a trashed folder and everything trashed
// beneath it, reattaching descendants to their own recorded locations.
// Returns the number of items revived.
func (s *TrashService) RestoreFolderWithContents(ctx context.Context, folderID string, actor *models.JWTClaims) (int, error) {
	folder, err := s.ownedFolder(ctx, folderID, actor)
	if err != nil {
		return 0, err
	}
	if folder.Live() {
		return 0, appErrors.ErrNotFound
	}

	parentID := s.resolveRestoreParent(ctx, folder.OriginalParentID)
	restored, err := s.trash.RestoreFolderCascade(ctx, folder.OwnerID, folderID, parentID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCascadeConflict):
			return 0, appErrors.ErrCascadeFailure
		case errors.Is(err, sql.ErrNoRows):
			return 0, appErrors.ErrNotFound
		case errors.Is(err, repository.ErrDuplicateName):
			return 0, appErrors.Clone(appErrors.ErrValidation, "a live sibling already uses this name")
		default:
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore folder")
		}
	}
	s.logger.Info("folder restored with contents",
		zap.String("folder_id", folderID),
		zap.String("actor_id", actor.UserID),
		zap.Int("restored", restored))

	s.paths.Invalidate(ctx, folder.OwnerID)
	s.metrics.RecordTreeMutation(models.ChangeRestored)
	s.publish(models.KindFolder, models.ChangeRestored, folderID, folder.OwnerID)
	return restored, nil
}

// List returns the caller-scoped trash, most recently deleted first,
// annotated with expiry and original-location paths.
func (s *TrashService) List(ctx context.Context, ownerID string, filter models.TrashFilter, actor *models.JWTClaims) ([]models.TrashEntry, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown item kind")
	}
	ownerID, err := ResolveOwner(actor, ownerID)
	if err != nil {
		return nil, err
	}
	entries, err := s.trash.ListTrash(ctx, ownerID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list trash")
	}
	for i := range entries {
		expires := entries[i].DeletedAt.Add(s.cfg.RetentionWindow)
		entries[i].ExpiresAt = &expires

		path, err := s.paths.OriginalPath(ctx, ownerID, entries[i].OriginalParentID)
		if err != nil {
			s.logger.Warn("failed to resolve original path",
				zap.String("item_id", entries[i].ID), zap.Error(err))
			continue
		}
		entries[i].OriginalPath = path
	}
	return entries, nil
}

// Purge permanently deletes one trashed item (folders cascade over their
// trashed subtree) and schedules blob cleanup for the orphaned refs. Staff
// only: students empty their trash through the confirmation-gated EmptyTrash.
func (s *TrashService) Purge(ctx context.Context, id string, kind models.ItemKind, actor *models.JWTClaims) (int, error) {
	if actor == nil {
		return 0, appErrors.ErrUnauthorized
	}
	if !actor.Role.IsStaff() {
		return 0, appErrors.ErrForbidden
	}
	switch kind {
	case models.KindFolder:
		folder, err := s.ownedFolder(ctx, id, actor)
		if err != nil {
			return 0, err
		}
		if folder.Live() {
			return 0, appErrors.ErrNotFound
		}
		purged, refs, err := s.trash.PurgeFolderCascade(ctx, folder.OwnerID, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, appErrors.ErrNotFound
			}
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge folder")
		}
		s.scheduleCleanup(refs)
		s.metrics.RecordPurge(purged)
		s.publish(models.KindFolder, models.ChangePurged, id, folder.OwnerID)
		return purged, nil
	case models.KindFile:
		file, err := s.ownedFile(ctx, id, actor)
		if err != nil {
			return 0, err
		}
		if file.Live() {
			return 0, appErrors.ErrNotFound
		}
		ref, err := s.trash.PurgeFile(ctx, file.OwnerID, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, appErrors.ErrNotFound
			}
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge file")
		}
		s.scheduleCleanup([]string{ref})
		s.metrics.RecordPurge(1)
		s.publish(models.KindFile, models.ChangePurged, id, file.OwnerID)
		return 1, nil
	default:
		return 0, appErrors.Clone(appErrors.ErrValidation, "unknown item kind")
	}
}

// EmptyTrash permanently deletes everything in the caller-scoped trash. The
// irreversibility confirmation lives at the transport boundary; once invoked
// the purge is unconditional.
func (s *TrashService) EmptyTrash(ctx context.Context, ownerID string, actor *models.JWTClaims) (int, error) {
	ownerID, err := ResolveOwner(actor, ownerID)
	if err != nil {
		return 0, err
	}
	purged, refs, err := s.trash.EmptyTrash(ctx, ownerID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to empty trash")
	}
	s.logger.Info("trash emptied",
		zap.String("owner_id", ownerID),
		zap.String("actor_id", actor.UserID),
		zap.Int("purged", purged))

	s.scheduleCleanup(refs)
	s.metrics.RecordPurge(purged)
	if purged > 0 {
		s.publish(models.KindFolder, models.ChangePurged, "", ownerID)
	}
	return purged, nil
}

// PurgeExpired permanently deletes every trashed item older than the
// retention window, across all owners. Idempotent: a second pass matches
// nothing.
func (s *TrashService) PurgeExpired(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.RetentionWindow)
	purged, refs, err := s.trash.PurgeExpired(ctx, cutoff)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge expired trash")
	}
	if purged > 0 {
		s.logger.Info("expired trash purged", zap.Int("purged", purged), zap.Time("cutoff", cutoff))
	}
	s.scheduleCleanup(refs)
	s.metrics.RecordPurge(purged)
	return purged, nil
}

// Stats aggregates per-owner usage for dashboard tiles.
func (s *TrashService) Stats(ctx context.Context, ownerID string, actor *models.JWTClaims) (*models.DriveStats, error) {
	ownerID, err := ResolveOwner(actor, ownerID)
	if err != nil {
		return nil, err
	}
	stats, err := s.trash.Stats(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load drive stats")
	}
	return stats, nil
}

// RetentionWindow exposes the configured window for listings and reports.
func (s *TrashService) RetentionWindow() time.Duration {
	return s.cfg.RetentionWindow
}

func (s *TrashService) ownedFolder(ctx context.Context, folderID string, actor *models.JWTClaims) (*models.Folder, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
	}
	if folder.OwnerID != actor.UserID && !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}
	return folder, nil
}

func (s *TrashService) ownedFile(ctx context.Context, fileID string, actor *models.JWTClaims) (*models.File, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load file")
	}
	if file.OwnerID != actor.UserID && !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}
	return file, nil
}

// resolveRestoreParent returns the recorded original parent when it is still
// live, or nil (root) when it is deleted or gone.
func (s *TrashService) resolveRestoreParent(ctx context.Context, originalID *string) *string {
	if originalID == nil {
		return nil
	}
	parent, err := s.folders.GetByID(ctx, *originalID)
	if err != nil || !parent.Live() {
		return nil
	}
	return originalID
}

func (s *TrashService) mapRestoreErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateName):
		return appErrors.Clone(appErrors.ErrValidation, "a live sibling already uses this name")
	case errors.Is(err, sql.ErrNoRows):
		// Lost the race against a purge or another restore.
		return appErrors.Clone(appErrors.ErrConflict, "item changed during restore")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore item")
	}
}

func (s *TrashService) scheduleCleanup(refs []string) {
	if s.cleanup == nil || len(refs) == 0 {
		return
	}
	s.cleanup.Schedule(refs)
}

func (s *TrashService) publish(kind models.ItemKind, action models.ChangeAction, id, ownerID string) {
	if s.events == nil {
		return
	}
	s.events.Publish(models.ChangeEvent{Entity: kind, Action: action, ID: id, OwnerID: ownerID})
}
