package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/edustack/portal-api/internal/dto"
	"github.com/edustack/portal-api/internal/models"
	"github.com/edustack/portal-api/internal/repository"
	appErrors "github.com/edustack/portal-api/pkg/errors"
)

type fileMetaStore interface {
	Create(ctx context.Context, file *models.File) error
	GetLiveByID(ctx context.Context, id string) (*models.File, error)
	ListByFolder(ctx context.Context, ownerID string, folderID *string) ([]models.File, error)
	UpdateMeta(ctx context.Context, id string, name *string, description *string) error
}

type fileFolderResolver interface {
	GetLiveByID(ctx context.Context, id string) (*models.Folder, error)
}

type blobStorage interface {
	Put(r io.Reader) (string, error)
	Open(ref string) (*os.File, error)
	Delete(ref string) error
}

// FileUpload carries the metadata and stream of one incoming file.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// FileDownload bundles an open blob handle with metadata for streaming.
type FileDownload struct {
	Content     *os.File
	Filename    string
	ContentType string
	SizeBytes   int64
}

// FileServiceConfig holds validation parameters for uploads.
type FileServiceConfig struct {
	MaxFileSize   int64
	MaxNameLength int
}

// FileService manages file metadata and blob IO. Bytes pass straight through
// to the blob store; the drive never inspects them.
type FileService struct {
	files   fileMetaStore
	folders fileFolderResolver
	blobs   blobStorage
	events  *EventBroker
	metrics *MetricsService
	logger  *zap.Logger
	cfg     FileServiceConfig
}

// NewFileService constructs the service with defaults.
func NewFileService(files fileMetaStore, folders fileFolderResolver, blobs blobStorage, events *EventBroker, metrics *MetricsService, logger *zap.Logger, cfg FileServiceConfig) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 50 * 1024 * 1024
	}
	if cfg.MaxNameLength <= 0 {
		cfg.MaxNameLength = 255
	}
	return &FileService{
		files:   files,
		folders: folders,
		blobs:   blobs,
		events:  events,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// Upload stores the blob and records file metadata inside the target folder.
func (s *FileService) Upload(ctx context.Context, meta dto.CreateFileRequest, upload FileUpload, actor *models.JWTClaims) (*models.File, error) {
	ownerID, err := ResolveOwner(actor, meta.OwnerID)
	if err != nil {
		return nil, err
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds size limit")
	}
	name := strings.TrimSpace(meta.Name)
	if name == "" {
		name = filepath.Base(upload.Filename)
	}
	if name == "" || name == "." {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	if len(name) > s.cfg.MaxNameLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, "name too long")
	}
	if meta.FolderID != nil {
		folder, err := s.folders.GetLiveByID(ctx, *meta.FolderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrNotFound
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
		}
		if folder.OwnerID != ownerID {
			return nil, appErrors.ErrForbidden
		}
	}

	ref, err := s.blobs.Put(upload.Content)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file content")
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	file := &models.File{
		Name:        name,
		ContentType: contentType,
		FolderID:    meta.FolderID,
		OwnerID:     ownerID,
		UploaderID:  actor.UserID,
		ContentRef:  ref,
		Description: meta.Description,
		SizeBytes:   upload.Size,
	}
	if err := s.files.Create(ctx, file); err != nil {
		if cleanupErr := s.blobs.Delete(ref); cleanupErr != nil {
			s.logger.Warn("orphaned blob after failed create", zap.String("ref", ref), zap.Error(cleanupErr))
		}
		if errors.Is(err, repository.ErrDuplicateName) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a live sibling already uses this name")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create file")
	}

	s.metrics.RecordTreeMutation(models.ChangeCreated)
	s.publish(models.ChangeCreated, file.ID, ownerID)
	return file, nil
}

// List returns the live files directly inside folderID (nil = root).
func (s *FileService) List(ctx context.Context, ownerID string, folderID *string, actor *models.JWTClaims) ([]models.File, error) {
	ownerID, err := ResolveOwner(actor, ownerID)
	if err != nil {
		return nil, err
	}
	if folderID != nil {
		folder, err := s.folders.GetLiveByID(ctx, *folderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrNotFound
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
		}
		if folder.OwnerID != ownerID {
			return nil, appErrors.ErrForbidden
		}
	}
	files, err := s.files.ListByFolder(ctx, ownerID, folderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list files")
	}
	return files, nil
}

// Download opens the blob behind a live file for streaming.
func (s *FileService) Download(ctx context.Context, fileID string, actor *models.JWTClaims) (*FileDownload, error) {
	file, err := s.getOwned(ctx, fileID, actor)
	if err != nil {
		return nil, err
	}
	content, err := s.blobs.Open(file.ContentRef)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file content")
	}
	return &FileDownload{
		Content:     content,
		Filename:    file.Name,
		ContentType: file.ContentType,
		SizeBytes:   file.SizeBytes,
	}, nil
}

// UpdateMeta renames a live file and/or replaces its description.
func (s *FileService) UpdateMeta(ctx context.Context, fileID string, req dto.UpdateFileRequest, actor *models.JWTClaims) (*models.File, error) {
	file, err := s.getOwned(ctx, fileID, actor)
	if err != nil {
		return nil, err
	}
	if req.Name == nil && req.Description == nil {
		return file, nil
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name is required")
		}
		if len(trimmed) > s.cfg.MaxNameLength {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name too long")
		}
		req.Name = &trimmed
	}
	if err := s.files.UpdateMeta(ctx, fileID, req.Name, req.Description); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateName):
			return nil, appErrors.Clone(appErrors.ErrValidation, "a live sibling already uses this name")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.ErrNotFound
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update file")
		}
	}
	if req.Name != nil {
		file.Name = *req.Name
	}
	if req.Description != nil {
		file.Description = req.Description
	}

	s.metrics.RecordTreeMutation(models.ChangeRenamed)
	s.publish(models.ChangeRenamed, fileID, file.OwnerID)
	return file, nil
}

func (s *FileService) getOwned(ctx context.Context, fileID string, actor *models.JWTClaims) (*models.File, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	file, err := s.files.GetLiveByID(ctx, fileID)
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

func (s *FileService) publish(action models.ChangeAction, id, ownerID string) {
	if s.events == nil {
		return
	}
	s.events.Publish(models.ChangeEvent{Entity: models.KindFile, Action: action, ID: id, OwnerID: ownerID})
}
