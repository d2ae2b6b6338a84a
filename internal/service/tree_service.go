package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edustack/portal-api/internal/dto"
	"github.com/edustack/portal-api/internal/models"
	"github.com/edustack/portal-api/internal/repository"
	appErrors "github.com/edustack/portal-api/pkg/errors"
)

type treeFolderStore interface {
	Create(ctx context.Context, folder *models.Folder) error
	GetLiveByID(ctx context.Context, id string) (*models.Folder, error)
	ListChildren(ctx context.Context, ownerID string, parentID *string) ([]models.Folder, error)
	Rename(ctx context.Context, id, name string) error
	UpdateParent(ctx context.Context, id string, parentID *string) error
}

type treeFileStore interface {
	GetLiveByID(ctx context.Context, id string) (*models.File, error)
	UpdateFolder(ctx context.Context, id string, folderID *string) error
}

// TreeServiceConfig holds validation parameters for tree mutations.
type TreeServiceConfig struct {
	MaxNameLength int
}

// TreeService owns the live folder tree: creation, rename, listing, and the
// reparent engine with its cycle validation.
type TreeService struct {
	folders  treeFolderStore
	files    treeFileStore
	paths    *PathService
	events   *EventBroker
	metrics  *MetricsService
	validate *validator.Validate
	logger   *zap.Logger
	cfg      TreeServiceConfig
}

// NewTreeService constructs the service with defaults.
func NewTreeService(folders treeFolderStore, files treeFileStore, paths *PathService, events *EventBroker, metrics *MetricsService, logger *zap.Logger, cfg TreeServiceConfig) *TreeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxNameLength <= 0 {
		cfg.MaxNameLength = 255
	}
	return &TreeService{
		folders:  folders,
		files:    files,
		paths:    paths,
		events:   events,
		metrics:  metrics,
		validate: validator.New(),
		logger:   logger,
		cfg:      cfg,
	}
}

// ResolveOwner decides whose tree the actor operates on. Students always act
// on their own tree; staff may target another owner explicitly.
func ResolveOwner(actor *models.JWTClaims, requested string) (string, error) {
	if actor == nil {
		return "", appErrors.ErrUnauthorized
	}
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == actor.UserID {
		return actor.UserID, nil
	}
	if !actor.Role.IsStaff() {
		return "", appErrors.ErrForbidden
	}
	return requested, nil
}

func (s *TreeService) validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "name is required")
	}
	if len(name) > s.cfg.MaxNameLength {
		return appErrors.Clone(appErrors.ErrValidation, "name too long")
	}
	return nil
}

// ensureLiveFolder loads a live folder and checks tree ownership.
func (s *TreeService) ensureLiveFolder(ctx context.Context, ownerID, folderID string) (*models.Folder, error) {
	folder, err := s.folders.GetLiveByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
	}
	if folder.OwnerID != ownerID {
		return nil, appErrors.ErrForbidden
	}
	return folder, nil
}

// CreateFolder creates a folder under an optional live parent.
func (s *TreeService) CreateFolder(ctx context.Context, req dto.CreateFolderRequest, actor *models.JWTClaims) (*models.Folder, error) {
	ownerID, err := ResolveOwner(actor, req.OwnerID)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if err := s.validateName(req.Name); err != nil {
		return nil, err
	}
	if req.ParentID != nil {
		if _, err := s.ensureLiveFolder(ctx, ownerID, *req.ParentID); err != nil {
			return nil, err
		}
	}

	folder := &models.Folder{
		Name:     req.Name,
		ParentID: req.ParentID,
		OwnerID:  ownerID,
	}
	if err := s.folders.Create(ctx, folder); err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a live sibling already uses this name")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create folder")
	}

	s.metrics.RecordTreeMutation(models.ChangeCreated)
	s.publish(models.KindFolder, models.ChangeCreated, folder.ID, ownerID)
	return folder, nil
}

// ListFolders returns the live child folders at parentID (nil = root).
func (s *TreeService) ListFolders(ctx context.Context, ownerID string, parentID *string, actor *models.JWTClaims) ([]models.Folder, error) {
	ownerID, err := ResolveOwner(actor, ownerID)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		if _, err := s.ensureLiveFolder(ctx, ownerID, *parentID); err != nil {
			return nil, err
		}
	}
	folders, err := s.folders.ListChildren(ctx, ownerID, parentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list folders")
	}
	return folders, nil
}

// Breadcrumbs resolves the live ancestor chain of a folder.
func (s *TreeService) Breadcrumbs(ctx context.Context, folderID string, actor *models.JWTClaims) ([]models.Breadcrumb, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	folder, err := s.folders.GetLiveByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
	}
	if folder.OwnerID != actor.UserID && !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}
	return s.paths.Breadcrumbs(ctx, folder.OwnerID, &folderID)
}

// RenameFolder renames a live folder.
func (s *TreeService) RenameFolder(ctx context.Context, folderID, name string, actor *models.JWTClaims) (*models.Folder, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validateName(name); err != nil {
		return nil, err
	}
	folder, err := s.folders.GetLiveByID(ctx, folderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load folder")
	}
	if folder.OwnerID != actor.UserID && !actor.Role.IsStaff() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.folders.Rename(ctx, folderID, name); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateName):
			return nil, appErrors.Clone(appErrors.ErrValidation, "a live sibling already uses this name")
		case errors.Is(err, sql.ErrNoRows):
			// Trashed between the read and the conditional update.
			return nil, appErrors.ErrNotFound
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename folder")
		}
	}
	folder.Name = name

	s.paths.Invalidate(ctx, folder.OwnerID)
	s.metrics.RecordTreeMutation(models.ChangeRenamed)
	s.publish(models.KindFolder, models.ChangeRenamed, folderID, folder.OwnerID)
	return folder, nil
}

// CanReparent checks whether moving one item to destinationID is legal. It is
// a pure check with no side effects. Files always pass once the destination
// is live and owned; folders are additionally rejected when the destination
// is themselves or one of their descendants.
func (s *TreeService) CanReparent(ctx context.Context, ownerID string, item models.ItemRef, destinationID *string) error {
	if !item.Kind.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown item kind")
	}
	if destinationID != nil {
		if _, err := s.ensureLiveFolder(ctx, ownerID, *destinationID); err != nil {
			return err
		}
	}
	if item.Kind == models.KindFile {
		return nil
	}
	if destinationID == nil {
		return nil
	}
	if *destinationID == item.ID {
		return appErrors.Clone(appErrors.ErrCycleDetected, "folder cannot become its own parent")
	}
	contains, err := s.paths.ChainContains(ctx, ownerID, destinationID, item.ID)
	if err != nil {
		return err
	}
	if contains {
		return appErrors.Clone(appErrors.ErrCycleDetected, "destination is a descendant of the folder being moved")
	}
	return nil
}

// Move reparents a batch of items to one destination. Items failing
// validation or racing a concurrent delete are skipped and reported; the
// rest move. Partial success is the contract, not all-or-nothing.
func (s *TreeService) Move(ctx context.Context, req dto.MoveRequest, actor *models.JWTClaims) (*models.MoveResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if len(req.Items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no items to move")
	}

	result := &models.MoveResult{Failures: make([]models.MoveFailure, 0)}
	ownerID := ""

	for _, item := range req.Items {
		itemOwner, err := s.itemOwner(ctx, item)
		if err != nil {
			result.Failures = append(result.Failures, models.MoveFailure{ID: item.ID, Kind: item.Kind, Reason: failureReason(err)})
			continue
		}
		if itemOwner != actor.UserID && !actor.Role.IsStaff() {
			result.Failures = append(result.Failures, models.MoveFailure{ID: item.ID, Kind: item.Kind, Reason: failureReason(appErrors.ErrForbidden)})
			continue
		}
		if err := s.CanReparent(ctx, itemOwner, item, req.DestinationID); err != nil {
			result.Failures = append(result.Failures, models.MoveFailure{ID: item.ID, Kind: item.Kind, Reason: failureReason(err)})
			continue
		}
		if err := s.applyMove(ctx, item, req.DestinationID); err != nil {
			result.Failures = append(result.Failures, models.MoveFailure{ID: item.ID, Kind: item.Kind, Reason: failureReason(err)})
			continue
		}
		result.Moved++
		ownerID = itemOwner
		s.metrics.RecordTreeMutation(models.ChangeMoved)
		s.publish(item.Kind, models.ChangeMoved, item.ID, itemOwner)
	}

	if result.Moved > 0 && ownerID != "" {
		s.paths.Invalidate(ctx, ownerID)
	}
	return result, nil
}

func (s *TreeService) itemOwner(ctx context.Context, item models.ItemRef) (string, error) {
	switch item.Kind {
	case models.KindFolder:
		folder, err := s.folders.GetLiveByID(ctx, item.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", appErrors.ErrNotFound
			}
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
		}
		return folder.OwnerID, nil
	case models.KindFile:
		file, err := s.files.GetLiveByID(ctx, item.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", appErrors.ErrNotFound
			}
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load item")
		}
		return file.OwnerID, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, "unknown item kind")
	}
}

func (s *TreeService) applyMove(ctx context.Context, item models.ItemRef, destinationID *string) error {
	var err error
	switch item.Kind {
	case models.KindFolder:
		err = s.folders.UpdateParent(ctx, item.ID, destinationID)
	case models.KindFile:
		err = s.files.UpdateFolder(ctx, item.ID, destinationID)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateName):
			return appErrors.Clone(appErrors.ErrValidation, "a live sibling already uses this name")
		case errors.Is(err, sql.ErrNoRows):
			// Lost the conditional update to a concurrent trash.
			return appErrors.Clone(appErrors.ErrConflict, "item changed during move")
		default:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move item")
		}
	}
	return nil
}

func (s *TreeService) publish(kind models.ItemKind, action models.ChangeAction, id, ownerID string) {
	if s.events == nil {
		return
	}
	s.events.Publish(models.ChangeEvent{Entity: kind, Action: action, ID: id, OwnerID: ownerID})
}

func failureReason(err error) string {
	if appErr := appErrors.FromError(err); appErr != nil {
		return appErr.Message
	}
	return err.Error()
}
