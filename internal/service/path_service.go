package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/edustack/portal-api/internal/models"
	appErrors "github.com/edustack/portal-api/pkg/errors"
)

const defaultMaxTreeDepth = 1000

type pathFolderStore interface {
	GetByID(ctx context.Context, id string) (*models.Folder, error)
	GetLiveByID(ctx context.Context, id string) (*models.Folder, error)
}

// PathService resolves ancestor chains. Live navigation only exposes live
// ancestors; trash display tolerates deleted ancestors and flags them.
// Every walk is bounded: a chain longer than maxDepth means the forest
// invariant did not hold and resolves to a corrupt-tree error instead of a
// loop.
type PathService struct {
	folders  pathFolderStore
	cache    *CacheService
	maxDepth int
	logger   *zap.Logger
}

// NewPathService constructs the resolver.
func NewPathService(folders pathFolderStore, cache *CacheService, maxDepth int, logger *zap.Logger) *PathService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxDepth <= 0 {
		maxDepth = defaultMaxTreeDepth
	}
	return &PathService{folders: folders, cache: cache, maxDepth: maxDepth, logger: logger}
}

func pathCacheKey(ownerID, folderID string) string {
	return fmt.Sprintf("drive:path:%s:%s", ownerID, folderID)
}

// PathCachePattern matches every cached chain of one owner, for invalidation
// after tree mutations.
func PathCachePattern(ownerID string) string {
	return fmt.Sprintf("drive:path:%s:*", ownerID)
}

// Breadcrumbs resolves the live ancestor chain of folderID, root first and
// including the folder itself. A nil folderID is the root level: empty chain.
func (s *PathService) Breadcrumbs(ctx context.Context, ownerID string, folderID *string) ([]models.Breadcrumb, error) {
	if folderID == nil {
		return []models.Breadcrumb{}, nil
	}

	key := pathCacheKey(ownerID, *folderID)
	if s.cache != nil {
		var cached []models.Breadcrumb
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return cached, nil
		}
	}

	chain := make([]models.Breadcrumb, 0, 8)
	cursor := folderID
	for step := 0; cursor != nil; step++ {
		if step >= s.maxDepth {
			s.logger.Error("ancestor chain exceeded depth bound",
				zap.String("owner_id", ownerID), zap.String("folder_id", *folderID))
			return nil, appErrors.ErrCorruptTree
		}
		folder, err := s.folders.GetLiveByID(ctx, *cursor)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				if step == 0 {
					return nil, appErrors.ErrNotFound
				}
				// A live folder hanging off a missing or trashed ancestor
				// violates the forest invariant.
				return nil, appErrors.ErrCorruptTree
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve ancestor chain")
		}
		if folder.OwnerID != ownerID {
			return nil, appErrors.ErrForbidden
		}
		chain = append(chain, models.Breadcrumb{ID: folder.ID, Name: folder.Name})
		cursor = folder.ParentID
	}

	reverse(chain)
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, chain, 0)
	}
	return chain, nil
}

// FullPath renders the live chain as "A / B / C".
func (s *PathService) FullPath(ctx context.Context, ownerID string, folderID *string) (string, error) {
	chain, err := s.Breadcrumbs(ctx, ownerID, folderID)
	if err != nil {
		return "", err
	}
	return joinChain(chain), nil
}

// OriginalChain walks an ancestor chain for trash display, starting at a
// trashed item's recorded original parent. Deleted ancestors stay walkable
// and are flagged; a purged ancestor simply truncates the chain, since the
// listing must not fail because part of the original location is gone.
func (s *PathService) OriginalChain(ctx context.Context, ownerID string, startID *string) ([]models.Breadcrumb, error) {
	chain := make([]models.Breadcrumb, 0, 8)
	cursor := startID
	for step := 0; cursor != nil; step++ {
		if step >= s.maxDepth {
			return nil, appErrors.ErrCorruptTree
		}
		folder, err := s.folders.GetByID(ctx, *cursor)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				break
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve original chain")
		}
		if folder.OwnerID != ownerID {
			break
		}
		chain = append(chain, models.Breadcrumb{ID: folder.ID, Name: folder.Name, Deleted: !folder.Live()})
		cursor = folder.ParentID
		if !folder.Live() {
			// Trashed ancestors recorded where they used to hang.
			cursor = folder.OriginalParentID
		}
	}
	reverse(chain)
	return chain, nil
}

// OriginalPath renders the deleted-tolerant chain as "A / B / C".
func (s *PathService) OriginalPath(ctx context.Context, ownerID string, startID *string) (string, error) {
	chain, err := s.OriginalChain(ctx, ownerID, startID)
	if err != nil {
		return "", err
	}
	return joinChain(chain), nil
}

// ChainContains reports whether targetID appears in the live ancestor chain
// starting at startID (inclusive). The cycle validator reuses this walk so
// both share one depth bound and one failure mode.
func (s *PathService) ChainContains(ctx context.Context, ownerID string, startID *string, targetID string) (bool, error) {
	cursor := startID
	for step := 0; cursor != nil; step++ {
		if step >= s.maxDepth {
			return false, appErrors.ErrCorruptTree
		}
		if *cursor == targetID {
			return true, nil
		}
		folder, err := s.folders.GetLiveByID(ctx, *cursor)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				if step == 0 {
					return false, appErrors.ErrNotFound
				}
				return false, appErrors.ErrCorruptTree
			}
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to walk ancestor chain")
		}
		if folder.OwnerID != ownerID {
			return false, appErrors.ErrForbidden
		}
		cursor = folder.ParentID
	}
	return false, nil
}

// Invalidate drops every cached chain of one owner after a tree mutation.
func (s *PathService) Invalidate(ctx context.Context, ownerID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, PathCachePattern(ownerID)); err != nil {
		s.logger.Warn("path cache invalidation failed", zap.String("owner_id", ownerID), zap.Error(err))
	}
}

func reverse(chain []models.Breadcrumb) {
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
}

func joinChain(chain []models.Breadcrumb) string {
	if len(chain) == 0 {
		return ""
	}
	names := make([]string, len(chain))
	for i, crumb := range chain {
		names[i] = crumb.Name
	}
	return strings.Join(names, " / ")
}
