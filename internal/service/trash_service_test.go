package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edustack/portal-api/internal/models"
	appErrors "github.com/edustack/portal-api/pkg/errors"
)

// trashStoreStub applies the cascade semantics in memory over the folder and
// file stubs so tests can assert on resulting tree shape.
type trashStoreStub struct {
	folders *folderStoreStub
	files   *fileStoreStub
}

func (s *trashStoreStub) liveSubtree(ownerID, folderID string) []string {
	root, ok := s.folders.folders[folderID]
	if !ok || !root.Live() || root.OwnerID != ownerID {
		return nil
	}
	ids := []string{folderID}
	for i := 0; i < len(ids); i++ {
		for _, folder := range s.folders.folders {
			if folder.Live() && folder.ParentID != nil && *folder.ParentID == ids[i] {
				ids = append(ids, folder.ID)
			}
		}
	}
	return ids
}

func (s *trashStoreStub) trashedSubtree(ownerID, folderID string) []string {
	root, ok := s.folders.folders[folderID]
	if !ok || root.Live() || root.OwnerID != ownerID {
		return nil
	}
	ids := []string{folderID}
	for i := 0; i < len(ids); i++ {
		for _, folder := range s.folders.folders {
			if !folder.Live() && folder.OriginalParentID != nil && *folder.OriginalParentID == ids[i] {
				ids = append(ids, folder.ID)
			}
		}
	}
	return ids
}

func (s *trashStoreStub) SoftDeleteFolderCascade(ctx context.Context, ownerID, folderID, actorID string, deletedAt time.Time) (int, int, error) {
	ids := s.liveSubtree(ownerID, folderID)
	if len(ids) == 0 {
		return 0, 0, sql.ErrNoRows
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
		folder := s.folders.folders[id]
		folder.DeletedAt = &deletedAt
		folder.DeletedBy = &actorID
		folder.OriginalParentID = folder.ParentID
	}
	fileCount := 0
	for _, file := range s.files.files {
		if !file.Live() || file.FolderID == nil {
			continue
		}
		if _, ok := set[*file.FolderID]; ok {
			file.DeletedAt = &deletedAt
			file.DeletedBy = &actorID
			file.OriginalFolderID = file.FolderID
			fileCount++
		}
	}
	return len(ids), fileCount, nil
}

func (s *trashStoreStub) SoftDeleteFile(ctx context.Context, ownerID, fileID, actorID string, deletedAt time.Time) error {
	file, ok := s.files.files[fileID]
	if !ok || !file.Live() || file.OwnerID != ownerID {
		return sql.ErrNoRows
	}
	file.DeletedAt = &deletedAt
	file.DeletedBy = &actorID
	file.OriginalFolderID = file.FolderID
	return nil
}

func (s *trashStoreStub) RestoreFolder(ctx context.Context, folderID string, parentID *string) error {
	folder, ok := s.folders.folders[folderID]
	if !ok || folder.Live() {
		return sql.ErrNoRows
	}
	folder.ParentID = parentID
	folder.DeletedAt = nil
	folder.DeletedBy = nil
	folder.OriginalParentID = nil
	return nil
}

func (s *trashStoreStub) RestoreFile(ctx context.Context, fileID string, folderID *string) error {
	file, ok := s.files.files[fileID]
	if !ok || file.Live() {
		return sql.ErrNoRows
	}
	file.FolderID = folderID
	file.DeletedAt = nil
	file.DeletedBy = nil
	file.OriginalFolderID = nil
	return nil
}

func (s *trashStoreStub) RestoreFolderCascade(ctx context.Context, ownerID, folderID string, rootParentID *string) (int, error) {
	ids := s.trashedSubtree(ownerID, folderID)
	if len(ids) == 0 {
		return 0, sql.ErrNoRows
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	restored := 0
	for _, id := range ids {
		folder := s.folders.folders[id]
		if id == folderID {
			folder.ParentID = rootParentID
		} else {
			folder.ParentID = folder.OriginalParentID
		}
		folder.DeletedAt = nil
		folder.DeletedBy = nil
		folder.OriginalParentID = nil
		restored++
	}
	for _, file := range s.files.files {
		if file.Live() || file.OriginalFolderID == nil {
			continue
		}
		if _, ok := set[*file.OriginalFolderID]; ok {
			file.FolderID = file.OriginalFolderID
			file.DeletedAt = nil
			file.DeletedBy = nil
			file.OriginalFolderID = nil
			restored++
		}
	}
	return restored, nil
}

func (s *trashStoreStub) ListTrash(ctx context.Context, ownerID string, filter models.TrashFilter) ([]models.TrashEntry, error) {
	entries := make([]models.TrashEntry, 0)
	for _, folder := range s.folders.folders {
		if folder.Live() || folder.OwnerID != ownerID {
			continue
		}
		if filter.Kind == models.KindFile {
			continue
		}
		if filter.NameContains != "" && !strings.Contains(strings.ToLower(folder.Name), strings.ToLower(filter.NameContains)) {
			continue
		}
		entries = append(entries, models.TrashEntry{
			Kind: models.KindFolder, ID: folder.ID, Name: folder.Name, OwnerID: folder.OwnerID,
			DeletedAt: *folder.DeletedAt, DeletedBy: *folder.DeletedBy, OriginalParentID: folder.OriginalParentID,
		})
	}
	for _, file := range s.files.files {
		if file.Live() || file.OwnerID != ownerID {
			continue
		}
		if filter.Kind == models.KindFolder {
			continue
		}
		if filter.NameContains != "" && !strings.Contains(strings.ToLower(file.Name), strings.ToLower(filter.NameContains)) {
			continue
		}
		entries = append(entries, models.TrashEntry{
			Kind: models.KindFile, ID: file.ID, Name: file.Name, OwnerID: file.OwnerID,
			DeletedAt: *file.DeletedAt, DeletedBy: *file.DeletedBy, OriginalParentID: file.OriginalFolderID,
			SizeBytes: file.SizeBytes,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].DeletedAt.After(entries[j].DeletedAt) })
	return entries, nil
}

func (s *trashStoreStub) PurgeFolderCascade(ctx context.Context, ownerID, folderID string) (int, []string, error) {
	ids := s.trashedSubtree(ownerID, folderID)
	if len(ids) == 0 {
		return 0, nil, sql.ErrNoRows
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	refs := make([]string, 0)
	for id, file := range s.files.files {
		if file.Live() || file.OriginalFolderID == nil {
			continue
		}
		if _, ok := set[*file.OriginalFolderID]; ok {
			refs = append(refs, file.ContentRef)
			delete(s.files.files, id)
		}
	}
	for _, id := range ids {
		delete(s.folders.folders, id)
	}
	return len(ids) + len(refs), refs, nil
}

func (s *trashStoreStub) PurgeFile(ctx context.Context, ownerID, fileID string) (string, error) {
	file, ok := s.files.files[fileID]
	if !ok || file.Live() || file.OwnerID != ownerID {
		return "", sql.ErrNoRows
	}
	delete(s.files.files, fileID)
	return file.ContentRef, nil
}

func (s *trashStoreStub) EmptyTrash(ctx context.Context, ownerID string) (int, []string, error) {
	purged := 0
	refs := make([]string, 0)
	for id, folder := range s.folders.folders {
		if !folder.Live() && folder.OwnerID == ownerID {
			delete(s.folders.folders, id)
			purged++
		}
	}
	for id, file := range s.files.files {
		if !file.Live() && file.OwnerID == ownerID {
			refs = append(refs, file.ContentRef)
			delete(s.files.files, id)
			purged++
		}
	}
	return purged, refs, nil
}

func (s *trashStoreStub) PurgeExpired(ctx context.Context, cutoff time.Time) (int, []string, error) {
	purged := 0
	refs := make([]string, 0)
	for id, folder := range s.folders.folders {
		if !folder.Live() && folder.DeletedAt.Before(cutoff) {
			delete(s.folders.folders, id)
			purged++
		}
	}
	for id, file := range s.files.files {
		if !file.Live() && file.DeletedAt.Before(cutoff) {
			refs = append(refs, file.ContentRef)
			delete(s.files.files, id)
			purged++
		}
	}
	return purged, refs, nil
}

func (s *trashStoreStub) Stats(ctx context.Context, ownerID string) (*models.DriveStats, error) {
	stats := &models.DriveStats{OwnerID: ownerID}
	for _, folder := range s.folders.folders {
		if folder.OwnerID != ownerID {
			continue
		}
		if folder.Live() {
			stats.LiveFolders++
		} else {
			stats.TrashedItems++
		}
	}
	for _, file := range s.files.files {
		if file.OwnerID != ownerID {
			continue
		}
		if file.Live() {
			stats.LiveFiles++
			stats.TotalBytes += file.SizeBytes
		} else {
			stats.TrashedItems++
		}
	}
	return stats, nil
}

type cleanupStub struct {
	refs []string
}

func (c *cleanupStub) Schedule(refs []string) {
	c.refs = append(c.refs, refs...)
}

func newTrashFixture() (*TrashService, *folderStoreStub, *fileStoreStub, *cleanupStub) {
	folders := newFolderStoreStub()
	files := newFileStoreStub()
	trash := &trashStoreStub{folders: folders, files: files}
	cleanup := &cleanupStub{}
	paths := NewPathService(folders, nil, 0, nil)
	svc := NewTrashService(trash, folders, files, paths, nil, nil, cleanup, nil, TrashServiceConfig{RetentionWindow: 30 * 24 * time.Hour})
	return svc, folders, files, cleanup
}

func TestDeleteFolderCascadeStampsProvenance(t *testing.T) {
	svc, folders, files, _ := newTrashFixture()
	a := folders.add(&models.Folder{Name: "A", OwnerID: "stu-1"})
	b := folders.add(&models.Folder{Name: "B", OwnerID: "stu-1", ParentID: &a.ID})
	file := files.add(&models.File{Name: "essay.pdf", OwnerID: "stu-1", FolderID: &b.ID})

	require.NoError(t, svc.DeleteFolder(context.Background(), a.ID, studentClaims("stu-1")))

	require.False(t, folders.folders[a.ID].Live())
	require.False(t, folders.folders[b.ID].Live())
	require.False(t, files.files[file.ID].Live())
	// Each item records its own immediate location, not the cascade root.
	require.Equal(t, a.ID, *folders.folders[b.ID].OriginalParentID)
	require.Equal(t, b.ID, *files.files[file.ID].OriginalFolderID)
	require.Equal(t, "stu-1", *files.files[file.ID].DeletedBy)
}

func TestDeleteFolderAlreadyDeleted(t *testing.T) {
	svc, folders, _, _ := newTrashFixture()
	folder := folders.add(&models.Folder{Name: "A", OwnerID: "stu-1", DeletedAt: nowPtr()})

	err := svc.DeleteFolder(context.Background(), folder.ID, studentClaims("stu-1"))
	require.Equal(t, appErrors.ErrAlreadyDeleted.Code, appErrors.FromError(err).Code)
}

func TestRestoreFolderWithContentsRoundTrip(t *testing.T) {
	svc, folders, files, _ := newTrashFixture()
	a := folders.add(&models.Folder{Name: "A", OwnerID: "stu-1"})
	b := folders.add(&models.Folder{Name: "B", OwnerID: "stu-1", ParentID: &a.ID})
	file := files.add(&models.File{Name: "essay.pdf", OwnerID: "stu-1", FolderID: &b.ID})

	require.NoError(t, svc.DeleteFolder(context.Background(), a.ID, studentClaims("stu-1")))
	restored, err := svc.RestoreFolderWithContents(context.Background(), a.ID, studentClaims("stu-1"))
	require.NoError(t, err)
	require.Equal(t, 3, restored)

	// Tree shape is back: restore is the inverse of the cascade.
	require.True(t, folders.folders[a.ID].Live())
	require.Nil(t, folders.folders[a.ID].ParentID)
	require.Equal(t, a.ID, *folders.folders[b.ID].ParentID)
	require.Equal(t, b.ID, *files.files[file.ID].FolderID)
	require.Nil(t, files.files[file.ID].DeletedBy)
}

func TestRestoreSingleFallsBackToRoot(t *testing.T) {
	svc, folders, files, _ := newTrashFixture()
	a := folders.add(&models.Folder{Name: "A", OwnerID: "stu-1"})
	file := files.add(&models.File{Name: "essay.pdf", OwnerID: "stu-1", FolderID: &a.ID})

	require.NoError(t, svc.DeleteFolder(context.Background(), a.ID, studentClaims("stu-1")))

	// Restoring just the file while its original folder is still trashed
	// must land it at the root, never under a deleted ancestor.
	require.NoError(t, svc.Restore(context.Background(), file.ID, models.KindFile, studentClaims("stu-1")))
	require.True(t, files.files[file.ID].Live())
	require.Nil(t, files.files[file.ID].FolderID)
}

func TestRestoreLiveItemIsNotFound(t *testing.T) {
	svc, folders, _, _ := newTrashFixture()
	folder := folders.add(&models.Folder{Name: "A", OwnerID: "stu-1"})

	err := svc.Restore(context.Background(), folder.ID, models.KindFolder, studentClaims("stu-1"))
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListAnnotatesExpiryAndOriginalPath(t *testing.T) {
	svc, folders, files, _ := newTrashFixture()
	a := folders.add(&models.Folder{Name: "Archive", OwnerID: "stu-1"})
	files.add(&models.File{Name: "notes.txt", OwnerID: "stu-1", FolderID: &a.ID})

	require.NoError(t, svc.DeleteFolder(context.Background(), a.ID, studentClaims("stu-1")))

	entries, err := svc.List(context.Background(), "", models.TrashFilter{Kind: models.KindFile}, studentClaims("stu-1"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].ExpiresAt)
	require.Equal(t, "Archive", entries[0].OriginalPath)
	require.Equal(t, "stu-1", entries[0].DeletedBy)
}

func TestPurgeFolderSchedulesBlobCleanup(t *testing.T) {
	svc, folders, files, cleanup := newTrashFixture()
	a := folders.add(&models.Folder{Name: "A", OwnerID: "stu-1"})
	files.add(&models.File{Name: "essay.pdf", OwnerID: "stu-1", FolderID: &a.ID, ContentRef: "aa/essay"})

	require.NoError(t, svc.DeleteFolder(context.Background(), a.ID, studentClaims("stu-1")))
	purged, err := svc.Purge(context.Background(), a.ID, models.KindFolder, adminClaims("adm-1"))
	require.NoError(t, err)
	require.Equal(t, 2, purged)
	require.Equal(t, []string{"aa/essay"}, cleanup.refs)
	require.Empty(t, folders.folders)
	require.Empty(t, files.files)
}

func TestEmptyTrashPurgesOnlyTrashedItems(t *testing.T) {
	svc, folders, files, _ := newTrashFixture()
	keep := folders.add(&models.Folder{Name: "Keep", OwnerID: "stu-1"})
	gone := folders.add(&models.Folder{Name: "Gone", OwnerID: "stu-1"})
	files.add(&models.File{Name: "kept.txt", OwnerID: "stu-1", FolderID: &keep.ID})

	require.NoError(t, svc.DeleteFolder(context.Background(), gone.ID, studentClaims("stu-1")))
	purged, err := svc.EmptyTrash(context.Background(), "", studentClaims("stu-1"))
	require.NoError(t, err)
	require.Equal(t, 1, purged)
	require.True(t, folders.folders[keep.ID].Live())
}

func TestPurgeExpiredHonorsRetentionWindow(t *testing.T) {
	svc, folders, _, _ := newTrashFixture()
	old := time.Now().UTC().Add(-40 * 24 * time.Hour)
	fresh := time.Now().UTC().Add(-time.Hour)
	actor := "stu-1"
	folders.add(&models.Folder{Name: "Old", OwnerID: "stu-1", DeletedAt: &old, DeletedBy: &actor})
	keep := folders.add(&models.Folder{Name: "Fresh", OwnerID: "stu-1", DeletedAt: &fresh, DeletedBy: &actor})

	purged, err := svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, purged)
	require.Contains(t, folders.folders, keep.ID)

	// Second pass matches nothing.
	purged, err = svc.PurgeExpired(context.Background())
	require.NoError(t, err)
	require.Zero(t, purged)
}

func TestStatsAggregatesOwnerUsage(t *testing.T) {
	svc, folders, files, _ := newTrashFixture()
	a := folders.add(&models.Folder{Name: "A", OwnerID: "stu-1"})
	files.add(&models.File{Name: "one.txt", OwnerID: "stu-1", FolderID: &a.ID, SizeBytes: 100})
	files.add(&models.File{Name: "two.txt", OwnerID: "stu-1", SizeBytes: 200})
	folders.add(&models.Folder{Name: "Other", OwnerID: "stu-2"})
	trashed := files.add(&models.File{Name: "gone.txt", OwnerID: "stu-1", SizeBytes: 999})
	require.NoError(t, svc.DeleteFile(context.Background(), trashed.ID, studentClaims("stu-1")))

	stats, err := svc.Stats(context.Background(), "", studentClaims("stu-1"))
	require.NoError(t, err)
	require.Equal(t, 1, stats.LiveFolders)
	require.Equal(t, 2, stats.LiveFiles)
	require.Equal(t, 1, stats.TrashedItems)
	// Trashed bytes stay out of the usage sum until restored.
	require.Equal(t, int64(300), stats.TotalBytes)
}

func TestPurgeRequiresStaff(t *testing.T) {
	svc, folders, _, cleanup := newTrashFixture()
	a := folders.add(&models.Folder{Name: "A", OwnerID: "stu-1"})
	require.NoError(t, svc.DeleteFolder(context.Background(), a.ID, studentClaims("stu-1")))

	_, err := svc.Purge(context.Background(), a.ID, models.KindFolder, studentClaims("stu-1"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	require.Contains(t, folders.folders, a.ID)
	require.Empty(t, cleanup.refs)

	_, err = svc.Purge(context.Background(), a.ID, models.KindFolder, adminClaims("adm-1"))
	require.NoError(t, err)
}

func TestListRejectsUnknownKind(t *testing.T) {
	svc, _, _, _ := newTrashFixture()

	_, err := svc.List(context.Background(), "", models.TrashFilter{Kind: "ARCHIVE"}, studentClaims("stu-1"))
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
