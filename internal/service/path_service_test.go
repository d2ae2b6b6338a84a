package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edustack/portal-api/internal/models"
	appErrors "github.com/edustack/portal-api/pkg/errors"
)

func TestBreadcrumbsRootFirst(t *testing.T) {
	folders := newFolderStoreStub()
	a := folders.add(&models.Folder{Name: "A", OwnerID: "stu-1"})
	b := folders.add(&models.Folder{Name: "B", OwnerID: "stu-1", ParentID: &a.ID})
	c := folders.add(&models.Folder{Name: "C", OwnerID: "stu-1", ParentID: &b.ID})

	svc := NewPathService(folders, nil, 0, nil)
	chain, err := svc.Breadcrumbs(context.Background(), "stu-1", &c.ID)
	require.NoError(t, err)
	require.Len(t, chain, 3)
	require.Equal(t, "A", chain[0].Name)
	require.Equal(t, "C", chain[2].Name)

	path, err := svc.FullPath(context.Background(), "stu-1", &c.ID)
	require.NoError(t, err)
	require.Equal(t, "A / B / C", path)
}

func TestBreadcrumbsNilFolderIsEmptyChain(t *testing.T) {
	svc := NewPathService(newFolderStoreStub(), nil, 0, nil)
	chain, err := svc.Breadcrumbs(context.Background(), "stu-1", nil)
	require.NoError(t, err)
	require.Empty(t, chain)
}

func TestBreadcrumbsDepthBound(t *testing.T) {
	folders := newFolderStoreStub()
	// Two folders pointing at each other simulate a corrupted chain.
	a := folders.add(&models.Folder{ID: "loop-a", Name: "A", OwnerID: "stu-1"})
	b := folders.add(&models.Folder{ID: "loop-b", Name: "B", OwnerID: "stu-1", ParentID: &a.ID})
	a.ParentID = &b.ID

	svc := NewPathService(folders, nil, 10, nil)
	_, err := svc.Breadcrumbs(context.Background(), "stu-1", &a.ID)
	require.Equal(t, appErrors.ErrCorruptTree.Code, appErrors.FromError(err).Code)
}

func TestBreadcrumbsForeignOwnerForbidden(t *testing.T) {
	folders := newFolderStoreStub()
	a := folders.add(&models.Folder{Name: "A", OwnerID: "stu-2"})

	svc := NewPathService(folders, nil, 0, nil)
	_, err := svc.Breadcrumbs(context.Background(), "stu-1", &a.ID)
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestOriginalChainFlagsDeletedAncestors(t *testing.T) {
	folders := newFolderStoreStub()
	a := folders.add(&models.Folder{Name: "A", OwnerID: "stu-1"})
	b := folders.add(&models.Folder{Name: "B", OwnerID: "stu-1", DeletedAt: nowPtr(), OriginalParentID: &a.ID})

	svc := NewPathService(folders, nil, 0, nil)
	chain, err := svc.OriginalChain(context.Background(), "stu-1", &b.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	require.Equal(t, "A", chain[0].Name)
	require.False(t, chain[0].Deleted)
	require.True(t, chain[1].Deleted)
}

func TestOriginalChainTruncatesOnPurgedAncestor(t *testing.T) {
	folders := newFolderStoreStub()
	gone := "purged-folder"
	b := folders.add(&models.Folder{Name: "B", OwnerID: "stu-1", ParentID: &gone})

	svc := NewPathService(folders, nil, 0, nil)
	chain, err := svc.OriginalChain(context.Background(), "stu-1", &b.ID)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	require.Equal(t, "B", chain[0].Name)
}

func TestChainContainsFindsAncestor(t *testing.T) {
	folders := newFolderStoreStub()
	a := folders.add(&models.Folder{Name: "A", OwnerID: "stu-1"})
	b := folders.add(&models.Folder{Name: "B", OwnerID: "stu-1", ParentID: &a.ID})

	svc := NewPathService(folders, nil, 0, nil)
	contains, err := svc.ChainContains(context.Background(), "stu-1", &b.ID, a.ID)
	require.NoError(t, err)
	require.True(t, contains)

	contains, err = svc.ChainContains(context.Background(), "stu-1", &a.ID, b.ID)
	require.NoError(t, err)
	require.False(t, contains)
}

func TestChainContainsMissingStartIsNotFound(t *testing.T) {
	svc := NewPathService(newFolderStoreStub(), nil, 0, nil)
	_, err := svc.ChainContains(context.Background(), "stu-1", ptr("ghost"), "target")
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
