package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edustack/portal-api/internal/dto"
	"github.com/edustack/portal-api/internal/models"
	appErrors "github.com/edustack/portal-api/pkg/errors"
)

type blobStoreStub struct {
	blobs   map[string]string
	nextRef int
}

func newBlobStoreStub() *blobStoreStub {
	return &blobStoreStub{blobs: make(map[string]string)}
}

func (s *blobStoreStub) Put(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.nextRef++
	ref := fmt.Sprintf("ab/blob-%d", s.nextRef)
	path := filepath.Join(os.TempDir(), fmt.Sprintf("drive-test-blob-%d", s.nextRef))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	s.blobs[ref] = path
	return ref, nil
}

func (s *blobStoreStub) Open(ref string) (*os.File, error) {
	path, ok := s.blobs[ref]
	if !ok {
		return nil, fmt.Errorf("blob not found")
	}
	return os.Open(path)
}

func (s *blobStoreStub) Delete(ref string) error {
	if path, ok := s.blobs[ref]; ok {
		_ = os.Remove(path)
		delete(s.blobs, ref)
	}
	return nil
}

func newFileFixture() (*FileService, *folderStoreStub, *fileStoreStub, *blobStoreStub) {
	folders := newFolderStoreStub()
	files := newFileStoreStub()
	blobs := newBlobStoreStub()
	svc := NewFileService(files, folders, blobs, nil, nil, nil, FileServiceConfig{})
	return svc, folders, files, blobs
}

func TestUploadStoresBlobAndMetadata(t *testing.T) {
	svc, folders, files, blobs := newFileFixture()
	folder := folders.add(&models.Folder{Name: "Docs", OwnerID: "stu-1"})

	content := []byte("hello world")
	file, err := svc.Upload(context.Background(), dto.CreateFileRequest{FolderID: &folder.ID}, FileUpload{
		Filename:    "essay.pdf",
		ContentType: "application/pdf",
		Size:        int64(len(content)),
		Content:     bytes.NewReader(content),
	}, studentClaims("stu-1"))
	require.NoError(t, err)
	require.Equal(t, "essay.pdf", file.Name)
	require.Equal(t, "stu-1", file.UploaderID)
	require.NotEmpty(t, file.ContentRef)
	require.Contains(t, blobs.blobs, file.ContentRef)
	require.Contains(t, files.files, file.ID)
}

func TestUploadRejectsEmptyStream(t *testing.T) {
	svc, _, _, _ := newFileFixture()
	_, err := svc.Upload(context.Background(), dto.CreateFileRequest{}, FileUpload{}, studentClaims("stu-1"))
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUploadRejectsTrashedFolder(t *testing.T) {
	svc, folders, _, _ := newFileFixture()
	folder := folders.add(&models.Folder{Name: "Gone", OwnerID: "stu-1", DeletedAt: nowPtr()})

	content := []byte("data")
	_, err := svc.Upload(context.Background(), dto.CreateFileRequest{FolderID: &folder.ID}, FileUpload{
		Filename: "a.txt",
		Size:     int64(len(content)),
		Content:  bytes.NewReader(content),
	}, studentClaims("stu-1"))
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDownloadStreamsStoredContent(t *testing.T) {
	svc, _, _, _ := newFileFixture()
	content := []byte("stream me")
	file, err := svc.Upload(context.Background(), dto.CreateFileRequest{}, FileUpload{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Size:        int64(len(content)),
		Content:     bytes.NewReader(content),
	}, studentClaims("stu-1"))
	require.NoError(t, err)

	download, err := svc.Download(context.Background(), file.ID, studentClaims("stu-1"))
	require.NoError(t, err)
	defer download.Content.Close()

	data, err := io.ReadAll(download.Content)
	require.NoError(t, err)
	require.Equal(t, content, data)
	require.Equal(t, "notes.txt", download.Filename)
	require.Equal(t, "text/plain", download.ContentType)
}

func TestDownloadForbiddenForOtherStudent(t *testing.T) {
	svc, _, files, _ := newFileFixture()
	file := files.add(&models.File{Name: "secret.txt", OwnerID: "stu-1", ContentRef: "aa/secret"})

	_, err := svc.Download(context.Background(), file.ID, studentClaims("stu-2"))
	require.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUpdateMetaRenames(t *testing.T) {
	svc, _, files, _ := newFileFixture()
	file := files.add(&models.File{Name: "draft.txt", OwnerID: "stu-1"})

	name := "final.txt"
	updated, err := svc.UpdateMeta(context.Background(), file.ID, dto.UpdateFileRequest{Name: &name}, studentClaims("stu-1"))
	require.NoError(t, err)
	require.Equal(t, "final.txt", updated.Name)
	require.Equal(t, "final.txt", files.files[file.ID].Name)
}

func TestListFilesAtRoot(t *testing.T) {
	svc, _, files, _ := newFileFixture()
	files.add(&models.File{Name: "root.txt", OwnerID: "stu-1"})
	files.add(&models.File{Name: "trashed.txt", OwnerID: "stu-1", DeletedAt: nowPtr()})

	listed, err := svc.List(context.Background(), "", nil, studentClaims("stu-1"))
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "root.txt", listed[0].Name)
}
