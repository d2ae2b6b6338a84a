package models

import "time"

// ItemKind discriminates folder and file entries wherever the two travel
// together (selections, batch moves, trash listings).
type ItemKind string

const (
	KindFolder ItemKind = "FOLDER"
	KindFile   ItemKind = "FILE"
)

// Valid reports whether the kind is one of the two known discriminants.
func (k ItemKind) Valid() bool {
	return k == KindFolder || k == KindFile
}

// ItemRef identifies one tree item by id and kind.
type ItemRef struct {
	ID   string   `json:"id"`
	Kind ItemKind `json:"kind"`
}

// Folder is one node of the per-owner virtual folder tree. A nil ParentID
// means root level. The deletion triple (DeletedAt, DeletedBy,
// OriginalParentID) is set and cleared together; live rows have all three
// null.
type Folder struct {
	ID               string     `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	ParentID         *string    `db:"parent_id" json:"parentId,omitempty"`
	OwnerID          string     `db:"owner_id" json:"ownerId"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt        *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
	DeletedBy        *string    `db:"deleted_by" json:"deletedBy,omitempty"`
	OriginalParentID *string    `db:"original_parent_id" json:"originalParentId,omitempty"`
}

// Live reports whether the folder is outside the trash.
func (f *Folder) Live() bool {
	return f.DeletedAt == nil
}

// File is a document attached to a folder (or the root when FolderID is
// nil). ContentRef is an opaque locator into the external blob store; the
// drive never interprets the bytes behind it.
type File struct {
	ID               string     `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	ContentType      string     `db:"content_type" json:"contentType"`
	FolderID         *string    `db:"folder_id" json:"folderId,omitempty"`
	OwnerID          string     `db:"owner_id" json:"ownerId"`
	UploaderID       string     `db:"uploader_id" json:"uploaderId"`
	ContentRef       string     `db:"content_ref" json:"-"`
	Description      *string    `db:"description" json:"description,omitempty"`
	SizeBytes        int64      `db:"size_bytes" json:"sizeBytes"`
	UploadedAt       time.Time  `db:"uploaded_at" json:"uploadedAt"`
	DeletedAt        *time.Time `db:"deleted_at" json:"deletedAt,omitempty"`
	DeletedBy        *string    `db:"deleted_by" json:"deletedBy,omitempty"`
	OriginalFolderID *string    `db:"original_folder_id" json:"originalFolderId,omitempty"`
}

// Live reports whether the file is outside the trash.
func (f *File) Live() bool {
	return f.DeletedAt == nil
}

// Breadcrumb is one step of a resolved ancestor chain, root first.
type Breadcrumb struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted,omitempty"`
}

// TrashEntry is the read-side projection of one trashed item, independent of
// the current live tree shape.
type TrashEntry struct {
	Kind             ItemKind   `db:"kind" json:"kind"`
	ID               string     `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	OwnerID          string     `db:"owner_id" json:"ownerId"`
	DeletedAt        time.Time  `db:"deleted_at" json:"deletedAt"`
	DeletedBy        string     `db:"deleted_by" json:"deletedBy"`
	OriginalParentID *string    `db:"original_parent_id" json:"originalParentId,omitempty"`
	SizeBytes        int64      `db:"size_bytes" json:"sizeBytes"`
	OriginalPath     string     `db:"-" json:"originalPath,omitempty"`
	ExpiresAt        *time.Time `db:"-" json:"expiresAt,omitempty"`
}

// TrashFilter narrows trash listings.
type TrashFilter struct {
	NameContains string
	Kind         ItemKind
	Limit        int
	Offset       int
}

// MoveFailure describes one item skipped during a batch move.
type MoveFailure struct {
	ID     string   `json:"id"`
	Kind   ItemKind `json:"kind"`
	Reason string   `json:"reason"`
}

// MoveResult reports the partial-success outcome of a batch move.
type MoveResult struct {
	Moved    int           `json:"moved"`
	Failures []MoveFailure `json:"failures"`
}

// DriveStats aggregates per-owner usage for dashboard tiles.
type DriveStats struct {
	OwnerID      string `db:"owner_id" json:"ownerId"`
	LiveFolders  int    `db:"live_folders" json:"liveFolders"`
	LiveFiles    int    `db:"live_files" json:"liveFiles"`
	TrashedItems int    `db:"trashed_items" json:"trashedItems"`
	TotalBytes   int64  `db:"total_bytes" json:"totalBytes"`
}
