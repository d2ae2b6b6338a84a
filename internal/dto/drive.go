package dto

import "github.com/edustack/portal-api/internal/models"

// CreateFolderRequest creates a folder under an optional parent.
type CreateFolderRequest struct {
	Name     string  `json:"name" validate:"required,min=1,max=255"`
	ParentID *string `json:"parentId" validate:"omitempty,uuid4"`
	OwnerID  string  `json:"ownerId" validate:"omitempty,uuid4"`
}

// RenameRequest renames a folder or file.
type RenameRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// UpdateFileRequest updates mutable file metadata.
type UpdateFileRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// CreateFileRequest carries metadata submitted alongside an upload stream.
type CreateFileRequest struct {
	Name        string  `form:"name" json:"name"`
	FolderID    *string `form:"folderId" json:"folderId"`
	Description *string `form:"description" json:"description"`
	OwnerID     string  `form:"ownerId" json:"ownerId"`
}

// MoveRequest reparents a batch of items to one destination. A nil
// DestinationID targets the root level.
type MoveRequest struct {
	Items         []models.ItemRef `json:"items" validate:"required,min=1,dive"`
	DestinationID *string          `json:"destinationId" validate:"omitempty,uuid4"`
}

// RestoreRequest disambiguates the kind of a trashed item being restored.
type RestoreRequest struct {
	Kind models.ItemKind `json:"kind" validate:"required"`
}

// TrashQuery captures trash listing filters from the query string.
type TrashQuery struct {
	NameContains string
	Kind         models.ItemKind
}

// PurgeResponse reports how many items a purge removed.
type PurgeResponse struct {
	Purged int `json:"purged"`
}

// RestoreCountResponse reports how many items a cascade restore revived.
type RestoreCountResponse struct {
	Restored int `json:"restored"`
}
