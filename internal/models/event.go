package models

import "time"

// ChangeAction enumerates mutations broadcast on the change channel.
type ChangeAction string

const (
	ChangeCreated  ChangeAction = "created"
	ChangeRenamed  ChangeAction = "renamed"
	ChangeMoved    ChangeAction = "moved"
	ChangeTrashed  ChangeAction = "trashed"
	ChangeRestored ChangeAction = "restored"
	ChangePurged   ChangeAction = "purged"
)

// ChangeEvent notifies subscribers that an entity changed. Delivery is
// best-effort; the mutation never depends on it.
type ChangeEvent struct {
	Entity  ItemKind     `json:"entity"`
	Action  ChangeAction `json:"action"`
	ID      string       `json:"id"`
	OwnerID string       `json:"ownerId"`
	At      time.Time    `json:"at"`
}
