package models

import "time"

// ChangeOp names a mutation kind.
type ChangeOp string

// Change operations.
const (
	OpCreated  ChangeOp = "created"
	OpUpdated  ChangeOp = "updated"
	OpDeleted  ChangeOp = "deleted"
	OpReloaded ChangeOp = "reloaded"
)

// Change describes one applied mutation. Entity is a copy of the stored
// entity after the change and is nil for deletes and reloads.
type Change struct {
	Op     ChangeOp  `json:"op"`
	Type   string    `json:"type,omitempty"`
	ID     string    `json:"id,omitempty"`
	At     time.Time `json:"at"`
	Entity *Entity   `json:"entity,omitempty"`
}
