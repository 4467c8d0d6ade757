package domain

import "time"

// Board is a named collection of work items with a display icon. The id is
// application-assigned and is the only lookup key; the store's own entity
// keys never leave the storage layer.
type Board struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BoardPatch carries the mutable board fields of an update request. Nil
// means "leave unchanged".
type BoardPatch struct {
	Name *string `json:"name"`
	Icon *string `json:"icon"`
}

// Empty reports whether the patch would change nothing.
func (p BoardPatch) Empty() bool {
	return p.Name == nil && p.Icon == nil
}
