package api

import (
	"context"

	"flowboard-api/domain"
)

// Storage abstracts persistence for handlers.
type Storage interface {
	ListBoards(ctx context.Context) ([]domain.Board, error)
	CreateBoard(ctx context.Context, board domain.Board) error
	UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) (bool, error)
	// DeleteBoard removes the board and every item referencing it. It
	// returns whether the board existed and how many items were removed;
	// the item cascade runs even when the board matched nothing.
	DeleteBoard(ctx context.Context, id string) (bool, int, error)

	ListItems(ctx context.Context, boardID string) ([]domain.Item, error)
	CreateItem(ctx context.Context, item domain.Item) error
	UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (bool, error)
	DeleteItem(ctx context.Context, id string) (bool, error)

	Reseed(ctx context.Context) (boards, items int, err error)
	Ping(ctx context.Context) error
}

// Options control handler behavior that the contract leaves open.
type Options struct {
	// StrictNotFound makes update/delete on a missing id report 404
	// instead of the lenient silent no-op.
	StrictNotFound bool
	// SeedEnabled exposes GET /api/seed. Off by default so the
	// destructive loader stays out of normal traffic paths.
	SeedEnabled bool
}

const updateBodyMaxSize = 256 * 1024 // 256 KiB

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type seedResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Error   string     `json:"error,omitempty"`
	Data    *seedCount `json:"data,omitempty"`
}

type seedCount struct {
	Boards int `json:"boards"`
	Items  int `json:"items"`
}

// createBoardRequest is the accepted body of POST /api/boards. A
// caller-supplied id takes precedence over the generated one.
type createBoardRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// createItemRequest is the accepted body of POST /api/items. Absent fields
// get their documented defaults.
type createItemRequest struct {
	ID              string          `json:"id"`
	BoardID         string          `json:"boardId"`
	Name            string          `json:"name"`
	Status          domain.Status   `json:"status"`
	Priority        domain.Priority `json:"priority"`
	Assignee        []string        `json:"assignee"`
	ProjectManagers []string        `json:"projectManagers"`
	Tags            []string        `json:"tags"`
	DueDate         string          `json:"dueDate"`
	Progress        int             `json:"progress"`
	Description     string          `json:"description"`
}

// updateItemRequest is the accepted body of PUT /api/items/:id. The contract
// requires caller-supplied id and createdAt to be accepted and stripped, so
// they are decoded here and never copied into the patch.
type updateItemRequest struct {
	domain.ItemPatch
	ID        *string `json:"id"`
	CreatedAt *string `json:"createdAt"`
}
