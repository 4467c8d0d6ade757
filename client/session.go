package client

import (
	"context"
	"errors"
	"slices"
	"sync"

	"flowboard-api/domain"
)

// API is the surface of Client a Session consumes.
type API interface {
	ListBoards(ctx context.Context) ([]domain.Board, error)
	CreateBoard(ctx context.Context, name, icon string) (domain.Board, error)
	UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) error
	DeleteBoard(ctx context.Context, id string) error
	ListItems(ctx context.Context, boardID string) ([]domain.Item, error)
	CreateItem(ctx context.Context, boardID, name string) (domain.Item, error)
	UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) error
	DeleteItem(ctx context.Context, id string) error
}

var (
	// ErrNoBoardSelected is returned by item creation when the session has
	// no current board.
	ErrNoBoardSelected = errors.New("no board selected")
	// ErrItemNotMirrored is returned when an item mutation targets an id
	// the session has not loaded.
	ErrItemNotMirrored = errors.New("item not in session")
)

// Session keeps a local mirror of the boards and of the selected board's
// items. Every mutation is sent to the API first; the mirror is updated
// with the same change only after the request succeeds, so a failed write
// leaves local state untouched. Methods serialize, making the session safe
// for concurrent use.
type Session struct {
	mu       sync.Mutex
	api      API
	boards   []domain.Board
	items    []domain.Item
	selected string
}

// NewSession creates an empty session over the given API.
func NewSession(api API) *Session {
	return &Session{api: api}
}

// Bootstrap loads the board list and, when boards exist, selects the first
// one and loads its items.
func (s *Session) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	boards, err := s.api.ListBoards(ctx)
	if err != nil {
		return err
	}
	s.boards = boards
	if len(boards) == 0 {
		s.selected = ""
		s.items = nil
		return nil
	}
	return s.selectLocked(ctx, boards[0].ID)
}

// SelectBoard makes the board current and replaces the mirrored items with
// a fresh load of that board's items.
func (s *Session) SelectBoard(ctx context.Context, boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(ctx, boardID)
}

func (s *Session) selectLocked(ctx context.Context, boardID string) error {
	items, err := s.api.ListItems(ctx, boardID)
	if err != nil {
		return err
	}
	s.selected = boardID
	s.items = items
	return nil
}

// Boards returns a copy of the mirrored board list.
func (s *Session) Boards() []domain.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.boards)
}

// Items returns a copy of the selected board's mirrored items.
func (s *Session) Items() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// SelectedBoard returns the current board id, or "" when none is selected.
func (s *Session) SelectedBoard() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// CreateBoard creates a board, appends it to the mirror and selects it.
// A newly created board has no items, so none are fetched.
func (s *Session) CreateBoard(ctx context.Context, name, icon string) (domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := s.api.CreateBoard(ctx, name, icon)
	if err != nil {
		return domain.Board{}, err
	}
	s.boards = append(s.boards, board)
	s.selected = board.ID
	s.items = nil
	return board, nil
}

// UpdateBoard patches the board and applies the same patch to the mirror.
func (s *Session) UpdateBoard(ctx context.Context, boardID string, patch domain.BoardPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.api.UpdateBoard(ctx, boardID, patch); err != nil {
		return err
	}
	for i := range s.boards {
		if s.boards[i].ID != boardID {
			continue
		}
		if patch.Name != nil {
			s.boards[i].Name = *patch.Name
		}
		if patch.Icon != nil {
			s.boards[i].Icon = *patch.Icon
		}
		break
	}
	return nil
}

// DeleteBoard removes the board and its mirrored items. When the deleted
// board was selected, the first remaining board becomes current and its
// items are loaded; with no boards left the selection clears.
func (s *Session) DeleteBoard(ctx context.Context, boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.api.DeleteBoard(ctx, boardID); err != nil {
		return err
	}
	s.boards = slices.DeleteFunc(s.boards, func(b domain.Board) bool {
		return b.ID == boardID
	})
	s.items = slices.DeleteFunc(s.items, func(i domain.Item) bool {
		return i.BoardID == boardID
	})

	if s.selected != boardID {
		return nil
	}
	// Clear first so a failed reload cannot leave the deleted board
	// selected.
	s.selected = ""
	s.items = nil
	if len(s.boards) == 0 {
		return nil
	}
	return s.selectLocked(ctx, s.boards[0].ID)
}

// CreateItem creates an item on the selected board and appends the server's
// representation, defaults included, to the mirror.
func (s *Session) CreateItem(ctx context.Context, name string) (domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == "" {
		return domain.Item{}, ErrNoBoardSelected
	}
	item, err := s.api.CreateItem(ctx, s.selected, name)
	if err != nil {
		return domain.Item{}, err
	}
	s.items = append(s.items, item)
	return item, nil
}

// DeleteItem removes the item remotely and from the mirror.
func (s *Session) DeleteItem(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.api.DeleteItem(ctx, itemID); err != nil {
		return err
	}
	s.items = slices.DeleteFunc(s.items, func(i domain.Item) bool {
		return i.ID == itemID
	})
	return nil
}

// SetStatus moves the item to the given status.
func (s *Session) SetStatus(ctx context.Context, itemID string, status domain.Status) error {
	return s.patchItem(ctx, itemID, domain.ItemPatch{Status: &status}, func(i *domain.Item) {
		i.Status = status
	})
}

// SetPriority changes the item's priority.
func (s *Session) SetPriority(ctx context.Context, itemID string, priority domain.Priority) error {
	return s.patchItem(ctx, itemID, domain.ItemPatch{Priority: &priority}, func(i *domain.Item) {
		i.Priority = priority
	})
}

// SetProgress sets the item's completion percentage.
func (s *Session) SetProgress(ctx context.Context, itemID string, progress int) error {
	return s.patchItem(ctx, itemID, domain.ItemPatch{Progress: &progress}, func(i *domain.Item) {
		i.Progress = progress
	})
}

// SetDueDate sets the item's due date; an empty string clears it.
func (s *Session) SetDueDate(ctx context.Context, itemID, dueDate string) error {
	return s.patchItem(ctx, itemID, domain.ItemPatch{DueDate: &dueDate}, func(i *domain.Item) {
		i.DueDate = dueDate
	})
}

// Rename changes the item's name.
func (s *Session) Rename(ctx context.Context, itemID, name string) error {
	return s.patchItem(ctx, itemID, domain.ItemPatch{Name: &name}, func(i *domain.Item) {
		i.Name = name
	})
}

// SetDescription replaces the item's description.
func (s *Session) SetDescription(ctx context.Context, itemID, description string) error {
	return s.patchItem(ctx, itemID, domain.ItemPatch{Description: &description}, func(i *domain.Item) {
		i.Description = description
	})
}

// AddAssignee appends a person to the item's assignee list. The whole list
// is written back, as assignees are stored as one value.
func (s *Session) AddAssignee(ctx context.Context, itemID, person string) error {
	return s.patchList(ctx, itemID,
		func(i domain.Item) []string { return append(slices.Clone(i.Assignee), person) },
		func(i *domain.Item, list []string) { i.Assignee = list },
		func(list []string) domain.ItemPatch { return domain.ItemPatch{Assignee: &list} },
	)
}

// RemoveAssignee removes every occurrence of the person from the item's
// assignee list.
func (s *Session) RemoveAssignee(ctx context.Context, itemID, person string) error {
	return s.patchList(ctx, itemID,
		func(i domain.Item) []string { return removeAll(i.Assignee, person) },
		func(i *domain.Item, list []string) { i.Assignee = list },
		func(list []string) domain.ItemPatch { return domain.ItemPatch{Assignee: &list} },
	)
}

// AddProjectManager appends a person to the item's project manager list.
func (s *Session) AddProjectManager(ctx context.Context, itemID, person string) error {
	return s.patchList(ctx, itemID,
		func(i domain.Item) []string { return append(slices.Clone(i.ProjectManagers), person) },
		func(i *domain.Item, list []string) { i.ProjectManagers = list },
		func(list []string) domain.ItemPatch { return domain.ItemPatch{ProjectManagers: &list} },
	)
}

// RemoveProjectManager removes every occurrence of the person from the
// item's project manager list.
func (s *Session) RemoveProjectManager(ctx context.Context, itemID, person string) error {
	return s.patchList(ctx, itemID,
		func(i domain.Item) []string { return removeAll(i.ProjectManagers, person) },
		func(i *domain.Item, list []string) { i.ProjectManagers = list },
		func(list []string) domain.ItemPatch { return domain.ItemPatch{ProjectManagers: &list} },
	)
}

// AddTag appends the tag unless the item already carries it.
func (s *Session) AddTag(ctx context.Context, itemID, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findItem(itemID)
	if idx < 0 {
		return ErrItemNotMirrored
	}
	if slices.Contains(s.items[idx].Tags, tag) {
		return nil
	}
	tags := append(slices.Clone(s.items[idx].Tags), tag)
	if err := s.api.UpdateItem(ctx, itemID, domain.ItemPatch{Tags: &tags}); err != nil {
		return err
	}
	s.items[idx].Tags = tags
	return nil
}

// RemoveTag removes every occurrence of the tag from the item.
func (s *Session) RemoveTag(ctx context.Context, itemID, tag string) error {
	return s.patchList(ctx, itemID,
		func(i domain.Item) []string { return removeAll(i.Tags, tag) },
		func(i *domain.Item, list []string) { i.Tags = list },
		func(list []string) domain.ItemPatch { return domain.ItemPatch{Tags: &list} },
	)
}

// patchItem writes the patch and, on success, applies the matching change
// to the mirrored item.
func (s *Session) patchItem(ctx context.Context, itemID string, patch domain.ItemPatch, apply func(*domain.Item)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findItem(itemID)
	if idx < 0 {
		return ErrItemNotMirrored
	}
	if err := s.api.UpdateItem(ctx, itemID, patch); err != nil {
		return err
	}
	apply(&s.items[idx])
	return nil
}

// patchList is patchItem for list-valued fields: the new list is derived
// from the mirrored item, written as a whole, then applied locally.
func (s *Session) patchList(ctx context.Context, itemID string,
	derive func(domain.Item) []string,
	apply func(*domain.Item, []string),
	patch func([]string) domain.ItemPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findItem(itemID)
	if idx < 0 {
		return ErrItemNotMirrored
	}
	list := derive(s.items[idx])
	if list == nil {
		list = []string{}
	}
	if err := s.api.UpdateItem(ctx, itemID, patch(list)); err != nil {
		return err
	}
	apply(&s.items[idx], list)
	return nil
}

func (s *Session) findItem(itemID string) int {
	return slices.IndexFunc(s.items, func(i domain.Item) bool {
		return i.ID == itemID
	})
}

func removeAll(list []string, value string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}
