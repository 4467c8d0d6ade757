package client

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"flowboard-api/domain"
)

type recordedUpdate struct {
	id    string
	patch domain.ItemPatch
}

// fakeAPI is an in-memory API the session tests drive. Setting failNext makes
// the next call return that error without touching state.
type fakeAPI struct {
	boards   []domain.Board
	items    map[string][]domain.Item
	updates  []recordedUpdate
	failNext error
	nextID   int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: map[string][]domain.Item{}, nextID: 100}
}

func (f *fakeAPI) fail() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeAPI) ListBoards(context.Context) ([]domain.Board, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return append([]domain.Board(nil), f.boards...), nil
}

func (f *fakeAPI) CreateBoard(_ context.Context, name, icon string) (domain.Board, error) {
	if err := f.fail(); err != nil {
		return domain.Board{}, err
	}
	f.nextID++
	board := domain.Board{ID: strconv.Itoa(f.nextID), Name: name, Icon: icon}
	f.boards = append(f.boards, board)
	return board, nil
}

func (f *fakeAPI) UpdateBoard(_ context.Context, id string, patch domain.BoardPatch) error {
	if err := f.fail(); err != nil {
		return err
	}
	for i := range f.boards {
		if f.boards[i].ID == id {
			if patch.Name != nil {
				f.boards[i].Name = *patch.Name
			}
			if patch.Icon != nil {
				f.boards[i].Icon = *patch.Icon
			}
		}
	}
	return nil
}

func (f *fakeAPI) DeleteBoard(_ context.Context, id string) error {
	if err := f.fail(); err != nil {
		return err
	}
	kept := f.boards[:0]
	for _, b := range f.boards {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	f.boards = kept
	delete(f.items, id)
	return nil
}

func (f *fakeAPI) ListItems(_ context.Context, boardID string) ([]domain.Item, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return append([]domain.Item(nil), f.items[boardID]...), nil
}

func (f *fakeAPI) CreateItem(_ context.Context, boardID, name string) (domain.Item, error) {
	if err := f.fail(); err != nil {
		return domain.Item{}, err
	}
	f.nextID++
	item := domain.Item{ID: strconv.Itoa(f.nextID), BoardID: boardID, Name: name}
	item.ApplyDefaults()
	f.items[boardID] = append(f.items[boardID], item)
	return item, nil
}

func (f *fakeAPI) UpdateItem(_ context.Context, id string, patch domain.ItemPatch) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.updates = append(f.updates, recordedUpdate{id: id, patch: patch})
	return nil
}

func (f *fakeAPI) DeleteItem(_ context.Context, id string) error {
	if err := f.fail(); err != nil {
		return err
	}
	for boardID, items := range f.items {
		kept := items[:0]
		for _, i := range items {
			if i.ID != id {
				kept = append(kept, i)
			}
		}
		f.items[boardID] = kept
	}
	return nil
}

func seededAPI() *fakeAPI {
	api := newFakeAPI()
	api.boards = []domain.Board{
		{ID: "1", Name: "Ops"},
		{ID: "2", Name: "Docs"},
	}
	api.items["1"] = []domain.Item{
		{ID: "a", BoardID: "1", Name: "Patch servers", Status: domain.StatusTodo,
			Assignee: []string{"Ann", "Bob", "Ann"}, Tags: []string{"Infra"}},
		{ID: "b", BoardID: "1", Name: "Rotate keys", Status: domain.StatusInProgress},
	}
	api.items["2"] = []domain.Item{
		{ID: "c", BoardID: "2", Name: "Write runbook"},
	}
	return api
}

func TestBootstrapSelectsFirstBoard(t *testing.T) {
	s := NewSession(seededAPI())
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if s.SelectedBoard() != "1" {
		t.Fatalf("expected board 1 selected, got %q", s.SelectedBoard())
	}
	if items := s.Items(); len(items) != 2 {
		t.Fatalf("expected board 1 items loaded, got %v", items)
	}
	if boards := s.Boards(); len(boards) != 2 {
		t.Fatalf("expected 2 boards mirrored, got %v", boards)
	}
}

func TestBootstrapEmpty(t *testing.T) {
	s := NewSession(newFakeAPI())
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if s.SelectedBoard() != "" {
		t.Fatalf("expected no selection, got %q", s.SelectedBoard())
	}
}

func TestSelectBoardReplacesItems(t *testing.T) {
	s := NewSession(seededAPI())
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if err := s.SelectBoard(ctx, "2"); err != nil {
		t.Fatalf("select: %v", err)
	}
	items := s.Items()
	if len(items) != 1 || items[0].ID != "c" {
		t.Fatalf("expected board 2 items, got %v", items)
	}
}

func TestCreateBoardSelectsIt(t *testing.T) {
	s := NewSession(seededAPI())
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	board, err := s.CreateBoard(ctx, "Fresh", "✨")
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	if s.SelectedBoard() != board.ID {
		t.Fatalf("new board not selected: %q vs %q", s.SelectedBoard(), board.ID)
	}
	if items := s.Items(); len(items) != 0 {
		t.Fatalf("new board must start without items, got %v", items)
	}
	if boards := s.Boards(); len(boards) != 3 {
		t.Fatalf("board not mirrored: %v", boards)
	}
}

func TestDeleteSelectedBoardReselects(t *testing.T) {
	s := NewSession(seededAPI())
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if err := s.DeleteBoard(ctx, "1"); err != nil {
		t.Fatalf("delete board: %v", err)
	}
	if s.SelectedBoard() != "2" {
		t.Fatalf("expected board 2 selected after delete, got %q", s.SelectedBoard())
	}
	items := s.Items()
	if len(items) != 1 || items[0].BoardID != "2" {
		t.Fatalf("expected board 2 items loaded, got %v", items)
	}
}

func TestDeleteLastBoardClearsSelection(t *testing.T) {
	api := newFakeAPI()
	api.boards = []domain.Board{{ID: "1", Name: "Only"}}
	s := NewSession(api)
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if err := s.DeleteBoard(ctx, "1"); err != nil {
		t.Fatalf("delete board: %v", err)
	}
	if s.SelectedBoard() != "" {
		t.Fatalf("expected empty selection, got %q", s.SelectedBoard())
	}
	if items := s.Items(); len(items) != 0 {
		t.Fatalf("expected no items, got %v", items)
	}
}

func TestDeleteUnselectedBoardKeepsSelection(t *testing.T) {
	s := NewSession(seededAPI())
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if err := s.DeleteBoard(ctx, "2"); err != nil {
		t.Fatalf("delete board: %v", err)
	}
	if s.SelectedBoard() != "1" {
		t.Fatalf("selection must survive, got %q", s.SelectedBoard())
	}
	if items := s.Items(); len(items) != 2 {
		t.Fatalf("board 1 items must survive, got %v", items)
	}
}

func TestCreateItemRequiresSelection(t *testing.T) {
	s := NewSession(newFakeAPI())
	if _, err := s.CreateItem(context.Background(), "orphan"); !errors.Is(err, ErrNoBoardSelected) {
		t.Fatalf("expected ErrNoBoardSelected, got %v", err)
	}
}

func TestCreateItemAppendsServerCopy(t *testing.T) {
	s := NewSession(seededAPI())
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	item, err := s.CreateItem(ctx, "New task")
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if item.Status != domain.StatusTodo || item.Priority != domain.PriorityMedium {
		t.Fatalf("server defaults missing: %+v", item)
	}
	items := s.Items()
	if len(items) != 3 || items[2].ID != item.ID {
		t.Fatalf("item not mirrored: %v", items)
	}
}

func TestFailedWriteLeavesMirrorUntouched(t *testing.T) {
	api := seededAPI()
	s := NewSession(api)
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	api.failNext = errors.New("network down")
	if err := s.SetStatus(ctx, "a", domain.StatusDone); err == nil {
		t.Fatal("expected the write to fail")
	}
	for _, i := range s.Items() {
		if i.ID == "a" && i.Status != domain.StatusTodo {
			t.Fatalf("mirror changed after failed write: %+v", i)
		}
	}
}

func TestSetStatusAppliesLocally(t *testing.T) {
	api := seededAPI()
	s := NewSession(api)
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if err := s.SetStatus(ctx, "a", domain.StatusDone); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if len(api.updates) != 1 || api.updates[0].id != "a" {
		t.Fatalf("unexpected update calls: %v", api.updates)
	}
	for _, i := range s.Items() {
		if i.ID == "a" && i.Status != domain.StatusDone {
			t.Fatalf("status not mirrored: %+v", i)
		}
	}
}

func TestPatchUnknownItem(t *testing.T) {
	s := NewSession(seededAPI())
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if err := s.SetProgress(ctx, "ghost", 50); !errors.Is(err, ErrItemNotMirrored) {
		t.Fatalf("expected ErrItemNotMirrored, got %v", err)
	}
}

func TestRemoveAssigneeDropsAllOccurrences(t *testing.T) {
	api := seededAPI()
	s := NewSession(api)
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if err := s.RemoveAssignee(ctx, "a", "Ann"); err != nil {
		t.Fatalf("remove assignee: %v", err)
	}

	if len(api.updates) != 1 {
		t.Fatalf("expected one update, got %v", api.updates)
	}
	sent := api.updates[0].patch.Assignee
	if sent == nil || len(*sent) != 1 || (*sent)[0] != "Bob" {
		t.Fatalf("whole list must be written back: %v", sent)
	}
	for _, i := range s.Items() {
		if i.ID == "a" && len(i.Assignee) != 1 {
			t.Fatalf("mirror not updated: %v", i.Assignee)
		}
	}
}

func TestAddTagSkipsDuplicate(t *testing.T) {
	api := seededAPI()
	s := NewSession(api)
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if err := s.AddTag(ctx, "a", "Infra"); err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if len(api.updates) != 0 {
		t.Fatalf("duplicate tag must not hit the API: %v", api.updates)
	}

	if err := s.AddTag(ctx, "a", "Urgent"); err != nil {
		t.Fatalf("add tag: %v", err)
	}
	if len(api.updates) != 1 {
		t.Fatalf("expected one update, got %v", api.updates)
	}
	sent := api.updates[0].patch.Tags
	if sent == nil || len(*sent) != 2 || (*sent)[1] != "Urgent" {
		t.Fatalf("unexpected tag list: %v", sent)
	}
}

func TestUpdateBoardAppliesPatch(t *testing.T) {
	s := NewSession(seededAPI())
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	name := "Ops Renamed"
	if err := s.UpdateBoard(ctx, "1", domain.BoardPatch{Name: &name}); err != nil {
		t.Fatalf("update board: %v", err)
	}
	for _, b := range s.Boards() {
		if b.ID == "1" && b.Name != "Ops Renamed" {
			t.Fatalf("board not mirrored: %+v", b)
		}
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	s := NewSession(seededAPI())
	ctx := context.Background()
	if err := s.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	boards := s.Boards()
	boards[0].Name = "mutated"
	if s.Boards()[0].Name == "mutated" {
		t.Fatal("Boards must return a copy")
	}

	items := s.Items()
	items[0].Name = "mutated"
	if s.Items()[0].Name == "mutated" {
		t.Fatal("Items must return a copy")
	}
}
