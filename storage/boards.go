package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"flowboard-api/domain"
)

// ListBoards retrieves all boards in the store's natural order.
func (s *Storage) ListBoards(ctx context.Context) ([]domain.Board, error) {
	filter := "PartitionKey eq '" + boardPartition + "'"
	pager := s.boards.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	boards := []domain.Board{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			board, err := decodeBoardEntity(e)
			if err != nil {
				return nil, err
			}
			boards = append(boards, board)
		}
	}
	return boards, nil
}

// CreateBoard persists a fully populated board. The table's primary key
// rejects a duplicate application id with a conflict error.
func (s *Storage) CreateBoard(ctx context.Context, board domain.Board) error {
	data, err := encodeBoardEntity(board)
	if err != nil {
		return err
	}
	_, err = s.boards.AddEntity(ctx, data, nil)
	return err
}

// UpdateBoard merges the populated patch fields over the stored board and
// refreshes UpdatedAt. A missing id is reported via found=false, not as an
// error.
func (s *Storage) UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) (bool, error) {
	props := map[string]any{
		"PartitionKey": boardPartition,
		"RowKey":       id,
		"UpdatedAt":    time.Now().UTC().Format(timeFormat),
	}
	if patch.Name != nil {
		props["Name"] = *patch.Name
	}
	if patch.Icon != nil {
		props["Icon"] = *patch.Icon
	}
	data, err := json.Marshal(props)
	if err != nil {
		return false, err
	}

	_, err = s.boards.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeMerge})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteBoard removes the board and cascades to every item referencing it.
// The cleanup record is enqueued before anything is deleted so a crash
// between the two steps is repaired by the sweeper. The item cascade runs
// even when the board itself matched nothing.
func (s *Storage) DeleteBoard(ctx context.Context, id string) (bool, int, error) {
	if _, err := s.cleanup.EnqueueMessage(ctx, cleanupMessage(id), nil); err != nil {
		s.logger.WithError(err).WithField("board", id).Warn("cleanup enqueue failed, relying on synchronous cascade")
	}

	found := true
	if _, err := s.boards.DeleteEntity(ctx, boardPartition, id, nil); err != nil {
		if !isNotFound(err) {
			return false, 0, err
		}
		found = false
	}

	removed, err := s.DeleteItemsByBoard(ctx, id)
	return found, removed, err
}

type cleanupRecord struct {
	BoardID string `json:"boardId"`
}

func cleanupMessage(boardID string) string {
	data, _ := json.Marshal(cleanupRecord{BoardID: boardID})
	return string(data)
}
