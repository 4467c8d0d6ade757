package storage

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"flowboard-api/domain"
)

// transactionBatchSize is the store's per-batch entity limit.
const transactionBatchSize = 100

// ListItems retrieves all items, or only the given board's items when
// boardID is non-empty.
func (s *Storage) ListItems(ctx context.Context, boardID string) ([]domain.Item, error) {
	filter := buildItemsFilter(boardID)
	pager := s.items.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	items := []domain.Item{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			item, err := decodeItemEntity(e)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	return items, nil
}

func buildItemsFilter(boardID string) string {
	filter := "PartitionKey eq '" + itemPartition + "'"
	if boardID != "" {
		filter += " and BoardId eq '" + escapeFilterValue(boardID) + "'"
	}
	return filter
}

// escapeFilterValue doubles single quotes per the table query syntax.
func escapeFilterValue(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

// CreateItem persists a fully populated item. boardId is stored as written;
// the contract does not require it to reference an existing board.
func (s *Storage) CreateItem(ctx context.Context, item domain.Item) error {
	data, err := encodeItemEntity(item)
	if err != nil {
		return err
	}
	_, err = s.items.AddEntity(ctx, data, nil)
	return err
}

// UpdateItem merges the populated patch fields over the stored item and
// refreshes UpdatedAt. List fields replace the stored list wholesale. A
// missing id is reported via found=false, not as an error.
func (s *Storage) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (bool, error) {
	data, err := json.Marshal(itemPatchProps(id, patch, time.Now().UTC()))
	if err != nil {
		return false, err
	}

	_, err = s.items.UpdateEntity(ctx, data, &aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeMerge})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func itemPatchProps(id string, patch domain.ItemPatch, now time.Time) map[string]any {
	props := map[string]any{
		"PartitionKey": itemPartition,
		"RowKey":       id,
		"UpdatedAt":    now.Format(timeFormat),
	}
	if patch.Name != nil {
		props["Name"] = *patch.Name
	}
	if patch.Status != nil {
		props["Status"] = string(*patch.Status)
	}
	if patch.Priority != nil {
		props["Priority"] = string(*patch.Priority)
	}
	if patch.Assignee != nil {
		props["Assignee"] = encodeList(*patch.Assignee)
	}
	if patch.ProjectManagers != nil {
		props["ProjectManagers"] = encodeList(*patch.ProjectManagers)
	}
	if patch.Tags != nil {
		props["Tags"] = encodeList(*patch.Tags)
	}
	if patch.DueDate != nil {
		props["DueDate"] = *patch.DueDate
	}
	if patch.Progress != nil {
		props["Progress"] = *patch.Progress
	}
	if patch.Description != nil {
		props["Description"] = *patch.Description
	}
	return props
}

// DeleteItem removes the item matching id. Deleting a nonexistent id is not
// an error; found=false reports it.
func (s *Storage) DeleteItem(ctx context.Context, id string) (bool, error) {
	if _, err := s.items.DeleteEntity(ctx, itemPartition, id, nil); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteItemsByBoard removes every item whose boardId matches, in
// transactional batches. It backs both the synchronous cascade and the
// sweeper's orphan cleanup.
func (s *Storage) DeleteItemsByBoard(ctx context.Context, boardID string) (int, error) {
	ids, err := s.listItemIDsByBoard(ctx, boardID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, chunk := range chunkIDs(ids, transactionBatchSize) {
		if err := s.deleteItemBatch(ctx, chunk); err != nil {
			// A concurrent delete invalidates the whole batch; fall back
			// to per-entity deletes so the cascade still completes.
			n, err := s.deleteItemsOneByOne(ctx, chunk)
			removed += n
			if err != nil {
				return removed, err
			}
			continue
		}
		removed += len(chunk)
	}
	return removed, nil
}

func (s *Storage) listItemIDsByBoard(ctx context.Context, boardID string) ([]string, error) {
	filter := buildItemsFilter(boardID)
	sel := "PartitionKey,RowKey"
	pager := s.items.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter, Select: &sel})
	var ids []string
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent aztables.Entity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			ids = append(ids, ent.RowKey)
		}
	}
	return ids, nil
}

func (s *Storage) deleteItemBatch(ctx context.Context, ids []string) error {
	actions := make([]aztables.TransactionAction, 0, len(ids))
	for _, id := range ids {
		data, err := json.Marshal(aztables.Entity{PartitionKey: itemPartition, RowKey: id})
		if err != nil {
			return err
		}
		actions = append(actions, aztables.TransactionAction{
			ActionType: aztables.TransactionTypeDelete,
			Entity:     data,
		})
	}
	_, err := s.items.SubmitTransaction(ctx, actions, nil)
	return err
}

func (s *Storage) deleteItemsOneByOne(ctx context.Context, ids []string) (int, error) {
	removed := 0
	for _, id := range ids {
		found, err := s.DeleteItem(ctx, id)
		if err != nil {
			return removed, err
		}
		if found {
			removed++
		}
	}
	return removed, nil
}

func chunkIDs(ids []string, size int) [][]string {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
