package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"flowboard-api/domain"
)

// Reseed wipes both collections and loads the demo fixture set: 3 boards
// and 10 items cross-referencing them. Destructive; the end state is the
// same however often it runs.
func (s *Storage) Reseed(ctx context.Context) (int, int, error) {
	if _, err := s.clearPartition(ctx, s.items, itemPartition); err != nil {
		return 0, 0, err
	}
	if _, err := s.clearPartition(ctx, s.boards, boardPartition); err != nil {
		return 0, 0, err
	}

	now := time.Now().UTC()
	boards := seedBoards(now)
	items := seedItems(now)

	for _, b := range boards {
		data, err := encodeBoardEntity(b)
		if err != nil {
			return 0, 0, err
		}
		if _, err := s.boards.AddEntity(ctx, data, nil); err != nil {
			return 0, 0, err
		}
	}
	for _, i := range items {
		data, err := encodeItemEntity(i)
		if err != nil {
			return 0, 0, err
		}
		if _, err := s.items.AddEntity(ctx, data, nil); err != nil {
			return 0, 0, err
		}
	}
	return len(boards), len(items), nil
}

func (s *Storage) clearPartition(ctx context.Context, table *aztables.Client, partition string) (int, error) {
	filter := "PartitionKey eq '" + partition + "'"
	sel := "PartitionKey,RowKey"
	pager := table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter, Select: &sel})
	var ids []string
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		for _, e := range resp.Entities {
			var ent aztables.Entity
			if err := json.Unmarshal(e, &ent); err != nil {
				return 0, err
			}
			ids = append(ids, ent.RowKey)
		}
	}

	removed := 0
	for _, id := range ids {
		if _, err := table.DeleteEntity(ctx, partition, id, nil); err != nil {
			if isNotFound(err) {
				continue
			}
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func seedBoards(now time.Time) []domain.Board {
	return []domain.Board{
		{ID: "1", Name: "Q1 Marketing Campaign", Icon: "📊", CreatedAt: now, UpdatedAt: now},
		{ID: "2", Name: "Product Development", Icon: "🚀", CreatedAt: now, UpdatedAt: now},
		{ID: "3", Name: "Customer Success", Icon: "💬", CreatedAt: now, UpdatedAt: now},
	}
}

func seedItems(now time.Time) []domain.Item {
	items := []domain.Item{
		{
			ID: "1", BoardID: "1", Name: "Design new landing page",
			Status: domain.StatusInProgress, Priority: domain.PriorityHigh,
			Assignee: []string{"John Doe", "Jane Smith"}, DueDate: "2024-12-15", Progress: 65,
			Tags: []string{"Design", "Frontend", "Urgent"}, Description: "Create responsive design for Q1 campaign",
		},
		{
			ID: "2", BoardID: "1", Name: "Write blog posts",
			Status: domain.StatusTodo, Priority: domain.PriorityMedium,
			Assignee: []string{"Jane Smith"}, DueDate: "2024-12-20", Progress: 0,
			Tags: []string{"Documentation"}, Description: "Prepare 5 blog posts for content marketing",
		},
		{
			ID: "3", BoardID: "1", Name: "Social media strategy",
			Status: domain.StatusDone, Priority: domain.PriorityHigh,
			Assignee: []string{"Mike Johnson"}, DueDate: "2024-11-10", Progress: 100,
			Tags: []string{}, Description: "Develop comprehensive social media plan",
		},
		{
			ID: "4", BoardID: "1", Name: "Email campaign setup",
			Status: domain.StatusInProgress, Priority: domain.PriorityLow,
			Assignee: []string{"Sarah Wilson"}, DueDate: "2024-12-25", Progress: 30,
			Tags: []string{"Review"}, Description: "Configure email automation workflows",
		},
		{
			ID: "5", BoardID: "2", Name: "API Development",
			Status: domain.StatusInProgress, Priority: domain.PriorityHigh,
			Assignee: []string{"Dev Team"}, DueDate: "2025-01-01", Progress: 45,
			Tags: []string{"Backend", "Feature"}, Description: "Build REST API endpoints",
		},
		{
			ID: "6", BoardID: "2", Name: "Database Schema Design",
			Status: domain.StatusDone, Priority: domain.PriorityHigh,
			Assignee: []string{"Tech Lead"}, DueDate: "2024-11-05", Progress: 100,
			Tags: []string{"Backend"}, Description: "Design document store schema",
		},
		{
			ID: "7", BoardID: "2", Name: "UI/UX Improvements",
			Status: domain.StatusTodo, Priority: domain.PriorityMedium,
			Assignee: []string{"Design Team"}, DueDate: "2025-01-15", Progress: 0,
			Tags: []string{"Design", "Frontend"}, Description: "Enhance user interface and experience",
		},
		{
			ID: "8", BoardID: "3", Name: "Customer Onboarding Flow",
			Status: domain.StatusInProgress, Priority: domain.PriorityHigh,
			Assignee: []string{"Support Team"}, DueDate: "2024-12-30", Progress: 55,
			Tags: []string{"Feature", "Review"}, Description: "Improve new customer onboarding process",
		},
		{
			ID: "9", BoardID: "3", Name: "Support Documentation",
			Status: domain.StatusInProgress, Priority: domain.PriorityMedium,
			Assignee: []string{"Tech Writer"}, DueDate: "2025-01-10", Progress: 40,
			Tags: []string{"Documentation"}, Description: "Create comprehensive help documentation",
		},
		{
			ID: "10", BoardID: "3", Name: "Customer Feedback Survey",
			Status: domain.StatusTodo, Priority: domain.PriorityLow,
			Assignee: []string{"Marketing Team"}, DueDate: "2025-01-20", Progress: 0,
			Tags: []string{"Testing"}, Description: "Gather customer satisfaction feedback",
		},
	}
	for idx := range items {
		items[idx].ApplyDefaults()
		items[idx].CreatedAt = now
		items[idx].UpdatedAt = now
	}
	return items
}
