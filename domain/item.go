package domain

import (
	"fmt"
	"time"
)

// Status is the workflow state of an item.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Valid reports whether s is one of the known workflow states.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Priority is the urgency level of an item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Item is a task belonging to exactly one board. boardId is pinned at
// creation and never reassigned; board deletion cascades to its items.
type Item struct {
	ID              string    `json:"id"`
	BoardID         string    `json:"boardId"`
	Name            string    `json:"name"`
	Status          Status    `json:"status"`
	Priority        Priority  `json:"priority"`
	Assignee        []string  `json:"assignee"`
	ProjectManagers []string  `json:"projectManagers"`
	Tags            []string  `json:"tags"`
	DueDate         string    `json:"dueDate"`
	Progress        int       `json:"progress"`
	Description     string    `json:"description"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ApplyDefaults fills every optional field with its documented default so a
// partially specified item persists fully populated.
func (i *Item) ApplyDefaults() {
	if i.Status == "" {
		i.Status = StatusTodo
	}
	if i.Priority == "" {
		i.Priority = PriorityMedium
	}
	if i.Assignee == nil {
		i.Assignee = []string{}
	}
	if i.ProjectManagers == nil {
		i.ProjectManagers = []string{}
	}
	if i.Tags == nil {
		i.Tags = []string{}
	}
}

// ItemPatch carries the mutable item fields of an update request. Nil means
// "leave unchanged"; list fields replace the stored list wholesale. boardId,
// id and createdAt are deliberately absent: they are not patchable.
type ItemPatch struct {
	Name            *string   `json:"name"`
	Status          *Status   `json:"status"`
	Priority        *Priority `json:"priority"`
	Assignee        *[]string `json:"assignee"`
	ProjectManagers *[]string `json:"projectManagers"`
	Tags            *[]string `json:"tags"`
	DueDate         *string   `json:"dueDate"`
	Progress        *int      `json:"progress"`
	Description     *string   `json:"description"`
}

// Empty reports whether the patch would change nothing.
func (p ItemPatch) Empty() bool {
	return p.Name == nil && p.Status == nil && p.Priority == nil &&
		p.Assignee == nil && p.ProjectManagers == nil && p.Tags == nil &&
		p.DueDate == nil && p.Progress == nil && p.Description == nil
}

// Validate checks field-level constraints on the populated patch fields.
func (p ItemPatch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("invalid status %q", *p.Status)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return fmt.Errorf("invalid priority %q", *p.Priority)
	}
	if p.Progress != nil && (*p.Progress < 0 || *p.Progress > 100) {
		return fmt.Errorf("progress must be between 0 and 100, got %d", *p.Progress)
	}
	if p.DueDate != nil && *p.DueDate != "" {
		if _, err := time.Parse("2006-01-02", *p.DueDate); err != nil {
			return fmt.Errorf("dueDate must be YYYY-MM-DD, got %q", *p.DueDate)
		}
	}
	return nil
}
