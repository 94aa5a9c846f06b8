package task

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound         = errors.New("task not found")
	ErrSubtaskNotFound  = errors.New("subtask not found")
	ErrResourceNotFound = errors.New("resource not found")
)

// Patch represents a partial update. nil pointer => "no change". Only the
// allow-listed scalar fields can be patched; Resources and Subtasks replace
// the whole list when present, never merge.
type Patch struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Deadline    *string   `json:"deadline,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Type        *Type     `json:"taskType,omitempty"`
	ShipTo      *string   `json:"shipTo,omitempty"`
	TakeFrom    *string   `json:"takeFrom,omitempty"`

	Resources *[]ResourceLedger `json:"resources,omitempty"`
	Subtasks  *[]Subtask        `json:"subtasks,omitempty"`
}

type ListFilter struct {
	// Status: "" | "all" | one of the task statuses
	Status string
	// Type: "" | "all" | "guild" | "member"
	Type string
	// AssignedTo / CreatedBy: exact user name, "" = don't care
	AssignedTo string
	CreatedBy  string
}

type Repo interface {
	Create(ctx context.Context, t Task) (Task, error)
	Get(ctx context.Context, id int) (Task, error)
	Save(ctx context.Context, t Task) error
	Update(ctx context.Context, id int, p Patch) (Task, error)
	List(ctx context.Context, filter ListFilter) ([]Task, error)
	Delete(ctx context.Context, id int) error
	NextID(ctx context.Context) (int, error)
}

func applyPatch(t *Task, p Patch) error {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Deadline != nil {
		t.Deadline = *p.Deadline
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.ShipTo != nil {
		t.ShipTo = *p.ShipTo
	}
	if p.TakeFrom != nil {
		t.TakeFrom = *p.TakeFrom
	}

	if p.Resources != nil {
		next := *p.Resources
		if next == nil {
			next = []ResourceLedger{}
		}
		RecomputeLedgers(next)
		t.Resources = next
	}

	if p.Subtasks != nil {
		next := *p.Subtasks
		if next == nil {
			next = []Subtask{}
		}
		if err := PrepareReplacement(next); err != nil {
			return err
		}
		t.Subtasks = next
	}

	return nil
}

func normalizeTask(t *Task) {
	if t.Resources == nil {
		t.Resources = []ResourceLedger{}
	}
	if t.AssignedTo == nil {
		t.AssignedTo = []string{}
	}
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}
	RecomputeLedgers(t.Resources)
	Walk(t.Subtasks, func(s *Subtask) bool {
		if s.AssignedTo == nil {
			s.AssignedTo = []string{}
		}
		if s.Resources == nil {
			s.Resources = []ResourceLedger{}
		}
		if s.Subtasks == nil {
			s.Subtasks = []Subtask{}
		}
		RecomputeLedgers(s.Resources)
		return true
	})
	Walk(t.Subtasks, func(s *Subtask) bool {
		s.DependenciesMet = DependenciesMet(t.Subtasks, s)
		return true
	})
}

func matchesFilter(t Task, f ListFilter) bool {
	switch strings.ToLower(strings.TrimSpace(f.Status)) {
	case "", "all":
	default:
		if string(t.Status) != strings.ToLower(strings.TrimSpace(f.Status)) {
			return false
		}
	}
	switch strings.ToLower(strings.TrimSpace(f.Type)) {
	case "", "all":
	default:
		if string(t.Type) != strings.ToLower(strings.TrimSpace(f.Type)) {
			return false
		}
	}
	if f.AssignedTo != "" && !t.IsAssigned(f.AssignedTo) {
		return false
	}
	if f.CreatedBy != "" && t.CreatedBy != f.CreatedBy {
		return false
	}
	return true
}
