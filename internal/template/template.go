package template

import (
	"errors"
	"fmt"
	"time"

	"guildboard/internal/task"
)

var (
	ErrNotFound      = errors.New("template not found")
	ErrUnknownParent = errors.New("unknown parent node")
	ErrCycle         = errors.New("template nodes form a cycle")
)

// Node is one row of a template's flat node list. Nesting is expressed
// through SubtaskOf parent pointers, an entirely separate mechanism from the
// nested-list forest a live task carries; Materialize converts between the
// two.
type Node struct {
	ID           int                   `json:"id"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	SubtaskOf    *int                  `json:"subtaskOf,omitempty"`
	Dependencies []int                 `json:"dependencies,omitempty"`
	Professions  []string              `json:"professions,omitempty"`
	Levels       map[string]int        `json:"levels,omitempty"`
	ShipTo       string                `json:"shipTo,omitempty"`
	TakeFrom     string                `json:"takeFrom,omitempty"`
	Resources    []task.ResourceLedger `json:"resources,omitempty"`
}

// Template is a reusable task shape. Its id is a uuid string; live tasks it
// materializes into get integer ids from the store as usual.
type Template struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Priority    task.Priority         `json:"priority"`
	Type        task.Type             `json:"taskType"`
	Professions []string              `json:"professions,omitempty"`
	Levels      map[string]int        `json:"levels,omitempty"`
	ShipTo      string                `json:"shipTo,omitempty"`
	TakeFrom    string                `json:"takeFrom,omitempty"`
	Resources   []task.ResourceLedger `json:"resources,omitempty"`
	Nodes       []Node                `json:"nodes"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// Materialize converts the flat node list into a Task with a nested subtask
// forest, ready to pass through task creation (which assigns fresh ids and
// zeroes every ledger). Node order is preserved: children appear under their
// parent in list order, roots in list order at the top level.
func (tp Template) Materialize(createdBy string) (task.Task, error) {
	children := map[int][]int{}
	byID := map[int]int{}
	for i, n := range tp.Nodes {
		if _, dup := byID[n.ID]; dup {
			return task.Task{}, fmt.Errorf("node id %d: %w", n.ID, task.ErrDuplicateSubtaskID)
		}
		byID[n.ID] = i
	}
	roots := []int{}
	for _, n := range tp.Nodes {
		if n.SubtaskOf == nil {
			roots = append(roots, n.ID)
			continue
		}
		if _, ok := byID[*n.SubtaskOf]; !ok {
			return task.Task{}, fmt.Errorf("node %d points at %d: %w", n.ID, *n.SubtaskOf, ErrUnknownParent)
		}
		children[*n.SubtaskOf] = append(children[*n.SubtaskOf], n.ID)
	}

	var build func(id int, seen map[int]bool) (task.Subtask, error)
	build = func(id int, seen map[int]bool) (task.Subtask, error) {
		if seen[id] {
			return task.Subtask{}, fmt.Errorf("at node %d: %w", id, ErrCycle)
		}
		seen[id] = true
		n := tp.Nodes[byID[id]]
		st := task.Subtask{
			ID:           n.ID,
			Name:         n.Name,
			Description:  n.Description,
			Dependencies: append([]int(nil), n.Dependencies...),
			Professions:  append([]string(nil), n.Professions...),
			Levels:       cloneLevels(n.Levels),
			ShipTo:       n.ShipTo,
			TakeFrom:     n.TakeFrom,
			Resources:    cloneLedgers(n.Resources),
			AssignedTo:   []string{},
			Subtasks:     []task.Subtask{},
		}
		for _, childID := range children[id] {
			child, err := build(childID, seen)
			if err != nil {
				return task.Subtask{}, err
			}
			st.Subtasks = append(st.Subtasks, child)
		}
		return st, nil
	}

	forest := []task.Subtask{}
	seen := map[int]bool{}
	for _, rootID := range roots {
		st, err := build(rootID, seen)
		if err != nil {
			return task.Task{}, err
		}
		forest = append(forest, st)
	}
	if len(seen) != len(tp.Nodes) {
		// Unreached nodes have parents but no path from a root.
		return task.Task{}, ErrCycle
	}

	return task.Task{
		Name:        tp.Name,
		Description: tp.Description,
		Priority:    tp.Priority,
		Type:        tp.Type,
		Professions: append([]string(nil), tp.Professions...),
		Levels:      cloneLevels(tp.Levels),
		ShipTo:      tp.ShipTo,
		TakeFrom:    tp.TakeFrom,
		Resources:   cloneLedgers(tp.Resources),
		CreatedBy:   createdBy,
		Subtasks:    forest,
	}, nil
}

func cloneLevels(src map[string]int) map[string]int {
	out := make(map[string]int, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func cloneLedgers(src []task.ResourceLedger) []task.ResourceLedger {
	out := make([]task.ResourceLedger, 0, len(src))
	for _, l := range src {
		l.Contributors = map[string]int{}
		l.Gathered = 0
		out = append(out, l)
	}
	return out
}
