package task

import (
	"errors"
	"fmt"
)

var ErrDuplicateSubtaskID = errors.New("duplicate subtask id")

// FindSubtask walks the forest depth-first in pre-order and returns a
// mutable reference to the first node with the given id, or nil.
func FindSubtask(forest []Subtask, id int) *Subtask {
	for i := range forest {
		if forest[i].ID == id {
			return &forest[i]
		}
		if found := FindSubtask(forest[i].Subtasks, id); found != nil {
			return found
		}
	}
	return nil
}

// FindResource scans a resource list for an exact name match.
func FindResource(resources []ResourceLedger, name string) *ResourceLedger {
	for i := range resources {
		if resources[i].Name == name {
			return &resources[i]
		}
	}
	return nil
}

// Walk visits every node in pre-order. The visit function may mutate the
// node; returning false stops the walk.
func Walk(forest []Subtask, visit func(*Subtask) bool) bool {
	for i := range forest {
		if !visit(&forest[i]) {
			return false
		}
		if !Walk(forest[i].Subtasks, visit) {
			return false
		}
	}
	return true
}

// CountSubtasks returns the number of nodes in the forest at all depths.
func CountSubtasks(forest []Subtask) int {
	n := 0
	Walk(forest, func(*Subtask) bool {
		n++
		return true
	})
	return n
}

// DependenciesMet reports whether every dependency of node is completed.
// Dependency ids may point anywhere in the task's forest; a dangling id
// counts as unmet. This gates claim eligibility only, never completion.
func DependenciesMet(forest []Subtask, node *Subtask) bool {
	for _, dep := range node.Dependencies {
		target := FindSubtask(forest, dep)
		if target == nil || !target.Completed {
			return false
		}
	}
	return true
}

// PrepareNew normalizes a caller-supplied task for creation: the aggregate
// starts open and unassigned, every ledger starts empty regardless of
// supplied values, and subtask ids are assigned 1..N sequentially in
// pre-order across the entire forest. Dependency lists that referenced the
// supplied ids are rewritten to the renumbered ones so they keep pointing at
// the same nodes.
func PrepareNew(t *Task) {
	t.Status = StatusOpen
	t.AssignedTo = []string{}
	for i := range t.Resources {
		t.Resources[i].reset()
	}
	renumbered := map[int]int{}
	next := 1
	Walk(t.Subtasks, func(s *Subtask) bool {
		if s.ID != 0 {
			if _, ok := renumbered[s.ID]; !ok {
				renumbered[s.ID] = next
			}
		}
		s.ID = next
		next++
		s.Completed = false
		s.Status = StatusOpen
		s.AssignedTo = []string{}
		for i := range s.Resources {
			s.Resources[i].reset()
		}
		if s.Subtasks == nil {
			s.Subtasks = []Subtask{}
		}
		return true
	})
	Walk(t.Subtasks, func(s *Subtask) bool {
		for i, dep := range s.Dependencies {
			if id, ok := renumbered[dep]; ok {
				s.Dependencies[i] = id
			}
		}
		return true
	})
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}
	if t.Levels == nil {
		t.Levels = map[string]int{}
	}
}

// PrepareReplacement normalizes a full subtask-forest replacement supplied
// through an update: supplied ids are preserved, missing ids get the next
// sequential value past the current maximum, ledgers recompute their
// gathered totals from whatever contributors were supplied, and duplicate
// ids are rejected as a caller error.
func PrepareReplacement(forest []Subtask) error {
	maxID := 0
	Walk(forest, func(s *Subtask) bool {
		if s.ID > maxID {
			maxID = s.ID
		}
		return true
	})

	next := maxID + 1
	seen := map[int]bool{}
	var dup error
	Walk(forest, func(s *Subtask) bool {
		if s.ID == 0 {
			s.ID = next
			next++
		}
		if seen[s.ID] {
			dup = fmt.Errorf("%w: %d", ErrDuplicateSubtaskID, s.ID)
			return false
		}
		seen[s.ID] = true
		if s.AssignedTo == nil {
			s.AssignedTo = []string{}
		}
		if s.Subtasks == nil {
			s.Subtasks = []Subtask{}
		}
		RecomputeLedgers(s.Resources)
		return true
	})
	return dup
}

// RecomputeLedgers restores the derived gathered total on every ledger in
// the list, defaulting empty contributor maps along the way.
func RecomputeLedgers(resources []ResourceLedger) {
	for i := range resources {
		if resources[i].Contributors == nil {
			resources[i].Contributors = map[string]int{}
		}
		resources[i].Recompute()
	}
}
