package task

import (
	"slices"
	"time"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusTaken      Status = "taken"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type Type string

const (
	TypeGuild  Type = "guild"
	TypeMember Type = "member"
)

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func ValidStatus(s Status) bool {
	switch s {
	case StatusOpen, StatusTaken, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func ValidType(t Type) bool {
	return t == TypeGuild || t == TypeMember
}

// ResourceLedger tracks contributions toward a named quantity target.
// Gathered is derived: it always equals the sum of Contributors values.
type ResourceLedger struct {
	Name         string         `json:"name"`
	Needed       int            `json:"needed"`
	Unit         string         `json:"unit"`
	Gathered     int            `json:"gathered"`
	Contributors map[string]int `json:"contributors"`
}

// Adjust applies a signed delta to userName's contribution. The stored value
// is floored at zero, and a contributor that reaches zero is removed rather
// than kept as a zero entry. Contributions may exceed Needed.
func (l *ResourceLedger) Adjust(userName string, delta int) {
	if l.Contributors == nil {
		l.Contributors = map[string]int{}
	}
	next := l.Contributors[userName] + delta
	if next <= 0 {
		delete(l.Contributors, userName)
	} else {
		l.Contributors[userName] = next
	}
	l.Recompute()
}

// Recompute restores the Gathered invariant from Contributors.
func (l *ResourceLedger) Recompute() {
	sum := 0
	for _, v := range l.Contributors {
		sum += v
	}
	l.Gathered = sum
}

func (l *ResourceLedger) reset() {
	l.Contributors = map[string]int{}
	l.Gathered = 0
}

// Subtask is a recursively nestable unit of work. Children live in Subtasks;
// Dependencies reference subtask ids anywhere in the same task's forest.
// Status is a display hint only and never gates dependency logic.
type Subtask struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Completed    bool             `json:"completed"`
	Status       Status           `json:"status,omitempty"`
	AssignedTo   []string         `json:"assignedTo"`
	Professions  []string         `json:"professions,omitempty"`
	Levels       map[string]int   `json:"levels,omitempty"`
	Dependencies []int            `json:"dependencies,omitempty"`
	// DependenciesMet is derived on every read: true when each dependency id
	// resolves to a completed node. Clients use it to gate claim eligibility.
	DependenciesMet bool   `json:"dependenciesMet"`
	ShipTo          string `json:"shipTo,omitempty"`
	TakeFrom     string           `json:"takeFrom,omitempty"`
	Resources    []ResourceLedger `json:"resources"`
	Subtasks     []Subtask        `json:"subtasks"`
}

// ToggleClaim claims the subtask for userName, or unclaims it when userName
// is already assigned. Returns true when the call resulted in a claim.
func (s *Subtask) ToggleClaim(userName string) bool {
	if idx := slices.Index(s.AssignedTo, userName); idx >= 0 {
		s.AssignedTo = slices.Delete(s.AssignedTo, idx, idx+1)
		if len(s.AssignedTo) == 0 {
			s.Status = StatusOpen
		}
		return false
	}
	s.AssignedTo = append(s.AssignedTo, userName)
	s.Status = StatusInProgress
	return true
}

// ToggleCompletion flips the completed flag. Un-completing is symmetric with
// completing; dependencies are not checked here, they only gate claim
// eligibility. Returns the new completed state.
func (s *Subtask) ToggleCompletion() bool {
	if s.Completed {
		s.Completed = false
		s.Status = StatusOpen
		return false
	}
	s.Completed = true
	s.Status = StatusCompleted
	return true
}

// Task is the root aggregate: a flat top-level resource set, an assignment
// list, and a forest of nested subtasks.
type Task struct {
	ID          int              `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Deadline    string           `json:"deadline,omitempty"`
	Priority    Priority         `json:"priority"`
	Status      Status           `json:"status"`
	Type        Type             `json:"taskType"`
	Professions []string         `json:"professions,omitempty"`
	Levels      map[string]int   `json:"levels,omitempty"`
	Resources   []ResourceLedger `json:"resources"`
	AssignedTo  []string         `json:"assignedTo"`
	CreatedBy   string           `json:"createdBy"`
	ShipTo      string           `json:"shipTo,omitempty"`
	TakeFrom    string           `json:"takeFrom,omitempty"`
	Subtasks    []Subtask        `json:"subtasks"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ToggleClaim claims or unclaims the task for userName and drives the
// automatic status transitions: the first claim moves an open task to
// in_progress, the last unclaim reopens it. Explicitly set states
// (completed, cancelled) are left alone.
func (t *Task) ToggleClaim(userName string) bool {
	if idx := slices.Index(t.AssignedTo, userName); idx >= 0 {
		t.AssignedTo = slices.Delete(t.AssignedTo, idx, idx+1)
		if len(t.AssignedTo) == 0 && (t.Status == StatusInProgress || t.Status == StatusTaken) {
			t.Status = StatusOpen
		}
		return false
	}
	t.AssignedTo = append(t.AssignedTo, userName)
	if t.Status == StatusOpen || t.Status == StatusTaken {
		t.Status = StatusInProgress
	}
	return true
}

// Complete marks the whole task completed. One-way: there is no automatic
// reverse transition, only an explicit admin status set can reopen it.
func (t *Task) Complete() {
	t.Status = StatusCompleted
}

func (t *Task) IsAssigned(userName string) bool {
	return slices.Contains(t.AssignedTo, userName)
}

// Clone returns a deep copy sharing no maps or slice backing arrays with the
// receiver. Stores hand out clones so callers can mutate freely and nothing
// reaches persisted state except through Save.
func (t Task) Clone() Task {
	out := t
	out.Professions = slices.Clone(t.Professions)
	out.Levels = cloneCounts(t.Levels)
	out.AssignedTo = slices.Clone(t.AssignedTo)
	out.Resources = cloneLedgerList(t.Resources)
	out.Subtasks = cloneForest(t.Subtasks)
	return out
}

func cloneForest(src []Subtask) []Subtask {
	if src == nil {
		return nil
	}
	out := make([]Subtask, len(src))
	for i, s := range src {
		s.AssignedTo = slices.Clone(s.AssignedTo)
		s.Professions = slices.Clone(s.Professions)
		s.Levels = cloneCounts(s.Levels)
		s.Dependencies = slices.Clone(s.Dependencies)
		s.Resources = cloneLedgerList(s.Resources)
		s.Subtasks = cloneForest(s.Subtasks)
		out[i] = s
	}
	return out
}

func cloneLedgerList(src []ResourceLedger) []ResourceLedger {
	if src == nil {
		return nil
	}
	out := make([]ResourceLedger, len(src))
	for i, l := range src {
		l.Contributors = cloneCounts(l.Contributors)
		out[i] = l
	}
	return out
}

func cloneCounts(src map[string]int) map[string]int {
	if src == nil {
		return nil
	}
	out := make(map[string]int, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
