package domain

import "time"

const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Task struct {
	ID          string
	Title       string
	Description string
	Status      string
	CreatedBy   string
	AssignedTo  string // empty when unassigned
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// VisibleTo reports whether userID created or is assigned the task.
func (t *Task) VisibleTo(userID string) bool {
	return t.CreatedBy == userID || (t.AssignedTo != "" && t.AssignedTo == userID)
}

// TaskFilter narrows ListTasks. Visibility to Viewer is always applied.
type TaskFilter struct {
	Viewer     string
	Status     string
	AssignedTo string
	Search     string // literal, case-insensitive substring of title or description
}

// TaskView is a task with its user references populated.
type TaskView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedBy   UserRef   `json:"createdBy"`
	AssignedTo  *UserRef  `json:"assignedTo,omitempty"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
