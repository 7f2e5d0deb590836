package domain

import "time"

// Event types published to the notifier.
const (
	EventPasswordResetRequested = "password_reset.requested"
	EventTaskUpdated            = "task.updated"
	EventTaskDeleted            = "task.deleted"
	EventCommentCreated         = "comment.created"
	EventCommentUpdated         = "comment.updated"
	EventCommentDeleted         = "comment.deleted"
)

// TopicAdmins reaches every connected administrator.
const TopicAdmins = "admins"

// TaskTopic is the room for one task's subscribers.
func TaskTopic(taskID string) string { return "task:" + taskID }

// Event is an outbound notification. Delivery is at-most-once and best-effort.
type Event struct {
	Type  string    `json:"type"`
	Topic string    `json:"topic"`
	Data  any       `json:"data,omitempty"`
	At    time.Time `json:"at"`
}
