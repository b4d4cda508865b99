package model

import "time"

// Category distinguishes the two kinds of notification the watcher sends.
type Category string

const (
	CategoryNewItem  Category = "new-item"
	CategoryReminder Category = "reminder"
)

// Notification records one notification produced by a run.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// RunID ties the notification to the run that produced it.
	RunID string `json:"run_id"`

	// AssignmentID links this notification to the originating assignment.
	AssignmentID string `json:"assignment_id"`

	// Category is new-item or reminder.
	Category Category `json:"category"`

	// CourseName and Title describe the assignment.
	CourseName string `json:"course_name"`
	Title      string `json:"title"`

	// Deadline is the assignment deadline at the time of the run.
	Deadline time.Time `json:"deadline"`

	// Delivered is false when every channel failed or none was configured.
	Delivered bool `json:"delivered"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`
}
