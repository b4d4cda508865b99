package model

import "time"

// DeliveryState is the portal's submission status code for an assignment
// (the "estadoEntrega" field).
type DeliveryState int

// DeliveryOpen is the only code that means the student can still submit.
// Every other value is treated as closed.
const DeliveryOpen DeliveryState = 1

// Open reports whether the submission channel is still open.
func (s DeliveryState) Open() bool {
	return s == DeliveryOpen
}

// Assignment is one item of a fetched snapshot. It is produced fresh on every
// run and never persisted; only its ID ends up in the seen/reminder sets.
type Assignment struct {
	// ID is the portal's activity identifier, stable across runs.
	ID string `json:"id"`

	// CourseID identifies the course the assignment belongs to.
	CourseID string `json:"course_id"`

	// CourseName is the human-readable course title.
	CourseName string `json:"course_name"`

	// Title is the assignment title.
	Title string `json:"title"`

	// Deadline is the absolute submission deadline.
	Deadline time.Time `json:"deadline"`

	// DeliveryState tells whether the submission is still open.
	DeliveryState DeliveryState `json:"delivery_state"`
}

// ReminderSuffix is appended to an assignment ID to build its key in the
// sent-reminders set.
const ReminderSuffix = "_reminder"

// ReminderKey returns the sent-reminders key for the assignment.
func (a Assignment) ReminderKey() string {
	return ReminderKeyFor(a.ID)
}

// ReminderKeyFor returns the sent-reminders key for an assignment ID.
func ReminderKeyFor(id string) string {
	return id + ReminderSuffix
}
