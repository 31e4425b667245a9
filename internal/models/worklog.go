package models

import "time"

// Work-log status values.
const (
	WorkStatusPending    = "pending"
	WorkStatusInProgress = "in_progress"
	WorkStatusCompleted  = "completed"
	WorkStatusCancelled  = "cancelled"
)

// Work-log priority values.
const (
	WorkPriorityLow    = "low"
	WorkPriorityMedium = "medium"
	WorkPriorityHigh   = "high"
	WorkPriorityUrgent = "urgent"
)

// WorkLog is one row of the work_logs table.
type WorkLog struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Status     string     `json:"status"`
	Priority   string     `json:"priority"`
	AssignedTo *string    `json:"assigned_to"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DueDate    *time.Time `json:"due_date"`
}
