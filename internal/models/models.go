package models

import "time"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// RoutineType is the generation cadence of a routine template.
type RoutineType string

const (
	RoutineDaily   RoutineType = "daily"
	RoutineWeekly  RoutineType = "weekly"
	RoutineMonthly RoutineType = "monthly"
)

// Task represents a single task. Tasks form a forest: ParentID is nil for
// root tasks. A task with children is a parent task and its Status is
// derived from its children, never set directly.
type Task struct {
	ID              int64
	ParentID        *int64
	Title           string
	Description     *string
	Status          Status
	Priority        Priority
	StartDate       *string // YYYY-MM-DD
	StartTime       *string // HH:MM
	EndDate         *string
	EndTime         *string
	Position        int
	Expanded        bool
	IsRoutine       bool
	RoutineType     *RoutineType
	LastGeneratedAt *time.Time
	RoutineParentID *int64
	CompletedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Tags            []Tag   // populated when loading tasks
	Children        []*Task // populated by tree queries
}

// Tag represents a tag that can be applied to tasks
type Tag struct {
	ID        int64
	Name      string
	Color     string
	TextColor string
	CreatedAt time.Time
}

// Attachment is a file reference owned by a task.
type Attachment struct {
	ID        int64
	TaskID    int64
	FileName  string
	FilePath  string
	CreatedAt time.Time
}

// Comment represents a comment on a task
type Comment struct {
	ID        int64
	TaskID    int64
	Content   string
	CreatedAt time.Time
}

// Workspace is one independently addressable task database. Exactly one
// workspace is active at any time.
type Workspace struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	LastUsed    time.Time
	IsActive    bool
	DBPath      string
}

// WorkspaceStats are advisory counts for display.
type WorkspaceStats struct {
	TaskCount          int
	CompletedTaskCount int
	TagCount           int
}

// Optional wraps a partial-update field whose column is nullable. Set
// reports whether the field was provided at all; a set field with Valid
// false clears the column to NULL.
type Optional[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Valid: true, Value: v}
}

// Null returns a set Optional that clears the column.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// Ptr returns the value as a pointer, or nil when clearing.
func (o Optional[T]) Ptr() *T {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// TaskInput holds the fields accepted when creating a task. Title is
// required; everything else falls back to store defaults.
type TaskInput struct {
	ParentID        *int64
	Title           string
	Description     *string
	Status          Status
	Priority        Priority
	StartDate       *string
	StartTime       *string
	EndDate         *string
	EndTime         *string
	Position        *int
	Expanded        *bool
	IsRoutine       bool
	RoutineType     *RoutineType
	RoutineParentID *int64
}

// TaskUpdate is a partial update: only set fields are applied. Non-nullable
// columns use plain pointers; nullable columns use Optional so a caller can
// distinguish "leave alone" from "clear to NULL".
type TaskUpdate struct {
	ParentID    Optional[int64]
	Title       *string
	Description Optional[string]
	Status      *Status
	Priority    *Priority
	StartDate   Optional[string]
	StartTime   Optional[string]
	EndDate     Optional[string]
	EndTime     Optional[string]
	Position    *int
	Expanded    *bool
	IsRoutine   *bool
	RoutineType Optional[RoutineType]
}
