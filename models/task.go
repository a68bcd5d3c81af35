package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
	// StatusBlocked is valid for subtasks only.
	StatusBlocked TaskStatus = "blocked"
)

type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

func (s TaskStatus) ValidForTask() bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusCompleted
}

func (s TaskStatus) ValidForSubtask() bool {
	return s.ValidForTask() || s == StatusBlocked
}

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// TimeEntry is one logged block of work against a subtask. The subtask's
// loggedHours is the running sum of its entries and never decreases.
type TimeEntry struct {
	User     primitive.ObjectID `json:"user" bson:"user"`
	Hours    float64            `json:"hours" bson:"hours"`
	Note     string             `json:"note,omitempty" bson:"note,omitempty"`
	LoggedAt time.Time          `json:"loggedAt" bson:"loggedAt"`
}

// Subtask is embedded in its task document; its lifetime is bound to the
// parent and it is always persisted together with it.
type Subtask struct {
	ID             primitive.ObjectID  `json:"_id" bson:"_id"`
	Title          string              `json:"title" bson:"title"`
	Description    string              `json:"description" bson:"description"`
	AssignedTo     *primitive.ObjectID `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	EstimatedHours float64             `json:"estimatedHours" bson:"estimatedHours"`
	LoggedHours    float64             `json:"loggedHours" bson:"loggedHours"`
	WorkNotes      string              `json:"workNotes,omitempty" bson:"workNotes,omitempty"`
	Status         TaskStatus          `json:"status" bson:"status"`
	CompletedAt    *time.Time          `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	Order          int                 `json:"order" bson:"order"`
	TimeEntries    []TimeEntry         `json:"timeEntries,omitempty" bson:"timeEntries,omitempty"`
	Comments       []Comment           `json:"comments" bson:"comments"`
	CreatedAt      time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// Task is the unit of consistency: subtasks, comments, replies and
// reactions are nested values written together in one document.
type Task struct {
	ID             primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	Title          string              `json:"title" bson:"title"`
	Description    string              `json:"description" bson:"description"`
	ProjectID      primitive.ObjectID  `json:"projectId" bson:"projectId"`
	Priority       TaskPriority        `json:"priority" bson:"priority"`
	Status         TaskStatus          `json:"status" bson:"status"`
	EstimatedHours float64             `json:"estimatedHours" bson:"estimatedHours"`
	DueDate        *time.Time          `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	AssignedTo     *primitive.ObjectID `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	Labels         []string            `json:"labels,omitempty" bson:"labels,omitempty"`
	CreatedBy      primitive.ObjectID  `json:"createdBy" bson:"createdBy"`
	Order          int                 `json:"order" bson:"order"`
	Subtasks       []Subtask           `json:"subtasks" bson:"subtasks"`
	IsPrivate      bool                `json:"isPrivate" bson:"isPrivate"`
	CompletedAt    *time.Time          `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CreatedAt      time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// Subtask returns the embedded subtask with the given id, or nil.
func (t *Task) Subtask(id primitive.ObjectID) *Subtask {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return &t.Subtasks[i]
		}
	}
	return nil
}

// RemoveSubtask deletes the embedded subtask and everything it owns.
// Order values of the remaining subtasks are kept as assigned; ranks are
// append-only and never reused.
func (t *Task) RemoveSubtask(id primitive.ObjectID) bool {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			t.Subtasks = append(t.Subtasks[:i], t.Subtasks[i+1:]...)
			return true
		}
	}
	return false
}

// CompletionPercentage is derived from subtask statuses; a task without
// subtasks reports 0.
func (t *Task) CompletionPercentage() int {
	if len(t.Subtasks) == 0 {
		return 0
	}
	completed := 0
	for i := range t.Subtasks {
		if t.Subtasks[i].Status == StatusCompleted {
			completed++
		}
	}
	return completed * 100 / len(t.Subtasks)
}
