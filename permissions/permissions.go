// Package permissions maps an actor's relationship to a project, task and
// subtask onto the set of operations they may perform. Evaluation is pure;
// every handler path goes through the same rule table.
package permissions

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/models"
)

type Capabilities struct {
	CanCreateTask       bool
	CanEditAll          bool
	CanEditAssignedOnly bool
	CanComment          bool
	CanReact            bool
	CanPin              bool
	CanDelete           bool
}

// CanEditSubtask reports whether the actor may touch the subtask at all;
// which fields actually apply is decided by FilterSubtaskUpdate.
func (c Capabilities) CanEditSubtask() bool {
	return c.CanEditAll || c.CanEditAssignedOnly
}

// Evaluate derives the actor's capability set. task and subtask may be nil
// for project-scoped checks. Precedence: project creator and managers get
// full rights; the task creator gets full edit on that task's subtasks; a
// subtask assignee gets the restricted assignee field set on their own
// subtask; any active team member may comment and react.
func Evaluate(actor primitive.ObjectID, project *models.Project, task *models.Task, subtask *models.Subtask) Capabilities {
	isCreator := project.IsCreator(actor)
	isManager := project.IsManager(actor)
	isMember := project.IsActiveMember(actor)
	isTaskCreator := task != nil && task.CreatedBy == actor
	isAssignee := subtask != nil && subtask.AssignedTo != nil && *subtask.AssignedTo == actor

	var caps Capabilities
	if isCreator || isManager {
		caps.CanCreateTask = true
		caps.CanEditAll = true
		caps.CanPin = true
		caps.CanDelete = true
	}
	if isTaskCreator {
		caps.CanEditAll = true
	}
	if isAssignee {
		caps.CanEditAssignedOnly = true
	}
	if isMember || isManager || isCreator {
		caps.CanComment = true
		caps.CanReact = true
	}
	return caps
}

// SubtaskUpdate is a partial subtask mutation; nil means "not provided".
type SubtaskUpdate struct {
	Title          *string
	Description    *string
	AssignedTo     *primitive.ObjectID
	EstimatedHours *float64
	Order          *int
	Status         *models.TaskStatus
	LoggedHours    *float64
	WorkNotes      *string
}

// FilterSubtaskUpdate drops every field the capability set does not permit.
// Full editors may change title, description, assignee, estimate and order;
// the assignee may change status, loggedHours and workNotes on their own
// subtask. Unauthorized fields are silently discarded, not rejected.
func FilterSubtaskUpdate(caps Capabilities, u SubtaskUpdate) SubtaskUpdate {
	var out SubtaskUpdate
	if caps.CanEditAll {
		out.Title = u.Title
		out.Description = u.Description
		out.AssignedTo = u.AssignedTo
		out.EstimatedHours = u.EstimatedHours
		out.Order = u.Order
	}
	if caps.CanEditAssignedOnly {
		out.Status = u.Status
		out.LoggedHours = u.LoggedHours
		out.WorkNotes = u.WorkNotes
	}
	return out
}
