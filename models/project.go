package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project groups tasks and carries the membership lists every permission
// check is evaluated against. A user appears in at most one of teamMembers,
// suspendedMembers and removedMembers at a time; projectStartedBy is
// immutable and always treated as a manager.
type Project struct {
	ID               primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Name             string               `json:"name" bson:"name"`
	TeamMembers      []primitive.ObjectID `json:"teamMembers" bson:"teamMembers"`
	SuspendedMembers []primitive.ObjectID `json:"suspendedMembers,omitempty" bson:"suspendedMembers,omitempty"`
	RemovedMembers   []primitive.ObjectID `json:"removedMembers,omitempty" bson:"removedMembers,omitempty"`
	InvitedMembers   []primitive.ObjectID `json:"invitedMembers,omitempty" bson:"invitedMembers,omitempty"`
	ManagingUserIDs  []primitive.ObjectID `json:"managingUserId" bson:"managingUserId"`
	ProjectStartedBy primitive.ObjectID   `json:"projectStartedBy" bson:"projectStartedBy"`
	Tasks            []primitive.ObjectID `json:"tasks" bson:"tasks"`
	StartDate        time.Time            `json:"startDate" bson:"startDate"`
	EndDate          time.Time            `json:"endDate" bson:"endDate"`
	CreatedAt        time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt" bson:"updatedAt"`
}

func (p *Project) IsCreator(userID primitive.ObjectID) bool {
	return p.ProjectStartedBy == userID
}

func (p *Project) IsManager(userID primitive.ObjectID) bool {
	for _, id := range p.ManagingUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsActiveMember reports whether the user is on the active team list.
// Suspended and removed members fail this check.
func (p *Project) IsActiveMember(userID primitive.ObjectID) bool {
	for _, id := range p.TeamMembers {
		if id == userID {
			return true
		}
	}
	return false
}

// FilterMentions keeps only mentions that resolve to an active team member,
// a manager, or the project creator. Invalid entries are dropped silently
// rather than failing the request.
func (p *Project) FilterMentions(mentions []primitive.ObjectID) []primitive.ObjectID {
	valid := []primitive.ObjectID{}
	for _, id := range mentions {
		if p.IsActiveMember(id) || p.IsManager(id) || p.IsCreator(id) {
			valid = append(valid, id)
		}
	}
	return valid
}
