package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
	ReactionLove    ReactionType = "love"
	ReactionLaugh   ReactionType = "laugh"
	ReactionWow     ReactionType = "wow"
	ReactionSad     ReactionType = "sad"
	ReactionAngry   ReactionType = "angry"
	ReactionCheck   ReactionType = "check"
	ReactionFire    ReactionType = "fire"
)

func (r ReactionType) Valid() bool {
	switch r {
	case ReactionLike, ReactionDislike, ReactionLove, ReactionLaugh,
		ReactionWow, ReactionSad, ReactionAngry, ReactionCheck, ReactionFire:
		return true
	}
	return false
}

// Reaction is a (user, type) pair; a user holds at most one reaction of
// each type per comment or reply.
type Reaction struct {
	User primitive.ObjectID `json:"user" bson:"user"`
	Type ReactionType       `json:"type" bson:"type"`
}

type Reply struct {
	ID              primitive.ObjectID   `json:"_id" bson:"_id"`
	User            primitive.ObjectID   `json:"user" bson:"user"`
	Text            string               `json:"text" bson:"text"`
	Mentions        []primitive.ObjectID `json:"mentions,omitempty" bson:"mentions,omitempty"`
	Reactions       []Reaction           `json:"reactions" bson:"reactions"`
	ParentCommentID primitive.ObjectID   `json:"parentCommentId" bson:"parentCommentId"`
	CreatedAt       time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt" bson:"updatedAt"`
}

type Comment struct {
	ID        primitive.ObjectID   `json:"_id" bson:"_id"`
	User      primitive.ObjectID   `json:"user" bson:"user"`
	Text      string               `json:"text" bson:"text"`
	Mentions  []primitive.ObjectID `json:"mentions,omitempty" bson:"mentions,omitempty"`
	Replies   []Reply              `json:"replies" bson:"replies"`
	Reactions []Reaction           `json:"reactions" bson:"reactions"`
	IsPinned  bool                 `json:"isPinned" bson:"isPinned"`
	CreatedAt time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// Reply returns the reply with the given id, or nil.
func (c *Comment) Reply(id primitive.ObjectID) *Reply {
	for i := range c.Replies {
		if c.Replies[i].ID == id {
			return &c.Replies[i]
		}
	}
	return nil
}

// AddReaction appends a (user, type) reaction, rejecting unknown types and
// duplicate pairs. On rejection the reaction list is returned unchanged.
func AddReaction(reactions []Reaction, user primitive.ObjectID, typ ReactionType) ([]Reaction, error) {
	if !typ.Valid() {
		return reactions, Validationf("unknown reaction type %q", typ)
	}
	for _, r := range reactions {
		if r.User == user && r.Type == typ {
			return reactions, DuplicateReactionf("reaction %q already set by this user", typ)
		}
	}
	return append(reactions, Reaction{User: user, Type: typ}), nil
}

// ReactionCounts tallies reactions per type.
func ReactionCounts(reactions []Reaction) map[ReactionType]int {
	counts := make(map[ReactionType]int)
	for _, r := range reactions {
		counts[r.Type]++
	}
	return counts
}

// UserReactions returns the set of types the given user has reacted with.
func UserReactions(reactions []Reaction, user primitive.ObjectID) []ReactionType {
	var types []ReactionType
	for _, r := range reactions {
		if r.User == user {
			types = append(types, r.Type)
		}
	}
	return types
}
