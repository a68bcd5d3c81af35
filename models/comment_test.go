package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAddReaction(t *testing.T) {
	user := primitive.NewObjectID()
	other := primitive.NewObjectID()

	reactions, err := AddReaction(nil, user, ReactionLike)
	require.NoError(t, err)
	require.Len(t, reactions, 1)

	// Same user, different type is allowed.
	reactions, err = AddReaction(reactions, user, ReactionFire)
	require.NoError(t, err)
	require.Len(t, reactions, 2)

	// Another user repeating a type is allowed.
	reactions, err = AddReaction(reactions, other, ReactionLike)
	require.NoError(t, err)
	require.Len(t, reactions, 3)
}

func TestAddReactionRejectsDuplicatePair(t *testing.T) {
	user := primitive.NewObjectID()
	reactions, err := AddReaction(nil, user, ReactionLike)
	require.NoError(t, err)

	same, err := AddReaction(reactions, user, ReactionLike)
	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, KindDuplicateReaction, appErr.Kind)
	require.Equal(t, reactions, same)
}

func TestAddReactionRejectsUnknownType(t *testing.T) {
	_, err := AddReaction(nil, primitive.NewObjectID(), ReactionType("shrug"))
	var appErr *Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, KindValidation, appErr.Kind)
}

func TestReactionCountsAndUserReactions(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	reactions := []Reaction{
		{User: a, Type: ReactionLike},
		{User: b, Type: ReactionLike},
		{User: a, Type: ReactionFire},
	}

	counts := ReactionCounts(reactions)
	require.Equal(t, 2, counts[ReactionLike])
	require.Equal(t, 1, counts[ReactionFire])

	mine := UserReactions(reactions, a)
	require.ElementsMatch(t, []ReactionType{ReactionLike, ReactionFire}, mine)
	require.Empty(t, UserReactions(reactions, primitive.NewObjectID()))
}

func TestCommentReplyLookup(t *testing.T) {
	replyID := primitive.NewObjectID()
	comment := Comment{
		ID:      primitive.NewObjectID(),
		Replies: []Reply{{ID: replyID, Text: "here"}},
	}
	require.NotNil(t, comment.Reply(replyID))
	require.Equal(t, "here", comment.Reply(replyID).Text)
	require.Nil(t, comment.Reply(primitive.NewObjectID()))
}

func TestFilterMentions(t *testing.T) {
	creator := primitive.NewObjectID()
	manager := primitive.NewObjectID()
	member := primitive.NewObjectID()
	suspended := primitive.NewObjectID()
	outsider := primitive.NewObjectID()

	project := &Project{
		ProjectStartedBy: creator,
		ManagingUserIDs:  []primitive.ObjectID{manager},
		TeamMembers:      []primitive.ObjectID{member},
		SuspendedMembers: []primitive.ObjectID{suspended},
	}

	got := project.FilterMentions([]primitive.ObjectID{creator, manager, member, suspended, outsider})
	require.Equal(t, []primitive.ObjectID{creator, manager, member}, got)

	require.Empty(t, project.FilterMentions(nil))
}
