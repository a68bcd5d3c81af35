package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/models"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/ws"
)

func seededStore(t *testing.T) (*Store, models.Task, models.Subtask) {
	t.Helper()
	subtask := models.Subtask{
		ID:     primitive.NewObjectID(),
		Title:  "wire the parser",
		Status: models.StatusTodo,
	}
	task := models.Task{
		ID:        primitive.NewObjectID(),
		Title:     "ingest pipeline",
		ProjectID: primitive.NewObjectID(),
		Status:    models.StatusTodo,
		Subtasks:  []models.Subtask{subtask},
	}
	store := NewStore()
	store.ReplaceAll([]models.Task{task})
	return store, task, subtask
}

func commentsOf(t *testing.T, store *Store, taskID, subtaskID primitive.ObjectID) []models.Comment {
	t.Helper()
	task, ok := store.Task(taskID)
	require.True(t, ok)
	subtask := task.Subtask(subtaskID)
	require.NotNil(t, subtask)
	return subtask.Comments
}

func TestOptimisticCommentConfirm(t *testing.T) {
	store, task, subtask := seededStore(t)
	author := primitive.NewObjectID()

	actionID, local, ok := store.OptimisticAddComment(task.ID, subtask.ID, author, "looks good")
	require.True(t, ok)
	require.Equal(t, 1, store.PendingCount())
	require.Len(t, commentsOf(t, store, task.ID, subtask.ID), 1)

	server := local
	server.ID = primitive.NewObjectID()
	store.ConfirmComment(actionID, server)

	comments := commentsOf(t, store, task.ID, subtask.ID)
	require.Len(t, comments, 1)
	require.Equal(t, server.ID, comments[0].ID)
	require.Equal(t, 0, store.PendingCount())
}

func TestOptimisticCommentBroadcastEchoBeforeConfirm(t *testing.T) {
	store, task, subtask := seededStore(t)
	author := primitive.NewObjectID()

	actionID, local, ok := store.OptimisticAddComment(task.ID, subtask.ID, author, "ship it")
	require.True(t, ok)

	server := local
	server.ID = primitive.NewObjectID()

	// The broadcast echo lands before the request confirmation.
	store.Merge(ws.Event{
		Type:      ws.CommentAdded,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		CommentID: server.ID.Hex(),
		Payload:   ws.Marshal(server),
	})
	require.Len(t, commentsOf(t, store, task.ID, subtask.ID), 2)

	store.ConfirmComment(actionID, server)
	comments := commentsOf(t, store, task.ID, subtask.ID)
	require.Len(t, comments, 1)
	require.Equal(t, server.ID, comments[0].ID)
}

func TestOptimisticCommentConfirmThenEcho(t *testing.T) {
	store, task, subtask := seededStore(t)

	actionID, local, ok := store.OptimisticAddComment(task.ID, subtask.ID, primitive.NewObjectID(), "merged")
	require.True(t, ok)

	server := local
	server.ID = primitive.NewObjectID()
	store.ConfirmComment(actionID, server)

	store.Merge(ws.Event{
		Type:      ws.CommentAdded,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		CommentID: server.ID.Hex(),
		Payload:   ws.Marshal(server),
	})

	require.Len(t, commentsOf(t, store, task.ID, subtask.ID), 1)
}

func TestRollbackComment(t *testing.T) {
	store, task, subtask := seededStore(t)

	actionID, _, ok := store.OptimisticAddComment(task.ID, subtask.ID, primitive.NewObjectID(), "nope")
	require.True(t, ok)

	store.RollbackComment(actionID)
	require.Empty(t, commentsOf(t, store, task.ID, subtask.ID))
	require.Equal(t, 0, store.PendingCount())

	// A second rollback is harmless.
	store.RollbackComment(actionID)
	require.Equal(t, 0, store.PendingCount())
}

func TestOptimisticAddCommentUnknownTarget(t *testing.T) {
	store, task, _ := seededStore(t)

	_, _, ok := store.OptimisticAddComment(primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), "lost")
	require.False(t, ok)

	_, _, ok = store.OptimisticAddComment(task.ID, primitive.NewObjectID(), primitive.NewObjectID(), "lost")
	require.False(t, ok)
	require.Equal(t, 0, store.PendingCount())
}

func TestMergeTaskEvents(t *testing.T) {
	store, task, _ := seededStore(t)

	updated := task
	updated.Title = "ingest pipeline v2"
	updated.Status = models.StatusInProgress
	event := ws.Event{
		Type:      ws.TaskUpdated,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		Payload:   ws.Marshal(updated),
	}
	store.Merge(event)
	store.Merge(event) // replay is idempotent

	got, ok := store.Task(task.ID)
	require.True(t, ok)
	require.Equal(t, "ingest pipeline v2", got.Title)
	require.Len(t, store.Tasks(), 1)

	store.Merge(ws.Event{Type: ws.TaskDeleted, ProjectID: task.ProjectID.Hex(), TaskID: task.ID.Hex()})
	require.Empty(t, store.Tasks())
}

func TestMergeSubtaskEventAppliesRollup(t *testing.T) {
	store, task, subtask := seededStore(t)

	completedAt := time.Now().UTC().Truncate(time.Millisecond)
	changed := subtask
	changed.Status = models.StatusCompleted
	changed.CompletedAt = &completedAt
	changed.LoggedHours = 2

	event := ws.Event{
		Type:      ws.SubtaskUpdated,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		Payload: ws.Marshal(SubtaskResult{
			Subtask: changed,
			Task: TaskRollup{
				ID:             task.ID,
				Status:         models.StatusCompleted,
				EstimatedHours: 6,
				CompletedAt:    &completedAt,
			},
		}),
	}
	store.Merge(event)
	store.Merge(event)

	got, ok := store.Task(task.ID)
	require.True(t, ok)
	require.Equal(t, models.StatusCompleted, got.Status)
	require.InDelta(t, 6, got.EstimatedHours, 1e-9)
	require.Len(t, got.Subtasks, 1)
	require.Equal(t, models.StatusCompleted, got.Subtasks[0].Status)
	require.InDelta(t, 2, got.Subtasks[0].LoggedHours, 1e-9)
}

func TestMergeSubtaskDeleted(t *testing.T) {
	store, task, subtask := seededStore(t)

	store.Merge(ws.Event{
		Type:      ws.SubtaskDeleted,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		Payload: ws.Marshal(TaskRollup{
			ID:             task.ID,
			Status:         models.StatusTodo,
			EstimatedHours: 0,
		}),
	})

	got, ok := store.Task(task.ID)
	require.True(t, ok)
	require.Empty(t, got.Subtasks)
}

func TestMergeReplyAndReactionEvents(t *testing.T) {
	store, task, subtask := seededStore(t)

	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		User:      primitive.NewObjectID(),
		Text:      "thread root",
		Replies:   []models.Reply{},
		Reactions: []models.Reaction{},
	}
	store.Merge(ws.Event{
		Type:      ws.CommentAdded,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		CommentID: comment.ID.Hex(),
		Payload:   ws.Marshal(comment),
	})

	reply := models.Reply{
		ID:              primitive.NewObjectID(),
		User:            primitive.NewObjectID(),
		Text:            "follow up",
		ParentCommentID: comment.ID,
	}
	replyEvent := ws.Event{
		Type:      ws.ReplyAdded,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		CommentID: comment.ID.Hex(),
		ReplyID:   reply.ID.Hex(),
		Payload:   ws.Marshal(reply),
	}
	store.Merge(replyEvent)
	store.Merge(replyEvent)

	comments := commentsOf(t, store, task.ID, subtask.ID)
	require.Len(t, comments, 1)
	require.Len(t, comments[0].Replies, 1)

	// Reaction on the comment replaces the cached copy wholesale.
	reacted := comment
	reacted.Reactions = []models.Reaction{{User: reply.User, Type: models.ReactionLike}}
	store.Merge(ws.Event{
		Type:      ws.ReactionAdded,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		CommentID: comment.ID.Hex(),
		Payload:   ws.Marshal(reacted),
	})

	comments = commentsOf(t, store, task.ID, subtask.ID)
	require.Len(t, comments[0].Reactions, 1)
}

func TestSnapshotsDoNotAliasCache(t *testing.T) {
	store, task, subtask := seededStore(t)

	comment := models.Comment{ID: primitive.NewObjectID(), Text: "original"}
	store.Merge(ws.Event{
		Type:      ws.CommentAdded,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		CommentID: comment.ID.Hex(),
		Payload:   ws.Marshal(comment),
	})

	// Mutating a snapshot must not leak back into the cache.
	snap, ok := store.Task(task.ID)
	require.True(t, ok)
	snap.Subtasks[0].Comments[0].Text = "tampered"
	snap.Subtasks[0].Comments = append(snap.Subtasks[0].Comments, models.Comment{ID: primitive.NewObjectID()})
	snap.Subtasks[0].Status = models.StatusCompleted

	cached := commentsOf(t, store, task.ID, subtask.ID)
	require.Len(t, cached, 1)
	require.Equal(t, "original", cached[0].Text)

	list := store.Tasks()
	list[0].Subtasks[0].Title = "also tampered"
	fresh, ok := store.Task(task.ID)
	require.True(t, ok)
	require.Equal(t, subtask.Title, fresh.Subtasks[0].Title)
}

func TestReplaceAllDropsPending(t *testing.T) {
	store, task, subtask := seededStore(t)

	_, _, ok := store.OptimisticAddComment(task.ID, subtask.ID, primitive.NewObjectID(), "stale")
	require.True(t, ok)

	fresh := task
	fresh.Subtasks = []models.Subtask{{ID: subtask.ID, Title: subtask.Title, Status: subtask.Status}}
	store.ReplaceAll([]models.Task{fresh})
	require.Equal(t, 0, store.PendingCount())
	require.Empty(t, commentsOf(t, store, task.ID, subtask.ID))
}
