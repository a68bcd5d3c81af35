// Package client is the consumer side of the collaboration API: an HTTP
// client for the task endpoints, a local task cache with optimistic
// comment placement, and a websocket subscriber that folds broadcast
// events into the cache.
package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/models"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/ws"
)

// pendingComment locates a locally placed comment that has not been
// confirmed by the server yet.
type pendingComment struct {
	taskID    primitive.ObjectID
	subtaskID primitive.ObjectID
	localID   primitive.ObjectID
}

// Store caches the tasks of one project. Broadcast events and request
// confirmations are merged in; every mutation is an idempotent upsert, so
// the confirmation of an optimistic comment and its broadcast echo leave
// exactly one copy behind.
type Store struct {
	mu      sync.RWMutex
	tasks   []models.Task
	pending map[string]pendingComment
}

func NewStore() *Store {
	return &Store{pending: make(map[string]pendingComment)}
}

// ReplaceAll swaps in a fresh authoritative snapshot, dropping any
// optimistic entries still in flight. The store takes ownership of the
// tasks and their nested slices; the caller must not keep mutating them.
func (s *Store) ReplaceAll(tasks []models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append([]models.Task(nil), tasks...)
	s.pending = make(map[string]pendingComment)
}

// Tasks returns a deep copy of the cached task list; mutating the result
// does not touch the cache.
func (s *Store) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, len(s.tasks))
	for i := range s.tasks {
		out[i] = cloneTask(s.tasks[i])
	}
	return out
}

// Task returns a deep copy of the cached task, or false when it is unknown.
func (s *Store) Task(id primitive.ObjectID) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return cloneTask(s.tasks[i]), true
		}
	}
	return models.Task{}, false
}

func cloneTask(t models.Task) models.Task {
	out := t
	out.Labels = append([]string(nil), t.Labels...)
	out.Subtasks = make([]models.Subtask, len(t.Subtasks))
	for i := range t.Subtasks {
		out.Subtasks[i] = cloneSubtask(t.Subtasks[i])
	}
	return out
}

func cloneSubtask(st models.Subtask) models.Subtask {
	out := st
	out.TimeEntries = append([]models.TimeEntry(nil), st.TimeEntries...)
	out.Comments = make([]models.Comment, len(st.Comments))
	for i := range st.Comments {
		out.Comments[i] = cloneComment(st.Comments[i])
	}
	return out
}

func cloneComment(c models.Comment) models.Comment {
	out := c
	out.Mentions = append([]primitive.ObjectID(nil), c.Mentions...)
	out.Reactions = append([]models.Reaction(nil), c.Reactions...)
	out.Replies = make([]models.Reply, len(c.Replies))
	for i, r := range c.Replies {
		r.Mentions = append([]primitive.ObjectID(nil), r.Mentions...)
		r.Reactions = append([]models.Reaction(nil), r.Reactions...)
		out.Replies[i] = r
	}
	return out
}

// PendingCount reports how many optimistic comments await confirmation.
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

func (s *Store) task(id primitive.ObjectID) *models.Task {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return &s.tasks[i]
		}
	}
	return nil
}

// OptimisticAddComment places a comment with a locally generated id into
// the cached subtask and returns the action id used to confirm or roll it
// back once the server answers.
func (s *Store) OptimisticAddComment(taskID, subtaskID, author primitive.ObjectID, text string) (string, models.Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := s.task(taskID)
	if task == nil {
		return "", models.Comment{}, false
	}
	subtask := task.Subtask(subtaskID)
	if subtask == nil {
		return "", models.Comment{}, false
	}

	now := time.Now()
	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		User:      author,
		Text:      text,
		Replies:   []models.Reply{},
		Reactions: []models.Reaction{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	subtask.Comments = append(subtask.Comments, comment)

	actionID := uuid.NewString()
	s.pending[actionID] = pendingComment{taskID: taskID, subtaskID: subtaskID, localID: comment.ID}
	return actionID, comment, true
}

// ConfirmComment replaces the optimistic comment with the server's copy.
// Confirming an unknown or already confirmed action is a no-op for the
// pending set; the server comment is still upserted.
func (s *Store) ConfirmComment(actionID string, comment models.Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[actionID]
	if ok {
		delete(s.pending, actionID)
		s.removeComment(p.taskID, p.subtaskID, p.localID)
		s.upsertComment(p.taskID, p.subtaskID, comment)
		return
	}
	// Already merged via broadcast; nothing to replace.
}

// RollbackComment removes the optimistic comment after a failed request.
func (s *Store) RollbackComment(actionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[actionID]
	if !ok {
		return
	}
	delete(s.pending, actionID)
	s.removeComment(p.taskID, p.subtaskID, p.localID)
}

func (s *Store) removeComment(taskID, subtaskID, commentID primitive.ObjectID) {
	task := s.task(taskID)
	if task == nil {
		return
	}
	subtask := task.Subtask(subtaskID)
	if subtask == nil {
		return
	}
	for i := range subtask.Comments {
		if subtask.Comments[i].ID == commentID {
			subtask.Comments = append(subtask.Comments[:i], subtask.Comments[i+1:]...)
			return
		}
	}
}

func (s *Store) upsertComment(taskID, subtaskID primitive.ObjectID, comment models.Comment) {
	task := s.task(taskID)
	if task == nil {
		return
	}
	subtask := task.Subtask(subtaskID)
	if subtask == nil {
		return
	}
	for i := range subtask.Comments {
		if subtask.Comments[i].ID == comment.ID {
			subtask.Comments[i] = comment
			return
		}
	}
	subtask.Comments = append(subtask.Comments, comment)
}

func (s *Store) upsertTask(task models.Task) {
	for i := range s.tasks {
		if s.tasks[i].ID == task.ID {
			s.tasks[i] = task
			return
		}
	}
	s.tasks = append(s.tasks, task)
}

func (s *Store) applyRollup(taskID primitive.ObjectID, r TaskRollup) {
	task := s.task(taskID)
	if task == nil {
		return
	}
	task.Status = r.Status
	task.EstimatedHours = r.EstimatedHours
	task.CompletedAt = r.CompletedAt
}

func (s *Store) upsertSubtask(taskID primitive.ObjectID, subtask models.Subtask) {
	task := s.task(taskID)
	if task == nil {
		return
	}
	for i := range task.Subtasks {
		if task.Subtasks[i].ID == subtask.ID {
			task.Subtasks[i] = subtask
			return
		}
	}
	task.Subtasks = append(task.Subtasks, subtask)
}

// Merge folds one broadcast event into the cache. Events are authoritative
// and applied idempotently; pending optimistic entries are left alone so a
// later confirmation or rollback still finds them.
func (s *Store) Merge(event ws.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case ws.TaskCreated, ws.TaskUpdated:
		var task models.Task
		if err := json.Unmarshal(event.Payload, &task); err != nil {
			return
		}
		s.upsertTask(task)

	case ws.TaskDeleted:
		id, err := primitive.ObjectIDFromHex(event.TaskID)
		if err != nil {
			return
		}
		for i := range s.tasks {
			if s.tasks[i].ID == id {
				s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
				break
			}
		}

	case ws.SubtaskAdded, ws.SubtaskUpdated, ws.HoursLogged:
		var env SubtaskResult
		if err := json.Unmarshal(event.Payload, &env); err != nil {
			return
		}
		taskID, err := primitive.ObjectIDFromHex(event.TaskID)
		if err != nil {
			return
		}
		s.upsertSubtask(taskID, env.Subtask)
		s.applyRollup(taskID, env.Task)

	case ws.SubtaskDeleted:
		taskID, err := primitive.ObjectIDFromHex(event.TaskID)
		if err != nil {
			return
		}
		subtaskID, err := primitive.ObjectIDFromHex(event.SubtaskID)
		if err != nil {
			return
		}
		if task := s.task(taskID); task != nil {
			task.RemoveSubtask(subtaskID)
		}
		var r TaskRollup
		if err := json.Unmarshal(event.Payload, &r); err == nil {
			s.applyRollup(taskID, r)
		}

	case ws.CommentAdded:
		var comment models.Comment
		if err := json.Unmarshal(event.Payload, &comment); err != nil {
			return
		}
		taskID, err := primitive.ObjectIDFromHex(event.TaskID)
		if err != nil {
			return
		}
		subtaskID, err := primitive.ObjectIDFromHex(event.SubtaskID)
		if err != nil {
			return
		}
		s.upsertComment(taskID, subtaskID, comment)

	case ws.ReplyAdded:
		var reply models.Reply
		if err := json.Unmarshal(event.Payload, &reply); err != nil {
			return
		}
		s.withComment(event, func(comment *models.Comment) {
			for i := range comment.Replies {
				if comment.Replies[i].ID == reply.ID {
					comment.Replies[i] = reply
					return
				}
			}
			comment.Replies = append(comment.Replies, reply)
		})

	case ws.ReactionAdded:
		if event.ReplyID != "" {
			var reply models.Reply
			if err := json.Unmarshal(event.Payload, &reply); err != nil {
				return
			}
			s.withComment(event, func(comment *models.Comment) {
				for i := range comment.Replies {
					if comment.Replies[i].ID == reply.ID {
						comment.Replies[i] = reply
						return
					}
				}
			})
			return
		}
		var comment models.Comment
		if err := json.Unmarshal(event.Payload, &comment); err != nil {
			return
		}
		s.withComment(event, func(cached *models.Comment) {
			*cached = comment
		})
	}
}

// withComment runs fn on the cached comment addressed by the event ids.
// Caller holds the lock.
func (s *Store) withComment(event ws.Event, fn func(*models.Comment)) {
	taskID, err := primitive.ObjectIDFromHex(event.TaskID)
	if err != nil {
		return
	}
	subtaskID, err := primitive.ObjectIDFromHex(event.SubtaskID)
	if err != nil {
		return
	}
	commentID, err := primitive.ObjectIDFromHex(event.CommentID)
	if err != nil {
		return
	}
	task := s.task(taskID)
	if task == nil {
		return
	}
	subtask := task.Subtask(subtaskID)
	if subtask == nil {
		return
	}
	for i := range subtask.Comments {
		if subtask.Comments[i].ID == commentID {
			fn(&subtask.Comments[i])
			return
		}
	}
}
