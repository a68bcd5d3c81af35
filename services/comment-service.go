package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/models"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/permissions"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/ws"
)

// CommentService runs the threaded discussion under a subtask: comments,
// replies, reactions, pinning and listing. It shares the task aggregate
// with TaskService; comments are values owned by their subtask.
type CommentService struct {
	tasks         *TaskService
	broadcaster   ws.Broadcaster
	notifications *NotificationsClient
}

// NewCommentService wires the comment operations on top of the task
// aggregate access the TaskService already provides. notifications may be
// nil when no notifications service is configured.
func NewCommentService(tasks *TaskService, broadcaster ws.Broadcaster, notifications *NotificationsClient) *CommentService {
	return &CommentService{
		tasks:         tasks,
		broadcaster:   broadcaster,
		notifications: notifications,
	}
}

// thread locates the subtask and its surrounding aggregate.
func (s *CommentService) thread(ctx context.Context, taskID, subtaskID string) (*models.Task, *models.Subtask, *models.Project, error) {
	task, err := s.tasks.findTask(ctx, taskID)
	if err != nil {
		return nil, nil, nil, err
	}
	stID, err := primitive.ObjectIDFromHex(subtaskID)
	if err != nil {
		return nil, nil, nil, models.InvalidIDf("invalid subtask ID format")
	}
	subtask := task.Subtask(stID)
	if subtask == nil {
		return nil, nil, nil, models.NotFoundf("subtask not found")
	}
	project, err := s.tasks.findProject(ctx, task.ProjectID)
	if err != nil {
		return nil, nil, nil, err
	}
	return task, subtask, project, nil
}

// parseMentions drops malformed ids silently; membership filtering happens
// against the project afterwards.
func parseMentions(raw []string) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, r := range raw {
		if id, err := primitive.ObjectIDFromHex(r); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// AddComment appends a comment to the subtask's thread. Mentions outside
// the project team are dropped, not rejected.
func (s *CommentService) AddComment(ctx context.Context, actor primitive.ObjectID, taskID, subtaskID, text string, mentions []string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.Validationf("comment text is required")
	}
	task, subtask, project, err := s.thread(ctx, taskID, subtaskID)
	if err != nil {
		return nil, err
	}
	if !permissions.Evaluate(actor, project, task, subtask).CanComment {
		return nil, models.Forbiddenf("only project team members can add comments")
	}

	now := time.Now()
	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		User:      actor,
		Text:      text,
		Mentions:  project.FilterMentions(parseMentions(mentions)),
		Replies:   []models.Reply{},
		Reactions: []models.Reaction{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	subtask.Comments = append(subtask.Comments, comment)
	subtask.UpdatedAt = now

	if err := s.tasks.saveTask(ctx, task); err != nil {
		return nil, err
	}

	s.broadcaster.Broadcast(task.ProjectID.Hex(), ws.Event{
		Type:      ws.CommentAdded,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		CommentID: comment.ID.Hex(),
		Payload:   ws.Marshal(comment),
	})
	s.notifyMentions(task, subtask, comment.ID, actor, comment.Mentions)
	return &comment, nil
}

// AddReply appends a reply under the target comment.
func (s *CommentService) AddReply(ctx context.Context, actor primitive.ObjectID, taskID, subtaskID, commentID, text string, mentions []string) (*models.Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.Validationf("reply text is required")
	}
	task, subtask, project, err := s.thread(ctx, taskID, subtaskID)
	if err != nil {
		return nil, err
	}
	comment, err := findComment(subtask, commentID)
	if err != nil {
		return nil, err
	}
	if !permissions.Evaluate(actor, project, task, subtask).CanComment {
		return nil, models.Forbiddenf("only project team members can reply to comments")
	}

	now := time.Now()
	reply := models.Reply{
		ID:              primitive.NewObjectID(),
		User:            actor,
		Text:            text,
		Mentions:        project.FilterMentions(parseMentions(mentions)),
		Reactions:       []models.Reaction{},
		ParentCommentID: comment.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	comment.Replies = append(comment.Replies, reply)
	subtask.UpdatedAt = now

	if err := s.tasks.saveTask(ctx, task); err != nil {
		return nil, err
	}

	s.broadcaster.Broadcast(task.ProjectID.Hex(), ws.Event{
		Type:      ws.ReplyAdded,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		CommentID: comment.ID.Hex(),
		ReplyID:   reply.ID.Hex(),
		Payload:   ws.Marshal(reply),
	})
	s.notifyMentions(task, subtask, comment.ID, actor, reply.Mentions)
	return &reply, nil
}

// ReactionResult returns the updated entity together with its per-type
// counts.
type ReactionResult struct {
	Counts  map[models.ReactionType]int `json:"counts"`
	Comment *models.Comment             `json:"comment,omitempty"`
	Reply   *models.Reply               `json:"reply,omitempty"`
}

// AddCommentReaction records one (user, type) reaction on a comment. A
// second reaction of the same type from the same user is rejected.
func (s *CommentService) AddCommentReaction(ctx context.Context, actor primitive.ObjectID, taskID, subtaskID, commentID string, typ models.ReactionType) (*ReactionResult, error) {
	task, subtask, project, err := s.thread(ctx, taskID, subtaskID)
	if err != nil {
		return nil, err
	}
	comment, err := findComment(subtask, commentID)
	if err != nil {
		return nil, err
	}
	if !permissions.Evaluate(actor, project, task, subtask).CanReact {
		return nil, models.Forbiddenf("only project team members can react")
	}

	reactions, err := models.AddReaction(comment.Reactions, actor, typ)
	if err != nil {
		return nil, err
	}
	comment.Reactions = reactions
	comment.UpdatedAt = time.Now()

	if err := s.tasks.saveTask(ctx, task); err != nil {
		return nil, err
	}

	s.broadcaster.Broadcast(task.ProjectID.Hex(), ws.Event{
		Type:      ws.ReactionAdded,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		CommentID: comment.ID.Hex(),
		Payload:   ws.Marshal(comment),
	})
	return &ReactionResult{Counts: models.ReactionCounts(comment.Reactions), Comment: comment}, nil
}

// AddReplyReaction records one (user, type) reaction on a reply.
func (s *CommentService) AddReplyReaction(ctx context.Context, actor primitive.ObjectID, taskID, subtaskID, commentID, replyID string, typ models.ReactionType) (*ReactionResult, error) {
	task, subtask, project, err := s.thread(ctx, taskID, subtaskID)
	if err != nil {
		return nil, err
	}
	comment, err := findComment(subtask, commentID)
	if err != nil {
		return nil, err
	}
	rID, err := primitive.ObjectIDFromHex(replyID)
	if err != nil {
		return nil, models.InvalidIDf("invalid reply ID format")
	}
	reply := comment.Reply(rID)
	if reply == nil {
		return nil, models.NotFoundf("reply not found")
	}
	if !permissions.Evaluate(actor, project, task, subtask).CanReact {
		return nil, models.Forbiddenf("only project team members can react")
	}

	reactions, err := models.AddReaction(reply.Reactions, actor, typ)
	if err != nil {
		return nil, err
	}
	reply.Reactions = reactions
	reply.UpdatedAt = time.Now()

	if err := s.tasks.saveTask(ctx, task); err != nil {
		return nil, err
	}

	s.broadcaster.Broadcast(task.ProjectID.Hex(), ws.Event{
		Type:      ws.ReactionAdded,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		CommentID: comment.ID.Hex(),
		ReplyID:   reply.ID.Hex(),
		Payload:   ws.Marshal(reply),
	})
	return &ReactionResult{Counts: models.ReactionCounts(reply.Reactions), Reply: reply}, nil
}

// ReactionSummary pairs totals per type with the caller's own reactions.
type ReactionSummary struct {
	Counts map[models.ReactionType]int `json:"counts"`
	Mine   []models.ReactionType       `json:"mine,omitempty"`
}

type ReplySummary struct {
	ID              primitive.ObjectID   `json:"_id"`
	User            primitive.ObjectID   `json:"user"`
	Text            string               `json:"text"`
	Mentions        []primitive.ObjectID `json:"mentions,omitempty"`
	ParentCommentID primitive.ObjectID   `json:"parentCommentId"`
	Reactions       ReactionSummary      `json:"reactions"`
	CreatedAt       time.Time            `json:"createdAt"`
}

type CommentSummary struct {
	ID         primitive.ObjectID   `json:"_id"`
	User       primitive.ObjectID   `json:"user"`
	Text       string               `json:"text"`
	Mentions   []primitive.ObjectID `json:"mentions,omitempty"`
	IsPinned   bool                 `json:"isPinned"`
	ReplyCount int                  `json:"replyCount"`
	Replies    []ReplySummary       `json:"replies"`
	Reactions  ReactionSummary      `json:"reactions"`
	CreatedAt  time.Time            `json:"createdAt"`
}

// ThreadPermissions is the caller-scoped action block the UI renders
// moderation controls from.
type ThreadPermissions struct {
	CanPin    bool `json:"canPin"`
	CanDelete bool `json:"canDelete"`
}

type CommentThread struct {
	Comments    []CommentSummary  `json:"comments"`
	Permissions ThreadPermissions `json:"permissions"`
}

// GetSubtaskComments lists the thread with reaction summaries scoped to
// the caller.
func (s *CommentService) GetSubtaskComments(ctx context.Context, actor primitive.ObjectID, taskID, subtaskID string) (*CommentThread, error) {
	task, subtask, project, err := s.thread(ctx, taskID, subtaskID)
	if err != nil {
		return nil, err
	}
	caps := permissions.Evaluate(actor, project, task, subtask)
	if !caps.CanComment {
		return nil, models.Forbiddenf("only project team members can view comments")
	}

	thread := &CommentThread{
		Comments:    make([]CommentSummary, 0, len(subtask.Comments)),
		Permissions: ThreadPermissions{CanPin: caps.CanPin, CanDelete: caps.CanDelete},
	}
	for i := range subtask.Comments {
		c := &subtask.Comments[i]
		summary := CommentSummary{
			ID:         c.ID,
			User:       c.User,
			Text:       c.Text,
			Mentions:   c.Mentions,
			IsPinned:   c.IsPinned,
			ReplyCount: len(c.Replies),
			Replies:    make([]ReplySummary, 0, len(c.Replies)),
			Reactions: ReactionSummary{
				Counts: models.ReactionCounts(c.Reactions),
				Mine:   models.UserReactions(c.Reactions, actor),
			},
			CreatedAt: c.CreatedAt,
		}
		for j := range c.Replies {
			r := &c.Replies[j]
			summary.Replies = append(summary.Replies, ReplySummary{
				ID:              r.ID,
				User:            r.User,
				Text:            r.Text,
				Mentions:        r.Mentions,
				ParentCommentID: r.ParentCommentID,
				Reactions: ReactionSummary{
					Counts: models.ReactionCounts(r.Reactions),
					Mine:   models.UserReactions(r.Reactions, actor),
				},
				CreatedAt: r.CreatedAt,
			})
		}
		thread.Comments = append(thread.Comments, summary)
	}
	return thread, nil
}

// PinComment toggles the pinned flag; reserved to managers and the
// project creator.
func (s *CommentService) PinComment(ctx context.Context, actor primitive.ObjectID, taskID, subtaskID, commentID string, pinned bool) (*models.Comment, error) {
	task, subtask, project, err := s.thread(ctx, taskID, subtaskID)
	if err != nil {
		return nil, err
	}
	comment, err := findComment(subtask, commentID)
	if err != nil {
		return nil, err
	}
	if !permissions.Evaluate(actor, project, task, subtask).CanPin {
		return nil, models.Forbiddenf("only project creator or managers can pin comments")
	}

	comment.IsPinned = pinned
	comment.UpdatedAt = time.Now()
	if err := s.tasks.saveTask(ctx, task); err != nil {
		return nil, err
	}
	return comment, nil
}

// DeleteComment removes a comment and its replies; reserved to managers
// and the project creator.
func (s *CommentService) DeleteComment(ctx context.Context, actor primitive.ObjectID, taskID, subtaskID, commentID string) error {
	task, subtask, project, err := s.thread(ctx, taskID, subtaskID)
	if err != nil {
		return err
	}
	comment, err := findComment(subtask, commentID)
	if err != nil {
		return err
	}
	if !permissions.Evaluate(actor, project, task, subtask).CanDelete {
		return models.Forbiddenf("only project creator or managers can delete comments")
	}

	for i := range subtask.Comments {
		if subtask.Comments[i].ID == comment.ID {
			subtask.Comments = append(subtask.Comments[:i], subtask.Comments[i+1:]...)
			break
		}
	}
	subtask.UpdatedAt = time.Now()
	return s.tasks.saveTask(ctx, task)
}

// DeleteReply removes a single reply; reserved to managers and the
// project creator.
func (s *CommentService) DeleteReply(ctx context.Context, actor primitive.ObjectID, taskID, subtaskID, commentID, replyID string) error {
	task, subtask, project, err := s.thread(ctx, taskID, subtaskID)
	if err != nil {
		return err
	}
	comment, err := findComment(subtask, commentID)
	if err != nil {
		return err
	}
	rID, err := primitive.ObjectIDFromHex(replyID)
	if err != nil {
		return models.InvalidIDf("invalid reply ID format")
	}
	if !permissions.Evaluate(actor, project, task, subtask).CanDelete {
		return models.Forbiddenf("only project creator or managers can delete replies")
	}

	found := false
	for i := range comment.Replies {
		if comment.Replies[i].ID == rID {
			comment.Replies = append(comment.Replies[:i], comment.Replies[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return models.NotFoundf("reply not found")
	}
	subtask.UpdatedAt = time.Now()
	return s.tasks.saveTask(ctx, task)
}

func findComment(subtask *models.Subtask, commentID string) (*models.Comment, error) {
	id, err := primitive.ObjectIDFromHex(commentID)
	if err != nil {
		return nil, models.InvalidIDf("invalid comment ID format")
	}
	for i := range subtask.Comments {
		if subtask.Comments[i].ID == id {
			return &subtask.Comments[i], nil
		}
	}
	return nil, models.NotFoundf("comment not found")
}

func (s *CommentService) notifyMentions(task *models.Task, subtask *models.Subtask, commentID, author primitive.ObjectID, mentions []primitive.ObjectID) {
	if s.notifications == nil || len(mentions) == 0 {
		return
	}
	go s.notifications.NotifyMentions(MentionNotification{
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		CommentID: commentID.Hex(),
		Author:    author.Hex(),
		Mentioned: hexIDs(mentions),
	})
}

func hexIDs(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}
