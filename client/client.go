package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/models"
)

// Client talks to the collaboration API with a bearer token. The zero
// value is not usable; construct with New.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Error   models.ErrorKind `json:"error"`
	Data    json.RawMessage  `json:"data"`
}

// do sends one request and decodes the envelope. Failures come back as
// *models.Error carrying the server's kind, so callers can branch with
// errors.As the same way handlers do.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		return &models.Error{Kind: env.Error, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
	}
	return nil
}

// TaskDraft is the wire shape for creating a task.
type TaskDraft struct {
	Title          string              `json:"title"`
	Description    string              `json:"description,omitempty"`
	ProjectID      string              `json:"projectId"`
	Priority       models.TaskPriority `json:"priority,omitempty"`
	EstimatedHours float64             `json:"estimatedHours,omitempty"`
	DueDate        *time.Time          `json:"dueDate,omitempty"`
	AssignedTo     string              `json:"assignedTo,omitempty"`
	Labels         []string            `json:"labels,omitempty"`
	Subtasks       []SubtaskDraft      `json:"subtasks,omitempty"`
	IsPrivate      bool                `json:"isPrivate,omitempty"`
}

type SubtaskDraft struct {
	Title          string  `json:"title"`
	Description    string  `json:"description,omitempty"`
	AssignedTo     string  `json:"assignedTo,omitempty"`
	EstimatedHours float64 `json:"estimatedHours,omitempty"`
}

// TaskPatch carries a partial task update; nil fields are left untouched.
type TaskPatch struct {
	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	Priority    *models.TaskPriority `json:"priority,omitempty"`
	DueDate     *time.Time           `json:"dueDate,omitempty"`
	AssignedTo  *string              `json:"assignedTo,omitempty"`
	Labels      *[]string            `json:"labels,omitempty"`
	IsPrivate   *bool                `json:"isPrivate,omitempty"`
}

// SubtaskPatch carries a partial subtask update. Fields the caller is not
// allowed to change are dropped server side without an error.
type SubtaskPatch struct {
	Title          *string            `json:"title,omitempty"`
	Description    *string            `json:"description,omitempty"`
	AssignedTo     *string            `json:"assignedTo,omitempty"`
	EstimatedHours *float64           `json:"estimatedHours,omitempty"`
	Order          *int               `json:"order,omitempty"`
	Status         *models.TaskStatus `json:"status,omitempty"`
	LoggedHours    *float64           `json:"loggedHours,omitempty"`
	WorkNotes      *string            `json:"workNotes,omitempty"`
}

// SubtaskResult pairs the mutated subtask with the parent task's derived
// fields after the rollup.
type SubtaskResult struct {
	Subtask models.Subtask `json:"subtask"`
	Task    TaskRollup     `json:"task"`
}

type TaskRollup struct {
	ID                   primitive.ObjectID `json:"_id"`
	Status               models.TaskStatus  `json:"status"`
	EstimatedHours       float64            `json:"estimatedHours"`
	CompletedAt          *time.Time         `json:"completedAt,omitempty"`
	CompletionPercentage int                `json:"completionPercentage"`
}

func (c *Client) CreateTask(ctx context.Context, draft TaskDraft) (*models.Task, error) {
	var data struct {
		Task models.Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/tasks", draft, &data); err != nil {
		return nil, err
	}
	return &data.Task, nil
}

func (c *Client) CreateQuickTask(ctx context.Context, title, projectID string) (*models.Task, error) {
	body := map[string]string{"title": title, "projectId": projectID}
	var data struct {
		Task models.Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/tasks/quick", body, &data); err != nil {
		return nil, err
	}
	return &data.Task, nil
}

func (c *Client) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	path := "/api/tasks"
	if projectID != "" {
		path += "?projectId=" + projectID
	}
	var data struct {
		Tasks []models.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Tasks, nil
}

func (c *Client) UpdateTask(ctx context.Context, taskID string, patch TaskPatch) (*models.Task, error) {
	var data struct {
		Task models.Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+taskID, patch, &data); err != nil {
		return nil, err
	}
	return &data.Task, nil
}

func (c *Client) UpdateTaskStatus(ctx context.Context, taskID string, status models.TaskStatus) (*models.Task, error) {
	body := map[string]models.TaskStatus{"status": status}
	var data struct {
		Task models.Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+taskID+"/status", body, &data); err != nil {
		return nil, err
	}
	return &data.Task, nil
}

func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+taskID, nil, nil)
}

func (c *Client) AddSubtask(ctx context.Context, taskID string, draft SubtaskDraft) (*SubtaskResult, error) {
	var result SubtaskResult
	if err := c.do(ctx, http.MethodPost, "/api/tasks/"+taskID+"/subtasks", draft, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) UpdateSubtask(ctx context.Context, taskID, subtaskID string, patch SubtaskPatch) (*SubtaskResult, error) {
	var result SubtaskResult
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+taskID+"/subtasks/"+subtaskID, patch, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteSubtask(ctx context.Context, taskID, subtaskID string) (*TaskRollup, error) {
	var data struct {
		Task TaskRollup `json:"task"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/tasks/"+taskID+"/subtasks/"+subtaskID, nil, &data); err != nil {
		return nil, err
	}
	return &data.Task, nil
}

func (c *Client) LogHours(ctx context.Context, taskID, subtaskID string, hours float64, note string) (*SubtaskResult, error) {
	body := map[string]interface{}{"hours": hours, "note": note}
	var result SubtaskResult
	if err := c.do(ctx, http.MethodPost, "/api/tasks/"+taskID+"/subtasks/"+subtaskID+"/time", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func commentsPath(taskID, subtaskID string) string {
	return "/api/tasks/" + taskID + "/subtasks/" + subtaskID + "/comments"
}

func (c *Client) AddComment(ctx context.Context, taskID, subtaskID, text string, mentions []string) (*models.Comment, error) {
	body := map[string]interface{}{"text": text, "mentions": mentions}
	var data struct {
		Comment models.Comment `json:"comment"`
	}
	if err := c.do(ctx, http.MethodPost, commentsPath(taskID, subtaskID), body, &data); err != nil {
		return nil, err
	}
	return &data.Comment, nil
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

type ThreadPermissions struct {
	CanPin    bool `json:"canPin"`
	CanDelete bool `json:"canDelete"`
}

type CommentThread struct {
	Comments    []CommentSummary  `json:"comments"`
	Permissions ThreadPermissions `json:"permissions"`
}

func (c *Client) GetComments(ctx context.Context, taskID, subtaskID string) (*CommentThread, error) {
	var thread CommentThread
	if err := c.do(ctx, http.MethodGet, commentsPath(taskID, subtaskID), nil, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

func (c *Client) AddReply(ctx context.Context, taskID, subtaskID, commentID, text string, mentions []string) (*models.Reply, error) {
	body := map[string]interface{}{"text": text, "mentions": mentions}
	var data struct {
		Reply models.Reply `json:"reply"`
	}
	if err := c.do(ctx, http.MethodPost, commentsPath(taskID, subtaskID)+"/"+commentID+"/replies", body, &data); err != nil {
		return nil, err
	}
	return &data.Reply, nil
}

// ReactionResult carries the updated tallies and whichever entity the
// reaction landed on.
type ReactionResult struct {
	Counts  map[models.ReactionType]int `json:"counts"`
	Comment *models.Comment             `json:"comment,omitempty"`
	Reply   *models.Reply               `json:"reply,omitempty"`
}

func (c *Client) AddCommentReaction(ctx context.Context, taskID, subtaskID, commentID string, typ models.ReactionType) (*ReactionResult, error) {
	body := map[string]models.ReactionType{"type": typ}
	var result ReactionResult
	if err := c.do(ctx, http.MethodPost, commentsPath(taskID, subtaskID)+"/"+commentID+"/reactions", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) AddReplyReaction(ctx context.Context, taskID, subtaskID, commentID, replyID string, typ models.ReactionType) (*ReactionResult, error) {
	body := map[string]models.ReactionType{"type": typ}
	var result ReactionResult
	if err := c.do(ctx, http.MethodPost, commentsPath(taskID, subtaskID)+"/"+commentID+"/replies/"+replyID+"/reactions", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) PinComment(ctx context.Context, taskID, subtaskID, commentID string, pinned bool) (*models.Comment, error) {
	body := map[string]bool{"pinned": pinned}
	var data struct {
		Comment models.Comment `json:"comment"`
	}
	if err := c.do(ctx, http.MethodPatch, commentsPath(taskID, subtaskID)+"/"+commentID+"/pin", body, &data); err != nil {
		return nil, err
	}
	return &data.Comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, taskID, subtaskID, commentID string) error {
	return c.do(ctx, http.MethodDelete, commentsPath(taskID, subtaskID)+"/"+commentID, nil, nil)
}

func (c *Client) DeleteReply(ctx context.Context, taskID, subtaskID, commentID, replyID string) error {
	return c.do(ctx, http.MethodDelete, commentsPath(taskID, subtaskID)+"/"+commentID+"/replies/"+replyID, nil, nil)
}
