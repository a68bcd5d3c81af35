package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/logging"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/models"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/permissions"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/ws"
)

// TaskService orchestrates the task/subtask lifecycle: permission checks,
// validation, aggregate mutation, persistence and broadcast. Every mutation
// rewrites the full task document; the task plus its embedded subtasks and
// comments is the unit of consistency.
type TaskService struct {
	tasksCollection    *mongo.Collection
	projectsCollection *mongo.Collection
	broadcaster        ws.Broadcaster
}

func NewTaskService(tasksCollection, projectsCollection *mongo.Collection, broadcaster ws.Broadcaster) *TaskService {
	return &TaskService{
		tasksCollection:    tasksCollection,
		projectsCollection: projectsCollection,
		broadcaster:        broadcaster,
	}
}

// SubtaskInput carries the subtask fields accepted on create.
type SubtaskInput struct {
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	AssignedTo     string  `json:"assignedTo"`
	EstimatedHours float64 `json:"estimatedHours"`
}

type CreateTaskInput struct {
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	ProjectID      string              `json:"projectId"`
	Priority       models.TaskPriority `json:"priority"`
	EstimatedHours float64             `json:"estimatedHours"`
	DueDate        *time.Time          `json:"dueDate"`
	AssignedTo     string              `json:"assignedTo"`
	Labels         []string            `json:"labels"`
	Subtasks       []SubtaskInput      `json:"subtasks"`
	IsPrivate      bool                `json:"isPrivate"`
}

type UpdateTaskInput struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Priority    *models.TaskPriority `json:"priority"`
	DueDate     *time.Time           `json:"dueDate"`
	AssignedTo  *string              `json:"assignedTo"`
	Labels      *[]string            `json:"labels"`
	IsPrivate   *bool                `json:"isPrivate"`
}

// TaskRollup is the slice of derived task fields returned with every
// subtask mutation so callers can reconcile without refetching the task.
type TaskRollup struct {
	ID                   primitive.ObjectID `json:"_id"`
	Status               models.TaskStatus  `json:"status"`
	EstimatedHours       float64            `json:"estimatedHours"`
	CompletedAt          *time.Time         `json:"completedAt,omitempty"`
	CompletionPercentage int                `json:"completionPercentage"`
}

type SubtaskResult struct {
	Subtask models.Subtask `json:"subtask"`
	Task    TaskRollup     `json:"task"`
}

func rollupOf(task *models.Task) TaskRollup {
	return TaskRollup{
		ID:                   task.ID,
		Status:               task.Status,
		EstimatedHours:       task.EstimatedHours,
		CompletedAt:          task.CompletedAt,
		CompletionPercentage: task.CompletionPercentage(),
	}
}

func (s *TaskService) findTask(ctx context.Context, taskID string) (*models.Task, error) {
	id, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, models.InvalidIDf("invalid task ID format")
	}
	var task models.Task
	if err := s.tasksCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&task); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NotFoundf("task not found")
		}
		return nil, fmt.Errorf("failed to fetch task: %w", err)
	}
	return &task, nil
}

func (s *TaskService) findProject(ctx context.Context, projectID primitive.ObjectID) (*models.Project, error) {
	var project models.Project
	if err := s.projectsCollection.FindOne(ctx, bson.M{"_id": projectID}).Decode(&project); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NotFoundf("project not found")
		}
		return nil, fmt.Errorf("failed to fetch project: %w", err)
	}
	return &project, nil
}

func (s *TaskService) saveTask(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()
	if _, err := s.tasksCollection.ReplaceOne(ctx, bson.M{"_id": task.ID}, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

// resolveAssignee parses an assignee hex id and checks it against the
// active team list.
func resolveAssignee(project *models.Project, raw string) (*primitive.ObjectID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, models.InvalidIDf("invalid assignee ID format")
	}
	if !project.IsActiveMember(id) {
		return nil, models.Validationf("assignee must be an active team member of the project")
	}
	return &id, nil
}

func validateDueDate(project *models.Project, due time.Time) error {
	if due.Before(project.StartDate) {
		return models.InvalidRangef("due date cannot be before project start date")
	}
	if !project.EndDate.IsZero() && due.After(project.EndDate) {
		return models.InvalidRangef("due date cannot be after project end date")
	}
	return nil
}

// CreateTask creates a full task, optionally with inline subtasks, and
// appends its id to the project's ordered task list.
func (s *TaskService) CreateTask(ctx context.Context, actor primitive.ObjectID, input CreateTaskInput) (*models.Task, error) {
	if strings.TrimSpace(input.Title) == "" || input.ProjectID == "" {
		return nil, models.Validationf("title and projectId are required")
	}
	projectID, err := primitive.ObjectIDFromHex(input.ProjectID)
	if err != nil {
		return nil, models.InvalidIDf("invalid project ID format")
	}
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if !permissions.Evaluate(actor, project, nil, nil).CanCreateTask {
		return nil, models.Forbiddenf("only project creator or managers can create tasks")
	}

	assignedTo, err := resolveAssignee(project, input.AssignedTo)
	if err != nil {
		return nil, err
	}
	if input.DueDate != nil {
		if err := validateDueDate(project, *input.DueDate); err != nil {
			return nil, err
		}
	}

	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, models.Validationf("unknown priority %q", priority)
	}

	now := time.Now()
	subtasks := make([]models.Subtask, 0, len(input.Subtasks))
	subtaskHours := 0.0
	for i, in := range input.Subtasks {
		if strings.TrimSpace(in.Title) == "" {
			return nil, models.Validationf("subtask %d must have a title", i+1)
		}
		stAssignee, err := resolveAssignee(project, in.AssignedTo)
		if err != nil {
			return nil, err
		}
		subtasks = append(subtasks, models.Subtask{
			ID:             primitive.NewObjectID(),
			Title:          strings.TrimSpace(in.Title),
			Description:    strings.TrimSpace(in.Description),
			AssignedTo:     stAssignee,
			EstimatedHours: in.EstimatedHours,
			Status:         models.StatusTodo,
			Order:          i,
			Comments:       []models.Comment{},
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		subtaskHours += in.EstimatedHours
	}

	// Append-only ranking: the next order is the current task count.
	count, err := s.tasksCollection.CountDocuments(ctx, bson.M{"projectId": projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to count project tasks: %w", err)
	}

	task := &models.Task{
		ID:             primitive.NewObjectID(),
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		ProjectID:      projectID,
		Priority:       priority,
		Status:         models.StatusTodo,
		EstimatedHours: input.EstimatedHours + subtaskHours,
		DueDate:        input.DueDate,
		AssignedTo:     assignedTo,
		Labels:         input.Labels,
		CreatedBy:      actor,
		Order:          int(count),
		Subtasks:       subtasks,
		IsPrivate:      input.IsPrivate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := s.tasksCollection.InsertOne(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	if _, err := s.projectsCollection.UpdateOne(ctx,
		bson.M{"_id": projectID},
		bson.M{"$push": bson.M{"tasks": task.ID}},
	); err != nil {
		return nil, fmt.Errorf("failed to append task to project: %w", err)
	}

	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s created in project %s", task.ID.Hex(), projectID.Hex())
	s.broadcaster.Broadcast(projectID.Hex(), ws.Event{
		Type:      ws.TaskCreated,
		ProjectID: projectID.Hex(),
		TaskID:    task.ID.Hex(),
		Payload:   ws.Marshal(task),
	})
	return task, nil
}

// CreateQuickTask creates a minimal task with default priority and status.
func (s *TaskService) CreateQuickTask(ctx context.Context, actor primitive.ObjectID, title, projectIDHex string) (*models.Task, error) {
	return s.CreateTask(ctx, actor, CreateTaskInput{
		Title:     title,
		ProjectID: projectIDHex,
		Priority:  models.PriorityMedium,
	})
}

// UpdateTask edits task-level fields for the full-edit set.
func (s *TaskService) UpdateTask(ctx context.Context, actor primitive.ObjectID, taskID string, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	project, err := s.findProject(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if !permissions.Evaluate(actor, project, task, nil).CanEditAll {
		return nil, models.Forbiddenf("you don't have permission to update this task")
	}

	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, models.Validationf("title cannot be empty")
		}
		task.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, models.Validationf("unknown priority %q", *input.Priority)
		}
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		if err := validateDueDate(project, *input.DueDate); err != nil {
			return nil, err
		}
		task.DueDate = input.DueDate
	}
	if input.AssignedTo != nil {
		assignee, err := resolveAssignee(project, *input.AssignedTo)
		if err != nil {
			return nil, err
		}
		task.AssignedTo = assignee
	}
	if input.Labels != nil {
		task.Labels = *input.Labels
	}
	if input.IsPrivate != nil {
		task.IsPrivate = *input.IsPrivate
	}

	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}
	s.broadcastTaskUpdated(task)
	return task, nil
}

// UpdateTaskStatus applies a manual status transition. Once a task has
// subtasks its status is derived from them and manual transitions are
// rejected.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, actor primitive.ObjectID, taskID string, status models.TaskStatus) (*models.Task, error) {
	if !status.ValidForTask() {
		return nil, models.Validationf("unknown task status %q", status)
	}
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	project, err := s.findProject(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}
	caps := permissions.Evaluate(actor, project, task, nil)
	isAssignee := task.AssignedTo != nil && *task.AssignedTo == actor
	if !caps.CanEditAll && !isAssignee {
		return nil, models.Forbiddenf("you don't have permission to change this task's status")
	}
	if len(task.Subtasks) > 0 {
		return nil, models.Validationf("task status is derived from its subtasks")
	}

	task.Status = status
	now := time.Now()
	if status == models.StatusCompleted {
		if task.CompletedAt == nil {
			task.CompletedAt = &now
		}
	} else {
		task.CompletedAt = nil
	}

	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}
	s.broadcastTaskUpdated(task)
	return task, nil
}

// DeleteTask removes the task document and its id from the project list.
func (s *TaskService) DeleteTask(ctx context.Context, actor primitive.ObjectID, taskID string) error {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return err
	}
	project, err := s.findProject(ctx, task.ProjectID)
	if err != nil {
		return err
	}
	if !permissions.Evaluate(actor, project, task, nil).CanEditAll {
		return models.Forbiddenf("only project creator, managers, or task creator can delete tasks")
	}

	if _, err := s.tasksCollection.DeleteOne(ctx, bson.M{"_id": task.ID}); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if _, err := s.projectsCollection.UpdateOne(ctx,
		bson.M{"_id": task.ProjectID},
		bson.M{"$pull": bson.M{"tasks": task.ID}},
	); err != nil {
		return fmt.Errorf("failed to remove task from project: %w", err)
	}

	logging.Logger.Infof("Event ID: TASK_DELETED, Description: Task %s deleted from project %s", task.ID.Hex(), task.ProjectID.Hex())
	s.broadcaster.Broadcast(task.ProjectID.Hex(), ws.Event{
		Type:      ws.TaskDeleted,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
	})
	return nil
}

// ListTasks returns tasks the caller is involved in: assigned to the task,
// assigned to any of its subtasks, or its creator. Newest first, capped at
// 50. An optional project filter narrows the scope.
func (s *TaskService) ListTasks(ctx context.Context, actor primitive.ObjectID, projectIDHex string) ([]models.Task, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"assignedTo": actor},
		bson.M{"subtasks.assignedTo": actor},
		bson.M{"createdBy": actor},
	}}
	if projectIDHex != "" {
		projectID, err := primitive.ObjectIDFromHex(projectIDHex)
		if err != nil {
			return nil, models.InvalidIDf("invalid project ID format")
		}
		filter["projectId"] = projectID
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(50)
	cursor, err := s.tasksCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// AddSubtask appends a subtask and rolls its estimate up into the task.
func (s *TaskService) AddSubtask(ctx context.Context, actor primitive.ObjectID, taskID string, input SubtaskInput) (*SubtaskResult, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	project, err := s.findProject(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if !permissions.Evaluate(actor, project, task, nil).CanEditAll {
		return nil, models.Forbiddenf("only project creator, managers, or task creator can add subtasks")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, models.Validationf("subtask title is required")
	}
	assignee, err := resolveAssignee(project, input.AssignedTo)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	subtask := models.Subtask{
		ID:             primitive.NewObjectID(),
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		AssignedTo:     assignee,
		EstimatedHours: input.EstimatedHours,
		Status:         models.StatusTodo,
		Order:          len(task.Subtasks),
		Comments:       []models.Comment{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	task.Subtasks = append(task.Subtasks, subtask)
	applyHoursDelta(task, 0, subtask.EstimatedHours)

	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}

	result := &SubtaskResult{Subtask: subtask, Task: rollupOf(task)}
	s.broadcaster.Broadcast(task.ProjectID.Hex(), ws.Event{
		Type:      ws.SubtaskAdded,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		Payload:   ws.Marshal(result),
	})
	return result, nil
}

// UpdateSubtask applies a permission-filtered partial update, then
// recomputes the rollup and the derived task status.
func (s *TaskService) UpdateSubtask(ctx context.Context, actor primitive.ObjectID, taskID, subtaskID string, updates permissions.SubtaskUpdate) (*SubtaskResult, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	stID, err := primitive.ObjectIDFromHex(subtaskID)
	if err != nil {
		return nil, models.InvalidIDf("invalid subtask ID format")
	}
	subtask := task.Subtask(stID)
	if subtask == nil {
		return nil, models.NotFoundf("subtask not found")
	}
	project, err := s.findProject(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}

	caps := permissions.Evaluate(actor, project, task, subtask)
	if !caps.CanEditSubtask() {
		return nil, models.Forbiddenf("you don't have permission to update this subtask")
	}
	filtered := permissions.FilterSubtaskUpdate(caps, updates)

	if filtered.AssignedTo != nil && !project.IsActiveMember(*filtered.AssignedTo) {
		return nil, models.Validationf("assignee must be an active team member of the project")
	}
	if filtered.Status != nil && !filtered.Status.ValidForSubtask() {
		return nil, models.Validationf("unknown subtask status %q", *filtered.Status)
	}
	if filtered.LoggedHours != nil && *filtered.LoggedHours < subtask.LoggedHours {
		return nil, models.InvalidRangef("loggedHours cannot decrease")
	}

	now := time.Now()
	oldHours := subtask.EstimatedHours

	if filtered.Title != nil {
		if strings.TrimSpace(*filtered.Title) == "" {
			return nil, models.Validationf("subtask title cannot be empty")
		}
		subtask.Title = strings.TrimSpace(*filtered.Title)
	}
	if filtered.Description != nil {
		subtask.Description = strings.TrimSpace(*filtered.Description)
	}
	if filtered.AssignedTo != nil {
		subtask.AssignedTo = filtered.AssignedTo
	}
	if filtered.EstimatedHours != nil {
		subtask.EstimatedHours = *filtered.EstimatedHours
	}
	if filtered.Order != nil {
		subtask.Order = *filtered.Order
	}
	if filtered.LoggedHours != nil {
		subtask.LoggedHours = *filtered.LoggedHours
	}
	if filtered.WorkNotes != nil {
		subtask.WorkNotes = *filtered.WorkNotes
	}
	if filtered.Status != nil {
		setSubtaskStatus(subtask, *filtered.Status, now)
	}
	subtask.UpdatedAt = now

	applyHoursDelta(task, oldHours, subtask.EstimatedHours)
	if filtered.Status != nil {
		recomputeTaskStatus(task, now)
	}

	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}

	result := &SubtaskResult{Subtask: *subtask, Task: rollupOf(task)}
	s.broadcaster.Broadcast(task.ProjectID.Hex(), ws.Event{
		Type:      ws.SubtaskUpdated,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		Payload:   ws.Marshal(result),
	})
	return result, nil
}

// DeleteSubtask removes the subtask (and its comment thread with it) and
// subtracts its estimate from the rollup.
func (s *TaskService) DeleteSubtask(ctx context.Context, actor primitive.ObjectID, taskID, subtaskID string) (*TaskRollup, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	stID, err := primitive.ObjectIDFromHex(subtaskID)
	if err != nil {
		return nil, models.InvalidIDf("invalid subtask ID format")
	}
	subtask := task.Subtask(stID)
	if subtask == nil {
		return nil, models.NotFoundf("subtask not found")
	}
	project, err := s.findProject(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if !permissions.Evaluate(actor, project, task, nil).CanEditAll {
		return nil, models.Forbiddenf("only project creator, managers, or task creator can delete subtasks")
	}

	applyHoursDelta(task, subtask.EstimatedHours, 0)
	task.RemoveSubtask(stID)
	recomputeTaskStatus(task, time.Now())

	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}

	rollup := rollupOf(task)
	s.broadcaster.Broadcast(task.ProjectID.Hex(), ws.Event{
		Type:      ws.SubtaskDeleted,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: stID.Hex(),
		Payload:   ws.Marshal(rollup),
	})
	return &rollup, nil
}

// LogHours appends a time entry to the subtask. loggedHours only ever
// grows through this path.
func (s *TaskService) LogHours(ctx context.Context, actor primitive.ObjectID, taskID, subtaskID string, hours float64, note string) (*SubtaskResult, error) {
	if hours <= 0 {
		return nil, models.InvalidRangef("hours must be greater than zero")
	}
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	stID, err := primitive.ObjectIDFromHex(subtaskID)
	if err != nil {
		return nil, models.InvalidIDf("invalid subtask ID format")
	}
	subtask := task.Subtask(stID)
	if subtask == nil {
		return nil, models.NotFoundf("subtask not found")
	}
	project, err := s.findProject(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}
	if !permissions.Evaluate(actor, project, task, subtask).CanEditSubtask() {
		return nil, models.Forbiddenf("you don't have permission to log hours on this subtask")
	}

	now := time.Now()
	subtask.TimeEntries = append(subtask.TimeEntries, models.TimeEntry{
		User:     actor,
		Hours:    hours,
		Note:     strings.TrimSpace(note),
		LoggedAt: now,
	})
	subtask.LoggedHours += hours
	subtask.UpdatedAt = now

	if err := s.saveTask(ctx, task); err != nil {
		return nil, err
	}

	result := &SubtaskResult{Subtask: *subtask, Task: rollupOf(task)}
	s.broadcaster.Broadcast(task.ProjectID.Hex(), ws.Event{
		Type:      ws.HoursLogged,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		SubtaskID: subtask.ID.Hex(),
		Payload:   ws.Marshal(result),
	})
	return result, nil
}

func (s *TaskService) broadcastTaskUpdated(task *models.Task) {
	s.broadcaster.Broadcast(task.ProjectID.Hex(), ws.Event{
		Type:      ws.TaskUpdated,
		ProjectID: task.ProjectID.Hex(),
		TaskID:    task.ID.Hex(),
		Payload:   ws.Marshal(task),
	})
}
