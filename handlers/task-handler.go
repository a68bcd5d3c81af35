package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/middleware"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/models"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/permissions"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/services"
)

type TaskHandler struct {
	service *services.TaskService
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// actor resolves the authenticated user or ends the request.
func actor(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	userID, ok := middleware.UserID(r)
	if !ok {
		http.Error(w, "User not authenticated", http.StatusUnauthorized)
		return primitive.NilObjectID, false
	}
	return userID, true
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var input services.CreateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, models.Validationf("invalid request payload"))
		return
	}
	task, err := h.service.CreateTask(r.Context(), userID, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Task created successfully", map[string]interface{}{"task": task})
}

func (h *TaskHandler) CreateQuickTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Title     string `json:"title"`
		ProjectID string `json:"projectId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, models.Validationf("invalid request payload"))
		return
	}
	task, err := h.service.CreateQuickTask(r.Context(), userID, body.Title, body.ProjectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Task created successfully", map[string]interface{}{"task": task})
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var input services.UpdateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, models.Validationf("invalid request payload"))
		return
	}
	task, err := h.service.UpdateTask(r.Context(), userID, mux.Vars(r)["taskId"], input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Task updated successfully", map[string]interface{}{"task": task})
}

func (h *TaskHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Status models.TaskStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, models.Validationf("invalid request payload"))
		return
	}
	task, err := h.service.UpdateTaskStatus(r.Context(), userID, mux.Vars(r)["taskId"], body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Task status updated successfully", map[string]interface{}{"task": task})
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteTask(r.Context(), userID, mux.Vars(r)["taskId"]); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Task deleted successfully", nil)
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	tasks, err := h.service.ListTasks(r.Context(), userID, r.URL.Query().Get("projectId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]interface{}{"count": len(tasks), "tasks": tasks})
}

func (h *TaskHandler) AddSubtask(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var input services.SubtaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, models.Validationf("invalid request payload"))
		return
	}
	result, err := h.service.AddSubtask(r.Context(), userID, mux.Vars(r)["taskId"], input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Subtask added successfully", result)
}

// updateSubtaskRequest mirrors the wire shape of a partial subtask update;
// absent fields stay nil so the permission filter can tell "not provided"
// from a zero value.
type updateSubtaskRequest struct {
	Title          *string            `json:"title"`
	Description    *string            `json:"description"`
	AssignedTo     *string            `json:"assignedTo"`
	EstimatedHours *float64           `json:"estimatedHours"`
	Order          *int               `json:"order"`
	Status         *models.TaskStatus `json:"status"`
	LoggedHours    *float64           `json:"loggedHours"`
	WorkNotes      *string            `json:"workNotes"`
}

func (req updateSubtaskRequest) toUpdate() (permissions.SubtaskUpdate, error) {
	update := permissions.SubtaskUpdate{
		Title:          req.Title,
		Description:    req.Description,
		EstimatedHours: req.EstimatedHours,
		Order:          req.Order,
		Status:         req.Status,
		LoggedHours:    req.LoggedHours,
		WorkNotes:      req.WorkNotes,
	}
	if req.AssignedTo != nil {
		id, err := primitive.ObjectIDFromHex(*req.AssignedTo)
		if err != nil {
			return update, models.InvalidIDf("invalid assignee ID format")
		}
		update.AssignedTo = &id
	}
	return update, nil
}

func (h *TaskHandler) UpdateSubtask(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var req updateSubtaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.Validationf("invalid request payload"))
		return
	}
	update, err := req.toUpdate()
	if err != nil {
		writeError(w, err)
		return
	}
	vars := mux.Vars(r)
	result, err := h.service.UpdateSubtask(r.Context(), userID, vars["taskId"], vars["subtaskId"], update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Subtask updated successfully", result)
}

func (h *TaskHandler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	rollup, err := h.service.DeleteSubtask(r.Context(), userID, vars["taskId"], vars["subtaskId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Subtask deleted successfully", map[string]interface{}{"task": rollup})
}

func (h *TaskHandler) LogHours(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Hours float64 `json:"hours"`
		Note  string  `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, models.Validationf("invalid request payload"))
		return
	}
	vars := mux.Vars(r)
	result, err := h.service.LogHours(r.Context(), userID, vars["taskId"], vars["subtaskId"], body.Hours, body.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Hours logged successfully", result)
}
