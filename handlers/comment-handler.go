package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/models"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/services"
)

type CommentHandler struct {
	service *services.CommentService
}

func NewCommentHandler(service *services.CommentService) *CommentHandler {
	return &CommentHandler{service: service}
}

type commentRequest struct {
	Text     string   `json:"text"`
	Mentions []string `json:"mentions"`
}

func (h *CommentHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var body commentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, models.Validationf("invalid request payload"))
		return
	}
	vars := mux.Vars(r)
	comment, err := h.service.AddComment(r.Context(), userID, vars["taskId"], vars["subtaskId"], body.Text, body.Mentions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Comment added successfully", map[string]interface{}{"comment": comment})
}

func (h *CommentHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	thread, err := h.service.GetSubtaskComments(r.Context(), userID, vars["taskId"], vars["subtaskId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", thread)
}

func (h *CommentHandler) AddReply(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var body commentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, models.Validationf("invalid request payload"))
		return
	}
	vars := mux.Vars(r)
	reply, err := h.service.AddReply(r.Context(), userID, vars["taskId"], vars["subtaskId"], vars["commentId"], body.Text, body.Mentions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Reply added successfully", map[string]interface{}{"reply": reply})
}

type reactionRequest struct {
	Type models.ReactionType `json:"type"`
}

func (h *CommentHandler) AddCommentReaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var body reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, models.Validationf("invalid request payload"))
		return
	}
	vars := mux.Vars(r)
	result, err := h.service.AddCommentReaction(r.Context(), userID, vars["taskId"], vars["subtaskId"], vars["commentId"], body.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Reaction added successfully", result)
}

func (h *CommentHandler) AddReplyReaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var body reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, models.Validationf("invalid request payload"))
		return
	}
	vars := mux.Vars(r)
	result, err := h.service.AddReplyReaction(r.Context(), userID, vars["taskId"], vars["subtaskId"], vars["commentId"], vars["replyId"], body.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Reaction added successfully", result)
}

func (h *CommentHandler) PinComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	var body struct {
		Pinned bool `json:"pinned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, models.Validationf("invalid request payload"))
		return
	}
	vars := mux.Vars(r)
	comment, err := h.service.PinComment(r.Context(), userID, vars["taskId"], vars["subtaskId"], vars["commentId"], body.Pinned)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Comment updated successfully", map[string]interface{}{"comment": comment})
}

func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.service.DeleteComment(r.Context(), userID, vars["taskId"], vars["subtaskId"], vars["commentId"]); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Comment deleted successfully", nil)
}

func (h *CommentHandler) DeleteReply(w http.ResponseWriter, r *http.Request) {
	userID, ok := actor(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	if err := h.service.DeleteReply(r.Context(), userID, vars["taskId"], vars["subtaskId"], vars["commentId"], vars["replyId"]); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Reply deleted successfully", nil)
}
