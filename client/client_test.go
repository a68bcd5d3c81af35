package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/models"
)

func TestClientSendsBearerAndDecodesData(t *testing.T) {
	taskID := primitive.NewObjectID()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/tasks", r.URL.Path)

		var draft TaskDraft
		require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
		require.Equal(t, "write the migration", draft.Title)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"message": "Task created successfully",
			"data": map[string]interface{}{
				"task": models.Task{ID: taskID, Title: draft.Title, Status: models.StatusTodo},
			},
		})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "token-123")
	task, err := c.CreateTask(context.Background(), TaskDraft{
		Title:     "write the migration",
		ProjectID: primitive.NewObjectID().Hex(),
	})
	require.NoError(t, err)
	require.Equal(t, taskID, task.ID)
	require.Equal(t, models.StatusTodo, task.Status)
}

func TestClientSurfacesTypedErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "only managers may create tasks",
			"error":   models.KindForbidden,
		})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "token-123")
	_, err := c.CreateQuickTask(context.Background(), "sneaky", primitive.NewObjectID().Hex())
	var appErr *models.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, models.KindForbidden, appErr.Kind)
	require.Equal(t, "only managers may create tasks", appErr.Message)
}

func TestClientListTasksQuery(t *testing.T) {
	projectID := primitive.NewObjectID().Hex()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, projectID, r.URL.Query().Get("projectId"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"count": 2,
				"tasks": []models.Task{
					{ID: primitive.NewObjectID(), Title: "one"},
					{ID: primitive.NewObjectID(), Title: "two"},
				},
			},
		})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "token-123")
	tasks, err := c.ListTasks(context.Background(), projectID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
}

func TestClientDeleteUsesEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"message": "Task deleted successfully",
		})
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, "token-123")
	require.NoError(t, c.DeleteTask(context.Background(), primitive.NewObjectID().Hex()))
}
