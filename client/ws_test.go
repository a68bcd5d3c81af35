package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/models"
	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/ws"
)

func TestSubscriberMergesBroadcasts(t *testing.T) {
	hub := ws.NewHub(nil)
	r := mux.NewRouter()
	r.HandleFunc("/api/ws/{projectId}", hub.Handler)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	projectID := primitive.NewObjectID()
	store := NewStore()
	sub := NewSubscriber(srv.URL, "token-123", projectID.Hex(), store)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for hub.RoomSize(projectID.Hex()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, hub.RoomSize(projectID.Hex()))

	task := models.Task{ID: primitive.NewObjectID(), ProjectID: projectID, Title: "from the wire"}
	hub.Broadcast(projectID.Hex(), ws.Event{
		Type:      ws.TaskCreated,
		ProjectID: projectID.Hex(),
		TaskID:    task.ID.Hex(),
		Payload:   ws.Marshal(task),
	})

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := store.Task(task.ID); ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	got, ok := store.Task(task.ID)
	require.True(t, ok)
	require.Equal(t, "from the wire", got.Title)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop after cancel")
	}
}

func TestSubscriberGivesUpAfterRetryBudget(t *testing.T) {
	store := NewStore()
	// Nothing listens on this address.
	sub := NewSubscriber("http://127.0.0.1:1", "token-123", primitive.NewObjectID().Hex(), store)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	err := sub.Run(ctx)
	require.Error(t, err)
	// Five attempts with a one second pause between them.
	require.GreaterOrEqual(t, time.Since(start), 4*time.Second)
}
