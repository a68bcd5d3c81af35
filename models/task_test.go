package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStatusValidity(t *testing.T) {
	require.True(t, StatusTodo.ValidForTask())
	require.True(t, StatusCompleted.ValidForTask())
	require.False(t, StatusBlocked.ValidForTask())
	require.True(t, StatusBlocked.ValidForSubtask())
	require.False(t, TaskStatus("archived").ValidForSubtask())

	require.True(t, PriorityCritical.Valid())
	require.False(t, TaskPriority("urgent").Valid())
}

func TestTaskSubtaskLookupAndRemove(t *testing.T) {
	a := Subtask{ID: primitive.NewObjectID(), Order: 0}
	b := Subtask{ID: primitive.NewObjectID(), Order: 1}
	c := Subtask{ID: primitive.NewObjectID(), Order: 2}
	task := &Task{Subtasks: []Subtask{a, b, c}}

	require.NotNil(t, task.Subtask(b.ID))
	require.Nil(t, task.Subtask(primitive.NewObjectID()))

	require.True(t, task.RemoveSubtask(b.ID))
	require.False(t, task.RemoveSubtask(b.ID))
	require.Len(t, task.Subtasks, 2)

	// Remaining order values are not renumbered.
	require.Equal(t, 0, task.Subtasks[0].Order)
	require.Equal(t, 2, task.Subtasks[1].Order)
}

func TestCompletionPercentage(t *testing.T) {
	task := &Task{}
	require.Equal(t, 0, task.CompletionPercentage())

	task.Subtasks = []Subtask{
		{ID: primitive.NewObjectID(), Status: StatusCompleted},
		{ID: primitive.NewObjectID(), Status: StatusTodo},
		{ID: primitive.NewObjectID(), Status: StatusInProgress},
	}
	require.Equal(t, 33, task.CompletionPercentage())

	for i := range task.Subtasks {
		task.Subtasks[i].Status = StatusCompleted
	}
	require.Equal(t, 100, task.CompletionPercentage())
}
