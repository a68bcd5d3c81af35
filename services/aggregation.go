package services

import (
	"time"

	"github.com/Ashutosh-aky-2004/Time-Analysis-and-Productivity/models"
)

// Derived task fields are recomputed here on every subtask create, update
// and delete. Hour totals move by delta rather than being rebuilt from
// scratch so concurrent edits to different subtasks compose additively.

// applyHoursDelta shifts the task's rollup by the difference between a
// subtask's old and new estimate.
func applyHoursDelta(task *models.Task, oldHours, newHours float64) {
	task.EstimatedHours += newHours - oldHours
}

// setSubtaskStatus applies a status change with completedAt bookkeeping:
// set once on entry to completed, cleared on any transition away.
func setSubtaskStatus(st *models.Subtask, status models.TaskStatus, now time.Time) {
	st.Status = status
	if status == models.StatusCompleted {
		if st.CompletedAt == nil {
			t := now
			st.CompletedAt = &t
		}
	} else if st.CompletedAt != nil {
		st.CompletedAt = nil
	}
}

// recomputeTaskStatus derives the task status after a subtask status
// change. All subtasks completed marks the task completed and stamps
// completedAt exactly once; the first completed subtask moves a todo task
// to in-progress. Reverting a subtask from completed does not revert the
// task status.
func recomputeTaskStatus(task *models.Task, now time.Time) {
	if len(task.Subtasks) == 0 {
		return
	}

	all := true
	any := false
	for i := range task.Subtasks {
		if task.Subtasks[i].Status == models.StatusCompleted {
			any = true
		} else {
			all = false
		}
	}

	if all {
		task.Status = models.StatusCompleted
		if task.CompletedAt == nil {
			t := now
			task.CompletedAt = &t
		}
		return
	}
	if any && task.Status == models.StatusTodo {
		task.Status = models.StatusInProgress
	}
}
