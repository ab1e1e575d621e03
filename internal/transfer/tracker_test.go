package transfer

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftbox/internal/domain"
)

func TestTracker_Lifecycle(t *testing.T) {
	tracker := NewTaskTracker()

	id := tracker.Register(domain.TaskKindUpload, 10)
	task, ok := tracker.Get(id)
	require.True(t, ok)
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Equal(t, 10, task.TotalCount)

	tracker.Update(id, 3, "a.bin (part 3/10)")
	task, _ = tracker.Get(id)
	assert.Equal(t, domain.TaskStatusRunning, task.Status)
	assert.Equal(t, 3, task.ProcessedCount)
	assert.Equal(t, "a.bin (part 3/10)", task.CurrentItem)

	tracker.Complete(id)
	task, _ = tracker.Get(id)
	assert.Equal(t, domain.TaskStatusCompleted, task.Status)

	tracker.Remove(id)
	_, ok = tracker.Get(id)
	assert.False(t, ok)
}

func TestTracker_CancelledIsNotFailed(t *testing.T) {
	tracker := NewTaskTracker()

	failed := tracker.Register(domain.TaskKindCopy, 5)
	cancelled := tracker.Register(domain.TaskKindCopy, 5)

	tracker.Fail(failed, errors.New("store unavailable"))
	tracker.Cancel(cancelled)

	task, _ := tracker.Get(failed)
	assert.Equal(t, domain.TaskStatusFailed, task.Status)
	assert.Equal(t, "store unavailable", task.Error)

	task, _ = tracker.Get(cancelled)
	assert.Equal(t, domain.TaskStatusCancelled, task.Status)
	assert.Empty(t, task.Error)
}

func TestTracker_GetReturnsSnapshot(t *testing.T) {
	tracker := NewTaskTracker()
	id := tracker.Register(domain.TaskKindUpload, 1)

	snapshot, _ := tracker.Get(id)
	snapshot.ProcessedCount = 99

	task, _ := tracker.Get(id)
	assert.Equal(t, 0, task.ProcessedCount)
}

func TestTracker_UnknownIDIsIgnored(t *testing.T) {
	tracker := NewTaskTracker()
	unknown := uuid.New()

	tracker.Update(unknown, 1, "x")
	tracker.Complete(unknown)

	_, ok := tracker.Get(unknown)
	assert.False(t, ok)
	assert.Empty(t, tracker.List())
}
