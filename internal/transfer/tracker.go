package transfer

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"driftbox/internal/domain"
)

// TaskTracker is the in-memory registry of outstanding transfer operations
// exposed for progress display and cancellation. Nothing here is persisted;
// the underlying store-side sessions are released through their own
// terminal calls.
type TaskTracker struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.TransferTask
}

// NewTaskTracker creates an empty tracker.
func NewTaskTracker() *TaskTracker {
	return &TaskTracker{tasks: make(map[uuid.UUID]*domain.TransferTask)}
}

// Register adds a new pending task and returns its id.
func (t *TaskTracker) Register(kind domain.TaskKind, total int) uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := uuid.New()
	now := time.Now()
	t.tasks[id] = &domain.TransferTask{
		ID:         id,
		Kind:       kind,
		Status:     domain.TaskStatusPending,
		TotalCount: total,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return id
}

// SetTotal updates the task's total item count once it is known.
func (t *TaskTracker) SetTotal(id uuid.UUID, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if task, ok := t.tasks[id]; ok {
		task.TotalCount = total
		task.UpdatedAt = time.Now()
	}
}

// Update records progress on a running task.
func (t *TaskTracker) Update(id uuid.UUID, processed int, currentItem string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if task, ok := t.tasks[id]; ok {
		task.Status = domain.TaskStatusRunning
		task.ProcessedCount = processed
		task.CurrentItem = currentItem
		task.UpdatedAt = time.Now()
	}
}

// Complete marks a task finished.
func (t *TaskTracker) Complete(id uuid.UUID) {
	t.setStatus(id, domain.TaskStatusCompleted, "")
}

// Fail marks a task failed with its error.
func (t *TaskTracker) Fail(id uuid.UUID, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	t.setStatus(id, domain.TaskStatusFailed, msg)
}

// Cancel marks a task cancelled. Cancelled is distinct from failed.
func (t *TaskTracker) Cancel(id uuid.UUID) {
	t.setStatus(id, domain.TaskStatusCancelled, "")
}

// Get returns a snapshot of one task.
func (t *TaskTracker) Get(id uuid.UUID) (domain.TransferTask, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	task, ok := t.tasks[id]
	if !ok {
		return domain.TransferTask{}, false
	}
	return *task, true
}

// List returns a snapshot of all tracked tasks.
func (t *TaskTracker) List() []domain.TransferTask {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.TransferTask, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, *task)
	}
	return out
}

// Remove drops a task from the registry.
func (t *TaskTracker) Remove(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.tasks, id)
}

func (t *TaskTracker) setStatus(id uuid.UUID, status domain.TaskStatus, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if task, ok := t.tasks[id]; ok {
		task.Status = status
		task.Error = errMsg
		task.UpdatedAt = time.Now()
	}
}
