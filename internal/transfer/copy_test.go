package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftbox/internal/domain"
)

// relayStub serves presigned-style object URLs and the batch commit endpoint.
type relayStub struct {
	mu          sync.Mutex
	objects     map[string][]byte
	uploaded    map[string][]byte
	failGet     map[string]bool
	commitCalls int
	committed   []RelayedFile
	onEntry     func(name string)
}

func newRelayStub() *relayStub {
	return &relayStub{
		objects:  make(map[string][]byte),
		uploaded: make(map[string][]byte),
		failGet:  make(map[string]bool),
	}
}

func (s *relayStub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/objects/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/objects/")

		s.mu.Lock()
		if s.onEntry != nil && r.Method == http.MethodGet {
			s.onEntry(name)
		}
		fail := s.failGet[name]
		data, ok := s.objects[name]
		s.mu.Unlock()

		switch r.Method {
		case http.MethodGet:
			if fail || !ok {
				http.Error(w, "no such key", http.StatusNotFound)
				return
			}
			_, _ = w.Write(data)
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			s.mu.Lock()
			s.uploaded[name] = body
			s.mu.Unlock()
			w.Header().Set("ETag", fmt.Sprintf("%q", name))
		}
	})

	mux.HandleFunc("/api/v1/copy/batch/commit", func(w http.ResponseWriter, r *http.Request) {
		var req BatchCopyCommitRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		s.mu.Lock()
		s.commitCalls++
		s.committed = req.Files
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]any{}})
	})

	return mux
}

func (s *relayStub) commitState() (int, []RelayedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitCalls, s.committed
}

func relayEntries(baseURL string, mountID uuid.UUID, names ...string) []domain.CopyPlanEntry {
	entries := make([]domain.CopyPlanEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, domain.CopyPlanEntry{
			SourceDownloadURL: baseURL + "/objects/" + name,
			TargetUploadURL:   baseURL + "/objects/" + name,
			TargetPath:        "/backup/" + name,
			TargetStorageKey:  "backup/" + name,
			TargetMountID:     mountID,
			ContentType:       "application/octet-stream",
		})
	}
	return entries
}

func TestCopyRunner_RelaysAllEntries(t *testing.T) {
	stub := newRelayStub()
	stub.objects["a.bin"] = []byte("alpha")
	stub.objects["b.bin"] = []byte("bravo")
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	mountID := uuid.New()
	tracker := NewTaskTracker()
	runner := NewCopyRunner(NewClient(srv.URL, "test-token"), tracker)

	report, err := runner.Run(context.Background(), relayEntries(srv.URL, mountID, "a.bin", "b.bin"), mountID)

	require.NoError(t, err)
	require.Len(t, report.Succeeded, 2)
	assert.Empty(t, report.Failed)
	assert.Equal(t, []byte("alpha"), stub.uploaded["a.bin"])
	assert.Equal(t, []byte("bravo"), stub.uploaded["b.bin"])

	calls, committed := stub.commitState()
	assert.Equal(t, 1, calls)
	require.Len(t, committed, 2)
	assert.Equal(t, "/backup/a.bin", committed[0].TargetPath)
	assert.Equal(t, int64(5), committed[0].FileSize)

	tasks := tracker.List()
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskStatusCompleted, tasks[0].Status)
}

func TestCopyRunner_OneBadEntryDoesNotBlockTheRest(t *testing.T) {
	stub := newRelayStub()
	names := []string{"1.bin", "2.bin", "3.bin", "4.bin", "5.bin"}
	for _, name := range names {
		stub.objects[name] = []byte(name)
	}
	stub.failGet["3.bin"] = true
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	mountID := uuid.New()
	runner := NewCopyRunner(NewClient(srv.URL, "test-token"), NewTaskTracker())

	report, err := runner.Run(context.Background(), relayEntries(srv.URL, mountID, names...), mountID)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 5 entries failed")
	assert.Len(t, report.Succeeded, 4)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "/backup/3.bin", report.Failed[0].TargetPath)
	assert.Equal(t, "download", report.Failed[0].Phase)

	// The four good entries are still committed in one call.
	calls, committed := stub.commitState()
	assert.Equal(t, 1, calls)
	assert.Len(t, committed, 4)
}

func TestCopyRunner_CommitsRelayedEntriesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stub := newRelayStub()
	names := []string{"1.bin", "2.bin", "3.bin", "4.bin"}
	for _, name := range names {
		stub.objects[name] = []byte(name)
	}
	stub.onEntry = func(name string) {
		if name == "3.bin" {
			cancel()
		}
	}
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)

	mountID := uuid.New()
	tracker := NewTaskTracker()
	runner := NewCopyRunner(NewClient(srv.URL, "test-token"), tracker)

	report, err := runner.Run(ctx, relayEntries(srv.URL, mountID, names...), mountID)

	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.True(t, report.Cancelled)
	assert.Len(t, report.Succeeded, 2)

	// Already relayed entries stay committed; the rest were never attempted.
	calls, committed := stub.commitState()
	assert.Equal(t, 1, calls)
	assert.Len(t, committed, 2)

	tasks := tracker.List()
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskStatusCancelled, tasks[0].Status)
}
