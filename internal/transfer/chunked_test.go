package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftbox/internal/domain"
)

// orchStub fakes the orchestrator's upload endpoints. Part failures are
// injected per part number; every counter is mutex-guarded since parts arrive
// concurrently.
type orchStub struct {
	mu            sync.Mutex
	partSize      int64
	attempts      map[int32]int
	bodies        map[int32][]byte
	failPart      map[int32]int
	failStatus    int
	completeCalls int
	abortCalls    int
	completedWith []domain.UploadPartETag
	onPart        func(partNumber int32)
}

func newOrchStub(partSize int64) *orchStub {
	return &orchStub{
		partSize:   partSize,
		attempts:   make(map[int32]int),
		bodies:     make(map[int32][]byte),
		failPart:   make(map[int32]int),
		failStatus: http.StatusServiceUnavailable,
	}
}

func (o *orchStub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/uploads/init", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]any{
			"upload_id":             "upl-1",
			"key":                   "docs/a.bin",
			"recommended_part_size": o.partSize,
		})
	})

	mux.HandleFunc("/api/v1/uploads/part", func(w http.ResponseWriter, r *http.Request) {
		n, _ := strconv.ParseInt(r.URL.Query().Get("part_number"), 10, 32)
		partNumber := int32(n)
		body, _ := io.ReadAll(r.Body)

		o.mu.Lock()
		o.attempts[partNumber]++
		fail := o.failPart[partNumber] > 0
		if fail {
			o.failPart[partNumber]--
		}
		if !fail {
			o.bodies[partNumber] = body
		}
		onPart := o.onPart
		o.mu.Unlock()

		if onPart != nil {
			onPart(partNumber)
		}
		if fail {
			http.Error(w, "store unavailable", o.failStatus)
			return
		}
		writeData(w, map[string]string{"etag": fmt.Sprintf("etag-%d", partNumber)})
	})

	mux.HandleFunc("/api/v1/uploads/complete", func(w http.ResponseWriter, r *http.Request) {
		var req CompleteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		o.mu.Lock()
		o.completeCalls++
		o.completedWith = req.Parts
		o.mu.Unlock()

		writeData(w, domain.FileMeta{Path: req.Path, ETag: `"final"`, Status: domain.FileStatusStored})
	})

	mux.HandleFunc("/api/v1/uploads/abort", func(w http.ResponseWriter, r *http.Request) {
		o.mu.Lock()
		o.abortCalls++
		o.mu.Unlock()
		writeData(w, map[string]string{})
	})

	return mux
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func (o *orchStub) attemptsFor(partNumber int32) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempts[partNumber]
}

func (o *orchStub) calls() (complete, abort int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.completeCalls, o.abortCalls
}

func (o *orchStub) reassemble(partCount int32) []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []byte
	for n := int32(1); n <= partCount; n++ {
		out = append(out, o.bodies[n]...)
	}
	return out
}

func testUploader(t *testing.T, stub *orchStub, cfg Config) (*ChunkedUploader, *TaskTracker) {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	tracker := NewTaskTracker()
	return NewChunkedUploader(NewClient(srv.URL, "test-token"), cfg, tracker), tracker
}

func TestPartition_CoversSourceExactly(t *testing.T) {
	parts := partition(26, 8)

	require.Len(t, parts, 4)
	var offset int64
	for i, p := range parts {
		assert.Equal(t, int32(i+1), p.number)
		assert.Equal(t, offset, p.offset)
		offset += p.length
	}
	assert.Equal(t, int64(26), offset)
	assert.Equal(t, int64(2), parts[3].length)
	for i, p := range parts {
		assert.Equal(t, i == len(parts)-1, p.last, "part %d", p.number)
	}
}

func TestPartition_EvenSplit(t *testing.T) {
	parts := partition(24, 8)
	require.Len(t, parts, 3)
	assert.Equal(t, int64(8), parts[2].length)
	assert.True(t, parts[2].last)
}

func TestUpload_AllPartsArriveIntact(t *testing.T) {
	data := make([]byte, 26)
	for i := range data {
		data[i] = byte(i)
	}
	stub := newOrchStub(8)
	uploader, tracker := testUploader(t, stub, Config{Concurrency: 3, MaxAttempts: 3})

	result, err := uploader.Upload(context.Background(), bytes.NewReader(data), 26, "/docs/a.bin", "a.bin")

	require.NoError(t, err)
	assert.Equal(t, 4, result.PartCount)
	assert.Equal(t, data, stub.reassemble(4))
	complete, abort := stub.calls()
	assert.Equal(t, 1, complete)
	assert.Equal(t, 0, abort)

	// The complete call carries every part in ascending order regardless of
	// upload finish order.
	require.Len(t, stub.completedWith, 4)
	for i, p := range stub.completedWith {
		assert.Equal(t, int32(i+1), p.PartNumber)
		assert.Equal(t, fmt.Sprintf("etag-%d", i+1), p.ETag)
	}

	tasks := tracker.List()
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskStatusCompleted, tasks[0].Status)
}

func TestUpload_RetriesTransientPartFailure(t *testing.T) {
	stub := newOrchStub(8)
	stub.failPart[2] = 1
	uploader, _ := testUploader(t, stub, Config{Concurrency: 2, MaxAttempts: 3})

	_, err := uploader.Upload(context.Background(), bytes.NewReader(make([]byte, 26)), 26, "/docs/a.bin", "a.bin")

	require.NoError(t, err)
	assert.Equal(t, 2, stub.attemptsFor(2))
	assert.Equal(t, 1, stub.attemptsFor(1))
	_, abort := stub.calls()
	assert.Equal(t, 0, abort)
}

func TestUpload_ExhaustsRetryBudgetThenAborts(t *testing.T) {
	stub := newOrchStub(8)
	stub.failPart[2] = 100
	uploader, tracker := testUploader(t, stub, Config{Concurrency: 1, MaxAttempts: 3})

	_, err := uploader.Upload(context.Background(), bytes.NewReader(make([]byte, 26)), 26, "/docs/a.bin", "a.bin")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, stub.attemptsFor(2))
	complete, abort := stub.calls()
	assert.Equal(t, 1, abort)
	assert.Equal(t, 0, complete)

	tasks := tracker.List()
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskStatusFailed, tasks[0].Status)
}

func TestUpload_NonRetryableFailsFast(t *testing.T) {
	stub := newOrchStub(8)
	stub.failPart[2] = 100
	stub.failStatus = http.StatusConflict
	uploader, _ := testUploader(t, stub, Config{Concurrency: 1, MaxAttempts: 3})

	_, err := uploader.Upload(context.Background(), bytes.NewReader(make([]byte, 26)), 26, "/docs/a.bin", "a.bin")

	require.Error(t, err)
	assert.Equal(t, 1, stub.attemptsFor(2))
	complete, abort := stub.calls()
	assert.Equal(t, 1, abort)
	assert.Equal(t, 0, complete)
}

func TestUpload_CancelAbortsWithoutComplete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stub := newOrchStub(4)
	stub.onPart = func(partNumber int32) {
		if partNumber == 2 {
			cancel()
		}
	}
	uploader, tracker := testUploader(t, stub, Config{Concurrency: 1, MaxAttempts: 3})

	_, err := uploader.Upload(ctx, bytes.NewReader(make([]byte, 20)), 20, "/docs/a.bin", "a.bin")

	assert.ErrorIs(t, err, domain.ErrCancelled)
	complete, abort := stub.calls()
	assert.Equal(t, 0, complete)
	assert.Equal(t, 1, abort)

	tasks := tracker.List()
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskStatusCancelled, tasks[0].Status)
}
