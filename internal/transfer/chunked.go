package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"driftbox/internal/domain"
)

// Config tunes the chunked upload engine. The window is bounded, never
// "all parts at once": the store rate-limits per key and the server proxies
// every part body.
type Config struct {
	Concurrency int
	MaxAttempts int
	PartTimeout time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency: 4,
		MaxAttempts: 3,
		PartTimeout: 5 * time.Minute,
	}
}

// UploadResult is the outcome of one completed chunked upload.
type UploadResult struct {
	File      *domain.FileMeta
	PartCount int
	BytesSent int64
}

// ChunkedUploader splits a source into fixed-size parts, drives them through
// a bounded-concurrency window with per-part retries, and issues exactly one
// terminal call (complete or abort) per session.
type ChunkedUploader struct {
	client  *Client
	cfg     Config
	tracker *TaskTracker
}

// NewChunkedUploader creates a ChunkedUploader.
func NewChunkedUploader(client *Client, cfg Config, tracker *TaskTracker) *ChunkedUploader {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &ChunkedUploader{client: client, cfg: cfg, tracker: tracker}
}

// Upload transfers size bytes from src to targetPath. On cancellation it
// returns domain.ErrCancelled after aborting the session; on any part failure
// it aborts and returns the terminating error. Partial success is never
// reported as success.
func (u *ChunkedUploader) Upload(ctx context.Context, src io.ReaderAt, size int64, targetPath, filename string) (*UploadResult, error) {
	taskID := u.tracker.Register(domain.TaskKindUpload, 0)

	init, err := u.client.InitUpload(ctx, InitRequest{
		Path:     targetPath,
		FileSize: size,
		Filename: filename,
	})
	if err != nil {
		u.tracker.Fail(taskID, err)
		return nil, err
	}

	parts := partition(size, init.RecommendedPartSize)
	u.tracker.SetTotal(taskID, len(parts))
	u.tracker.Update(taskID, 0, filename)

	etags := make([]domain.UploadPartETag, len(parts))
	var processed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.cfg.Concurrency)
	for i, p := range parts {
		g.Go(func() error {
			// Cancellation is checked between parts: a tripped context stops
			// new part uploads but never truncates one mid-flight.
			if err := gctx.Err(); err != nil {
				return err
			}

			buf := make([]byte, p.length)
			if _, err := src.ReadAt(buf, p.offset); err != nil {
				return fmt.Errorf("reading part %d: %w", p.number, err)
			}

			etag, err := u.uploadPartWithRetry(gctx, init, targetPath, p, buf)
			if err != nil {
				return err
			}

			etags[i] = domain.UploadPartETag{PartNumber: p.number, ETag: etag}
			done := atomic.AddInt64(&processed, 1)
			u.tracker.Update(taskID, int(done), fmt.Sprintf("%s (part %d/%d)", filename, p.number, len(parts)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		u.abort(ctx, init, targetPath)
		if errors.Is(err, context.Canceled) {
			u.tracker.Cancel(taskID)
			return nil, domain.ErrCancelled
		}
		u.tracker.Fail(taskID, err)
		return nil, err
	}

	// Part uploads finish in any order; the complete call is the one place
	// ordering matters.
	sort.Slice(etags, func(a, b int) bool { return etags[a].PartNumber < etags[b].PartNumber })

	meta, err := u.client.CompleteUpload(ctx, CompleteRequest{
		Path:       targetPath,
		UploadID:   init.UploadID,
		StorageKey: init.StorageKey,
		Parts:      etags,
		FileSize:   size,
	})
	if err != nil {
		u.abort(ctx, init, targetPath)
		u.tracker.Fail(taskID, err)
		return nil, err
	}

	u.tracker.Complete(taskID)
	return &UploadResult{File: meta, PartCount: len(parts), BytesSent: size}, nil
}

// uploadPartWithRetry retries transient failures up to the configured bound.
// Retries are serialized per part: the next attempt starts only after the
// previous one has fully returned.
func (u *ChunkedUploader) uploadPartWithRetry(ctx context.Context, init *InitResponse, targetPath string, p part, body []byte) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= u.cfg.MaxAttempts; attempt++ {
		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if u.cfg.PartTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, u.cfg.PartTimeout)
		}
		etag, err := u.client.UploadPart(attemptCtx, PartRequest{
			Path:       targetPath,
			UploadID:   init.UploadID,
			PartNumber: p.number,
			StorageKey: init.StorageKey,
			IsLast:     p.last,
		}, body)
		cancel()

		if err == nil {
			return etag, nil
		}
		lastErr = err

		var reqErr *RequestError
		if !errors.As(err, &reqErr) || !reqErr.Retryable() {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Printf("chunked.Upload: part %d attempt %d/%d failed: %v",
			p.number, attempt, u.cfg.MaxAttempts, err)
	}
	return "", fmt.Errorf("part %d failed after %d attempts: %w", p.number, u.cfg.MaxAttempts, lastErr)
}

// abort issues the session's terminal call on the failure path. It must run
// even when the caller's context is already cancelled.
func (u *ChunkedUploader) abort(ctx context.Context, init *InitResponse, targetPath string) {
	abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	err := u.client.AbortUpload(abortCtx, AbortRequest{
		Path:       targetPath,
		UploadID:   init.UploadID,
		StorageKey: init.StorageKey,
	})
	if err != nil {
		log.Printf("chunked.Upload: abort of session %s failed: %v", init.UploadID, err)
	}
}

// part is one contiguous slice of the source. Numbers are 1-based and
// sequential; this numbering is the only ordering guarantee downstream.
type part struct {
	number int32
	offset int64
	length int64
	last   bool
}

// partition splits size bytes into parts of partSize; the last part may be
// shorter. The parts cover [0,size) exactly, with no gaps or overlaps.
func partition(size, partSize int64) []part {
	if partSize <= 0 || size <= 0 {
		return nil
	}

	count := size / partSize
	if size%partSize != 0 {
		count++
	}

	parts := make([]part, 0, count)
	for offset := int64(0); offset < size; offset += partSize {
		length := partSize
		if offset+length > size {
			length = size - offset
		}
		parts = append(parts, part{
			number: int32(len(parts) + 1),
			offset: offset,
			length: length,
			last:   offset+length == size,
		})
	}
	return parts
}
