package transfer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"driftbox/internal/domain"
)

// EntryFailure records one relay entry that could not be transferred.
type EntryFailure struct {
	TargetPath string
	Phase      string
	Err        error
}

// CopyReport is the outcome of one relay run. Succeeded entries have been
// committed server-side; failed entries have not and are safe to retry.
type CopyReport struct {
	Succeeded []RelayedFile
	Failed    []EntryFailure
	Cancelled bool
}

// CopyRunner relays cross-storage copy plans: it downloads each entry from
// its presigned source URL and re-uploads it to the presigned target URL.
// Entries are processed independently; one bad entry never blocks the rest.
type CopyRunner struct {
	client  *Client
	tracker *TaskTracker
}

// NewCopyRunner creates a CopyRunner.
func NewCopyRunner(client *Client, tracker *TaskTracker) *CopyRunner {
	return &CopyRunner{client: client, tracker: tracker}
}

// Run relays all entries and commits the successes in one call at the end.
// On cancellation the entries already relayed are still committed before
// domain.ErrCancelled is returned; their files stay stored.
func (r *CopyRunner) Run(ctx context.Context, entries []domain.CopyPlanEntry, targetMountID uuid.UUID) (*CopyReport, error) {
	taskID := r.tracker.Register(domain.TaskKindCopy, len(entries))
	report := &CopyReport{}

	for i, entry := range entries {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		r.tracker.Update(taskID, i, fmt.Sprintf("%s (downloading)", entry.TargetPath))
		data, err := r.client.GetObject(ctx, entry.SourceDownloadURL)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				report.Cancelled = true
				break
			}
			log.Printf("copy.Run: download of %s failed: %v", entry.TargetPath, err)
			report.Failed = append(report.Failed, EntryFailure{
				TargetPath: entry.TargetPath,
				Phase:      "download",
				Err:        err,
			})
			continue
		}

		r.tracker.Update(taskID, i, fmt.Sprintf("%s (uploading)", entry.TargetPath))
		etag, err := r.client.PutObject(ctx, entry.TargetUploadURL, entry.ContentType, data)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				report.Cancelled = true
				break
			}
			log.Printf("copy.Run: upload of %s failed: %v", entry.TargetPath, err)
			report.Failed = append(report.Failed, EntryFailure{
				TargetPath: entry.TargetPath,
				Phase:      "upload",
				Err:        err,
			})
			continue
		}

		report.Succeeded = append(report.Succeeded, RelayedFile{
			TargetPath:  entry.TargetPath,
			StorageKey:  entry.TargetStorageKey,
			ETag:        etag,
			ContentType: entry.ContentType,
			FileSize:    int64(len(data)),
		})
		r.tracker.Update(taskID, i+1, entry.TargetPath)
	}

	if err := r.commit(ctx, report, targetMountID); err != nil {
		r.tracker.Fail(taskID, err)
		return report, err
	}

	if report.Cancelled {
		r.tracker.Cancel(taskID)
		return report, domain.ErrCancelled
	}
	if len(report.Failed) > 0 {
		err := fmt.Errorf("%d of %d entries failed", len(report.Failed), len(entries))
		r.tracker.Fail(taskID, err)
		return report, err
	}

	r.tracker.Complete(taskID)
	return report, nil
}

// commit registers the relayed successes in one call. It runs even when the
// run was cancelled so that already transferred bytes become visible files.
func (r *CopyRunner) commit(ctx context.Context, report *CopyReport, targetMountID uuid.UUID) error {
	if len(report.Succeeded) == 0 {
		return nil
	}

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	return r.client.BatchCopyCommit(commitCtx, BatchCopyCommitRequest{
		TargetMountID: targetMountID,
		Files:         report.Succeeded,
	})
}
