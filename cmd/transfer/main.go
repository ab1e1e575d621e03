package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"driftbox/internal/domain"
	"driftbox/internal/transfer"
)

// presignThreshold is the size below which a single presigned PUT is used
// instead of a multipart session.
const presignThreshold = 5 * 1024 * 1024

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	serverURL := flag.String("server", envOr("DRIFTBOX_SERVER_URL", "http://localhost:8080"), "server base URL")
	token := flag.String("token", os.Getenv("DRIFTBOX_TOKEN"), "bearer token")
	apiKey := flag.String("api-key", os.Getenv("DRIFTBOX_API_KEY"), "API key")
	concurrency := flag.Int("concurrency", 4, "parallel part uploads")
	skipExisting := flag.Bool("skip-existing", false, "skip copy targets that already exist")
	direct := flag.Bool("direct", false, "proxy small uploads through the server instead of a presigned PUT")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Usage: transfer [upload <local-file> <remote-path> | copy <source-path> <target-path>]")
		os.Exit(1)
	}

	var client *transfer.Client
	if *apiKey != "" {
		client = transfer.NewClientWithAPIKey(*serverURL, *apiKey)
	} else {
		client = transfer.NewClient(*serverURL, *token)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracker := transfer.NewTaskTracker()
	go reportProgress(ctx, tracker)

	switch args[0] {
	case "upload":
		if len(args) < 3 {
			return fmt.Errorf("upload requires a local file and a remote path")
		}
		return runUpload(ctx, client, tracker, *concurrency, *direct, args[1], args[2])

	case "copy":
		if len(args) < 3 {
			return fmt.Errorf("copy requires a source path and a target path")
		}
		return runCopy(ctx, client, tracker, args[1], args[2], *skipExisting)

	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runUpload(ctx context.Context, client *transfer.Client, tracker *transfer.TaskTracker, concurrency int, direct bool, localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	if info.Size() < presignThreshold {
		if direct {
			return uploadDirect(ctx, client, localPath, remotePath)
		}
		return uploadPresigned(ctx, client, localPath, remotePath, info.Size())
	}

	cfg := transfer.DefaultConfig()
	cfg.Concurrency = concurrency
	uploader := transfer.NewChunkedUploader(client, cfg, tracker)

	result, err := uploader.Upload(ctx, f, info.Size(), remotePath, info.Name())
	if err != nil {
		return err
	}

	log.Printf("uploaded %s in %d parts (%d bytes, etag %s)",
		remotePath, result.PartCount, result.BytesSent, result.File.ETag)
	return nil
}

// uploadPresigned pushes a small file through a presigned PUT and commits it.
func uploadPresigned(ctx context.Context, client *transfer.Client, localPath, remotePath string, size int64) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}

	presign, err := client.PresignUpload(ctx, transfer.PresignRequest{
		Path:     remotePath,
		Filename: filepath.Base(localPath),
		FileSize: size,
	})
	if err != nil {
		return err
	}

	etag, err := client.PutObject(ctx, presign.UploadURL, "application/octet-stream", data)
	if err != nil {
		return err
	}

	meta, err := client.CommitUpload(ctx, transfer.CommitRequest{
		Path:       presign.TargetPath,
		FileID:     presign.FileID,
		StorageKey: presign.StorageKey,
		ETag:       etag,
		FileSize:   size,
	})
	if err != nil {
		return err
	}

	log.Printf("uploaded %s (%d bytes, etag %s)", meta.Path, meta.Size, meta.ETag)
	return nil
}

// uploadDirect streams a small file through the server in one request.
func uploadDirect(ctx context.Context, client *transfer.Client, localPath, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}

	meta, err := client.UploadDirect(ctx, remotePath, filepath.Base(localPath), data)
	if err != nil {
		return err
	}

	log.Printf("uploaded %s (%d bytes, etag %s)", meta.Path, meta.Size, meta.ETag)
	return nil
}

func runCopy(ctx context.Context, client *transfer.Client, tracker *transfer.TaskTracker, sourcePath, targetPath string, skipExisting bool) error {
	plan, err := client.BatchCopy(ctx, transfer.BatchCopyRequest{
		Items: []transfer.BatchCopyItem{
			{SourcePath: sourcePath, TargetPath: targetPath},
		},
		SkipExisting: skipExisting,
	})
	if err != nil {
		return err
	}

	if !plan.RequiresClientSideCopy {
		log.Printf("copied %d files server-side, skipped %d", len(plan.Copied), len(plan.Skipped))
		return nil
	}

	if len(plan.Entries) == 0 {
		log.Printf("nothing to copy, skipped %d", len(plan.Skipped))
		return nil
	}

	targetMountID := plan.Entries[0].TargetMountID
	runner := transfer.NewCopyRunner(client, tracker)

	report, err := runner.Run(ctx, plan.Entries, targetMountID)
	if report != nil {
		log.Printf("relayed %d files, %d failed, skipped %d",
			len(report.Succeeded), len(report.Failed), len(plan.Skipped))
		for _, failure := range report.Failed {
			log.Printf("  %s: %s failed: %v", failure.TargetPath, failure.Phase, failure.Err)
		}
	}
	return err
}

// reportProgress prints tracker snapshots once per second until ctx ends.
func reportProgress(ctx context.Context, tracker *transfer.TaskTracker) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, task := range tracker.List() {
				if task.Status != domain.TaskStatusRunning {
					continue
				}
				log.Printf("%s: %d/%d %s", task.Kind, task.ProcessedCount, task.TotalCount, task.CurrentItem)
			}
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

