package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"
	"time"
)

// BlobStorage persists a video payload and returns its public location.
type BlobStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// AssetUpdater records the outcome of a background upload.
type AssetUpdater interface {
	MarkAssetReady(ctx context.Context, videoID, location string, durationSeconds int) error
	MarkAssetFailed(ctx context.Context, videoID string) error
}

// IngestorConfig controls the concurrency characteristics of the ingestor.
type IngestorConfig struct {
	QueueSize int
	Workers   int
}

// Job describes one uploaded payload spooled to disk by the handler. The
// ingestor owns the temp file and removes it when done.
type Job struct {
	VideoID         string
	Filename        string
	TempPath        string
	DurationSeconds int
}

// Ingestor asynchronously persists uploaded video payloads to blob storage
// and flips the video's asset status to ready or failed.
type Ingestor struct {
	storage BlobStorage
	updater AssetUpdater
	logger  *slog.Logger
	timeout time.Duration

	jobs   chan Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

var errIngestorClosed = errors.New("upload ingestor closed")

// NewIngestor constructs a background worker pool that persists uploads.
func NewIngestor(storage BlobStorage, updater AssetUpdater, cfg IngestorConfig, logger *slog.Logger) *Ingestor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	ing := &Ingestor{
		storage: storage,
		updater: updater,
		logger:  logger,
		timeout: 2 * time.Minute,
		jobs:    make(chan Job, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	ing.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go ing.worker()
	}

	return ing
}

// Enqueue schedules blob persistence for the supplied upload.
func (i *Ingestor) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-i.ctx.Done():
		return errIngestorClosed
	case i.jobs <- job:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (i *Ingestor) Shutdown(ctx context.Context) error {
	i.once.Do(func() {
		i.cancel()
		close(i.jobs)
	})

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (i *Ingestor) worker() {
	defer i.wg.Done()

	// Runs until the queue is closed so queued jobs drain on shutdown.
	for job := range i.jobs {
		i.handleJob(job)
	}
}

func (i *Ingestor) handleJob(job Job) {
	defer func() {
		if job.TempPath != "" {
			if err := os.Remove(job.TempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				i.logger.Warn("remove spooled upload", "videoId", job.VideoID, "error", err)
			}
		}
	}()

	if i.storage == nil || i.updater == nil {
		i.logger.Error("upload ingestor missing dependencies", "hasStorage", i.storage != nil, "hasUpdater", i.updater != nil)
		return
	}

	location, err := i.persist(job)
	if err != nil {
		i.logger.Error("upload ingestion failed", "videoId", job.VideoID, "error", err)
		i.recordFailure(job.VideoID)
		return
	}

	if err := i.recordSuccess(job.VideoID, location, job.DurationSeconds); err != nil {
		i.logger.Error("mark asset ready", "videoId", job.VideoID, "error", err)
		i.recordFailure(job.VideoID)
	}
}

func (i *Ingestor) persist(job Job) (string, error) {
	file, err := os.Open(job.TempPath)
	if err != nil {
		return "", fmt.Errorf("open spooled upload: %w", err)
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
	defer cancel()

	key := path.Join(job.VideoID, sanitizeFilename(job.Filename))
	location, err := i.storage.Save(ctx, key, file)
	if err != nil {
		return "", fmt.Errorf("save upload %s: %w", key, err)
	}

	return location, nil
}

func (i *Ingestor) recordFailure(videoID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := i.updater.MarkAssetFailed(ctx, videoID); err != nil {
		i.logger.Error("record asset failure", "videoId", videoID, "error", err)
	}
}

func (i *Ingestor) recordSuccess(videoID, location string, durationSeconds int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return i.updater.MarkAssetReady(ctx, videoID, location, durationSeconds)
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == "/" {
		return "video"
	}
	return name
}
