package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edustack/portal-api/pkg/jobs"
)

type blobDeleter interface {
	Delete(ref string) error
}

// BlobCleanupService deletes orphaned blobs in the background after metadata
// purges. The metadata record is authoritative: a blob that outlives its row
// is a cleanup problem, not a correctness one, so failures are retried by the
// queue and logged, never surfaced to the purge caller.
type BlobCleanupService struct {
	blobs  blobDeleter
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewBlobCleanupService constructs the service and its worker queue.
func NewBlobCleanupService(blobs blobDeleter, logger *zap.Logger, cfg jobs.QueueConfig) *BlobCleanupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	s := &BlobCleanupService{blobs: blobs, logger: logger}
	s.queue = jobs.NewQueue("blob-cleanup", s.handle, cfg)
	return s
}

// Start begins background workers.
func (s *BlobCleanupService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains workers.
func (s *BlobCleanupService) Stop() {
	s.queue.Stop()
}

// Schedule enqueues deletion of the given refs. Enqueue failures degrade to
// a warning; the blobs stay orphaned until a later sweep.
func (s *BlobCleanupService) Schedule(refs []string) {
	if s == nil {
		return
	}
	for i, ref := range refs {
		if ref == "" {
			continue
		}
		job := jobs.Job{ID: fmt.Sprintf("blob-%d-%s", i, ref), Type: "blob.delete", Payload: ref}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to schedule blob cleanup", zap.String("ref", ref), zap.Error(err))
		}
	}
}

func (s *BlobCleanupService) handle(_ context.Context, job jobs.Job) error {
	ref, ok := job.Payload.(string)
	if !ok {
		s.logger.Warn("blob cleanup job with unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.blobs.Delete(ref); err != nil {
		return fmt.Errorf("delete blob %s: %w", ref, err)
	}
	return nil
}
