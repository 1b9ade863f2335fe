package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"Mailcast/internal/models"
)

// Firer runs one scheduled firing of a newsletter.
type Firer interface {
	Fire(ctx context.Context, newsletterID int64) error
}

func StartPool(
	ctx context.Context,
	wg *sync.WaitGroup,
	workers int,
	jobs <-chan models.FiringJob,
	firer Firer,
	logger *zap.Logger,
) {

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()

			logger.Info("worker started", zap.Int("worker_id", id))

			for {
				select {

				case <-ctx.Done():
					logger.Info("worker shutting down", zap.Int("worker_id", id))
					return

				case job, ok := <-jobs:
					if !ok {
						logger.Info("job channel closed", zap.Int("worker_id", id))
						return
					}

					// ----------------------------
					// Fire
					// ----------------------------
					if err := fire(ctx, firer, job); err != nil {
						logger.Error("newsletter firing failed",
							zap.Int("worker_id", id),
							zap.Int64("newsletter_id", job.NewsletterID),
							zap.String("task", job.TaskName),
							zap.Error(err),
						)
						continue
					}

					logger.Debug("newsletter firing done",
						zap.Int("worker_id", id),
						zap.Int64("newsletter_id", job.NewsletterID),
						zap.Duration("queued_for", time.Since(job.TriggeredAt)),
					)
				}
			}
		}(i)
	}
}

func fire(ctx context.Context, firer Firer, job models.FiringJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while firing newsletter %d: %v", job.NewsletterID, r)
		}
	}()
	return firer.Fire(ctx, job.NewsletterID)
}
