package asset

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/radif/gallery/internal/metrics"
	"github.com/radif/gallery/internal/worker"
)

const cleanupTaskName = "asset-object-cleanup"

// scheduleCleanup queues the removal of the objects behind urls. Each
// object is deleted only when no surviving asset still references it.
func (s *Service) scheduleCleanup(urls ...string) {
	var targets []string
	for _, u := range urls {
		if u != "" {
			targets = append(targets, u)
		}
	}
	if len(targets) == 0 {
		return
	}

	task := worker.Task{
		Name: cleanupTaskName,
		Run: func(ctx context.Context) error {
			return s.cleanupObjects(ctx, targets)
		},
	}
	if !s.cleanup.Submit(task) {
		s.log.Warn("object cleanup not scheduled", zap.Strings("urls", targets))
	}
}

func (s *Service) cleanupObjects(ctx context.Context, urls []string) error {
	var errs []error
	for _, u := range urls {
		refs, err := s.store.CountByURL(ctx, u)
		if err != nil {
			metrics.CleanupDeletes.WithLabelValues("failed").Inc()
			errs = append(errs, err)
			continue
		}
		if refs > 0 {
			metrics.CleanupDeletes.WithLabelValues("kept").Inc()
			s.log.Debug("object still referenced", zap.String("url", u), zap.Int64("refs", refs))
			continue
		}

		key, ok := s.objects.KeyFromURL(u)
		if !ok {
			s.log.Warn("object url outside the bucket, skipping", zap.String("url", u))
			continue
		}
		if err := s.objects.Delete(ctx, key); err != nil {
			metrics.CleanupDeletes.WithLabelValues("failed").Inc()
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
			continue
		}
		metrics.CleanupDeletes.WithLabelValues("deleted").Inc()
	}
	return errors.Join(errs...)
}
