package cleanup

import (
	"context"
	"time"

	"github.com/iamasit07/connect4-server/internal/logging"
	"github.com/rs/zerolog"
)

// HistoryPruner deletes finished games older than the given number of days.
type HistoryPruner interface {
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}

type Worker struct {
	Pruner     HistoryPruner
	DaysToKeep int
	Interval   time.Duration
	logger     zerolog.Logger
}

func NewWorker(pruner HistoryPruner, daysToKeep int, logger zerolog.Logger) *Worker {
	return &Worker{
		Pruner:     pruner,
		DaysToKeep: daysToKeep,
		Interval:   time.Hour,
		logger:     logging.Component(logger, "cleanup"),
	}
}

// Run prunes once immediately and then on every tick until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Dur("interval", w.Interval).Int("days_to_keep", w.DaysToKeep).Msg("background worker started")
	w.runCleanup(ctx)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.runCleanup(ctx)
		}
	}
}

func (w *Worker) runCleanup(ctx context.Context) {
	deleted, err := w.Pruner.DeleteOlderThan(ctx, w.DaysToKeep)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("error cleaning up game history")
		}
		return
	}
	if deleted > 0 {
		w.logger.Info().Int64("deleted", deleted).Msg("removed expired games")
	}
}
