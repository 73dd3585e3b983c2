package worker

import (
	"context"
	"log/slog"

	"polls-service/internal/metrics"
)

// VoteEvent is emitted after a vote has been committed.
type VoteEvent struct {
	PollID   int64
	OptionID int64
	UserID   int64
}

type StatsWorker struct {
	Ch     <-chan VoteEvent
	logger *slog.Logger
}

func NewStatsWorker(ch <-chan VoteEvent, logger *slog.Logger) *StatsWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsWorker{Ch: ch, logger: logger}
}

// Run consumes events until ctx is cancelled or the channel is closed.
func (w *StatsWorker) Run(ctx context.Context) {
	w.logger.Info("stats worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stats worker stopped")
			return
		case ev, ok := <-w.Ch:
			if !ok {
				w.logger.Info("stats worker channel closed")
				return
			}
			w.handle(ev)
		}
	}
}

func (w *StatsWorker) handle(ev VoteEvent) {
	metrics.IncVoteEventProcessed()
	w.logger.Debug("vote event processed",
		slog.Int64("poll_id", ev.PollID),
		slog.Int64("option_id", ev.OptionID),
		slog.Int64("user_id", ev.UserID),
	)
}
