package worker

import (
	"context"
	"log/slog"
)

// VoteEvent is published after a vote was applied to a poll.
type VoteEvent struct {
	PollID   int64
	VoterID  int64
	Revision int64
}

// Invalidator drops derived state of a poll. Satisfied by result.Engine.
type Invalidator interface {
	Invalidate(pollID int64) int
}

type StatsWorker struct {
	Ch     <-chan VoteEvent
	inv    Invalidator
	logger *slog.Logger
}

func NewStatsWorker(ch <-chan VoteEvent, inv Invalidator, logger *slog.Logger) *StatsWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsWorker{Ch: ch, inv: inv, logger: logger}
}

// Run consumes events until ctx is done or the channel is closed.
func (w *StatsWorker) Run(ctx context.Context) {
	w.logger.Info("stats worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stats worker stopped")
			return
		case ev, ok := <-w.Ch:
			if !ok {
				w.logger.Info("stats worker stopped", "reason", "channel closed")
				return
			}
			w.handle(ev)
		}
	}
}

func (w *StatsWorker) handle(ev VoteEvent) {
	evicted := 0
	if w.inv != nil {
		evicted = w.inv.Invalidate(ev.PollID)
	}
	w.logger.Debug("vote event processed",
		"poll_id", ev.PollID, "voter_id", ev.VoterID, "revision", ev.Revision, "evicted", evicted)
}
