package planner

import (
	"context"
	"time"

	"roadsim/internal/logging"
)

// Progresser exposes a monotonic processed-items counter.
type Progresser interface {
	Progress() int64
}

// ReportProgress logs p's counter every interval until it reaches total or ctx
// is done. It never blocks the workers it observes.
func ReportProgress(ctx context.Context, p Progresser, total int64, interval time.Duration, log logging.Logger) {
	if interval <= 0 || total <= 0 {
		return
	}
	if log == nil {
		log = logging.Noop()
	}
	base := p.Progress()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			done := p.Progress() - base
			log.Info(ctx, "planning progress",
				logging.Int64("done", done),
				logging.Int64("total", total),
				logging.Float("percent", 100*float64(done)/float64(total)))
			if done >= total {
				return
			}
		}
	}
}
