package notify

import (
	"context"

	"github.com/nhle/eminus-watch/internal/logger"
)

// Log is the dispatcher used when no channel is configured. It records the
// skipped notification and reports ErrSkipped.
type Log struct{}

var _ Dispatcher = Log{}

func (Log) Name() string { return "log" }

func (Log) Send(ctx context.Context, in Intent) error {
	logger.FromContext(ctx).Warn("Notification skipped: no channel configured",
		"category", in.Category,
		"course", in.CourseName,
		"title", in.Title,
		"deadline", in.FormattedDeadline,
	)
	return ErrSkipped
}
