package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/eminus-watch/internal/logger"
	"github.com/nhle/eminus-watch/internal/store"
	"github.com/nhle/eminus-watch/internal/sync"
	"github.com/nhle/eminus-watch/internal/ui/status"
)

const historyLimit = 20

// Status returns the command that shows the persisted state.
func Status() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show persisted state and recent notifications",
			Long: `Show how many assignments are known and how many reminders were sent,
which channels are configured and when the daemon would run next. Backends
that keep a notification history (sqlite) also list the latest entries.`,
			Args: cobra.NoArgs,
		}, nil,
		runStatus,
	)
}

func runStatus(ctx *Context, _ []string) error {
	st, err := ctx.openStore()
	if err != nil {
		return err
	}

	seen, err := st.Load(ctx, store.NamespaceSeen)
	if err != nil {
		return fmt.Errorf("loading %s: %w", store.NamespaceSeen, err)
	}
	reminded, err := st.Load(ctx, store.NamespaceReminders)
	if err != nil {
		return fmt.Errorf("loading %s: %w", store.NamespaceReminders, err)
	}

	cfg := ctx.Config
	report := status.Report{
		Backend:  cfg.State.Backend,
		Seen:     seen.Len(),
		Reminded: reminded.Len(),
		Channels: cfg.Notify.Channels(),
		Schedule: cfg.Daemon.Schedule,
		Location: cfg.Location(),
	}

	if next, err := sync.NextActivation(cfg.Daemon.Schedule, cfg.Location(), time.Now()); err == nil {
		report.NextRun = next
	} else {
		logger.FromContext(ctx).Warn("Invalid daemon schedule", "err", err)
		report.Schedule = ""
	}

	if nl, ok := st.(store.NotificationLog); ok {
		history, err := nl.RecentNotifications(ctx, historyLimit)
		if err != nil {
			return fmt.Errorf("loading notification history: %w", err)
		}
		report.History = history
	}

	_, _ = fmt.Fprint(ctx.Command.OutOrStdout(), status.RenderReport(report))
	return nil
}
