package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/eminus-watch/internal/sync"
)

// Daemon returns the command that checks Eminus on a schedule.
func Daemon() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "daemon",
			Short: "Check Eminus on a cron schedule until interrupted",
			Long: `Run a check immediately and then on every tick of daemon.schedule, a
five-field cron expression or a descriptor such as "@every 10m". A tick
that arrives while the previous check is still running is skipped.

Failed checks are logged and retried on the next tick.`,
			Args: cobra.NoArgs,
		}, []commandLineFlag{scheduleFlag},
		runDaemon,
	)
}

func runDaemon(ctx *Context, _ []string) error {
	schedule := ctx.Config.Daemon.Schedule
	if s, _ := ctx.Command.Flags().GetString(scheduleFlag.name); s != "" {
		schedule = s
	}

	st, err := ctx.openStore()
	if err != nil {
		return err
	}
	runner, err := ctx.newRunner(st)
	if err != nil {
		return err
	}

	poller, err := sync.NewPoller(runner, schedule, ctx.Config.Location())
	if err != nil {
		return fmt.Errorf("configuring daemon: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return poller.Start(sigCtx)
}
