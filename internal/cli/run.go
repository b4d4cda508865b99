package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/eminus-watch/internal/sync"
	"github.com/nhle/eminus-watch/internal/ui/status"
)

// Run returns the command that performs a single check.
func Run() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Check Eminus once and send pending notifications",
			Long: `Sign in to Eminus, fetch the assignments of recent courses, notify about
new ones and about open ones whose deadline is within the reminder window,
then save what was seen.

With --dry-run the notifications are printed instead of sent and no state
is written.`,
			Args: cobra.NoArgs,
		}, []commandLineFlag{dryRunFlag},
		runOnce,
	)
}

func runOnce(ctx *Context, _ []string) error {
	dryRun, err := ctx.Command.Flags().GetBool(dryRunFlag.name)
	if err != nil {
		return fmt.Errorf("failed to get dry-run flag: %w", err)
	}

	st, err := ctx.openStore()
	if err != nil {
		return err
	}
	runner, err := ctx.newRunner(st)
	if err != nil {
		return err
	}

	summary, err := runner.Run(ctx, sync.RunOptions{DryRun: dryRun})
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if dryRun {
		_, _ = fmt.Fprint(ctx.Command.OutOrStdout(), status.RenderSummary(summary))
	}
	return nil
}
