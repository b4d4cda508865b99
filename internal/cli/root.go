// Package cli implements the eminus-watch command line.
package cli

import "github.com/spf13/cobra"

// NewRoot builds the root command with every subcommand attached.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "eminus-watch",
		Short: "Notify about new and due Eminus assignments",
		Long: `eminus-watch signs in to the Eminus portal, finds assignments in recent
courses and sends one notification when an assignment first appears and one
reminder shortly before an open assignment is due.

Configuration is read from a YAML file, EMINUS_WATCH_* environment variables
and a .env file. Credentials may also be stored with "eminus-watch login".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	initPersistentFlags(root, globalFlags...)

	root.AddCommand(Run())
	root.AddCommand(Daemon())
	root.AddCommand(Status())
	root.AddCommand(Login())
	root.AddCommand(Logout())
	root.AddCommand(CmdVersion())

	return root
}
