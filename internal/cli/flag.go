package cli

import (
	"github.com/spf13/cobra"

	"github.com/nhle/eminus-watch/internal/model"
)

type commandLineFlag struct {
	name, shorthand, defaultValue, usage string
	isBool                               bool
}

var (
	configFlag = commandLineFlag{
		name:         "config",
		shorthand:    "c",
		defaultValue: model.DefaultConfigPath(),
		usage:        "config file",
	}
	envFileFlag = commandLineFlag{
		name:         "env-file",
		defaultValue: ".env",
		usage:        "dotenv file loaded before the config",
	}
	debugFlag = commandLineFlag{
		name:   "debug",
		usage:  "enable debug logging",
		isBool: true,
	}
	logFormatFlag = commandLineFlag{
		name:  "log-format",
		usage: "log format, text or json",
	}
	dryRunFlag = commandLineFlag{
		name:   "dry-run",
		usage:  "compute notifications without sending them or saving state",
		isBool: true,
	}
	scheduleFlag = commandLineFlag{
		name:  "schedule",
		usage: "cron schedule overriding daemon.schedule",
	}
)

var globalFlags = []commandLineFlag{configFlag, envFileFlag, debugFlag, logFormatFlag}

func initFlags(cmd *cobra.Command, flags ...commandLineFlag) {
	for _, f := range flags {
		if f.isBool {
			cmd.Flags().BoolP(f.name, f.shorthand, f.defaultValue == "true", f.usage)
			continue
		}
		cmd.Flags().StringP(f.name, f.shorthand, f.defaultValue, f.usage)
	}
}

func initPersistentFlags(cmd *cobra.Command, flags ...commandLineFlag) {
	for _, f := range flags {
		if f.isBool {
			cmd.PersistentFlags().BoolP(f.name, f.shorthand, f.defaultValue == "true", f.usage)
			continue
		}
		cmd.PersistentFlags().StringP(f.name, f.shorthand, f.defaultValue, f.usage)
	}
}
