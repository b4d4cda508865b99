package main

import (
	"fmt"
	"os"

	_ "time/tzdata" // portal.timezone must resolve on hosts without zoneinfo

	"github.com/nhle/eminus-watch/internal/cli"
)

var version = "0.0.0"

func main() {
	cli.Version = version

	if err := cli.NewRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
