// Package main boots the fern terminal file explorer.
package main

import (
	"fmt"
	"os"

	"github.com/zjrosen/fern/cmd"
)

// Set through -ldflags by release builds; the defaults identify a local build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersion(fmt.Sprintf("%s (commit %s, built %s)", version, commit, date))
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
