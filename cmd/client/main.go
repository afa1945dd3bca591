// Package main is the sessiongate command-line client.
package main

import (
	"os"

	"github.com/atinyakov/sessiongate/internal/client/cli"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	os.Exit(cli.Execute(cli.BuildInfo{Version: version, BuildDate: buildDate}))
}
