package main

import (
	"fmt"
	"os"

	"github.com/gobeaver/cowkit/cmd/cowkit/commands"

	// Layer drivers selectable through COWKIT_BASE_DRIVER / COWKIT_TOP_DRIVER
	_ "github.com/gobeaver/cowkit/driver/local"
	_ "github.com/gobeaver/cowkit/driver/memory"
	_ "github.com/gobeaver/cowkit/driver/s3"
	_ "github.com/gobeaver/cowkit/driver/zip"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
