// Package commands implements the cowkit command line tool.
package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gobeaver/cowkit"
	"github.com/gobeaver/cowkit/internal/cli/output"
	"github.com/gobeaver/cowkit/overlay"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Opener builds the overlay a command operates on.
type Opener func(cmd *cobra.Command) (*overlay.Adapter, error)

// cli carries the global flags shared by every subcommand.
type cli struct {
	envPrefix string
	format    string
	verbose   bool
	open      Opener
}

// Execute runs the root command against the overlay described by the
// environment.
func Execute() error {
	return NewRootCmd(nil).Execute()
}

// NewRootCmd builds the command tree. A nil opener loads the overlay from
// environment variables.
func NewRootCmd(open Opener) *cobra.Command {
	c := &cli{open: open}
	if c.open == nil {
		c.open = c.openFromEnv
	}

	rootCmd := &cobra.Command{
		Use:   "cowkit",
		Short: "Inspect and modify a copy-on-write overlay",
		Long: `cowkit operates on an overlay of a read-only base layer and a writable
top layer. Reads fall through to the base, writes land in the top and
deletions of base content are recorded as tombstones.

Layers are configured with BEAVER_COWKIT_* environment variables. Use a
persistent top layer (BEAVER_COWKIT_TOP_DRIVER=local) for changes to
survive between invocations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.envPrefix, "env-prefix", "BEAVER_", "Prefix of the configuration environment variables")
	flags.StringVarP(&c.format, "output", "o", "table", "Output format (table|json|yaml)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Log layer activity to stderr")

	rootCmd.AddCommand(
		newLsCmd(c),
		newCatCmd(c),
		newPutCmd(c),
		newRmCmd(c),
		newRmdirCmd(c),
		newMkdirCmd(c),
		newMvCmd(c),
		newCpCmd(c),
		newStatCmd(c),
		newChecksumCmd(c),
		newChmodCmd(c),
		newURLCmd(c),
		newTombstonesCmd(c),
		newVersionCmd(),
	)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

func (c *cli) openFromEnv(cmd *cobra.Command) (*overlay.Adapter, error) {
	return overlay.WithPrefix(c.envPrefix).
		LogTo(cmd.ErrOrStderr()).
		Configure(func(cfg *cowkit.Config) {
			if c.verbose {
				cfg.LogLevel = "debug"
			}
		}).
		New()
}

func (c *cli) printer(cmd *cobra.Command) (*output.Printer, error) {
	format, err := output.ParseFormat(c.format)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(cmd.OutOrStdout(), format), nil
}

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, Version)
				return
			}
			fmt.Fprintf(out, "cowkit %s\n", Version)
			fmt.Fprintf(out, "  Commit:     %s\n", Commit)
			fmt.Fprintf(out, "  Built:      %s\n", Date)
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Show only version number")
	return cmd
}
