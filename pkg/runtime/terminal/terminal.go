// Package terminal wires the cobra command tree for the macrosync CLI.
package terminal

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fin-tools/macro-sync/pkg/runtime/terminal/commands"
	"github.com/fin-tools/macro-sync/pkg/runtime/terminal/export"
)

// CLI represents the command-line interface.
type CLI struct {
	factory  commands.Factory
	reporter *export.Reporter
	logger   zerolog.Logger
	rootCmd  *cobra.Command
}

// Options contain configuration for the CLI.
type Options struct {
	// Factory builds the workbench a command runs against
	Factory commands.Factory
	// Output receives the rendered reports (default: stdout)
	Output io.Writer
	// Logger receives wiring warnings (default: disabled)
	Logger zerolog.Logger
}

// NewCLI creates a new CLI instance.
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{
		factory:  opts.Factory,
		reporter: export.NewReporter(opts.Output),
		logger:   opts.Logger,
	}

	cli.rootCmd = cli.newRootCmd()
	cli.rootCmd.SetOut(opts.Output)
	return cli
}

func (cli *CLI) Execute() error {
	ctx := cli.logger.WithContext(context.Background())
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "macrosync",
		Short: "Spreadsheet template reconciliation for macro time series",
	}

	cmd.AddCommand(commands.NewAuditCmd(cli.factory, cli.reporter))
	cmd.AddCommand(commands.NewRunCmd(cli.factory, cli.reporter))
	cmd.AddCommand(commands.NewRegimeCmd(cli.factory, cli.reporter))
	cmd.AddCommand(commands.NewTemplatesCmd(cli.factory, cli.reporter))

	return cmd
}
