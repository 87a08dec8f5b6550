package commands

import (
	"github.com/spf13/cobra"

	"github.com/fin-tools/macro-sync/pkg/runtime/terminal/export"
)

type TemplatesCmd struct {
	configPath string
	factory    Factory
	reporter   *export.Reporter
}

func NewTemplatesCmd(factory Factory, reporter *export.Reporter) *cobra.Command {
	tc := &TemplatesCmd{factory: factory, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List the configured templates",
		RunE:  tc.run,
	}

	cmd.Flags().StringVar(&tc.configPath, "config", "templates.yaml", "Path to the template inventory")

	return cmd
}

func (tc *TemplatesCmd) run(cmd *cobra.Command, args []string) error {
	wb, err := tc.factory(cmd.Context(), tc.configPath)
	if err != nil {
		return err
	}

	return tc.reporter.HandleTemplates(wb.Templates)
}
