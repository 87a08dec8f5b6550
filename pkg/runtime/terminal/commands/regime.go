package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fin-tools/macro-sync/pkg/runtime/terminal/export"
)

type RegimeCmd struct {
	configPath string
	factory    Factory
	reporter   *export.Reporter
}

func NewRegimeCmd(factory Factory, reporter *export.Reporter) *cobra.Command {
	rc := &RegimeCmd{factory: factory, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "regime",
		Short: "Assess the macro regime from the latest indicator readings",
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.configPath, "config", "templates.yaml", "Path to the template inventory")

	return cmd
}

func (rc *RegimeCmd) run(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	wb, err := rc.factory(ctx, rc.configPath)
	if err != nil {
		return err
	}

	assessment, err := wb.Analyzer.Assess(ctx)
	if err != nil {
		return fmt.Errorf("regime assessment failed: %w", err)
	}

	return rc.reporter.HandleRegime(assessment)
}
