package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fin-tools/macro-sync/pkg/models/domain"
	"github.com/fin-tools/macro-sync/pkg/runtime/terminal/export"
	"github.com/fin-tools/macro-sync/pkg/services/orchestrator"
)

type RunCmd struct {
	configPath string
	mode       string
	templates  []string
	factory    Factory
	reporter   *export.Reporter
}

func NewRunCmd(factory Factory, reporter *export.Reporter) *cobra.Command {
	rc := &RunCmd{factory: factory, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Update templates from their sources",
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.configPath, "config", "templates.yaml", "Path to the template inventory")
	cmd.Flags().StringVar(&rc.mode, "mode", "incremental", "Run mode: incremental or backfill")
	cmd.Flags().StringSliceVar(&rc.templates, "template", nil, "Template to update (repeatable; default all)")

	return cmd
}

func (rc *RunCmd) run(cmd *cobra.Command, args []string) error {
	mode, err := domain.ParseRunMode(rc.mode)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Minute)
	defer cancel()

	wb, err := rc.factory(ctx, rc.configPath)
	if err != nil {
		return err
	}

	selected := wb.Templates
	if len(rc.templates) > 0 {
		selected = make([]domain.TemplateDescriptor, 0, len(rc.templates))
		for _, name := range rc.templates {
			tpl, ok := findTemplate(wb.Templates, name)
			if !ok {
				return unknownTemplate(wb.Templates, name)
			}
			selected = append(selected, tpl)
		}
	}

	summary := wb.Runner.Run(ctx, orchestrator.NewRunID(), mode, selected)
	if err := rc.reporter.HandleRun(summary); err != nil {
		return err
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d templates failed", summary.Failed, summary.Total)
	}
	return nil
}
