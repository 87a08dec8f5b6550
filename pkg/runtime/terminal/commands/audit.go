package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fin-tools/macro-sync/pkg/runtime/terminal/export"
)

type AuditCmd struct {
	configPath string
	template   string
	factory    Factory
	reporter   *export.Reporter
}

func NewAuditCmd(factory Factory, reporter *export.Reporter) *cobra.Command {
	ac := &AuditCmd{factory: factory, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit a template's workbook without writing anything",
		RunE:  ac.run,
	}

	cmd.Flags().StringVar(&ac.configPath, "config", "templates.yaml", "Path to the template inventory")
	cmd.Flags().StringVar(&ac.template, "template", "", "Template to audit")

	_ = cmd.MarkFlagRequired("template")

	return cmd
}

func (ac *AuditCmd) run(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	wb, err := ac.factory(ctx, ac.configPath)
	if err != nil {
		return err
	}

	tpl, ok := findTemplate(wb.Templates, ac.template)
	if !ok {
		return unknownTemplate(wb.Templates, ac.template)
	}

	res, err := wb.Runner.Audit(ctx, tpl)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	return ac.reporter.HandleAudit(tpl.Name, res)
}
