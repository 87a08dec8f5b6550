// Package commands implements the terminal subcommands.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/fin-tools/macro-sync/pkg/models/domain"
	"github.com/fin-tools/macro-sync/pkg/services/workbench"
)

// Factory builds the workbench a command operates on from the template
// inventory at configPath.
type Factory func(ctx context.Context, configPath string) (*workbench.Workbench, error)

func findTemplate(templates []domain.TemplateDescriptor, name string) (domain.TemplateDescriptor, bool) {
	for _, tpl := range templates {
		if tpl.Name == name {
			return tpl, true
		}
	}
	return domain.TemplateDescriptor{}, false
}

func unknownTemplate(templates []domain.TemplateDescriptor, name string) error {
	names := make([]string, 0, len(templates))
	for _, tpl := range templates {
		names = append(names, tpl.Name)
	}
	return fmt.Errorf("unknown template %q. Configured templates: %s", name, strings.Join(names, ", "))
}
