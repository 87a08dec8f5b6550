// Package workbench assembles the update engine from configuration: the
// template inventory, the observation sources and workbook stores the
// credentials unlock, and the services that run against them.
package workbench

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/rs/zerolog"

	"github.com/fin-tools/macro-sync/pkg/models/domain"
	"github.com/fin-tools/macro-sync/pkg/services/config"
	"github.com/fin-tools/macro-sync/pkg/services/notify"
	"github.com/fin-tools/macro-sync/pkg/services/orchestrator"
	"github.com/fin-tools/macro-sync/pkg/services/reconcile"
	"github.com/fin-tools/macro-sync/pkg/services/regime"
	"github.com/fin-tools/macro-sync/pkg/services/source"
	"github.com/fin-tools/macro-sync/pkg/services/source/alphavantage"
	"github.com/fin-tools/macro-sync/pkg/services/source/fred"
	"github.com/fin-tools/macro-sync/pkg/store/snapshot"
	"github.com/fin-tools/macro-sync/pkg/store/snapshot/local"
	"github.com/fin-tools/macro-sync/pkg/store/snapshot/s3"
)

// Settings locates the configuration the workbench is built from.
type Settings struct {
	// TemplatesPath is the YAML template inventory
	TemplatesPath string
	// CredentialsPath is the INI credentials file; a missing file falls
	// back to environment variables
	CredentialsPath string
	// BaseDir anchors relative local workbook paths
	BaseDir string
}

// Workbench is the wired application: every service a command or server
// needs, built from one configuration load.
type Workbench struct {
	Templates   []domain.TemplateDescriptor
	Credentials config.Registry
	Sources     source.Registry
	Stores      snapshot.Registry
	Runner      *orchestrator.Runner
	Analyzer    *regime.Analyzer
}

// Build loads configuration and wires the services. Providers whose
// credentials do not resolve are skipped with a warning rather than failing
// the build; a template naming a skipped provider fails at run time instead.
func Build(ctx context.Context, settings Settings) (*Workbench, error) {
	inv, err := config.LoadTemplates(settings.TemplatesPath)
	if err != nil {
		return nil, err
	}

	creds, err := config.NewRegistry(settings.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	sources := buildSources(ctx, creds)
	stores := buildStores(ctx, settings.BaseDir, creds)
	notifier := buildNotifier(ctx, creds)

	runner := orchestrator.NewRunner(
		runnerSettings(inv.Engine),
		sources,
		stores,
		reconcile.NewEngine(reconcile.DefaultSettings()),
		notifier,
	)

	return &Workbench{
		Templates:   inv.Templates,
		Credentials: creds,
		Sources:     sources,
		Stores:      stores,
		Runner:      runner,
		Analyzer:    regime.NewAnalyzer(regime.DefaultSettings(), sources),
	}, nil
}

func runnerSettings(engine config.EngineSettings) orchestrator.Settings {
	settings := orchestrator.DefaultSettings()
	if engine.FreshnessThresholdDays > 0 {
		settings.Audit.FreshnessThresholdDays = engine.FreshnessThresholdDays
	}
	if engine.MinValidDates > 0 {
		settings.Audit.MinValidDates = engine.MinValidDates
	}
	if !engine.BackfillFloor.IsZero() {
		settings.BackfillFloor = engine.BackfillFloor
	}
	return settings
}

func buildSources(ctx context.Context, creds config.Registry) source.Registry {
	logger := zerolog.Ctx(ctx)
	sources := make(map[string]source.Source)

	if c, err := creds.GetSource(ctx, fred.Provider); err != nil {
		logger.Warn().Err(err).Msg("fred source disabled")
	} else {
		sources[fred.Provider] = fred.NewClient(fred.DefaultSettings(c.APIKey))
	}

	if c, err := creds.GetSource(ctx, alphavantage.Provider); err != nil {
		logger.Warn().Err(err).Msg("alphavantage source disabled")
	} else {
		sources[alphavantage.Provider] = alphavantage.NewClient(alphavantage.DefaultSettings(c.APIKey))
	}

	return source.NewRegistry(sources)
}

func buildStores(ctx context.Context, baseDir string, creds config.Registry) snapshot.Registry {
	logger := zerolog.Ctx(ctx)
	stores := map[string]snapshot.Store{
		local.Provider: local.NewStore(baseDir),
	}

	oc, err := creds.GetObjectStore(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("s3 storage disabled")
		return snapshot.NewRegistry(stores)
	}

	var opts []func(*awsconfig.LoadOptions) error
	if oc.Region != "" {
		opts = append(opts, awsconfig.WithRegion(oc.Region))
	}
	if oc.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(oc.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		logger.Warn().Err(err).Msg("s3 storage disabled")
		return snapshot.NewRegistry(stores)
	}

	stores[s3.Provider] = s3.NewStore(awsCfg, oc.Bucket)
	return snapshot.NewRegistry(stores)
}

func buildNotifier(ctx context.Context, creds config.Registry) notify.Notifier {
	tc, err := creds.GetTelegram(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Info().Msg("telegram notifications disabled")
		return notify.Noop{}
	}
	return notify.NewTelegram(notify.DefaultSettings(tc.BotToken, tc.ChatID))
}
