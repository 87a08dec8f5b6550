package workbench

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fin-tools/macro-sync/pkg/services/config"
	"github.com/fin-tools/macro-sync/pkg/services/notify"
)

const inventory = `
engine:
  freshness_threshold_days: 14
templates:
  - name: Treasury_Yields
    storage:
      path: Treasury_Yields.xlsx
    columns:
      DGS10: 1
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBuild_WiresConfiguredProviders(t *testing.T) {
	t.Setenv("ALPHAVANTAGE_API_KEY", "")
	t.Setenv("AWS_PROFILE", "")

	dir := t.TempDir()
	templatesPath := writeFile(t, dir, "templates.yaml", inventory)
	credsPath := writeFile(t, dir, "credentials.ini", `
[fred]
api_key = test-key

[s3]
region = us-east-1
bucket = macro-templates
`)

	ctx := zerolog.Nop().WithContext(context.Background())
	wb, err := Build(ctx, Settings{
		TemplatesPath:   templatesPath,
		CredentialsPath: credsPath,
		BaseDir:         dir,
	})
	require.NoError(t, err)

	require.Len(t, wb.Templates, 1)
	assert.Equal(t, "Treasury_Yields", wb.Templates[0].Name)
	assert.ElementsMatch(t, []string{"fred"}, wb.Sources.ListProviders())
	assert.ElementsMatch(t, []string{"local", "s3"}, wb.Stores.ListProviders())
	assert.NotNil(t, wb.Runner)
	assert.NotNil(t, wb.Analyzer)
}

func TestBuild_MissingCredentialsFallsBackToLocal(t *testing.T) {
	t.Setenv("FRED_API_KEY", "")
	t.Setenv("ALPHAVANTAGE_API_KEY", "")
	t.Setenv("S3_BUCKET", "")

	dir := t.TempDir()
	templatesPath := writeFile(t, dir, "templates.yaml", inventory)

	ctx := zerolog.Nop().WithContext(context.Background())
	wb, err := Build(ctx, Settings{
		TemplatesPath:   templatesPath,
		CredentialsPath: filepath.Join(dir, "missing.ini"),
	})
	require.NoError(t, err)

	assert.Empty(t, wb.Sources.ListProviders())
	assert.ElementsMatch(t, []string{"local"}, wb.Stores.ListProviders())
}

func TestBuild_BadInventory(t *testing.T) {
	_, err := Build(context.Background(), Settings{
		TemplatesPath: filepath.Join(t.TempDir(), "nope.yaml"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read templates file")
}

func TestRunnerSettings(t *testing.T) {
	defaults := runnerSettings(config.EngineSettings{})
	assert.Equal(t, 7, defaults.Audit.FreshnessThresholdDays)
	assert.Equal(t, 5, defaults.Audit.MinValidDates)
	assert.Equal(t, time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC), defaults.BackfillFloor)

	tuned := runnerSettings(config.EngineSettings{
		FreshnessThresholdDays: 14,
		MinValidDates:          9,
		BackfillFloor:          time.Date(2010, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, 14, tuned.Audit.FreshnessThresholdDays)
	assert.Equal(t, 9, tuned.Audit.MinValidDates)
	assert.Equal(t, time.Date(2010, time.June, 1, 0, 0, 0, 0, time.UTC), tuned.BackfillFloor)
}

func TestBuildNotifier(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	dir := t.TempDir()
	ctx := zerolog.Nop().WithContext(context.Background())

	creds, err := config.NewRegistry(writeFile(t, dir, "credentials.ini", `
[telegram]
bot_token = 123:abc
chat_id = -100200300
`))
	require.NoError(t, err)
	assert.IsType(t, &notify.Telegram{}, buildNotifier(ctx, creds))

	bare, err := config.NewRegistry(filepath.Join(dir, "missing.ini"))
	require.NoError(t, err)
	assert.Equal(t, notify.Noop{}, buildNotifier(ctx, bare))
}
