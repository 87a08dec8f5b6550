package main

import (
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fin-tools/macro-sync/pkg/server"
	"github.com/fin-tools/macro-sync/pkg/services/orchestrator"
	"github.com/fin-tools/macro-sync/pkg/services/workbench"
	"github.com/fin-tools/macro-sync/pkg/store/duckdb"
	"github.com/fin-tools/macro-sync/pkg/store/duckdb/history"
)

var (
	templatesPath   string
	credentialsPath string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the macro-sync web service",
		RunE:  runServer,
	}

	defaultCreds := ".macrosync.cfg"
	if usr, err := user.Current(); err == nil {
		defaultCreds = filepath.Join(usr.HomeDir, ".macrosync.cfg")
	}

	rootCmd.Flags().StringVarP(&templatesPath, "templates", "t", "templates.yaml",
		"Path to the YAML template inventory")
	rootCmd.Flags().StringVarP(&credentialsPath, "credentials", "c", defaultCreds,
		"Path to the INI credentials file (default is $HOME/.macrosync.cfg)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	wb, err := workbench.Build(ctx, workbench.Settings{
		TemplatesPath:   templatesPath,
		CredentialsPath: credentialsPath,
	})
	if err != nil {
		return fmt.Errorf("failed to build workbench: %w", err)
	}

	dbPath := os.Getenv("MACROSYNC_DB")
	if dbPath == "" {
		dbPath = "macrosync.db"
	}
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: dbPath})
	if err != nil {
		return fmt.Errorf("failed to create DuckDB instance: %w", err)
	}

	historyStore, err := history.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create history store: %w", err)
	}
	recorder := history.NewRecorder(historyStore)
	controller := orchestrator.NewController(wb.Runner, recorder)

	logger.Info().Msgf("Loaded %d templates from `%s`.", len(wb.Templates), templatesPath)
	profiles, _ := wb.Credentials.GetProfiles(ctx)
	for _, profile := range profiles {
		logger.Info().Msgf("Credential profile `%s` (%s)", profile.Name, profile.Kind)
	}

	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")

	if host == "" || port == "" {
		logger.Error().Msgf("Missing server configuration from .env file")
		os.Exit(1)
	}

	api := server.NewWebAPI(server.Config{
		Addr:            net.JoinHostPort(host, port),
		ShutdownTimeout: 10 * time.Second,
		Dependencies: server.Dependencies{
			Templates:  wb.Templates,
			Controller: controller,
			Auditor:    wb.Runner,
			History:    recorder,
			Assessor:   wb.Analyzer,
			Logger:     logger,
		},
	})

	return api.Start()
}
