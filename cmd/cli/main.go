package main

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fin-tools/macro-sync/pkg/runtime/terminal"
	"github.com/fin-tools/macro-sync/pkg/services/workbench"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cli := terminal.NewCLI(terminal.Options{
		Factory: func(ctx context.Context, configPath string) (*workbench.Workbench, error) {
			return workbench.Build(ctx, workbench.Settings{
				TemplatesPath:   configPath,
				CredentialsPath: credentialsPath(),
			})
		},
		Output: os.Stdout,
		Logger: logger,
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// credentialsPath locates the INI credentials file: the MACROSYNC_CREDENTIALS
// override, then ~/.macrosync.cfg. The file is optional; every credential can
// come from the environment instead.
func credentialsPath() string {
	if path := os.Getenv("MACROSYNC_CREDENTIALS"); path != "" {
		return path
	}
	usr, err := user.Current()
	if err != nil {
		return ".macrosync.cfg"
	}
	return filepath.Join(usr.HomeDir, ".macrosync.cfg")
}
