package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/ens-test-env/internal/app"
	"github.com/trebuchet-org/ens-test-env/internal/config"
	"github.com/trebuchet-org/ens-test-env/internal/usecase"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// ExitCodeError carries a non-zero process exit code out of a command
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ens-test-env",
		Short: "Disposable ENS test environment",
		Long: `ens-test-env starts a local chain node, deploys contracts to it, optionally
starts a chain indexer and then runs the configured scripts against the
environment. Everything is torn down when a script finishes or on interrupt.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" || !cmd.Runnable() {
				return nil
			}

			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}

			configFile, _ := cmd.Flags().GetString("config")
			v, err := config.SetupViper(cwd, configFile, cmd)
			if err != nil {
				return err
			}

			cfg, err := config.Load(v, cwd)
			if err != nil {
				return err
			}

			streams := usecase.Streams{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}
			appInstance, err := app.InitApp(cfg, streams)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./ens-test-env.config.{yaml,json,toml})")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "data",
		Title: "Data Commands",
	})

	startCmd := NewStartCmd()
	startCmd.GroupID = "main"
	rootCmd.AddCommand(startCmd)

	killCmd := NewKillCmd()
	killCmd.GroupID = "main"
	rootCmd.AddCommand(killCmd)

	dataCmd := NewDataCmd()
	dataCmd.GroupID = "data"
	rootCmd.AddCommand(dataCmd)

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}

// exitCode turns an orchestrator exit code into a command result
func exitCode(code int) error {
	if code == 0 {
		return nil
	}
	return &ExitCodeError{Code: code}
}
