package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/ens-test-env/internal/cli/render"
	"github.com/trebuchet-org/ens-test-env/internal/config"
)

// NewStartCmd creates the start command
func NewStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the environment and run the configured scripts",
		Long: `Start the chain node, run the deploy command and build, start the indexer
and run the configured scripts.

The environment is torn down when a finish-on-exit script exits, when any
script fails, when a container exits unexpectedly or on Ctrl-C. A second
Ctrl-C forces the teardown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			if err := config.CheckComposeServices(app.Config); err != nil {
				return err
			}
			if app.Config.Options.Verbosity >= 1 {
				if err := render.NewConfigRenderer(cmd.OutOrStdout()).RenderConfig(app.Config); err != nil {
					return err
				}
			}

			orchestrator := app.Orchestrator
			ctx := cmd.Context()

			signals := make(chan os.Signal, 2)
			signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(signals)
			defer orchestrator.Abandon()

			go func() {
				for {
					select {
					case <-signals:
						orchestrator.Interrupt(ctx)
					case <-orchestrator.Done():
						return
					}
				}
			}()

			return exitCode(orchestrator.Run(ctx))
		},
	}

	cmd.Flags().IntP("verbosity", "v", 0, "Output verbosity: 0 quiet, 1 verbose, 2 very verbose")
	cmd.Flags().Int64P("extra-time", "a", 0, "Start the chain this many seconds in the past, then fast-forward to now after deploying")
	cmd.Flags().BoolP("kill-gracefully", "k", false, "Stop containers gracefully instead of killing them")
	cmd.Flags().Bool("no-build", false, "Skip the build command")
	cmd.Flags().Bool("no-scripts", false, "Skip the configured scripts")
	cmd.Flags().Bool("no-indexer", false, "Do not start the indexer")
	cmd.Flags().Bool("exit-after-deploy", false, "Tear down right after the contracts are deployed")
	cmd.Flags().BoolP("save", "s", false, "Compress the data directory into the archive after a graceful teardown")

	return cmd
}
