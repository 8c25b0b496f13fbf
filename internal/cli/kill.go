package cli

import (
	"github.com/spf13/cobra"
)

// NewKillCmd creates the kill command
func NewKillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill",
		Short: "Kill and remove the environment containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			return exitCode(app.Orchestrator.Kill(cmd.Context()))
		},
	}
}
