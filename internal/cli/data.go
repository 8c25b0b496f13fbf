package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewDataCmd creates the data command and its subcommands
func NewDataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Manage the node data directory",
		Long: `Manage the node data directory and its compressed archive.

Available subcommands:
  data load        Replace the data directory with the archive contents
  data compress    Compress the data directory into the archive
  data clean       Remove the data directory`,
	}

	cmd.AddCommand(newDataSubCmd("load", "Replace the data directory with the archive contents",
		func(ctx context.Context, app archiveApp) error { return app.Load(ctx) }))
	cmd.AddCommand(newDataSubCmd("compress", "Compress the data directory into the archive",
		func(ctx context.Context, app archiveApp) error { return app.Compress(ctx) }))
	cmd.AddCommand(newDataSubCmd("clean", "Remove the data directory",
		func(ctx context.Context, app archiveApp) error { return app.Clean(ctx) }))

	return cmd
}

type archiveApp interface {
	Load(ctx context.Context) error
	Compress(ctx context.Context) error
	Clean(ctx context.Context) error
}

func newDataSubCmd(use, short string, run func(context.Context, archiveApp) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), app.Archive)
		},
	}
}
