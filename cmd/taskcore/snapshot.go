package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func snapshotCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export, list and restore store snapshots",
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of the whole store to the blob store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				exporter, err := a.exporter(ctx)
				if err != nil {
					return err
				}
				info, err := exporter.Export(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d bytes\n", info.Key, info.Size)
				return err
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List exported snapshots, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				exporter, err := a.exporter(ctx)
				if err != nil {
					return err
				}
				infos, err := exporter.List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tSIZE\tWRITTEN")
				for _, info := range infos {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", info.Key, info.Size, info.LastModified.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}

	restore := &cobra.Command{
		Use:   "restore [KEY]",
		Short: "Load a snapshot into the configured store",
		Long: `Load a snapshot into the configured store in one transaction. Without KEY
the most recent snapshot is used. The store must not already hold any of
the snapshot's records; on conflict nothing is written.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				exporter, err := a.exporter(ctx)
				if err != nil {
					return err
				}
				var key string
				if len(args) == 1 {
					key = args[0]
				} else if key, err = exporter.Latest(ctx); err != nil {
					return fmt.Errorf("no snapshot to restore: %w", err)
				}
				snap, err := exporter.Restore(ctx, key, a.store)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "restored %s: %d projects, %d work items\n", key, len(snap.Projects), len(snap.WorkItems))
				return err
			})
		},
	}

	cmd.AddCommand(export, list, restore)
	return cmd
}
