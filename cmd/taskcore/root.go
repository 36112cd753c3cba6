package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"taskcore/internal/config"
	"taskcore/internal/handlers"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type rootOptions struct {
	configPath   string
	printMetrics bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "taskcore",
		Short:         "Administer a taskcore work item store",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("TASKCORE_CONFIG"), "path to a YAML config file")
	root.PersistentFlags().BoolVar(&opts.printMetrics, "metrics", false, "print operation metrics after the command")

	root.AddCommand(
		versionCmd(),
		configCmd(opts),
		migrateCmd(opts),
		projectCmd(opts),
		itemCmd(opts),
		snapshotCmd(opts),
	)
	return root
}

// run loads configuration, opens the app for the duration of fn and closes
// it again.
func (o *rootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) (err error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		err = errors.Join(err, a.Close(context.WithoutCancel(ctx)))
	}()
	if err := fn(ctx, a); err != nil {
		return err
	}
	if o.printMetrics {
		return writeMetrics(cmd.OutOrStdout(), a)
	}
	return nil
}

func writeMetrics(w io.Writer, a *app) error {
	families, err := a.metrics.Registry().Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// outcomeErr turns a failed mediator outcome into the error the command
// reports.
func outcomeErr(out handlers.Outcome) error {
	if out.Succeeded {
		return nil
	}
	return errors.New(out.Reason)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the taskcore version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "taskcore %s\n", version)
			return err
		},
	}
}

func configCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.Storage.PostgresDSN != "" {
				cfg.Storage.PostgresDSN = "<redacted>"
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func migrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the storage schema",
		Long:  "Open the configured store, creating its schema when missing. Opening is idempotent.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(_ context.Context, a *app) error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "storage ready: %s\n", a.cfg.Storage.Driver)
				return err
			})
		},
	}
}
