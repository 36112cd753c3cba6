package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"taskcore/internal/handlers"
	"taskcore/pkg/domain"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func projectCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create and list projects",
	}

	var color string
	add := &cobra.Command{
		Use:   "add NAME KEY",
		Short: "Create a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				req := handlers.CreateProject{Name: args[0], Key: args[1]}
				if color != "" {
					req.Color = &color
				}
				p, out := handlers.SendAs[*domain.Project](ctx, a.mediator, req)
				if err := outcomeErr(out); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.ID(), p.Key())
				return err
			})
		},
	}
	add.Flags().StringVar(&color, "color", "", "display color, e.g. #3366ff")

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				projects, out := handlers.AskAs[[]*domain.Project](ctx, a.mediator, handlers.ListProjects{})
				if err := outcomeErr(out); err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tNAME\tFEATURES\tID")
				for _, p := range projects {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.Key(), p.Name(), len(p.Features()), p.ID())
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

// projectByKey resolves a project key to its id.
func projectByKey(ctx context.Context, m *handlers.Mediator, key string) (uuid.UUID, error) {
	p, out := handlers.AskAs[*domain.Project](ctx, m, handlers.GetProject{Key: key})
	if err := outcomeErr(out); err != nil {
		return uuid.Nil, err
	}
	return p.ID(), nil
}
