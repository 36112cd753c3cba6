package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"taskcore/internal/handlers"
	"taskcore/pkg/domain"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	statuses = []domain.WorkItemStatus{
		domain.StatusBacklog, domain.StatusReady, domain.StatusInProgress, domain.StatusBlocked,
		domain.StatusInReview, domain.StatusDone, domain.StatusArchived,
	}
	priorities = []domain.Priority{
		domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityCritical,
	}
)

// parseEnum matches raw against known values ignoring case, so "inprogress"
// selects InProgress.
func parseEnum[T ~string](raw string, known []T) (T, error) {
	for _, v := range known {
		if strings.EqualFold(string(v), raw) {
			return v, nil
		}
	}
	names := make([]string, len(known))
	for i, v := range known {
		names[i] = string(v)
	}
	var zero T
	return zero, fmt.Errorf("unknown value %q, want one of %s", raw, strings.Join(names, ", "))
}

func itemCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Create, list and move work items",
	}
	cmd.AddCommand(itemAddCmd(opts), itemListCmd(opts), itemMoveCmd(opts))
	return cmd
}

func itemAddCmd(opts *rootOptions) *cobra.Command {
	var (
		priority    string
		description string
		tags        []string
	)
	cmd := &cobra.Command{
		Use:   "add PROJECT_KEY TITLE",
		Short: "Create a work item in the backlog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				req := handlers.CreateWorkItem{Title: args[1], Description: description, Tags: tags}
				if priority != "" {
					p, err := parseEnum(priority, priorities)
					if err != nil {
						return err
					}
					req.Priority = p
				}
				projectID, err := projectByKey(ctx, a.mediator, args[0])
				if err != nil {
					return err
				}
				req.ProjectID = projectID
				item, out := handlers.SendAs[*domain.WorkItem](ctx, a.mediator, req)
				if err := outcomeErr(out); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", item.ID(), item.Status())
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "low, medium, high or critical")
	cmd.Flags().StringVarP(&description, "description", "d", "", "longer description")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag to attach (repeatable)")
	return cmd
}

func itemListCmd(opts *rootOptions) *cobra.Command {
	var (
		projectKey string
		status     string
		tag        string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				filter := domain.WorkItemFilter{Tag: tag}
				if projectKey != "" {
					id, err := projectByKey(ctx, a.mediator, projectKey)
					if err != nil {
						return err
					}
					filter.ProjectID = &id
				}
				if status != "" {
					s, err := parseEnum(status, statuses)
					if err != nil {
						return err
					}
					filter.Status = &s
				}
				items, out := handlers.AskAs[[]*domain.WorkItem](ctx, a.mediator, handlers.ListWorkItems{Filter: filter})
				if err := outcomeErr(out); err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tTITLE\tTAGS")
				for _, item := range items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", item.ID(), item.Status(), item.Priority(), item.Title(), strings.Join(item.Tags(), ","))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&projectKey, "project", "", "only items of this project key")
	cmd.Flags().StringVar(&status, "status", "", "only items in this status")
	cmd.Flags().StringVar(&tag, "tag", "", "only items carrying this tag")
	return cmd
}

func itemMoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move ITEM_ID STATUS",
		Short: "Change a work item's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid item id %q: %w", args[0], err)
			}
			status, err := parseEnum(args[1], statuses)
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, a *app) error {
				current, out := handlers.AskAs[*domain.WorkItem](ctx, a.mediator, handlers.GetWorkItem{ItemID: id})
				if err := outcomeErr(out); err != nil {
					return err
				}
				item, out := handlers.SendAs[*domain.WorkItem](ctx, a.mediator, handlers.ChangeWorkItemStatus{
					ItemID: id,
					Status: status,
					Token:  current.Token(),
				})
				if err := outcomeErr(out); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", item.ID(), item.Status())
				return err
			})
		},
	}
}
