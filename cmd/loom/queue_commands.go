package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"loom/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the work queue",
	}

	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"health"},
		Short:   "Show queue health grouped by stage and state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(store *queue.Store) error {
				summary, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				if summary.Total == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				useColor := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(summary.ByGroup))
				for _, group := range summary.ByGroup {
					state := colorize(string(group.State), statusColor(string(group.State)), useColor)
					rows = append(rows, []string{string(group.WorkType), state, strconv.Itoa(group.Count)})
				}
				out := renderTable(
					[]string{"Stage", "State", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				fmt.Fprintf(cmd.OutOrStdout(), "total %d | pending %d | in-flight %d | completed %d | failed %d\n",
					summary.Total, summary.Pending, summary.InFlight, summary.Completed, summary.Failed)
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var (
		stateFilters []string
		basketID     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(store *queue.Store) error {
				var (
					entries []*queue.Entry
					err     error
				)
				if basketID != "" {
					entries, err = store.ListByBasket(cmd.Context(), basketID)
				} else {
					states := make([]queue.State, 0, len(stateFilters))
					for _, raw := range stateFilters {
						state, ok := queue.ParseState(raw)
						if !ok {
							return fmt.Errorf("unknown state %q", raw)
						}
						states = append(states, state)
					}
					entries, err = store.List(cmd.Context(), states...)
				}
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				useColor := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						strconv.FormatInt(entry.ID, 10),
						string(entry.WorkType),
						entry.BasketID,
						colorize(string(entry.State), statusColor(string(entry.State)), useColor),
						strconv.Itoa(entry.Attempts),
						entry.CreatedAt.Local().Format(time.DateTime),
						entry.ErrorMessage,
					})
				}
				out := renderTable(
					[]string{"ID", "Stage", "Basket", "State", "Attempts", "Created", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&stateFilters, "state", nil, "Filter by state (pending, claimed, processing, cascading, completed, failed)")
	cmd.Flags().StringVarP(&basketID, "basket", "b", "", "Show all entries for one basket")

	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Return failed entries to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid entry id %q", arg)
				}
				ids = append(ids, id)
			}
			return ctx.withQueue(func(store *queue.Store) error {
				count, err := store.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d entries\n", count)
				return nil
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var (
		clearFailed    bool
		clearCompleted bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove queue entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(func(store *queue.Store) error {
				var (
					count int64
					err   error
				)
				switch {
				case clearFailed:
					count, err = store.ClearFailed(cmd.Context())
				case clearCompleted:
					count, err = store.ClearCompleted(cmd.Context())
				default:
					count, err = store.Clear(cmd.Context())
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", count)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed entries")
	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed entries")

	return cmd
}
