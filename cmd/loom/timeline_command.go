package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"loom/internal/substrate"
)

func newTimelineCommand(ctx *commandContext) *cobra.Command {
	var eventType string

	cmd := &cobra.Command{
		Use:   "timeline <basket>",
		Short: "Show a basket's timeline, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSubstrate(func(store *substrate.Store) error {
				events, err := store.ListEvents(cmd.Context(), args[0], eventType)
				if err != nil {
					return err
				}
				if len(events) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No timeline events")
					return nil
				}

				rows := make([][]string, 0, len(events))
				for _, event := range events {
					rows = append(rows, []string{
						strconv.FormatInt(event.ID, 10),
						event.CreatedAt.Local().Format(time.DateTime),
						event.EventType,
						event.PayloadJSON,
					})
				}
				out := renderTable(
					[]string{"ID", "Time", "Event", "Payload"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&eventType, "type", "", "Filter by event type")

	return cmd
}
