package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"loom/internal/proposal"
)

func newProposalCommand(ctx *commandContext) *cobra.Command {
	proposalCmd := &cobra.Command{
		Use:   "proposal",
		Short: "Review and decide governed change proposals",
	}

	proposalCmd.AddCommand(newProposalListCommand(ctx))
	proposalCmd.AddCommand(newProposalShowCommand(ctx))
	proposalCmd.AddCommand(newProposalApproveCommand(ctx))
	proposalCmd.AddCommand(newProposalRejectCommand(ctx))

	return proposalCmd
}

func newProposalListCommand(ctx *commandContext) *cobra.Command {
	var (
		basketID string
		status   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List proposals awaiting review or already decided",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProposals(func(service *proposal.Service) error {
				proposals, err := service.Store().List(cmd.Context(), basketID, proposal.Status(status))
				if err != nil {
					return err
				}
				if len(proposals) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No proposals")
					return nil
				}

				useColor := shouldColorize(cmd.OutOrStdout())
				rows := make([][]string, 0, len(proposals))
				for _, p := range proposals {
					confidence := ""
					conflicts := ""
					if p.Report != nil {
						confidence = strconv.FormatFloat(p.Report.Confidence, 'f', 2, 64)
						conflicts = strconv.Itoa(len(p.Report.Conflicts))
					}
					rows = append(rows, []string{
						shortID(p.ID),
						p.BasketID,
						colorize(string(p.Status), statusColor(string(p.Status)), useColor),
						proposal.Summarize(p),
						confidence,
						conflicts,
						p.CreatedAt.Local().Format(time.DateTime),
					})
				}
				out := renderTable(
					[]string{"ID", "Basket", "Status", "Operations", "Confidence", "Conflicts", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&basketID, "basket", "b", "", "Filter by basket")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (proposed, approved, rejected, executed)")

	return cmd
}

func newProposalShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one proposal in full, validator report included",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProposals(func(service *proposal.Service) error {
				id, err := resolveProposalID(cmd, service, args[0])
				if err != nil {
					return err
				}
				p, err := service.Store().GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Proposal %s\n", p.ID)
				fmt.Fprintf(out, "  Basket:   %s\n", p.BasketID)
				fmt.Fprintf(out, "  Status:   %s\n", p.Status)
				fmt.Fprintf(out, "  Kind:     %s (origin %s)\n", p.Kind, p.Origin)
				fmt.Fprintf(out, "  Created:  %s\n", p.CreatedAt.Local().Format(time.DateTime))
				if p.ReviewReason != "" {
					fmt.Fprintf(out, "  Reason:   %s\n", p.ReviewReason)
				}
				if p.ExecutedAt != nil {
					fmt.Fprintf(out, "  Executed: %s\n", p.ExecutedAt.Local().Format(time.DateTime))
				}

				fmt.Fprintln(out, "Operations:")
				for i, op := range p.Ops {
					data, err := json.Marshal(op)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "  %d. %s\n", i+1, data)
				}

				if p.Report != nil {
					fmt.Fprintf(out, "Validator report (confidence %.2f):\n", p.Report.Confidence)
					fmt.Fprintf(out, "  Impact: %s\n", p.Report.ImpactSummary)
					for _, conflict := range p.Report.Conflicts {
						fmt.Fprintf(out, "  Conflict: %s with %s (%q, similarity %.2f)\n",
							conflict.ConflictType, conflict.ExistingID, conflict.ExistingTitle, conflict.SimilarityScore)
					}
					for _, merge := range p.Report.SuggestedMerges {
						fmt.Fprintf(out, "  Suggested merge: %s (%q, similarity %.2f)\n",
							merge.ExistingID, merge.ExistingTitle, merge.SimilarityScore)
					}
					for _, warning := range p.Report.Warnings {
						fmt.Fprintf(out, "  Warning: %s\n", warning)
					}
				}

				if len(p.ExecutionLog) > 0 {
					fmt.Fprintln(out, "Execution log:")
					for _, line := range p.ExecutionLog {
						if line.Succeeded {
							fmt.Fprintf(out, "  %d. %s -> %s\n", line.Index+1, line.Type, line.UnitID)
						} else {
							fmt.Fprintf(out, "  %d. %s FAILED: %s\n", line.Index+1, line.Type, line.Error)
						}
					}
				}
				return nil
			})
		},
	}
}

func newProposalApproveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a proposal and execute its operations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProposals(func(service *proposal.Service) error {
				id, err := resolveProposalID(cmd, service, args[0])
				if err != nil {
					return err
				}
				executed, err := service.Approve(cmd.Context(), id)
				if err != nil {
					return err
				}
				succeeded := 0
				for _, line := range executed.ExecutionLog {
					if line.Succeeded {
						succeeded++
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Approved and executed %s: %d/%d operations applied\n",
					shortID(executed.ID), succeeded, len(executed.ExecutionLog))
				return nil
			})
		},
	}
}

func newProposalRejectCommand(ctx *commandContext) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a proposal without touching the substrate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withProposals(func(service *proposal.Service) error {
				id, err := resolveProposalID(cmd, service, args[0])
				if err != nil {
					return err
				}
				rejected, err := service.Reject(cmd.Context(), id, reason)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rejected %s\n", shortID(rejected.ID))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Review reason recorded on the proposal")

	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveProposalID accepts either a full proposal id or an unambiguous
// prefix, as printed by `proposal list`.
func resolveProposalID(cmd *cobra.Command, service *proposal.Service, arg string) (string, error) {
	if _, err := service.Store().GetByID(cmd.Context(), arg); err == nil {
		return arg, nil
	}
	all, err := service.Store().List(cmd.Context(), "", "")
	if err != nil {
		return "", err
	}
	var match string
	for _, p := range all {
		if strings.HasPrefix(p.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("proposal id prefix %q is ambiguous", arg)
			}
			match = p.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", proposal.ErrNotFound, arg)
	}
	return match, nil
}
