package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"corella/internal/config"
	"corella/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and manage the match ledger",
	}

	ledgerCmd.AddCommand(newLedgerListCommand(ctx))
	ledgerCmd.AddCommand(newLedgerStatsCommand(ctx))
	ledgerCmd.AddCommand(newLedgerClearCommand(ctx))

	return ledgerCmd
}

func newLedgerListCommand(ctx *commandContext) *cobra.Command {
	var methodFlag string
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			var method ledger.Method
			if methodFlag != "" {
				parsed, ok := ledger.ParseMethod(methodFlag)
				if !ok {
					return fmt.Errorf("unknown method %q (expected one of %s)", methodFlag, methodNames())
				}
				method = parsed
			}

			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				matches, err := store.ListMatches(cmd.Context(), method, limitFlag)
				if err != nil {
					return err
				}
				if len(matches) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No matches recorded")
					return nil
				}

				rows := make([][]string, 0, len(matches))
				for _, rec := range matches {
					rows = append(rows, []string{
						fmt.Sprintf("%d", rec.ObservedID),
						rec.ABN,
						string(rec.Method),
						fmt.Sprintf("%.2f", rec.Confidence),
						rec.CreatedAt.Local().Format(time.DateTime),
						rec.Reasoning,
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Observed", "ABN", "Method", "Confidence", "Recorded", "Reasoning"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&methodFlag, "method", "m", "", "Filter by match method")
	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 50, "Maximum rows to show (0 for all)")
	return cmd
}

func newLedgerStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-method match statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				stats, err := store.MatchStats(cmd.Context())
				if err != nil {
					return err
				}
				if len(stats) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Ledger is empty")
					return nil
				}

				rows := make([][]string, 0, len(stats))
				for _, entry := range stats {
					rows = append(rows, []string{
						string(entry.Method),
						fmt.Sprintf("%d", entry.Count),
						fmt.Sprintf("%.3f", entry.AvgConfidence),
						fmt.Sprintf("%.3f", entry.MinConfidence),
						fmt.Sprintf("%.3f", entry.MaxConfidence),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Method", "Count", "Avg", "Min", "Max"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func newLedgerClearCommand(ctx *commandContext) *cobra.Command {
	var confirmFlag bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every match record",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmFlag {
				return fmt.Errorf("refusing to clear the ledger without --yes")
			}
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				removed, err := store.ClearMatches(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d match records\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&confirmFlag, "yes", "y", false, "Confirm deletion")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backlog and ledger counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				observed, entities, err := store.SnapshotCounts(cmd.Context())
				if err != nil {
					return err
				}
				matched, err := store.CountMatches(cmd.Context())
				if err != nil {
					return err
				}
				unmatched, err := store.UnmatchedObserved(cmd.Context(), 0)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Ledger database: %s\n", store.Path())
				fmt.Fprintf(out, "Observed records: %d\n", observed)
				fmt.Fprintf(out, "Register entities: %d\n", entities)
				fmt.Fprintf(out, "Matches recorded: %d\n", matched)
				fmt.Fprintf(out, "Unmatched backlog: %d\n", len(unmatched))
				return nil
			})
		},
	}
}

func methodNames() string {
	methods := ledger.AllMethods()
	names := make([]string, 0, len(methods))
	for _, method := range methods {
		names = append(names, string(method))
	}
	return strings.Join(names, ", ")
}
