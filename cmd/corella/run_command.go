package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"corella/internal/config"
	"corella/internal/ledger"
	"corella/internal/llmmatch"
	"corella/internal/logging"
	"corella/internal/pipeline"
	"corella/internal/services/llm"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var tierFlag string
	var checkFlag bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Resolve the unmatched backlog against the register snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := pipeline.ParseTier(tierFlag)
			if err != nil {
				return err
			}

			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("build logger: %w", err)
				}

				// One run at a time per data directory.
				lock := flock.New(filepath.Join(cfg.Paths.DataDir, "corella.lock"))
				locked, err := lock.TryLock()
				if err != nil {
					return fmt.Errorf("acquire run lock: %w", err)
				}
				if !locked {
					return fmt.Errorf("another run is already in progress (lock held at %s)", lock.Path())
				}
				defer lock.Unlock()

				var ai pipeline.AIMatcher
				if cfg.LLM.Enabled {
					client := llm.NewClient(llm.Config{
						APIKey:         cfg.LLM.APIKey,
						BaseURL:        cfg.LLM.BaseURL,
						Model:          cfg.LLM.Model,
						TimeoutSeconds: cfg.LLM.TimeoutSeconds,
					},
						llm.WithRetryMaxAttempts(cfg.LLM.RetryCount+1),
						llm.WithRetryBackoff(time.Duration(cfg.LLM.RetryBackoffMS)*time.Millisecond, 10*time.Second),
					)
					if checkFlag {
						if err := client.HealthCheck(cmd.Context()); err != nil {
							return fmt.Errorf("llm health check: %w", err)
						}
						fmt.Fprintln(cmd.OutOrStdout(), "LLM endpoint reachable")
					}
					budget := llmmatch.NewCallBudget(
						cfg.LLM.CallCap,
						time.Duration(cfg.LLM.MinCallIntervalMS)*time.Millisecond,
					)
					ai = llmmatch.NewMatcher(client, budget, cfg.Matching.AIAcceptFloor, logger)
				} else if checkFlag {
					return fmt.Errorf("--check requires llm.enabled = true")
				}

				runner := pipeline.NewRunner(store, ai, pipeline.Options{
					Tier:           tier,
					FuzzyThreshold: cfg.Matching.FuzzyThreshold,
					AIBandLow:      cfg.Matching.AIBandLow,
					DirectLimit:    cfg.Matching.DirectLimit,
					FuzzyLimit:     cfg.Matching.FuzzyLimit,
					AILimit:        cfg.Matching.AILimit,
				}, logger)

				summary, err := runner.Run(cmd.Context())
				if err != nil {
					return err
				}

				printSummary(cmd, summary)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&tierFlag, "tier", "t", "all", "Tiers to run: all, direct, fuzzy, or ai")
	cmd.Flags().BoolVar(&checkFlag, "check", false, "Verify the LLM endpoint before running")
	return cmd
}

func printSummary(cmd *cobra.Command, summary *pipeline.Summary) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Run %s finished in %s\n\n", summary.RunID, summary.Duration().Round(time.Millisecond))

	rows := [][]string{
		{"direct", fmt.Sprintf("%d", summary.DirectExamined), fmt.Sprintf("%d", summary.DirectMatched)},
		{"fuzzy", fmt.Sprintf("%d", summary.FuzzyExamined), fmt.Sprintf("%d", summary.FuzzyMatched)},
		{"ai", fmt.Sprintf("%d", summary.AIExamined), fmt.Sprintf("%d", summary.AIMatched)},
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Tier", "Examined", "Matched"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	))

	fmt.Fprintf(out, "\nTotal matched: %d\n", summary.TotalMatched())
	if summary.Deferred > 0 {
		fmt.Fprintf(out, "Deferred by tier limits: %d\n", summary.Deferred)
	}
	if summary.AlreadyRecorded > 0 {
		fmt.Fprintf(out, "Already recorded: %d\n", summary.AlreadyRecorded)
	}
	if summary.BudgetExhausted {
		fmt.Fprintf(out, "Model call budget exhausted after %d calls\n", summary.AICallsUsed)
	}
	for _, failure := range summary.Failures {
		fmt.Fprintf(out, "Record %d skipped: %v\n", failure.ObservedID, failure.Err)
	}
}
