package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"corella/internal/ledger"
	"corella/internal/llmmatch"
	"corella/internal/logging"
	"corella/internal/match"
)

// AIMatcher is the disambiguation tier. *llmmatch.Matcher satisfies it.
type AIMatcher interface {
	Match(ctx context.Context, observed *ledger.ObservedRecord, candidates []match.Candidate) (*ledger.MatchRecord, error)
}

// Options controls a run.
type Options struct {
	Tier           Tier
	FuzzyThreshold float64
	AIBandLow      float64

	// Per-tier caps on how many records the tier examines. Zero means
	// unlimited. Records past a cap are deferred for the rest of the run.
	DirectLimit int
	FuzzyLimit  int
	AILimit     int
}

// Runner executes the resolution tiers over the unmatched backlog and writes
// accepted matches to the ledger.
type Runner struct {
	store  *ledger.Store
	ai     AIMatcher
	opts   Options
	logger *slog.Logger
}

// NewRunner builds a Runner. ai may be nil when disambiguation is disabled.
func NewRunner(store *ledger.Store, ai AIMatcher, opts Options, logger *slog.Logger) *Runner {
	if opts.Tier == "" {
		opts.Tier = TierAll
	}
	return &Runner{
		store:  store,
		ai:     ai,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
}

// workItem tracks one observed record through the run.
type workItem struct {
	record     *ledger.ObservedRecord
	state      State
	deferred   bool
	candidates []match.Candidate
	bestSim    float64
}

// Run loads the registry snapshot and unmatched backlog once, then executes
// the enabled tiers in order. Tiers never interleave: every record sees the
// direct tier before any record sees the fuzzy tier.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:   uuid.NewString(),
		Started: time.Now().UTC(),
	}
	logger := r.logger.With(logging.String(logging.FieldRunID, summary.RunID))

	entities, err := r.store.ActiveEntities(ctx)
	if err != nil {
		return summary, err
	}
	index := match.NewIndex(entities)
	direct := match.NewDirectMatcher(entities)
	fuzzy := match.NewFuzzyMatcher(index, r.opts.FuzzyThreshold, r.opts.AIBandLow)

	records, err := r.store.UnmatchedObserved(ctx, 0)
	if err != nil {
		return summary, err
	}

	items := make([]*workItem, len(records))
	for i, record := range records {
		items[i] = &workItem{record: record, state: StatePending}
	}

	logger.Info("run started",
		logging.Int("backlog", len(items)),
		logging.Int("registry_entities", index.Size()),
		logging.String("tier", string(r.opts.Tier)))

	if r.opts.Tier.includes(TierDirect) {
		if err := r.runDirect(ctx, logger, items, direct, summary); err != nil {
			return r.finish(logger, items, summary), err
		}
	}
	if r.opts.Tier.includes(TierFuzzy) {
		if err := r.runFuzzy(ctx, logger, items, fuzzy, summary); err != nil {
			return r.finish(logger, items, summary), err
		}
	}
	if r.opts.Tier.includes(TierAI) && r.ai != nil {
		if err := r.runAI(ctx, logger, items, fuzzy, summary); err != nil {
			return r.finish(logger, items, summary), err
		}
	}

	return r.finish(logger, items, summary), nil
}

func (r *Runner) runDirect(ctx context.Context, logger *slog.Logger, items []*workItem, direct *match.DirectMatcher, summary *Summary) error {
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if item.state != StatePending {
			continue
		}
		if r.opts.DirectLimit > 0 && summary.DirectExamined >= r.opts.DirectLimit {
			item.deferred = true
			continue
		}
		summary.DirectExamined++

		rec := direct.Match(item.record)
		if rec == nil {
			item.state = StateDirectAttempted
			continue
		}
		if err := r.persist(ctx, logger, item, rec, summary); err != nil {
			return err
		}
		if item.state == StateResolved {
			summary.DirectMatched++
		}
	}
	return nil
}

func (r *Runner) runFuzzy(ctx context.Context, logger *slog.Logger, items []*workItem, fuzzy *match.FuzzyMatcher, summary *Summary) error {
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if item.deferred || (item.state != StatePending && item.state != StateDirectAttempted) {
			continue
		}
		if r.opts.FuzzyLimit > 0 && summary.FuzzyExamined >= r.opts.FuzzyLimit {
			item.deferred = true
			continue
		}
		summary.FuzzyExamined++

		outcome := fuzzy.Match(item.record)
		item.candidates = outcome.Candidates
		item.bestSim = outcome.Best
		if outcome.Record == nil {
			item.state = StateFuzzyAttempted
			continue
		}
		if err := r.persist(ctx, logger, item, outcome.Record, summary); err != nil {
			return err
		}
		if item.state == StateResolved {
			summary.FuzzyMatched++
		}
	}
	return nil
}

func (r *Runner) runAI(ctx context.Context, logger *slog.Logger, items []*workItem, fuzzy *match.FuzzyMatcher, summary *Summary) error {
	fuzzyRan := r.opts.Tier.includes(TierFuzzy)

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if item.deferred || item.state == StateResolved || item.state == StateUnmatched {
			continue
		}

		// When the fuzzy tier was skipped, score the record now to build
		// the shortlist it would have produced.
		if !fuzzyRan {
			outcome := fuzzy.Match(item.record)
			item.candidates = outcome.Candidates
			item.bestSim = outcome.Best
		}

		// Eligibility: some website context to reason over and a best
		// similarity inside the ambiguous band (the shortlist is only
		// populated for that band).
		if item.record.Context == "" || len(item.candidates) == 0 {
			continue
		}

		if r.opts.AILimit > 0 && summary.AIExamined >= r.opts.AILimit {
			item.deferred = true
			continue
		}
		summary.AIExamined++

		rec, err := r.ai.Match(ctx, item.record, item.candidates)
		if errors.Is(err, llmmatch.ErrBudgetExhausted) {
			summary.BudgetExhausted = true
			logger.Warn("model call budget exhausted, skipping remaining records")
			return nil
		}
		summary.AICallsUsed++
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			summary.Failures = append(summary.Failures, RecordFailure{ObservedID: item.record.ID, Err: err})
			logger.Warn("disambiguation failed, record skipped",
				logging.Int64(logging.FieldObserved, item.record.ID),
				logging.Error(err))
			item.state = StateAIAttempted
			continue
		}

		if rec == nil {
			item.state = StateAIAttempted
			continue
		}
		if err := r.persist(ctx, logger, item, rec, summary); err != nil {
			return err
		}
		if item.state == StateResolved {
			summary.AIMatched++
		}
	}
	return nil
}

func (r *Runner) persist(ctx context.Context, logger *slog.Logger, item *workItem, rec *ledger.MatchRecord, summary *Summary) error {
	rec.RunID = summary.RunID
	stored, err := r.store.RecordMatch(ctx, rec)
	if err != nil {
		return err
	}
	if !stored {
		summary.AlreadyRecorded++
	}
	item.state = StateResolved
	logger.Info("record resolved",
		logging.Int64(logging.FieldObserved, rec.ObservedID),
		logging.String("abn", rec.ABN),
		logging.String(logging.FieldMethod, string(rec.Method)),
		logging.Float64("confidence", rec.Confidence))
	return nil
}

func (r *Runner) finish(logger *slog.Logger, items []*workItem, summary *Summary) *Summary {
	for _, item := range items {
		if item.deferred {
			summary.Deferred++
			continue
		}
		if item.state != StateResolved {
			item.state = StateUnmatched
		}
	}
	summary.Finished = time.Now().UTC()

	logger.Info("run finished",
		logging.Int("matched", summary.TotalMatched()),
		logging.Int("deferred", summary.Deferred),
		logging.Int("failures", len(summary.Failures)),
		logging.Bool("budget_exhausted", summary.BudgetExhausted),
		logging.Duration("elapsed", summary.Duration()))
	return summary
}
