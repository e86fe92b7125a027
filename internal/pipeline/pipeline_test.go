package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"corella/internal/ledger"
	"corella/internal/llmmatch"
	"corella/internal/logging"
	"corella/internal/match"
	"corella/internal/pipeline"
	"corella/internal/testsupport"
)

type fakeAI struct {
	fn    func(observed *ledger.ObservedRecord, candidates []match.Candidate) (*ledger.MatchRecord, error)
	calls int
}

func (f *fakeAI) Match(_ context.Context, observed *ledger.ObservedRecord, candidates []match.Candidate) (*ledger.MatchRecord, error) {
	f.calls++
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(observed, candidates)
}

func defaultOptions() pipeline.Options {
	return pipeline.Options{
		Tier:           pipeline.TierAll,
		FuzzyThreshold: 0.85,
		AIBandLow:      0.60,
	}
}

func seedRegistry(t *testing.T, store *ledger.Store) {
	t.Helper()
	testsupport.NewEntity(t, store, ledger.RegistryEntity{ABN: "11111111111", Name: "Acme Trading Pty Ltd", State: "NSW"})
	testsupport.NewEntity(t, store, ledger.RegistryEntity{ABN: "22222222222", Name: "Acme Holdings Pty Ltd", State: "VIC"})
	testsupport.NewEntity(t, store, ledger.RegistryEntity{ABN: "33333333333", Name: "Brindle Logistics Pty Ltd", State: "QLD"})
}

func methodOf(t *testing.T, store *ledger.Store, observedID int64) ledger.Method {
	t.Helper()
	matches, err := store.ListMatches(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("ListMatches: %v", err)
	}
	for _, rec := range matches {
		if rec.ObservedID == observedID {
			return rec.Method
		}
	}
	return ""
}

func TestRunResolvesTiersInOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedRegistry(t, store)

	// Carries a registry ABN and a fuzzy-matchable name: direct must win.
	direct := testsupport.NewObserved(t, store, ledger.ObservedRecord{
		Name: "Acme Trading", ExtractedABN: "11 111 111 111",
	})
	// Name-only record above the fuzzy threshold.
	fuzzy := testsupport.NewObserved(t, store, ledger.ObservedRecord{
		Name: "Acme Trading Co", State: "NSW",
	})
	// Nothing in the registry starts with Z.
	stranded := testsupport.NewObserved(t, store, ledger.ObservedRecord{
		Name: "Zebra Consulting",
	})

	ai := &fakeAI{}
	runner := pipeline.NewRunner(store, ai, defaultOptions(), logging.NewNop())
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.DirectMatched != 1 || summary.FuzzyMatched != 1 || summary.AIMatched != 0 {
		t.Fatalf("matched direct=%d fuzzy=%d ai=%d", summary.DirectMatched, summary.FuzzyMatched, summary.AIMatched)
	}
	if got := methodOf(t, store, direct.ID); got != ledger.MethodDirect {
		t.Fatalf("direct record resolved via %q", got)
	}
	if got := methodOf(t, store, fuzzy.ID); got != ledger.MethodFuzzy {
		t.Fatalf("fuzzy record resolved via %q", got)
	}
	if got := methodOf(t, store, stranded.ID); got != "" {
		t.Fatalf("stranded record resolved via %q", got)
	}
	if ai.calls != 0 {
		t.Fatalf("ai calls = %d, want 0", ai.calls)
	}
	if summary.RunID == "" {
		t.Fatal("summary missing run id")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedRegistry(t, store)
	testsupport.NewObserved(t, store, ledger.ObservedRecord{Name: "Acme Trading", ExtractedABN: "11111111111"})

	runner := pipeline.NewRunner(store, nil, defaultOptions(), logging.NewNop())
	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if summary.TotalMatched() != 0 {
		t.Fatalf("second run matched %d, want 0", summary.TotalMatched())
	}

	count, err := store.CountMatches(context.Background())
	if err != nil {
		t.Fatalf("CountMatches: %v", err)
	}
	if count != 1 {
		t.Fatalf("ledger rows = %d, want 1", count)
	}
}

func TestRunAIMatchesAmbiguousRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedRegistry(t, store)

	observed := testsupport.NewObserved(t, store, ledger.ObservedRecord{
		Name:    "Acme Holding Group",
		Context: "Title: Acme Holding Group | investment holding company",
	})

	ai := &fakeAI{fn: func(observed *ledger.ObservedRecord, candidates []match.Candidate) (*ledger.MatchRecord, error) {
		if len(candidates) == 0 {
			t.Fatal("ai called without candidates")
		}
		return &ledger.MatchRecord{
			ObservedID: observed.ID,
			ABN:        candidates[0].Entity.ABN,
			Method:     ledger.MethodAI,
			Confidence: 0.8,
			Reasoning:  "context aligns",
		}, nil
	}}

	runner := pipeline.NewRunner(store, ai, defaultOptions(), logging.NewNop())
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AIMatched != 1 || summary.AICallsUsed != 1 {
		t.Fatalf("ai matched=%d calls=%d, want 1/1", summary.AIMatched, summary.AICallsUsed)
	}
	if got := methodOf(t, store, observed.ID); got != ledger.MethodAI {
		t.Fatalf("record resolved via %q, want ai", got)
	}

	matches, err := store.ListMatches(context.Background(), ledger.MethodAI, 0)
	if err != nil {
		t.Fatalf("ListMatches: %v", err)
	}
	if len(matches) != 1 || matches[0].RunID != summary.RunID {
		t.Fatalf("ai match missing run id: %+v", matches)
	}
}

func TestRunSkipsAIWithoutContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedRegistry(t, store)

	// In the ambiguous band but with no website context to reason over.
	testsupport.NewObserved(t, store, ledger.ObservedRecord{Name: "Acme Holding Group"})

	ai := &fakeAI{}
	runner := pipeline.NewRunner(store, ai, defaultOptions(), logging.NewNop())
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ai.calls != 0 {
		t.Fatalf("ai calls = %d, want 0", ai.calls)
	}
	if summary.TotalMatched() != 0 {
		t.Fatalf("matched = %d, want 0", summary.TotalMatched())
	}
}

func TestRunStopsAITierOnBudgetExhaustion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedRegistry(t, store)

	for i := 0; i < 3; i++ {
		testsupport.NewObserved(t, store, ledger.ObservedRecord{
			Name:    "Acme Holding Group",
			Context: "holding company",
		})
	}

	ai := &fakeAI{fn: func(*ledger.ObservedRecord, []match.Candidate) (*ledger.MatchRecord, error) {
		return nil, llmmatch.ErrBudgetExhausted
	}}

	runner := pipeline.NewRunner(store, ai, defaultOptions(), logging.NewNop())
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.BudgetExhausted {
		t.Fatal("expected BudgetExhausted")
	}
	if ai.calls != 1 {
		t.Fatalf("ai calls = %d, want 1 (tier stops on exhaustion)", ai.calls)
	}
}

func TestRunRecordsAIFailuresAndContinues(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedRegistry(t, store)

	first := testsupport.NewObserved(t, store, ledger.ObservedRecord{Name: "Acme Holding Group", Context: "ctx"})
	second := testsupport.NewObserved(t, store, ledger.ObservedRecord{Name: "Acme Holding Group", Context: "ctx"})

	ai := &fakeAI{fn: func(observed *ledger.ObservedRecord, candidates []match.Candidate) (*ledger.MatchRecord, error) {
		if observed.ID == first.ID {
			return nil, errors.New("transient upstream failure")
		}
		return &ledger.MatchRecord{
			ObservedID: observed.ID,
			ABN:        candidates[0].Entity.ABN,
			Method:     ledger.MethodAI,
			Confidence: 0.7,
		}, nil
	}}

	runner := pipeline.NewRunner(store, ai, defaultOptions(), logging.NewNop())
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].ObservedID != first.ID {
		t.Fatalf("failures = %+v", summary.Failures)
	}
	if summary.AIMatched != 1 {
		t.Fatalf("ai matched = %d, want 1", summary.AIMatched)
	}
	if got := methodOf(t, store, second.ID); got != ledger.MethodAI {
		t.Fatalf("second record resolved via %q", got)
	}
}

func TestRunHonorsDirectLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedRegistry(t, store)

	testsupport.NewObserved(t, store, ledger.ObservedRecord{Name: "One", ExtractedABN: "11111111111"})
	testsupport.NewObserved(t, store, ledger.ObservedRecord{Name: "Two", ExtractedABN: "22222222222"})

	opts := defaultOptions()
	opts.DirectLimit = 1
	runner := pipeline.NewRunner(store, nil, opts, logging.NewNop())
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.DirectExamined != 1 || summary.DirectMatched != 1 {
		t.Fatalf("direct examined=%d matched=%d, want 1/1", summary.DirectExamined, summary.DirectMatched)
	}
	if summary.Deferred != 1 {
		t.Fatalf("deferred = %d, want 1", summary.Deferred)
	}
	// The deferred record must not leak into later tiers.
	if summary.FuzzyExamined != 0 {
		t.Fatalf("fuzzy examined = %d, want 0", summary.FuzzyExamined)
	}
}

func TestRunDirectTierOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedRegistry(t, store)

	testsupport.NewObserved(t, store, ledger.ObservedRecord{Name: "Acme Trading Co"})

	opts := defaultOptions()
	opts.Tier = pipeline.TierDirect
	runner := pipeline.NewRunner(store, nil, opts, logging.NewNop())
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TotalMatched() != 0 {
		t.Fatalf("matched = %d, want 0 with direct tier only", summary.TotalMatched())
	}
	if summary.FuzzyExamined != 0 {
		t.Fatalf("fuzzy examined = %d, want 0", summary.FuzzyExamined)
	}
}

func TestRunAITierOnlyBuildsShortlist(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedRegistry(t, store)

	observed := testsupport.NewObserved(t, store, ledger.ObservedRecord{
		Name:    "Acme Holding Group",
		Context: "holding company",
	})

	ai := &fakeAI{fn: func(observed *ledger.ObservedRecord, candidates []match.Candidate) (*ledger.MatchRecord, error) {
		return &ledger.MatchRecord{
			ObservedID: observed.ID,
			ABN:        candidates[0].Entity.ABN,
			Method:     ledger.MethodAI,
			Confidence: 0.75,
		}, nil
	}}

	opts := defaultOptions()
	opts.Tier = pipeline.TierAI
	runner := pipeline.NewRunner(store, ai, opts, logging.NewNop())
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.AIMatched != 1 {
		t.Fatalf("ai matched = %d, want 1", summary.AIMatched)
	}
	if got := methodOf(t, store, observed.ID); got != ledger.MethodAI {
		t.Fatalf("record resolved via %q", got)
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	seedRegistry(t, store)
	testsupport.NewObserved(t, store, ledger.ObservedRecord{Name: "Acme Trading", ExtractedABN: "11111111111"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := pipeline.NewRunner(store, nil, defaultOptions(), logging.NewNop())
	if _, err := runner.Run(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestParseTier(t *testing.T) {
	for _, value := range []string{"all", "", "direct", "fuzzy", "ai", "AI", " Direct "} {
		if _, err := pipeline.ParseTier(value); err != nil {
			t.Fatalf("ParseTier(%q): %v", value, err)
		}
	}
	if _, err := pipeline.ParseTier("bogus"); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}
