package llmmatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"corella/internal/ledger"
	"corella/internal/logging"
	"corella/internal/match"
	"corella/internal/services/llm"
)

// Completer issues a JSON-only completion request. *llm.Client satisfies it.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Matcher asks the model to pick among fuzzy candidates for records the
// deterministic tiers could not settle.
type Matcher struct {
	client      Completer
	budget      *CallBudget
	acceptFloor float64
	logger      *slog.Logger
}

// NewMatcher builds a disambiguation matcher. acceptFloor is the minimum
// model confidence required to accept a decision.
func NewMatcher(client Completer, budget *CallBudget, acceptFloor float64, logger *slog.Logger) *Matcher {
	return &Matcher{
		client:      client,
		budget:      budget,
		acceptFloor: acceptFloor,
		logger:      logging.NewComponentLogger(logger, "llm-match"),
	}
}

type decision struct {
	MatchedABN *string  `json:"matched_abn"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// Match sends the record and candidate shortlist to the model and returns an
// accepted resolution, or nil when the model declines, answers below the
// floor, or produces output that cannot be interpreted. Transport failures
// and budget exhaustion are returned as errors so the caller can decide
// whether to continue the run.
func (m *Matcher) Match(ctx context.Context, observed *ledger.ObservedRecord, candidates []match.Candidate) (*ledger.MatchRecord, error) {
	if observed == nil || len(candidates) == 0 {
		return nil, nil
	}

	if err := m.budget.Acquire(ctx); err != nil {
		return nil, err
	}

	content, err := m.client.CompleteJSON(ctx, MatchSystemPrompt, buildUserPrompt(observed, candidates))
	if err != nil {
		return nil, fmt.Errorf("disambiguate record %d: %w", observed.ID, err)
	}

	var parsed decision
	if err := llm.DecodeJSON(content, &parsed); err != nil {
		m.logger.Warn("unparseable model response treated as no match",
			logging.Int64(logging.FieldObserved, observed.ID),
			logging.Error(err))
		return nil, nil
	}

	return m.evaluate(observed, candidates, parsed), nil
}

func (m *Matcher) evaluate(observed *ledger.ObservedRecord, candidates []match.Candidate, parsed decision) *ledger.MatchRecord {
	if parsed.MatchedABN == nil {
		return nil
	}
	abn := strings.TrimSpace(*parsed.MatchedABN)
	switch strings.ToLower(abn) {
	case "", "null", "no_match":
		return nil
	}

	var chosen *ledger.RegistryEntity
	for i := range candidates {
		if candidates[i].Entity.ABN == abn {
			chosen = &candidates[i].Entity
			break
		}
	}
	if chosen == nil {
		m.logger.Warn("model chose an abn outside the candidate list",
			logging.Int64(logging.FieldObserved, observed.ID),
			logging.String("abn", abn))
		return nil
	}

	if parsed.Confidence == nil {
		m.logger.Warn("model response missing confidence",
			logging.Int64(logging.FieldObserved, observed.ID))
		return nil
	}
	confidence := *parsed.Confidence
	if confidence < 0 || confidence > 1 {
		m.logger.Warn("model confidence outside [0,1]",
			logging.Int64(logging.FieldObserved, observed.ID),
			logging.Float64("confidence", confidence))
		return nil
	}
	if confidence < m.acceptFloor {
		return nil
	}

	reasoning := strings.TrimSpace(parsed.Reasoning)
	if reasoning == "" {
		reasoning = "model determined match"
	}

	return &ledger.MatchRecord{
		ObservedID: observed.ID,
		ABN:        chosen.ABN,
		Method:     ledger.MethodAI,
		Confidence: confidence,
		Reasoning:  reasoning,
	}
}
