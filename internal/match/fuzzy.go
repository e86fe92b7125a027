package match

import (
	"fmt"
	"sort"
	"strings"

	"corella/internal/ledger"
)

const (
	fuzzyBaseConfidence = 0.75
	jurisdictionBonus   = 0.10
	maxFuzzyConfidence  = 0.95
	minFuzzyConfidence  = 0.70
	maxCandidates       = 5
)

// Candidate pairs a registry entity with its similarity to an observed name.
type Candidate struct {
	Entity     ledger.RegistryEntity
	Similarity float64
}

// Outcome is the result of scoring one observed record against the index.
// Record is non-nil only when the best similarity clears the automatic
// threshold. Candidates carries the shortlist for downstream disambiguation
// when the best similarity lands in the review band instead.
type Outcome struct {
	Record     *ledger.MatchRecord
	Candidates []Candidate
	Best       float64
}

// FuzzyMatcher scores normalized names against the blocked candidate index.
type FuzzyMatcher struct {
	index     *Index
	threshold float64
	bandLow   float64
}

// NewFuzzyMatcher builds a matcher over the given index. threshold is the
// similarity needed for an automatic match; bandLow is the bottom of the
// band forwarded for disambiguation.
func NewFuzzyMatcher(index *Index, threshold, bandLow float64) *FuzzyMatcher {
	return &FuzzyMatcher{index: index, threshold: threshold, bandLow: bandLow}
}

// Match scores the observed record against its block and returns the outcome.
func (m *FuzzyMatcher) Match(observed *ledger.ObservedRecord) Outcome {
	if observed == nil {
		return Outcome{}
	}
	normalized := NormalizeName(observed.Name)
	if normalized == "" {
		return Outcome{}
	}

	block := m.index.lookup(normalized)
	if len(block) == 0 {
		return Outcome{}
	}

	scored := make([]Candidate, 0, len(block))
	for _, candidate := range block {
		sim := Ratio(normalized, candidate.normalized)
		if sim <= 0 {
			continue
		}
		scored = append(scored, Candidate{Entity: candidate.entity, Similarity: sim})
	}
	if len(scored) == 0 {
		return Outcome{}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return candidateLess(observed, scored[i], scored[j])
	})

	best := scored[0]
	outcome := Outcome{Best: best.Similarity}

	switch {
	case best.Similarity >= m.threshold:
		outcome.Record = m.buildRecord(observed, best)
	case best.Similarity >= m.bandLow:
		limit := len(scored)
		if limit > maxCandidates {
			limit = maxCandidates
		}
		outcome.Candidates = scored[:limit]
	}
	return outcome
}

// candidateLess orders candidates by descending similarity, then preferring a
// jurisdiction match, then ascending ABN so equal scores resolve the same way
// on every run.
func candidateLess(observed *ledger.ObservedRecord, a, b Candidate) bool {
	if a.Similarity != b.Similarity {
		return a.Similarity > b.Similarity
	}
	aj := sameJurisdiction(observed, a.Entity)
	bj := sameJurisdiction(observed, b.Entity)
	if aj != bj {
		return aj
	}
	return a.Entity.ABN < b.Entity.ABN
}

func sameJurisdiction(observed *ledger.ObservedRecord, entity ledger.RegistryEntity) bool {
	return observed.State != "" && strings.EqualFold(observed.State, entity.State)
}

func (m *FuzzyMatcher) buildRecord(observed *ledger.ObservedRecord, best Candidate) *ledger.MatchRecord {
	confidence := fuzzyBaseConfidence + (best.Similarity-m.threshold)*0.5
	jurisdiction := sameJurisdiction(observed, best.Entity)
	if jurisdiction {
		confidence += jurisdictionBonus
	}
	if confidence > maxFuzzyConfidence {
		confidence = maxFuzzyConfidence
	}
	if confidence < minFuzzyConfidence {
		confidence = minFuzzyConfidence
	}

	reasoning := fmt.Sprintf("name similarity %.3f against %q", best.Similarity, best.Entity.Name)
	if jurisdiction {
		reasoning += ", same state"
	}

	return &ledger.MatchRecord{
		ObservedID: observed.ID,
		ABN:        best.Entity.ABN,
		Method:     ledger.MethodFuzzy,
		Confidence: confidence,
		Reasoning:  reasoning,
	}
}
