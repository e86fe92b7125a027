package match

import (
	"corella/internal/ledger"
)

const directConfidence = 0.95

// DirectMatcher resolves observed records whose extracted ABN appears in the
// registry snapshot.
type DirectMatcher struct {
	byABN map[string]ledger.RegistryEntity
}

// NewDirectMatcher indexes active registry entities by ABN.
func NewDirectMatcher(entities []ledger.RegistryEntity) *DirectMatcher {
	byABN := make(map[string]ledger.RegistryEntity, len(entities))
	for _, entity := range entities {
		if !entity.Active() {
			continue
		}
		if abn, err := NormalizeABN(entity.ABN); err == nil {
			byABN[abn] = entity
		}
	}
	return &DirectMatcher{byABN: byABN}
}

// Match returns a resolution when the record carries a well-formed ABN that
// exists in the registry, nil otherwise. Records without an extracted ABN and
// records with a malformed one both fall through to later tiers.
func (m *DirectMatcher) Match(observed *ledger.ObservedRecord) *ledger.MatchRecord {
	if observed == nil || observed.ExtractedABN == "" {
		return nil
	}
	abn, err := NormalizeABN(observed.ExtractedABN)
	if err != nil {
		return nil
	}
	entity, ok := m.byABN[abn]
	if !ok {
		return nil
	}
	return &ledger.MatchRecord{
		ObservedID: observed.ID,
		ABN:        entity.ABN,
		Method:     ledger.MethodDirect,
		Confidence: directConfidence,
		Reasoning:  "exact key match",
	}
}
