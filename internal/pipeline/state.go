package pipeline

import (
	"fmt"
	"strings"
)

// State tracks how far a record has progressed through the tiers in the
// current run.
type State string

const (
	StatePending         State = "pending"
	StateDirectAttempted State = "direct_attempted"
	StateFuzzyAttempted  State = "fuzzy_attempted"
	StateAIAttempted     State = "ai_attempted"
	StateResolved        State = "resolved"
	StateUnmatched       State = "unmatched"
)

// Tier selects which resolution tiers a run executes.
type Tier string

const (
	TierAll    Tier = "all"
	TierDirect Tier = "direct"
	TierFuzzy  Tier = "fuzzy"
	TierAI     Tier = "ai"
)

// ParseTier validates a tier flag value.
func ParseTier(value string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(value))) {
	case TierAll, "":
		return TierAll, nil
	case TierDirect:
		return TierDirect, nil
	case TierFuzzy:
		return TierFuzzy, nil
	case TierAI:
		return TierAI, nil
	default:
		return "", fmt.Errorf("unknown tier %q (expected all, direct, fuzzy, or ai)", value)
	}
}

func (t Tier) includes(target Tier) bool {
	return t == TierAll || t == target
}
