package ledger

import (
	"strings"
	"time"
)

// Method identifies which matching tier produced a decision.
type Method string

const (
	MethodDirect Method = "direct"
	MethodFuzzy  Method = "fuzzy"
	MethodAI     Method = "ai"
	MethodManual Method = "manual"
)

var allMethods = []Method{MethodDirect, MethodFuzzy, MethodAI, MethodManual}

var methodSet = func() map[Method]struct{} {
	set := make(map[Method]struct{}, len(allMethods))
	for _, method := range allMethods {
		set[method] = struct{}{}
	}
	return set
}()

// AllMethods returns the ordered list of known match methods.
func AllMethods() []Method {
	cp := make([]Method, len(allMethods))
	copy(cp, allMethods)
	return cp
}

// ParseMethod converts a string into a known Method.
func ParseMethod(value string) (Method, bool) {
	normalized := Method(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := methodSet[normalized]
	return normalized, ok
}

// ObservedRecord is a business mention scraped from an uncontrolled source.
// Records are written once by the extraction collaborator and treated as
// read-only by the matching pipeline.
type ObservedRecord struct {
	ID           int64
	Name         string
	Industry     string
	Context      string
	SourceURL    string
	ExtractedABN string
	State        string
	CreatedAt    time.Time
}

// RegistryEntity is an authoritative business-register record keyed by ABN.
type RegistryEntity struct {
	ABN        string
	Name       string
	Type       string
	Status     string
	Address    string
	State      string
	Registered time.Time
}

// Active reports whether the entity is eligible as a match target.
func (e RegistryEntity) Active() bool {
	return strings.EqualFold(strings.TrimSpace(e.Status), "Active")
}

// MatchRecord is an accepted identity link between an observed record and a
// registry entity. At most one record exists per (ObservedID, ABN) pair.
type MatchRecord struct {
	ID         int64
	ObservedID int64
	ABN        string
	Method     Method
	Confidence float64
	Reasoning  string
	RunID      string
	CreatedAt  time.Time
}

// MethodStats aggregates ledger contents per match method.
type MethodStats struct {
	Method        Method
	Count         int
	AvgConfidence float64
	MinConfidence float64
	MaxConfidence float64
}
