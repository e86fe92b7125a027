// Package match implements the deterministic resolution tiers: company name
// and ABN normalization, similarity scoring, the blocked candidate index, and
// the direct and fuzzy matchers.
package match
