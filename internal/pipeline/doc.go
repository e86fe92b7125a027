// Package pipeline orchestrates the resolution tiers over the unmatched
// backlog: direct key lookups, then fuzzy name scoring, then model-assisted
// disambiguation, with accepted matches written to the ledger.
package pipeline
