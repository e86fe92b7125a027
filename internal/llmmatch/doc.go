// Package llmmatch runs the disambiguation tier: it sends ambiguous observed
// records with their candidate shortlist to a language model, validates the
// decision, and enforces a per-run call budget.
package llmmatch
