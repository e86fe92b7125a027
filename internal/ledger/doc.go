// Package ledger persists the match ledger and the record snapshots it is
// resolved against, backed by SQLite.
//
// The ledger is the sole source of truth for whether an (observed record,
// registry entity) pair has been resolved. Uniqueness of that pair is
// enforced by the database schema, not by callers, so repeated runs and
// concurrent writers can never produce duplicate decisions.
package ledger
