package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const matchColumns = "id, observed_id, abn, method, confidence, reasoning, run_id, created_at"

// RecordMatch stores an accepted match decision. It returns true when a new
// row was inserted and false when an equivalent (observed, abn) entry already
// existed; the duplicate case is an idempotent no-op, never an error. The
// uniqueness guarantee lives in the schema, so concurrent writers racing on
// the same pair see exactly one true result between them.
func (s *Store) RecordMatch(ctx context.Context, rec *MatchRecord) (bool, error) {
	if rec == nil {
		return false, errors.New("match record is nil")
	}
	if rec.ObservedID == 0 {
		return false, errors.New("match record requires an observed id")
	}
	if rec.ABN == "" {
		return false, errors.New("match record requires an abn")
	}
	if _, ok := ParseMethod(string(rec.Method)); !ok {
		return false, fmt.Errorf("unknown match method %q", rec.Method)
	}
	if rec.Confidence < 0 || rec.Confidence > 1 {
		return false, fmt.Errorf("confidence %v outside [0,1]", rec.Confidence)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO match_records (
            observed_id, abn, method, confidence, reasoning, run_id, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ObservedID,
		rec.ABN,
		string(rec.Method),
		rec.Confidence,
		nullableString(rec.Reasoning),
		nullableString(rec.RunID),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, fmt.Errorf("insert match record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MatchExists reports whether the (observed, abn) pair is already resolved.
func (s *Store) MatchExists(ctx context.Context, observedID int64, abn string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM match_records WHERE observed_id = ? AND abn = ?`,
		observedID,
		abn,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check match exists: %w", err)
	}
	return count > 0, nil
}

// ListMatches returns ledger entries ordered by creation, optionally filtered
// by method. A limit <= 0 returns everything.
func (s *Store) ListMatches(ctx context.Context, method Method, limit int) ([]*MatchRecord, error) {
	query := `SELECT ` + matchColumns + ` FROM match_records`
	args := make([]any, 0, 2)
	if method != "" {
		query += ` WHERE method = ?`
		args = append(args, string(method))
	}
	query += ` ORDER BY created_at, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list match records: %w", err)
	}
	defer rows.Close()

	var records []*MatchRecord
	for rows.Next() {
		rec, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MatchStats aggregates ledger contents per method, most frequent first.
func (s *Store) MatchStats(ctx context.Context) ([]MethodStats, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT method, COUNT(1), AVG(confidence), MIN(confidence), MAX(confidence)
         FROM match_records GROUP BY method ORDER BY COUNT(1) DESC, method`,
	)
	if err != nil {
		return nil, fmt.Errorf("match stats: %w", err)
	}
	defer rows.Close()

	var stats []MethodStats
	for rows.Next() {
		var entry MethodStats
		var method string
		if err := rows.Scan(&method, &entry.Count, &entry.AvgConfidence, &entry.MinConfidence, &entry.MaxConfidence); err != nil {
			return nil, err
		}
		entry.Method = Method(method)
		stats = append(stats, entry)
	}
	return stats, rows.Err()
}

// CountMatches returns the total number of ledger entries.
func (s *Store) CountMatches(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM match_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count match records: %w", err)
	}
	return count, nil
}

// ClearMatches removes all ledger entries.
func (s *Store) ClearMatches(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM match_records`)
	if err != nil {
		return 0, fmt.Errorf("clear match records: %w", err)
	}
	return res.RowsAffected()
}

func scanMatch(scanner interface{ Scan(dest ...any) error }) (*MatchRecord, error) {
	var (
		id         int64
		observedID int64
		abn        string
		method     string
		confidence float64
		reasoning  sql.NullString
		runID      sql.NullString
		createdRaw sql.NullString
	)

	if err := scanner.Scan(&id, &observedID, &abn, &method, &confidence, &reasoning, &runID, &createdRaw); err != nil {
		return nil, err
	}

	rec := &MatchRecord{
		ID:         id,
		ObservedID: observedID,
		ABN:        abn,
		Method:     Method(method),
		Confidence: confidence,
		Reasoning:  reasoning.String,
		RunID:      runID.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		rec.CreatedAt = created
	}
	return rec, nil
}
