package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const observedColumns = "id, name, industry, context, source_url, extracted_abn, state, created_at"

const entityColumns = "abn, name, entity_type, status, address, state, registered_at"

// InsertObserved stores a scraped record delivered by the extraction
// collaborator and returns its assigned identifier.
func (s *Store) InsertObserved(ctx context.Context, rec *ObservedRecord) (int64, error) {
	if rec == nil {
		return 0, errors.New("observed record is nil")
	}
	if rec.Name == "" {
		return 0, errors.New("observed record requires a name")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO observed_records (
            name, industry, context, source_url, extracted_abn, state, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Name,
		nullableString(rec.Industry),
		nullableString(rec.Context),
		nullableString(rec.SourceURL),
		nullableString(rec.ExtractedABN),
		nullableString(rec.State),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert observed record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id
	return id, nil
}

// UpsertEntity stores or refreshes a registry entity keyed by ABN.
func (s *Store) UpsertEntity(ctx context.Context, entity *RegistryEntity) error {
	if entity == nil {
		return errors.New("registry entity is nil")
	}
	if entity.ABN == "" {
		return errors.New("registry entity requires an abn")
	}
	if entity.Name == "" {
		return errors.New("registry entity requires a name")
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO registry_entities (
            abn, name, entity_type, status, address, state, registered_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (abn) DO UPDATE SET
            name = excluded.name,
            entity_type = excluded.entity_type,
            status = excluded.status,
            address = excluded.address,
            state = excluded.state,
            registered_at = excluded.registered_at`,
		entity.ABN,
		entity.Name,
		nullableString(entity.Type),
		entity.Status,
		nullableString(entity.Address),
		nullableString(entity.State),
		nullableTime(entity.Registered),
	)
	if err != nil {
		return fmt.Errorf("upsert registry entity: %w", err)
	}
	return nil
}

// GetObserved fetches an observed record by identifier.
func (s *Store) GetObserved(ctx context.Context, id int64) (*ObservedRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+observedColumns+` FROM observed_records WHERE id = ?`, id)
	rec, err := scanObserved(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get observed record: %w", err)
	}
	return rec, nil
}

// UnmatchedObserved returns observed records with no accepted match, in
// stable id order. A limit <= 0 returns everything.
func (s *Store) UnmatchedObserved(ctx context.Context, limit int) ([]*ObservedRecord, error) {
	query := `SELECT ` + observedColumns + ` FROM observed_records o
        WHERE NOT EXISTS (SELECT 1 FROM match_records m WHERE m.observed_id = o.id)
        ORDER BY o.id`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unmatched observed: %w", err)
	}
	defer rows.Close()

	var records []*ObservedRecord
	for rows.Next() {
		rec, err := scanObserved(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ActiveEntities returns the registry snapshot filtered to active entities,
// in stable abn order.
func (s *Store) ActiveEntities(ctx context.Context) ([]RegistryEntity, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+entityColumns+` FROM registry_entities WHERE status = 'Active' AND name <> '' ORDER BY abn`,
	)
	if err != nil {
		return nil, fmt.Errorf("query active entities: %w", err)
	}
	defer rows.Close()

	var entities []RegistryEntity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// SnapshotCounts returns the observed and registry table sizes for
// diagnostic output.
func (s *Store) SnapshotCounts(ctx context.Context) (observed int, entities int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM observed_records`).Scan(&observed); err != nil {
		return 0, 0, fmt.Errorf("count observed records: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM registry_entities`).Scan(&entities); err != nil {
		return 0, 0, fmt.Errorf("count registry entities: %w", err)
	}
	return observed, entities, nil
}

func scanObserved(scanner interface{ Scan(dest ...any) error }) (*ObservedRecord, error) {
	var (
		id         int64
		name       string
		industry   sql.NullString
		context    sql.NullString
		sourceURL  sql.NullString
		abn        sql.NullString
		state      sql.NullString
		createdRaw sql.NullString
	)

	if err := scanner.Scan(&id, &name, &industry, &context, &sourceURL, &abn, &state, &createdRaw); err != nil {
		return nil, err
	}

	rec := &ObservedRecord{
		ID:           id,
		Name:         name,
		Industry:     industry.String,
		Context:      context.String,
		SourceURL:    sourceURL.String,
		ExtractedABN: abn.String,
		State:        state.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		rec.CreatedAt = created
	}
	return rec, nil
}

func scanEntity(scanner interface{ Scan(dest ...any) error }) (RegistryEntity, error) {
	var (
		abn           string
		name          string
		entityType    sql.NullString
		status        string
		address       sql.NullString
		state         sql.NullString
		registeredRaw sql.NullString
	)

	if err := scanner.Scan(&abn, &name, &entityType, &status, &address, &state, &registeredRaw); err != nil {
		return RegistryEntity{}, err
	}

	entity := RegistryEntity{
		ABN:     abn,
		Name:    name,
		Type:    entityType.String,
		Status:  status,
		Address: address.String,
		State:   state.String,
	}
	if registeredRaw.Valid {
		if registered, err := parseTimeString(registeredRaw.String); err == nil {
			entity.Registered = registered
		}
	}
	return entity, nil
}
