package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReleasedID records that a message-type ID has been published on the wire
// bound to a given schema.
type ReleasedID struct {
	ID          uint32
	MessageName string
	ReleasedAt  int64
	RetiredAt   int64 // zero while the ID is active
}

// Retired reports whether the ID has been withdrawn from the table.
func (r *ReleasedID) Retired() bool {
	return r.RetiredAt != 0
}

// CreateReleasedID inserts a released ID. Returns ErrConflict if the ID
// has been released before.
func (s *Store) CreateReleasedID(ctx context.Context, r *ReleasedID) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO protocol_id (id, message_name, released_at, retired_at)
		 VALUES (?, ?, ?, ?)`,
		r.ID, r.MessageName, r.ReleasedAt, nullableTime(r.RetiredAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("protocol id %d: %w", r.ID, ErrConflict)
		}
		return fmt.Errorf("insert protocol id: %w", err)
	}
	return nil
}

// GetReleasedID returns a released ID. Returns ErrNotFound if the ID was
// never released.
func (s *Store) GetReleasedID(ctx context.Context, id uint32) (*ReleasedID, error) {
	r := &ReleasedID{}
	var retiredAt sql.NullInt64
	err := s.q.QueryRowContext(ctx,
		`SELECT id, message_name, released_at, retired_at
		 FROM protocol_id WHERE id = ?`, id,
	).Scan(&r.ID, &r.MessageName, &r.ReleasedAt, &retiredAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get protocol id: %w", err)
	}
	if retiredAt.Valid {
		r.RetiredAt = retiredAt.Int64
	}
	return r, nil
}

// ListReleasedIDs returns every released ID, active and retired, ordered by ID.
func (s *Store) ListReleasedIDs(ctx context.Context) ([]*ReleasedID, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, message_name, released_at, retired_at
		 FROM protocol_id ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list protocol ids: %w", err)
	}
	defer rows.Close()

	var out []*ReleasedID
	for rows.Next() {
		r := &ReleasedID{}
		var retiredAt sql.NullInt64
		if err := rows.Scan(&r.ID, &r.MessageName, &r.ReleasedAt, &retiredAt); err != nil {
			return nil, fmt.Errorf("scan protocol id: %w", err)
		}
		if retiredAt.Valid {
			r.RetiredAt = retiredAt.Int64
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate protocol ids: %w", err)
	}
	return out, nil
}

// RetireReleasedID marks an active ID as retired at the given time.
// Returns ErrNotFound if the ID is unknown or already retired.
func (s *Store) RetireReleasedID(ctx context.Context, id uint32, at int64) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE protocol_id SET retired_at = ? WHERE id = ? AND retired_at IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("retire protocol id: %w", err)
	}
	return expectOneRow(result)
}

// ReviveReleasedID clears the retirement of an ID.
// Returns ErrNotFound if the ID is unknown or not retired.
func (s *Store) ReviveReleasedID(ctx context.Context, id uint32) error {
	result, err := s.q.ExecContext(ctx,
		`UPDATE protocol_id SET retired_at = NULL WHERE id = ? AND retired_at IS NOT NULL`, id)
	if err != nil {
		return fmt.Errorf("revive protocol id: %w", err)
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableTime(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
