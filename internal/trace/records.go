package trace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Record is one executed command.
type Record struct {
	Seq          int64  `json:"seq"`
	Queue        uint32 `json:"queue"`
	Index        uint32 `json:"index"`
	DebugID      uint32 `json:"debug_id"`
	CallbackID   uint32 `json:"callback_id"`
	Notify       bool   `json:"notify"`
	ReturnsValue bool   `json:"returns_value"`
	Position     int    `json:"position"`
}

// WriteRecords inserts records for a session in one transaction.
// Rewriting an existing seq is ignored.
func (s *Store) WriteRecords(ctx context.Context, sessionID string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records
		(session_id, seq, queue, idx, debug_id, callback_id, notify, returns_value, position)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx,
			sessionID, r.Seq, r.Queue, r.Index, r.DebugID, r.CallbackID,
			boolToInt(r.Notify), boolToInt(r.ReturnsValue), r.Position,
		); err != nil {
			return fmt.Errorf("write record %d: %w", r.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	return nil
}

// ReadSession returns the records of a session ordered by seq.
// Returns an empty slice, not nil, for a session without records.
func (s *Store) ReadSession(ctx context.Context, sessionID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, queue, idx, debug_id, callback_id, notify, returns_value, position
		FROM records
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// RecordAt returns the record executed at seq.
func (s *Store) RecordAt(ctx context.Context, sessionID string, seq int64) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, queue, idx, debug_id, callback_id, notify, returns_value, position
		FROM records
		WHERE session_id = ? AND seq = ?
	`, sessionID, seq)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("record %d of %s: %w", seq, sessionID, ErrNotFound)
	}
	return r, err
}

// CommandRecords returns every execution of queue:index in a session.
func (s *Store) CommandRecords(ctx context.Context, sessionID string, queue, index uint32) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, queue, idx, debug_id, callback_id, notify, returns_value, position
		FROM records
		WHERE session_id = ? AND queue = ? AND idx = ?
		ORDER BY seq ASC
	`, sessionID, queue, index)
	if err != nil {
		return nil, fmt.Errorf("query command records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate command records: %w", err)
	}
	return records, nil
}

func scanRecord(row scanner) (Record, error) {
	var (
		r                    Record
		notify, returnsValue int
	)
	err := row.Scan(&r.Seq, &r.Queue, &r.Index, &r.DebugID, &r.CallbackID, &notify, &returnsValue, &r.Position)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan record: %w", err)
	}
	r.Notify = notify != 0
	r.ReturnsValue = returnsValue != 0
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
