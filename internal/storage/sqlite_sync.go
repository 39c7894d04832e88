package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kverlaine/questforge/internal/models"
)

func (s *SQLiteStore) GetUser(id string) (models.UserProfile, error) {
	row := s.db.QueryRow("SELECT doc FROM users WHERE id = ?", id)

	var doc string
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return models.UserProfile{}, ErrNotFound
		}
		return models.UserProfile{}, err
	}

	var u models.UserProfile
	if err := json.Unmarshal([]byte(doc), &u); err != nil {
		return models.UserProfile{}, fmt.Errorf("failed to decode user %s: %w", id, err)
	}
	return u, nil
}

func (s *SQLiteStore) PutUser(user models.UserProfile) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO users (id, doc) VALUES (?, ?)", user.ID, string(doc))
	return err
}

func (s *SQLiteStore) EnqueueSyncOp(op models.SyncOperation) error {
	var payload sql.NullString
	if len(op.Payload) > 0 {
		payload = sql.NullString{String: string(op.Payload), Valid: true}
	}
	var lastError sql.NullString
	if op.LastError != "" {
		lastError = sql.NullString{String: op.LastError, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO sync_queue (id, collection, document_id, operation, payload, priority, retries, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.Collection, op.DocumentID, op.Operation, payload,
		op.Priority, op.Retries, lastError, op.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) NextSyncOps(collection string, limit int) ([]models.SyncOperation, error) {
	query := `
		SELECT id, collection, document_id, operation, payload, priority, retries, last_error, created_at
		FROM sync_queue`
	var args []interface{}
	if collection != "" {
		query += " WHERE collection = ?"
		args = append(args, collection)
	}
	// rowid keeps insertion order; created_at is RFC3339Nano text, which does
	// not sort lexicographically once trailing fractional zeros are trimmed.
	query += " ORDER BY priority DESC, rowid LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []models.SyncOperation
	for rows.Next() {
		var op models.SyncOperation
		var payload, lastError sql.NullString
		var createdAt string
		if err := rows.Scan(&op.ID, &op.Collection, &op.DocumentID, &op.Operation,
			&payload, &op.Priority, &op.Retries, &lastError, &createdAt); err != nil {
			return nil, err
		}
		if payload.Valid {
			op.Payload = json.RawMessage(payload.String)
		}
		if lastError.Valid {
			op.LastError = lastError.String
		}
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse sync op timestamp: %w", err)
		}
		op.CreatedAt = t
		ops = append(ops, op)
	}

	return ops, rows.Err()
}

func (s *SQLiteStore) UpdateSyncOp(op models.SyncOperation) error {
	var lastError sql.NullString
	if op.LastError != "" {
		lastError = sql.NullString{String: op.LastError, Valid: true}
	}
	res, err := s.db.Exec(
		"UPDATE sync_queue SET retries = ?, last_error = ? WHERE id = ?",
		op.Retries, lastError, op.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteSyncOp(id string) error {
	_, err := s.db.Exec("DELETE FROM sync_queue WHERE id = ?", id)
	return err
}

func (s *SQLiteStore) CountSyncOps() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sync_queue").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SQLiteStore) AddDeadLetter(dl models.DeadLetter) error {
	doc, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO sync_dead_letters (id, doc, reason, failed_at) VALUES (?, ?, ?, ?)",
		dl.ID, string(doc), dl.Reason, dl.FailedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) GetDeadLetters() ([]models.DeadLetter, error) {
	rows, err := s.db.Query("SELECT doc FROM sync_dead_letters ORDER BY failed_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var letters []models.DeadLetter
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var dl models.DeadLetter
		if err := json.Unmarshal([]byte(doc), &dl); err != nil {
			return nil, fmt.Errorf("failed to decode dead letter: %w", err)
		}
		letters = append(letters, dl)
	}

	return letters, rows.Err()
}

func (s *SQLiteStore) CountDeadLetters() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sync_dead_letters").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SQLiteStore) ClearDeadLetters() error {
	_, err := s.db.Exec("DELETE FROM sync_dead_letters")
	return err
}
