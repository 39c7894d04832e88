package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kverlaine/questforge/internal/models"
)

func (s *SQLiteStore) AddQuest(quest models.Quest) error {
	return s.UpdateQuest(quest)
}

func (s *SQLiteStore) GetQuest(id string) (models.Quest, error) {
	row := s.db.QueryRow("SELECT doc, deleted_at FROM quests WHERE id = ? AND deleted_at IS NULL", id)

	var doc string
	var deletedAt sql.NullString
	if err := row.Scan(&doc, &deletedAt); err != nil {
		if err == sql.ErrNoRows {
			return models.Quest{}, ErrNotFound
		}
		return models.Quest{}, err
	}

	var q models.Quest
	if err := json.Unmarshal([]byte(doc), &q); err != nil {
		return models.Quest{}, fmt.Errorf("failed to decode quest %s: %w", id, err)
	}
	if deletedAt.Valid {
		q.DeletedAt = &deletedAt.String
	}
	return q, nil
}

func (s *SQLiteStore) GetQuestsForUser(userID string) ([]models.Quest, error) {
	rows, err := s.db.Query(
		"SELECT doc FROM quests WHERE user_id = ? AND deleted_at IS NULL", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quests []models.Quest
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var q models.Quest
		if err := json.Unmarshal([]byte(doc), &q); err != nil {
			return nil, fmt.Errorf("failed to decode quest: %w", err)
		}
		quests = append(quests, q)
	}

	return quests, rows.Err()
}

func (s *SQLiteStore) UpdateQuest(quest models.Quest) error {
	doc, err := json.Marshal(quest)
	if err != nil {
		return fmt.Errorf("failed to marshal quest: %w", err)
	}

	var deletedAt sql.NullString
	if quest.DeletedAt != nil {
		deletedAt = sql.NullString{String: *quest.DeletedAt, Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO quests (id, user_id, type, validation_status, doc, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		quest.ID, quest.UserID, quest.Type, quest.ValidationStatus, string(doc), deletedAt,
	)
	return err
}

func (s *SQLiteStore) DeleteQuest(id string) error {
	// Soft delete: set deleted_at timestamp instead of removing the record
	var deletedAt sql.NullString
	err := s.db.QueryRow("SELECT deleted_at FROM quests WHERE id = ?", id).Scan(&deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("quest with id %s not found", id)
		}
		return fmt.Errorf("failed to check quest existence: %w", err)
	}

	if deletedAt.Valid {
		return fmt.Errorf("quest with id %s is already deleted", id)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec("UPDATE quests SET deleted_at = ? WHERE id = ?", now, id)
	return err
}

func (s *SQLiteStore) RestoreQuest(id string) error {
	var deletedAt sql.NullString
	err := s.db.QueryRow("SELECT deleted_at FROM quests WHERE id = ?", id).Scan(&deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("quest with id %s not found", id)
		}
		return fmt.Errorf("failed to check quest existence: %w", err)
	}

	if !deletedAt.Valid {
		return fmt.Errorf("cannot restore a quest that is not deleted: %s", id)
	}

	_, err = s.db.Exec("UPDATE quests SET deleted_at = NULL WHERE id = ?", id)
	return err
}
