package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kverlaine/questforge/internal/constants"
	"github.com/kverlaine/questforge/internal/models"
)

func (s *SQLiteStore) AddSession(session models.Session) error {
	return s.UpdateSession(session)
}

func (s *SQLiteStore) GetSession(id string) (models.Session, error) {
	row := s.db.QueryRow("SELECT doc FROM sessions WHERE id = ?", id)

	var doc string
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return models.Session{}, ErrNotFound
		}
		return models.Session{}, err
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(doc), &sess); err != nil {
		return models.Session{}, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return sess, nil
}

func (s *SQLiteStore) UpdateSession(session models.Session) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO sessions (
			id, user_id, quest_id, session_type, status, start_time, start_day,
			actual_duration_min, doc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.QuestID, session.SessionType, session.Status,
		session.StartTime.UTC().Format(time.RFC3339),
		session.StartTime.Format(constants.DateFormat),
		session.ActualDurationMin, string(doc),
	)
	return err
}

func (s *SQLiteStore) DeleteSession(id string) error {
	res, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session with id %s not found", id)
	}
	return nil
}

func (s *SQLiteStore) GetOpenSession(userID string) (models.Session, error) {
	row := s.db.QueryRow(`
		SELECT doc FROM sessions
		WHERE user_id = ? AND status IN ('active', 'paused')
		ORDER BY start_time DESC LIMIT 1`, userID)

	var doc string
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return models.Session{}, ErrNotFound
		}
		return models.Session{}, err
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(doc), &sess); err != nil {
		return models.Session{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) GetSessionsForUserSince(userID string, since time.Time) ([]models.Session, error) {
	rows, err := s.db.Query(`
		SELECT doc FROM sessions
		WHERE user_id = ? AND start_time >= ?
		ORDER BY start_time`,
		userID, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (s *SQLiteStore) GetSessionsForQuest(questID string) ([]models.Session, error) {
	rows, err := s.db.Query(
		"SELECT doc FROM sessions WHERE quest_id = ? ORDER BY start_time", questID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (s *SQLiteStore) CountCompletedPomodoros(userID, questID, day string) (int, error) {
	query := `
		SELECT COUNT(*) FROM sessions
		WHERE user_id = ? AND session_type = 'pomodoro' AND status = 'completed'
		  AND start_day = ? AND actual_duration_min >= ?`
	args := []interface{}{userID, day, constants.MinCapSessionMin}
	if questID != "" {
		query += " AND quest_id = ?"
		args = append(args, questID)
	}

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanSessions(rows *sql.Rows) ([]models.Session, error) {
	var sessions []models.Session
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var sess models.Session
		if err := json.Unmarshal([]byte(doc), &sess); err != nil {
			return nil, fmt.Errorf("failed to decode session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
