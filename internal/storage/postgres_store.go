package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/kverlaine/questforge/internal/constants"
	"github.com/kverlaine/questforge/internal/models"
)

// PostgresStore is the shared-host backend. Same collection layout as the
// SQLite store (scalar columns plus a JSON document column), so the two stay
// interchangeable behind Provider.
type PostgresStore struct {
	connStr string
	db      *sql.DB
}

func NewPostgresStore(connStr string) *PostgresStore {
	return &PostgresStore{
		connStr: connStr,
	}
}

// HasEmbeddedCredentials reports whether a Postgres connection string carries
// a password. Credentials belong in the environment, .pgpass, or the OS
// keyring, never in the config flag.
func HasEmbeddedCredentials(connStr string) bool {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		parsedURL, err := url.Parse(connStr)
		if err != nil {
			return false
		}
		if parsedURL.User != nil {
			if _, isSet := parsedURL.User.Password(); isSet {
				return true
			}
		}
		return false
	}

	for _, pair := range strings.Fields(connStr) {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 && strings.ToLower(strings.TrimSpace(parts[0])) == "password" {
			return true
		}
	}
	return false
}

func (s *PostgresStore) Init() error {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool parameters to avoid connection exhaustion
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	s.db = db

	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := s.createSchema(); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := s.GetSettings(); err != nil {
		defaults := models.Settings{
			AutoStartBreak:     constants.DefaultAutoStartBreak,
			DefaultPomodoroMin: constants.DefaultPomodoroMin,
			DefaultBreakMin:    constants.DefaultBreakMin,
			Timezone:           constants.DefaultTimezone,
		}
		if err := s.SaveSettings(defaults); err != nil {
			return fmt.Errorf("failed to save default settings: %w", err)
		}
	}

	return nil
}

func (s *PostgresStore) Load() error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db

	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *PostgresStore) createSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS quests (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			validation_status TEXT NOT NULL,
			doc JSONB NOT NULL,
			deleted_at TIMESTAMPTZ
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			quest_id TEXT NOT NULL,
			session_type TEXT NOT NULL,
			status TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			start_day TEXT NOT NULL,
			actual_duration_min INTEGER NOT NULL DEFAULT 0,
			doc JSONB NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			collection TEXT NOT NULL,
			document_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			payload JSONB,
			priority INTEGER NOT NULL DEFAULT 0,
			retries INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sync_dead_letters (
			id TEXT PRIMARY KEY,
			doc JSONB NOT NULL,
			reason TEXT NOT NULL,
			failed_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_quests_user ON quests(user_id, deleted_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_day ON sessions(user_id, start_day, status);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_quest ON sessions(quest_id);`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_order ON sync_queue(priority DESC, seq);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) GetSettings() (models.Settings, error) {
	rows, err := s.db.Query("SELECT key, value FROM settings")
	if err != nil {
		return models.Settings{}, err
	}
	defer rows.Close()

	settings := models.Settings{}
	count := 0
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, err
		}
		switch key {
		case constants.SettingAutoStartBreak:
			settings.AutoStartBreak = value == "true"
		case constants.SettingDefaultPomodoroMin:
			if settings.DefaultPomodoroMin, err = strconv.Atoi(value); err != nil {
				return models.Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
		case constants.SettingDefaultBreakMin:
			if settings.DefaultBreakMin, err = strconv.Atoi(value); err != nil {
				return models.Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
		case constants.SettingTimezone:
			settings.Timezone = value
		}
		count++
	}

	if count == 0 {
		return models.Settings{}, fmt.Errorf("settings not found")
	}

	return settings, nil
}

func (s *PostgresStore) SaveSettings(settings models.Settings) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	pairs := [][2]string{
		{constants.SettingAutoStartBreak, strconv.FormatBool(settings.AutoStartBreak)},
		{constants.SettingDefaultPomodoroMin, strconv.Itoa(settings.DefaultPomodoroMin)},
		{constants.SettingDefaultBreakMin, strconv.Itoa(settings.DefaultBreakMin)},
		{constants.SettingTimezone, settings.Timezone},
	}
	for _, kv := range pairs {
		if _, err := stmt.Exec(kv[0], kv[1]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) AddQuest(quest models.Quest) error {
	return s.UpdateQuest(quest)
}

func (s *PostgresStore) GetQuest(id string) (models.Quest, error) {
	row := s.db.QueryRow("SELECT doc FROM quests WHERE id = $1 AND deleted_at IS NULL", id)
	return scanQuestDoc(row)
}

func (s *PostgresStore) GetQuestsForUser(userID string) ([]models.Quest, error) {
	rows, err := s.db.Query(
		"SELECT doc FROM quests WHERE user_id = $1 AND deleted_at IS NULL", userID)
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

func (s *PostgresStore) UpdateQuest(quest models.Quest) error {
	doc, err := json.Marshal(quest)
	if err != nil {
		return fmt.Errorf("failed to marshal quest: %w", err)
	}

	var deletedAt interface{}
	if quest.DeletedAt != nil {
		deletedAt = *quest.DeletedAt
	}

	_, err = s.db.Exec(`
		INSERT INTO quests (id, user_id, type, validation_status, doc, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			type = EXCLUDED.type,
			validation_status = EXCLUDED.validation_status,
			doc = EXCLUDED.doc,
			deleted_at = EXCLUDED.deleted_at`,
		quest.ID, quest.UserID, quest.Type, quest.ValidationStatus, string(doc), deletedAt,
	)
	return err
}

func (s *PostgresStore) DeleteQuest(id string) error {
	var deletedAt sql.NullTime
	err := s.db.QueryRow("SELECT deleted_at FROM quests WHERE id = $1", id).Scan(&deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("quest with id %s not found", id)
		}
		return fmt.Errorf("failed to check quest existence: %w", err)
	}
	if deletedAt.Valid {
		return fmt.Errorf("quest with id %s is already deleted", id)
	}

	_, err = s.db.Exec("UPDATE quests SET deleted_at = NOW() WHERE id = $1", id)
	return err
}

func (s *PostgresStore) RestoreQuest(id string) error {
	var deletedAt sql.NullTime
	err := s.db.QueryRow("SELECT deleted_at FROM quests WHERE id = $1", id).Scan(&deletedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("quest with id %s not found", id)
		}
		return fmt.Errorf("failed to check quest existence: %w", err)
	}
	if !deletedAt.Valid {
		return fmt.Errorf("cannot restore a quest that is not deleted: %s", id)
	}

	_, err = s.db.Exec("UPDATE quests SET deleted_at = NULL WHERE id = $1", id)
	return err
}

func (s *PostgresStore) AddSession(session models.Session) error {
	return s.UpdateSession(session)
}

func (s *PostgresStore) GetSession(id string) (models.Session, error) {
	row := s.db.QueryRow("SELECT doc FROM sessions WHERE id = $1", id)
	return scanSessionDoc(row)
}

func (s *PostgresStore) UpdateSession(session models.Session) error {
	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (
			id, user_id, quest_id, session_type, status, start_time, start_day,
			actual_duration_min, doc
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			quest_id = EXCLUDED.quest_id,
			session_type = EXCLUDED.session_type,
			status = EXCLUDED.status,
			start_time = EXCLUDED.start_time,
			start_day = EXCLUDED.start_day,
			actual_duration_min = EXCLUDED.actual_duration_min,
			doc = EXCLUDED.doc`,
		session.ID, session.UserID, session.QuestID, session.SessionType, session.Status,
		session.StartTime.UTC(), session.StartTime.Format(constants.DateFormat),
		session.ActualDurationMin, string(doc),
	)
	return err
}

func (s *PostgresStore) DeleteSession(id string) error {
	res, err := s.db.Exec("DELETE FROM sessions WHERE id = $1", id)
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

func (s *PostgresStore) GetOpenSession(userID string) (models.Session, error) {
	row := s.db.QueryRow(`
		SELECT doc FROM sessions
		WHERE user_id = $1 AND status IN ('active', 'paused')
		ORDER BY start_time DESC LIMIT 1`, userID)
	return scanSessionDoc(row)
}

func (s *PostgresStore) GetSessionsForUserSince(userID string, since time.Time) ([]models.Session, error) {
	rows, err := s.db.Query(`
		SELECT doc FROM sessions
		WHERE user_id = $1 AND start_time >= $2
		ORDER BY start_time`, userID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (s *PostgresStore) GetSessionsForQuest(questID string) ([]models.Session, error) {
	rows, err := s.db.Query(
		"SELECT doc FROM sessions WHERE quest_id = $1 ORDER BY start_time", questID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (s *PostgresStore) CountCompletedPomodoros(userID, questID, day string) (int, error) {
	query := `
		SELECT COUNT(*) FROM sessions
		WHERE user_id = $1 AND session_type = 'pomodoro' AND status = 'completed'
		  AND start_day = $2 AND actual_duration_min >= $3`
	args := []interface{}{userID, day, constants.MinCapSessionMin}
	if questID != "" {
		query += " AND quest_id = $4"
		args = append(args, questID)
	}

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *PostgresStore) GetUser(id string) (models.UserProfile, error) {
	row := s.db.QueryRow("SELECT doc FROM users WHERE id = $1", id)

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

func (s *PostgresStore) PutUser(user models.UserProfile) error {
	doc, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO users (id, doc) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`, user.ID, string(doc))
	return err
}

func (s *PostgresStore) EnqueueSyncOp(op models.SyncOperation) error {
	var payload interface{}
	if len(op.Payload) > 0 {
		payload = string(op.Payload)
	}
	var lastError interface{}
	if op.LastError != "" {
		lastError = op.LastError
	}

	_, err := s.db.Exec(`
		INSERT INTO sync_queue (id, collection, document_id, operation, payload, priority, retries, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		op.ID, op.Collection, op.DocumentID, op.Operation, payload,
		op.Priority, op.Retries, lastError, op.CreatedAt.UTC(),
	)
	return err
}

func (s *PostgresStore) NextSyncOps(collection string, limit int) ([]models.SyncOperation, error) {
	query := `
		SELECT id, collection, document_id, operation, payload, priority, retries, last_error, created_at
		FROM sync_queue`
	var args []interface{}
	// seq is a serial column tracking insertion order.
	if collection != "" {
		query += " WHERE collection = $1 ORDER BY priority DESC, seq LIMIT $2"
		args = append(args, collection, limit)
	} else {
		query += " ORDER BY priority DESC, seq LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []models.SyncOperation
	for rows.Next() {
		var op models.SyncOperation
		var payload, lastError sql.NullString
		var createdAt time.Time
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
		op.CreatedAt = createdAt
		ops = append(ops, op)
	}

	return ops, rows.Err()
}

func (s *PostgresStore) UpdateSyncOp(op models.SyncOperation) error {
	var lastError interface{}
	if op.LastError != "" {
		lastError = op.LastError
	}
	res, err := s.db.Exec(
		"UPDATE sync_queue SET retries = $1, last_error = $2 WHERE id = $3",
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

func (s *PostgresStore) DeleteSyncOp(id string) error {
	_, err := s.db.Exec("DELETE FROM sync_queue WHERE id = $1", id)
	return err
}

func (s *PostgresStore) CountSyncOps() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sync_queue").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *PostgresStore) AddDeadLetter(dl models.DeadLetter) error {
	doc, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}
	_, err = s.db.Exec(
		"INSERT INTO sync_dead_letters (id, doc, reason, failed_at) VALUES ($1, $2, $3, $4)",
		dl.ID, string(doc), dl.Reason, dl.FailedAt.UTC())
	return err
}

func (s *PostgresStore) GetDeadLetters() ([]models.DeadLetter, error) {
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

func (s *PostgresStore) CountDeadLetters() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sync_dead_letters").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *PostgresStore) ClearDeadLetters() error {
	_, err := s.db.Exec("DELETE FROM sync_dead_letters")
	return err
}

func (s *PostgresStore) GetConfigPath() string {
	return s.connStr
}

func scanQuestDoc(row *sql.Row) (models.Quest, error) {
	var doc string
	if err := row.Scan(&doc); err != nil {
		if err == sql.ErrNoRows {
			return models.Quest{}, ErrNotFound
		}
		return models.Quest{}, err
	}
	var q models.Quest
	if err := json.Unmarshal([]byte(doc), &q); err != nil {
		return models.Quest{}, fmt.Errorf("failed to decode quest: %w", err)
	}
	return q, nil
}

func scanSessionDoc(row *sql.Row) (models.Session, error) {
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
