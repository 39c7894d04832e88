package models

import (
	"encoding/json"
	"time"
)

type SyncOpType string

const (
	SyncOpCreate   SyncOpType = "create"
	SyncOpUpdate   SyncOpType = "update"
	SyncOpDelete   SyncOpType = "delete"
	SyncOpValidate SyncOpType = "validate"
)

// Collections a SyncOperation may target.
const (
	CollectionQuests       = "quests"
	CollectionSessions     = "sessions"
	CollectionUsers        = "users"
	CollectionGMValidation = "gm_validation"
)

// SyncOperation is one pending mutation in the durable outbox. Duplicate
// operations for the same document are allowed; later operations simply
// execute in order.
type SyncOperation struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	DocumentID string          `json:"document_id"`
	Operation  SyncOpType      `json:"operation"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Priority   int             `json:"priority"` // 0-10, higher drains first
	Retries    int             `json:"retries"`
	LastError  string          `json:"last_error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// DeadLetter preserves an operation that exhausted its retry budget so
// permanently-dropped mutations stay visible instead of vanishing into a log
// line.
type DeadLetter struct {
	ID        string          `json:"id"`
	Op        SyncOperation   `json:"op"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Reason    string          `json:"reason"`
	FailedAt  time.Time       `json:"failed_at"`
}
