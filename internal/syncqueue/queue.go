// Package syncqueue is the durable outbox: it buffers mutations against local
// storage for eventual delivery to the remote service, surviving restarts and
// offline periods.
package syncqueue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kverlaine/questforge/internal/constants"
	"github.com/kverlaine/questforge/internal/models"
	"github.com/kverlaine/questforge/internal/storage"
)

// Queue wraps the sync_queue collection. Duplicate enqueues for the same
// document are allowed; later operations simply execute in order.
type Queue struct {
	store storage.Provider
}

func NewQueue(store storage.Provider) *Queue {
	return &Queue{store: store}
}

// Enqueue appends a new operation with a fresh retry counter. Collection,
// document id and operation are the only required fields.
func (q *Queue) Enqueue(collection, documentID string, op models.SyncOpType, priority int, payload interface{}) error {
	if collection == "" || documentID == "" || op == "" {
		return fmt.Errorf("sync operation requires collection, document id and operation")
	}
	if priority < 0 {
		priority = 0
	}
	if priority > constants.MaxPriority {
		priority = constants.MaxPriority
	}

	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal sync payload: %w", err)
		}
		raw = encoded
	}

	return q.store.EnqueueSyncOp(models.SyncOperation{
		ID:         uuid.NewString(),
		Collection: collection,
		DocumentID: documentID,
		Operation:  op,
		Payload:    raw,
		Priority:   priority,
		Retries:    0,
		CreatedAt:  time.Now().UTC(),
	})
}

// Next returns up to limit pending operations for the given collection
// (empty matches all), ordered by priority descending then FIFO.
func (q *Queue) Next(collection string, limit int) ([]models.SyncOperation, error) {
	return q.store.NextSyncOps(collection, limit)
}

// Complete removes a successfully delivered operation.
func (q *Queue) Complete(op models.SyncOperation) error {
	return q.store.DeleteSyncOp(op.ID)
}

// Fail records a delivery failure. The operation is kept for the next drain
// cycle until it has failed SyncMaxRetries times; the failure that reaches
// the ceiling removes it from the queue and preserves it as a dead letter.
func (q *Queue) Fail(op models.SyncOperation, cause error) (dropped bool, err error) {
	op.Retries++
	op.LastError = cause.Error()

	if op.Retries >= constants.SyncMaxRetries {
		if err := q.store.AddDeadLetter(models.DeadLetter{
			ID:       uuid.NewString(),
			Op:       op,
			Payload:  op.Payload,
			Reason:   cause.Error(),
			FailedAt: time.Now().UTC(),
		}); err != nil {
			return false, fmt.Errorf("failed to preserve dead letter: %w", err)
		}
		if err := q.store.DeleteSyncOp(op.ID); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, q.store.UpdateSyncOp(op)
}

// Pending returns the number of operations awaiting delivery.
func (q *Queue) Pending() (int, error) {
	return q.store.CountSyncOps()
}

// DeadLetters returns preserved permanently-failed operations.
func (q *Queue) DeadLetters() ([]models.DeadLetter, error) {
	return q.store.GetDeadLetters()
}

// ClearDeadLetters purges the dead-letter collection.
func (q *Queue) ClearDeadLetters() error {
	return q.store.ClearDeadLetters()
}
