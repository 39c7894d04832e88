package syncqueue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kverlaine/questforge/internal/constants"
	"github.com/kverlaine/questforge/internal/models"
	"github.com/kverlaine/questforge/internal/storage"
)

// Transport is the slice of the remote client the drainer needs.
type Transport interface {
	Online() bool
	Ping(ctx context.Context) (wasOnline, isOnline bool)
	PushQuest(ctx context.Context, quest models.Quest) error
	PushSession(ctx context.Context, session models.Session) error
	PushUser(ctx context.Context, user models.UserProfile) error
}

// ValidationProcessor handles gm_validation operations; the generic drainer
// leaves those to it. Implemented by gm.Service.
type ValidationProcessor interface {
	ProcessPendingQueue(ctx context.Context) error
}

// Drainer is the background delivery loop. Exactly one drain pass runs at a
// time, guarded by a CAS flag.
type Drainer struct {
	queue     *Queue
	store     storage.Provider
	transport Transport
	validator ValidationProcessor
	logger    *log.Logger
	interval  time.Duration
	draining  atomic.Bool
}

func NewDrainer(queue *Queue, store storage.Provider, transport Transport, validator ValidationProcessor, logger *log.Logger) *Drainer {
	return &Drainer{
		queue:     queue,
		store:     store,
		transport: transport,
		validator: validator,
		logger:    logger,
		interval:  constants.DefaultDrainIntervalMin * time.Minute,
	}
}

// SetInterval overrides the drain interval (used by config and tests).
func (d *Drainer) SetInterval(interval time.Duration) {
	if interval > 0 {
		d.interval = interval
	}
}

// Run drains on a fixed interval while online, probing connectivity between
// passes so an offline-to-online transition triggers an immediate drain. It
// blocks until the context is cancelled.
func (d *Drainer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	probe := time.NewTicker(30 * time.Second)
	defer probe.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-probe.C:
			if d.transport == nil {
				continue
			}
			wasOnline, isOnline := d.transport.Ping(ctx)
			if !wasOnline && isOnline {
				d.logf("connectivity restored, draining immediately")
				d.runCycle(ctx)
			}
		case <-ticker.C:
			d.runCycle(ctx)
		}
	}
}

// runCycle is one scheduled pass: generic drain plus validation processing.
// A failure in either half is logged and must not kill the loop.
func (d *Drainer) runCycle(ctx context.Context) {
	if err := d.Drain(ctx, constants.SyncBatchSize); err != nil {
		d.logError("sync drain failed", err)
	}
	if d.validator != nil {
		if err := d.validator.ProcessPendingQueue(ctx); err != nil {
			d.logError("validation queue processing failed", err)
		}
	}
}

// Drain delivers up to batchSize pending operations. It is a no-op while
// offline or while another pass is in flight.
func (d *Drainer) Drain(ctx context.Context, batchSize int) error {
	if d.transport == nil || !d.transport.Online() {
		return nil
	}
	if !d.draining.CompareAndSwap(false, true) {
		return nil
	}
	defer d.draining.Store(false)

	ops, err := d.queue.Next("", batchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch sync operations: %w", err)
	}

	for _, op := range ops {
		// Validation operations belong to the GM pipeline.
		if op.Collection == models.CollectionGMValidation {
			continue
		}

		if err := d.dispatch(ctx, op); err != nil {
			dropped, failErr := d.queue.Fail(op, err)
			if failErr != nil {
				return failErr
			}
			if dropped {
				d.logError("sync operation exhausted retries, moved to dead letters", err,
					"op", op.ID, "collection", op.Collection, "document", op.DocumentID)
			} else {
				d.logf("sync operation failed, will retry",
					"op", op.ID, "collection", op.Collection, "retries", op.Retries+1, "error", err)
			}
			continue
		}

		if err := d.queue.Complete(op); err != nil {
			return fmt.Errorf("failed to remove delivered operation %s: %w", op.ID, err)
		}
	}

	return nil
}

func (d *Drainer) dispatch(ctx context.Context, op models.SyncOperation) error {
	switch op.Collection {
	case models.CollectionQuests:
		quest, err := d.store.GetQuest(op.DocumentID)
		if err != nil {
			if err == storage.ErrNotFound {
				// Document deleted locally since enqueue; nothing to push.
				return nil
			}
			return err
		}
		return d.transport.PushQuest(ctx, quest)
	case models.CollectionSessions:
		session, err := d.store.GetSession(op.DocumentID)
		if err != nil {
			if err == storage.ErrNotFound {
				return nil
			}
			return err
		}
		return d.transport.PushSession(ctx, session)
	case models.CollectionUsers:
		user, err := d.store.GetUser(op.DocumentID)
		if err != nil {
			if err == storage.ErrNotFound {
				return nil
			}
			return err
		}
		return d.transport.PushUser(ctx, user)
	default:
		return fmt.Errorf("no transport dispatch for collection %q", op.Collection)
	}
}

func (d *Drainer) logf(msg string, keyvals ...interface{}) {
	if d.logger != nil {
		d.logger.Info(msg, keyvals...)
	}
}

func (d *Drainer) logError(msg string, err error, keyvals ...interface{}) {
	if d.logger != nil {
		d.logger.Error(msg, append([]interface{}{"error", err}, keyvals...)...)
	}
}
