// Package gm is the difficulty-validation pipeline: quests are queued for
// review, sent to the remote reasoner when reachable, and classified by a
// deterministic local heuristic otherwise. Either path locks the resulting
// difficulty onto the quest.
package gm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kverlaine/questforge/internal/constants"
	"github.com/kverlaine/questforge/internal/models"
	"github.com/kverlaine/questforge/internal/storage"
	"github.com/kverlaine/questforge/internal/syncqueue"
	"github.com/kverlaine/questforge/internal/transport"
)

// Remote is the slice of the transport client the validator needs.
type Remote interface {
	ValidateQuest(ctx context.Context, req transport.ValidationRequest) (transport.ValidationResponse, error)
}

// Service owns the validation lifecycle. It implements
// syncqueue.ValidationProcessor so the drainer can hand gm_validation
// operations back to it each cycle.
type Service struct {
	store  storage.Provider
	queue  *syncqueue.Queue
	remote Remote
	logger *log.Logger
	now    func() time.Time
}

func NewService(store storage.Provider, queue *syncqueue.Queue, remote Remote, logger *log.Logger) *Service {
	return &Service{
		store:  store,
		queue:  queue,
		remote: remote,
		logger: logger,
		now:    time.Now,
	}
}

// SetNow overrides the clock (tests).
func (s *Service) SetNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// QueueValidation marks the quest queued and enqueues a validation operation.
// Re-queuing an already-queued quest enqueues another operation; a later pass
// that finds the quest already validated completes the duplicate harmlessly.
func (s *Service) QueueValidation(quest models.Quest) error {
	if quest.ValidationStatus != models.ValidationQueued {
		quest.ValidationStatus = models.ValidationQueued
		quest.UpdatedAt = s.now().UTC()
		if err := s.store.UpdateQuest(quest); err != nil {
			return fmt.Errorf("failed to mark quest %s queued: %w", quest.ID, err)
		}
	}
	return s.queue.Enqueue(models.CollectionGMValidation, quest.ID, models.SyncOpValidate, constants.PriorityValidation, nil)
}

// ProcessPendingQueue works through up to a batch of pending validation
// operations. Remote validation is attempted first; any remote failure or
// rejection falls back to the local heuristic. An operation is removed only
// once one of the two paths has locked a difficulty onto the quest.
func (s *Service) ProcessPendingQueue(ctx context.Context) error {
	ops, err := s.queue.Next(models.CollectionGMValidation, constants.ValidationBatchSize)
	if err != nil {
		return fmt.Errorf("failed to fetch validation operations: %w", err)
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.processOp(ctx, op); err != nil {
			s.logError("validation failed, operation kept for retry", err, "quest", op.DocumentID)
		}
	}
	return nil
}

func (s *Service) processOp(ctx context.Context, op models.SyncOperation) error {
	quest, err := s.store.GetQuest(op.DocumentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Quest deleted since enqueue; the operation is moot.
			return s.queue.Complete(op)
		}
		return err
	}

	if quest.ValidationStatus == models.ValidationValidated {
		// Duplicate enqueue; an earlier operation already finished the job.
		return s.queue.Complete(op)
	}

	metrics, err := GatherMetrics(s.store, quest.UserID, s.now())
	if err != nil {
		return s.failOp(op, quest, fmt.Errorf("failed to gather metrics: %w", err))
	}

	outcome, remoteErr := s.validateRemote(ctx, quest, metrics)
	if remoteErr == nil {
		if v, ok := outcome.(Validated); ok {
			if err := s.applyValidation(quest, v, "remote"); err != nil {
				return s.failOp(op, quest, err)
			}
			return s.queue.Complete(op)
		}
		if r, ok := outcome.(Rejected); ok {
			remoteErr = fmt.Errorf("remote rejected validation: %s", r.Reason)
		}
	}
	s.logf("remote validation unavailable, using local heuristic", "quest", quest.ID, "error", remoteErr)

	local := Classify(quest, metrics)
	v := Validated{
		Difficulty:      local.Difficulty,
		Confidence:      local.Confidence,
		Reasoning:       local.Reasoning,
		Recommendations: local.Recommendations,
		XPPerPomodoro:   local.XPPerPomodoro,
	}
	if err := s.applyValidation(quest, v, "local"); err != nil {
		return s.failOp(op, quest, err)
	}
	return s.queue.Complete(op)
}

// validateRemote sends the quest plus user context to the remote reasoner and
// interprets the raw response into a RemoteOutcome.
func (s *Service) validateRemote(ctx context.Context, quest models.Quest, m Metrics) (RemoteOutcome, error) {
	if s.remote == nil {
		return nil, transport.ErrOffline
	}
	resp, err := s.remote.ValidateQuest(ctx, transport.ValidationRequest{
		QuestID: quest.ID,
		QuestData: transport.QuestData{
			Title:       quest.Title,
			Description: quest.Description,
			Subtasks:    quest.Subtasks,
		},
		Context: transport.UserContext{
			WeeklyVelocity:     m.WeeklyVelocity,
			MonthlyConsistency: m.MonthlyConsistency,
			AvgSessionQuality:  m.AvgSessionQuality,
			BurnoutRisk:        string(m.BurnoutRisk),
			EstimatedHours:     quest.EstimatedHours,
		},
	})
	if err != nil {
		return nil, err
	}

	suggested := models.Difficulty(resp.SuggestedDifficulty)
	if !suggested.IsValid() {
		reason := resp.Reasoning
		if reason == "" {
			reason = "response carried no usable difficulty suggestion"
		}
		return Rejected{Reason: reason}, nil
	}

	return Validated{
		Difficulty:      suggested,
		Confidence:      resp.Confidence,
		Reasoning:       resp.Reasoning,
		Recommendations: resp.Recommendations,
		XPPerPomodoro:   resp.SuggestedXPPerPomodoro,
	}, nil
}

// applyValidation locks the accepted difficulty onto the quest and records
// the feedback that produced it.
func (s *Service) applyValidation(quest models.Quest, v Validated, source string) error {
	now := s.now().UTC()
	difficulty := v.Difficulty
	xp := v.XPPerPomodoro
	if xp <= 0 {
		xp = XPForTier(difficulty)
	}

	quest.Difficulty.GMValidated = &difficulty
	quest.Difficulty.IsLocked = true
	quest.Difficulty.Confidence = v.Confidence
	quest.Difficulty.ValidatedAt = &now
	quest.Difficulty.XPPerPomodoro = xp
	quest.GMFeedback = &models.GMFeedback{
		Reasoning:       v.Reasoning,
		Recommendations: v.Recommendations,
		Confidence:      v.Confidence,
		Source:          source,
		CreatedAt:       now,
	}
	quest.ValidationStatus = models.ValidationValidated
	quest.UpdatedAt = now

	if err := s.store.UpdateQuest(quest); err != nil {
		return fmt.Errorf("failed to persist validated quest %s: %w", quest.ID, err)
	}
	s.logf("quest validated", "quest", quest.ID, "difficulty", difficulty, "source", source, "confidence", fmt.Sprintf("%.2f", v.Confidence))
	return nil
}

// failOp marks the quest failed and books a retry for the operation. The
// failure that exhausts the retry budget drops the operation to dead letters.
func (s *Service) failOp(op models.SyncOperation, quest models.Quest, cause error) error {
	quest.ValidationStatus = models.ValidationFailed
	quest.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateQuest(quest); err != nil {
		s.logError("failed to mark quest failed", err, "quest", quest.ID)
	}

	dropped, err := s.queue.Fail(op, cause)
	if err != nil {
		return err
	}
	if dropped {
		s.logError("validation exhausted retries, moved to dead letters", cause, "quest", quest.ID)
		return nil
	}
	return cause
}

func (s *Service) logf(msg string, keyvals ...interface{}) {
	if s.logger != nil {
		s.logger.Info(msg, keyvals...)
	}
}

func (s *Service) logError(msg string, err error, keyvals ...interface{}) {
	if s.logger != nil {
		s.logger.Error(msg, append([]interface{}{"error", err}, keyvals...)...)
	}
}
