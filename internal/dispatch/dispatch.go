// Package dispatch validates, persists, and relays the six event kinds
// raised by the automation worker and internal commands. Dispatch is
// fire-and-forget: nothing is ever raised back to the caller, so a
// persistence hiccup can never block the external worker.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/settleops/settlement-engine/internal/domain"
	"github.com/settleops/settlement-engine/internal/observability"
	"github.com/settleops/settlement-engine/internal/registry"
	"github.com/settleops/settlement-engine/internal/repository"
	"go.uber.org/zap"
)

// EventName identifies one of the six dispatchable event kinds. Handlers
// are resolved through an enum-keyed map built at construction, so adding
// a kind without a handler fails fast at startup.
type EventName string

const (
	EventProgressTracker     EventName = "PROGRESS_TRACKER"
	EventConfirmationDialog  EventName = "CONFIRMATION_DIALOG"
	EventVerificationOptions EventName = "VERIFICATION_OPTIONS"
	EventVerificationCode    EventName = "VERIFICATION_CODE"
	EventMatchesStatus       EventName = "MATCHES_STATUS"
	EventTransferStatus      EventName = "TRANSFER_STATUS"
)

func (e EventName) String() string { return string(e) }

func (e EventName) IsValid() bool {
	switch e {
	case EventProgressTracker, EventConfirmationDialog, EventVerificationOptions,
		EventVerificationCode, EventMatchesStatus, EventTransferStatus:
		return true
	}
	return false
}

func ParseEventNameFromString(s string) (EventName, error) {
	name := EventName(strings.ToUpper(strings.TrimSpace(s)))
	if !name.IsValid() {
		return "", fmt.Errorf("%w: invalid event name %q", domain.ErrValidation, s)
	}
	return name, nil
}

// Request carries one dispatched event.
type Request struct {
	ProcessID   string
	ActorID     string
	EventName   EventName
	Status      string
	Stage       string
	Data        map[string]any
	ThreadStage *string
	ThreadID    *string
}

// Notifier is the async error channel of the router.
type Notifier interface {
	NotifyAll(ctx context.Context, actorID string, message string, typ domain.NotificationType)
}

type handlerFunc func(ctx context.Context, req Request) error

// Dispatcher routes events to their kind handler. Audited kinds write an
// audit row before any emission; if that write fails the dispatch fails
// closed and nothing is emitted.
type Dispatcher struct {
	audits    repository.AuditRepository
	matches   repository.MatchRepository
	transfers repository.TransferRepository
	registry  registry.Registry
	notifier  Notifier
	logger    *zap.Logger
	metrics   *observability.Metrics
	handlers  map[EventName]handlerFunc
	now       func() time.Time
}

func NewDispatcher(
	audits repository.AuditRepository,
	matches repository.MatchRepository,
	transfers repository.TransferRepository,
	reg registry.Registry,
	notifier Notifier,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		audits:    audits,
		matches:   matches,
		transfers: transfers,
		registry:  reg,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}

	d.handlers = map[EventName]handlerFunc{
		EventProgressTracker:     d.audited("message"),
		EventConfirmationDialog:  d.audited("message", "threadId"),
		EventVerificationOptions: d.audited("message", "options", "timeout", "threadId"),
		EventVerificationCode:    d.audited("message", "timeout", "threadId"),
		EventMatchesStatus:       d.handleMatchesStatus,
		EventTransferStatus:      d.handleTransferStatus,
	}

	return d
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Dispatch runs the event's handler and converts any failure into exactly
// one ERROR notification broadcast to the actor. It never returns an
// error to its caller.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) {
	if err := d.dispatch(ctx, req); err != nil {
		d.logger.Error("dispatch failed",
			zap.String("event", req.EventName.String()),
			zap.String("processId", req.ProcessID),
			zap.Error(err),
		)
		d.observe(req.EventName, "error")
		d.notifier.NotifyAll(ctx, req.ActorID,
			fmt.Sprintf("%s: %v", req.EventName, err),
			domain.NotificationError)
		return
	}
	d.observe(req.EventName, "ok")
}

func (d *Dispatcher) dispatch(ctx context.Context, req Request) error {
	handler, ok := d.handlers[req.EventName]
	if !ok {
		return fmt.Errorf("%w: unknown event %q", domain.ErrValidation, req.EventName)
	}
	return handler(ctx, req)
}

// audited builds the handler for the four audited kinds: validate the
// required payload fields, write the audit row, then emit to the actor.
func (d *Dispatcher) audited(requiredFields ...string) handlerFunc {
	return func(ctx context.Context, req Request) error {
		for _, field := range requiredFields {
			if _, ok := req.Data[field]; !ok {
				return fmt.Errorf("%w: missing field %q", domain.ErrValidation, field)
			}
		}

		record := &domain.AuditRecord{
			ID:          uuid.NewString(),
			ProcessID:   req.ProcessID,
			Stage:       req.Stage,
			EventName:   req.EventName.String(),
			Status:      req.Status,
			Payload:     req.Data,
			ThreadStage: req.ThreadStage,
			ThreadID:    req.ThreadID,
			CreatedAt:   d.now().UTC(),
		}
		if err := d.audits.Create(ctx, record); err != nil {
			return fmt.Errorf("failed to write audit record: %w", err)
		}

		payload := make(map[string]any, len(req.Data)+2)
		for key, value := range req.Data {
			payload[key] = value
		}
		payload["status"] = req.Status
		payload["stage"] = req.Stage

		d.registry.Emit(req.ActorID, registry.Event{
			Name:    req.EventName.String(),
			Payload: payload,
		})
		return nil
	}
}

// handleMatchesStatus writes the match status straight through and emits
// the updated row to the actor. No audit record is written for this kind.
func (d *Dispatcher) handleMatchesStatus(ctx context.Context, req Request) error {
	if strings.TrimSpace(req.Status) == "" {
		return fmt.Errorf("%w: missing field %q", domain.ErrValidation, "status")
	}
	rawID, ok := req.Data["id"]
	if !ok {
		return fmt.Errorf("%w: missing field %q", domain.ErrValidation, "id")
	}
	matchID, ok := rawID.(string)
	if !ok || matchID == "" {
		return fmt.Errorf("%w: field %q must be a non-empty string", domain.ErrValidation, "id")
	}

	status, err := domain.ParseMatchStatusFromString(req.Status)
	if err != nil {
		return err
	}

	updatedAt, err := d.matches.UpdateStatus(ctx, matchID, status)
	if err != nil {
		return fmt.Errorf("failed to update match %s: %w", matchID, err)
	}

	d.registry.Emit(req.ActorID, registry.Event{
		Name: EventMatchesStatus.String(),
		Payload: map[string]any{
			"status":     status.String(),
			"id":         matchID,
			"updated_at": updatedAt,
		},
	})
	return nil
}

// handleTransferStatus resolves the transfer account by username and
// updates its per-currency status row. No audit record, no emission.
func (d *Dispatcher) handleTransferStatus(ctx context.Context, req Request) error {
	rawAccount, ok := req.Data["account"]
	if !ok {
		return fmt.Errorf("%w: missing field %q", domain.ErrValidation, "account")
	}
	username, ok := rawAccount.(string)
	if !ok || username == "" {
		return fmt.Errorf("%w: field %q must be a non-empty string", domain.ErrValidation, "account")
	}

	rawCurrency, ok := req.Data["currency"]
	if !ok {
		return fmt.Errorf("%w: missing field %q", domain.ErrValidation, "currency")
	}
	currency, ok := rawCurrency.(string)
	if !ok || currency == "" {
		return fmt.Errorf("%w: field %q must be a non-empty string", domain.ErrValidation, "currency")
	}

	account, err := d.transfers.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("transfer account %q: %w", username, err)
	}

	if err := d.transfers.UpdateCurrencyStatus(ctx, account.ID, currency, req.Status); err != nil {
		return fmt.Errorf("failed to update transfer status: %w", err)
	}
	return nil
}

func (d *Dispatcher) observe(event EventName, outcome string) {
	if d.metrics == nil {
		return
	}
	d.metrics.IncEventDispatched(event.String(), outcome)
}
