package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/settleops/settlement-engine/internal/domain"
	"github.com/settleops/settlement-engine/internal/observability"
	"github.com/settleops/settlement-engine/internal/registry"
	"github.com/settleops/settlement-engine/internal/repository"
	"go.uber.org/zap"
)

// EventNotification is the live-channel event name for fanned-out
// notifications.
const EventNotification = "NOTIFICATION"

// NotificationPayload is the live-channel shape of one notification.
type NotificationPayload struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier persists a notification and fans it out live to the acting
// user and every admin.
type Notifier struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	registry      registry.Registry
	logger        *zap.Logger
	metrics       *observability.Metrics
	now           func() time.Time
}

func NewNotifier(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	reg registry.Registry,
	logger *zap.Logger,
) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		notifications: notifications,
		users:         users,
		registry:      reg,
		logger:        logger,
		now:           time.Now,
	}
}

func (n *Notifier) SetMetrics(metrics *observability.Metrics) {
	if n == nil {
		return
	}
	n.metrics = metrics
}

// NotifyAll writes one notification row and emits it to the actor and,
// independently, to every user currently holding the admin role. Admins
// are looked up fresh on every call. An admin actor receives two
// deliveries; that duplication is accepted. If the row write fails, a
// non-persisted event is emitted anyway so the live session still gets
// feedback.
func (n *Notifier) NotifyAll(ctx context.Context, actorID string, message string, typ domain.NotificationType) {
	if n.metrics != nil {
		n.metrics.IncNotification(typ.String())
	}

	notification := &domain.Notification{
		ID:        uuid.NewString(),
		Recipient: actorID,
		Message:   message,
		Type:      typ,
		CreatedAt: n.now().UTC(),
	}

	if err := n.notifications.Create(ctx, notification); err != nil {
		n.logger.Error("failed to persist notification, emitting unpersisted fallback",
			zap.String("recipient", actorID),
			zap.String("type", typ.String()),
			zap.Error(err),
		)
	}

	event := registry.Event{
		Name: EventNotification,
		Payload: NotificationPayload{
			ID:        notification.ID,
			Message:   notification.Message,
			Type:      notification.Type.String(),
			CreatedAt: notification.CreatedAt,
		},
	}

	// The role lookup only informs logging; delivery to the actor fails open.
	if _, err := n.users.GetByID(ctx, actorID); err != nil {
		n.logger.Warn("actor role lookup failed, emitting anyway",
			zap.String("actorId", actorID),
			zap.Error(err),
		)
	}
	n.registry.Emit(actorID, event)

	admins, err := n.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		n.logger.Error("admin lookup failed, skipping admin fan-out",
			zap.Error(err),
		)
		return
	}

	for _, admin := range admins {
		n.registry.Emit(admin.ID, event)
	}
}
