package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/settleops/settlement-engine/internal/domain"
	"github.com/settleops/settlement-engine/internal/observability"
	"github.com/settleops/settlement-engine/internal/ratelimit"
	"github.com/settleops/settlement-engine/internal/registry"
	"github.com/settleops/settlement-engine/internal/repository"
	"go.uber.org/zap"
)

const apiKeyHeader = "X-API-Key"

// WebhookHandler receives match-status callbacks from the external
// automation worker. Keys are scoped to the automation application and to
// one process; a key presented for another process's match is treated as
// unauthorized, not as a bad request.
type WebhookHandler struct {
	apiKeys   repository.APIKeyRepository
	matches   repository.MatchRepository
	processes repository.ProcessRepository
	registry  registry.Registry
	limiter   ratelimit.RateLimiter
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func NewWebhookHandler(
	apiKeys repository.APIKeyRepository,
	matches repository.MatchRepository,
	processes repository.ProcessRepository,
	reg registry.Registry,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		apiKeys:   apiKeys,
		matches:   matches,
		processes: processes,
		registry:  reg,
		limiter:   limiter,
		logger:    logger,
	}
}

func (h *WebhookHandler) SetMetrics(metrics *observability.Metrics) {
	if h == nil {
		return
	}
	h.metrics = metrics
}

func RegisterWebhookRoutes(router fiber.Router, h *WebhookHandler) {
	v1 := router.Group("/v1")
	v1.Put("/match-status", h.UpdateMatchStatus)
}

type matchStatusRequest struct {
	MatchID     string `json:"match_id"`
	MatchStatus string `json:"match_status"`
}

func (h *WebhookHandler) UpdateMatchStatus(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Get(apiKeyHeader))
	if key == "" {
		h.reject("missing_key")
		return fiber.NewError(fiber.StatusUnauthorized, "missing api key")
	}

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(c.Context(), key)
		if err != nil {
			// Rate limiting is best-effort; an unavailable limiter must
			// not block the worker.
			h.logger.Warn("rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			h.reject("rate_limited")
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}
	}

	apiKey, err := h.apiKeys.GetByKey(c.Context(), key)
	if err != nil {
		h.reject("invalid_key")
		return fiber.NewError(fiber.StatusUnauthorized, "invalid api key")
	}
	if apiKey.Application != domain.ApplicationAutomation {
		h.reject("wrong_application")
		return fiber.NewError(fiber.StatusUnauthorized, "api key not scoped to automation")
	}

	var req matchStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.MatchID) == "" || strings.TrimSpace(req.MatchStatus) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "match_id and match_status are required")
	}

	status, err := domain.ParseMatchStatusFromString(req.MatchStatus)
	if err != nil {
		return toHTTPError(err)
	}

	match, err := h.matches.GetByID(c.Context(), req.MatchID)
	if err != nil {
		return toHTTPError(err)
	}
	if match.ProcessID != apiKey.ProcessID {
		h.reject("unscoped_process")
		return fiber.NewError(fiber.StatusUnauthorized, "api key not scoped to this process")
	}

	updatedAt, err := h.matches.UpdateStatus(c.Context(), match.ID, status)
	if err != nil {
		return toHTTPError(err)
	}

	// The supervising UI session belongs to the process owner.
	if process, lookupErr := h.processes.GetByID(c.Context(), match.ProcessID); lookupErr == nil {
		h.registry.Emit(process.OwnerID, registry.Event{
			Name: "MATCHES_STATUS",
			Payload: map[string]any{
				"status":     status.String(),
				"id":         match.ID,
				"updated_at": updatedAt,
			},
		})
	} else {
		h.logger.Warn("process owner lookup failed, live update skipped",
			zap.String("processId", match.ProcessID),
			zap.Error(lookupErr),
		)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "match status updated",
	})
}

func (h *WebhookHandler) reject(reason string) {
	if h.metrics == nil {
		return
	}
	h.metrics.IncWebhookRejection(reason)
}
