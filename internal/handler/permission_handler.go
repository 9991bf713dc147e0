package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/settleops/settlement-engine/internal/domain"
)

// PermissionService is the slice of the grant workflow the HTTP surface
// needs.
type PermissionService interface {
	CreateRequest(ctx context.Context, resourceType, resourceID, action, message, senderID string) (*domain.PermissionGrant, error)
	Accept(ctx context.Context, id string, reviewerID string) error
	Reject(ctx context.Context, id string, reviewerID string) error
	Get(ctx context.Context, id string) (*domain.PermissionGrant, error)
	List(ctx context.Context, status *domain.GrantStatus) ([]domain.PermissionGrant, error)
	Delete(ctx context.Context, id string) error
}

type PermissionHandler struct {
	service PermissionService
}

func NewPermissionHandler(service PermissionService) *PermissionHandler {
	return &PermissionHandler{service: service}
}

func RegisterPermissionRoutes(router fiber.Router, service PermissionService) {
	h := NewPermissionHandler(service)

	v1 := router.Group("/v1")
	v1.Get("/permission-requests", h.List)
	v1.Post("/permission-requests", h.Create)
	v1.Post("/permission-requests/:id/accept", h.Accept)
	v1.Post("/permission-requests/:id/reject", h.Reject)
	v1.Delete("/permission-requests/:id", h.Delete)
}

type createGrantRequest struct {
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Action       string `json:"action"`
	Message      string `json:"message"`
	SenderID     string `json:"sender_id"`
}

type reviewGrantRequest struct {
	ReviewerID string `json:"reviewer_id"`
}

type grantResponse struct {
	ID           string    `json:"id"`
	SenderID     string    `json:"sender_id"`
	ReviewerID   *string   `json:"reviewer_id,omitempty"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Action       string    `json:"action"`
	Message      string    `json:"message,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func (h *PermissionHandler) List(c *fiber.Ctx) error {
	var status *domain.GrantStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, err := domain.ParseGrantStatusFromString(raw)
		if err != nil {
			return toHTTPError(err)
		}
		status = &parsed
	}

	grants, err := h.service.List(c.Context(), status)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]grantResponse, 0, len(grants))
	for _, grant := range grants {
		responses = append(responses, toGrantResponse(&grant))
	}
	return c.Status(fiber.StatusOK).JSON(responses)
}

func (h *PermissionHandler) Create(c *fiber.Ctx) error {
	var req createGrantRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	grant, err := h.service.CreateRequest(c.Context(),
		strings.TrimSpace(req.ResourceType),
		strings.TrimSpace(req.ResourceID),
		strings.TrimSpace(req.Action),
		strings.TrimSpace(req.Message),
		strings.TrimSpace(req.SenderID),
	)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toGrantResponse(grant))
}

func (h *PermissionHandler) Accept(c *fiber.Ctx) error {
	return h.review(c, h.service.Accept)
}

func (h *PermissionHandler) Reject(c *fiber.Ctx) error {
	return h.review(c, h.service.Reject)
}

func (h *PermissionHandler) review(c *fiber.Ctx, reviewFn func(ctx context.Context, id, reviewerID string) error) error {
	id := strings.TrimSpace(c.Params("id"))

	var req reviewGrantRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.ReviewerID) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "reviewer_id is required")
	}

	if err := reviewFn(c.Context(), id, strings.TrimSpace(req.ReviewerID)); err != nil {
		return toHTTPError(err)
	}

	grant, err := h.service.Get(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toGrantResponse(grant))
}

func (h *PermissionHandler) Delete(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Delete(c.Context(), id); err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"id": id})
}

func toGrantResponse(grant *domain.PermissionGrant) grantResponse {
	if grant == nil {
		return grantResponse{}
	}
	return grantResponse{
		ID:           grant.ID,
		SenderID:     grant.SenderID,
		ReviewerID:   grant.ReviewerID,
		ResourceType: grant.ResourceType,
		ResourceID:   grant.ResourceID,
		Action:       grant.Action,
		Message:      grant.Message,
		Status:       grant.Status.String(),
		CreatedAt:    grant.CreatedAt,
	}
}
