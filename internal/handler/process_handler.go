package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/settleops/settlement-engine/internal/dispatch"
	"github.com/settleops/settlement-engine/internal/domain"
	"github.com/settleops/settlement-engine/internal/repository"
	"github.com/settleops/settlement-engine/internal/service"
)

// ProcessHandler exposes the batch-engine commands and the internal
// dispatch entry point. Command endpoints acknowledge with 202; all
// outcome feedback travels asynchronously through the notification
// channel, never through these responses.
type ProcessHandler struct {
	engine     *service.ProcessService
	processes  repository.ProcessRepository
	dispatcher *dispatch.Dispatcher
}

func NewProcessHandler(
	engine *service.ProcessService,
	processes repository.ProcessRepository,
	dispatcher *dispatch.Dispatcher,
) *ProcessHandler {
	return &ProcessHandler{
		engine:     engine,
		processes:  processes,
		dispatcher: dispatcher,
	}
}

func RegisterProcessRoutes(router fiber.Router, h *ProcessHandler) {
	v1 := router.Group("/v1")
	v1.Post("/processes", h.CreateProcess)
	v1.Post("/processes/:id/match", h.Match)
	v1.Get("/processes/:id/resume", h.Resume)
	v1.Get("/processes/:id/restart", h.Restart)
	v1.Post("/processes/:id/terminate", h.Terminate)
	v1.Post("/processes/:id/update", h.Update)
	v1.Post("/matches/rematch", h.Rematch)
	v1.Post("/matches/:id/rematch", h.RematchSingleUser)
	v1.Post("/dispatch", h.Dispatch)
}

type createProcessRequest struct {
	OwnerID   string    `json:"owner_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// CreateProcess enforces the one-active-process-per-owner invariant at
// the CRUD boundary; everything after creation belongs to the engine.
func (h *ProcessHandler) CreateProcess(c *fiber.Ctx) error {
	var req createProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	process := &domain.Process{
		ID:        uuid.NewString(),
		OwnerID:   strings.TrimSpace(req.OwnerID),
		Status:    domain.ProcessPending,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := process.Validate(); err != nil {
		return toHTTPError(err)
	}

	active, err := h.processes.HasActiveByOwner(c.Context(), process.OwnerID)
	if err != nil {
		return err
	}
	if active {
		return fiber.NewError(fiber.StatusConflict, "owner already has an active process")
	}

	if err := h.processes.Create(c.Context(), process); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(process)
}

type matchRequest struct {
	ActorID string            `json:"actor_id"`
	Users   []service.RawUser `json:"users"`
}

func (h *ProcessHandler) Match(c *fiber.Ctx) error {
	processID := strings.TrimSpace(c.Params("id"))

	var req matchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	actorID, err := requiredActor(req.ActorID)
	if err != nil {
		return err
	}

	filtered := h.engine.Filter(req.Users)
	h.engine.Match(c.Context(), actorID, filtered, processID)

	return accepted(c, "matching started")
}

func (h *ProcessHandler) Resume(c *fiber.Ctx) error {
	return h.workerPayload(c, h.engine.Resume)
}

func (h *ProcessHandler) Restart(c *fiber.Ctx) error {
	return h.workerPayload(c, h.engine.Restart)
}

func (h *ProcessHandler) workerPayload(
	c *fiber.Ctx,
	buildFn func(ctx context.Context, actorID, processID string) (*service.ResumePayload, error),
) error {
	processID := strings.TrimSpace(c.Params("id"))
	actorID, err := requiredActor(c.Query("actor_id"))
	if err != nil {
		return err
	}

	payload, err := buildFn(c.Context(), actorID, processID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(payload)
}

type actorRequest struct {
	ActorID string `json:"actor_id"`
}

func (h *ProcessHandler) Terminate(c *fiber.Ctx) error {
	processID := strings.TrimSpace(c.Params("id"))

	var req actorRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	actorID, err := requiredActor(req.ActorID)
	if err != nil {
		return err
	}

	h.engine.Terminate(c.Context(), actorID, processID)
	return accepted(c, "termination started")
}

type updateRequest struct {
	ActorID string `json:"actor_id"`
	Updates []struct {
		Username string `json:"username"`
		Status   string `json:"status"`
	} `json:"updates"`
}

func (h *ProcessHandler) Update(c *fiber.Ctx) error {
	processID := strings.TrimSpace(c.Params("id"))

	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	actorID, err := requiredActor(req.ActorID)
	if err != nil {
		return err
	}

	updates := make([]service.StatusUpdate, 0, len(req.Updates))
	for _, update := range req.Updates {
		status, parseErr := domain.ParseMatchStatusFromString(update.Status)
		if parseErr != nil {
			return toHTTPError(parseErr)
		}
		updates = append(updates, service.StatusUpdate{
			Username: update.Username,
			Status:   status,
		})
	}

	h.engine.Update(c.Context(), actorID, processID, updates)
	return accepted(c, "settlement update started")
}

func (h *ProcessHandler) Rematch(c *fiber.Ctx) error {
	var req actorRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	actorID, err := requiredActor(req.ActorID)
	if err != nil {
		return err
	}

	h.engine.Rematch(c.Context(), actorID)
	return accepted(c, "rematch started")
}

func (h *ProcessHandler) RematchSingleUser(c *fiber.Ctx) error {
	matchID := strings.TrimSpace(c.Params("id"))

	var req actorRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	actorID, err := requiredActor(req.ActorID)
	if err != nil {
		return err
	}

	h.engine.RematchSingleUser(c.Context(), matchID, actorID)
	return accepted(c, "rematch started")
}

type dispatchRequest struct {
	ProcessID    string         `json:"process_id"`
	UserID       string         `json:"user_id"`
	EventName    string         `json:"event_name"`
	Status       string         `json:"status"`
	ProcessStage string         `json:"process_stage"`
	Data         map[string]any `json:"data"`
	ThreadStage  *string        `json:"thread_stage"`
	ThreadID     *string        `json:"thread_id"`
}

// Dispatch is the internal entry point for the six event kinds. It is
// fire-and-forget: once the body parses, the caller always gets 202 and
// any failure is reported through the notification channel.
func (h *ProcessHandler) Dispatch(c *fiber.Ctx) error {
	var req dispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	h.dispatcher.Dispatch(c.Context(), dispatch.Request{
		ProcessID:   strings.TrimSpace(req.ProcessID),
		ActorID:     strings.TrimSpace(req.UserID),
		EventName:   dispatch.EventName(strings.ToUpper(strings.TrimSpace(req.EventName))),
		Status:      req.Status,
		Stage:       req.ProcessStage,
		Data:        req.Data,
		ThreadStage: req.ThreadStage,
		ThreadID:    req.ThreadID,
	})

	return accepted(c, "event dispatched")
}

func requiredActor(actorID string) (string, error) {
	trimmed := strings.TrimSpace(actorID)
	if trimmed == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "actor_id is required")
	}
	return trimmed, nil
}

func accepted(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": message})
}
