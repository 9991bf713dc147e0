package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/settleops/settlement-engine/internal/observability"
	"github.com/settleops/settlement-engine/internal/registry"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const (
	userIDHeader      = "X-User-ID"
	eventBufferSize   = 32
	heartbeatInterval = 25 * time.Second
)

// EventsHandler serves the per-user live-update channel as a server-sent
// event stream backed by a registry listener.
type EventsHandler struct {
	registry registry.Registry
	metrics  *observability.Metrics
	logger   *zap.Logger
}

func NewEventsHandler(reg registry.Registry, logger *zap.Logger) *EventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsHandler{registry: reg, logger: logger}
}

func (h *EventsHandler) SetMetrics(metrics *observability.Metrics) {
	if h == nil {
		return
	}
	h.metrics = metrics
}

func RegisterEventRoutes(router fiber.Router, h *EventsHandler) {
	v1 := router.Group("/v1")
	v1.Get("/events", h.Stream)
}

func (h *EventsHandler) Stream(c *fiber.Ctx) error {
	userID := strings.TrimSpace(c.Get(userIDHeader))
	if userID == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing user id")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	// The listener hands events to the stream goroutine through a
	// buffered channel; a stalled stream drops events rather than
	// blocking the emitter (the audit trail remains the durable record).
	events := make(chan registry.Event, eventBufferSize)
	unsubscribe := h.registry.AddListener(userID, func(event registry.Event) {
		select {
		case events <- event:
		default:
			h.logger.Warn("live stream buffer full, dropping event",
				zap.String("userId", userID),
				zap.String("event", event.Name),
			)
		}
	})

	if h.metrics != nil {
		h.metrics.IncLiveSessions()
	}

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer func() {
			unsubscribe()
			if h.metrics != nil {
				h.metrics.DecLiveSessions()
			}
		}()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case event := <-events:
				if err := writeSSE(w, event); err != nil {
					return
				}
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

func writeSSE(w *bufio.Writer, event registry.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		payload = []byte("{}")
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, payload); err != nil {
		return err
	}
	return w.Flush()
}
