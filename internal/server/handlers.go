package server

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/xuanhao97/intergrate-gitlab-lark/internal/card"
	"github.com/xuanhao97/intergrate-gitlab-lark/internal/event"
	"github.com/xuanhao97/intergrate-gitlab-lark/internal/lark"
	"github.com/xuanhao97/intergrate-gitlab-lark/internal/metrics"
)

// Handlers holds dependencies for the webhook HTTP handlers.
type Handlers struct {
	deliverer          lark.Deliverer
	metrics            *metrics.Metrics
	logger             zerolog.Logger
	protectedBranches  []string
	defaultDestination lark.Destination
}

// NewHandlers creates a Handlers instance.
func NewHandlers(deliverer lark.Deliverer, m *metrics.Metrics, cfg Config, logger zerolog.Logger) *Handlers {
	return &Handlers{
		deliverer:          deliverer,
		metrics:            m,
		logger:             logger.With().Str("component", "handlers").Logger(),
		protectedBranches:  cfg.ProtectedBranches,
		defaultDestination: cfg.DefaultDestination,
	}
}

// destination resolves the Lark target for a request: per-request headers
// win, configured defaults fill the gaps.
func (h *Handlers) destination(c *fiber.Ctx) lark.Destination {
	dest := lark.Destination{
		URL:    c.Get("X-Lark-Url"),
		Secret: c.Get("X-Lark-Secret"),
	}
	if dest.URL == "" {
		dest.URL = h.defaultDestination.URL
	}
	if dest.Secret == "" {
		dest.Secret = h.defaultDestination.Secret
	}
	return dest
}

// deliver posts the card and records delivery metrics.
func (h *Handlers) deliver(c *fiber.Ctx, dest lark.Destination, msg *card.Message) lark.Result {
	start := time.Now()
	res := h.deliverer.Deliver(c.Context(), dest, msg)

	outcome := "success"
	if !res.Success {
		outcome = "failure"
	}
	h.metrics.RecordDelivery(outcome, time.Since(start).Seconds())
	return res
}

// ReleaseNotify handles POST /webhooks/app-release-notify.
func (h *Handlers) ReleaseNotify(c *fiber.Ctx) error {
	var req ReleaseRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil || req.Data == nil {
		h.metrics.RecordEvent("release", "invalid")
		return errorResponse(c, fiber.StatusBadRequest, "Missing data payload")
	}

	if missing := req.Data.MissingFields(); len(missing) > 0 {
		h.metrics.RecordEvent("release", "invalid")
		return errorResponse(c, fiber.StatusBadRequest, "Missing fields: "+strings.Join(missing, ", "))
	}
	req.Data.Normalize()

	res := h.deliver(c, h.destination(c), card.Release(*req.Data))
	if !res.Success {
		h.metrics.RecordEvent("release", "delivery_failed")
		h.logger.Warn().Str("error", res.Error).Str("app", req.Data.AppName).
			Msg("release notification delivery failed")
		return errorResponse(c, fiber.StatusBadGateway, res.Error)
	}

	h.metrics.RecordEvent("release", "forwarded")
	h.logger.Info().Str("app", req.Data.AppName).Str("platform", req.Data.Platform).
		Msg("release notification forwarded")

	return c.JSON(ReleaseResponse{Success: true, Message: "Forwarded to Lark"})
}

// GitlabRelay handles POST /webhooks/gitlab-to-lark. The token verifier
// middleware runs before this.
func (h *Handlers) GitlabRelay(c *fiber.Ctx) error {
	eventType := c.Get("X-Gitlab-Event")

	var ev event.Payload
	if err := json.Unmarshal(c.Body(), &ev); err != nil {
		h.metrics.RecordEvent(eventType, "invalid")
		return errorResponse(c, fiber.StatusBadRequest, "Invalid JSON payload")
	}

	h.logger.Info().Str("event_type", eventType).Str("project", ev.Project.Name).
		Msg("gitlab webhook received")

	if ev.OnProtectedBranch(h.protectedBranches) {
		h.metrics.RecordEvent(eventType, "protected_branch")
		h.logger.Info().Str("branch", ev.SourceBranch()).Msg("suppressing protected branch event")
		return errorResponse(c, fiber.StatusBadRequest, "Protected branch")
	}

	msg := card.Generate(&ev, eventType)
	if msg == nil {
		h.metrics.RecordEvent(eventType, "unsupported")
		return errorResponse(c, fiber.StatusBadRequest, "Unsupported event type")
	}

	res := h.deliver(c, h.destination(c), msg)
	if !res.Success {
		h.metrics.RecordEvent(eventType, "delivery_failed")
		h.logger.Warn().Str("error", res.Error).Str("event_type", eventType).
			Msg("gitlab event delivery failed")
		return errorResponse(c, fiber.StatusBadGateway, res.Error)
	}

	h.metrics.RecordEvent(eventType, "forwarded")
	return c.JSON(RelayResponse{
		Success:       true,
		Message:       "Webhook processed successfully",
		EventType:     eventType,
		LarkMessageID: res.MessageID,
	})
}
