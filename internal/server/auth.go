package server

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// VerifierConfig holds inbound token verification settings.
type VerifierConfig struct {
	// Secret is the expected X-Gitlab-Token value.
	Secret string
	// AllowUnverified accepts tokens without a configured secret.
	// Development only.
	AllowUnverified bool
}

// VerifyToken checks a presented webhook token against the configured secret.
// A missing token is always rejected. An unconfigured secret rejects too,
// unless AllowUnverified is set.
func VerifyToken(cfg VerifierConfig, presented string) bool {
	if presented == "" {
		return false
	}
	if cfg.Secret == "" {
		return cfg.AllowUnverified
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(cfg.Secret)) == 1
}

// NewTokenVerifier returns a Fiber middleware that validates the
// X-Gitlab-Token header on every request it guards.
func NewTokenVerifier(cfg VerifierConfig, logger zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("X-Gitlab-Token")
		if token == "" {
			return errorResponse(c, fiber.StatusUnauthorized, "Missing webhook token")
		}

		if cfg.Secret == "" {
			if cfg.AllowUnverified {
				logger.Warn().Str("path", c.Path()).
					Msg("GITLAB_WEBHOOK_SECRET not configured, accepting unverified webhook")
				return c.Next()
			}
			logger.Warn().Str("path", c.Path()).
				Msg("rejecting webhook: no secret configured and ALLOW_UNVERIFIED is off")
			return errorResponse(c, fiber.StatusUnauthorized, "Webhook verification is not configured")
		}

		if !VerifyToken(cfg, token) {
			logger.Warn().Str("path", c.Path()).Str("ip", c.IP()).
				Msg("invalid webhook token")
			return errorResponse(c, fiber.StatusUnauthorized, "Invalid webhook token")
		}

		return c.Next()
	}
}

// errorResponse writes the structured {error} body every failure path uses.
func errorResponse(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}
