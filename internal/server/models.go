// Package server exposes the bridge's HTTP surface: the GitLab relay and the
// third-party release notifier.
package server

import "github.com/xuanhao97/intergrate-gitlab-lark/internal/card"

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ReleaseRequest wraps the third-party notifier payload.
type ReleaseRequest struct {
	Data *card.ReleasePayload `json:"data"`
}

// ReleaseResponse is the success body of the release notifier endpoint.
type ReleaseResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RelayResponse is the success body of the GitLab relay endpoint.
type RelayResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	EventType     string `json:"eventType"`
	LarkMessageID string `json:"larkMessageId,omitempty"`
}
