package orchestrator

import (
	"github.com/google/uuid"

	"github.com/noteapp/ai-broker/models"
)

// Request is one brokered AI call on behalf of an end user of a client
// application. NetworkName is optional: when empty, the broker picks the
// best available network for the request type.
type Request struct {
	ExternalUserID string             `json:"user_id" validate:"required"`
	NetworkName    string             `json:"network,omitempty"`
	RequestType    models.NetworkType `json:"request_type" validate:"required,oneof=chat transcription image_generation"`
	Payload        map[string]any     `json:"payload" validate:"required"`
}

// Response is the brokered result returned to the client application
type Response struct {
	RequestID   uuid.UUID      `json:"request_id"`
	NetworkUsed string         `json:"network_used"`
	Result      map[string]any `json:"result"`
	TokensUsed  int            `json:"tokens_used"`
	// Remaining is the caller's remaining request allowance on the network
	// that served the call; omitted when the network is unlimited.
	Remaining *int `json:"remaining_requests,omitempty"`
	ElapsedMs int  `json:"elapsed_ms"`
	// FellBack is set when the primary network was rate limited and a free
	// fallback network served the request instead.
	FellBack bool `json:"fell_back,omitempty"`
}
