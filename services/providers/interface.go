// Package providers contains the upstream AI provider adapters. Every
// provider speaks through the same Adapter interface; the Registry maps the
// provider tag stored on a network to its adapter. Provider differences live
// entirely inside the adapters: endpoint paths, auth header shapes, default
// models and usage accounting.
package providers

import (
	"context"
	"net/http"
	"time"

	"github.com/noteapp/ai-broker/models"
)

// Request is a fully prepared upstream HTTP call for one dispatch attempt.
// BuildRequest produces it, Authenticate adds credentials, Send executes it.
type Request struct {
	Method string
	URL    string
	Header http.Header

	// Body is the serialized request body. For JSON requests Payload holds
	// the pre-serialization form so later stages can inspect it.
	Body    []byte
	Payload map[string]any

	Timeout time.Duration
}

// Adapter is the capability interface every provider implements.
type Adapter interface {
	// Name returns the canonical provider tag (e.g. "openai", "anthropic")
	Name() string

	// BuildRequest converts a caller payload into an upstream request for
	// the given network. Validation failures surface as validation errors.
	BuildRequest(network *models.Network, payload map[string]any) (*Request, error)

	// Authenticate decrypts the network credential and attaches it to the
	// request. Networks without a stored credential fail with a
	// missing-credential error before any HTTP traffic happens.
	Authenticate(req *Request, network *models.Network) error

	// Send executes the request and returns the decoded response body.
	// Non-2xx responses surface as upstream errors carrying status and body.
	Send(ctx context.Context, req *Request) (map[string]any, error)

	// NormalizeResponse shapes the raw upstream body into the broker's
	// response form, applying the network's response field mapping.
	NormalizeResponse(network *models.Network, req *Request, raw map[string]any) (map[string]any, error)

	// ExtractUsage reads the token count from a normalized response,
	// returning 0 when the provider reports none.
	ExtractUsage(body map[string]any) int
}
