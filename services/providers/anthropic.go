package providers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/services/vault"
)

const anthropicVersion = "2023-06-01"

// AnthropicAdapter speaks the Anthropic Messages API. Unlike the Bearer-token
// providers it authenticates with an x-api-key header plus a pinned API
// version header.
type AnthropicAdapter struct {
	core
}

// NewAnthropic creates the Anthropic adapter
func NewAnthropic(v *vault.Vault, client *http.Client, logger *zap.Logger) *AnthropicAdapter {
	return &AnthropicAdapter{core: newCore("anthropic", v, client, logger)}
}

// BuildRequest prepares a Messages API request. max_tokens is mandatory on
// this API, so a default is filled in when the caller omits it.
func (a *AnthropicAdapter) BuildRequest(network *models.Network, payload map[string]any) (*Request, error) {
	body := network.RequestMapping.Apply(clonePayload(payload))

	if _, present := body["model"]; !present {
		model := network.ModelName
		if model == "" {
			model = "claude-3-opus-20240229"
		}
		body["model"] = model
	}
	if _, present := body["max_tokens"]; !present {
		body["max_tokens"] = 4096
	}

	url := network.BaseURL
	if !strings.HasSuffix(url, "/messages") {
		url = strings.TrimRight(url, "/") + "/v1/messages"
	}
	return a.jsonRequest(url, body, network)
}

// Authenticate attaches the decrypted key via x-api-key
func (a *AnthropicAdapter) Authenticate(req *Request, network *models.Network) error {
	key, err := a.credential(network)
	if err != nil {
		return err
	}
	req.Header.Set("x-api-key", key)
	req.Header.Set("anthropic-version", anthropicVersion)
	return nil
}

// Send executes the request
func (a *AnthropicAdapter) Send(ctx context.Context, req *Request) (map[string]any, error) {
	return a.do(ctx, req)
}

// NormalizeResponse applies the network's response field mapping
func (a *AnthropicAdapter) NormalizeResponse(network *models.Network, _ *Request, raw map[string]any) (map[string]any, error) {
	return network.ResponseMapping.Apply(raw), nil
}

// ExtractUsage reads usage.total_tokens when present; the Messages API
// reports input/output tokens separately, so those are summed as a fallback.
func (a *AnthropicAdapter) ExtractUsage(body map[string]any) int {
	if total := defaultUsage(body); total > 0 {
		return total
	}
	usage, ok := body["usage"].(map[string]any)
	if !ok {
		return 0
	}
	input, _ := asInt(usage["input_tokens"])
	output, _ := asInt(usage["output_tokens"])
	return input + output
}
