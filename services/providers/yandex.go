package providers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/services/vault"
)

// YandexAdapter speaks the YandexGPT foundation models API. The model is
// addressed by a modelUri rather than a plain model name, and the credential
// travels as "Authorization: Api-Key <key>".
type YandexAdapter struct {
	core
}

// NewYandex creates the Yandex adapter
func NewYandex(v *vault.Vault, client *http.Client, logger *zap.Logger) *YandexAdapter {
	return &YandexAdapter{core: newCore("yandex", v, client, logger)}
}

// BuildRequest prepares a completion request
func (a *YandexAdapter) BuildRequest(network *models.Network, payload map[string]any) (*Request, error) {
	body := network.RequestMapping.Apply(clonePayload(payload))

	if _, present := body["modelUri"]; !present {
		modelURI := network.ModelName
		if modelURI == "" {
			modelURI = "gpt://b1g6b7r9qqmq5g9b7q3r/yandexgpt-lite/latest"
		}
		body["modelUri"] = modelURI
	}

	// Contains-check rather than suffix: configured URLs may carry query
	// parameters after the completion path.
	url := network.BaseURL
	if !strings.Contains(url, "/completion") {
		url = strings.TrimRight(url, "/") + "/foundationModels/v1/completion"
	}
	return a.jsonRequest(url, body, network)
}

// Authenticate attaches the decrypted key in Api-Key form
func (a *YandexAdapter) Authenticate(req *Request, network *models.Network) error {
	key, err := a.credential(network)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Api-Key "+key)
	return nil
}

// Send executes the request
func (a *YandexAdapter) Send(ctx context.Context, req *Request) (map[string]any, error) {
	return a.do(ctx, req)
}

// NormalizeResponse applies the network's response field mapping
func (a *YandexAdapter) NormalizeResponse(network *models.Network, _ *Request, raw map[string]any) (map[string]any, error) {
	return network.ResponseMapping.Apply(raw), nil
}

// ExtractUsage reads usage.total_tokens when present; Yandex nests its usage
// block under result, so that shape is handled too.
func (a *YandexAdapter) ExtractUsage(body map[string]any) int {
	if total := defaultUsage(body); total > 0 {
		return total
	}
	result, ok := body["result"].(map[string]any)
	if !ok {
		return 0
	}
	usage, ok := result["usage"].(map[string]any)
	if !ok {
		return 0
	}
	total, _ := asInt(usage["totalTokens"])
	return total
}
