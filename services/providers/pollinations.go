package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/services"
	"github.com/noteapp/ai-broker/services/vault"
)

const pollinationsCDN = "https://image.pollinations.ai/prompt/"

// PollinationsAdapter generates images best-effort: when the configured API
// endpoint fails, the response degrades to a deterministic CDN URL built from
// the prompt instead of surfacing the upstream error. Pollinations serves
// images directly from that URL, so the degraded response is still usable.
type PollinationsAdapter struct {
	core
}

// NewPollinations creates the Pollinations adapter
func NewPollinations(v *vault.Vault, client *http.Client, logger *zap.Logger) *PollinationsAdapter {
	return &PollinationsAdapter{core: newCore("pollinations", v, client, logger)}
}

// BuildRequest prepares a generation request from the prompt and settings
func (a *PollinationsAdapter) BuildRequest(network *models.Network, payload map[string]any) (*Request, error) {
	prompt := userPrompt(payload)
	if prompt == "" {
		return nil, services.ErrEmptyPrompt
	}

	body := map[string]any{"prompt": prompt}

	settings := settingsMap(payload["settings"])
	if width, ok := asInt(settings["width"]); ok {
		body["width"] = width
	}
	if height, ok := asInt(settings["height"]); ok {
		body["height"] = height
	}
	if ratio, ok := asString(settings["aspectRatio"]); ok {
		body["ratio"] = strings.ToLower(ratio)
	}
	if quality, ok := asString(settings["quality"]); ok {
		body["quality"] = quality
	}
	if style, ok := asString(settings["style"]); ok {
		body["style"] = style
	}
	if seed, ok := asInt(settings["seed"]); ok {
		body["seed"] = seed
	}
	if negative, ok := asString(payload["negative_prompt"]); ok {
		body["negative_prompt"] = negative
	}
	if network.ModelName != "" {
		if _, present := body["model"]; !present {
			body["model"] = network.ModelName
		}
	}
	if _, present := body["nologo"]; !present {
		body["nologo"] = true
	}

	mapped := network.RequestMapping.Apply(body)
	if strings.TrimSpace(network.BaseURL) == "" {
		return nil, services.NewDomainError(services.ErrorTypeInternal,
			"pollinations API URL is not configured", nil)
	}
	return a.jsonRequest(network.BaseURL, mapped, network)
}

// Authenticate attaches a Bearer token when a credential is stored.
// Pollinations works without one, so a missing credential is not an error.
func (a *PollinationsAdapter) Authenticate(req *Request, network *models.Network) error {
	if network.APIKeyEncrypted == "" {
		return nil
	}
	key, err := a.vault.Decrypt(network.APIKeyEncrypted)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	return nil
}

// Send executes the request, degrading to a CDN fallback marker on failure
func (a *PollinationsAdapter) Send(ctx context.Context, req *Request) (map[string]any, error) {
	raw, err := a.do(ctx, req)
	if err != nil {
		a.logger.Warn("pollinations API call failed, falling back to CDN",
			zap.Error(err))
		return map[string]any{"status": "fallback"}, nil
	}
	return raw, nil
}

// NormalizeResponse shapes the raw body into the broker's image response:
// asset URLs collected from the known response shapes, with the CDN URL
// substituted when the upstream returned none.
func (a *PollinationsAdapter) NormalizeResponse(_ *models.Network, req *Request, raw map[string]any) (map[string]any, error) {
	prompt, _ := asString(req.Payload["prompt"])
	width, _ := asInt(req.Payload["width"])
	height, _ := asInt(req.Payload["height"])

	assets := extractAssetURLs(raw)
	if len(assets) == 0 {
		assets = append(assets, pollinationsCDNURL(prompt, width, height))
	}

	output := make([]any, 0, len(assets))
	for _, asset := range assets {
		output = append(output, map[string]any{"url": asset})
	}

	status := "success"
	if s, ok := asString(raw["status"]); ok {
		status = s
	}

	return map[string]any{
		"provider":    "pollinations",
		"prompt":      prompt,
		"request":     req.Payload,
		"rawResponse": raw,
		"assets":      assets,
		"output":      output,
		"status":      status,
		"tokensUsed":  0,
	}, nil
}

// ExtractUsage always reports zero; image generation is not token-metered
func (a *PollinationsAdapter) ExtractUsage(_ map[string]any) int {
	return 0
}

// userPrompt pulls the prompt from the explicit field or the most recent
// user-role chat message.
func userPrompt(payload map[string]any) string {
	if prompt, ok := asString(payload["prompt"]); ok {
		return prompt
	}
	messages, ok := payload["messages"].([]any)
	if !ok {
		return ""
	}
	for i := len(messages) - 1; i >= 0; i-- {
		message, ok := messages[i].(map[string]any)
		if !ok {
			continue
		}
		if role, _ := asString(message["role"]); role != "user" {
			continue
		}
		if content, ok := asString(message["content"]); ok {
			return content
		}
	}
	return ""
}

// extractAssetURLs collects image URLs from the shapes the API is known to
// return: output[].url, images[] (url objects or plain strings), and a
// top-level url.
func extractAssetURLs(raw map[string]any) []string {
	var assets []string
	if items, ok := raw["output"].([]any); ok {
		for _, item := range items {
			if entry, ok := item.(map[string]any); ok {
				if u, ok := asString(entry["url"]); ok {
					assets = append(assets, u)
				}
			}
		}
	}
	if items, ok := raw["images"].([]any); ok {
		for _, item := range items {
			switch entry := item.(type) {
			case map[string]any:
				if u, ok := asString(entry["url"]); ok {
					assets = append(assets, u)
				}
			case string:
				if entry != "" {
					assets = append(assets, entry)
				}
			}
		}
	}
	if u, ok := asString(raw["url"]); ok {
		assets = append(assets, u)
	}
	return assets
}

func pollinationsCDNURL(prompt string, width, height int) string {
	cdn := pollinationsCDN + url.QueryEscape(prompt)
	var query []string
	if width > 0 {
		query = append(query, fmt.Sprintf("width=%d", width))
	}
	if height > 0 {
		query = append(query, fmt.Sprintf("height=%d", height))
	}
	if len(query) > 0 {
		cdn += "?" + strings.Join(query, "&")
	}
	return cdn
}
