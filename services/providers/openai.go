package providers

import (
	"context"
	"math"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/services"
	"github.com/noteapp/ai-broker/services/vault"
)

const openAIDefaultBaseURL = "https://api.openai.com/v1"

// OpenAIAdapter speaks the OpenAI API: chat completions and DALL-E image
// generation. It also serves OpenAI-compatible providers (Mistral, GigaChat)
// through registry aliases, since they share the wire format.
type OpenAIAdapter struct {
	core
}

// NewOpenAI creates the OpenAI adapter
func NewOpenAI(v *vault.Vault, client *http.Client, logger *zap.Logger) *OpenAIAdapter {
	return &OpenAIAdapter{core: newCore("openai", v, client, logger)}
}

// BuildRequest prepares a chat completion or, for image networks, a DALL-E
// generation request.
func (a *OpenAIAdapter) BuildRequest(network *models.Network, payload map[string]any) (*Request, error) {
	mapped := network.RequestMapping.Apply(clonePayload(payload))

	settingsRaw := mapped["settings"]
	delete(mapped, "settings")
	delete(mapped, "mode")

	if network.NetworkType == models.NetworkTypeImage {
		return a.buildImageRequest(network, mapped, settingsRaw)
	}

	settings := settingsMap(settingsRaw)
	if temperature, ok := settings["temperature"].(float64); ok {
		if _, present := mapped["temperature"]; !present {
			mapped["temperature"] = temperature
		}
	}
	if maxTokens, ok := asInt(settings["maxTokens"]); ok {
		if _, present := mapped["max_tokens"]; !present {
			mapped["max_tokens"] = maxTokens
		}
	}

	if _, present := mapped["model"]; !present {
		mapped["model"] = a.defaultModel(network, "gpt-4")
	}

	url := ensureSuffix(a.baseURL(network), "/chat/completions")
	return a.jsonRequest(url, mapped, network)
}

func (a *OpenAIAdapter) buildImageRequest(network *models.Network, payload map[string]any, settingsRaw any) (*Request, error) {
	prompt := chatPrompt(payload)
	if prompt == "" {
		return nil, services.ErrEmptyPrompt
	}

	body := map[string]any{
		"prompt": prompt,
		"model":  a.resolveModel(payload, network, "dall-e-3"),
	}

	if n, present := payload["n"]; present {
		body["n"] = n
	}
	if quality, present := payload["quality"]; present {
		body["quality"] = normalizeImageQuality(quality)
	}
	if style, present := payload["style"]; present {
		body["style"] = style
	}

	settings := settingsMap(settingsRaw)
	if size := deriveImageSize(settings); size != "" {
		body["size"] = size
	} else {
		body["size"] = "1024x1024"
	}
	if quality, present := settings["quality"]; present {
		if _, set := body["quality"]; !set {
			body["quality"] = normalizeImageQuality(quality)
		}
	}
	if style, present := settings["style"]; present {
		if _, set := body["style"]; !set {
			body["style"] = style
		}
	}
	if n, present := settings["n"]; present {
		if _, set := body["n"]; !set {
			body["n"] = n
		}
	}

	url := ensureSuffix(a.baseURL(network), "/generations")
	return a.jsonRequest(url, body, network)
}

// Authenticate attaches the decrypted key as a Bearer token
func (a *OpenAIAdapter) Authenticate(req *Request, network *models.Network) error {
	key, err := a.credential(network)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	return nil
}

// Send executes the request
func (a *OpenAIAdapter) Send(ctx context.Context, req *Request) (map[string]any, error) {
	return a.do(ctx, req)
}

// NormalizeResponse applies the network's response field mapping
func (a *OpenAIAdapter) NormalizeResponse(network *models.Network, _ *Request, raw map[string]any) (map[string]any, error) {
	return network.ResponseMapping.Apply(raw), nil
}

// ExtractUsage reads usage.total_tokens
func (a *OpenAIAdapter) ExtractUsage(body map[string]any) int {
	return defaultUsage(body)
}

func (a *OpenAIAdapter) baseURL(network *models.Network) string {
	if strings.TrimSpace(network.BaseURL) == "" {
		return openAIDefaultBaseURL
	}
	return network.BaseURL
}

func (a *OpenAIAdapter) defaultModel(network *models.Network, fallback string) string {
	if network.ModelName != "" {
		return network.ModelName
	}
	return fallback
}

func (a *OpenAIAdapter) resolveModel(payload map[string]any, network *models.Network, fallback string) string {
	if model, ok := asString(payload["model"]); ok {
		return model
	}
	return a.defaultModel(network, fallback)
}

// chatPrompt pulls the prompt from the explicit field or, failing that, the
// content of the last chat message.
func chatPrompt(payload map[string]any) string {
	if prompt, ok := asString(payload["prompt"]); ok {
		return prompt
	}
	messages, ok := payload["messages"].([]any)
	if !ok || len(messages) == 0 {
		return ""
	}
	last, ok := messages[len(messages)-1].(map[string]any)
	if !ok {
		return ""
	}
	content, _ := asString(last["content"])
	return content
}

// deriveImageSize maps width/height or an aspect ratio hint onto the sizes
// DALL-E accepts. Returns "" when the settings carry no size information.
func deriveImageSize(settings map[string]any) string {
	width, wok := asInt(settings["width"])
	height, hok := asInt(settings["height"])
	if wok && hok {
		if width <= 0 || height <= 0 {
			return ""
		}
		aspect := float64(width) / float64(height)
		switch {
		case math.Abs(aspect-1.0) < 0.05:
			return "1024x1024"
		case aspect > 1.0:
			return "1792x1024"
		default:
			return "1024x1792"
		}
	}
	if ratio, ok := asString(settings["aspectRatio"]); ok {
		switch ratio {
		case "16:9":
			return "1792x1024"
		case "9:16":
			return "1024x1792"
		default:
			return "1024x1024"
		}
	}
	return ""
}

// normalizeImageQuality maps caller quality hints onto the two values the
// DALL-E API accepts: "standard" and "hd".
func normalizeImageQuality(value any) string {
	quality, ok := asString(value)
	if !ok {
		return "standard"
	}
	switch strings.ToLower(strings.TrimSpace(quality)) {
	case "high", "hd":
		return "hd"
	default:
		return "standard"
	}
}
