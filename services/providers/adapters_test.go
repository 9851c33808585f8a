package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/services"
	"github.com/noteapp/ai-broker/services/vault"
)

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	encoded, err := vault.GenerateKey(32)
	require.NoError(t, err)
	v, err := vault.NewFromBase64(encoded)
	require.NoError(t, err)
	return v
}

func encryptedKey(t *testing.T, v *vault.Vault, plaintext string) string {
	t.Helper()
	encrypted, err := v.Encrypt(plaintext)
	require.NoError(t, err)
	return encrypted
}

func chatNetwork(baseURL, encryptedCredential string) *models.Network {
	return &models.Network{
		Name:            "test-network",
		Provider:        "openai",
		NetworkType:     models.NetworkTypeChat,
		BaseURL:         baseURL,
		APIKeyEncrypted: encryptedCredential,
		TimeoutSeconds:  5,
	}
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestOpenAIChatRequest(t *testing.T) {
	v := testVault(t)
	adapter := NewOpenAI(v, http.DefaultClient, zap.NewNop())

	var gotAuth string
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotBody = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": "hi"}}},
			"usage":   map[string]any{"total_tokens": 42},
		})
	}))
	defer server.Close()

	network := chatNetwork(server.URL, encryptedKey(t, v, "sk-test"))
	network.ModelName = "gpt-4o-mini"

	payload := map[string]any{
		"messages": []any{map[string]any{"role": "user", "content": "hello"}},
		"settings": map[string]any{"temperature": 0.4, "maxTokens": 256},
		"mode":     "chat",
	}

	req, err := adapter.BuildRequest(network, payload)
	require.NoError(t, err)
	require.NoError(t, adapter.Authenticate(req, network))

	raw, err := adapter.Send(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	assert.Equal(t, 0.4, gotBody["temperature"])
	assert.Equal(t, float64(256), gotBody["max_tokens"])
	assert.NotContains(t, gotBody, "settings")
	assert.NotContains(t, gotBody, "mode")

	normalized, err := adapter.NormalizeResponse(network, req, raw)
	require.NoError(t, err)
	assert.Equal(t, 42, adapter.ExtractUsage(normalized))
}

func TestOpenAIURLSuffixIsIdempotent(t *testing.T) {
	v := testVault(t)
	adapter := NewOpenAI(v, http.DefaultClient, zap.NewNop())

	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{name: "bare base", baseURL: "https://api.openai.com/v1", want: "https://api.openai.com/v1/chat/completions"},
		{name: "trailing slash", baseURL: "https://api.openai.com/v1/", want: "https://api.openai.com/v1/chat/completions"},
		{name: "already suffixed", baseURL: "https://proxy.local/v1/chat/completions", want: "https://proxy.local/v1/chat/completions"},
		{name: "empty uses default", baseURL: "", want: "https://api.openai.com/v1/chat/completions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			network := chatNetwork(tt.baseURL, "")
			req, err := adapter.BuildRequest(network, map[string]any{"messages": []any{}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.URL)
		})
	}
}

func TestOpenAIImageRequest(t *testing.T) {
	v := testVault(t)
	adapter := NewOpenAI(v, http.DefaultClient, zap.NewNop())

	network := chatNetwork("https://api.openai.com/v1", "")
	network.NetworkType = models.NetworkTypeImage
	network.ModelName = "dall-e-3"

	t.Run("derives size and normalizes quality", func(t *testing.T) {
		req, err := adapter.BuildRequest(network, map[string]any{
			"prompt":   "a lighthouse at dusk",
			"quality":  "high",
			"settings": map[string]any{"width": 1920, "height": 1080},
		})
		require.NoError(t, err)
		assert.Equal(t, "https://api.openai.com/v1/generations", req.URL)
		assert.Equal(t, "1792x1024", req.Payload["size"])
		assert.Equal(t, "hd", req.Payload["quality"])
		assert.Equal(t, "dall-e-3", req.Payload["model"])
	})

	t.Run("aspect ratio fallback", func(t *testing.T) {
		req, err := adapter.BuildRequest(network, map[string]any{
			"prompt":   "portrait",
			"settings": map[string]any{"aspectRatio": "9:16"},
		})
		require.NoError(t, err)
		assert.Equal(t, "1024x1792", req.Payload["size"])
	})

	t.Run("defaults to square", func(t *testing.T) {
		req, err := adapter.BuildRequest(network, map[string]any{"prompt": "square"})
		require.NoError(t, err)
		assert.Equal(t, "1024x1024", req.Payload["size"])
	})

	t.Run("prompt from last message", func(t *testing.T) {
		req, err := adapter.BuildRequest(network, map[string]any{
			"messages": []any{
				map[string]any{"role": "user", "content": "first"},
				map[string]any{"role": "user", "content": "a red barn"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "a red barn", req.Payload["prompt"])
	})

	t.Run("missing prompt is a validation error", func(t *testing.T) {
		_, err := adapter.BuildRequest(network, map[string]any{})
		require.Error(t, err)
		assert.True(t, services.IsValidationError(err))
	})
}

func TestMissingCredentialAbortsBeforeAnyCall(t *testing.T) {
	v := testVault(t)

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	adapters := []Adapter{
		NewOpenAI(v, http.DefaultClient, zap.NewNop()),
		NewAnthropic(v, http.DefaultClient, zap.NewNop()),
		NewYandex(v, http.DefaultClient, zap.NewNop()),
		NewWhisper(v, http.DefaultClient, zap.NewNop()),
	}

	audio := base64.StdEncoding.EncodeToString([]byte("riff"))
	for _, adapter := range adapters {
		t.Run(adapter.Name(), func(t *testing.T) {
			network := chatNetwork(server.URL, "")
			payload := map[string]any{"messages": []any{}, "audio": audio}

			req, err := adapter.BuildRequest(network, payload)
			require.NoError(t, err)

			err = adapter.Authenticate(req, network)
			require.Error(t, err)
			assert.True(t, services.IsMissingCredentialError(err))
			assert.Equal(t, 0, calls)
		})
	}
}

func TestUpstreamErrorCarriesStatusAndBody(t *testing.T) {
	v := testVault(t)
	adapter := NewOpenAI(v, http.DefaultClient, zap.NewNop())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer server.Close()

	network := chatNetwork(server.URL, encryptedKey(t, v, "sk-test"))
	req, err := adapter.BuildRequest(network, map[string]any{"messages": []any{}})
	require.NoError(t, err)
	require.NoError(t, adapter.Authenticate(req, network))

	_, err = adapter.Send(context.Background(), req)
	require.Error(t, err)
	assert.True(t, services.IsUpstreamError(err))
	assert.Equal(t, http.StatusTooManyRequests, services.UpstreamStatusCode(err))
	assert.Contains(t, err.Error(), "rate limit")
}

func TestAnthropicRequest(t *testing.T) {
	v := testVault(t)
	adapter := NewAnthropic(v, http.DefaultClient, zap.NewNop())

	var gotHeaders http.Header
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotPath = r.URL.Path
		gotBody = decodeBody(t, r)
		json.NewEncoder(w).Encode(map[string]any{
			"content": []any{map[string]any{"text": "hello"}},
			"usage":   map[string]any{"input_tokens": 10, "output_tokens": 20},
		})
	}))
	defer server.Close()

	network := chatNetwork(server.URL, encryptedKey(t, v, "sk-ant"))
	network.Provider = "anthropic"

	req, err := adapter.BuildRequest(network, map[string]any{
		"messages": []any{map[string]any{"role": "user", "content": "hi"}},
	})
	require.NoError(t, err)
	require.NoError(t, adapter.Authenticate(req, network))

	raw, err := adapter.Send(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "/v1/messages", gotPath)
	assert.Equal(t, "sk-ant", gotHeaders.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", gotHeaders.Get("anthropic-version"))
	assert.Empty(t, gotHeaders.Get("Authorization"))
	assert.Equal(t, "claude-3-opus-20240229", gotBody["model"])
	assert.Equal(t, float64(4096), gotBody["max_tokens"])

	assert.Equal(t, 30, adapter.ExtractUsage(raw))
}

func TestAnthropicKeepsExplicitMessagesURL(t *testing.T) {
	v := testVault(t)
	adapter := NewAnthropic(v, http.DefaultClient, zap.NewNop())

	network := chatNetwork("https://api.anthropic.com/v1/messages", "")
	req, err := adapter.BuildRequest(network, map[string]any{"messages": []any{}})
	require.NoError(t, err)
	assert.Equal(t, "https://api.anthropic.com/v1/messages", req.URL)
}

func TestYandexRequest(t *testing.T) {
	v := testVault(t)
	adapter := NewYandex(v, http.DefaultClient, zap.NewNop())

	var gotAuth string
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotBody = decodeBody(t, r)
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"alternatives": []any{},
				"usage":        map[string]any{"totalTokens": "77"},
			},
		})
	}))
	defer server.Close()

	network := chatNetwork(server.URL, encryptedKey(t, v, "yc-key"))
	network.Provider = "yandex"
	network.ModelName = "gpt://folder/yandexgpt/latest"

	req, err := adapter.BuildRequest(network, map[string]any{
		"messages": []any{map[string]any{"role": "user", "text": "hi"}},
	})
	require.NoError(t, err)
	require.NoError(t, adapter.Authenticate(req, network))

	raw, err := adapter.Send(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Api-Key yc-key", gotAuth)
	assert.Equal(t, "/foundationModels/v1/completion", gotPath)
	assert.Equal(t, "gpt://folder/yandexgpt/latest", gotBody["modelUri"])
	assert.Equal(t, 77, adapter.ExtractUsage(raw))
}

func TestYandexURLContainsCheck(t *testing.T) {
	v := testVault(t)
	adapter := NewYandex(v, http.DefaultClient, zap.NewNop())

	network := chatNetwork("https://llm.api.cloud.yandex.net/foundationModels/v1/completion", "")
	req, err := adapter.BuildRequest(network, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "https://llm.api.cloud.yandex.net/foundationModels/v1/completion", req.URL)
}

func TestWhisperRequest(t *testing.T) {
	v := testVault(t)
	adapter := NewWhisper(v, http.DefaultClient, zap.NewNop())

	var gotPath string
	var gotContentType string
	var gotModel string
	var gotFile []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		var buf bytes.Buffer
		buf.ReadFrom(file)
		gotFile = buf.Bytes()
		json.NewEncoder(w).Encode(map[string]any{"text": "transcribed speech goes here"})
	}))
	defer server.Close()

	network := chatNetwork(server.URL, encryptedKey(t, v, "sk-whisper"))
	network.Provider = "whisper"
	network.NetworkType = models.NetworkTypeTranscription

	audio := []byte("fake-audio-bytes")
	req, err := adapter.BuildRequest(network, map[string]any{
		"audio":    base64.StdEncoding.EncodeToString(audio),
		"language": "en",
	})
	require.NoError(t, err)
	require.NoError(t, adapter.Authenticate(req, network))

	raw, err := adapter.Send(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "/v1/audio/transcriptions", gotPath)
	assert.True(t, strings.HasPrefix(gotContentType, "multipart/form-data"))
	assert.Equal(t, "whisper-1", gotModel)
	assert.Equal(t, audio, gotFile)
	assert.Equal(t, len("transcribed speech goes here")/4, adapter.ExtractUsage(raw))
}

func TestWhisperRequiresAudio(t *testing.T) {
	v := testVault(t)
	adapter := NewWhisper(v, http.DefaultClient, zap.NewNop())
	network := chatNetwork("https://api.openai.com", "")

	for name, payload := range map[string]map[string]any{
		"missing audio": {"language": "en"},
		"empty audio":   {"audio": ""},
		"bad base64":    {"audio": "not-base64!!!"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := adapter.BuildRequest(network, payload)
			require.Error(t, err)
			assert.True(t, services.IsValidationError(err))
		})
	}
}

func TestWhisperURLResolution(t *testing.T) {
	tests := []struct {
		baseURL string
		want    string
	}{
		{baseURL: "https://api.openai.com", want: "https://api.openai.com/v1/audio/transcriptions"},
		{baseURL: "https://api.openai.com/v1", want: "https://api.openai.com/v1/audio/transcriptions"},
		{baseURL: "https://api.openai.com/v1/", want: "https://api.openai.com/v1/audio/transcriptions"},
		{baseURL: "https://api.openai.com/v1/audio/transcriptions", want: "https://api.openai.com/v1/audio/transcriptions"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, transcriptionURL(tt.baseURL))
	}
}

func TestPollinationsFallsBackToCDN(t *testing.T) {
	v := testVault(t)
	adapter := NewPollinations(v, http.DefaultClient, zap.NewNop())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	network := chatNetwork(server.URL, "")
	network.Provider = "pollinations"
	network.NetworkType = models.NetworkTypeImage

	req, err := adapter.BuildRequest(network, map[string]any{
		"prompt":   "misty forest",
		"settings": map[string]any{"width": 512, "height": 768},
	})
	require.NoError(t, err)
	require.NoError(t, adapter.Authenticate(req, network))

	raw, err := adapter.Send(context.Background(), req)
	require.NoError(t, err)

	normalized, err := adapter.NormalizeResponse(network, req, raw)
	require.NoError(t, err)

	assert.Equal(t, "fallback", normalized["status"])
	assets, ok := normalized["assets"].([]string)
	require.True(t, ok)
	require.Len(t, assets, 1)
	assert.Equal(t, "https://image.pollinations.ai/prompt/misty+forest?width=512&height=768", assets[0])
	assert.Equal(t, 0, adapter.ExtractUsage(normalized))
}

func TestPollinationsUsesUpstreamAssets(t *testing.T) {
	v := testVault(t)
	adapter := NewPollinations(v, http.DefaultClient, zap.NewNop())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"output": []any{map[string]any{"url": "https://cdn.example/img.png"}},
		})
	}))
	defer server.Close()

	network := chatNetwork(server.URL, "")
	network.Provider = "pollinations"
	network.NetworkType = models.NetworkTypeImage

	req, err := adapter.BuildRequest(network, map[string]any{"prompt": "a cat"})
	require.NoError(t, err)
	require.NoError(t, adapter.Authenticate(req, network))

	raw, err := adapter.Send(context.Background(), req)
	require.NoError(t, err)

	normalized, err := adapter.NormalizeResponse(network, req, raw)
	require.NoError(t, err)

	assets, ok := normalized["assets"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"https://cdn.example/img.png"}, assets)
	assert.Equal(t, "success", normalized["status"])
}

func TestPollinationsRequiresPrompt(t *testing.T) {
	v := testVault(t)
	adapter := NewPollinations(v, http.DefaultClient, zap.NewNop())
	network := chatNetwork("https://pollinations.example", "")
	network.NetworkType = models.NetworkTypeImage

	_, err := adapter.BuildRequest(network, map[string]any{})
	require.Error(t, err)
	assert.True(t, services.IsValidationError(err))
}

func TestFieldMappingApplied(t *testing.T) {
	v := testVault(t)
	adapter := NewOpenAI(v, http.DefaultClient, zap.NewNop())

	network := chatNetwork("https://api.openai.com/v1", "")
	network.RequestMapping = models.FieldMapping{"input": "messages"}
	network.ResponseMapping = models.FieldMapping{"choices": "results"}

	req, err := adapter.BuildRequest(network, map[string]any{"input": []any{}})
	require.NoError(t, err)
	assert.Contains(t, req.Payload, "messages")
	assert.NotContains(t, req.Payload, "input")

	normalized, err := adapter.NormalizeResponse(network, req, map[string]any{"choices": []any{}})
	require.NoError(t, err)
	assert.Contains(t, normalized, "results")
	assert.NotContains(t, normalized, "choices")
}
