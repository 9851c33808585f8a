package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/services"
	"github.com/noteapp/ai-broker/services/vault"
)

// WhisperAdapter transcribes audio through the OpenAI audio API. The caller
// ships audio as a base64 payload field; the adapter decodes it and uploads
// it as a multipart file.
type WhisperAdapter struct {
	core
}

// NewWhisper creates the Whisper adapter
func NewWhisper(v *vault.Vault, client *http.Client, logger *zap.Logger) *WhisperAdapter {
	return &WhisperAdapter{core: newCore("whisper", v, client, logger)}
}

// BuildRequest prepares a multipart transcription request
func (a *WhisperAdapter) BuildRequest(network *models.Network, payload map[string]any) (*Request, error) {
	audioBase64, ok := asString(payload["audio"])
	if !ok {
		return nil, services.ErrNoAudioData
	}
	audio, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation,
			"audio data is not valid base64", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.mp3")
	if err != nil {
		return nil, services.WrapInternal("failed to build multipart body", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, services.WrapInternal("failed to write audio part", err)
	}

	model := network.ModelName
	if model == "" {
		model = "whisper-1"
	}
	fields := map[string]string{"model": model}
	if language, ok := asString(payload["language"]); ok {
		fields["language"] = language
	}
	if prompt, ok := asString(payload["prompt"]); ok {
		fields["prompt"] = prompt
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, services.WrapInternal(fmt.Sprintf("failed to write %s field", name), err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, services.WrapInternal("failed to finalize multipart body", err)
	}

	header := http.Header{}
	header.Set("Content-Type", writer.FormDataContentType())

	return &Request{
		Method:  http.MethodPost,
		URL:     transcriptionURL(network.BaseURL),
		Header:  header,
		Body:    buf.Bytes(),
		Timeout: network.Timeout(),
	}, nil
}

// Authenticate attaches the decrypted key as a Bearer token
func (a *WhisperAdapter) Authenticate(req *Request, network *models.Network) error {
	key, err := a.credential(network)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	return nil
}

// Send executes the request
func (a *WhisperAdapter) Send(ctx context.Context, req *Request) (map[string]any, error) {
	return a.do(ctx, req)
}

// NormalizeResponse applies the network's response field mapping
func (a *WhisperAdapter) NormalizeResponse(network *models.Network, _ *Request, raw map[string]any) (map[string]any, error) {
	return network.ResponseMapping.Apply(raw), nil
}

// ExtractUsage estimates tokens from the transcript length; the audio API
// reports no usage block.
func (a *WhisperAdapter) ExtractUsage(body map[string]any) int {
	text, ok := asString(body["text"])
	if !ok {
		return 0
	}
	return len(text) / 4
}

// transcriptionURL resolves the endpoint against URLs configured with or
// without the /v1 prefix or the full transcription path.
func transcriptionURL(baseURL string) string {
	switch {
	case strings.Contains(baseURL, "/audio/transcriptions"):
		return baseURL
	case strings.HasSuffix(strings.TrimRight(baseURL, "/"), "/v1"):
		return strings.TrimRight(baseURL, "/") + "/audio/transcriptions"
	default:
		return strings.TrimRight(baseURL, "/") + "/v1/audio/transcriptions"
	}
}
