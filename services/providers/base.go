package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/services"
	"github.com/noteapp/ai-broker/services/vault"
)

// core holds the shared plumbing every adapter uses: the credential vault,
// the HTTP client and the transport logic. Adapters embed it and override
// only what differs per provider.
type core struct {
	name   string
	vault  *vault.Vault
	client *http.Client
	logger *zap.Logger
}

func newCore(name string, v *vault.Vault, client *http.Client, logger *zap.Logger) core {
	if client == nil {
		client = http.DefaultClient
	}
	return core{name: name, vault: v, client: client, logger: logger}
}

// Name returns the canonical provider tag
func (c *core) Name() string {
	return c.name
}

// credential decrypts the network's stored API key. An empty stored key is a
// missing-credential error; a failed decryption propagates as-is.
func (c *core) credential(network *models.Network) (string, error) {
	if network.APIKeyEncrypted == "" {
		return "", services.NewDomainError(services.ErrorTypeMissingCredential,
			fmt.Sprintf("no credential configured for network %q", network.Name), nil).
			WithDetail("network", network.Name).
			WithDetail("provider", c.name)
	}
	key, err := c.vault.Decrypt(network.APIKeyEncrypted)
	if err != nil {
		return "", err
	}
	return key, nil
}

// do executes a prepared request and decodes the JSON response body.
func (c *core) do(ctx context.Context, req *Request) (map[string]any, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeUpstream,
			fmt.Sprintf("failed to build %s request", c.name), err).
			WithDetail("provider", c.name)
	}
	for key, values := range req.Header {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeUpstream,
			fmt.Sprintf("request to %s failed", c.name), err).
			WithDetail("provider", c.name)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeUpstream,
			fmt.Sprintf("failed to read %s response", c.name), err).
			WithDetail("provider", c.name)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("upstream error response",
			zap.String("provider", c.name),
			zap.Int("status", resp.StatusCode))
		return nil, services.NewUpstreamError(c.name, resp.StatusCode, string(body))
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeUpstream,
			fmt.Sprintf("malformed %s response body", c.name), err).
			WithDetail("provider", c.name)
	}
	return decoded, nil
}

// jsonRequest serializes the payload and wraps it into a Request.
func (c *core) jsonRequest(url string, payload map[string]any, network *models.Network) (*Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, services.WrapInternal("failed to marshal request payload", err)
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return &Request{
		Method:  http.MethodPost,
		URL:     url,
		Header:  header,
		Body:    body,
		Payload: payload,
		Timeout: network.Timeout(),
	}, nil
}

// ensureSuffix appends the endpoint suffix unless the URL already ends with
// it. Appending twice would break configured URLs that carry the full path.
func ensureSuffix(baseURL, suffix string) string {
	if strings.HasSuffix(baseURL, suffix) {
		return baseURL
	}
	return strings.TrimRight(baseURL, "/") + suffix
}

// clonePayload copies a payload so adapters never mutate the caller's map.
func clonePayload(payload map[string]any) map[string]any {
	cloned := make(map[string]any, len(payload))
	for key, value := range payload {
		cloned[key] = value
	}
	return cloned
}

// defaultUsage reads usage.total_tokens, the accounting shape most chat
// providers share. Absent or malformed usage counts as zero.
func defaultUsage(body map[string]any) int {
	usage, ok := body["usage"].(map[string]any)
	if !ok {
		return 0
	}
	total, ok := asInt(usage["total_tokens"])
	if !ok {
		return 0
	}
	return total
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func asString(value any) (string, bool) {
	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// settingsMap coerces the free-form "settings" payload field into a map.
func settingsMap(value any) map[string]any {
	m, ok := value.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}
