package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NetworkType classifies what kind of requests a network serves
type NetworkType string

const (
	NetworkTypeChat          NetworkType = "chat"
	NetworkTypeTranscription NetworkType = "transcription"
	NetworkTypeImage         NetworkType = "image_generation"
)

// FieldMapping holds simple rename rules applied to top-level request or
// response fields (source field -> target field). Empty means pass-through.
type FieldMapping map[string]string

// Value implements driver.Valuer, storing the mapping as JSONB.
func (m FieldMapping) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB columns.
func (m *FieldMapping) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for FieldMapping: %T", src)
	}
	return json.Unmarshal(data, m)
}

// Apply renames top-level fields of the payload according to the mapping.
// Fields without a rule are copied as-is; an empty mapping is pass-through.
func (m FieldMapping) Apply(payload map[string]any) map[string]any {
	if len(m) == 0 || payload == nil {
		return payload
	}
	mapped := make(map[string]any, len(payload))
	for key, value := range payload {
		if target, ok := m[key]; ok && target != "" {
			mapped[target] = value
			continue
		}
		mapped[key] = value
	}
	return mapped
}

// Network represents a configured upstream AI provider endpoint.
// Networks are administered outside the broker core and are read-only here.
type Network struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	Name        string      `json:"name" db:"name"`
	DisplayName string      `json:"display_name" db:"display_name"`
	Provider    string      `json:"provider" db:"provider"` // openai, anthropic, yandex, whisper, pollinations...
	NetworkType NetworkType `json:"network_type" db:"network_type"`
	BaseURL     string      `json:"base_url" db:"base_url"`
	ModelName   string      `json:"model_name" db:"model_name"`

	IsActive bool `json:"is_active" db:"is_active"`
	IsFree   bool `json:"is_free" db:"is_free"`

	// Priority orders automatic selection; lower is preferred.
	Priority int `json:"priority" db:"priority"`

	TimeoutSeconds int `json:"timeout_seconds" db:"timeout_seconds"`
	MaxRetries     int `json:"max_retries" db:"max_retries"`

	RequestMapping  FieldMapping `json:"request_mapping,omitempty" db:"request_mapping"`
	ResponseMapping FieldMapping `json:"response_mapping,omitempty" db:"response_mapping"`

	// APIKeyEncrypted holds the vault-encrypted provider credential.
	// Empty means no credential is stored for this network.
	APIKeyEncrypted string `json:"-" db:"api_key_encrypted"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Network model
func (Network) TableName() string {
	return "networks"
}

// Timeout returns the per-network upstream timeout as a duration.
func (n *Network) Timeout() time.Duration {
	if n.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(n.TimeoutSeconds) * time.Second
}
