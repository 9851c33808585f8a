package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RequestStatus tracks the lifecycle of one orchestration attempt
type RequestStatus string

const (
	RequestStatusPending RequestStatus = "pending"
	RequestStatusSuccess RequestStatus = "success"
	RequestStatusFailed  RequestStatus = "failed"
)

// RequestLog is the immutable record of a single orchestration attempt.
// It is created in pending state before dispatch and finalized exactly once,
// as success or failed, before the response is returned to the caller.
type RequestLog struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	ClientAppID    uuid.UUID     `json:"client_app_id" db:"client_app_id"`
	ExternalUserID uuid.UUID     `json:"external_user_id" db:"external_user_id"`
	NetworkID      uuid.UUID     `json:"network_id" db:"network_id"`
	NetworkName    string        `json:"network_name" db:"network_name"`
	RequestType    NetworkType   `json:"request_type" db:"request_type"`
	Status         RequestStatus `json:"status" db:"status"`

	RequestPayload  json.RawMessage `json:"request_payload" db:"request_payload"`
	ResponsePayload json.RawMessage `json:"response_payload,omitempty" db:"response_payload"`
	ErrorMessage    *string         `json:"error_message,omitempty" db:"error_message"`

	TokensUsed      int `json:"tokens_used" db:"tokens_used"`
	ExecutionTimeMs int `json:"execution_time_ms" db:"execution_time_ms"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// TableName returns the table name for the RequestLog model
func (RequestLog) TableName() string {
	return "request_logs"
}

// NewRequestLog creates a pending log entry for a dispatch attempt.
func NewRequestLog(clientAppID, userID uuid.UUID, network *Network, requestType NetworkType, payload map[string]any) *RequestLog {
	raw, _ := json.Marshal(payload)
	return &RequestLog{
		ID:             uuid.New(),
		ClientAppID:    clientAppID,
		ExternalUserID: userID,
		NetworkID:      network.ID,
		NetworkName:    network.Name,
		RequestType:    requestType,
		Status:         RequestStatusPending,
		RequestPayload: raw,
		CreatedAt:      time.Now(),
	}
}

// MarkSuccess finalizes the log entry for a completed call.
func (l *RequestLog) MarkSuccess(response map[string]any, tokensUsed, executionTimeMs int) {
	l.Status = RequestStatusSuccess
	if raw, err := json.Marshal(response); err == nil {
		l.ResponsePayload = raw
	}
	l.TokensUsed = tokensUsed
	l.ExecutionTimeMs = executionTimeMs
	now := time.Now()
	l.CompletedAt = &now
}

// MarkFailed finalizes the log entry for a terminal failure.
func (l *RequestLog) MarkFailed(errorMessage string, executionTimeMs int) {
	l.Status = RequestStatusFailed
	l.ErrorMessage = &errorMessage
	l.ExecutionTimeMs = executionTimeMs
	now := time.Now()
	l.CompletedAt = &now
}

// Finalized reports whether the entry has reached a terminal status.
func (l *RequestLog) Finalized() bool {
	return l.Status == RequestStatusSuccess || l.Status == RequestStatusFailed
}
