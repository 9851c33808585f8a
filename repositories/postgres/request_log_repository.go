package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/repositories"
	"github.com/noteapp/ai-broker/services"
)

// RequestLogRepository implements repositories.RequestLogRepository
type RequestLogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRequestLogRepository creates a new request log repository
func NewRequestLogRepository(db *DB, logger *zap.Logger) repositories.RequestLogRepository {
	return &RequestLogRepository{db: db, logger: logger}
}

// Create persists a new pending log entry
func (r *RequestLogRepository) Create(ctx context.Context, log *models.RequestLog) error {
	query := `
		INSERT INTO request_logs (
			id, client_app_id, external_user_id, network_id, network_name,
			request_type, status, request_payload, tokens_used, execution_time_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.ClientAppID,
		log.ExternalUserID,
		log.NetworkID,
		log.NetworkName,
		log.RequestType,
		log.Status,
		[]byte(log.RequestPayload),
		log.TokensUsed,
		log.ExecutionTimeMs,
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create request log: %w", err)
	}

	r.logger.Debug("request log created",
		zap.String("id", log.ID.String()),
		zap.String("network", log.NetworkName))
	return nil
}

// Update persists the finalized state of a log entry
func (r *RequestLogRepository) Update(ctx context.Context, log *models.RequestLog) error {
	query := `
		UPDATE request_logs
		SET status = $2, response_payload = $3, error_message = $4,
		    tokens_used = $5, execution_time_ms = $6, completed_at = $7
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.Status,
		[]byte(log.ResponsePayload),
		log.ErrorMessage,
		log.TokensUsed,
		log.ExecutionTimeMs,
		log.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update request log: %w", err)
	}
	return nil
}

// GetByID retrieves a log entry by ID
func (r *RequestLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RequestLog, error) {
	query := `
		SELECT id, client_app_id, external_user_id, network_id, network_name,
		       request_type, status, request_payload, response_payload, error_message,
		       tokens_used, execution_time_ms, created_at, completed_at
		FROM request_logs
		WHERE id = $1
	`

	log, err := scanRequestLog(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, services.ErrRequestLogNotFound
		}
		return nil, fmt.Errorf("failed to get request log: %w", err)
	}
	return log, nil
}

// ListByClientApp retrieves recent log entries for a client application
func (r *RequestLogRepository) ListByClientApp(ctx context.Context, clientAppID uuid.UUID, limit, offset int) ([]*models.RequestLog, error) {
	query := `
		SELECT id, client_app_id, external_user_id, network_id, network_name,
		       request_type, status, request_payload, response_payload, error_message,
		       tokens_used, execution_time_ms, created_at, completed_at
		FROM request_logs
		WHERE client_app_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, clientAppID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list request logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.RequestLog
	for rows.Next() {
		log, err := scanRequestLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request log row: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate request log rows: %w", err)
	}
	return logs, nil
}

func scanRequestLog(row rowScanner) (*models.RequestLog, error) {
	log := &models.RequestLog{}
	var requestPayload, responsePayload []byte
	var errorMessage sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&log.ID,
		&log.ClientAppID,
		&log.ExternalUserID,
		&log.NetworkID,
		&log.NetworkName,
		&log.RequestType,
		&log.Status,
		&requestPayload,
		&responsePayload,
		&errorMessage,
		&log.TokensUsed,
		&log.ExecutionTimeMs,
		&log.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	log.RequestPayload = requestPayload
	log.ResponsePayload = responsePayload
	if errorMessage.Valid {
		log.ErrorMessage = &errorMessage.String
	}
	if completedAt.Valid {
		log.CompletedAt = &completedAt.Time
	}
	return log, nil
}
