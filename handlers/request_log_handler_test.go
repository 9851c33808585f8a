package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noteapp/ai-broker/middleware"
	"github.com/noteapp/ai-broker/models"
	"github.com/noteapp/ai-broker/services"
)

type stubLogRepo struct {
	entries []*models.RequestLog

	gotLimit  int
	gotOffset int
}

func (s *stubLogRepo) Create(ctx context.Context, log *models.RequestLog) error { return nil }
func (s *stubLogRepo) Update(ctx context.Context, log *models.RequestLog) error { return nil }

func (s *stubLogRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.RequestLog, error) {
	for _, entry := range s.entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return nil, services.ErrRequestLogNotFound
}

func (s *stubLogRepo) ListByClientApp(ctx context.Context, clientAppID uuid.UUID, limit, offset int) ([]*models.RequestLog, error) {
	s.gotLimit = limit
	s.gotOffset = offset

	var out []*models.RequestLog
	for _, entry := range s.entries {
		if entry.ClientAppID == clientAppID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func logListRequest(clientApp *models.ClientApplication, query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ai/requests"+query, nil)
	return req.WithContext(middleware.WithClientApp(req.Context(), clientApp))
}

func logGetRequest(clientApp *models.ClientApplication, id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/ai/requests/%s", id), nil)

	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("id", id)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)

	if clientApp != nil {
		ctx = middleware.WithClientApp(ctx, clientApp)
	}
	return req.WithContext(ctx)
}

func TestHandleListRequestLogs(t *testing.T) {
	clientApp := testClientApp()
	other := testClientApp()

	repo := &stubLogRepo{entries: []*models.RequestLog{
		{ID: uuid.New(), ClientAppID: clientApp.ID, NetworkName: "openai-main", Status: models.RequestStatusSuccess},
		{ID: uuid.New(), ClientAppID: other.ID, NetworkName: "openai-main", Status: models.RequestStatusSuccess},
	}}
	handler := NewRequestLogHandler(repo, zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleList(w, logListRequest(clientApp, ""))

	require.Equal(t, http.StatusOK, w.Code)

	var response RequestLogListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response.Requests, 1, "only the caller's own entries are listed")
	assert.Equal(t, defaultLogPageSize, response.Limit)
}

func TestHandleListRequestLogsPaging(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		expectedLimit  int
		expectedOffset int
	}{
		{"defaults", "", defaultLogPageSize, 0},
		{"explicit", "?limit=10&offset=20", 10, 20},
		{"limit too large", "?limit=5000", defaultLogPageSize, 0},
		{"negative offset", "?offset=-5", defaultLogPageSize, 0},
		{"garbage values", "?limit=abc&offset=xyz", defaultLogPageSize, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubLogRepo{}
			handler := NewRequestLogHandler(repo, zap.NewNop())

			w := httptest.NewRecorder()
			handler.HandleList(w, logListRequest(testClientApp(), tt.query))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.expectedLimit, repo.gotLimit)
			assert.Equal(t, tt.expectedOffset, repo.gotOffset)
		})
	}
}

func TestHandleGetRequestLog(t *testing.T) {
	clientApp := testClientApp()
	other := testClientApp()

	own := &models.RequestLog{ID: uuid.New(), ClientAppID: clientApp.ID, NetworkName: "openai-main", Status: models.RequestStatusSuccess}
	foreign := &models.RequestLog{ID: uuid.New(), ClientAppID: other.ID, NetworkName: "openai-main", Status: models.RequestStatusSuccess}

	repo := &stubLogRepo{entries: []*models.RequestLog{own, foreign}}
	handler := NewRequestLogHandler(repo, zap.NewNop())

	t.Run("own entry", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.HandleGet(w, logGetRequest(clientApp, own.ID.String()))

		require.Equal(t, http.StatusOK, w.Code)

		var entry models.RequestLog
		require.NoError(t, json.NewDecoder(w.Body).Decode(&entry))
		assert.Equal(t, own.ID, entry.ID)
	})

	t.Run("foreign entry looks missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.HandleGet(w, logGetRequest(clientApp, foreign.ID.String()))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.HandleGet(w, logGetRequest(clientApp, uuid.New().String()))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.HandleGet(w, logGetRequest(clientApp, "not-a-uuid"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
