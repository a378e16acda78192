package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	intakeapp "github.com/vitrina/stockbot/internal/application/intake"
	"github.com/vitrina/stockbot/internal/domain/intake"
	"github.com/vitrina/stockbot/internal/domain/integration"
	"github.com/vitrina/stockbot/internal/domain/sessionlog"
	"github.com/vitrina/stockbot/internal/infrastructure/telemetry"
)

type stubTransport struct{}

func (stubTransport) SendMessage(context.Context, string, string) (integration.SentMessage, error) {
	return integration.SentMessage{ID: "stub"}, nil
}

func (stubTransport) SendMessageWithMention(context.Context, string, string, string) (integration.SentMessage, error) {
	return integration.SentMessage{ID: "stub"}, nil
}

func (stubTransport) EditMessage(context.Context, string, string) error { return nil }

type stubPublisher struct{}

func (stubPublisher) Publish(context.Context, *integration.ProductPublication) error { return nil }

type stubLogRepo struct {
	records []sessionlog.SessionRecord
	err     error
}

func (s *stubLogRepo) Append(context.Context, *sessionlog.SessionRecord) error { return nil }

func (s *stubLogRepo) CountPublished(context.Context, string) (int64, error) { return 0, nil }

func (s *stubLogRepo) Recent(_ context.Context, limit int) ([]sessionlog.SessionRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.records) {
		return s.records[:limit], nil
	}
	return s.records, nil
}

func newTestRouter(repo *stubLogRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)

	workflow := intakeapp.NewService(
		intakeapp.Options{
			GroupID: "group-1",
			HostID:  "host-1",
			Branches: []intakeapp.Branch{
				{ID: "branch-c1", Name: "Copacabana 1"},
				{ID: "branch-c2", Name: "Copacabana 2"},
				{ID: "branch-m3", Name: "Medellín 1"},
			},
		},
		intake.NewRules(intake.DefaultNumericBase),
		stubTransport{},
		stubPublisher{},
		sessionlog.NewRecorder(repo, zap.NewNop()),
		repo,
		zap.NewNop(),
		telemetry.NewNopMetrics(),
	)

	engine := gin.New()
	NewStatusHandler(workflow, repo).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func TestGetWorkflow(t *testing.T) {
	engine := newTestRouter(&stubLogRepo{})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/workflow", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var snap intakeapp.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, intakeapp.StateWaitingForHost, snap.State)
}

func TestListSessions(t *testing.T) {
	repo := &stubLogRepo{records: []sessionlog.SessionRecord{
		{ID: "product_2", StartedAt: time.Now(), Reference: "678", Published: true},
		{ID: "product_1", StartedAt: time.Now().Add(-time.Hour), Reference: "55", Published: false},
	}}
	engine := newTestRouter(repo)

	t.Run("returns recent records", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Sessions []sessionlog.SessionRecord `json:"sessions"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Sessions, 2)
		assert.Equal(t, "product_2", body.Sessions[0].ID)
	})

	t.Run("honors the limit parameter", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions?limit=1", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Sessions []sessionlog.SessionRecord `json:"sessions"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Len(t, body.Sessions, 1)
	})

	t.Run("rejects an out-of-range limit", func(t *testing.T) {
		for _, limit := range []string{"0", "-3", "201", "abc"} {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions?limit="+limit, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code, limit)
		}
	})

	t.Run("maps repository failures to 500", func(t *testing.T) {
		engine := newTestRouter(&stubLogRepo{err: assert.AnError})
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
