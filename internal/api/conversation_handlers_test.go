package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatmesh/chatmesh/internal/core/conversation"
	"github.com/chatmesh/chatmesh/pkg/common/config"
	"github.com/chatmesh/chatmesh/pkg/models"
	"github.com/chatmesh/chatmesh/pkg/observability"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	manager := conversation.NewManager(
		conversation.Config{},
		nil,
		nil,
		observability.NewNoopLogger(),
		observability.NewNoopMetricsClient(),
	)
	server := NewServer(config.APIConfig{ListenAddress: ":0"}, manager, observability.NewNoopLogger(), observability.NewNoopMetricsClient())
	return server.Router()
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGetContextEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/v1/conversations/s1?product_key=prod", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data models.ConversationContext `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "s1", resp.Data.SessionID)
	assert.Equal(t, "prod", resp.Data.ProductKey)
	assert.Empty(t, resp.Data.Turns)
}

func TestAddTurnEndpoint(t *testing.T) {
	router := newTestRouter(t)

	t.Run("Valid Turn", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/conversations/s1/turns", models.TurnInput{
			UserMessage: "I have a billing problem",
			BotResponse: "Let me check",
			Intent:      "billing",
			Sentiment:   models.SentimentNegative,
			Confidence:  0.9,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data   models.ConversationContext `json:"data"`
			Ending bool                        `json:"ending"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data.Turns, 1)
		assert.Equal(t, "billing", resp.Data.Turns[0].Intent)
		assert.False(t, resp.Ending)
	})

	t.Run("Closing Turn", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/conversations/s1/turns", models.TurnInput{
			UserMessage: "ok thanks, goodbye",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Ending bool `json:"ending"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Ending)
	})

	t.Run("Missing User Message", func(t *testing.T) {
		w := doRequest(t, router, http.MethodPost, "/api/v1/conversations/s1/turns", map[string]interface{}{
			"bot_response": "orphaned",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Malformed Body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/s1/turns", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSummaryEndpoint(t *testing.T) {
	router := newTestRouter(t)

	doRequest(t, router, http.MethodPost, "/api/v1/conversations/s1/turns", models.TurnInput{
		UserMessage: "question about my invoice",
		Intent:      "billing",
	})

	w := doRequest(t, router, http.MethodGet, "/api/v1/conversations/s1/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Summary string `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Summary, "Conversation of 1 turns")
	assert.Contains(t, resp.Summary, "billing")
}

func TestRelevantContextEndpoint(t *testing.T) {
	router := newTestRouter(t)

	doRequest(t, router, http.MethodPost, "/api/v1/conversations/s1/turns", models.TurnInput{
		UserMessage: "my name is Alice",
		Confidence:  0.9,
	})

	w := doRequest(t, router, http.MethodGet, "/api/v1/conversations/s1/relevant?message=hello+again", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data models.RelevantContext `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "hello again", resp.Data.CurrentMessage)
	require.Len(t, resp.Data.RecentTurns, 1)
	require.Len(t, resp.Data.Facts, 1)
	assert.Equal(t, "Alice", resp.Data.Facts[0].Fact)
}

func TestPredictionEndpoint(t *testing.T) {
	router := newTestRouter(t)

	doRequest(t, router, http.MethodPost, "/api/v1/conversations/s1/turns", models.TurnInput{
		UserMessage: "I want to buy the premium plan",
		Intent:      "purchase",
	})

	w := doRequest(t, router, http.MethodGet, "/api/v1/conversations/s1/prediction", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Predicted []string `json:"predicted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"payment", "shipping", "confirmation"}, resp.Predicted)
}

func TestGreetingEndpoint(t *testing.T) {
	router := newTestRouter(t)

	doRequest(t, router, http.MethodPost, "/api/v1/conversations/s1/turns", models.TurnInput{
		UserMessage: "question about shipping",
	})

	w := doRequest(t, router, http.MethodGet, "/api/v1/conversations/s1/greeting", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Greeting string `json:"greeting"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Greeting, "Welcome back")
	assert.Contains(t, resp.Greeting, "shipping")
}

func TestSweepEndpoint(t *testing.T) {
	router := newTestRouter(t)

	doRequest(t, router, http.MethodPost, "/api/v1/conversations/s1/turns", models.TurnInput{
		UserMessage: "hello",
	})

	w := doRequest(t, router, http.MethodPost, "/api/v1/maintenance/sweep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cleared":0}`, w.Body.String())
}
