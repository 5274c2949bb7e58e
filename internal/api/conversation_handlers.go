package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chatmesh/chatmesh/internal/core/conversation"
	"github.com/chatmesh/chatmesh/pkg/models"
	"github.com/chatmesh/chatmesh/pkg/observability"
)

// ConversationAPI handles conversation-related API endpoints
type ConversationAPI struct {
	manager *conversation.Manager
	logger  observability.Logger
	metrics observability.MetricsClient
}

// NewConversationAPI creates a new conversation API handler
func NewConversationAPI(
	manager *conversation.Manager,
	logger observability.Logger,
	metrics observability.MetricsClient,
) *ConversationAPI {
	if logger == nil {
		logger = observability.NewLogger("conversation_api")
	}
	if metrics == nil {
		metrics = observability.NewNoopMetricsClient()
	}

	return &ConversationAPI{
		manager: manager,
		logger:  logger,
		metrics: metrics,
	}
}

// RegisterRoutes registers conversation API routes
func (api *ConversationAPI) RegisterRoutes(router *gin.RouterGroup) {
	conversations := router.Group("/conversations")
	{
		conversations.GET("/:sessionID", api.GetContext)
		conversations.POST("/:sessionID/turns", api.AddTurn)
		conversations.GET("/:sessionID/summary", api.GetSummary)
		conversations.GET("/:sessionID/relevant", api.GetRelevantContext)
		conversations.GET("/:sessionID/prediction", api.GetPrediction)
		conversations.GET("/:sessionID/greeting", api.GetGreeting)
	}

	// Kept outside the session group so the static segment cannot collide
	// with the :sessionID wildcard
	router.POST("/maintenance/sweep", api.SweepExpired)
}

// GetContext returns the full conversation context for a session,
// creating a fresh one for unseen sessions
func (api *ConversationAPI) GetContext(c *gin.Context) {
	sessionID := c.Param("sessionID")
	productKey := c.Query("product_key")

	ctx := api.manager.GetContext(c.Request.Context(), sessionID, productKey)

	api.recordRequest("get_context")
	c.JSON(http.StatusOK, gin.H{"data": ctx})
}

// AddTurn records a dialogue exchange on a session
func (api *ConversationAPI) AddTurn(c *gin.Context) {
	sessionID := c.Param("sessionID")
	productKey := c.Query("product_key")

	var input models.TurnInput
	if err := c.ShouldBindJSON(&input); err != nil {
		api.logger.Warn("Invalid request body for add turn", map[string]interface{}{
			"error":      err.Error(),
			"session_id": sessionID,
		})
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := api.manager.AddTurn(c.Request.Context(), sessionID, productKey, input)

	api.recordRequest("add_turn")
	c.JSON(http.StatusOK, gin.H{
		"data":   ctx,
		"ending": api.manager.IsConversationEnding(ctx),
	})
}

// GetSummary returns a human-readable conversation digest
func (api *ConversationAPI) GetSummary(c *gin.Context) {
	ctx := api.manager.GetContext(c.Request.Context(), c.Param("sessionID"), c.Query("product_key"))

	api.recordRequest("get_summary")
	c.JSON(http.StatusOK, gin.H{"summary": api.manager.Summary(ctx)})
}

// GetRelevantContext returns the response-generation context bundle
func (api *ConversationAPI) GetRelevantContext(c *gin.Context) {
	ctx := api.manager.GetContext(c.Request.Context(), c.Param("sessionID"), c.Query("product_key"))

	api.recordRequest("get_relevant_context")
	c.JSON(http.StatusOK, gin.H{"data": api.manager.RelevantContext(ctx, c.Query("message"))})
}

// GetPrediction returns the likely next intents for a session
func (api *ConversationAPI) GetPrediction(c *gin.Context) {
	ctx := api.manager.GetContext(c.Request.Context(), c.Param("sessionID"), c.Query("product_key"))

	api.recordRequest("get_prediction")
	c.JSON(http.StatusOK, gin.H{"predicted": api.manager.PredictNextIntent(ctx)})
}

// GetGreeting returns a personalized greeting for a session
func (api *ConversationAPI) GetGreeting(c *gin.Context) {
	ctx := api.manager.GetContext(c.Request.Context(), c.Param("sessionID"), c.Query("product_key"))

	api.recordRequest("get_greeting")
	c.JSON(http.StatusOK, gin.H{"greeting": api.manager.PersonalizedGreeting(ctx)})
}

// SweepExpired evicts expired contexts from the in-process store
func (api *ConversationAPI) SweepExpired(c *gin.Context) {
	cleared := api.manager.ClearExpiredContexts()

	api.recordRequest("sweep_expired")
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

func (api *ConversationAPI) recordRequest(operation string) {
	api.metrics.RecordCounter("conversation_api_requests", 1, map[string]string{
		"operation": operation,
	})
}
