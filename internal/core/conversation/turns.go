package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chatmesh/chatmesh/pkg/models"
)

// archiveImportance is assigned to turns moved into long-term memory when
// the turn window overflows
const archiveImportance = 0.5

// archiveMessagePrefix bounds the message excerpt kept in an archive entry
const archiveMessagePrefix = 100

// AddTurn appends a dialogue exchange to a session's context and fans the
// update out to the entity, sentiment, intent, and memory trackers before
// persisting. It never fails: persistence errors are retained in-process
// and logged, not propagated.
func (m *Manager) AddTurn(ctx context.Context, sessionID, productKey string, input models.TurnInput) *models.ConversationContext {
	done := m.metrics.StartTimer("conversation_operation_duration_ms", map[string]string{"operation": "add_turn"})
	defer done()

	s := m.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	c := m.resolveLocked(ctx, s, sessionID, productKey)

	now := time.Now()
	turn := models.ConversationTurn{
		ID:           uuid.New().String(),
		Timestamp:    now,
		UserMessage:  input.UserMessage,
		BotResponse:  input.BotResponse,
		Intent:       input.Intent,
		Entities:     input.Entities,
		Sentiment:    input.Sentiment,
		SkillsUsed:   input.SkillsUsed,
		Confidence:   input.Confidence,
		ResponseTime: input.ResponseTime,
	}
	if turn.Intent == "" {
		turn.Intent = models.IntentGeneral
	}
	if turn.Sentiment == "" {
		turn.Sentiment = models.SentimentNeutral
	}

	c.Turns = append(c.Turns, turn)
	m.archiveOverflow(c)

	m.trackEntities(c, turn)
	m.trackSentiment(c, turn.Sentiment, now)
	m.trackIntent(c, turn.Intent)
	m.extractFacts(c, turn.UserMessage, now)
	m.remember(c, turn)

	c.LastActivity = now
	m.saveContext(ctx, c)

	return c
}

// archiveOverflow moves turns beyond the retained window into long-term
// memory, oldest first. Archived entries keep the turn's id so the
// exchange stays traceable after it leaves the window.
func (m *Manager) archiveOverflow(c *models.ConversationContext) {
	for len(c.Turns) > m.cfg.MaxTurns {
		oldest := c.Turns[0]
		c.Turns = c.Turns[1:]

		m.pushLongTerm(c, models.MemoryItem{
			ID: oldest.ID,
			Content: fmt.Sprintf("[%s] %s: %s",
				oldest.Timestamp.Format(time.RFC3339),
				oldest.Intent,
				truncate(oldest.UserMessage, archiveMessagePrefix)),
			Timestamp:  oldest.Timestamp,
			Importance: archiveImportance,
			Category:   "archive",
		})
	}
}

// truncate bounds s to max runes
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
