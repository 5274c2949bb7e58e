package conversation

import (
	"github.com/chatmesh/chatmesh/pkg/models"
)

// snippetLength bounds the message excerpt stored per entity mention
const snippetLength = 80

// trackEntities updates the entity map from a turn's recognized entities
// and extracts topics from the user message. Entities are never removed;
// repeated mentions update the existing entry in place.
func (m *Manager) trackEntities(c *models.ConversationContext, turn models.ConversationTurn) {
	snippet := truncate(turn.UserMessage, snippetLength)

	for _, value := range turn.Entities {
		if value == "" {
			continue
		}

		if info, ok := c.Entities[value]; ok {
			info.LastMentioned = turn.Timestamp
			info.Frequency++
			info.Context = appendBounded(info.Context, snippet, m.cfg.MaxEntityContext)
			continue
		}

		entityType, confidence := m.classifier.EntityType(value)
		c.Entities[value] = &models.EntityInfo{
			Value:          value,
			Type:           entityType,
			Confidence:     confidence,
			FirstMentioned: turn.Timestamp,
			LastMentioned:  turn.Timestamp,
			Frequency:      1,
			Context:        []string{snippet},
		}
	}

	for _, topic := range m.classifier.Topics(turn.UserMessage) {
		if !containsString(c.Topics, topic) {
			c.Topics = append(c.Topics, topic)
		}
	}
}

// appendBounded appends s and drops the oldest entries beyond max
func appendBounded(list []string, s string, max int) []string {
	list = append(list, s)
	if len(list) > max {
		list = list[len(list)-max:]
	}
	return list
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
