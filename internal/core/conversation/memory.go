package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/chatmesh/chatmesh/pkg/models"
)

// memoryContentLength bounds the message excerpt kept per memory item
const memoryContentLength = 200

// remember derives a short-term memory item from a new turn. When the
// short-term ring overflows, the evicted item is promoted to long-term
// memory if its importance clears the promotion threshold, otherwise
// discarded.
func (m *Manager) remember(c *models.ConversationContext, turn models.ConversationTurn) {
	mem := &c.Memory

	mem.ShortTerm = append(mem.ShortTerm, models.MemoryItem{
		ID:         uuid.New().String(),
		Content:    "User: " + truncate(turn.UserMessage, memoryContentLength),
		Timestamp:  turn.Timestamp,
		Importance: turn.Confidence,
		Category:   turn.Intent,
		TTLSeconds: int(m.cfg.MemoryItemTTL.Seconds()),
	})

	if len(mem.ShortTerm) > m.cfg.MaxShortTermMemory {
		evicted := mem.ShortTerm[0]
		mem.ShortTerm = mem.ShortTerm[1:]

		if evicted.Importance > m.cfg.PromotionThreshold {
			m.pushLongTerm(c, evicted)
		}
	}
}

// pushLongTerm appends an item to the long-term archive, FIFO-evicting
// the oldest entry beyond the bound
func (m *Manager) pushLongTerm(c *models.ConversationContext, item models.MemoryItem) {
	c.Memory.LongTerm = append(c.Memory.LongTerm, item)
	if len(c.Memory.LongTerm) > m.cfg.MaxLongTermMemory {
		c.Memory.LongTerm = c.Memory.LongTerm[1:]
	}
}

// extractFacts runs the classifier's fact patterns against the user
// message and upserts matches into the fact map. Extracted facts always
// start unverified.
func (m *Manager) extractFacts(c *models.ConversationContext, message string, now time.Time) {
	for _, f := range m.classifier.Facts(message) {
		c.Memory.Facts[f.Key] = models.FactItem{
			Fact:       f.Value,
			Confidence: f.Confidence,
			Source:     "user",
			Timestamp:  now,
			Verified:   false,
		}
	}
}
