package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatmesh/chatmesh/pkg/models"
)

func TestPredictNextIntent(t *testing.T) {
	m := newTestManager(t, Config{})

	t.Run("Observed Transitions First", func(t *testing.T) {
		c := models.NewConversationContext("s1", "prod")
		c.Intent.Current = "billing"
		c.Intent.Patterns = map[string]int{
			"billing->refund":  3,
			"billing->payment": 1,
			"greeting->other":  5,
		}

		// Observed transitions by count, then the canonical flow backfills
		assert.Equal(t, []string{"refund", "payment", "support"}, m.PredictNextIntent(c))
	})

	t.Run("Ties Break Alphabetically", func(t *testing.T) {
		c := models.NewConversationContext("s1", "prod")
		c.Intent.Current = "support"
		c.Intent.Patterns = map[string]int{
			"support->resolution": 2,
			"support->escalation": 2,
		}

		assert.Equal(t, []string{"escalation", "resolution", "troubleshooting"}, m.PredictNextIntent(c))
	})

	t.Run("Flow Table Only", func(t *testing.T) {
		c := models.NewConversationContext("s1", "prod")
		c.Intent.Current = "purchase"

		assert.Equal(t, []string{"payment", "shipping", "confirmation"}, m.PredictNextIntent(c))
	})

	t.Run("Unknown Intent", func(t *testing.T) {
		c := models.NewConversationContext("s1", "prod")
		c.Intent.Current = "smalltalk"

		assert.Empty(t, m.PredictNextIntent(c))
	})
}

func TestSummary(t *testing.T) {
	m := newTestManager(t, Config{})

	t.Run("Empty Conversation", func(t *testing.T) {
		c := models.NewConversationContext("s1", "prod")

		assert.Equal(t,
			"Conversation of 0 turns over less than a minute. Topics: general discussion. Main intent: general. Current sentiment: neutral.",
			m.Summary(c))
	})

	t.Run("Populated Conversation", func(t *testing.T) {
		c := models.NewConversationContext("s1", "prod")
		c.Turns = []models.ConversationTurn{
			{Intent: "billing"},
			{Intent: "billing"},
			{Intent: "refund"},
		}
		c.Topics = []string{"billing", "support"}
		c.Sentiment.Current = models.SentimentNegative

		assert.Equal(t,
			"Conversation of 3 turns over less than a minute. Topics: billing, support. Main intent: billing. Current sentiment: negative.",
			m.Summary(c))
	})
}

func TestRelevantContext(t *testing.T) {
	m := newTestManager(t, Config{})
	ctx := context.Background()

	for _, msg := range []string{
		"my name is Alice",
		"I have a billing question",
		"the invoice is wrong",
		"I want a refund",
		"please escalate this",
	} {
		m.AddTurn(ctx, "s1", "prod", models.TurnInput{
			UserMessage: msg,
			BotResponse: "ack",
			Intent:      "billing",
			Confidence:  0.9,
			Entities:    []string{"invoice-123"},
		})
	}

	c := m.GetContext(ctx, "s1", "prod")
	rc := m.RelevantContext(c, "where is my refund")

	assert.Equal(t, "where is my refund", rc.CurrentMessage)

	require.Len(t, rc.RecentTurns, 3)
	assert.Equal(t, "the invoice is wrong", rc.RecentTurns[0].UserMessage)
	assert.Equal(t, "please escalate this", rc.RecentTurns[2].UserMessage)

	require.Len(t, rc.Entities, 1)
	assert.Equal(t, "invoice-123", rc.Entities[0].Value)
	assert.Equal(t, 5, rc.Entities[0].Frequency)

	require.Len(t, rc.Facts, 1)
	assert.Equal(t, "name", rc.Facts[0].Key)
	assert.Equal(t, "Alice", rc.Facts[0].Fact)

	assert.Equal(t, models.SentimentNeutral, rc.Sentiment)
	assert.Len(t, rc.RecentIntents, 3)
	assert.Contains(t, rc.Topics, "billing")
	assert.Len(t, rc.ImportantMemories, 5)
}

func TestImportantMemoriesRanking(t *testing.T) {
	m := newTestManager(t, Config{PromotionThreshold: 0.7})

	c := models.NewConversationContext("s1", "prod")
	c.Memory.ShortTerm = []models.MemoryItem{
		{ID: "st-low", Importance: 0.2},
		{ID: "st-high", Importance: 0.95},
	}
	c.Memory.LongTerm = []models.MemoryItem{
		{ID: "lt-archive", Importance: 0.5}, // below threshold, excluded
		{ID: "lt-high", Importance: 0.8},
	}

	rc := m.RelevantContext(c, "")
	require.Len(t, rc.ImportantMemories, 3)
	assert.Equal(t, "st-high", rc.ImportantMemories[0].ID)
	assert.Equal(t, "lt-high", rc.ImportantMemories[1].ID)
	assert.Equal(t, "st-low", rc.ImportantMemories[2].ID)
}

func TestIsConversationEnding(t *testing.T) {
	m := newTestManager(t, Config{})

	tests := []struct {
		name    string
		message string
		ending  bool
	}{
		{"Goodbye", "ok thanks, goodbye!", true},
		{"Thank You", "Thank you so much", true},
		{"Thats All", "that's all for now", true},
		{"Open Question", "can you help me with billing", false},
		{"Midword No Match", "I visited Bayern yesterday", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := models.NewConversationContext("s1", "prod")
			c.Turns = []models.ConversationTurn{{UserMessage: tt.message}}
			assert.Equal(t, tt.ending, m.IsConversationEnding(c))
		})
	}

	t.Run("No Turns", func(t *testing.T) {
		assert.False(t, m.IsConversationEnding(models.NewConversationContext("s1", "prod")))
	})
}

func TestPersonalizedGreeting(t *testing.T) {
	m := newTestManager(t, Config{})

	t.Run("New Session", func(t *testing.T) {
		c := models.NewConversationContext("s1", "prod")
		greeting := m.PersonalizedGreeting(c)

		assert.Regexp(t, `^Good (morning|afternoon|evening)! How can I help you today\?$`, greeting)
	})

	t.Run("New Session With Known Name", func(t *testing.T) {
		c := models.NewConversationContext("s1", "prod")
		c.Memory.Facts["name"] = models.FactItem{Fact: "Alice"}

		assert.Regexp(t, `^Good (morning|afternoon|evening), Alice! How can I help you today\?$`, m.PersonalizedGreeting(c))
	})

	t.Run("Returning With Topic", func(t *testing.T) {
		c := models.NewConversationContext("s1", "prod")
		c.Turns = []models.ConversationTurn{{UserMessage: "hi"}}
		c.Topics = []string{"billing", "shipping"}
		c.Memory.Facts["name"] = models.FactItem{Fact: "Alice"}

		assert.Equal(t, "Welcome back, Alice! Last time we were discussing shipping.", m.PersonalizedGreeting(c))
	})

	t.Run("Returning Without Topics", func(t *testing.T) {
		c := models.NewConversationContext("s1", "prod")
		c.Turns = []models.ConversationTurn{{UserMessage: "hi"}}

		assert.Equal(t, "Welcome back! How can I help you today?", m.PersonalizedGreeting(c))
	})
}

func TestTimeOfDayGreeting(t *testing.T) {
	assert.Equal(t, "Good morning", timeOfDayGreeting(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Good afternoon", timeOfDayGreeting(time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Good evening", timeOfDayGreeting(time.Date(2025, 6, 1, 21, 0, 0, 0, time.UTC)))
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "less than a minute", formatElapsed(30*time.Second))
	assert.Equal(t, "5 minutes", formatElapsed(5*time.Minute+10*time.Second))
	assert.Equal(t, "2.5 hours", formatElapsed(150*time.Minute))
}
