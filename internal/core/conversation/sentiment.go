package conversation

import (
	"time"

	"github.com/chatmesh/chatmesh/pkg/models"
)

// trendWindow is how many recent observations define the improving flag
const trendWindow = 3

// trackSentiment appends an observation to the bounded history and
// recomputes the running mean and trend. Overall is always the arithmetic
// mean of the retained history.
func (m *Manager) trackSentiment(c *models.ConversationContext, label string, now time.Time) {
	t := &c.Sentiment

	t.History = append(t.History, models.SentimentPoint{Sentiment: label, Timestamp: now})
	if len(t.History) > m.cfg.SentimentHistorySize {
		t.History = t.History[len(t.History)-m.cfg.SentimentHistorySize:]
	}

	t.Current = label
	t.Overall = meanSentiment(t.History)

	if len(t.History) > 2 {
		recent := meanSentiment(t.History[len(t.History)-trendWindow:])
		t.Improving = recent > t.Overall
	}
}

// meanSentiment maps labels onto {+1, 0, -1} and averages them
func meanSentiment(history []models.SentimentPoint) float64 {
	if len(history) == 0 {
		return 0
	}

	sum := 0.0
	for _, p := range history {
		sum += sentimentScore(p.Sentiment)
	}
	return sum / float64(len(history))
}

func sentimentScore(label string) float64 {
	switch label {
	case models.SentimentPositive:
		return 1
	case models.SentimentNegative:
		return -1
	default:
		return 0
	}
}
