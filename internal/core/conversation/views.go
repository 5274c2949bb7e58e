package conversation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chatmesh/chatmesh/pkg/models"
)

// maxPredictions bounds the next-intent prediction list
const maxPredictions = 3

// intentFlows is the fixed table of canonical intent progressions, merged
// into predictions after the observed transition counts
var intentFlows = map[string][]string{
	"purchase":   {"payment", "shipping", "confirmation"},
	"payment":    {"confirmation", "receipt"},
	"support":    {"troubleshooting", "escalation", "resolution"},
	"billing":    {"payment", "refund", "support"},
	"onboarding": {"setup", "configuration", "tutorial"},
	"pricing":    {"purchase", "comparison"},
}

// closingPhrases signal that the user is wrapping up the conversation
var closingPhrases = []string{
	"bye",
	"goodbye",
	"thanks",
	"thank you",
	"done",
	"finished",
	"that's all",
	"nothing else",
}

// PredictNextIntent derives up to three likely next intents: the most
// frequent observed transitions from the current intent, backfilled from
// the canonical flow table.
func (m *Manager) PredictNextIntent(c *models.ConversationContext) []string {
	type transition struct {
		intent string
		count  int
	}

	prefix := c.Intent.Current + "->"
	var observed []transition
	for key, count := range c.Intent.Patterns {
		if strings.HasPrefix(key, prefix) {
			observed = append(observed, transition{
				intent: strings.TrimPrefix(key, prefix),
				count:  count,
			})
		}
	}
	sort.Slice(observed, func(i, j int) bool {
		if observed[i].count != observed[j].count {
			return observed[i].count > observed[j].count
		}
		return observed[i].intent < observed[j].intent
	})

	predicted := make([]string, 0, maxPredictions)
	seen := make(map[string]bool)

	for _, t := range observed {
		if len(predicted) == maxPredictions {
			return predicted
		}
		if !seen[t.intent] {
			seen[t.intent] = true
			predicted = append(predicted, t.intent)
		}
	}

	for _, next := range intentFlows[c.Intent.Current] {
		if len(predicted) == maxPredictions {
			break
		}
		if !seen[next] {
			seen[next] = true
			predicted = append(predicted, next)
		}
	}

	return predicted
}

// Summary renders a human-readable digest of the conversation so far
func (m *Manager) Summary(c *models.ConversationContext) string {
	elapsed := time.Since(c.StartTime)

	topics := "general discussion"
	if len(c.Topics) > 0 {
		topics = strings.Join(c.Topics, ", ")
	}

	return fmt.Sprintf("Conversation of %d turns over %s. Topics: %s. Main intent: %s. Current sentiment: %s.",
		len(c.Turns),
		formatElapsed(elapsed),
		topics,
		mostFrequentIntent(c.Turns),
		c.Sentiment.Current,
	)
}

// RelevantContext assembles the bundle of state handed to response
// generation: recent turns, tracked entities and facts, preferences,
// sentiment, recent intents, recent topics, and the highest-importance
// memory items.
func (m *Manager) RelevantContext(c *models.ConversationContext, currentMessage string) *models.RelevantContext {
	return &models.RelevantContext{
		RecentTurns:       lastTurns(c.Turns, 3),
		Entities:          flattenEntities(c.Entities),
		Facts:             flattenFacts(c.Memory.Facts),
		Preferences:       c.Preferences,
		Sentiment:         c.Sentiment.Current,
		RecentIntents:     lastStrings(c.Intent.Previous, 3),
		Topics:            lastStrings(c.Topics, 5),
		ImportantMemories: m.importantMemories(c, 5),
		CurrentMessage:    currentMessage,
	}
}

// IsConversationEnding reports whether the most recent user message
// contains a closing phrase
func (m *Manager) IsConversationEnding(c *models.ConversationContext) bool {
	last := c.LastTurn()
	if last == nil {
		return false
	}

	msg := strings.ToLower(last.UserMessage)
	for _, phrase := range closingPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// PersonalizedGreeting builds a greeting for the session: returning users
// get a reference to the last topic, new users a time-of-day greeting.
// A remembered name is worked in when available.
func (m *Manager) PersonalizedGreeting(c *models.ConversationContext) string {
	name := ""
	if fact, ok := c.Memory.Facts["name"]; ok {
		name = fact.Fact
	}

	if len(c.Turns) > 0 {
		salutation := "Welcome back"
		if name != "" {
			salutation = fmt.Sprintf("Welcome back, %s", name)
		}
		if len(c.Topics) > 0 {
			return fmt.Sprintf("%s! Last time we were discussing %s.", salutation, c.Topics[len(c.Topics)-1])
		}
		return salutation + "! How can I help you today?"
	}

	greeting := timeOfDayGreeting(time.Now())
	if name != "" {
		return fmt.Sprintf("%s, %s! How can I help you today?", greeting, name)
	}
	return greeting + "! How can I help you today?"
}

func timeOfDayGreeting(now time.Time) string {
	switch hour := now.Hour(); {
	case hour < 12:
		return "Good morning"
	case hour < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// importantMemories returns the top-n memory items by importance, drawn
// from short-term memory plus the long-term items above the promotion
// threshold
func (m *Manager) importantMemories(c *models.ConversationContext, n int) []models.MemoryItem {
	items := make([]models.MemoryItem, 0, len(c.Memory.ShortTerm)+len(c.Memory.LongTerm))
	items = append(items, c.Memory.ShortTerm...)
	for _, item := range c.Memory.LongTerm {
		if item.Importance > m.cfg.PromotionThreshold {
			items = append(items, item)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Importance > items[j].Importance
	})

	if len(items) > n {
		items = items[:n]
	}
	return items
}

// mostFrequentIntent counts intents across all retained turns, breaking
// ties toward the earliest-seen intent
func mostFrequentIntent(turns []models.ConversationTurn) string {
	if len(turns) == 0 {
		return models.IntentGeneral
	}

	counts := make(map[string]int)
	var order []string
	for _, t := range turns {
		if counts[t.Intent] == 0 {
			order = append(order, t.Intent)
		}
		counts[t.Intent]++
	}

	best := order[0]
	for _, intent := range order {
		if counts[intent] > counts[best] {
			best = intent
		}
	}
	return best
}

// lastTurns returns a copy of the trailing n turns
func lastTurns(turns []models.ConversationTurn, n int) []models.ConversationTurn {
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]models.ConversationTurn, len(turns))
	copy(out, turns)
	return out
}

// lastStrings returns a copy of the trailing n strings
func lastStrings(list []string, n int) []string {
	if len(list) > n {
		list = list[len(list)-n:]
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// flattenEntities converts the entity map into a list sorted by value for
// stable output
func flattenEntities(entities map[string]*models.EntityInfo) []models.EntityInfo {
	out := make([]models.EntityInfo, 0, len(entities))
	for _, info := range entities {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}

// flattenFacts converts the fact map into a list sorted by key
func flattenFacts(facts map[string]models.FactItem) []models.FactEntry {
	out := make([]models.FactEntry, 0, len(facts))
	for key, item := range facts {
		out = append(out, models.FactEntry{Key: key, FactItem: item})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// formatElapsed renders a duration in coarse human units
func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "less than a minute"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	default:
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
}
