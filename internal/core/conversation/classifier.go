package conversation

import (
	"regexp"
	"strings"

	"github.com/chatmesh/chatmesh/pkg/models"
)

// Fact is a structured hint extracted from free text
type Fact struct {
	Key        string
	Value      string
	Confidence float64
}

// Classifier turns free text into structured hints for the trackers.
// The shipped implementation is rule-based; a real NLP backend can be
// substituted without touching tracker logic.
type Classifier interface {
	// EntityType infers the type and confidence for an entity value
	EntityType(value string) (models.EntityType, float64)

	// Topics extracts topic labels from a message
	Topics(message string) []string

	// Facts extracts keyed facts from a message
	Facts(message string) []Fact
}

// Inference confidences for the rule-based classifier. Pattern matches are
// stronger signals than the custom fallback.
const (
	patternConfidence  = 0.9
	fallbackConfidence = 0.8
	factConfidence     = 0.9
)

type factPattern struct {
	key string
	re  *regexp.Regexp
}

// ruleClassifier is the baseline pattern/keyword classifier
type ruleClassifier struct {
	phoneRe  *regexp.Regexp
	numberRe *regexp.Regexp
	dateRe   *regexp.Regexp
	facts    []factPattern
	topics   map[string]string
}

// NewRuleClassifier creates the baseline rule-based classifier
func NewRuleClassifier() Classifier {
	return &ruleClassifier{
		phoneRe:  regexp.MustCompile(`^\+?[0-9][0-9\-\s().]{6,}$`),
		numberRe: regexp.MustCompile(`^[0-9]+([.,][0-9]+)?$`),
		dateRe: regexp.MustCompile(`(?i)^(\d{1,2}[/-]\d{1,2}([/-]\d{2,4})?` +
			`|\d{4}-\d{2}-\d{2}` +
			`|(january|february|march|april|may|june|july|august|september|october|november|december)( \d{1,2})?` +
			`|today|tomorrow|yesterday)$`),
		// Extend by convention: add a pattern here to track a new fact kind
		facts: []factPattern{
			{key: "name", re: regexp.MustCompile(`(?i)\bmy name is ([a-zA-Z]+)`)},
			{key: "location", re: regexp.MustCompile(`(?i)\bi live in ([a-zA-Z][a-zA-Z ]*[a-zA-Z])`)},
			{key: "employer", re: regexp.MustCompile(`(?i)\bi work (?:at|for) ([a-zA-Z0-9][a-zA-Z0-9 &.]*[a-zA-Z0-9.])`)},
			{key: "email", re: regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)},
		},
		topics: map[string]string{
			"price":    "pricing",
			"pricing":  "pricing",
			"cost":     "pricing",
			"quote":    "pricing",
			"bill":     "billing",
			"billing":  "billing",
			"invoice":  "billing",
			"charge":   "billing",
			"refund":   "billing",
			"payment":  "billing",
			"buy":      "purchase",
			"purchase": "purchase",
			"order":    "purchase",
			"checkout": "purchase",
			"help":     "support",
			"support":  "support",
			"issue":    "support",
			"problem":  "support",
			"error":    "support",
			"broken":   "support",
			"feature":  "product",
			"product":  "product",
			"plan":     "product",
			"upgrade":  "product",
			"account":  "account",
			"login":    "account",
			"password": "account",
			"shipping": "shipping",
			"delivery": "shipping",
		},
	}
}

// EntityType infers an entity type from the value's shape
func (rc *ruleClassifier) EntityType(value string) (models.EntityType, float64) {
	trimmed := strings.TrimSpace(value)
	switch {
	case strings.Contains(trimmed, "@"):
		return models.EntityTypeEmail, patternConfidence
	case rc.numberRe.MatchString(trimmed):
		return models.EntityTypeNumber, patternConfidence
	// Dates before phones: an ISO date is all digits and dashes too
	case rc.dateRe.MatchString(trimmed):
		return models.EntityTypeDate, patternConfidence
	case rc.phoneRe.MatchString(trimmed):
		return models.EntityTypePhone, patternConfidence
	default:
		return models.EntityTypeCustom, fallbackConfidence
	}
}

// Topics maps message keywords onto the fixed topic table
func (rc *ruleClassifier) Topics(message string) []string {
	var topics []string
	seen := make(map[string]bool)

	for _, word := range tokenize(message) {
		topic, ok := rc.topics[word]
		if !ok || seen[topic] {
			continue
		}
		seen[topic] = true
		topics = append(topics, topic)
	}
	return topics
}

// Facts runs each fact pattern against the message
func (rc *ruleClassifier) Facts(message string) []Fact {
	var facts []Fact
	for _, fp := range rc.facts {
		match := fp.re.FindStringSubmatch(message)
		if match == nil {
			continue
		}
		facts = append(facts, Fact{
			Key:        fp.key,
			Value:      strings.TrimSpace(match[1]),
			Confidence: factConfidence,
		})
	}
	return facts
}

// tokenize lowercases a message and splits it into word tokens
func tokenize(message string) []string {
	return strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}
