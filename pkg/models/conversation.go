package models

import (
	"time"
)

// Sentiment labels used throughout the conversation pipeline
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// IntentGeneral is the intent a fresh conversation starts with
const IntentGeneral = "general"

// EntityType classifies a recognized entity
type EntityType string

// Known entity types
const (
	EntityTypePerson   EntityType = "person"
	EntityTypeLocation EntityType = "location"
	EntityTypeDate     EntityType = "date"
	EntityTypeNumber   EntityType = "number"
	EntityTypeEmail    EntityType = "email"
	EntityTypePhone    EntityType = "phone"
	EntityTypeProduct  EntityType = "product"
	EntityTypeCustom   EntityType = "custom"
)

// ConversationTurn is one user-message/bot-response exchange. Turns are
// immutable once recorded.
type ConversationTurn struct {
	// ID is the unique identifier for this turn
	ID string `json:"id"`

	// Timestamp is when this turn was recorded
	Timestamp time.Time `json:"timestamp"`

	// UserMessage is the raw user input for this exchange
	UserMessage string `json:"user_message"`

	// BotResponse is the response returned to the user
	BotResponse string `json:"bot_response"`

	// Intent is the classified purpose of the user message
	Intent string `json:"intent"`

	// Entities lists entity values recognized in the user message
	Entities []string `json:"entities,omitempty"`

	// Sentiment is the sentiment label for the user message
	Sentiment string `json:"sentiment"`

	// SkillsUsed lists the skills invoked to produce the response
	SkillsUsed []string `json:"skills_used,omitempty"`

	// Confidence is the classifier confidence for this exchange (0-1)
	Confidence float64 `json:"confidence"`

	// ResponseTime is how long the response took to produce
	ResponseTime time.Duration `json:"response_time,omitempty"`
}

// TurnInput carries the caller-supplied fields of a turn. ID and
// Timestamp are generated when the turn is recorded.
type TurnInput struct {
	UserMessage  string        `json:"user_message" binding:"required"`
	BotResponse  string        `json:"bot_response"`
	Intent       string        `json:"intent"`
	Entities     []string      `json:"entities,omitempty"`
	Sentiment    string        `json:"sentiment"`
	SkillsUsed   []string      `json:"skills_used,omitempty"`
	Confidence   float64       `json:"confidence"`
	ResponseTime time.Duration `json:"response_time,omitempty"`
}

// EntityInfo tracks a recognized entity across a conversation
type EntityInfo struct {
	// Value is the entity text as mentioned by the user
	Value string `json:"value"`

	// Type is the classified entity type
	Type EntityType `json:"type"`

	// Confidence is how certain the classification is (0-1)
	Confidence float64 `json:"confidence"`

	// FirstMentioned is when the entity was first seen
	FirstMentioned time.Time `json:"first_mentioned"`

	// LastMentioned is when the entity was most recently seen
	LastMentioned time.Time `json:"last_mentioned"`

	// Frequency counts how many turns mentioned the entity
	Frequency int `json:"frequency"`

	// Context holds short message snippets around recent mentions
	Context []string `json:"context,omitempty"`
}

// SentimentPoint is one sentiment observation
type SentimentPoint struct {
	Sentiment string    `json:"sentiment"`
	Timestamp time.Time `json:"timestamp"`
}

// SentimentTrend tracks sentiment over a bounded history window.
// Overall is the arithmetic mean of {positive:+1, neutral:0, negative:-1}
// over the retained history, recomputed on every update.
type SentimentTrend struct {
	Current   string           `json:"current"`
	History   []SentimentPoint `json:"history"`
	Overall   float64          `json:"overall"`
	Improving bool             `json:"improving"`
}

// IntentChain tracks the sequence of classified intents and the
// frequency-weighted transition table derived from it
type IntentChain struct {
	// Current is the most recent intent
	Current string `json:"current"`

	// Previous is the ordered history of earlier intents
	Previous []string `json:"previous"`

	// Predicted holds the next-intent predictions derived from Patterns
	Predicted []string `json:"predicted"`

	// Patterns counts observed "from->to" intent transitions
	Patterns map[string]int `json:"patterns"`
}

// MemoryItem is one retained piece of conversation memory
type MemoryItem struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`

	// Importance scores how much this item matters for recall (0-1)
	Importance float64 `json:"importance"`

	// Category groups items, typically by the intent that produced them
	Category string `json:"category"`

	// TTLSeconds bounds how long the item stays relevant, 0 means no bound
	TTLSeconds int `json:"ttl_seconds,omitempty"`
}

// FactItem is a fact extracted from the conversation. Extracted facts are
// never auto-verified.
type FactItem struct {
	Fact       string    `json:"fact"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
	Verified   bool      `json:"verified"`
}

// ConversationMemory holds the two retention tiers plus extracted facts
// and learned preferences
type ConversationMemory struct {
	// ShortTerm is a bounded ring of recent memory items
	ShortTerm []MemoryItem `json:"short_term"`

	// LongTerm is the bounded importance-filtered archive, FIFO-evicted
	LongTerm []MemoryItem `json:"long_term"`

	// Facts maps a fact key to the extracted fact
	Facts map[string]FactItem `json:"facts"`

	// Preferences maps preference keys learned during the conversation
	Preferences map[string]string `json:"preferences"`
}

// UserPreferences holds per-user interaction preferences
type UserPreferences struct {
	CommunicationStyle string                 `json:"communication_style,omitempty"`
	ResponseLength     string                 `json:"response_length,omitempty"`
	PreferredChannels  []string               `json:"preferred_channels,omitempty"`
	Language           string                 `json:"language,omitempty"`
	Timezone           string                 `json:"timezone,omitempty"`
	CustomSettings     map[string]interface{} `json:"custom_settings,omitempty"`
}

// ConversationContext is the full mutable state tracked for one chat
// session. One context exists per active session.
type ConversationContext struct {
	// SessionID is the unique key for this context
	SessionID string `json:"session_id"`

	// ProductKey scopes the session to a tenant/product
	ProductKey string `json:"product_key"`

	// UserID identifies the user when known
	UserID string `json:"user_id,omitempty"`

	// StartTime is when the session began
	StartTime time.Time `json:"start_time"`

	// LastActivity is updated on every read or write of the context
	LastActivity time.Time `json:"last_activity"`

	// Turns is the bounded ordered sequence of exchanges
	Turns []ConversationTurn `json:"turns"`

	// Entities maps entity value to its tracked info
	Entities map[string]*EntityInfo `json:"entities"`

	// Topics is the append-only de-duplicated list of discussed topics
	Topics []string `json:"topics"`

	Sentiment   SentimentTrend     `json:"sentiment"`
	Intent      IntentChain        `json:"intent"`
	Memory      ConversationMemory `json:"memory"`
	Preferences UserPreferences    `json:"preferences"`

	// Metadata is a free-form extension map
	Metadata map[string]interface{} `json:"metadata"`
}

// NewConversationContext creates a context with the defaults a fresh
// session starts from
func NewConversationContext(sessionID, productKey string) *ConversationContext {
	now := time.Now()
	return &ConversationContext{
		SessionID:    sessionID,
		ProductKey:   productKey,
		StartTime:    now,
		LastActivity: now,
		Turns:        []ConversationTurn{},
		Entities:     make(map[string]*EntityInfo),
		Topics:       []string{},
		Sentiment: SentimentTrend{
			Current: SentimentNeutral,
			History: []SentimentPoint{},
		},
		Intent: IntentChain{
			Current:  IntentGeneral,
			Previous: []string{},
			Patterns: make(map[string]int),
		},
		Memory: ConversationMemory{
			ShortTerm:   []MemoryItem{},
			LongTerm:    []MemoryItem{},
			Facts:       make(map[string]FactItem),
			Preferences: make(map[string]string),
		},
		Metadata: make(map[string]interface{}),
	}
}

// LastTurn returns the most recent turn, or nil when the context has none
func (c *ConversationContext) LastTurn() *ConversationTurn {
	if len(c.Turns) == 0 {
		return nil
	}
	return &c.Turns[len(c.Turns)-1]
}

// FactEntry pairs a fact key with its extracted fact for flattened views
type FactEntry struct {
	Key string `json:"key"`
	FactItem
}

// RelevantContext is the bundle of state handed to response generation
type RelevantContext struct {
	RecentTurns       []ConversationTurn `json:"recent_turns"`
	Entities          []EntityInfo       `json:"entities,omitempty"`
	Facts             []FactEntry        `json:"facts,omitempty"`
	Preferences       UserPreferences    `json:"preferences"`
	Sentiment         string             `json:"sentiment"`
	RecentIntents     []string           `json:"recent_intents,omitempty"`
	Topics            []string           `json:"topics,omitempty"`
	ImportantMemories []MemoryItem       `json:"important_memories,omitempty"`
	CurrentMessage    string             `json:"current_message,omitempty"`
}
