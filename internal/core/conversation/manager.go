// Package conversation implements the per-session context manager for the
// chatmesh chat agent: dialogue turns, tracked entities, sentiment trend,
// intent chains, tiered memory, and the derived views used for response
// generation.
//
// Contexts live in an in-process store that is authoritative while the
// process runs, and are persisted best-effort to a durable cache with a
// sliding TTL so other processes can pick up a warm session. The durable
// cache being absent or failing is a degraded mode, never an error.
package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/chatmesh/chatmesh/pkg/cache"
	"github.com/chatmesh/chatmesh/pkg/models"
	"github.com/chatmesh/chatmesh/pkg/observability"
)

// contextKeyPrefix namespaces context entries in the durable cache
const contextKeyPrefix = "conversation:context:"

// Config holds the context manager limits. Zero fields fall back to the
// defaults from DefaultConfig.
type Config struct {
	// MaxTurns bounds the retained turn window; overflow is archived into
	// long-term memory, never dropped
	MaxTurns int

	// MaxShortTermMemory bounds the short-term memory ring
	MaxShortTermMemory int

	// MaxLongTermMemory bounds the long-term archive (FIFO eviction)
	MaxLongTermMemory int

	// SentimentHistorySize bounds the sentiment observation window
	SentimentHistorySize int

	// MaxPreviousIntents bounds the retained intent history
	MaxPreviousIntents int

	// MaxEntityContext bounds the per-entity mention snippet list
	MaxEntityContext int

	// PromotionThreshold is the importance above which evicted short-term
	// items are promoted to long-term memory instead of discarded
	PromotionThreshold float64

	// ContextTTL is the sliding expiry for persisted contexts; it also
	// drives the in-process expiry sweep
	ContextTTL time.Duration

	// MemoryItemTTL is stamped onto short-term memory items
	MemoryItemTTL time.Duration
}

// DefaultConfig returns the stock limits
func DefaultConfig() Config {
	return Config{
		MaxTurns:             50,
		MaxShortTermMemory:   20,
		MaxLongTermMemory:    100,
		SentimentHistorySize: 10,
		MaxPreviousIntents:   50,
		MaxEntityContext:     5,
		PromotionThreshold:   0.7,
		ContextTTL:           time.Hour,
		MemoryItemTTL:        time.Hour,
	}
}

// normalized fills zero fields with defaults
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MaxTurns <= 0 {
		c.MaxTurns = def.MaxTurns
	}
	if c.MaxShortTermMemory <= 0 {
		c.MaxShortTermMemory = def.MaxShortTermMemory
	}
	if c.MaxLongTermMemory <= 0 {
		c.MaxLongTermMemory = def.MaxLongTermMemory
	}
	if c.SentimentHistorySize <= 0 {
		c.SentimentHistorySize = def.SentimentHistorySize
	}
	if c.MaxPreviousIntents <= 0 {
		c.MaxPreviousIntents = def.MaxPreviousIntents
	}
	if c.MaxEntityContext <= 0 {
		c.MaxEntityContext = def.MaxEntityContext
	}
	if c.PromotionThreshold <= 0 {
		c.PromotionThreshold = def.PromotionThreshold
	}
	if c.ContextTTL <= 0 {
		c.ContextTTL = def.ContextTTL
	}
	if c.MemoryItemTTL <= 0 {
		c.MemoryItemTTL = def.MemoryItemTTL
	}
	return c
}

// session is one in-process store entry. Each session carries its own
// mutex so concurrent writes to the same session serialize instead of
// interleaving; cross-process writes remain last-writer-wins.
type session struct {
	mu  sync.Mutex
	ctx *models.ConversationContext
}

// Manager manages conversation contexts
type Manager struct {
	cfg        Config
	cache      cache.Cache
	classifier Classifier
	logger     observability.Logger
	metrics    observability.MetricsClient

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewManager creates a new context manager. cache may be nil, in which
// case contexts live in-process only.
func NewManager(
	cfg Config,
	c cache.Cache,
	classifier Classifier,
	logger observability.Logger,
	metrics observability.MetricsClient,
) *Manager {
	if logger == nil {
		logger = observability.NewLogger("conversation_manager")
	}
	if metrics == nil {
		metrics = observability.NewNoopMetricsClient()
	}
	if classifier == nil {
		classifier = NewRuleClassifier()
	}

	if c == nil {
		logger.Info("Durable cache not configured, contexts are in-process only", nil)
	}

	return &Manager{
		cfg:        cfg.normalized(),
		cache:      c,
		classifier: classifier,
		logger:     logger,
		metrics:    metrics,
		sessions:   make(map[string]*session),
	}
}

// GetContext resolves a session to its conversation context. It never
// fails: a durable-cache miss, a malformed stored context, or any cache
// error falls through to a fresh context.
func (m *Manager) GetContext(ctx context.Context, sessionID, productKey string) *models.ConversationContext {
	done := m.metrics.StartTimer("conversation_operation_duration_ms", map[string]string{"operation": "get_context"})
	defer done()

	s := m.session(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	return m.resolveLocked(ctx, s, sessionID, productKey)
}

// ClearExpiredContexts sweeps the in-process store, evicting every context
// whose inactivity exceeds the context TTL, and returns the eviction
// count. The durable cache expires its own entries via TTL and is not
// touched.
func (m *Manager) ClearExpiredContexts() int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	cleared := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		expired := s.ctx != nil && now.Sub(s.ctx.LastActivity) > m.cfg.ContextTTL
		s.mu.Unlock()

		if expired {
			delete(m.sessions, id)
			cleared++
		}
	}

	if cleared > 0 {
		m.logger.Info("Cleared expired conversation contexts", map[string]interface{}{
			"cleared":   cleared,
			"remaining": len(m.sessions),
		})
	}
	m.metrics.RecordGauge("conversation_active_contexts", float64(len(m.sessions)), nil)

	return cleared
}

// session returns the store entry for a session, creating it if needed
func (m *Manager) session(sessionID string) *session {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.sessions[sessionID]; ok {
		return s
	}
	s = &session{}
	m.sessions[sessionID] = s
	return s
}

// resolveLocked loads the context for a session entry. Resolution order:
// in-process hit, durable-cache hit, fresh context. Callers must hold the
// session mutex.
func (m *Manager) resolveLocked(ctx context.Context, s *session, sessionID, productKey string) *models.ConversationContext {
	now := time.Now()

	if s.ctx != nil {
		s.ctx.LastActivity = now
		return s.ctx
	}

	if m.cache != nil {
		var stored models.ConversationContext
		err := m.cache.Get(ctx, contextKeyPrefix+sessionID, &stored)
		switch {
		case err == nil && stored.SessionID == sessionID:
			normalizeContext(&stored)
			stored.LastActivity = now
			s.ctx = &stored
			m.metrics.RecordCounter("conversation_context_loads", 1, map[string]string{"source": "durable_cache"})
			return s.ctx
		case err != nil && err != cache.ErrNotFound:
			// Covers transport failures and malformed stored contexts
			// alike; both degrade to a fresh context
			m.logger.Warn("Failed to load context from durable cache", map[string]interface{}{
				"error":      err.Error(),
				"session_id": sessionID,
			})
		}
	}

	s.ctx = models.NewConversationContext(sessionID, productKey)
	m.metrics.RecordCounter("conversation_context_loads", 1, map[string]string{"source": "fresh"})
	return s.ctx
}

// saveContext persists a context to the durable cache with the sliding
// TTL. Persistence is best-effort: failures are logged and swallowed, the
// in-process copy stays authoritative.
func (m *Manager) saveContext(ctx context.Context, c *models.ConversationContext) {
	if m.cache == nil {
		return
	}

	if err := m.cache.Set(ctx, contextKeyPrefix+c.SessionID, c, m.cfg.ContextTTL); err != nil {
		m.logger.Warn("Failed to persist context to durable cache", map[string]interface{}{
			"error":      err.Error(),
			"session_id": c.SessionID,
		})
		m.metrics.RecordCounter("conversation_persist_failures", 1, nil)
	}
}

// normalizeContext re-establishes the container invariants a context may
// lose on the wire (null maps for empty ones)
func normalizeContext(c *models.ConversationContext) {
	if c.Turns == nil {
		c.Turns = []models.ConversationTurn{}
	}
	if c.Entities == nil {
		c.Entities = make(map[string]*models.EntityInfo)
	}
	if c.Topics == nil {
		c.Topics = []string{}
	}
	if c.Intent.Patterns == nil {
		c.Intent.Patterns = make(map[string]int)
	}
	if c.Memory.Facts == nil {
		c.Memory.Facts = make(map[string]models.FactItem)
	}
	if c.Memory.Preferences == nil {
		c.Memory.Preferences = make(map[string]string)
	}
	if c.Metadata == nil {
		c.Metadata = make(map[string]interface{})
	}
}
