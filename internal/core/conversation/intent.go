package conversation

import (
	"github.com/chatmesh/chatmesh/pkg/models"
)

// trackIntent shifts the current intent into history, records the
// transition in the frequency table, and refreshes the predictions.
func (m *Manager) trackIntent(c *models.ConversationContext, intent string) {
	chain := &c.Intent
	prev := chain.Current

	chain.Previous = append(chain.Previous, prev)
	if len(chain.Previous) > m.cfg.MaxPreviousIntents {
		chain.Previous = chain.Previous[len(chain.Previous)-m.cfg.MaxPreviousIntents:]
	}

	chain.Current = intent
	chain.Patterns[prev+"->"+intent]++
	chain.Predicted = m.PredictNextIntent(c)
}
