package registry

import (
	"sync"

	"github.com/trigo/dispatch/internal/models"
)

// MaxInsights caps the advisory list at the most recent entries.
const MaxInsights = 5

type InsightLog struct {
	mu       sync.RWMutex
	insights []models.Insight
}

func NewInsightLog() *InsightLog {
	return &InsightLog{}
}

// Add prepends an insight, evicting beyond the cap.
func (l *InsightLog) Add(in models.Insight) {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := make([]models.Insight, 0, len(l.insights)+1)
	next = append(next, in)
	next = append(next, l.insights...)
	if len(next) > MaxInsights {
		next = next[:MaxInsights]
	}
	l.insights = next
}

// All returns insights most-recent-first.
func (l *InsightLog) All() []models.Insight {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Insight, len(l.insights))
	copy(out, l.insights)
	return out
}
