// Package insight produces the advisory notices shown on the dispatcher
// dashboard. The default generator is template-based; a Gemini-backed one can
// be swapped in when an API key is configured.
package insight

import (
	"context"
	"fmt"
	"math/rand"
)

// Snapshot is the system state a generator may draw on.
type Snapshot struct {
	ZoneNames       []string
	TridersActive   int
	PendingRequests int
}

type Notice struct {
	Title    string
	Message  string
	Severity string
}

type Generator interface {
	Generate(ctx context.Context, snap Snapshot) (Notice, error)
}

// TemplateGenerator picks from canned advisory templates.
type TemplateGenerator struct {
	rng *rand.Rand
}

func NewTemplateGenerator(rng *rand.Rand) *TemplateGenerator {
	return &TemplateGenerator{rng: rng}
}

func (g *TemplateGenerator) Generate(ctx context.Context, snap Snapshot) (Notice, error) {
	zone := "the network"
	if len(snap.ZoneNames) > 0 {
		zone = snap.ZoneNames[g.rng.Intn(len(snap.ZoneNames))]
	}
	templates := []Notice{
		{Title: "Demand watch", Message: fmt.Sprintf("Ride volume trending up around %s; consider nudging idle triders that way.", zone), Severity: "info"},
		{Title: "Coverage gap", Message: fmt.Sprintf("%s has thin trider coverage right now (%d active fleet-wide).", zone, snap.TridersActive), Severity: "warning"},
		{Title: "Queue status", Message: fmt.Sprintf("%d requests pending across all zones.", snap.PendingRequests), Severity: "info"},
		{Title: "Weather note", Message: fmt.Sprintf("Light rain expected near %s; pickups may slow down.", zone), Severity: "info"},
		{Title: "Peak window", Message: fmt.Sprintf("Approaching a commute peak for %s terminals.", zone), Severity: "info"},
	}
	return templates[g.rng.Intn(len(templates))], nil
}
