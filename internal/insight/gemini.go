package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiGenerator asks a Gemini model for a short dispatch advisory. It is an
// optional upgrade over TemplateGenerator, enabled when an API key is set.
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := client.GenerativeModel("gemini-2.0-flash")
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.6)
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Close() { g.client.Close() }

func (g *GeminiGenerator) Generate(ctx context.Context, snap Snapshot) (Notice, error) {
	prompt := fmt.Sprintf(`You are the dispatch advisor for TriGo, a tricycle (TODA) ride-hailing
network in the Philippines. Zones: %s. Active triders: %d. Pending requests: %d.
Write ONE short operational advisory for the human dispatcher.
Respond as JSON: {"title": "...", "message": "...", "severity": "info"|"warning"}.
Keep the message under 140 characters.`,
		strings.Join(snap.ZoneNames, ", "), snap.TridersActive, snap.PendingRequests)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Notice{}, fmt.Errorf("gemini generation: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Notice{}, fmt.Errorf("no candidates from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	raw := strings.TrimSpace(text.String())
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "```"), "```")

	var n Notice
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &n); err != nil {
		return Notice{}, fmt.Errorf("parse gemini response: %w", err)
	}
	if n.Severity != "warning" {
		n.Severity = "info"
	}
	return n, nil
}
