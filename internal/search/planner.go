package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"leadgen_backend/platform/config"
	"leadgen_backend/platform/logger"

	"google.golang.org/genai"
)

// Planner expands a campaign's free-form prompt into concrete search terms.
type Planner interface {
	Plan(ctx context.Context, prompt string, fallback Query) ([]Query, error)
}

// NoopPlanner returns the fallback query unchanged. Used when no AI key is
// configured or the campaign has no prompt.
type NoopPlanner struct{}

func (NoopPlanner) Plan(_ context.Context, _ string, fallback Query) ([]Query, error) {
	return []Query{fallback}, nil
}

// GeminiPlanner asks a Gemini model to turn the campaign prompt into a small
// set of sector/location queries. Planner failures are permanent from the
// caller's perspective only when the request itself is rejected; transport
// errors are transient like any other upstream.
type GeminiPlanner struct {
	client *genai.Client
	model  string
	log    *logger.Logger
}

func NewGeminiPlanner(ctx context.Context, cfg config.SearchConfig, log *logger.Logger) (*GeminiPlanner, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.GetGeminiAPIKey(),
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiPlanner{client: client, model: cfg.GetGeminiModel(), log: log}, nil
}

const plannerInstruction = `You turn a lead-generation brief into search queries.
Respond with a JSON array only, no prose. Each element:
{"sector": "...", "location": "..."}
Produce at most 5 queries. Use the brief's own wording for sectors.`

type plannedQuery struct {
	Sector   string `json:"sector"`
	Location string `json:"location"`
}

func (p *GeminiPlanner) Plan(ctx context.Context, prompt string, fallback Query) ([]Query, error) {
	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				genai.NewPartFromText(fmt.Sprintf("%s\n\nBrief:\n%s\nDefault location: %s", plannerInstruction, prompt, fallback.Location)),
			},
		},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.2)),
	})
	if err != nil {
		return nil, NewTransientError("planner", err)
	}

	text := strings.TrimSpace(resp.Text())
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var planned []plannedQuery
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &planned); err != nil {
		p.log.Warn("planner returned unparseable payload, using fallback query", "error", err)
		return []Query{fallback}, nil
	}

	queries := make([]Query, 0, len(planned))
	for _, pq := range planned {
		if strings.TrimSpace(pq.Sector) == "" {
			continue
		}
		q := fallback
		q.Sector = pq.Sector
		if strings.TrimSpace(pq.Location) != "" {
			q.Location = pq.Location
		}
		queries = append(queries, q)
	}
	if len(queries) == 0 {
		return []Query{fallback}, nil
	}
	return queries, nil
}
