package prospect

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/pkg/claude"
	"github.com/sells-group/leadscout/pkg/gemini"
)

// GenRequest is the outbound request handed to a Generator.
type GenRequest struct {
	Prompt      string
	Coords      *model.Coords
	Location    string
	Temperature float64
	MaxTokens   int
}

// Generator produces grounded free-text from a prompt. Implementations
// wrap one hosted model with a geographic-search capability attached.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req GenRequest) (string, error)
}

// Registry manages the available generators, selected by config.
type Registry struct {
	mu   sync.RWMutex
	gens map[string]Generator
}

// NewRegistry creates an empty generator registry.
func NewRegistry() *Registry {
	return &Registry{gens: make(map[string]Generator)}
}

// Register adds a generator to the registry.
func (r *Registry) Register(g Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens[g.Name()] = g
}

// Get returns the named generator.
func (r *Registry) Get(name string) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gens[name]
	if !ok {
		return nil, eris.Errorf("prospect: unknown provider %q (registered: %s)", name, strings.Join(r.names(), ", "))
	}
	return g, nil
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.gens))
	for n := range r.gens {
		names = append(names, n)
	}
	return names
}

// geminiGenerator adapts the Gemini client to the Generator interface.
type geminiGenerator struct {
	c gemini.Client
}

// NewGeminiGenerator wraps a Gemini client.
func NewGeminiGenerator(c gemini.Client) Generator {
	return &geminiGenerator{c: c}
}

func (g *geminiGenerator) Name() string { return "gemini" }

func (g *geminiGenerator) Generate(ctx context.Context, req GenRequest) (string, error) {
	greq := gemini.GenerateRequest{
		Prompt:          req.Prompt,
		Temperature:     &req.Temperature,
		MaxOutputTokens: req.MaxTokens,
	}
	if req.Coords != nil {
		greq.Anchor = &gemini.Anchor{Latitude: req.Coords.Lat, Longitude: req.Coords.Lng}
	}

	resp, err := g.c.GenerateGrounded(ctx, greq)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// claudeGenerator adapts the Anthropic client to the Generator interface.
type claudeGenerator struct {
	c claude.Client
}

// NewClaudeGenerator wraps an Anthropic client.
func NewClaudeGenerator(c claude.Client) Generator {
	return &claudeGenerator{c: c}
}

func (g *claudeGenerator) Name() string { return "claude" }

func (g *claudeGenerator) Generate(ctx context.Context, req GenRequest) (string, error) {
	// Anthropic's web-search tool anchors to an approximate place name,
	// not exact coordinates.
	city, region := splitLocation(req.Location)

	resp, err := g.c.GenerateGrounded(ctx, claude.GenerateRequest{
		Prompt:          req.Prompt,
		City:            city,
		Region:          region,
		Temperature:     &req.Temperature,
		MaxOutputTokens: req.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// splitLocation breaks "Austin, TX" into city and region parts.
func splitLocation(location string) (city, region string) {
	city, region, found := strings.Cut(location, ",")
	city = strings.TrimSpace(city)
	if !found {
		return city, ""
	}
	return city, strings.TrimSpace(region)
}
