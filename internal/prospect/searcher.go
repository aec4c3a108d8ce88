package prospect

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscout/internal/mdtable"
	"github.com/sells-group/leadscout/internal/model"
)

// Options tunes search behavior.
type Options struct {
	// Layout is the table shape the prompt requests and the parser expects.
	Layout mdtable.Layout

	// EnforceRadius drops leads beyond RadiusKm*RadiusTolerance after
	// parsing. The model's own radius adherence is unreliable.
	EnforceRadius   bool
	RadiusTolerance float64

	// Generation parameters, biased toward deterministic structured output.
	Temperature     float64
	MaxOutputTokens int

	// QuotaRetryFallback is the retry-after used when a quota error does
	// not state its own delay.
	QuotaRetryFallback time.Duration

	// MinResponseChars is the shortest raw reply treated as usable.
	MinResponseChars int

	// RequestsPerMinute throttles outbound generations; 0 disables.
	RequestsPerMinute float64
}

// DefaultOptions returns the baseline search tuning.
func DefaultOptions() Options {
	return Options{
		Layout:             mdtable.WithDistance,
		EnforceRadius:      true,
		RadiusTolerance:    mdtable.DefaultRadiusTolerance,
		Temperature:        0.1,
		MaxOutputTokens:    8192,
		QuotaRetryFallback: 60 * time.Second,
		MinResponseChars:   40,
	}
}

// Searcher issues one grounded generation per search and turns the raw
// reply into ranked, validated leads. It is the sole error-classification
// point: callers see the typed taxonomy, never raw SDK failures.
type Searcher struct {
	gen     Generator
	apiKey  string
	opts    Options
	limiter *rate.Limiter
}

// NewSearcher creates a Searcher. apiKey is held only for the fail-fast
// credential check; the generator owns the authenticated session.
func NewSearcher(gen Generator, apiKey string, opts Options) *Searcher {
	if opts.QuotaRetryFallback <= 0 {
		opts.QuotaRetryFallback = 60 * time.Second
	}
	if opts.MinResponseChars <= 0 {
		opts.MinResponseChars = 40
	}
	s := &Searcher{gen: gen, apiKey: apiKey, opts: opts}
	if opts.RequestsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerMinute/60), 1)
	}
	return s
}

// Search runs one grounded search and returns its leads sorted ascending
// by rank. Failures are classified per the taxonomy in this package.
func (s *Searcher) Search(ctx context.Context, q model.Query) ([]model.Lead, error) {
	if strings.TrimSpace(s.apiKey) == "" {
		return nil, &Error{
			Kind:    KindConfig,
			Message: "no generative API key configured; set gemini.key in config.yaml or the LEADSCOUT_GEMINI_KEY environment variable",
		}
	}
	if strings.TrimSpace(q.Keyword) == "" {
		return nil, eris.New("prospect: keyword is required")
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "prospect: rate limit wait")
		}
	}

	prompt := buildPrompt(q, s.layout())

	log := zap.L().With(
		zap.String("provider", s.gen.Name()),
		zap.String("keyword", q.Keyword),
		zap.String("location", q.Location),
		zap.Float64("radius_km", q.RadiusKm),
		zap.Bool("anchored", q.Coords != nil),
	)
	log.Debug("dispatching grounded search")

	start := time.Now()
	raw, err := s.gen.Generate(ctx, GenRequest{
		Prompt:      prompt,
		Coords:      q.Coords,
		Location:    q.Location,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxOutputTokens,
	})
	if err != nil {
		classified := Classify(err, s.opts.QuotaRetryFallback)
		log.Warn("grounded search failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, classified
	}

	if len(strings.TrimSpace(raw)) < s.opts.MinResponseChars || !strings.Contains(raw, "|") {
		return nil, contentError(raw)
	}

	leads := mdtable.Parse(raw, mdtable.Options{
		Layout:     s.layout(),
		Keyword:    q.Keyword,
		RankOffset: q.RankOffset,
		Sort:       true,
	})
	if s.opts.EnforceRadius {
		leads = mdtable.FilterByRadius(leads, q.RadiusKm, s.opts.RadiusTolerance)
	}
	if len(leads) == 0 {
		return nil, contentError(raw)
	}

	log.Info("search complete",
		zap.Int("leads", len(leads)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return leads, nil
}

// SearchAll runs one search per keyword with bounded concurrency and
// returns the merged leads. limit <= 1 preserves the single outstanding
// request baseline. Keywords that produce no leads are skipped with a
// warning; classified failures abort the batch.
func (s *Searcher) SearchAll(ctx context.Context, base model.Query, keywords []string, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	results := make([][]model.Lead, len(keywords))
	for i, kw := range keywords {
		g.Go(func() error {
			q := base
			q.Keyword = kw

			leads, err := s.Search(gctx, q)
			if err != nil {
				var pe *Error
				if errors.As(err, &pe) && pe.Kind == KindContent {
					zap.L().Warn("no leads for keyword", zap.String("keyword", kw), zap.String("reason", pe.Message))
					return nil
				}
				return err
			}
			results[i] = leads
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []model.Lead
	for _, leads := range results {
		merged = append(merged, leads...)
	}
	if len(merged) == 0 {
		// Every keyword came back empty; that is a user-facing failure,
		// not a silent empty batch.
		return nil, contentError("")
	}
	return merged, nil
}

func (s *Searcher) layout() mdtable.Layout {
	if s.opts.Layout.MinCells == 0 {
		return mdtable.WithDistance
	}
	return s.opts.Layout
}

// contentError maps an unusable reply to a user-facing message. A reply
// that hints at a usage limit gets a quota-flavored message instead of the
// generic broaden-your-search suggestion.
func contentError(raw string) error {
	msg := "no leads found; try a broader keyword or a larger radius"
	if lower := strings.ToLower(raw); strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit") {
		msg = "the model reported a usage limit; wait a moment and try again"
	}
	return &Error{Kind: KindContent, Message: msg}
}
