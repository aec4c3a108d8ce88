package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/mdtable"
	"github.com/sells-group/leadscout/internal/prospect"
	"github.com/sells-group/leadscout/internal/store"
	claudepkg "github.com/sells-group/leadscout/pkg/claude"
	geminipkg "github.com/sells-group/leadscout/pkg/gemini"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "leadscout.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initRegistry builds the generator registry from every provider with a
// configured key.
func initRegistry(ctx context.Context) (*prospect.Registry, error) {
	reg := prospect.NewRegistry()

	if cfg.Gemini.Key != "" {
		gc, err := geminipkg.NewClient(ctx, cfg.Gemini.Key, geminipkg.WithModel(cfg.Gemini.Model))
		if err != nil {
			return nil, eris.Wrap(err, "init gemini client")
		}
		reg.Register(prospect.NewGeminiGenerator(gc))
	}

	if cfg.Claude.Key != "" {
		cc := claudepkg.NewClient(cfg.Claude.Key, claudepkg.WithModel(cfg.Claude.Model))
		reg.Register(prospect.NewClaudeGenerator(cc))
	}

	return reg, nil
}

func providerKey() string {
	if cfg.Provider == "claude" {
		return cfg.Claude.Key
	}
	return cfg.Gemini.Key
}

func initSearcher(ctx context.Context) (*prospect.Searcher, error) {
	reg, err := initRegistry(ctx)
	if err != nil {
		return nil, err
	}
	gen, err := reg.Get(cfg.Provider)
	if err != nil {
		return nil, err
	}

	opts := prospect.DefaultOptions()
	if layout, ok := mdtable.LayoutByName(cfg.Search.Layout); ok {
		opts.Layout = layout
	}
	opts.EnforceRadius = cfg.Search.EnforceRadius
	opts.RadiusTolerance = cfg.Search.RadiusTolerance
	opts.Temperature = cfg.Search.Temperature
	opts.MaxOutputTokens = cfg.Search.MaxOutputTokens
	opts.MinResponseChars = cfg.Search.MinResponseChars
	opts.QuotaRetryFallback = time.Duration(cfg.Cooldown.FallbackSecs) * time.Second
	opts.RequestsPerMinute = float64(cfg.Search.RequestsPerMinute)

	return prospect.NewSearcher(gen, providerKey(), opts), nil
}
