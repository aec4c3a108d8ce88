package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/cooldown"
	"github.com/sells-group/leadscout/internal/geo"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/prospect"
	"github.com/sells-group/leadscout/internal/store"
)

var (
	searchLocation string
	searchRadius   float64
	searchLat      float64
	searchLng      float64
	searchOffset   int
	searchNoSave   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <keyword> [keyword...]",
	Short: "Find local business leads for one or more keywords",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("search"); err != nil {
			return err
		}

		searcher, err := initSearcher(ctx)
		if err != nil {
			return err
		}

		var st store.Store
		if !searchNoSave {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
		}

		base := model.Query{
			Location:   searchLocation,
			RadiusKm:   searchRadius,
			RankOffset: searchOffset,
		}
		if base.RadiusKm <= 0 {
			base.RadiusKm = cfg.Search.DefaultRadiusKm
		}
		if base.RankOffset <= 0 {
			base.RankOffset = cfg.Search.RankOffset
		}

		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
			base.Coords = &model.Coords{Lat: searchLat, Lng: searchLng}
		} else if base.Location != "" {
			idx, err := geo.Load()
			if err != nil {
				return eris.Wrap(err, "load city index")
			}
			if city, ok := idx.Lookup(base.Location); ok {
				base.Coords = &model.Coords{Lat: city.Lat, Lng: city.Lng}
				zap.L().Debug("anchored search to known city",
					zap.String("city", city.Name),
					zap.String("region", city.Region),
				)
			}
		}
		if base.Location == "" && base.Coords == nil {
			return eris.New("either --location or both --lat and --lng are required")
		}

		results := model.NewLeadSet()
		retrier := cooldown.New()

		for _, keyword := range args {
			q := base
			q.Keyword = keyword

			leads, err := searchWithCooldown(ctx, searcher, retrier, q)
			if err != nil {
				if st != nil {
					recordFailure(ctx, st, q, err)
				}
				if prospect.KindOf(err) == prospect.KindContent {
					zap.L().Warn("no usable leads for keyword",
						zap.String("keyword", keyword),
						zap.Error(err),
					)
					continue
				}
				return err
			}

			added := results.Add(leads...)
			zap.L().Info("keyword search complete",
				zap.String("keyword", keyword),
				zap.Int("leads", len(leads)),
				zap.Int("new", added),
			)

			if st != nil {
				rec, err := st.CreateSearch(ctx, q)
				if err != nil {
					return eris.Wrap(err, "record search")
				}
				if err := st.CompleteSearch(ctx, rec.ID, leads); err != nil {
					return eris.Wrap(err, "save leads")
				}
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results.Leads())
	},
}

// searchWithCooldown runs one keyword search, waiting out quota cooldowns
// with a stderr countdown and retrying up to the configured limit.
func searchWithCooldown(ctx context.Context, searcher *prospect.Searcher, retrier *cooldown.Controller, q model.Query) ([]model.Lead, error) {
	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	spin.Suffix = fmt.Sprintf(" searching %q near %s...", q.Keyword, q.Location)

	for attempt := 0; ; attempt++ {
		spin.Start()
		start := time.Now()
		pulse := cooldown.NewPulse(10*time.Second, func() {
			zap.L().Debug("still waiting on model reply",
				zap.String("keyword", q.Keyword),
				zap.Duration("elapsed", time.Since(start).Round(time.Second)),
			)
		})
		leads, err := searcher.Search(ctx, q)
		pulse.Stop()
		spin.Stop()
		if err == nil {
			return leads, nil
		}

		var qe *prospect.QuotaError
		if !errors.As(err, &qe) || attempt >= cfg.Cooldown.MaxRetries {
			return nil, err
		}

		zap.L().Warn("quota exhausted, cooling down",
			zap.String("keyword", q.Keyword),
			zap.Duration("retry_after", qe.RetryAfter),
			zap.Int("attempt", attempt+1),
		)

		done := make(chan struct{})
		retrier.Schedule(qe.RetryAfter,
			func(remaining int) {
				fmt.Fprintf(os.Stderr, "\rquota exceeded, retrying in %ds ", remaining)
			},
			func() { close(done) },
		)

		select {
		case <-ctx.Done():
			retrier.Cancel()
			return nil, ctx.Err()
		case <-done:
			fmt.Fprint(os.Stderr, "\r")
		}
	}
}

func recordFailure(ctx context.Context, st store.Store, q model.Query, searchErr error) {
	rec, err := st.CreateSearch(ctx, q)
	if err != nil {
		zap.L().Warn("record failed search", zap.Error(err))
		return
	}
	if err := st.FailSearch(ctx, rec.ID, searchErr.Error()); err != nil {
		zap.L().Warn("mark search failed", zap.Error(err))
	}
}

func init() {
	searchCmd.Flags().StringVar(&searchLocation, "location", "", `search area, e.g. "Austin, TX"`)
	searchCmd.Flags().Float64Var(&searchRadius, "radius", 0, "search radius in km (default from config)")
	searchCmd.Flags().Float64Var(&searchLat, "lat", 0, "anchor latitude (overrides city lookup)")
	searchCmd.Flags().Float64Var(&searchLng, "lng", 0, "anchor longitude (overrides city lookup)")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "rank offset for paging past earlier results")
	searchCmd.Flags().BoolVar(&searchNoSave, "no-save", false, "skip persisting searches and leads")
	rootCmd.AddCommand(searchCmd)
}
