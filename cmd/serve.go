package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/prospect"
	"github.com/sells-group/leadscout/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for browser clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		searcher, err := initSearcher(ctx)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		api := &apiServer{
			searcher: searcher,
			store:    st,
			results:  model.NewLeadSet(),
		}

		r := buildRouter(api)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown. ctx is already cancelled here, so the drain
		// needs its own deadline.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			sdCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(sdCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func buildRouter(api *apiServer) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", api.handleHealth)
	r.Post("/api/search", api.handleSearch)
	r.Get("/api/leads", api.handleLeads)
	r.Delete("/api/leads", api.handleClearLeads)
	r.Get("/api/searches", api.handleSearches)

	return r
}

type apiServer struct {
	searcher *prospect.Searcher
	store    store.Store

	// results accumulates deduplicated leads across searches for the
	// session, mirroring what a browser client displays.
	results *model.LeadSet
}

type searchRequest struct {
	Keyword  string   `json:"keyword"`
	Keywords []string `json:"keywords"`
	Location string   `json:"location"`
	RadiusKm float64  `json:"radius_km"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Offset   int      `json:"offset"`
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	keywords := req.Keywords
	if req.Keyword != "" {
		keywords = append([]string{req.Keyword}, keywords...)
	}
	if len(keywords) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "keyword is required"})
		return
	}

	q := model.Query{
		Location:   req.Location,
		RadiusKm:   req.RadiusKm,
		RankOffset: req.Offset,
	}
	if q.RadiusKm <= 0 {
		q.RadiusKm = cfg.Search.DefaultRadiusKm
	}
	if q.RankOffset <= 0 {
		q.RankOffset = cfg.Search.RankOffset
	}
	if req.Lat != nil && req.Lng != nil {
		q.Coords = &model.Coords{Lat: *req.Lat, Lng: *req.Lng}
	}
	if q.Location == "" && q.Coords == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "location or lat/lng is required"})
		return
	}

	leads, err := s.searcher.SearchAll(r.Context(), q, keywords, cfg.Search.Concurrency)
	if err != nil {
		fq := q
		fq.Keyword = keywords[0]
		s.writeSearchError(w, fq, err)
		return
	}

	for _, keyword := range keywords {
		kq := q
		kq.Keyword = keyword
		s.recordSearch(r, kq, leadsForKeyword(leads, keyword))
	}
	s.results.Add(leads...)

	writeJSON(w, http.StatusOK, map[string]any{
		"leads": leads,
		"count": len(leads),
		"total": s.results.Len(),
	})
}

// writeSearchError maps the error taxonomy onto HTTP statuses: quota
// exhaustion asks the client to retry later, credential problems are the
// operator's fault, empty replies are not-found, everything else is an
// upstream failure.
func (s *apiServer) writeSearchError(w http.ResponseWriter, q model.Query, err error) {
	go s.recordFailure(q, err)

	var qe *prospect.QuotaError
	if errors.As(err, &qe) {
		w.Header().Set("Retry-After", strconv.Itoa(int(qe.RetryAfter.Seconds())))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":               "api quota exhausted",
			"retry_after_seconds": int(qe.RetryAfter.Seconds()),
		})
		return
	}

	switch prospect.KindOf(err) {
	case prospect.KindConfig:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	case prospect.KindContent:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		zap.L().Error("search failed", zap.String("keyword", q.Keyword), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream model request failed"})
	}
}

func (s *apiServer) handleLeads(w http.ResponseWriter, r *http.Request) {
	if keyword := r.URL.Query().Get("keyword"); keyword != "" {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		leads, err := s.store.LeadsByKeyword(r.Context(), keyword, limit)
		if err != nil {
			zap.L().Error("list leads", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lead lookup failed"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"leads": leads, "count": len(leads)})
		return
	}

	leads := s.results.Leads()
	writeJSON(w, http.StatusOK, map[string]any{"leads": leads, "count": len(leads)})
}

func (s *apiServer) handleClearLeads(w http.ResponseWriter, r *http.Request) {
	s.results.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *apiServer) handleSearches(w http.ResponseWriter, r *http.Request) {
	filter := store.SearchFilter{
		Keyword: r.URL.Query().Get("keyword"),
		Status:  store.SearchStatus(r.URL.Query().Get("status")),
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	recs, err := s.store.ListSearches(r.Context(), filter)
	if err != nil {
		zap.L().Error("list searches", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "search history lookup failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"searches": recs, "count": len(recs)})
}

func (s *apiServer) recordSearch(r *http.Request, q model.Query, leads []model.Lead) {
	rec, err := s.store.CreateSearch(r.Context(), q)
	if err != nil {
		zap.L().Warn("record search", zap.Error(err))
		return
	}
	if err := s.store.CompleteSearch(r.Context(), rec.ID, leads); err != nil {
		zap.L().Warn("save leads", zap.Error(err))
	}
}

func (s *apiServer) recordFailure(q model.Query, err error) {
	ctx := context.Background()
	rec, createErr := s.store.CreateSearch(ctx, q)
	if createErr != nil {
		zap.L().Warn("record failed search", zap.Error(createErr))
		return
	}
	if failErr := s.store.FailSearch(ctx, rec.ID, err.Error()); failErr != nil {
		zap.L().Warn("mark search failed", zap.Error(failErr))
	}
}

func leadsForKeyword(leads []model.Lead, keyword string) []model.Lead {
	var out []model.Lead
	for _, l := range leads {
		if l.Keyword == keyword {
			out = append(out, l)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
