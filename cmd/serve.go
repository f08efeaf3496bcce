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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kondohub/kondo-scraper/internal/scraper"
)

var servePort int

// listingScraper is the part of *scraper.Scraper the HTTP API uses.
type listingScraper interface {
	ScrapeListing(ctx context.Context, id int64, opts scraper.Options) (*scraper.Result, error)
	Batch(ctx context.Context, ids []int64, opts scraper.Options) scraper.BatchSummary
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for on-demand scrapes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		handler := buildRouter(ctx, apiDeps{
			Scraper:   env.Scraper,
			Engines:   env.Registry.Names(),
			Gatherer:  env.Metrics,
			Providers: env.Chain.ProviderStates,
		})
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// apiDeps are the collaborators behind the HTTP API. Nil Gatherer and
// Providers leave /metrics unrouted and /health without provider states.
type apiDeps struct {
	Scraper   listingScraper
	Engines   []string
	Gatherer  prometheus.Gatherer
	Providers func() map[string]string
}

type batchRequest struct {
	IDs []int64 `json:"ids"`
	scraper.Options
}

// buildRouter wires the HTTP API. Batch runs outlive their request and use
// ctx, the server's lifetime context.
func buildRouter(ctx context.Context, deps apiDeps) http.Handler {
	sc := deps.Scraper
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{"status": "ok"}
		if deps.Providers != nil {
			body["providers"] = deps.Providers()
		}
		writeJSON(w, http.StatusOK, body)
	})

	r.Get("/engines", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{"engines": deps.Engines})
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/listings/{id}/scrape", func(w http.ResponseWriter, req *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, "invalid listing id")
			return
		}

		var opts scraper.Options
		if req.ContentLength != 0 {
			if err := json.NewDecoder(req.Body).Decode(&opts); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		res, err := sc.ScrapeListing(req.Context(), id, opts)
		switch {
		case errors.Is(err, scraper.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, scraper.ErrInvalidInput):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case err != nil:
			zap.L().Error("scrape request failed", zap.Int64("listing_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "scrape failed")
		default:
			writeJSON(w, http.StatusOK, res)
		}
	})

	r.Post("/batch", func(w http.ResponseWriter, req *http.Request) {
		var body batchRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(body.IDs) == 0 {
			writeError(w, http.StatusBadRequest, "ids is required")
			return
		}

		go func() {
			sum := sc.Batch(ctx, body.IDs, body.Options)
			zap.L().Info("batch request complete",
				zap.Int("total", sum.Total),
				zap.Int("succeeded", sum.Succeeded),
				zap.Int("failed", sum.Failed),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]any{
			"status":   "accepted",
			"listings": len(body.IDs),
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
