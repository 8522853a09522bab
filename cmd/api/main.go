// Package main implements the channelscope API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/channelscope/channelscope/engine/acoustic"
	"github.com/channelscope/channelscope/engine/analyzer"
	"github.com/channelscope/channelscope/engine/classify"
	"github.com/channelscope/channelscope/engine/export"
	"github.com/channelscope/channelscope/engine/store"
	"github.com/channelscope/channelscope/engine/youtube"
	"github.com/channelscope/channelscope/pkg/metrics"
	"github.com/channelscope/channelscope/pkg/mid"
	"github.com/channelscope/channelscope/pkg/natsutil"
)

const publishSubject = "channelscope.videos"

// Config holds all environment-based configuration.
type Config struct {
	Port        string
	APIKey      string
	AcousticURL string
	DBPath      string
	NATSURL     string
	CORSOrigin  string
}

func loadConfig() Config {
	return Config{
		Port:        envOr("PORT", "8080"),
		APIKey:      os.Getenv("YOUTUBE_API_KEY"),
		AcousticURL: envOr("ACOUSTIC_URL", "http://localhost:8000"),
		DBPath:      envOr("DB_PATH", "channelscope.db"),
		NATSURL:     os.Getenv("NATS_URL"),
		CORSOrigin:  envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL, nats.Timeout(5*time.Second))
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer nc.Drain()
	}

	reg := metrics.New()
	srv := newServer(cfg, db, nc, reg, logger)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // a full analysis can take a while
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutCtx)
}

// server bundles the handlers' shared dependencies.
type server struct {
	cfg    Config
	store  *store.Store
	nats   *nats.Conn
	reg    *metrics.Registry
	logger *slog.Logger
}

func newServer(cfg Config, st *store.Store, nc *nats.Conn, reg *metrics.Registry, logger *slog.Logger) *server {
	return &server{cfg: cfg, store: st, nats: nc, reg: reg, logger: logger}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/runs/latest", s.handleLatestRun)
	mux.HandleFunc("GET /api/runs/{id}/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /api/timezones", handleTimezones)
	mux.Handle("GET /metrics", s.reg.Handler())

	return mid.Chain(mux,
		mid.Recover(s.logger),
		mid.Logger(s.logger),
		mid.CORS(s.cfg.CORSOrigin),
		mid.OTel("channelscope-api"),
	)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleTimezones(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(analyzer.Timezones)
}

// AnalyzeRequest is the JSON body for POST /api/analyze. APIKey, when
// set, overrides the server's configured key for this request.
type AnalyzeRequest struct {
	analyzer.Request
	APIKey string `json:"api_key,omitempty"`
	Sort   string `json:"sort,omitempty"`
}

// AnalyzeResponse is the JSON response for POST /api/analyze.
type AnalyzeResponse struct {
	RunID  int64            `json:"run_id"`
	Report *analyzer.Report `json:"report"`
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Channel == "" {
		httpError(w, http.StatusBadRequest, "channel is required")
		return
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if req.Sort != "" && !analyzer.ValidSortKey(req.Sort) {
		httpError(w, http.StatusBadRequest, "unknown sort key")
		return
	}

	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = s.cfg.APIKey
	}
	client, err := youtube.New(r.Context(), apiKey, s.logger)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	var sidecar classify.AcousticAnalyzer
	if req.UseAcoustic {
		sidecar = acoustic.New(s.cfg.AcousticURL, s.logger)
	}
	classifier := classify.New(classify.Options{Acoustic: sidecar, Logger: s.logger})

	svc := analyzer.NewService(client, classifier, s.logger, s.reg)
	req.Request.Channel = youtube.ExtractHint(req.Request.Channel)
	report, err := svc.Run(r.Context(), req.Request)
	switch {
	case errors.Is(err, youtube.ErrChannelNotFound):
		httpError(w, http.StatusNotFound, "channel not found")
		return
	case errors.Is(err, youtube.ErrQuotaExhausted):
		httpError(w, http.StatusTooManyRequests, "youtube API quota exhausted")
		return
	case err != nil:
		s.logger.Error("analysis failed", "channel", req.Channel, "err", err)
		httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	runID, err := s.store.SaveReport(r.Context(), report)
	if err != nil {
		s.logger.Error("save report failed", "err", err)
		httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if s.nats != nil {
		for _, v := range report.Videos {
			if err := natsutil.Publish(r.Context(), s.nats, publishSubject, v); err != nil {
				s.logger.Warn("publish failed", "video_id", v.ID, "err", err)
				break
			}
		}
	}

	if req.Sort != "" {
		report.Videos = analyzer.SortVideos(report.Videos, req.Sort)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AnalyzeResponse{RunID: runID, Report: report})
}

func (s *server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.LatestReport(r.Context())
	if errors.Is(err, store.ErrNoRuns) {
		httpError(w, http.StatusNotFound, "no runs stored")
		return
	}
	if err != nil {
		s.logger.Error("load latest run failed", "err", err)
		httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

func (s *server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	report, err := s.store.Report(r.Context(), id)
	if errors.Is(err, store.ErrNoRuns) {
		httpError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("load run failed", "run_id", id, "err", err)
		httpError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	videos := report.Videos
	if key := r.URL.Query().Get("sort"); key != "" {
		if !analyzer.ValidSortKey(key) {
			httpError(w, http.StatusBadRequest, "unknown sort key")
			return
		}
		videos = analyzer.SortVideos(videos, key)
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.Filename(report.Channel.Title, time.Now())))
	if err := export.WriteCSV(w, videos); err != nil {
		s.logger.Error("csv export failed", "run_id", id, "err", err)
	}
}

func httpError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
