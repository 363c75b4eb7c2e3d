package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"flood-watch/internal/flood"
	"flood-watch/internal/logger"
	"flood-watch/internal/metrics"
	"flood-watch/internal/models"
	"flood-watch/internal/store"
	"flood-watch/internal/sysinfo"
)

// Archiver 告警归档接口 未配置对象存储时为 nil
type Archiver interface {
	ArchiveAlerts(ctx context.Context, records []models.AlertRecord) (string, error)
}

// Server wraps the HTTP API server.
type Server struct {
	httpServer *http.Server
}

type handler struct {
	cfg        *models.Config
	state      *flood.State
	alertStore *store.AlertStore
	collector  *metrics.Collector
	hostInfo   *sysinfo.Collector
	archiver   Archiver
	startedAt  time.Time
}

// Options 控制台服务依赖
type Options struct {
	Config     *models.Config
	State      *flood.State
	AlertStore *store.AlertStore
	Collector  *metrics.Collector
	HostInfo   *sysinfo.Collector
	Archiver   Archiver
}

// NewServer builds the HTTP server for console/API consumption.
func NewServer(opts Options) *Server {
	h := &handler{
		cfg:        opts.Config,
		state:      opts.State,
		alertStore: opts.AlertStore,
		collector:  opts.Collector,
		hostInfo:   opts.HostInfo,
		archiver:   opts.Archiver,
		startedAt:  time.Now(),
	}
	if h.collector == nil {
		h.collector = metrics.Global()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/dashboard", h.dashboard)
	mux.HandleFunc("/api/alerts", h.alerts)
	mux.HandleFunc("/api/archive", h.archive)
	mux.HandleFunc("/api/health", h.health)
	mux.HandleFunc("/metrics", h.metrics)

	srv := &http.Server{
		Addr:         opts.Config.APIBind,
		Handler:      withCORS(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return &Server{httpServer: srv}
}

// Start boots the API server asynchronously.
func (s *Server) Start() {
	go func() {
		logger.Info("API 服务监听 %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("API 服务异常退出: %v", err)
		}
	}()
}

// Shutdown gracefully stops the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if h.state == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "runtime state not ready"})
		return
	}
	writeJSON(w, http.StatusOK, h.state.Dashboard())
}

func (h *handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if h.alertStore == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "alerts": []models.AlertRecord{}})
		return
	}
	limit := h.cfg.AlertHistoryRows
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	records, err := h.alertStore.RecentAlerts(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"count":  len(records),
		"alerts": records,
	})
}

func (h *handler) archive(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if h.archiver == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "对象存储未配置"})
		return
	}
	if h.alertStore == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "告警存储未初始化"})
		return
	}
	var req struct {
		Limit int `json:"limit"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = h.cfg.AlertHistoryRows
	}
	records, err := h.alertStore.RecentAlerts(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	url, err := h.archiver.ArchiveAlerts(r.Context(), records)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"count": len(records),
		"url":   url,
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	payload := map[string]any{
		"ok":     true,
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	}
	if h.hostInfo != nil {
		payload["host"] = h.hostInfo.Snapshot()
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *handler) metrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.collector.RenderPrometheus()))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
