package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"pool-watch/internal/alert"
	"pool-watch/internal/logger"
	"pool-watch/internal/metrics"
	"pool-watch/internal/sysinfo"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// History 表示告警流水的只读查询
type History interface {
	Recent(ctx context.Context, limit int) ([]alert.Decision, error)
}

// Deps 表示状态接口依赖的只读数据源
type Deps struct {
	Metrics *metrics.Collector
	Alerts  *alert.State
	History History // 为 nil 时流水接口返回 404
	Host    sysinfo.HostSummary
	Logger  *logger.Logger
}

// Server wraps the read-only status API server.
type Server struct {
	httpServer *http.Server
	log        *logger.Logger
}

type handler struct {
	deps Deps
}

// NewServer builds the HTTP server for status and metrics consumption.
func NewServer(bind string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	srv := &http.Server{
		Addr:         bind,
		Handler:      NewRouter(deps),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return &Server{httpServer: srv, log: deps.Logger}
}

// NewRouter 注册全部只读路由
func NewRouter(deps Deps) http.Handler {
	h := &handler{deps: deps}
	router := mux.NewRouter()
	router.HandleFunc("/api/health", h.health).Methods(http.MethodGet)
	router.HandleFunc("/api/stats", h.stats).Methods(http.MethodGet)
	router.HandleFunc("/api/alerts", h.alerts).Methods(http.MethodGet)
	router.HandleFunc("/api/alerts/history", h.alertHistory).Methods(http.MethodGet)
	router.HandleFunc("/api/host", h.host).Methods(http.MethodGet)
	router.HandleFunc("/metrics", h.prometheusMetrics).Methods(http.MethodGet)
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	})
	return withCORS(router)
}

// Start boots the API server asynchronously.
func (s *Server) Start() {
	go func() {
		s.log.Info("API 服务监听 %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("API 服务异常退出: %v", err)
		}
	}()
}

// Shutdown gracefully stops the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  h.deps.Metrics.State(),
	})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Metrics.Snapshot())
}

func (h *handler) alerts(w http.ResponseWriter, r *http.Request) {
	if h.deps.Alerts == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "alert state not ready"})
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Alerts.Dashboard())
}

func (h *handler) alertHistory(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "alert history disabled"})
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	decisions, err := h.deps.History.Recent(r.Context(), limit)
	if err != nil {
		h.deps.Logger.Error("查询告警流水失败: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "query alert history failed"})
		return
	}
	if decisions == nil {
		decisions = []alert.Decision{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": decisions,
		"limit": limit,
	})
}

func (h *handler) host(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Host)
}

func (h *handler) prometheusMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.deps.Metrics.RenderPrometheus()))
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
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
