// File: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/token-sentinel/internal/config"
	"github.com/smartdevs17/token-sentinel/internal/metrics"
	"github.com/smartdevs17/token-sentinel/internal/models"
	"github.com/smartdevs17/token-sentinel/internal/scanner"
	"github.com/smartdevs17/token-sentinel/internal/storage"
	"github.com/smartdevs17/token-sentinel/internal/tracker"
	"github.com/smartdevs17/token-sentinel/pkg/utils"
)

const defaultListLimit = 50

// HTTPServer exposes the read-only API over the pipelines and storage, plus
// runtime watch-list management.
type HTTPServer struct {
	config         *config.ServerConfig
	server         *http.Server
	router         *mux.Router
	store          storage.Store
	scanner        *scanner.TokenScanner
	tracker        *tracker.WalletTracker
	metricsManager *metrics.Manager
	logger         *logrus.Logger
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(
	cfg *config.ServerConfig,
	store storage.Store,
	tokenScanner *scanner.TokenScanner,
	walletTracker *tracker.WalletTracker,
	metricsManager *metrics.Manager,
) *HTTPServer {
	s := &HTTPServer{
		config:         cfg,
		store:          store,
		scanner:        tokenScanner,
		tracker:        walletTracker,
		metricsManager: metricsManager,
		logger:         utils.GetLogger(),
	}

	s.setupRouter()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	s.router.Use(s.loggingMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()

	if s.config.EnableHealth {
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
	}

	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler())
	}

	api.HandleFunc("/status", s.statusHandler).Methods("GET")

	// Token endpoints
	api.HandleFunc("/tokens", s.listTokensHandler).Methods("GET")
	api.HandleFunc("/tokens/scores", s.listScoresHandler).Methods("GET")
	api.HandleFunc("/tokens/{address}", s.getTokenHandler).Methods("GET")

	// Wallet endpoints
	api.HandleFunc("/wallets", s.listWalletsHandler).Methods("GET")
	api.HandleFunc("/wallets", s.addWalletHandler).Methods("POST")
	api.HandleFunc("/wallets/{address}", s.getWalletHandler).Methods("GET")
	api.HandleFunc("/wallets/{address}", s.removeWalletHandler).Methods("DELETE")
	api.HandleFunc("/wallets/{address}/trades", s.getWalletTradesHandler).Methods("GET")
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	if s.metricsManager != nil {
		s.metricsManager.UpdateSystemMetrics()
		go s.systemMetricsUpdater()
	}

	errChan := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server error")
			errChan <- err
		}
	}()

	// Catch immediate binding errors before declaring the server up.
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// systemMetricsUpdater updates system metrics periodically
func (s *HTTPServer) systemMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.metricsManager.UpdateSystemMetrics()
	}
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.WithFields(logrus.Fields{
			"method":    r.Method,
			"path":      r.URL.Path,
			"duration":  time.Since(start),
			"remote_ip": r.RemoteAddr,
		}).Debug("HTTP request")
	})
}

// Handlers

func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"scanner":   s.scanner.IsRunning(),
		"tracker":   s.tracker.IsRunning(),
	}

	if err := s.store.Ping(); err != nil {
		health["status"] = "degraded"
		health["storage_error"] = err.Error()
		s.respondJSON(w, http.StatusServiceUnavailable, health)
		return
	}

	s.respondJSON(w, http.StatusOK, health)
}

func (s *HTTPServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	storageStats, err := s.store.GetStorageStats(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "Failed to read storage stats", err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"scanner": s.scanner.GetStats(),
		"tracker": s.tracker.GetStats(),
		"storage": storageStats,
	})
}

func (s *HTTPServer) listTokensHandler(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.store.GetTokenCandidates(r.Context(), queryLimit(r))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "Failed to list tokens", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": candidates,
		"count":  len(candidates),
	})
}

func (s *HTTPServer) listScoresHandler(w http.ResponseWriter, r *http.Request) {
	tier := models.RiskTier(r.URL.Query().Get("tier"))

	scores, err := s.store.GetTokenScores(r.Context(), tier, queryLimit(r))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "Failed to list scores", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"scores": scores,
		"count":  len(scores),
	})
}

func (s *HTTPServer) getTokenHandler(w http.ResponseWriter, r *http.Request) {
	address, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	candidate, err := s.store.GetTokenCandidate(r.Context(), address)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "Failed to load token", err)
		return
	}
	if candidate == nil {
		s.respondError(w, http.StatusNotFound, "Token not found", nil)
		return
	}

	score, err := s.store.GetTokenScore(r.Context(), address)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "Failed to load token score", err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": candidate,
		"score": score,
	})
}

func (s *HTTPServer) listWalletsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetAllWalletStats(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "Failed to list wallets", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"wallets": stats,
		"watched": s.tracker.Watched(),
		"count":   len(stats),
	})
}

func (s *HTTPServer) addWalletHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address      string `json:"address"`
		Label        string `json:"label"`
		CopyTrade    bool   `json:"copy_trade"`
		AlertOnTrade bool   `json:"alert_on_trade"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !common.IsHexAddress(req.Address) {
		s.respondError(w, http.StatusBadRequest, "Invalid wallet address", nil)
		return
	}

	entry := models.WalletWatchEntry{
		Address:      common.HexToAddress(req.Address),
		Label:        req.Label,
		CopyTrade:    req.CopyTrade,
		AlertOnTrade: req.AlertOnTrade,
	}
	s.tracker.Watch(entry)

	s.respondJSON(w, http.StatusCreated, entry)
}

func (s *HTTPServer) getWalletHandler(w http.ResponseWriter, r *http.Request) {
	address, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	s.respondJSON(w, http.StatusOK, s.tracker.StatsOf(address))
}

func (s *HTTPServer) removeWalletHandler(w http.ResponseWriter, r *http.Request) {
	address, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	s.tracker.Unwatch(address)
	s.respondJSON(w, http.StatusOK, map[string]string{"removed": address.Hex()})
}

func (s *HTTPServer) getWalletTradesHandler(w http.ResponseWriter, r *http.Request) {
	address, ok := s.pathAddress(w, r)
	if !ok {
		return
	}

	trades, err := s.store.GetTrades(r.Context(), address, queryLimit(r))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "Failed to list trades", err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"trades":    trades,
		"positions": s.tracker.Ledger().TokenPnLOf(address),
		"count":     len(trades),
	})
}

// Helpers

func (s *HTTPServer) pathAddress(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	raw := mux.Vars(r)["address"]
	if !common.IsHexAddress(raw) {
		s.respondError(w, http.StatusBadRequest, "Invalid address", nil)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

func queryLimit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 && limit <= 500 {
			return limit
		}
	}
	return defaultListLimit
}

func (s *HTTPServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *HTTPServer) respondError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]interface{}{"error": message}
	if err != nil {
		body["details"] = err.Error()
	}
	s.respondJSON(w, status, body)
}
