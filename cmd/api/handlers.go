package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stellarcompass/compass/pkg/auth"
	"github.com/stellarcompass/compass/pkg/config"
	"github.com/stellarcompass/compass/pkg/horizon"
	"github.com/stellarcompass/compass/pkg/logger"
	"github.com/stellarcompass/compass/pkg/metrics"
	"github.com/stellarcompass/compass/pkg/models"
	"github.com/stellarcompass/compass/pkg/opportunities"
	"github.com/stellarcompass/compass/pkg/redisclient"
	"github.com/stellarcompass/compass/pkg/validation"
	"go.uber.org/zap"
)

// Response represents a standard API response for the non-dashboard endpoints
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// portfolioService is the slice of the portfolio service the handlers use
type portfolioService interface {
	Fetch(ctx context.Context, address string) (models.Portfolio, error)
	Snapshot(ctx context.Context, address string) (models.Portfolio, error)
}

// Server holds the API dependencies
type Server struct {
	cfg       *config.Config
	redis     *redisclient.Client
	portfolio portfolioService
	auth      *auth.Service
}

func (s *Server) routes(r chi.Router) {
	r.Get("/api/health", s.healthHandler)
	r.Post("/api/wallet/connected", s.connectWalletHandler)
	r.Get("/api/portfolio/{address}", s.portfolioHandler)
	r.Get("/api/opportunities/{address}", s.opportunitiesHandler)
	r.Get("/api/allocation/{address}", s.allocationHandler)
	r.Get("/api/alerts/{address}", s.alertHistoryHandler)
	r.Get("/api/ws/alerts", s.wsAlertsHandler)

	if s.auth != nil {
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(s.auth.Middleware)
			r.Put("/settings", s.updateSettingsHandler)
			r.Post("/test-notification", s.testNotificationHandler)
		})
	}
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.Error("JSON encoding error", zap.Error(err))
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, Response{
		Success: false,
		Error:   message,
	})
}

// healthHandler returns server health status
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.redis.Ping(ctx); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"message": "Stellar Compass API degraded",
			"error":   "redis connection failed",
			"network": s.cfg.Network,
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Stellar Compass API running",
		"network":   s.cfg.Network,
		"timestamp": time.Now().Unix(),
	})
}

// connectWalletHandler registers a wallet address after strkey validation.
// Registration survives even when the alert emission fails.
func (s *Server) connectWalletHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Sanitize()
	if err := req.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid Stellar address")
		return
	}

	ctx := r.Context()
	if err := s.redis.SAdd(ctx, models.ConnectedWallets, req.PublicKey); err != nil {
		logger.Log.Error("wallet registration failed",
			zap.String("wallet", shortAddr(req.PublicKey)), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to register wallet")
		return
	}

	logger.Log.Info("wallet connected",
		zap.String("wallet", shortAddr(req.PublicKey)),
		zap.String("wallet_type", req.WalletType))

	s.emitAlert(ctx, models.NewAlert(
		models.AlertWalletConnected, models.PriorityLow, req.PublicKey,
		"Wallet connected",
		fmt.Sprintf("Wallet %s connected via %s", shortAddr(req.PublicKey), req.WalletType),
		""))

	s.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "wallet connected",
	})
}

// portfolioHandler returns the valued portfolio for an address
func (s *Server) portfolioHandler(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !validation.IsValidAddress(address) {
		s.writeError(w, http.StatusBadRequest, "invalid Stellar address")
		return
	}

	ctx := r.Context()
	p, err := s.portfolio.Fetch(ctx, address)
	if err != nil {
		if errors.Is(err, horizon.ErrAccountNotFound) {
			s.writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"error":      "account not found on the ledger",
				"public_key": address,
			})
			return
		}
		logger.Log.Error("portfolio fetch failed", zap.String("wallet", shortAddr(address)), zap.Error(err))
		s.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":      "failed to fetch portfolio from Horizon",
			"public_key": address,
		})
		return
	}

	s.emitAlert(ctx, models.NewAlert(
		models.AlertPortfolioSummary, models.PriorityLow, address,
		"Portfolio refreshed",
		fmt.Sprintf("Total value $%s across %d assets", p.TotalValue.StringFixed(2), len(p.Assets)),
		""))

	s.writeJSON(w, http.StatusOK, p)
}

// opportunitiesHandler returns yield opportunities matched to holdings,
// ordered by APY descending
func (s *Server) opportunitiesHandler(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !validation.IsValidAddress(address) {
		s.writeError(w, http.StatusBadRequest, "invalid Stellar address")
		return
	}

	ctx := r.Context()
	p, err := s.portfolio.Snapshot(ctx, address)
	if err != nil {
		metrics.OpportunityErrors.Inc()
		logger.Log.Error("opportunity lookup failed", zap.String("wallet", shortAddr(address)), zap.Error(err))
		s.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":      "failed to fetch portfolio from Horizon",
			"public_key": address,
		})
		return
	}

	opps := opportunities.Match(p, s.riskTolerance(ctx))
	if len(opps) > 0 {
		s.emitAlert(ctx, models.NewAlert(
			models.AlertOpportunities, models.PriorityMedium, address,
			fmt.Sprintf("%d opportunities found", len(opps)),
			fmt.Sprintf("Top APY %.1f%% on %s", opps[0].APY, opps[0].Protocol),
			opps[0].Action))
	}

	s.writeJSON(w, http.StatusOK, opps)
}

// allocationHandler suggests a portfolio split across risk tiers
func (s *Server) allocationHandler(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !validation.IsValidAddress(address) {
		s.writeError(w, http.StatusBadRequest, "invalid Stellar address")
		return
	}

	ctx := r.Context()
	p, err := s.portfolio.Snapshot(ctx, address)
	if err != nil {
		logger.Log.Error("allocation lookup failed", zap.String("wallet", shortAddr(address)), zap.Error(err))
		s.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":      "failed to fetch portfolio from Horizon",
			"public_key": address,
		})
		return
	}

	tolerance := s.riskTolerance(ctx)
	plan := opportunities.Optimize(p, opportunities.Match(p, tolerance), tolerance)
	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: plan})
}

// alertHistoryHandler returns the capped per-wallet alert history, newest first
func (s *Server) alertHistoryHandler(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !validation.IsValidAddress(address) {
		s.writeError(w, http.StatusBadRequest, "invalid Stellar address")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	entries, err := s.redis.Client().LRange(ctx, models.AlertHistoryKey(address), 0, models.AlertHistoryMax-1).Result()
	if err != nil {
		logger.Log.Error("alert history read failed", zap.String("wallet", shortAddr(address)), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to read alert history")
		return
	}

	alerts := make([]models.Alert, 0, len(entries))
	for _, entry := range entries {
		a, err := models.AlertFromJSON(entry)
		if err != nil {
			logger.Log.Warn("skipping malformed alert history entry", zap.Error(err))
			continue
		}
		alerts = append(alerts, a)
	}

	s.writeJSON(w, http.StatusOK, Response{Success: true, Data: alerts})
}

// updateSettingsHandler persists notification preferences
func (s *Server) updateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var settings models.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if settings.RiskTolerance != "" {
		switch settings.RiskTolerance {
		case "conservative", "moderate", "aggressive":
		default:
			s.writeError(w, http.StatusBadRequest, "invalid risk tolerance")
			return
		}
	}

	values := map[string]interface{}{}
	if settings.PhoneNumber != "" {
		values["phone_number"] = settings.PhoneNumber
	}
	if settings.RiskTolerance != "" {
		values["risk_tolerance"] = settings.RiskTolerance
	}
	if settings.EmailNotifications != nil {
		values["email_notifications"] = boolString(*settings.EmailNotifications)
	}
	if settings.SMSNotifications != nil {
		values["sms_notifications"] = boolString(*settings.SMSNotifications)
	}
	if settings.PushNotifications != nil {
		values["push_notifications"] = boolString(*settings.PushNotifications)
	}
	if len(values) == 0 {
		s.writeError(w, http.StatusBadRequest, "no settings provided")
		return
	}

	if err := s.redis.HSet(r.Context(), models.SettingsKey, values); err != nil {
		logger.Log.Error("settings update failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to persist settings")
		return
	}

	by := "unknown"
	if claims, ok := auth.FromContext(r.Context()); ok {
		by = claims.Subject
	}
	logger.Log.Info("settings updated", zap.String("by", by))
	s.writeJSON(w, http.StatusOK, Response{Success: true, Message: "settings updated"})
}

// testNotificationHandler pushes a test alert through the full pipeline
func (s *Server) testNotificationHandler(w http.ResponseWriter, r *http.Request) {
	a := models.NewAlert(models.AlertTest, models.PriorityHigh, "",
		"Test notification",
		"This is a test alert from Stellar Compass",
		"")
	s.emitAlert(r.Context(), a)
	s.writeJSON(w, http.StatusOK, Response{Success: true, Message: "test alert emitted", Data: a.ID})
}

// emitAlert pushes an alert onto the durable stream and the live channel.
// Best-effort: failures are logged, the caller's response is unaffected.
func (s *Server) emitAlert(ctx context.Context, a models.Alert) {
	if err := s.redis.AddToStream(ctx, models.AlertStream, a.ToMap()); err != nil {
		logger.Log.Warn("alert stream write failed", zap.String("type", a.Type), zap.Error(err))
		return
	}
	if payload, err := a.ToJSON(); err == nil {
		if err := s.redis.Publish(ctx, models.AlertChannel, payload); err != nil {
			logger.Log.Warn("alert publish failed", zap.String("type", a.Type), zap.Error(err))
		}
	}
	metrics.AlertsEmitted.WithLabelValues(a.Type, a.Priority).Inc()
}

// riskTolerance reads the user override from settings, falling back to config
func (s *Server) riskTolerance(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	settings, err := s.redis.HGetAll(ctx, models.SettingsKey).Result()
	if err == nil {
		switch settings["risk_tolerance"] {
		case "conservative", "moderate", "aggressive":
			return settings["risk_tolerance"]
		}
	}
	return s.cfg.RiskTolerance
}

func shortAddr(addr string) string {
	if len(addr) < 12 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
