package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/trogers1052/satoshi-dashboard/internal/alpaca"
	"github.com/trogers1052/satoshi-dashboard/internal/botstatus"
	"github.com/trogers1052/satoshi-dashboard/internal/dashboard"
	"github.com/trogers1052/satoshi-dashboard/internal/logging"
	"github.com/trogers1052/satoshi-dashboard/internal/models"
	"github.com/trogers1052/satoshi-dashboard/internal/presenter"
	"go.uber.org/zap"
)

// MaxHistoryCount bounds the history query parameter
const MaxHistoryCount = 100

// MaxCommentBody bounds the POST /api/openai request body
const MaxCommentBody = 1 << 20

// Pinger is a dependency the health check pings
type Pinger interface {
	Ping(ctx context.Context) error
}

// SnapshotSource provides the composed dashboard view
type SnapshotSource interface {
	Snapshot() dashboard.Snapshot
}

// Deps holds the handler dependencies. Nil members disable the routes that
// need them.
type Deps struct {
	Brokerage   dashboard.Brokerage
	Status      dashboard.StatusSource
	Commentator dashboard.Commentator
	Price       dashboard.PriceSource
	Dashboard   SnapshotSource

	Database     Pinger
	Redis        Pinger
	KafkaEnabled bool
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	deps     Deps
	location *time.Location
	logger   *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(deps Deps, location *time.Location, logger *zap.Logger) *Handler {
	if location == nil {
		location = time.Local
	}
	return &Handler{
		deps:     deps,
		location: location,
		logger:   logging.OrNop(logger),
	}
}

// GetAccount handles GET /api/alpaca/account
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	if h.deps.Brokerage == nil {
		respondError(w, http.StatusServiceUnavailable, "Brokerage is not configured")
		return
	}

	account, err := h.deps.Brokerage.FetchAccount(r.Context())
	if err != nil {
		h.logger.Warn("Failed to fetch account", zap.Error(err))
		respondError(w, brokerageStatus(err), alpaca.Describe(err, "Failed to fetch account information"))
		return
	}

	respondJSON(w, http.StatusOK, account)
}

// GetPositions handles GET /api/alpaca/positions
func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	if h.deps.Brokerage == nil {
		respondError(w, http.StatusServiceUnavailable, "Brokerage is not configured")
		return
	}

	positions, err := h.deps.Brokerage.FetchPositions(r.Context())
	if err != nil {
		h.logger.Warn("Failed to fetch positions", zap.Error(err))
		respondError(w, brokerageStatus(err), alpaca.Describe(err, "Failed to fetch positions"))
		return
	}
	if positions == nil {
		positions = []models.Position{}
	}

	respondJSON(w, http.StatusOK, positions)
}

// CreateComment handles POST /api/openai. Generation failures answer with
// the fallback line, so only a missing or unreadable status is an error.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BotStatus *models.BotStatusData `json:"botStatus"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxCommentBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BotStatus == nil {
		respondError(w, http.StatusBadRequest, "No bot status provided")
		return
	}
	if h.deps.Commentator == nil {
		respondError(w, http.StatusServiceUnavailable, "Commentary is not configured")
		return
	}

	comment := h.deps.Commentator.RequestComment(r.Context(), req.BotStatus)
	respondJSON(w, http.StatusOK, map[string]string{"comment": comment})
}

// GetBotStatus handles GET /api/bot/status
func (h *Handler) GetBotStatus(w http.ResponseWriter, r *http.Request) {
	if h.deps.Status == nil {
		respondError(w, http.StatusServiceUnavailable, "Bot status store is not configured")
		return
	}

	latest := h.deps.Status.FetchLatest(r.Context())
	if latest == nil {
		respondError(w, http.StatusNotFound, presenter.NoStatusMessage)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": latest,
		"view":   presenter.BuildStatusView(latest, time.Now(), h.location),
	})
}

// GetBotHistory handles GET /api/bot/history?count=N
func (h *Handler) GetBotHistory(w http.ResponseWriter, r *http.Request) {
	if h.deps.Status == nil {
		respondError(w, http.StatusServiceUnavailable, "Bot status store is not configured")
		return
	}

	count := botstatus.HistoryCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxHistoryCount {
			respondError(w, http.StatusBadRequest, "count must be between 1 and "+strconv.Itoa(MaxHistoryCount))
			return
		}
		count = n
	}

	statuses := h.deps.Status.FetchRecent(r.Context(), count)
	rows := presenter.BuildHistoryRows(statuses, time.Now(), h.location)

	resp := map[string]interface{}{"history": rows}
	if len(rows) == 0 {
		resp["message"] = presenter.NoHistoryMessage
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetPrice handles GET /api/price
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	if h.deps.Price == nil {
		respondError(w, http.StatusServiceUnavailable, "Price ticker is not configured")
		return
	}

	price, err := h.deps.Price.FetchBitcoinPrice(r.Context())
	if err != nil {
		h.logger.Warn("Failed to fetch Bitcoin price", zap.Error(err))
		respondError(w, http.StatusBadGateway, "Failed to fetch Bitcoin price")
		return
	}
	if price == nil {
		respondError(w, http.StatusNotFound, "No Bitcoin price available")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"price": price,
		"view":  presenter.BuildPriceView(price),
	})
}

// GetDashboard handles GET /api/dashboard
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	if h.deps.Dashboard == nil {
		respondError(w, http.StatusServiceUnavailable, "Dashboard is not running")
		return
	}
	respondJSON(w, http.StatusOK, h.deps.Dashboard.Snapshot())
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  map[string]string{},
	}
	services := health["services"].(map[string]string)
	allHealthy := true

	// Check database
	if h.deps.Database != nil {
		if err := h.deps.Database.Ping(ctx); err != nil {
			services["postgres"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			services["postgres"] = "healthy"
		}
	} else {
		services["postgres"] = "not configured"
		allHealthy = false
	}

	// Check Redis
	if h.deps.Redis != nil {
		if err := h.deps.Redis.Ping(ctx); err != nil {
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = "healthy"
		}
	} else {
		services["redis"] = "not configured"
	}

	if h.deps.KafkaEnabled {
		services["kafka"] = "configured"
	} else {
		services["kafka"] = "not configured"
	}

	if !allHealthy {
		health["status"] = "degraded"
	}

	respondJSON(w, http.StatusOK, health)
}

// brokerageStatus maps a brokerage failure onto the response status
func brokerageStatus(err error) int {
	var apiErr *alpaca.APIError
	switch {
	case errors.Is(err, alpaca.ErrMissingCredentials):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400:
		return apiErr.StatusCode
	case errors.Is(err, alpaca.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
