package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/askwall/internal/apperror"
	"github.com/sakif/askwall/internal/auth"
	"github.com/sakif/askwall/internal/service"
)

// AdminHandler serves the analytics dashboard. Admin status is a
// configured uid allowlist, checked here per request — there is no role
// field on profiles to keep in sync.
type AdminHandler struct {
	analytics *service.AnalyticsService
	isAdmin   func(uid string) bool
	logger    *slog.Logger
}

func NewAdminHandler(analytics *service.AnalyticsService, isAdmin func(uid string) bool, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{analytics: analytics, isAdmin: isAdmin, logger: logger}
}

// HandleAnalytics computes the dashboard payload for a time range.
//
// HTTP: GET /api/admin/analytics?range=7d  (24h|7d|30d|all, default 7d)
func (h *AdminHandler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if !h.isAdmin(uid) {
		h.logger.Warn("non-admin analytics request", slog.String("uid", uid))
		writeError(w, apperror.Forbidden("admin access required"))
		return
	}

	rng := service.TimeRange(r.URL.Query().Get("range"))
	if rng == "" {
		rng = service.Range7d
	}

	result, err := h.analytics.AdminAnalytics(r.Context(), rng, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
