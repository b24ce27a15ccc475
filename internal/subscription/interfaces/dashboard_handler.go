package interfaces

import (
	"net/http"
	"time"

	"github.com/duely/duely/internal/subscription/application"
	"github.com/duely/duely/internal/user"
)

type DashboardServiceInterface interface {
	GetDashboardSummary(userID string, now time.Time, leadDays int) (*application.DashboardSummary, error)
}

type SettingsProviderInterface interface {
	GetSettings(userID string) (*user.Settings, error)
}

type DashboardHandler struct {
	service      DashboardServiceInterface
	settings     SettingsProviderInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewDashboardHandler(
	service DashboardServiceInterface,
	settings SettingsProviderInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		settings:     settings,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

func (h *DashboardHandler) GetDashboardSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	settings, err := h.settings.GetSettings(userID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve settings")
		return
	}

	summary, err := h.service.GetDashboardSummary(userID, time.Now().UTC(), settings.ReminderLeadDays)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve dashboard summary")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}
