package admin

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/duely/duely/internal/logger"
)

type Handler struct {
	service      Service
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewAdminHandler(
	service Service,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *Handler {
	if respondJSON == nil || respondError == nil {
		log.Fatal("respondJSON and respondError handlers are required")
	}
	return &Handler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	userPage, err := h.service.ListUsers(limit, page)
	if err != nil {
		logger.Log.Errorf("Error listing users: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   userPage,
	})
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

func (h *Handler) HandleSetUserActive(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		h.respondError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		h.respondError(w, http.StatusBadRequest, "Field 'active' is required")
		return
	}

	if err := h.service.SetUserActive(userID, *req.Active); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			h.respondError(w, http.StatusNotFound, "User not found")
			return
		}
		logger.Log.Errorf("Error updating user active flag: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "User updated successfully",
	})
}

func (h *Handler) HandleSystemHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   h.service.SystemHealth(),
	})
}

func (h *Handler) HandleTriggerNotificationRun(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.TriggerNotificationRun(r.Context())
	if err != nil {
		logger.Log.Errorf("Manual notification run failed: %v", err)
		h.respondError(w, http.StatusServiceUnavailable, "Notification store unreachable")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   summary,
	})
}
