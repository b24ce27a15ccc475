package interfaces

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/duely/duely/internal/subscription/domain"
	subscriptionErrors "github.com/duely/duely/internal/subscription/errors"
)

type NotificationServiceInterface interface {
	GetUserNotifications(userID string, unreadOnly bool, limit, page int) ([]domain.Notification, error)
	CountUnread(userID string) (int, error)
	MarkRead(notificationID, userID string) error
	MarkAllRead(userID string) error
}

type NotificationHandler struct {
	service      NotificationServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewNotificationHandler(
	service NotificationServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *NotificationHandler {
	return &NotificationHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

func (h *NotificationHandler) GetUserNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"

	limit := 20
	page := 1
	var err error
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			h.respondError(w, http.StatusBadRequest, "Invalid limit value")
			return
		}
	}
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		page, err = strconv.Atoi(pageStr)
		if err != nil || page <= 0 {
			h.respondError(w, http.StatusBadRequest, "Invalid page value")
			return
		}
	}

	notifications, err := h.service.GetUserNotifications(userID, unreadOnly, limit, page)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve notifications")
		return
	}

	unreadCount, err := h.service.CountUnread(userID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve notifications")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data": map[string]interface{}{
			"notifications": notifications,
			"unread_count":  unreadCount,
		},
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.MarkRead(r.PathValue("id"), userID); err != nil {
		if errors.Is(err, subscriptionErrors.ErrNotificationNotFound) {
			h.respondError(w, http.StatusNotFound, "Notification not found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to mark notification as read")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"status": "success",
	})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.MarkAllRead(userID); err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to mark notifications as read")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"status": "success",
	})
}
