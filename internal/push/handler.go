package push

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/duely/duely/internal/logger"
)

type Handler struct {
	service      Service
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewPushHandler(
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

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

func (h *Handler) HandleGetPublicKey(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"public_key": h.service.PublicKey()},
	})
}

func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		h.respondError(w, http.StatusBadRequest, "Endpoint and keys are required")
		return
	}

	if err := h.service.Subscribe(userID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth); err != nil {
		logger.Log.Errorf("Error subscribing to push notifications: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Push subscription registered successfully",
	})
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

func (h *Handler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Endpoint == "" {
		h.respondError(w, http.StatusBadRequest, "Endpoint is required")
		return
	}

	if err := h.service.Unsubscribe(userID, req.Endpoint); err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			h.respondError(w, http.StatusNotFound, "Push subscription not found")
			return
		}
		logger.Log.Errorf("Error unsubscribing from push notifications: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Push subscription removed successfully",
	})
}
