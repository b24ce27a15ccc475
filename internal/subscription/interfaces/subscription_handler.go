package interfaces

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/duely/duely/internal/logger"
	"github.com/duely/duely/internal/subscription/domain"
	subscriptionErrors "github.com/duely/duely/internal/subscription/errors"
)

type SubscriptionServiceInterface interface {
	CreateSubscription(subscription *domain.Subscription) error
	GetUserSubscriptions(userID string) ([]domain.Subscription, error)
	GetSubscription(subscriptionID, userID string) (*domain.Subscription, error)
	UpdateSubscription(subscription *domain.Subscription) error
	DeleteSubscription(subscriptionID, userID string) error
	RenewSubscription(subscriptionID, userID string) (*domain.Subscription, error)
}

type SubscriptionHandler struct {
	service      SubscriptionServiceInterface
	respondJSON  func(w http.ResponseWriter, status int, payload interface{})
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string)
}

func NewSubscriptionHandler(
	service SubscriptionServiceInterface,
	respondJSON func(w http.ResponseWriter, status int, payload interface{}),
	respondError func(w http.ResponseWriter, status int, message string, errors ...[]string),
) *SubscriptionHandler {
	if service == nil {
		log.Fatal("Service must not be nil")
		return nil
	}
	if respondJSON == nil {
		log.Fatal("RespondJSON function must not be nil")
		return nil
	}
	if respondError == nil {
		log.Fatal("RespondError function must not be nil")
		return nil
	}
	return &SubscriptionHandler{
		service:      service,
		respondJSON:  respondJSON,
		respondError: respondError,
	}
}

type subscriptionRequest struct {
	CategoryID  *string `json:"category_id"`
	Name        string  `json:"name"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Frequency   string  `json:"frequency"`
	NextBilling string  `json:"next_billing"`
	Status      string  `json:"status"`
	Notes       string  `json:"notes"`
}

func (req *subscriptionRequest) toDomain(userID string) (*domain.Subscription, error) {
	nextBilling, err := time.Parse("2006-01-02", req.NextBilling)
	if err != nil {
		return nil, err
	}
	return &domain.Subscription{
		UserID:      userID,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Frequency:   req.Frequency,
		NextBilling: nextBilling,
		Status:      req.Status,
		Notes:       req.Notes,
	}, nil
}

func (h *SubscriptionHandler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	subscription, err := req.toDomain(userID)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid next billing date format, expected YYYY-MM-DD")
		return
	}

	if err := h.service.CreateSubscription(subscription); err != nil {
		if subscriptionErrors.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Log.Errorf("error during subscription creation: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to create subscription")
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "success",
		"message": "Subscription successfully created.",
		"data":    subscription,
	})
}

func (h *SubscriptionHandler) GetUserSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	subscriptions, err := h.service.GetUserSubscriptions(userID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve subscriptions")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Subscriptions retrieved successfully.",
		"data":    subscriptions,
	})
}

func (h *SubscriptionHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	subscription, err := h.service.GetSubscription(r.PathValue("id"), userID)
	if err != nil {
		if errors.Is(err, subscriptionErrors.ErrSubscriptionNotFound) {
			h.respondError(w, http.StatusNotFound, "Subscription not found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve subscription")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   subscription,
	})
}

func (h *SubscriptionHandler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	subscription, err := req.toDomain(userID)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid next billing date format, expected YYYY-MM-DD")
		return
	}
	subscription.ID = r.PathValue("id")

	if err := h.service.UpdateSubscription(subscription); err != nil {
		if subscriptionErrors.IsValidationError(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, subscriptionErrors.ErrSubscriptionNotFound) {
			h.respondError(w, http.StatusNotFound, "Subscription not found")
			return
		}
		logger.Log.Errorf("error during subscription update: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to update subscription")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Subscription successfully updated.",
		"data":    subscription,
	})
}

func (h *SubscriptionHandler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.DeleteSubscription(r.PathValue("id"), userID); err != nil {
		if errors.Is(err, subscriptionErrors.ErrSubscriptionNotFound) {
			h.respondError(w, http.StatusNotFound, "Subscription not found")
			return
		}
		h.respondError(w, http.StatusInternalServerError, "Failed to delete subscription")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Subscription successfully deleted.",
	})
}

func (h *SubscriptionHandler) RenewSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("userID").(string)
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	subscription, err := h.service.RenewSubscription(r.PathValue("id"), userID)
	if err != nil {
		if errors.Is(err, subscriptionErrors.ErrSubscriptionNotFound) {
			h.respondError(w, http.StatusNotFound, "Subscription not found")
			return
		}
		logger.Log.Errorf("error during subscription renewal: %v", err)
		h.respondError(w, http.StatusInternalServerError, "Failed to renew subscription")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": "Subscription renewed.",
		"data":    subscription,
	})
}
