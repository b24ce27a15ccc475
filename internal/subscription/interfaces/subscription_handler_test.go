package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duely/duely/internal/subscription/domain"
	subscriptionErrors "github.com/duely/duely/internal/subscription/errors"
)

type MockSubscriptionService struct {
	subscriptions []domain.Subscription
	created       *domain.Subscription
	err           error
}

func (m *MockSubscriptionService) CreateSubscription(subscription *domain.Subscription) error {
	if m.err != nil {
		return m.err
	}
	subscription.ID = "sub-1"
	m.created = subscription
	return nil
}

func (m *MockSubscriptionService) GetUserSubscriptions(userID string) ([]domain.Subscription, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.subscriptions, nil
}

func (m *MockSubscriptionService) GetSubscription(subscriptionID, userID string) (*domain.Subscription, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, subscription := range m.subscriptions {
		if subscription.ID == subscriptionID {
			return &subscription, nil
		}
	}
	return nil, subscriptionErrors.ErrSubscriptionNotFound
}

func (m *MockSubscriptionService) UpdateSubscription(subscription *domain.Subscription) error {
	return m.err
}

func (m *MockSubscriptionService) DeleteSubscription(subscriptionID, userID string) error {
	return m.err
}

func (m *MockSubscriptionService) RenewSubscription(subscriptionID, userID string) (*domain.Subscription, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, subscription := range m.subscriptions {
		if subscription.ID == subscriptionID {
			subscription.AdvanceNextBilling()
			return &subscription, nil
		}
	}
	return nil, subscriptionErrors.ErrSubscriptionNotFound
}

func authenticatedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return req.WithContext(context.WithValue(req.Context(), "userID", "u1"))
}

func TestCreateSubscription_Success(t *testing.T) {
	mockService := &MockSubscriptionService{}
	handler := NewSubscriptionHandler(mockService, respondJSON, respondError)

	body := `{"name":"Netflix","amount":9.99,"currency":"usd","frequency":"monthly","next_billing":"2026-09-15"}`
	req := authenticatedRequest(http.MethodPost, "/api/protected/subscriptions", body)
	w := httptest.NewRecorder()

	handler.CreateSubscription(w, req)

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	require.NotNil(t, mockService.created)
	assert.Equal(t, "u1", mockService.created.UserID)
	assert.Equal(t, "Netflix", mockService.created.Name)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&response))
	assert.Equal(t, "success", response["status"])
}

func TestCreateSubscription_InvalidDate(t *testing.T) {
	handler := NewSubscriptionHandler(&MockSubscriptionService{}, respondJSON, respondError)

	body := `{"name":"Netflix","amount":9.99,"currency":"usd","frequency":"monthly","next_billing":"15-09-2026"}`
	req := authenticatedRequest(http.MethodPost, "/api/protected/subscriptions", body)
	w := httptest.NewRecorder()

	handler.CreateSubscription(w, req)

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&response))
	assert.Equal(t, "Invalid next billing date format, expected YYYY-MM-DD", response["message"])
}

func TestCreateSubscription_ValidationError(t *testing.T) {
	mockService := &MockSubscriptionService{err: subscriptionErrors.NewValidationError("Name must be between 1 and 100 characters")}
	handler := NewSubscriptionHandler(mockService, respondJSON, respondError)

	body := `{"name":"","amount":9.99,"currency":"usd","frequency":"monthly","next_billing":"2026-09-15"}`
	req := authenticatedRequest(http.MethodPost, "/api/protected/subscriptions", body)
	w := httptest.NewRecorder()

	handler.CreateSubscription(w, req)

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestCreateSubscription_Unauthorized(t *testing.T) {
	handler := NewSubscriptionHandler(&MockSubscriptionService{}, respondJSON, respondError)

	req := httptest.NewRequest(http.MethodPost, "/api/protected/subscriptions", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	handler.CreateSubscription(w, req)

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestGetUserSubscriptions_Success(t *testing.T) {
	mockService := &MockSubscriptionService{
		subscriptions: []domain.Subscription{
			{ID: "sub-1", UserID: "u1", Name: "Netflix"},
			{ID: "sub-2", UserID: "u1", Name: "Spotify"},
		},
	}
	handler := NewSubscriptionHandler(mockService, respondJSON, respondError)

	req := authenticatedRequest(http.MethodGet, "/api/protected/subscriptions", "")
	w := httptest.NewRecorder()

	handler.GetUserSubscriptions(w, req)

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	var response struct {
		Status string                `json:"status"`
		Data   []domain.Subscription `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&response))
	assert.Equal(t, "success", response.Status)
	assert.Len(t, response.Data, 2)
}

func TestGetUserSubscriptions_ServiceError(t *testing.T) {
	mockService := &MockSubscriptionService{err: errors.New("db down")}
	handler := NewSubscriptionHandler(mockService, respondJSON, respondError)

	req := authenticatedRequest(http.MethodGet, "/api/protected/subscriptions", "")
	w := httptest.NewRecorder()

	handler.GetUserSubscriptions(w, req)

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
}

func TestGetSubscription_NotFound(t *testing.T) {
	handler := NewSubscriptionHandler(&MockSubscriptionService{}, respondJSON, respondError)

	req := authenticatedRequest(http.MethodGet, "/api/protected/subscriptions/missing", "")
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()

	handler.GetSubscription(w, req)

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&response))
	assert.Equal(t, "Subscription not found", response["message"])
}

func TestRenewSubscription_Success(t *testing.T) {
	mockService := &MockSubscriptionService{
		subscriptions: []domain.Subscription{
			{ID: "sub-1", UserID: "u1", Name: "Netflix", Frequency: domain.FrequencyMonthly},
		},
	}
	handler := NewSubscriptionHandler(mockService, respondJSON, respondError)

	req := authenticatedRequest(http.MethodPost, "/api/protected/subscriptions/sub-1/renew", "")
	req.SetPathValue("id", "sub-1")
	w := httptest.NewRecorder()

	handler.RenewSubscription(w, req)

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
