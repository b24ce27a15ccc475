package application

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duely/duely/internal/subscription/domain"
	subscriptionErrors "github.com/duely/duely/internal/subscription/errors"
)

type mockSubscriptionRepository struct {
	subscriptions map[string]domain.Subscription
	saveErr       error
}

func newMockSubscriptionRepository() *mockSubscriptionRepository {
	return &mockSubscriptionRepository{subscriptions: make(map[string]domain.Subscription)}
}

func (m *mockSubscriptionRepository) Save(subscription domain.Subscription) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.subscriptions[subscription.ID] = subscription
	return nil
}

func (m *mockSubscriptionRepository) FindByUser(userID string) ([]domain.Subscription, error) {
	var found []domain.Subscription
	for _, subscription := range m.subscriptions {
		if subscription.UserID == userID {
			found = append(found, subscription)
		}
	}
	return found, nil
}

func (m *mockSubscriptionRepository) FindByID(subscriptionID, userID string) (*domain.Subscription, error) {
	subscription, ok := m.subscriptions[subscriptionID]
	if !ok || subscription.UserID != userID {
		return nil, subscriptionErrors.ErrSubscriptionNotFound
	}
	return &subscription, nil
}

func (m *mockSubscriptionRepository) Update(subscription domain.Subscription) error {
	if _, ok := m.subscriptions[subscription.ID]; !ok {
		return subscriptionErrors.ErrSubscriptionNotFound
	}
	m.subscriptions[subscription.ID] = subscription
	return nil
}

func (m *mockSubscriptionRepository) Delete(subscriptionID, userID string) error {
	subscription, ok := m.subscriptions[subscriptionID]
	if !ok || subscription.UserID != userID {
		return subscriptionErrors.ErrSubscriptionNotFound
	}
	delete(m.subscriptions, subscriptionID)
	return nil
}

func (m *mockSubscriptionRepository) FindAllActive() ([]domain.Subscription, error) {
	var active []domain.Subscription
	for _, subscription := range m.subscriptions {
		if subscription.Status == domain.StatusActive {
			active = append(active, subscription)
		}
	}
	return active, nil
}

type mockCategoryService struct {
	categories map[string]domain.Category
	existsErr  error
}

func newMockCategoryService(categories ...domain.Category) *mockCategoryService {
	m := &mockCategoryService{categories: make(map[string]domain.Category)}
	for _, category := range categories {
		m.categories[category.ID] = category
	}
	return m
}

func (m *mockCategoryService) DoesCategoryExist(categoryID, userID string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	category, ok := m.categories[categoryID]
	return ok && category.UserID == userID, nil
}

func (m *mockCategoryService) GetUserCategories(userID string) ([]domain.Category, error) {
	var found []domain.Category
	for _, category := range m.categories {
		if category.UserID == userID {
			found = append(found, category)
		}
	}
	return found, nil
}

func floatPtr(f float64) *float64 {
	return &f
}

func newTestSubscription(userID, name string, amount float64, frequency string, categoryID *string) *domain.Subscription {
	return &domain.Subscription{
		UserID:      userID,
		CategoryID:  categoryID,
		Name:        name,
		Amount:      amount,
		Currency:    "usd",
		Frequency:   frequency,
		NextBilling: time.Date(2026, time.September, 15, 0, 0, 0, 0, time.UTC),
		Status:      domain.StatusActive,
	}
}

func TestCreateSubscription_AssignsIDAndUppercasesCurrency(t *testing.T) {
	repo := newMockSubscriptionRepository()
	service := NewSubscriptionService(repo, newMockCategoryService())

	subscription := newTestSubscription("u1", "Netflix", 9.99, domain.FrequencyMonthly, nil)
	err := service.CreateSubscription(subscription)
	require.NoError(t, err)

	assert.NotEmpty(t, subscription.ID)
	assert.Equal(t, "USD", subscription.Currency)
	assert.Equal(t, domain.StatusActive, subscription.Status)

	stored, err := repo.FindByID(subscription.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Netflix", stored.Name)
}

func TestCreateSubscription_RejectsInvalidData(t *testing.T) {
	service := NewSubscriptionService(newMockSubscriptionRepository(), newMockCategoryService())

	subscription := newTestSubscription("u1", "", 9.99, domain.FrequencyMonthly, nil)
	err := service.CreateSubscription(subscription)
	assert.Error(t, err)
	assert.True(t, subscriptionErrors.IsValidationError(err))
}

func TestCreateSubscription_RejectsForeignCategory(t *testing.T) {
	categoryService := newMockCategoryService(domain.Category{ID: "cat-1", UserID: "other-user", Name: "Media"})
	service := NewSubscriptionService(newMockSubscriptionRepository(), categoryService)

	categoryID := "cat-1"
	subscription := newTestSubscription("u1", "Netflix", 9.99, domain.FrequencyMonthly, &categoryID)
	err := service.CreateSubscription(subscription)
	assert.ErrorIs(t, err, subscriptionErrors.ErrInvalidCategory)
}

func TestRenewSubscription_AdvancesNextBilling(t *testing.T) {
	repo := newMockSubscriptionRepository()
	service := NewSubscriptionService(repo, newMockCategoryService())

	subscription := newTestSubscription("u1", "Netflix", 9.99, domain.FrequencyMonthly, nil)
	require.NoError(t, service.CreateSubscription(subscription))

	renewed, err := service.RenewSubscription(subscription.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC), renewed.NextBilling)

	stored, err := repo.FindByID(subscription.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, renewed.NextBilling, stored.NextBilling)
}

func TestRenewSubscription_UnknownID(t *testing.T) {
	service := NewSubscriptionService(newMockSubscriptionRepository(), newMockCategoryService())

	_, err := service.RenewSubscription("missing", "u1")
	assert.ErrorIs(t, err, subscriptionErrors.ErrSubscriptionNotFound)
}

func TestUpdateSubscription_PreservesCreatedAt(t *testing.T) {
	repo := newMockSubscriptionRepository()
	service := NewSubscriptionService(repo, newMockCategoryService())

	subscription := newTestSubscription("u1", "Netflix", 9.99, domain.FrequencyMonthly, nil)
	require.NoError(t, service.CreateSubscription(subscription))

	createdAt := time.Date(2026, time.August, 1, 10, 0, 0, 0, time.UTC)
	stored := repo.subscriptions[subscription.ID]
	stored.CreatedAt = createdAt
	repo.subscriptions[subscription.ID] = stored

	updated := newTestSubscription("u1", "Netflix Premium", 15.99, domain.FrequencyMonthly, nil)
	updated.ID = subscription.ID
	require.NoError(t, service.UpdateSubscription(updated))

	assert.Equal(t, createdAt, updated.CreatedAt)
	assert.Equal(t, "Netflix Premium", repo.subscriptions[subscription.ID].Name)
}

func TestGetUserSubscriptions_EmptyResultIsNotNil(t *testing.T) {
	service := NewSubscriptionService(newMockSubscriptionRepository(), newMockCategoryService())

	subscriptions, err := service.GetUserSubscriptions("u1")
	require.NoError(t, err)
	assert.NotNil(t, subscriptions)
	assert.Empty(t, subscriptions)
}

func TestGetDashboardSummary(t *testing.T) {
	categoryService := newMockCategoryService(
		domain.Category{ID: "cat-media", UserID: "u1", Name: "Media", BudgetLimit: floatPtr(50)},
		domain.Category{ID: "cat-infra", UserID: "u1", Name: "Infra"},
	)
	repo := newMockSubscriptionRepository()
	service := NewSubscriptionService(repo, categoryService)

	mediaID := "cat-media"
	infraID := "cat-infra"
	now := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)

	netflix := newTestSubscription("u1", "Netflix", 20, domain.FrequencyMonthly, &mediaID)
	netflix.NextBilling = now.AddDate(0, 0, 3)
	require.NoError(t, service.CreateSubscription(netflix))

	cloud := newTestSubscription("u1", "Cloud", 120, domain.FrequencyYearly, &infraID)
	cloud.NextBilling = now.AddDate(0, 0, 30)
	require.NoError(t, service.CreateSubscription(cloud))

	paused := newTestSubscription("u1", "Gym", 30, domain.FrequencyMonthly, nil)
	paused.Status = domain.StatusPaused
	require.NoError(t, service.CreateSubscription(paused))

	summary, err := service.GetDashboardSummary("u1", now, 7)
	require.NoError(t, err)

	// 20 monthly + 120/12 yearly, the paused one does not count
	assert.InDelta(t, 30, summary.TotalMonthlySpend, 0.001)
	assert.Equal(t, 2, summary.CountsByStatus[domain.StatusActive])
	assert.Equal(t, 1, summary.CountsByStatus[domain.StatusPaused])

	require.Len(t, summary.UpcomingRenewals, 1)
	assert.Equal(t, "Netflix", summary.UpcomingRenewals[0].Name)

	byID := make(map[string]CategoryBreakdown)
	for _, breakdown := range summary.Categories {
		byID[breakdown.CategoryID] = breakdown
	}

	media := byID["cat-media"]
	assert.InDelta(t, 20, media.MonthlySpend, 0.001)
	require.NotNil(t, media.Utilization)
	assert.InDelta(t, 0.4, *media.Utilization, 0.001)

	infra := byID["cat-infra"]
	assert.InDelta(t, 10, infra.MonthlySpend, 0.001)
	assert.Nil(t, infra.Utilization)
}

func TestCreateSubscription_CategoryLookupFailure(t *testing.T) {
	categoryService := newMockCategoryService()
	categoryService.existsErr = errors.New("db down")
	service := NewSubscriptionService(newMockSubscriptionRepository(), categoryService)

	categoryID := "cat-1"
	subscription := newTestSubscription("u1", "Netflix", 9.99, domain.FrequencyMonthly, &categoryID)
	err := service.CreateSubscription(subscription)
	assert.EqualError(t, err, "db down")
}
