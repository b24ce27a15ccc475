package application

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/duely/duely/internal/subscription/domain"
	subscriptionErrors "github.com/duely/duely/internal/subscription/errors"
)

type CategoryServiceInterface interface {
	DoesCategoryExist(categoryID, userID string) (bool, error)
	GetUserCategories(userID string) ([]domain.Category, error)
}

type SubscriptionService struct {
	repo            domain.SubscriptionRepository
	categoryService CategoryServiceInterface
}

func NewSubscriptionService(repo domain.SubscriptionRepository, categoryService CategoryServiceInterface) *SubscriptionService {
	return &SubscriptionService{repo: repo, categoryService: categoryService}
}

func (s *SubscriptionService) CreateSubscription(subscription *domain.Subscription) error {
	subscription.ID = uuid.NewString()
	subscription.Currency = strings.ToUpper(subscription.Currency)
	if subscription.Status == "" {
		subscription.Status = domain.StatusActive
	}
	if err := subscription.Validate(); err != nil {
		return err
	}

	if subscription.CategoryID != nil {
		exists, err := s.categoryService.DoesCategoryExist(*subscription.CategoryID, subscription.UserID)
		if err != nil {
			return err
		}
		if !exists {
			return subscriptionErrors.ErrInvalidCategory
		}
	}

	return s.repo.Save(*subscription)
}

func (s *SubscriptionService) GetUserSubscriptions(userID string) ([]domain.Subscription, error) {
	subscriptions, err := s.repo.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	if subscriptions == nil {
		return []domain.Subscription{}, nil
	}
	return subscriptions, nil
}

func (s *SubscriptionService) GetSubscription(subscriptionID, userID string) (*domain.Subscription, error) {
	return s.repo.FindByID(subscriptionID, userID)
}

func (s *SubscriptionService) UpdateSubscription(subscription *domain.Subscription) error {
	existing, err := s.repo.FindByID(subscription.ID, subscription.UserID)
	if err != nil {
		return err
	}
	subscription.CreatedAt = existing.CreatedAt
	subscription.Currency = strings.ToUpper(subscription.Currency)
	if err := subscription.Validate(); err != nil {
		return err
	}

	if subscription.CategoryID != nil {
		exists, err := s.categoryService.DoesCategoryExist(*subscription.CategoryID, subscription.UserID)
		if err != nil {
			return err
		}
		if !exists {
			return subscriptionErrors.ErrInvalidCategory
		}
	}

	return s.repo.Update(*subscription)
}

func (s *SubscriptionService) DeleteSubscription(subscriptionID, userID string) error {
	return s.repo.Delete(subscriptionID, userID)
}

// RenewSubscription rolls next_billing forward one billing period, e.g. after
// the user confirms a charge went through.
func (s *SubscriptionService) RenewSubscription(subscriptionID, userID string) (*domain.Subscription, error) {
	subscription, err := s.repo.FindByID(subscriptionID, userID)
	if err != nil {
		return nil, err
	}

	subscription.AdvanceNextBilling()
	if err := s.repo.Update(*subscription); err != nil {
		return nil, err
	}
	return subscription, nil
}

type CategoryBreakdown struct {
	CategoryID   string   `json:"category_id"`
	Name         string   `json:"name"`
	BudgetLimit  *float64 `json:"budget_limit"`
	MonthlySpend float64  `json:"monthly_spend"`
	Utilization  *float64 `json:"utilization"`
}

type DashboardSummary struct {
	TotalMonthlySpend float64               `json:"total_monthly_spend"`
	CountsByStatus    map[string]int        `json:"counts_by_status"`
	Categories        []CategoryBreakdown   `json:"categories"`
	UpcomingRenewals  []domain.Subscription `json:"upcoming_renewals"`
}

// GetDashboardSummary aggregates the user's subscriptions into monthly-equivalent
// spend totals, per-category budget utilization and upcoming renewals.
func (s *SubscriptionService) GetDashboardSummary(userID string, now time.Time, leadDays int) (*DashboardSummary, error) {
	subscriptions, err := s.repo.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	categories, err := s.categoryService.GetUserCategories(userID)
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		CountsByStatus:   make(map[string]int),
		Categories:       []CategoryBreakdown{},
		UpcomingRenewals: []domain.Subscription{},
	}

	spendByCategory := make(map[string]float64)
	windowEnd := now.AddDate(0, 0, leadDays)

	for _, subscription := range subscriptions {
		summary.CountsByStatus[subscription.Status]++
		if subscription.Status != domain.StatusActive {
			continue
		}

		monthly := subscription.MonthlyEquivalent()
		summary.TotalMonthlySpend += monthly
		if subscription.CategoryID != nil {
			spendByCategory[*subscription.CategoryID] += monthly
		}

		if !subscription.NextBilling.Before(now) && !subscription.NextBilling.After(windowEnd) {
			summary.UpcomingRenewals = append(summary.UpcomingRenewals, subscription)
		}
	}

	for _, category := range categories {
		breakdown := CategoryBreakdown{
			CategoryID:   category.ID,
			Name:         category.Name,
			BudgetLimit:  category.BudgetLimit,
			MonthlySpend: spendByCategory[category.ID],
		}
		if category.BudgetLimit != nil && *category.BudgetLimit > 0 {
			utilization := breakdown.MonthlySpend / *category.BudgetLimit
			breakdown.Utilization = &utilization
		}
		summary.Categories = append(summary.Categories, breakdown)
	}

	return summary, nil
}
