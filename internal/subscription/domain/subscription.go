package domain

import (
	"time"

	"github.com/duely/duely/internal/subscription/errors"
)

const (
	FrequencyWeekly    = "weekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"

	StatusActive   = "active"
	StatusTrial    = "trial"
	StatusPaused   = "paused"
	StatusCanceled = "canceled"
)

type SubscriptionRepository interface {
	Save(subscription Subscription) error
	FindByUser(userID string) ([]Subscription, error)
	FindByID(subscriptionID, userID string) (*Subscription, error)
	Update(subscription Subscription) error
	Delete(subscriptionID, userID string) error
	FindAllActive() ([]Subscription, error)
}

type Subscription struct {
	ID          string     `json:"id"`
	UserID      string     `json:"-"`
	CategoryID  *string    `json:"category_id"`
	Name        string     `json:"name"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Frequency   string     `json:"frequency"`
	NextBilling time.Time  `json:"next_billing"`
	Status      string     `json:"status"`
	Notes       string     `json:"notes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func IsValidFrequency(frequency string) bool {
	switch frequency {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusActive, StatusTrial, StatusPaused, StatusCanceled:
		return true
	}
	return false
}

func (s *Subscription) Validate() error {
	if len(s.Name) == 0 || len(s.Name) > 100 {
		return errors.NewValidationError("Name must be between 1 and 100 characters")
	}
	if s.Amount < 0 {
		return errors.NewValidationError("Amount must not be negative")
	}
	if !IsValidFrequency(s.Frequency) {
		return errors.NewValidationError("Frequency must be 'weekly', 'monthly', 'quarterly' or 'yearly'")
	}
	if !IsValidStatus(s.Status) {
		return errors.NewValidationError("Status must be 'active', 'trial', 'paused' or 'canceled'")
	}
	if len(s.Currency) != 3 {
		return errors.NewValidationError("Currency must be a 3-letter code")
	}
	if len(s.Notes) > 500 {
		return errors.NewValidationError("Notes must be of length less than 500")
	}
	return nil
}

// MonthlyEquivalent normalizes the billing amount to a 30-day basis so
// subscriptions with different frequencies can be compared and summed.
func (s *Subscription) MonthlyEquivalent() float64 {
	switch s.Frequency {
	case FrequencyWeekly:
		return s.Amount * 4.33
	case FrequencyQuarterly:
		return s.Amount / 3
	case FrequencyYearly:
		return s.Amount / 12
	default:
		return s.Amount
	}
}

// AdvanceNextBilling rolls next_billing forward by one billing period.
func (s *Subscription) AdvanceNextBilling() {
	switch s.Frequency {
	case FrequencyWeekly:
		s.NextBilling = s.NextBilling.AddDate(0, 0, 7)
	case FrequencyMonthly:
		s.NextBilling = s.NextBilling.AddDate(0, 1, 0)
	case FrequencyQuarterly:
		s.NextBilling = s.NextBilling.AddDate(0, 3, 0)
	case FrequencyYearly:
		s.NextBilling = s.NextBilling.AddDate(1, 0, 0)
	}
}
