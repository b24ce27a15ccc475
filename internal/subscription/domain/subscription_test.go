package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	subscriptionErrors "github.com/duely/duely/internal/subscription/errors"
)

func validSubscription() Subscription {
	return Subscription{
		ID:          "sub-1",
		UserID:      "u1",
		Name:        "Netflix",
		Amount:      9.99,
		Currency:    "USD",
		Frequency:   FrequencyMonthly,
		NextBilling: time.Date(2026, time.September, 8, 0, 0, 0, 0, time.UTC),
		Status:      StatusActive,
	}
}

func TestSubscriptionValidate(t *testing.T) {
	subscription := validSubscription()
	assert.NoError(t, subscription.Validate())

	tests := []struct {
		name   string
		mutate func(*Subscription)
	}{
		{"empty name", func(s *Subscription) { s.Name = "" }},
		{"name too long", func(s *Subscription) { s.Name = strings.Repeat("a", 101) }},
		{"negative amount", func(s *Subscription) { s.Amount = -1 }},
		{"unknown frequency", func(s *Subscription) { s.Frequency = "daily" }},
		{"unknown status", func(s *Subscription) { s.Status = "expired" }},
		{"bad currency", func(s *Subscription) { s.Currency = "USDX" }},
		{"notes too long", func(s *Subscription) { s.Notes = strings.Repeat("a", 501) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subscription := validSubscription()
			tt.mutate(&subscription)
			err := subscription.Validate()
			assert.Error(t, err)
			assert.True(t, subscriptionErrors.IsValidationError(err))
		})
	}
}

func TestSubscriptionValidate_ZeroAmountAllowed(t *testing.T) {
	subscription := validSubscription()
	subscription.Amount = 0
	assert.NoError(t, subscription.Validate())
}

func TestMonthlyEquivalent(t *testing.T) {
	tests := []struct {
		frequency string
		amount    float64
		expected  float64
	}{
		{FrequencyWeekly, 10, 43.3},
		{FrequencyMonthly, 10, 10},
		{FrequencyQuarterly, 30, 10},
		{FrequencyYearly, 120, 10},
	}

	for _, tt := range tests {
		t.Run(tt.frequency, func(t *testing.T) {
			subscription := validSubscription()
			subscription.Frequency = tt.frequency
			subscription.Amount = tt.amount
			assert.InDelta(t, tt.expected, subscription.MonthlyEquivalent(), 0.001)
		})
	}
}

func TestAdvanceNextBilling(t *testing.T) {
	start := time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		frequency string
		expected  time.Time
	}{
		{FrequencyWeekly, time.Date(2026, time.February, 7, 0, 0, 0, 0, time.UTC)},
		{FrequencyMonthly, time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)},
		{FrequencyQuarterly, time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)},
		{FrequencyYearly, time.Date(2027, time.January, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.frequency, func(t *testing.T) {
			subscription := validSubscription()
			subscription.Frequency = tt.frequency
			subscription.NextBilling = start
			subscription.AdvanceNextBilling()
			assert.Equal(t, tt.expected, subscription.NextBilling)
		})
	}
}
