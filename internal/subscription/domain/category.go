package domain

import (
	"time"

	"github.com/duely/duely/internal/subscription/errors"
)

type Category struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Name        string    `json:"name"`
	BudgetLimit *float64  `json:"budget_limit"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CategoryRepository interface {
	Save(category Category) error
	FindByUser(userID string) ([]Category, error)
	FindByID(categoryID, userID string) (*Category, error)
	Update(category Category) error
	Delete(categoryID, userID string) error
	FindAllBudgeted() ([]Category, error)
	DoesCategoryExistByID(categoryID, userID string) (bool, error)
}

func (c *Category) Validate() error {
	if len(c.Name) == 0 || len(c.Name) > 60 {
		return errors.NewValidationError("Name must be between 1 and 60 characters")
	}
	if c.BudgetLimit != nil && *c.BudgetLimit <= 0 {
		return errors.NewValidationError("Budget limit must be greater than zero")
	}
	return nil
}
