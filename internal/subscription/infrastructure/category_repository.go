package infrastructure

import (
	"database/sql"
	"errors"

	"github.com/duely/duely/internal/subscription/domain"
	subscriptionErrors "github.com/duely/duely/internal/subscription/errors"
)

type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Save(category domain.Category) error {
	query := `
		INSERT INTO categories (id, user_id, name, budget_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	_, err := r.db.Exec(query, category.ID, category.UserID, category.Name, category.BudgetLimit)
	return err
}

func (r *CategoryRepository) FindByUser(userID string) ([]domain.Category, error) {
	query := `SELECT id, user_id, name, budget_limit, created_at, updated_at FROM categories WHERE user_id = $1 ORDER BY name`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.UserID, &category.Name, &category.BudgetLimit, &category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) FindByID(categoryID, userID string) (*domain.Category, error) {
	query := `SELECT id, user_id, name, budget_limit, created_at, updated_at FROM categories WHERE id = $1 AND user_id = $2`
	var category domain.Category
	err := r.db.QueryRow(query, categoryID, userID).Scan(
		&category.ID,
		&category.UserID,
		&category.Name,
		&category.BudgetLimit,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, subscriptionErrors.ErrCategoryNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (r *CategoryRepository) Update(category domain.Category) error {
	query := `
		UPDATE categories
		SET name = $1,
		    budget_limit = $2,
		    updated_at = NOW()
		WHERE id = $3 AND user_id = $4
	`
	res, err := r.db.Exec(query, category.Name, category.BudgetLimit, category.ID, category.UserID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return subscriptionErrors.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) Delete(categoryID, userID string) error {
	res, err := r.db.Exec(`DELETE FROM categories WHERE id = $1 AND user_id = $2`, categoryID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return subscriptionErrors.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) FindAllBudgeted() ([]domain.Category, error) {
	query := `SELECT id, user_id, name, budget_limit, created_at, updated_at FROM categories WHERE budget_limit IS NOT NULL`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.UserID, &category.Name, &category.BudgetLimit, &category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) DoesCategoryExistByID(categoryID, userID string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1 AND user_id = $2)"
	err := r.db.QueryRow(query, categoryID, userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
