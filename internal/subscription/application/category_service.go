package application

import (
	"github.com/google/uuid"

	"github.com/duely/duely/internal/subscription/domain"
)

type CategoryService struct {
	repo domain.CategoryRepository
}

func NewCategoryService(repo domain.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) CreateCategory(category *domain.Category) error {
	category.ID = uuid.NewString()
	if err := category.Validate(); err != nil {
		return err
	}
	return s.repo.Save(*category)
}

func (s *CategoryService) GetUserCategories(userID string) ([]domain.Category, error) {
	categories, err := s.repo.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		return []domain.Category{}, nil
	}
	return categories, nil
}

func (s *CategoryService) GetCategory(categoryID, userID string) (*domain.Category, error) {
	return s.repo.FindByID(categoryID, userID)
}

func (s *CategoryService) UpdateCategory(category *domain.Category) error {
	if err := category.Validate(); err != nil {
		return err
	}
	return s.repo.Update(*category)
}

func (s *CategoryService) DeleteCategory(categoryID, userID string) error {
	return s.repo.Delete(categoryID, userID)
}

func (s *CategoryService) DoesCategoryExist(categoryID, userID string) (bool, error) {
	return s.repo.DoesCategoryExistByID(categoryID, userID)
}
