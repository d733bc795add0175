package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pwest1/recipe-meal-planner/models"
)

// IngredientService owns the shared ingredient catalog.
type IngredientService struct {
	db *gorm.DB
}

func NewIngredientService(db *gorm.DB) *IngredientService {
	return &IngredientService{db: db}
}

// CreateIngredientInput is the payload for a new catalog entry.
type CreateIngredientInput struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

// IngredientPatch applies only the fields present in the request.
type IngredientPatch struct {
	Name     *string `json:"name"`
	Category *string `json:"category"`
	Unit     *string `json:"unit"`
}

// List returns catalog entries ordered by name. search matches a
// case-insensitive substring of the name; category is an exact match.
func (s *IngredientService) List(ctx context.Context, search, category string) ([]models.Ingredient, error) {
	query := s.db.WithContext(ctx).Model(&models.Ingredient{})
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}

	ingredients := []models.Ingredient{}
	if err := query.Order("name ASC").Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (s *IngredientService) Get(ctx context.Context, id string) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("ingredient not found: %w", ErrNotFound)
		}
		return nil, err
	}
	return &ingredient, nil
}

// Create inserts a new catalog entry. Name is unique across the catalog;
// the pre-check gives a friendly conflict and the unique index is the
// atomic backstop for concurrent duplicates.
func (s *IngredientService) Create(ctx context.Context, in CreateIngredientInput) (*models.Ingredient, error) {
	name := strings.TrimSpace(in.Name)
	unit := strings.TrimSpace(in.Unit)
	if name == "" || unit == "" {
		return nil, fmt.Errorf("name and unit are required: %w", ErrInvalidInput)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Ingredient{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("ingredient %q already exists: %w", name, ErrConflict)
	}

	ingredient := models.Ingredient{
		Name:     name,
		Category: strings.TrimSpace(in.Category),
		Unit:     unit,
	}
	if err := s.db.WithContext(ctx).Create(&ingredient).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("ingredient %q already exists: %w", name, ErrConflict)
		}
		return nil, err
	}

	return &ingredient, nil
}

// Update patches the fields present in the request. A name change is
// re-checked for uniqueness against all other entries.
func (s *IngredientService) Update(ctx context.Context, id string, patch IngredientPatch) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("ingredient not found: %w", ErrNotFound)
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("name cannot be empty: %w", ErrInvalidInput)
		}
		if name != ingredient.Name {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.Ingredient{}).
				Where("name = ? AND id <> ?", name, id).Count(&count).Error; err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, fmt.Errorf("ingredient %q already exists: %w", name, ErrConflict)
			}
		}
		updates["name"] = name
	}
	if patch.Category != nil {
		updates["category"] = strings.TrimSpace(*patch.Category)
	}
	if patch.Unit != nil {
		unit := strings.TrimSpace(*patch.Unit)
		if unit == "" {
			return nil, fmt.Errorf("unit cannot be empty: %w", ErrInvalidInput)
		}
		updates["unit"] = unit
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&ingredient).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, fmt.Errorf("ingredient name already exists: %w", ErrConflict)
			}
			return nil, err
		}
	}

	return &ingredient, nil
}

// Delete removes a catalog entry. Refused while any recipe still
// references it.
func (s *IngredientService) Delete(ctx context.Context, id string) error {
	var ingredient models.Ingredient
	if err := s.db.WithContext(ctx).First(&ingredient, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("ingredient not found: %w", ErrNotFound)
		}
		return err
	}

	var refs int64
	if err := s.db.WithContext(ctx).Model(&models.RecipeIngredient{}).
		Where("ingredient_id = ?", id).Count(&refs).Error; err != nil {
		return err
	}
	if refs > 0 {
		return fmt.Errorf("ingredient is used by %d recipe(s): %w", refs, ErrConflict)
	}

	return s.db.WithContext(ctx).Delete(&ingredient).Error
}
