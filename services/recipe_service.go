package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/pwest1/recipe-meal-planner/models"
)

// RecipeService owns recipes and their quantified ingredient links. All
// operations are scoped to the owning user; a recipe belonging to someone
// else is indistinguishable from a missing one.
type RecipeService struct {
	db *gorm.DB
}

func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{db: db}
}

// IngredientRequest asks for one ingredient binding on a recipe. The
// referenced catalog entry is matched by exact name and created on demand.
// Quantity/Unit/Notes belong to the binding and may differ from the
// catalog entry's canonical unit.
type IngredientRequest struct {
	Quantity   float64       `json:"quantity"`
	Unit       string        `json:"unit"`
	Notes      string        `json:"notes"`
	Ingredient IngredientRef `json:"ingredient"`
}

type IngredientRef struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Unit     string `json:"unit"`
}

type CreateRecipeInput struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Instructions string              `json:"instructions"`
	PrepTime     *int                `json:"prepTime"`
	CookTime     *int                `json:"cookTime"`
	Servings     *int                `json:"servings"`
	Category     string              `json:"category"`
	Tags         []string            `json:"tags"`
	Ingredients  []IngredientRequest `json:"ingredients"`
}

// RecipePatch applies only the fields present in the request body. A nil
// Ingredients leaves the link set untouched; a non-nil one (including
// empty) replaces it entirely.
type RecipePatch struct {
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	Instructions *string              `json:"instructions"`
	PrepTime     *int                 `json:"prepTime"`
	CookTime     *int                 `json:"cookTime"`
	Servings     *int                 `json:"servings"`
	Category     *string              `json:"category"`
	Tags         *[]string            `json:"tags"`
	Ingredients  *[]IngredientRequest `json:"ingredients"`
}

// List returns the owner's recipes, newest first, with ingredient links
// preloaded.
func (s *RecipeService) List(ctx context.Context, ownerID string) ([]models.Recipe, error) {
	recipes := []models.Recipe{}
	err := s.db.WithContext(ctx).
		Preload("RecipeIngredients.Ingredient").
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&recipes).Error
	if err != nil {
		return nil, err
	}
	for i := range recipes {
		normalize(&recipes[i])
	}
	return recipes, nil
}

func (s *RecipeService) Get(ctx context.Context, ownerID, id string) (*models.Recipe, error) {
	return s.get(s.db.WithContext(ctx), ownerID, id)
}

func (s *RecipeService) get(db *gorm.DB, ownerID, id string) (*models.Recipe, error) {
	var recipe models.Recipe
	err := db.
		Preload("RecipeIngredients.Ingredient").
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&recipe).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("recipe not found: %w", ErrNotFound)
		}
		return nil, err
	}
	normalize(&recipe)
	return &recipe, nil
}

// normalize keeps empty collections as [] on the wire, never null.
func normalize(recipe *models.Recipe) {
	if recipe.RecipeIngredients == nil {
		recipe.RecipeIngredients = []models.RecipeIngredient{}
	}
	if recipe.Tags == nil {
		recipe.Tags = []string{}
	}
}

// Create inserts the recipe row and resolves all ingredient bindings in a
// single transaction.
func (s *RecipeService) Create(ctx context.Context, ownerID string, in CreateRecipeInput) (*models.Recipe, error) {
	title := strings.TrimSpace(in.Title)
	instructions := strings.TrimSpace(in.Instructions)
	if title == "" || instructions == "" {
		return nil, fmt.Errorf("title and instructions are required: %w", ErrInvalidInput)
	}

	servings := 1
	if in.Servings != nil {
		if *in.Servings < 1 {
			return nil, fmt.Errorf("servings must be positive: %w", ErrInvalidInput)
		}
		servings = *in.Servings
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	recipe := models.Recipe{
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		Instructions: instructions,
		PrepTime:     in.PrepTime,
		CookTime:     in.CookTime,
		Servings:     servings,
		Category:     strings.TrimSpace(in.Category),
		Tags:         tags,
		UserID:       ownerID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&recipe).Error; err != nil {
			return err
		}
		return resolveLinks(tx, recipe.ID, in.Ingredients)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, ownerID, recipe.ID)
}

// Update patches the fields present in the request. When an ingredients
// array is supplied the existing link set is deleted and re-resolved
// inside the same transaction as the scalar update, so a failure leaves
// the previous state intact.
func (s *RecipeService) Update(ctx context.Context, ownerID, id string, patch RecipePatch) (*models.Recipe, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, fmt.Errorf("title cannot be empty: %w", ErrInvalidInput)
	}
	if patch.Instructions != nil && strings.TrimSpace(*patch.Instructions) == "" {
		return nil, fmt.Errorf("instructions cannot be empty: %w", ErrInvalidInput)
	}
	if patch.Servings != nil && *patch.Servings < 1 {
		return nil, fmt.Errorf("servings must be positive: %w", ErrInvalidInput)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe models.Recipe
		if err := tx.Where("id = ? AND user_id = ?", id, ownerID).First(&recipe).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("recipe not found: %w", ErrNotFound)
			}
			return err
		}

		if patch.Title != nil {
			recipe.Title = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			recipe.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Instructions != nil {
			recipe.Instructions = strings.TrimSpace(*patch.Instructions)
		}
		if patch.PrepTime != nil {
			recipe.PrepTime = patch.PrepTime
		}
		if patch.CookTime != nil {
			recipe.CookTime = patch.CookTime
		}
		if patch.Servings != nil {
			recipe.Servings = *patch.Servings
		}
		if patch.Category != nil {
			recipe.Category = strings.TrimSpace(*patch.Category)
		}
		if patch.Tags != nil {
			recipe.Tags = *patch.Tags
			if recipe.Tags == nil {
				recipe.Tags = []string{}
			}
		}

		if err := tx.Save(&recipe).Error; err != nil {
			return err
		}

		if patch.Ingredients != nil {
			if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
				return err
			}
			if err := resolveLinks(tx, recipe.ID, *patch.Ingredients); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, ownerID, id)
}

// Delete removes the recipe and all of its ingredient links.
func (s *RecipeService) Delete(ctx context.Context, ownerID, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipe models.Recipe
		if err := tx.Where("id = ? AND user_id = ?", id, ownerID).First(&recipe).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("recipe not found: %w", ErrNotFound)
			}
			return err
		}

		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		return tx.Delete(&recipe).Error
	})
}

// resolveLinks reconciles the requested ingredient list against the
// catalog: match by exact name, create on demand, then bind with the
// request's own quantity/unit/notes. Requests resolving to an already
// bound ingredient are dropped, so a recipe never carries duplicate
// links.
func resolveLinks(tx *gorm.DB, recipeID string, requests []IngredientRequest) error {
	linked := map[string]bool{}

	for _, req := range requests {
		name := strings.TrimSpace(req.Ingredient.Name)
		unit := strings.TrimSpace(req.Unit)
		if name == "" {
			return fmt.Errorf("ingredient name is required: %w", ErrInvalidInput)
		}
		if req.Quantity <= 0 {
			return fmt.Errorf("ingredient quantity must be positive: %w", ErrInvalidInput)
		}
		if unit == "" {
			return fmt.Errorf("ingredient unit is required: %w", ErrInvalidInput)
		}

		ingredient, err := connectOrCreate(tx, name, req.Ingredient)
		if err != nil {
			return err
		}

		if linked[ingredient.ID] {
			continue
		}
		linked[ingredient.ID] = true

		link := models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: ingredient.ID,
			Quantity:     req.Quantity,
			Unit:         unit,
			Notes:        strings.TrimSpace(req.Notes),
		}
		if err := tx.Create(&link).Error; err != nil {
			return err
		}
	}

	return nil
}

func connectOrCreate(tx *gorm.DB, name string, ref IngredientRef) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	err := tx.Where("name = ?", name).First(&ingredient).Error
	if err == nil {
		return &ingredient, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	canonicalUnit := strings.TrimSpace(ref.Unit)
	if canonicalUnit == "" {
		return nil, fmt.Errorf("unit is required for new ingredient %q: %w", name, ErrInvalidInput)
	}

	ingredient = models.Ingredient{
		Name:     name,
		Category: strings.TrimSpace(ref.Category),
		Unit:     canonicalUnit,
	}
	if err := tx.Create(&ingredient).Error; err != nil {
		// Lost a race with a concurrent create; the existing row wins.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := tx.Where("name = ?", name).First(&ingredient).Error; err != nil {
				return nil, err
			}
			return &ingredient, nil
		}
		return nil, err
	}

	return &ingredient, nil
}
