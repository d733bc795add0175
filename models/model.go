package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a local mirror of an identity-provider account. The primary key
// is the provider's subject claim; the row is materialized lazily on first
// authenticated profile access and never deleted.
type User struct {
	ID        string    `gorm:"primaryKey;size:255" json:"id"`
	Username  string    `gorm:"size:255;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Recipes []Recipe `json:"recipes,omitempty"`
}

// Ingredient is a catalog entry shared across all users. Name is unique,
// stored as written (case sensitive).
type Ingredient struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Category  string    `gorm:"size:100" json:"category,omitempty"`
	Unit      string    `gorm:"size:50;not null" json:"unit"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (i *Ingredient) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// Recipe is owned exclusively by its creator; every read and write is
// scoped by UserID.
type Recipe struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description,omitempty"`
	Instructions string    `gorm:"type:text;not null" json:"instructions"`
	PrepTime     *int      `json:"prepTime,omitempty"`
	CookTime     *int      `json:"cookTime,omitempty"`
	Servings     int       `gorm:"default:1" json:"servings"`
	Category     string    `gorm:"size:100" json:"category,omitempty"`
	Tags         []string  `gorm:"serializer:json" json:"tags"`
	UserID       string    `gorm:"size:255;not null;index" json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	RecipeIngredients []RecipeIngredient `gorm:"constraint:OnDelete:CASCADE" json:"recipeIngredients"`
}

func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// RecipeIngredient binds a recipe to a catalog ingredient with the
// quantity the recipe actually uses. Unit may differ from the ingredient's
// canonical unit. The full set is replaced on every recipe update.
type RecipeIngredient struct {
	ID           string  `gorm:"primaryKey;size:36" json:"id"`
	RecipeID     string  `gorm:"size:36;not null;index" json:"recipeId"`
	IngredientID string  `gorm:"size:36;not null;index" json:"ingredientId"`
	Quantity     float64 `gorm:"not null" json:"quantity"`
	Unit         string  `gorm:"size:50;not null" json:"unit"`
	Notes        string  `gorm:"size:255" json:"notes,omitempty"`

	Ingredient Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient"`
}

func (ri *RecipeIngredient) BeforeCreate(tx *gorm.DB) error {
	if ri.ID == "" {
		ri.ID = uuid.NewString()
	}
	return nil
}
