package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pwest1/recipe-meal-planner/services"
)

type IngredientController struct {
	ingredients *services.IngredientService
}

func NewIngredientController(ingredients *services.IngredientService) *IngredientController {
	return &IngredientController{ingredients: ingredients}
}

func (c *IngredientController) List(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	category := r.URL.Query().Get("category")

	ingredients, err := c.ingredients.List(r.Context(), search, category)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ingredients)
}

func (c *IngredientController) Get(w http.ResponseWriter, r *http.Request) {
	ingredient, err := c.ingredients.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ingredient)
}

func (c *IngredientController) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateIngredientInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ingredient, err := c.ingredients.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ingredient)
}

func (c *IngredientController) Update(w http.ResponseWriter, r *http.Request) {
	var patch services.IngredientPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ingredient, err := c.ingredients.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ingredient)
}

func (c *IngredientController) Delete(w http.ResponseWriter, r *http.Request) {
	if err := c.ingredients.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Ingredient deleted"})
}
