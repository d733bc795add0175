package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/pwest1/recipe-meal-planner/middleware"
	"github.com/pwest1/recipe-meal-planner/services"
)

// AuthController serves the authenticated user's profile. The user row is
// created lazily on first access.
type AuthController struct {
	users *services.UserService
}

func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{users: users}
}

func (c *AuthController) GetProfile(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	profile, err := c.users.GetOrCreateProfile(r.Context(), ident.Subject, ident.Email, ident.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (c *AuthController) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var patch services.ProfilePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := c.users.UpdateProfile(r.Context(), ident.Subject, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
