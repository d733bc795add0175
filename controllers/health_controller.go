package controllers

import (
	"net/http"
	"time"
)

type HealthController struct {
	env string
}

func NewHealthController(env string) *HealthController {
	return &HealthController{env: env}
}

func (c *HealthController) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "Recipe Planner API is running!",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": c.env,
	})
}
