package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"gorm.io/gorm"

	"github.com/pwest1/recipe-meal-planner/config"
	"github.com/pwest1/recipe-meal-planner/controllers"
	"github.com/pwest1/recipe-meal-planner/middleware"
	"github.com/pwest1/recipe-meal-planner/services"
)

// SetupRouter wires services, controllers and middleware onto the chi
// router. The DB handle is injected here and threaded down through
// constructors.
func SetupRouter(db *gorm.DB, cfg *config.Config) (*chi.Mux, error) {
	requireAuth, err := middleware.RequireAuth(cfg.Auth)
	if err != nil {
		return nil, err
	}

	healthController := controllers.NewHealthController(cfg.Env)
	authController := controllers.NewAuthController(services.NewUserService(db))
	recipeController := controllers.NewRecipeController(services.NewRecipeService(db))
	ingredientController := controllers.NewIngredientController(services.NewIngredientService(db))

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Recoverer(cfg.Env))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/api/health", healthController.Check)

	// Shared ingredient catalog, no auth required.
	r.Route("/api/ingredients", func(r chi.Router) {
		r.Get("/", ingredientController.List)
		r.Post("/", ingredientController.Create)
		r.Get("/{id}", ingredientController.Get)
		r.Put("/{id}", ingredientController.Update)
		r.Delete("/{id}", ingredientController.Delete)
	})

	// Owner-scoped resources behind the identity provider.
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/api/auth/profile", authController.GetProfile)
		r.Put("/api/auth/profile", authController.UpdateProfile)

		r.Route("/api/recipes", func(r chi.Router) {
			r.Get("/", recipeController.List)
			r.Post("/", recipeController.Create)
			r.Get("/{id}", recipeController.Get)
			r.Put("/{id}", recipeController.Update)
			r.Delete("/{id}", recipeController.Delete)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Route not found"}`))
	})

	return r, nil
}
