package routes

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	jwt "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pwest1/recipe-meal-planner/config"
	"github.com/pwest1/recipe-meal-planner/database"
	"github.com/pwest1/recipe-meal-planner/models"
	"github.com/pwest1/recipe-meal-planner/services"
)

const (
	testIssuer   = "https://identity.test/"
	testAudience = "https://api.recipe-planner.test"
)

type testAPI struct {
	router *chi.Mux
	db     *gorm.DB
	key    *rsa.PrivateKey
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:        "0",
		Env:         "test",
		FrontendURL: "http://localhost:5173",
		Auth: config.AuthConfig{
			Issuer:       testIssuer,
			Audience:     testAudience,
			PublicKeyPEM: string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})),
		},
	}

	router, err := SetupRouter(db, cfg)
	require.NoError(t, err)

	return &testAPI{router: router, db: db, key: key}
}

func (a *testAPI) token(t *testing.T, subject string, extra map[string]interface{}) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": subject,
		"iss": testIssuer,
		"aud": testAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.key)
	require.NoError(t, err)
	return signed
}

func (a *testAPI) request(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)

	rr := api.request(t, "GET", "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	body := decode[map[string]string](t, rr)
	assert.Equal(t, "Recipe Planner API is running!", body["message"])
	assert.Equal(t, "test", body["environment"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestUnknownRoute(t *testing.T) {
	api := newTestAPI(t)

	rr := api.request(t, "GET", "/api/nope", nil, "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Route not found", decode[map[string]string](t, rr)["error"])
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/api/recipes", "/api/auth/profile"} {
		rr := api.request(t, "GET", path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}

	rr := api.request(t, "GET", "/api/recipes", nil, "bogus-token")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestIngredientEndpoints(t *testing.T) {
	api := newTestAPI(t)

	t.Run("create then duplicate", func(t *testing.T) {
		rr := api.request(t, "POST", "/api/ingredients", map[string]string{"name": "Flour", "unit": "cups"}, "")
		require.Equal(t, http.StatusCreated, rr.Code)
		created := decode[models.Ingredient](t, rr)
		assert.Equal(t, "Flour", created.Name)
		assert.NotEmpty(t, created.ID)

		rr = api.request(t, "POST", "/api/ingredients", map[string]string{"name": "Flour", "unit": "grams"}, "")
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		rr := api.request(t, "POST", "/api/ingredients", map[string]string{"name": "Sugar"}, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("list with search", func(t *testing.T) {
		rr := api.request(t, "POST", "/api/ingredients", map[string]string{"name": "Whole Milk", "unit": "ml", "category": "dairy"}, "")
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = api.request(t, "GET", "/api/ingredients?search=milk", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		list := decode[[]models.Ingredient](t, rr)
		require.Len(t, list, 1)
		assert.Equal(t, "Whole Milk", list[0].Name)

		rr = api.request(t, "GET", "/api/ingredients?category=dairy", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, decode[[]models.Ingredient](t, rr), 1)
	})

	t.Run("get update delete", func(t *testing.T) {
		rr := api.request(t, "POST", "/api/ingredients", map[string]string{"name": "Salt", "unit": "tsp"}, "")
		require.Equal(t, http.StatusCreated, rr.Code)
		salt := decode[models.Ingredient](t, rr)

		rr = api.request(t, "GET", "/api/ingredients/"+salt.ID, nil, "")
		require.Equal(t, http.StatusOK, rr.Code)

		rr = api.request(t, "PUT", "/api/ingredients/"+salt.ID, map[string]string{"category": "seasoning"}, "")
		require.Equal(t, http.StatusOK, rr.Code)
		updated := decode[models.Ingredient](t, rr)
		assert.Equal(t, "seasoning", updated.Category)
		assert.Equal(t, "Salt", updated.Name)

		rr = api.request(t, "DELETE", "/api/ingredients/"+salt.ID, nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Ingredient deleted", decode[map[string]string](t, rr)["message"])

		rr = api.request(t, "GET", "/api/ingredients/"+salt.ID, nil, "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestRecipeEndpoints(t *testing.T) {
	api := newTestAPI(t)
	tokenA := api.token(t, "auth0|user-a", nil)
	tokenB := api.token(t, "auth0|user-b", nil)

	pancakes := map[string]interface{}{
		"title":        "Pancakes",
		"instructions": "Mix. Cook.",
		"servings":     2,
		"ingredients": []map[string]interface{}{
			{
				"quantity":   1,
				"unit":       "cup",
				"ingredient": map[string]string{"name": "Flour", "unit": "cups"},
			},
		},
	}

	rr := api.request(t, "POST", "/api/recipes", pancakes, tokenA)
	require.Equal(t, http.StatusCreated, rr.Code)
	created := decode[models.Recipe](t, rr)
	assert.Equal(t, "auth0|user-a", created.UserID)
	assert.Equal(t, 2, created.Servings)
	require.Len(t, created.RecipeIngredients, 1)
	assert.Equal(t, "Flour", created.RecipeIngredients[0].Ingredient.Name)

	t.Run("missing title rejected", func(t *testing.T) {
		rr := api.request(t, "POST", "/api/recipes", map[string]string{"instructions": "Mix."}, tokenA)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("cross-user get is not found", func(t *testing.T) {
		rr := api.request(t, "GET", "/api/recipes/"+created.ID, nil, tokenB)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("owner list contains the recipe", func(t *testing.T) {
		rr := api.request(t, "GET", "/api/recipes", nil, tokenA)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, decode[[]models.Recipe](t, rr), 1)

		rr = api.request(t, "GET", "/api/recipes", nil, tokenB)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, decode[[]models.Recipe](t, rr))
	})

	t.Run("update with empty ingredients clears links", func(t *testing.T) {
		rr := api.request(t, "PUT", "/api/recipes/"+created.ID, map[string]interface{}{
			"ingredients": []interface{}{},
		}, tokenA)
		require.Equal(t, http.StatusOK, rr.Code)
		updated := decode[models.Recipe](t, rr)
		assert.NotNil(t, updated.RecipeIngredients)
		assert.Empty(t, updated.RecipeIngredients)
		assert.Equal(t, "Pancakes", updated.Title)
	})

	t.Run("delete", func(t *testing.T) {
		rr := api.request(t, "DELETE", "/api/recipes/"+created.ID, nil, tokenA)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Recipe deleted", decode[map[string]string](t, rr)["message"])

		rr = api.request(t, "DELETE", "/api/recipes/"+created.ID, nil, tokenA)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestIngredientDeleteBlockedByRecipe(t *testing.T) {
	api := newTestAPI(t)
	token := api.token(t, "auth0|cook", nil)

	rr := api.request(t, "POST", "/api/recipes", map[string]interface{}{
		"title":        "Bread",
		"instructions": "Knead. Bake.",
		"ingredients": []map[string]interface{}{
			{
				"quantity":   3,
				"unit":       "cups",
				"ingredient": map[string]string{"name": "Flour", "unit": "cups"},
			},
		},
	}, token)
	require.Equal(t, http.StatusCreated, rr.Code)
	recipe := decode[models.Recipe](t, rr)
	flourID := recipe.RecipeIngredients[0].IngredientID

	rr = api.request(t, "DELETE", "/api/ingredients/"+flourID, nil, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = api.request(t, "DELETE", "/api/recipes/"+recipe.ID, nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = api.request(t, "DELETE", "/api/ingredients/"+flourID, nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestProfileEndpoints(t *testing.T) {
	api := newTestAPI(t)

	t.Run("first fetch provisions the user", func(t *testing.T) {
		token := api.token(t, "auth0|newuser1", map[string]interface{}{
			"email": "new@example.com",
			"name":  "newbie",
		})

		rr := api.request(t, "GET", "/api/auth/profile", nil, token)
		require.Equal(t, http.StatusOK, rr.Code)

		profile := decode[services.Profile](t, rr)
		assert.Equal(t, "auth0|newuser1", profile.ID)
		assert.Equal(t, "newbie", profile.Username)
		assert.Equal(t, "new@example.com", profile.Email)
		assert.EqualValues(t, 0, profile.Count.Recipes)
	})

	t.Run("claimless token gets synthetic placeholders", func(t *testing.T) {
		token := api.token(t, "auth0|anon5678", nil)

		rr := api.request(t, "GET", "/api/auth/profile", nil, token)
		require.Equal(t, http.StatusOK, rr.Code)

		profile := decode[services.Profile](t, rr)
		assert.Equal(t, "user-anon5678", profile.Username)
		assert.Equal(t, "user-auth0|anon5678@placeholder", profile.Email)
	})

	t.Run("update username", func(t *testing.T) {
		token := api.token(t, "auth0|newuser1", nil)

		rr := api.request(t, "PUT", "/api/auth/profile", map[string]string{"username": "head-chef"}, token)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "head-chef", decode[services.Profile](t, rr).Username)
	})

	t.Run("taken username conflicts", func(t *testing.T) {
		token := api.token(t, "auth0|anon5678", nil)

		rr := api.request(t, "PUT", "/api/auth/profile", map[string]string{"username": "head-chef"}, token)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("empty username rejected", func(t *testing.T) {
		token := api.token(t, "auth0|anon5678", nil)

		rr := api.request(t, "PUT", "/api/auth/profile", map[string]string{"username": " "}, token)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
