package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"warung/internal/handlers"
	"warung/internal/middleware"
	"warung/internal/models"
	"warung/internal/notifier"
	"warung/internal/repositories"
	"warung/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbCounter int64

// setupApp sets up a Fiber app for testing with an in-memory SQLite catalog,
// an in-memory order registry, and all handlers/services wired together.
// Users listed in adminUsernames get admin rights.
func setupApp(proofTimeout time.Duration, adminUsernames ...string) (*fiber.App, error) {
	// Each test gets its own shared-cache database so they don't see each
	// other's rows.
	dsn := fmt.Sprintf("file:handlers_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to in-memory database: %w", err)
	}

	if err := db.AutoMigrate(&models.Product{}, &models.User{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	orderRegistry := repositories.NewMemoryOrderRegistry()

	authService := services.NewAuthService(userRepo, "test_jwt_secret", adminUsernames)
	catalogService := services.NewCatalogService(productRepo)
	orderService := services.NewOrderService(orderRegistry, productRepo, notifier.NewLogNotifier(), authService, nil,
		services.OrderServiceConfig{
			ProofTimeout: proofTimeout,
			Instructions: "Transfer to account 123-456.",
		})

	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(catalogService)
	orderHandler := handlers.NewOrderHandler(orderService)

	app := fiber.New()
	apiV1 := app.Group("/api/v1")

	authHandler.RegisterRoutes(apiV1)

	protectedRoutes := apiV1.Group("", middleware.AuthRequired(authService))
	productHandler.RegisterRoutes(protectedRoutes)
	orderHandler.RegisterRoutes(protectedRoutes)

	return app, nil
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func registerAndLogin(t *testing.T, app *fiber.App, username string) string {
	t.Helper()

	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestUnauthenticatedAccess(t *testing.T) {
	app, err := setupApp(time.Minute)
	require.NoError(t, err)

	status, _ := doJSON(t, app, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders/checkout", "", map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestOrderFlowAcceptIntegration(t *testing.T) {
	app, err := setupApp(time.Minute, "admin")
	require.NoError(t, err)

	adminToken := registerAndLogin(t, app, "admin")
	buyerToken := registerAndLogin(t, app, "buyer")

	// Admin lists a product with a delivery payload.
	status, body := doJSON(t, app, http.MethodPost, "/api/v1/products", adminToken, map[string]any{
		"name":        "Game Voucher",
		"description": "Digital voucher",
		"price":       100000,
		"stock":       10,
		"delivery":    "VOUCHER-CODE-123",
	})
	require.Equal(t, http.StatusCreated, status)
	productID, _ := body["id"].(string)
	require.NotEmpty(t, productID)

	// A buyer cannot list products with delivery payloads visible.
	status, body = doJSON(t, app, http.MethodGet, "/api/v1/products/"+productID, buyerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["delivery"], "delivery payload must be hidden from buyers")

	// Buyer selects and checks out 3 units.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders/select", buyerToken, map[string]string{
		"product_id": productID,
	})
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/orders/checkout", buyerToken, map[string]int{
		"quantity": 3,
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Transfer to account 123-456.", body["instructions"])
	order, ok := body["order"].(map[string]any)
	require.True(t, ok)
	orderID := int64(order["id"].(float64))
	assert.Equal(t, "awaiting_proof", order["status"])

	// Stock is reserved immediately.
	status, body = doJSON(t, app, http.MethodGet, "/api/v1/products/"+productID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(7), body["stock"])

	// The buyer cannot decide their own order.
	status, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/decision", orderID), buyerToken,
		map[string]string{"outcome": "accept"})
	assert.Equal(t, http.StatusForbidden, status)

	// Deciding before proof is submitted is a conflict.
	status, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/decision", orderID), adminToken,
		map[string]string{"outcome": "accept"})
	assert.Equal(t, http.StatusConflict, status)

	// Buyer submits payment proof.
	status, body = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/proof", orderID), buyerToken,
		map[string]string{"proof_ref": "photo-file-id-1"})
	require.Equal(t, http.StatusOK, status)
	order, ok = body["order"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "under_review", order["status"])

	// Admin accepts: the delivery payload is released, stock stays decremented.
	status, body = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/decision", orderID), adminToken,
		map[string]string{"outcome": "accept"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "VOUCHER-CODE-123", body["delivery"])

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/products/"+productID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(7), body["stock"])

	// Terminal orders are immutable.
	status, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/decision", orderID), adminToken,
		map[string]string{"outcome": "reject"})
	assert.Equal(t, http.StatusConflict, status)
}

func TestOrderFlowRejectIntegration(t *testing.T) {
	app, err := setupApp(time.Minute, "admin")
	require.NoError(t, err)

	adminToken := registerAndLogin(t, app, "admin")
	buyerToken := registerAndLogin(t, app, "buyer")

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/products", adminToken, map[string]any{
		"name":  "Streaming Account",
		"price": 55000,
		"stock": 5,
	})
	require.Equal(t, http.StatusCreated, status)
	productID, _ := body["id"].(string)

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders/select", buyerToken, map[string]string{
		"product_id": productID,
	})
	require.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, app, http.MethodPost, "/api/v1/orders/checkout", buyerToken, map[string]int{
		"quantity": 2,
	})
	require.Equal(t, http.StatusCreated, status)
	order := body["order"].(map[string]any)
	orderID := int64(order["id"].(float64))

	status, _ = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/proof", orderID), buyerToken,
		map[string]string{"proof_ref": "photo-file-id-2"})
	require.Equal(t, http.StatusOK, status)

	// Admin rejects: the reservation is returned.
	status, body = doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/decision", orderID), adminToken,
		map[string]string{"outcome": "reject"})
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body["delivery"])

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/products/"+productID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(5), body["stock"])
}

func TestCheckoutValidationIntegration(t *testing.T) {
	app, err := setupApp(time.Minute, "admin")
	require.NoError(t, err)

	adminToken := registerAndLogin(t, app, "admin")
	buyerToken := registerAndLogin(t, app, "buyer")

	status, body := doJSON(t, app, http.MethodPost, "/api/v1/products", adminToken, map[string]any{
		"name":  "E-book Bundle",
		"price": 25000,
		"stock": 2,
	})
	require.Equal(t, http.StatusCreated, status)
	productID, _ := body["id"].(string)

	// Checkout without selection.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders/checkout", buyerToken, map[string]int{
		"quantity": 1,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// Checkout above available stock.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders/select", buyerToken, map[string]string{
		"product_id": productID,
	})
	require.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders/checkout", buyerToken, map[string]int{
		"quantity": 3,
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = doJSON(t, app, http.MethodGet, "/api/v1/products/"+productID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["stock"], "failed checkouts must not touch stock")

	// Unknown product on select.
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/orders/select", buyerToken, map[string]string{
		"product_id": "3f7c33ba-0000-0000-0000-000000000000",
	})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestProductAdminGateIntegration(t *testing.T) {
	app, err := setupApp(time.Minute, "admin")
	require.NoError(t, err)

	buyerToken := registerAndLogin(t, app, "buyer")

	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/products", buyerToken, map[string]any{
		"name":  "Not Allowed",
		"price": 1000,
		"stock": 1,
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/v1/products/mine", buyerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}
