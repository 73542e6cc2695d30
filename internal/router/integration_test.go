package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paloma-store/internal/address"
	"paloma-store/internal/cart"
	"paloma-store/internal/config"
	"paloma-store/internal/generation"
	"paloma-store/internal/handler"
	"paloma-store/internal/migrate"
	"paloma-store/internal/model"
	"paloma-store/internal/repository"
	"paloma-store/internal/service"
	"paloma-store/internal/session"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

// setupTestDB starts PostgreSQL with the schema applied.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, migrate.Up(ctx, pool, zerolog.Nop()))
	return pool
}

// viaCEPStub answers every code with an address in Vila Velha.
func viaCEPStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"cep": "29101-010", "logradouro": "Rua Sete de Setembro", "bairro": "Centro", "localidade": "Vila Velha", "uf": "ES"}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setupTestServer(t *testing.T, pool *pgxpool.Pool, lookupURL string) http.Handler {
	t.Helper()
	logger := zerolog.Nop()

	productRepo := repository.NewProductRepository(pool, logger)
	categoryRepo := repository.NewCategoryRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)

	store, err := session.NewStore(config.SessionConfig{
		Secret: "0123456789abcdef0123456789abcdef",
		Store:  "filesystem",
		Dir:    t.TempDir(),
		MaxAge: 3600,
	})
	require.NoError(t, err)
	sessions := session.NewManager(store, "paloma_session", logger)

	resolver := address.NewResolver(
		address.NewViaCEPClient(lookupURL, time.Second, logger),
		address.DefaultShippingTable(),
		2*time.Second,
		logger,
	)

	productService := service.NewProductService(productRepo, logger)
	categoryService := service.NewCategoryService(categoryRepo, productRepo, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, resolver, logger)
	authService := service.NewAuthService(userRepo, bcrypt.MinCost, logger)
	reconciler := cart.NewReconciler(productService, generation.NewTracker(), time.Second, logger)

	return New(Handlers{
		Products:   handler.NewProductHandler(productService, logger),
		Categories: handler.NewCategoryHandler(categoryService, logger),
		Cart:       handler.NewCartHandler(sessions, productService, reconciler, logger),
		Orders:     handler.NewOrderHandler(orderService, resolver, sessions, logger),
		Auth:       handler.NewAuthHandler(authService, sessions, logger),
		Uploads:    handler.NewUploadHandler(nil, logger),
	}, sessions, Options{AllowedOrigin: "*", StoreTimeout: 5 * time.Second}, logger)
}

// browser keeps the latest value of every cookie across requests.
type browser struct {
	t       *testing.T
	server  http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, server http.Handler) *browser {
	return &browser{t: t, server: server, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, target, body string) *httptest.ResponseRecorder {
	b.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	b.server.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCheckout_Integration(t *testing.T) {
	pool := setupTestDB(t)
	server := setupTestServer(t, pool, viaCEPStub(t).URL)
	ctx := context.Background()

	now := time.Now().UTC()
	dress := model.Product{
		ID:        uuid.New(),
		Name:      "Vestido Midi",
		Price:     decimal.RequireFromString("99.90"),
		Stock:     2,
		Images:    []string{"https://img.example.com/vestido.webp"},
		Sizes:     []string{"P", "M"},
		Colors:    []string{"Preto"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repository.NewProductRepository(pool, zerolog.Nop()).Create(ctx, &dress))

	shopper := newBrowser(t, server)

	rec := shopper.do(http.MethodPost, "/api/auth/sign-up", `{"name": "Ana", "email": "Ana@Example.com", "password": "segredo"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode[model.User](t, rec)
	assert.Equal(t, "ana@example.com", user.Email)

	addBody := fmt.Sprintf(`{"productId": %q, "selectedSize": "M", "selectedColor": "Preto"}`, dress.ID)
	for i := 0; i < 2; i++ {
		rec = shopper.do(http.MethodPost, "/api/cart/items", addBody)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec = shopper.do(http.MethodPost, "/api/cart/items", addBody)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = shopper.do(http.MethodGet, "/api/checkout/postal-codes/29101-010", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resolved := decode[model.ResolvedAddress](t, rec)
	assert.True(t, resolved.ShippingCost.Equal(decimal.RequireFromString("12.00")))
	assert.True(t, resolved.Locks.City)

	t.Run("Edited locked field is rejected", func(t *testing.T) {
		rec := shopper.do(http.MethodPost, "/api/checkout/orders", `{
			"address": {"cep": "29101010", "street": "Rua Sete de Setembro", "number": "120", "neighborhood": "Centro", "city": "Vitória", "state": "ES"},
			"paymentMethod": "pix"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, model.ErrCodeFieldLocked, decode[model.ErrorResponse](t, rec).Error)
	})

	rec = shopper.do(http.MethodPost, "/api/checkout/orders", `{
		"address": {"cep": "29101-010", "street": "Rua Sete de Setembro", "number": "120", "neighborhood": "Centro", "city": "Vila Velha", "state": "ES"},
		"paymentMethod": "pix"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[model.OrderResponse](t, rec)
	assert.Equal(t, model.StatusPending, order.Status)
	assert.Equal(t, user.ID, order.UserID)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("199.80")))
	assert.True(t, order.GrandTotal.Equal(decimal.RequireFromString("211.80")))
	require.Len(t, order.Items, 2)
	for _, item := range order.Items {
		assert.Equal(t, 1, item.Quantity)
		assert.Equal(t, "M", item.SelectedSize)
	}

	rec = shopper.do(http.MethodGet, "/api/cart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[model.CartView](t, rec).Count)

	rec = shopper.do(http.MethodGet, "/api/products/"+dress.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[model.ProductView](t, rec).Stock)

	rec = shopper.do(http.MethodGet, "/api/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Order](t, rec), 1)

	statusURL := "/api/admin/orders/" + order.ID.String() + "/status"
	rec = shopper.do(http.MethodPatch, statusURL, `{"status": "paid"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	t.Run("Admin moves the order along", func(t *testing.T) {
		require.NoError(t, repository.NewUserRepository(pool, zerolog.Nop()).SetRole(ctx, "ana@example.com", model.RoleAdmin))
		admin := newBrowser(t, server)
		rec := admin.do(http.MethodPost, "/api/auth/sign-in", `{"email": "ana@example.com", "password": "segredo"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = admin.do(http.MethodPatch, statusURL, `{"status": "paid"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		paid := decode[model.OrderResponse](t, rec)
		assert.Equal(t, model.StatusPaid, paid.Status)
		assert.Equal(t, []model.OrderStatus{model.StatusShipped, model.StatusCancelled}, paid.NextStatuses)

		rec = admin.do(http.MethodPatch, statusURL, `{"status": "pending"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, model.ErrCodeInvalidTransition, decode[model.ErrorResponse](t, rec).Error)
	})
}
