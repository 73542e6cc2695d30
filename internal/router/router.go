package router

import (
	"net/http"
	"strings"
	"time"

	"paloma-store/internal/handler"
	"paloma-store/internal/middleware"
	"paloma-store/internal/model"
	"paloma-store/internal/session"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers the router dispatches to.
type Handlers struct {
	Products   *handler.ProductHandler
	Categories *handler.CategoryHandler
	Cart       *handler.CartHandler
	Orders     *handler.OrderHandler
	Auth       *handler.AuthHandler
	Uploads    *handler.UploadHandler
}

// Options holds the router settings taken from configuration.
type Options struct {
	AllowedOrigin string
	StoreTimeout  time.Duration
	// UploadDir is served under UploadURL when UploadURL is a local path.
	UploadDir string
	UploadURL string
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, sessions *session.Manager, opts Options, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	signedIn := middleware.RequireSignIn(logger)
	admin := middleware.RequireRole(model.RoleAdmin, logger)
	guard := func(mw func(http.Handler) http.Handler, fn http.HandlerFunc) http.Handler {
		return mw(fn)
	}

	// Catalogue
	mux.HandleFunc("GET /api/products", h.Products.List)
	mux.HandleFunc("GET /api/products/featured", h.Products.Featured)
	mux.HandleFunc("GET /api/products/{id}", h.Products.GetByID)
	mux.HandleFunc("GET /api/categories", h.Categories.List)
	mux.HandleFunc("GET /api/categories/featured", h.Categories.Featured)
	mux.HandleFunc("GET /api/categories/{id}", h.Categories.GetByID)

	// Cart
	mux.HandleFunc("GET /api/cart", h.Cart.Get)
	mux.HandleFunc("DELETE /api/cart", h.Cart.Clear)
	mux.HandleFunc("POST /api/cart/items", h.Cart.Add)
	mux.HandleFunc("PATCH /api/cart/items/{cartId}", h.Cart.Update)
	mux.HandleFunc("DELETE /api/cart/items/{cartId}", h.Cart.Remove)

	// Checkout
	mux.HandleFunc("GET /api/checkout/postal-codes/{cep}", h.Orders.LookupPostalCode)
	mux.Handle("POST /api/checkout/orders", guard(signedIn, h.Orders.Create))

	// Customer orders
	mux.Handle("GET /api/orders", guard(signedIn, h.Orders.List))
	mux.Handle("GET /api/orders/{id}", guard(signedIn, h.Orders.GetByID))

	// Accounts
	mux.HandleFunc("POST /api/auth/sign-up", h.Auth.SignUp)
	mux.HandleFunc("POST /api/auth/sign-in", h.Auth.SignIn)
	mux.HandleFunc("POST /api/auth/sign-out", h.Auth.SignOut)
	mux.HandleFunc("GET /api/auth/session", h.Auth.Session)

	// Back office
	mux.Handle("POST /api/admin/products", guard(admin, h.Products.Create))
	mux.Handle("PUT /api/admin/products/{id}", guard(admin, h.Products.Update))
	mux.Handle("DELETE /api/admin/products/{id}", guard(admin, h.Products.Delete))
	mux.Handle("PUT /api/admin/products/{id}/featured", guard(admin, h.Products.SetFeatured))
	mux.Handle("POST /api/admin/categories", guard(admin, h.Categories.Create))
	mux.Handle("PUT /api/admin/categories/{id}", guard(admin, h.Categories.Update))
	mux.Handle("DELETE /api/admin/categories/{id}", guard(admin, h.Categories.Delete))
	mux.Handle("PUT /api/admin/categories/{id}/featured", guard(admin, h.Categories.SetFeatured))
	mux.Handle("GET /api/admin/orders", guard(admin, h.Orders.List))
	mux.Handle("GET /api/admin/orders/{id}", guard(admin, h.Orders.GetByID))
	mux.Handle("PATCH /api/admin/orders/{id}/status", guard(admin, h.Orders.UpdateStatus))
	mux.Handle("POST /api/admin/uploads/{kind}", guard(admin, h.Uploads.Upload))

	if opts.UploadDir != "" && strings.HasPrefix(opts.UploadURL, "/") {
		prefix := strings.TrimRight(opts.UploadURL, "/") + "/"
		mux.Handle("GET "+prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(opts.UploadDir))))
	}

	// Apply middleware in order: Recovery -> Logging -> CORS -> Timeout -> Authenticate
	var handler http.Handler = mux
	handler = middleware.Authenticate(sessions)(handler)
	handler = middleware.Timeout(opts.StoreTimeout)(handler)
	handler = middleware.CORS(opts.AllowedOrigin)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
