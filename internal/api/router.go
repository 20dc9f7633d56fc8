package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/najdeno/internal/attachments"
	"github.com/erazemk/najdeno/internal/clock"
	"github.com/erazemk/najdeno/internal/ledger"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	DB          *sql.DB
	JWTSecret   string
	Ledger      *ledger.Ledger
	Attachments attachments.Store
	Clock       clock.Clock
	// ClaimLimiter throttles claim submission. Nil disables throttling.
	ClaimLimiter *RateLimiter
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: d.DB, JWTSecret: d.JWTSecret, Clock: d.Clock}
	itemsHandler := &ItemsHandler{DB: d.DB, Ledger: d.Ledger, Attachments: d.Attachments, Clock: d.Clock}
	claimsHandler := &ClaimsHandler{Ledger: d.Ledger, Attachments: d.Attachments}
	attachmentsHandler := &AttachmentsHandler{DB: d.DB, Attachments: d.Attachments}

	authMW := AuthMiddleware(d.JWTSecret, d.DB)
	limit := func(h http.Handler) http.Handler { return h }
	if d.ClaimLimiter != nil {
		limit = d.ClaimLimiter.Handler
	}

	mux.HandleFunc("GET /health", Health(d.DB))

	// Public: account creation and login.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Items. Browsing is public.
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("GET /api/items/mine", authMW(http.HandlerFunc(itemsHandler.Mine)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.Handle("PUT /api/items/{id}/resolve", authMW(http.HandlerFunc(itemsHandler.Resolve)))

	// Claims.
	mux.Handle("POST /api/items/{id}/claims", authMW(limit(http.HandlerFunc(claimsHandler.Submit))))
	mux.Handle("GET /api/items/{id}/claims", authMW(http.HandlerFunc(claimsHandler.ListForItem)))
	mux.Handle("GET /api/claims/mine", authMW(http.HandlerFunc(claimsHandler.Mine)))
	mux.Handle("PUT /api/claims/{id}/approve", authMW(http.HandlerFunc(claimsHandler.Approve)))
	mux.Handle("PUT /api/claims/{id}/reject", authMW(http.HandlerFunc(claimsHandler.Reject)))

	// Proof photos.
	mux.Handle("GET /api/attachments/{id}", authMW(http.HandlerFunc(attachmentsHandler.Get)))

	return mux
}

// Health handles GET /health.
func Health(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
