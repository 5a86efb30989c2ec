package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"greencycle/internal/cache"
	"greencycle/internal/handler"
	"greencycle/internal/httputil"
	"greencycle/internal/model"
	"greencycle/internal/repository"
	authmw "greencycle/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler   *handler.AuthHandler
	CouponHandler *handler.CouponHandler
	PointsHandler *handler.PointsHandler
	WasteHandler  *handler.WasteHandler
	MediaHandler  *handler.MediaHandler

	DeviceBindings repository.DeviceBindingRepository
	NonceCache     cache.NonceCache

	JWTSecret        string
	SignatureMaxSkew time.Duration
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// Health check endpoint (useful for deployment/monitoring)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
	})

	// Public coupon listing
	r.Get("/coupons", cfg.CouponHandler.List)

	// Protected routes - require a bearer token
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		signed := authmw.SignatureMiddleware(cfg.DeviceBindings, cfg.NonceCache, cfg.SignatureMaxSkew)

		r.Get("/me", cfg.AuthHandler.Me)
		r.Post("/auth/rotate-device-secret", cfg.AuthHandler.RotateDeviceSecret)

		r.Get("/points/balance", cfg.PointsHandler.Balance)

		// Point-spending operations additionally require a valid device
		// signature.
		r.With(signed).Post("/coupons/redeem", cfg.CouponHandler.Redeem)
		r.With(authmw.RequireRoles(model.RoleBusiness, model.RoleAdmin)).
			Post("/coupons/verify", cfg.CouponHandler.Verify)

		r.With(signed).Post("/waste/submit", cfg.WasteHandler.Submit)
		r.With(authmw.RequireRoles(model.RoleAdmin)).
			Post("/waste/{id}/review", cfg.WasteHandler.Review)

		if cfg.MediaHandler != nil {
			r.Post("/media/waste/upload", cfg.MediaHandler.UploadWastePhoto)
		}
	})

	return r
}
