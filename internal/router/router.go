package router

import (
	"net/http"

	"cardvault-api/internal/handler"
	"cardvault-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler         *handler.Handler
	EconomyHandler  *handler.EconomyHandler
	AdminHandler    *handler.AdminHandler
	AuthMiddleware  func(http.Handler) http.Handler
	AdminMiddleware func(http.Handler) http.Handler
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", handler.DisplayNameHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// PUBLIC routes
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
		r.Get("/api/v1/health", cfg.Handler.Health)
		r.Get("/api/v1/ready", cfg.Handler.Ready)
	}

	// AUTHENTICATED routes
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			if h := cfg.EconomyHandler; h != nil {
				r.Route("/users/{user_id}", func(r chi.Router) {
					r.Use(h.RememberCaller)
					r.Get("/collection", h.GetCollection)
					r.Get("/stats", h.GetStats)
					r.Get("/trades", h.ListTrades)
					r.Get("/sacrifice", h.PreviewSacrifice)
					r.Post("/draws/daily", h.DrawDaily)
					r.Post("/draws/bonus", h.DrawBonus)
					r.Post("/draws/sacrifice", h.DrawSacrificial)
					r.Post("/vault/deposit", h.DepositToVault)
					r.Post("/vault/withdraw", h.WithdrawFromVault)
				})

				r.Route("/trades", func(r chi.Router) {
					r.Post("/", h.ProposeTrade)
					r.Post("/{trade_id}/accept", h.AcceptTrade)
					r.Post("/{trade_id}/decline", h.DeclineTrade)
					r.Post("/{trade_id}/cancel", h.CancelTrade)
				})

				r.Route("/board", func(r chi.Router) {
					r.Get("/", h.ListBoard)
					r.Post("/", h.DepositToBoard)
					r.Post("/{offer_id}/withdraw", h.WithdrawFromBoard)
					r.Post("/{offer_id}/accept", h.AcceptBoardOffer)
				})

				r.Get("/discoveries", h.GetDiscoveries)
			}

			if h := cfg.AdminHandler; h != nil {
				r.Route("/admin", func(r chi.Router) {
					if cfg.AdminMiddleware != nil {
						r.Use(cfg.AdminMiddleware)
					}
					r.Get("/stats", h.GetStats)
					r.Get("/health", h.GetHealth)
					r.Post("/trades/expire", h.ExpireTrades)
					r.Post("/users/{user_id}/bonus", h.GrantBonus)
					r.Post("/ledger/reload", h.ReloadLedger)
				})
			}
		})
	})

	return r
}
