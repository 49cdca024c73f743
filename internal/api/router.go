package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/gebeya-labs/wallet-backend/internal/api/handlers"
	"github.com/gebeya-labs/wallet-backend/internal/auth"
	"github.com/gebeya-labs/wallet-backend/internal/config"
	"github.com/gebeya-labs/wallet-backend/internal/metrics"
	"github.com/gebeya-labs/wallet-backend/internal/middleware"
	"github.com/gebeya-labs/wallet-backend/internal/services"
)

type RouterDeps struct {
	Cfg           config.Config
	TokenManager  *auth.TokenManager
	UserSvc       *services.UserService
	WalletSvc     *services.WalletService
	DepositSvc    *services.DepositService
	WithdrawalSvc *services.WithdrawalService
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	authH := handlers.NewAuthHandler(d.UserSvc)
	walletH := handlers.NewWalletHandler(d.WalletSvc)
	depositH := handlers.NewDepositHandler(d.DepositSvc)
	withdrawalH := handlers.NewWithdrawalHandler(d.WithdrawalSvc)
	authMW := middleware.NewAuthMiddleware(d.TokenManager)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)

		// Provider server-to-server notification: unauthenticated by nature,
		// payload treated as a hint only.
		r.Post("/deposits/callback", depositH.Callback)
		r.Get("/deposits/callback", depositH.Callback)

		r.Group(func(r chi.Router) {
			r.Use(authMW.Auth)

			r.Get("/wallet", walletH.Current)
			r.Get("/transactions", walletH.History)
			r.Get("/transactions/{id}", walletH.Transaction)

			r.Post("/deposits", depositH.Initiate)
			r.Get("/deposits/verify/{txRef}", depositH.Verify)

			r.Post("/withdrawals", withdrawalH.Request)
			r.Get("/withdrawals", withdrawalH.List)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin"))
				r.Get("/admin/withdrawals", withdrawalH.ListPending)
				r.Post("/admin/withdrawals/{id}/approve", withdrawalH.Approve)
				r.Post("/admin/withdrawals/{id}/reject", withdrawalH.Reject)
			})
		})
	})

	return r
}
