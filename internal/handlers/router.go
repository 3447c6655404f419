package handlers

import (
	"net/http"
	"strings"

	"workhub/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(h.cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Post("/auth/register", h.Register)
	router.Post("/auth/login", h.Login)

	// Gateway callback, authenticated by signature rather than JWT.
	router.Post("/payments/webhook/monobank", h.MonobankWebhook)

	router.Get("/ws/payments", h.WSPayments)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))

		r.Get("/auth/me", h.Me)

		r.Post("/projects", h.CreateProject)
		r.Get("/projects/{projectID}", h.GetProject)
		r.Post("/projects/{projectID}/publish", h.PublishProject)
		r.Get("/projects/{projectID}/proposals", h.ProjectProposals)

		r.Post("/proposals", h.SubmitProposal)
		r.Get("/proposals/my", h.MyProposals)
		r.Post("/proposals/{proposalID}/accept", h.AcceptProposal)
		r.Post("/proposals/{proposalID}/withdraw", h.WithdrawProposal)

		r.Post("/payments/escrow/fund", h.FundEscrow)
		r.Post("/payments/escrow/release", h.ReleaseEscrow)
		r.Post("/payments/milestones/fund", h.FundMilestone)
		r.Post("/payments/milestones/release", h.ReleaseMilestone)
		r.Post("/payments/connects", h.PurchaseConnects)
		r.Post("/payments/subscription", h.PurchaseSubscription)
		r.Post("/payments/promotion", h.PromoteProfile)
		r.Post("/payments/withdrawals", h.RequestWithdrawal)
		r.Get("/payments/balance", h.Balance)
		r.Get("/payments/transactions", h.ListTransactions)
	})

	return router
}
