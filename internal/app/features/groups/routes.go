// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/fellowship/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// Everything under /api/groups requires authentication
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		// LIST / CREATE
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)

		// BATCH
		pr.Post("/batch-approve", h.HandleBatchApprove)

		// VIEW
		pr.Get("/{id}", h.ServeGroup)

		// STATUS
		pr.Post("/{id}/approve", h.HandleApprove)
		pr.Post("/{id}/decline", h.HandleDecline)
		pr.Post("/{id}/close", h.HandleClose)
	})

	return r
}
