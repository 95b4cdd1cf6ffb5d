// internal/app/features/memberships/routes.go
package memberships

import (
	"github.com/dalemusser/fellowship/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// Everything under /api/memberships requires authentication
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		// SELF SERVICE
		pr.Post("/groups/{groupID}/join", h.HandleJoin)
		pr.Post("/groups/{groupID}/leave", h.HandleLeave)

		// LEADER ACTIONS
		pr.Get("/groups/{groupID}/members", h.ServeMembers)
		pr.Post("/groups/{groupID}/members/{userID}/promote", h.HandlePromote)
		pr.Post("/groups/{groupID}/members/{userID}/demote", h.HandleDemote)
		pr.Post("/groups/{groupID}/members/{userID}/remove", h.HandleRemove)

		// JOIN REQUESTS
		pr.Post("/groups/{groupID}/requests/{userID}/approve", h.HandleApproveRequest)
		pr.Post("/groups/{groupID}/requests/{userID}/decline", h.HandleDeclineRequest)

		// NOTES
		pr.Get("/{membershipID}/notes", h.ServeNotes)
		pr.Post("/{membershipID}/notes", h.HandleAddNote)
	})

	return r
}
