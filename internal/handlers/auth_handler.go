package handlers

import (
	"net/http"

	"naturequest/internal/models"
	"naturequest/internal/roster"
	"naturequest/internal/service"
)

// AuthHandler handles the Microsoft login and the caller profile
type AuthHandler struct {
	authService          *service.AuthService
	store                *roster.Store
	oauthRedirectBaseURL string
	appBaseURL           string
}

// NewAuthHandler creates a new auth handler. After a login the browser is
// sent to appBaseURL with the session token in the fragment; an empty
// appBaseURL answers with JSON instead.
func NewAuthHandler(authService *service.AuthService, store *roster.Store, oauthRedirectBaseURL, appBaseURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		store:                store,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		appBaseURL:           appBaseURL,
	}
}

type profileView struct {
	Principal *models.Principal `json:"principal"`
	Student   *StudentView      `json:"student,omitempty"`
}

// Profile returns the current principal and, for students, their roster profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	principal := GetPrincipalFromContext(r.Context())
	view := profileView{Principal: principal}

	if principal.Role == models.RoleStudent && h.store != nil {
		if st, err := h.store.StudentByEmail(principal.Email); err == nil {
			sv := newStudentView(st)
			view.Student = &sv
		}
	}
	respond(w, http.StatusOK, view, "")
}
