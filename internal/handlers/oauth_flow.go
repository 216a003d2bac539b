package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"naturequest/internal/security"
)

const (
	stateCookie = "oauth_state"
	nonceCookie = "oauth_nonce"
	oauthTTL    = 10 * time.Minute
)

// StartMicrosoftLogin sends the browser to the Azure AD authorize endpoint
func (h *AuthHandler) StartMicrosoftLogin(w http.ResponseWriter, r *http.Request) {
	if !h.authService.OAuthEnabled() {
		respondWithError(w, http.StatusBadRequest, "Microsoft login is not configured", "", nil)
		return
	}

	state := security.NewOpaqueToken()
	nonce := security.NewOpaqueToken()

	authURL, err := h.authService.AuthCodeURL(state, nonce, h.oauthRedirectURL(r))
	if err != nil {
		respondWithServiceError(w, err, "Error building authorize URL")
		return
	}

	http.SetCookie(w, security.TempCookie(r, stateCookie, state, oauthTTL))
	http.SetCookie(w, security.TempCookie(r, nonceCookie, nonce, oauthTTL))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// MicrosoftCallback completes the code flow and hands out a session token
func (h *AuthHandler) MicrosoftCallback(w http.ResponseWriter, r *http.Request) {
	if !h.authService.OAuthEnabled() {
		respondWithError(w, http.StatusBadRequest, "Microsoft login is not configured", "", nil)
		return
	}

	q := r.URL.Query()
	if errCode := q.Get("error"); errCode != "" {
		respondWithError(w, http.StatusUnauthorized, "Microsoft login failed", "OAuth error", errors.New(errCode+": "+q.Get("error_description")))
		return
	}
	code := q.Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "Missing authorization code", "", nil)
		return
	}

	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || state.Value != q.Get("state") {
		respondWithError(w, http.StatusBadRequest, "Invalid OAuth state", "", nil)
		return
	}
	nonce := ""
	if c, err := r.Cookie(nonceCookie); err == nil {
		nonce = c.Value
	}

	http.SetCookie(w, security.DeleteCookie(r, stateCookie))
	http.SetCookie(w, security.DeleteCookie(r, nonceCookie))

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	principal, token, err := h.authService.CompleteLogin(ctx, code, h.oauthRedirectURL(r), nonce)
	if err != nil {
		respondWithServiceError(w, err, "Error completing Microsoft login")
		return
	}
	log.Printf("Login: %s (%s)", principal.Email, principal.Role)

	if h.appBaseURL != "" {
		fragment := url.Values{"token": {token}}.Encode()
		http.Redirect(w, r, h.appBaseURL+"/#"+fragment, http.StatusSeeOther)
		return
	}
	respond(w, http.StatusOK, map[string]any{"token": token, "principal": principal}, "login successful")
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return strings.TrimRight(baseURL, "/") + "/auth/microsoft/callback"
}
