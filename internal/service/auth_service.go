package service

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"naturequest/internal/config"
	"naturequest/internal/models"
)

var (
	ErrInvalidToken     = errors.New("invalid session token")
	ErrDomainNotAllowed = errors.New("email domain is not allowed")
	ErrOAuthDisabled    = errors.New("microsoft login is not configured")
	ErrInvalidIDToken   = errors.New("invalid microsoft id token")
)

const sessionIssuer = "naturequest"

// sessionClaims is the payload of the HS256 session token
type sessionClaims struct {
	jwt.RegisteredClaims
	Email  string      `json:"email"`
	Name   string      `json:"name"`
	Role   models.Role `json:"role"`
	Groups []string    `json:"groups,omitempty"`
}

// azureClaims are the id_token claims used from Azure AD v2.0
type azureClaims struct {
	jwt.RegisteredClaims
	ObjectID          string   `json:"oid"`
	Email             string   `json:"email"`
	PreferredUsername string   `json:"preferred_username"`
	Name              string   `json:"name"`
	Nonce             string   `json:"nonce"`
	Groups            []string `json:"groups"`
}

// AuthService issues session tokens and completes the Azure AD login
type AuthService struct {
	secret          []byte
	sessionDuration time.Duration
	allowedDomains  []string
	teacherGroups   []string
	adminGroups     []string

	oauth      *oauth2.Config
	keysURL    string
	httpClient *http.Client
	users      *UserService

	keysMu sync.Mutex
	keys   map[string]*rsa.PublicKey

	now func() time.Time
}

// NewAuthService creates a new auth service. users may be nil, in which case
// logins are not mirrored into the users table.
func NewAuthService(cfg *config.Config, users *UserService) *AuthService {
	s := &AuthService{
		secret:          []byte(cfg.JWTSecret),
		sessionDuration: cfg.SessionDuration,
		allowedDomains:  normalizeDomains(cfg.AllowedEmailDomains),
		teacherGroups:   cfg.TeacherGroups,
		adminGroups:     cfg.AdminGroups,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		users:           users,
		keys:            map[string]*rsa.PublicKey{},
		now:             time.Now,
	}

	if cfg.OAuthEnabled() {
		s.oauth = &oauth2.Config{
			ClientID:     cfg.AzureClientID,
			ClientSecret: cfg.AzureClientSecret,
			Endpoint:     microsoft.AzureADEndpoint(cfg.AzureTenantID),
			Scopes:       []string{"openid", "profile", "email"},
		}
		s.keysURL = fmt.Sprintf("https://login.microsoftonline.com/%s/discovery/v2.0/keys", cfg.AzureTenantID)
	}

	return s
}

// OAuthEnabled reports whether the Microsoft login routes are usable
func (s *AuthService) OAuthEnabled() bool {
	return s.oauth != nil
}

// IssueToken signs a session token for p
func (s *AuthService) IssueToken(p models.Principal) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.sessionDuration)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:  p.Email,
		Name:   p.Name,
		Role:   p.Role,
		Groups: p.Groups,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseToken validates a session token and returns its principal
func (s *AuthService) ParseToken(raw string) (*models.Principal, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.now),
	)
	claims := &sessionClaims{}
	token, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}

	return &models.Principal{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Role:    claims.Role,
		Groups:  claims.Groups,
	}, nil
}

// RoleForGroups maps directory groups to a role: admin groups win over
// teacher groups, everyone else is a student
func (s *AuthService) RoleForGroups(groups []string) models.Role {
	has := func(configured []string) bool {
		for _, g := range groups {
			if slices.Contains(configured, strings.ToLower(strings.TrimSpace(g))) {
				return true
			}
		}
		return false
	}

	switch {
	case has(s.adminGroups):
		return models.RoleAdmin
	case has(s.teacherGroups):
		return models.RoleTeacher
	default:
		return models.RoleStudent
	}
}

// EmailAllowed checks the institutional domain allowlist. An empty list allows every address.
func (s *AuthService) EmailAllowed(email string) bool {
	if len(s.allowedDomains) == 0 {
		return true
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, domain := range s.allowedDomains {
		if strings.HasSuffix(email, domain) {
			return true
		}
	}
	return false
}

// AuthCodeURL builds the Azure AD authorization URL
func (s *AuthService) AuthCodeURL(state, nonce, redirectURL string) (string, error) {
	if s.oauth == nil {
		return "", ErrOAuthDisabled
	}
	cfg := *s.oauth
	cfg.RedirectURL = redirectURL
	return cfg.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("response_mode", "query"),
	), nil
}

// CompleteLogin exchanges the authorization code, verifies the id_token and
// returns the principal with a signed session token
func (s *AuthService) CompleteLogin(ctx context.Context, code, redirectURL, nonce string) (*models.Principal, string, error) {
	if s.oauth == nil {
		return nil, "", ErrOAuthDisabled
	}
	cfg := *s.oauth
	cfg.RedirectURL = redirectURL

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to exchange code: %w", err)
	}
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return nil, "", fmt.Errorf("%w: missing id_token", ErrInvalidIDToken)
	}

	claims, err := s.verifyIDToken(ctx, idToken, nonce)
	if err != nil {
		return nil, "", err
	}
	principal, err := s.principalFromClaims(claims)
	if err != nil {
		return nil, "", err
	}

	if s.users != nil {
		_, _, err := s.users.Upsert(ctx, models.UpsertUser{
			ID:    principal.Subject,
			Email: principal.Email,
			Name:  principal.Name,
			Role:  principal.Role,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to record login: %w", err)
		}
	}

	signed, _, err := s.IssueToken(*principal)
	if err != nil {
		return nil, "", err
	}
	return principal, signed, nil
}

func (s *AuthService) principalFromClaims(claims *azureClaims) (*models.Principal, error) {
	email := claims.Email
	if email == "" {
		email = claims.PreferredUsername
	}
	if email == "" {
		return nil, fmt.Errorf("%w: no email claim", ErrInvalidIDToken)
	}
	if !s.EmailAllowed(email) {
		return nil, ErrDomainNotAllowed
	}

	subject := claims.ObjectID
	if subject == "" {
		subject = claims.Subject
	}
	name := claims.Name
	if name == "" {
		name = strings.Split(email, "@")[0]
	}

	return &models.Principal{
		Subject: subject,
		Email:   strings.ToLower(email),
		Name:    name,
		Role:    s.RoleForGroups(claims.Groups),
		Groups:  claims.Groups,
	}, nil
}

func (s *AuthService) verifyIDToken(ctx context.Context, raw, nonce string) (*azureClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(s.oauth.ClientID),
		jwt.WithTimeFunc(s.now),
	)
	claims := &azureClaims{}
	token, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing key id")
		}
		return s.publicKey(ctx, kid)
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	if !strings.HasPrefix(claims.Issuer, "https://login.microsoftonline.com/") || !strings.HasSuffix(claims.Issuer, "/v2.0") {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidIDToken, claims.Issuer)
	}
	if nonce != "" && claims.Nonce != nonce {
		return nil, fmt.Errorf("%w: nonce mismatch", ErrInvalidIDToken)
	}
	return claims, nil
}

type jwkSet struct {
	Keys []struct {
		Kid string `json:"kid"`
		Kty string `json:"kty"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

// publicKey returns the tenant signing key kid, refreshing the cached key
// set when kid is unknown
func (s *AuthService) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()

	if key, ok := s.keys[kid]; ok {
		return key, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.keysURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signing keys: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch signing keys: status %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to decode signing keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		n, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			continue
		}
		e, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(n),
			E: int(new(big.Int).SetBytes(e).Int64()),
		}
	}
	s.keys = keys

	key, ok := keys[kid]
	if !ok {
		return nil, fmt.Errorf("signing key %s not found", kid)
	}
	return key, nil
}

// normalizeDomains turns "escola.edu.br" and "@escola.edu.br" into "@escola.edu.br"
func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "@")
		if d != "" {
			out = append(out, "@"+d)
		}
	}
	return out
}
