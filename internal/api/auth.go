package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shoplane/shoplane-core/internal/audit"
	"github.com/shoplane/shoplane-core/internal/auth"
)

// registerRequest is the request body for POST /auth/register.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// credentialsRequest is the request body for POST /auth/login.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// refreshRequest is the request body for POST /auth/refresh.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// changePasswordRequest is the request body for POST /auth/password.
type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// sessionResponse is the response body for login and refresh.
type sessionResponse struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	TokenType    string             `json:"token_type"`
	ExpiresIn    int                `json:"expires_in"`
	User         identityResponse   `json:"user"`
	Permissions  auth.PermissionMap `json:"permissions"`
}

// identityResponse is the public view of an account.
type identityResponse struct {
	ID     int64       `json:"id"`
	Email  string      `json:"email"`
	RoleID *int64      `json:"role_id,omitempty"`
	Status auth.Status `json:"status"`
}

func toIdentityResponse(i *auth.Identity) identityResponse {
	return identityResponse{
		ID:     i.ID,
		Email:  i.Email,
		RoleID: i.RoleID,
		Status: i.Status,
	}
}

// handleRegister creates a new account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	identity, err := s.sessions.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeBadRequest(w, "invalid email or password")
			return
		}
		s.writeAuthError(w, err)
		return
	}

	s.recordAudit(r.Context(), nil, "auth.register", userTarget(identity.ID), nil)
	writeJSON(w, http.StatusCreated, toIdentityResponse(identity))
}

// handleLogin authenticates a user and opens a session. The refresh token in
// the response is shown exactly once; only its hash is stored.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	session, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			loginAttempts.WithLabelValues("invalid_credentials").Inc()
			s.recordAudit(r.Context(), nil, "auth.login_failed", "", map[string]any{"reason": "invalid_credentials"})
		case errors.Is(err, auth.ErrAccountNotActive):
			loginAttempts.WithLabelValues("not_active").Inc()
			s.recordAudit(r.Context(), nil, "auth.login_failed", "", map[string]any{"reason": "not_active"})
		}
		s.writeAuthError(w, err)
		return
	}

	loginAttempts.WithLabelValues("success").Inc()
	s.recordAudit(r.Context(), &session.Identity.ID, "auth.login", userTarget(session.Identity.ID), nil)

	s.setAccessCookie(w, session.AccessToken)
	writeJSON(w, http.StatusOK, s.sessionResponse(session))
}

// handleRefresh exchanges a refresh token for a new access token. The token
// comes from the body or, for browser clients, the refresh_token cookie.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	_ = json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck // empty body falls back to cookie
	if req.RefreshToken == "" {
		if c, err := r.Cookie("refresh_token"); err == nil {
			req.RefreshToken = c.Value
		}
	}

	session, err := s.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeAuthError(w, err)
		return
	}

	s.recordAudit(r.Context(), &session.Identity.ID, "auth.refresh", userTarget(session.Identity.ID), nil)
	s.setAccessCookie(w, session.AccessToken)
	writeJSON(w, http.StatusOK, s.sessionResponse(session))
}

// handleLogout closes the caller's session and clears cookies. Logging out
// twice is not an error.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	if err := s.sessions.Logout(r.Context(), identity.ID); err != nil {
		s.writeAuthError(w, err)
		return
	}

	s.recordAudit(r.Context(), &identity.ID, "auth.logout", userTarget(identity.ID), nil)
	s.clearAccessCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

// handleMe returns the caller's account record and effective permissions.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	account, err := s.sessions.GetIdentity(r.Context(), identity.ID)
	if err != nil {
		s.writeAuthError(w, err)
		return
	}

	permissions, err := s.sessions.Permissions(r.Context(), account.RoleID)
	if err != nil {
		s.logger.Error("permission lookup failed", "error", err, "user_id", account.ID)
		permissions = auth.PermissionMap{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":        toIdentityResponse(account),
		"permissions": permissions,
	})
}

// handleChangePassword changes the caller's password. All refresh tokens are
// invalidated, so other devices must log in again.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authentication required")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.sessions.ChangePassword(r.Context(), identity.ID, req.CurrentPassword, req.NewPassword); err != nil {
		s.writeAuthError(w, err)
		return
	}

	s.recordAudit(r.Context(), &identity.ID, "auth.password_changed", userTarget(identity.ID), nil)
	s.clearAccessCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"status": "password_changed"})
}

// sessionResponse builds the wire representation of an open session.
func (s *Server) sessionResponse(session *auth.Session) sessionResponse {
	return sessionResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.secCfg.JWT.AccessTokenTTLMins * 60, // seconds
		User:         toIdentityResponse(session.Identity),
		Permissions:  session.Permissions,
	}
}

// setAccessCookie attaches the access token as an HttpOnly cookie for
// browser clients.
func (s *Server) setAccessCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   s.secCfg.JWT.AccessTokenTTLMins * 60,
	})
}

// clearAccessCookie expires the access token cookie.
func (s *Server) clearAccessCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

// userTarget formats an audit target reference for a user account.
func userTarget(id int64) string {
	return fmt.Sprintf("user:%d", id)
}

// recordAudit writes an audit entry, logging but not failing on error.
func (s *Server) recordAudit(ctx context.Context, actorID *int64, action, target string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	entry := &audit.Entry{
		ActorID: actorID,
		Action:  action,
		Target:  target,
		Detail:  detail,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error("recording audit entry", "error", err, "action", action)
	}
}
