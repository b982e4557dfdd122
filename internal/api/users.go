package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shoplane/shoplane-core/internal/auth"
)

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleID   *int64 `json:"role_id,omitempty"`
}

type updateUserRequest struct {
	Email  *string `json:"email,omitempty"`
	RoleID *int64  `json:"role_id,omitempty"`
}

type setStatusRequest struct {
	Status auth.Status `json:"status"`
}

// handleListUsers returns all user accounts.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.logger.Error("list users failed", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}

	out := make([]identityResponse, 0, len(users))
	for i := range users {
		out = append(out, toIdentityResponse(&users[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": out,
		"count": len(out),
	})
}

// handleCreateUser creates a new user account with an optional role.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if !auth.IsValidEmail(auth.NormalizeEmail(req.Email)) {
		writeBadRequest(w, "a valid email is required")
		return
	}
	if len(req.Password) < 8 { //nolint:mnd // minimum password length
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}

	if req.RoleID != nil {
		if _, err := s.roles.GetByID(r.Context(), *req.RoleID); err != nil {
			if errors.Is(err, auth.ErrRoleNotFound) {
				writeBadRequest(w, "role does not exist")
				return
			}
			s.logger.Error("role lookup failed", "error", err)
			writeInternalError(w, "failed to create user")
			return
		}
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	user := &auth.Identity{
		Email:        req.Email,
		PasswordHash: hash,
		RoleID:       req.RoleID,
		Status:       auth.StatusActive,
	}

	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already registered")
			return
		}
		s.logger.Error("create user failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	actor, _ := auth.IdentityFromContext(r.Context())
	s.logger.Info("user created", "user_id", user.ID, "created_by", actor.ID)
	s.recordAudit(r.Context(), &actor.ID, "user.create", userTarget(user.ID), map[string]any{
		"email": user.Email,
	})

	writeJSON(w, http.StatusCreated, toIdentityResponse(user))
}

// handleGetUser returns a single user account.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user failed", "error", err)
		writeInternalError(w, "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, toIdentityResponse(user))
}

// handleUpdateUser modifies a user's email or role.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user failed", "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	if req.Email != nil {
		if !auth.IsValidEmail(auth.NormalizeEmail(*req.Email)) {
			writeBadRequest(w, "invalid email")
			return
		}
		user.Email = *req.Email
	}
	if req.RoleID != nil {
		if _, err := s.roles.GetByID(r.Context(), *req.RoleID); err != nil {
			if errors.Is(err, auth.ErrRoleNotFound) {
				writeBadRequest(w, "role does not exist")
				return
			}
			s.logger.Error("role lookup failed", "error", err)
			writeInternalError(w, "failed to update user")
			return
		}
		user.RoleID = req.RoleID
	}

	if err := s.users.Update(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already registered")
			return
		}
		s.logger.Error("update user failed", "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	actor, _ := auth.IdentityFromContext(r.Context())
	s.recordAudit(r.Context(), &actor.ID, "user.update", userTarget(user.ID), nil)

	writeJSON(w, http.StatusOK, toIdentityResponse(user))
}

// handleSetUserStatus activates, deactivates or bans an account.
// Banning clears the refresh slot so the account cannot keep refreshing.
func (s *Server) handleSetUserStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if !auth.IsValidStatus(req.Status) {
		writeBadRequest(w, "status must be active, inactive, or banned")
		return
	}

	if err := s.users.SetStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("set user status failed", "error", err)
		writeInternalError(w, "failed to update status")
		return
	}

	if req.Status != auth.StatusActive {
		if err := s.users.SetRefreshTokenHash(r.Context(), id, nil); err != nil && !errors.Is(err, auth.ErrNotFound) {
			s.logger.Error("clearing refresh slot failed", "error", err, "user_id", id)
		}
	}

	actor, _ := auth.IdentityFromContext(r.Context())
	s.recordAudit(r.Context(), &actor.ID, "user.set_status", userTarget(id), map[string]any{
		"status": string(req.Status),
	})

	writeJSON(w, http.StatusOK, map[string]any{"status": string(req.Status)})
}

// handleDeleteUser soft-deletes a user account.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	actor, _ := auth.IdentityFromContext(r.Context())
	if actor.ID == id {
		writeBadRequest(w, "cannot delete your own account")
		return
	}

	if err := s.users.SoftDelete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("delete user failed", "error", err)
		writeInternalError(w, "failed to delete user")
		return
	}

	s.recordAudit(r.Context(), &actor.ID, "user.delete", userTarget(id), nil)
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// parseIDParam extracts and validates the {id} route parameter.
func parseIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}
