package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/shoplane/shoplane-core/internal/auth"
)

type createRoleRequest struct {
	Name        string              `json:"name"`
	Permissions map[string][]string `json:"permissions"`
}

type setPermissionsRequest struct {
	Permissions map[string][]string `json:"permissions"`
}

// handleListRoles returns all roles with their permission maps.
func (s *Server) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := s.roles.List(r.Context())
	if err != nil {
		s.logger.Error("list roles failed", "error", err)
		writeInternalError(w, "failed to list roles")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"roles": roles,
		"count": len(roles),
	})
}

// handleCreateRole creates a new role.
func (s *Server) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	permissions, err := auth.ParsePermissionMap(req.Permissions)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	role := &auth.Role{
		Name:        req.Name,
		Permissions: permissions,
	}
	if err := s.roles.Create(r.Context(), role); err != nil {
		s.logger.Error("create role failed", "error", err)
		writeConflict(w, "failed to create role")
		return
	}

	actor, _ := auth.IdentityFromContext(r.Context())
	s.recordAudit(r.Context(), &actor.ID, "role.create", roleTarget(role.ID), map[string]any{
		"name": role.Name,
	})

	writeJSON(w, http.StatusCreated, role)
}

// handleGetRole returns a single role.
func (s *Server) handleGetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	role, err := s.roles.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrRoleNotFound) {
			writeNotFound(w, "role not found")
			return
		}
		s.logger.Error("get role failed", "error", err)
		writeInternalError(w, "failed to get role")
		return
	}

	writeJSON(w, http.StatusOK, role)
}

// handleSetRolePermissions replaces a role's permission map wholesale.
// Existing sessions pick up the change within one permission cache TTL.
func (s *Server) handleSetRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	var req setPermissionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	permissions, err := auth.ParsePermissionMap(req.Permissions)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.roles.SetPermissions(r.Context(), id, permissions); err != nil {
		if errors.Is(err, auth.ErrRoleNotFound) {
			writeNotFound(w, "role not found")
			return
		}
		s.logger.Error("set role permissions failed", "error", err)
		writeInternalError(w, "failed to update permissions")
		return
	}

	actor, _ := auth.IdentityFromContext(r.Context())
	s.recordAudit(r.Context(), &actor.ID, "role.set_permissions", roleTarget(id), nil)

	writeJSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

// roleTarget formats an audit target reference for a role.
func roleTarget(id int64) string {
	return fmt.Sprintf("role:%d", id)
}
