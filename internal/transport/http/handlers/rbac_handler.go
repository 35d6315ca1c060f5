package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/service"
	"github.com/huddleapp/huddle/internal/transport/http/middleware"
	"github.com/huddleapp/huddle/pkg/rbac"
	"github.com/huddleapp/huddle/pkg/validator"
)

type RBACHandler struct {
	rbacService *service.RBACService
}

func NewRBACHandler(rbacService *service.RBACService) *RBACHandler {
	return &RBACHandler{rbacService: rbacService}
}

// Effective returns the tri-state permission list for the user in the path.
// Each entry carries whether it is granted and where it came from, so the
// admin console can render role-derived and directly granted toggles apart.
func (h *RBACHandler) Effective(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	states, err := h.rbacService.Effective(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR effective permissions: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"permissions": states})
}

func (h *RBACHandler) Roles(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	assignments, err := h.rbacService.Roles(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR list roles: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"roles": assignments})
}

type roleInput struct {
	Role rbac.Role `json:"role"`
}

func (h *RBACHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	targetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	var input roleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.rbacService.AssignRole(r.Context(), actorID, targetID, input.Role); err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage roles")
		case errors.Is(err, service.ErrInvalidRole):
			writeError(w, http.StatusBadRequest, "INVALID_ROLE", "Unknown role")
		case errors.Is(err, service.ErrRoleAlreadyHeld):
			writeError(w, http.StatusConflict, "ROLE_HELD", "User already holds this role")
		default:
			log.Printf("ERROR assign role: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RBACHandler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	targetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	role := rbac.Role(r.PathValue("role"))

	if err := h.rbacService.RemoveRole(r.Context(), actorID, targetID, role); err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage roles")
		case errors.Is(err, service.ErrInvalidRole):
			writeError(w, http.StatusBadRequest, "INVALID_ROLE", "Unknown role")
		case errors.Is(err, service.ErrRoleNotHeld):
			writeError(w, http.StatusNotFound, "ROLE_NOT_HELD", "User does not hold this role")
		default:
			log.Printf("ERROR remove role: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type grantInput struct {
	Permission rbac.Permission `json:"permission"`
	Reason     string          `json:"reason"`
}

func (h *RBACHandler) Grant(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	targetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	var input grantInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateGrantReason(input.Reason); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	if err := h.rbacService.Grant(r.Context(), actorID, targetID, input.Permission, input.Reason); err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage permissions")
		case errors.Is(err, service.ErrInvalidPermission):
			writeError(w, http.StatusBadRequest, "INVALID_PERMISSION", "Unknown permission")
		case errors.Is(err, service.ErrReasonRequired):
			writeError(w, http.StatusBadRequest, "REASON_REQUIRED", "A reason is required for direct grants")
		default:
			log.Printf("ERROR grant permission: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RBACHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	targetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	perm := rbac.Permission(r.PathValue("permission"))

	if err := h.rbacService.Revoke(r.Context(), actorID, targetID, perm); err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage permissions")
		case errors.Is(err, service.ErrInvalidPermission):
			writeError(w, http.StatusBadRequest, "INVALID_PERMISSION", "Unknown permission")
		case errors.Is(err, service.ErrRoleDerived):
			writeError(w, http.StatusConflict, "ROLE_DERIVED", "Permission comes from a role; remove the role instead")
		case errors.Is(err, service.ErrGrantNotFound):
			writeError(w, http.StatusNotFound, "GRANT_NOT_FOUND", "No direct grant exists for this permission")
		default:
			log.Printf("ERROR revoke permission: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type templateInput struct {
	Template string `json:"template"`
}

func (h *RBACHandler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	targetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	var input templateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.rbacService.ApplyTemplate(r.Context(), actorID, targetID, input.Template); err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage roles")
		case errors.Is(err, service.ErrTemplateNotFound):
			writeError(w, http.StatusNotFound, "TEMPLATE_NOT_FOUND", "Unknown role template")
		default:
			log.Printf("ERROR apply template: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Templates lists the available role templates for the admin console picker.
func (h *RBACHandler) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"templates": rbac.Templates()})
}
