package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/service"
	"github.com/huddleapp/huddle/internal/transport/http/middleware"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		} else {
			log.Printf("ERROR get me: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.GetUserID(r.Context())

	users, err := h.userService.ListPending(r.Context(), adminID)
	if err != nil {
		if errors.Is(err, service.ErrPermissionDenied) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage registrations")
		} else {
			log.Printf("ERROR list pending users: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *UserHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, true)
}

func (h *UserHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, false)
}

func (h *UserHandler) resolve(w http.ResponseWriter, r *http.Request, approve bool) {
	adminID := middleware.GetUserID(r.Context())
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	if approve {
		err = h.userService.Approve(r.Context(), adminID, userID)
	} else {
		err = h.userService.Reject(r.Context(), adminID, userID)
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage registrations")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		case errors.Is(err, service.ErrNotPendingUser):
			writeError(w, http.StatusConflict, "NOT_PENDING", "User is not awaiting approval")
		case errors.Is(err, service.ErrApprovalInFlight):
			writeError(w, http.StatusConflict, "IN_FLIGHT", "This registration is already being processed")
		default:
			log.Printf("ERROR resolve registration: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
