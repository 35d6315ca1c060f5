package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/huddleapp/huddle/internal/service"
	"github.com/huddleapp/huddle/internal/transport/http/middleware"
	"github.com/huddleapp/huddle/pkg/validator"
)

type DepartmentHandler struct {
	deptService *service.DepartmentService
}

func NewDepartmentHandler(deptService *service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{deptService: deptService}
}

func (h *DepartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.DepartmentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateDepartment(input.Name); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	dept, err := h.deptService.Create(r.Context(), userID, input)
	if err != nil {
		if errors.Is(err, service.ErrPermissionDenied) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage departments")
		} else {
			log.Printf("ERROR create department: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, dept)
}

func (h *DepartmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	deptID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid department ID")
		return
	}

	dept, err := h.deptService.Get(r.Context(), deptID)
	if err != nil {
		if errors.Is(err, service.ErrDepartmentNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Department not found")
		} else {
			log.Printf("ERROR get department: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, dept)
}

func (h *DepartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	depts, err := h.deptService.List(r.Context())
	if err != nil {
		log.Printf("ERROR list departments: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"departments": depts})
}

func (h *DepartmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	deptID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid department ID")
		return
	}

	var input service.DepartmentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateDepartment(input.Name); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	dept, err := h.deptService.Update(r.Context(), userID, deptID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage departments")
		case errors.Is(err, service.ErrDepartmentNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Department not found")
		case errors.Is(err, service.ErrDepartmentArchived):
			writeError(w, http.StatusConflict, "ARCHIVED", "Department is archived")
		default:
			log.Printf("ERROR update department: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, dept)
}

func (h *DepartmentHandler) Archive(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	deptID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid department ID")
		return
	}

	if err := h.deptService.Archive(r.Context(), userID, deptID); err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage departments")
		case errors.Is(err, service.ErrDepartmentNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Department not found")
		default:
			log.Printf("ERROR archive department: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DepartmentHandler) AssignStaff(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	deptID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid department ID")
		return
	}

	var input service.AssignStaffInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.deptService.AssignStaff(r.Context(), actorID, deptID, input); err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage staff")
		case errors.Is(err, service.ErrDepartmentNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Department not found")
		case errors.Is(err, service.ErrDepartmentArchived):
			writeError(w, http.StatusConflict, "ARCHIVED", "Department is archived")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		default:
			log.Printf("ERROR assign staff: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DepartmentHandler) UnassignStaff(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	deptID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid department ID")
		return
	}
	userID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	if err := h.deptService.UnassignStaff(r.Context(), actorID, deptID, userID); err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage staff")
		case errors.Is(err, service.ErrNotStaffMember):
			writeError(w, http.StatusNotFound, "NOT_ASSIGNED", "User is not assigned to this department")
		default:
			log.Printf("ERROR unassign staff: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DepartmentHandler) ListStaff(w http.ResponseWriter, r *http.Request) {
	deptID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid department ID")
		return
	}

	staff, err := h.deptService.ListStaff(r.Context(), deptID)
	if err != nil {
		if errors.Is(err, service.ErrDepartmentNotFound) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Department not found")
		} else {
			log.Printf("ERROR list staff: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"staff": staff})
}
