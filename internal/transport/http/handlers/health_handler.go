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

type HealthHandler struct {
	healthService *service.HealthService
}

func NewHealthHandler(healthService *service.HealthService) *HealthHandler {
	return &HealthHandler{healthService: healthService}
}

func (h *HealthHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.HealthRecordInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateHealthRecord(input.Title, string(input.Type), string(input.Status), string(input.Severity)); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	rec, err := h.healthService.Create(r.Context(), userID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage health records")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Player not found")
		default:
			log.Printf("ERROR create health record: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	recordID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid record ID")
		return
	}

	rec, err := h.healthService.Get(r.Context(), userID, recordID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot view health records")
		case errors.Is(err, service.ErrHealthRecordNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Health record not found")
		default:
			log.Printf("ERROR get health record: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *HealthHandler) ListByPlayer(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	playerID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid player ID")
		return
	}

	records, err := h.healthService.ListByPlayer(r.Context(), userID, playerID)
	if err != nil {
		if errors.Is(err, service.ErrPermissionDenied) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot view health records")
		} else {
			log.Printf("ERROR list health records: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *HealthHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	recordID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid record ID")
		return
	}

	var input service.HealthRecordInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateHealthRecord(input.Title, string(input.Type), string(input.Status), string(input.Severity)); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	rec, err := h.healthService.Update(r.Context(), userID, recordID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage health records")
		case errors.Is(err, service.ErrHealthRecordNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Health record not found")
		default:
			log.Printf("ERROR update health record: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *HealthHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	recordID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid record ID")
		return
	}

	if err := h.healthService.Delete(r.Context(), userID, recordID); err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage health records")
		case errors.Is(err, service.ErrHealthRecordNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Health record not found")
		default:
			log.Printf("ERROR delete health record: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
