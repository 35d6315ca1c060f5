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

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.CreateChatInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if errs := validator.ValidateChat(input.Name); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	chat, err := h.chatService.Create(r.Context(), userID, input)
	if err != nil {
		if errors.Is(err, service.ErrPermissionDenied) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot create chats")
		} else {
			log.Printf("ERROR create chat: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, chat)
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	chatID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid chat ID")
		return
	}

	chat, err := h.chatService.Get(r.Context(), userID, chatID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChatNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Chat not found")
		case errors.Is(err, service.ErrNotChatMember):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You do not have access to this chat")
		default:
			log.Printf("ERROR get chat: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	chats, err := h.chatService.List(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR list chats: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"chats": chats})
}

func (h *ChatHandler) Archive(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	chatID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid chat ID")
		return
	}

	if err := h.chatService.Archive(r.Context(), userID, chatID); err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot archive chats")
		case errors.Is(err, service.ErrChatNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Chat not found")
		case errors.Is(err, service.ErrChatArchived):
			writeError(w, http.StatusConflict, "ARCHIVED", "Chat is already archived")
		default:
			log.Printf("ERROR archive chat: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type addMemberInput struct {
	UserID uuid.UUID `json:"user_id"`
}

func (h *ChatHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	chatID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid chat ID")
		return
	}

	var input addMemberInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.chatService.AddMember(r.Context(), actorID, chatID, input.UserID); err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage chat members")
		case errors.Is(err, service.ErrChatNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Chat not found")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		default:
			log.Printf("ERROR add chat member: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actorID := middleware.GetUserID(r.Context())
	chatID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid chat ID")
		return
	}
	userID, err := uuid.Parse(r.PathValue("userId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	if err := h.chatService.RemoveMember(r.Context(), actorID, chatID, userID); err != nil {
		if errors.Is(err, service.ErrPermissionDenied) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot manage chat members")
		} else {
			log.Printf("ERROR remove chat member: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type markReadInput struct {
	MessageID uuid.UUID `json:"message_id"`
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	chatID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid chat ID")
		return
	}

	var input markReadInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.MessageID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	if err := h.chatService.MarkRead(r.Context(), userID, chatID, input.MessageID); err != nil {
		if errors.Is(err, service.ErrNotChatMember) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You do not have access to this chat")
		} else {
			log.Printf("ERROR mark chat read: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	chatID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid chat ID")
		return
	}

	members, err := h.chatService.ListMembers(r.Context(), userID, chatID)
	if err != nil {
		if errors.Is(err, service.ErrNotChatMember) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You do not have access to this chat")
		} else {
			log.Printf("ERROR list chat members: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}
