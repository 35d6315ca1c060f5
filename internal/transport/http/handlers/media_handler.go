package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path"
	"strconv"

	"github.com/huddleapp/huddle/internal/service"
	"github.com/huddleapp/huddle/internal/storage"
	"github.com/huddleapp/huddle/internal/transport/http/middleware"
	"github.com/huddleapp/huddle/pkg/rbac"
	"github.com/jaevor/go-nanoid"
)

// 20 MB is enough for short training clips; anything bigger belongs on a
// dedicated video platform.
const maxUploadBytes = 20 << 20

var allowedMediaTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"video/mp4":       true,
	"video/webm":      true,
	"application/pdf": true,
}

type MediaHandler struct {
	media       storage.MediaStore
	rbacService *service.RBACService
	newName     func() string
}

func NewMediaHandler(media storage.MediaStore, rbacService *service.RBACService) (*MediaHandler, error) {
	gen, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("creating name generator: %w", err)
	}
	return &MediaHandler{
		media:       media,
		rbacService: rbacService,
		newName:     gen,
	}, nil
}

// Upload accepts a multipart file, stores it under a generated name and
// returns the URL clients put into a message's media_url.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.rbacService.Require(r.Context(), userID, rbac.PermUploadMedia); err != nil {
		if errors.Is(err, service.ErrPermissionDenied) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You cannot upload media")
		} else {
			log.Printf("ERROR upload permission check: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "TOO_LARGE", "File exceeds the 20 MB upload limit")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "A file field named 'file' is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedMediaTypes[contentType] {
		writeError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE", "File type is not allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.Printf("ERROR read upload: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	name := h.newName() + path.Ext(header.Filename)
	info, err := h.media.Put(r.Context(), name, data, contentType)
	if err != nil {
		log.Printf("ERROR store upload: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"url":          "/api/v1/media/" + info.Name,
		"name":         info.Name,
		"size":         info.Size,
		"content_type": info.ContentType,
	})
}

// Serve streams a stored object back to the client.
func (h *MediaHandler) Serve(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "INVALID_NAME", "Object name is required")
		return
	}

	data, info, err := h.media.Get(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Media not found")
		return
	}

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Write(data)
}
