package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	svcErr "github.com/oggyb/matchfeed/internal/errors"
	"github.com/oggyb/matchfeed/internal/service/profile"
)

// photoField is the multipart field carrying the image.
const photoField = "photo"

// ProfileHandler serves /me, /me/preferences and /me/photos.
type ProfileHandler struct {
	service        *profile.Service
	maxUploadBytes int64
}

func NewProfileHandler(svc *profile.Service, maxUploadBytes int64) *ProfileHandler {
	return &ProfileHandler{service: svc, maxUploadBytes: maxUploadBytes}
}

// HandleGetMe handles GET /me.
func (h *ProfileHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Me(r.Context(), viewerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// HandleUpdateMe handles PATCH /me.
func (h *ProfileHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req profile.MeUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.service.UpdateMe(r.Context(), viewerID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// HandleGetPreferences handles GET /me/preferences.
func (h *ProfileHandler) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.service.GetPreferences(r.Context(), viewerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// HandleUpdatePreferences handles PATCH /me/preferences.
func (h *ProfileHandler) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req profile.PreferencesUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	prefs, err := h.service.UpdatePreferences(r.Context(), viewerID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// HandleListPhotos handles GET /me/photos.
func (h *ProfileHandler) HandleListPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := h.service.ListPhotos(r.Context(), viewerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"photos": photos})
}

// HandleUploadPhoto handles POST /me/photos (multipart, field "photo").
// A request without the field reaches the service with a nil body so the
// photo cap is reported ahead of the missing file.
func (h *ProfileHandler) HandleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	up, err := h.readUpload(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	if c, ok := up.Body.(io.Closer); ok {
		defer c.Close()
	}

	photo, err := h.service.UploadPhoto(r.Context(), viewerID(r), up)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"photo": photo})
}

// readUpload extracts the photo part. A non-multipart request or a missing
// field yields an empty Upload.
func (h *ProfileHandler) readUpload(r *http.Request) (profile.Upload, error) {
	err := r.ParseMultipartForm(h.maxUploadBytes)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
	case errors.Is(err, http.ErrNotMultipart):
		return profile.Upload{}, nil
	case errors.As(err, &tooLarge):
		return profile.Upload{}, svcErr.BadInput("File too large")
	default:
		return profile.Upload{}, svcErr.BadInput("Invalid multipart body")
	}

	file, header, err := r.FormFile(photoField)
	if errors.Is(err, http.ErrMissingFile) {
		return profile.Upload{}, nil
	}
	if err != nil {
		return profile.Upload{}, svcErr.BadInput("Invalid multipart body")
	}
	return profile.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}, nil
}

// HandleDeletePhoto handles DELETE /me/photos/{id}.
func (h *ProfileHandler) HandleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePhoto(r.Context(), viewerID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
