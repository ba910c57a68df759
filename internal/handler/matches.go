package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oggyb/matchfeed/internal/service/match"
	"github.com/oggyb/matchfeed/internal/service/messaging"
)

// MatchHandler serves the matches list and per-match messages.
type MatchHandler struct {
	match     *match.Service
	messaging *messaging.Service
}

func NewMatchHandler(matchSvc *match.Service, msgSvc *messaging.Service) *MatchHandler {
	return &MatchHandler{match: matchSvc, messaging: msgSvc}
}

// HandleListMatches handles GET /matches?limit&cursor.
func (h *MatchHandler) HandleListMatches(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, match.DefaultLimit, match.MaxLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.match.List(r.Context(), viewerID(r), page.Cursor, page.Limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleListMessages handles GET /matches/{id}/messages?limit&cursor.
func (h *MatchHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r, messaging.DefaultLimit, messaging.MaxLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.messaging.List(r.Context(), chi.URLParam(r, "id"), viewerID(r), page.Cursor, page.Limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type postMessageRequest struct {
	Text string `json:"text" validate:"required,min=1,max=2000"`
}

// HandlePostMessage handles POST /matches/{id}/messages.
func (h *MatchHandler) HandlePostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	msg, err := h.messaging.Post(r.Context(), chi.URLParam(r, "id"), viewerID(r), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}
