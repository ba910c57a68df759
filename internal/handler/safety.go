package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oggyb/matchfeed/internal/service/safety"
)

// SafetyHandler serves blocks and reports.
type SafetyHandler struct {
	service *safety.Service
}

func NewSafetyHandler(svc *safety.Service) *SafetyHandler {
	return &SafetyHandler{service: svc}
}

type blockRequest struct {
	BlockedUserID string `json:"blockedUserId" validate:"required"`
}

// HandleBlock handles POST /blocks.
func (h *SafetyHandler) HandleBlock(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.service.Block(r.Context(), viewerID(r), req.BlockedUserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HandleUnblock handles DELETE /blocks/{blockedUserId}.
func (h *SafetyHandler) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unblock(r.Context(), viewerID(r), chi.URLParam(r, "blockedUserId")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reportRequest struct {
	ReportedUserID string `json:"reportedUserId" validate:"required"`
	Reason         string `json:"reason" validate:"required,min=1,max=500"`
}

// HandleReport handles POST /reports.
func (h *SafetyHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.service.Report(r.Context(), viewerID(r), req.ReportedUserID, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}
