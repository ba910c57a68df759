package handler

import (
	"net/http"
	"strconv"

	svcErr "github.com/oggyb/matchfeed/internal/errors"
	"github.com/oggyb/matchfeed/internal/service/feed"
	"github.com/oggyb/matchfeed/internal/service/match"
)

// FeedHandler serves discovery and decisions.
type FeedHandler struct {
	feed  *feed.Service
	match *match.Service
}

func NewFeedHandler(feedSvc *feed.Service, matchSvc *match.Service) *FeedHandler {
	return &FeedHandler{feed: feedSvc, match: matchSvc}
}

type feedQuery struct {
	Limit int    `validate:"min=1,max=50"`
	Mode  string `validate:"oneof=list sticky"`
	Debug bool
}

func parseFeedQuery(r *http.Request) (feedQuery, error) {
	q := r.URL.Query()
	out := feedQuery{Mode: feed.ModeList}

	limit, err := queryInt(r, "limit", feed.DefaultLimit)
	if err != nil {
		return out, err
	}
	out.Limit = limit
	if m := q.Get("mode"); m != "" {
		out.Mode = m
	}
	if d := q.Get("debug"); d != "" {
		if out.Debug, err = strconv.ParseBool(d); err != nil {
			return out, err
		}
	}
	return out, validate.Struct(out)
}

// HandleFeed handles GET /feed?limit&cursor&mode&debug.
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	q, err := parseFeedQuery(r)
	if err != nil {
		writeError(w, r, svcErr.BadInput("Invalid query"))
		return
	}

	resp, err := h.feed.Get(r.Context(), feed.Request{
		ViewerID: viewerID(r),
		Limit:    q.Limit,
		Cursor:   queryCursor(r),
		Mode:     q.Mode,
		Debug:    q.Debug,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// likeRequest uses *bool so an explicit false passes "required".
type likeRequest struct {
	ToUserID string `json:"toUserId" validate:"required"`
	IsLike   *bool  `json:"isLike" validate:"required"`
}

// HandleLike handles POST /like.
func (h *FeedHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	var req likeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.match.Like(r.Context(), viewerID(r), req.ToUserID, *req.IsLike)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
