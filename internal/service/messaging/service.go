// Package messaging is the per-match message log.
package messaging

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/matchfeed/internal/app"
	"github.com/oggyb/matchfeed/internal/db"
	svcErr "github.com/oggyb/matchfeed/internal/errors"
	"github.com/oggyb/matchfeed/internal/repository"
	"github.com/oggyb/matchfeed/internal/service/view"
)

const (
	DefaultLimit = 30
	MaxLimit     = 100
	MaxTextLen   = 2000
)

type Service struct {
	appCtx    *app.AppContext
	matchRepo *repository.MatchRepository
	msgRepo   *repository.MessageRepository
	blockRepo *repository.BlockRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:    appCtx,
		matchRepo: repository.NewMatchRepository(appCtx.DB),
		msgRepo:   repository.NewMessageRepository(appCtx.DB),
		blockRepo: repository.NewBlockRepository(appCtx.DB),
	}
}

type ListResponse struct {
	Items      []view.Message `json:"items"`
	NextCursor *string        `json:"nextCursor,omitempty"`
}

// participantMatch loads the match if viewerID takes part in it.
// Missing and foreign matches are the same NOT_FOUND.
func (s *Service) participantMatch(ctx context.Context, matchID, viewerID string) (*db.Match, error) {
	m, err := s.matchRepo.FindByID(ctx, matchID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !m.HasUser(viewerID)) {
		return nil, svcErr.NotFound("Match not found")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return m, nil
}

// List returns a page of messages, oldest first.
func (s *Service) List(ctx context.Context, matchID, viewerID string, cursor *string, limit int) (*ListResponse, error) {
	s.appCtx.Logger.Debug("ListMessages called", "match", matchID, "viewer", viewerID, "limit", limit)
	if limit <= 0 {
		limit = DefaultLimit
	}

	if _, err := s.participantMatch(ctx, matchID, viewerID); err != nil {
		return nil, err
	}

	messages, next, err := s.msgRepo.List(ctx, matchID, cursor, limit)
	if err != nil {
		s.appCtx.Logger.Error("List messages failed", "match", matchID, "err", err)
		return nil, svcErr.Map(err)
	}

	resp := &ListResponse{Items: make([]view.Message, 0, len(messages)), NextCursor: next}
	for _, m := range messages {
		resp.Items = append(resp.Items, view.NewMessage(m))
	}
	return resp, nil
}

// Post appends a message from viewerID.
//
// Behavior:
//   - NOT_FOUND unless viewerID is a participant.
//   - FORBIDDEN when either participant blocked the other.
//   - Empty or oversized text is BAD_INPUT.
func (s *Service) Post(ctx context.Context, matchID, viewerID, text string) (*view.Message, error) {
	s.appCtx.Logger.Debug("PostMessage called", "match", matchID, "viewer", viewerID)

	if text == "" || len([]rune(text)) > MaxTextLen {
		return nil, svcErr.BadInput("Invalid body")
	}

	m, err := s.participantMatch(ctx, matchID, viewerID)
	if err != nil {
		return nil, err
	}

	blocked, err := s.blockRepo.ExistsEither(ctx, viewerID, m.PeerOf(viewerID))
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if blocked {
		return nil, svcErr.Forbidden("Messaging is blocked")
	}

	msg, err := s.msgRepo.Create(ctx, matchID, viewerID, text)
	if err != nil {
		s.appCtx.Logger.Error("Create message failed", "match", matchID, "err", err)
		return nil, svcErr.Map(err)
	}
	out := view.NewMessage(*msg)
	return &out, nil
}
