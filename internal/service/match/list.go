package match

import (
	"context"
	"time"

	svcErr "github.com/oggyb/matchfeed/internal/errors"
	"github.com/oggyb/matchfeed/internal/service/view"
)

const (
	DefaultLimit = 20
	MaxLimit     = 50
)

// Item is one entry of GET /matches. Peer is nil if the peer row is gone.
type Item struct {
	ID            string     `json:"id"`
	Peer          *view.Peer `json:"peer"`
	LastMessageAt *time.Time `json:"lastMessageAt"`
}

type ListResponse struct {
	Items      []Item  `json:"items"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

// List returns a page of userID's matches ordered by match id.
//
// Behavior:
//   - Peers and their photos load in one query for the whole page.
//   - lastMessageAt comes from the match row, null until the first message.
func (s *Service) List(ctx context.Context, userID string, cursor *string, limit int) (*ListResponse, error) {
	s.appCtx.Logger.Debug("ListMatches called", "user", userID, "limit", limit)
	if limit <= 0 {
		limit = DefaultLimit
	}

	matches, next, err := s.matchRepo.ListForUser(ctx, userID, cursor, limit)
	if err != nil {
		s.appCtx.Logger.Error("ListForUser failed", "user", userID, "err", err)
		return nil, svcErr.Map(err)
	}

	peerIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		peerIDs = append(peerIDs, m.PeerOf(userID))
	}
	peers, err := s.userRepo.FindWithPhotos(ctx, peerIDs)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	resp := &ListResponse{Items: make([]Item, 0, len(matches)), NextCursor: next}
	for _, m := range matches {
		item := Item{ID: m.ID}
		if p, ok := peers[m.PeerOf(userID)]; ok {
			item.Peer = view.NewPeer(p)
		}
		if m.LastMessageAt != nil {
			at := m.LastMessageAt.UTC()
			item.LastMessageAt = &at
		}
		resp.Items = append(resp.Items, item)
	}
	return resp, nil
}
