// Package match records like/pass decisions, creates mutual matches and
// lists a user's matches.
package match

import (
	"context"

	"github.com/oggyb/matchfeed/internal/app"
	svcErr "github.com/oggyb/matchfeed/internal/errors"
	"github.com/oggyb/matchfeed/internal/repository"
)

// Service implements the interaction/match engine on top of the repositories.
type Service struct {
	appCtx    *app.AppContext
	userRepo  *repository.UserRepository
	interRepo *repository.InteractionRepository
	matchRepo *repository.MatchRepository
}

// NewService creates a new match service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:    appCtx,
		userRepo:  repository.NewUserRepository(appCtx.DB),
		interRepo: repository.NewInteractionRepository(appCtx.DB),
		matchRepo: repository.NewMatchRepository(appCtx.DB),
	}
}

// LikeResult is the body of POST /like.
type LikeResult struct {
	OK      bool    `json:"ok"`
	Matched bool    `json:"matched"`
	MatchID *string `json:"matchId,omitempty"`
}

// Like records from's decision on to and reports whether it produced a match.
//
// Behavior:
//   - Rejects self-targeting and unknown targets before any write.
//   - Upserts the directed interaction; a later decision overwrites isLike.
//   - On a like, checks the reciprocal like and creates the canonical match
//     if absent. Each step is a single atomic statement and no transaction
//     wraps them, so two users liking each other at the same moment both
//     observe the other's committed like and converge on one match.
//   - A pass never removes an existing match.
//
// Example:
//
//	svc.Like(ctx, alice, bob, true) // -> {ok: true, matched: true, matchId: "..."} if bob liked alice
func (s *Service) Like(ctx context.Context, fromUserID, toUserID string, isLike bool) (*LikeResult, error) {
	s.appCtx.Logger.Debug("Like called", "from", fromUserID, "to", toUserID, "isLike", isLike)

	if fromUserID == toUserID {
		return nil, svcErr.BadInput("Cannot like yourself")
	}

	exists, err := s.userRepo.Exists(ctx, toUserID)
	if err != nil {
		s.appCtx.Logger.Error("User lookup failed", "to", toUserID, "err", err)
		return nil, svcErr.Map(err)
	}
	if !exists {
		return nil, svcErr.NotFound("User not found")
	}

	if err := s.interRepo.Upsert(ctx, fromUserID, toUserID, isLike); err != nil {
		s.appCtx.Logger.Error("Interaction upsert failed", "from", fromUserID, "to", toUserID, "err", err)
		return nil, svcErr.Map(err)
	}

	result := &LikeResult{OK: true}
	if !isLike {
		return result, nil
	}

	mutual, err := s.interRepo.HasLiked(ctx, toUserID, fromUserID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !mutual {
		return result, nil
	}

	m, err := s.matchRepo.CreateIfAbsent(ctx, fromUserID, toUserID)
	if err != nil {
		s.appCtx.Logger.Error("Match create failed", "from", fromUserID, "to", toUserID, "err", err)
		return nil, svcErr.Map(err)
	}

	s.appCtx.Logger.Info("Mutual match", "match", m.ID, "userA", m.UserAID, "userB", m.UserBID)
	result.Matched = true
	result.MatchID = &m.ID
	return result, nil
}
