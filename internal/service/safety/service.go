// Package safety handles blocks and reports between users.
package safety

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matchfeed/internal/app"
	svcErr "github.com/oggyb/matchfeed/internal/errors"
	"github.com/oggyb/matchfeed/internal/repository"
)

type Service struct {
	appCtx     *app.AppContext
	userRepo   *repository.UserRepository
	blockRepo  *repository.BlockRepository
	reportRepo *repository.ReportRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:     appCtx,
		userRepo:   repository.NewUserRepository(appCtx.DB),
		blockRepo:  repository.NewBlockRepository(appCtx.DB),
		reportRepo: repository.NewReportRepository(appCtx.DB),
	}
}

type BlockResult struct {
	ID            string `json:"id"`
	BlockedUserID string `json:"blockedUserId"`
}

type ReportResult struct {
	ID             string    `json:"id"`
	ReportedUserID string    `json:"reportedUserId"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (s *Service) requireUser(ctx context.Context, id string) error {
	exists, err := s.userRepo.Exists(ctx, id)
	if err != nil {
		return svcErr.Map(err)
	}
	if !exists {
		return svcErr.NotFound("User not found")
	}
	return nil
}

// Block hides blocker and blocked from each other's feed and stops messaging.
//
// Behavior:
//   - Self-block is BAD_INPUT, an unknown user NOT_FOUND, a repeat ALREADY_EXISTS.
//   - The duplicate check is the unique (blocker_id, blocked_id) index.
func (s *Service) Block(ctx context.Context, blockerID, blockedID string) (*BlockResult, error) {
	s.appCtx.Logger.Debug("Block called", "blocker", blockerID, "blocked", blockedID)

	if blockerID == blockedID {
		return nil, svcErr.BadInput("Cannot block yourself")
	}
	if err := s.requireUser(ctx, blockedID); err != nil {
		return nil, err
	}

	b, err := s.blockRepo.Create(ctx, blockerID, blockedID)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, svcErr.AlreadyExists("Already blocked")
	}
	if err != nil {
		s.appCtx.Logger.Error("Block create failed", "blocker", blockerID, "err", err)
		return nil, svcErr.Map(err)
	}
	return &BlockResult{ID: b.ID, BlockedUserID: b.BlockedID}, nil
}

// Unblock is idempotent.
func (s *Service) Unblock(ctx context.Context, blockerID, blockedID string) error {
	s.appCtx.Logger.Debug("Unblock called", "blocker", blockerID, "blocked", blockedID)
	if err := s.blockRepo.Delete(ctx, blockerID, blockedID); err != nil {
		return svcErr.Map(err)
	}
	return nil
}

// Report files a report; repeats are kept.
func (s *Service) Report(ctx context.Context, reporterID, reportedID, reason string) (*ReportResult, error) {
	s.appCtx.Logger.Debug("Report called", "reporter", reporterID, "reported", reportedID)

	if reporterID == reportedID {
		return nil, svcErr.BadInput("Cannot report yourself")
	}
	if err := s.requireUser(ctx, reportedID); err != nil {
		return nil, err
	}

	r, err := s.reportRepo.Create(ctx, reporterID, reportedID, reason)
	if err != nil {
		s.appCtx.Logger.Error("Report create failed", "reporter", reporterID, "err", err)
		return nil, svcErr.Map(err)
	}
	s.appCtx.Logger.Info("User reported", "report", r.ID, "reported", reportedID)
	return &ReportResult{ID: r.ID, ReportedUserID: r.ReportedID, CreatedAt: r.CreatedAt.UTC()}, nil
}
