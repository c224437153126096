package engine

import (
	"context"
	"log/slog"

	"github.com/studgram/studgram-bot/internal/logger"
)

// StatusFetcher is the approval-status query of the external system.
type StatusFetcher interface {
	ApplicationStatus(ctx context.Context, studentID string) (bool, error)
}

// Gate reconciles the locally cached approval flag with the external
// authority. HasAccess is the sticky-true/fail-closed fast path used by
// feature gating; Refresh re-queries unconditionally and is the only path
// that can revoke a cached approval.
type Gate struct {
	api StatusFetcher
	log *slog.Logger
}

// NewGate builds a Gate over the approval-status API.
func NewGate(api StatusFetcher) *Gate {
	return &Gate{api: api, log: logger.Component("gate")}
}

// HasAccess reports whether the user may use gated features. An approval,
// once observed, short-circuits true without a remote call. Users without a
// system id and remote failures are denied without mutating state.
func (g *Gate) HasAccess(ctx context.Context, user *User) bool {
	if user.ApplicationApproved {
		return true
	}
	if user.SystemID == "" {
		return false
	}

	approved, err := g.api.ApplicationStatus(ctx, user.SystemID)
	if err != nil {
		if g.log != nil {
			g.log.WarnContext(ctx, "gate.check",
				slog.Int64("user_id", user.ID),
				slog.String("status", "error"),
				slog.String("error", err.Error()))
		}
		return false
	}
	if approved {
		user.ApplicationApproved = true
		user.Status = StatusApproved
	}
	return approved
}

// Refresh re-queries the approval status unconditionally and updates the
// cached flag in both directions. On remote failure the cached state is left
// untouched and the error is returned.
func (g *Gate) Refresh(ctx context.Context, user *User) (bool, error) {
	if user.SystemID == "" {
		return false, nil
	}

	approved, err := g.api.ApplicationStatus(ctx, user.SystemID)
	if err != nil {
		return user.ApplicationApproved, err
	}

	user.ApplicationApproved = approved
	if approved {
		user.Status = StatusApproved
	} else if user.Status == StatusApproved {
		user.Status = StatusPending
	}
	return approved, nil
}
