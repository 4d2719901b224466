package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hostkita/panelstore/internal/apperrors"
	"github.com/hostkita/panelstore/internal/metrics"
	"github.com/hostkita/panelstore/internal/models"
	"github.com/hostkita/panelstore/internal/pricing"
	"github.com/hostkita/panelstore/internal/repository"
)

// RenewalService extends subscriptions. The persisted extension commits
// first; the remote unsuspend is best-effort afterwards, so storage can
// never show expired while the panel shows active.
type RenewalService struct {
	repo  *repository.SubscriptionRepository
	panel PanelAPI
	now   func() time.Time
}

// NewRenewalService creates a renewal service.
func NewRenewalService(repo *repository.SubscriptionRepository, panel PanelAPI) *RenewalService {
	return &RenewalService{
		repo:  repo,
		panel: panel,
		now:   time.Now,
	}
}

// RenewInput identifies the target by server id, or by username when the
// caller does not know the server id.
type RenewInput struct {
	ServerID int
	Username string
	Days     int
}

// Renew extends the target subscription by Days. The new expiry is computed
// from max(current expiry, now): an expired subscription restarts from now
// rather than from its stale expiry, and renewing early stacks on top of
// the remaining time. The product tier is re-derived from the stored RAM
// limit, and any suspension flag is cleared.
func (s *RenewalService) Renew(ctx context.Context, in RenewInput) (*models.Subscription, error) {
	if in.Days <= 0 {
		return nil, apperrors.New(apperrors.KindValidation, "days must be positive")
	}

	var renewed models.Subscription
	err := s.repo.Update(ctx, func(doc *repository.Document) error {
		sub := s.resolve(doc, in)
		if sub == nil {
			return apperrors.New(apperrors.KindNotFound, s.targetName(in))
		}
		if sub.PanelData == nil {
			return apperrors.New(apperrors.KindNotFound,
				fmt.Sprintf("subscription %s has no panel record", sub.ID))
		}

		tier := pricing.MatchRAM(sub.PanelData.Specs.RAMRaw)

		base := sub.PanelData.ExpiresAt
		now := s.now()
		if base.Before(now) {
			base = now
		}

		sub.PanelData.ExpiresAt = base.AddDate(0, 0, in.Days)
		sub.Days += in.Days
		sub.ProductName = tier.Product
		sub.SuspendBy = ""

		renewed = *sub
		return nil
	})
	if err != nil {
		// On a persist failure the unsuspend below must not run: the panel
		// would show active while storage still says expired.
		return nil, err
	}

	if err := s.panel.UnsuspendServer(ctx, renewed.PanelData.ServerID); err != nil {
		// Best-effort: the extension is already committed, and the next
		// unsuspend attempt (or sweeper-independent user action) recovers.
		log.Printf("[Renewal] Unsuspend failed for server %d: %v", renewed.PanelData.ServerID, err)
	}

	metrics.RenewalTotal.Inc()
	log.Printf("[Renewal] Extended %s (server %d) by %d days, new expiry %s",
		renewed.Username, renewed.PanelData.ServerID, in.Days,
		renewed.PanelData.ExpiresAt.Format(time.RFC3339))
	return &renewed, nil
}

// resolve finds the target record: server id first, username fallback.
func (s *RenewalService) resolve(doc *repository.Document, in RenewInput) *models.Subscription {
	if in.ServerID != 0 {
		return doc.FindByServerID(in.ServerID)
	}
	if in.Username != "" {
		if sub := doc.FindByUsername(in.Username); sub != nil {
			return sub
		}
	}
	return nil
}

func (s *RenewalService) targetName(in RenewInput) string {
	if in.ServerID != 0 {
		return fmt.Sprintf("no subscription for server %d", in.ServerID)
	}
	return fmt.Sprintf("no subscription for username %q", in.Username)
}
