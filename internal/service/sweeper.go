package service

import (
	"context"
	"log"
	"time"

	"github.com/hostkita/panelstore/internal/metrics"
	"github.com/hostkita/panelstore/internal/models"
	"github.com/hostkita/panelstore/internal/repository"
)

// Sweeper enforces the expiry policy on a fixed interval, independent of
// any request: suspend subscriptions past expiry, delete subscriptions past
// expiry plus the grace period. Records locked by an administrator are
// never touched.
type Sweeper struct {
	repo        *repository.SubscriptionRepository
	panel       PanelAPI
	deprovision Deprovisioner
	interval    time.Duration
	graceDays   int
	now         func() time.Time
}

// NewSweeper creates a sweeper with the given cadence and grace period.
func NewSweeper(repo *repository.SubscriptionRepository, panel PanelAPI, deprovision Deprovisioner, interval time.Duration, graceDays int) *Sweeper {
	return &Sweeper{
		repo:        repo,
		panel:       panel,
		deprovision: deprovision,
		interval:    interval,
		graceDays:   graceDays,
		now:         time.Now,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	log.Printf("[Sweeper] Started: interval=%s grace=%dd", s.interval, s.graceDays)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Sweeper] Stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				log.Printf("[Sweeper] Tick failed: %v", err)
			}
		}
	}
}

// RunOnce executes a single sweep tick: a suspend pass, then a delete pass,
// then exactly one persisted write covering every mutation of the tick.
// Remote failures leave the affected record untouched for the next tick;
// suspension is idempotent on the panel, so retrying is safe.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	metrics.SweepTicks.Inc()

	doc, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	now := s.now()

	// Suspend pass: every expired, not-yet-auto-suspended record.
	var suspended []int
	for i := range doc.Subscriptions {
		sub := &doc.Subscriptions[i]
		if sub.SuspendBy == models.SuspendByAdmin || sub.PanelData == nil {
			continue
		}
		expiresAt := sub.PanelData.ExpiresAt
		if !expiresAt.Before(now) || sub.SuspendBy == models.SuspendByAuto {
			continue
		}

		if err := s.panel.SuspendServer(ctx, sub.PanelData.ServerID); err != nil {
			log.Printf("[Sweeper] Suspend failed for server %d (%s), will retry next tick: %v",
				sub.PanelData.ServerID, sub.Username, err)
			continue
		}
		log.Printf("[Sweeper] Suspended server %d (%s), expired %s",
			sub.PanelData.ServerID, sub.Username, expiresAt.Format(time.RFC3339))
		suspended = append(suspended, sub.PanelData.ServerID)
		metrics.SweepSuspends.Inc()
	}

	// Delete pass: collect every record past the grace period first, then
	// deprovision in reverse order. Mutations are only applied after both
	// passes complete, never interleaved.
	var candidates []int
	for i := range doc.Subscriptions {
		sub := &doc.Subscriptions[i]
		if sub.SuspendBy == models.SuspendByAdmin || sub.PanelData == nil {
			continue
		}
		expiresAt := sub.PanelData.ExpiresAt
		if expiresAt.Before(now) && DaysPast(expiresAt, now) >= s.graceDays {
			candidates = append(candidates, sub.PanelData.ServerID)
		}
	}

	var deleted []int
	for i := len(candidates) - 1; i >= 0; i-- {
		serverID := candidates[i]
		if err := s.deprovision.Deprovision(ctx, serverID); err != nil {
			log.Printf("[Sweeper] Deprovision failed for server %d, record kept for retry: %v", serverID, err)
			continue
		}
		deleted = append(deleted, serverID)
		metrics.SweepDeletes.Inc()
	}

	if len(suspended) == 0 && len(deleted) == 0 {
		return nil
	}

	// One batched write for the whole tick. Applying by server id keeps
	// the mutation safe to re-run on a version conflict.
	err = s.repo.Update(ctx, func(doc *repository.Document) error {
		for _, serverID := range suspended {
			if sub := doc.FindByServerID(serverID); sub != nil && sub.SuspendBy != models.SuspendByAdmin {
				sub.SuspendBy = models.SuspendByAuto
			}
		}
		for _, serverID := range deleted {
			doc.RemoveByServerID(serverID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("[Sweeper] Tick done: %d suspended, %d deleted", len(suspended), len(deleted))
	return nil
}
