package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hostkita/panelstore/internal/apperrors"
	"github.com/hostkita/panelstore/internal/models"
	"github.com/hostkita/panelstore/internal/repository"
)

// SubscriptionService carries the administrative mutations on individual
// subscriptions: manual suspend/unsuspend locks and explicit removal.
type SubscriptionService struct {
	repo        *repository.SubscriptionRepository
	panel       PanelAPI
	deprovision Deprovisioner
	now         func() time.Time
}

// NewSubscriptionService creates a subscription admin service.
func NewSubscriptionService(repo *repository.SubscriptionRepository, panel PanelAPI, deprovision Deprovisioner) *SubscriptionService {
	return &SubscriptionService{
		repo:        repo,
		panel:       panel,
		deprovision: deprovision,
		now:         time.Now,
	}
}

// Suspend places a manual lock: the server is suspended on the panel and
// suspend_by is set to "admin", which exempts the record from the sweeper
// until an administrator lifts it.
func (s *SubscriptionService) Suspend(ctx context.Context, serverID int) error {
	if err := s.panel.SuspendServer(ctx, serverID); err != nil {
		return apperrors.Wrap(apperrors.KindRemoteServer,
			fmt.Sprintf("suspend server %d", serverID), err)
	}

	return s.repo.Update(ctx, func(doc *repository.Document) error {
		sub := doc.FindByServerID(serverID)
		if sub == nil {
			return apperrors.New(apperrors.KindNotFound,
				fmt.Sprintf("no subscription for server %d", serverID))
		}
		sub.SuspendBy = models.SuspendByAdmin
		return nil
	})
}

// Unsuspend lifts a suspension. The cleared flag commits first; the remote
// unsuspend is best-effort, same as renewal.
func (s *SubscriptionService) Unsuspend(ctx context.Context, serverID int) error {
	err := s.repo.Update(ctx, func(doc *repository.Document) error {
		sub := doc.FindByServerID(serverID)
		if sub == nil {
			return apperrors.New(apperrors.KindNotFound,
				fmt.Sprintf("no subscription for server %d", serverID))
		}
		sub.SuspendBy = ""
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.panel.UnsuspendServer(ctx, serverID); err != nil {
		log.Printf("[Subscription] Unsuspend failed for server %d: %v", serverID, err)
	}
	return nil
}

// Delete removes a subscription outright: remote deprovisioning first, then
// the local record. A failed deprovision keeps the record so the operation
// can be retried.
func (s *SubscriptionService) Delete(ctx context.Context, serverID int) error {
	if err := s.deprovision.Deprovision(ctx, serverID); err != nil {
		return err
	}

	return s.repo.Update(ctx, func(doc *repository.Document) error {
		if !doc.RemoveByServerID(serverID) {
			return apperrors.New(apperrors.KindNotFound,
				fmt.Sprintf("no subscription for server %d", serverID))
		}
		return nil
	})
}
