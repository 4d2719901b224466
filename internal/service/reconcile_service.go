package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hostkita/panelstore/internal/client"
	"github.com/hostkita/panelstore/internal/metrics"
	"github.com/hostkita/panelstore/internal/models"
	"github.com/hostkita/panelstore/internal/pricing"
	"github.com/hostkita/panelstore/internal/repository"
)

// defaultImportDays is the validity window granted to servers that exist on
// the panel but have no local record (created outside the storefront).
const defaultImportDays = 30

// ReconcileService merges the authoritative remote server list with the
// local subscription metadata. The remote side decides existence and
// suspension; the local side decides purchase terms. Servers unknown to the
// local list are imported with a default validity window.
type ReconcileService struct {
	repo  *repository.SubscriptionRepository
	panel PanelAPI
	now   func() time.Time
}

// NewReconcileService creates a reconcile service.
func NewReconcileService(repo *repository.SubscriptionRepository, panel PanelAPI) *ReconcileService {
	return &ReconcileService{
		repo:  repo,
		panel: panel,
		now:   time.Now,
	}
}

// List returns the enriched admin view of every subscription. A failed
// remote fetch degrades to local data instead of failing the read; imports
// of orphan servers are persisted in one write before returning.
func (s *ReconcileService) List(ctx context.Context) ([]models.SubscriptionView, error) {
	doc, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}

	servers, err := s.panel.ListServers(ctx)
	if err != nil {
		log.Printf("[Reconcile] Remote server list unavailable, serving local data: %v", err)
		return s.localViews(doc), nil
	}

	imported := s.importOrphans(doc, servers)
	if len(imported) > 0 {
		if err := s.persistImports(ctx, imported); err != nil {
			// The view below still includes the imports; they will be
			// persisted again on the next read.
			log.Printf("[Reconcile] Could not persist %d imported subscriptions: %v", len(imported), err)
		} else {
			log.Printf("[Reconcile] Imported %d servers without local records", len(imported))
		}
	}

	byID := make(map[int]client.Server, len(servers))
	for _, srv := range servers {
		byID[srv.ID] = srv
	}

	now := s.now()
	views := make([]models.SubscriptionView, 0, len(doc.Subscriptions))
	for _, sub := range doc.Subscriptions {
		view := models.SubscriptionView{Subscription: sub}
		if sub.PanelData == nil {
			view.Status = models.StatusActive
			views = append(views, view)
			continue
		}

		srv, known := byID[sub.PanelData.ServerID]
		remoteSuspended := known && srv.Suspended
		view.DaysLeft = DaysLeft(sub.PanelData.ExpiresAt, now)
		view.Status = DeriveStatus(remoteSuspended, sub.SuspendBy, sub.PanelData.ExpiresAt, now)
		view.Suspended = remoteSuspended
		if known {
			view.Node = srv.Node
		}
		views = append(views, view)
	}
	return views, nil
}

// importOrphans appends a synthetic subscription for every remote server
// with no local counterpart, mutating doc in place, and returns the new
// records.
func (s *ReconcileService) importOrphans(doc *repository.Document, servers []client.Server) []models.Subscription {
	var imported []models.Subscription
	for _, srv := range servers {
		if doc.FindByServerID(srv.ID) != nil {
			continue
		}
		sub := synthesize(srv)
		doc.Subscriptions = append(doc.Subscriptions, sub)
		imported = append(imported, sub)
		metrics.ReconcileImports.Inc()
	}
	return imported
}

// persistImports re-applies the imports against a fresh document load so a
// concurrent writer cannot be clobbered.
func (s *ReconcileService) persistImports(ctx context.Context, imported []models.Subscription) error {
	return s.repo.Update(ctx, func(doc *repository.Document) error {
		for _, sub := range imported {
			if doc.FindByServerID(sub.PanelData.ServerID) == nil {
				doc.Subscriptions = append(doc.Subscriptions, sub)
			}
		}
		return nil
	})
}

// localViews builds the zero-enrichment fallback when the panel is
// unreachable: stored fields only, with the local suspend owner standing in
// for the unknown remote flag.
func (s *ReconcileService) localViews(doc *repository.Document) []models.SubscriptionView {
	now := s.now()
	views := make([]models.SubscriptionView, 0, len(doc.Subscriptions))
	for _, sub := range doc.Subscriptions {
		view := models.SubscriptionView{Subscription: sub}
		if sub.PanelData != nil {
			locallySuspended := sub.SuspendBy != ""
			view.DaysLeft = DaysLeft(sub.PanelData.ExpiresAt, now)
			view.Status = DeriveStatus(locallySuspended, sub.SuspendBy, sub.PanelData.ExpiresAt, now)
			view.Suspended = locallySuspended
		}
		views = append(views, view)
	}
	return views
}

// synthesize builds the default record for a server created outside the
// storefront: 30 days of validity from the remote creation time.
func synthesize(srv client.Server) models.Subscription {
	username := srv.OwnerUsername
	if username == "" {
		username = fmt.Sprintf("user-%d", srv.UserID)
	}
	tier := pricing.MatchRAM(srv.Limits.MemoryMB)

	return models.Subscription{
		ID:          uuid.New().String(),
		Username:    username,
		ProductName: tier.Product,
		Days:        defaultImportDays,
		CreatedAt:   srv.CreatedAt,
		PanelData: &models.PanelData{
			ServerID:   srv.ID,
			ServerName: srv.Name,
			OwnerID:    srv.UserID,
			OwnerEmail: srv.OwnerEmail,
			Username:   username,
			ExpiresAt:  srv.CreatedAt.AddDate(0, 0, defaultImportDays),
			Specs:      specsFromLimits(srv.Limits),
		},
	}
}

func specsFromLimits(l client.ServerLimits) models.Specs {
	tier := pricing.MatchRAM(l.MemoryMB)
	specs := tier.Specs()
	// Preserve the actual limits when they differ from the matched tier.
	specs.RAMRaw = l.MemoryMB
	specs.CPURaw = l.CPU
	specs.DiskRaw = l.DiskMB
	return specs
}
