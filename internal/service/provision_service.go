package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hostkita/panelstore/internal/apperrors"
	"github.com/hostkita/panelstore/internal/client"
	"github.com/hostkita/panelstore/internal/config"
	"github.com/hostkita/panelstore/internal/models"
	"github.com/hostkita/panelstore/internal/pricing"
)

// ProvisionService creates and destroys hosting accounts and servers on the
// control-plane. It performs no persisted writes: the caller owns the
// subscription record.
type ProvisionService struct {
	cfg   *config.Config
	panel PanelAPI
	now   func() time.Time
}

// NewProvisionService creates a provision service.
func NewProvisionService(cfg *config.Config, panel PanelAPI) *ProvisionService {
	return &ProvisionService{
		cfg:   cfg,
		panel: panel,
		now:   time.Now,
	}
}

// ProvisionInput is a paid order ready to be fulfilled.
type ProvisionInput struct {
	Username    string
	ProductName string
	Days        int
	Password    string
}

// Provision runs the full account + server creation workflow and returns
// the assembled panel record. Every remote failure is surfaced as a typed
// error; nothing is persisted here, so a failed run leaves no local state.
//
// If server creation fails after the account was created, the account is
// left in place and the error says so: an operator inspects orphans rather
// than us guessing at automatic rollback.
func (s *ProvisionService) Provision(ctx context.Context, in ProvisionInput) (*models.PanelData, error) {
	tier := pricing.MatchLabel(in.ProductName)

	// The check is advisory: a race against a concurrent registration is
	// possible, so the create call's own duplicate error is handled below
	// as the final authority.
	existing, err := s.panel.FindUserByUsername(ctx, in.Username)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindRemoteProvision, "check username uniqueness", err)
	}
	if existing != nil {
		return nil, apperrors.New(apperrors.KindDuplicateUser,
			fmt.Sprintf("username %q is already registered", in.Username))
	}

	email := in.Username + "@" + s.cfg.Panel.EmailDomain
	user, err := s.panel.CreateUser(ctx, client.CreateUserRequest{
		Username:  in.Username,
		Email:     email,
		FirstName: in.Username,
		LastName:  tier.Product,
		Password:  in.Password,
	})
	if err != nil {
		if errors.Is(err, client.ErrDuplicateUser) {
			return nil, apperrors.New(apperrors.KindDuplicateUser,
				fmt.Sprintf("username %q is already registered", in.Username))
		}
		return nil, apperrors.Wrap(apperrors.KindRemoteProvision, "create hosting account", err)
	}

	startup, err := s.panel.GetEggStartup(ctx, s.cfg.Panel.NestID, s.cfg.Panel.EggID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindRemoteTemplate, "resolve startup command", err)
	}

	server, err := s.panel.CreateServer(ctx, client.CreateServerRequest{
		Name:       in.Username + "-server",
		UserID:     user.ID,
		EggID:      s.cfg.Panel.EggID,
		NestID:     s.cfg.Panel.NestID,
		LocationID: s.cfg.Panel.LocationID,
		Startup:    startup,
		Image:      s.cfg.Panel.Image,
		Limits: client.ServerLimits{
			MemoryMB: tier.RAMMB,
			DiskMB:   tier.DiskMB,
			CPU:      tier.CPU,
		},
	})
	if err != nil {
		// The account from the previous step now exists with no server.
		return nil, apperrors.Wrap(apperrors.KindRemoteServer,
			fmt.Sprintf("create server (hosting account %d left without a server, needs inspection)", user.ID), err)
	}

	expiresAt := s.now().AddDate(0, 0, in.Days)

	log.Printf("[Provision] Created account %d and server %d for %s (%s, %d days)",
		user.ID, server.ID, in.Username, tier.Product, in.Days)

	return &models.PanelData{
		ServerID:   server.ID,
		ServerName: server.Name,
		OwnerID:    user.ID,
		OwnerEmail: email,
		Username:   in.Username,
		ExpiresAt:  expiresAt,
		Specs:      tier.Specs(),
	}, nil
}

// Deprovision deletes a server and, when the owning account has no servers
// left and is not an administrator, the account too. A server already gone
// from the panel counts as success; owner cleanup failures are logged but
// do not fail the operation.
func (s *ProvisionService) Deprovision(ctx context.Context, serverID int) error {
	ownerID := 0
	server, err := s.panel.GetServer(ctx, serverID)
	switch {
	case err == nil:
		ownerID = server.UserID
	case errors.Is(err, client.ErrPanelNotFound):
		// Already gone; still try the delete below as a no-op confirm.
	default:
		log.Printf("[Deprovision] Could not resolve owner of server %d: %v", serverID, err)
	}

	if err := s.panel.DeleteServer(ctx, serverID); err != nil {
		return apperrors.Wrap(apperrors.KindRemoteServer,
			fmt.Sprintf("delete server %d", serverID), err)
	}

	if ownerID != 0 {
		s.cleanupOwner(ctx, ownerID)
	}

	log.Printf("[Deprovision] Server %d deleted", serverID)
	return nil
}

func (s *ProvisionService) cleanupOwner(ctx context.Context, ownerID int) {
	owner, err := s.panel.GetUser(ctx, ownerID)
	if err != nil {
		log.Printf("[Deprovision] Could not fetch owner %d for cleanup: %v", ownerID, err)
		return
	}
	if owner.RootAdmin || owner.ServerCount > 0 {
		return
	}
	if err := s.panel.DeleteUser(ctx, ownerID); err != nil {
		log.Printf("[Deprovision] Could not delete empty account %d: %v", ownerID, err)
		return
	}
	log.Printf("[Deprovision] Deleted empty hosting account %d", ownerID)
}
