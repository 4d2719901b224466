package service

import (
	"context"

	"github.com/hostkita/panelstore/internal/client"
	"github.com/hostkita/panelstore/internal/models"
)

// PanelAPI is the slice of the hosting control-plane the services use.
// Declared here so tests can substitute a fake panel.
type PanelAPI interface {
	ListServers(ctx context.Context) ([]client.Server, error)
	GetServer(ctx context.Context, id int) (*client.Server, error)
	CreateServer(ctx context.Context, req client.CreateServerRequest) (*client.Server, error)
	DeleteServer(ctx context.Context, id int) error
	SuspendServer(ctx context.Context, id int) error
	UnsuspendServer(ctx context.Context, id int) error
	CreateUser(ctx context.Context, req client.CreateUserRequest) (*client.User, error)
	DeleteUser(ctx context.Context, id int) error
	FindUserByUsername(ctx context.Context, username string) (*client.User, error)
	GetUser(ctx context.Context, id int) (*client.User, error)
	GetEggStartup(ctx context.Context, nestID, eggID int) (string, error)
}

// PaymentAPI is the payment gateway surface consumed by the order flow.
type PaymentAPI interface {
	CreateTransaction(ctx context.Context, amount int64, orderID string) (*client.Transaction, error)
	CheckStatus(ctx context.Context, amount int64, orderID string) (string, error)
}

// Provisioner runs the account+server creation workflow.
type Provisioner interface {
	Provision(ctx context.Context, in ProvisionInput) (*models.PanelData, error)
}

// Deprovisioner tears down a remote server and, when safe, its owner
// account.
type Deprovisioner interface {
	Deprovision(ctx context.Context, serverID int) error
}

// Renewer extends an existing subscription.
type Renewer interface {
	Renew(ctx context.Context, in RenewInput) (*models.Subscription, error)
}
