package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hostkita/panelstore/internal/client"
	"github.com/hostkita/panelstore/internal/config"
	"github.com/hostkita/panelstore/internal/models"
	"github.com/hostkita/panelstore/internal/repository"
	"github.com/hostkita/panelstore/internal/store"
)

// fakePanel is an in-memory control-plane double. Per-method error fields
// force failures; the call slices record what the service asked for.
type fakePanel struct {
	mu      sync.Mutex
	servers map[int]client.Server
	users   map[int]client.User

	nextServerID int
	nextUserID   int

	listErr         error
	suspendErr      error
	unsuspendErr    error
	createUserErr   error
	createServerErr error
	eggErr          error
	findUserErr     error
	deleteServerErr error

	suspendCalls   []int
	unsuspendCalls []int
	deletedServers []int
	deletedUsers   []int
}

func newFakePanel() *fakePanel {
	return &fakePanel{
		servers:      make(map[int]client.Server),
		users:        make(map[int]client.User),
		nextServerID: 100,
		nextUserID:   500,
	}
}

func (p *fakePanel) addServer(srv client.Server) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.servers[srv.ID] = srv
}

func (p *fakePanel) addUser(u client.User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.ID] = u
}

func (p *fakePanel) server(id int) (client.Server, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	srv, ok := p.servers[id]
	return srv, ok
}

func (p *fakePanel) ListServers(ctx context.Context) ([]client.Server, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	out := make([]client.Server, 0, len(p.servers))
	for _, srv := range p.servers {
		out = append(out, srv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *fakePanel) GetServer(ctx context.Context, id int) (*client.Server, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	srv, ok := p.servers[id]
	if !ok {
		return nil, client.ErrPanelNotFound
	}
	return &srv, nil
}

func (p *fakePanel) CreateServer(ctx context.Context, req client.CreateServerRequest) (*client.Server, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createServerErr != nil {
		return nil, p.createServerErr
	}
	p.nextServerID++
	srv := client.Server{
		ID:     p.nextServerID,
		Name:   req.Name,
		UserID: req.UserID,
		Limits: req.Limits,
	}
	p.servers[srv.ID] = srv
	return &srv, nil
}

func (p *fakePanel) DeleteServer(ctx context.Context, id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleteServerErr != nil {
		return p.deleteServerErr
	}
	delete(p.servers, id)
	p.deletedServers = append(p.deletedServers, id)
	return nil
}

func (p *fakePanel) SuspendServer(ctx context.Context, id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.suspendErr != nil {
		return p.suspendErr
	}
	if srv, ok := p.servers[id]; ok {
		srv.Suspended = true
		p.servers[id] = srv
	}
	p.suspendCalls = append(p.suspendCalls, id)
	return nil
}

func (p *fakePanel) UnsuspendServer(ctx context.Context, id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.unsuspendErr != nil {
		return p.unsuspendErr
	}
	if srv, ok := p.servers[id]; ok {
		srv.Suspended = false
		p.servers[id] = srv
	}
	p.unsuspendCalls = append(p.unsuspendCalls, id)
	return nil
}

func (p *fakePanel) CreateUser(ctx context.Context, req client.CreateUserRequest) (*client.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createUserErr != nil {
		return nil, p.createUserErr
	}
	for _, u := range p.users {
		if u.Username == req.Username {
			return nil, client.ErrDuplicateUser
		}
	}
	p.nextUserID++
	u := client.User{ID: p.nextUserID, Username: req.Username, Email: req.Email}
	p.users[u.ID] = u
	return &u, nil
}

func (p *fakePanel) DeleteUser(ctx context.Context, id int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.users, id)
	p.deletedUsers = append(p.deletedUsers, id)
	return nil
}

func (p *fakePanel) FindUserByUsername(ctx context.Context, username string) (*client.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.findUserErr != nil {
		return nil, p.findUserErr
	}
	for _, u := range p.users {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (p *fakePanel) GetUser(ctx context.Context, id int) (*client.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[id]
	if !ok {
		return nil, client.ErrPanelNotFound
	}
	count := 0
	for _, srv := range p.servers {
		if srv.UserID == id {
			count++
		}
	}
	u.ServerCount = count
	return &u, nil
}

func (p *fakePanel) GetEggStartup(ctx context.Context, nestID, eggID int) (string, error) {
	if p.eggErr != nil {
		return "", p.eggErr
	}
	return "java -jar server.jar", nil
}

// fakePayment is a gateway double with a scripted payment status.
type fakePayment struct {
	mu        sync.Mutex
	status    string
	createErr error
	checkErr  error
	created   []string
	checks    int
}

func (p *fakePayment) CreateTransaction(ctx context.Context, amount int64, orderID string) (*client.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.created = append(p.created, orderID)
	return &client.Transaction{Reference: "ref-" + orderID, QRPayload: "qr-" + orderID}, nil
}

func (p *fakePayment) CheckStatus(ctx context.Context, amount int64, orderID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks++
	if p.checkErr != nil {
		return "", p.checkErr
	}
	return p.status, nil
}

// countingStore counts writes so tests can assert on write batching.
type countingStore struct {
	*store.MemStore
	writes int
}

func (s *countingStore) Write(ctx context.Context, data []byte, version string) (string, error) {
	s.writes++
	return s.MemStore.Write(ctx, data, version)
}

// brokenStore fails every write.
type brokenStore struct {
	*store.MemStore
}

func (s *brokenStore) Write(ctx context.Context, data []byte, version string) (string, error) {
	return "", errors.New("store down")
}

func seededRepo(t *testing.T, ds store.DocumentStore, subs ...models.Subscription) *repository.SubscriptionRepository {
	t.Helper()
	repo := repository.NewSubscriptionRepository(ds)
	if len(subs) > 0 {
		err := repo.Update(context.Background(), func(doc *repository.Document) error {
			doc.Subscriptions = append(doc.Subscriptions, subs...)
			return nil
		})
		require.NoError(t, err)
	}
	return repo
}

func testConfig() *config.Config {
	return &config.Config{
		Panel: config.PanelConfig{
			URL:         "http://panel.test",
			APIKey:      "key",
			NestID:      5,
			EggID:       15,
			LocationID:  1,
			Image:       "ghcr.io/panel/java:17",
			EmailDomain: "mail.test",
		},
	}
}

func panelServer(id int) client.Server {
	return client.Server{
		ID:     id,
		Name:   "srv",
		UserID: id + 400,
		Node:   "node-1",
		Limits: client.ServerLimits{MemoryMB: 1024, DiskMB: 1024, CPU: 40},
	}
}

func testSub(id string, serverID int, username string, expiresAt time.Time) models.Subscription {
	return models.Subscription{
		ID:          id,
		Username:    username,
		ProductName: "panel-1gb",
		Days:        30,
		CreatedAt:   expiresAt.AddDate(0, 0, -30),
		PanelData: &models.PanelData{
			ServerID:   serverID,
			ServerName: username + "-server",
			Username:   username,
			ExpiresAt:  expiresAt,
			Specs:      models.Specs{RAM: "1024 MB", RAMRaw: 1024, CPURaw: 40, DiskRaw: 1024},
		},
	}
}
