package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostkita/panelstore/internal/client"
	"github.com/hostkita/panelstore/internal/models"
	"github.com/hostkita/panelstore/internal/repository"
	"github.com/hostkita/panelstore/internal/store"
)

func newTestReconcile(t *testing.T, panel *fakePanel, subs ...models.Subscription) (*ReconcileService, *repository.SubscriptionRepository) {
	t.Helper()
	repo := seededRepo(t, store.NewMemStore(), subs...)
	svc := NewReconcileService(repo, panel)
	svc.now = func() time.Time { return statusNow }
	return svc, repo
}

func TestReconcile_EnrichesFromRemote(t *testing.T) {
	panel := newFakePanel()
	srv := panelServer(10)
	srv.Suspended = true
	panel.addServer(srv)

	sub := testSub("a1", 10, "alice", statusNow.AddDate(0, 0, 5))
	sub.SuspendBy = models.SuspendByAdmin

	svc, _ := newTestReconcile(t, panel, sub)
	views, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)

	assert.Equal(t, models.StatusAdminLocked, views[0].Status)
	assert.True(t, views[0].Suspended)
	assert.Equal(t, 5, views[0].DaysLeft)
	assert.Equal(t, "node-1", views[0].Node)
}

func TestReconcile_ImportsOrphanServers(t *testing.T) {
	panel := newFakePanel()
	srv := panelServer(10)
	srv.OwnerUsername = "alice"
	srv.CreatedAt = statusNow.AddDate(0, 0, -3)
	panel.addServer(srv)

	svc, repo := newTestReconcile(t, panel)
	views, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)

	assert.Equal(t, "alice", views[0].Username)
	assert.Equal(t, defaultImportDays, views[0].Days)

	// The import is persisted with a 30-day window from remote creation.
	doc, err := repo.Load(context.Background())
	require.NoError(t, err)
	imported := doc.FindByServerID(10)
	require.NotNil(t, imported)
	assert.NotEmpty(t, imported.ID)
	assert.Equal(t, srv.CreatedAt.AddDate(0, 0, defaultImportDays), imported.PanelData.ExpiresAt)
	assert.Equal(t, "panel-1gb", imported.ProductName)

	// A second reconcile must not import the same server again.
	_, err = svc.List(context.Background())
	require.NoError(t, err)
	doc, err = repo.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, doc.Subscriptions, 1)
}

func TestReconcile_ImportWithoutOwnerUsername(t *testing.T) {
	panel := newFakePanel()
	srv := panelServer(10)
	srv.CreatedAt = statusNow
	panel.addServer(srv)

	svc, _ := newTestReconcile(t, panel)
	views, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "user-410", views[0].Username)
}

func TestReconcile_ImportPreservesActualLimits(t *testing.T) {
	panel := newFakePanel()
	srv := panelServer(10)
	srv.CreatedAt = statusNow
	srv.Limits = client.ServerLimits{MemoryMB: 1536, DiskMB: 4096, CPU: 50}
	panel.addServer(srv)

	svc, repo := newTestReconcile(t, panel)
	_, err := svc.List(context.Background())
	require.NoError(t, err)

	doc, err := repo.Load(context.Background())
	require.NoError(t, err)
	specs := doc.FindByServerID(10).PanelData.Specs
	assert.Equal(t, 1536, specs.RAMRaw)
	assert.Equal(t, 4096, specs.DiskRaw)
	assert.Equal(t, 50, specs.CPURaw)
}

func TestReconcile_DegradesToLocalOnRemoteFailure(t *testing.T) {
	panel := newFakePanel()
	panel.listErr = errors.New("panel unreachable")

	active := testSub("a1", 10, "alice", statusNow.AddDate(0, 0, 5))
	locked := testSub("a2", 11, "bob", statusNow.AddDate(0, 0, 5))
	locked.SuspendBy = models.SuspendByAdmin

	svc, _ := newTestReconcile(t, panel, active, locked)
	views, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)

	// Without the remote flag the local suspend owner stands in.
	assert.Equal(t, models.StatusActive, views[0].Status)
	assert.False(t, views[0].Suspended)
	assert.Equal(t, models.StatusAdminLocked, views[1].Status)
	assert.True(t, views[1].Suspended)
	assert.Empty(t, views[1].Node)
}

func TestReconcile_LocalRecordGoneFromRemote(t *testing.T) {
	// A record whose server vanished remotely still lists, derived from
	// local data alone.
	panel := newFakePanel()
	svc, _ := newTestReconcile(t, panel, testSub("a1", 10, "alice", statusNow.AddDate(0, 0, -1)))

	views, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, models.StatusExpiredRunning, views[0].Status)
	assert.False(t, views[0].Suspended)
}
