package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostkita/panelstore/internal/apperrors"
	"github.com/hostkita/panelstore/internal/models"
	"github.com/hostkita/panelstore/internal/repository"
	"github.com/hostkita/panelstore/internal/store"
)

func newTestRenewal(t *testing.T, panel *fakePanel, subs ...models.Subscription) (*RenewalService, *repository.SubscriptionRepository) {
	t.Helper()
	repo := seededRepo(t, store.NewMemStore(), subs...)
	svc := NewRenewalService(repo, panel)
	svc.now = func() time.Time { return statusNow }
	return svc, repo
}

func TestRenew_ExpiredRestartsFromNow(t *testing.T) {
	panel := newFakePanel()
	panel.addServer(panelServer(10))

	// Expired 10 days ago: renewing by 15 gives now+15, not expiry+15.
	sub := testSub("a1", 10, "alice", statusNow.AddDate(0, 0, -10))
	sub.SuspendBy = models.SuspendByAuto

	svc, repo := newTestRenewal(t, panel, sub)
	renewed, err := svc.Renew(context.Background(), RenewInput{ServerID: 10, Days: 15})
	require.NoError(t, err)

	assert.Equal(t, statusNow.AddDate(0, 0, 15), renewed.PanelData.ExpiresAt)
	assert.Equal(t, 45, renewed.Days)
	assert.Empty(t, renewed.SuspendBy)
	assert.Equal(t, []int{10}, panel.unsuspendCalls)

	doc, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, statusNow.AddDate(0, 0, 15), doc.FindByServerID(10).PanelData.ExpiresAt)
}

func TestRenew_ActiveStacksOnRemainingTime(t *testing.T) {
	panel := newFakePanel()
	panel.addServer(panelServer(10))
	expiry := statusNow.AddDate(0, 0, 5)

	svc, _ := newTestRenewal(t, panel, testSub("a1", 10, "alice", expiry))
	renewed, err := svc.Renew(context.Background(), RenewInput{ServerID: 10, Days: 30})
	require.NoError(t, err)

	assert.Equal(t, expiry.AddDate(0, 0, 30), renewed.PanelData.ExpiresAt)
}

func TestRenew_ExtensionsAreMonotone(t *testing.T) {
	panel := newFakePanel()
	panel.addServer(panelServer(10))

	svc, _ := newTestRenewal(t, panel, testSub("a1", 10, "alice", statusNow.AddDate(0, 0, -3)))

	first, err := svc.Renew(context.Background(), RenewInput{ServerID: 10, Days: 7})
	require.NoError(t, err)
	second, err := svc.Renew(context.Background(), RenewInput{ServerID: 10, Days: 7})
	require.NoError(t, err)

	assert.True(t, second.PanelData.ExpiresAt.After(first.PanelData.ExpiresAt))
}

func TestRenew_UsernameFallback(t *testing.T) {
	panel := newFakePanel()
	panel.addServer(panelServer(10))

	svc, _ := newTestRenewal(t, panel, testSub("a1", 10, "alice", statusNow.AddDate(0, 0, 5)))
	renewed, err := svc.Renew(context.Background(), RenewInput{Username: "alice", Days: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, renewed.PanelData.ServerID)
}

func TestRenew_TierRederivedFromRAM(t *testing.T) {
	panel := newFakePanel()
	panel.addServer(panelServer(10))

	// The stored product name drifted; the RAM limit is the truth.
	sub := testSub("a1", 10, "alice", statusNow.AddDate(0, 0, 5))
	sub.ProductName = "panel-1gb"
	sub.PanelData.Specs.RAMRaw = 2048

	svc, _ := newTestRenewal(t, panel, sub)
	renewed, err := svc.Renew(context.Background(), RenewInput{ServerID: 10, Days: 10})
	require.NoError(t, err)
	assert.Equal(t, "panel-2gb", renewed.ProductName)
}

func TestRenew_UnknownTarget(t *testing.T) {
	svc, _ := newTestRenewal(t, newFakePanel())

	_, err := svc.Renew(context.Background(), RenewInput{ServerID: 99, Days: 10})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	_, err = svc.Renew(context.Background(), RenewInput{Username: "nobody", Days: 10})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestRenew_RejectsNonPositiveDays(t *testing.T) {
	svc, _ := newTestRenewal(t, newFakePanel())

	_, err := svc.Renew(context.Background(), RenewInput{ServerID: 10, Days: 0})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestRenew_PersistFailureSkipsUnsuspend(t *testing.T) {
	panel := newFakePanel()
	panel.addServer(panelServer(10))

	// Seed through the inner store, then serve the service a wrapper that
	// fails every write.
	broken := &brokenStore{MemStore: store.NewMemStore()}
	seededRepo(t, broken.MemStore, testSub("a1", 10, "alice", statusNow.AddDate(0, 0, -2)))

	svc := NewRenewalService(repository.NewSubscriptionRepository(broken), panel)
	svc.now = func() time.Time { return statusNow }

	_, err := svc.Renew(context.Background(), RenewInput{ServerID: 10, Days: 15})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindPersist))

	// The panel must not be unsuspended when the extension never committed.
	assert.Empty(t, panel.unsuspendCalls)
}

func TestRenew_UnsuspendFailureDoesNotFail(t *testing.T) {
	panel := newFakePanel()
	panel.addServer(panelServer(10))
	panel.unsuspendErr = context.DeadlineExceeded

	svc, repo := newTestRenewal(t, panel, testSub("a1", 10, "alice", statusNow.AddDate(0, 0, -2)))
	renewed, err := svc.Renew(context.Background(), RenewInput{ServerID: 10, Days: 15})
	require.NoError(t, err)
	assert.Equal(t, statusNow.AddDate(0, 0, 15), renewed.PanelData.ExpiresAt)

	// The committed extension survives the failed remote call.
	doc, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, statusNow.AddDate(0, 0, 15), doc.FindByServerID(10).PanelData.ExpiresAt)
}
