package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostkita/panelstore/internal/repository"
)

type fakeLoader struct {
	doc   *repository.Document
	err   error
	loads int
}

func (l *fakeLoader) Load(ctx context.Context) (*repository.Document, error) {
	l.loads++
	if l.err != nil {
		return nil, l.err
	}
	return l.doc, nil
}

func TestCache_ServesWithinTTL(t *testing.T) {
	doc := repository.NewDocument()
	doc.Settings.Maintenance = true
	loader := &fakeLoader{doc: doc}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c := NewCache(loader, time.Minute)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	assert.True(t, c.Get(ctx).Maintenance)
	assert.True(t, c.Get(ctx).Maintenance)
	assert.Equal(t, 1, loader.loads)

	// Past the TTL the next read refreshes.
	now = base.Add(2 * time.Minute)
	c.Get(ctx)
	assert.Equal(t, 2, loader.loads)
}

func TestCache_FallsBackToDefaultsWhenNeverLoaded(t *testing.T) {
	loader := &fakeLoader{err: errors.New("store down")}
	c := NewCache(loader, time.Minute)

	got := c.Get(context.Background())
	assert.False(t, got.Maintenance)
	assert.Equal(t, int64(3000), got.Prices["panel-1gb"])
}

func TestCache_FallsBackToLastGoodValue(t *testing.T) {
	doc := repository.NewDocument()
	doc.Settings.LogoURL = "https://cdn.example/logo.png"
	loader := &fakeLoader{doc: doc}

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	c := NewCache(loader, time.Minute)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.Equal(t, "https://cdn.example/logo.png", c.Get(ctx).LogoURL)

	// Store goes down after the TTL expires: the stale copy is served.
	loader.err = errors.New("store down")
	now = base.Add(2 * time.Minute)
	assert.Equal(t, "https://cdn.example/logo.png", c.Get(ctx).LogoURL)
}

func TestCache_Invalidate(t *testing.T) {
	loader := &fakeLoader{doc: repository.NewDocument()}
	c := NewCache(loader, time.Hour)
	ctx := context.Background()

	c.Get(ctx)
	c.Get(ctx)
	require.Equal(t, 1, loader.loads)

	c.Invalidate()
	c.Get(ctx)
	assert.Equal(t, 2, loader.loads)
}
