package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hostkita/panelstore/internal/apperrors"
	"github.com/hostkita/panelstore/internal/metrics"
	"github.com/hostkita/panelstore/internal/store"
)

const (
	defaultMaxAttempts = 3
	defaultBaseBackoff = 100 * time.Millisecond
)

// SubscriptionRepository provides read-modify-write access to the persisted
// document. Every mutation goes through Update, which retries the whole
// read-mutate-write cycle when the store reports a stale version token, so
// overlapping writers (an admin read racing a sweeper tick) cannot silently
// overwrite each other.
type SubscriptionRepository struct {
	store       store.DocumentStore
	maxAttempts int
	baseBackoff time.Duration
}

// NewSubscriptionRepository creates a repository over the given store.
func NewSubscriptionRepository(ds store.DocumentStore) *SubscriptionRepository {
	return &SubscriptionRepository{
		store:       ds,
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
	}
}

// Load reads and decodes the current document. The version token is only
// meaningful to the repository itself; readers get the document.
func (r *SubscriptionRepository) Load(ctx context.Context) (*Document, error) {
	doc, _, err := r.load(ctx)
	return doc, err
}

func (r *SubscriptionRepository) load(ctx context.Context) (*Document, string, error) {
	data, version, err := r.store.Read(ctx)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.KindPersist, "read document", err)
	}
	doc, err := decode(data)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.KindPersist, "decode document", err)
	}
	return doc, version, nil
}

// Update runs fn against a freshly loaded document and writes the result
// back under the version token from that load. On a version conflict the
// cycle is retried with exponential backoff; fn must therefore be safe to
// re-run (mutate by id, no external side effects).
func (r *SubscriptionRepository) Update(ctx context.Context, fn func(doc *Document) error) error {
	backoff := r.baseBackoff

	for attempt := 1; ; attempt++ {
		doc, version, err := r.load(ctx)
		if err != nil {
			return err
		}

		if err := fn(doc); err != nil {
			return err
		}

		data, err := doc.encode()
		if err != nil {
			return apperrors.Wrap(apperrors.KindPersist, "encode document", err)
		}

		_, err = r.store.Write(ctx, data, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return apperrors.Wrap(apperrors.KindPersist, "write document", err)
		}

		metrics.StoreConflicts.Inc()
		if attempt >= r.maxAttempts {
			return apperrors.Wrap(apperrors.KindPersist,
				fmt.Sprintf("write document: gave up after %d conflicting attempts", attempt), err)
		}

		log.Printf("[repository] Document version conflict, retrying (attempt %d/%d)", attempt, r.maxAttempts)
		select {
		case <-ctx.Done():
			return apperrors.Wrap(apperrors.KindPersist, "write document", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
