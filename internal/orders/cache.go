// Package orders keeps in-flight purchase state for the lifetime of the
// process. Orders are deliberately not persisted: after a restart a payment
// can be re-verified against the gateway by order id.
package orders

import (
	"log"
	"sync"
	"time"

	"github.com/hostkita/panelstore/internal/models"
)

// Store is the order cache contract. It is injected rather than referenced
// as a package global so services can take test doubles.
type Store interface {
	Get(orderID string) (models.Order, bool)
	Put(order models.Order)
	Delete(orderID string)
	Sweep(maxAge time.Duration) int
}

// MemoryStore is the process-lifetime order cache.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]models.Order
}

// NewMemoryStore creates an empty order cache.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]models.Order)}
}

// Get returns a copy of the order, if present.
func (s *MemoryStore) Get(orderID string) (models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	return o, ok
}

// Put stores or replaces an order.
func (s *MemoryStore) Put(order models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.OrderID] = order
}

// Delete removes an order.
func (s *MemoryStore) Delete(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.orders, orderID)
}

// Sweep evicts pending orders older than maxAge and returns how many were
// removed. Completed orders are kept for the process lifetime so a paid
// order's outcome stays queryable.
func (s *MemoryStore) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, o := range s.orders {
		if o.Status == models.OrderStatusPending && o.CreatedAt.Before(cutoff) {
			delete(s.orders, id)
			removed++
		}
	}
	return removed
}

// StartSweep evicts stale pending orders on a timer until stop is closed.
func StartSweep(s Store, interval, maxAge time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := s.Sweep(maxAge); n > 0 {
				log.Printf("[orders] Evicted %d stale pending orders", n)
			}
		}
	}
}
