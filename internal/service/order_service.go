package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hostkita/panelstore/internal/apperrors"
	"github.com/hostkita/panelstore/internal/client"
	"github.com/hostkita/panelstore/internal/metrics"
	"github.com/hostkita/panelstore/internal/models"
	"github.com/hostkita/panelstore/internal/orders"
	"github.com/hostkita/panelstore/internal/pricing"
	"github.com/hostkita/panelstore/internal/repository"
	"github.com/hostkita/panelstore/internal/settings"
)

// OrderService owns the purchase flow: price validation, gateway
// transaction creation, payment polling and exactly-once fulfilment. A
// payment the gateway reports as completed is never lost: when fulfilment
// fails the order is marked completed-with-error and kept for the manual
// force-create path.
type OrderService struct {
	store     orders.Store
	payment   PaymentAPI
	provision Provisioner
	renewal   Renewer
	repo      *repository.SubscriptionRepository
	settings  *settings.Cache
	now       func() time.Time

	mu       sync.Mutex
	inflight map[string]bool
}

// NewOrderService creates an order service.
func NewOrderService(store orders.Store, payment PaymentAPI, provision Provisioner, renewal Renewer, repo *repository.SubscriptionRepository, settingsCache *settings.Cache) *OrderService {
	return &OrderService{
		store:     store,
		payment:   payment,
		provision: provision,
		renewal:   renewal,
		repo:      repo,
		settings:  settingsCache,
		now:       time.Now,
		inflight:  make(map[string]bool),
	}
}

// Create validates a purchase request, registers a gateway transaction and
// records the pending order. Nothing is provisioned until the payment
// completes.
func (s *OrderService) Create(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	cfg := s.settings.Get(ctx)
	if cfg.Maintenance {
		return nil, apperrors.New(apperrors.KindMaintenance, "store is under maintenance")
	}

	if _, exists := s.store.Get(req.OrderID); exists {
		return nil, apperrors.New(apperrors.KindValidation,
			fmt.Sprintf("order id %q is already in use", req.OrderID))
	}
	if req.Type == models.OrderTypeNew && req.Password == "" {
		return nil, apperrors.New(apperrors.KindValidation, "password is required for a new subscription")
	}

	tier := pricing.MatchLabel(req.ProductName)
	base := pricing.BasePrice(tier, cfg.Prices)
	if err := pricing.ValidateAmount(req.Amount, base, req.Days); err != nil {
		return nil, err
	}

	if req.Type == models.OrderTypeRenewal {
		// Advisory lookup so an obvious mistake fails before payment; a
		// load failure degrades to skipping the check.
		if doc, err := s.repo.Load(ctx); err == nil {
			if doc.FindByUsername(req.Username) == nil {
				return nil, apperrors.New(apperrors.KindNotFound,
					fmt.Sprintf("no subscription for username %q", req.Username))
			}
		}
	}

	tx, err := s.payment.CreateTransaction(ctx, req.Amount, req.OrderID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindPaymentGateway, "create payment transaction", err)
	}

	order := models.Order{
		OrderID:     req.OrderID,
		Username:    req.Username,
		ProductName: tier.Product,
		Days:        req.Days,
		Amount:      req.Amount,
		Password:    req.Password,
		Status:      models.OrderStatusPending,
		Type:        req.Type,
		PaymentRef:  tx.Reference,
		QRPayload:   tx.QRPayload,
		CreatedAt:   s.now(),
	}
	s.store.Put(order)
	metrics.OrdersCreated.WithLabelValues(req.Type).Inc()

	log.Printf("[Order] Created %s order %s for %s (%s, %d days, amount %d)",
		req.Type, req.OrderID, req.Username, tier.Product, req.Days, req.Amount)
	return &order, nil
}

// Check polls the gateway for the order's payment and fulfils the order
// when the payment has completed. Gateway failures degrade to the cached
// order state; fulfilment runs at most once per order even under
// concurrent polling.
func (s *OrderService) Check(ctx context.Context, orderID string) (*models.Order, error) {
	order, ok := s.store.Get(orderID)
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, fmt.Sprintf("order %q not found", orderID))
	}
	if order.Status == models.OrderStatusCompleted {
		return &order, nil
	}

	status, err := s.payment.CheckStatus(ctx, order.Amount, order.OrderID)
	if err != nil {
		log.Printf("[Order] Gateway status check failed for %s, serving cached state: %v", orderID, err)
		return &order, nil
	}
	if status != client.PaymentStatusCompleted {
		return &order, nil
	}

	return s.fulfil(ctx, orderID)
}

// Cancel removes a pending order. Completed orders are kept: they document
// a payment.
func (s *OrderService) Cancel(ctx context.Context, orderID string) error {
	order, ok := s.store.Get(orderID)
	if !ok {
		return apperrors.New(apperrors.KindNotFound, fmt.Sprintf("order %q not found", orderID))
	}
	if order.Status == models.OrderStatusCompleted {
		return apperrors.New(apperrors.KindValidation, "completed orders cannot be cancelled")
	}
	s.store.Delete(orderID)
	log.Printf("[Order] Cancelled pending order %s", orderID)
	return nil
}

// ForceFulfil re-runs fulfilment for a paid order whose provisioning
// failed. This is the manual recovery path for completed-with-error
// orders.
func (s *OrderService) ForceFulfil(ctx context.Context, orderID string) (*models.Order, error) {
	order, ok := s.store.Get(orderID)
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, fmt.Sprintf("order %q not found", orderID))
	}
	if order.PanelData != nil {
		return nil, apperrors.New(apperrors.KindValidation, "order is already fulfilled")
	}

	// Reset to pending so fulfil treats it as fresh; the payment has been
	// verified by the operator forcing it through.
	order.Status = models.OrderStatusPending
	order.Error = ""
	s.store.Put(order)

	log.Printf("[Order] Force fulfilment requested for %s", orderID)
	return s.fulfil(ctx, orderID)
}

// fulfil runs the provisioning or renewal workflow for a paid order,
// guarded so two concurrent polls cannot provision twice.
func (s *OrderService) fulfil(ctx context.Context, orderID string) (*models.Order, error) {
	s.mu.Lock()
	if s.inflight[orderID] {
		// Another poll is already fulfilling; report the current state.
		s.mu.Unlock()
		order, _ := s.store.Get(orderID)
		return &order, nil
	}
	s.inflight[orderID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, orderID)
		s.mu.Unlock()
	}()

	order, ok := s.store.Get(orderID)
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, fmt.Sprintf("order %q not found", orderID))
	}
	if order.Status == models.OrderStatusCompleted {
		return &order, nil
	}

	var panelData *models.PanelData
	var err error
	switch order.Type {
	case models.OrderTypeRenewal:
		var sub *models.Subscription
		sub, err = s.renewal.Renew(ctx, RenewInput{Username: order.Username, Days: order.Days})
		if err == nil {
			panelData = sub.PanelData
		}
	default:
		panelData, err = s.provision.Provision(ctx, ProvisionInput{
			Username:    order.Username,
			ProductName: order.ProductName,
			Days:        order.Days,
			Password:    order.Password,
		})
		if err == nil {
			err = s.persistNew(ctx, order, panelData)
		}
	}

	completedAt := s.now()
	order.Status = models.OrderStatusCompleted
	order.CompletedAt = &completedAt

	if err != nil {
		// The payment is real even though fulfilment failed; keep the
		// order with the error attached for manual recovery.
		order.Error = err.Error()
		s.store.Put(order)
		metrics.ProvisionTotal.WithLabelValues("error").Inc()
		log.Printf("[Order] Fulfilment failed for paid order %s: %v", orderID, err)
		return &order, err
	}

	order.PanelData = panelData
	order.Error = ""
	s.store.Put(order)
	metrics.ProvisionTotal.WithLabelValues("ok").Inc()
	log.Printf("[Order] Fulfilled order %s (server %d)", orderID, panelData.ServerID)
	return &order, nil
}

// persistNew commits the subscription created by a successful provisioning
// run.
func (s *OrderService) persistNew(ctx context.Context, order models.Order, panelData *models.PanelData) error {
	sub := models.Subscription{
		ID:          uuid.New().String(),
		Username:    order.Username,
		ProductName: order.ProductName,
		Days:        order.Days,
		Password:    order.Password,
		CreatedAt:   s.now(),
		PanelData:   panelData,
	}
	return s.repo.Update(ctx, func(doc *repository.Document) error {
		if doc.FindByServerID(panelData.ServerID) != nil {
			// Already recorded; a retried fulfilment must not duplicate.
			return nil
		}
		doc.Subscriptions = append(doc.Subscriptions, sub)
		return nil
	})
}
