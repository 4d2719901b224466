package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hostkita/panelstore/internal/apperrors"
	"github.com/hostkita/panelstore/internal/models"
	"github.com/hostkita/panelstore/internal/pricing"
	"github.com/hostkita/panelstore/internal/service"
)

type Handler struct {
	orderService        *service.OrderService
	reconcileService    *service.ReconcileService
	renewalService      *service.RenewalService
	subscriptionService *service.SubscriptionService
	settingsService     *service.SettingsService
}

func NewHandler(
	orderService *service.OrderService,
	reconcileService *service.ReconcileService,
	renewalService *service.RenewalService,
	subscriptionService *service.SubscriptionService,
	settingsService *service.SettingsService,
) *Handler {
	return &Handler{
		orderService:        orderService,
		reconcileService:    reconcileService,
		renewalService:      renewalService,
		subscriptionService: subscriptionService,
		settingsService:     settingsService,
	}
}

// respondError maps a typed application error onto its HTTP shape.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	body := gin.H{"error": err.Error()}

	var ae *apperrors.Error
	if errors.As(err, &ae) {
		body["code"] = string(ae.Kind)
		if ae.Detail != nil {
			body["detail"] = ae.Detail
		}
	}
	c.JSON(status, body)
}

func orderResponse(o *models.Order) models.OrderResponse {
	return models.OrderResponse{
		OrderID:     o.OrderID,
		Status:      o.Status,
		Type:        o.Type,
		Amount:      o.Amount,
		QRPayload:   o.QRPayload,
		PanelData:   o.PanelData,
		Error:       o.Error,
		CreatedAt:   o.CreatedAt,
		CompletedAt: o.CompletedAt,
	}
}

// ==================== Storefront Handlers ====================

// CreateOrder starts a purchase or renewal.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orderService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderResponse(order))
}

// GetOrder polls an order, fulfilling it when its payment has completed.
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orderService.Check(c.Request.Context(), c.Param("id"))
	if err != nil {
		if order != nil {
			// Paid but fulfilment failed: the order state carries the
			// error for manual recovery, surface both.
			c.JSON(apperrors.HTTPStatus(err), orderResponse(order))
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(order))
}

// CancelOrder drops a pending order.
func (h *Handler) CancelOrder(c *gin.Context) {
	if err := h.orderService.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// GetPricing returns the live tier price table.
func (h *Handler) GetPricing(c *gin.Context) {
	cfg := h.settingsService.Get(c.Request.Context())

	type tierPrice struct {
		Product   string `json:"product"`
		RAM       string `json:"ram"`
		Disk      string `json:"disk"`
		CPU       string `json:"cpu"`
		BasePrice int64  `json:"base_price"`
	}
	var out []tierPrice
	for _, t := range pricing.Tiers() {
		specs := t.Specs()
		out = append(out, tierPrice{
			Product:   t.Product,
			RAM:       specs.RAM,
			Disk:      specs.Disk,
			CPU:       specs.CPU,
			BasePrice: pricing.BasePrice(t, cfg.Prices),
		})
	}
	c.JSON(http.StatusOK, gin.H{"tiers": out})
}

// GetPublicSettings returns the storefront overlay.
func (h *Handler) GetPublicSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settingsService.Public(c.Request.Context()))
}

// ==================== Admin Handlers ====================

// ListSubscriptions returns the reconciled admin view.
func (h *Handler) ListSubscriptions(c *gin.Context) {
	views, err := h.reconcileService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": views})
}

// RenewSubscription extends a subscription by server id or username.
func (h *Handler) RenewSubscription(c *gin.Context) {
	var req models.RenewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ServerID == 0 && req.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "server_id or username required"})
		return
	}

	sub, err := h.renewalService.Renew(c.Request.Context(), service.RenewInput{
		ServerID: req.ServerID,
		Username: req.Username,
		Days:     req.Days,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// SuspendSubscription places a manual admin lock.
func (h *Handler) SuspendSubscription(c *gin.Context) {
	serverID, ok := serverIDParam(c)
	if !ok {
		return
	}
	if err := h.subscriptionService.Suspend(c.Request.Context(), serverID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "suspended"})
}

// UnsuspendSubscription lifts a suspension.
func (h *Handler) UnsuspendSubscription(c *gin.Context) {
	serverID, ok := serverIDParam(c)
	if !ok {
		return
	}
	if err := h.subscriptionService.Unsuspend(c.Request.Context(), serverID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}

// DeleteSubscription deprovisions and removes a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	serverID, ok := serverIDParam(c)
	if !ok {
		return
	}
	if err := h.subscriptionService.Delete(c.Request.Context(), serverID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// GetSettings returns the full settings for the admin UI.
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settingsService.Get(c.Request.Context()))
}

// UpdateSettings replaces the settings atomically.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.settingsService.Update(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}

// ==================== Internal Handlers ====================

// ForceFulfilOrder re-runs fulfilment for a paid order that failed.
func (h *Handler) ForceFulfilOrder(c *gin.Context) {
	order, err := h.orderService.ForceFulfil(c.Request.Context(), c.Param("id"))
	if err != nil {
		if order != nil {
			c.JSON(apperrors.HTTPStatus(err), orderResponse(order))
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse(order))
}

func serverIDParam(c *gin.Context) (int, bool) {
	serverID, err := strconv.Atoi(c.Param("serverID"))
	if err != nil || serverID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid server id"})
		return 0, false
	}
	return serverID, true
}
