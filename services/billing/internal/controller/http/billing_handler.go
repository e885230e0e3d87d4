package http

import (
	"errors"
	"io"
	"net/http"

	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/middleware"
	"snapbuzz/services/billing/internal/usecase"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 65536

// ContextWebhookEvent holds the type of the webhook event just handled.
const ContextWebhookEvent = "webhook_event"

type BillingHandler struct {
	billingUseCase usecase.BillingUseCase
	logger         *logger.Logger
}

func NewBillingHandler(billingUseCase usecase.BillingUseCase, logger *logger.Logger) *BillingHandler {
	return &BillingHandler{
		billingUseCase: billingUseCase,
		logger:         logger,
	}
}

type PaymentIntentRequest struct {
	Amount int64 `json:"amount"`
}

type SavePlanRequest struct {
	Plan    string `json:"plan"`
	PriceID string `json:"priceId"`
}

type CreateSubscriptionRequest struct {
	PriceID string `json:"priceId"`
}

type UpdateStatusRequest struct {
	SubscriptionID string `json:"subscriptionId"`
}

// CreatePaymentIntent godoc
// @Summary      Create a payment intent
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body PaymentIntentRequest true "Amount in the smallest currency unit"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /create-payment-intent [post]
func (h *BillingHandler) CreatePaymentIntent(c *gin.Context) {
	var req PaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": usecase.ErrAmountRequired.Error()})
		return
	}

	secret, err := h.billingUseCase.CreatePaymentIntent(c.Request.Context(), req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"clientSecret": secret})
}

// SavePlan godoc
// @Summary      Save the caller's plan
// @Description  Activates the named plan and resets the post count
// @Tags         billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SavePlanRequest true "Plan"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /save-plan [patch]
func (h *BillingHandler) SavePlan(c *gin.Context) {
	var req SavePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.billingUseCase.SavePlan(c.Request.Context(), c.GetString(middleware.ContextUserID), req.Plan); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Plan saved successfully"})
}

// GetUserPlan godoc
// @Summary      Get the caller's stored plan
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Router       /get-user-plan [get]
func (h *BillingHandler) GetUserPlan(c *gin.Context) {
	plan, err := h.billingUseCase.GetUserPlan(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

// CheckPostLimit godoc
// @Summary      Check whether the caller may post
// @Description  postLimit is -1 for unlimited plans
// @Tags         billing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.PostLimit
// @Failure      404  {object}  map[string]string
// @Router       /check-post-limit [get]
func (h *BillingHandler) CheckPostLimit(c *gin.Context) {
	limit, err := h.billingUseCase.CheckPostLimit(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, limit)
}

// CreateSubscription godoc
// @Summary      Start or change a paid subscription
// @Tags         subscription
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateSubscriptionRequest true "Price"
// @Success      200  {object}  entity.Checkout
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /subscription/create-subscription [post]
func (h *BillingHandler) CreateSubscription(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	checkout, err := h.billingUseCase.CreateSubscription(c.Request.Context(), c.GetString(middleware.ContextUserID), req.PriceID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, checkout)
}

// SaveSubscriptionPlan godoc
// @Summary      Activate a catalog plan without payment
// @Tags         subscription
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body SavePlanRequest true "Plan and price"
// @Success      200  {object}  entity.Subscription
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /subscription/save-plan [patch]
func (h *BillingHandler) SaveSubscriptionPlan(c *gin.Context) {
	var req SavePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.billingUseCase.SaveSubscriptionPlan(c.Request.Context(), c.GetString(middleware.ContextUserID), req.Plan, req.PriceID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

// GetActivePlan godoc
// @Summary      Get the caller's active plan
// @Tags         subscription
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Router       /subscription/get-user-plan [get]
func (h *BillingHandler) GetActivePlan(c *gin.Context) {
	plan, err := h.billingUseCase.GetActivePlan(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

// UpdateStatus godoc
// @Summary      Cancel a subscription at period end
// @Tags         subscription
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateStatusRequest true "Subscription"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /subscription/update-status [patch]
func (h *BillingHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.billingUseCase.CancelSubscription(c.Request.Context(), c.GetString(middleware.ContextUserID), req.SubscriptionID); err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Subscription status updated to inactive"})
}

// GetSubscription godoc
// @Summary      Refresh a subscription from the payment provider
// @Tags         subscription
// @Produce      json
// @Security     BearerAuth
// @Param        subscriptionId path string true "Provider subscription ID"
// @Success      200  {object}  entity.Subscription
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /subscription/{subscriptionId} [get]
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	sub, err := h.billingUseCase.SyncSubscription(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("subscriptionId"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

// Webhook receives signed payment provider events. The body must be read raw
// for signature verification.
func (h *BillingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	eventType, err := h.billingUseCase.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set(ContextWebhookEvent, eventType)

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *BillingHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrAmountRequired),
		errors.Is(err, usecase.ErrPlanRequired),
		errors.Is(err, usecase.ErrUnknownPrice),
		errors.Is(err, usecase.ErrSubscriptionRequired),
		errors.Is(err, usecase.ErrInvalidSignature),
		errors.Is(err, usecase.ErrGateway):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrUserNotFound),
		errors.Is(err, usecase.ErrSubscriptionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Billing request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
