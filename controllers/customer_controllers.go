package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/branch-ordering/kds"
	"github.com/yeremiapane/branch-ordering/middlewares"
	"github.com/yeremiapane/branch-ordering/models"
	"github.com/yeremiapane/branch-ordering/services"
	"github.com/yeremiapane/branch-ordering/utils"
)

// CustomerController serves the public, branch-scoped ordering endpoints.
type CustomerController struct {
	Menu     *services.MenuService
	Checkout *services.CheckoutService
	Orders   *services.OrderService
	Hub      *kds.Hub
	// Provider verifies callback payments. Nil when no provider is configured.
	Provider services.PaymentVerifier
}

func (cc *CustomerController) GetMenu(c *gin.Context) {
	menu, err := cc.Menu.Menu(c.Request.Context(), middlewares.CurrentBranch(c))
	if err != nil {
		respondServiceError(c, err, "failed to load menu")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu", menu)
}

type validatePromoRequest struct {
	Code      string                   `json:"code"`
	CartTotal decimal.Decimal          `json:"cart_total"`
	CartItems []services.PromoCartItem `json:"cart_items"`
}

// ValidatePromo previews a promo code. Rejections are reported with 200 and
// success=false so the cart page can show the message inline.
func (cc *CustomerController) ValidatePromo(c *gin.Context) {
	var req validatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request"})
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": "Promo code is required"})
		return
	}

	branch := middlewares.CurrentBranch(c)
	result, err := cc.Checkout.ValidatePromo(c.Request.Context(), branch.ID, req.Code, req.CartTotal, req.CartItems)
	if err != nil {
		if code := statusFor(err); code != http.StatusInternalServerError {
			c.JSON(code, gin.H{"success": false, "message": err.Error()})
			return
		}
		utils.ErrorLogger.Errorf("validate promo for branch %d: %v", branch.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}
	if !result.Applied() {
		c.JSON(http.StatusOK, gin.H{"success": false, "message": result.Message()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"discount_amount": utils.FormatAmount(result.Discount),
		"new_total":       utils.FormatAmount(result.NewTotal),
		"message":         result.Message(),
		"promo_id":        result.Promotion.ID,
	})
}

// PlaceOrder is the direct checkout: the payment is mocked as paid.
func (cc *CustomerController) PlaceOrder(c *gin.Context) {
	var in services.CheckoutInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid order data"})
		return
	}

	branch := middlewares.CurrentBranch(c)
	order, err := cc.Checkout.PlaceOrder(c.Request.Context(), branch.ID, services.MockPaymentVerifier{}, services.PaymentReference{Checkout: &in})
	if err != nil {
		code := statusFor(err)
		message := err.Error()
		if code == http.StatusInternalServerError {
			utils.ErrorLogger.Errorf("checkout for branch %d failed: %v", branch.ID, err)
			message = "Order failed"
		}
		c.JSON(code, gin.H{"success": false, "message": message})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "order_id": order.ID})
}

// PaymentCallback is where the payment provider sends the customer back.
func (cc *CustomerController) PaymentCallback(c *gin.Context) {
	branch := middlewares.CurrentBranch(c)
	failed := branchPath(c, branch) + "/checkout?error=payment_verification_failed"

	paymentID := c.Query("id")
	if paymentID == "" || cc.Provider == nil {
		c.Redirect(http.StatusFound, failed)
		return
	}

	order, err := cc.Checkout.PlaceOrder(c.Request.Context(), branch.ID, cc.Provider, services.PaymentReference{PaymentID: paymentID})
	if err != nil {
		utils.ErrorLogger.Errorf("payment callback %s for branch %d: %v", url.QueryEscape(paymentID), branch.ID, err)
		c.Redirect(http.StatusFound, failed)
		return
	}
	c.Redirect(http.StatusFound, fmt.Sprintf("%s/orders/%d", branchPath(c, branch), order.ID))
}

func (cc *CustomerController) TrackOrder(c *gin.Context) {
	orderID, ok := uintParam(c, "order_id")
	if !ok {
		return
	}
	order, err := cc.Orders.GetOrder(c.Request.Context(), middlewares.CurrentBranch(c).ID, orderID)
	if err != nil {
		respondServiceError(c, err, "failed to load order")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order", order)
}

// OrderSocket streams status changes of a single order.
func (cc *CustomerController) OrderSocket(c *gin.Context) {
	orderID, ok := uintParam(c, "order_id")
	if !ok {
		return
	}
	if _, err := cc.Orders.GetOrder(c.Request.Context(), middlewares.CurrentBranch(c).ID, orderID); err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
			return
		}
		respondServiceError(c, err, "failed to load order")
		return
	}
	subscribe(c, cc.Hub, models.OrderChannel(orderID))
}

// branchPath is the URL prefix the customer reached the branch under.
func branchPath(c *gin.Context, branch models.Branch) string {
	if c.Param("branch_id") == "" {
		return ""
	}
	return fmt.Sprintf("/b/%d", branch.ID)
}
