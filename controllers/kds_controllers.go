package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/branch-ordering/kds"
	"github.com/yeremiapane/branch-ordering/middlewares"
	"github.com/yeremiapane/branch-ordering/models"
	"github.com/yeremiapane/branch-ordering/services"
	"github.com/yeremiapane/branch-ordering/utils"
)

type KDSController struct {
	Kitchen *services.KitchenService
	Hub     *kds.Hub
}

// KDSHandler subscribes a staff screen to its branch channel.
func (kc *KDSController) KDSHandler(c *gin.Context) {
	branchID, _ := middlewares.StaffBranchID(c)
	subscribe(c, kc.Hub, models.BranchChannel(branchID))
}

// Dashboard lists the orders still on the kitchen screen.
func (kc *KDSController) Dashboard(c *gin.Context) {
	branchID, _ := middlewares.StaffBranchID(c)
	orders, err := kc.Kitchen.ActiveOrders(c.Request.Context(), branchID)
	if err != nil {
		respondServiceError(c, err, "failed to load orders")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active orders", orders)
}

type statusRequest struct {
	Status   string `json:"status" binding:"required"`
	PrepTime *int   `json:"prep_time"`
}

func (kc *KDSController) UpdateStatus(c *gin.Context) {
	orderID, ok := uintParam(c, "order_id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	branchID, _ := middlewares.StaffBranchID(c)
	order, err := kc.Kitchen.UpdateStatus(c.Request.Context(), services.StatusChange{
		OrderID:       orderID,
		StaffBranchID: branchID,
		Status:        req.Status,
		PrepTime:      req.PrepTime,
	})
	if err != nil {
		respondServiceError(c, err, "failed to update order")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}
