package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/branch-ordering/middlewares"
	"github.com/yeremiapane/branch-ordering/services"
	"github.com/yeremiapane/branch-ordering/utils"
)

// PromotionController is the branch admin's promotion CRUD.
type PromotionController struct {
	Promotions *services.PromotionService
}

func (pc *PromotionController) List(c *gin.Context) {
	branchID, _ := middlewares.StaffBranchID(c)
	promos, err := pc.Promotions.List(c.Request.Context(), branchID)
	if err != nil {
		respondServiceError(c, err, "failed to load promotions")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Promotions", promos)
}

func (pc *PromotionController) Create(c *gin.Context) {
	var in services.PromotionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	branchID, _ := middlewares.StaffBranchID(c)
	promo, err := pc.Promotions.Create(c.Request.Context(), branchID, in)
	if err != nil {
		respondServiceError(c, err, "failed to create promotion")
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Promotion created", promo)
}

func (pc *PromotionController) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var in services.PromotionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	branchID, _ := middlewares.StaffBranchID(c)
	promo, err := pc.Promotions.Update(c.Request.Context(), branchID, id, in)
	if err != nil {
		respondServiceError(c, err, "failed to update promotion")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Promotion updated", promo)
}

func (pc *PromotionController) Delete(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	branchID, _ := middlewares.StaffBranchID(c)
	if err := pc.Promotions.Delete(c.Request.Context(), branchID, id); err != nil {
		respondServiceError(c, err, "failed to delete promotion")
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Promotion deleted", nil)
}
