package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/branch-ordering/middlewares"
	"github.com/yeremiapane/branch-ordering/services"
	"github.com/yeremiapane/branch-ordering/utils"
)

type MenuController struct {
	Menu *services.MenuService
}

// AddOptionGroup accepts either JSON or the admin form's choice_names[] and
// choice_prices[] fields.
func (mc *MenuController) AddOptionGroup(c *gin.Context) {
	productID, ok := uintParam(c, "product_id")
	if !ok {
		return
	}
	var in services.OptionGroupInput
	if err := c.ShouldBind(&in); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	branchID, _ := middlewares.StaffBranchID(c)
	group, err := mc.Menu.AddOptionGroup(c.Request.Context(), branchID, productID, in)
	if err != nil {
		respondServiceError(c, err, "failed to add option group")
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Option group added", group)
}
