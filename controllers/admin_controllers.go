package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/tableorder/services"
	"github.com/yeremiapane/tableorder/utils"
)

type AdminController struct {
	Reports *services.ReportService
}

func NewAdminController(reports *services.ReportService) *AdminController {
	return &AdminController{Reports: reports}
}

// GetDashboardStats -> revenue and order counts
func (ac *AdminController) GetDashboardStats(c *gin.Context) {
	stats, err := ac.Reports.Dashboard(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard stats", stats)
}

// GetPopularItems -> best sellers, ?limit= (default 10)
func (ac *AdminController) GetPopularItems(c *gin.Context) {
	limit := 10
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = l
	}
	items, err := ac.Reports.Popular(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Popular items", items)
}
