package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/yeremiapane/tableorder/kds"
	"github.com/yeremiapane/tableorder/services"
	"github.com/yeremiapane/tableorder/utils"
)

type TableController struct {
	Reports   *services.ReportService
	PublicURL string
}

func NewTableController(reports *services.ReportService, publicURL string) *TableController {
	return &TableController{Reports: reports, PublicURL: strings.TrimRight(publicURL, "/")}
}

// TableURL is the page a table's QR code opens.
func (tc *TableController) TableURL(table string) string {
	return fmt.Sprintf("%s/table/%s", tc.PublicURL, table)
}

// GetTableQR -> PNG QR code for one table, ?size= in pixels
func (tc *TableController) GetTableQR(c *gin.Context) {
	table := c.Param("table_id")
	if !kds.ValidRoom(kds.TableRoom(table)) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid table id"))
		return
	}
	size := 256
	if s := c.Query("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > 1024 {
			utils.RespondError(c, http.StatusBadRequest, errors.New("size must be between 64 and 1024"))
			return
		}
		size = n
	}

	png, err := qrcode.Encode(tc.TableURL(table), qrcode.Medium, size)
	if err != nil {
		utils.ErrorLogger.Printf("Error generating QR for table %s: %v", table, err)
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=table-%s.png", table))
	c.Data(http.StatusOK, "image/png", png)
}

func (tc *TableController) GetTableSummary(c *gin.Context) {
	summary, err := tc.Reports.TableSummary(c.Request.Context(), c.Param("table_id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table summary", summary)
}
