package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) handleDailySummary(c *gin.Context) {
	summary, err := a.service.DailySummary(c.Request.Context(), c.Param("date"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (a *API) handleDateRangeSummary(c *gin.Context) {
	summaries, err := a.service.DateRangeSummary(c.Request.Context(), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (a *API) handleItemSales(c *gin.Context) {
	report, err := a.service.ItemSales(c.Request.Context(), c.Param("itemId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *API) handleSalespersonRevenue(c *gin.Context) {
	report, err := a.service.SalespersonRevenue(c.Request.Context(), c.Param("salespersonId"), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *API) handleAllSalespeopleRevenue(c *gin.Context) {
	report, err := a.service.AllSalespeopleRevenue(c.Request.Context(), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
