package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"salesdesk/backend/internal/domain"
)

func (a *API) handleListItems(c *gin.Context) {
	items, err := a.service.ListItems(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (a *API) handleLowStockItems(c *gin.Context) {
	items, err := a.service.LowStockItems(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (a *API) handleGetItem(c *gin.Context) {
	item, err := a.service.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (a *API) handleStockMovements(c *gin.Context) {
	limit := parsePositiveLimit(c.Query("limit"), 100, 500)
	movements, err := a.service.StockMovements(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, movements)
}

func (a *API) handleCreateItem(c *gin.Context) {
	var req domain.ItemCreateRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	item, err := a.service.CreateItem(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (a *API) handleUpdateItem(c *gin.Context) {
	var req domain.ItemUpdateRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	item, err := a.service.UpdateItem(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (a *API) handleDeleteItem(c *gin.Context) {
	if err := a.service.DeleteItem(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleListSalespeople(c *gin.Context) {
	people, err := a.service.ListSalespeople(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, people)
}

func (a *API) handleGetSalesperson(c *gin.Context) {
	sp, err := a.service.GetSalesperson(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sp)
}

func (a *API) handleCreateSalesperson(c *gin.Context) {
	var req domain.SalespersonCreateRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	sp, err := a.service.CreateSalesperson(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sp)
}

func (a *API) handleUpdateSalesperson(c *gin.Context) {
	var req domain.SalespersonUpdateRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	sp, err := a.service.UpdateSalesperson(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sp)
}

func (a *API) handleDeleteSalesperson(c *gin.Context) {
	if err := a.service.DeleteSalesperson(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
