package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"salesdesk/backend/internal/domain"
	"salesdesk/backend/internal/store"
)

func (a *API) handleListAllocations(c *gin.Context) {
	filter := domain.AllocationFilter{
		SalespersonID: strings.TrimSpace(c.Query("salespersonId")),
		ItemID:        strings.TrimSpace(c.Query("itemId")),
		Status:        strings.ToUpper(strings.TrimSpace(c.Query("status"))),
	}
	switch filter.Status {
	case "", domain.AllocationStatusAllocated, domain.AllocationStatusSold, domain.AllocationStatusReturned:
	default:
		writeError(c, fmt.Errorf("%w: unknown status %q", store.ErrValidation, filter.Status))
		return
	}
	if date := strings.TrimSpace(c.Query("date")); date != "" {
		var err error
		filter, err = a.service.AllocationFilterForDay(filter, date)
		if err != nil {
			writeError(c, err)
			return
		}
	}

	allocations, err := a.service.ListAllocations(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, allocations)
}

func (a *API) handleGetAllocation(c *gin.Context) {
	allocation, err := a.service.GetAllocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, allocation)
}

func (a *API) handleCreateAllocation(c *gin.Context) {
	var req domain.AllocationCreateRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	allocation, err := a.service.Allocate(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, allocation)
}

func (a *API) handleUpdateAllocation(c *gin.Context) {
	var req domain.AllocationUpdateRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}
	allocation, err := a.service.EditAllocation(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, allocation)
}

func (a *API) handleDeleteAllocation(c *gin.Context) {
	if err := a.service.DeleteAllocation(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleOutstanding(c *gin.Context) {
	resp, err := a.service.Outstanding(c.Request.Context(), c.Param("salespersonId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleEndOfDay answers with one element per submitted entry, in order.
// 200 means every entry settled, 207 a mix, 422 none.
func (a *API) handleEndOfDay(c *gin.Context) {
	var entries []domain.SettlementEntry
	if err := decodeJSON(c, &entries); err != nil {
		writeError(c, err)
		return
	}
	result, err := a.service.EndOfDay(c.Request.Context(), c.Param("salespersonId"), entries)
	if err != nil && len(result.Outcomes) == 0 {
		writeError(c, err)
		return
	}

	for i := range result.Outcomes {
		outcome := &result.Outcomes[i]
		if outcome.OK() {
			continue
		}
		status, code := errorStatus(outcome.Err)
		outcome.Code = code
		outcome.Error = publicMessage(status, outcome.Err)
	}

	status := http.StatusOK
	switch {
	case result.Succeeded == 0:
		status = http.StatusUnprocessableEntity
	case result.Failed > 0:
		status = http.StatusMultiStatus
	}
	c.JSON(status, result.Outcomes)
}
