package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"salesdesk/backend/internal/metrics"
	"salesdesk/backend/internal/service"
	"salesdesk/backend/internal/store"
)

const maxBodyBytes = 1 << 20

const (
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeNotFound          = "NOT_FOUND"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeInvalidState      = "INVALID_STATE"
	CodeInternal          = "INTERNAL_ERROR"
)

type API struct {
	service        *service.Service
	allowedOrigins []string
}

func New(svc *service.Service, allowedOrigins []string) *API {
	return &API{
		service:        svc,
		allowedOrigins: allowedOrigins,
	}
}

func (a *API) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), requestMetrics(), securityHeaders(), cors.New(a.corsConfig()))

	router.GET("/healthz", a.handleHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/dashboard", a.handleDashboard)

	items := router.Group("/items")
	items.GET("", a.handleListItems)
	items.POST("", a.handleCreateItem)
	items.GET("/low-stock", a.handleLowStockItems)
	items.GET("/:id", a.handleGetItem)
	items.GET("/:id/movements", a.handleStockMovements)
	items.PUT("/:id", a.handleUpdateItem)
	items.DELETE("/:id", a.handleDeleteItem)

	salespeople := router.Group("/salespeople")
	salespeople.GET("", a.handleListSalespeople)
	salespeople.POST("", a.handleCreateSalesperson)
	salespeople.GET("/:id", a.handleGetSalesperson)
	salespeople.PUT("/:id", a.handleUpdateSalesperson)
	salespeople.DELETE("/:id", a.handleDeleteSalesperson)

	allocations := router.Group("/allocations")
	allocations.GET("", a.handleListAllocations)
	allocations.POST("", a.handleCreateAllocation)
	allocations.GET("/:id", a.handleGetAllocation)
	allocations.PUT("/:id", a.handleUpdateAllocation)
	allocations.DELETE("/:id", a.handleDeleteAllocation)
	allocations.GET("/end-of-day/:salespersonId", a.handleOutstanding)
	allocations.POST("/end-of-day/:salespersonId", a.handleEndOfDay)
	allocations.GET("/summary/date/:date", a.handleDailySummary)
	allocations.GET("/summary/date-range", a.handleDateRangeSummary)
	allocations.GET("/analytics/quantity-sold/item/:itemId", a.handleItemSales)
	allocations.GET("/analytics/revenue/salesperson/:salespersonId", a.handleSalespersonRevenue)
	allocations.GET("/analytics/revenue/all-salespeople", a.handleAllSalespeopleRevenue)

	return router
}

func (a *API) corsConfig() cors.Config {
	config := cors.DefaultConfig()
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	for _, origin := range a.allowedOrigins {
		if origin == "*" {
			config.AllowAllOrigins = true
			return config
		}
	}
	config.AllowOrigins = a.allowedOrigins
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = []string{"http://localhost:3000"}
	}
	return config
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleDashboard(c *gin.Context) {
	dashboard, err := a.service.Dashboard(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// errorStatus maps an error to its HTTP status and stable error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrValidation):
		return http.StatusBadRequest, CodeValidationFailed
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, store.ErrInsufficientStock):
		return http.StatusConflict, CodeInsufficientStock
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusConflict, CodeInvalidState
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// publicMessage hides internals behind 5xx responses; 4xx messages are
// user-facing and returned as is.
func publicMessage(status int, err error) string {
	if status >= http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}

func writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", c.Request.Method).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": publicMessage(status, err),
		"code":  code,
	})
}

// decodeJSON reads a single JSON document. Unknown fields are ignored because
// the dashboard posts whole records back, timestamps and totals included.
func decodeJSON(c *gin.Context, dest any) error {
	decoder := json.NewDecoder(c.Request.Body)
	if err := decoder.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: request body exceeds %d bytes", store.ErrValidation, tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", store.ErrValidation)
		}
		return fmt.Errorf("%w: invalid JSON: %v", store.ErrValidation, err)
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}
