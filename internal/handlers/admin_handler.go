package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/ksfood/orderflow/internal/orders"
	"github.com/ksfood/orderflow/internal/validation"
)

const defaultPageSize = 50

func registerAdminRoutes(r *gin.Engine, cfg Config, v *validatorv10.Validate) {
	admin := r.Group("/admin")

	admin.GET("/orders", listOrdersHandler(cfg))
	admin.POST("/orders", createManualOrderHandler(cfg, v))
	admin.PATCH("/orders/:id/status", updateStatusHandler(cfg, v))
	admin.POST("/orders/status", batchStatusHandler(cfg, v))
}

// listOrdersHandler filters by origin tag, status and date range, paginated via
// an opaque cursor.
func listOrdersHandler(cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := orders.ListFilter{
			Status: c.Query("status"),
			Origin: c.Query("origin"),
			Cursor: c.Query("cursor"),
			Limit:  defaultPageSize,
		}

		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 32)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": gin.H{"limit": "must be a positive integer"}})
				return
			}
			f.Limit = int32(n)
		}

		var err error
		if f.From, err = parseDate(c.Query("from"), false); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": gin.H{"from": "bad date"}})
			return
		}
		if f.To, err = parseDate(c.Query("to"), true); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": gin.H{"to": "bad date"}})
			return
		}

		list, next, err := cfg.Service.List(c.Request.Context(), f)
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		resp := gin.H{"orders": list}
		if next != "" {
			resp["next_cursor"] = next
		}
		c.JSON(http.StatusOK, resp)
	}
}

// createManualOrderHandler records an order phoned in or walked in and entered
// by staff. Manual orders are skipped by the weekly bulk transition job.
func createManualOrderHandler(cfg Config, v *validatorv10.Validate) gin.HandlerFunc {
	return func(c *gin.Context) {
		handleCreate(c, cfg, v, orders.OriginManual, "")
	}
}

func updateStatusHandler(cfg Config, v *validatorv10.Validate) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.UpdateStatusRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		o, err := cfg.Service.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

func batchStatusHandler(cfg Config, v *validatorv10.Validate) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.BatchStatusRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		res, err := cfg.Service.SetStatusBatch(c.Request.Context(), req.OrderIDs, req.Status)
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// parseDate accepts RFC3339 or a bare day; a bare "to" day is pushed to its end
// so the range is inclusive.
func parseDate(raw string, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
