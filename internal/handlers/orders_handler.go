package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ksfood/orderflow/internal/orders"
	"github.com/ksfood/orderflow/internal/validation"
)

// Config groups dependencies for the HTTP handlers.
type Config struct {
	Service *orders.Service
	Logger  *zap.Logger
}

// RegisterRoutes registers the storefront and admin surfaces.
func RegisterRoutes(r *gin.Engine, cfg Config) {
	v := validation.New()

	r.POST("/orders", createGuestOrderHandler(cfg, v))
	r.POST("/users/:id/orders", createUserOrderHandler(cfg, v))
	r.GET("/orders/:code", getOrderByCodeHandler(cfg))

	registerAdminRoutes(r, cfg, v)
}

func createGuestOrderHandler(cfg Config, v *validatorv10.Validate) gin.HandlerFunc {
	return func(c *gin.Context) {
		handleCreate(c, cfg, v, orders.OriginWebGuest, "")
	}
}

func createUserOrderHandler(cfg Config, v *validatorv10.Validate) gin.HandlerFunc {
	return func(c *gin.Context) {
		handleCreate(c, cfg, v, orders.OriginWebUser, c.Param("id"))
	}
}

func handleCreate(c *gin.Context, cfg Config, v *validatorv10.Validate, origin, userID string) {
	ctx := c.Request.Context()

	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, v); err != nil {
		// BindAndValidate already wrote a 400
		return
	}

	token := c.GetHeader("Idempotency-Key")
	if token == "" {
		token = req.IdempotencyToken
	}

	in := orders.CreateInput{
		Items:            make([]orders.CreateItemInput, 0, len(req.Items)),
		Delivery:         toDelivery(req.Delivery),
		Origin:           origin,
		UserID:           userID,
		PaymentMethod:    req.PaymentMethod,
		IdempotencyToken: token,
		ShippingCost:     req.ShippingCost,
		TotalAmount:      req.TotalAmount,
	}
	// Any client price in req.Items is dropped here: the catalog is authoritative.
	for _, it := range req.Items {
		in.Items = append(in.Items, orders.CreateItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	res, err := cfg.Service.Create(ctx, in)
	if err != nil {
		if errors.Is(err, orders.ErrDuplicateInFlight) {
			c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress"})
			return
		}
		writeError(c, cfg.Logger, err)
		return
	}

	if res.Replayed {
		c.JSON(http.StatusOK, gin.H{"order_code": res.Code, "replayed": true})
		return
	}

	c.Header("Location", "/orders/"+res.Code)
	c.JSON(http.StatusCreated, gin.H{"order_code": res.Code, "order": res.Order})
}

func getOrderByCodeHandler(cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := cfg.Service.GetByCode(c.Request.Context(), c.Param("code"))
		if err != nil {
			writeError(c, cfg.Logger, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

func toDelivery(d validation.DeliveryRequest) orders.DeliveryDetails {
	return orders.DeliveryDetails{
		Name:    d.Name,
		Phone:   d.Phone,
		Address: d.Address,
		Zone:    d.Zone,
		Note:    d.Note,
	}
}

// writeError maps the service error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *orders.ValidationError
	switch {
	case errors.As(err, &verr):
		body := gin.H{"error": "validation_failed"}
		if len(verr.Fields) > 0 {
			body["fields"] = verr.Fields
		}
		if len(verr.UnavailableProducts) > 0 {
			body["unavailable_products"] = verr.UnavailableProducts
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, orders.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, orders.ErrInvalidStatus):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_status"})
	case errors.Is(err, orders.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_transition", "detail": err.Error()})
	case errors.Is(err, orders.ErrStorageUnavailable):
		logger.Error("storage unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage_unavailable"})
	default:
		logger.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
