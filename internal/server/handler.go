package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/service"
)

type OrderHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

type lineItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int64 `json:"quantity" binding:"required,gt=0"`
}

type placeOrderRequest struct {
	Items    []lineItemRequest     `json:"items" binding:"required,min=1,dive"`
	Payment  service.PaymentInput  `json:"payment"`
	Shipment service.ShipmentInput `json:"shipment"`
}

func errorBody(kind, message string) gin.H {
	return gin.H{"error": gin.H{"kind": kind, "message": message}}
}

// respondError writes err with the status its kind maps to. Details of
// unexpected failures stay in the log.
func (h *OrderHandler) respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	message := err.Error()

	var de *domain.Error
	if kind == domain.KindUnexpected {
		message = "internal server error"
		h.logger.Error("request failed",
			zap.String("request_id", c.GetString(ctxRequestID)), zap.Error(err))
	} else if errors.As(err, &de) {
		message = de.Message
	}
	if kind.Retryable() {
		c.Header("Retry-After", "1")
	}
	_ = c.Error(err)
	c.JSON(kind.HTTPStatus(), errorBody(string(kind), message))
}

func orderIDParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.InvalidInput("invalid order id")
	}
	return id, nil
}

func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, domain.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	items := make([]domain.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	result, err := h.orders.PlaceOrder(c.Request.Context(), userIDFrom(c), items, req.Payment, req.Shipment)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, err := orderIDParam(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), userIDFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := orderIDParam(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), userIDFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) OrderSummary(c *gin.Context) {
	id, err := orderIDParam(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	summary, err := h.orders.OrderSummary(c.Request.Context(), userIDFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		h.respondError(c, domain.InvalidInput("page must be an integer"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		h.respondError(c, domain.InvalidInput("limit must be an integer"))
		return
	}

	result, err := h.orders.ListOrders(c.Request.Context(), userIDFrom(c), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
