package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"livey-backend/internal/errs"
	"livey-backend/internal/models"
)

type OrdersHandler struct {
	orders OrderService
	log    *zap.Logger
}

func NewOrdersHandler(orders OrderService, log *zap.Logger) *OrdersHandler {
	return &OrdersHandler{orders: orders, log: log}
}

// CreateOrder godoc
// @Summary     Place an order
// @Description Public endpoint used by the live widget. Validates the customer, snapshots the product and queues a sheet sync.
// @Tags        orders
// @Accept      json
// @Produce     json
// @Param       request body models.CreateOrderRequest true "Order"
// @Success     201 {object} models.OrderEnvelope
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     429 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /orders [post]
func (h *OrdersHandler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, errs.Validation("Invalid request body"))
		return
	}

	order, err := h.orders.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, models.OrderEnvelope{Order: models.NewOrderResponse(order)})
}

// ListOrders godoc
// @Summary     List orders
// @Description Returns the authenticated seller's orders, newest first.
// @Tags        orders
// @Produce     json
// @Security    Bearer
// @Param       limit  query int false "Page size (default 50, max 100)"
// @Param       offset query int false "Offset"
// @Success     200 {object} models.OrderListResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /orders [get]
func (h *OrdersHandler) ListOrders(c *gin.Context) {
	sellerID, ok := currentSeller(c)
	if !ok {
		return
	}

	var q models.ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, h.log, errs.Validation("limit and offset must be integers"))
		return
	}

	page, err := h.orders.List(c.Request.Context(), sellerID, q.Limit, q.Offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetOrder godoc
// @Summary     Get an order
// @Tags        orders
// @Produce     json
// @Security    Bearer
// @Param       id path string true "Order ID"
// @Success     200 {object} models.OrderEnvelope
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /orders/{id} [get]
func (h *OrdersHandler) GetOrder(c *gin.Context) {
	sellerID, ok := currentSeller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	order, err := h.orders.Get(c.Request.Context(), sellerID, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.OrderEnvelope{Order: models.NewOrderResponse(order)})
}

// UpdateOrderStatus godoc
// @Summary     Update order status
// @Tags        orders
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       id      path string                          true "Order ID"
// @Param       request body models.UpdateOrderStatusRequest true "New status"
// @Success     200 {object} models.OrderEnvelope
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /orders/{id}/status [put]
func (h *OrdersHandler) UpdateOrderStatus(c *gin.Context) {
	sellerID, ok := currentSeller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, errs.Validation("Invalid request body"))
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), sellerID, id, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, models.OrderEnvelope{Order: models.NewOrderResponse(order)})
}
