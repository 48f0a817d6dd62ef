package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/swiftkart/storefront/internal/logging"
	"github.com/swiftkart/storefront/internal/models"
	"github.com/swiftkart/storefront/internal/service/order"
)

type OrderHandler struct {
	Svc       *order.Service
	JWTSecret []byte
}

type createOrderRequest struct {
	Items           []models.CartLineItem  `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	ShippingCost    int64                  `json:"shippingCost"`
	DiscountAmount  int64                  `json:"discountAmount"`
	TotalAmount     int64                  `json:"totalAmount"`
	IsTestOrder     bool                   `json:"isTestOrder"`
}

func (h *OrderHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create")

	userID, err := GetUserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("bad request body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	o, err := h.Svc.Create(ctx, order.CreateInput{
		UserID:          userID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ShippingCost:    req.ShippingCost,
		DiscountAmount:  req.DiscountAmount,
		TotalAmount:     req.TotalAmount,
		IsTestOrder:     req.IsTestOrder,
	})
	if err != nil {
		l.Warn("create order failed", "error", err)
		return respondErr(c, err)
	}

	l.Info("order created", "order_id", o.ID, "total", o.TotalAmount)
	return respondOK(c, http.StatusCreated, o)
}

func (h *OrderHandler) List(c echo.Context) error {
	userID, err := GetUserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	orders, err := h.Svc.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return respondErr(c, err)
	}
	return respondOK(c, http.StatusOK, orders)
}

func (h *OrderHandler) Get(c echo.Context) error {
	userID, err := GetUserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	o, err := h.Svc.GetByID(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return respondErr(c, err)
	}
	return respondOK(c, http.StatusOK, o)
}

func (h *OrderHandler) Counts(c echo.Context) error {
	userID, err := GetUserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	counts, err := h.Svc.CountsByStatus(c.Request().Context(), userID)
	if err != nil {
		return respondErr(c, err)
	}
	return respondOK(c, http.StatusOK, counts)
}

func (h *OrderHandler) Cancel(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel")

	userID, err := GetUserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	o, err := h.Svc.Cancel(ctx, c.Param("id"), userID)
	if err != nil {
		l.Warn("cancel failed", "order_id", c.Param("id"), "error", err)
		return respondErr(c, err)
	}

	l.Info("order cancelled", "order_id", o.ID)
	return respondOK(c, http.StatusOK, o)
}

// UpdateStatus is the administrative transition endpoint; the route is
// mounted behind RequireAdmin, so no ownership check applies here.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("bad request body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	o, err := h.Svc.UpdateStatus(ctx, c.Param("id"), models.OrderStatus(req.Status), "")
	if err != nil {
		l.Warn("status update failed", "order_id", c.Param("id"), "status", req.Status, "error", err)
		return respondErr(c, err)
	}

	l.Info("order status updated", "order_id", o.ID, "status", o.Status)
	return respondOK(c, http.StatusOK, o)
}
