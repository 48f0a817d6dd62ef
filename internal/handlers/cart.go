package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/swiftkart/storefront/internal/logging"
	"github.com/swiftkart/storefront/internal/models"
	"github.com/swiftkart/storefront/internal/service/cart"
)

type CartHandler struct {
	Svc       *cart.Service
	JWTSecret []byte
}

// cartView is the wire shape: stored fields plus the derived totals the
// UI renders.
type cartView struct {
	*models.Cart
	TotalItemCount int   `json:"totalItemCount"`
	Subtotal       int64 `json:"subtotal"`
}

func viewOf(c *models.Cart) cartView {
	return cartView{Cart: c, TotalItemCount: c.TotalItemCount(), Subtotal: c.Subtotal()}
}

func (h *CartHandler) GetCart(c echo.Context) error {
	userID, err := GetUserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	crt, err := h.Svc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return respondErr(c, err)
	}
	return respondOK(c, http.StatusOK, viewOf(crt))
}

func (h *CartHandler) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	userID, err := GetUserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var item models.CartLineItem
	if err := c.Bind(&item); err != nil {
		l.Warn("bad request body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	crt, err := h.Svc.AddItem(ctx, userID, item)
	if err != nil {
		l.Warn("add item failed", "product_id", item.ProductID, "error", err)
		return respondErr(c, err)
	}

	l.Info("item added", "product_id", item.ProductID, "quantity", item.Quantity)
	return respondOK(c, http.StatusOK, viewOf(crt))
}

func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_quantity")

	userID, err := GetUserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	var req struct {
		Quantity int    `json:"quantity"`
		Color    string `json:"color"`
		Size     string `json:"size"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("bad request body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	crt, err := h.Svc.UpdateQuantity(ctx, userID, c.Param("productId"), req.Quantity, req.Color, req.Size)
	if err != nil {
		return respondErr(c, err)
	}
	return respondOK(c, http.StatusOK, viewOf(crt))
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	userID, err := GetUserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	crt, err := h.Svc.RemoveItem(
		c.Request().Context(),
		userID,
		c.Param("productId"),
		c.QueryParam("color"),
		c.QueryParam("size"),
	)
	if err != nil {
		return respondErr(c, err)
	}
	return respondOK(c, http.StatusOK, viewOf(crt))
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	userID, err := GetUserID(c, h.JWTSecret)
	if err != nil {
		return err
	}

	crt, err := h.Svc.ClearCart(c.Request().Context(), userID)
	if err != nil {
		return respondErr(c, err)
	}
	return respondOK(c, http.StatusOK, viewOf(crt))
}
