package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/swiftkart/storefront/internal/handlers"
)

type Deps struct {
	CartHandler  *handlers.CartHandler
	OrderHandler *handlers.OrderHandler
	JWTSecret    []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	carts := e.Group("/cart")
	carts.GET("", d.CartHandler.GetCart)
	carts.POST("/items", d.CartHandler.AddItem)
	carts.PATCH("/items/:productId", d.CartHandler.UpdateQuantity)
	carts.DELETE("/items/:productId", d.CartHandler.RemoveItem)
	carts.DELETE("", d.CartHandler.ClearCart)

	orders := e.Group("/orders")
	orders.POST("", d.OrderHandler.Create)
	orders.GET("", d.OrderHandler.List)
	orders.GET("/counts", d.OrderHandler.Counts)
	orders.GET("/:id", d.OrderHandler.Get)
	orders.POST("/:id/cancel", d.OrderHandler.Cancel)

	admin := orders.Group("", handlers.RequireAdmin(d.JWTSecret))
	admin.PATCH("/:id/status", d.OrderHandler.UpdateStatus)
}
