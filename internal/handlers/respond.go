package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/swiftkart/storefront/internal/docstore"
	"github.com/swiftkart/storefront/internal/service/cart"
	"github.com/swiftkart/storefront/internal/service/order"
)

// Every response uses the same envelope so the storefront UI has one
// decode path.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondOK(c echo.Context, code int, data any) error {
	return c.JSON(code, envelope{Success: true, Data: data})
}

func respondErr(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, cart.ErrValidation), errors.Is(err, order.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, order.ErrIllegalState):
		code = http.StatusBadRequest
	case errors.Is(err, order.ErrNotFound), errors.Is(err, docstore.ErrNotFound):
		code = http.StatusNotFound
	}

	msg := err.Error()
	if code == http.StatusInternalServerError {
		// Store failures carry backend detail the client has no use
		// for.
		msg = "internal error"
	}
	return c.JSON(code, envelope{Success: false, Error: msg})
}
