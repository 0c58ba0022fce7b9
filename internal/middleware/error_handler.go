package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"school_payments/internal/services"
)

// JSONErrorHandler maps the service error taxonomy onto JSON error
// responses. NotFound conditions become 404s, malformed webhook payloads
// 400s, and gateway failures surface the upstream status and body instead
// of a generic 500.
func JSONErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Something went wrong. Please try again later."

	var gatewayErr *services.GatewayError
	var httpErr *echo.HTTPError

	switch {
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrTransactionNotFound):
		code = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, services.ErrInvalidWebhookPayload):
		code = http.StatusBadRequest
		message = err.Error()
	case errors.As(err, &gatewayErr):
		code = http.StatusBadGateway
		message = gatewayErr.Error()
	case errors.As(err, &httpErr):
		code = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok && msg != "" {
			message = msg
		} else {
			message = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		c.Logger().Error(err)
	}

	_ = c.JSON(code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
