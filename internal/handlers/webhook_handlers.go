package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"school_payments/internal/services"
)

type WebhookHandler struct {
	webhooks *services.WebhookService
}

func NewWebhookHandler(webhooks *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Receive handles POST /webhook. The route is unauthenticated: the gateway
// pushes here directly.
func (h *WebhookHandler) Receive(c echo.Context) error {
	var event services.WebhookEvent
	if err := c.Bind(&event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	result, err := h.webhooks.ProcessWebhook(c.Request().Context(), event)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Logs handles GET /webhook/logs
func (h *WebhookHandler) Logs(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	page, _ := strconv.Atoi(c.QueryParam("page"))

	logs, err := h.webhooks.GetWebhookLogs(c.Request().Context(), limit, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, logs)
}
