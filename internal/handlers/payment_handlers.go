package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"school_payments/internal/services"
)

type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// CreatePayment handles POST /payment/create-payment
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	var in services.CreatePaymentInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if in.Amount == "" || in.StudentInfo.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "amount and student_info are required")
	}

	result, err := h.payments.CreatePayment(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// GetPaymentStatus handles GET /payment/status/:customOrderId
func (h *PaymentHandler) GetPaymentStatus(c echo.Context) error {
	customOrderID := c.Param("customOrderId")

	order, err := h.payments.GetPaymentStatus(c.Request().Context(), customOrderID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"custom_order_id": customOrderID,
		"status":          order.Status,
		"order_details":   order,
	})
}

type createCollectRequestBody struct {
	SchoolID    string `json:"school_id"`
	Amount      string `json:"amount"`
	CallbackURL string `json:"callback_url"`
}

// CreateCollectRequest handles POST /payment/create-collect-request
func (h *PaymentHandler) CreateCollectRequest(c echo.Context) error {
	var body createCollectRequestBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if body.Amount == "" || body.CallbackURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "amount and callback_url are required")
	}

	result, err := h.payments.CreateCollectRequest(c.Request().Context(), body.SchoolID, body.Amount, body.CallbackURL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// CheckPaymentStatus handles GET /payment/collect-request/:collect_request_id
func (h *PaymentHandler) CheckPaymentStatus(c echo.Context) error {
	collectRequestID := c.Param("collect_request_id")
	schoolID := c.QueryParam("school_id")

	resp, err := h.payments.CheckPaymentStatus(c.Request().Context(), collectRequestID, schoolID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    resp,
	})
}

type updateStatusBody struct {
	CollectRequestID string                   `json:"collect_request_id"`
	Status           string                   `json:"status"`
	PaymentDetails   *services.PaymentDetails `json:"payment_details"`
}

// UpdatePaymentStatus handles POST /payment/update-status
func (h *PaymentHandler) UpdatePaymentStatus(c echo.Context) error {
	var body updateStatusBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if body.CollectRequestID == "" || body.Status == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "collect_request_id and status are required")
	}

	txn, err := h.payments.UpdatePaymentStatus(c.Request().Context(), body.CollectRequestID, body.Status, body.PaymentDetails)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Payment status updated successfully",
		"data":    txn,
	})
}

// GetPaymentTransaction handles GET /payment/transaction-status/:collect_request_id
func (h *PaymentHandler) GetPaymentTransaction(c echo.Context) error {
	txn, err := h.payments.GetPaymentTransaction(c.Request().Context(), c.Param("collect_request_id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    txn,
	})
}
