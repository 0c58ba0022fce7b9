package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"school_payments/internal/services"
)

type TransactionHandler struct {
	transactions *services.TransactionService
}

func NewTransactionHandler(transactions *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

func listParams(c echo.Context) (limit, page int, sort, order string) {
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	page, _ = strconv.Atoi(c.QueryParam("page"))
	sort = c.QueryParam("sort")
	order = c.QueryParam("order")
	return
}

// ListAll handles GET /transactions
func (h *TransactionHandler) ListAll(c echo.Context) error {
	limit, page, sort, order := listParams(c)

	result, err := h.transactions.GetAllTransactions(c.Request().Context(), limit, page, sort, order)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ListBySchool handles GET /transactions/school/:schoolId
func (h *TransactionHandler) ListBySchool(c echo.Context) error {
	limit, page, sort, order := listParams(c)

	result, err := h.transactions.GetTransactionsBySchool(c.Request().Context(), c.Param("schoolId"), limit, page, sort, order)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// Status handles GET /transaction-status/:customOrderId
func (h *TransactionHandler) Status(c echo.Context) error {
	customOrderID := c.Param("customOrderId")

	view, err := h.transactions.GetTransactionStatus(c.Request().Context(), customOrderID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"transaction":     view,
		"custom_order_id": customOrderID,
	})
}
