package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"school_payments/internal/services"
)

// ReconciliationHandler exposes the reconciliation engine to the dashboard:
// manual sync, read-only diagnostics, and mismatch repair. A schoolId path
// value of "all" widens the scope to every school.
type ReconciliationHandler struct {
	recon *services.ReconciliationService
}

func NewReconciliationHandler(recon *services.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{recon: recon}
}

func scopeFromParam(c echo.Context) string {
	schoolID := c.Param("schoolId")
	if schoolID == "all" {
		return ""
	}
	return schoolID
}

// Sync handles POST /payment/sync-school-transactions/:schoolId
func (h *ReconciliationHandler) Sync(c echo.Context) error {
	result, err := h.recon.Sync(c.Request().Context(), scopeFromParam(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

// Compare handles GET /payment/compare-school-transactions/:schoolId
func (h *ReconciliationHandler) Compare(c echo.Context) error {
	result, err := h.recon.Compare(c.Request().Context(), scopeFromParam(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

// Repair handles POST /payment/verify-fix-status/:schoolId
func (h *ReconciliationHandler) Repair(c echo.Context) error {
	result, err := h.recon.RepairMismatches(c.Request().Context(), scopeFromParam(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

// StatusReport handles GET /payment/status-report/:schoolId
func (h *ReconciliationHandler) StatusReport(c echo.Context) error {
	report, err := h.recon.StatusReport(c.Request().Context(), scopeFromParam(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    report,
	})
}
