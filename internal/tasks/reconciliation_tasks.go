package tasks

import (
	"context"

	"school_payments/internal/models"
)

// DefineTasks registers the reconciliation task handlers.
func DefineTasks() {
	RegisterHandler(models.TaskReconcileSync, handleReconcileSync)
	RegisterHandler(models.TaskReconcileRepair, handleReconcileRepair)
	RegisterHandler(models.TaskReconcileReport, handleReconcileReport)
}

// schoolScope reads the school_id argument; empty means all schools.
func schoolScope(task models.ScheduledTask) string {
	if v, ok := task.Arguments["school_id"].(string); ok {
		return v
	}
	return ""
}

func handleReconcileSync(ctx context.Context, deps *Deps, task models.ScheduledTask) (map[string]interface{}, error) {
	result, err := deps.Recon.Sync(ctx, schoolScope(task))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"total_payments": result.TotalPayments,
		"orders_created": result.OrdersCreated,
		"orders_updated": result.OrdersUpdated,
		"item_errors":    len(result.Errors),
	}, nil
}

func handleReconcileRepair(ctx context.Context, deps *Deps, task models.ScheduledTask) (map[string]interface{}, error) {
	result, err := deps.Recon.RepairMismatches(ctx, schoolScope(task))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"total_mismatches": result.TotalMismatches,
		"fixed":            result.Fixed,
		"item_errors":      len(result.Errors),
	}, nil
}

func handleReconcileReport(ctx context.Context, deps *Deps, task models.ScheduledTask) (map[string]interface{}, error) {
	report, err := deps.Recon.StatusReport(ctx, schoolScope(task))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"total_payments": report.Summary.TotalPayments,
		"total_orders":   report.Summary.TotalOrders,
		"matched":        report.Summary.Matched,
		"mismatched":     report.Summary.Mismatched,
	}, nil
}
