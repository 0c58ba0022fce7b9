package metrics

import (
	"log/slog"
	"time"

	vm "github.com/VictoriaMetrics/metrics"

	"school_payments/internal/config"
)

var (
	PaymentsCreated  = vm.NewCounter("payments_created_total")
	PaymentsFailed   = vm.NewCounter("payments_failed_total")
	WebhooksReceived = vm.NewCounter("webhooks_received_total")
	WebhooksFailed   = vm.NewCounter("webhooks_failed_total")
	SyncRuns         = vm.NewCounter("reconciliation_sync_runs_total")
	SyncItemErrors   = vm.NewCounter("reconciliation_sync_item_errors_total")
	MismatchesFixed  = vm.NewCounter("reconciliation_mismatches_fixed_total")
	UnknownStatuses  = vm.NewCounter("status_mapper_unknown_total")
)

// Setup starts pushing metrics to the configured endpoint. A blank URL
// leaves metrics local-only.
func Setup(cfg config.Metrics) {
	if cfg.PushURL == "" {
		return
	}

	err := vm.InitPush(cfg.PushURL, time.Duration(cfg.IntervalMs)*time.Millisecond, cfg.CommonLabels, true)
	if err != nil {
		slog.Error("initializing metrics push", "error", err)
	}
}
