package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"school_payments/internal/metrics"
	"school_payments/internal/models"
)

// ReconciliationService keeps the Order/OrderStatus view consistent with
// the PaymentTransaction view and reports or fixes divergence between them.
// The transaction's mapped status is always ground truth in a conflict:
// PaymentTransaction is closer to the gateway, while Order/OrderStatus is a
// derived cache that can go stale after a missed webhook.
//
// No locking is taken across the two views. Concurrent writers race with
// last-write-wins semantics at the store, and every pass here is idempotent
// and cheaply re-runnable, so drift is repaired after the fact rather than
// prevented.
type ReconciliationService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewReconciliationService(db *gorm.DB, logger *slog.Logger) *ReconciliationService {
	return &ReconciliationService{db: db, logger: logger}
}

// SyncResult summarizes one sync pass. Errors holds per-record failures;
// partial success is a normal outcome, not a batch failure.
type SyncResult struct {
	TotalPayments int      `json:"totalPayments"`
	OrdersUpdated int      `json:"ordersUpdated"`
	OrdersCreated int      `json:"ordersCreated"`
	Errors        []string `json:"errors"`
}

// PaymentRef identifies a PaymentTransaction with no matching Order.
type PaymentRef struct {
	CollectRequestID string  `json:"collect_request_id"`
	SchoolID         string  `json:"school_id"`
	Amount           float64 `json:"amount"`
	Status           string  `json:"status"`
}

// OrderRef identifies an Order with no matching PaymentTransaction.
type OrderRef struct {
	CustomOrderID string `json:"custom_order_id"`
	SchoolID      string `json:"school_id"`
	Status        string `json:"status"`
}

// StatusMismatch is a pair present on both sides whose Order-side status
// disagrees with the transaction-derived status.
type StatusMismatch struct {
	CollectRequestID string `json:"collect_request_id"`
	CustomOrderID    string `json:"custom_order_id"`
	PaymentStatus    string `json:"payment_status"`
	OrderStatus      string `json:"order_status"`
	ExpectedStatus   string `json:"expected_status"`
}

// CompareResult is a read-only diff of the two views.
type CompareResult struct {
	TotalPayments         int              `json:"totalPayments"`
	TotalTransactions     int              `json:"totalTransactions"`
	MissingInTransactions []PaymentRef     `json:"missingInTransactions"`
	MissingInPayments     []OrderRef       `json:"missingInPayments"`
	StatusMismatches      []StatusMismatch `json:"statusMismatches"`
}

// RepairResult summarizes a repair pass.
type RepairResult struct {
	Fixed           int      `json:"fixed"`
	TotalMismatches int      `json:"totalMismatches"`
	Errors          []string `json:"errors"`
}

// StatusReportItem combines both sides of one payment record.
type StatusReportItem struct {
	CollectRequestID string `json:"collect_request_id"`
	CustomOrderID    string `json:"custom_order_id"`
	PaymentStatus    string `json:"payment_status"`
	OrderStatus      string `json:"order_status"`
	OrderTableStatus string `json:"order_status_table_status"`
	StatusMatch      bool   `json:"status_match"`
}

// StatusReportSummary holds the headline counts of a status report.
type StatusReportSummary struct {
	TotalPayments int `json:"total_payments"`
	TotalOrders   int `json:"total_orders"`
	Matched       int `json:"matched"`
	Mismatched    int `json:"mismatched"`
}

// StatusBreakdown groups raw status strings on each side.
type StatusBreakdown struct {
	Payments map[string]int `json:"payments"`
	Orders   map[string]int `json:"orders"`
}

// StatusReport is the diagnostic read combining both views per record.
type StatusReport struct {
	Summary         StatusReportSummary `json:"summary"`
	StatusBreakdown StatusBreakdown     `json:"status_breakdown"`
	DetailedItems   []StatusReportItem  `json:"detailed_items"`
}

// Sync creates or updates Orders from PaymentTransactions in scope. An
// empty schoolID means all schools. One bad record never blocks the rest:
// per-item failures are collected into the result's Errors.
func (s *ReconciliationService) Sync(ctx context.Context, schoolID string) (*SyncResult, error) {
	txns, err := s.transactionsInScope(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{TotalPayments: len(txns), Errors: []string{}}
	for _, txn := range txns {
		if err := s.syncOne(ctx, txn, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", txn.CollectRequestID, err))
			metrics.SyncItemErrors.Inc()
			s.logger.Warn("sync item failed",
				"collect_request_id", txn.CollectRequestID,
				"error", err)
		}
	}

	metrics.SyncRuns.Inc()
	s.logger.Info("sync pass completed",
		"school_id", schoolID,
		"total", result.TotalPayments,
		"created", result.OrdersCreated,
		"updated", result.OrdersUpdated,
		"errors", len(result.Errors))
	return result, nil
}

func (s *ReconciliationService) syncOne(ctx context.Context, txn models.PaymentTransaction, result *SyncResult) error {
	if txn.CollectRequestID == "" {
		return errors.New("missing collect_request_id")
	}
	if txn.SchoolID == "" {
		return errors.New("missing school_id")
	}

	mapped := s.mapStatus(txn.Status)

	var order models.Order
	err := s.db.WithContext(ctx).Where("custom_order_id = ?", txn.CollectRequestID).First(&order).Error
	created := false
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		order = models.Order{
			SchoolID:      txn.SchoolID,
			StudentInfo:   placeholderStudent(),
			GatewayName:   "edviron",
			CustomOrderID: txn.CollectRequestID,
			Status:        string(mapped),
		}
		if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
			return fmt.Errorf("creating order: %w", err)
		}
		created = true
		result.OrdersCreated++
	case err != nil:
		return err
	}

	paymentTime := time.Now()
	if txn.PaymentTime != nil {
		paymentTime = *txn.PaymentTime
	}

	statusRow := models.OrderStatus{
		CollectID:         order.ID,
		OrderAmount:       txn.Amount,
		TransactionAmount: txn.Amount,
		PaymentMode:       txn.PaymentMode,
		PaymentDetails:    txn.PaymentDetails,
		BankReference:     txn.BankReference,
		PaymentMessage:    models.StatusMessage(txn.Status),
		Status:            string(mapped),
		ErrorMessage:      txn.FailureReason,
		PaymentTime:       &paymentTime,
	}
	if err := upsertOrderStatus(s.db.WithContext(ctx), statusRow); err != nil {
		return fmt.Errorf("upserting order status: %w", err)
	}

	// Forcing the order to the mapped status here means the two tables
	// cannot diverge immediately after a sync pass.
	if !created {
		if err := s.db.WithContext(ctx).Model(&order).Update("status", string(mapped)).Error; err != nil {
			return fmt.Errorf("updating order status: %w", err)
		}
		result.OrdersUpdated++
	}
	return nil
}

// Compare diffs the two views without mutating either store.
func (s *ReconciliationService) Compare(ctx context.Context, schoolID string) (*CompareResult, error) {
	txns, err := s.transactionsInScope(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	orders, err := s.ordersInScope(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	ordersByKey := make(map[string]models.Order, len(orders))
	for _, o := range orders {
		ordersByKey[o.CustomOrderID] = o
	}
	txnsByKey := make(map[string]models.PaymentTransaction, len(txns))
	for _, t := range txns {
		txnsByKey[t.CollectRequestID] = t
	}

	result := &CompareResult{
		TotalPayments:         len(txns),
		TotalTransactions:     len(orders),
		MissingInTransactions: []PaymentRef{},
		MissingInPayments:     []OrderRef{},
		StatusMismatches:      []StatusMismatch{},
	}

	for _, txn := range txns {
		order, ok := ordersByKey[txn.CollectRequestID]
		if !ok {
			result.MissingInTransactions = append(result.MissingInTransactions, PaymentRef{
				CollectRequestID: txn.CollectRequestID,
				SchoolID:         txn.SchoolID,
				Amount:           txn.Amount,
				Status:           txn.Status,
			})
			continue
		}

		expected := string(s.mapStatus(txn.Status))
		if order.Status != expected {
			result.StatusMismatches = append(result.StatusMismatches, StatusMismatch{
				CollectRequestID: txn.CollectRequestID,
				CustomOrderID:    order.CustomOrderID,
				PaymentStatus:    txn.Status,
				OrderStatus:      order.Status,
				ExpectedStatus:   expected,
			})
		}
	}

	for _, order := range orders {
		if _, ok := txnsByKey[order.CustomOrderID]; !ok {
			result.MissingInPayments = append(result.MissingInPayments, OrderRef{
				CustomOrderID: order.CustomOrderID,
				SchoolID:      order.SchoolID,
				Status:        order.Status,
			})
		}
	}

	return result, nil
}

// RepairMismatches forces Order and OrderStatus to the transaction-derived
// status for every mismatch Compare finds. Per-item errors are collected,
// not fatal.
func (s *ReconciliationService) RepairMismatches(ctx context.Context, schoolID string) (*RepairResult, error) {
	diff, err := s.Compare(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	result := &RepairResult{TotalMismatches: len(diff.StatusMismatches), Errors: []string{}}
	for _, m := range diff.StatusMismatches {
		if err := s.repairOne(ctx, m); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", m.CustomOrderID, err))
			s.logger.Warn("repair item failed", "custom_order_id", m.CustomOrderID, "error", err)
			continue
		}
		result.Fixed++
		metrics.MismatchesFixed.Inc()
	}

	s.logger.Info("repair pass completed",
		"school_id", schoolID,
		"mismatches", result.TotalMismatches,
		"fixed", result.Fixed,
		"errors", len(result.Errors))
	return result, nil
}

func (s *ReconciliationService) repairOne(ctx context.Context, m StatusMismatch) error {
	var order models.Order
	if err := s.db.WithContext(ctx).Where("custom_order_id = ?", m.CustomOrderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	if err := s.db.WithContext(ctx).Model(&order).Update("status", m.ExpectedStatus).Error; err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Model(&models.OrderStatus{}).
		Where("collect_id = ?", order.ID).
		Update("status", m.ExpectedStatus).Error
	return err
}

// StatusReport combines both sides per record without mutating anything.
// Mismatches are data here, never errors.
func (s *ReconciliationService) StatusReport(ctx context.Context, schoolID string) (*StatusReport, error) {
	txns, err := s.transactionsInScope(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	orders, err := s.ordersInScope(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	ordersByKey := make(map[string]models.Order, len(orders))
	for _, o := range orders {
		ordersByKey[o.CustomOrderID] = o
	}

	report := &StatusReport{
		Summary: StatusReportSummary{
			TotalPayments: len(txns),
			TotalOrders:   len(orders),
		},
		StatusBreakdown: StatusBreakdown{
			Payments: map[string]int{},
			Orders:   map[string]int{},
		},
		DetailedItems: []StatusReportItem{},
	}

	for _, o := range orders {
		report.StatusBreakdown.Orders[o.Status]++
	}

	for _, txn := range txns {
		report.StatusBreakdown.Payments[txn.Status]++

		item := StatusReportItem{
			CollectRequestID: txn.CollectRequestID,
			PaymentStatus:    txn.Status,
		}
		if order, ok := ordersByKey[txn.CollectRequestID]; ok {
			item.CustomOrderID = order.CustomOrderID
			item.OrderStatus = order.Status
			if order.OrderStatus != nil {
				item.OrderTableStatus = order.OrderStatus.Status
			}
			item.StatusMatch = order.Status == string(s.mapStatus(txn.Status))
		}
		if item.StatusMatch {
			report.Summary.Matched++
		} else {
			report.Summary.Mismatched++
		}
		report.DetailedItems = append(report.DetailedItems, item)
	}

	return report, nil
}

func (s *ReconciliationService) transactionsInScope(ctx context.Context, schoolID string) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	q := s.db.WithContext(ctx)
	if schoolID != "" {
		q = q.Where("school_id = ?", schoolID)
	}
	if err := q.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (s *ReconciliationService) ordersInScope(ctx context.Context, schoolID string) ([]models.Order, error) {
	var orders []models.Order
	q := s.db.WithContext(ctx).Preload("OrderStatus")
	if schoolID != "" {
		q = q.Where("school_id = ?", schoolID)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// mapStatus wraps models.MapStatus with the logging the defaulting policy
// requires: an unknown non-empty gateway status masks new upstream
// vocabulary and must leave a trace.
func (s *ReconciliationService) mapStatus(raw string) models.InternalStatus {
	if raw != "" && !models.KnownStatus(raw) {
		metrics.UnknownStatuses.Inc()
		s.logger.Warn("unknown gateway status, defaulting to pending", "status", raw)
	}
	return models.MapStatus(raw)
}

func placeholderStudent() models.StudentInfo {
	return models.StudentInfo{
		Name:  "Unknown Student",
		ID:    "NA",
		Email: "unknown@school.local",
	}
}

// upsertOrderStatus overwrites the single OrderStatus row for a collect_id,
// creating it if absent. All gateway-return fields are replaced, including
// zero values, so a replayed update is a no-op.
func upsertOrderStatus(db *gorm.DB, row models.OrderStatus) error {
	var existing models.OrderStatus
	err := db.Where("collect_id = ?", row.CollectID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&row).Error
	}
	if err != nil {
		return err
	}

	return db.Model(&existing).Updates(map[string]interface{}{
		"order_amount":       row.OrderAmount,
		"transaction_amount": row.TransactionAmount,
		"payment_mode":       row.PaymentMode,
		"payment_details":    row.PaymentDetails,
		"bank_reference":     row.BankReference,
		"payment_message":    row.PaymentMessage,
		"status":             row.Status,
		"error_message":      row.ErrorMessage,
		"payment_time":       row.PaymentTime,
	}).Error
}
