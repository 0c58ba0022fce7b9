package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"school_payments/internal/models"
)

func seedTransaction(t *testing.T, db *gorm.DB, collectRequestID, schoolID, status string, amount float64) models.PaymentTransaction {
	t.Helper()
	paymentTime := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	txn := models.PaymentTransaction{
		CollectRequestID: collectRequestID,
		SchoolID:         schoolID,
		Amount:           amount,
		Status:           status,
		PaymentMode:      "upi",
		PaymentTime:      &paymentTime,
	}
	require.NoError(t, db.Create(&txn).Error)
	return txn
}

func seedOrder(t *testing.T, db *gorm.DB, customOrderID, schoolID, status string) models.Order {
	t.Helper()
	order := models.Order{
		SchoolID:      schoolID,
		CustomOrderID: customOrderID,
		GatewayName:   "edviron",
		Status:        status,
		StudentInfo: models.StudentInfo{
			Name:  "Asha Verma",
			ID:    "STU-001",
			Email: "asha@school.example",
		},
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}

func TestSyncCreatesOrderForUnmatchedTransaction(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReconciliationService(db, testLogger())

	seedTransaction(t, db, "CR_100", "school_1", "success", 500)

	result, err := svc.Sync(context.Background(), "school_1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalPayments)
	assert.Equal(t, 1, result.OrdersCreated)
	assert.Equal(t, 0, result.OrdersUpdated)
	assert.Empty(t, result.Errors)

	var order models.Order
	require.NoError(t, db.Where("custom_order_id = ?", "CR_100").First(&order).Error)
	assert.Equal(t, "success", order.Status)
	assert.Equal(t, "school_1", order.SchoolID)
	assert.Equal(t, "Unknown Student", order.StudentInfo.Name)

	var statusRow models.OrderStatus
	require.NoError(t, db.Where("collect_id = ?", order.ID).First(&statusRow).Error)
	assert.Equal(t, "success", statusRow.Status)
	assert.Equal(t, float64(500), statusRow.TransactionAmount)
}

func TestSyncForcesOrderToMappedStatus(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReconciliationService(db, testLogger())

	seedOrder(t, db, "CR_200", "school_1", "pending")
	seedTransaction(t, db, "CR_200", "school_1", "declined", 300)

	result, err := svc.Sync(context.Background(), "school_1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.OrdersUpdated)
	assert.Equal(t, 0, result.OrdersCreated)

	var order models.Order
	require.NoError(t, db.Where("custom_order_id = ?", "CR_200").First(&order).Error)
	assert.Equal(t, "failed", order.Status)
}

func TestSyncUnknownStatusDefaultsToPending(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReconciliationService(db, testLogger())

	seedTransaction(t, db, "CR_300", "school_1", "weird_new_state", 100)

	result, err := svc.Sync(context.Background(), "school_1")
	require.NoError(t, err)
	assert.Empty(t, result.Errors)

	var order models.Order
	require.NoError(t, db.Where("custom_order_id = ?", "CR_300").First(&order).Error)
	assert.Equal(t, "pending", order.Status)
}

func TestSyncPartialFailureIsolation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReconciliationService(db, testLogger())

	seedTransaction(t, db, "CR_400", "school_1", "paid", 100)
	seedTransaction(t, db, "CR_401", "", "paid", 100) // malformed: no school
	seedTransaction(t, db, "CR_402", "school_1", "cancelled", 100)

	result, err := svc.Sync(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalPayments)
	assert.Equal(t, 2, result.OrdersCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "CR_401")

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestSyncIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReconciliationService(db, testLogger())

	seedTransaction(t, db, "CR_500", "school_1", "paid", 250)

	_, err := svc.Sync(context.Background(), "school_1")
	require.NoError(t, err)
	_, err = svc.Sync(context.Background(), "school_1")
	require.NoError(t, err)

	var orderCount, statusCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.NoError(t, db.Model(&models.OrderStatus{}).Count(&statusCount).Error)
	assert.EqualValues(t, 1, orderCount)
	assert.EqualValues(t, 1, statusCount)

	diff, err := svc.Compare(context.Background(), "school_1")
	require.NoError(t, err)
	assert.Empty(t, diff.StatusMismatches)
	assert.Empty(t, diff.MissingInTransactions)
	assert.Empty(t, diff.MissingInPayments)
}

func TestCompareDetectsDrift(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReconciliationService(db, testLogger())

	// Matched pair with stale order status.
	seedOrder(t, db, "CR_600", "school_1", "pending")
	seedTransaction(t, db, "CR_600", "school_1", "declined", 100)
	// Transaction with no order.
	seedTransaction(t, db, "CR_601", "school_1", "paid", 200)
	// Order with no transaction.
	seedOrder(t, db, "CR_602", "school_1", "initiated")

	diff, err := svc.Compare(context.Background(), "school_1")
	require.NoError(t, err)

	assert.Equal(t, 2, diff.TotalPayments)
	assert.Equal(t, 2, diff.TotalTransactions)

	require.Len(t, diff.StatusMismatches, 1)
	m := diff.StatusMismatches[0]
	assert.Equal(t, "CR_600", m.CollectRequestID)
	assert.Equal(t, "declined", m.PaymentStatus)
	assert.Equal(t, "pending", m.OrderStatus)
	assert.Equal(t, "failed", m.ExpectedStatus)

	require.Len(t, diff.MissingInTransactions, 1)
	assert.Equal(t, "CR_601", diff.MissingInTransactions[0].CollectRequestID)

	require.Len(t, diff.MissingInPayments, 1)
	assert.Equal(t, "CR_602", diff.MissingInPayments[0].CustomOrderID)
}

func TestCompareDoesNotMutate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReconciliationService(db, testLogger())

	seedOrder(t, db, "CR_700", "school_1", "pending")
	seedTransaction(t, db, "CR_700", "school_1", "paid", 100)

	_, err := svc.Compare(context.Background(), "school_1")
	require.NoError(t, err)

	var order models.Order
	require.NoError(t, db.Where("custom_order_id = ?", "CR_700").First(&order).Error)
	assert.Equal(t, "pending", order.Status)
}

func TestRepairMismatches(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReconciliationService(db, testLogger())

	order := seedOrder(t, db, "CR_800", "school_1", "pending")
	require.NoError(t, db.Create(&models.OrderStatus{
		CollectID: order.ID,
		Status:    "pending",
	}).Error)
	seedTransaction(t, db, "CR_800", "school_1", "declined", 100)

	result, err := svc.RepairMismatches(context.Background(), "school_1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalMismatches)
	assert.Equal(t, 1, result.Fixed)
	assert.Empty(t, result.Errors)

	var fixed models.Order
	require.NoError(t, db.Where("custom_order_id = ?", "CR_800").First(&fixed).Error)
	assert.Equal(t, "failed", fixed.Status)

	var statusRow models.OrderStatus
	require.NoError(t, db.Where("collect_id = ?", order.ID).First(&statusRow).Error)
	assert.Equal(t, "failed", statusRow.Status)

	// A second pass finds nothing left to fix.
	again, err := svc.RepairMismatches(context.Background(), "school_1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.TotalMismatches)
}

func TestStatusReport(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReconciliationService(db, testLogger())

	seedOrder(t, db, "CR_900", "school_1", "success")
	seedTransaction(t, db, "CR_900", "school_1", "paid", 100)
	seedOrder(t, db, "CR_901", "school_1", "pending")
	seedTransaction(t, db, "CR_901", "school_1", "declined", 200)

	report, err := svc.StatusReport(context.Background(), "school_1")
	require.NoError(t, err)

	assert.Equal(t, 2, report.Summary.TotalPayments)
	assert.Equal(t, 2, report.Summary.TotalOrders)
	assert.Equal(t, 1, report.Summary.Matched)
	assert.Equal(t, 1, report.Summary.Mismatched)
	assert.Equal(t, 1, report.StatusBreakdown.Payments["paid"])
	assert.Equal(t, 1, report.StatusBreakdown.Payments["declined"])
	assert.Equal(t, 1, report.StatusBreakdown.Orders["success"])
	require.Len(t, report.DetailedItems, 2)
}

func TestScopeFiltersBySchool(t *testing.T) {
	db := setupTestDB(t)
	svc := NewReconciliationService(db, testLogger())

	seedTransaction(t, db, "CR_A", "school_1", "paid", 100)
	seedTransaction(t, db, "CR_B", "school_2", "paid", 100)

	result, err := svc.Sync(context.Background(), "school_1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalPayments)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	all, err := svc.Sync(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, all.TotalPayments)
}
