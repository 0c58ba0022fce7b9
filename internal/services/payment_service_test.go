package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school_payments/internal/config"
	"school_payments/internal/models"
)

// stubGateway is a canned GatewayAPI for orchestration tests.
type stubGateway struct {
	createResp *CollectResponse
	createErr  error
	statusResp *CollectStatusResponse
	statusErr  error

	lastCreate CollectRequest
}

func (s *stubGateway) CreateCollectRequest(_ context.Context, req CollectRequest) (*CollectResponse, error) {
	s.lastCreate = req
	return s.createResp, s.createErr
}

func (s *stubGateway) CheckCollectStatus(_ context.Context, _, _, _ string) (*CollectStatusResponse, error) {
	return s.statusResp, s.statusErr
}

func testGatewayConfig() config.Gateway {
	return config.Gateway{
		BaseURL:         "https://gateway.test/erp",
		APIKey:          "test-api-key",
		PGSecretKey:     "test-pg-secret",
		DefaultSchoolID: "school_default",
		TrusteeID:       "trustee_default",
		TimeoutMs:       5000,
	}
}

func TestCreateCollectRequestPersistsTransaction(t *testing.T) {
	raw := json.RawMessage(`{"collect_request_id":"CR_STUB_1","collect_request_url":"https://pay.test/CR_STUB_1"}`)
	gw := &stubGateway{createResp: &CollectResponse{
		CollectRequestID:  "CR_STUB_1",
		CollectRequestURL: "https://pay.test/CR_STUB_1",
		Raw:               raw,
	}}

	db := setupTestDB(t)
	recon := NewReconciliationService(db, testLogger())
	svc := NewPaymentService(db, gw, NewSigner("test-pg-secret"), recon, testGatewayConfig(), testLogger())

	result, err := svc.CreateCollectRequest(context.Background(), "school_1", "500", "https://app.test/callback")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "CR_STUB_1", result.Data.CollectRequestID)
	assert.Equal(t, "https://pay.test/CR_STUB_1", result.Data.CollectRequestURL)

	// The outbound call was signed.
	assert.NotEmpty(t, gw.lastCreate.Sign)
	assert.Equal(t, "school_1", gw.lastCreate.SchoolID)

	var txn models.PaymentTransaction
	require.NoError(t, db.Where("collect_request_id = ?", "CR_STUB_1").First(&txn).Error)
	assert.Equal(t, "initiated", txn.Status)
	assert.Equal(t, float64(500), txn.Amount)
	assert.Equal(t, "https://app.test/callback", txn.CallbackURL)
	assert.NotEmpty(t, txn.JWTSign)
	assert.JSONEq(t, string(raw), string(txn.GatewayResponse))

	// The best-effort sync side effect materialized an Order too.
	var order models.Order
	require.NoError(t, db.Where("custom_order_id = ?", "CR_STUB_1").First(&order).Error)
	assert.Equal(t, "pending", order.Status)
}

func TestCreateCollectRequestGatewayFailure(t *testing.T) {
	gw := &stubGateway{createErr: &GatewayError{StatusCode: 502, Body: "upstream down"}}

	db := setupTestDB(t)
	svc := NewPaymentService(db, gw, NewSigner("test-pg-secret"), NewReconciliationService(db, testLogger()), testGatewayConfig(), testLogger())

	_, err := svc.CreateCollectRequest(context.Background(), "school_1", "500", "https://app.test/callback")
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, 502, gwErr.StatusCode)

	// Nothing was persisted.
	var count int64
	require.NoError(t, db.Model(&models.PaymentTransaction{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestCreateCollectRequestDefaultsSchoolID(t *testing.T) {
	gw := &stubGateway{createResp: &CollectResponse{CollectRequestID: "CR_DEF", CollectRequestURL: "u", Raw: json.RawMessage(`{}`)}}
	db := setupTestDB(t)
	svc := NewPaymentService(db, gw, NewSigner("s"), nil, testGatewayConfig(), testLogger())

	_, err := svc.CreateCollectRequest(context.Background(), "", "100", "cb")
	require.NoError(t, err)
	assert.Equal(t, "school_default", gw.lastCreate.SchoolID)
}

func TestCreatePaymentLeavesOrderPendingOnGatewayFailure(t *testing.T) {
	gw := &stubGateway{createErr: &GatewayError{StatusCode: 500, Body: "boom"}}
	db := setupTestDB(t)
	svc := NewPaymentService(db, gw, NewSigner("s"), nil, testGatewayConfig(), testLogger())

	_, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		SchoolID:    "school_1",
		GatewayName: "edviron",
		Amount:      "100",
		CallbackURL: "cb",
		StudentInfo: models.StudentInfo{Name: "Asha", ID: "S1", Email: "a@b.c"},
	})
	require.Error(t, err)

	var order models.Order
	require.NoError(t, db.Where("school_id = ?", "school_1").First(&order).Error)
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

func TestCreatePaymentHappyPath(t *testing.T) {
	gw := &stubGateway{createResp: &CollectResponse{
		CollectRequestID:  "CR_PAY",
		CollectRequestURL: "https://pay.test/CR_PAY",
		Raw:               json.RawMessage(`{"ok":true}`),
	}}
	db := setupTestDB(t)
	svc := NewPaymentService(db, gw, NewSigner("s"), nil, testGatewayConfig(), testLogger())

	result, err := svc.CreatePayment(context.Background(), CreatePaymentInput{
		SchoolID:    "school_1",
		GatewayName: "edviron",
		Amount:      "750",
		CallbackURL: "cb",
		StudentInfo: models.StudentInfo{Name: "Asha", ID: "S1", Email: "a@b.c"},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(result.OrderID, "EDV_"))
	assert.Equal(t, "https://pay.test/CR_PAY", result.PaymentURL)

	var order models.Order
	require.NoError(t, db.Where("custom_order_id = ?", result.OrderID).First(&order).Error)
	assert.Equal(t, models.OrderStatusInitiated, order.Status)
}

func TestUpdatePaymentStatusNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPaymentService(db, &stubGateway{}, NewSigner("s"), nil, testGatewayConfig(), testLogger())

	_, err := svc.UpdatePaymentStatus(context.Background(), "CR_NOPE", "paid", nil)
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestUpdatePaymentStatusSyncsOrder(t *testing.T) {
	db := setupTestDB(t)
	recon := NewReconciliationService(db, testLogger())
	svc := NewPaymentService(db, &stubGateway{}, NewSigner("s"), recon, testGatewayConfig(), testLogger())

	seedTransaction(t, db, "CR_UPD", "school_1", "initiated", 400)

	txn, err := svc.UpdatePaymentStatus(context.Background(), "CR_UPD", "paid", &PaymentDetails{
		PaymentMode:   "netbanking",
		BankReference: "HDFC001",
	})
	require.NoError(t, err)
	assert.Equal(t, "paid", txn.Status)
	assert.Equal(t, "netbanking", txn.PaymentMode)
	assert.Equal(t, "HDFC001", txn.BankReference)

	// Best-effort sync carried the mapped status onto the order side.
	var order models.Order
	require.NoError(t, db.Where("custom_order_id = ?", "CR_UPD").First(&order).Error)
	assert.Equal(t, "success", order.Status)
}

func TestSyncFailureDoesNotFailPrimaryWrite(t *testing.T) {
	db := setupTestDB(t)
	// A reconciliation service pointed at a database with no schema: every
	// sync pass fails, but the payment write must not care.
	brokenDB := setupTestDB(t)
	require.NoError(t, brokenDB.Migrator().DropTable(&models.PaymentTransaction{}))
	recon := NewReconciliationService(brokenDB, testLogger())

	gw := &stubGateway{createResp: &CollectResponse{CollectRequestID: "CR_ISO", CollectRequestURL: "u", Raw: json.RawMessage(`{}`)}}
	svc := NewPaymentService(db, gw, NewSigner("s"), recon, testGatewayConfig(), testLogger())

	result, err := svc.CreateCollectRequest(context.Background(), "school_1", "100", "cb")
	require.NoError(t, err)
	assert.True(t, result.Success)

	var txn models.PaymentTransaction
	require.NoError(t, db.Where("collect_request_id = ?", "CR_ISO").First(&txn).Error)
}

func TestGetPaymentTransaction(t *testing.T) {
	db := setupTestDB(t)
	svc := NewPaymentService(db, &stubGateway{}, NewSigner("s"), nil, testGatewayConfig(), testLogger())

	seedTransaction(t, db, "CR_GET", "school_1", "paid", 100)

	txn, err := svc.GetPaymentTransaction(context.Background(), "CR_GET")
	require.NoError(t, err)
	assert.Equal(t, "paid", txn.Status)

	_, err = svc.GetPaymentTransaction(context.Background(), "CR_MISSING")
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestNewCustomOrderIDFormat(t *testing.T) {
	id := NewCustomOrderID()
	parts := strings.Split(id, "_")
	require.Len(t, parts, 3)
	assert.Equal(t, "EDV", parts[0])
	assert.Len(t, parts[2], 8)
	assert.NotEqual(t, id, NewCustomOrderID())
}
