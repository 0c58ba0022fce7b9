package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"school_payments/internal/middleware"
	"school_payments/internal/models"
	"school_payments/internal/services"
)

func newWebhookTestServer(t *testing.T) (*echo.Echo, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderStatus{}, &models.PaymentTransaction{}, &models.WebhookLog{}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewWebhookHandler(services.NewWebhookService(db, logger))

	e := echo.New()
	e.HTTPErrorHandler = middleware.JSONErrorHandler
	e.POST("/webhook", handler.Receive)
	e.GET("/webhook/logs", handler.Logs)
	return e, db
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestWebhookEndpoint(t *testing.T) {
	e, db := newWebhookTestServer(t)

	require.NoError(t, db.Create(&models.Order{
		SchoolID:      "school_1",
		CustomOrderID: "EDV_http_1",
		GatewayName:   "edviron",
		Status:        "initiated",
	}).Error)

	rec := postJSON(e, "/webhook", `{
		"status": 200,
		"order_info": {
			"order_id": "EDV_http_1",
			"order_amount": 2000,
			"transaction_amount": 2200,
			"gateway": "PhonePe",
			"bank_reference": "YESBNK222",
			"status": "success",
			"payment_mode": "upi",
			"payemnt_details": "success@ybl",
			"Payment_message": "payment success",
			"payment_time": "2024-01-15T10:30:00Z"
		}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "EDV_http_1", body["order_id"])

	var order models.Order
	require.NoError(t, db.Where("custom_order_id = ?", "EDV_http_1").First(&order).Error)
	assert.Equal(t, "success", order.Status)
}

func TestWebhookEndpointUnknownOrder(t *testing.T) {
	e, db := newWebhookTestServer(t)

	rec := postJSON(e, "/webhook", `{
		"status": 200,
		"order_info": {"order_id": "EDV_nope", "status": "success"}
	}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])

	// The delivery is still recorded.
	var logRow models.WebhookLog
	require.NoError(t, db.Where("order_id = ?", "EDV_nope").First(&logRow).Error)
	assert.Equal(t, models.WebhookStatusFailed, logRow.ProcessingStatus)
}

func TestWebhookEndpointInvalidPayload(t *testing.T) {
	e, _ := newWebhookTestServer(t)

	rec := postJSON(e, "/webhook", `{"status": 200, "order_info": {}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookLogsEndpoint(t *testing.T) {
	e, db := newWebhookTestServer(t)

	require.NoError(t, db.Create(&models.WebhookLog{
		OrderID:          "EDV_http_2",
		StatusCode:       200,
		Payload:          []byte(`{}`),
		Source:           "payment_gateway",
		ProcessingStatus: models.WebhookStatusReceived,
	}).Error)

	req := httptest.NewRequest(http.MethodGet, "/webhook/logs?limit=10&page=1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var page services.WebhookLogPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Logs, 1)
	assert.Equal(t, "EDV_http_2", page.Logs[0].OrderID)
}
