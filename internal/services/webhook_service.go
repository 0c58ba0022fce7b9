package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"school_payments/internal/metrics"
	"school_payments/internal/models"
)

// WebhookEvent is the gateway's push notification payload.
type WebhookEvent struct {
	Status    int              `json:"status"`
	OrderInfo WebhookOrderInfo `json:"order_info"`
}

// WebhookOrderInfo carries the per-order fields of a webhook. The upstream
// integration historically misspells the payment details key and
// capitalizes the message key, so decoding accepts those as aliases.
type WebhookOrderInfo struct {
	OrderID           string  `json:"order_id"`
	OrderAmount       float64 `json:"order_amount"`
	TransactionAmount float64 `json:"transaction_amount"`
	Gateway           string  `json:"gateway"`
	BankReference     string  `json:"bank_reference"`
	Status            string  `json:"status"`
	PaymentMode       string  `json:"payment_mode"`
	PaymentDetails    string  `json:"payment_details"`
	PaymentMessage    string  `json:"payment_message"`
	PaymentTime       string  `json:"payment_time"`
	ErrorMessage      string  `json:"error_message"`
}

func (o *WebhookOrderInfo) UnmarshalJSON(data []byte) error {
	type plain WebhookOrderInfo
	aux := struct {
		*plain
		MisspelledDetails string `json:"payemnt_details"`
		LegacyMessage     string `json:"Payment_message"`
	}{plain: (*plain)(o)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if o.PaymentDetails == "" {
		o.PaymentDetails = aux.MisspelledDetails
	}
	if o.PaymentMessage == "" {
		o.PaymentMessage = aux.LegacyMessage
	}
	return nil
}

// WebhookResult is returned to the webhook caller on success.
type WebhookResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"order_id"`
}

// WebhookService ingests gateway status events and applies them to the
// Order side, with an append-only audit log of every delivery.
type WebhookService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewWebhookService(db *gorm.DB, logger *slog.Logger) *WebhookService {
	return &WebhookService{db: db, logger: logger}
}

// ProcessWebhook applies one inbound status event. The audit row is written
// with processing_status=received before anything else, so the log exists
// even when downstream processing fails; it then transitions exactly once,
// to processed or failed. Replaying an identical event is safe: the
// OrderStatus write is an upsert and the Order write is an idempotent set.
func (s *WebhookService) ProcessWebhook(ctx context.Context, event WebhookEvent) (*WebhookResult, error) {
	metrics.WebhooksReceived.Inc()

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshalling webhook payload: %w", err)
	}

	logRow := models.WebhookLog{
		OrderID:          event.OrderInfo.OrderID,
		StatusCode:       event.Status,
		Payload:          payload,
		Source:           "payment_gateway",
		ProcessingStatus: models.WebhookStatusReceived,
	}
	if err := s.db.WithContext(ctx).Create(&logRow).Error; err != nil {
		return nil, fmt.Errorf("persisting webhook log: %w", err)
	}

	if event.OrderInfo.OrderID == "" || event.OrderInfo.Status == "" {
		s.failLog(ctx, &logRow, "missing order_id or status")
		return nil, ErrInvalidWebhookPayload
	}

	var order models.Order
	err = s.db.WithContext(ctx).Where("custom_order_id = ?", event.OrderInfo.OrderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.failLog(ctx, &logRow, "Order not found")
		return nil, ErrOrderNotFound
	}
	if err != nil {
		s.failLog(ctx, &logRow, err.Error())
		return nil, err
	}

	paymentTime := s.parsePaymentTime(event.OrderInfo.PaymentTime)

	errorMessage := event.OrderInfo.ErrorMessage
	if errorMessage == "" {
		errorMessage = "NA"
	}

	statusRow := models.OrderStatus{
		CollectID:         order.ID,
		OrderAmount:       event.OrderInfo.OrderAmount,
		TransactionAmount: event.OrderInfo.TransactionAmount,
		PaymentMode:       event.OrderInfo.PaymentMode,
		PaymentDetails:    event.OrderInfo.PaymentDetails,
		BankReference:     event.OrderInfo.BankReference,
		PaymentMessage:    event.OrderInfo.PaymentMessage,
		Status:            event.OrderInfo.Status,
		ErrorMessage:      errorMessage,
		PaymentTime:       paymentTime,
	}
	if err := upsertOrderStatus(s.db.WithContext(ctx), statusRow); err != nil {
		s.failLog(ctx, &logRow, err.Error())
		return nil, fmt.Errorf("upserting order status: %w", err)
	}

	// The order keeps the gateway-native vocabulary verbatim here; every
	// other write path normalizes through MapStatus first. Downstream
	// consumers read the raw string, so reconciliation re-normalizes later
	// instead of this path mapping eagerly.
	if err := s.db.WithContext(ctx).Model(&order).Update("status", event.OrderInfo.Status).Error; err != nil {
		s.failLog(ctx, &logRow, err.Error())
		return nil, fmt.Errorf("updating order: %w", err)
	}

	s.updateTransaction(ctx, order.CustomOrderID, event.OrderInfo, paymentTime)

	if err := s.db.WithContext(ctx).Model(&logRow).
		Update("processing_status", models.WebhookStatusProcessed).Error; err != nil {
		s.logger.Warn("flipping webhook log to processed", "order_id", order.CustomOrderID, "error", err)
	}

	s.logger.Info("webhook processed",
		"order_id", order.CustomOrderID,
		"status", event.OrderInfo.Status)

	return &WebhookResult{
		Success: true,
		Message: "Webhook processed successfully",
		OrderID: order.CustomOrderID,
	}, nil
}

// updateTransaction mirrors the event onto the gateway-facing record when
// one exists. Best effort: a failure here never fails the webhook.
func (s *WebhookService) updateTransaction(ctx context.Context, collectRequestID string, info WebhookOrderInfo, paymentTime *time.Time) {
	updates := map[string]interface{}{
		"status":          info.Status,
		"payment_mode":    info.PaymentMode,
		"payment_details": info.PaymentDetails,
		"bank_reference":  info.BankReference,
	}
	if paymentTime != nil {
		updates["payment_time"] = paymentTime
	}

	err := s.db.WithContext(ctx).Model(&models.PaymentTransaction{}).
		Where("collect_request_id = ?", collectRequestID).
		Updates(updates).Error
	if err != nil {
		s.logger.Warn("updating payment transaction from webhook",
			"collect_request_id", collectRequestID, "error", err)
	}
}

func (s *WebhookService) parsePaymentTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.logger.Warn("unparsable payment_time in webhook", "payment_time", raw)
		return nil
	}
	return &t
}

func (s *WebhookService) failLog(ctx context.Context, logRow *models.WebhookLog, message string) {
	metrics.WebhooksFailed.Inc()
	err := s.db.WithContext(ctx).Model(logRow).Updates(map[string]interface{}{
		"processing_status": models.WebhookStatusFailed,
		"error_message":     message,
	}).Error
	if err != nil {
		s.logger.Error("marking webhook log failed", "order_id", logRow.OrderID, "error", err)
	}
}

// WebhookLogPage is a paginated slice of the audit log.
type WebhookLogPage struct {
	Logs       []models.WebhookLog `json:"logs"`
	Pagination Pagination          `json:"pagination"`
}

// GetWebhookLogs returns the newest audit rows first.
func (s *WebhookService) GetWebhookLogs(ctx context.Context, limit, page int) (*WebhookLogPage, error) {
	if limit <= 0 {
		limit = 50
	}
	if page <= 0 {
		page = 1
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.WebhookLog{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var logs []models.WebhookLog
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}

	return &WebhookLogPage{
		Logs:       logs,
		Pagination: NewPagination(total, page, limit),
	}, nil
}
