package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"school_payments/internal/config"
	"school_payments/internal/metrics"
	"school_payments/internal/models"
)

// PaymentService is the request-driven entry point for creating collect
// requests against the aggregator and recording their lifecycle.
type PaymentService struct {
	db      *gorm.DB
	gateway GatewayAPI
	signer  *Signer
	recon   *ReconciliationService
	cfg     config.Gateway
	logger  *slog.Logger
}

func NewPaymentService(db *gorm.DB, gateway GatewayAPI, signer *Signer, recon *ReconciliationService, cfg config.Gateway, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		db:      db,
		gateway: gateway,
		signer:  signer,
		recon:   recon,
		cfg:     cfg,
		logger:  logger,
	}
}

// CreatePaymentInput describes a fee-payment intent from the dashboard.
type CreatePaymentInput struct {
	SchoolID    string             `json:"school_id"`
	TrusteeID   string             `json:"trustee_id"`
	StudentInfo models.StudentInfo `json:"student_info"`
	GatewayName string             `json:"gateway_name"`
	Amount      string             `json:"amount"`
	CallbackURL string             `json:"callback_url"`
}

// CreatePaymentResult is returned for a dashboard-initiated payment.
type CreatePaymentResult struct {
	Success         bool            `json:"success"`
	OrderID         string          `json:"order_id"`
	CollectID       uint            `json:"collect_id"`
	PaymentURL      string          `json:"payment_url"`
	GatewayResponse json.RawMessage `json:"gateway_response"`
}

// CollectRequestResult is the shape returned for collect-request creation.
type CollectRequestResult struct {
	Success bool               `json:"success"`
	Data    CollectRequestData `json:"data"`
}

type CollectRequestData struct {
	CollectRequestID  string `json:"collect_request_id"`
	CollectRequestURL string `json:"collect_request_url"`
}

// PaymentDetails carries the optional detail fields of a manual status
// update.
type PaymentDetails struct {
	PaymentMode          string          `json:"payment_mode"`
	PaymentDetails       string          `json:"payment_details"`
	BankReference        string          `json:"bank_reference"`
	GatewayTransactionID string          `json:"gateway_transaction_id"`
	FailureReason        string          `json:"failure_reason"`
	GatewayResponse      json.RawMessage `json:"gateway_response"`
}

// NewCustomOrderID generates the externally visible correlation key for a
// payment attempt: EDV_<epoch-ms>_<8-char-random>.
func NewCustomOrderID() string {
	return fmt.Sprintf("EDV_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// CreatePayment records a fee-payment intent as an Order then opens a
// collect request for it. The Order is created as pending before the
// gateway call; an upstream failure leaves it pending rather than inventing
// a status.
func (s *PaymentService) CreatePayment(ctx context.Context, in CreatePaymentInput) (*CreatePaymentResult, error) {
	schoolID := in.SchoolID
	if schoolID == "" {
		schoolID = s.cfg.DefaultSchoolID
	}
	trusteeID := in.TrusteeID
	if trusteeID == "" {
		trusteeID = s.cfg.TrusteeID
	}

	order := models.Order{
		SchoolID:      schoolID,
		TrusteeID:     trusteeID,
		StudentInfo:   in.StudentInfo,
		GatewayName:   in.GatewayName,
		CustomOrderID: NewCustomOrderID(),
		Status:        models.OrderStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(&order).Error; err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}

	sign, err := s.signer.CreateRequestSign(schoolID, in.Amount, in.CallbackURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.gateway.CreateCollectRequest(ctx, CollectRequest{
		SchoolID:    schoolID,
		Amount:      in.Amount,
		CallbackURL: in.CallbackURL,
		Sign:        sign,
	})
	if err != nil {
		metrics.PaymentsFailed.Inc()
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&order).Update("status", models.OrderStatusInitiated).Error; err != nil {
		return nil, fmt.Errorf("updating order: %w", err)
	}

	metrics.PaymentsCreated.Inc()
	s.logger.Info("payment created",
		"custom_order_id", order.CustomOrderID,
		"school_id", schoolID)

	return &CreatePaymentResult{
		Success:         true,
		OrderID:         order.CustomOrderID,
		CollectID:       order.ID,
		PaymentURL:      resp.CollectRequestURL,
		GatewayResponse: resp.Raw,
	}, nil
}

// CreateCollectRequest signs and sends a collect-request creation call,
// persists the gateway-facing PaymentTransaction, and triggers a scoped
// reconciliation sync as a best-effort side effect.
func (s *PaymentService) CreateCollectRequest(ctx context.Context, schoolID, amount, callbackURL string) (*CollectRequestResult, error) {
	if schoolID == "" {
		schoolID = s.cfg.DefaultSchoolID
	}

	sign, err := s.signer.CreateRequestSign(schoolID, amount, callbackURL)
	if err != nil {
		return nil, err
	}

	resp, err := s.gateway.CreateCollectRequest(ctx, CollectRequest{
		SchoolID:    schoolID,
		Amount:      amount,
		CallbackURL: callbackURL,
		Sign:        sign,
	})
	if err != nil {
		metrics.PaymentsFailed.Inc()
		return nil, err
	}

	parsedAmount, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		s.logger.Warn("unparsable amount on collect request", "amount", amount)
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"created_at":   time.Now().UTC(),
		"api_response": json.RawMessage(resp.Raw),
	})

	txn := models.PaymentTransaction{
		CollectRequestID: resp.CollectRequestID,
		SchoolID:         schoolID,
		Amount:           parsedAmount,
		CallbackURL:      callbackURL,
		PaymentURL:       resp.CollectRequestURL,
		JWTSign:          sign,
		Status:           models.OrderStatusInitiated,
		GatewayResponse:  resp.Raw,
		Metadata:         metadata,
	}
	if err := s.db.WithContext(ctx).Create(&txn).Error; err != nil {
		return nil, fmt.Errorf("persisting payment transaction: %w", err)
	}

	metrics.PaymentsCreated.Inc()
	s.logger.Info("collect request created",
		"collect_request_id", txn.CollectRequestID,
		"school_id", schoolID)

	s.bestEffortSync(ctx, schoolID)

	return &CollectRequestResult{
		Success: true,
		Data: CollectRequestData{
			CollectRequestID:  resp.CollectRequestID,
			CollectRequestURL: resp.CollectRequestURL,
		},
	}, nil
}

// CheckPaymentStatus signs and runs a status check against the aggregator.
func (s *PaymentService) CheckPaymentStatus(ctx context.Context, collectRequestID, schoolID string) (*CollectStatusResponse, error) {
	if schoolID == "" {
		schoolID = s.cfg.DefaultSchoolID
	}

	sign, err := s.signer.StatusCheckSign(schoolID, collectRequestID)
	if err != nil {
		return nil, err
	}
	return s.gateway.CheckCollectStatus(ctx, collectRequestID, schoolID, sign)
}

// UpdatePaymentStatus applies a status (and optional details) to the
// gateway-facing record, then fires a best-effort scoped sync.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, collectRequestID, status string, details *PaymentDetails) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := s.db.WithContext(ctx).Where("collect_request_id = ?", collectRequestID).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}

	txn.Status = status
	if details != nil {
		txn.PaymentMode = details.PaymentMode
		txn.PaymentDetails = details.PaymentDetails
		txn.BankReference = details.BankReference
		txn.GatewayTransactionID = details.GatewayTransactionID
		txn.FailureReason = details.FailureReason
		if len(details.GatewayResponse) > 0 {
			txn.GatewayResponse = details.GatewayResponse
		}
	}
	if err := s.db.WithContext(ctx).Save(&txn).Error; err != nil {
		return nil, fmt.Errorf("saving payment transaction: %w", err)
	}

	s.logger.Info("payment status updated",
		"collect_request_id", collectRequestID,
		"status", status)

	s.bestEffortSync(ctx, txn.SchoolID)

	return &txn, nil
}

// GetPaymentTransaction loads the gateway-facing record.
func (s *PaymentService) GetPaymentTransaction(ctx context.Context, collectRequestID string) (*models.PaymentTransaction, error) {
	var txn models.PaymentTransaction
	err := s.db.WithContext(ctx).Where("collect_request_id = ?", collectRequestID).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GetPaymentStatus loads an Order by its custom order id.
func (s *PaymentService) GetPaymentStatus(ctx context.Context, customOrderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("OrderStatus").Where("custom_order_id = ?", customOrderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// bestEffortSync runs a scoped reconciliation pass after a primary write.
// The payment write already succeeded; reconciliation is advisory and must
// never fail or block it.
func (s *PaymentService) bestEffortSync(ctx context.Context, schoolID string) {
	if s.recon == nil {
		return
	}
	if _, err := s.recon.Sync(ctx, schoolID); err != nil {
		s.logger.Warn("post-write reconciliation sync failed",
			"school_id", schoolID, "error", err)
	}
}
