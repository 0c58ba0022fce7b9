package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"school_payments/internal/models"
)

const transactionCacheTTL = 30 * time.Second

// Pagination describes one page of a listing.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func NewPagination(total int64, page, limit int) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	if totalPages == 0 {
		totalPages = 1
	}
	return Pagination{Total: total, Page: page, Limit: limit, TotalPages: totalPages}
}

// TransactionView is the dashboard's joined projection of an Order and its
// OrderStatus row.
type TransactionView struct {
	CollectID         uint               `json:"collect_id"`
	SchoolID          string             `json:"school_id"`
	Gateway           string             `json:"gateway"`
	CustomOrderID     string             `json:"custom_order_id"`
	StudentInfo       models.StudentInfo `json:"student_info"`
	TrusteeID         string             `json:"trustee_id"`
	OrderAmount       float64            `json:"order_amount"`
	TransactionAmount float64            `json:"transaction_amount"`
	Status            string             `json:"status"`
	PaymentMode       string             `json:"payment_mode"`
	PaymentDetails    string             `json:"payment_details"`
	BankReference     string             `json:"bank_reference"`
	PaymentMessage    string             `json:"payment_message"`
	ErrorMessage      string             `json:"error_message"`
	PaymentTime       *time.Time         `json:"payment_time"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// TransactionPage is one page of the dashboard listing.
type TransactionPage struct {
	Transactions []TransactionView `json:"transactions"`
	Pagination   Pagination        `json:"pagination"`
	SchoolID     string            `json:"school_id,omitempty"`
}

// TransactionService serves the dashboard's read side: paginated joined
// views of Order and OrderStatus, optionally cached in Redis.
type TransactionService struct {
	db    *gorm.DB
	cache *RedisCache
}

func NewTransactionService(db *gorm.DB, cache *RedisCache) *TransactionService {
	return &TransactionService{db: db, cache: cache}
}

// GetAllTransactions lists the joined view across all schools.
func (s *TransactionService) GetAllTransactions(ctx context.Context, limit, page int, sort, order string) (*TransactionPage, error) {
	key := fmt.Sprintf("transactions:all:%d:%d:%s:%s", limit, page, sort, order)
	return GetOrSet(s.cache, ctx, key, transactionCacheTTL, func() (*TransactionPage, error) {
		return s.listTransactions(ctx, "", limit, page, sort, order)
	})
}

// GetTransactionsBySchool lists the joined view for one school.
func (s *TransactionService) GetTransactionsBySchool(ctx context.Context, schoolID string, limit, page int, sort, order string) (*TransactionPage, error) {
	key := fmt.Sprintf("transactions:%s:%d:%d:%s:%s", schoolID, limit, page, sort, order)
	return GetOrSet(s.cache, ctx, key, transactionCacheTTL, func() (*TransactionPage, error) {
		return s.listTransactions(ctx, schoolID, limit, page, sort, order)
	})
}

// GetTransactionStatus returns the joined view for one custom order id.
func (s *TransactionService) GetTransactionStatus(ctx context.Context, customOrderID string) (*TransactionView, error) {
	var o models.Order
	err := s.db.WithContext(ctx).Preload("OrderStatus").
		Where("custom_order_id = ?", customOrderID).
		First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	view := toTransactionView(o)
	return &view, nil
}

func (s *TransactionService) listTransactions(ctx context.Context, schoolID string, limit, page int, sort, order string) (*TransactionPage, error) {
	if limit <= 0 {
		limit = 10
	}
	if page <= 0 {
		page = 1
	}
	if order != "asc" {
		order = "desc"
	}

	// Sort columns are whitelisted; anything else falls back to creation
	// time to keep user input out of the ORDER BY clause.
	var sortColumn string
	switch sort {
	case "payment_time":
		sortColumn = "order_statuses.payment_time"
	case "status":
		sortColumn = "orders.status"
	case "school_id":
		sortColumn = "orders.school_id"
	default:
		sortColumn = "orders.created_at"
	}

	base := s.db.WithContext(ctx).Model(&models.Order{})
	if schoolID != "" {
		base = base.Where("orders.school_id = ?", schoolID)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	var orders []models.Order
	err := base.Session(&gorm.Session{}).
		Joins("LEFT JOIN order_statuses ON order_statuses.collect_id = orders.id").
		Order(sortColumn + " " + order).
		Limit(limit).
		Offset((page - 1) * limit).
		Preload("OrderStatus").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	views := make([]TransactionView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toTransactionView(o))
	}

	return &TransactionPage{
		Transactions: views,
		Pagination:   NewPagination(total, page, limit),
		SchoolID:     schoolID,
	}, nil
}

func toTransactionView(o models.Order) TransactionView {
	view := TransactionView{
		CollectID:     o.ID,
		SchoolID:      o.SchoolID,
		Gateway:       o.GatewayName,
		CustomOrderID: o.CustomOrderID,
		StudentInfo:   o.StudentInfo,
		TrusteeID:     o.TrusteeID,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if os := o.OrderStatus; os != nil {
		view.OrderAmount = os.OrderAmount
		view.TransactionAmount = os.TransactionAmount
		view.Status = os.Status
		view.PaymentMode = os.PaymentMode
		view.PaymentDetails = os.PaymentDetails
		view.BankReference = os.BankReference
		view.PaymentMessage = os.PaymentMessage
		view.ErrorMessage = os.ErrorMessage
		view.PaymentTime = os.PaymentTime
	}
	return view
}
