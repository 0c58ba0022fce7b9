package services

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound means a referenced Order does not exist. Surfaced as
	// a 404; never retried automatically.
	ErrOrderNotFound = errors.New("order not found")

	// ErrTransactionNotFound means no PaymentTransaction exists for the
	// given collect_request_id.
	ErrTransactionNotFound = errors.New("payment transaction not found")

	// ErrInvalidWebhookPayload means a webhook arrived without the fields
	// required to act on it.
	ErrInvalidWebhookPayload = errors.New("invalid webhook payload")
)

// GatewayError carries the upstream status code and body of a failed
// gateway call so callers can surface what the aggregator actually said.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error: status %d: %s", e.StatusCode, e.Body)
}
