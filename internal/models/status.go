package models

import "strings"

// InternalStatus is the closed status vocabulary the reconciliation logic
// operates on. Raw gateway strings are kept only in audit fields.
type InternalStatus string

const (
	StatusSuccess   InternalStatus = "success"
	StatusFailed    InternalStatus = "failed"
	StatusCancelled InternalStatus = "cancelled"
	StatusPending   InternalStatus = "pending"
)

// statusSynonyms is the closed table of known upstream vocabulary. Anything
// outside it maps to pending: an unknown gateway state is treated as still
// in flight, never as success or failure.
var statusSynonyms = map[string]InternalStatus{
	"success":     StatusSuccess,
	"completed":   StatusSuccess,
	"paid":        StatusSuccess,
	"successful":  StatusSuccess,
	"complete":    StatusSuccess,
	"failed":      StatusFailed,
	"failure":     StatusFailed,
	"fail":        StatusFailed,
	"declined":    StatusFailed,
	"rejected":    StatusFailed,
	"error":       StatusFailed,
	"cancelled":   StatusCancelled,
	"canceled":    StatusCancelled,
	"cancel":      StatusCancelled,
	"aborted":     StatusCancelled,
	"timeout":     StatusCancelled,
	"pending":     StatusPending,
	"initiated":   StatusPending,
	"processing":  StatusPending,
	"in_progress": StatusPending,
	"created":     StatusPending,
	"starting":    StatusPending,
}

var statusMessages = map[InternalStatus]string{
	StatusSuccess:   "Payment completed successfully",
	StatusFailed:    "Payment failed",
	StatusCancelled: "Payment was cancelled",
	StatusPending:   "Payment is being processed",
}

// MapStatus maps an arbitrary upstream status string onto the internal
// enum. It is total: matching is case-insensitive and trims whitespace, and
// unknown input defaults to pending. Callers that care about new gateway
// vocabulary should pair this with KnownStatus and log the default path.
func MapStatus(raw string) InternalStatus {
	if mapped, ok := statusSynonyms[normalizeStatus(raw)]; ok {
		return mapped
	}
	return StatusPending
}

// KnownStatus reports whether raw is in the synonym table. A false result
// means MapStatus fell back to pending.
func KnownStatus(raw string) bool {
	_, ok := statusSynonyms[normalizeStatus(raw)]
	return ok
}

// StatusMessage returns a human-readable description for an upstream status
// string, going through the same normalization as MapStatus.
func StatusMessage(raw string) string {
	return statusMessages[MapStatus(raw)]
}

func normalizeStatus(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
