// Package reconcile derives collection progress from external payment records.
//
// The pipeline is: Normalize each attempt's status, MatchAttempts to
// participants by phone number, then Aggregate against the bill goal.
// Reconcile runs all three; every view goes through it.
package reconcile

import "strings"

// Status is the normalized state of a payment attempt.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
)

var statusTable = map[string]Status{
	"SUCCESS":    StatusPaid,
	"PAID":       StatusPaid,
	"COMPLETED":  StatusPaid,
	"PROCESSING": StatusPending,
	"PENDING":    StatusPending,
	"INITIATED":  StatusPending,
	"SENT":       StatusPending,
	"FAILED":     StatusFailed,
	"EXPIRED":    StatusFailed,
	"CANCELLED":  StatusFailed,
	"REJECTED":   StatusFailed,
	"DECLINED":   StatusFailed,
	"ERROR":      StatusFailed,
}

// Normalize maps a platform status onto paid, pending or failed.
// Unknown and empty values map to pending, never to paid.
func Normalize(raw string) Status {
	if s, ok := statusTable[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return s
	}
	return StatusPending
}
