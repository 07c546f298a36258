package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/splitpay/internal/models"
)

// RecordPaymentEvent appends a webhook notification to the event log.
func (s *SQLiteStore) RecordPaymentEvent(ctx context.Context, event *models.PaymentEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_events
			(id, attempt_id, bill_reference, raw_status, phone_number, amount, signature_valid, payload, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.AttemptID, event.BillReference, event.RawStatus, event.PhoneNumber,
		event.Amount, event.SignatureValid, event.Payload, event.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record payment event: %w", err)
	}
	return nil
}

// ListPaymentEvents returns events matching reference or any of attemptIDs,
// newest first. Only events with a valid signature are returned.
func (s *SQLiteStore) ListPaymentEvents(ctx context.Context, reference string, attemptIDs []string) ([]models.PaymentEvent, error) {
	query := `
		SELECT id, attempt_id, bill_reference, raw_status, phone_number, amount, signature_valid, payload, received_at
		FROM payment_events
		WHERE signature_valid = 1 AND (bill_reference = ?`
	args := []any{reference}
	if len(attemptIDs) > 0 {
		query += " OR attempt_id IN (" + placeholders(len(attemptIDs)) + ")"
		for _, id := range attemptIDs {
			args = append(args, id)
		}
	}
	query += ") ORDER BY received_at DESC, rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment events: %w", err)
	}
	defer rows.Close()

	var events []models.PaymentEvent
	for rows.Next() {
		var e models.PaymentEvent
		if err := rows.Scan(
			&e.ID,
			&e.AttemptID,
			&e.BillReference,
			&e.RawStatus,
			&e.PhoneNumber,
			&e.Amount,
			&e.SignatureValid,
			&e.Payload,
			&e.ReceivedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment events: %w", err)
	}

	return events, nil
}
