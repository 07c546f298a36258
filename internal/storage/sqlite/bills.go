package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitpay/internal/models"
	"github.com/mmynk/splitpay/internal/storage"
)

const billColumns = "id, slug, name, goal, owner_id, status, external_account_id, created_at"

// CreateBill persists a new bill and its participants in one transaction.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt == 0 {
		bill.CreatedAt = time.Now().Unix()
	}
	if bill.Status == "" {
		bill.Status = models.BillStatusActive
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO bills ("+billColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		bill.ID, bill.Slug, bill.Name, bill.Goal, bill.OwnerID, bill.Status, bill.ExternalAccountID, bill.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("bill %s: %w", bill.Slug, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	for i := range bill.Participants {
		p := &bill.Participants[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.BillID = bill.ID

		_, err = tx.ExecContext(ctx,
			"INSERT INTO participants (id, bill_id, name, phone_number, target_amount, position) VALUES (?, ?, ?, ?, ?, ?)",
			p.ID, p.BillID, p.Name, p.PhoneNumber, p.TargetAmount, i,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("participant %s: %w", p.PhoneNumber, storage.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetBill retrieves a bill by ID, including its participants.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	return s.getBill(ctx, "id", billID)
}

// GetBillBySlug retrieves a bill by slug, including its participants.
func (s *SQLiteStore) GetBillBySlug(ctx context.Context, slug string) (*models.Bill, error) {
	return s.getBill(ctx, "slug", slug)
}

func (s *SQLiteStore) getBill(ctx context.Context, column, key string) (*models.Bill, error) {
	bill := &models.Bill{}
	err := s.db.QueryRowContext(ctx,
		"SELECT "+billColumns+" FROM bills WHERE "+column+" = ?",
		key,
	).Scan(&bill.ID, &bill.Slug, &bill.Name, &bill.Goal, &bill.OwnerID, &bill.Status, &bill.ExternalAccountID, &bill.CreatedAt)
	if err != nil {
		return nil, notFound(err, "bill", key)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, bill_id, name, phone_number, target_amount FROM participants WHERE bill_id = ? ORDER BY position",
		bill.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.BillID, &p.Name, &p.PhoneNumber, &p.TargetAmount); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		bill.Participants = append(bill.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return bill, nil
}

// ListOwnership returns the slug-to-owner rows for ownerID.
func (s *SQLiteStore) ListOwnership(ctx context.Context, ownerID string) ([]models.Ownership, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT slug, owner_id, id, name, goal FROM bills WHERE owner_id = ?",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ownership: %w", err)
	}
	defer rows.Close()

	var out []models.Ownership
	for rows.Next() {
		var o models.Ownership
		if err := rows.Scan(&o.Slug, &o.OwnerID, &o.BillID, &o.Name, &o.Goal); err != nil {
			return nil, fmt.Errorf("failed to scan ownership: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ownership: %w", err)
	}

	return out, nil
}

// TransitionBillStatus sets the bill's status to "to" only while it is
// still "from".
func (s *SQLiteStore) TransitionBillStatus(ctx context.Context, billID string, from, to models.BillStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE bills SET status = ? WHERE id = ? AND status = ?",
		to, billID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update bill status: %w", err)
	}
	if n == 1 {
		return nil
	}

	var current models.BillStatus
	err = s.db.QueryRowContext(ctx, "SELECT status FROM bills WHERE id = ?", billID).Scan(&current)
	if err != nil {
		return notFound(err, "bill", billID)
	}
	return fmt.Errorf("bill %s is %s, not %s: %w", billID, current, from, storage.ErrStatusChanged)
}
