package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitpay/internal/models"
	"github.com/mmynk/splitpay/internal/storage"
)

const channelColumns = "id, owner_id, display_id, name, external_id, is_default, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (*models.Channel, error) {
	ch := &models.Channel{}
	err := row.Scan(&ch.ID, &ch.OwnerID, &ch.DisplayID, &ch.Name, &ch.ExternalID, &ch.IsDefault, &ch.CreatedAt)
	return ch, err
}

// CreateChannel inserts a channel. The first channel an owner registers
// becomes their default.
func (s *SQLiteStore) CreateChannel(ctx context.Context, ch *models.Channel) error {
	if ch.ID == "" {
		ch.ID = uuid.New().String()
	}
	if ch.CreatedAt == 0 {
		ch.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM channels WHERE owner_id = ?", ch.OwnerID).Scan(&existing); err != nil {
		return fmt.Errorf("failed to count channels: %w", err)
	}
	if existing == 0 {
		ch.IsDefault = true
	} else if ch.IsDefault {
		if _, err := tx.ExecContext(ctx, "UPDATE channels SET is_default = 0 WHERE owner_id = ?", ch.OwnerID); err != nil {
			return fmt.Errorf("failed to clear default channel: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO channels ("+channelColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		ch.ID, ch.OwnerID, ch.DisplayID, ch.Name, ch.ExternalID, ch.IsDefault, ch.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("channel %s: %w", ch.ID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert channel: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListChannels returns the owner's channels, oldest first.
func (s *SQLiteStore) ListChannels(ctx context.Context, ownerID string) ([]models.Channel, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+channelColumns+" FROM channels WHERE owner_id = ? ORDER BY created_at, rowid",
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate channels: %w", err)
	}
	return channels, nil
}

// GetChannel returns one of the owner's channels. Channels belonging to
// someone else are reported as not found.
func (s *SQLiteStore) GetChannel(ctx context.Context, ownerID, channelID string) (*models.Channel, error) {
	ch, err := scanChannel(s.db.QueryRowContext(ctx,
		"SELECT "+channelColumns+" FROM channels WHERE id = ? AND owner_id = ?",
		channelID, ownerID,
	))
	if err != nil {
		return nil, notFound(err, "channel", channelID)
	}
	return ch, nil
}

// GetDefaultChannel returns the owner's default channel.
func (s *SQLiteStore) GetDefaultChannel(ctx context.Context, ownerID string) (*models.Channel, error) {
	ch, err := scanChannel(s.db.QueryRowContext(ctx,
		"SELECT "+channelColumns+" FROM channels WHERE owner_id = ? AND is_default = 1",
		ownerID,
	))
	if err != nil {
		return nil, notFound(err, "default channel for", ownerID)
	}
	return ch, nil
}

// SetDefaultChannel clears the owner's current default and sets the new one
// inside one transaction, so no reader ever sees zero or two defaults.
// SQLite checks unique indexes row by row, so the clear must run first.
func (s *SQLiteStore) SetDefaultChannel(ctx context.Context, ownerID, channelID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM channels WHERE id = ? AND owner_id = ?",
		channelID, ownerID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("channel %s: %w", channelID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE channels SET is_default = 0 WHERE owner_id = ? AND id != ? AND is_default = 1",
		ownerID, channelID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear default channel: %w", err)
	}

	_, err = tx.ExecContext(ctx, "UPDATE channels SET is_default = 1 WHERE id = ?", channelID)
	if err != nil {
		return fmt.Errorf("failed to set default channel: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
