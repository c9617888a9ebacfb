package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dan9191/card-transfer-service/internal/models"
)

const transferColumns = "id, from_card_id, to_card_id, amount, status, description, user_id, created_at"

// CreateTransfer inserts a transfer record through the given transaction
func (s *Store) CreateTransfer(ctx context.Context, tx Tx, transfer *models.Transfer) error {
	sqlTx, err := sqlTxOf(tx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO bank.transfers (from_card_id, to_card_id, amount, status, description, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err = sqlTx.QueryRowContext(ctx, query, transfer.FromCardID, transfer.ToCardID,
		transfer.Amount, transfer.Status, transfer.Description, transfer.UserID).
		Scan(&transfer.ID, &transfer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	return nil
}

// GetTransferByID retrieves a transfer by id
func (s *Store) GetTransferByID(ctx context.Context, transferID int64) (*models.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM bank.transfers
		WHERE id = $1`
	transfer := &models.Transfer{}
	err := s.db.QueryRowContext(ctx, query, transferID).
		Scan(&transfer.ID, &transfer.FromCardID, &transfer.ToCardID, &transfer.Amount,
			&transfer.Status, &transfer.Description, &transfer.UserID, &transfer.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transfer: %w", err)
	}
	return transfer, nil
}

// ListTransfersByUser retrieves a user's transfers, newest first
func (s *Store) ListTransfersByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM bank.transfers
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	return s.listTransfers(ctx, query, userID, limit, offset)
}

// ListTransfersByCard retrieves a user's transfers touching the given card,
// newest first
func (s *Store) ListTransfersByCard(ctx context.Context, cardID, userID int64, limit, offset int) ([]*models.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM bank.transfers
		WHERE (from_card_id = $1 OR to_card_id = $1) AND user_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`
	return s.listTransfers(ctx, query, cardID, userID, limit, offset)
}

func (s *Store) listTransfers(ctx context.Context, query string, args ...interface{}) ([]*models.Transfer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*models.Transfer
	for rows.Next() {
		transfer := &models.Transfer{}
		if err := rows.Scan(&transfer.ID, &transfer.FromCardID, &transfer.ToCardID, &transfer.Amount,
			&transfer.Status, &transfer.Description, &transfer.UserID, &transfer.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, transfer)
	}
	return transfers, rows.Err()
}
