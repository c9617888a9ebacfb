package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dan9191/card-transfer-service/internal/models"
)

const cardColumns = "id, user_id, card_number_encrypted, card_number_hmac, card_holder, expiry_date, status, balance, created_at, updated_at"

func scanCard(row *sql.Row) (*models.Card, error) {
	card := &models.Card{}
	err := row.Scan(&card.ID, &card.UserID, &card.NumberEncrypted, &card.NumberHMAC, &card.Holder,
		&card.ExpiryDate, &card.Status, &card.Balance, &card.CreatedAt, &card.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan card: %w", err)
	}
	return card, nil
}

// CreateCard creates a new card in the database
func (s *Store) CreateCard(ctx context.Context, tx Tx, card *models.Card) error {
	sqlTx, err := sqlTxOf(tx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO bank.cards (user_id, card_number_encrypted, card_number_hmac, card_holder, expiry_date, status, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err = sqlTx.QueryRowContext(ctx, query, card.UserID, card.NumberEncrypted, card.NumberHMAC, card.Holder,
		card.ExpiryDate, card.Status, card.Balance).
		Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create card: %w", err)
	}
	return nil
}

// LockCardForUpdate acquires an exclusive row lock on the card within the
// given transaction. The lock is held until the transaction ends. Returns
// ErrNotFound if the card does not exist and ErrConflict if the store
// detects a deadlock or lock timeout.
func (s *Store) LockCardForUpdate(ctx context.Context, tx Tx, cardID int64) (*models.Card, error) {
	sqlTx, err := sqlTxOf(tx)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT ` + cardColumns + `
		FROM bank.cards
		WHERE id = $1
		FOR UPDATE`
	card, err := scanCard(sqlTx.QueryRowContext(ctx, query, cardID))
	if err != nil {
		return nil, mapPQError(err)
	}
	return card, nil
}

// UpdateCardBalance persists the card's balance through the transaction
// that holds its row lock
func (s *Store) UpdateCardBalance(ctx context.Context, tx Tx, card *models.Card) error {
	sqlTx, err := sqlTxOf(tx)
	if err != nil {
		return err
	}
	query := `
		UPDATE bank.cards
		SET balance = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	if _, err := sqlTx.ExecContext(ctx, query, card.ID, card.Balance); err != nil {
		return fmt.Errorf("failed to update card balance: %w", err)
	}
	return nil
}

// UpdateCard persists holder, expiry date and status changes through the
// transaction that holds the card's row lock
func (s *Store) UpdateCard(ctx context.Context, tx Tx, card *models.Card) error {
	sqlTx, err := sqlTxOf(tx)
	if err != nil {
		return err
	}
	query := `
		UPDATE bank.cards
		SET card_holder = $2, expiry_date = $3, status = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1`
	if _, err := sqlTx.ExecContext(ctx, query, card.ID, card.Holder, card.ExpiryDate, card.Status); err != nil {
		return fmt.Errorf("failed to update card: %w", err)
	}
	return nil
}

// DeleteCard removes a card through the transaction that holds its row lock
func (s *Store) DeleteCard(ctx context.Context, tx Tx, cardID int64) error {
	sqlTx, err := sqlTxOf(tx)
	if err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM bank.cards WHERE id = $1`, cardID); err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	return nil
}

// FindCardByID retrieves a card without locking it
func (s *Store) FindCardByID(ctx context.Context, cardID int64) (*models.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM bank.cards
		WHERE id = $1`
	return scanCard(s.db.QueryRowContext(ctx, query, cardID))
}

// CardNumberExists reports whether a card with the given number digest
// already exists
func (s *Store) CardNumberExists(ctx context.Context, numberHMAC string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM bank.cards WHERE card_number_hmac = $1)`
	if err := s.db.QueryRowContext(ctx, query, numberHMAC).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check card number: %w", err)
	}
	return exists, nil
}

// ListCards retrieves cards filtered by owner and/or status, newest first.
// Zero userID and empty status mean "no filter".
func (s *Store) ListCards(ctx context.Context, userID int64, status models.CardStatus, limit, offset int) ([]*models.Card, error) {
	query := `
		SELECT ` + cardColumns + `
		FROM bank.cards
		WHERE ($1 = 0 OR user_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`
	rows, err := s.db.QueryContext(ctx, query, userID, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.Card
	for rows.Next() {
		card := &models.Card{}
		if err := rows.Scan(&card.ID, &card.UserID, &card.NumberEncrypted, &card.NumberHMAC, &card.Holder,
			&card.ExpiryDate, &card.Status, &card.Balance, &card.CreatedAt, &card.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// ListExpiredActiveCardIDs returns ids of ACTIVE cards whose expiry date is
// strictly before the given day. Used by the expiry sweep job.
func (s *Store) ListExpiredActiveCardIDs(ctx context.Context, before string) ([]int64, error) {
	query := `
		SELECT id
		FROM bank.cards
		WHERE status = $1 AND expiry_date < $2
		ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, models.CardStatusActive, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired cards: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan card id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
