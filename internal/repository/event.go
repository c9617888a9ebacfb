package repository

import (
	"context"
	"fmt"

	"github.com/Dan9191/card-transfer-service/internal/models"
)

// CreateCardEvent appends an audit event through the given transaction so
// that it commits or rolls back together with the state change it
// documents. Events are never updated or deleted.
func (s *Store) CreateCardEvent(ctx context.Context, tx Tx, event *models.CardEvent) error {
	sqlTx, err := sqlTxOf(tx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO bank.card_events (aggregate_id, event_type, event_data, user_id, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err = sqlTx.QueryRowContext(ctx, query, event.AggregateID, event.EventType,
		event.EventData, event.UserID, event.Timestamp).
		Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to create card event: %w", err)
	}
	return nil
}

// ListCardEvents retrieves the audit trail for a card, oldest first
func (s *Store) ListCardEvents(ctx context.Context, aggregateID int64, limit, offset int) ([]*models.CardEvent, error) {
	query := `
		SELECT id, aggregate_id, event_type, event_data, user_id, timestamp
		FROM bank.card_events
		WHERE aggregate_id = $1
		ORDER BY timestamp, id
		LIMIT $2 OFFSET $3`
	rows, err := s.db.QueryContext(ctx, query, aggregateID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list card events: %w", err)
	}
	defer rows.Close()

	var events []*models.CardEvent
	for rows.Next() {
		event := &models.CardEvent{}
		if err := rows.Scan(&event.ID, &event.AggregateID, &event.EventType,
			&event.EventData, &event.UserID, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan card event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
