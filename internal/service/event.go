package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dan9191/card-transfer-service/internal/models"
	"github.com/Dan9191/card-transfer-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// CardEventService appends immutable audit events for card lifecycle
// changes. Every record call goes through the caller's transaction so the
// event commits or rolls back together with the state change it documents.
type CardEventService struct {
	events EventStore
	log    *logrus.Logger
}

// NewCardEventService initializes the event recorder
func NewCardEventService(events EventStore, log *logrus.Logger) *CardEventService {
	return &CardEventService{events: events, log: log}
}

// RecordCardCreated appends a CARD_CREATED event for the card
func (s *CardEventService) RecordCardCreated(ctx context.Context, tx repository.Tx, card *models.Card, actingUserID int64) error {
	payload := map[string]interface{}{
		"cardId":     card.ID,
		"cardHolder": card.Holder,
		"status":     card.Status,
		"balance":    card.Balance,
		"userId":     card.UserID,
	}
	return s.record(ctx, tx, card.ID, models.EventCardCreated, payload, actingUserID)
}

// RecordCardStatusChanged appends a CARD_STATUS_CHANGED event
func (s *CardEventService) RecordCardStatusChanged(ctx context.Context, tx repository.Tx, cardID int64,
	oldStatus, newStatus models.CardStatus, actingUserID int64, reason string) error {
	payload := map[string]interface{}{
		"cardId":    cardID,
		"oldStatus": oldStatus,
		"newStatus": newStatus,
		"reason":    reason,
	}
	return s.record(ctx, tx, cardID, models.EventCardStatusChanged, payload, actingUserID)
}

// RecordCardDeleted appends a CARD_DELETED event
func (s *CardEventService) RecordCardDeleted(ctx context.Context, tx repository.Tx, cardID, actingUserID int64) error {
	payload := map[string]interface{}{
		"cardId":    cardID,
		"deletedAt": time.Now().UTC(),
	}
	return s.record(ctx, tx, cardID, models.EventCardDeleted, payload, actingUserID)
}

// GetCardEvents returns the audit trail for a card, oldest first
func (s *CardEventService) GetCardEvents(ctx context.Context, cardID int64, page Page) ([]*models.CardEvent, error) {
	limit, offset := page.limitOffset()
	return s.events.ListCardEvents(ctx, cardID, limit, offset)
}

func (s *CardEventService) record(ctx context.Context, tx repository.Tx, aggregateID int64,
	eventType string, payload map[string]interface{}, actingUserID int64) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize event data: %w", err)
	}

	event := &models.CardEvent{
		AggregateID: aggregateID,
		EventType:   eventType,
		EventData:   string(data),
		UserID:      actingUserID,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.events.CreateCardEvent(ctx, tx, event); err != nil {
		return err
	}

	s.log.Infof("Event recorded: %s for aggregate: %d", eventType, aggregateID)
	return nil
}
