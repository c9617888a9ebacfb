package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/card-transfer-service/internal/models"
	"github.com/Dan9191/card-transfer-service/internal/repository"
	"github.com/Dan9191/card-transfer-service/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// StatusNotifier informs a card holder about a status change. Notification
// is best-effort; a nil notifier disables it.
type StatusNotifier interface {
	NotifyCardStatusChanged(to, username, cardMasked string, newStatus models.CardStatus, reason string) error
}

// CardService handles card lifecycle: creation, updates, status changes and
// deletion. Every mutation commits atomically with its audit event.
type CardService struct {
	tx         TxRunner
	cards      CardStore
	users      UserStore
	events     *CardEventService
	notifier   StatusNotifier
	key        []byte
	hmacSecret string
	log        *logrus.Logger
}

// NewCardService initializes a new card service
func NewCardService(tx TxRunner, cards CardStore, users UserStore, events *CardEventService,
	notifier StatusNotifier, encryptionKey []byte, hmacSecret string, log *logrus.Logger) *CardService {
	return &CardService{
		tx:         tx,
		cards:      cards,
		users:      users,
		events:     events,
		notifier:   notifier,
		key:        encryptionKey,
		hmacSecret: hmacSecret,
		log:        log,
	}
}

// CardCreateRequest carries the parameters for creating a card
type CardCreateRequest struct {
	CardNumber     string          `json:"card_number"`
	Holder         string          `json:"card_holder"`
	ExpiryDate     string          `json:"expiry_date"` // Format: YYYY-MM-DD
	UserID         int64           `json:"user_id"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
}

// CardUpdateRequest carries optional holder and expiry date changes
type CardUpdateRequest struct {
	Holder     string `json:"card_holder"`
	ExpiryDate string `json:"expiry_date"` // Format: YYYY-MM-DD
}

// CreateCard creates a new card and records a CARD_CREATED event in the
// same transaction
func (s *CardService) CreateCard(ctx context.Context, req CardCreateRequest, actorID int64) (*models.CardResponse, error) {
	s.log.Infof("Creating new card for user: %d", req.UserID)

	if !utils.IsValidCardNumber(req.CardNumber) {
		return nil, fmt.Errorf("%w: invalid card number", ErrInvalidCard)
	}

	digest := utils.CardNumberHMAC(req.CardNumber, s.hmacSecret)
	exists, err := s.cards.CardNumberExists(ctx, digest)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: card number already exists", ErrDuplicateResource)
	}

	if _, err := s.users.FindUserByID(ctx, req.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUserNotFound, req.UserID)
		}
		return nil, err
	}

	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid expiry date", ErrInvalidCard)
	}

	encrypted, err := utils.Encrypt(req.CardNumber, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt card number: %w", err)
	}

	card := &models.Card{
		UserID:          req.UserID,
		NumberEncrypted: encrypted,
		NumberHMAC:      digest,
		Holder:          req.Holder,
		ExpiryDate:      expiry,
		Status:          models.CardStatusActive,
		Balance:         req.InitialBalance,
	}
	if card.Balance.Sign() < 0 {
		return nil, fmt.Errorf("%w: initial balance cannot be negative", ErrInvalidCard)
	}
	if card.IsExpired() {
		return nil, fmt.Errorf("%w: card expiry date is in the past", ErrInvalidCard)
	}

	err = s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		if err := s.cards.CreateCard(ctx, tx, card); err != nil {
			return err
		}
		return s.events.RecordCardCreated(ctx, tx, card, actorID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Card created successfully: %d", card.ID)
	return s.mapToResponse(card), nil
}

// UpdateCard changes the holder name and/or expiry date of a card
func (s *CardService) UpdateCard(ctx context.Context, cardID int64, req CardUpdateRequest, actorID int64, actorRole string) (*models.CardResponse, error) {
	s.log.Infof("Updating card: %d by user: %d", cardID, actorID)

	var card *models.Card
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		card, err = s.lockCardWithAuth(ctx, tx, cardID, actorID, actorRole)
		if err != nil {
			return err
		}

		if req.Holder != "" {
			card.Holder = req.Holder
		}
		if req.ExpiryDate != "" {
			expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
			if err != nil {
				return fmt.Errorf("%w: invalid expiry date", ErrInvalidCard)
			}
			card.ExpiryDate = expiry
			if card.IsExpired() {
				return fmt.Errorf("%w: card expiry date is in the past", ErrInvalidCard)
			}
		}

		return s.cards.UpdateCard(ctx, tx, card)
	})
	if err != nil {
		return nil, wrapConflict(err)
	}

	s.log.Infof("Card updated successfully: %d", cardID)
	return s.mapToResponse(card), nil
}

// UpdateCardStatus changes the card status and records a
// CARD_STATUS_CHANGED event in the same transaction
func (s *CardService) UpdateCardStatus(ctx context.Context, cardID int64, status, reason string, actorID int64, actorRole string) (*models.CardResponse, error) {
	s.log.Infof("Updating card status: %d to %s", cardID, status)

	if !models.ValidCardStatus(status) {
		return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidCard, status)
	}
	newStatus := models.CardStatus(status)

	var card *models.Card
	var oldStatus models.CardStatus
	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		var err error
		card, err = s.lockCardWithAuth(ctx, tx, cardID, actorID, actorRole)
		if err != nil {
			return err
		}

		oldStatus = card.Status
		card.Status = newStatus
		if err := s.cards.UpdateCard(ctx, tx, card); err != nil {
			return err
		}
		return s.events.RecordCardStatusChanged(ctx, tx, cardID, oldStatus, newStatus, actorID, reason)
	})
	if err != nil {
		return nil, wrapConflict(err)
	}

	s.log.Infof("Card status updated: %d from %s to %s", cardID, oldStatus, newStatus)
	s.notifyStatusChange(ctx, card, newStatus, reason)
	return s.mapToResponse(card), nil
}

// BlockCard is the self-service block operation for a card owner
func (s *CardService) BlockCard(ctx context.Context, cardID, userID int64) (*models.CardResponse, error) {
	return s.UpdateCardStatus(ctx, cardID, string(models.CardStatusBlocked), "User requested block", userID, models.RoleUser)
}

// DeleteCard removes a card, recording a CARD_DELETED event in the same
// transaction
func (s *CardService) DeleteCard(ctx context.Context, cardID, actorID int64, actorRole string) error {
	s.log.Infof("Deleting card: %d by user: %d", cardID, actorID)

	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := s.lockCardWithAuth(ctx, tx, cardID, actorID, actorRole); err != nil {
			return err
		}
		if err := s.events.RecordCardDeleted(ctx, tx, cardID, actorID); err != nil {
			return err
		}
		return s.cards.DeleteCard(ctx, tx, cardID)
	})
	if err != nil {
		return wrapConflict(err)
	}

	s.log.Infof("Card deleted: %d", cardID)
	return nil
}

// GetCard fetches one card, rejecting non-admin actors that do not own it
func (s *CardService) GetCard(ctx context.Context, cardID, actorID int64, actorRole string) (*models.CardResponse, error) {
	card, err := s.cards.FindCardByID(ctx, cardID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrCardNotFound, cardID)
	}
	if err != nil {
		return nil, err
	}
	if actorRole != models.RoleAdmin && card.UserID != actorID {
		return nil, fmt.Errorf("%w: you don't have access to this card", ErrUnauthorized)
	}
	return s.mapToResponse(card), nil
}

// ListUserCards lists the cards owned by a user, newest first. An empty
// status means "any status".
func (s *CardService) ListUserCards(ctx context.Context, userID int64, status string, page Page) ([]*models.CardResponse, error) {
	return s.listCards(ctx, userID, status, page)
}

// ListAllCards lists all cards, newest first, optionally filtered by status
func (s *CardService) ListAllCards(ctx context.Context, status string, page Page) ([]*models.CardResponse, error) {
	return s.listCards(ctx, 0, status, page)
}

func (s *CardService) listCards(ctx context.Context, userID int64, status string, page Page) ([]*models.CardResponse, error) {
	if status != "" && !models.ValidCardStatus(status) {
		return nil, fmt.Errorf("%w: invalid status %q", ErrInvalidCard, status)
	}
	limit, offset := page.limitOffset()
	cards, err := s.cards.ListCards(ctx, userID, models.CardStatus(status), limit, offset)
	if err != nil {
		return nil, err
	}
	responses := make([]*models.CardResponse, 0, len(cards))
	for _, card := range cards {
		responses = append(responses, s.mapToResponse(card))
	}
	return responses, nil
}

// ExpireOverdueCards marks ACTIVE cards whose expiry date has passed as
// EXPIRED, one transaction per card, each with its STATUS_CHANGED event.
// Acting user id 0 denotes the system. Returns the number of cards expired.
func (s *CardService) ExpireOverdueCards(ctx context.Context) (int, error) {
	today := time.Now().UTC().Format("2006-01-02")
	ids, err := s.cards.ListExpiredActiveCardIDs(ctx, today)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		var card *models.Card
		err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
			var err error
			card, err = s.cards.LockCardForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			// Re-check under lock; the card may have been blocked or
			// deleted since the scan.
			if card.Status != models.CardStatusActive || !card.IsExpired() {
				card = nil
				return nil
			}
			card.Status = models.CardStatusExpired
			if err := s.cards.UpdateCard(ctx, tx, card); err != nil {
				return err
			}
			return s.events.RecordCardStatusChanged(ctx, tx, id,
				models.CardStatusActive, models.CardStatusExpired, 0, "Card expiry date passed")
		})
		if err != nil {
			s.log.Errorf("Failed to expire card %d: %v", id, err)
			continue
		}
		if card == nil {
			continue
		}
		expired++
		s.notifyStatusChange(ctx, card, models.CardStatusExpired, "Card expiry date passed")
	}

	if expired > 0 {
		s.log.Infof("Expiry sweep marked %d cards EXPIRED", expired)
	}
	return expired, nil
}

// lockCardWithAuth locks the card row and checks the actor may mutate it.
// Admins may mutate any card; users only their own.
func (s *CardService) lockCardWithAuth(ctx context.Context, tx repository.Tx, cardID, actorID int64, actorRole string) (*models.Card, error) {
	card, err := s.cards.LockCardForUpdate(ctx, tx, cardID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrCardNotFound, cardID)
	}
	if err != nil {
		return nil, err
	}
	if actorRole != models.RoleAdmin && card.UserID != actorID {
		return nil, fmt.Errorf("%w: you don't have access to this card", ErrUnauthorized)
	}
	return card, nil
}

// notifyStatusChange emails the card holder about a block or expiry.
// Best-effort: failures are logged, never propagated.
func (s *CardService) notifyStatusChange(ctx context.Context, card *models.Card, newStatus models.CardStatus, reason string) {
	if s.notifier == nil || card == nil {
		return
	}
	if newStatus != models.CardStatusBlocked && newStatus != models.CardStatusExpired {
		return
	}
	owner, err := s.users.FindUserByID(ctx, card.UserID)
	if err != nil {
		s.log.Errorf("Failed to load owner of card %d for notification: %v", card.ID, err)
		return
	}
	if err := s.notifier.NotifyCardStatusChanged(owner.Email, owner.Username,
		s.maskedNumber(card), newStatus, reason); err != nil {
		s.log.Errorf("Failed to notify user %d about card %d status change: %v", owner.ID, card.ID, err)
	}
}

func (s *CardService) maskedNumber(card *models.Card) string {
	number, err := utils.Decrypt(card.NumberEncrypted, s.key)
	if err != nil {
		s.log.Errorf("Failed to decrypt number of card %d: %v", card.ID, err)
		return utils.MaskCardNumber("")
	}
	return utils.MaskCardNumber(number)
}

func (s *CardService) mapToResponse(card *models.Card) *models.CardResponse {
	return &models.CardResponse{
		ID:           card.ID,
		NumberMasked: s.maskedNumber(card),
		Holder:       card.Holder,
		ExpiryDate:   card.ExpiryDate.Format("2006-01-02"),
		Status:       string(card.Status),
		Balance:      card.Balance,
		UserID:       card.UserID,
		CreatedAt:    card.CreatedAt,
		UpdatedAt:    card.UpdatedAt,
	}
}
