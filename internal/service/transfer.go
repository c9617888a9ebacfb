package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dan9191/card-transfer-service/internal/models"
	"github.com/Dan9191/card-transfer-service/internal/repository"
	"github.com/Dan9191/card-transfer-service/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// transferCardAccess is the slice of the card store the engine needs:
// locked handles for the money movement and plain lookups for masking.
type transferCardAccess interface {
	CardLedger
	FindCardByID(ctx context.Context, cardID int64) (*models.Card, error)
}

// TransferService moves funds between cards. It holds no per-request state
// and is safe for concurrent use.
type TransferService struct {
	tx        TxRunner
	cards     transferCardAccess
	transfers TransferStore
	failures  *TransferFailService
	key       []byte
	log       *logrus.Logger
}

// NewTransferService initializes the transfer engine
func NewTransferService(tx TxRunner, cards transferCardAccess, transfers TransferStore,
	failures *TransferFailService, encryptionKey []byte, log *logrus.Logger) *TransferService {
	return &TransferService{
		tx:        tx,
		cards:     cards,
		transfers: transfers,
		failures:  failures,
		key:       encryptionKey,
		log:       log,
	}
}

// TransferRequest carries the parameters of a transfer attempt
type TransferRequest struct {
	FromCardID  int64           `json:"from_card_id"`
	ToCardID    int64           `json:"to_card_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// ExecuteTransfer atomically debits the source card and credits the
// destination card. The balance mutations and the transfer record commit as
// one unit; on a commit failure the attempt is recorded as FAILED in an
// independent transaction before the error is returned.
func (s *TransferService) ExecuteTransfer(ctx context.Context, req TransferRequest, userID int64) (*models.TransferResponse, error) {
	s.log.Infof("Executing transfer from card %d to card %d for user %d",
		req.FromCardID, req.ToCardID, userID)

	if req.FromCardID == req.ToCardID {
		return nil, fmt.Errorf("%w: cannot transfer to the same card", ErrInvalidTransfer)
	}
	if req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be greater than zero", ErrInvalidTransfer)
	}

	var inFlight *models.Transfer
	var resp *models.TransferResponse

	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		fromCard, toCard, err := s.lockCards(ctx, tx, req.FromCardID, req.ToCardID)
		if err != nil {
			return err
		}
		if err := validateCards(fromCard, toCard, req.Amount, userID); err != nil {
			return err
		}

		transfer := &models.Transfer{
			FromCardID:  fromCard.ID,
			ToCardID:    toCard.ID,
			Amount:      req.Amount,
			Status:      models.TransferStatusPending,
			Description: req.Description,
			UserID:      userID,
		}
		inFlight = transfer

		fromCard.Balance = fromCard.Balance.Sub(req.Amount)
		toCard.Balance = toCard.Balance.Add(req.Amount)

		if err := s.cards.UpdateCardBalance(ctx, tx, fromCard); err != nil {
			return err
		}
		if err := s.cards.UpdateCardBalance(ctx, tx, toCard); err != nil {
			return err
		}

		transfer.Status = models.TransferStatusCompleted
		if err := s.transfers.CreateTransfer(ctx, tx, transfer); err != nil {
			return err
		}

		resp = s.mapToResponse(transfer, s.maskedNumber(fromCard), s.maskedNumber(toCard))
		return nil
	})
	if err != nil {
		if inFlight == nil {
			// Failed before the transfer was constructed: validation or
			// lock acquisition, nothing to record.
			return nil, wrapConflict(err)
		}
		s.log.Errorf("Transfer from card %d to card %d failed: %v", req.FromCardID, req.ToCardID, err)
		s.failures.LogFailure(ctx, inFlight, err.Error())
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}

	s.log.Infof("Transfer completed successfully: %d", resp.ID)
	return resp, nil
}

// lockCards acquires row locks on both cards in ascending card-id order
// regardless of transfer direction, so two opposite-direction transfers
// between the same pair of cards cannot deadlock on each other.
func (s *TransferService) lockCards(ctx context.Context, tx repository.Tx, fromID, toID int64) (*models.Card, *models.Card, error) {
	firstID, secondID := fromID, toID
	if secondID < firstID {
		firstID, secondID = secondID, firstID
	}

	first, err := s.lockCard(ctx, tx, firstID)
	if err != nil {
		return nil, nil, err
	}
	second, err := s.lockCard(ctx, tx, secondID)
	if err != nil {
		return nil, nil, err
	}

	if first.ID == fromID {
		return first, second, nil
	}
	return second, first, nil
}

func (s *TransferService) lockCard(ctx context.Context, tx repository.Tx, cardID int64) (*models.Card, error) {
	card, err := s.cards.LockCardForUpdate(ctx, tx, cardID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: card %d", ErrCardNotFound, cardID)
	}
	if err != nil {
		return nil, err
	}
	return card, nil
}

func validateCards(fromCard, toCard *models.Card, amount decimal.Decimal, userID int64) error {
	if fromCard.UserID != userID || toCard.UserID != userID {
		return fmt.Errorf("%w: you can only transfer between your own cards", ErrUnauthorized)
	}
	if !fromCard.IsUsable() {
		return fmt.Errorf("%w: source card %d is not active, status: %s", ErrCardNotActive, fromCard.ID, fromCard.Status)
	}
	if !toCard.IsUsable() {
		return fmt.Errorf("%w: destination card %d is not active, status: %s", ErrCardNotActive, toCard.ID, toCard.Status)
	}
	if fromCard.Balance.LessThan(amount) {
		return fmt.Errorf("%w: available: %s, required: %s", ErrInsufficientBalance, fromCard.Balance, amount)
	}
	return nil
}

// GetUserTransfers lists the initiator's transfers, newest first
func (s *TransferService) GetUserTransfers(ctx context.Context, userID int64, page Page) ([]*models.TransferResponse, error) {
	limit, offset := page.limitOffset()
	transfers, err := s.transfers.ListTransfersByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.mapMany(ctx, transfers), nil
}

// GetCardTransfers lists the initiator's transfers touching the given card,
// newest first
func (s *TransferService) GetCardTransfers(ctx context.Context, cardID, userID int64, page Page) ([]*models.TransferResponse, error) {
	limit, offset := page.limitOffset()
	transfers, err := s.transfers.ListTransfersByCard(ctx, cardID, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.mapMany(ctx, transfers), nil
}

// GetTransferByID fetches one transfer, rejecting initiators that do not
// own it
func (s *TransferService) GetTransferByID(ctx context.Context, transferID, userID int64) (*models.TransferResponse, error) {
	transfer, err := s.transfers.GetTransferByID(ctx, transferID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrTransferNotFound, transferID)
	}
	if err != nil {
		return nil, err
	}
	if transfer.UserID != userID {
		return nil, fmt.Errorf("%w: you don't have access to this transfer", ErrUnauthorized)
	}
	return s.mapMany(ctx, []*models.Transfer{transfer})[0], nil
}

func (s *TransferService) mapMany(ctx context.Context, transfers []*models.Transfer) []*models.TransferResponse {
	masked := make(map[int64]string)
	maskOf := func(cardID int64) string {
		if m, ok := masked[cardID]; ok {
			return m
		}
		m := utils.MaskCardNumber("")
		if card, err := s.cards.FindCardByID(ctx, cardID); err == nil {
			m = s.maskedNumber(card)
		}
		masked[cardID] = m
		return m
	}

	responses := make([]*models.TransferResponse, 0, len(transfers))
	for _, transfer := range transfers {
		responses = append(responses, s.mapToResponse(transfer, maskOf(transfer.FromCardID), maskOf(transfer.ToCardID)))
	}
	return responses
}

// maskedNumber decrypts the card number and masks all but the last digits.
// Unmasked numbers never leave this boundary; on a decryption failure the
// fully-masked placeholder is returned.
func (s *TransferService) maskedNumber(card *models.Card) string {
	number, err := utils.Decrypt(card.NumberEncrypted, s.key)
	if err != nil {
		s.log.Errorf("Failed to decrypt number of card %d: %v", card.ID, err)
		return utils.MaskCardNumber("")
	}
	return utils.MaskCardNumber(number)
}

func (s *TransferService) mapToResponse(transfer *models.Transfer, fromMasked, toMasked string) *models.TransferResponse {
	return &models.TransferResponse{
		ID:             transfer.ID,
		FromCardID:     transfer.FromCardID,
		FromCardMasked: fromMasked,
		ToCardID:       transfer.ToCardID,
		ToCardMasked:   toMasked,
		Amount:         transfer.Amount,
		Status:         string(transfer.Status),
		Description:    transfer.Description,
		UserID:         transfer.UserID,
		CreatedAt:      transfer.CreatedAt,
	}
}

func wrapConflict(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
	}
	return err
}
