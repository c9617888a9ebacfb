package service

import (
	"context"

	"github.com/Dan9191/card-transfer-service/internal/models"
	"github.com/Dan9191/card-transfer-service/internal/repository"
)

// The services depend on narrow store contracts rather than the concrete
// Postgres store so the money-movement logic can be exercised against an
// in-memory double. *repository.Store satisfies all of them.

// TxRunner opens a transaction, runs fn inside it and guarantees
// commit-or-rollback on every exit path.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error
}

// CardLedger is the authoritative store of card balances. A card is
// mutated only through a transaction that holds its row lock.
type CardLedger interface {
	LockCardForUpdate(ctx context.Context, tx repository.Tx, cardID int64) (*models.Card, error)
	UpdateCardBalance(ctx context.Context, tx repository.Tx, card *models.Card) error
}

// TransferStore persists transfer records and serves the read side
type TransferStore interface {
	CreateTransfer(ctx context.Context, tx repository.Tx, transfer *models.Transfer) error
	GetTransferByID(ctx context.Context, transferID int64) (*models.Transfer, error)
	ListTransfersByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.Transfer, error)
	ListTransfersByCard(ctx context.Context, cardID, userID int64, limit, offset int) ([]*models.Transfer, error)
}

// EventStore appends immutable card audit events
type EventStore interface {
	CreateCardEvent(ctx context.Context, tx repository.Tx, event *models.CardEvent) error
	ListCardEvents(ctx context.Context, aggregateID int64, limit, offset int) ([]*models.CardEvent, error)
}

// CardStore covers card lifecycle persistence beyond balance movement
type CardStore interface {
	CardLedger
	CreateCard(ctx context.Context, tx repository.Tx, card *models.Card) error
	UpdateCard(ctx context.Context, tx repository.Tx, card *models.Card) error
	DeleteCard(ctx context.Context, tx repository.Tx, cardID int64) error
	FindCardByID(ctx context.Context, cardID int64) (*models.Card, error)
	CardNumberExists(ctx context.Context, numberEncrypted string) (bool, error)
	ListCards(ctx context.Context, userID int64, status models.CardStatus, limit, offset int) ([]*models.Card, error)
	ListExpiredActiveCardIDs(ctx context.Context, before string) ([]int64, error)
}

// UserStore covers user persistence
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, userID int64) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, userID int64) error
}

// Page bounds a list query. Page numbers are 1-based.
type Page struct {
	Number int
	Size   int
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func (p Page) limitOffset() (int, int) {
	size := p.Size
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	number := p.Number
	if number <= 0 {
		number = 1
	}
	return size, (number - 1) * size
}
