package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Dan9191/card-transfer-service/internal/models"
	"github.com/Dan9191/card-transfer-service/internal/repository"
)

// memStore is an in-memory stand-in for the Postgres store. It implements
// the same locking discipline: LockCardForUpdate takes a per-card mutex
// that is held until the transaction commits or rolls back, and writes
// stage inside the transaction and only become visible on commit.
type memStore struct {
	mu        sync.Mutex
	cards     map[int64]*models.Card
	transfers map[int64]*models.Transfer
	events    []*models.CardEvent
	users     map[int64]*models.User

	nextCardID     int64
	nextTransferID int64
	nextEventID    int64
	nextUserID     int64

	cardLocks map[int64]*sync.Mutex

	// Failure injection hooks. A nil hook means the call succeeds.
	updateBalanceErr  func(card *models.Card) error
	createTransferErr func(ctx context.Context, transfer *models.Transfer) error
	commitErr         func() error
}

func newMemStore() *memStore {
	return &memStore{
		cards:     make(map[int64]*models.Card),
		transfers: make(map[int64]*models.Transfer),
		users:     make(map[int64]*models.User),
		cardLocks: make(map[int64]*sync.Mutex),
	}
}

type memTx struct {
	s        *memStore
	staged   []func()
	released []int64
	done     bool
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("tx already finished")
	}
	t.done = true
	if t.s.commitErr != nil {
		if err := t.s.commitErr(); err != nil {
			t.release()
			return err
		}
	}
	t.s.mu.Lock()
	for _, apply := range t.staged {
		apply()
	}
	t.s.mu.Unlock()
	t.release()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.release()
	return nil
}

func (t *memTx) release() {
	t.s.mu.Lock()
	locks := make([]*sync.Mutex, 0, len(t.released))
	for _, id := range t.released {
		locks = append(locks, t.s.cardLocks[id])
	}
	t.s.mu.Unlock()
	for _, l := range locks {
		l.Unlock()
	}
	t.released = nil
}

// WithinTx mirrors the real store: rollback on error, commit otherwise.
func (s *memStore) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *memStore) lockOf(cardID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.cardLocks[cardID]
	if !ok {
		l = &sync.Mutex{}
		s.cardLocks[cardID] = l
	}
	return l
}

func (s *memStore) LockCardForUpdate(ctx context.Context, tx repository.Tx, cardID int64) (*models.Card, error) {
	t := tx.(*memTx)
	s.mu.Lock()
	_, exists := s.cards[cardID]
	s.mu.Unlock()
	if !exists {
		return nil, repository.ErrNotFound
	}

	s.lockOf(cardID).Lock()
	t.released = append(t.released, cardID)

	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[cardID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *card
	return &copied, nil
}

func (s *memStore) UpdateCardBalance(ctx context.Context, tx repository.Tx, card *models.Card) error {
	t := tx.(*memTx)
	if s.updateBalanceErr != nil {
		if err := s.updateBalanceErr(card); err != nil {
			return err
		}
	}
	copied := *card
	t.staged = append(t.staged, func() {
		if existing, ok := s.cards[copied.ID]; ok {
			existing.Balance = copied.Balance
			existing.UpdatedAt = time.Now().UTC()
		}
	})
	return nil
}

func (s *memStore) CreateCard(ctx context.Context, tx repository.Tx, card *models.Card) error {
	t := tx.(*memTx)
	s.mu.Lock()
	s.nextCardID++
	card.ID = s.nextCardID
	s.mu.Unlock()
	card.CreatedAt = time.Now().UTC()
	card.UpdatedAt = card.CreatedAt
	copied := *card
	t.staged = append(t.staged, func() {
		s.cards[copied.ID] = &copied
	})
	return nil
}

func (s *memStore) UpdateCard(ctx context.Context, tx repository.Tx, card *models.Card) error {
	t := tx.(*memTx)
	copied := *card
	t.staged = append(t.staged, func() {
		if existing, ok := s.cards[copied.ID]; ok {
			existing.Holder = copied.Holder
			existing.ExpiryDate = copied.ExpiryDate
			existing.Status = copied.Status
			existing.UpdatedAt = time.Now().UTC()
		}
	})
	return nil
}

func (s *memStore) DeleteCard(ctx context.Context, tx repository.Tx, cardID int64) error {
	t := tx.(*memTx)
	t.staged = append(t.staged, func() {
		delete(s.cards, cardID)
	})
	return nil
}

func (s *memStore) FindCardByID(ctx context.Context, cardID int64) (*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	card, ok := s.cards[cardID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *card
	return &copied, nil
}

func (s *memStore) CardNumberExists(ctx context.Context, numberHMAC string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, card := range s.cards {
		if card.NumberHMAC == numberHMAC {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ListCards(ctx context.Context, userID int64, status models.CardStatus, limit, offset int) ([]*models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]*models.Card, 0)
	for _, card := range s.cards {
		if userID != 0 && card.UserID != userID {
			continue
		}
		if status != "" && card.Status != status {
			continue
		}
		copied := *card
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return pageOf(matched, limit, offset), nil
}

func (s *memStore) ListExpiredActiveCardIDs(ctx context.Context, before string) ([]int64, error) {
	day, err := time.Parse("2006-01-02", before)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0)
	for _, card := range s.cards {
		if card.Status == models.CardStatusActive && card.ExpiryDate.Before(day) {
			ids = append(ids, card.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memStore) CreateTransfer(ctx context.Context, tx repository.Tx, transfer *models.Transfer) error {
	t := tx.(*memTx)
	if s.createTransferErr != nil {
		if err := s.createTransferErr(ctx, transfer); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.nextTransferID++
	transfer.ID = s.nextTransferID
	s.mu.Unlock()
	transfer.CreatedAt = time.Now().UTC()
	copied := *transfer
	t.staged = append(t.staged, func() {
		s.transfers[copied.ID] = &copied
	})
	return nil
}

func (s *memStore) GetTransferByID(ctx context.Context, transferID int64) (*models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	transfer, ok := s.transfers[transferID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *transfer
	return &copied, nil
}

func (s *memStore) ListTransfersByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]*models.Transfer, 0)
	for _, transfer := range s.transfers {
		if transfer.UserID != userID {
			continue
		}
		copied := *transfer
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return pageOf(matched, limit, offset), nil
}

func (s *memStore) ListTransfersByCard(ctx context.Context, cardID, userID int64, limit, offset int) ([]*models.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]*models.Transfer, 0)
	for _, transfer := range s.transfers {
		if transfer.UserID != userID {
			continue
		}
		if transfer.FromCardID != cardID && transfer.ToCardID != cardID {
			continue
		}
		copied := *transfer
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return pageOf(matched, limit, offset), nil
}

func (s *memStore) CreateCardEvent(ctx context.Context, tx repository.Tx, event *models.CardEvent) error {
	t := tx.(*memTx)
	s.mu.Lock()
	s.nextEventID++
	event.ID = s.nextEventID
	s.mu.Unlock()
	copied := *event
	t.staged = append(t.staged, func() {
		s.events = append(s.events, &copied)
	})
	return nil
}

func (s *memStore) ListCardEvents(ctx context.Context, aggregateID int64, limit, offset int) ([]*models.CardEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]*models.CardEvent, 0)
	for _, event := range s.events {
		if event.AggregateID != aggregateID {
			continue
		}
		copied := *event
		matched = append(matched, &copied)
	}
	return pageOf(matched, limit, offset), nil
}

func (s *memStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	user.ID = s.nextUserID
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	s.users[copied.ID] = &copied
	return nil
}

func (s *memStore) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *memStore) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) EmailExists(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]*models.User, 0, len(s.users))
	for _, user := range s.users {
		copied := *user
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return pageOf(matched, limit, offset), nil
}

func (s *memStore) UpdateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *user
	copied.UpdatedAt = time.Now().UTC()
	s.users[copied.ID] = &copied
	user.UpdatedAt = copied.UpdatedAt
	return nil
}

func (s *memStore) DeleteUser(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.users, userID)
	return nil
}

func pageOf[T any](items []*T, limit, offset int) []*T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}
