package service

import (
	"context"

	"github.com/Dan9191/card-transfer-service/internal/models"
	"github.com/Dan9191/card-transfer-service/internal/repository"
	"github.com/sirupsen/logrus"
)

// TransferFailService records failed transfer attempts. It runs in a
// transaction scope of its own so the FAILED audit record survives the
// rollback of the transfer transaction that triggered it.
type TransferFailService struct {
	tx        TxRunner
	transfers TransferStore
	log       *logrus.Logger
}

// NewTransferFailService initializes the failure recorder
func NewTransferFailService(tx TxRunner, transfers TransferStore, log *logrus.Logger) *TransferFailService {
	return &TransferFailService{tx: tx, transfers: transfers, log: log}
}

// LogFailure marks the in-flight transfer FAILED, appends the failure
// message to its description and persists it in a new, independent
// transaction. This path runs from inside another failure's handling and
// must never mask the original error, so its own persistence errors are
// swallowed and only logged.
func (s *TransferFailService) LogFailure(ctx context.Context, transfer *models.Transfer, message string) {
	transfer.Status = models.TransferStatusFailed
	transfer.Description = transfer.Description + " | failed: " + message

	// The caller's transaction may already be doomed and its context
	// cancelled; the audit write must still go through.
	ctx = context.WithoutCancel(ctx)

	err := s.tx.WithinTx(ctx, func(tx repository.Tx) error {
		return s.transfers.CreateTransfer(ctx, tx, transfer)
	})
	if err != nil {
		s.log.Errorf("Failed to persist FAILED transfer from card %d to card %d: %v",
			transfer.FromCardID, transfer.ToCardID, err)
		return
	}

	s.log.Warnf("Transfer %d marked FAILED", transfer.ID)
}
