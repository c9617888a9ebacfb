package jobs

import (
	"context"
	"fmt"

	"github.com/Dan9191/card-transfer-service/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ExpirySweeper periodically marks overdue ACTIVE cards as EXPIRED
type ExpirySweeper struct {
	cards *service.CardService
	cron  *cron.Cron
	log   *logrus.Logger
}

// NewExpirySweeper schedules the expiry sweep with the given cron spec
func NewExpirySweeper(cards *service.CardService, spec string, log *logrus.Logger) (*ExpirySweeper, error) {
	s := &ExpirySweeper{
		cards: cards,
		cron:  cron.New(),
		log:   log,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid expiry sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running the schedule in its own goroutine
func (s *ExpirySweeper) Start() {
	s.cron.Start()
	s.log.Info("Card expiry sweep scheduled")
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *ExpirySweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *ExpirySweeper) run() {
	expired, err := s.cards.ExpireOverdueCards(context.Background())
	if err != nil {
		s.log.Errorf("Card expiry sweep failed: %v", err)
		return
	}
	s.log.Debugf("Card expiry sweep finished, %d cards expired", expired)
}
