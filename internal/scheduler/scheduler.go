// Package scheduler synthesizes time-based board events: due dates
// passing, due dates approaching, and cards sitting too long in one
// column. Trigger matching stays pure because all time arithmetic happens
// here and lands in the event payload.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"boardflow/internal/config"
	"boardflow/internal/domain"
	"boardflow/internal/engine"
)

type Scheduler struct {
	Engine engine.Engine
	Config *config.Config
	Logger zerolog.Logger
	Now    func() time.Time
}

func New(e engine.Engine, cfg *config.Config, logger zerolog.Logger) *Scheduler {
	return &Scheduler{Engine: e, Config: cfg, Logger: logger, Now: time.Now}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Run ticks at the configured interval until ctx is done. Events are
// re-emitted on every tick while their condition holds; delivery is
// at-least-once and consumers tolerate repeats.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Config.SchedulerInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.Logger.Error().Err(err).Msg("scheduler tick")
			}
		}
	}
}

// Tick scans every board once and dispatches whatever time-based events
// currently apply.
func (s *Scheduler) Tick(ctx context.Context) error {
	boards, err := s.Engine.Repo.ListBoards(ctx)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	for _, board := range boards {
		cards, err := s.Engine.Repo.ListCards(ctx, board.ID)
		if err != nil {
			s.Logger.Error().Err(err).Str("board", board.ID).Msg("list cards")
			continue
		}
		for _, card := range cards {
			if card.Archived {
				continue
			}
			s.checkDueDate(ctx, card, now)
			s.checkStuck(ctx, card, now)
		}
	}
	return nil
}

func (s *Scheduler) checkDueDate(ctx context.Context, card domain.CardData, now time.Time) {
	if card.DueDate == nil {
		return
	}
	due, ok := parseDate(*card.DueDate)
	if !ok {
		s.Logger.Warn().Str("card", card.ID).Str("due", *card.DueDate).Msg("unparseable due date")
		return
	}
	if due.Before(now) {
		s.Engine.Dispatch(ctx, domain.BoardEvent{
			Type:    domain.EventCardDueDatePassed,
			BoardID: card.BoardID,
			CardID:  card.ID,
			Payload: map[string]any{"dueDate": *card.DueDate},
		})
		return
	}
	daysUntilDue := int(due.Sub(now).Hours() / 24)
	if daysUntilDue <= s.Config.DueSoonDays() {
		s.Engine.Dispatch(ctx, domain.BoardEvent{
			Type:    domain.EventCardDueSoon,
			BoardID: card.BoardID,
			CardID:  card.ID,
			Payload: map[string]any{"dueDate": *card.DueDate, "daysUntilDue": float64(daysUntilDue)},
		})
	}
}

func (s *Scheduler) checkStuck(ctx context.Context, card domain.CardData, now time.Time) {
	entered, ok := parseDate(card.ColumnEnteredAt)
	if !ok {
		return
	}
	daysInColumn := int(now.Sub(entered).Hours() / 24)
	if daysInColumn < 1 {
		return
	}
	s.Engine.Dispatch(ctx, domain.BoardEvent{
		Type:    domain.EventCardStuckInColumn,
		BoardID: card.BoardID,
		CardID:  card.ID,
		Payload: map[string]any{"columnId": card.Status, "daysInColumn": float64(daysInColumn)},
	})
}

func parseDate(raw string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}
