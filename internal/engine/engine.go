// Package engine evaluates board events against the active rules of a
// board and drives each matching rule's action pipeline. Rules run
// concurrently and independently: a failing or panicking rule never
// affects its siblings, and run-log bookkeeping is best-effort.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"boardflow/internal/action"
	"boardflow/internal/apperr"
	"boardflow/internal/condition"
	"boardflow/internal/config"
	"boardflow/internal/domain"
	"boardflow/internal/events"
	"boardflow/internal/repo"
	"boardflow/internal/template"
	"boardflow/internal/trigger"
)

type Engine struct {
	Repo     repo.Repo
	Events   events.Writer
	Config   *config.Config
	Triggers *trigger.Registry
	Actions  *action.Registry
	Resolver template.Resolver
	Logger   zerolog.Logger
	Now      func() time.Time
}

func New(db *sql.DB, cfg *config.Config, logger zerolog.Logger) Engine {
	r := repo.Repo{DB: db}
	return Engine{
		Repo:     r,
		Events:   events.Writer{DB: db},
		Config:   cfg,
		Triggers: trigger.BuildRegistry(logger),
		Actions:  action.BuildRegistry(action.Deps{Repo: r, Logger: logger}),
		Resolver: template.Resolver{SiteBaseURL: cfg.Site.BaseURL},
		Logger:   logger,
		Now:      time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowRFC3339() string {
	return e.now().UTC().Format(time.RFC3339)
}

// Dispatch appends the event to the audit log and evaluates it against
// the board's rules. The append failing does not block evaluation.
func (e Engine) Dispatch(ctx context.Context, evt domain.BoardEvent) {
	payload := events.EventPayload{}
	for k, v := range evt.Payload {
		payload[k] = v
	}
	if err := e.Events.Append(ctx, nil, evt.Type, evt.BoardID, evt.CardID, evt.TriggeredBy, payload); err != nil {
		e.Logger.Error().Err(err).Str("event", evt.Type).Msg("append event")
	}
	e.EvaluateRulesForEvent(ctx, evt)
}

// EvaluateRulesForEvent runs every active rule of the event's board whose
// trigger matches. Rules fan out concurrently up to the configured limit;
// the call returns when all have finished.
func (e Engine) EvaluateRulesForEvent(ctx context.Context, evt domain.BoardEvent) {
	rules, err := e.Repo.ListActiveRules(ctx, evt.BoardID)
	if err != nil {
		e.Logger.Error().Err(err).Str("board", evt.BoardID).Msg("list active rules")
		return
	}
	if len(rules) == 0 {
		return
	}

	// The board projection is shared read-only across rules, so fetch it
	// at most once per event.
	board := sync.OnceValues(func() (domain.BoardData, error) {
		return e.Repo.GetBoardData(ctx, evt.BoardID)
	})
	triggerUser := sync.OnceValue(func() *domain.CardUser {
		if evt.TriggeredBy == "" {
			return nil
		}
		u, err := e.Repo.GetUser(ctx, evt.TriggeredBy)
		if err != nil {
			return nil
		}
		return &u
	})

	g := &errgroup.Group{}
	g.SetLimit(e.Config.MaxConcurrentRules())
	for _, rule := range rules {
		rule := rule
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					e.Logger.Error().Str("rule", rule.ID).Any("panic", r).Msg("rule evaluation panicked")
				}
			}()
			e.runRule(ctx, rule, evt, board, triggerUser)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
}

func (e Engine) runRule(
	ctx context.Context,
	rule domain.Rule,
	evt domain.BoardEvent,
	board func() (domain.BoardData, error),
	triggerUser func() *domain.CardUser,
) {
	handler, ok := e.Triggers.Get(rule.Trigger.Type)
	if !ok {
		e.Logger.Warn().Str("rule", rule.ID).Str("trigger", rule.Trigger.Type).Msg("rule references unknown trigger type")
		return
	}
	if !handler.Matches(evt, rule.Trigger.Config) {
		return
	}

	boardData, err := board()
	if err != nil {
		e.Logger.Error().Err(err).Str("rule", rule.ID).Str("board", evt.BoardID).Msg("load board")
		return
	}

	// Every rule sees a fresh card snapshot: earlier rules may already
	// have mutated the card for this same event.
	var card domain.CardData
	if evt.CardID != "" {
		card, err = e.Repo.GetCardData(ctx, evt.CardID)
		if errors.Is(err, repo.ErrNotFound) {
			e.Logger.Debug().Str("rule", rule.ID).Str("card", evt.CardID).Msg("card gone before evaluation")
			return
		}
		if err != nil {
			e.Logger.Error().Err(err).Str("rule", rule.ID).Str("card", evt.CardID).Msg("load card")
			return
		}
	}

	if !condition.Check(rule.Conditions, card) {
		return
	}

	run := e.executePipeline(ctx, rule, evt, card, boardData, triggerUser())
	e.recordRun(ctx, run)
}

func (e Engine) executePipeline(
	ctx context.Context,
	rule domain.Rule,
	evt domain.BoardEvent,
	card domain.CardData,
	board domain.BoardData,
	triggerUser *domain.CardUser,
) domain.RunResult {
	start := e.now()
	fc := &domain.FlowContext{
		Rule:                  rule,
		Card:                  card,
		Board:                 board,
		Event:                 evt,
		TriggerUser:           triggerUser,
		PreviousActionOutputs: map[string]map[string]any{},
		RunID:                 uuid.NewString(),
	}

	results := make([]domain.ActionResult, 0, len(rule.Actions))
	succeededCount, failedCount := 0, 0
	firstError := ""
	for i, step := range rule.Actions {
		res := e.executeStep(ctx, step, fc)
		results = append(results, res)
		if res.Success {
			succeededCount++
			if len(res.Output) > 0 {
				fc.PreviousActionOutputs[fmt.Sprintf("step.%d", i)] = res.Output
			}
			continue
		}
		failedCount++
		if firstError == "" {
			firstError = res.Error
		}
		if !step.ContinueOnFailure {
			break
		}
	}

	status := domain.RunStatusPartial
	switch {
	case failedCount == 0:
		status = domain.RunStatusSuccess
	case succeededCount == 0:
		status = domain.RunStatusFailed
	}

	return domain.RunResult{
		RunID:            fc.RunID,
		RuleID:           rule.ID,
		BoardID:          rule.BoardID,
		CardID:           evt.CardID,
		TriggeredBy:      evt.TriggeredBy,
		Status:           status,
		ActionsTotal:     len(rule.Actions),
		ActionsSucceeded: succeededCount,
		ActionsFailed:    failedCount,
		ActionResults:    results,
		ErrorMessage:     firstError,
		DurationMs:       e.now().Sub(start).Milliseconds(),
		CreatedAt:        start.UTC().Format(time.RFC3339),
	}
}

// executeStep resolves the step config, runs the handler under the
// configured timeout, and converts panics and stalls into failed results.
func (e Engine) executeStep(ctx context.Context, step domain.ActionStep, fc *domain.FlowContext) domain.ActionResult {
	handler, ok := e.Actions.Get(step.Type)
	if !ok {
		return domain.ActionResult{
			Success:   false,
			ErrorCode: action.CodeUnknownAction,
			Error:     fmt.Sprintf("no handler registered for action type %q", step.Type),
		}
	}

	resolved := e.Resolver.ResolveConfig(step.Config, fc)

	stepCtx, cancel := context.WithTimeout(ctx, e.Config.StepTimeout())
	defer cancel()

	done := make(chan domain.ActionResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- domain.ActionResult{
					Success:   false,
					ErrorCode: action.CodeExecutionFailed,
					Error:     fmt.Sprintf("action %s panicked: %v", step.Type, r),
				}
			}
		}()
		done <- handler.Execute(stepCtx, resolved, fc)
	}()

	select {
	case res := <-done:
		return res
	case <-stepCtx.Done():
		return domain.ActionResult{
			Success:   false,
			ErrorCode: action.CodeStepTimeout,
			Error:     fmt.Sprintf("action %s exceeded the %s step timeout", step.Type, e.Config.StepTimeout()),
		}
	}
}

// recordRun persists the run log and bumps the rule's counters. Both are
// best-effort: the run already happened, bookkeeping failures only log.
func (e Engine) recordRun(ctx context.Context, run domain.RunResult) {
	if err := e.Repo.InsertRuleRun(ctx, run); err != nil {
		e.Logger.Error().Err(err).Str("rule", run.RuleID).Str("run", run.RunID).Msg("write run log")
	}
	if err := e.Repo.UpdateRuleCounters(ctx, run.RuleID, run.Status, e.nowRFC3339()); err != nil {
		e.Logger.Error().Err(err).Str("rule", run.RuleID).Msg("update rule counters")
	}
	e.Logger.Info().
		Str("rule", run.RuleID).
		Str("run", run.RunID).
		Str("status", run.Status).
		Int("succeeded", run.ActionsSucceeded).
		Int("failed", run.ActionsFailed).
		Int64("ms", run.DurationMs).
		Msg("rule run finished")
}

// ValidateRule statically checks a rule definition: known trigger and
// action types, each handler's own config validation, and at least one
// action step.
func (e Engine) ValidateRule(rule domain.Rule) error {
	th, ok := e.Triggers.Get(rule.Trigger.Type)
	if !ok {
		return fmt.Errorf("%w: %q", apperr.ErrUnknownTriggerType, rule.Trigger.Type)
	}
	if v := th.Validate(rule.Trigger.Config); !v.Valid {
		return fmt.Errorf("%w: trigger %s: %v", apperr.ErrInvalidRule, rule.Trigger.Type, v.Errors)
	}
	if len(rule.Actions) == 0 {
		return fmt.Errorf("%w: rule has no actions", apperr.ErrInvalidRule)
	}
	for i, step := range rule.Actions {
		ah, ok := e.Actions.Get(step.Type)
		if !ok {
			return fmt.Errorf("%w: step %d: %q", apperr.ErrUnknownActionType, i, step.Type)
		}
		if v := ah.Validate(step.Config); !v.Valid {
			return fmt.Errorf("%w: step %d (%s): %v", apperr.ErrInvalidRule, i, step.Type, v.Errors)
		}
	}
	for _, c := range rule.Conditions {
		valid := false
		for _, op := range condition.Operators() {
			if c.Operator == op {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("%w: unknown condition operator %q", apperr.ErrInvalidRule, c.Operator)
		}
	}
	return nil
}
