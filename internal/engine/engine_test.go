package engine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"boardflow/internal/config"
	"boardflow/internal/db"
	"boardflow/internal/domain"
	"boardflow/internal/engine"
	"boardflow/internal/migrate"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
	Board  domain.BoardData
	Actor  domain.CardUser
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default(), zerolog.Nop())
	eng.Now = func() time.Time { return time.Date(2026, 2, 20, 9, 30, 0, 0, time.UTC) }
	ctx := context.Background()
	board, err := eng.CreateBoard(ctx, "test board", nil)
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	actor, err := eng.CreateUser(ctx, "Tester", "tester@example.com")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx, Board: board, Actor: actor}
}

func (env testEnv) createCard(t *testing.T, opts engine.CardCreateOptions) domain.CardData {
	t.Helper()
	opts.BoardID = env.Board.ID
	if opts.ActorID == "" {
		opts.ActorID = env.Actor.ID
	}
	card, err := env.Engine.CreateCard(env.Ctx, opts)
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	return card
}

func (env testEnv) createRule(t *testing.T, rule domain.Rule) domain.Rule {
	t.Helper()
	rule.BoardID = env.Board.ID
	rule.IsActive = true
	created, err := env.Engine.CreateRule(env.Ctx, rule)
	if err != nil {
		t.Fatalf("create rule: %v", err)
	}
	return created
}

func (env testEnv) runs(t *testing.T, ruleID string) []domain.RunResult {
	t.Helper()
	runs, err := env.Engine.Repo.ListRuleRuns(env.Ctx, ruleID, 50)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	return runs
}

func TestRuleRunsOnCardMove(t *testing.T) {
	env := newTestEnv(t)
	rule := env.createRule(t, domain.Rule{
		Name:    "urgent when done",
		Trigger: domain.TriggerSpec{Type: "card_moved_to", Config: map[string]any{"targetColumnId": "done"}},
		Actions: []domain.ActionStep{
			{Type: "set_priority", Config: map[string]any{"priority": "urgent"}},
		},
	})
	card := env.createCard(t, engine.CardCreateOptions{Title: "ship it", Priority: "low"})

	if err := env.Engine.MoveCardTo(env.Ctx, card.ID, "done", env.Actor.ID); err != nil {
		t.Fatalf("move card: %v", err)
	}

	got, err := env.Engine.Repo.GetCardData(env.Ctx, card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Priority != "urgent" {
		t.Fatalf("priority = %q, want urgent", got.Priority)
	}
	if got.Status != "done" {
		t.Fatalf("status = %q, want done", got.Status)
	}

	runs := env.runs(t, rule.ID)
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.Status != domain.RunStatusSuccess {
		t.Fatalf("run status = %q, want success", run.Status)
	}
	if run.ActionsTotal != 1 || run.ActionsSucceeded != 1 || run.ActionsFailed != 0 {
		t.Fatalf("run counters = %d/%d/%d", run.ActionsTotal, run.ActionsSucceeded, run.ActionsFailed)
	}
	if run.CardID != card.ID {
		t.Fatalf("run card = %q, want %q", run.CardID, card.ID)
	}

	updated, err := env.Engine.Repo.GetRule(env.Ctx, rule.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.RunCount != 1 {
		t.Fatalf("rule run count = %d, want 1", updated.RunCount)
	}
	if updated.LastRunStatus == nil || *updated.LastRunStatus != domain.RunStatusSuccess {
		t.Fatalf("rule last run status = %v", updated.LastRunStatus)
	}
}

func TestRuleDoesNotFireOnOtherColumns(t *testing.T) {
	env := newTestEnv(t)
	rule := env.createRule(t, domain.Rule{
		Name:    "done only",
		Trigger: domain.TriggerSpec{Type: "card_moved_to", Config: map[string]any{"targetColumnId": "done"}},
		Actions: []domain.ActionStep{{Type: "add_tag", Config: map[string]any{"tag": "finished"}}},
	})
	card := env.createCard(t, engine.CardCreateOptions{Title: "still going"})

	if err := env.Engine.MoveCardTo(env.Ctx, card.ID, "in_progress", env.Actor.ID); err != nil {
		t.Fatalf("move card: %v", err)
	}
	if runs := env.runs(t, rule.ID); len(runs) != 0 {
		t.Fatalf("got %d runs, want none", len(runs))
	}
}

func TestConditionsGateExecution(t *testing.T) {
	env := newTestEnv(t)
	rule := env.createRule(t, domain.Rule{
		Name:    "flag urgent moves",
		Trigger: domain.TriggerSpec{Type: "card_moved"},
		Conditions: []domain.Condition{
			{Field: "priority", Operator: "equals", Value: "high"},
		},
		Actions: []domain.ActionStep{{Type: "add_tag", Config: map[string]any{"tag": "hot"}}},
	})

	low := env.createCard(t, engine.CardCreateOptions{Title: "low", Priority: "low"})
	high := env.createCard(t, engine.CardCreateOptions{Title: "high", Priority: "high"})

	if err := env.Engine.MoveCardTo(env.Ctx, low.ID, "done", env.Actor.ID); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.MoveCardTo(env.Ctx, high.ID, "done", env.Actor.ID); err != nil {
		t.Fatal(err)
	}

	runs := env.runs(t, rule.ID)
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].CardID != high.ID {
		t.Fatalf("rule ran for card %q, want %q", runs[0].CardID, high.ID)
	}
	got, err := env.Engine.Repo.GetCardData(env.Ctx, low.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tags) != 0 {
		t.Fatalf("low card gained tags %v", got.Tags)
	}
}

func TestContinueOnFailureYieldsPartial(t *testing.T) {
	env := newTestEnv(t)
	rule := env.createRule(t, domain.Rule{
		Name:    "flaky pipeline",
		Trigger: domain.TriggerSpec{Type: "card_moved_to", Config: map[string]any{"targetColumnId": "done"}},
		Actions: []domain.ActionStep{
			{Type: "assign_user", Config: map[string]any{"userId": "nobody"}, ContinueOnFailure: true},
			{Type: "add_tag", Config: map[string]any{"tag": "done-anyway"}},
		},
	})
	card := env.createCard(t, engine.CardCreateOptions{Title: "resilient"})

	if err := env.Engine.MoveCardTo(env.Ctx, card.ID, "done", env.Actor.ID); err != nil {
		t.Fatal(err)
	}

	runs := env.runs(t, rule.ID)
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.Status != domain.RunStatusPartial {
		t.Fatalf("run status = %q, want partial", run.Status)
	}
	if run.ActionsSucceeded != 1 || run.ActionsFailed != 1 {
		t.Fatalf("run counters = %d succeeded / %d failed", run.ActionsSucceeded, run.ActionsFailed)
	}
	if run.ErrorMessage == "" {
		t.Fatal("expected first error message on the run")
	}

	got, err := env.Engine.Repo.GetCardData(env.Ctx, card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "done-anyway" {
		t.Fatalf("tags = %v, want [done-anyway]", got.Tags)
	}
}

func TestFailureStopsPipeline(t *testing.T) {
	env := newTestEnv(t)
	rule := env.createRule(t, domain.Rule{
		Name:    "brittle pipeline",
		Trigger: domain.TriggerSpec{Type: "card_moved_to", Config: map[string]any{"targetColumnId": "done"}},
		Actions: []domain.ActionStep{
			{Type: "assign_user", Config: map[string]any{"userId": "nobody"}},
			{Type: "add_tag", Config: map[string]any{"tag": "never"}},
		},
	})
	card := env.createCard(t, engine.CardCreateOptions{Title: "fragile"})

	if err := env.Engine.MoveCardTo(env.Ctx, card.ID, "done", env.Actor.ID); err != nil {
		t.Fatal(err)
	}

	runs := env.runs(t, rule.ID)
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.Status != domain.RunStatusFailed {
		t.Fatalf("run status = %q, want failed", run.Status)
	}
	if len(run.ActionResults) != 1 {
		t.Fatalf("got %d action results, want 1 (second step skipped)", len(run.ActionResults))
	}

	got, err := env.Engine.Repo.GetCardData(env.Ctx, card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tags) != 0 {
		t.Fatalf("tags = %v, want none", got.Tags)
	}
}

func TestUnknownActionTypeFailsStep(t *testing.T) {
	env := newTestEnv(t)
	// Bypass CreateRule validation: unknown types can reach the engine when
	// a handler is removed after rules referencing it were saved.
	rule := domain.Rule{
		ID:        "rule-unknown",
		BoardID:   env.Board.ID,
		Name:      "stale rule",
		IsActive:  true,
		Trigger:   domain.TriggerSpec{Type: "card_moved"},
		Actions:   []domain.ActionStep{{Type: "warp_card"}},
		CreatedAt: "2026-02-20T09:30:00Z",
		UpdatedAt: "2026-02-20T09:30:00Z",
	}
	if err := env.Engine.Repo.InsertRule(env.Ctx, rule); err != nil {
		t.Fatalf("insert rule: %v", err)
	}
	card := env.createCard(t, engine.CardCreateOptions{Title: "victim"})

	if err := env.Engine.MoveCardTo(env.Ctx, card.ID, "done", env.Actor.ID); err != nil {
		t.Fatal(err)
	}

	runs := env.runs(t, rule.ID)
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.Status != domain.RunStatusFailed {
		t.Fatalf("run status = %q, want failed", run.Status)
	}
	if len(run.ActionResults) != 1 || run.ActionResults[0].ErrorCode != "UNKNOWN_ACTION_TYPE" {
		t.Fatalf("action results = %+v", run.ActionResults)
	}
}

func TestStubActionsReportNotImplemented(t *testing.T) {
	env := newTestEnv(t)
	rule := env.createRule(t, domain.Rule{
		Name:    "contract on done",
		Trigger: domain.TriggerSpec{Type: "card_moved_to", Config: map[string]any{"targetColumnId": "done"}},
		Actions: []domain.ActionStep{{Type: "generate_contract"}},
	})
	card := env.createCard(t, engine.CardCreateOptions{Title: "deal"})

	if err := env.Engine.MoveCardTo(env.Ctx, card.ID, "done", env.Actor.ID); err != nil {
		t.Fatal(err)
	}

	runs := env.runs(t, rule.ID)
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.Status != domain.RunStatusFailed {
		t.Fatalf("run status = %q, want failed", run.Status)
	}
	if run.ActionResults[0].ErrorCode != "CONTRACT_MODULE_NOT_IMPLEMENTED" {
		t.Fatalf("error code = %q", run.ActionResults[0].ErrorCode)
	}
}

func TestStepOutputChaining(t *testing.T) {
	env := newTestEnv(t)
	rule := env.createRule(t, domain.Rule{
		Name:    "copy and link",
		Trigger: domain.TriggerSpec{Type: "card_moved_to", Config: map[string]any{"targetColumnId": "done"}},
		Actions: []domain.ActionStep{
			{Type: "copy_card", Config: map[string]any{"targetColumnId": "todo"}},
			{Type: "set_custom_field", Config: map[string]any{
				"fieldName": "copy_id",
				"value":     "{{step.0.output.card_id}}",
			}},
		},
	})
	card := env.createCard(t, engine.CardCreateOptions{Title: "template card"})

	if err := env.Engine.MoveCardTo(env.Ctx, card.ID, "done", env.Actor.ID); err != nil {
		t.Fatal(err)
	}

	runs := env.runs(t, rule.ID)
	if len(runs) != 1 || runs[0].Status != domain.RunStatusSuccess {
		t.Fatalf("runs = %+v", runs)
	}

	got, err := env.Engine.Repo.GetCardData(env.Ctx, card.ID)
	if err != nil {
		t.Fatal(err)
	}
	copyID := got.CustomFields["copy_id"]
	if copyID == "" || copyID == "{{step.0.output.card_id}}" {
		t.Fatalf("copy_id = %q, want the copied card's id", copyID)
	}
	copied, err := env.Engine.Repo.GetCardData(env.Ctx, copyID)
	if err != nil {
		t.Fatalf("copied card %q: %v", copyID, err)
	}
	if copied.Status != "todo" {
		t.Fatalf("copied card status = %q, want todo", copied.Status)
	}
}

func TestTemplateVariablesResolveInConfig(t *testing.T) {
	env := newTestEnv(t)
	env.createRule(t, domain.Rule{
		Name:    "stamp title",
		Trigger: domain.TriggerSpec{Type: "card_moved_to", Config: map[string]any{"targetColumnId": "done"}},
		Actions: []domain.ActionStep{
			{Type: "set_custom_field", Config: map[string]any{
				"fieldName": "summary",
				"value":     "{{card.title}} moved by {{trigger.user.name}}",
			}},
		},
	})
	card := env.createCard(t, engine.CardCreateOptions{Title: "release 1.2"})

	if err := env.Engine.MoveCardTo(env.Ctx, card.ID, "done", env.Actor.ID); err != nil {
		t.Fatal(err)
	}

	got, err := env.Engine.Repo.GetCardData(env.Ctx, card.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := "release 1.2 moved by Tester"
	if got.CustomFields["summary"] != want {
		t.Fatalf("summary = %q, want %q", got.CustomFields["summary"], want)
	}
}

func TestNotifyAssigneeWithoutAssigneeIsNoop(t *testing.T) {
	env := newTestEnv(t)
	rule := env.createRule(t, domain.Rule{
		Name:    "ping assignee",
		Trigger: domain.TriggerSpec{Type: "card_moved_to", Config: map[string]any{"targetColumnId": "done"}},
		Actions: []domain.ActionStep{
			{Type: "notify_card_assignee", Config: map[string]any{"message": "done!"}},
		},
	})
	card := env.createCard(t, engine.CardCreateOptions{Title: "unowned"})

	if err := env.Engine.MoveCardTo(env.Ctx, card.ID, "done", env.Actor.ID); err != nil {
		t.Fatal(err)
	}

	runs := env.runs(t, rule.ID)
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.Status != domain.RunStatusSuccess {
		t.Fatalf("run status = %q, want success", run.Status)
	}
	if run.ActionResults[0].Details == "" {
		t.Fatal("expected a details message on the skipped notification")
	}
}

func TestRulesRunIndependently(t *testing.T) {
	env := newTestEnv(t)
	broken := env.createRule(t, domain.Rule{
		Name:    "broken",
		Trigger: domain.TriggerSpec{Type: "card_moved"},
		Actions: []domain.ActionStep{{Type: "assign_user", Config: map[string]any{"userId": "nobody"}}},
	})
	healthy := env.createRule(t, domain.Rule{
		Name:    "healthy",
		Trigger: domain.TriggerSpec{Type: "card_moved"},
		Actions: []domain.ActionStep{{Type: "add_tag", Config: map[string]any{"tag": "moved"}}},
	})
	card := env.createCard(t, engine.CardCreateOptions{Title: "shared"})

	if err := env.Engine.MoveCardTo(env.Ctx, card.ID, "in_progress", env.Actor.ID); err != nil {
		t.Fatal(err)
	}

	if runs := env.runs(t, broken.ID); len(runs) != 1 || runs[0].Status != domain.RunStatusFailed {
		t.Fatalf("broken rule runs = %+v", runs)
	}
	if runs := env.runs(t, healthy.ID); len(runs) != 1 || runs[0].Status != domain.RunStatusSuccess {
		t.Fatalf("healthy rule runs = %+v", runs)
	}
	got, err := env.Engine.Repo.GetCardData(env.Ctx, card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "moved" {
		t.Fatalf("tags = %v, want [moved]", got.Tags)
	}
}

func TestInactiveRulesAreSkipped(t *testing.T) {
	env := newTestEnv(t)
	rule := env.createRule(t, domain.Rule{
		Name:    "paused",
		Trigger: domain.TriggerSpec{Type: "card_moved"},
		Actions: []domain.ActionStep{{Type: "add_tag", Config: map[string]any{"tag": "moved"}}},
	})
	if err := env.Engine.SetRuleActive(env.Ctx, rule.ID, false); err != nil {
		t.Fatal(err)
	}
	card := env.createCard(t, engine.CardCreateOptions{Title: "quiet"})

	if err := env.Engine.MoveCardTo(env.Ctx, card.ID, "done", env.Actor.ID); err != nil {
		t.Fatal(err)
	}
	if runs := env.runs(t, rule.ID); len(runs) != 0 {
		t.Fatalf("got %d runs for inactive rule, want none", len(runs))
	}
}

func TestManyRulesFanOutForOneEvent(t *testing.T) {
	env := newTestEnv(t)
	const ruleCount = 24
	ruleIDs := make([]string, 0, ruleCount)
	for i := 0; i < ruleCount; i++ {
		rule := env.createRule(t, domain.Rule{
			Name:    fmt.Sprintf("tagger %d", i),
			Trigger: domain.TriggerSpec{Type: "card_moved"},
			Actions: []domain.ActionStep{{Type: "add_tag", Config: map[string]any{"tag": fmt.Sprintf("tag-%d", i)}}},
		})
		ruleIDs = append(ruleIDs, rule.ID)
	}
	card := env.createCard(t, engine.CardCreateOptions{Title: "busy"})

	if err := env.Engine.MoveCardTo(env.Ctx, card.ID, "done", env.Actor.ID); err != nil {
		t.Fatal(err)
	}

	for _, id := range ruleIDs {
		runs := env.runs(t, id)
		if len(runs) != 1 {
			t.Fatalf("rule %s: got %d runs, want 1", id, len(runs))
		}
		if runs[0].Status != domain.RunStatusSuccess {
			t.Fatalf("rule %s: run status = %q, want success", id, runs[0].Status)
		}
	}
	got, err := env.Engine.Repo.GetCardData(env.Ctx, card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tags) != ruleCount {
		t.Fatalf("got %d tags, want %d", len(got.Tags), ruleCount)
	}
}

func TestCompleteSubtaskEmitsAllCompleted(t *testing.T) {
	env := newTestEnv(t)
	rule := env.createRule(t, domain.Rule{
		Name:    "celebrate",
		Trigger: domain.TriggerSpec{Type: "subtask_completed", Config: map[string]any{"allCompleted": true}},
		Actions: []domain.ActionStep{{Type: "add_tag", Config: map[string]any{"tag": "all-done"}}},
	})
	card := env.createCard(t, engine.CardCreateOptions{Title: "checklist"})
	now := "2026-02-20T09:30:00Z"
	for _, id := range []string{"s1", "s2"} {
		err := env.Engine.Repo.InsertSubtask(env.Ctx, domain.Subtask{
			ID: id, CardID: card.ID, Title: id, CreatedAt: now, UpdatedAt: now,
		})
		if err != nil {
			t.Fatalf("insert subtask: %v", err)
		}
	}

	// one subtask still open: rule must not fire
	if err := env.Engine.CompleteSubtask(env.Ctx, card.ID, "s1", env.Actor.ID); err != nil {
		t.Fatal(err)
	}
	if runs := env.runs(t, rule.ID); len(runs) != 0 {
		t.Fatalf("got %d runs before the last subtask, want none", len(runs))
	}

	if err := env.Engine.CompleteSubtask(env.Ctx, card.ID, "s2", env.Actor.ID); err != nil {
		t.Fatal(err)
	}
	runs := env.runs(t, rule.ID)
	if len(runs) != 1 || runs[0].Status != domain.RunStatusSuccess {
		t.Fatalf("runs = %+v", runs)
	}
	got, err := env.Engine.Repo.GetCardData(env.Ctx, card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "all-done" {
		t.Fatalf("tags = %v, want [all-done]", got.Tags)
	}

	// completing an already-done subtask emits nothing
	if err := env.Engine.CompleteSubtask(env.Ctx, card.ID, "s2", env.Actor.ID); err != nil {
		t.Fatal(err)
	}
	if runs := env.runs(t, rule.ID); len(runs) != 1 {
		t.Fatalf("got %d runs after repeat completion, want 1", len(runs))
	}
}

func TestValidateRuleRejectsBadDefinitions(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.Engine.CreateRule(env.Ctx, domain.Rule{
		BoardID: env.Board.ID,
		Name:    "unknown trigger",
		Trigger: domain.TriggerSpec{Type: "card_levitated"},
		Actions: []domain.ActionStep{{Type: "add_tag", Config: map[string]any{"tag": "x"}}},
	})
	if err == nil {
		t.Fatal("expected unknown trigger error")
	}

	_, err = env.Engine.CreateRule(env.Ctx, domain.Rule{
		BoardID: env.Board.ID,
		Name:    "no actions",
		Trigger: domain.TriggerSpec{Type: "card_created"},
	})
	if err == nil {
		t.Fatal("expected empty pipeline error")
	}

	_, err = env.Engine.CreateRule(env.Ctx, domain.Rule{
		BoardID: env.Board.ID,
		Name:    "bad trigger config",
		Trigger: domain.TriggerSpec{Type: "card_moved_to"},
		Actions: []domain.ActionStep{{Type: "add_tag", Config: map[string]any{"tag": "x"}}},
	})
	if err == nil {
		t.Fatal("expected trigger config error")
	}

	_, err = env.Engine.CreateRule(env.Ctx, domain.Rule{
		BoardID:    env.Board.ID,
		Name:       "bad condition operator",
		Trigger:    domain.TriggerSpec{Type: "card_created"},
		Conditions: []domain.Condition{{Field: "priority", Operator: "resembles", Value: "high"}},
		Actions:    []domain.ActionStep{{Type: "add_tag", Config: map[string]any{"tag": "x"}}},
	})
	if err == nil {
		t.Fatal("expected condition operator error")
	}
}
