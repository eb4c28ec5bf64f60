package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"boardflow/internal/action"
	"boardflow/internal/domain"
	"boardflow/internal/engine"
)

type RuleRequest struct {
	Name       string              `json:"name" minLength:"1"`
	Trigger    domain.TriggerSpec  `json:"trigger"`
	Conditions []domain.Condition  `json:"conditions,omitempty"`
	Actions    []domain.ActionStep `json:"actions" minItems:"1"`
	IsActive   *bool               `json:"is_active,omitempty"`
}

func registerRules(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-rule",
		Method:        http.MethodPost,
		Path:          "/boards/{board_id}/rules",
		Summary:       "Create rule",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		BoardID string      `path:"board_id"`
		Body    RuleRequest `json:"body"`
	}) (*struct {
		Body domain.Rule `json:"body"`
	}, error) {
		rule := domain.Rule{
			BoardID:    input.BoardID,
			Name:       input.Body.Name,
			IsActive:   true,
			Trigger:    input.Body.Trigger,
			Conditions: input.Body.Conditions,
			Actions:    input.Body.Actions,
		}
		if input.Body.IsActive != nil {
			rule.IsActive = *input.Body.IsActive
		}
		created, err := e.CreateRule(ctx, rule)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Rule `json:"body"`
		}{Body: created}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-rules",
		Method:      http.MethodGet,
		Path:        "/boards/{board_id}/rules",
		Summary:     "List rules for a board",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BoardID string `path:"board_id"`
	}) (*struct {
		Body []domain.Rule `json:"body"`
	}, error) {
		if _, err := e.Repo.GetBoardData(ctx, input.BoardID); err != nil {
			return nil, handleError(err)
		}
		rules, err := e.Repo.ListRules(ctx, input.BoardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Rule `json:"body"`
		}{Body: rules}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-rule",
		Method:      http.MethodGet,
		Path:        "/rules/{rule_id}",
		Summary:     "Get rule",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RuleID string `path:"rule_id"`
	}) (*struct {
		Body domain.Rule `json:"body"`
	}, error) {
		rule, err := e.Repo.GetRule(ctx, input.RuleID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Rule `json:"body"`
		}{Body: rule}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-rule",
		Method:      http.MethodPut,
		Path:        "/rules/{rule_id}",
		Summary:     "Replace rule definition",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		RuleID string      `path:"rule_id"`
		Body   RuleRequest `json:"body"`
	}) (*struct {
		Body domain.Rule `json:"body"`
	}, error) {
		rule := domain.Rule{
			ID:         input.RuleID,
			Name:       input.Body.Name,
			IsActive:   true,
			Trigger:    input.Body.Trigger,
			Conditions: input.Body.Conditions,
			Actions:    input.Body.Actions,
		}
		if input.Body.IsActive != nil {
			rule.IsActive = *input.Body.IsActive
		}
		updated, err := e.UpdateRuleDefinition(ctx, rule)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Rule `json:"body"`
		}{Body: updated}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-rule-active",
		Method:      http.MethodPatch,
		Path:        "/rules/{rule_id}",
		Summary:     "Enable or disable a rule",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RuleID string `path:"rule_id"`
		Body   struct {
			IsActive bool `json:"is_active"`
		} `json:"body"`
	}) (*struct {
		Body domain.Rule `json:"body"`
	}, error) {
		if err := e.SetRuleActive(ctx, input.RuleID, input.Body.IsActive); err != nil {
			return nil, handleError(err)
		}
		rule, err := e.Repo.GetRule(ctx, input.RuleID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Rule `json:"body"`
		}{Body: rule}, nil
	})
}

func registerRuns(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-rule-runs",
		Method:      http.MethodGet,
		Path:        "/rules/{rule_id}/runs",
		Summary:     "List runs of a rule, newest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RuleID string `path:"rule_id"`
		Limit  int    `query:"limit" default:"50" maximum:"500"`
	}) (*struct {
		Body []domain.RunResult `json:"body"`
	}, error) {
		if _, err := e.Repo.GetRule(ctx, input.RuleID); err != nil {
			return nil, handleError(err)
		}
		runs, err := e.Repo.ListRuleRuns(ctx, input.RuleID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.RunResult `json:"body"`
		}{Body: runs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-board-runs",
		Method:      http.MethodGet,
		Path:        "/boards/{board_id}/runs",
		Summary:     "List runs across a board, newest first",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BoardID string `path:"board_id"`
		Limit   int    `query:"limit" default:"50" maximum:"500"`
	}) (*struct {
		Body []domain.RunResult `json:"body"`
	}, error) {
		if _, err := e.Repo.GetBoardData(ctx, input.BoardID); err != nil {
			return nil, handleError(err)
		}
		runs, err := e.Repo.ListBoardRuns(ctx, input.BoardID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.RunResult `json:"body"`
		}{Body: runs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}",
		Summary:     "Get one run",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RunID string `path:"run_id"`
	}) (*struct {
		Body domain.RunResult `json:"body"`
	}, error) {
		run, err := e.Repo.GetRuleRun(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.RunResult `json:"body"`
		}{Body: run}, nil
	})
}

type IngestEventRequest struct {
	Type    string         `json:"type" minLength:"1"`
	CardID  string         `json:"card_id,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "ingest-event",
		Method:        http.MethodPost,
		Path:          "/boards/{board_id}/events",
		Summary:       "Ingest a board event",
		Description:   "Accepts the event and evaluates rules asynchronously.",
		DefaultStatus: http.StatusAccepted,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BoardID string             `path:"board_id"`
		Body    IngestEventRequest `json:"body"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if _, err := e.Repo.GetBoardData(ctx, input.BoardID); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		evt := domain.BoardEvent{
			Type:        input.Body.Type,
			BoardID:     input.BoardID,
			CardID:      input.Body.CardID,
			Payload:     input.Body.Payload,
			TriggeredBy: actorID,
		}
		// Fire and forget: the caller gets a 202 while rules evaluate in
		// the background with their own context.
		go e.Dispatch(context.WithoutCancel(ctx), evt)
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "accepted"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-board-events",
		Method:      http.MethodGet,
		Path:        "/boards/{board_id}/events",
		Summary:     "List a board's event log",
		Description: "Returns events in append order. Page with after=<last event id>.",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BoardID string `path:"board_id"`
		After   int64  `query:"after" minimum:"0" doc:"Return events with id greater than this cursor"`
		Limit   int    `query:"limit" minimum:"1" maximum:"500" doc:"Page size, defaults to 100"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		if _, err := e.Repo.GetBoardData(ctx, input.BoardID); err != nil {
			return nil, handleError(err)
		}
		events, err := e.Repo.EventsAfter(ctx, input.Limit, input.After, input.BoardID)
		if err != nil {
			return nil, handleError(err)
		}
		if events == nil {
			events = []domain.Event{}
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: events}, nil
	})
}

type HandlerInfo struct {
	Type         string              `json:"type"`
	Category     string              `json:"category,omitempty"`
	ConfigSchema domain.ConfigSchema `json:"config_schema"`
	Summary      string              `json:"summary,omitempty"`
}

func registerRegistry(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-trigger-types",
		Method:      http.MethodGet,
		Path:        "/registry/triggers",
		Summary:     "List available trigger types",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []HandlerInfo `json:"body"`
	}, error) {
		handlers := e.Triggers.All()
		out := make([]HandlerInfo, 0, len(handlers))
		for _, h := range handlers {
			out = append(out, HandlerInfo{Type: h.Type(), ConfigSchema: h.ConfigSchema()})
		}
		return &struct {
			Body []HandlerInfo `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-action-types",
		Method:      http.MethodGet,
		Path:        "/registry/actions",
		Summary:     "List available action types",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []HandlerInfo `json:"body"`
	}, error) {
		handlers := e.Actions.All()
		out := make([]HandlerInfo, 0, len(handlers))
		for _, h := range handlers {
			out = append(out, HandlerInfo{
				Type:         h.Type(),
				Category:     action.CategoryOf(h.Type()),
				ConfigSchema: h.ConfigSchema(),
				Summary:      h.Summarize(nil, nil),
			})
		}
		return &struct {
			Body []HandlerInfo `json:"body"`
		}{Body: out}, nil
	})
}
