package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"boardflow/internal/domain"
	"boardflow/internal/engine"
)

type CreateCardRequest struct {
	Title       string   `json:"title" minLength:"1"`
	Description string   `json:"description,omitempty"`
	ColumnID    string   `json:"column_id,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	DueDate     *string  `json:"due_date,omitempty" format:"date-time"`
	AssigneeIDs []string `json:"assignee_ids,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type PatchCardRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty" format:"date-time"`
}

func registerCards(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-card",
		Method:        http.MethodPost,
		Path:          "/boards/{board_id}/cards",
		Summary:       "Create card",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BoardID string            `path:"board_id"`
		Body    CreateCardRequest `json:"body"`
	}) (*struct {
		Body domain.CardData `json:"body"`
	}, error) {
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		card, err := e.CreateCard(ctx, engine.CardCreateOptions{
			BoardID:     input.BoardID,
			ColumnID:    input.Body.ColumnID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Priority:    input.Body.Priority,
			DueDate:     input.Body.DueDate,
			AssigneeIDs: input.Body.AssigneeIDs,
			Tags:        input.Body.Tags,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CardData `json:"body"`
		}{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-card",
		Method:      http.MethodGet,
		Path:        "/cards/{card_id}",
		Summary:     "Get card",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CardID string `path:"card_id"`
	}) (*struct {
		Body domain.CardData `json:"body"`
	}, error) {
		card, err := e.Repo.GetCardData(ctx, input.CardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CardData `json:"body"`
		}{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "patch-card",
		Method:      http.MethodPatch,
		Path:        "/cards/{card_id}",
		Summary:     "Update card fields",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CardID string           `path:"card_id"`
		Body   PatchCardRequest `json:"body"`
	}) (*struct {
		Body domain.CardData `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if input.Body.Title != nil {
			if err := e.UpdateCardText(ctx, input.CardID, "title", *input.Body.Title, actorID); err != nil {
				return nil, handleError(err)
			}
		}
		if input.Body.Description != nil {
			if err := e.UpdateCardText(ctx, input.CardID, "description", *input.Body.Description, actorID); err != nil {
				return nil, handleError(err)
			}
		}
		if input.Body.Priority != nil {
			if err := e.SetCardPriority(ctx, input.CardID, *input.Body.Priority, actorID); err != nil {
				return nil, handleError(err)
			}
		}
		if input.Body.DueDate != nil {
			if err := e.SetCardDueDate(ctx, input.CardID, input.Body.DueDate, actorID); err != nil {
				return nil, handleError(err)
			}
		}
		card, err := e.Repo.GetCardData(ctx, input.CardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CardData `json:"body"`
		}{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-card",
		Method:      http.MethodPost,
		Path:        "/cards/{card_id}/move",
		Summary:     "Move card to a column",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CardID string `path:"card_id"`
		Body   struct {
			ColumnID string `json:"column_id" minLength:"1"`
		} `json:"body"`
	}) (*struct {
		Body domain.CardData `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.MoveCardTo(ctx, input.CardID, input.Body.ColumnID, actorID); err != nil {
			return nil, handleError(err)
		}
		card, err := e.Repo.GetCardData(ctx, input.CardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CardData `json:"body"`
		}{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-card",
		Method:      http.MethodPost,
		Path:        "/cards/{card_id}/assign",
		Summary:     "Assign a user to a card",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CardID string `path:"card_id"`
		Body   struct {
			UserID string `json:"user_id" minLength:"1"`
		} `json:"body"`
	}) (*struct {
		Body domain.CardData `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.AssignCard(ctx, input.CardID, input.Body.UserID, actorID); err != nil {
			return nil, handleError(err)
		}
		card, err := e.Repo.GetCardData(ctx, input.CardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CardData `json:"body"`
		}{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unassign-card",
		Method:      http.MethodPost,
		Path:        "/cards/{card_id}/unassign",
		Summary:     "Remove a user from a card",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CardID string `path:"card_id"`
		Body   struct {
			UserID string `json:"user_id" minLength:"1"`
		} `json:"body"`
	}) (*struct {
		Body domain.CardData `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.UnassignCard(ctx, input.CardID, input.Body.UserID, actorID); err != nil {
			return nil, handleError(err)
		}
		card, err := e.Repo.GetCardData(ctx, input.CardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CardData `json:"body"`
		}{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "add-card-tag",
		Method:      http.MethodPost,
		Path:        "/cards/{card_id}/tags",
		Summary:     "Add a tag",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CardID string `path:"card_id"`
		Body   struct {
			Tag string `json:"tag" minLength:"1"`
		} `json:"body"`
	}) (*struct {
		Body domain.CardData `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.AddCardTag(ctx, input.CardID, input.Body.Tag, actorID); err != nil {
			return nil, handleError(err)
		}
		card, err := e.Repo.GetCardData(ctx, input.CardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CardData `json:"body"`
		}{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-card-tag",
		Method:      http.MethodDelete,
		Path:        "/cards/{card_id}/tags/{tag}",
		Summary:     "Remove a tag",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CardID string `path:"card_id"`
		Tag    string `path:"tag"`
	}) (*struct {
		Body domain.CardData `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RemoveCardTag(ctx, input.CardID, input.Tag, actorID); err != nil {
			return nil, handleError(err)
		}
		card, err := e.Repo.GetCardData(ctx, input.CardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CardData `json:"body"`
		}{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "archive-card",
		Method:      http.MethodPost,
		Path:        "/cards/{card_id}/archive",
		Summary:     "Archive card",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CardID string `path:"card_id"`
	}) (*struct {
		Body domain.CardData `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.ArchiveCardByID(ctx, input.CardID, actorID); err != nil {
			return nil, handleError(err)
		}
		card, err := e.Repo.GetCardData(ctx, input.CardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CardData `json:"body"`
		}{Body: card}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-card-subtasks",
		Method:      http.MethodGet,
		Path:        "/cards/{card_id}/subtasks",
		Summary:     "List subtasks",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CardID string `path:"card_id"`
	}) (*struct {
		Body []domain.Subtask `json:"body"`
	}, error) {
		if _, err := e.Repo.GetCardData(ctx, input.CardID); err != nil {
			return nil, handleError(err)
		}
		subtasks, err := e.Repo.ListSubtasks(ctx, input.CardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Subtask `json:"body"`
		}{Body: subtasks}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-subtask",
		Method:      http.MethodPost,
		Path:        "/cards/{card_id}/subtasks/{subtask_id}/complete",
		Summary:     "Complete one subtask",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		CardID    string `path:"card_id"`
		SubtaskID string `path:"subtask_id"`
	}) (*struct {
		Body []domain.Subtask `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.CompleteSubtask(ctx, input.CardID, input.SubtaskID, actorID); err != nil {
			return nil, handleError(err)
		}
		subtasks, err := e.Repo.ListSubtasks(ctx, input.CardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Subtask `json:"body"`
		}{Body: subtasks}, nil
	})
}
