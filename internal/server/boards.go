package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"boardflow/internal/domain"
	"boardflow/internal/engine"
)

type CreateBoardRequest struct {
	Name    string          `json:"name" minLength:"1"`
	Columns []domain.Column `json:"columns,omitempty"`
}

func registerBoards(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-board",
		Method:        http.MethodPost,
		Path:          "/boards",
		Summary:       "Create board",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateBoardRequest `json:"body"`
	}) (*struct {
		Body domain.BoardData `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		b, err := e.CreateBoard(ctx, input.Body.Name, input.Body.Columns)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.BoardData `json:"body"`
		}{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-boards",
		Method:      http.MethodGet,
		Path:        "/boards",
		Summary:     "List boards",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.BoardData `json:"body"`
	}, error) {
		items, err := e.Repo.ListBoards(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.BoardData `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/boards/{board_id}",
		Summary:     "Get board",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BoardID string `path:"board_id"`
	}) (*struct {
		Body domain.BoardData `json:"body"`
	}, error) {
		b, err := e.Repo.GetBoardData(ctx, input.BoardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.BoardData `json:"body"`
		}{Body: b}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-board-cards",
		Method:      http.MethodGet,
		Path:        "/boards/{board_id}/cards",
		Summary:     "List cards on a board",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BoardID string `path:"board_id"`
	}) (*struct {
		Body []domain.CardData `json:"body"`
	}, error) {
		if _, err := e.Repo.GetBoardData(ctx, input.BoardID); err != nil {
			return nil, handleError(err)
		}
		cards, err := e.Repo.ListCards(ctx, input.BoardID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.CardData `json:"body"`
		}{Body: cards}, nil
	})
}

type CreateUserRequest struct {
	Name  string `json:"name" minLength:"1"`
	Email string `json:"email,omitempty" format:"email"`
}

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Create user",
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *struct {
		Body CreateUserRequest `json:"body"`
	}) (*struct {
		Body domain.CardUser `json:"body"`
	}, error) {
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		u, err := e.CreateUser(ctx, input.Body.Name, input.Body.Email)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.CardUser `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-users",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.CardUser `json:"body"`
	}, error) {
		items, err := e.Repo.ListUsers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.CardUser `json:"body"`
		}{Body: items}, nil
	})
}
