package auth

import (
	"context"
	"encoding/json"

	"taskhub/internal/broker"
)

type findByIDsPayload struct {
	UserIDs []string `json:"userIds"`
}

// RegisterRPC binds every auth command pattern to the service
func RegisterRPC(srv *broker.Server, svc *Service) {
	srv.Handle("register", func(ctx context.Context, data json.RawMessage) (any, error) {
		var input RegisterInput
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, broker.NewBadRequest("Invalid payload")
		}
		return svc.Register(ctx, input)
	})

	srv.Handle("login", func(ctx context.Context, data json.RawMessage) (any, error) {
		var input LoginInput
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, broker.NewBadRequest("Invalid payload")
		}
		return svc.Login(ctx, input)
	})

	srv.Handle("refresh", func(ctx context.Context, data json.RawMessage) (any, error) {
		var input RefreshInput
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, broker.NewBadRequest("Invalid payload")
		}
		return svc.Refresh(ctx, input)
	})

	srv.Handle("validate-user", func(ctx context.Context, data json.RawMessage) (any, error) {
		var input LoginInput
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, broker.NewBadRequest("Invalid payload")
		}
		return svc.ValidateUser(ctx, input)
	})

	srv.Handle("find-all-users", func(ctx context.Context, data json.RawMessage) (any, error) {
		return svc.FindAll(ctx)
	})

	srv.Handle("find-users-by-ids", func(ctx context.Context, data json.RawMessage) (any, error) {
		var p findByIDsPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, broker.NewBadRequest("Invalid payload")
		}
		return svc.FindByIDs(ctx, p.UserIDs)
	})
}
