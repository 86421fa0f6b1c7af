package notifications

import (
	"context"
	"encoding/json"

	"taskhub/internal/broker"
)

// Command payloads for the notifications queue

type findPayload struct {
	UserID string `json:"userId"`
	Page   int    `json:"page"`
	Size   int    `json:"size"`
	Read   *bool  `json:"read,omitempty"`
}

type countPayload struct {
	UserID string `json:"userId"`
}

type markAsReadPayload struct {
	UserID          string   `json:"userId"`
	NotificationIDs []string `json:"notificationIds,omitempty"`
}

// RegisterRPC binds the pull-side commands to the service
func RegisterRPC(srv *broker.Server, svc *Service) {
	srv.Handle("get-notifications", func(ctx context.Context, data json.RawMessage) (any, error) {
		var payload findPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, broker.NewBadRequest("invalid get-notifications payload")
		}
		return svc.FindByUser(ctx, payload.UserID, payload.Page, payload.Size, payload.Read)
	})

	srv.Handle("count-unread", func(ctx context.Context, data json.RawMessage) (any, error) {
		var payload countPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, broker.NewBadRequest("invalid count-unread payload")
		}
		count, err := svc.CountUnread(ctx, payload.UserID)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"count": count}, nil
	})

	srv.Handle("mark-as-read", func(ctx context.Context, data json.RawMessage) (any, error) {
		var payload markAsReadPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, broker.NewBadRequest("invalid mark-as-read payload")
		}
		if err := svc.MarkAsRead(ctx, payload.UserID, payload.NotificationIDs); err != nil {
			return nil, err
		}
		return map[string]string{"message": "Notifications marked as read"}, nil
	})
}
