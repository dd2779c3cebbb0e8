package service

import (
	"context"

	"github.com/pizzeria/api/internal/ws"
	"go.uber.org/zap"
)

// emit publishes an event to each room. Delivery failures are logged and
// never fail the request that caused them.
func emit(ctx context.Context, pub ws.Publisher, eventType string, payload interface{}, rooms ...string) {
	if pub == nil {
		return
	}
	ev, err := ws.NewEvent(eventType, payload)
	if err != nil {
		zap.L().Error("marshal realtime event", zap.String("type", eventType), zap.Error(err))
		return
	}
	for _, room := range rooms {
		if err := pub.Publish(ctx, room, ev); err != nil {
			zap.L().Warn("publish realtime event",
				zap.String("type", eventType),
				zap.String("room", room),
				zap.Error(err),
			)
		}
	}
}
