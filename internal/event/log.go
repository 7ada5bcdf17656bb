package event

import "log/slog"

// LogSubscriber drains a subscription channel into the structured log and
// returns once the channel is closed by its unsubscribe function.
func LogSubscriber(logger *slog.Logger, events <-chan Event) {
	for e := range events {
		logger.Info("recovery event",
			"type", string(e.Type),
			"event_id", e.ID,
			"actor_id", e.ActorID,
			"occurred_at", e.Timestamp)
	}
}
