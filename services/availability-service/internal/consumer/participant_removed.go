package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"
)

// TopicParticipantRemoved is published by the event service when someone leaves an event.
const TopicParticipantRemoved = "event.participant.removed.v1"

type ParticipantRemoved struct {
	EventID       string `json:"event_id"`
	ParticipantID string `json:"participant_id"`
}

type RuleRemover interface {
	RemoveParticipant(ctx context.Context, eventID, participantID string) (int64, error)
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, eventID string) error
}

// ParticipantRemovedHandler drops the participant's rules and the event's cached heatmaps.
// Malformed payloads are logged and skipped; they would never succeed on retry.
func ParticipantRemovedHandler(logger *slog.Logger, rules RuleRemover, cache CacheInvalidator) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload ParticipantRemoved
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		payload.EventID = strings.TrimSpace(payload.EventID)
		payload.ParticipantID = strings.TrimSpace(payload.ParticipantID)
		if payload.EventID == "" || payload.ParticipantID == "" {
			logger.Error("missing required event fields", "topic", msg.Topic)
			return nil
		}

		n, err := rules.RemoveParticipant(ctx, payload.EventID, payload.ParticipantID)
		if err != nil {
			return err
		}
		if err := cache.Invalidate(ctx, payload.EventID); err != nil {
			logger.Warn("heatmap cache invalidation failed", "err", err, "event_id", payload.EventID)
		}
		logger.Info("participant rules removed", "event_id", payload.EventID, "participant_id", payload.ParticipantID, "rules", n)
		return nil
	}
}
