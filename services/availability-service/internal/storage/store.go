package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/meetsync/libs/db"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/model"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/outbox"
)

// Store pairs every rule write with its outbox event in one transaction.
type Store struct {
	pool   *db.Pool
	rules  *RuleRepository
	outbox *outbox.Repository
}

func NewStore(pool *db.Pool, rules *RuleRepository, outboxRepo *outbox.Repository) *Store {
	return &Store{pool: pool, rules: rules, outbox: outboxRepo}
}

func (s *Store) ListRules(ctx context.Context, eventID, participantID string) ([]model.Rule, error) {
	return s.rules.ListRules(ctx, eventID, participantID)
}

func (s *Store) ListRulesByEvent(ctx context.Context, eventID string) (map[string][]model.Rule, error) {
	return s.rules.ListRulesByEvent(ctx, eventID)
}

func (s *Store) SaveRules(ctx context.Context, eventID, participantID string, mode model.Mode, rules []model.Rule) ([]string, error) {
	var ids []string
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		ids, err = s.rules.SaveRules(ctx, tx, eventID, participantID, mode, rules)
		if err != nil {
			return err
		}
		return s.emit(ctx, tx, outbox.RulesChanged{
			EventID:       eventID,
			ParticipantID: participantID,
			Action:        "saved_" + string(mode),
			RuleIDs:       ids,
		})
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) DeleteRule(ctx context.Context, eventID, ruleID string) error {
	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		participantID, err := s.rules.DeleteRule(ctx, tx, eventID, ruleID)
		if err != nil {
			return err
		}
		return s.emit(ctx, tx, outbox.RulesChanged{
			EventID:       eventID,
			ParticipantID: participantID,
			Action:        "deleted",
			RuleIDs:       []string{ruleID},
		})
	})
}

// RemoveParticipant drops all of a participant's rules for an event. Nothing is emitted when the
// participant had no rules.
func (s *Store) RemoveParticipant(ctx context.Context, eventID, participantID string) (int64, error) {
	var n int64
	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		n, err = s.rules.DeleteParticipantRules(ctx, tx, eventID, participantID)
		if err != nil || n == 0 {
			return err
		}
		return s.emit(ctx, tx, outbox.RulesChanged{
			EventID:       eventID,
			ParticipantID: participantID,
			Action:        "participant_removed",
		})
	})
	return n, err
}

func (s *Store) emit(ctx context.Context, tx pgx.Tx, payload outbox.RulesChanged) error {
	evt, err := outbox.NewRulesChanged(payload)
	if err != nil {
		return err
	}
	_, err = s.outbox.Insert(ctx, tx, evt)
	return err
}
