package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/meetsync/libs/db"
	"github.com/md-rashed-zaman/meetsync/services/availability-service/internal/model"
)

var ErrNotFound = errors.New("not found")

type RuleRepository struct {
	pool *db.Pool
}

func NewRuleRepository(pool *db.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

const ruleColumns = `
	id::text, event_id, participant_id, rule_type, day_of_week, specific_date, start_time, end_time,
	original_timezone, original_day_of_week, original_date, crosses_midnight, end_of_day, reason, source, created_at`

func (r *RuleRepository) ListRules(ctx context.Context, eventID, participantID string) ([]model.Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE event_id = $1 AND participant_id = $2
		ORDER BY created_at, id
	`, eventID, participantID)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

// ListRulesByEvent groups every rule of the event by participant.
func (r *RuleRepository) ListRulesByEvent(ctx context.Context, eventID string) (map[string][]model.Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE event_id = $1
		ORDER BY participant_id, created_at, id
	`, eventID)
	if err != nil {
		return nil, err
	}
	rules, err := collectRules(rows)
	if err != nil {
		return nil, err
	}
	out := map[string][]model.Rule{}
	for _, rule := range rules {
		out[rule.ParticipantID] = append(out[rule.ParticipantID], rule)
	}
	return out, nil
}

func collectRules(rows pgx.Rows) ([]model.Rule, error) {
	defer rows.Close()

	rules := []model.Rule{}
	for rows.Next() {
		var (
			rule         model.Rule
			specificDate *string
			originalDate *string
		)
		if err := rows.Scan(
			&rule.ID,
			&rule.EventID,
			&rule.ParticipantID,
			&rule.RuleType,
			&rule.DayOfWeek,
			&specificDate,
			&rule.StartTime,
			&rule.EndTime,
			&rule.OriginalTimezone,
			&rule.OriginalDayOfWeek,
			&originalDate,
			&rule.CrossesMidnight,
			&rule.EndOfDay,
			&rule.Reason,
			&rule.Source,
			&rule.CreatedAt,
		); err != nil {
			return nil, err
		}
		rule.SpecificDate = deref(specificDate)
		rule.OriginalDate = deref(originalDate)
		rules = append(rules, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rules, nil
}

const insertRuleSQL = `
	INSERT INTO availability_rules
		(id, event_id, participant_id, rule_type, day_of_week, specific_date, start_time, end_time,
		 original_timezone, original_day_of_week, original_date, crosses_midnight, end_of_day, reason, source)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

// SaveRules inserts rules for one participant, serialized against other writes for that participant.
// In replace mode the participant's existing patterns are dropped when patterns are submitted, and
// existing overrides are dropped for every local date an override is submitted for. Stored rules are
// never updated in place.
func (r *RuleRepository) SaveRules(ctx context.Context, tx pgx.Tx, eventID, participantID string, mode model.Mode, rules []model.Rule) ([]string, error) {
	if err := db.LockKey(ctx, tx, "availability:"+eventID+":"+participantID); err != nil {
		return nil, err
	}
	if mode == model.ModeReplace {
		if err := replaceExisting(ctx, tx, eventID, participantID, rules); err != nil {
			return nil, err
		}
	}

	batch := &pgx.Batch{}
	ids := make([]string, 0, len(rules))
	for _, rule := range rules {
		id := uuid.NewString()
		batch.Queue(insertRuleSQL, id, eventID, participantID, string(rule.RuleType), rule.DayOfWeek, nullable(rule.SpecificDate),
			rule.StartTime, rule.EndTime, rule.OriginalTimezone, rule.OriginalDayOfWeek, nullable(rule.OriginalDate),
			rule.CrossesMidnight, rule.EndOfDay, rule.Reason, rule.Source)
		ids = append(ids, id)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, err
	}
	return ids, nil
}

func replaceExisting(ctx context.Context, tx pgx.Tx, eventID, participantID string, rules []model.Rule) error {
	hasPatterns := false
	var dates []string
	seen := map[string]bool{}
	for _, rule := range rules {
		if rule.RuleType.IsPattern() {
			hasPatterns = true
			continue
		}
		date := rule.OriginalDate
		if date == "" {
			date = rule.SpecificDate
		}
		if !seen[date] {
			seen[date] = true
			dates = append(dates, date)
		}
	}

	if hasPatterns {
		if _, err := tx.Exec(ctx, `
			DELETE FROM availability_rules
			WHERE event_id = $1 AND participant_id = $2 AND day_of_week IS NOT NULL
		`, eventID, participantID); err != nil {
			return err
		}
	}
	if len(dates) > 0 {
		if _, err := tx.Exec(ctx, `
			DELETE FROM availability_rules
			WHERE event_id = $1 AND participant_id = $2 AND specific_date IS NOT NULL
				AND COALESCE(original_date, specific_date) = ANY($3)
		`, eventID, participantID, dates); err != nil {
			return err
		}
	}
	return nil
}

// DeleteRule removes one rule and returns the participant it belonged to.
func (r *RuleRepository) DeleteRule(ctx context.Context, tx pgx.Tx, eventID, ruleID string) (string, error) {
	if _, err := uuid.Parse(ruleID); err != nil {
		return "", ErrNotFound
	}
	var participantID string
	err := tx.QueryRow(ctx, `
		DELETE FROM availability_rules
		WHERE event_id = $1 AND id = $2
		RETURNING participant_id
	`, eventID, ruleID).Scan(&participantID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return participantID, err
}

func (r *RuleRepository) DeleteParticipantRules(ctx context.Context, tx pgx.Tx, eventID, participantID string) (int64, error) {
	tag, err := tx.Exec(ctx, `
		DELETE FROM availability_rules
		WHERE event_id = $1 AND participant_id = $2
	`, eventID, participantID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
