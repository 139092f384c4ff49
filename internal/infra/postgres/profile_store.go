package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"factzap-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ProfileStore persists user profiles in Postgres. Document-ish fields
// (preferences, saved facts, achievements) live in JSONB columns; score
// fields are plain integers so the leaderboard ordering happens in SQL.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

const profileColumns = `id, name, avatar, all_time_score, weekly_score, monthly_score,
	last_game_score, daily_streak, last_attempt_date, join_date, fact_counter,
	preferences, saved_facts, achievements`

func (s *ProfileStore) Get(ctx context.Context, userID string) (domain.UserProfile, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id=$1`, userID)
	profile, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserProfile{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

// Register inserts the profile if absent. Existing rows are left untouched:
// first registration is the only full write.
func (s *ProfileStore) Register(ctx context.Context, p domain.UserProfile) error {
	prefs, facts, achievements, err := marshalDocs(p.Preferences, p.SavedFacts, p.Achievements)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO NOTHING`,
		p.ID, p.Name, p.Avatar, p.AllTimeScore, p.WeeklyScore, p.MonthlyScore,
		p.LastGameScore, p.DailyStreak, p.LastAttemptDate, p.JoinDate, p.FactCounter,
		prefs, facts, achievements)
	if err != nil {
		return fmt.Errorf("register profile: %w", err)
	}
	return nil
}

// MergeUpdate writes only the fields present in the update.
func (s *ProfileStore) MergeUpdate(ctx context.Context, userID string, update domain.ProfileUpdate) error {
	set := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, column+"=$"+strconv.Itoa(len(args)))
	}

	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Avatar != nil {
		add("avatar", *update.Avatar)
	}
	if update.AllTimeScore != nil {
		add("all_time_score", *update.AllTimeScore)
	}
	if update.WeeklyScore != nil {
		add("weekly_score", *update.WeeklyScore)
	}
	if update.MonthlyScore != nil {
		add("monthly_score", *update.MonthlyScore)
	}
	if update.LastGameScore != nil {
		add("last_game_score", *update.LastGameScore)
	}
	if update.DailyStreak != nil {
		add("daily_streak", *update.DailyStreak)
	}
	if update.LastAttemptDate != nil {
		add("last_attempt_date", *update.LastAttemptDate)
	}
	if update.FactCounter != nil {
		add("fact_counter", *update.FactCounter)
	}
	if update.Preferences != nil {
		data, err := json.Marshal(update.Preferences)
		if err != nil {
			return fmt.Errorf("marshal preferences: %w", err)
		}
		add("preferences", data)
	}
	if update.SavedFacts != nil {
		data, err := json.Marshal(update.SavedFacts)
		if err != nil {
			return fmt.Errorf("marshal saved facts: %w", err)
		}
		add("saved_facts", data)
	}
	if update.Achievements != nil {
		data, err := json.Marshal(update.Achievements)
		if err != nil {
			return fmt.Errorf("marshal achievements: %w", err)
		}
		add("achievements", data)
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, userID)
	query := "UPDATE profiles SET "
	for i, clause := range set {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += " WHERE id=$" + strconv.Itoa(len(args))

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("merge update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *ProfileStore) ListAll(ctx context.Context, field domain.ScoreField) ([]domain.UserProfile, error) {
	column, err := scoreColumn(field)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY `+column+` DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []domain.UserProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, profile)
	}
	return out, rows.Err()
}

func (s *ProfileStore) ResetState(ctx context.Context) (domain.ScoreResetState, error) {
	var state domain.ScoreResetState
	err := s.pool.QueryRow(ctx, `SELECT last_weekly_reset, last_monthly_reset FROM score_resets WHERE id=1`).
		Scan(&state.LastWeeklyReset, &state.LastMonthlyReset)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScoreResetState{}, nil
	}
	if err != nil {
		return domain.ScoreResetState{}, fmt.Errorf("load reset state: %w", err)
	}
	return state, nil
}

func (s *ProfileStore) InitializeResetState(ctx context.Context, now time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO score_resets (id, last_weekly_reset, last_monthly_reset)
		VALUES (1, $1, $1)
		ON CONFLICT (id) DO UPDATE SET last_weekly_reset=$1, last_monthly_reset=$1`, now)
	if err != nil {
		return fmt.Errorf("initialize reset state: %w", err)
	}
	return nil
}

// ResetScores zeroes the due score columns for every profile and advances
// the matching timestamps inside one transaction, so readers never observe
// zeroed scores next to a stale timestamp.
func (s *ProfileStore) ResetScores(ctx context.Context, weekly, monthly bool, now time.Time) error {
	if !weekly && !monthly {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback(ctx)

	if weekly {
		if _, err := tx.Exec(ctx, `UPDATE profiles SET weekly_score=0`); err != nil {
			return fmt.Errorf("reset weekly scores: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO score_resets (id, last_weekly_reset) VALUES (1, $1)
			ON CONFLICT (id) DO UPDATE SET last_weekly_reset=$1`, now); err != nil {
			return fmt.Errorf("advance weekly reset: %w", err)
		}
	}
	if monthly {
		if _, err := tx.Exec(ctx, `UPDATE profiles SET monthly_score=0`); err != nil {
			return fmt.Errorf("reset monthly scores: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO score_resets (id, last_monthly_reset) VALUES (1, $1)
			ON CONFLICT (id) DO UPDATE SET last_monthly_reset=$1`, now); err != nil {
			return fmt.Errorf("advance monthly reset: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func scoreColumn(field domain.ScoreField) (string, error) {
	switch field {
	case domain.AllTimeScore:
		return "all_time_score", nil
	case domain.WeeklyScore:
		return "weekly_score", nil
	case domain.MonthlyScore:
		return "monthly_score", nil
	}
	return "", fmt.Errorf("%w: unknown score field %q", domain.ErrInvalidInput, field)
}

func scanProfile(row pgx.Row) (domain.UserProfile, error) {
	var p domain.UserProfile
	var prefs, facts, achievements []byte
	err := row.Scan(&p.ID, &p.Name, &p.Avatar, &p.AllTimeScore, &p.WeeklyScore, &p.MonthlyScore,
		&p.LastGameScore, &p.DailyStreak, &p.LastAttemptDate, &p.JoinDate, &p.FactCounter,
		&prefs, &facts, &achievements)
	if err != nil {
		return domain.UserProfile{}, err
	}
	if err := json.Unmarshal(prefs, &p.Preferences); err != nil {
		return domain.UserProfile{}, fmt.Errorf("unmarshal preferences: %w", err)
	}
	if err := json.Unmarshal(facts, &p.SavedFacts); err != nil {
		return domain.UserProfile{}, fmt.Errorf("unmarshal saved facts: %w", err)
	}
	if err := json.Unmarshal(achievements, &p.Achievements); err != nil {
		return domain.UserProfile{}, fmt.Errorf("unmarshal achievements: %w", err)
	}
	return p, nil
}

func marshalDocs(prefs domain.Preferences, facts []domain.SavedFact, achievements []domain.Achievement) ([]byte, []byte, []byte, error) {
	prefsData, err := json.Marshal(prefs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal preferences: %w", err)
	}
	if facts == nil {
		facts = []domain.SavedFact{}
	}
	factsData, err := json.Marshal(facts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal saved facts: %w", err)
	}
	if achievements == nil {
		achievements = []domain.Achievement{}
	}
	achievementsData, err := json.Marshal(achievements)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal achievements: %w", err)
	}
	return prefsData, factsData, achievementsData, nil
}
