package app

import (
	"context"
	"fmt"
	"time"

	"factzap-service/internal/domain"
)

// LeaderboardService orders profiles by a chosen score field and resolves
// 1-based user ranks.
type LeaderboardService struct {
	profiles ProfileStore
	resets   *ResetService
	now      func() time.Time
}

func NewLeaderboardService(profiles ProfileStore, resets *ResetService) *LeaderboardService {
	return NewLeaderboardServiceWithClock(profiles, resets, time.Now)
}

// NewLeaderboardServiceWithClock allows deterministic timestamps in tests.
func NewLeaderboardServiceWithClock(profiles ProfileStore, resets *ResetService, now func() time.Time) *LeaderboardService {
	return &LeaderboardService{profiles: profiles, resets: resets, now: now}
}

// Leaderboard returns the score-descending display list for one field. The
// periodic reset check runs first so a stale pre-reset board is never shown;
// a failed check degrades to the current scores rather than blocking.
// Equal scores order by user ID ascending, a deterministic tie-break.
func (s *LeaderboardService) Leaderboard(ctx context.Context, field domain.ScoreField) (domain.Leaderboard, error) {
	if !field.Valid() {
		return domain.Leaderboard{}, fmt.Errorf("%w: unknown score field %q", domain.ErrInvalidInput, field)
	}
	s.resets.CheckAndReset(ctx)

	profiles, err := s.profiles.ListAll(ctx, field)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(profiles))
	for _, p := range profiles {
		entries = append(entries, domain.LeaderboardEntry{
			UserID: p.ID,
			Name:   p.Name,
			Avatar: p.Avatar,
			Score:  scoreFor(p, field),
		})
	}
	return domain.Leaderboard{Field: field, Entries: entries, UpdatedAt: s.now()}, nil
}

// Rank scans the ordered board from rank 1 and returns the user's 1-based
// position. An absent user is a lookup failure, never "last place plus one".
func (s *LeaderboardService) Rank(ctx context.Context, userID string, field domain.ScoreField) (int, error) {
	if !field.Valid() {
		return 0, fmt.Errorf("%w: unknown score field %q", domain.ErrInvalidInput, field)
	}

	profiles, err := s.profiles.ListAll(ctx, field)
	if err != nil {
		return 0, err
	}
	for i, p := range profiles {
		if p.ID == userID {
			return i + 1, nil
		}
	}
	return 0, domain.ErrUserNotFound
}

func scoreFor(p domain.UserProfile, field domain.ScoreField) int {
	switch field {
	case domain.WeeklyScore:
		return p.WeeklyScore
	case domain.MonthlyScore:
		return p.MonthlyScore
	default:
		return p.AllTimeScore
	}
}
