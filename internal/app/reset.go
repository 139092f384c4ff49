package app

import (
	"context"
	"log"
	"time"
)

// ResetService zeroes weekly and monthly scores once their period elapses.
// The check runs before every leaderboard read so stale pre-reset scores are
// never displayed.
type ResetService struct {
	profiles ProfileStore
	now      func() time.Time
}

func NewResetService(profiles ProfileStore) *ResetService {
	return NewResetServiceWithClock(profiles, time.Now)
}

// NewResetServiceWithClock allows deterministic reset decisions in tests.
func NewResetServiceWithClock(profiles ProfileStore, now func() time.Time) *ResetService {
	return &ResetService{profiles: profiles, now: now}
}

// CheckAndReset decides whether the weekly or monthly scores are due for a
// reset and performs it in a single transaction: zeroed score fields and the
// advanced timestamps are observed together or not at all. Store failures
// never block the caller; the check simply runs again next time.
func (s *ResetService) CheckAndReset(ctx context.Context) {
	now := s.now()

	state, err := s.profiles.ResetState(ctx)
	if err != nil {
		log.Printf("score reset check skipped: %v", err)
		return
	}

	needsWeekly := state.LastWeeklyReset == nil || weeksBetween(*state.LastWeeklyReset, now) >= 1
	needsMonthly := state.LastMonthlyReset == nil || monthsBetween(*state.LastMonthlyReset, now) >= 1
	if !needsWeekly && !needsMonthly {
		return
	}

	if err := s.profiles.ResetScores(ctx, needsWeekly, needsMonthly, now); err != nil {
		log.Printf("score reset failed, will retry on next check: %v", err)
	}
}

// InitializeState seeds both reset timestamps to now. Meant for first boot.
func (s *ResetService) InitializeState(ctx context.Context) error {
	return s.profiles.InitializeResetState(ctx, s.now())
}

// weeksBetween counts whole elapsed weeks between two instants.
func weeksBetween(earlier, later time.Time) int {
	return int(later.Sub(earlier) / (7 * 24 * time.Hour))
}

// monthsBetween counts the calendar month difference, not elapsed days, so a
// monthly reset is due exactly once every time the month number changes.
func monthsBetween(earlier, later time.Time) int {
	yearDiff := later.Year() - earlier.Year()
	monthDiff := int(later.Month()) - int(earlier.Month())
	return yearDiff*12 + monthDiff
}
