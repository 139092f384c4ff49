package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"factzap-service/internal/domain"
)

// ProfileStore is an in-memory implementation of app.ProfileStore, used by
// tests and when no Postgres URL is configured.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.UserProfile
	resets   domain.ScoreResetState
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: make(map[string]domain.UserProfile),
	}
}

func (s *ProfileStore) Get(_ context.Context, userID string) (domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[userID]
	if !ok {
		return domain.UserProfile{}, domain.ErrUserNotFound
	}
	return profile, nil
}

func (s *ProfileStore) Register(_ context.Context, profile domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.ID] = profile
	return nil
}

func (s *ProfileStore) MergeUpdate(_ context.Context, userID string, update domain.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if update.Name != nil {
		profile.Name = *update.Name
	}
	if update.Avatar != nil {
		profile.Avatar = *update.Avatar
	}
	if update.AllTimeScore != nil {
		profile.AllTimeScore = *update.AllTimeScore
	}
	if update.WeeklyScore != nil {
		profile.WeeklyScore = *update.WeeklyScore
	}
	if update.MonthlyScore != nil {
		profile.MonthlyScore = *update.MonthlyScore
	}
	if update.LastGameScore != nil {
		profile.LastGameScore = *update.LastGameScore
	}
	if update.DailyStreak != nil {
		profile.DailyStreak = *update.DailyStreak
	}
	if update.LastAttemptDate != nil {
		profile.LastAttemptDate = *update.LastAttemptDate
	}
	if update.FactCounter != nil {
		profile.FactCounter = *update.FactCounter
	}
	if update.Preferences != nil {
		profile.Preferences = *update.Preferences
	}
	if update.SavedFacts != nil {
		profile.SavedFacts = append([]domain.SavedFact(nil), update.SavedFacts...)
	}
	if update.Achievements != nil {
		profile.Achievements = append([]domain.Achievement(nil), update.Achievements...)
	}
	s.profiles[userID] = profile
	return nil
}

func (s *ProfileStore) ListAll(_ context.Context, field domain.ScoreField) ([]domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := scoreFor(out[i], field), scoreFor(out[j], field)
		if si != sj {
			return si > sj
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *ProfileStore) ResetState(_ context.Context) (domain.ScoreResetState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resets, nil
}

func (s *ProfileStore) InitializeResetState(_ context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets = domain.ScoreResetState{LastWeeklyReset: &now, LastMonthlyReset: &now}
	return nil
}

func (s *ProfileStore) ResetScores(_ context.Context, weekly, monthly bool, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range s.profiles {
		if weekly {
			p.WeeklyScore = 0
		}
		if monthly {
			p.MonthlyScore = 0
		}
		s.profiles[id] = p
	}
	if weekly {
		t := now
		s.resets.LastWeeklyReset = &t
	}
	if monthly {
		t := now
		s.resets.LastMonthlyReset = &t
	}
	return nil
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
