package app

import (
	"context"
	"time"

	"factzap-service/internal/domain"
)

// FactProvider fetches one random fact from the external fact API.
type FactProvider interface {
	Fact(ctx context.Context) (string, error)
}

// FactService hands out numbered random facts and pins them to profiles.
type FactService struct {
	provider FactProvider
	profiles ProfileStore
	now      func() time.Time
}

func NewFactService(provider FactProvider, profiles ProfileStore) *FactService {
	return NewFactServiceWithClock(provider, profiles, time.Now)
}

// NewFactServiceWithClock allows deterministic saved dates in tests.
func NewFactServiceWithClock(provider FactProvider, profiles ProfileStore, now func() time.Time) *FactService {
	return &FactService{provider: provider, profiles: profiles, now: now}
}

// RandomFact fetches a fact and assigns it the user's next fact number. The
// counter lives on the profile and only ever increments.
func (s *FactService) RandomFact(ctx context.Context, userID string) (domain.SavedFact, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return domain.SavedFact{}, err
	}

	fact, err := s.provider.Fact(ctx)
	if err != nil {
		return domain.SavedFact{}, err
	}

	number := profile.FactCounter + 1
	if err := s.profiles.MergeUpdate(ctx, userID, domain.ProfileUpdate{FactCounter: &number}); err != nil {
		return domain.SavedFact{}, err
	}
	return domain.SavedFact{Number: number, Text: fact}, nil
}

// SaveFact appends a fact to the user's saved list with today's date.
func (s *FactService) SaveFact(ctx context.Context, userID string, number int, text string) error {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}

	saved := append(append([]domain.SavedFact(nil), profile.SavedFacts...), domain.SavedFact{
		Number:    number,
		Text:      text,
		SavedDate: s.now().Format(dateLayout),
	})
	return s.profiles.MergeUpdate(ctx, userID, domain.ProfileUpdate{SavedFacts: saved})
}
