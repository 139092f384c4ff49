package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"factzap-service/internal/domain"
)

// Achievement catalog IDs.
const (
	AchievementPerfectScore  = "perfect_score"
	AchievementDailyChampion = "daily_champion"
	AchievementTopThree      = "top_three"
)

// Catalog returns the fixed set of achievement definitions, all locked.
func Catalog() []domain.Achievement {
	return []domain.Achievement{
		{
			ID:          AchievementPerfectScore,
			Title:       "Perfect Score",
			Description: "Get all questions right in a quiz",
			Icon:        "ic_trophy",
		},
		{
			ID:          AchievementDailyChampion,
			Title:       "Daily Champion",
			Description: "Complete a daily quiz",
			Icon:        "ic_calendar",
		},
		{
			ID:          AchievementTopThree,
			Title:       "Leaderboard Elite",
			Description: "Place in the top 3 of any leaderboard",
			Icon:        "ic_medal",
		},
	}
}

// Notifier surfaces user-visible achievement notifications. Implementations
// must tolerate being called from request goroutines.
type Notifier interface {
	Notify(userID, message string)
}

// LogNotifier writes notifications to the process log. Used when no client
// channel is attached.
type LogNotifier struct{}

func (LogNotifier) Notify(userID, message string) {
	log.Printf("notify %s: %s", userID, message)
}

// AchievementEvaluator decides which achievements newly unlock from quiz
// outcome facts and records them idempotently.
type AchievementEvaluator struct {
	profiles ProfileStore
	notifier Notifier
	now      func() time.Time
}

func NewAchievementEvaluator(profiles ProfileStore, notifier Notifier) *AchievementEvaluator {
	return NewAchievementEvaluatorWithClock(profiles, notifier, time.Now)
}

// NewAchievementEvaluatorWithClock allows deterministic unlock timestamps in tests.
func NewAchievementEvaluatorWithClock(profiles ProfileStore, notifier Notifier, now func() time.Time) *AchievementEvaluator {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &AchievementEvaluator{profiles: profiles, notifier: notifier, now: now}
}

// CheckQuizCompletion unlocks Perfect Score for an all-correct quiz.
// Single-question daily sessions are excluded: a lone correct answer does not
// count as a perfect run.
func (e *AchievementEvaluator) CheckQuizCompletion(ctx context.Context, userID string, totalQuestions, correctAnswers int) ([]domain.Achievement, error) {
	if totalQuestions > 1 && totalQuestions == correctAnswers {
		return e.unlock(ctx, userID, AchievementPerfectScore)
	}
	return nil, nil
}

// CheckDailyCompletion unlocks Daily Champion whenever a daily session
// completes, regardless of correctness.
func (e *AchievementEvaluator) CheckDailyCompletion(ctx context.Context, userID string) ([]domain.Achievement, error) {
	return e.unlock(ctx, userID, AchievementDailyChampion)
}

// CheckLeaderboardPosition unlocks Leaderboard Elite for a top-3 rank.
func (e *AchievementEvaluator) CheckLeaderboardPosition(ctx context.Context, userID string, rank int) ([]domain.Achievement, error) {
	if rank <= 3 {
		return e.unlock(ctx, userID, AchievementTopThree)
	}
	return nil, nil
}

// unlock records the achievement for the user unless it is already unlocked.
// Already-unlocked records keep their original UnlockedAt and are never
// re-notified.
func (e *AchievementEvaluator) unlock(ctx context.Context, userID, achievementID string) ([]domain.Achievement, error) {
	definition, ok := catalogByID(achievementID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown achievement %q", domain.ErrInvalidInput, achievementID)
	}

	profile, err := e.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	current := append([]domain.Achievement(nil), profile.Achievements...)
	index := -1
	for i := range current {
		if current[i].ID == achievementID {
			index = i
			break
		}
	}
	if index >= 0 && current[index].Unlocked {
		return nil, nil
	}

	unlockedAt := e.now()
	definition.Unlocked = true
	definition.UnlockedAt = &unlockedAt
	if index >= 0 {
		current[index] = definition
	} else {
		current = append(current, definition)
	}

	if err := e.profiles.MergeUpdate(ctx, userID, domain.ProfileUpdate{Achievements: current}); err != nil {
		return nil, err
	}

	e.notifier.Notify(userID, "Achievement Unlocked: "+definition.Title)
	return []domain.Achievement{definition}, nil
}

func catalogByID(id string) (domain.Achievement, bool) {
	for _, a := range Catalog() {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Achievement{}, false
}
