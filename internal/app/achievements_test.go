package app_test

import (
	"context"
	"testing"

	"factzap-service/internal/app"
	"factzap-service/internal/domain"
	"factzap-service/internal/infra/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Notify(_, message string) {
	n.messages = append(n.messages, message)
}

func newEvaluatorEnv(t *testing.T) (*app.AchievementEvaluator, *memory.ProfileStore, *recordingNotifier) {
	t.Helper()
	profiles := memory.NewProfileStore()
	require.NoError(t, profiles.Register(context.Background(), domain.UserProfile{ID: "u1", Name: "Alice"}))
	notifier := &recordingNotifier{}
	return app.NewAchievementEvaluatorWithClock(profiles, notifier, testClock), profiles, notifier
}

func TestPerfectScoreUnlock(t *testing.T) {
	ctx := context.Background()
	evaluator, profiles, notifier := newEvaluatorEnv(t)

	unlocked, err := evaluator.CheckQuizCompletion(ctx, "u1", 5, 5)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, app.AchievementPerfectScore, unlocked[0].ID)
	assert.True(t, unlocked[0].Unlocked)
	require.NotNil(t, unlocked[0].UnlockedAt)
	assert.Equal(t, testClock(), *unlocked[0].UnlockedAt)
	assert.Equal(t, []string{"Achievement Unlocked: Perfect Score"}, notifier.messages)

	profile, err := profiles.Get(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, profile.Achievements, 1)

	// A second perfect run does not re-unlock or re-notify.
	unlocked, err = evaluator.CheckQuizCompletion(ctx, "u1", 10, 10)
	require.NoError(t, err)
	assert.Empty(t, unlocked)
	assert.Len(t, notifier.messages, 1)
}

func TestPerfectScoreNeedsMoreThanOneQuestion(t *testing.T) {
	ctx := context.Background()
	evaluator, _, _ := newEvaluatorEnv(t)

	unlocked, err := evaluator.CheckQuizCompletion(ctx, "u1", 1, 1)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	unlocked, err = evaluator.CheckQuizCompletion(ctx, "u1", 5, 4)
	require.NoError(t, err)
	assert.Empty(t, unlocked)
}

func TestLeaderboardEliteUnlock(t *testing.T) {
	ctx := context.Background()
	evaluator, _, _ := newEvaluatorEnv(t)

	unlocked, err := evaluator.CheckLeaderboardPosition(ctx, "u1", 4)
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	unlocked, err = evaluator.CheckLeaderboardPosition(ctx, "u1", 3)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, app.AchievementTopThree, unlocked[0].ID)
}

func TestAchievementUnknownUser(t *testing.T) {
	ctx := context.Background()
	evaluator, _, _ := newEvaluatorEnv(t)

	_, err := evaluator.CheckDailyCompletion(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
