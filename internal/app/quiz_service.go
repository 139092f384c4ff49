package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"factzap-service/internal/domain"
	"github.com/google/uuid"
)

// ProfileStore abstracts the user-profile document store. The core never
// issues query shapes beyond these.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (domain.UserProfile, error)
	// Register performs the one allowed full overwrite: first registration.
	Register(ctx context.Context, profile domain.UserProfile) error
	// MergeUpdate writes only the non-nil fields of the update.
	MergeUpdate(ctx context.Context, userID string, update domain.ProfileUpdate) error
	// ListAll returns every profile ordered by field descending, ties broken
	// by user ID ascending.
	ListAll(ctx context.Context, field domain.ScoreField) ([]domain.UserProfile, error)
	ResetState(ctx context.Context) (domain.ScoreResetState, error)
	InitializeResetState(ctx context.Context, now time.Time) error
	// ResetScores zeroes the due score fields for every profile and advances
	// the matching timestamps, atomically.
	ResetScores(ctx context.Context, weekly, monthly bool, now time.Time) error
}

// QuestionProvider fetches trivia questions from the external content API.
type QuestionProvider interface {
	FetchQuestions(ctx context.Context, params domain.QuizParams) ([]domain.Question, error)
}

// DailyQuestionSource serves the shared question of the day. Implementations
// cache per calendar date so every user sees the same question.
type DailyQuestionSource interface {
	DailyQuestion(ctx context.Context, date string) (domain.Question, error)
}

// SessionRepository stores active quiz sessions, one per user.
type SessionRepository interface {
	Put(userID string, session *Session)
	Get(userID string) (*Session, bool)
	Delete(userID string)
}

// QuizService contains the quiz use cases: registration, starting custom and
// daily runs, driving answers, and post-session bookkeeping.
type QuizService struct {
	sessions     SessionRepository
	provider     QuestionProvider
	daily        DailyQuestionSource
	profiles     ProfileStore
	achievements *AchievementEvaluator
	now          func() time.Time
}

func NewQuizService(sessions SessionRepository, provider QuestionProvider, daily DailyQuestionSource, profiles ProfileStore, achievements *AchievementEvaluator) *QuizService {
	return NewQuizServiceWithClock(sessions, provider, daily, profiles, achievements, time.Now)
}

// NewQuizServiceWithClock allows deterministic dates in tests.
func NewQuizServiceWithClock(sessions SessionRepository, provider QuestionProvider, daily DailyQuestionSource, profiles ProfileStore, achievements *AchievementEvaluator, now func() time.Time) *QuizService {
	return &QuizService{
		sessions:     sessions,
		provider:     provider,
		daily:        daily,
		profiles:     profiles,
		achievements: achievements,
		now:          now,
	}
}

// Register creates the profile on first sign-in. Existing profiles are
// returned untouched; registration is the only full overwrite.
func (s *QuizService) Register(ctx context.Context, userID, name string) (domain.UserProfile, error) {
	if userID == "" || name == "" {
		return domain.UserProfile{}, fmt.Errorf("%w: user id and name are required", domain.ErrInvalidInput)
	}

	existing, err := s.profiles.Get(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.UserProfile{}, err
	}

	profile := domain.UserProfile{
		ID:       userID,
		Name:     name,
		Avatar:   "default",
		JoinDate: s.now().Format(dateLayout),
		Preferences: domain.Preferences{
			Difficulty:       "any",
			QuestionCount:    10,
			NotificationHour: -1,
		},
	}
	if err := s.profiles.Register(ctx, profile); err != nil {
		return domain.UserProfile{}, err
	}
	return profile, nil
}

// Profile returns the stored profile for a user.
func (s *QuizService) Profile(ctx context.Context, userID string) (domain.UserProfile, error) {
	return s.profiles.Get(ctx, userID)
}

// ProfileSettings carries the user-editable profile fields: display name,
// avatar, and quiz preferences. Nil fields are left unchanged.
type ProfileSettings struct {
	Name        *string
	Avatar      *string
	Preferences *domain.Preferences
}

// UpdateSettings merges the settings a user changed into their profile.
func (s *QuizService) UpdateSettings(ctx context.Context, userID string, settings ProfileSettings) (domain.UserProfile, error) {
	if settings.Name != nil && *settings.Name == "" {
		return domain.UserProfile{}, fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidInput)
	}
	if settings.Preferences != nil && settings.Preferences.QuestionCount <= 0 {
		return domain.UserProfile{}, fmt.Errorf("%w: question count must be positive", domain.ErrInvalidInput)
	}

	update := domain.ProfileUpdate{
		Name:        settings.Name,
		Avatar:      settings.Avatar,
		Preferences: settings.Preferences,
	}
	if err := s.profiles.MergeUpdate(ctx, userID, update); err != nil {
		return domain.UserProfile{}, err
	}
	return s.profiles.Get(ctx, userID)
}

// StartQuiz fetches questions for the given parameters and opens a session.
// A provider failure or an empty question list never starts a session.
func (s *QuizService) StartQuiz(ctx context.Context, userID string, params domain.QuizParams) (*Session, error) {
	if params.Amount <= 0 {
		return nil, fmt.Errorf("%w: question amount must be positive", domain.ErrInvalidInput)
	}
	if _, active := s.sessions.Get(userID); active {
		return nil, domain.ErrSessionActive
	}

	questions, err := s.provider.FetchQuestions(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	session, err := NewSessionWithClock(uuid.NewString(), userID, questions, false, s.now)
	if err != nil {
		return nil, err
	}
	s.sessions.Put(userID, session)
	return session, nil
}

// StartDaily opens the one-question daily session. At most one attempt per
// calendar day; the same question is served to every user on a given date.
func (s *QuizService) StartDaily(ctx context.Context, userID string) (*Session, error) {
	if _, active := s.sessions.Get(userID); active {
		return nil, domain.ErrSessionActive
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := s.now().Format(dateLayout)
	if profile.LastAttemptDate == today {
		return nil, domain.ErrAlreadyAttempted
	}

	question, err := s.daily.DailyQuestion(ctx, today)
	if err != nil {
		return nil, err
	}

	session, err := NewSessionWithClock(uuid.NewString(), userID, []domain.Question{question}, true, s.now)
	if err != nil {
		return nil, err
	}
	s.sessions.Put(userID, session)
	return session, nil
}

// AnswerOutcome reports how a single submission scored. Recorded is false for
// stale submissions that arrived after the countdown already expired the
// question; those leave the session untouched.
type AnswerOutcome struct {
	Recorded      bool
	Correct       bool
	Awarded       int
	CorrectAnswer string
}

// Answer records a submission for the question at questionIndex. Submissions
// for any other index, and duplicate submissions for the same question, are
// reported as not recorded.
func (s *QuizService) Answer(ctx context.Context, userID string, questionIndex int, selected string, timeRemaining int) (AnswerOutcome, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return AnswerOutcome{}, domain.ErrSessionNotFound
	}

	question, ok := session.QuestionAt(questionIndex)
	if !ok {
		return AnswerOutcome{}, fmt.Errorf("%w: question index %d out of range", domain.ErrInvalidInput, questionIndex)
	}

	recorded, err := session.RecordAnswerFor(questionIndex, selected, timeRemaining)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if !recorded {
		return AnswerOutcome{CorrectAnswer: question.CorrectAnswer}, nil
	}

	results := session.Results()
	awarded := results[len(results)-1].Score
	return AnswerOutcome{
		Recorded:      true,
		Correct:       selected == question.CorrectAnswer,
		Awarded:       awarded,
		CorrectAnswer: question.CorrectAnswer,
	}, nil
}

// Timeout force-records a zero-score result when the countdown expires.
func (s *QuizService) Timeout(userID string) {
	if session, ok := s.sessions.Get(userID); ok {
		session.Expire()
	}
}

// Advance moves the session to the next question. When the session turns
// terminal the post-session stage runs and a summary is returned; the
// session itself is discarded.
func (s *QuizService) Advance(ctx context.Context, userID string) (*domain.QuizSummary, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	terminal, err := session.Advance()
	if err != nil {
		return nil, err
	}
	if !terminal {
		return nil, nil
	}

	s.sessions.Delete(userID)
	return s.finalize(ctx, session)
}

// Abandon drops the user's active session, if any.
func (s *QuizService) Abandon(userID string) {
	s.sessions.Delete(userID)
}

// finalize runs the scoring/streak/achievement stage over a finished result
// list. The profile score write completes before achievements are evaluated
// so predicates observe the new totals.
func (s *QuizService) finalize(ctx context.Context, session *Session) (*domain.QuizSummary, error) {
	results := session.Results()
	summary := &domain.QuizSummary{Results: results, Daily: session.Daily()}

	endScore := 0
	correctAnswers := 0
	for _, r := range results {
		endScore += r.Score
		if r.Score > 0 {
			correctAnswers++
		}
	}
	summary.TotalScore = endScore

	userID := session.UserID()
	if session.Daily() {
		profile, err := s.profiles.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		isCorrect := len(results) == 1 && results[0].Score > 0

		update, err := AdvanceStreak(profile.DailyStreak, profile.LastAttemptDate, isCorrect, s.now())
		if err != nil {
			// A concurrent attempt beat this one to the streak transition;
			// score the run without a bonus rather than losing it.
			log.Printf("daily streak transition rejected for %s: %v", userID, err)
		} else {
			summary.StreakBonus = update.Bonus
			summary.TotalScore = endScore + update.Bonus
			if err := s.profiles.MergeUpdate(ctx, userID, domain.ProfileUpdate{
				DailyStreak:     &update.Streak,
				LastAttemptDate: &update.LastAttemptDate,
			}); err != nil {
				return nil, err
			}
		}
	}

	if err := s.addScores(ctx, userID, summary.TotalScore); err != nil {
		return nil, err
	}

	if session.Daily() {
		unlocked, err := s.achievements.CheckDailyCompletion(ctx, userID)
		if err != nil {
			log.Printf("daily achievement check failed for %s: %v", userID, err)
		}
		summary.Unlocked = append(summary.Unlocked, unlocked...)
	}

	unlocked, err := s.achievements.CheckQuizCompletion(ctx, userID, len(results), correctAnswers)
	if err != nil {
		log.Printf("quiz achievement check failed for %s: %v", userID, err)
	}
	summary.Unlocked = append(summary.Unlocked, unlocked...)

	return summary, nil
}

// addScores applies one game's total to every score bucket and records it as
// the last game score.
func (s *QuizService) addScores(ctx context.Context, userID string, total int) error {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}
	allTime := profile.AllTimeScore + total
	weekly := profile.WeeklyScore + total
	monthly := profile.MonthlyScore + total
	return s.profiles.MergeUpdate(ctx, userID, domain.ProfileUpdate{
		AllTimeScore:  &allTime,
		WeeklyScore:   &weekly,
		MonthlyScore:  &monthly,
		LastGameScore: &total,
	})
}
