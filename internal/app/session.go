package app

import (
	"fmt"
	"sync"
	"time"

	"factzap-service/internal/domain"
)

// Session drives one quiz run: an ordered question list, the current index,
// and the per-question results accumulated so far. The index only moves
// forward; once it reaches the question count the session is terminal.
type Session struct {
	id     string
	userID string
	daily  bool
	now    func() time.Time

	mu        sync.Mutex
	questions []domain.Question
	index     int
	results   []domain.QuestionResult
	answered  bool // result recorded for the current question
	startedAt time.Time
}

// NewSession starts a session at index 0 with empty results.
func NewSession(id, userID string, questions []domain.Question, daily bool) (*Session, error) {
	return NewSessionWithClock(id, userID, questions, daily, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(id, userID string, questions []domain.Question, daily bool, now func() time.Time) (*Session, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: session needs at least one question", domain.ErrInvalidInput)
	}
	return &Session{
		id:        id,
		userID:    userID,
		daily:     daily,
		now:       now,
		questions: questions,
		startedAt: now(),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the owning user.
func (s *Session) UserID() string { return s.userID }

// Daily reports whether this is a one-question daily session.
func (s *Session) Daily() bool { return s.daily }

// Current returns the active question, its zero-based index, and the total
// question count.
func (s *Session) Current() (domain.Question, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index >= len(s.questions) {
		return domain.Question{}, s.index, len(s.questions)
	}
	return s.questions[s.index], s.index, len(s.questions)
}

// RecordAnswer scores the current question and appends its result. A missing
// selection or a mismatch scores zero. Duplicate calls for the same question
// are ignored, which guards against double taps and a late timer firing after
// the user already answered.
func (s *Session) RecordAnswer(selected string, answered bool, timeRemaining int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= len(s.questions) || s.answered {
		return nil
	}
	return s.record(selected, answered, timeRemaining)
}

// RecordAnswerFor records a submission only if the question at index is still
// the current, unanswered one. Returns false for stale submissions, such as an
// answer arriving after the countdown already expired the question and the
// session moved on. The check and the write happen under one lock so a timeout
// cannot slip in between them.
func (s *Session) RecordAnswerFor(index int, selected string, timeRemaining int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != index || s.index >= len(s.questions) || s.answered {
		return false, nil
	}
	if err := s.record(selected, true, timeRemaining); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) record(selected string, answered bool, timeRemaining int) error {
	if timeRemaining < 0 || timeRemaining > questionTimeSeconds {
		return fmt.Errorf("%w: time remaining %d out of range", domain.ErrInvalidInput, timeRemaining)
	}

	question := s.questions[s.index]
	score := 0
	if answered && selected == question.CorrectAnswer {
		var err error
		score, err = Score(question.Difficulty, question.Type, timeRemaining)
		if err != nil {
			return err
		}
	}

	s.results = append(s.results, domain.QuestionResult{
		TimeTaken:  questionTimeSeconds - timeRemaining,
		Type:       question.Type,
		Difficulty: question.Difficulty,
		Score:      score,
	})
	s.answered = true
	return nil
}

// QuestionAt returns the question at index, if it exists.
func (s *Session) QuestionAt(index int) (domain.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.questions) {
		return domain.Question{}, false
	}
	return s.questions[index], true
}

// Expire force-records a zero-score result for the current question. Called
// when the countdown reaches zero with no answer. A no-op if the question was
// already answered.
func (s *Session) Expire() {
	_ = s.RecordAnswer("", false, 0)
}

// Advance moves to the next question and reports whether the session is now
// terminal. Advancing before a result exists for the current question is
// rejected so results stay aligned with the index.
func (s *Session) Advance() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= len(s.questions) {
		return true, nil
	}
	if !s.answered {
		return false, fmt.Errorf("%w: cannot advance before the current question is answered", domain.ErrInvalidInput)
	}
	s.index++
	s.answered = false
	return s.index >= len(s.questions), nil
}

// Terminal reports whether every question has been consumed.
func (s *Session) Terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index >= len(s.questions)
}

// Answered reports whether the current question already has a result.
func (s *Session) Answered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answered
}

// Results returns a copy of the accumulated result list. This is the sole
// hand-off between in-session play and post-session bookkeeping.
func (s *Session) Results() []domain.QuestionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.QuestionResult, len(s.results))
	copy(out, s.results)
	return out
}
