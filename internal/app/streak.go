package app

import (
	"time"

	"factzap-service/internal/domain"
)

// dateLayout is the calendar-date format stored in LastAttemptDate.
const dateLayout = "2006-01-02"

// StreakUpdate is the outcome of one daily-question streak transition.
type StreakUpdate struct {
	Streak          int    // post-transition streak
	Bonus           int    // pre-transition streak when correct, else 0
	LastAttemptDate string // today's date
}

// AdvanceStreak applies the once-per-day streak transition. A correct answer
// extends the streak and pays the pre-update streak length as a bonus; an
// incorrect answer resets it. A second attempt on the same calendar day is
// rejected without touching state.
func AdvanceStreak(streak int, lastAttempt string, correct bool, today time.Time) (StreakUpdate, error) {
	date := today.Format(dateLayout)
	if lastAttempt == date {
		return StreakUpdate{}, domain.ErrAlreadyAttempted
	}

	update := StreakUpdate{LastAttemptDate: date}
	if correct {
		update.Bonus = streak
		update.Streak = streak + 1
	}
	return update, nil
}
