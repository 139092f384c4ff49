package domain

import "time"

// Question is a single trivia question as served to a session. Text and
// answers are already HTML-decoded by the provider client.
type Question struct {
	Type             string   `json:"type"`       // "multiple" or "boolean"
	Difficulty       string   `json:"difficulty"` // "easy", "medium", "hard"
	Category         string   `json:"category"`
	Text             string   `json:"question"`
	CorrectAnswer    string   `json:"correctAnswer"`
	IncorrectAnswers []string `json:"incorrectAnswers"`
}

// QuestionResult records the outcome of one answered (or timed-out) question.
// Results are append-only and never mutated after creation.
type QuestionResult struct {
	TimeTaken  int    `json:"timeTaken"` // seconds spent, 0..10
	Type       string `json:"type"`
	Difficulty string `json:"difficulty"`
	Score      int    `json:"score"`
}

// Achievement is a per-user unlock record. The catalog of definitions is
// fixed at build time; absence of a record means locked.
type Achievement struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
}

// SavedFact is a random fact pinned to a user's profile.
type SavedFact struct {
	Number    int    `json:"factNumber"`
	Text      string `json:"factText"`
	SavedDate string `json:"savedDate"`
}

// Preferences holds per-user quiz defaults.
type Preferences struct {
	Difficulty       string `json:"difficulty"`
	QuestionCount    int    `json:"questionCount"`
	NotificationHour int    `json:"notificationHour"` // -1 means "when available"
}

// UserProfile is the document stored per authenticated identity. It is
// mutated exclusively through merge-style partial updates; the only full
// overwrite happens on first registration.
type UserProfile struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Avatar          string        `json:"avatar"`
	AllTimeScore    int           `json:"allTimeScore"`
	WeeklyScore     int           `json:"weeklyScore"`
	MonthlyScore    int           `json:"monthlyScore"`
	LastGameScore   int           `json:"lastGameScore"`
	DailyStreak     int           `json:"dailyStreak"`
	LastAttemptDate string        `json:"lastAttemptDate"` // ISO date, empty = never attempted
	JoinDate        string        `json:"joinDate"`
	FactCounter     int           `json:"factCounter"`
	Preferences     Preferences   `json:"preferences"`
	SavedFacts      []SavedFact   `json:"savedFacts"`
	Achievements    []Achievement `json:"achievements"`
}

// ProfileUpdate is a merge-update: only non-nil fields are written.
type ProfileUpdate struct {
	Name            *string
	Avatar          *string
	AllTimeScore    *int
	WeeklyScore     *int
	MonthlyScore    *int
	LastGameScore   *int
	DailyStreak     *int
	LastAttemptDate *string
	FactCounter     *int
	Preferences     *Preferences
	SavedFacts      []SavedFact
	Achievements    []Achievement
}

// ScoreField names one of the rankable score columns.
type ScoreField string

const (
	AllTimeScore ScoreField = "allTimeScore"
	WeeklyScore  ScoreField = "weeklyScore"
	MonthlyScore ScoreField = "monthlyScore"
)

// Valid reports whether f names a known score field.
func (f ScoreField) Valid() bool {
	switch f {
	case AllTimeScore, WeeklyScore, MonthlyScore:
		return true
	}
	return false
}

// ScoreResetState is the process-wide singleton tracking the last periodic
// score resets. Timestamps only move forward.
type ScoreResetState struct {
	LastWeeklyReset  *time.Time `json:"lastWeeklyReset,omitempty"`
	LastMonthlyReset *time.Time `json:"lastMonthlyReset,omitempty"`
}

// LeaderboardEntry is a display-ready row of the scoreboard.
type LeaderboardEntry struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Score  int    `json:"score"`
}

// Leaderboard is the ordered scoreboard for one score field.
type Leaderboard struct {
	Field     ScoreField         `json:"field"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// QuizParams are the query parameters accepted by the trivia provider.
// Zero values mean "any" and are omitted from the request.
type QuizParams struct {
	Amount     int    `json:"amount"`
	Category   int    `json:"category,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Type       string `json:"type,omitempty"`
}

// QuizSummary is handed to the client once a session reaches its terminal
// state. Unlocked lists achievements newly earned by this session only.
type QuizSummary struct {
	Results     []QuestionResult `json:"results"`
	TotalScore  int              `json:"totalScore"`
	StreakBonus int              `json:"streakBonus"`
	Daily       bool             `json:"daily"`
	Unlocked    []Achievement    `json:"unlocked,omitempty"`
}

// CategoryCount is the per-category question inventory reported by the
// trivia provider.
type CategoryCount struct {
	Total   int `json:"total_num_of_questions"`
	Pending int `json:"total_num_of_pending_question"`
}
