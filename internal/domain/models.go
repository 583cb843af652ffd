package domain

// Status is where the participant currently is in the quiz lifecycle.
type Status string

const (
	StatusIdle                Status = "idle"
	StatusCheckingEligibility Status = "checking-eligibility"
	StatusLoading             Status = "loading"
	StatusWaiting             Status = "waiting"
	StatusActive              Status = "active"
	StatusCompleted           Status = "completed"
	StatusEnded               Status = "ended"
	StatusNotLive             Status = "not-live"
	StatusNoQuiz              Status = "no-quiz"
	StatusAlreadyParticipated Status = "already-participated"
	StatusNotEligible         Status = "not-eligible"
	StatusError               Status = "error"
)

// Terminal reports whether the only way out of this status is a timed
// navigation away from the session.
func (s Status) Terminal() bool {
	switch s {
	case StatusNotLive, StatusNoQuiz, StatusAlreadyParticipated,
		StatusNotEligible, StatusError, StatusCompleted, StatusEnded:
		return true
	}
	return false
}

// QuizSnapshot is the REST view of today's quiz.
type QuizSnapshot struct {
	ID               string `json:"id"`
	IsLive           bool   `json:"isLive"`
	UserParticipated bool   `json:"userParticipated"`
	IsCompleted      bool   `json:"isCompleted"`
	TotalQuestions   int    `json:"totalQuestions"`
}

// TodaySnapshot wraps the today's-quiz call result.
type TodaySnapshot struct {
	Exists bool         `json:"exists"`
	Quiz   QuizSnapshot `json:"quiz"`
}

// Eligibility is the result of the eligibility check.
type Eligibility struct {
	Eligible       bool `json:"eligible"`
	QuizNotLiveYet bool `json:"quizNotLiveYet"`
}

// Question is the question currently displayed. It is replaced wholesale
// when a new question event arrives, never patched.
type Question struct {
	ID           string
	Text         string
	Options      []string
	Index        int // 1-based position in the quiz
	StartEpochMs int64
	DurationMs   int64
}

// NoAnswer is the selected-index sentinel sent when the countdown expires
// before the participant picked an option.
const NoAnswer = -1
