package channel

// Events the server pushes to the client.

type EventType string

const (
	EventJoined          EventType = "joined"
	EventJoinError       EventType = "join-error"
	EventQuizReady       EventType = "quiz-ready"
	EventQuestion        EventType = "question"
	EventAnswerResult    EventType = "answer-result"
	EventQuizCompleted   EventType = "quiz-completed"
	EventQuizEnded       EventType = "quiz-ended"
	EventForceDisconnect EventType = "force-disconnect"
)

type JoinErrorPayload struct {
	Message string `json:"message"`
}

// QuestionPayload announces the question that just became active on the
// server. StartTime and Duration are epoch milliseconds and total budget
// milliseconds; remaining time is derived from them, never shipped.
type QuestionPayload struct {
	Question      QuestionBody `json:"question"`
	QuestionIndex int          `json:"questionIndex"`
	StartTime     int64        `json:"startTime"`
	Duration      int64        `json:"duration"`
}

type QuestionBody struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

type AnswerResultPayload struct {
	TotalScore int `json:"totalScore"`
}

// CompletionPayload is shared by quiz-completed and quiz-ended. Score is
// optional; when absent the last answer-result total stands.
type CompletionPayload struct {
	Score *int `json:"score"`
}

type QuizReadyPayload struct {
	Quiz QuizReadyBody `json:"quiz"`
}

type QuizReadyBody struct {
	ID             string `json:"id"`
	IsLive         bool   `json:"isLive"`
	TotalQuestions int    `json:"totalQuestions"`
}

// Commands the client sends to the server.

type CommandType string

const (
	CommandJoin         CommandType = "join-quiz"
	CommandSubmitAnswer CommandType = "submit-answer"
)

type JoinCommand struct {
	QuizID   string `json:"quizId"`
	UserID   string `json:"userId"`
	DeviceID string `json:"deviceId"`
}

type SubmitAnswerCommand struct {
	QuizID        string `json:"quizId"`
	UserID        string `json:"userId"`
	QuestionID    string `json:"questionId"`
	SelectedIndex int    `json:"selectedIndex"`
}
