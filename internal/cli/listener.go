package cli

import (
	"fmt"
	"io"

	"dailyquiz-client/internal/domain"
)

// consoleListener renders session progress as plain terminal output. All
// callbacks arrive on the coordinator's goroutine, so no locking is needed.
type consoleListener struct {
	out           io.Writer
	score         int
	lastRemaining int
}

func (l *consoleListener) StatusChanged(s domain.Status) {
	switch s {
	case domain.StatusLoading:
		fmt.Fprintln(l.out, "Loading quiz...")
	case domain.StatusWaiting:
		fmt.Fprintln(l.out, "The quiz is live! Waiting for questions...")
	case domain.StatusNotLive:
		fmt.Fprintln(l.out, "Quiz not live yet. Please check back at start time.")
	case domain.StatusNoQuiz:
		fmt.Fprintln(l.out, "No quiz scheduled today. Check back tomorrow!")
	case domain.StatusAlreadyParticipated:
		fmt.Fprintln(l.out, "You have already participated in today's quiz.")
	case domain.StatusNotEligible:
		fmt.Fprintln(l.out, "Payment required to participate in today's quiz.")
	case domain.StatusError:
		fmt.Fprintln(l.out, "Unable to load the quiz. Please try again later.")
	case domain.StatusCompleted, domain.StatusEnded:
		fmt.Fprintf(l.out, "Quiz finished. Final score: %d\n", l.score)
	}
}

func (l *consoleListener) QuestionShown(q domain.Question, total int) {
	l.lastRemaining = -1
	if total > 0 {
		fmt.Fprintf(l.out, "\nQuestion %d of %d: %s\n", q.Index, total, q.Text)
	} else {
		fmt.Fprintf(l.out, "\nQuestion %d: %s\n", q.Index, q.Text)
	}
	for i, opt := range q.Options {
		fmt.Fprintf(l.out, "  %d) %s\n", i+1, opt)
	}
}

func (l *consoleListener) CountdownTick(remaining int) {
	if remaining == l.lastRemaining {
		return
	}
	l.lastRemaining = remaining
	fmt.Fprintf(l.out, "  %ds left\n", remaining)
}

func (l *consoleListener) ScoreUpdated(score int) {
	l.score = score
}

func (l *consoleListener) RedirectTick(stepsLeft int) {
	fmt.Fprintf(l.out, "Redirecting in %d...\n", stepsLeft)
}

func (l *consoleListener) NavigateTo(dest string) {
	fmt.Fprintf(l.out, "-> %s\n", dest)
}

func (l *consoleListener) ConfirmCapacityFull() {
	fmt.Fprintln(l.out, "Quiz is full. Maximum participants reached.")
}
