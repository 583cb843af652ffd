package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"dailyquiz-client/internal/api"
	"dailyquiz-client/internal/channel"
	"dailyquiz-client/internal/domain"
)

const defaultQuestionDurationMs = 15000

// API is the slice of the quiz authority's REST surface the coordinator consumes.
type API interface {
	CheckEligibility(ctx context.Context) (domain.Eligibility, error)
	TodayQuiz(ctx context.Context) (domain.TodaySnapshot, error)
	EnterQuiz(ctx context.Context, quizID string) error
}

// ParticipationCache remembers that this client already entered a quiz, so
// a relaunch can take the reconnect path immediately. Advisory only; the
// REST snapshot remains authoritative.
type ParticipationCache interface {
	LoadParticipation(ctx context.Context, quizID string) (bool, error)
	SaveParticipation(ctx context.Context, quizID string) error
}

// Listener is the UI seam. All callbacks are invoked from the coordinator's
// own goroutine, one at a time.
type Listener interface {
	StatusChanged(status domain.Status)
	QuestionShown(q domain.Question, totalQuestions int)
	CountdownTick(remaining int)
	ScoreUpdated(score int)
	RedirectTick(stepsLeft int)
	NavigateTo(dest string)
	// ConfirmCapacityFull blocks until the participant acknowledged the
	// capacity rejection; only then does the session settle to Error.
	ConfirmCapacityFull()
}

// NopListener discards every callback.
type NopListener struct{}

func (NopListener) StatusChanged(domain.Status)        {}
func (NopListener) QuestionShown(domain.Question, int) {}
func (NopListener) CountdownTick(int)                  {}
func (NopListener) ScoreUpdated(int)                   {}
func (NopListener) RedirectTick(int)                   {}
func (NopListener) NavigateTo(string)                  {}
func (NopListener) ConfirmCapacityFull()               {}

// Timing bundles the coordinator's fixed delays. Zero values take the defaults.
type Timing struct {
	Debounce      time.Duration // min interval between join attempts
	RetryDelay    time.Duration // already-connected / force-disconnect retry
	RedirectStep  time.Duration // terminal countdown step
	RedirectSteps int
	FrameInterval time.Duration // countdown recompute interval
}

func (t Timing) withDefaults() Timing {
	if t.Debounce <= 0 {
		t.Debounce = DefaultDebounce
	}
	if t.RetryDelay <= 0 {
		t.RetryDelay = DefaultRetryDelay
	}
	if t.RedirectStep <= 0 {
		t.RedirectStep = time.Second
	}
	if t.RedirectSteps <= 0 {
		t.RedirectSteps = 3
	}
	if t.FrameInterval <= 0 {
		t.FrameInterval = defaultFrameInterval
	}
	return t
}

// Options wires a Coordinator together.
type Options struct {
	UserID   string
	API      API
	Dial     Dialer
	Devices  DeviceIDSource
	Cache    ParticipationCache // optional
	Listener Listener           // optional
	Clock    clockwork.Clock    // optional, defaults to the real clock
	Log      zerolog.Logger
	Timing   Timing
}

// Coordinator is the session state machine: the authoritative model of
// where the participant is in the quiz lifecycle. All state lives on a
// single event-loop goroutine; REST completions, channel events and timer
// fires arrive as events and are handled atomically in arrival order.
type Coordinator struct {
	userID     string
	api        API
	connector  *Connector
	countdown  *Countdown
	navigator  *Navigator
	cache      ParticipationCache
	listener   Listener
	clock      clockwork.Clock
	log        zerolog.Logger
	retryDelay time.Duration

	events    chan event
	done      chan struct{}
	closeOnce sync.Once

	// Loop-goroutine state. Never touched elsewhere.
	status       domain.Status
	quiz         *domain.QuizSnapshot
	question     *domain.Question
	answer       *answerToken
	score        int
	participated bool
}

// answerToken guards submissions for one question. It is replaced, never
// mutated back, when a new question arrives; a stale expiry from a prior
// question fails the identity check and is ignored.
type answerToken struct {
	questionID string
	used       bool
}

type event any

type (
	evEligibility struct {
		res domain.Eligibility
		err error
	}
	evSnapshot struct {
		res domain.TodaySnapshot
		err error
	}
	evEntered struct {
		quizID string
		err    error
	}
	evChannel struct {
		ev channel.Event
	}
	evTransportClosed struct {
		err error
	}
	evTick struct {
		questionID string
		remaining  int
	}
	evExpired struct {
		questionID string
	}
	evSelect struct {
		index int
	}
	evRedirectTick struct {
		stepsLeft int
	}
	evNavigate struct {
		dest string
	}
)

func New(opts Options) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Listener == nil {
		opts.Listener = NopListener{}
	}
	timing := opts.Timing.withDefaults()

	c := &Coordinator{
		userID:     opts.UserID,
		api:        opts.API,
		cache:      opts.Cache,
		listener:   opts.Listener,
		clock:      opts.Clock,
		log:        opts.Log.With().Str("component", "session").Logger(),
		retryDelay: timing.RetryDelay,
		events:     make(chan event, 64),
		done:       make(chan struct{}),
		status:     domain.StatusIdle,
	}
	c.connector = NewConnector(opts.Clock, timing.Debounce, opts.Devices, opts.Dial, opts.Log)
	c.countdown = NewCountdown(opts.Clock, timing.FrameInterval)
	c.navigator = NewNavigator(opts.Clock, timing.RedirectStep, timing.RedirectSteps,
		func(left int) { c.post(evRedirectTick{stepsLeft: left}) },
		func(dest string) { c.post(evNavigate{dest: dest}) },
		opts.Log)
	return c
}

// Run bootstraps the session and processes events until navigation fires,
// Close is called, or ctx is cancelled. On return every listener, timer and
// pending retry has been released.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.userID == "" {
		// No participant identity: hand off to the identity-acquisition flow.
		c.listener.NavigateTo(DestLogin)
		return domain.ErrMissingIdentity
	}

	c.setStatus(domain.StatusCheckingEligibility)
	c.setStatus(domain.StatusLoading)
	go func() {
		res, err := c.api.CheckEligibility(ctx)
		c.post(evEligibility{res: res, err: err})
	}()
	go func() {
		res, err := c.api.TodayQuiz(ctx)
		c.post(evSnapshot{res: res, err: err})
	}()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-c.done:
			c.shutdown()
			return nil
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

// Close releases the coordinator: all timers, retries and listeners stop.
// Safe to call from any goroutine, more than once.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// SelectOption records the participant picking an option on the active question.
func (c *Coordinator) SelectOption(index int) {
	c.post(evSelect{index: index})
}

// DeliverChannelEvent feeds a decoded channel event into the loop.
func (c *Coordinator) DeliverChannelEvent(ev channel.Event) {
	c.post(evChannel{ev: ev})
}

// TransportClosed reports that the duplex channel dropped.
func (c *Coordinator) TransportClosed(err error) {
	c.post(evTransportClosed{err: err})
}

func (c *Coordinator) post(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Coordinator) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
	c.countdown.Stop()
	c.navigator.Stop()
	c.connector.Close()
}

func (c *Coordinator) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case evEligibility:
		c.handleEligibility(ev)
	case evSnapshot:
		c.handleSnapshot(ctx, ev)
	case evEntered:
		c.handleEntered(ctx, ev)
	case evChannel:
		c.handleChannel(ctx, ev.ev)
	case evTransportClosed:
		c.log.Debug().Err(ev.err).Msg("channel transport closed")
		c.connector.TransportClosed()
	case evTick:
		if c.question != nil && c.question.ID == ev.questionID {
			c.listener.CountdownTick(ev.remaining)
		}
	case evExpired:
		c.submit(ev.questionID, domain.NoAnswer)
	case evSelect:
		if c.status == domain.StatusActive && c.question != nil &&
			ev.index >= 0 && ev.index < len(c.question.Options) {
			c.submit(c.question.ID, ev.index)
		}
	case evRedirectTick:
		if c.status.Terminal() {
			c.listener.RedirectTick(ev.stepsLeft)
		}
	case evNavigate:
		// A queued navigation can outlive its terminal status when a
		// quiz-ready event revives the session first; like a stale
		// countdown expiry, it no longer applies.
		if !c.status.Terminal() {
			c.log.Debug().Str("dest", ev.dest).Msg("stale navigation ignored")
			return
		}
		c.listener.NavigateTo(ev.dest)
		c.Close()
	}
}

// handleEligibility applies the eligibility check. A response arriving after
// the session moved past the pre-join phase never regresses the status.
func (c *Coordinator) handleEligibility(ev evEligibility) {
	if c.status != domain.StatusLoading && c.status != domain.StatusWaiting {
		c.log.Debug().Str("status", string(c.status)).Msg("late eligibility response ignored")
		return
	}
	if ev.err != nil {
		c.log.Error().Err(ev.err).Msg("eligibility check failed")
		c.setStatus(domain.StatusError)
		return
	}
	if ev.res.Eligible {
		return
	}
	if ev.res.QuizNotLiveYet {
		c.setStatus(domain.StatusNotLive)
	} else {
		c.setStatus(domain.StatusNotEligible)
	}
}

func (c *Coordinator) handleSnapshot(ctx context.Context, ev evSnapshot) {
	if c.status != domain.StatusLoading {
		c.log.Debug().Str("status", string(c.status)).Msg("late snapshot response ignored")
		return
	}
	if ev.err != nil {
		c.log.Error().Err(ev.err).Msg("quiz snapshot failed")
		c.setStatus(domain.StatusError)
		return
	}
	if !ev.res.Exists {
		c.setStatus(domain.StatusNoQuiz)
		return
	}

	quiz := ev.res.Quiz
	c.quiz = &quiz
	switch {
	case quiz.IsLive:
		c.participated = quiz.UserParticipated
		if !c.participated && c.cache != nil {
			if seen, err := c.cache.LoadParticipation(ctx, quiz.ID); err == nil && seen {
				c.participated = true
			}
		}
		c.setStatus(domain.StatusWaiting)
		c.beginEntry(ctx)
	case quiz.UserParticipated, quiz.IsCompleted:
		c.setStatus(domain.StatusAlreadyParticipated)
	default:
		c.setStatus(domain.StatusNotLive)
	}
}

// beginEntry takes the entry or reconnect path out of Waiting: a prior
// participant joins the channel directly, everyone else enters first.
func (c *Coordinator) beginEntry(ctx context.Context) {
	if c.participated {
		c.connector.RequestJoin(ctx, c.quiz.ID, c.userID)
		return
	}
	quizID := c.quiz.ID
	go func() {
		err := c.api.EnterQuiz(ctx, quizID)
		c.post(evEntered{quizID: quizID, err: err})
	}()
}

func (c *Coordinator) handleEntered(ctx context.Context, ev evEntered) {
	if c.status != domain.StatusWaiting || c.quiz == nil || c.quiz.ID != ev.quizID {
		return
	}
	if ev.err == nil {
		c.participated = true
		if c.cache != nil {
			if err := c.cache.SaveParticipation(ctx, ev.quizID); err != nil {
				c.log.Warn().Err(err).Msg("participation cache write failed")
			}
		}
		c.connector.RequestJoin(ctx, ev.quizID, c.userID)
		return
	}

	code, msg := 0, ev.err.Error()
	var se *api.StatusError
	if errors.As(ev.err, &se) {
		code, msg = se.Code, se.Message
	}
	switch domain.ClassifyEntryRejection(code, msg) {
	case domain.EntryAlreadyParticipated:
		c.setStatus(domain.StatusAlreadyParticipated)
	case domain.EntryCapacityFull:
		c.listener.ConfirmCapacityFull()
		c.setStatus(domain.StatusError)
	case domain.EntryNotEligible:
		c.setStatus(domain.StatusNotEligible)
	case domain.EntryAssumeParticipant:
		// Unrecognized rejection: assume the registration already exists
		// and reconnect. Known ambiguity, kept from the original behavior.
		c.log.Warn().Str("reason", msg).Msg("enter rejected for unrecognized reason, attempting reconnect")
		c.participated = true
		c.connector.RequestJoin(ctx, ev.quizID, c.userID)
	default:
		c.log.Error().Err(ev.err).Msg("enter quiz failed")
		c.setStatus(domain.StatusError)
	}
}

func (c *Coordinator) handleChannel(ctx context.Context, ev channel.Event) {
	switch ev.Type {
	case channel.EventJoined:
		c.connector.JoinSettled()
		c.log.Info().Msg("joined quiz room, awaiting first question")

	case channel.EventJoinError:
		c.connector.JoinSettled()
		switch domain.ClassifyJoinRejection(ev.JoinError.Message) {
		case domain.JoinAlreadyConnected:
			// The server drops the stale socket; one delayed retry succeeds.
			if c.quiz != nil {
				c.connector.ScheduleRetry(ctx, c.quiz.ID, c.userID, c.retryDelay)
			}
		case domain.JoinNotEligible:
			c.setStatus(domain.StatusNotEligible)
		case domain.JoinNotLive:
			c.setStatus(domain.StatusNotLive)
		default:
			c.log.Error().Str("reason", ev.JoinError.Message).Msg("join rejected")
			c.setStatus(domain.StatusError)
		}

	case channel.EventQuestion:
		c.handleQuestion(ev.Question)

	case channel.EventAnswerResult:
		c.score = ev.AnswerResult.TotalScore
		c.listener.ScoreUpdated(c.score)

	case channel.EventQuizCompleted:
		c.finish(domain.StatusCompleted, ev.Completion)

	case channel.EventQuizEnded:
		c.finish(domain.StatusEnded, ev.Completion)

	case channel.EventForceDisconnect:
		// Another device took over or the server shed this connection; no
		// status change, reconnect once after the retry delay.
		c.connector.Reset()
		if c.quiz != nil {
			c.connector.ScheduleRetry(ctx, c.quiz.ID, c.userID, c.retryDelay)
		}

	case channel.EventQuizReady:
		c.handleQuizReady(ctx, ev.QuizReady)
	}
}

// handleQuizReady reacts to today's quiz going live while the client idles
// on a pre-live screen.
func (c *Coordinator) handleQuizReady(ctx context.Context, p channel.QuizReadyPayload) {
	switch c.status {
	case domain.StatusActive, domain.StatusCompleted, domain.StatusEnded:
		return
	}
	c.quiz = &domain.QuizSnapshot{
		ID:             p.Quiz.ID,
		IsLive:         true,
		TotalQuestions: p.Quiz.TotalQuestions,
	}
	c.participated = false
	if c.cache != nil {
		if seen, err := c.cache.LoadParticipation(ctx, p.Quiz.ID); err == nil && seen {
			c.participated = true
		}
	}
	c.setStatus(domain.StatusWaiting)
	c.beginEntry(ctx)
}

func (c *Coordinator) handleQuestion(p channel.QuestionPayload) {
	q := domain.Question{
		ID:           p.Question.ID,
		Text:         p.Question.Text,
		Options:      p.Question.Options,
		Index:        p.QuestionIndex,
		StartEpochMs: p.StartTime,
		DurationMs:   p.Duration,
	}
	if q.Index <= 0 {
		q.Index = 1
	}
	if q.StartEpochMs <= 0 {
		q.StartEpochMs = c.clock.Now().UnixMilli()
	}
	if q.DurationMs <= 0 {
		q.DurationMs = defaultQuestionDurationMs
	}

	// Replaced wholesale: question, guard token and countdown all reset
	// together, so a race between the old question's expiry and the new
	// question resolves against the token identity.
	c.question = &q
	c.answer = &answerToken{questionID: q.ID}
	c.setStatus(domain.StatusActive)

	total := 0
	if c.quiz != nil {
		total = c.quiz.TotalQuestions
	}
	c.listener.QuestionShown(q, total)

	id := q.ID
	c.countdown.Start(q.StartEpochMs, q.DurationMs,
		func(remaining int) { c.post(evTick{questionID: id, remaining: remaining}) },
		func() { c.post(evExpired{questionID: id}) },
	)
}

// submit sends at most one answer for the given question, whether the call
// came from a user selection or from countdown expiry.
func (c *Coordinator) submit(questionID string, selectedIndex int) {
	if c.answer == nil || c.answer.questionID != questionID || c.answer.used {
		return
	}
	c.answer.used = true
	c.countdown.Stop()

	quizID := ""
	if c.quiz != nil {
		quizID = c.quiz.ID
	}
	cmd := channel.SubmitAnswerCommand{
		QuizID:        quizID,
		UserID:        c.userID,
		QuestionID:    questionID,
		SelectedIndex: selectedIndex,
	}
	// Fire-and-forget: a dropped submission counts as unanswered server-side.
	if err := c.connector.Submit(cmd); err != nil {
		c.log.Warn().Err(err).Str("questionId", questionID).Msg("answer submission failed")
		return
	}
	c.log.Info().Str("questionId", questionID).Int("selectedIndex", selectedIndex).Msg("answer submitted")
}

func (c *Coordinator) finish(status domain.Status, p channel.CompletionPayload) {
	if p.Score != nil {
		c.score = *p.Score
		c.listener.ScoreUpdated(c.score)
	}
	c.countdown.Stop()
	c.question = nil
	c.answer = nil
	c.setStatus(status)
}

func (c *Coordinator) setStatus(s domain.Status) {
	if c.status == s {
		return
	}
	c.status = s
	c.log.Info().Str("status", string(s)).Msg("status changed")
	c.listener.StatusChanged(s)

	if s.Terminal() {
		c.navigator.Schedule(s, destFor(s))
	} else {
		c.navigator.Stop()
	}
}

func destFor(s domain.Status) string {
	switch s {
	case domain.StatusNotEligible:
		return DestPayment
	case domain.StatusCompleted, domain.StatusEnded:
		return DestWinners
	default:
		return DestHome
	}
}
