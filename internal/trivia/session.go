package trivia

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hxnx/triviatune/internal/catalog"
	"github.com/hxnx/triviatune/internal/playback"
)

var (
	ErrSessionActive          = errors.New("session already running")
	ErrSessionNotRunning      = errors.New("session is not running")
	ErrInsufficientCandidates = errors.New("not enough candidates: filters are too restrictive for the requested option count")
)

// SessionState is the observable phase of the state machine.
type SessionState string

const (
	StateIdle           SessionState = "idle"
	StateLoading        SessionState = "loading"
	StatePlaying        SessionState = "playing"
	StateAwaitingAnswer SessionState = "awaiting_answer"
	StateScoring        SessionState = "scoring"
	StatePaused         SessionState = "paused"
	StateEnded          SessionState = "ended"
)

// candidateAttempts caps compile+execute retries before the catalog is
// declared insufficient.
const candidateAttempts = 3

// CandidateSource executes a compiled candidate query. Implemented by
// catalog.TrackRepository.
type CandidateSource interface {
	FindCandidates(ctx context.Context, query string, args []any) ([]catalog.Track, error)
}

// ProfileSink receives the finalized statistics of one game.
type ProfileSink interface {
	RecordGame(questions, correct, secondsPlayed int) error
}

// RecentTracker biases candidate pools away from recently played tracks.
// Optional.
type RecentTracker interface {
	Record(ctx context.Context, trackID int64) error
	Recent(ctx context.Context) ([]int64, error)
}

// Question is one round: N candidate tracks with exactly one correct answer,
// fixed before anything is shown to the player.
type Question struct {
	ID           string
	Options      []catalog.Track
	CorrectIndex int
}

func (q *Question) Correct() catalog.Track {
	return q.Options[q.CorrectIndex]
}

type EventType string

const (
	EventQuestionStarted  EventType = "question_started"
	EventQuestionResolved EventType = "question_resolved"
	EventQuestionSkipped  EventType = "question_skipped"
	EventTick             EventType = "tick"
	EventSessionEnded     EventType = "session_ended"
)

// Event is what the session reports to whoever is driving the UI.
type Event struct {
	Type     EventType
	Question *Question

	// Resolution fields.
	AnswerIndex int
	WasCorrect  bool
	TimedOut    bool

	// Countdown snapshot, seconds.
	RemainingTotal    int
	RemainingQuestion int

	Score    int
	Answered int

	Err error
}

// Session drives one game: candidate loading, playback, countdowns, scoring
// and stat finalization. All state transitions happen on the run goroutine;
// external calls communicate through channels, and timer callbacks that
// arrive after a transition are discarded by state guards.
type Session struct {
	settings GameSettings
	filters  *FilterSet
	overlay  *SessionFilters
	source   CandidateSource
	backend  playback.Backend
	sink     ProfileSink
	recent   RecentTracker
	rng      *rand.Rand

	// tick defaults to one second; tests shrink it.
	tick time.Duration

	mu                sync.Mutex
	state             SessionState
	score             int
	answered          int
	remainingTotal    int
	remainingQuestion int
	current           *Question
	startedAt         time.Time

	answerCh chan int
	pauseCh  chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	doneCh   chan struct{}
	events   chan Event
}

type SessionOption func(*Session)

func WithRand(rng *rand.Rand) SessionOption {
	return func(s *Session) { s.rng = rng }
}

func WithRecentTracker(tracker RecentTracker) SessionOption {
	return func(s *Session) { s.recent = tracker }
}

// withTick speeds the countdowns up for tests.
func withTick(d time.Duration) SessionOption {
	return func(s *Session) { s.tick = d }
}

func NewSession(settings GameSettings, filters *FilterSet, overlay *SessionFilters, source CandidateSource, backend playback.Backend, sink ProfileSink, opts ...SessionOption) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.New("candidate source is required")
	}
	if backend == nil {
		return nil, errors.New("playback backend is required")
	}

	s := &Session{
		settings: settings,
		filters:  filters,
		overlay:  overlay,
		source:   source,
		backend:  backend,
		sink:     sink,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		tick:     time.Second,
		state:    StateIdle,
		answerCh: make(chan int, 1),
		pauseCh:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		events:   make(chan Event, 64),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

func (s *Session) Answered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answered
}

func (s *Session) RemainingTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingTotal
}

// Events is the session's outbound stream. The channel closes when the
// session ends.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Start launches the run loop. A session runs at most once.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrSessionActive
	}
	s.state = StateLoading
	s.remainingTotal = int(s.settings.TotalDuration / time.Second)
	s.startedAt = time.Now()
	s.mu.Unlock()

	go s.run(ctx)
	return nil
}

// Answer submits the player's choice. Ignored outside the answer window.
func (s *Session) Answer(index int) {
	s.mu.Lock()
	inWindow := s.state == StatePlaying || s.state == StateAwaitingAnswer
	s.mu.Unlock()
	if !inWindow {
		return
	}

	select {
	case s.answerCh <- index:
	default:
	}
}

// TogglePause freezes or resumes both countdowns.
func (s *Session) TogglePause() {
	select {
	case s.pauseCh <- struct{}{}:
	default:
	}
}

// Stop ends the session early. Blocks until the run loop has finalized.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state == StateIdle || s.state == StateEnded {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

// Done closes when the session has ended and its stats are persisted.
func (s *Session) Done() <-chan struct{} {
	return s.doneCh
}

func (s *Session) run(ctx context.Context) {
	defer close(s.doneCh)
	defer close(s.events)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	var fatal error

	for {
		if s.totalExhausted() || s.stopped(ctx) {
			break
		}

		s.setState(StateLoading)

		question, err := s.loadQuestion(ctx)
		if err != nil {
			fatal = err
			break
		}

		log.Printf("Question %s armed (%d options)", question.ID, len(question.Options))

		confirmed := s.startPlayback(ctx, question)
		if !confirmed {
			_ = s.backend.Stop()
			s.emit(Event{Type: EventQuestionSkipped, Question: question})
			if s.waitPause(ctx, ticker) {
				break
			}
			continue
		}

		// A stale answer from a previous question must not resolve this one.
		select {
		case <-s.answerCh:
		default:
		}

		s.mu.Lock()
		s.current = question
		s.remainingQuestion = int(s.settings.QuestionDuration / time.Second)
		s.state = StatePlaying
		s.mu.Unlock()

		s.emit(Event{
			Type:              EventQuestionStarted,
			Question:          question,
			RemainingTotal:    s.RemainingTotal(),
			RemainingQuestion: int(s.settings.QuestionDuration / time.Second),
			Score:             s.Score(),
			Answered:          s.Answered(),
		})

		ended := s.runQuestion(ctx, ticker, question)
		if ended {
			break
		}

		if s.totalExhausted() {
			break
		}

		if s.waitPause(ctx, ticker) {
			break
		}
	}

	s.finalize(fatal)
}

// runQuestion drives one answer window. Returns true if the session must end
// (stop requested or total timer exhausted mid-question).
func (s *Session) runQuestion(ctx context.Context, ticker *time.Ticker, question *Question) bool {
	elapsed := 0
	snippet := s.settings.SnippetSeconds

	for {
		select {
		case <-ctx.Done():
			s.stopPlayback()
			return true

		case <-s.stopCh:
			s.stopPlayback()
			return true

		case <-s.pauseCh:
			if s.pauseUntilResumed(ctx) {
				s.stopPlayback()
				return true
			}

		case index := <-s.answerCh:
			s.resolve(question, index, false)
			return false

		case <-ticker.C:
			s.mu.Lock()
			s.remainingTotal--
			s.remainingQuestion--
			remainingTotal := s.remainingTotal
			remainingQuestion := s.remainingQuestion
			elapsed++
			if elapsed >= snippet && s.state == StatePlaying {
				// Snippet over, the guess window keeps running.
				s.state = StateAwaitingAnswer
			}
			s.mu.Unlock()

			if remainingTotal <= 0 {
				// The total clock pre-empts the in-flight question.
				s.stopPlayback()
				return true
			}

			if remainingQuestion <= 0 {
				s.resolve(question, -1, true)
				return false
			}

			s.emit(Event{
				Type:              EventTick,
				RemainingTotal:    remainingTotal,
				RemainingQuestion: remainingQuestion,
			})
		}
	}
}

// resolve scores one answered or timed-out question. Playback always stops
// before scoring so audio never bleeds into the next question.
func (s *Session) resolve(question *Question, answerIndex int, timedOut bool) {
	s.setState(StateScoring)
	s.stopPlayback()

	correct := !timedOut && answerIndex == question.CorrectIndex
	track := question.Correct()

	s.mu.Lock()
	s.answered++
	if correct {
		s.score++
		s.remainingTotal += s.settings.RewardSeconds
	} else {
		penalty := s.settings.PenaltySeconds
		if track.Favorite {
			penalty += s.settings.FavoriteMultaSeconds
		}
		s.remainingTotal -= penalty
		if s.remainingTotal < 0 {
			s.remainingTotal = 0
		}
	}
	remaining := s.remainingTotal
	score := s.score
	answered := s.answered
	s.current = nil
	s.mu.Unlock()

	if s.recent != nil {
		if err := s.recent.Record(context.Background(), track.ID); err != nil {
			log.Printf("Warning: failed to record played track: %v", err)
		}
	}

	s.emit(Event{
		Type:           EventQuestionResolved,
		Question:       question,
		AnswerIndex:    answerIndex,
		WasCorrect:     correct,
		TimedOut:       timedOut,
		RemainingTotal: remaining,
		Score:          score,
		Answered:       answered,
	})
}

// waitPause runs the inter-question pause while the total clock keeps
// counting. Returns true if the session must end.
func (s *Session) waitPause(ctx context.Context, ticker *time.Ticker) bool {
	remaining := int(s.settings.PauseDuration / time.Second)
	if remaining <= 0 {
		return false
	}

	for remaining > 0 {
		select {
		case <-ctx.Done():
			return true
		case <-s.stopCh:
			return true
		case <-ticker.C:
			remaining--
			s.mu.Lock()
			s.remainingTotal--
			exhausted := s.remainingTotal <= 0
			s.mu.Unlock()
			if exhausted {
				return true
			}
		}
	}

	return false
}

// pauseUntilResumed blocks in StatePaused until the next pause toggle.
// Returns true if the session must end instead.
func (s *Session) pauseUntilResumed(ctx context.Context) bool {
	s.setState(StatePaused)
	defer s.setState(StatePlaying)

	pauser, canPause := s.backend.(playback.Pauser)
	if canPause {
		if err := pauser.CyclePause(); err != nil {
			log.Printf("Warning: failed to pause playback: %v", err)
		}
	}

	select {
	case <-ctx.Done():
		return true
	case <-s.stopCh:
		return true
	case <-s.pauseCh:
		if canPause {
			if err := pauser.CyclePause(); err != nil {
				log.Printf("Warning: failed to resume playback: %v", err)
			}
		}
		return false
	}
}

// loadQuestion compiles and executes the candidate query with the retry-on-
// empty policy, then fixes the correct option uniformly at random.
func (s *Session) loadQuestion(ctx context.Context) (*Question, error) {
	var excludeIDs []int64
	if s.recent != nil {
		if ids, err := s.recent.Recent(ctx); err == nil {
			excludeIDs = ids
		}
	}

	need := s.settings.OptionCount

	var lastErr error
	for attempt := 1; attempt <= candidateAttempts; attempt++ {
		query := Compile(s.settings.Origin, s.filters, s.overlay, s.settings.minDuration(), need, excludeIDs)

		candidates, err := s.source.FindCandidates(ctx, query.SQL, query.Args)
		if err != nil {
			lastErr = err
			log.Printf("Warning: candidate query failed (attempt %d/%d): %v", attempt, candidateAttempts, err)
			continue
		}

		if len(candidates) < need {
			lastErr = ErrInsufficientCandidates
			if len(excludeIDs) > 0 {
				// Widen: the recently-played restriction goes first.
				excludeIDs = nil
			}
			continue
		}

		options := candidates[:need]
		return &Question{
			ID:           uuid.NewString(),
			Options:      options,
			CorrectIndex: s.rng.Intn(need),
		}, nil
	}

	return nil, lastErr
}

// startPlayback starts the snippet and waits for the asynchronous
// confirmation, retrying once. An unconfirmed start skips the question
// without counting it. Batch-capable backends receive the whole option set
// so their player queue mirrors the question.
func (s *Session) startPlayback(ctx context.Context, question *Question) bool {
	for attempt := 0; attempt < 2; attempt++ {
		confirm, err := s.beginPlayback(ctx, question)
		if err != nil {
			log.Printf("Warning: playback start failed for question %s: %v", question.ID, err)
			continue
		}

		if err := confirm.Wait(playback.ConfirmTimeout); err != nil {
			log.Printf("Warning: playback unconfirmed for question %s: %v", question.ID, err)
			_ = s.backend.Stop()
			continue
		}

		return true
	}

	return false
}

func (s *Session) beginPlayback(ctx context.Context, question *Question) (*playback.Confirmation, error) {
	if batch, ok := s.backend.(playback.BatchBackend); ok {
		return batch.StartBatch(ctx, question.Options, question.CorrectIndex)
	}
	return s.backend.Start(ctx, question.Correct())
}

func (s *Session) stopPlayback() {
	if err := s.backend.Stop(); err != nil {
		log.Printf("Warning: failed to stop playback: %v", err)
	}
}

// finalize moves to Ended and folds the game into the profile statistics.
func (s *Session) finalize(fatal error) {
	s.stopPlayback()

	s.mu.Lock()
	s.state = StateEnded
	answered := s.answered
	score := s.score
	elapsed := int(time.Since(s.startedAt) / time.Second)
	s.mu.Unlock()

	if s.sink != nil {
		if err := s.sink.RecordGame(answered, score, elapsed); err != nil {
			log.Printf("Warning: failed to persist game statistics: %v", err)
		}
	}

	s.emit(Event{
		Type:     EventSessionEnded,
		Score:    score,
		Answered: answered,
		Err:      fatal,
	})
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) totalExhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingTotal <= 0
}

func (s *Session) stopped(ctx context.Context) bool {
	select {
	case <-s.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// emit delivers an event without ever blocking the run loop. Tick events are
// droppable; everything else waits briefly for a slow consumer.
func (s *Session) emit(event Event) {
	if event.Type == EventTick {
		select {
		case s.events <- event:
		default:
		}
		return
	}

	select {
	case s.events <- event:
	case <-time.After(time.Second):
		log.Printf("Warning: dropping session event %s (no consumer)", event.Type)
	}
}
