package trivia

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hxnx/triviatune/internal/catalog"
	"github.com/hxnx/triviatune/internal/playback"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	mu     sync.Mutex
	tracks []catalog.Track
	err    error
	calls  int
}

func (f *fakeSource) FindCandidates(ctx context.Context, query string, args []any) ([]catalog.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.tracks, nil
}

type fakeBackend struct {
	mu       sync.Mutex
	confirms bool
	starts   int
	stops    int
}

func (f *fakeBackend) Start(ctx context.Context, track catalog.Track) (*playback.Confirmation, error) {
	f.mu.Lock()
	f.starts++
	f.mu.Unlock()

	confirm := playback.NewConfirmation()
	if f.confirms {
		confirm.Resolve(nil)
	}
	return confirm, nil
}

func (f *fakeBackend) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeBackend) SeekPercent(percent float64) error { return nil }

func (f *fakeBackend) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

func (f *fakeBackend) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts
}

// fakeBatchBackend also accepts whole option sets and pause toggles.
type fakeBatchBackend struct {
	fakeBackend

	batchMu      sync.Mutex
	batchStarts  int
	batchOptions []catalog.Track
	batchCorrect int
	pauses       int
}

func (f *fakeBatchBackend) StartBatch(ctx context.Context, options []catalog.Track, correctIndex int) (*playback.Confirmation, error) {
	f.batchMu.Lock()
	f.batchStarts++
	f.batchOptions = append([]catalog.Track(nil), options...)
	f.batchCorrect = correctIndex
	f.batchMu.Unlock()

	confirm := playback.NewConfirmation()
	confirm.Resolve(nil)
	return confirm, nil
}

func (f *fakeBatchBackend) CyclePause() error {
	f.batchMu.Lock()
	defer f.batchMu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeBatchBackend) pauseCount() int {
	f.batchMu.Lock()
	defer f.batchMu.Unlock()
	return f.pauses
}

type fakeSink struct {
	mu        sync.Mutex
	games     int
	questions int
	correct   int
	seconds   int
}

func (f *fakeSink) RecordGame(questions, correct, secondsPlayed int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games++
	f.questions += questions
	f.correct += correct
	f.seconds += secondsPlayed
	return nil
}

func (f *fakeSink) snapshot() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.games, f.questions, f.correct
}

func testTracks(n int) []catalog.Track {
	tracks := make([]catalog.Track, n)
	for i := range tracks {
		tracks[i] = catalog.Track{
			ID:       int64(i + 1),
			Title:    "Track",
			Artist:   "Artist",
			Duration: 180,
			Origin:   catalog.OriginLocal,
		}
	}
	return tracks
}

func testSettings() GameSettings {
	return GameSettings{
		Origin:           catalog.OriginLocal,
		QuestionDuration: 5 * time.Second,
		TotalDuration:    60 * time.Second,
		PauseDuration:    0,
		OptionCount:      4,
		SnippetSeconds:   3,
		RewardSeconds:    1,
		PenaltySeconds:   2,
	}
}

func newTestSession(t *testing.T, settings GameSettings, source CandidateSource, backend playback.Backend, sink ProfileSink) *Session {
	t.Helper()

	session, err := NewSession(settings, NewFilterSet(), nil, source, backend, sink,
		WithRand(rand.New(rand.NewSource(1))),
		withTick(time.Millisecond),
	)
	require.NoError(t, err)
	return session
}

// waitEvent drains the event stream until it sees the wanted type.
func waitEvent(t *testing.T, session *Session, want EventType) Event {
	t.Helper()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-session.Events():
			if !ok {
				t.Fatalf("event stream closed while waiting for %s", want)
			}
			if event.Type == want {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func drainEvents(session *Session) {
	go func() {
		for range session.Events() {
		}
	}()
}

func TestCorrectIndexIsUniform(t *testing.T) {
	source := &fakeSource{tracks: testTracks(4)}
	session := newTestSession(t, testSettings(), source, &fakeBackend{confirms: true}, nil)

	const draws = 10000
	counts := make([]int, 4)
	for i := 0; i < draws; i++ {
		question, err := session.loadQuestion(context.Background())
		require.NoError(t, err)
		counts[question.CorrectIndex]++
	}

	// Expected 2500 per index; allow 2 percentage points of drift.
	for i, count := range counts {
		assert.InDeltaf(t, draws/4, count, 200, "index %d drawn %d times", i, count)
	}
}

func TestCorrectAnswerAppliesReward(t *testing.T) {
	backend := &fakeBackend{confirms: true}
	session := newTestSession(t, testSettings(), &fakeSource{tracks: testTracks(4)}, backend, nil)

	session.remainingTotal = 3
	question := &Question{ID: "q", Options: testTracks(4), CorrectIndex: 2}

	session.resolve(question, 2, false)

	assert.Equal(t, 4, session.RemainingTotal())
	assert.Equal(t, 1, session.Score())
	assert.Equal(t, 1, session.Answered())
	assert.Equal(t, 1, backend.stopCount(), "playback must stop before scoring")
}

func TestIncorrectAnswerPenaltyWithFavoriteMulta(t *testing.T) {
	settings := testSettings()
	settings.PenaltySeconds = 2
	settings.FavoriteMultaSeconds = 3

	session := newTestSession(t, settings, &fakeSource{tracks: testTracks(4)}, &fakeBackend{confirms: true}, nil)

	session.remainingTotal = 10
	options := testTracks(4)
	options[1].Favorite = true
	question := &Question{ID: "q", Options: options, CorrectIndex: 1}

	session.resolve(question, 3, false)

	assert.Equal(t, 5, session.RemainingTotal())
	assert.Equal(t, 0, session.Score())
	assert.Equal(t, 1, session.Answered())
}

func TestPenaltyClampsAtZero(t *testing.T) {
	settings := testSettings()
	settings.PenaltySeconds = 100

	session := newTestSession(t, settings, &fakeSource{tracks: testTracks(4)}, &fakeBackend{confirms: true}, nil)

	session.remainingTotal = 3
	question := &Question{ID: "q", Options: testTracks(4), CorrectIndex: 0}

	session.resolve(question, 2, false)

	assert.Equal(t, 0, session.RemainingTotal())
}

func TestAnswerFlow(t *testing.T) {
	sink := &fakeSink{}
	session := newTestSession(t, testSettings(), &fakeSource{tracks: testTracks(4)}, &fakeBackend{confirms: true}, sink)

	require.NoError(t, session.Start(context.Background()))

	started := waitEvent(t, session, EventQuestionStarted)
	session.Answer(started.Question.CorrectIndex)

	resolved := waitEvent(t, session, EventQuestionResolved)
	assert.True(t, resolved.WasCorrect)
	assert.False(t, resolved.TimedOut)
	assert.Equal(t, 1, resolved.Score)

	drainEvents(session)
	session.Stop()

	games, questions, correct := sink.snapshot()
	assert.Equal(t, 1, games)
	assert.GreaterOrEqual(t, questions, 1)
	assert.GreaterOrEqual(t, correct, 1)
}

func TestQuestionTimeoutCountsAsAnswered(t *testing.T) {
	settings := testSettings()
	settings.QuestionDuration = 2 * time.Second

	sink := &fakeSink{}
	session := newTestSession(t, settings, &fakeSource{tracks: testTracks(4)}, &fakeBackend{confirms: true}, sink)

	require.NoError(t, session.Start(context.Background()))

	resolved := waitEvent(t, session, EventQuestionResolved)
	assert.True(t, resolved.TimedOut)
	assert.False(t, resolved.WasCorrect)
	assert.Equal(t, 1, resolved.Answered)
	assert.Equal(t, 0, resolved.Score)

	drainEvents(session)
	session.Stop()
}

func TestUnconfirmedPlaybackSkipsWithoutCounting(t *testing.T) {
	backend := &fakeBackend{confirms: false}
	sink := &fakeSink{}
	session := newTestSession(t, testSettings(), &fakeSource{tracks: testTracks(4)}, backend, sink)

	require.NoError(t, session.Start(context.Background()))

	waitEvent(t, session, EventQuestionSkipped)
	drainEvents(session)
	session.Stop()

	games, questions, _ := sink.snapshot()
	assert.Equal(t, 1, games)
	assert.Equal(t, 0, questions, "unconfirmed skips must not count as answered")
	assert.Equal(t, 0, session.Score())
}

func TestTotalTimerPreemptsQuestion(t *testing.T) {
	settings := testSettings()
	settings.TotalDuration = 2 * time.Second
	settings.QuestionDuration = 2 * time.Second

	sink := &fakeSink{}
	session := newTestSession(t, settings, &fakeSource{tracks: testTracks(4)}, &fakeBackend{confirms: true}, sink)

	require.NoError(t, session.Start(context.Background()))

	ended := waitEvent(t, session, EventSessionEnded)
	assert.NoError(t, ended.Err)
	assert.Equal(t, StateEnded, session.State())

	<-session.Done()
}

func TestInsufficientCandidatesEndsSession(t *testing.T) {
	source := &fakeSource{tracks: testTracks(2)} // fewer than the option count
	sink := &fakeSink{}
	session := newTestSession(t, testSettings(), source, &fakeBackend{confirms: true}, sink)

	require.NoError(t, session.Start(context.Background()))

	ended := waitEvent(t, session, EventSessionEnded)
	assert.ErrorIs(t, ended.Err, ErrInsufficientCandidates)

	<-session.Done()

	source.mu.Lock()
	calls := source.calls
	source.mu.Unlock()
	assert.Equal(t, candidateAttempts, calls)
}

func TestCatalogErrorRetriesThenFails(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	session := newTestSession(t, testSettings(), source, &fakeBackend{confirms: true}, nil)

	require.NoError(t, session.Start(context.Background()))

	ended := waitEvent(t, session, EventSessionEnded)
	assert.Error(t, ended.Err)

	<-session.Done()
}

func TestStopAfterEndedIsNoOp(t *testing.T) {
	settings := testSettings()
	settings.TotalDuration = 1 * time.Second
	settings.QuestionDuration = 1 * time.Second

	session := newTestSession(t, settings, &fakeSource{tracks: testTracks(4)}, &fakeBackend{confirms: true}, nil)

	require.NoError(t, session.Start(context.Background()))
	drainEvents(session)
	<-session.Done()

	state := session.State()
	session.Stop()
	session.Stop()
	assert.Equal(t, state, session.State())
}

func TestQuestionIdentifiersAreUnique(t *testing.T) {
	source := &fakeSource{tracks: testTracks(4)}
	session := newTestSession(t, testSettings(), source, &fakeBackend{confirms: true}, nil)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		question, err := session.loadQuestion(context.Background())
		require.NoError(t, err)

		_, err = uuid.Parse(question.ID)
		require.NoError(t, err, "question id %q must be a valid identifier", question.ID)

		_, dup := seen[question.ID]
		assert.False(t, dup, "question id %q issued twice", question.ID)
		seen[question.ID] = struct{}{}
	}
}

func TestBatchCapableBackendGetsWholeOptionSet(t *testing.T) {
	backend := &fakeBatchBackend{fakeBackend: fakeBackend{confirms: true}}
	session := newTestSession(t, testSettings(), &fakeSource{tracks: testTracks(4)}, backend, nil)

	require.NoError(t, session.Start(context.Background()))

	started := waitEvent(t, session, EventQuestionStarted)

	backend.batchMu.Lock()
	batchStarts := backend.batchStarts
	options := backend.batchOptions
	correct := backend.batchCorrect
	backend.batchMu.Unlock()

	assert.GreaterOrEqual(t, batchStarts, 1)
	assert.Len(t, options, 4)
	assert.Equal(t, started.Question.CorrectIndex, correct)
	assert.Equal(t, 0, backend.startCount(), "batch-capable backends must not get single starts")

	drainEvents(session)
	session.Stop()
}

func waitState(t *testing.T, session *Session, want SessionState) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if session.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("session never reached state %v", want)
}

func TestPauseFreezesCountdownAndTogglesAudio(t *testing.T) {
	settings := testSettings()
	settings.QuestionDuration = 60 * time.Second
	settings.TotalDuration = 600 * time.Second

	backend := &fakeBatchBackend{fakeBackend: fakeBackend{confirms: true}}
	session := newTestSession(t, settings, &fakeSource{tracks: testTracks(4)}, backend, nil)

	require.NoError(t, session.Start(context.Background()))

	started := waitEvent(t, session, EventQuestionStarted)

	session.TogglePause()
	waitState(t, session, StatePaused)
	assert.Eventually(t, func() bool { return backend.pauseCount() == 1 }, time.Second, time.Millisecond)

	frozen := session.RemainingTotal()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StatePaused, session.State())
	assert.Equal(t, frozen, session.RemainingTotal(), "countdowns must freeze while paused")

	session.TogglePause()
	assert.Eventually(t, func() bool {
		state := session.State()
		return state == StatePlaying || state == StateAwaitingAnswer
	}, 5*time.Second, time.Millisecond, "session must leave the paused state")
	assert.Eventually(t, func() bool { return backend.pauseCount() == 2 }, time.Second, time.Millisecond)

	session.Answer(started.Question.CorrectIndex)
	resolved := waitEvent(t, session, EventQuestionResolved)
	assert.True(t, resolved.WasCorrect)

	drainEvents(session)
	session.Stop()
}

func TestStartTwiceFails(t *testing.T) {
	session := newTestSession(t, testSettings(), &fakeSource{tracks: testTracks(4)}, &fakeBackend{confirms: true}, nil)

	require.NoError(t, session.Start(context.Background()))
	assert.ErrorIs(t, session.Start(context.Background()), ErrSessionActive)

	drainEvents(session)
	session.Stop()
}
