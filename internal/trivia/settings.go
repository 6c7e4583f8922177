package trivia

import (
	"errors"
	"time"

	"github.com/hxnx/triviatune/internal/catalog"
)

// GameSettings is populated once per session start and never mutated, so the
// engine never reads durations or counts from any presentation layer
// mid-game.
type GameSettings struct {
	Origin          catalog.Origin
	ServiceUsername string

	QuestionDuration time.Duration
	TotalDuration    time.Duration
	PauseDuration    time.Duration

	OptionCount    int
	SnippetSeconds int

	// MinDurationSeconds filters out tracks too short for a snippet. Zero
	// defaults to the snippet length.
	MinDurationSeconds int

	RewardSeconds        int
	PenaltySeconds       int
	FavoriteMultaSeconds int
}

func (s GameSettings) Validate() error {
	if s.Origin == "" {
		return errors.New("origin is required")
	}
	if s.OptionCount < 2 {
		return errors.New("option count must be at least 2")
	}
	if s.QuestionDuration < time.Second {
		return errors.New("question duration must be at least one second")
	}
	if s.TotalDuration < s.QuestionDuration {
		return errors.New("total duration must be at least one question long")
	}
	if s.SnippetSeconds < 1 {
		return errors.New("snippet length must be at least one second")
	}
	return nil
}

func (s GameSettings) minDuration() int {
	if s.MinDurationSeconds > 0 {
		return s.MinDurationSeconds
	}
	return s.SnippetSeconds
}
