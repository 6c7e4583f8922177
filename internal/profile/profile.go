package profile

import (
	"time"

	"github.com/hxnx/triviatune/internal/trivia"
)

// Statistics accumulates across games; updated only when a session ends.
type Statistics struct {
	GamesPlayed       int       `toml:"games_played"`
	QuestionsAnswered int       `toml:"questions_answered"`
	CorrectAnswers    int       `toml:"correct_answers"`
	SecondsPlayed     int       `toml:"seconds_played"`
	LastPlayedAt      time.Time `toml:"last_played_at"`
}

// GameSettings is the persisted per-profile game configuration, populated
// into an immutable trivia.GameSettings at session start.
type GameSettings struct {
	Origin          string `toml:"origin"`
	ServiceUsername string `toml:"service_username"`
	QuestionSeconds int    `toml:"question_seconds"`
	TotalSeconds    int    `toml:"total_seconds"`
	PauseSeconds    int    `toml:"pause_seconds"`
	OptionCount     int    `toml:"option_count"`
	SnippetSeconds  int    `toml:"snippet_seconds"`
}

// Rewards holds the time adjustments applied per resolved question. The
// favorite multa is an extra penalty for missing a track flagged favorite.
type Rewards struct {
	RewardSeconds        int `toml:"reward_seconds"`
	PenaltySeconds       int `toml:"penalty_seconds"`
	FavoriteMultaSeconds int `toml:"favorite_multa_seconds"`
}

// Profile is one named player: hotkeys, filters, settings and lifetime
// statistics. One profile is "current" at a time; the store persists each as
// a standalone TOML file.
type Profile struct {
	Name     string            `toml:"name"`
	Hotkeys  map[string]string `toml:"hotkeys"`
	Filters  trivia.FilterSet  `toml:"filters"`
	Settings GameSettings      `toml:"settings"`
	Rewards  Rewards           `toml:"rewards"`
	Stats    Statistics        `toml:"stats"`
}

func New(name string) *Profile {
	return &Profile{
		Name: name,
		Hotkeys: map[string]string{
			"1": "1",
			"2": "2",
			"3": "3",
			"4": "4",
		},
		Filters: *trivia.NewFilterSet(),
		Settings: GameSettings{
			Origin:          "local",
			QuestionSeconds: 30,
			TotalSeconds:    300,
			PauseSeconds:    5,
			OptionCount:     4,
			SnippetSeconds:  30,
		},
		Rewards: Rewards{
			RewardSeconds:        5,
			PenaltySeconds:       10,
			FavoriteMultaSeconds: 5,
		},
	}
}

// ApplyGameStats folds one finished game into the lifetime statistics.
func (p *Profile) ApplyGameStats(questions, correct, secondsPlayed int) {
	p.Stats.GamesPlayed++
	p.Stats.QuestionsAnswered += questions
	p.Stats.CorrectAnswers += correct
	p.Stats.SecondsPlayed += secondsPlayed
	p.Stats.LastPlayedAt = time.Now().UTC()
}
