package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hxnx/triviatune/config"
	"github.com/hxnx/triviatune/internal/cache"
	"github.com/hxnx/triviatune/internal/catalog"
	"github.com/hxnx/triviatune/internal/playback"
	"github.com/hxnx/triviatune/internal/profile"
	"github.com/hxnx/triviatune/internal/trivia"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("TriviaTune - Music Trivia Engine")
	log.Println("================================")

	scanDir := flag.String("scan", "", "import local audio files from this directory and exit")
	profileName := flag.String("profile", "default", "player profile to use")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Error: Failed to load configuration: %v", err)
		log.Println("")
		log.Println("Please ensure you have set the following environment variables:")
		log.Println("  DB_USER, DB_NAME         - Catalog database credentials (required)")
		log.Println("")
		log.Println("Optional environment variables:")
		log.Println("  DB_HOST, DB_PORT, DB_PASSWORD, DB_SSLMODE")
		log.Println("  REDIS_HOST, REDIS_PORT, REDIS_PASSWORD, REDIS_DB")
		log.Println("  PROFILE_DIR              - Player profile directory")
		log.Println("  MPV_BINARY, FFPLAY_BINARY")
		log.Println("  METADATA_API_BASE        - Preview lookup service base URL")
		log.Println("  QUESTION_SECONDS, TOTAL_SECONDS, PAUSE_SECONDS")
		log.Println("  OPTION_COUNT, SNIPPET_SECONDS")
		os.Exit(1)
	}

	log.Println("")
	log.Println("Configuration loaded successfully")
	log.Println("---------------------------------")
	log.Printf("  Profile Dir: %s", cfg.ProfileDir)
	log.Printf("  Database: %s@%s:%d/%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName)
	log.Printf("  Redis: %s:%d", cfg.RedisHost, cfg.RedisPort)

	dbConfig := &catalog.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}
	if err := catalog.Initialize(dbConfig); err != nil {
		log.Fatalf("Error: Catalog initialization failed: %v", err)
	}
	defer catalog.Close()

	repo := catalog.NewTrackRepository()

	if *scanDir != "" {
		runScan(repo, *scanDir)
		return
	}

	redisConfig := cache.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	if _, err := cache.Init(redisConfig); err != nil {
		log.Printf("Warning: Redis initialization failed, caching disabled: %v", err)
	}
	defer cache.Close()

	store, err := profile.NewStore(cfg.ProfileDir)
	if err != nil {
		log.Fatalf("Error: Failed to open profile store: %v", err)
	}

	current := store.LoadOrDefault(*profileName)
	log.Printf("Loaded profile %q (games played: %d)", current.Name, current.Stats.GamesPlayed)

	if err := runGame(cfg, repo, store, current); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func runScan(repo *catalog.TrackRepository, dir string) {
	log.Printf("Scanning %s ...", dir)

	scanner := catalog.NewScanner(repo)
	imported, err := scanner.Scan(context.Background(), dir)
	if err != nil {
		log.Fatalf("Error: scan failed after %d tracks: %v", imported, err)
	}

	log.Printf("Imported %d tracks", imported)
}

func runGame(cfg *config.Config, repo *catalog.TrackRepository, store *profile.Store, current *profile.Profile) error {
	settings := settingsFromProfile(cfg, current)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	backend, shutdown := buildBackend(cfg, repo, settings.Origin, rng)
	defer shutdown()

	sink := &profileSink{store: store, profile: current}

	opts := []trivia.SessionOption{trivia.WithRand(rng)}
	if cache.Client() != nil {
		opts = append(opts, trivia.WithRecentTracker(&recentTracker{
			recent:  cache.NewRecentlyPlayed(cache.Client()),
			profile: current.Name,
		}))
	}

	session, err := trivia.NewSession(settings, &current.Filters, nil, repo, backend, sink, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := session.Start(ctx); err != nil {
		return err
	}

	go readAnswers(session, current.Hotkeys)

	for event := range session.Events() {
		printEvent(event)
	}

	return nil
}

func settingsFromProfile(cfg *config.Config, p *profile.Profile) trivia.GameSettings {
	s := p.Settings

	origin := catalog.Origin(s.Origin)
	if origin == "" {
		origin = catalog.OriginLocal
	}

	return trivia.GameSettings{
		Origin:               origin,
		ServiceUsername:      s.ServiceUsername,
		QuestionDuration:     secondsOr(s.QuestionSeconds, cfg.QuestionSeconds),
		TotalDuration:        secondsOr(s.TotalSeconds, cfg.TotalSeconds),
		PauseDuration:        secondsOr(s.PauseSeconds, cfg.PauseSeconds),
		OptionCount:          intOr(s.OptionCount, cfg.OptionCount),
		SnippetSeconds:       intOr(s.SnippetSeconds, cfg.SnippetSeconds),
		RewardSeconds:        p.Rewards.RewardSeconds,
		PenaltySeconds:       p.Rewards.PenaltySeconds,
		FavoriteMultaSeconds: p.Rewards.FavoriteMultaSeconds,
	}
}

func secondsOr(value, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

func intOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func buildBackend(cfg *config.Config, repo *catalog.TrackRepository, origin catalog.Origin, rng *rand.Rand) (playback.Backend, func()) {
	if origin.IsLocal() {
		options := playback.DefaultSnippetOptions(cfg.SnippetSeconds)
		backend := playback.NewLocalBackend(cfg.FFPlayBinary, options, rng)
		return backend, func() { _ = backend.Stop() }
	}

	controller := playback.NewController(cfg.MPVBinary, playback.DefaultSeekBand(), rng)
	shutdown := func() { _ = controller.Shutdown() }

	if origin.Service() == "youtube" {
		return playback.NewExternalBackend(repo, controller), shutdown
	}

	var urlCache playback.URLCache
	if cache.Client() != nil {
		urlCache = cache.NewPreviewCache(cache.Client())
	}

	lookup := playback.NewLookupClient(cfg.MetadataAPIBase)
	backend := playback.NewRemoteBackend(cfg.FFPlayBinary, repo, urlCache, lookup, controller)
	stop := func() {
		_ = backend.Stop()
		shutdown()
	}
	return backend, stop
}

func readAnswers(session *trivia.Session, hotkeys map[string]string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		command := resolveCommand(hotkeys, strings.TrimSpace(scanner.Text()))
		switch command {
		case "q", "quit":
			session.Stop()
			return
		case "p", "pause":
			session.TogglePause()
		default:
			if n, err := strconv.Atoi(command); err == nil && n >= 1 {
				session.Answer(n - 1)
			}
		}
	}
}

// resolveCommand translates a key press through the profile's hotkey map;
// unmapped input passes through as typed.
func resolveCommand(hotkeys map[string]string, line string) string {
	if mapped, ok := hotkeys[line]; ok {
		return mapped
	}
	return line
}

func printEvent(event trivia.Event) {
	switch event.Type {
	case trivia.EventQuestionStarted:
		fmt.Println()
		fmt.Printf("Question (time left: %ds)\n", event.RemainingTotal)
		for i, option := range event.Question.Options {
			fmt.Printf("  %d) %s — %s\n", i+1, option.Artist, option.Title)
		}
		fmt.Print("> ")

	case trivia.EventQuestionResolved:
		correct := event.Question.Correct()
		if event.WasCorrect {
			fmt.Printf("Correct! %s — %s (score: %d)\n", correct.Artist, correct.Title, event.Score)
		} else if event.TimedOut {
			fmt.Printf("Time's up. It was %s — %s\n", correct.Artist, correct.Title)
		} else {
			fmt.Printf("Wrong. It was %s — %s\n", correct.Artist, correct.Title)
		}

	case trivia.EventQuestionSkipped:
		fmt.Println("Playback failed, skipping to the next track...")

	case trivia.EventSessionEnded:
		fmt.Println()
		if event.Err != nil {
			fmt.Printf("Session ended: %v\n", event.Err)
		}
		fmt.Printf("Game over. Score %d/%d\n", event.Score, event.Answered)
	}
}

// profileSink persists game statistics into the current profile when a
// session ends.
type profileSink struct {
	store   *profile.Store
	profile *profile.Profile
}

func (s *profileSink) RecordGame(questions, correct, secondsPlayed int) error {
	s.profile.ApplyGameStats(questions, correct, secondsPlayed)
	return s.store.Save(s.profile)
}

// recentTracker scopes the shared recently-played list to one profile.
type recentTracker struct {
	recent  *cache.RecentlyPlayed
	profile string
}

func (t *recentTracker) Record(ctx context.Context, trackID int64) error {
	return t.recent.Record(ctx, t.profile, trackID)
}

func (t *recentTracker) Recent(ctx context.Context) ([]int64, error) {
	return t.recent.List(ctx, t.profile)
}
