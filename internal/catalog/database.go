package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

var (
	db   *sql.DB
	once sync.Once
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (cfg *Config) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.DBName, cfg.SSLMode,
	)

	if cfg.Password != "" {
		connStr += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return connStr
}

func Initialize(cfg *Config) error {
	var initError error

	once.Do(func() {
		var err error
		db, err = sql.Open("postgres", cfg.ConnectionString())
		if err != nil {
			initError = fmt.Errorf("failed to open database: %w", err)
			return
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			initError = fmt.Errorf("failed to ping database: %w", err)
			return
		}

		if err := runMigrations(); err != nil {
			initError = fmt.Errorf("failed to run migrations: %w", err)
			return
		}

		log.Printf("Catalog database connection established")
	})

	return initError
}

func runMigrations() error {
	migrations := []string{
		`
		CREATE TABLE IF NOT EXISTS tracks (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			artist TEXT NOT NULL DEFAULT '',
			album TEXT NOT NULL DEFAULT '',
			file_path TEXT NOT NULL DEFAULT '',
			duration INTEGER NOT NULL DEFAULT 0,
			genre TEXT NOT NULL DEFAULT '',
			label TEXT NOT NULL DEFAULT '',
			year INTEGER NOT NULL DEFAULT 0,
			release_date TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			producer TEXT NOT NULL DEFAULT '',
			engineer TEXT NOT NULL DEFAULT '',
			lyrics TEXT NOT NULL DEFAULT '',
			artwork_url TEXT NOT NULL DEFAULT '',
			recording_id TEXT NOT NULL DEFAULT '',
			favorite BOOLEAN NOT NULL DEFAULT FALSE,
			origin TEXT NOT NULL DEFAULT 'local',
			added_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		`,
		`
		CREATE INDEX IF NOT EXISTS idx_tracks_origin ON tracks (origin);
		`,
		`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_tracks_file_path
		ON tracks (file_path) WHERE file_path <> '';
		`,
		`
		CREATE TABLE IF NOT EXISTS track_links (
			track_id BIGINT NOT NULL REFERENCES tracks (id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			url TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (track_id, kind)
		);
		`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("failed to execute migration: %w\nQuery: %s", err, m)
		}
	}
	log.Printf("Catalog migrations completed")
	return nil
}

func GetDB() *sql.DB {
	return db
}

func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}
