// Package store persists analysis runs in SQLite so past reports can be
// re-rendered and exported without burning API quota again.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/channelscope/channelscope/engine/analyzer"
	"github.com/channelscope/channelscope/engine/classify"
	"github.com/channelscope/channelscope/engine/youtube"
)

// ErrNoRuns is returned when the store holds no matching run.
var ErrNoRuns = errors.New("no runs stored")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	channel_id TEXT NOT NULL,
	channel_title TEXT NOT NULL,
	custom_url TEXT NOT NULL DEFAULT '',
	uploads_playlist_id TEXT NOT NULL DEFAULT '',
	video_count INTEGER NOT NULL DEFAULT 0,
	subscriber_count INTEGER NOT NULL DEFAULT 0,
	view_count INTEGER NOT NULL DEFAULT 0,
	timezone TEXT NOT NULL,
	started_at TEXT NOT NULL,
	completed_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS videos (
	run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	video_id TEXT NOT NULL,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	video_views INTEGER NOT NULL,
	duration TEXT NOT NULL,
	duration_seconds INTEGER NOT NULL,
	published_at TEXT NOT NULL,
	published_local TEXT NOT NULL,
	description TEXT NOT NULL,
	hashtags TEXT NOT NULL DEFAULT '',
	has_voice INTEGER NOT NULL,
	confidence REAL NOT NULL,
	method TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// SaveReport stores a completed run and returns its id. The report and
// its videos are written in one transaction.
func (s *Store) SaveReport(ctx context.Context, report *analyzer.Report) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (channel_id, channel_title, custom_url, uploads_playlist_id,
			video_count, subscriber_count, view_count, timezone, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.Channel.ID, report.Channel.Title, report.Channel.CustomURL,
		report.Channel.UploadsPlaylistID, report.Channel.VideoCount,
		report.Channel.SubscriberCount, report.Channel.ViewCount,
		report.Timezone,
		report.StartedAt.Format(time.RFC3339),
		report.CompletedAt.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO videos (run_id, position, video_id, title, url, video_views,
			duration, duration_seconds, published_at, published_local,
			description, hashtags, has_voice, confidence, method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, v := range report.Videos {
		if _, err := stmt.ExecContext(ctx, runID, i, v.ID, v.Title, v.URL,
			v.ViewCount, v.Duration, v.DurationSeconds,
			v.PublishedAt.UTC().Format(time.RFC3339), v.PublishedLocal,
			v.Description, strings.Join(v.Hashtags, ","),
			v.Narration.HasVoice, v.Narration.Confidence, v.Narration.Method); err != nil {
			return 0, fmt.Errorf("insert video %s: %w", v.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// Report loads one stored run by id.
func (s *Store) Report(ctx context.Context, id int64) (*analyzer.Report, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT channel_id, channel_title, custom_url, uploads_playlist_id,
			video_count, subscriber_count, view_count, timezone, started_at, completed_at
		FROM runs WHERE id = ?`, id)

	var report analyzer.Report
	var started, completed string
	err := row.Scan(&report.Channel.ID, &report.Channel.Title,
		&report.Channel.CustomURL, &report.Channel.UploadsPlaylistID,
		&report.Channel.VideoCount, &report.Channel.SubscriberCount,
		&report.Channel.ViewCount, &report.Timezone, &started, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("load run %d: %w", id, err)
	}
	if report.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if report.CompletedAt, err = time.Parse(time.RFC3339, completed); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}

	if report.Videos, err = s.videos(ctx, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// LatestReport loads the most recently saved run.
func (s *Store) LatestReport(ctx context.Context) (*analyzer.Report, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, err
	}
	return s.Report(ctx, id)
}

// LatestRunID returns the id of the most recently saved run.
func (s *Store) LatestRunID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoRuns
	}
	return id, err
}

func (s *Store) videos(ctx context.Context, runID int64) ([]analyzer.AnalyzedVideo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT video_id, title, url, video_views, duration, duration_seconds,
			published_at, published_local, description, hashtags,
			has_voice, confidence, method
		FROM videos WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("load videos for run %d: %w", runID, err)
	}
	defer rows.Close()

	var out []analyzer.AnalyzedVideo
	for rows.Next() {
		var (
			rec       youtube.VideoRecord
			verdict   classify.Verdict
			published string
			hashtags  string
		)
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.URL, &rec.ViewCount,
			&rec.Duration, &rec.DurationSeconds, &published, &rec.PublishedLocal,
			&rec.Description, &hashtags,
			&verdict.HasVoice, &verdict.Confidence, &verdict.Method); err != nil {
			return nil, err
		}
		if rec.PublishedAt, err = time.Parse(time.RFC3339, published); err != nil {
			return nil, fmt.Errorf("parse published_at: %w", err)
		}
		if hashtags != "" {
			rec.Hashtags = strings.Split(hashtags, ",")
		}
		out = append(out, analyzer.AnalyzedVideo{VideoRecord: rec, Narration: verdict})
	}
	return out, rows.Err()
}
