// Package storage persists emotion readings so the teacher dashboard
// can review a class after the live session ends.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/emoedu/live/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS emotions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id     TEXT NOT NULL,
	user_id     TEXT NOT NULL,
	emotion     TEXT NOT NULL,
	confidence  REAL NOT NULL,
	recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_emotions_room ON emotions(room_id, recorded_at);
`

// EmotionReading is one persisted sample.
type EmotionReading struct {
	RoomID     domain.RoomID `json:"roomId"`
	UserID     domain.UserID `json:"userId"`
	Emotion    string        `json:"emotion"`
	Confidence float64       `json:"confidence"`
	RecordedAt time.Time     `json:"recordedAt"`
}

// EmotionStore is a sqlite-backed append-only emotion log. SQLite
// allows one writer at a time, so writes are serialised behind a mutex.
type EmotionStore struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates the store, bootstrapping the schema if needed.
func Open(path string) (*EmotionStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open emotion store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap emotion schema: %w", err)
	}
	return &EmotionStore{db: db}, nil
}

// RecordEmotion implements core.EmotionSink.
func (s *EmotionStore) RecordEmotion(ctx context.Context, room domain.RoomID, user domain.UserID, emotion string, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO emotions (room_id, user_id, emotion, confidence) VALUES (?, ?, ?, ?)`,
		string(room), string(user), emotion, confidence)
	if err != nil {
		return fmt.Errorf("record emotion: %w", err)
	}
	return nil
}

// RecentByRoom returns up to limit readings for a room, newest first.
func (s *EmotionStore) RecentByRoom(ctx context.Context, room domain.RoomID, limit int) ([]EmotionReading, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT room_id, user_id, emotion, confidence, recorded_at
		 FROM emotions WHERE room_id = ? ORDER BY id DESC LIMIT ?`,
		string(room), limit)
	if err != nil {
		return nil, fmt.Errorf("query emotions: %w", err)
	}
	defer rows.Close()

	var out []EmotionReading
	for rows.Next() {
		var rec EmotionReading
		var roomID, userID string
		if err := rows.Scan(&roomID, &userID, &rec.Emotion, &rec.Confidence, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan emotion row: %w", err)
		}
		rec.RoomID = domain.RoomID(roomID)
		rec.UserID = domain.UserID(userID)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *EmotionStore) Close() error {
	return s.db.Close()
}
