package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"wspsr/internal/media"
	"wspsr/internal/services"
)

// AddTrack registers a discovered track. Registration is insert-if-absent:
// it reports false and leaves the stored entry untouched when the key is
// already known.
func (s *Store) AddTrack(ctx context.Context, track media.Track) (bool, error) {
	if track.Key == "" {
		return false, services.Wrap(services.ErrValidation, "queue", "add track", "track key is empty", nil)
	}
	payload, err := json.Marshal(track)
	if err != nil {
		return false, fmt.Errorf("marshal track: %w", err)
	}
	var archivePath string
	if track.Member != nil {
		archivePath = track.ArchivePath
	}
	res, err := s.execWithRetry(
		ctx,
		`INSERT OR IGNORE INTO tracks (key, path, archive_path, encrypted, track_json, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		track.Key,
		track.Path,
		nullableString(archivePath),
		boolToInt(track.IsEncrypted()),
		string(payload),
		s.timestamp(),
	)
	if err != nil {
		return false, fmt.Errorf("insert track: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Track fetches a registered track by key.
func (s *Store) Track(ctx context.Context, key string) (media.Track, error) {
	row := s.db.QueryRowContext(ctx, `SELECT track_json FROM tracks WHERE key = ?`, key)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return media.Track{}, unknownTrack(key)
	}
	if err != nil {
		return media.Track{}, fmt.Errorf("get track: %w", err)
	}
	return track, nil
}

// Tracks returns every registered track in discovery order.
func (s *Store) Tracks(ctx context.Context) ([]media.Track, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT track_json FROM tracks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []media.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

func (s *Store) trackExists(ctx context.Context, key string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tracks WHERE key = ?`, key).Scan(&count); err != nil {
		return false, fmt.Errorf("check track: %w", err)
	}
	return count > 0, nil
}

func scanTrack(scanner interface{ Scan(dest ...any) error }) (media.Track, error) {
	var payload string
	if err := scanner.Scan(&payload); err != nil {
		return media.Track{}, err
	}
	var track media.Track
	if err := json.Unmarshal([]byte(payload), &track); err != nil {
		return media.Track{}, fmt.Errorf("decode track: %w", err)
	}
	return track, nil
}

func unknownTrack(key string) error {
	return services.Wrap(services.ErrNotFound, "queue", "lookup track", key, ErrUnknownTrack)
}
