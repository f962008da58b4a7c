package store

import (
	"database/sql"
	"fmt"
	"time"

	"waveshelf/internal/domain"
)

// UpsertTrack inserts the track or, when a row with the same content id
// already exists, overwrites its mutable fields. CreatedAt and PlaylistID
// of an existing row are preserved so a re-import never reorders or
// un-files a track.
func (db *DB) UpsertTrack(track *domain.Track) error {
	query := `INSERT INTO tracks (
		id, title, artist, audio_ref, cover_ref, gradient, playlist_id, generated, created_at, updated_at
	) VALUES (
		:id, :title, :artist, :audio_ref, :cover_ref, :gradient, :playlist_id, :generated, :created_at, :updated_at
	)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		artist = excluded.artist,
		audio_ref = excluded.audio_ref,
		cover_ref = excluded.cover_ref,
		gradient = excluded.gradient,
		generated = excluded.generated,
		updated_at = excluded.updated_at`

	if _, err := db.NamedExec(query, track); err != nil {
		return fmt.Errorf("failed to upsert track: %w", err)
	}
	return nil
}

// GetTrack returns nil, nil when the id is unknown.
func (db *DB) GetTrack(id string) (*domain.Track, error) {
	var track domain.Track
	err := db.Get(&track, `SELECT * FROM tracks WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &track, nil
}

func (db *DB) ListTracks() ([]*domain.Track, error) {
	var tracks []*domain.Track
	if err := db.Select(&tracks, `SELECT * FROM tracks`); err != nil {
		return nil, err
	}
	return tracks, nil
}

func (db *DB) ListTracksByPlaylist(playlistID string) ([]*domain.Track, error) {
	var tracks []*domain.Track
	if err := db.Select(&tracks, `SELECT * FROM tracks WHERE playlist_id = ?`, playlistID); err != nil {
		return nil, err
	}
	return tracks, nil
}

// SetTrackPlaylist assigns or clears (nil) a track's containing playlist.
func (db *DB) SetTrackPlaylist(id string, playlistID *string) error {
	_, err := db.Exec(`UPDATE tracks SET playlist_id = ?, updated_at = ? WHERE id = ?`, playlistID, time.Now(), id)
	return err
}

// SetTrackGradient persists a lazily generated gradient descriptor.
func (db *DB) SetTrackGradient(id, gradient string) error {
	_, err := db.Exec(`UPDATE tracks SET gradient = ?, updated_at = ? WHERE id = ?`, gradient, time.Now(), id)
	return err
}

// DeleteTrack is idempotent; deleting an unknown id is not an error.
func (db *DB) DeleteTrack(id string) error {
	_, err := db.Exec(`DELETE FROM tracks WHERE id = ?`, id)
	return err
}

// CountTracksInPlaylist returns the number of tracks directly assigned to
// the playlist.
func (db *DB) CountTracksInPlaylist(playlistID string) (int, error) {
	var n int
	err := db.Get(&n, `SELECT COUNT(*) FROM tracks WHERE playlist_id = ?`, playlistID)
	return n, err
}
