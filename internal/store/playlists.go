package store

import (
	"database/sql"
	"fmt"

	"waveshelf/internal/domain"
)

// UpsertPlaylist inserts or fully overwrites a playlist row.
func (db *DB) UpsertPlaylist(pl *domain.Playlist) error {
	query := `INSERT INTO playlists (
		id, name, description, cover_ref, parent_id, created_at, updated_at
	) VALUES (
		:id, :name, :description, :cover_ref, :parent_id, :created_at, :updated_at
	)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		description = excluded.description,
		cover_ref = excluded.cover_ref,
		parent_id = excluded.parent_id,
		updated_at = excluded.updated_at`

	if _, err := db.NamedExec(query, pl); err != nil {
		return fmt.Errorf("failed to upsert playlist: %w", err)
	}
	return nil
}

// GetPlaylist returns nil, nil when the id is unknown.
func (db *DB) GetPlaylist(id string) (*domain.Playlist, error) {
	var pl domain.Playlist
	err := db.Get(&pl, `SELECT * FROM playlists WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

func (db *DB) ListPlaylists() ([]*domain.Playlist, error) {
	var playlists []*domain.Playlist
	if err := db.Select(&playlists, `SELECT * FROM playlists`); err != nil {
		return nil, err
	}
	return playlists, nil
}

func (db *DB) ListPlaylistsByParent(parentID string) ([]*domain.Playlist, error) {
	var playlists []*domain.Playlist
	if err := db.Select(&playlists, `SELECT * FROM playlists WHERE parent_id = ?`, parentID); err != nil {
		return nil, err
	}
	return playlists, nil
}

// DeletePlaylist is idempotent; deleting an unknown id is not an error.
func (db *DB) DeletePlaylist(id string) error {
	_, err := db.Exec(`DELETE FROM playlists WHERE id = ?`, id)
	return err
}

// CountPlaylists returns the total number of playlists, used for the
// "Playlist N" default naming.
func (db *DB) CountPlaylists() (int, error) {
	var n int
	err := db.Get(&n, `SELECT COUNT(*) FROM playlists`)
	return n, err
}

// CountChildPlaylists returns the number of direct child playlists.
func (db *DB) CountChildPlaylists(parentID string) (int, error) {
	var n int
	err := db.Get(&n, `SELECT COUNT(*) FROM playlists WHERE parent_id = ?`, parentID)
	return n, err
}
