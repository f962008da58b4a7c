package library

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"waveshelf/internal/blob"
	"waveshelf/internal/constants"
	"waveshelf/internal/domain"
	"waveshelf/internal/logger"
	"waveshelf/internal/store"
)

// Graph owns every structural mutation of the playlist forest and of
// track-to-playlist assignment. A single mutex serializes multi-step
// mutations so no reader interleaves with a half-applied change.
//
// Integrity violations (cycle-introducing moves, unknown ids) and lookup
// misses return (nil, nil): nothing to do, never a fault. A non-nil error
// means the store itself failed.
type Graph struct {
	store *store.DB
	blobs *blob.Tracker
	log   *logger.Logger
	now   func() time.Time

	mu sync.Mutex
}

func NewGraph(db *store.DB, blobs *blob.Tracker, log *logger.Logger) *Graph {
	return &Graph{
		store: db,
		blobs: blobs,
		log:   log.WithComponent("graph"),
		now:   time.Now,
	}
}

// CreatePlaylist inserts a new playlist under parentID (nil means the
// library root). A blank name defaults to "Playlist N" where N is the
// current playlist count plus one. Uniqueness is best-effort only.
func (g *Graph) CreatePlaylist(name, coverRef string, parentID *string) (*domain.Playlist, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		count, err := g.store.CountPlaylists()
		if err != nil {
			return nil, fmt.Errorf("failed to count playlists: %w", err)
		}
		name = fmt.Sprintf("Playlist %d", count+1)
	}

	// A vanished parent falls back to the root rather than creating a
	// dangling reference.
	if parentID != nil {
		parent, err := g.store.GetPlaylist(*parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			parentID = nil
		}
	}

	now := g.now()
	pl := &domain.Playlist{
		ID:        uuid.New().String(),
		Name:      name,
		CoverRef:  coverRef,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := g.store.UpsertPlaylist(pl); err != nil {
		return nil, err
	}

	g.log.Info("Playlist created", "playlist_id", pl.ID, "name", pl.Name)
	return pl, nil
}

// RenamePlaylist renames a playlist. A blank new name is ignored and the
// existing name kept; UpdatedAt is refreshed either way.
func (g *Graph) RenamePlaylist(id, newName string) (*domain.Playlist, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pl, err := g.store.GetPlaylist(id)
	if err != nil || pl == nil {
		return nil, err
	}

	if name := strings.TrimSpace(newName); name != "" {
		pl.Name = name
	}
	pl.UpdatedAt = g.now()
	if err := g.store.UpsertPlaylist(pl); err != nil {
		return nil, err
	}
	return pl, nil
}

// PlaylistUpdate is a partial field merge; nil fields stay untouched.
type PlaylistUpdate struct {
	Name        *string
	Description *string
	CoverRef    *string
}

// UpdatePlaylist merges the non-nil fields into the playlist.
func (g *Graph) UpdatePlaylist(id string, upd PlaylistUpdate) (*domain.Playlist, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pl, err := g.store.GetPlaylist(id)
	if err != nil || pl == nil {
		return nil, err
	}

	if upd.Name != nil && strings.TrimSpace(*upd.Name) != "" {
		pl.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		pl.Description = *upd.Description
	}
	if upd.CoverRef != nil {
		pl.CoverRef = *upd.CoverRef
	}
	pl.UpdatedAt = g.now()
	if err := g.store.UpsertPlaylist(pl); err != nil {
		return nil, err
	}
	return pl, nil
}

// MovePlaylist reparents a playlist. The move is rejected (nil result, no
// mutation) when the target is the playlist itself or any of its
// descendants, detected by walking parent links up from the target until a
// root or the moved playlist is reached.
func (g *Graph) MovePlaylist(id string, newParentID *string) (*domain.Playlist, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pl, err := g.store.GetPlaylist(id)
	if err != nil || pl == nil {
		return nil, err
	}

	if newParentID != nil {
		target, err := g.store.GetPlaylist(*newParentID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, nil
		}

		seen := make(map[string]bool)
		for cur := target; cur != nil; {
			if cur.ID == id {
				g.log.Debug("Rejected cycle-introducing move", "playlist_id", id, "target_id", *newParentID)
				return nil, nil
			}
			if cur.ParentID == nil || seen[cur.ID] {
				break
			}
			seen[cur.ID] = true
			cur, err = g.store.GetPlaylist(*cur.ParentID)
			if err != nil {
				return nil, err
			}
		}
	}

	pl.ParentID = newParentID
	pl.UpdatedAt = g.now()
	if err := g.store.UpsertPlaylist(pl); err != nil {
		return nil, err
	}

	g.log.Info("Playlist moved", "playlist_id", id)
	return pl, nil
}

// MoveTrackToPlaylist assigns (or, with nil, clears) a track's playlist.
// The first covered track moved into a coverless playlist donates its
// cover; the inheritance is one-time and never re-evaluated.
func (g *Graph) MoveTrackToPlaylist(trackID string, playlistID *string) (*domain.Track, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.moveTrackLocked(trackID, playlistID)
}

func (g *Graph) moveTrackLocked(trackID string, playlistID *string) (*domain.Track, error) {
	track, err := g.store.GetTrack(trackID)
	if err != nil || track == nil {
		return nil, err
	}

	if playlistID != nil {
		pl, err := g.store.GetPlaylist(*playlistID)
		if err != nil {
			return nil, err
		}
		if pl == nil {
			return nil, nil
		}
		if pl.CoverRef == "" && track.CoverRef != "" {
			pl.CoverRef = track.CoverRef
			pl.UpdatedAt = g.now()
			if err := g.store.UpsertPlaylist(pl); err != nil {
				return nil, err
			}
		}
	}

	if err := g.store.SetTrackPlaylist(trackID, playlistID); err != nil {
		return nil, err
	}
	track.PlaylistID = playlistID
	track.UpdatedAt = g.now()
	return track, nil
}

// MergeTracks creates a new playlist from two tracks, the drag-onto-track
// gesture. The playlist is named from truncated forms of both titles and
// parented under the target track's current playlist; both tracks move
// into it.
func (g *Graph) MergeTracks(draggedID, targetID string) (*domain.Playlist, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if draggedID == targetID {
		return nil, nil
	}
	dragged, err := g.store.GetTrack(draggedID)
	if err != nil || dragged == nil {
		return nil, err
	}
	target, err := g.store.GetTrack(targetID)
	if err != nil || target == nil {
		return nil, err
	}

	now := g.now()
	pl := &domain.Playlist{
		ID:        uuid.New().String(),
		Name:      mergeName(dragged.Title, target.Title),
		ParentID:  target.PlaylistID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := g.store.UpsertPlaylist(pl); err != nil {
		return nil, err
	}

	for _, id := range []string{draggedID, targetID} {
		if _, err := g.moveTrackLocked(id, &pl.ID); err != nil {
			return nil, err
		}
	}

	g.log.Info("Tracks merged into playlist", "playlist_id", pl.ID, "name", pl.Name)
	return pl, nil
}

// DeletePlaylist removes the playlist. Contained tracks are deleted when
// deleteTracks is set, otherwise evicted to the root. Child playlists are
// always reparented to the deleted node's former parent so the subtree
// collapses up one level instead of being orphaned. Returns false, nil for
// an unknown id.
func (g *Graph) DeletePlaylist(id string, deleteTracks bool) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pl, err := g.store.GetPlaylist(id)
	if err != nil {
		return false, err
	}
	if pl == nil {
		return false, nil
	}

	tracks, err := g.store.ListTracksByPlaylist(id)
	if err != nil {
		return false, err
	}
	for _, t := range tracks {
		if deleteTracks {
			if err := g.deleteTrackLocked(t); err != nil {
				return false, err
			}
		} else {
			if err := g.store.SetTrackPlaylist(t.ID, nil); err != nil {
				return false, err
			}
		}
	}

	children, err := g.store.ListPlaylistsByParent(id)
	if err != nil {
		return false, err
	}
	for _, child := range children {
		child.ParentID = pl.ParentID
		child.UpdatedAt = g.now()
		if err := g.store.UpsertPlaylist(child); err != nil {
			return false, err
		}
	}

	if err := g.store.DeletePlaylist(id); err != nil {
		return false, err
	}
	g.releaseCoverLocked(pl.CoverRef)

	g.log.Info("Playlist deleted", "playlist_id", id, "tracks_deleted", deleteTracks)
	return true, nil
}

// DeleteTrack removes a track entirely, releasing its owned blobs. Returns
// false, nil for an unknown id.
func (g *Graph) DeleteTrack(id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	track, err := g.store.GetTrack(id)
	if err != nil {
		return false, err
	}
	if track == nil {
		return false, nil
	}
	if err := g.deleteTrackLocked(track); err != nil {
		return false, err
	}
	return true, nil
}

func (g *Graph) deleteTrackLocked(track *domain.Track) error {
	if err := g.store.DeleteTrack(track.ID); err != nil {
		return err
	}
	// The audio payload is exclusively owned; the cover may be shared via
	// playlist inheritance.
	g.blobs.MarkOrphaned(track.AudioRef)
	g.releaseCoverLocked(track.CoverRef)
	return nil
}

// releaseCoverLocked orphans a cover blob once nothing references it.
func (g *Graph) releaseCoverLocked(ref string) {
	if ref == "" {
		return
	}
	uses, err := g.store.CountCoverUses(ref)
	if err != nil {
		g.log.Warn("Failed to count cover uses", "ref", ref, "error", err)
		return
	}
	if uses == 0 {
		g.blobs.MarkOrphaned(ref)
	}
}

// CleanupEmptyPlaylists deletes every playlist with no direct tracks and
// no live child playlists, repeating until a pass deletes nothing:
// deleting a leaf can make its parent newly empty, and a single pass would
// leave such stale ancestors behind. Returns the number of playlists
// removed.
func (g *Graph) CleanupEmptyPlaylists() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	total := 0
	for {
		playlists, err := g.store.ListPlaylists()
		if err != nil {
			return total, err
		}

		childCount := make(map[string]int)
		for _, pl := range playlists {
			if pl.ParentID != nil {
				childCount[*pl.ParentID]++
			}
		}

		var empty []*domain.Playlist
		for _, pl := range playlists {
			if childCount[pl.ID] > 0 {
				continue
			}
			n, err := g.store.CountTracksInPlaylist(pl.ID)
			if err != nil {
				return total, err
			}
			if n == 0 {
				empty = append(empty, pl)
			}
		}

		if len(empty) == 0 {
			return total, nil
		}
		for _, pl := range empty {
			if err := g.store.DeletePlaylist(pl.ID); err != nil {
				return total, err
			}
			g.releaseCoverLocked(pl.CoverRef)
			total++
		}
		g.log.Debug("Cleanup pass removed empty playlists", "count", len(empty))
	}
}

// SweepOrphanBlobs removes blob files no record references and no UI lease
// protects. Run at startup to reclaim files left behind by a crash.
func (g *Graph) SweepOrphanBlobs(blobs *blob.Store) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	live, err := g.store.ListBlobRefs()
	if err != nil {
		return err
	}
	refs, err := blobs.Refs()
	if err != nil {
		return err
	}

	removed := 0
	for _, ref := range refs {
		if live[ref] || g.blobs.LeaseCount(ref) > 0 {
			continue
		}
		if err := blobs.Remove(ref); err == nil {
			removed++
		}
	}
	if removed > 0 {
		g.log.Info("Swept orphan blobs", "count", removed)
	}
	return nil
}

func mergeName(a, b string) string {
	return truncateTitle(a) + " / " + truncateTitle(b)
}

func truncateTitle(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= constants.MergeTitleRunes {
		return string(runes)
	}
	return string(runes[:constants.MergeTitleRunes])
}
