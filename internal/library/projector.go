package library

import (
	"sort"

	"waveshelf/internal/domain"
	"waveshelf/internal/logger"
	"waveshelf/internal/store"
)

// Projector derives the renderable library tree from the flat store. It
// never fails: a store error degrades to an empty tree so the UI always
// renders.
type Projector struct {
	store    *store.DB
	log      *logger.Logger
	gradient func() string
}

func NewProjector(db *store.DB, log *logger.Logger) *Projector {
	return &Projector{
		store:    db,
		log:      log.WithComponent("projector"),
		gradient: RandomGradient,
	}
}

// BuildTree produces the ordered forest: at every level child playlists
// come before sibling tracks, and within each group entries are ordered by
// CreatedAt descending. Tracks that carry neither a cover nor a gradient
// (legacy records) get a gradient generated and persisted on the spot.
func (p *Projector) BuildTree() *domain.Tree {
	tracks, err := p.store.ListTracks()
	if err != nil {
		p.log.Error("Failed to list tracks, rendering empty library", "error", err)
		return &domain.Tree{}
	}
	playlists, err := p.store.ListPlaylists()
	if err != nil {
		p.log.Error("Failed to list playlists, rendering empty library", "error", err)
		return &domain.Tree{}
	}

	p.healGradients(tracks)

	live := make(map[string]bool, len(playlists))
	for _, pl := range playlists {
		live[pl.ID] = true
	}

	// Group by containing playlist; anything pointing at a vanished
	// parent surfaces at the root rather than disappearing.
	const root = ""
	tracksByPlaylist := make(map[string][]*domain.Track)
	for _, t := range tracks {
		key := root
		if t.PlaylistID != nil && live[*t.PlaylistID] {
			key = *t.PlaylistID
		}
		tracksByPlaylist[key] = append(tracksByPlaylist[key], t)
	}
	childrenByParent := make(map[string][]*domain.Playlist)
	for _, pl := range playlists {
		key := root
		if pl.ParentID != nil && live[*pl.ParentID] {
			key = *pl.ParentID
		}
		childrenByParent[key] = append(childrenByParent[key], pl)
	}

	visited := make(map[string]bool)
	return &domain.Tree{
		Roots: p.buildLevel(root, tracksByPlaylist, childrenByParent, visited),
	}
}

func (p *Projector) buildLevel(parent string, tracksByPlaylist map[string][]*domain.Track, childrenByParent map[string][]*domain.Playlist, visited map[string]bool) []*domain.Node {
	children := childrenByParent[parent]
	sort.Slice(children, func(i, j int) bool {
		if !children[i].CreatedAt.Equal(children[j].CreatedAt) {
			return children[i].CreatedAt.After(children[j].CreatedAt)
		}
		return children[i].ID > children[j].ID
	})

	tracks := tracksByPlaylist[parent]
	sort.Slice(tracks, func(i, j int) bool {
		if !tracks[i].CreatedAt.Equal(tracks[j].CreatedAt) {
			return tracks[i].CreatedAt.After(tracks[j].CreatedAt)
		}
		return tracks[i].ID > tracks[j].ID
	})

	nodes := make([]*domain.Node, 0, len(children)+len(tracks))
	for _, pl := range children {
		if visited[pl.ID] {
			// A cycle should be impossible; skip rather than recurse forever.
			continue
		}
		visited[pl.ID] = true
		nodes = append(nodes, &domain.Node{
			Kind:     domain.NodePlaylist,
			Playlist: pl,
			Children: p.buildLevel(pl.ID, tracksByPlaylist, childrenByParent, visited),
		})
	}
	for _, t := range tracks {
		nodes = append(nodes, &domain.Node{Kind: domain.NodeTrack, Track: t})
	}
	return nodes
}

// healGradients backfills gradients for tracks that have no visual
// identity at all.
func (p *Projector) healGradients(tracks []*domain.Track) {
	for _, t := range tracks {
		if t.CoverRef != "" || t.Gradient != "" {
			continue
		}
		t.Gradient = p.gradient()
		if err := p.store.SetTrackGradient(t.ID, t.Gradient); err != nil {
			p.log.Warn("Failed to persist healed gradient", "track_id", t.ID, "error", err)
		}
	}
}
