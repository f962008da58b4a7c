package domain

import "time"

// Track is a playable audio item. The audio payload and any cover image
// live in the blob store; the row only carries their refs. AudioRef is
// exclusively owned by the track; CoverRef may be shared with a playlist
// that inherited it.
type Track struct {
	ID         string    `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	Artist     string    `json:"artist" db:"artist"`
	AudioRef   string    `json:"audio_ref" db:"audio_ref"`
	CoverRef   string    `json:"cover_ref,omitempty" db:"cover_ref"`
	Gradient   string    `json:"gradient,omitempty" db:"gradient"`
	PlaylistID *string   `json:"playlist_id,omitempty" db:"playlist_id"`
	Generated  bool      `json:"generated" db:"generated"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Cover returns the track's display cover. An image always wins over a
// gradient.
func (t *Track) Cover() Cover {
	return coverOf(t.CoverRef, t.Gradient)
}

// Playlist is a named container. ParentID forms a forest; the parent graph
// must stay acyclic.
type Playlist struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	CoverRef    string    `json:"cover_ref,omitempty" db:"cover_ref"`
	ParentID    *string   `json:"parent_id,omitempty" db:"parent_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Cover returns the playlist's display cover.
func (p *Playlist) Cover() Cover {
	return coverOf(p.CoverRef, "")
}

// Setting is a generic key/value pair persisted across restarts.
type Setting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Well-known setting keys.
const (
	SettingLastPlayedID = "last_played_id"
	// SettingLastCoverSpec only ever holds a gradient descriptor; blob refs
	// do not survive a reload of the playing surface.
	SettingLastCoverSpec = "last_cover_spec"
)

// CoverKind tags the Cover variant.
type CoverKind string

const (
	CoverNone     CoverKind = "none"
	CoverGradient CoverKind = "gradient"
	CoverImage    CoverKind = "image"
)

// Cover is the tagged display-artwork variant: no artwork, a generated
// gradient descriptor, or a blob-backed image.
type Cover struct {
	Kind     CoverKind `json:"kind"`
	Gradient string    `json:"gradient,omitempty"`
	Ref      string    `json:"ref,omitempty"`
}

func coverOf(ref, gradient string) Cover {
	switch {
	case ref != "":
		return Cover{Kind: CoverImage, Ref: ref}
	case gradient != "":
		return Cover{Kind: CoverGradient, Gradient: gradient}
	default:
		return Cover{Kind: CoverNone}
	}
}

// NodeKind tags entries of the rendered library tree.
type NodeKind string

const (
	NodeTrack    NodeKind = "track"
	NodePlaylist NodeKind = "playlist"
)

// Node is one entry of the render tree. Playlist nodes carry their
// materialized children: child playlists first, then tracks, both newest
// first.
type Node struct {
	Kind     NodeKind  `json:"kind"`
	Track    *Track    `json:"track,omitempty"`
	Playlist *Playlist `json:"playlist,omitempty"`
	Children []*Node   `json:"children,omitempty"`
}

// Tree is the ordered forest the UI renders.
type Tree struct {
	Roots []*Node `json:"roots"`
}
