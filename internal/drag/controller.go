// Package drag interprets press-hold-move-release gestures over rendered
// library items and turns each completed drag into exactly one graph
// mutation.
package drag

import (
	"math"
	"sync"
	"time"

	"waveshelf/internal/constants"
	"waveshelf/internal/domain"
	"waveshelf/internal/logger"
)

// Phase is the gesture state.
type Phase int

const (
	Idle Phase = iota
	Pressed
	Dragging
)

type ItemKind string

const (
	ItemTrack    ItemKind = "track"
	ItemPlaylist ItemKind = "playlist"
)

// Item is the pressed library entry.
type Item struct {
	Kind ItemKind
	ID   string
}

type TargetKind string

const (
	// TargetNone is empty area / the library root.
	TargetNone     TargetKind = "none"
	TargetTrack    TargetKind = "track"
	TargetPlaylist TargetKind = "playlist"
)

// Target is the drop target under the pointer.
type Target struct {
	Kind TargetKind
	ID   string
}

// Point is a pointer position in pixels.
type Point struct {
	X, Y float64
}

// Graph is the slice of the playlist graph manager the controller drives.
type Graph interface {
	MoveTrackToPlaylist(trackID string, playlistID *string) (*domain.Track, error)
	MovePlaylist(id string, newParentID *string) (*domain.Playlist, error)
	MergeTracks(draggedID, targetID string) (*domain.Playlist, error)
	CleanupEmptyPlaylists() (int, error)
}

// Op names the resolved mutation.
type Op string

const (
	OpNone               Op = "none"
	OpMoveTrack          Op = "move_track"
	OpMoveTrackToRoot    Op = "move_track_to_root"
	OpMergeTracks        Op = "merge_tracks"
	OpMovePlaylist       Op = "move_playlist"
	OpMovePlaylistToRoot Op = "move_playlist_to_root"
)

// Result describes what a release did. Rejected is set when the graph
// refused the mutation (cycle, vanished id) and the tree is unchanged.
type Result struct {
	Op         Op     `json:"op"`
	Rejected   bool   `json:"rejected"`
	PlaylistID string `json:"playlist_id,omitempty"` // created/target playlist, when relevant
}

// Controller is the gesture state machine. Pressed promotes to Dragging
// after the hold delay elapses or the pointer moves past the distance
// threshold, whichever comes first. A release that never reached Dragging
// is a plain click and mutates nothing. Gestures are serialized: while a
// resolution is in flight new presses are refused.
type Controller struct {
	graph   Graph
	refresh func() // re-projection, invoked after every successful resolution
	log     *logger.Logger

	holdDelay time.Duration
	threshold float64

	mu        sync.Mutex
	phase     Phase
	item      Item
	origin    Point
	pressedAt time.Time
	hover     Target
	busy      bool
}

func NewController(graph Graph, refresh func(), log *logger.Logger) *Controller {
	return &Controller{
		graph:     graph,
		refresh:   refresh,
		log:       log.WithComponent("drag"),
		holdDelay: constants.DragHoldDelay,
		threshold: constants.DragMoveThreshold,
	}
}

// Press begins a gesture over item. Returns false when a previous
// gesture's resolution is still in flight or a gesture is already active.
func (c *Controller) Press(item Item, p Point, at time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy || c.phase != Idle {
		return false
	}
	c.phase = Pressed
	c.item = item
	c.origin = p
	c.pressedAt = at
	c.hover = Target{Kind: TargetNone}
	return true
}

// Move updates the pointer position, promoting Pressed to Dragging once
// movement exceeds the threshold or the hold delay has already elapsed.
func (c *Controller) Move(p Point, at time.Time) Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Pressed {
		if dist(c.origin, p) > c.threshold || at.Sub(c.pressedAt) >= c.holdDelay {
			c.phase = Dragging
		}
	}
	return c.phase
}

// Tick is the hold-timer check; the UI calls it while the pointer is held
// still.
func (c *Controller) Tick(at time.Time) Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Pressed && at.Sub(c.pressedAt) >= c.holdDelay {
		c.phase = Dragging
	}
	return c.phase
}

// Hover records the drop target currently under the pointer; the UI
// highlights it. Only meaningful while Dragging.
func (c *Controller) Hover(target Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Dragging {
		c.hover = target
	}
}

// Hovered returns the currently highlighted drop target.
func (c *Controller) Hovered() Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hover
}

// Cancel aborts the gesture (pointer left the surface, hold timer
// cancelled by early release handling elsewhere).
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = Idle
	c.hover = Target{Kind: TargetNone}
}

// Release ends the gesture. A gesture still in Pressed is a click: no
// mutation, nil result. A Dragging release resolves to one graph call,
// then cleanup and re-projection run before the controller accepts the
// next press.
func (c *Controller) Release(target Target, at time.Time) (*Result, error) {
	c.mu.Lock()
	if c.phase == Pressed && at.Sub(c.pressedAt) >= c.holdDelay {
		c.phase = Dragging
	}
	if c.phase != Dragging {
		c.phase = Idle
		c.mu.Unlock()
		return nil, nil
	}
	item := c.item
	c.phase = Idle
	c.hover = Target{Kind: TargetNone}
	c.busy = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	result, err := c.resolve(item, target)
	if err != nil {
		return nil, err
	}

	if result.Op != OpNone && !result.Rejected {
		if _, err := c.graph.CleanupEmptyPlaylists(); err != nil {
			c.log.Warn("Cleanup after drag failed", "error", err)
		}
		if c.refresh != nil {
			c.refresh()
		}
	}
	return result, nil
}

func (c *Controller) resolve(item Item, target Target) (*Result, error) {
	switch {
	case item.Kind == ItemTrack && target.Kind == TargetPlaylist:
		track, err := c.graph.MoveTrackToPlaylist(item.ID, &target.ID)
		if err != nil {
			return nil, err
		}
		return &Result{Op: OpMoveTrack, Rejected: track == nil, PlaylistID: target.ID}, nil

	case item.Kind == ItemTrack && target.Kind == TargetTrack && target.ID != item.ID:
		pl, err := c.graph.MergeTracks(item.ID, target.ID)
		if err != nil {
			return nil, err
		}
		res := &Result{Op: OpMergeTracks, Rejected: pl == nil}
		if pl != nil {
			res.PlaylistID = pl.ID
		}
		return res, nil

	case item.Kind == ItemTrack && target.Kind == TargetNone:
		track, err := c.graph.MoveTrackToPlaylist(item.ID, nil)
		if err != nil {
			return nil, err
		}
		return &Result{Op: OpMoveTrackToRoot, Rejected: track == nil}, nil

	case item.Kind == ItemPlaylist && target.Kind == TargetPlaylist && target.ID != item.ID:
		pl, err := c.graph.MovePlaylist(item.ID, &target.ID)
		if err != nil {
			return nil, err
		}
		return &Result{Op: OpMovePlaylist, Rejected: pl == nil, PlaylistID: target.ID}, nil

	case item.Kind == ItemPlaylist && target.Kind == TargetNone:
		pl, err := c.graph.MovePlaylist(item.ID, nil)
		if err != nil {
			return nil, err
		}
		return &Result{Op: OpMovePlaylistToRoot, Rejected: pl == nil}, nil
	}

	// Dropping an item on itself, or a playlist on a track: nothing to do.
	return &Result{Op: OpNone}, nil
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
