package drag

import (
	"testing"
	"time"

	"waveshelf/internal/constants"
	"waveshelf/internal/domain"
	"waveshelf/internal/logger"
)

// fakeGraph records the one call a resolution makes.
type fakeGraph struct {
	calls   []string
	reject  bool
	cleaned int
}

func (f *fakeGraph) MoveTrackToPlaylist(trackID string, playlistID *string) (*domain.Track, error) {
	dest := "root"
	if playlistID != nil {
		dest = *playlistID
	}
	f.calls = append(f.calls, "move_track:"+trackID+"->"+dest)
	if f.reject {
		return nil, nil
	}
	return &domain.Track{ID: trackID}, nil
}

func (f *fakeGraph) MovePlaylist(id string, newParentID *string) (*domain.Playlist, error) {
	dest := "root"
	if newParentID != nil {
		dest = *newParentID
	}
	f.calls = append(f.calls, "move_playlist:"+id+"->"+dest)
	if f.reject {
		return nil, nil
	}
	return &domain.Playlist{ID: id}, nil
}

func (f *fakeGraph) MergeTracks(draggedID, targetID string) (*domain.Playlist, error) {
	f.calls = append(f.calls, "merge:"+draggedID+"+"+targetID)
	if f.reject {
		return nil, nil
	}
	return &domain.Playlist{ID: "merged"}, nil
}

func (f *fakeGraph) CleanupEmptyPlaylists() (int, error) {
	f.cleaned++
	return 0, nil
}

func testController(graph Graph) *Controller {
	return NewController(graph, nil, logger.New(logger.Config{Level: "error", Format: "text"}))
}

// dragOut runs a full promoted gesture and returns the result.
func dragOut(t *testing.T, c *Controller, item Item, target Target) *Result {
	t.Helper()
	base := time.Now()
	if !c.Press(item, Point{X: 0, Y: 0}, base) {
		t.Fatalf("Press refused")
	}
	c.Move(Point{X: 100, Y: 100}, base.Add(10*time.Millisecond))
	result, err := c.Release(target, base.Add(20*time.Millisecond))
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	return result
}

func TestController_ClickDoesNotMutate(t *testing.T) {
	graph := &fakeGraph{}
	c := testController(graph)
	base := time.Now()

	// Quick press and release without movement is a click
	c.Press(Item{Kind: ItemTrack, ID: "t1"}, Point{}, base)
	result, err := c.Release(Target{Kind: TargetPlaylist, ID: "p1"}, base.Add(50*time.Millisecond))
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if result != nil {
		t.Errorf("Expected nil result for a click, got %+v", result)
	}
	if len(graph.calls) != 0 {
		t.Errorf("Expected no graph calls, got %v", graph.calls)
	}

	// The controller is reusable afterwards
	if !c.Press(Item{Kind: ItemTrack, ID: "t1"}, Point{}, time.Now()) {
		t.Errorf("Expected press accepted after click")
	}
}

func TestController_PromotionByDistance(t *testing.T) {
	c := testController(&fakeGraph{})
	base := time.Now()

	c.Press(Item{Kind: ItemTrack, ID: "t1"}, Point{X: 0, Y: 0}, base)

	// Below the threshold the gesture stays Pressed
	if phase := c.Move(Point{X: 3, Y: 3}, base.Add(time.Millisecond)); phase != Pressed {
		t.Errorf("Expected Pressed under threshold, got %v", phase)
	}
	if phase := c.Move(Point{X: 10, Y: 0}, base.Add(2*time.Millisecond)); phase != Dragging {
		t.Errorf("Expected Dragging past threshold, got %v", phase)
	}
}

func TestController_PromotionByHoldDelay(t *testing.T) {
	c := testController(&fakeGraph{})
	base := time.Now()

	c.Press(Item{Kind: ItemTrack, ID: "t1"}, Point{}, base)

	if phase := c.Tick(base.Add(constants.DragHoldDelay / 2)); phase != Pressed {
		t.Errorf("Expected Pressed before hold delay, got %v", phase)
	}
	if phase := c.Tick(base.Add(constants.DragHoldDelay)); phase != Dragging {
		t.Errorf("Expected Dragging after hold delay, got %v", phase)
	}
}

func TestController_HoldThenReleasePromotes(t *testing.T) {
	graph := &fakeGraph{}
	c := testController(graph)
	base := time.Now()

	// No Move or Tick at all; the release itself is past the hold delay
	c.Press(Item{Kind: ItemTrack, ID: "t1"}, Point{}, base)
	result, err := c.Release(Target{Kind: TargetNone}, base.Add(constants.DragHoldDelay+time.Millisecond))
	if err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if result == nil || result.Op != OpMoveTrackToRoot {
		t.Errorf("Expected held release to resolve, got %+v", result)
	}
}

func TestController_ResolutionTable(t *testing.T) {
	cases := []struct {
		name   string
		item   Item
		target Target
		op     Op
		call   string
	}{
		{"track onto playlist", Item{ItemTrack, "t1"}, Target{TargetPlaylist, "p1"}, OpMoveTrack, "move_track:t1->p1"},
		{"track onto track", Item{ItemTrack, "t1"}, Target{TargetTrack, "t2"}, OpMergeTracks, "merge:t1+t2"},
		{"track onto empty area", Item{ItemTrack, "t1"}, Target{TargetNone, ""}, OpMoveTrackToRoot, "move_track:t1->root"},
		{"playlist onto playlist", Item{ItemPlaylist, "p1"}, Target{TargetPlaylist, "p2"}, OpMovePlaylist, "move_playlist:p1->p2"},
		{"playlist onto empty area", Item{ItemPlaylist, "p1"}, Target{TargetNone, ""}, OpMovePlaylistToRoot, "move_playlist:p1->root"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			graph := &fakeGraph{}
			c := testController(graph)
			result := dragOut(t, c, tc.item, tc.target)
			if result.Op != tc.op {
				t.Errorf("Expected op %s, got %s", tc.op, result.Op)
			}
			if result.Rejected {
				t.Errorf("Expected accepted resolution")
			}
			if len(graph.calls) != 1 || graph.calls[0] != tc.call {
				t.Errorf("Expected call %q, got %v", tc.call, graph.calls)
			}
			if graph.cleaned != 1 {
				t.Errorf("Expected one cleanup pass, got %d", graph.cleaned)
			}
		})
	}
}

func TestController_NoOpDrops(t *testing.T) {
	cases := []struct {
		name   string
		item   Item
		target Target
	}{
		{"track onto itself", Item{ItemTrack, "t1"}, Target{TargetTrack, "t1"}},
		{"playlist onto itself", Item{ItemPlaylist, "p1"}, Target{TargetPlaylist, "p1"}},
		{"playlist onto track", Item{ItemPlaylist, "p1"}, Target{TargetTrack, "t1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			graph := &fakeGraph{}
			c := testController(graph)
			result := dragOut(t, c, tc.item, tc.target)
			if result.Op != OpNone {
				t.Errorf("Expected no-op, got %s", result.Op)
			}
			if len(graph.calls) != 0 {
				t.Errorf("Expected no graph calls, got %v", graph.calls)
			}
			if graph.cleaned != 0 {
				t.Errorf("Expected no cleanup for a no-op")
			}
		})
	}
}

func TestController_RejectedMutation(t *testing.T) {
	graph := &fakeGraph{reject: true}
	c := testController(graph)

	result := dragOut(t, c, Item{Kind: ItemPlaylist, ID: "p1"}, Target{Kind: TargetPlaylist, ID: "p2"})
	if !result.Rejected {
		t.Errorf("Expected rejection surfaced, got %+v", result)
	}
	if graph.cleaned != 0 {
		t.Errorf("Expected no cleanup after a rejected mutation")
	}
}

func TestController_PressRefusedWhileActive(t *testing.T) {
	c := testController(&fakeGraph{})
	base := time.Now()

	if !c.Press(Item{Kind: ItemTrack, ID: "t1"}, Point{}, base) {
		t.Fatalf("First press refused")
	}
	if c.Press(Item{Kind: ItemTrack, ID: "t2"}, Point{}, base) {
		t.Errorf("Expected second press refused while a gesture is active")
	}

	c.Cancel()
	if !c.Press(Item{Kind: ItemTrack, ID: "t2"}, Point{}, time.Now()) {
		t.Errorf("Expected press accepted after cancel")
	}
}

func TestController_HoverOnlyWhileDragging(t *testing.T) {
	c := testController(&fakeGraph{})
	base := time.Now()

	c.Press(Item{Kind: ItemTrack, ID: "t1"}, Point{}, base)
	c.Hover(Target{Kind: TargetPlaylist, ID: "p1"})
	if got := c.Hovered(); got.Kind != TargetNone {
		t.Errorf("Expected hover ignored before promotion, got %+v", got)
	}

	c.Move(Point{X: 50, Y: 0}, base.Add(time.Millisecond))
	c.Hover(Target{Kind: TargetPlaylist, ID: "p1"})
	if got := c.Hovered(); got.Kind != TargetPlaylist || got.ID != "p1" {
		t.Errorf("Expected hover recorded while dragging, got %+v", got)
	}
}
