package library

import (
	"strings"
	"testing"
	"time"

	"waveshelf/internal/blob"
	"waveshelf/internal/domain"
	"waveshelf/internal/store"
)

func seedAt(t *testing.T, db *store.DB, id string, createdAt time.Time, playlistID *string) {
	t.Helper()
	track := &domain.Track{
		ID:        id,
		Title:     "Track " + id,
		Artist:    "Artist",
		AudioRef:  "audio-" + id,
		Gradient:  "linear-gradient(90deg, #1a2a6c, #b21f1f)",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := db.UpsertTrack(track); err != nil {
		t.Fatalf("Failed to seed track: %v", err)
	}
	if playlistID != nil {
		if err := db.SetTrackPlaylist(id, playlistID); err != nil {
			t.Fatalf("Failed to assign track: %v", err)
		}
	}
}

func TestProjector_OrderingNewestFirst(t *testing.T) {
	db, _, log := testEnv(t)
	p := NewProjector(db, log)

	base := time.Now().Add(-time.Hour)
	seedAt(t, db, "t1", base, nil)
	seedAt(t, db, "t2", base.Add(time.Minute), nil)
	seedAt(t, db, "t3", base.Add(2*time.Minute), nil)

	tree := p.BuildTree()
	if len(tree.Roots) != 3 {
		t.Fatalf("Expected 3 roots, got %d", len(tree.Roots))
	}
	for i, want := range []string{"t3", "t2", "t1"} {
		if tree.Roots[i].Track.ID != want {
			t.Errorf("Root %d: expected %s, got %s", i, want, tree.Roots[i].Track.ID)
		}
	}
}

func TestProjector_PlaylistsBeforeTracks(t *testing.T) {
	db, blobs, log := testEnv(t)
	g := NewGraph(db, blob.NewTracker(blobs), log)
	p := NewProjector(db, log)

	base := time.Now().Add(-time.Hour)
	// The track is newer than the playlist yet still sorts after it
	pl, _ := g.CreatePlaylist("Mix", "", nil)
	seedAt(t, db, "inside", base, &pl.ID)
	seedAt(t, db, "loose", time.Now(), nil)

	tree := p.BuildTree()
	if len(tree.Roots) != 2 {
		t.Fatalf("Expected 2 roots, got %d", len(tree.Roots))
	}
	if tree.Roots[0].Kind != domain.NodePlaylist {
		t.Errorf("Expected playlist first, got %s", tree.Roots[0].Kind)
	}
	if tree.Roots[1].Kind != domain.NodeTrack || tree.Roots[1].Track.ID != "loose" {
		t.Errorf("Expected loose track second")
	}

	children := tree.Roots[0].Children
	if len(children) != 1 || children[0].Track.ID != "inside" {
		t.Errorf("Expected nested track, got %+v", children)
	}
}

func TestProjector_DanglingParentSurfacesAtRoot(t *testing.T) {
	db, _, log := testEnv(t)
	p := NewProjector(db, log)

	ghost := "vanished-playlist"
	seedAt(t, db, "t1", time.Now(), &ghost)

	tree := p.BuildTree()
	if len(tree.Roots) != 1 || tree.Roots[0].Track.ID != "t1" {
		t.Errorf("Expected dangling track surfaced at root, got %+v", tree.Roots)
	}
}

func TestProjector_HealsMissingGradients(t *testing.T) {
	db, _, log := testEnv(t)
	p := NewProjector(db, log)

	// A legacy record with neither cover nor gradient
	now := time.Now()
	db.UpsertTrack(&domain.Track{ID: "bare", Title: "T", Artist: "A", AudioRef: "a", CreatedAt: now, UpdatedAt: now})

	tree := p.BuildTree()
	if len(tree.Roots) != 1 {
		t.Fatalf("Expected 1 root, got %d", len(tree.Roots))
	}
	healed := tree.Roots[0].Track.Gradient
	if !strings.HasPrefix(healed, "linear-gradient(") {
		t.Fatalf("Expected a gradient, got %q", healed)
	}

	// The heal is persisted, not just projected
	fetched, _ := db.GetTrack("bare")
	if fetched.Gradient != healed {
		t.Errorf("Expected healed gradient persisted, got %q", fetched.Gradient)
	}
}

func TestRandomGradient_Format(t *testing.T) {
	for i := 0; i < 20; i++ {
		got := RandomGradient()
		if !strings.HasPrefix(got, "linear-gradient(") || !strings.HasSuffix(got, ")") {
			t.Fatalf("Malformed gradient %q", got)
		}
		parts := strings.Split(got, ", ")
		if len(parts) != 3 {
			t.Fatalf("Expected angle and two colors in %q", got)
		}
		if parts[1] == parts[2][:len(parts[2])-1] {
			t.Errorf("Expected distinct colors in %q", got)
		}
	}
}
