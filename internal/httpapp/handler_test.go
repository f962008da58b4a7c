package httpapp

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"waveshelf/internal/blob"
	"waveshelf/internal/domain"
	"waveshelf/internal/library"
	"waveshelf/internal/logger"
	"waveshelf/internal/store"
	"waveshelf/internal/worker"
)

type testApp struct {
	handler *Handler
	server  *httptest.Server
	db      *store.DB
	blobs   *blob.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	blobs, err := blob.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}
	tracker := blob.NewTracker(blobs)

	log := logger.New(logger.Config{Level: "error", Format: "text"})
	importer := library.NewImporter(db, blobs, nil, log)
	graph := library.NewGraph(db, tracker, log)
	projector := library.NewProjector(db, log)
	jobs := worker.NewJobService(db, log)

	h := NewHandler(importer, graph, projector, jobs, blobs, tracker, db, log)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &testApp{handler: h, server: srv, db: db, blobs: blobs}
}

func (app *testApp) postJSON(t *testing.T, path string, payload any) *http.Response {
	t.Helper()
	body, _ := json.Marshal(payload)
	resp, err := http.Post(app.server.URL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return v
}

func TestHandler_UploadAndLibrary(t *testing.T) {
	app := newTestApp(t)

	// Multipart upload with two files
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"Artist - One.mp3", "Artist - Two.mp3"} {
		fw, _ := mw.CreateFormFile("files", name)
		fw.Write([]byte("audio for " + name))
	}
	mw.Close()

	resp, err := http.Post(app.server.URL+"/api/tracks", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	result := decodeJSON[map[string]any](t, resp)
	if result["imported"] != float64(2) {
		t.Errorf("Expected 2 imported, got %v", result["imported"])
	}

	// The library now lists both tracks
	libResp, err := http.Get(app.server.URL + "/api/library")
	if err != nil {
		t.Fatalf("GET library failed: %v", err)
	}
	tree := decodeJSON[domain.Tree](t, libResp)
	if len(tree.Roots) != 2 {
		t.Errorf("Expected 2 roots, got %d", len(tree.Roots))
	}
}

func TestHandler_PlaylistLifecycle(t *testing.T) {
	app := newTestApp(t)

	resp := app.postJSON(t, "/api/playlists", map[string]string{"name": "Favorites"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	pl := decodeJSON[domain.Playlist](t, resp)
	if pl.Name != "Favorites" {
		t.Errorf("Unexpected playlist %+v", pl)
	}

	// Rename via PATCH
	body, _ := json.Marshal(map[string]string{"name": "Renamed"})
	req, _ := http.NewRequest(http.MethodPatch, app.server.URL+"/api/playlists/"+pl.ID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	patchResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH failed: %v", err)
	}
	renamed := decodeJSON[domain.Playlist](t, patchResp)
	if renamed.Name != "Renamed" {
		t.Errorf("Expected rename, got %q", renamed.Name)
	}

	// An empty playlist disappears on the next structural mutation's
	// cleanup; deleting it directly works regardless
	req, _ = http.NewRequest(http.MethodDelete, app.server.URL+"/api/playlists/"+pl.ID, nil)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	delResp.Body.Close()

	fetched, _ := app.db.GetPlaylist(pl.ID)
	if fetched != nil {
		t.Errorf("Expected playlist deleted")
	}
}

func TestHandler_MovePlaylistCycleRejected(t *testing.T) {
	app := newTestApp(t)

	a := decodeJSON[domain.Playlist](t, app.postJSON(t, "/api/playlists", map[string]string{"name": "A"}))
	b := decodeJSON[domain.Playlist](t, app.postJSON(t, "/api/playlists", map[string]string{"name": "B", "parent_id": a.ID}))

	// Pin both playlists with a track so cleanup leaves them alone
	seedHTTPTrack(t, app, "t1", &b.ID)

	resp := app.postJSON(t, "/api/playlists/"+a.ID+"/move", map[string]string{"parent_id": b.ID})
	result := decodeJSON[map[string]any](t, resp)
	if result["rejected"] != true {
		t.Errorf("Expected cycle move rejected, got %v", result)
	}
}

func seedHTTPTrack(t *testing.T, app *testApp, id string, playlistID *string) {
	t.Helper()
	now := time.Now()
	track := &domain.Track{ID: id, Title: "T " + id, Artist: "A", AudioRef: "audio-" + id, CreatedAt: now, UpdatedAt: now}
	if err := app.db.UpsertTrack(track); err != nil {
		t.Fatalf("Failed to seed track: %v", err)
	}
	if playlistID != nil {
		if err := app.db.SetTrackPlaylist(id, playlistID); err != nil {
			t.Fatalf("Failed to assign track: %v", err)
		}
	}
}

func TestHandler_DragGesture(t *testing.T) {
	app := newTestApp(t)

	pl := decodeJSON[domain.Playlist](t, app.postJSON(t, "/api/playlists", map[string]string{"name": "Mix"}))
	seedHTTPTrack(t, app, "t1", nil)
	seedHTTPTrack(t, app, "keeper", &pl.ID)

	resp := app.postJSON(t, "/api/drag", map[string]any{
		"item": map[string]string{"kind": "track", "id": "t1"},
		"points": []map[string]any{
			{"x": 0, "y": 0, "ms": 0},
			{"x": 120, "y": 40, "ms": 80},
		},
		"target":     map[string]string{"kind": "playlist", "id": pl.ID},
		"release_ms": 120,
	})
	result := decodeJSON[map[string]any](t, resp)
	if result["result"] == nil {
		t.Fatalf("Expected a drag resolution, got click")
	}

	track, _ := app.db.GetTrack("t1")
	if track.PlaylistID == nil || *track.PlaylistID != pl.ID {
		t.Errorf("Expected track moved into playlist, got %v", track.PlaylistID)
	}
}

func TestHandler_DragClickIsNoOp(t *testing.T) {
	app := newTestApp(t)
	seedHTTPTrack(t, app, "t1", nil)

	// One point, immediate release: a click
	resp := app.postJSON(t, "/api/drag", map[string]any{
		"item":       map[string]string{"kind": "track", "id": "t1"},
		"points":     []map[string]any{{"x": 0, "y": 0, "ms": 0}},
		"target":     map[string]string{"kind": "none"},
		"release_ms": 20,
	})
	result := decodeJSON[map[string]any](t, resp)
	if result["result"] != nil {
		t.Errorf("Expected nil result for a click, got %v", result["result"])
	}
}

func TestHandler_NowPlayingAndSettings(t *testing.T) {
	app := newTestApp(t)

	now := time.Now()
	app.db.UpsertTrack(&domain.Track{
		ID: "t1", Title: "T", Artist: "A", AudioRef: "audio-t1",
		Gradient: "linear-gradient(90deg, #1a2a6c, #b21f1f)",
		CreatedAt: now, UpdatedAt: now,
	})

	resp := app.postJSON(t, "/api/now-playing", map[string]string{"track_id": "t1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	last, _ := app.db.GetSetting(domain.SettingLastPlayedID)
	if last != "t1" {
		t.Errorf("Expected last played persisted, got %q", last)
	}
	spec, _ := app.db.GetSetting(domain.SettingLastCoverSpec)
	if spec == "" {
		t.Errorf("Expected gradient cover spec persisted")
	}

	// Settings round-trip over HTTP
	putBody, _ := json.Marshal(map[string]string{"value": "dark"})
	req, _ := http.NewRequest(http.MethodPut, app.server.URL+"/api/settings/theme", bytes.NewReader(putBody))
	req.Header.Set("Content-Type", "application/json")
	putResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT setting failed: %v", err)
	}
	putResp.Body.Close()

	getResp, err := http.Get(app.server.URL + "/api/settings/theme")
	if err != nil {
		t.Fatalf("GET setting failed: %v", err)
	}
	setting := decodeJSON[map[string]string](t, getResp)
	if setting["value"] != "dark" {
		t.Errorf("Expected dark, got %q", setting["value"])
	}
}

func TestHandler_UnknownNowPlaying(t *testing.T) {
	app := newTestApp(t)
	resp := app.postJSON(t, "/api/now-playing", map[string]string{"track_id": "ghost"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHandler_EnqueueGenerate(t *testing.T) {
	app := newTestApp(t)

	resp := app.postJSON(t, "/api/generate", map[string]string{"prompt": "rainy lofi"})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", resp.StatusCode)
	}
	job := decodeJSON[map[string]any](t, resp)
	if job["status"] != string(domain.JobStatusQueued) {
		t.Errorf("Expected queued job, got %v", job["status"])
	}

	// Jobs listing includes it
	listResp, err := http.Get(app.server.URL + "/api/jobs")
	if err != nil {
		t.Fatalf("GET jobs failed: %v", err)
	}
	jobs := decodeJSON[[]map[string]any](t, listResp)
	if len(jobs) != 1 {
		t.Errorf("Expected 1 job, got %d", len(jobs))
	}
}

func TestHandler_ServeBlob(t *testing.T) {
	app := newTestApp(t)
	ref, _ := app.blobs.Put([]byte("blob payload"))

	resp, err := http.Get(app.server.URL + "/api/blobs/" + ref)
	if err != nil {
		t.Fatalf("GET blob failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	missing, err := http.Get(app.server.URL + "/api/blobs/0000000000000000000000000000000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("GET missing blob failed: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", missing.StatusCode)
	}
}
