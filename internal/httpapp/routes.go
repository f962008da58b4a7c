package httpapp

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"waveshelf/internal/constants"
	"waveshelf/internal/domain"
	"waveshelf/internal/drag"
	"waveshelf/internal/library"
)

func (h *Handler) GetLibrary(w http.ResponseWriter, r *http.Request) {
	h.respondTree(w)
}

// UploadTracks imports every file of a multipart upload concurrently and
// answers with the refreshed tree. Individual file failures are reported
// but do not fail the batch.
func (h *Handler) UploadTracks(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(constants.MaxUploadMemory); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		h.respondError(w, http.StatusBadRequest, "no files supplied")
		return
	}

	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(constants.DefaultConcurrency)

	results := make([]*domain.Track, len(files))
	errs := make([]error, len(files))
	for i, fh := range files {
		i, fh := i, fh
		g.Go(func() error {
			f, err := fh.Open()
			if err != nil {
				errs[i] = err
				return nil
			}
			defer f.Close()

			data, err := io.ReadAll(f)
			if err != nil {
				errs[i] = err
				return nil
			}

			track, err := h.Importer.Import(ctx, library.ImportRequest{Name: fh.Filename, Data: data})
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = track
			return nil
		})
	}
	_ = g.Wait()

	imported := 0
	var failed []string
	for i, err := range errs {
		if err != nil {
			h.Logger.Warn("File import failed", "file", files[i].Filename, "error", err)
			failed = append(failed, files[i].Filename)
		} else if results[i] != nil {
			imported++
		}
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"tree":     h.Projector.BuildTree(),
		"imported": imported,
		"failed":   failed,
	})
}

func (h *Handler) DeleteTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ok, err := h.Graph.DeleteTrack(id)
	if err != nil {
		h.Logger.Error("Track deletion failed", "track_id", id, "error", err)
	}
	if ok {
		h.cleanup()
	}
	h.respondTree(w)
}

func (h *Handler) StreamAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	track, err := h.Store.GetTrack(id)
	if err != nil || track == nil {
		h.respondError(w, http.StatusNotFound, "track not found")
		return
	}
	h.serveBlobRef(w, r, track.AudioRef)
}

func (h *Handler) MoveTrack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		PlaylistID string `json:"playlist_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	track, err := h.Graph.MoveTrackToPlaylist(id, optionalID(req.PlaylistID))
	if err != nil {
		h.Logger.Error("Track move failed", "track_id", id, "error", err)
	}
	if track != nil {
		h.cleanup()
	}
	h.respondTree(w)
}

func (h *Handler) MergeTracks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DraggedID string `json:"dragged_id"`
		TargetID  string `json:"target_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	pl, err := h.Graph.MergeTracks(req.DraggedID, req.TargetID)
	if err != nil {
		h.Logger.Error("Track merge failed", "error", err)
	}
	if pl != nil {
		h.cleanup()
	}
	h.respondTree(w)
}

func (h *Handler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		ParentID string `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	pl, err := h.Graph.CreatePlaylist(req.Name, "", optionalID(req.ParentID))
	if err != nil {
		h.Logger.Error("Playlist creation failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create playlist")
		return
	}
	h.respondJSON(w, http.StatusCreated, pl)
}

func (h *Handler) UpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	pl, err := h.Graph.UpdatePlaylist(id, library.PlaylistUpdate{Name: req.Name, Description: req.Description})
	if err != nil {
		h.Logger.Error("Playlist update failed", "playlist_id", id, "error", err)
	}
	if pl == nil {
		h.respondError(w, http.StatusNotFound, "playlist not found")
		return
	}
	h.respondJSON(w, http.StatusOK, pl)
}

func (h *Handler) MovePlaylist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		ParentID string `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid body")
		return
	}

	pl, err := h.Graph.MovePlaylist(id, optionalID(req.ParentID))
	if err != nil {
		h.Logger.Error("Playlist move failed", "playlist_id", id, "error", err)
	}
	if pl == nil {
		// Cycle or unknown id: no mutation happened.
		h.respondJSON(w, http.StatusOK, map[string]any{
			"rejected": true,
			"tree":     h.Projector.BuildTree(),
		})
		return
	}

	h.cleanup()
	h.respondJSON(w, http.StatusOK, map[string]any{
		"rejected": false,
		"tree":     h.Projector.BuildTree(),
	})
}

func (h *Handler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleteTracks := r.URL.Query().Get("delete_tracks") == "true"

	ok, err := h.Graph.DeletePlaylist(id, deleteTracks)
	if err != nil {
		h.Logger.Error("Playlist deletion failed", "playlist_id", id, "error", err)
	}
	if ok {
		h.cleanup()
	}
	h.respondTree(w)
}

func (h *Handler) EnqueueURLImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	job, err := h.Jobs.Enqueue(req.URL, domain.JobTypeURLImport)
	if err != nil {
		h.Logger.Error("Failed to enqueue URL import", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to enqueue import")
		return
	}
	h.respondJSON(w, http.StatusAccepted, jobView(job))
}

func (h *Handler) EnqueueGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		h.respondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	job, err := h.Jobs.Enqueue(req.Prompt, domain.JobTypeGenerate)
	if err != nil {
		h.Logger.Error("Failed to enqueue generation", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to enqueue generation")
		return
	}
	h.respondJSON(w, http.StatusAccepted, jobView(job))
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Jobs.List()
	if err != nil {
		h.Logger.Error("Failed to list jobs", "error", err)
		jobs = nil
	}
	views := make([]map[string]any, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, jobView(j))
	}
	h.respondJSON(w, http.StatusOK, views)
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.Jobs.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.Logger.Error("Failed to get job", "error", err)
	}
	if job == nil {
		h.respondError(w, http.StatusNotFound, "job not found")
		return
	}
	h.respondJSON(w, http.StatusOK, jobView(job))
}

// gesturePoint is one pointer sample with a millisecond offset from the
// press.
type gesturePoint struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	MS int64   `json:"ms"`
}

// ResolveDrag replays a recorded gesture through the drag controller. The
// browser sends the pressed item, pointer samples, the release offset and
// the drop target; the controller decides whether it was a drag and which
// mutation applies.
func (h *Handler) ResolveDrag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Item struct {
			Kind string `json:"kind"`
			ID   string `json:"id"`
		} `json:"item"`
		Points []gesturePoint `json:"points"`
		Target struct {
			Kind string `json:"kind"`
			ID   string `json:"id"`
		} `json:"target"`
		ReleaseMS int64 `json:"release_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Item.ID == "" || len(req.Points) == 0 {
		h.respondError(w, http.StatusBadRequest, "invalid gesture")
		return
	}

	base := time.Now()
	item := drag.Item{Kind: drag.ItemKind(req.Item.Kind), ID: req.Item.ID}
	if !h.Drag.Press(item, drag.Point{X: req.Points[0].X, Y: req.Points[0].Y}, base) {
		h.respondError(w, http.StatusConflict, "a gesture is already being resolved")
		return
	}
	for _, p := range req.Points[1:] {
		h.Drag.Move(drag.Point{X: p.X, Y: p.Y}, base.Add(time.Duration(p.MS)*time.Millisecond))
	}

	target := drag.Target{Kind: drag.TargetKind(req.Target.Kind), ID: req.Target.ID}
	if target.Kind == "" {
		target.Kind = drag.TargetNone
	}
	result, err := h.Drag.Release(target, base.Add(time.Duration(req.ReleaseMS)*time.Millisecond))
	if err != nil {
		h.Logger.Error("Drag resolution failed", "error", err)
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"result": result, // nil means the gesture was a plain click
		"tree":   h.Projector.BuildTree(),
	})
}

// SetNowPlaying records the playing track and swaps the dedicated
// now-playing cover lease. Only gradient descriptors are persisted as the
// last cover; blob-backed handles do not survive a reload.
func (h *Handler) SetNowPlaying(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TrackID string `json:"track_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TrackID == "" {
		h.respondError(w, http.StatusBadRequest, "track_id is required")
		return
	}

	track, err := h.Store.GetTrack(req.TrackID)
	if err != nil || track == nil {
		h.respondError(w, http.StatusNotFound, "track not found")
		return
	}

	if err := h.Store.SetSetting(domain.SettingLastPlayedID, track.ID); err != nil {
		h.Logger.Warn("Failed to persist last played id", "error", err)
	}

	cover := track.Cover()
	switch cover.Kind {
	case domain.CoverImage:
		h.Tracker.SetCurrent(cover.Ref)
	case domain.CoverGradient:
		h.Tracker.SetCurrent("")
		if err := h.Store.SetSetting(domain.SettingLastCoverSpec, cover.Gradient); err != nil {
			h.Logger.Warn("Failed to persist last cover spec", "error", err)
		}
	default:
		h.Tracker.SetCurrent("")
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"cover": cover})
}

func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := h.Store.GetSetting(key)
	if err != nil {
		h.Logger.Warn("Setting read failed", "key", key, "error", err)
		value = ""
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.Store.SetSetting(key, req.Value); err != nil {
		h.Logger.Error("Setting write failed", "key", key, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to store setting")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"key": key, "value": req.Value})
}

func (h *Handler) ServeBlob(w http.ResponseWriter, r *http.Request) {
	h.serveBlobRef(w, r, chi.URLParam(r, "ref"))
}

// serveBlobRef streams a blob while holding a lease so an orphan sweep
// cannot delete the file mid-response.
func (h *Handler) serveBlobRef(w http.ResponseWriter, r *http.Request, ref string) {
	handle := h.Tracker.Acquire(ref)
	defer h.Tracker.Release(handle)

	f, err := h.Blobs.Open(ref)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "blob not found")
		return
	}
	defer f.Close()

	// Sniff the content type from the first bytes.
	head := make([]byte, 512)
	n, _ := f.Read(head)
	contentType := http.DetectContentType(head[:n])
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to read blob")
		return
	}

	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, f); err != nil {
		h.Logger.Debug("Blob stream interrupted", "ref", ref, "error", err)
	}
}
