// Package httpapp exposes the library as a small JSON API for the browser
// UI. Handlers are thin command adapters: decode, call the service, encode.
package httpapp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"waveshelf/internal/blob"
	"waveshelf/internal/domain"
	"waveshelf/internal/drag"
	"waveshelf/internal/library"
	"waveshelf/internal/logger"
	"waveshelf/internal/store"
	"waveshelf/internal/worker"
)

type Handler struct {
	Importer  *library.Importer
	Graph     *library.Graph
	Projector *library.Projector
	Jobs      *worker.JobService
	Drag      *drag.Controller
	Blobs     *blob.Store
	Tracker   *blob.Tracker
	Store     *store.DB
	Logger    *logger.Logger
}

func NewHandler(importer *library.Importer, graph *library.Graph, projector *library.Projector, jobs *worker.JobService, blobs *blob.Store, tracker *blob.Tracker, db *store.DB, log *logger.Logger) *Handler {
	h := &Handler{
		Importer:  importer,
		Graph:     graph,
		Projector: projector,
		Jobs:      jobs,
		Blobs:     blobs,
		Tracker:   tracker,
		Store:     db,
		Logger:    log.WithComponent("http"),
	}
	h.Drag = drag.NewController(graph, nil, log)
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/library", h.GetLibrary)

		r.Post("/tracks", h.UploadTracks)
		r.Delete("/tracks/{id}", h.DeleteTrack)
		r.Get("/tracks/{id}/audio", h.StreamAudio)
		r.Post("/tracks/{id}/playlist", h.MoveTrack)
		r.Post("/tracks/merge", h.MergeTracks)

		r.Post("/playlists", h.CreatePlaylist)
		r.Patch("/playlists/{id}", h.UpdatePlaylist)
		r.Post("/playlists/{id}/move", h.MovePlaylist)
		r.Delete("/playlists/{id}", h.DeletePlaylist)

		r.Post("/imports/url", h.EnqueueURLImport)
		r.Post("/generate", h.EnqueueGenerate)
		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/{id}", h.GetJob)

		r.Post("/drag", h.ResolveDrag)
		r.Post("/now-playing", h.SetNowPlaying)

		r.Get("/settings/{key}", h.GetSetting)
		r.Put("/settings/{key}", h.PutSetting)

		r.Get("/blobs/{ref}", h.ServeBlob)
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, map[string]string{"error": msg})
}

// respondTree re-projects the library after a mutation so every mutating
// endpoint answers with the fresh render tree.
func (h *Handler) respondTree(w http.ResponseWriter) {
	h.respondJSON(w, http.StatusOK, h.Projector.BuildTree())
}

// cleanup runs the empty-playlist GC after a structural mutation.
func (h *Handler) cleanup() {
	if _, err := h.Graph.CleanupEmptyPlaylists(); err != nil {
		h.Logger.Warn("Playlist cleanup failed", "error", err)
	}
}

func optionalID(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// jobView hides internal columns the UI has no use for.
func jobView(job *domain.Job) map[string]any {
	v := map[string]any{
		"id":         job.ID,
		"type":       job.Type,
		"status":     job.Status,
		"source":     job.Source,
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
	if job.TrackID != nil {
		v["track_id"] = *job.TrackID
	}
	if job.Error != nil {
		v["error"] = *job.Error
	}
	return v
}
