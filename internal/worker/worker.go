// Package worker runs background imports: remote URL fetches and AI
// generation requests, queued as jobs and processed by a polling loop.
package worker

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sync"
	"time"

	"waveshelf/internal/constants"
	"waveshelf/internal/domain"
	"waveshelf/internal/fetch"
	"waveshelf/internal/gen"
	"waveshelf/internal/library"
	"waveshelf/internal/logger"
	"waveshelf/internal/store"
)

type Worker struct {
	store    *store.DB
	importer *library.Importer
	fetcher  *fetch.Client
	audioGen gen.AudioGenerator
	metaGen  gen.MetaGenerator
	coverGen gen.CoverGenerator
	log      *logger.Logger

	maxConcurrent int
	pollInterval  time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func New(db *store.DB, importer *library.Importer, fetcher *fetch.Client, genSvc *gen.HTTPService, log *logger.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		store:         db,
		importer:      importer,
		fetcher:       fetcher,
		audioGen:      genSvc,
		metaGen:       genSvc,
		coverGen:      genSvc,
		log:           log.WithComponent("worker"),
		maxConcurrent: constants.DefaultConcurrency,
		pollInterval:  constants.DefaultPollInterval,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (w *Worker) Start() {
	w.log.Info("Starting import worker")

	if err := w.store.ResetStuckJobs(); err != nil {
		w.log.Warn("Failed to reset stuck jobs", "error", err)
	}

	w.wg.Add(1)
	go w.processJobs()
}

func (w *Worker) Stop() {
	w.log.Info("Stopping import worker")
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) processJobs() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.maxConcurrent)

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			running, err := w.store.CountRunningJobs()
			if err != nil {
				w.log.Warn("Failed to count running jobs", "error", err)
				continue
			}
			toStart := w.maxConcurrent - running
			if toStart <= 0 {
				continue
			}

			queued, err := w.store.ListQueuedJobs()
			if err != nil {
				w.log.Warn("Failed to list queued jobs", "error", err)
				continue
			}

			for i := 0; i < toStart && i < len(queued); i++ {
				job := queued[i]
				if err := w.store.UpdateJobStatus(job.ID, domain.JobStatusRunning); err != nil {
					w.log.Warn("Failed to claim job", "job_id", job.ID, "error", err)
					continue
				}
				sem <- struct{}{}
				w.wg.Add(1)
				go func(j *domain.Job) {
					defer w.wg.Done()
					defer func() { <-sem }()
					w.runJob(w.ctx, j)
				}(job)
			}
		}
	}
}

func (w *Worker) runJob(ctx context.Context, job *domain.Job) {
	log := w.log.WithJob(job.ID, string(job.Type))
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic in job", "panic", r)
			w.store.FailJob(job.ID, fmt.Sprintf("panic: %v", r))
		}
	}()

	log.Info("Running import job")

	var err error
	switch job.Type {
	case domain.JobTypeURLImport:
		err = w.runURLImport(ctx, job)
	case domain.JobTypeGenerate:
		err = w.runGenerate(ctx, job)
	default:
		err = fmt.Errorf("unknown job type %q", job.Type)
	}

	if err != nil {
		log.Error("Import job failed", "error", err)
		if dbErr := w.store.FailJob(job.ID, err.Error()); dbErr != nil {
			log.Error("Failed to record job failure", "error", dbErr)
		}
	}
}

// runURLImport resolves the URL for metadata and an audio location, then
// downloads and imports. Resolution failure only costs the metadata; the
// raw URL is fetched directly and fallback naming applies.
func (w *Worker) runURLImport(ctx context.Context, job *domain.Job) error {
	var meta library.Meta
	thumbnailURL := ""
	audioURL := job.Source

	remote, err := w.fetcher.ResolveTrack(ctx, job.Source)
	if err != nil {
		w.log.Debug("URL resolution failed, importing raw", "source", job.Source, "error", err)
	} else {
		meta = library.Meta{Title: remote.Title, Artist: remote.Artist}
		thumbnailURL = remote.ThumbnailURL
		if remote.AudioURL != "" {
			audioURL = remote.AudioURL
		}
	}

	data, err := w.fetcher.FetchBytes(ctx, audioURL, constants.MaxFetchBytes)
	if err != nil {
		return fmt.Errorf("failed to fetch audio: %w", err)
	}

	track, err := w.importer.Import(ctx, library.ImportRequest{
		Name:         nameFromURL(audioURL),
		Data:         data,
		Meta:         meta,
		ThumbnailURL: thumbnailURL,
	})
	if err != nil {
		return err
	}
	return w.store.CompleteJob(job.ID, track.ID)
}

// runGenerate asks the audio generator for bytes and imports them. The
// metadata and cover generators are each best-effort: a failure there
// falls back to generic naming and the gradient cover.
func (w *Worker) runGenerate(ctx context.Context, job *domain.Job) error {
	data, err := w.audioGen.GenerateAudio(ctx, job.Source)
	if err != nil {
		return fmt.Errorf("audio generation failed: %w", err)
	}

	meta := library.Meta{Title: constants.GeneratedTitle, Artist: constants.GeneratedArtist}
	if gm, err := w.metaGen.GenerateMeta(ctx, job.Source); err == nil && gm != nil {
		if gm.Title != "" {
			meta.Title = gm.Title
		}
		if gm.Author != "" {
			meta.Artist = gm.Author
		}
	} else if err != nil {
		w.log.Debug("Meta generation failed, using fallbacks", "error", err)
	}

	var cover []byte
	if img, err := w.coverGen.GenerateCover(ctx, job.Source); err == nil {
		cover = img
	} else {
		w.log.Debug("Cover generation failed, gradient will apply", "error", err)
	}

	track, err := w.importer.Import(ctx, library.ImportRequest{
		Name:      meta.Title + ".mp3",
		Data:      data,
		Meta:      meta,
		Cover:     cover,
		Generated: true,
	})
	if err != nil {
		return err
	}
	return w.store.CompleteJob(job.ID, track.ID)
}

func nameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download"
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		return "download"
	}
	return base
}
