package library

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"waveshelf/internal/artwork"
	"waveshelf/internal/blob"
	"waveshelf/internal/constants"
	"waveshelf/internal/domain"
	"waveshelf/internal/logger"
	"waveshelf/internal/store"
	"waveshelf/internal/tagging"
)

// CoverFetcher is the slice of the remote client the importer needs for
// best-effort thumbnail downloads.
type CoverFetcher interface {
	FetchBytes(ctx context.Context, rawURL string, maxBytes int64) ([]byte, error)
}

// Importer converts raw audio bytes into persisted track records.
type Importer struct {
	store   *store.DB
	blobs   *blob.Store
	fetcher CoverFetcher // may be nil
	log     *logger.Logger
	now     func() time.Time
}

func NewImporter(db *store.DB, blobs *blob.Store, fetcher CoverFetcher, log *logger.Logger) *Importer {
	return &Importer{
		store:   db,
		blobs:   blobs,
		fetcher: fetcher,
		log:     log.WithComponent("importer"),
		now:     time.Now,
	}
}

// Meta is caller-supplied metadata, e.g. from a remote resolver. It takes
// priority over embedded tags and filename heuristics.
type Meta struct {
	Title  string
	Artist string
}

// ImportRequest describes one piece of audio to import.
type ImportRequest struct {
	// Name is the original file or download name; drives format sniffing
	// and filename heuristics.
	Name string
	Data []byte
	Meta Meta
	// Cover is caller-supplied artwork (e.g. from a generator); it wins
	// over embedded art.
	Cover []byte
	// ThumbnailURL is fetched best-effort when no cover was found; a
	// failed fetch never fails the import.
	ThumbnailURL string
	Generated    bool
}

// Import upserts a track from raw bytes. Re-importing identical content
// yields the same id and overwrites the record's metadata instead of
// duplicating it. Only a storage failure is an error; every enrichment
// step degrades silently.
func (im *Importer) Import(ctx context.Context, req ImportRequest) (*domain.Track, error) {
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("no audio data in %q", req.Name)
	}
	return im.importAs(ctx, TrackID(req.Data), req)
}

// ImportFile imports a local file. The id is the streamed content hash;
// if hashing fails mid-read the name/size/modtime composite id is used so
// the file can still be imported.
func (im *Importer) ImportFile(ctx context.Context, path string, meta Meta) (*domain.Track, error) {
	id, err := hashFile(path)
	if err != nil {
		info, statErr := os.Stat(path)
		if statErr != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		id = FallbackTrackID(info.Name(), info.Size(), info.ModTime())
		im.log.Warn("Content hash failed, using fallback id", "path", path, "error", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return im.importAs(ctx, id, ImportRequest{Name: filepath.Base(path), Data: data, Meta: meta})
}

func (im *Importer) importAs(ctx context.Context, id string, req ImportRequest) (*domain.Track, error) {
	existing, err := im.store.GetTrack(id)
	if err != nil {
		im.log.Warn("Lookup of existing track failed, importing fresh", "track_id", id, "error", err)
		existing = nil
	}

	tags := tagging.Read(req.Name, req.Data)
	nameTitle, nameArtist := ParseFilename(req.Name)

	title := firstNonEmpty(req.Meta.Title, tags.Title, nameTitle, constants.SentinelTitle)
	artist := firstNonEmpty(req.Meta.Artist, tags.Artist, nameArtist, constants.SentinelArtist)

	audioRef, err := im.blobs.Put(req.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store audio payload: %w", err)
	}

	coverRef := im.resolveCover(ctx, id, existing, req.Cover, tags.Cover, req.ThumbnailURL)

	// A gradient, once generated, is the track's permanent fallback
	// identity even if a cover appears later.
	gradient := ""
	if existing != nil {
		gradient = existing.Gradient
	}
	if coverRef == "" && gradient == "" {
		gradient = RandomGradient()
	}

	now := im.now()
	track := &domain.Track{
		ID:        id,
		Title:     title,
		Artist:    artist,
		AudioRef:  audioRef,
		CoverRef:  coverRef,
		Gradient:  gradient,
		Generated: req.Generated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing != nil {
		track.CreatedAt = existing.CreatedAt
		track.PlaylistID = existing.PlaylistID
	}

	if err := im.store.UpsertTrack(track); err != nil {
		return nil, fmt.Errorf("failed to upsert track: %w", err)
	}

	im.log.Info("Track imported", "track_id", id, "title", title, "artist", artist, "reimport", existing != nil)
	return track, nil
}

// resolveCover picks the cover blob for the track: caller-supplied art,
// then embedded art, then the already-stored cover of a re-import, then a
// best-effort thumbnail fetch. Every failure here degrades to "no cover".
func (im *Importer) resolveCover(ctx context.Context, id string, existing *domain.Track, supplied, embedded []byte, thumbnailURL string) string {
	if len(supplied) > 0 {
		if ref, ok := im.storeCover(supplied); ok {
			return ref
		}
	}

	if len(embedded) > 0 {
		if ref, ok := im.storeCover(embedded); ok {
			return ref
		}
	}

	if existing != nil && existing.CoverRef != "" {
		return existing.CoverRef
	}

	if thumbnailURL != "" && im.fetcher != nil {
		data, err := im.fetcher.FetchBytes(ctx, thumbnailURL, constants.MaxCoverBytes)
		if err != nil {
			im.log.Debug("Thumbnail fetch failed", "track_id", id, "url", thumbnailURL, "error", err)
			return ""
		}
		if ref, ok := im.storeCover(data); ok {
			return ref
		}
	}

	return ""
}

func (im *Importer) storeCover(data []byte) (string, bool) {
	normalized, err := artwork.Normalize(data)
	if err != nil {
		im.log.Debug("Cover normalize failed", "error", err)
		return "", false
	}
	ref, err := im.blobs.Put(normalized)
	if err != nil {
		im.log.Warn("Failed to store cover blob", "error", err)
		return "", false
	}
	return ref, true
}

// TrackID derives the stable content id: the hex sha256 of the full byte
// content.
func TrackID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FallbackTrackID is used when content hashing fails; the same
// name/size/modtime triple always yields the same id.
func FallbackTrackID(name string, size int64, modTime time.Time) string {
	composite := fmt.Sprintf("%s|%d|%d", name, size, modTime.UnixMilli())
	sum := sha256.Sum256([]byte(composite))
	return hex.EncodeToString(sum[:])
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

var trailingArtistRe = regexp.MustCompile(`^(.*\S)\s*[(\[]([^)\]]+)[)\]]\s*$`)

// ParseFilename derives title/artist from a file name, trying
// "Artist - Title" first, then "Title (Artist)" / "Title [Artist]", and
// finally using the whole stem as the title with an empty artist.
func ParseFilename(name string) (title, artist string) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	stem = strings.TrimSpace(stem)

	if before, after, found := strings.Cut(stem, " - "); found {
		a := strings.TrimSpace(before)
		t := strings.TrimSpace(after)
		if a != "" && t != "" {
			return t, a
		}
	}

	if m := trailingArtistRe.FindStringSubmatch(stem); m != nil {
		t := strings.TrimSpace(m[1])
		a := strings.TrimSpace(m[2])
		if t != "" && a != "" {
			return t, a
		}
	}

	return stem, ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
