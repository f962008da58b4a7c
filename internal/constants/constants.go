// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort         = "8080"
	DefaultDBPath       = "waveshelf.db"
	DefaultBlobDir      = "blobs"
	DefaultConcurrency  = 2
	DefaultPollInterval = 2 * time.Second
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultRetryCount   = 3
)

// Metadata sentinels used when no title/artist can be determined.
const (
	SentinelTitle  = "UNNAMED"
	SentinelArtist = "UNKNOWN"
)

// Fallbacks for generated tracks when the metadata generator is unavailable.
const (
	GeneratedTitle  = "Generated Music"
	GeneratedArtist = "AI Artist"
)

// Drag gesture tuning
const (
	DragHoldDelay     = 350 * time.Millisecond
	DragMoveThreshold = 6.0 // pixels
)

// Cover art
const (
	CoverMaxEdge     = 512
	CoverJPEGQuality = 85
)

// Limits
const (
	MaxFetchBytes   = 64 << 20 // remote audio
	MaxCoverBytes   = 8 << 20  // remote thumbnails
	MaxUploadMemory = 32 << 20
	MaxJobsListed   = 50
)

// Merged-playlist naming: each source title is truncated to this many runes.
const MergeTitleRunes = 12

// MIME Types
const (
	MimeTypeFLAC = "audio/flac"
	MimeTypeMP3  = "audio/mpeg"
	MimeTypeJPEG = "image/jpeg"
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)
