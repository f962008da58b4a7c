// Package artwork normalizes cover images before they enter the blob store.
package artwork

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"

	"waveshelf/internal/constants"
)

// Normalize decodes cover bytes, downscales anything larger than
// CoverMaxEdge on its longest side, and re-encodes as JPEG so every stored
// cover has a predictable format and size.
func Normalize(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > constants.CoverMaxEdge || height > constants.CoverMaxEdge {
		if width >= height {
			img = resize.Resize(constants.CoverMaxEdge, 0, img, resize.Lanczos3)
		} else {
			img = resize.Resize(0, constants.CoverMaxEdge, img, resize.Lanczos3)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: constants.CoverJPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode cover image: %w", err)
	}
	return buf.Bytes(), nil
}
