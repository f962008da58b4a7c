// Package tagging extracts embedded metadata from audio containers.
package tagging

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
)

// TagData is the best-effort result of reading embedded tags. Empty fields
// mean "not present"; unparseable input yields the zero value.
type TagData struct {
	Title     string
	Artist    string
	Cover     []byte
	CoverMIME string
}

// Read extracts tags from raw audio bytes. It never fails: any parse error
// results in an empty TagData so an import can proceed on filename
// heuristics alone.
func Read(name string, data []byte) TagData {
	switch sniffFormat(name, data) {
	case ".mp3":
		return readMP3(data)
	case ".flac":
		return readFLAC(data)
	default:
		return TagData{}
	}
}

// sniffFormat prefers container magic over the file extension.
func sniffFormat(name string, data []byte) string {
	if len(data) >= 4 {
		if bytes.HasPrefix(data, []byte("fLaC")) {
			return ".flac"
		}
		if bytes.HasPrefix(data, []byte("ID3")) {
			return ".mp3"
		}
	}
	return strings.ToLower(filepath.Ext(name))
}

func readMP3(data []byte) TagData {
	tag, err := id3v2.ParseReader(bytes.NewReader(data), id3v2.Options{Parse: true})
	if err != nil {
		return TagData{}
	}
	defer tag.Close()

	td := TagData{
		Title:  strings.TrimSpace(tag.Title()),
		Artist: strings.TrimSpace(tag.Artist()),
	}

	for _, frame := range tag.GetFrames(tag.CommonID("Attached picture")) {
		pic, ok := frame.(id3v2.PictureFrame)
		if !ok {
			continue
		}
		if len(pic.Picture) == 0 {
			continue
		}
		td.Cover = pic.Picture
		td.CoverMIME = pic.MimeType
		break
	}
	return td
}

func readFLAC(data []byte) TagData {
	f, err := flac.ParseMetadata(bytes.NewReader(data))
	if err != nil {
		return TagData{}
	}

	var td TagData
	for _, block := range f.Meta {
		switch block.Type {
		case flac.VorbisComment:
			cmt, err := flacvorbis.ParseFromMetaDataBlock(*block)
			if err != nil {
				continue
			}
			if td.Title == "" {
				td.Title = firstComment(cmt, flacvorbis.FIELD_TITLE)
			}
			if td.Artist == "" {
				td.Artist = firstComment(cmt, flacvorbis.FIELD_ARTIST)
			}
		case flac.Picture:
			if td.Cover != nil {
				continue
			}
			pic, err := flacpicture.ParseFromMetaDataBlock(*block)
			if err != nil {
				continue
			}
			if len(pic.ImageData) == 0 {
				continue
			}
			td.Cover = pic.ImageData
			td.CoverMIME = pic.MIME
		}
	}
	return td
}

func firstComment(cmt *flacvorbis.MetaDataBlockVorbisComment, field string) string {
	values, err := cmt.Get(field)
	if err != nil || len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
