package tagging

import (
	"bytes"
	"testing"

	"github.com/bogem/id3v2/v2"
)

func TestRead_GarbageYieldsEmpty(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"random.mp3", []byte("definitely not an mp3")},
		{"random.flac", []byte("definitely not a flac")},
		{"noext", []byte{0x00, 0x01, 0x02, 0x03}},
		{"tiny.mp3", []byte("x")},
		{"empty.flac", nil},
	}
	for _, tc := range cases {
		td := Read(tc.name, tc.data)
		if td.Title != "" || td.Artist != "" || td.Cover != nil {
			t.Errorf("Read(%q) expected empty result, got %+v", tc.name, td)
		}
	}
}

func TestRead_MP3Tags(t *testing.T) {
	// Build a minimal ID3v2 payload
	tag := id3v2.NewEmptyTag()
	tag.SetTitle("Tagged Title")
	tag.SetArtist("Tagged Artist")
	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Picture:     []byte{0xff, 0xd8, 0xff},
	})

	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		t.Fatalf("Failed to build tag: %v", err)
	}
	buf.Write([]byte("fake mpeg frames"))

	td := Read("song.mp3", buf.Bytes())
	if td.Title != "Tagged Title" {
		t.Errorf("Expected title from tag, got %q", td.Title)
	}
	if td.Artist != "Tagged Artist" {
		t.Errorf("Expected artist from tag, got %q", td.Artist)
	}
	if len(td.Cover) == 0 || td.CoverMIME != "image/jpeg" {
		t.Errorf("Expected embedded cover, got %d bytes, mime %q", len(td.Cover), td.CoverMIME)
	}
}

func TestSniffFormat_MagicBeatsExtension(t *testing.T) {
	if got := sniffFormat("wrong.mp3", []byte("fLaCxxxx")); got != ".flac" {
		t.Errorf("Expected flac by magic, got %q", got)
	}
	if got := sniffFormat("wrong.flac", []byte("ID3\x04xxxx")); got != ".mp3" {
		t.Errorf("Expected mp3 by magic, got %q", got)
	}
	if got := sniffFormat("Song.MP3", []byte("no magic here")); got != ".mp3" {
		t.Errorf("Expected lowercased extension fallback, got %q", got)
	}
}
