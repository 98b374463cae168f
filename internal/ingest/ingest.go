// Package ingest reads elementary streams and converts them into tracks.
package ingest

import (
	"fmt"
	"os"

	"github.com/bluenviron/fmp4mux/internal/conf"
	"github.com/bluenviron/fmp4mux/pkg/fmp4"
)

// Load reads the elementary stream of a track and returns its samples.
func Load(ct conf.Track, id int) (*fmp4.Track, error) {
	buf, err := os.ReadFile(ct.File)
	if err != nil {
		return nil, err
	}

	t, err := Decode(ct, id, buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ct.File, err)
	}

	return t, nil
}

// Decode converts an elementary stream into a track.
func Decode(ct conf.Track, id int, buf []byte) (*fmp4.Track, error) {
	switch ct.Codec {
	case conf.CodecH264:
		return decodeH264(id, buf, ct.FrameRate)

	case conf.CodecMPEG4Audio:
		return decodeMPEG4Audio(id, buf)

	case conf.CodecMPEG1Audio:
		return decodeMPEG1Audio(id, buf)

	default:
		return nil, fmt.Errorf("unsupported codec: '%s'", ct.Codec)
	}
}
