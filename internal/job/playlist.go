package job

import (
	"math"
	"strconv"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"

	"github.com/bluenviron/fmp4mux/pkg/fmp4"
)

const (
	multivariantFileName = "stream.m3u8"
	audioGroupID         = "audio"
)

func mediaPlaylistFileName(trackID int) string {
	return "stream_" + strconv.FormatInt(int64(trackID), 10) + ".m3u8"
}

// peakBandwidth returns the highest bit rate among fragments, in bits per second.
func peakBandwidth(fragments []*Fragment) int {
	peak := 0

	for _, frag := range fragments {
		if frag.Duration <= 0 {
			continue
		}

		v := int(math.Ceil(float64(frag.Size*8) / frag.Duration.Seconds()))
		if v > peak {
			peak = v
		}
	}

	return peak
}

// writePlaylists writes a media playlist for every track and a multivariant
// playlist that references them.
func (j *Job) writePlaylists(tracks []*fmp4.Track, fragments []*Fragment) error {
	peaks := make(map[int]int, len(tracks))

	for _, t := range tracks {
		var trackFragments []*Fragment
		for _, frag := range fragments {
			if frag.TrackID == t.ID {
				trackFragments = append(trackFragments, frag)
			}
		}

		err := j.writeMediaPlaylist(t.ID, trackFragments)
		if err != nil {
			return err
		}

		peaks[t.ID] = peakBandwidth(trackFragments)
	}

	return j.writeMultivariantPlaylist(tracks, peaks)
}

func (j *Job) writeMediaPlaylist(trackID int, fragments []*Fragment) error {
	targetDuration := 1

	segments := make([]*playlist.MediaSegment, len(fragments))

	for i, frag := range fragments {
		d := int(math.Ceil(frag.Duration.Seconds()))
		if d > targetDuration {
			targetDuration = d
		}

		segments[i] = &playlist.MediaSegment{
			Duration: frag.Duration,
			URI:      frag.FileName,
		}
	}

	pl := &playlist.Media{
		Version:        7,
		TargetDuration: targetDuration,
		MediaSequence:  0,
		Endlist:        true,
		Map: &playlist.MediaMap{
			URI: initFileName,
		},
		Segments: segments,
	}

	buf, err := pl.Marshal()
	if err != nil {
		return err
	}

	return j.writeFile(mediaPlaylistFileName(trackID), buf)
}

// video tracks are variants and audio tracks are renditions of a single
// audio group. Without video, every audio track is a variant.
func (j *Job) writeMultivariantPlaylist(tracks []*fmp4.Track, peaks map[int]int) error {
	var videoTracks []*fmp4.Track
	var audioTracks []*fmp4.Track

	for _, t := range tracks {
		if t.Codec.IsVideo() {
			videoTracks = append(videoTracks, t)
		} else {
			audioTracks = append(audioTracks, t)
		}
	}

	pl := &playlist.Multivariant{
		Version: 7,
	}

	if len(videoTracks) == 0 {
		for _, t := range audioTracks {
			pl.Variants = append(pl.Variants, &playlist.MultivariantVariant{
				Bandwidth: peaks[t.ID],
				Codecs:    appendCodec(nil, t.Codec),
				URI:       mediaPlaylistFileName(t.ID),
			})
		}
	} else {
		audioBandwidth := 0
		var audioCodecs []string

		for i, t := range audioTracks {
			uri := mediaPlaylistFileName(t.ID)

			pl.Renditions = append(pl.Renditions, &playlist.MultivariantRendition{
				Type:       playlist.MultivariantRenditionTypeAudio,
				GroupID:    audioGroupID,
				Name:       "audio" + strconv.FormatInt(int64(t.ID), 10),
				Autoselect: true,
				Default:    i == 0,
				URI:        &uri,
			})

			if peaks[t.ID] > audioBandwidth {
				audioBandwidth = peaks[t.ID]
			}

			audioCodecs = appendCodec(audioCodecs, t.Codec)
		}

		for _, t := range videoTracks {
			v := &playlist.MultivariantVariant{
				Bandwidth: peaks[t.ID] + audioBandwidth,
				Codecs:    append(appendCodec(nil, t.Codec), audioCodecs...),
				URI:       mediaPlaylistFileName(t.ID),
			}

			if t.PresentWidth > 0 && t.PresentHeight > 0 {
				v.Resolution = strconv.FormatInt(int64(t.PresentWidth), 10) + "x" +
					strconv.FormatInt(int64(t.PresentHeight), 10)
			}

			if len(audioTracks) != 0 {
				v.Audio = audioGroupID
			}

			pl.Variants = append(pl.Variants, v)
		}
	}

	buf, err := pl.Marshal()
	if err != nil {
		return err
	}

	return j.writeFile(multivariantFileName, buf)
}

// appendCodec appends the codec parameters of codec, skipping unknown and
// duplicate values.
func appendCodec(codecs []string, codec fmp4.Codec) []string {
	v := codecParameters(codec)
	if v == "" {
		return codecs
	}

	for _, c := range codecs {
		if c == v {
			return codecs
		}
	}

	return append(codecs, v)
}
