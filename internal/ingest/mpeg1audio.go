package ingest

import (
	"bytes"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg1audio"

	"github.com/bluenviron/fmp4mux/pkg/fmp4"
)

const (
	id3v2HeaderSize = 10
	id3v1Size       = 128
)

// id3v2Size returns the size of the ID3v2 tag at the beginning of buf, if any.
func id3v2Size(buf []byte) (int, error) {
	if len(buf) < id3v2HeaderSize || !bytes.HasPrefix(buf, []byte("ID3")) {
		return 0, nil
	}

	// syncsafe integer
	size := int(buf[6]&0x7F)<<21 | int(buf[7]&0x7F)<<14 | int(buf[8]&0x7F)<<7 | int(buf[9]&0x7F)
	size += id3v2HeaderSize

	// footer
	if (buf[5] & 0x10) != 0 {
		size += id3v2HeaderSize
	}

	if size > len(buf) {
		return 0, fmt.Errorf("ID3 tag is truncated")
	}

	return size, nil
}

func channelCount(mode mpeg1audio.ChannelMode) int {
	if mode == mpeg1audio.ChannelModeMono {
		return 1
	}
	return 2
}

func decodeMPEG1Audio(id int, buf []byte) (*fmp4.Track, error) {
	pos, err := id3v2Size(buf)
	if err != nil {
		return nil, err
	}

	var first *mpeg1audio.FrameHeader
	var samples []*fmp4.Sample

	for pos < len(buf) {
		rem := buf[pos:]

		// trailing ID3v1 tag
		if len(rem) == id3v1Size && bytes.HasPrefix(rem, []byte("TAG")) {
			break
		}

		var h mpeg1audio.FrameHeader
		err = h.Unmarshal(rem)
		if err != nil {
			return nil, fmt.Errorf("invalid frame at offset %d: %w", pos, err)
		}

		if first == nil {
			first = &h
		} else if h.SampleRate != first.SampleRate ||
			channelCount(h.ChannelMode) != channelCount(first.ChannelMode) {
			return nil, fmt.Errorf("frame at offset %d has a different configuration", pos)
		}

		frameLen := h.FrameLen()
		if frameLen > len(rem) {
			return nil, fmt.Errorf("frame at offset %d is truncated", pos)
		}

		samples = append(samples, &fmp4.Sample{
			Units:      [][]byte{rem[:frameLen]},
			Duration:   uint32(h.SampleCount()),
			IsKeyframe: true,
			Flags:      fmp4.KeyframeFlags(),
		})

		pos += frameLen
	}

	if first == nil {
		return nil, fmt.Errorf("no frames found")
	}

	t := &fmp4.Track{
		ID:                id,
		TimeScale:         uint32(first.SampleRate),
		RefSampleDuration: uint32(first.SampleCount()),
		Codec: &fmp4.CodecMPEG1Audio{
			ChannelCount: channelCount(first.ChannelMode),
			SampleRate:   first.SampleRate,
		},
	}

	for _, sa := range samples {
		t.AppendSample(sa)
	}

	return t, nil
}
