package ingest

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"

	"github.com/bluenviron/fmp4mux/pkg/fmp4"
)

func decodeMPEG4Audio(id int, buf []byte) (*fmp4.Track, error) {
	var pkts mpeg4audio.ADTSPackets
	err := pkts.Unmarshal(buf)
	if err != nil {
		return nil, err
	}

	first := pkts[0]

	for i, pkt := range pkts[1:] {
		if pkt.Type != first.Type ||
			pkt.SampleRate != first.SampleRate ||
			pkt.ChannelCount != first.ChannelCount {
			return nil, fmt.Errorf("ADTS packet %d has a different configuration", i+1)
		}
	}

	config, err := mpeg4audio.AudioSpecificConfig{
		Type:         first.Type,
		SampleRate:   first.SampleRate,
		ChannelCount: first.ChannelCount,
	}.Marshal()
	if err != nil {
		return nil, err
	}

	t := &fmp4.Track{
		ID:                id,
		TimeScale:         uint32(first.SampleRate),
		RefSampleDuration: mpeg4audio.SamplesPerAccessUnit,
		Codec: &fmp4.CodecMPEG4Audio{
			Config:       config,
			ChannelCount: first.ChannelCount,
			SampleRate:   first.SampleRate,
		},
	}

	for _, pkt := range pkts {
		t.AppendSample(&fmp4.Sample{
			Units:      [][]byte{pkt.AU},
			Duration:   mpeg4audio.SamplesPerAccessUnit,
			IsKeyframe: true,
			Flags:      fmp4.KeyframeFlags(),
		})
	}

	return t, nil
}
