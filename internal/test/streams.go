package test

import (
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"
)

// H264 NALUs of a 1920x1080 baseline stream.
var (
	H264SPS = []byte{
		0x67, 0x42, 0xc0, 0x28, 0xd9, 0x00, 0x78, 0x02,
		0x27, 0xe5, 0x84, 0x00, 0x00, 0x03, 0x00, 0x04,
		0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x60, 0xc9, 0x20,
	}

	H264PPS = []byte{0x08, 0x06, 0x07, 0x08}

	H264AUD = []byte{0x09, 0xf0}

	H264IDR = []byte{0x65, 0x88, 0x84, 0x00, 0x33}

	H264NonIDR = []byte{0x41, 0x9a, 0x21, 0x6c}
)

// H264AVCConfig is the AVC decoder configuration record of H264SPS and H264PPS.
var H264AVCConfig = []byte{
	0x01, 0x42, 0xc0, 0x28, 0xff, 0xe1, 0x00, 0x19,
	0x67, 0x42, 0xc0, 0x28, 0xd9, 0x00, 0x78, 0x02,
	0x27, 0xe5, 0x84, 0x00, 0x00, 0x03, 0x00, 0x04,
	0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x60, 0xc9,
	0x20, 0x01, 0x00, 0x04, 0x08, 0x06, 0x07, 0x08,
}

// H264Stream returns an Annex-B stream made of the given access units.
func H264Stream(aus ...[][]byte) []byte {
	var ret []byte

	for _, au := range aus {
		buf, err := h264.AnnexB(au).Marshal()
		if err != nil {
			panic(err)
		}
		ret = append(ret, buf...)
	}

	return ret
}

// ADTSStream returns an ADTS stream of AAC-LC frames.
func ADTSStream(sampleRate int, channelCount int, aus ...[]byte) []byte {
	pkts := make(mpeg4audio.ADTSPackets, len(aus))

	for i, au := range aus {
		pkts[i] = &mpeg4audio.ADTSPacket{
			Type:         mpeg4audio.ObjectTypeAACLC,
			SampleRate:   sampleRate,
			ChannelCount: channelCount,
			AU:           au,
		}
	}

	buf, err := pkts.Marshal()
	if err != nil {
		panic(err)
	}

	return buf
}

// MP3Frame returns a MPEG-1 layer 3 frame, 32kbit/s, 48khz, mono.
// The frame is 96 bytes long and the payload is filled with fill.
func MP3Frame(fill byte) []byte {
	buf := make([]byte, 96)
	buf[0] = 0xff
	buf[1] = 0xfb
	buf[2] = 0x14
	buf[3] = 0xc0

	for i := 4; i < len(buf); i++ {
		buf[i] = fill
	}

	return buf
}
