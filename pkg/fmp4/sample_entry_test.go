package fmp4

import (
	"bytes"
	"testing"

	gomp4 "github.com/abema/go-mp4"
	"github.com/stretchr/testify/require"
)

// AVC decoder configuration record of a 1920x1080 baseline stream.
var testAVCConfig = []byte{
	0x01, 0x42, 0xc0, 0x28, 0xff, 0xe1, 0x00, 0x19,
	0x67, 0x42, 0xc0, 0x28, 0xd9, 0x00, 0x78, 0x02,
	0x27, 0xe5, 0x84, 0x00, 0x00, 0x03, 0x00, 0x04,
	0x00, 0x00, 0x03, 0x00, 0xf0, 0x3c, 0x60, 0xc9,
	0x20, 0x01, 0x00, 0x04, 0x08, 0x06, 0x07, 0x08,
}

// AAC-LC, 44100hz, stereo.
var testAACConfig = []byte{0x12, 0x10}

func TestESDS(t *testing.T) {
	byts, err := marshalESDS(testAACConfig)
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x27, 'e', 's', 'd', 's',
		0x00, 0x00, 0x00, 0x00,
		0x03, 0x19, 0x00, 0x01, 0x00,
		0x04, 0x11, 0x40, 0x15,
		0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x05, 0x02, 0x12, 0x10,
		0x06, 0x01, 0x02,
	}, byts)

	var esds gomp4.Esds
	_, err = gomp4.Unmarshal(bytes.NewReader(byts[8:]), uint64(len(byts)-8), &esds, gomp4.Context{})
	require.NoError(t, err)
	require.Len(t, esds.Descriptors, 4)
	require.Equal(t, byte(objectTypeIndicationAudioISO14496part3),
		esds.Descriptors[1].DecoderConfigDescriptor.ObjectTypeIndication)
	require.Equal(t, int8(0x05), esds.Descriptors[1].DecoderConfigDescriptor.StreamType)
	require.Equal(t, testAACConfig, esds.Descriptors[2].Data)
}

func TestESDSConfigTooLong(t *testing.T) {
	_, err := marshalESDS(make([]byte, 232))
	require.NoError(t, err)

	_, err = marshalESDS(make([]byte, 233))
	require.ErrorIs(t, err, ErrDescriptorLength)
}

func TestAVC1(t *testing.T) {
	byts, err := writeBoxes(func(w *mp4Writer) error {
		return marshalAVC1(w, &CodecH264{
			Config: testAVCConfig,
			Width:  1920,
			Height: 1080,
		})
	})
	require.NoError(t, err)
	require.Len(t, byts, 8+78+8+len(testAVCConfig))

	require.Equal(t, []byte{'a', 'v', 'c', '1'}, byts[4:8])
	entry := byts[8 : 8+78]
	require.Equal(t, []byte{0x00, 0x01}, entry[6:8])
	require.Equal(t, []byte{0x07, 0x80, 0x04, 0x38}, entry[24:28])
	require.Equal(t, []byte{0x00, 0x48, 0x00, 0x00, 0x00, 0x48, 0x00, 0x00}, entry[28:36])
	require.Equal(t, []byte{0x00, 0x01}, entry[40:42])
	require.Equal(t, append([]byte{0x07}, "fmp4mux"...), entry[42:50])
	require.Equal(t, []byte{0x00, 0x18, 0xff, 0xff}, entry[74:78])

	avcC := byts[8+78:]
	require.Equal(t, []byte{'a', 'v', 'c', 'C'}, avcC[4:8])
	require.Equal(t, testAVCConfig, avcC[8:])

	var avc1 gomp4.VisualSampleEntry
	avc1.SetType(gomp4.BoxTypeAvc1())
	_, err = gomp4.Unmarshal(bytes.NewReader(byts[8:]), 78, &avc1, gomp4.Context{})
	require.NoError(t, err)
	require.Equal(t, uint16(1920), avc1.Width)
	require.Equal(t, uint16(1080), avc1.Height)
	require.Equal(t, uint16(1), avc1.FrameCount)
}

func TestAVC1Errors(t *testing.T) {
	_, err := writeBoxes(func(w *mp4Writer) error {
		return marshalAVC1(w, &CodecH264{Width: 10, Height: 10})
	})
	require.ErrorIs(t, err, ErrDecoderConfigMissing)

	_, err = writeBoxes(func(w *mp4Writer) error {
		return marshalAVC1(w, &CodecH264{Config: testAVCConfig, Width: 70000, Height: 10})
	})
	require.ErrorIs(t, err, ErrVideoSize)
}

func TestMP4A(t *testing.T) {
	byts, err := writeBoxes(func(w *mp4Writer) error {
		return marshalMP4A(w, &CodecMPEG4Audio{
			Config:       testAACConfig,
			ChannelCount: 2,
			SampleRate:   44100,
		})
	})
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x4b, 'm', 'p', '4', 'a',
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x02, 0x00, 0x10, 0x00, 0x00, 0x00, 0x00,
		0xac, 0x44, 0x00, 0x00,
	}, byts[:36])
	require.Equal(t, []byte{'e', 's', 'd', 's'}, byts[40:44])

	esds, err := marshalESDS(testAACConfig)
	require.NoError(t, err)
	require.Equal(t, esds, byts[36:])
}

func TestMP3(t *testing.T) {
	byts, err := writeBoxes(func(w *mp4Writer) error {
		return marshalMP3(w, &CodecMPEG1Audio{
			ChannelCount: 1,
			SampleRate:   48000,
		})
	})
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x24, '.', 'm', 'p', '3',
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x01, 0x00, 0x10, 0x00, 0x00, 0x00, 0x00,
		0xbb, 0x80, 0x00, 0x00,
	}, byts)
}

func TestAudioSampleEntryErrors(t *testing.T) {
	_, err := audioSampleEntry(gomp4.BoxTypeMp4a(), 2, 96000)
	require.ErrorIs(t, err, ErrAudioSampleRate)

	_, err = audioSampleEntry(gomp4.BoxTypeMp4a(), 2, 88200)
	require.ErrorIs(t, err, ErrAudioSampleRate)

	_, err = audioSampleEntry(gomp4.BoxTypeMp4a(), 0, 48000)
	require.ErrorIs(t, err, ErrAudioChannelCount)

	entry, err := audioSampleEntry(gomp4.BoxTypeMp4a(), 2, 65535)
	require.NoError(t, err)
	require.Equal(t, uint16(65535), entry.GetSampleRateInt())
}

func TestSTSDUnknownCodec(t *testing.T) {
	_, err := writeBoxes(func(w *mp4Writer) error {
		return marshalSTSD(w, &Track{ID: 1})
	})
	require.ErrorIs(t, err, ErrCodecNotProvided)
}
