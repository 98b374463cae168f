package fmp4

import (
	"fmt"
	"math"

	gomp4 "github.com/abema/go-mp4"
)

// Specification: ISO 14496-1, Table 5
const objectTypeIndicationAudioISO14496part3 = 0x40

// stream type (0x05, audio) followed by upstream flag (0) and reserved bit (1).
const streamTypeAudioStream = 0x15

// Specification: ISO 14496-1, 7.2.2.1
const (
	esDescrTag                  = 0x03
	decoderConfigDescrTag       = 0x04
	decoderSpecificInfoTag      = 0x05
	slConfigDescrTag            = 0x06
	slConfigDescrPredefinedMP4  = 0x02
	esDescrFixedLength          = 0x17
	decoderConfigDescrFixedSize = 0x0F
)

const compressorName = "fmp4mux"

func marshalSTSD(w *mp4Writer, t *Track) error {
	_, err := w.writeBoxStart(&gomp4.Stsd{ // <stsd>
		EntryCount: 1,
	})
	if err != nil {
		return err
	}

	switch codec := t.Codec.(type) {
	case *CodecH264:
		err = marshalAVC1(w, codec)

	case *CodecMPEG4Audio:
		err = marshalMP4A(w, codec)

	case *CodecMPEG1Audio:
		err = marshalMP3(w, codec)

	default:
		err = ErrCodecNotProvided
	}
	if err != nil {
		return err
	}

	return w.writeBoxEnd() // </stsd>
}

func marshalAVC1(w *mp4Writer, codec *CodecH264) error {
	if len(codec.Config) == 0 {
		return fmt.Errorf("H264: %w", ErrDecoderConfigMissing)
	}

	if codec.Width < 0 || codec.Width > math.MaxUint16 ||
		codec.Height < 0 || codec.Height > math.MaxUint16 {
		return fmt.Errorf("%w: %dx%d", ErrVideoSize, codec.Width, codec.Height)
	}

	// the configuration record is written as is.
	avcC, err := Box(boxTypeAvcC, codec.Config)
	if err != nil {
		return err
	}

	var compressor [32]byte
	compressor[0] = byte(len(compressorName))
	copy(compressor[1:], compressorName)

	_, err = w.writeBoxStart(&gomp4.VisualSampleEntry{ // <avc1>
		SampleEntry: gomp4.SampleEntry{
			AnyTypeBox: gomp4.AnyTypeBox{
				Type: gomp4.BoxTypeAvc1(),
			},
			DataReferenceIndex: 1,
		},
		Width:           uint16(codec.Width),
		Height:          uint16(codec.Height),
		Horizresolution: 4718592,
		Vertresolution:  4718592,
		FrameCount:      1,
		Compressorname:  compressor,
		Depth:           24,
		PreDefined3:     -1,
	})
	if err != nil {
		return err
	}

	_, err = w.writeRaw(avcC) // <avcC/>
	if err != nil {
		return err
	}

	return w.writeBoxEnd() // </avc1>
}

// audioSampleEntry returns the fields shared by mp4a and .mp3.
func audioSampleEntry(typ gomp4.BoxType, channelCount int, sampleRate int) (*gomp4.AudioSampleEntry, error) {
	if channelCount <= 0 || channelCount > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d", ErrAudioChannelCount, channelCount)
	}

	if sampleRate <= 0 || sampleRate > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d", ErrAudioSampleRate, sampleRate)
	}

	return &gomp4.AudioSampleEntry{
		SampleEntry: gomp4.SampleEntry{
			AnyTypeBox: gomp4.AnyTypeBox{
				Type: typ,
			},
			DataReferenceIndex: 1,
		},
		ChannelCount: uint16(channelCount),
		SampleSize:   16,
		SampleRate:   uint32(sampleRate) << 16,
	}, nil
}

func marshalMP4A(w *mp4Writer, codec *CodecMPEG4Audio) error {
	entry, err := audioSampleEntry(gomp4.BoxTypeMp4a(), codec.ChannelCount, codec.SampleRate)
	if err != nil {
		return err
	}

	esds, err := marshalESDS(codec.Config)
	if err != nil {
		return err
	}

	_, err = w.writeBoxStart(entry) // <mp4a>
	if err != nil {
		return err
	}

	_, err = w.writeRaw(esds) // <esds/>
	if err != nil {
		return err
	}

	return w.writeBoxEnd() // </mp4a>
}

func marshalMP3(w *mp4Writer, codec *CodecMPEG1Audio) error {
	entry, err := audioSampleEntry(gomp4.BoxType(boxTypeMp3), codec.ChannelCount, codec.SampleRate)
	if err != nil {
		return err
	}

	_, err = w.writeBox(entry) // <.mp3/>
	return err
}

func marshalESDS(config []byte) ([]byte, error) {
	n := len(config)

	if esDescrFixedLength+n > math.MaxUint8 {
		return nil, fmt.Errorf("%w: config is %d bytes", ErrDescriptorLength, n)
	}

	buf := make([]byte, 0, 4+5+15+2+n+3)
	buf = append(buf, 0, 0, 0, 0) // version + flags

	buf = append(buf,
		esDescrTag, byte(esDescrFixedLength+n),
		0x00, 0x01, // ES_ID
		0x00, // flags + stream priority
	)

	buf = append(buf,
		decoderConfigDescrTag, byte(decoderConfigDescrFixedSize+n),
		objectTypeIndicationAudioISO14496part3,
		streamTypeAudioStream,
		0x00, 0x00, 0x00, // buffer size
		0x00, 0x00, 0x00, 0x00, // max bitrate
		0x00, 0x00, 0x00, 0x00, // average bitrate
	)

	buf = append(buf, decoderSpecificInfoTag, byte(n))
	buf = append(buf, config...)

	buf = append(buf, slConfigDescrTag, 0x01, slConfigDescrPredefinedMP4)

	return Box(boxTypeEsds, buf)
}
