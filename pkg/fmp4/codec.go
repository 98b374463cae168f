package fmp4

// Codec is the codec of a track.
// The set of codecs is closed: it is implemented by CodecH264,
// CodecMPEG4Audio and CodecMPEG1Audio only.
type Codec interface {
	IsVideo() bool
	isCodec()
}

// CodecH264 is a H264 codec.
type CodecH264 struct {
	// AVC decoder configuration record.
	Config []byte

	// coded size.
	Width  int
	Height int
}

// IsVideo implements Codec.
func (*CodecH264) IsVideo() bool {
	return true
}

func (*CodecH264) isCodec() {}

// CodecMPEG4Audio is a MPEG-4 Audio (AAC) codec.
type CodecMPEG4Audio struct {
	// AudioSpecificConfig.
	Config []byte

	ChannelCount int
	SampleRate   int
}

// IsVideo implements Codec.
func (*CodecMPEG4Audio) IsVideo() bool {
	return false
}

func (*CodecMPEG4Audio) isCodec() {}

// CodecMPEG1Audio is a MPEG-1/2 Audio (MP3) codec.
type CodecMPEG1Audio struct {
	ChannelCount int
	SampleRate   int
}

// IsVideo implements Codec.
func (*CodecMPEG1Audio) IsVideo() bool {
	return false
}

func (*CodecMPEG1Audio) isCodec() {}
