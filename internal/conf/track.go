package conf

import (
	"encoding/json"
	"fmt"
)

// Codec is the codec parameter of a track.
type Codec string

// supported codecs.
const (
	CodecH264       Codec = "h264"
	CodecMPEG4Audio Codec = "aac"
	CodecMPEG1Audio Codec = "mp3"
)

// UnmarshalJSON implements json.Unmarshaler.
func (c *Codec) UnmarshalJSON(b []byte) error {
	var in string
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	switch Codec(in) {
	case CodecH264, CodecMPEG4Audio, CodecMPEG1Audio:
		*c = Codec(in)

	default:
		return fmt.Errorf("unsupported codec: '%s'", in)
	}

	return nil
}

// UnmarshalEnv implements env.Unmarshaler.
func (c *Codec) UnmarshalEnv(_ string, v string) error {
	return c.UnmarshalJSON([]byte(`"` + v + `"`))
}

// Track is an elementary stream to be muxed.
type Track struct {
	Codec Codec  `json:"codec"`
	File  string `json:"file"`

	// frames per second of a video track.
	// When zero, it is read from the stream.
	FrameRate float64 `json:"frameRate"`
}

// Validate checks the track.
func (t *Track) Validate() error {
	if t.Codec == "" {
		return fmt.Errorf("'codec' is mandatory")
	}

	if t.File == "" {
		return fmt.Errorf("'file' is mandatory")
	}

	if t.FrameRate < 0 {
		return fmt.Errorf("'frameRate' must not be negative")
	}

	if t.FrameRate != 0 && t.Codec != CodecH264 {
		return fmt.Errorf("'frameRate' is supported by video tracks only")
	}

	return nil
}
