package job

import (
	"encoding/hex"
	"strconv"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/mpeg4audio"

	"github.com/bluenviron/fmp4mux/pkg/fmp4"
)

func codecParameters(codec fmp4.Codec) string {
	switch codec := codec.(type) {
	case *fmp4.CodecH264:
		// profile, profile compatibility and level.
		if len(codec.Config) >= 4 {
			return "avc1." + hex.EncodeToString(codec.Config[1:4])
		}

	case *fmp4.CodecMPEG4Audio:
		var conf mpeg4audio.AudioSpecificConfig
		err := conf.Unmarshal(codec.Config)
		if err == nil {
			// https://developer.mozilla.org/en-US/docs/Web/Media/Formats/codecs_parameter
			return "mp4a.40." + strconv.FormatInt(int64(conf.Type), 10)
		}

	case *fmp4.CodecMPEG1Audio:
		return "mp4a.40.34"
	}

	return ""
}
