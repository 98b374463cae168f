package ingest

import (
	"fmt"
	"math"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"

	"github.com/bluenviron/fmp4mux/internal/h264conf"
	"github.com/bluenviron/fmp4mux/pkg/fmp4"
)

const h264TimeScale = 90000

func isSlice(typ h264.NALUType) bool {
	return typ == h264.NALUTypeNonIDR || typ == h264.NALUTypeIDR
}

// groupAccessUnits groups NALUs into access units.
// An access unit starts with an AUD, or with parameter sets, SEI or a first
// slice that follow a slice.
func groupAccessUnits(nalus [][]byte) [][][]byte {
	var aus [][][]byte
	var cur [][]byte
	sliceFound := false

	for _, nalu := range nalus {
		typ := h264.NALUType(nalu[0] & 0x1F)

		newAU := false

		switch typ {
		case h264.NALUTypeAccessUnitDelimiter:
			newAU = true

		case h264.NALUTypeSPS, h264.NALUTypePPS, h264.NALUTypeSEI:
			newAU = sliceFound

		default:
			// first_mb_in_slice is zero
			if isSlice(typ) && len(nalu) >= 2 && (nalu[1]&0x80) != 0 {
				newAU = sliceFound
			}
		}

		if newAU && len(cur) != 0 {
			aus = append(aus, cur)
			cur = nil
			sliceFound = false
		}

		cur = append(cur, nalu)

		if isSlice(typ) {
			sliceFound = true
		}
	}

	if len(cur) != 0 {
		aus = append(aus, cur)
	}

	return aus
}

func decodeH264(id int, buf []byte, frameRate float64) (*fmp4.Track, error) {
	nalus, err := splitAnnexB(buf)
	if err != nil {
		return nil, err
	}

	var sps []byte
	var pps []byte
	var samples []*fmp4.Sample

	for _, au := range groupAccessUnits(nalus) {
		filtered := make([][]byte, 0, len(au))

		for _, nalu := range au {
			switch h264.NALUType(nalu[0] & 0x1F) {
			case h264.NALUTypeSPS:
				if sps == nil {
					sps = nalu
				}

			case h264.NALUTypePPS:
				if pps == nil {
					pps = nalu
				}

			case h264.NALUTypeAccessUnitDelimiter:

			default:
				filtered = append(filtered, nalu)
			}
		}

		if len(filtered) == 0 {
			continue
		}

		isKeyframe := h264.IsRandomAccess(filtered)

		// access units that precede the first IDR cannot be decoded
		if len(samples) == 0 && !isKeyframe {
			continue
		}

		var unit []byte
		unit, err = h264.AVCC(filtered).Marshal()
		if err != nil {
			return nil, err
		}

		sa := &fmp4.Sample{
			Units:      [][]byte{unit},
			IsKeyframe: isKeyframe,
		}

		if isKeyframe {
			sa.Flags = fmp4.KeyframeFlags()
		} else {
			sa.Flags = fmp4.NonKeyframeFlags()
		}

		samples = append(samples, sa)
	}

	if sps == nil || pps == nil {
		return nil, fmt.Errorf("SPS or PPS not found")
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("no IDR frames found")
	}

	var spsp h264.SPS
	err = spsp.Unmarshal(sps)
	if err != nil {
		return nil, fmt.Errorf("invalid SPS: %w", err)
	}

	if frameRate == 0 {
		frameRate = spsp.FPS()
		if frameRate == 0 {
			return nil, fmt.Errorf("frame rate is not present in the stream and must be set in the configuration")
		}
	}

	sampleDuration := math.Round(h264TimeScale / frameRate)
	if sampleDuration < 1 || sampleDuration > math.MaxUint32 {
		return nil, fmt.Errorf("invalid frame rate: %v", frameRate)
	}

	config, err := h264conf.Conf{
		SPS: sps,
		PPS: pps,
	}.Marshal()
	if err != nil {
		return nil, err
	}

	t := &fmp4.Track{
		ID:                id,
		TimeScale:         h264TimeScale,
		RefSampleDuration: uint32(sampleDuration),
		PresentWidth:      spsp.Width(),
		PresentHeight:     spsp.Height(),
		Codec: &fmp4.CodecH264{
			Config: config,
			Width:  spsp.Width(),
			Height: spsp.Height(),
		},
	}

	for _, sa := range samples {
		sa.Duration = t.RefSampleDuration
		t.AppendSample(sa)
	}

	return t, nil
}
