package fmp4

import (
	"fmt"
	"math"

	gomp4 "github.com/abema/go-mp4"
)

// data offset, duration, size, flags, composition time offset.
const trunFlags = 0x000F01

// Fragment is a movie fragment of a single track.
type Fragment struct {
	SequenceNumber      uint32
	TrackID             int
	BaseMediaDecodeTime uint32
	Samples             []*Sample
}

// Marshal encodes a moof box followed by its mdat box.
func (f *Fragment) Marshal() ([]byte, error) {
	moof, err := f.MarshalMOOF()
	if err != nil {
		return nil, err
	}

	mdat := MarshalMdat(f.Samples)

	buf := make([]byte, len(moof)+len(mdat))
	n := copy(buf, moof)
	copy(buf[n:], mdat)

	return buf, nil
}

// MarshalMOOF encodes the moof box of the fragment.
// The trun data offset points to the first payload byte of the mdat box
// that immediately follows.
func (f *Fragment) MarshalMOOF() ([]byte, error) {
	/*
		|moof|
		|    |mfhd|
		|    |traf|
		|    |    |tfhd|
		|    |    |tfdt|
		|    |    |trun|
		|    |    |sdtp|
	*/

	err := validateTrackID(f.TrackID)
	if err != nil {
		return nil, err
	}

	err = validateSamples(f.Samples)
	if err != nil {
		return nil, fmt.Errorf("track %d: %w", f.TrackID, err)
	}

	count, err := sampleCount(f.Samples)
	if err != nil {
		return nil, err
	}

	w := newMP4Writer()

	_, err = w.writeBoxStart(&gomp4.Moof{}) // <moof>
	if err != nil {
		return nil, err
	}

	_, err = w.writeBox(&gomp4.Mfhd{ // <mfhd/>
		SequenceNumber: f.SequenceNumber,
	})
	if err != nil {
		return nil, err
	}

	_, err = w.writeBoxStart(&gomp4.Traf{}) // <traf>
	if err != nil {
		return nil, err
	}

	_, err = w.writeBox(&gomp4.Tfhd{ // <tfhd/>
		TrackID: uint32(f.TrackID),
	})
	if err != nil {
		return nil, err
	}

	_, err = w.writeBox(&gomp4.Tfdt{ // <tfdt/>
		BaseMediaDecodeTimeV0: f.BaseMediaDecodeTime,
	})
	if err != nil {
		return nil, err
	}

	trun := &gomp4.Trun{ // <trun/>
		FullBox: gomp4.FullBox{
			Flags: [3]byte{0, byte(trunFlags >> 8), byte(trunFlags & 0xFF)},
		},
		SampleCount: count,
		Entries:     make([]gomp4.TrunEntry, len(f.Samples)),
	}

	sdtp := &gomp4.Sdtp{ // <sdtp/>
		Samples: make([]gomp4.SdtpSampleElem, len(f.Samples)),
	}

	for i, sa := range f.Samples {
		trun.Entries[i] = gomp4.TrunEntry{
			SampleDuration:                sa.Duration,
			SampleSize:                    sa.Size,
			SampleFlags:                   sa.Flags.marshalTrun(),
			SampleCompositionTimeOffsetV0: uint32(sa.CompositionTimeOffset),
		}
		sdtp.Samples[i] = sa.Flags.marshalSdtp()
	}

	trunOffset, err := w.writeBox(trun)
	if err != nil {
		return nil, err
	}

	_, err = w.writeBox(sdtp)
	if err != nil {
		return nil, err
	}

	err = w.writeBoxEnd() // </traf>
	if err != nil {
		return nil, err
	}

	err = w.writeBoxEnd() // </moof>
	if err != nil {
		return nil, err
	}

	dataOffset, err := f.dataOffset(uint64(len(w.bytes())))
	if err != nil {
		return nil, err
	}

	trun.DataOffset = dataOffset

	err = w.rewriteBox(trunOffset, trun)
	if err != nil {
		return nil, err
	}

	return w.bytes(), nil
}

// dataOffset computes the distance between the start of the moof box and
// the first payload byte of the following mdat box.
func (f *Fragment) dataOffset(moofSize uint64) (int32, error) {
	v := moofSize + uint64(len(mdatHeader(samplesPayloadSize(f.Samples))))

	if v > math.MaxInt32 {
		return 0, fmt.Errorf("data offset does not fit into 32 bits: %d", v)
	}

	return int32(v), nil
}
