package fmp4

import (
	"fmt"
	"math"

	gomp4 "github.com/abema/go-mp4"
)

// fixed creation and modification time of mvhd, tkhd and mdhd.
const fixedTime = 0xCEBAFDA8

var unityMatrix = [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000}

// Init is a fMP4 initialization segment.
// It contains a ftyp box, an empty free box, a mdat box with the samples of
// all tracks and a moov box describing them.
type Init struct {
	TimeScale uint32
	Duration  uint32
	Tracks    []*Track

	// add a mvex box with a trex box for each track.
	MovieExtends bool
}

// Marshal encodes an initialization segment.
// On success, the chunk offset of every sample is written back.
func (i *Init) Marshal() ([]byte, error) {
	/*
		|ftyp|
		|free|
		|mdat|
		|moov|
		|    |mvhd|
		|    |trak|
		|    |....|
		|    |mvex| (optional)
		|    |    |trex|
	*/

	err := i.validate()
	if err != nil {
		return nil, err
	}

	w := newMP4Writer()

	_, err = w.writeBox(&gomp4.Ftyp{ // <ftyp/>
		MajorBrand:   [4]byte{'i', 's', 'o', 'm'},
		MinorVersion: 0x200,
		CompatibleBrands: []gomp4.CompatibleBrandElem{
			{CompatibleBrand: [4]byte{'i', 's', 'o', 'm'}},
			{CompatibleBrand: [4]byte{'i', 's', 'o', '2'}},
			{CompatibleBrand: [4]byte{'a', 'v', 'c', '1'}},
			{CompatibleBrand: [4]byte{'m', 'p', '4', '1'}},
		},
	})
	if err != nil {
		return nil, err
	}

	free, err := Box(boxTypeFree)
	if err != nil {
		return nil, err
	}

	_, err = w.writeRaw(free) // <free/>
	if err != nil {
		return nil, err
	}

	var payloadSize uint64
	for _, t := range i.Tracks {
		payloadSize += samplesPayloadSize(t.Samples)
	}

	mdatStart, err := w.writeRaw(mdatHeader(payloadSize)) // <mdat>
	if err != nil {
		return nil, err
	}

	chunkOffsets := i.chunkOffsets(payloadStart(uint64(mdatStart), payloadSize))

	for _, t := range i.Tracks {
		for _, sa := range t.Samples {
			for _, u := range sa.Units {
				_, err = w.writeRaw(u)
				if err != nil {
					return nil, err
				}
			}
		}
	} // </mdat>

	err = i.marshalMOOV(w, chunkOffsets)
	if err != nil {
		return nil, err
	}

	for ti, t := range i.Tracks {
		for si, sa := range t.Samples {
			sa.ChunkOffset = chunkOffsets[ti][si]
		}
	}

	return w.bytes(), nil
}

func (i *Init) validate() error {
	if len(i.Tracks) == 0 {
		return ErrNoTracks
	}

	ids := make(map[int]struct{}, len(i.Tracks))

	for _, t := range i.Tracks {
		err := t.validate()
		if err != nil {
			return err
		}

		if _, ok := ids[t.ID]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateTrackID, t.ID)
		}
		ids[t.ID] = struct{}{}
	}

	return nil
}

// payloadStart returns the position of the first payload byte of a mdat box
// that starts at mdatStart.
func payloadStart(mdatStart uint64, payloadSize uint64) uint64 {
	return mdatStart + uint64(len(mdatHeader(payloadSize)))
}

// chunkOffsets computes the absolute offset of every sample, writing
// tracks in order and samples in order starting from pos.
func (i *Init) chunkOffsets(pos uint64) [][]uint64 {
	out := make([][]uint64, len(i.Tracks))

	for ti, t := range i.Tracks {
		out[ti] = make([]uint64, len(t.Samples))

		for si, sa := range t.Samples {
			out[ti][si] = pos
			pos += uint64(sa.Size)
		}
	}

	return out
}

func (i *Init) marshalMOOV(w *mp4Writer, chunkOffsets [][]uint64) error {
	_, err := w.writeBoxStart(&gomp4.Moov{}) // <moov>
	if err != nil {
		return err
	}

	_, err = w.writeBox(&gomp4.Mvhd{ // <mvhd/>
		CreationTimeV0:     fixedTime,
		ModificationTimeV0: fixedTime,
		Timescale:          i.TimeScale,
		DurationV0:         i.Duration,
		Rate:               65536,
		Volume:             256,
		Matrix:             unityMatrix,
		NextTrackID:        uint32(i.Tracks[len(i.Tracks)-1].ID + 1),
	})
	if err != nil {
		return err
	}

	for ti, t := range i.Tracks {
		err = marshalTRAK(w, t, chunkOffsets[ti])
		if err != nil {
			return fmt.Errorf("track %d: %w", t.ID, err)
		}
	}

	if i.MovieExtends {
		_, err = w.writeBoxStart(&gomp4.Mvex{}) // <mvex>
		if err != nil {
			return err
		}

		for _, t := range i.Tracks {
			_, err = w.writeBox(&gomp4.Trex{ // <trex/>
				TrackID:                       uint32(t.ID),
				DefaultSampleDescriptionIndex: 1,
				DefaultSampleFlags:            0x00010001,
			})
			if err != nil {
				return err
			}
		}

		err = w.writeBoxEnd() // </mvex>
		if err != nil {
			return err
		}
	}

	return w.writeBoxEnd() // </moov>
}

func marshalTRAK(w *mp4Writer, t *Track, chunkOffsets []uint64) error {
	/*
		|trak|
		|    |tkhd|
		|    |mdia|
		|    |    |mdhd|
		|    |    |hdlr|
		|    |    |minf|
		|    |    |    |vmhd| (video)
		|    |    |    |smhd| (audio)
		|    |    |    |dinf|
		|    |    |    |    |dref|
		|    |    |    |    |    |url |
		|    |    |    |stbl|
		|    |    |    |    |stsd|
		|    |    |    |    |stts|
		|    |    |    |    |stss|
		|    |    |    |    |stsc|
		|    |    |    |    |stsz|
		|    |    |    |    |stco|
	*/

	duration := uint64(t.RefSampleDuration) * uint64(len(t.Samples))
	if duration > math.MaxUint32 {
		return fmt.Errorf("track duration does not fit into 32 bits: %d", duration)
	}

	tkhd := &gomp4.Tkhd{
		FullBox: gomp4.FullBox{
			Flags: [3]byte{0, 0, 0x0F},
		},
		CreationTimeV0:     fixedTime,
		ModificationTimeV0: fixedTime,
		TrackID:            uint32(t.ID),
		DurationV0:         uint32(duration),
		Matrix:             unityMatrix,
	}

	if t.Codec.IsVideo() {
		if t.PresentWidth < 0 || t.PresentWidth > math.MaxUint16 ||
			t.PresentHeight < 0 || t.PresentHeight > math.MaxUint16 {
			return fmt.Errorf("%w: %dx%d", ErrVideoSize, t.PresentWidth, t.PresentHeight)
		}

		// 16.16 fixed point
		tkhd.Width = uint32(t.PresentWidth) << 16
		tkhd.Height = uint32(t.PresentHeight) << 16
	}

	_, err := w.writeBoxStart(&gomp4.Trak{}) // <trak>
	if err != nil {
		return err
	}

	_, err = w.writeBox(tkhd) // <tkhd/>
	if err != nil {
		return err
	}

	_, err = w.writeBoxStart(&gomp4.Mdia{}) // <mdia>
	if err != nil {
		return err
	}

	_, err = w.writeBox(&gomp4.Mdhd{ // <mdhd/>
		CreationTimeV0:     fixedTime,
		ModificationTimeV0: fixedTime,
		Timescale:          t.TimeScale / t.RefSampleDuration,
		DurationV0:         uint32(len(t.Samples)),
		Language:           [3]byte{'u', 'n', 'd'},
	})
	if err != nil {
		return err
	}

	hdlr := &gomp4.Hdlr{ // <hdlr/>
		HandlerType: [4]byte{'s', 'o', 'u', 'n'},
		Name:        "SoundHandler",
	}
	if t.Codec.IsVideo() {
		hdlr.HandlerType = [4]byte{'v', 'i', 'd', 'e'}
		hdlr.Name = "VideoHandler"
	}

	_, err = w.writeBox(hdlr)
	if err != nil {
		return err
	}

	err = marshalMINF(w, t, chunkOffsets)
	if err != nil {
		return err
	}

	err = w.writeBoxEnd() // </mdia>
	if err != nil {
		return err
	}

	return w.writeBoxEnd() // </trak>
}

func marshalMINF(w *mp4Writer, t *Track, chunkOffsets []uint64) error {
	_, err := w.writeBoxStart(&gomp4.Minf{}) // <minf>
	if err != nil {
		return err
	}

	if t.Codec.IsVideo() {
		_, err = w.writeBox(&gomp4.Vmhd{ // <vmhd/>
			FullBox: gomp4.FullBox{
				Flags: [3]byte{0, 0, 1},
			},
		})
	} else {
		_, err = w.writeBox(&gomp4.Smhd{}) // <smhd/>
	}
	if err != nil {
		return err
	}

	_, err = w.writeBoxStart(&gomp4.Dinf{}) // <dinf>
	if err != nil {
		return err
	}

	_, err = w.writeBoxStart(&gomp4.Dref{ // <dref>
		EntryCount: 1,
	})
	if err != nil {
		return err
	}

	_, err = w.writeBox(&gomp4.Url{ // <url/>
		FullBox: gomp4.FullBox{
			Flags: [3]byte{0, 0, 1},
		},
	})
	if err != nil {
		return err
	}

	err = w.writeBoxEnd() // </dref>
	if err != nil {
		return err
	}

	err = w.writeBoxEnd() // </dinf>
	if err != nil {
		return err
	}

	err = marshalSTBL(w, t, chunkOffsets)
	if err != nil {
		return err
	}

	return w.writeBoxEnd() // </minf>
}
