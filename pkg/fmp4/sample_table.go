package fmp4

import (
	"math"

	gomp4 "github.com/abema/go-mp4"
)

// durationGroup collects all samples of a track sharing the same duration.
type durationGroup struct {
	duration uint32
	count    uint32

	// 1-based index of the sample where the duration was first seen.
	chunkNumber uint32
}

// groupDurations groups samples by distinct duration value, in order of
// first appearance. Runs are not required to be contiguous.
func groupDurations(samples []*Sample) []durationGroup {
	var groups []durationGroup
	index := make(map[uint32]int)

	for i, sa := range samples {
		j, ok := index[sa.Duration]
		if !ok {
			j = len(groups)
			index[sa.Duration] = j
			groups = append(groups, durationGroup{
				duration:    sa.Duration,
				chunkNumber: uint32(i + 1),
			})
		}
		groups[j].count++
	}

	return groups
}

// syncSamples returns the 1-based indexes of keyframes.
func syncSamples(samples []*Sample) []uint32 {
	var out []uint32
	for i, sa := range samples {
		if sa.IsKeyframe {
			out = append(out, uint32(i+1))
		}
	}
	return out
}

// unitSizes returns the size of every unit of every sample, in write order.
func unitSizes(samples []*Sample) []uint32 {
	var out []uint32
	for _, sa := range samples {
		for _, u := range sa.Units {
			out = append(out, uint32(len(u)))
		}
	}
	return out
}

func marshalSTTS(w *mp4Writer, groups []durationGroup) error {
	entries := make([]gomp4.SttsEntry, len(groups))
	for i, g := range groups {
		entries[i] = gomp4.SttsEntry{
			SampleCount: g.count,
			SampleDelta: 1,
		}
	}

	_, err := w.writeBox(&gomp4.Stts{ // <stts/>
		EntryCount: uint32(len(entries)),
		Entries:    entries,
	})
	return err
}

func marshalSTSS(w *mp4Writer, indexes []uint32) error {
	_, err := w.writeBox(&gomp4.Stss{ // <stss/>
		EntryCount:   uint32(len(indexes)),
		SampleNumber: indexes,
	})
	return err
}

func marshalSTSC(w *mp4Writer, groups []durationGroup) error {
	entries := make([]gomp4.StscEntry, len(groups))
	for i, g := range groups {
		entries[i] = gomp4.StscEntry{
			FirstChunk:             g.chunkNumber,
			SamplesPerChunk:        g.count,
			SampleDescriptionIndex: 1,
		}
	}

	_, err := w.writeBox(&gomp4.Stsc{ // <stsc/>
		EntryCount: uint32(len(entries)),
		Entries:    entries,
	})
	return err
}

func marshalSTSZ(w *mp4Writer, sizes []uint32) error {
	// sample_size is always zero, every entry is explicit.
	_, err := w.writeBox(&gomp4.Stsz{ // <stsz/>
		SampleCount: uint32(len(sizes)),
		EntrySize:   sizes,
	})
	return err
}

func marshalSTCO(w *mp4Writer, firstChunkOffset uint64) error {
	if firstChunkOffset > math.MaxUint32 {
		return ErrChunkOffsetTooLarge
	}

	_, err := w.writeBox(&gomp4.Stco{ // <stco/>
		EntryCount:  1,
		ChunkOffset: []uint32{uint32(firstChunkOffset)},
	})
	return err
}

// marshalSTBL writes the sample table of a track whose chunk offsets have
// already been assigned.
func marshalSTBL(w *mp4Writer, t *Track, chunkOffsets []uint64) error {
	groups := groupDurations(t.Samples)

	_, err := w.writeBoxStart(&gomp4.Stbl{}) // <stbl>
	if err != nil {
		return err
	}

	err = marshalSTSD(w, t)
	if err != nil {
		return err
	}

	err = marshalSTTS(w, groups)
	if err != nil {
		return err
	}

	err = marshalSTSS(w, syncSamples(t.Samples))
	if err != nil {
		return err
	}

	err = marshalSTSC(w, groups)
	if err != nil {
		return err
	}

	err = marshalSTSZ(w, unitSizes(t.Samples))
	if err != nil {
		return err
	}

	err = marshalSTCO(w, chunkOffsets[0])
	if err != nil {
		return err
	}

	return w.writeBoxEnd() // </stbl>
}
