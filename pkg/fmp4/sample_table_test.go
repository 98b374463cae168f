package fmp4

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func samplesWithDurations(durations ...uint32) []*Sample {
	out := make([]*Sample, len(durations))
	for i, d := range durations {
		out[i] = &Sample{
			Units:    [][]byte{{0x01}},
			Duration: d,
			Size:     1,
		}
	}
	return out
}

func TestGroupDurations(t *testing.T) {
	for _, ca := range []struct {
		name      string
		durations []uint32
		groups    []durationGroup
	}{
		{
			"constant",
			[]uint32{1000, 1000, 1000},
			[]durationGroup{{duration: 1000, count: 3, chunkNumber: 1}},
		},
		{
			"contiguous runs",
			[]uint32{1000, 1000, 2000},
			[]durationGroup{
				{duration: 1000, count: 2, chunkNumber: 1},
				{duration: 2000, count: 1, chunkNumber: 3},
			},
		},
		{
			"interleaved values",
			[]uint32{1000, 2000, 1000, 3000, 2000},
			[]durationGroup{
				{duration: 1000, count: 2, chunkNumber: 1},
				{duration: 2000, count: 2, chunkNumber: 2},
				{duration: 3000, count: 1, chunkNumber: 4},
			},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			require.Equal(t, ca.groups, groupDurations(samplesWithDurations(ca.durations...)))
		})
	}
}

func TestSTTSAndSTSC(t *testing.T) {
	groups := groupDurations(samplesWithDurations(1000, 1000, 2000))

	stts, err := writeBoxes(func(w *mp4Writer) error { return marshalSTTS(w, groups) })
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x20, 's', 't', 't', 's',
		0x00, 0x00, 0x00, 0x00, // version + flags
		0x00, 0x00, 0x00, 0x02, // entry count
		0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	}, stts)

	stsc, err := writeBoxes(func(w *mp4Writer) error { return marshalSTSC(w, groups) })
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x28, 's', 't', 's', 'c',
		0x00, 0x00, 0x00, 0x00, // version + flags
		0x00, 0x00, 0x00, 0x02, // entry count
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	}, stsc)
}

func TestSTSS(t *testing.T) {
	t.Run("keyframes", func(t *testing.T) {
		samples := samplesWithDurations(1, 1, 1, 1)
		samples[0].IsKeyframe = true
		samples[3].IsKeyframe = true

		require.Equal(t, []uint32{1, 4}, syncSamples(samples))

		stss, err := writeBoxes(func(w *mp4Writer) error { return marshalSTSS(w, syncSamples(samples)) })
		require.NoError(t, err)
		require.Equal(t, []byte{
			0x00, 0x00, 0x00, 0x18, 's', 't', 's', 's',
			0x00, 0x00, 0x00, 0x00,
			0x00, 0x00, 0x00, 0x02,
			0x00, 0x00, 0x00, 0x01,
			0x00, 0x00, 0x00, 0x04,
		}, stss)
	})

	t.Run("no keyframes", func(t *testing.T) {
		stss, err := writeBoxes(func(w *mp4Writer) error {
			return marshalSTSS(w, syncSamples(samplesWithDurations(1, 1)))
		})
		require.NoError(t, err)
		require.Equal(t, []byte{
			0x00, 0x00, 0x00, 0x10, 's', 't', 's', 's',
			0x00, 0x00, 0x00, 0x00,
			0x00, 0x00, 0x00, 0x00,
		}, stss)
	})
}

func TestSTSZ(t *testing.T) {
	samples := []*Sample{
		{Units: [][]byte{{0x01, 0x02}, {0x03, 0x04, 0x05}}, Size: 5},
		{Units: [][]byte{{0x06}}, Size: 1},
	}

	stsz, err := writeBoxes(func(w *mp4Writer) error { return marshalSTSZ(w, unitSizes(samples)) })
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x20, 's', 't', 's', 'z',
		0x00, 0x00, 0x00, 0x00, // version + flags
		0x00, 0x00, 0x00, 0x00, // sample size
		0x00, 0x00, 0x00, 0x03, // entry count
		0x00, 0x00, 0x00, 0x02,
		0x00, 0x00, 0x00, 0x03,
		0x00, 0x00, 0x00, 0x01,
	}, stsz)
}

func TestSTCO(t *testing.T) {
	stco, err := writeBoxes(func(w *mp4Writer) error { return marshalSTCO(w, 0x30) })
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x14, 's', 't', 'c', 'o',
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x01,
		0x00, 0x00, 0x00, 0x30,
	}, stco)

	_, err = writeBoxes(func(w *mp4Writer) error { return marshalSTCO(w, 0x100000000) })
	require.ErrorIs(t, err, ErrChunkOffsetTooLarge)
}
