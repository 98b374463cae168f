package fmp4

import (
	"testing"

	gomp4 "github.com/abema/go-mp4"
	"github.com/stretchr/testify/require"
)

func TestTrackAppendAndFlush(t *testing.T) {
	tr := &Track{ID: 1}

	tr.AppendSample(&Sample{Units: [][]byte{{1, 2}, {3}}, Duration: 1000})
	tr.AppendSample(&Sample{Units: [][]byte{{4}}, Duration: 2000})

	require.Equal(t, uint32(2), tr.SequenceNumber)
	require.Equal(t, uint32(3), tr.Samples[0].Size)
	require.Equal(t, uint32(1), tr.Samples[1].Size)
	require.Equal(t, uint64(3000), tr.Duration())

	f := tr.Fragment(500)
	require.Equal(t, &Fragment{
		SequenceNumber:      2,
		TrackID:             1,
		BaseMediaDecodeTime: 500,
		Samples:             tr.Samples,
	}, f)

	flushed := tr.Flush()
	require.Len(t, flushed, 2)
	require.Empty(t, tr.Samples)
	require.Equal(t, uint32(0), tr.SequenceNumber)
	require.Equal(t, uint64(0), tr.Duration())
}

func TestTrackValidate(t *testing.T) {
	newTrack := func() *Track {
		tr := &Track{
			ID:                1,
			RefSampleDuration: 1024,
			Codec:             &CodecMPEG4Audio{Config: testAACConfig, ChannelCount: 2, SampleRate: 44100},
		}
		tr.AppendSample(&Sample{Units: [][]byte{{1}}})
		return tr
	}

	require.NoError(t, newTrack().validate())

	tr := newTrack()
	tr.ID = 1<<32 - 2
	require.NoError(t, tr.validate())

	tr = newTrack()
	tr.ID = 1<<32 - 1
	require.ErrorIs(t, tr.validate(), ErrTrackIDOutOfRange)

	tr = newTrack()
	tr.ID = -1
	require.ErrorIs(t, tr.validate(), ErrTrackIDOutOfRange)
}

func TestCodecIsVideo(t *testing.T) {
	require.True(t, (&CodecH264{}).IsVideo())
	require.False(t, (&CodecMPEG4Audio{}).IsVideo())
	require.False(t, (&CodecMPEG1Audio{}).IsVideo())
}

func TestSampleFlags(t *testing.T) {
	for _, ca := range []struct {
		name  string
		flags SampleFlags
		trun  uint32
		sdtp  gomp4.SdtpSampleElem
	}{
		{
			"keyframe",
			KeyframeFlags(),
			0x02000000,
			gomp4.SdtpSampleElem{SampleDependsOn: 2},
		},
		{
			"non keyframe",
			NonKeyframeFlags(),
			0x01010000,
			gomp4.SdtpSampleElem{SampleDependsOn: 1},
		},
		{
			"all fields",
			SampleFlags{
				IsLeading:       LeadingWithoutDependency,
				DependsOn:       DependencyNo,
				IsDependedOn:    DependencyYes,
				HasRedundancy:   DependencyNo,
				IsNonSyncSample: false,
			},
			0x0e600000,
			gomp4.SdtpSampleElem{
				IsLeading:           3,
				SampleDependsOn:     2,
				SampleIsDependedOn:  1,
				SampleHasRedundancy: 2,
			},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			require.NoError(t, ca.flags.validate())
			require.Equal(t, ca.trun, ca.flags.marshalTrun())
			require.Equal(t, ca.sdtp, ca.flags.marshalSdtp())
		})
	}
}
