package segmenter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/fmp4mux/pkg/fmp4"
)

func videoTrack(count int, keyframes ...int) *fmp4.Track {
	t := &fmp4.Track{
		ID:                1,
		TimeScale:         90000,
		RefSampleDuration: 3000,
		Codec:             &fmp4.CodecH264{},
	}

	isKey := make(map[int]struct{})
	for _, k := range keyframes {
		isKey[k] = struct{}{}
	}

	for i := 0; i < count; i++ {
		_, ok := isKey[i]
		t.AppendSample(&fmp4.Sample{
			Units:      [][]byte{{byte(i), 1, 2, 3}},
			Duration:   3000,
			IsKeyframe: ok,
		})
	}

	return t
}

func audioTrack(count int) *fmp4.Track {
	t := &fmp4.Track{
		ID:                2,
		TimeScale:         48000,
		RefSampleDuration: 1024,
		Codec:             &fmp4.CodecMPEG4Audio{},
	}

	for i := 0; i < count; i++ {
		t.AppendSample(&fmp4.Sample{
			Units:      [][]byte{{byte(i), 1}},
			Duration:   1024,
			IsKeyframe: true,
		})
	}

	return t
}

func batchSizes(batches []*Batch) []int {
	ret := make([]int, len(batches))
	for i, b := range batches {
		ret[i] = len(b.Samples)
	}
	return ret
}

func TestSplitVideo(t *testing.T) {
	s := &Segmenter{Duration: 1 * time.Second}

	batches := s.Split(videoTrack(90, 0, 20, 45))
	require.Equal(t, []int{45, 45}, batchSizes(batches))
	require.Equal(t, uint64(0), batches[0].BaseTime)
	require.Equal(t, uint64(135000), batches[1].BaseTime)
	require.Equal(t, uint64(135000), batches[0].Duration())
	require.Equal(t, uint64(180), batches[0].Size())
	require.Equal(t, true, batches[1].Samples[0].IsKeyframe)
}

func TestSplitVideoNoKeyframes(t *testing.T) {
	s := &Segmenter{Duration: 100 * time.Millisecond}

	batches := s.Split(videoTrack(10, 0))
	require.Equal(t, []int{10}, batchSizes(batches))
}

func TestSplitAudio(t *testing.T) {
	s := &Segmenter{Duration: 100 * time.Millisecond}

	// 100ms at 48khz are 4800 ticks, that are reached after 5 samples.
	batches := s.Split(audioTrack(12))
	require.Equal(t, []int{5, 5, 2}, batchSizes(batches))
	require.Equal(t, uint64(5120), batches[1].BaseTime)
	require.Equal(t, uint64(10240), batches[2].BaseTime)
}

func TestSplitMaxSize(t *testing.T) {
	s := &Segmenter{
		Duration: 10 * time.Second,
		MaxSize:  10,
	}

	batches := s.Split(videoTrack(5, 0))
	require.Equal(t, []int{2, 2, 1}, batchSizes(batches))
	require.Equal(t, uint64(6000), batches[1].BaseTime)
}

func TestSplitOversizedSample(t *testing.T) {
	s := &Segmenter{
		Duration: 10 * time.Second,
		MaxSize:  2,
	}

	batches := s.Split(videoTrack(2, 0))
	require.Equal(t, []int{1, 1}, batchSizes(batches))
}

func TestSplitEmpty(t *testing.T) {
	s := &Segmenter{Duration: time.Second}

	batches := s.Split(audioTrack(0))
	require.Empty(t, batches)
}

func TestDurationGoToMp4(t *testing.T) {
	require.Equal(t, uint64(90000), durationGoToMp4(time.Second, 90000))
	require.Equal(t, uint64(4410), durationGoToMp4(100*time.Millisecond, 44100))
	require.Equal(t, uint64(135000), durationGoToMp4(1500*time.Millisecond, 90000))
}
