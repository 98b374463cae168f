// Package segmenter splits the samples of a track into fragments.
package segmenter

import (
	"time"

	"github.com/bluenviron/fmp4mux/pkg/fmp4"
)

func durationGoToMp4(v time.Duration, timeScale uint32) uint64 {
	timeScale64 := uint64(timeScale)
	secs := v / time.Second
	dec := v % time.Second
	return uint64(secs)*timeScale64 + uint64(dec)*timeScale64/uint64(time.Second)
}

// Batch is a group of consecutive samples of a track.
type Batch struct {
	// decode time of the first sample, in track ticks.
	BaseTime uint64

	Samples []*fmp4.Sample
}

// Duration returns the sum of sample durations.
func (b *Batch) Duration() uint64 {
	var d uint64
	for _, sa := range b.Samples {
		d += uint64(sa.Duration)
	}
	return d
}

// Size returns the sum of sample sizes.
func (b *Batch) Size() uint64 {
	var n uint64
	for _, sa := range b.Samples {
		n += uint64(sa.Size)
	}
	return n
}

// Segmenter splits samples into batches.
type Segmenter struct {
	// minimum duration of a batch.
	// The last batch can be shorter.
	Duration time.Duration

	// maximum size of a batch.
	// A batch made of a single sample can exceed it.
	MaxSize uint64
}

// Split splits the samples of a track into batches.
// Batches of video tracks start with a keyframe, unless a cut is forced by MaxSize.
func (s *Segmenter) Split(t *fmp4.Track) []*Batch {
	minDuration := durationGoToMp4(s.Duration, t.TimeScale)
	video := t.Codec != nil && t.Codec.IsVideo()

	var ret []*Batch
	cur := &Batch{}
	var curDuration uint64
	var curSize uint64

	for _, sa := range t.Samples {
		if len(cur.Samples) != 0 {
			cut := (curDuration >= minDuration && (!video || sa.IsKeyframe)) ||
				(s.MaxSize != 0 && (curSize+uint64(sa.Size)) > s.MaxSize)

			if cut {
				ret = append(ret, cur)
				cur = &Batch{BaseTime: cur.BaseTime + curDuration}
				curDuration = 0
				curSize = 0
			}
		}

		cur.Samples = append(cur.Samples, sa)
		curDuration += uint64(sa.Duration)
		curSize += uint64(sa.Size)
	}

	if len(cur.Samples) != 0 {
		ret = append(ret, cur)
	}

	return ret
}
