// Package job contains the muxing job.
package job

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"code.cloudfoundry.org/bytefmt"

	"github.com/bluenviron/fmp4mux/internal/conf"
	"github.com/bluenviron/fmp4mux/internal/ingest"
	"github.com/bluenviron/fmp4mux/internal/logger"
	"github.com/bluenviron/fmp4mux/internal/segmenter"
	"github.com/bluenviron/fmp4mux/pkg/fmp4"
)

const (
	initFileName = "init.mp4"

	// timescale of mvhd.
	movieTimeScale = 1000
)

var errTerminated = fmt.Errorf("terminated")

func durationMp4ToGo(v uint64, timeScale uint32) time.Duration {
	timeScale64 := uint64(timeScale)
	secs := v / timeScale64
	dec := v % timeScale64
	return time.Duration(secs)*time.Second + time.Duration(dec)*time.Second/time.Duration(timeScale64)
}

func fragmentFileName(trackID int, n int) string {
	return strconv.FormatInt(int64(trackID), 10) + "_" + strconv.FormatInt(int64(n), 10) + ".m4s"
}

// Fragment is a fragment written by the job.
type Fragment struct {
	TrackID  int
	FileName string
	Start    time.Duration
	Duration time.Duration
	Size     uint64
}

// Result is the outcome of a job.
type Result struct {
	InitSize  uint64
	Fragments []*Fragment
}

// Job reads the tracks of a configuration and writes an initialization
// segment followed by the fragments of every track.
type Job struct {
	Conf   *conf.Conf
	Parent logger.Writer
}

// Log implements logger.Writer.
func (j *Job) Log(level logger.Level, format string, args ...any) {
	j.Parent.Log(level, "[job] "+format, args...)
}

// Run runs the job.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	tracks := make([]*fmp4.Track, len(j.Conf.Tracks))

	for i, ct := range j.Conf.Tracks {
		t, err := ingest.Load(ct, i+1)
		if err != nil {
			return nil, err
		}

		j.Log(logger.Debug, "track %d: %s, %d samples", t.ID, ct.Codec, len(t.Samples))
		tracks[i] = t
	}

	seg := &segmenter.Segmenter{
		Duration: time.Duration(j.Conf.FragmentDuration),
		MaxSize:  uint64(j.Conf.MaxFragmentSize),
	}

	batches := make([][]*segmenter.Batch, len(tracks))
	for i, t := range tracks {
		batches[i] = seg.Split(t)
	}

	err := os.MkdirAll(j.Conf.OutputDir, 0o755)
	if err != nil {
		return nil, err
	}

	err = j.removeOutputs()
	if err != nil {
		return nil, err
	}

	res := &Result{}

	res.InitSize, err = j.writeInit(tracks, batches)
	if err != nil {
		return nil, err
	}

	// the mdat of the initialization segment is not played by HLS clients.
	first := 1
	if j.Conf.Playlist {
		first = 0
	}

	for i, t := range tracks {
		for n := first; n < len(batches[i]); n++ {
			select {
			case <-ctx.Done():
				return nil, errTerminated
			default:
			}

			var frag *Fragment
			frag, err = j.writeFragment(t, n, batches[i][n])
			if err != nil {
				return nil, err
			}

			res.Fragments = append(res.Fragments, frag)
		}
	}

	if j.Conf.Playlist {
		err = j.writePlaylists(tracks, res.Fragments)
		if err != nil {
			return nil, err
		}
	}

	total := res.InitSize
	for _, frag := range res.Fragments {
		total += frag.Size
	}

	j.Log(logger.Info, "wrote initialization segment and %d fragments into '%s' (%s)",
		len(res.Fragments), j.Conf.OutputDir, bytefmt.ByteSize(total))

	return res, nil
}

// removeOutputs removes fragments and playlists written by previous runs.
func (j *Job) removeOutputs() error {
	for _, pattern := range []string{"*.m4s", "stream*.m3u8"} {
		paths, err := filepath.Glob(filepath.Join(j.Conf.OutputDir, pattern))
		if err != nil {
			return err
		}

		for _, pa := range paths {
			err = os.Remove(pa)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (j *Job) writeInit(tracks []*fmp4.Track, batches [][]*segmenter.Batch) (uint64, error) {
	in := &fmp4.Init{
		TimeScale:    movieTimeScale,
		Tracks:       make([]*fmp4.Track, len(tracks)),
		MovieExtends: j.Conf.MovieExtends || j.Conf.Playlist,
	}

	var duration uint64

	for i, t := range tracks {
		it := *t
		it.Samples = nil
		it.SequenceNumber = 0

		if len(batches[i]) != 0 {
			b := batches[i][0]
			for _, sa := range b.Samples {
				it.AppendSample(sa)
			}

			d := uint64(durationMp4ToGo(b.Duration(), t.TimeScale) / time.Millisecond)
			if d > duration {
				duration = d
			}
		}

		in.Tracks[i] = &it
	}

	if duration > math.MaxUint32 {
		return 0, fmt.Errorf("movie duration does not fit into 32 bits")
	}
	in.Duration = uint32(duration)

	buf, err := in.Marshal()
	if err != nil {
		return 0, err
	}

	err = j.writeFile(initFileName, buf)
	if err != nil {
		return 0, err
	}

	return uint64(len(buf)), nil
}

func (j *Job) writeFragment(t *fmp4.Track, n int, b *segmenter.Batch) (*Fragment, error) {
	if b.BaseTime > math.MaxUint32 {
		return nil, fmt.Errorf("track %d: base media decode time does not fit into 32 bits", t.ID)
	}

	t.Flush()
	for _, sa := range b.Samples {
		t.AppendSample(sa)
	}

	buf, err := t.Fragment(uint32(b.BaseTime)).Marshal()
	if err != nil {
		return nil, fmt.Errorf("track %d: %w", t.ID, err)
	}

	fileName := fragmentFileName(t.ID, n)

	err = j.writeFile(fileName, buf)
	if err != nil {
		return nil, err
	}

	return &Fragment{
		TrackID:  t.ID,
		FileName: fileName,
		Start:    durationMp4ToGo(b.BaseTime, t.TimeScale),
		Duration: durationMp4ToGo(b.Duration(), t.TimeScale),
		Size:     uint64(len(buf)),
	}, nil
}

func (j *Job) writeFile(fileName string, buf []byte) error {
	err := os.WriteFile(filepath.Join(j.Conf.OutputDir, fileName), buf, 0o644)
	if err != nil {
		return err
	}

	j.Log(logger.Debug, "wrote %s (%s)", fileName, bytefmt.ByteSize(uint64(len(buf))))
	return nil
}
