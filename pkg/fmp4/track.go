package fmp4

import (
	"errors"
	"fmt"
	"math"
)

// contract violations.
var (
	ErrNoTracks             = errors.New("no tracks provided")
	ErrNoSamples            = errors.New("track has no samples")
	ErrEmptySample          = errors.New("sample has no units")
	ErrSampleSize           = errors.New("sample size does not match its units")
	ErrInvalidSampleFlags   = errors.New("invalid sample flags")
	ErrRefSampleDuration    = errors.New("reference sample duration is zero")
	ErrCodecNotProvided     = errors.New("codec not provided")
	ErrChunkOffsetTooLarge  = errors.New("chunk offset does not fit into 32 bits")
	ErrDescriptorLength     = errors.New("descriptor length does not fit into one byte")
	ErrAudioSampleRate      = errors.New("audio sample rate does not fit into 16 bits")
	ErrAudioChannelCount    = errors.New("invalid audio channel count")
	ErrVideoSize            = errors.New("video size does not fit into 16 bits")
	ErrTrackIDOutOfRange    = errors.New("track ID out of range")
	ErrDuplicateTrackID     = errors.New("duplicate track ID")
	ErrDecoderConfigMissing = errors.New("decoder configuration not provided")
)

// Track is a track.
type Track struct {
	// positive and stable for the lifetime of the stream.
	ID int

	// ticks per second.
	TimeScale uint32

	// nominal duration of a sample, used to derive the media timescale.
	RefSampleDuration uint32

	// display size of video tracks.
	PresentWidth  int
	PresentHeight int

	Codec Codec

	// count of samples currently held.
	SequenceNumber uint32

	Samples []*Sample
}

// AppendSample appends a sample, filling its size.
func (t *Track) AppendSample(sa *Sample) {
	sa.Size = sa.unitsSize()
	t.Samples = append(t.Samples, sa)
	t.SequenceNumber++
}

// Flush removes and returns the samples currently held.
func (t *Track) Flush() []*Sample {
	samples := t.Samples
	t.Samples = nil
	t.SequenceNumber = 0
	return samples
}

// Duration returns the sum of durations of the samples currently held.
func (t *Track) Duration() uint64 {
	var d uint64
	for _, sa := range t.Samples {
		d += uint64(sa.Duration)
	}
	return d
}

// Fragment returns a fragment containing the samples currently held.
func (t *Track) Fragment(baseMediaDecodeTime uint32) *Fragment {
	return &Fragment{
		SequenceNumber:      t.SequenceNumber,
		TrackID:             t.ID,
		BaseMediaDecodeTime: baseMediaDecodeTime,
		Samples:             t.Samples,
	}
}

// validateTrackID accepts IDs from 1 to 0xFFFFFFFE, so that the next track ID
// of mvhd still fits into 32 bits.
func validateTrackID(id int) error {
	if id <= 0 || uint64(id) >= math.MaxUint32 {
		return fmt.Errorf("%w: %d", ErrTrackIDOutOfRange, id)
	}
	return nil
}

func (t *Track) validate() error {
	err := validateTrackID(t.ID)
	if err != nil {
		return err
	}

	if t.Codec == nil {
		return fmt.Errorf("track %d: %w", t.ID, ErrCodecNotProvided)
	}

	if t.RefSampleDuration == 0 {
		return fmt.Errorf("track %d: %w", t.ID, ErrRefSampleDuration)
	}

	err = validateSamples(t.Samples)
	if err != nil {
		return fmt.Errorf("track %d: %w", t.ID, err)
	}

	return nil
}

func validateSamples(samples []*Sample) error {
	if len(samples) == 0 {
		return ErrNoSamples
	}

	for i, sa := range samples {
		err := sa.validate()
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
	}

	return nil
}

func sampleCount(samples []*Sample) (uint32, error) {
	if uint64(len(samples)) > 1<<32-1 {
		return 0, fmt.Errorf("too many samples: %d", len(samples))
	}
	return uint32(len(samples)), nil
}
