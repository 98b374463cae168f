package fmp4

import (
	"fmt"

	gomp4 "github.com/abema/go-mp4"
)

// Leading is the is_leading field of sample flags.
type Leading uint8

// is_leading values.
const (
	LeadingUnknown Leading = iota
	LeadingWithDependency
	LeadingNot
	LeadingWithoutDependency
)

// Dependency is a sample_depends_on, sample_is_depended_on or
// sample_has_redundancy field of sample flags.
type Dependency uint8

// dependency values.
const (
	DependencyUnknown Dependency = iota
	DependencyYes
	DependencyNo
)

// SampleFlags are the dependency flags of a sample.
type SampleFlags struct {
	IsLeading       Leading
	DependsOn       Dependency
	IsDependedOn    Dependency
	HasRedundancy   Dependency
	IsNonSyncSample bool
}

// KeyframeFlags returns the flags of a sample that does not depend on others.
func KeyframeFlags() SampleFlags {
	return SampleFlags{
		DependsOn: DependencyNo,
	}
}

// NonKeyframeFlags returns the flags of a sample that depends on others.
func NonKeyframeFlags() SampleFlags {
	return SampleFlags{
		DependsOn:       DependencyYes,
		IsNonSyncSample: true,
	}
}

func (f SampleFlags) validate() error {
	if f.IsLeading > 3 || f.DependsOn > 3 || f.IsDependedOn > 3 || f.HasRedundancy > 3 {
		return fmt.Errorf("%w: %+v", ErrInvalidSampleFlags, f)
	}
	return nil
}

// trun sample_flags.
func (f SampleFlags) marshalTrun() uint32 {
	return uint32(f.IsLeading)<<26 |
		uint32(f.DependsOn)<<24 |
		uint32(f.IsDependedOn)<<22 |
		uint32(f.HasRedundancy)<<20 |
		uint32(boolToUint8(f.IsNonSyncSample))<<16
}

// sdtp entry.
func (f SampleFlags) marshalSdtp() gomp4.SdtpSampleElem {
	return gomp4.SdtpSampleElem{
		IsLeading:           uint8(f.IsLeading),
		SampleDependsOn:     uint8(f.DependsOn),
		SampleIsDependedOn:  uint8(f.IsDependedOn),
		SampleHasRedundancy: uint8(f.HasRedundancy),
	}
}

// Sample is a timed access unit.
type Sample struct {
	// raw buffers that are concatenated to form the sample.
	Units [][]byte

	// ticks.
	Duration uint32

	// sum of unit sizes.
	Size uint32

	// PTS - DTS in ticks.
	CompositionTimeOffset int32

	IsKeyframe bool
	Flags      SampleFlags

	// absolute offset of the first byte of the sample inside the init segment.
	// It is assigned by Init.Marshal.
	ChunkOffset uint64
}

func (sa *Sample) unitsSize() uint32 {
	n := uint32(0)
	for _, u := range sa.Units {
		n += uint32(len(u))
	}
	return n
}

func (sa *Sample) validate() error {
	if len(sa.Units) == 0 {
		return ErrEmptySample
	}

	var n uint64
	for _, u := range sa.Units {
		n += uint64(len(u))
	}

	if n != uint64(sa.Size) {
		return fmt.Errorf("%w: size is %d, units are %d bytes", ErrSampleSize, sa.Size, n)
	}

	return sa.Flags.validate()
}

func boolToUint8(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}
