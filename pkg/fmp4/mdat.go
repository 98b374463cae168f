package fmp4

import (
	"encoding/binary"
	"math"
)

const (
	mdatHeaderSize         = 8
	mdatExtendedHeaderSize = 16
)

// mdatHeader returns the header of a mdat box with given payload size.
// The extended form is used when the regular size would reach 2^32-1.
func mdatHeader(payloadSize uint64) []byte {
	if payloadSize+mdatHeaderSize >= math.MaxUint32 {
		buf := make([]byte, mdatExtendedHeaderSize)
		binary.BigEndian.PutUint32(buf, 1)
		copy(buf[4:], boxTypeMdat[:])
		binary.BigEndian.PutUint64(buf[8:], payloadSize+mdatExtendedHeaderSize)
		return buf
	}

	buf := make([]byte, mdatHeaderSize)
	binary.BigEndian.PutUint32(buf, uint32(payloadSize+mdatHeaderSize))
	copy(buf[4:], boxTypeMdat[:])
	return buf
}

func samplesPayloadSize(samples []*Sample) uint64 {
	var n uint64
	for _, sa := range samples {
		for _, u := range sa.Units {
			n += uint64(len(u))
		}
	}
	return n
}

// MarshalMdat frames the units of samples into a mdat box.
func MarshalMdat(samples []*Sample) []byte {
	payloadSize := samplesPayloadSize(samples)
	header := mdatHeader(payloadSize)

	buf := make([]byte, uint64(len(header))+payloadSize)
	n := copy(buf, header)

	for _, sa := range samples {
		for _, u := range sa.Units {
			n += copy(buf[n:], u)
		}
	}

	return buf
}
