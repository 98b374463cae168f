// Package fmp4 contains a fragmented MP4 (ISO BMFF) box generator.
package fmp4

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const boxHeaderSize = 8

// ErrBoxTooLarge is returned when a box does not fit into a 32-bit size field.
var ErrBoxTooLarge = errors.New("box is too large")

// BoxType is a four-character box type.
type BoxType [4]byte

// String implements fmt.Stringer.
func (t BoxType) String() string {
	return string(t[:])
}

// box types that are framed without go-mp4.
var (
	boxTypeFree = BoxType{'f', 'r', 'e', 'e'}
	boxTypeMdat = BoxType{'m', 'd', 'a', 't'}
	boxTypeAvcC = BoxType{'a', 'v', 'c', 'C'}
	boxTypeEsds = BoxType{'e', 's', 'd', 's'}
	boxTypeMp3  = BoxType{'.', 'm', 'p', '3'}
)

// Box frames payloads into a box: a 32-bit big-endian size that includes the
// header, the type and the concatenated payloads.
func Box(typ BoxType, payloads ...[]byte) ([]byte, error) {
	size := uint64(boxHeaderSize)
	for _, p := range payloads {
		size += uint64(len(p))
	}

	if size > math.MaxUint32 {
		return nil, fmt.Errorf("%w: '%s' is %d bytes", ErrBoxTooLarge, typ, size)
	}

	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf, uint32(size))
	copy(buf[4:], typ[:])

	n := boxHeaderSize
	for _, p := range payloads {
		n += copy(buf[n:], p)
	}

	return buf, nil
}
