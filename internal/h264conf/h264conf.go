// Package h264conf contains an AVC decoder configuration record encoder and decoder.
package h264conf

import (
	"fmt"
)

// size of the length field that precedes every NALU of a sample.
const naluLengthSize = 4

// Conf is an AVC decoder configuration record
// with a single SPS and a single PPS.
type Conf struct {
	SPS []byte
	PPS []byte
}

// Unmarshal decodes a Conf from bytes.
func (c *Conf) Unmarshal(buf []byte) error {
	if len(buf) < 7 {
		return fmt.Errorf("buffer is too short")
	}

	if buf[0] != 1 {
		return fmt.Errorf("unsupported configuration version: %d", buf[0])
	}

	if int(buf[4]&0x03)+1 != naluLengthSize {
		return fmt.Errorf("unsupported NALU length size: %d", int(buf[4]&0x03)+1)
	}

	pos := 5

	spsCount := buf[pos] & 0x1F
	pos++
	if spsCount != 1 {
		return fmt.Errorf("SPS count %d is not supported", spsCount)
	}

	var err error
	c.SPS, pos, err = readParameterSet(buf, pos)
	if err != nil {
		return fmt.Errorf("invalid SPS: %w", err)
	}

	if pos >= len(buf) {
		return fmt.Errorf("PPS count is missing")
	}

	ppsCount := buf[pos]
	pos++
	if ppsCount != 1 {
		return fmt.Errorf("PPS count %d is not supported", ppsCount)
	}

	c.PPS, _, err = readParameterSet(buf, pos)
	if err != nil {
		return fmt.Errorf("invalid PPS: %w", err)
	}

	return nil
}

func readParameterSet(buf []byte, pos int) ([]byte, int, error) {
	if (len(buf) - pos) < 2 {
		return nil, 0, fmt.Errorf("length is missing")
	}

	le := int(uint16(buf[pos])<<8 | uint16(buf[pos+1]))
	pos += 2

	if (len(buf) - pos) < le {
		return nil, 0, fmt.Errorf("length is %d, but only %d bytes are available", le, len(buf)-pos)
	}

	return buf[pos : pos+le], pos + le, nil
}

// Marshal encodes a Conf into bytes.
func (c Conf) Marshal() ([]byte, error) {
	if len(c.SPS) < 4 {
		return nil, fmt.Errorf("SPS is too short")
	}

	if len(c.PPS) == 0 {
		return nil, fmt.Errorf("PPS is empty")
	}

	spsLen := len(c.SPS)
	ppsLen := len(c.PPS)

	if spsLen > 0xFFFF || ppsLen > 0xFFFF {
		return nil, fmt.Errorf("parameter set is too big")
	}

	buf := make([]byte, 11+spsLen+ppsLen)

	buf[0] = 1
	buf[1] = c.SPS[1] // profile
	buf[2] = c.SPS[2] // constraints
	buf[3] = c.SPS[3] // level
	buf[4] = (naluLengthSize - 1) | 0xFC
	buf[5] = 1 | 0xE0
	pos := 6

	buf[pos] = byte(spsLen >> 8)
	buf[pos+1] = byte(spsLen)
	pos += 2

	pos += copy(buf[pos:], c.SPS)

	buf[pos] = 1
	pos++

	buf[pos] = byte(ppsLen >> 8)
	buf[pos+1] = byte(ppsLen)
	pos += 2

	copy(buf[pos:], c.PPS)

	return buf, nil
}
