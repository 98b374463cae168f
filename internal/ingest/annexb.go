package ingest

import (
	"fmt"
)

// splitAnnexB splits an Annex-B stream into NALUs.
// Emulation prevention bytes are kept, since NALUs are stored as they are.
// The whole stream is split at once, so the NALU count is unbounded.
func splitAnnexB(byts []byte) ([][]byte, error) {
	bl := len(byts)

	// check initial delimiter
	n := func() int {
		if bl < 3 || byts[0] != 0x00 || byts[1] != 0x00 {
			return -1
		}

		if byts[2] == 0x01 {
			return 3
		}

		if bl < 4 || byts[2] != 0x00 || byts[3] != 0x01 {
			return -1
		}

		return 4
	}()
	if n < 0 {
		return nil, fmt.Errorf("input doesn't start with a delimiter")
	}

	var ret [][]byte
	zeros := 0
	start := n
	delimStart := 0

	for i := n; i < bl; i++ {
		switch byts[i] {
		case 0:
			if zeros == 0 {
				delimStart = i
			}
			zeros++

		case 1:
			if zeros >= 2 {
				nalu := byts[start:delimStart]
				if len(nalu) == 0 {
					return nil, fmt.Errorf("empty NALU at offset %d", start)
				}
				ret = append(ret, nalu)
				start = i + 1
			}
			zeros = 0

		default:
			zeros = 0
		}
	}

	end := bl
	if zeros > 0 {
		end = delimStart
	}

	nalu := byts[start:end]
	if len(nalu) == 0 {
		return nil, fmt.Errorf("empty NALU at offset %d", start)
	}
	ret = append(ret, nalu)

	return ret, nil
}
