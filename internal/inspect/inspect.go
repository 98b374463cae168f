// Package inspect prints the box structure of MP4 files.
package inspect

import (
	"fmt"
	"io"
	"strings"

	"github.com/abema/go-mp4"
)

// Box is a box found in a MP4 file.
type Box struct {
	Depth  int
	Type   string
	Offset uint64
	Size   uint64

	// fields of the box, filled when Read is called with fields = true.
	Fields string
}

func hasFields(typ mp4.BoxType) bool {
	return typ != mp4.BoxTypeMdat() && typ != mp4.BoxTypeFree()
}

// Read walks the box structure of a MP4 file.
// Boxes of unknown type are reported without being expanded.
func Read(r io.ReadSeeker, fields bool) ([]*Box, error) {
	var boxes []*Box

	_, err := mp4.ReadBoxStructure(r, func(h *mp4.ReadHandle) (interface{}, error) {
		box := &Box{
			Depth:  len(h.Path) - 1,
			Type:   h.BoxInfo.Type.String(),
			Offset: h.BoxInfo.Offset,
			Size:   h.BoxInfo.Size,
		}
		boxes = append(boxes, box)

		if !h.BoxInfo.IsSupportedType() {
			return nil, nil
		}

		if fields && hasFields(h.BoxInfo.Type) {
			payload, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}

			box.Fields, err = mp4.Stringify(payload, h.BoxInfo.Context)
			if err != nil {
				return nil, err
			}
		}

		if h.BoxInfo.Type == mp4.BoxTypeMdat() {
			return nil, nil
		}

		return h.Expand()
	})
	if err != nil {
		return nil, err
	}

	return boxes, nil
}

// Print writes boxes in a human readable form.
func Print(w io.Writer, boxes []*Box) error {
	for _, box := range boxes {
		line := fmt.Sprintf("%s[%s] offset=%d size=%d",
			strings.Repeat("  ", box.Depth), box.Type, box.Offset, box.Size)

		if box.Fields != "" {
			line += " " + box.Fields
		}

		_, err := io.WriteString(w, line+"\n")
		if err != nil {
			return err
		}
	}

	return nil
}
