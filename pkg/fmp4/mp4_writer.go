package fmp4

import (
	"fmt"
	"io"
	"math"

	gomp4 "github.com/abema/go-mp4"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4/seekablebuffer"
)

func init() { //nolint:gochecknoinits
	gomp4.AddAnyTypeBoxDef(&gomp4.AudioSampleEntry{}, gomp4.BoxType(boxTypeMp3))
}

// mp4Writer is a MP4 writer.
type mp4Writer struct {
	buf    *seekablebuffer.Buffer
	w      *gomp4.Writer
	starts []uint64
}

func newMP4Writer() *mp4Writer {
	w := &mp4Writer{
		buf: &seekablebuffer.Buffer{},
	}

	w.w = gomp4.NewWriter(w.buf)

	return w
}

func (w *mp4Writer) writeBoxStart(box gomp4.IImmutableBox) (int, error) {
	bi, err := w.w.StartBox(&gomp4.BoxInfo{
		Type: box.GetType(),
	})
	if err != nil {
		return 0, err
	}

	_, err = gomp4.Marshal(w.w, box, gomp4.Context{})
	if err != nil {
		return 0, err
	}

	w.starts = append(w.starts, bi.Offset)

	return int(bi.Offset), nil
}

func (w *mp4Writer) writeBoxEnd() error {
	start := w.starts[len(w.starts)-1]
	w.starts = w.starts[:len(w.starts)-1]

	end, err := w.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	// headers are always 8 bytes.
	if uint64(end)-start > math.MaxUint32 {
		return fmt.Errorf("%w: box at offset %d is %d bytes", ErrBoxTooLarge, start, uint64(end)-start)
	}

	_, err = w.w.EndBox()
	return err
}

func (w *mp4Writer) writeBox(box gomp4.IImmutableBox) (int, error) {
	off, err := w.writeBoxStart(box)
	if err != nil {
		return 0, err
	}

	err = w.writeBoxEnd()
	if err != nil {
		return 0, err
	}

	return off, nil
}

func (w *mp4Writer) rewriteBox(off int, box gomp4.IImmutableBox) error {
	prevOff, err := w.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	_, err = w.w.Seek(int64(off), io.SeekStart)
	if err != nil {
		return err
	}

	_, err = w.writeBox(box)
	if err != nil {
		return err
	}

	_, err = w.w.Seek(prevOff, io.SeekStart)
	return err
}

// writeRaw writes already framed bytes and returns their offset.
func (w *mp4Writer) writeRaw(buf []byte) (int, error) {
	off, err := w.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}

	_, err = w.w.Write(buf)
	if err != nil {
		return 0, err
	}

	return int(off), nil
}

func (w *mp4Writer) bytes() []byte {
	return w.buf.Bytes()
}
