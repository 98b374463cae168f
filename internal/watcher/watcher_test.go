package watcher

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bluenviron/fmp4mux/internal/test"
)

func overwrite(t *testing.T, fpath string) {
	f, err := os.Create(fpath)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("{}"))
	require.NoError(t, err)
}

func TestNoFile(t *testing.T) {
	w := &Watcher{FilePaths: []string{"/nonexistent"}}
	err := w.Initialize()
	require.Error(t, err)
}

func TestNoPaths(t *testing.T) {
	w := &Watcher{}
	err := w.Initialize()
	require.EqualError(t, err, "no files to watch")
}

func TestWrite(t *testing.T) {
	fpath, err := test.CreateTempFile([]byte("{}"))
	require.NoError(t, err)
	defer os.Remove(fpath)

	w := &Watcher{FilePaths: []string{fpath}}
	err = w.Initialize()
	require.NoError(t, err)
	defer w.Close()

	overwrite(t, fpath)

	select {
	case <-w.Watch():
	case <-time.After(500 * time.Millisecond):
		t.Errorf("timed out")
		return
	}
}

func TestWriteMultipleTimes(t *testing.T) {
	fpath, err := test.CreateTempFile([]byte("{}"))
	require.NoError(t, err)
	defer os.Remove(fpath)

	w := &Watcher{FilePaths: []string{fpath}}
	err = w.Initialize()
	require.NoError(t, err)
	defer w.Close()

	overwrite(t, fpath)
	time.Sleep(10 * time.Millisecond)
	overwrite(t, fpath)

	select {
	case <-w.Watch():
	case <-time.After(500 * time.Millisecond):
		t.Errorf("timed out")
		return
	}

	select {
	case <-time.After(500 * time.Millisecond):
	case <-w.Watch():
		t.Errorf("should not happen")
		return
	}
}

func TestSecondFile(t *testing.T) {
	confPath, err := test.CreateTempFile([]byte("{}"))
	require.NoError(t, err)
	defer os.Remove(confPath)

	inputPath, err := test.CreateTempFile([]byte{0, 0, 0, 1})
	require.NoError(t, err)
	defer os.Remove(inputPath)

	w := &Watcher{FilePaths: []string{confPath, inputPath}}
	err = w.Initialize()
	require.NoError(t, err)
	defer w.Close()

	overwrite(t, inputPath)

	select {
	case <-w.Watch():
	case <-time.After(500 * time.Millisecond):
		t.Errorf("timed out")
		return
	}
}

func TestUnrelatedFile(t *testing.T) {
	fpath, err := test.CreateTempFile([]byte("{}"))
	require.NoError(t, err)
	defer os.Remove(fpath)

	w := &Watcher{FilePaths: []string{fpath}}
	err = w.Initialize()
	require.NoError(t, err)
	defer w.Close()

	otherPath, err := test.CreateTempFile([]byte("{}"))
	require.NoError(t, err)
	defer os.Remove(otherPath)

	select {
	case <-time.After(500 * time.Millisecond):
	case <-w.Watch():
		t.Errorf("should not happen")
		return
	}
}

func TestDeleteCreate(t *testing.T) {
	fpath, err := test.CreateTempFile([]byte("{}"))
	require.NoError(t, err)
	defer os.Remove(fpath)

	w := &Watcher{FilePaths: []string{fpath}}
	err = w.Initialize()
	require.NoError(t, err)
	defer w.Close()

	os.Remove(fpath)
	time.Sleep(10 * time.Millisecond)
	overwrite(t, fpath)

	select {
	case <-w.Watch():
	case <-time.After(500 * time.Millisecond):
		t.Errorf("timed out")
		return
	}
}

func TestSymlinkDeleteCreate(t *testing.T) {
	fpath, err := test.CreateTempFile([]byte("{}"))
	require.NoError(t, err)
	defer os.Remove(fpath)

	err = os.Symlink(fpath, fpath+"-sym")
	require.NoError(t, err)
	defer os.Remove(fpath + "-sym")

	w := &Watcher{FilePaths: []string{fpath + "-sym"}}
	err = w.Initialize()
	require.NoError(t, err)
	defer w.Close()

	os.Remove(fpath)
	overwrite(t, fpath)

	select {
	case <-w.Watch():
	case <-time.After(500 * time.Millisecond):
		t.Errorf("timed out")
		return
	}
}
