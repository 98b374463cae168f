package logger

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testTime() time.Time {
	return time.Date(2003, 11, 4, 23, 15, 8, 431232, time.UTC)
}

func TestLoggerToStdout(t *testing.T) {
	var buf bytes.Buffer

	l := &Logger{
		Destinations: []Destination{DestinationStdout},
		timeNow:      testTime,
		stdout:       &buf,
	}
	err := l.Initialize()
	require.NoError(t, err)
	defer l.Close()

	l.Log(Info, "test format %d", 123)

	require.Equal(t, "2003/11/04 23:15:08 INF test format 123\n", buf.String())
}

func TestLoggerToFile(t *testing.T) {
	tempFile, err := os.CreateTemp(os.TempDir(), "fmp4mux-logger-")
	require.NoError(t, err)
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	l := &Logger{
		Level:        Debug,
		Destinations: []Destination{DestinationFile},
		File:         tempFile.Name(),
		timeNow:      testTime,
	}
	err = l.Initialize()
	require.NoError(t, err)
	defer l.Close()

	l.Log(Debug, "first")
	l.Log(Error, "second %s", "entry")

	buf, err := os.ReadFile(tempFile.Name())
	require.NoError(t, err)
	require.Equal(t, "2003/11/04 23:15:08 DEB first\n"+
		"2003/11/04 23:15:08 ERR second entry\n", string(buf))
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer

	l := &Logger{
		Level:        Warn,
		Destinations: []Destination{DestinationStdout},
		timeNow:      testTime,
		stdout:       &buf,
	}
	err := l.Initialize()
	require.NoError(t, err)
	defer l.Close()

	l.Log(Debug, "debug")
	l.Log(Info, "info")
	l.Log(Warn, "warn")

	require.Equal(t, "2003/11/04 23:15:08 WAR warn\n", buf.String())
}

func TestLoggerInvalidFile(t *testing.T) {
	l := &Logger{
		Destinations: []Destination{DestinationStdout, DestinationFile},
		File:         "/nonexistent/dir/fmp4mux.log",
		stdout:       &bytes.Buffer{},
	}
	err := l.Initialize()
	require.Error(t, err)
}
