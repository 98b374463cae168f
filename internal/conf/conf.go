// Package conf contains the struct that holds the configuration of the software.
package conf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bluenviron/fmp4mux/internal/conf/env"
	"github.com/bluenviron/fmp4mux/internal/conf/yamlwrapper"
	"github.com/bluenviron/fmp4mux/internal/logger"
)

// environment variables are prefixed with this.
const envPrefix = "FMP4MUX"

func firstThatExists(paths []string) string {
	for _, pa := range paths {
		_, err := os.Stat(pa)
		if err == nil {
			return pa
		}
	}
	return ""
}

// Conf is a configuration.
type Conf struct {
	// General
	LogLevel        LogLevel        `json:"logLevel"`
	LogDestinations LogDestinations `json:"logDestinations"`
	LogFile         string          `json:"logFile"`

	// Output
	OutputDir        string         `json:"outputDir"`
	FragmentDuration StringDuration `json:"fragmentDuration"`
	MaxFragmentSize  StringSize     `json:"maxFragmentSize"`
	MovieExtends     bool           `json:"movieExtends"`
	Playlist         bool           `json:"playlist"`

	// Tracks
	Tracks []Track `json:"tracks"`
}

func (conf *Conf) setDefaults() {
	// General
	conf.LogLevel = LogLevel(logger.Info)
	conf.LogDestinations = LogDestinations{logger.DestinationStdout}
	conf.LogFile = "fmp4mux.log"

	// Output
	conf.OutputDir = "out"
	conf.FragmentDuration = 2 * StringDuration(time.Second)
	conf.MaxFragmentSize = 50 * 1024 * 1024
	conf.Playlist = true
	conf.Tracks = []Track{}
}

// Load loads a Conf.
// When fpath is empty, the first existing path of defaultConfPaths is used.
func Load(fpath string, defaultConfPaths []string) (*Conf, string, error) {
	conf := &Conf{}

	fpath, err := conf.loadFromFile(fpath, defaultConfPaths)
	if err != nil {
		return nil, "", err
	}

	err = env.Load(envPrefix, conf)
	if err != nil {
		return nil, "", err
	}

	err = conf.Validate()
	if err != nil {
		return nil, "", err
	}

	return conf, fpath, nil
}

func (conf *Conf) loadFromFile(fpath string, defaultConfPaths []string) (string, error) {
	conf.setDefaults()

	if fpath == "" {
		fpath = firstThatExists(defaultConfPaths)

		// when the configuration file is not explicitly set,
		// it is optional.
		if fpath == "" {
			return "", nil
		}
	}

	byts, err := os.ReadFile(fpath)
	if err != nil {
		return "", err
	}

	err = yamlwrapper.Unmarshal(byts, conf)
	if err != nil {
		return "", err
	}

	return fpath, nil
}

// Validate checks the configuration for errors.
func (conf *Conf) Validate() error {
	// General

	if len(conf.LogDestinations) == 0 {
		return fmt.Errorf("at least one log destination must be set")
	}

	for _, d := range conf.LogDestinations {
		if d == logger.DestinationFile && conf.LogFile == "" {
			return fmt.Errorf("'logFile' must be set when logging to file")
		}
	}

	// Output

	if conf.OutputDir == "" {
		return fmt.Errorf("'outputDir' must be set")
	}

	if conf.FragmentDuration <= 0 {
		return fmt.Errorf("'fragmentDuration' must be greater than zero")
	}

	if conf.MaxFragmentSize == 0 {
		return fmt.Errorf("'maxFragmentSize' must be greater than zero")
	}

	// Tracks

	if len(conf.Tracks) == 0 {
		return fmt.Errorf("at least one track must be set")
	}

	videoCount := 0

	for i := range conf.Tracks {
		err := conf.Tracks[i].Validate()
		if err != nil {
			return fmt.Errorf("track %d: %w", i, err)
		}

		if conf.Tracks[i].Codec == CodecH264 {
			videoCount++
		}
	}

	if videoCount > 1 {
		return fmt.Errorf("only one video track is supported")
	}

	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (conf *Conf) UnmarshalJSON(b []byte) error {
	conf.setDefaults()

	type alias Conf
	d := json.NewDecoder(bytes.NewReader(b))
	d.DisallowUnknownFields()
	return d.Decode((*alias)(conf))
}
