// Package watcher notifies changes of the configuration file and of input files.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	minInterval    = 1 * time.Second
	additionalWait = 10 * time.Millisecond
)

type watchedFile struct {
	absolutePath string
	resolvedPath string
}

// Watcher watches a set of files and signals when one of them changes.
type Watcher struct {
	FilePaths []string

	inner *fsnotify.Watcher
	files []*watchedFile

	// in
	terminate chan struct{}

	// out
	signal chan struct{}
	done   chan struct{}
}

// Initialize initializes a Watcher.
func (w *Watcher) Initialize() error {
	if len(w.FilePaths) == 0 {
		return fmt.Errorf("no files to watch")
	}

	parents := make(map[string]struct{})

	for _, fpath := range w.FilePaths {
		if _, err := os.Stat(fpath); err != nil {
			return err
		}

		// use absolute paths to support Darwin
		absolutePath, err := filepath.Abs(fpath)
		if err != nil {
			return err
		}

		resolvedPath, _ := filepath.EvalSymlinks(absolutePath)

		w.files = append(w.files, &watchedFile{
			absolutePath: absolutePath,
			resolvedPath: resolvedPath,
		})
		parents[filepath.Dir(absolutePath)] = struct{}{}
	}

	var err error
	w.inner, err = fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	for parentPath := range parents {
		err = w.inner.Add(parentPath)
		if err != nil {
			w.inner.Close() //nolint:errcheck
			return err
		}
	}

	w.terminate = make(chan struct{})
	w.signal = make(chan struct{})
	w.done = make(chan struct{})

	go w.run()

	return nil
}

// Close closes a Watcher.
func (w *Watcher) Close() {
	close(w.terminate)
	<-w.done
}

// changed checks whether an event affects one of the watched files.
// It must be called for every event, since it updates resolved paths.
func (w *Watcher) changed(event fsnotify.Event) bool {
	eventPath, _ := filepath.Abs(event.Name)
	eventPath, _ = filepath.EvalSymlinks(eventPath)

	ret := false

	for _, f := range w.files {
		currentPath, _ := filepath.EvalSymlinks(f.absolutePath)

		if currentPath == "" {
			// file was removed; wait for write event to trigger reload
			f.resolvedPath = ""
			continue
		}

		if currentPath != f.resolvedPath ||
			(eventPath == currentPath &&
				((event.Op&fsnotify.Write) == fsnotify.Write ||
					(event.Op&fsnotify.Create) == fsnotify.Create)) {
			f.resolvedPath = currentPath
			ret = true
		}
	}

	return ret
}

func (w *Watcher) run() {
	defer close(w.done)

	var lastCalled time.Time

outer:
	for {
		select {
		case event := <-w.inner.Events:
			if !w.changed(event) || time.Since(lastCalled) < minInterval {
				continue
			}

			// wait some additional time to allow the writer to complete its job
			time.Sleep(additionalWait)

			lastCalled = time.Now()

			select {
			case w.signal <- struct{}{}:
			case <-w.terminate:
				break outer
			}

		case <-w.inner.Errors:
			break outer

		case <-w.terminate:
			break outer
		}
	}

	close(w.signal)
	w.inner.Close() //nolint:errcheck
}

// Watch returns a channel that is called after one of the files has changed.
func (w *Watcher) Watch() chan struct{} {
	return w.signal
}
