// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package discovery watches a ModuleLoader's load paths for library
// creation and deletion and notifies a user-registered callback (it does
// not re-run validation itself), the directory-watcher collaborator named
// alongside the plug-in ABI.
package discovery

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// EventKind distinguishes the three things a watched directory can report.
type EventKind int

const (
	// FileCreated fires when a new library file appears.
	FileCreated EventKind = iota
	// FileDeleted fires when a library file is removed.
	FileDeleted
	// DirDeleted fires when a watched directory itself disappears.
	DirDeleted
)

func (k EventKind) String() string {
	switch k {
	case FileCreated:
		return "file_created"
	case FileDeleted:
		return "file_deleted"
	case DirDeleted:
		return "dir_deleted"
	default:
		return "unknown"
	}
}

// Event is delivered to a Watcher's callback for every relevant filesystem
// change.
type Event struct {
	Dir      string
	Filename string
	Kind     EventKind
}

// Callback receives discovery events; it must not block for long, since it
// runs on the watcher's single dispatch goroutine.
type Callback func(Event)

// Watcher wraps fsnotify to watch one or more directories for library
// file churn.
type Watcher struct {
	fw  *fsnotify.Watcher
	log *zap.Logger

	mu     sync.Mutex
	dirs   map[string]bool
	cb     Callback
	done   chan struct{}
	closed bool
}

// New returns a Watcher already watching every directory in dirs. Missing
// directories are skipped rather than failing the whole call, since a
// user path that doesn't exist yet is a normal, non-fatal configuration.
func New(log *zap.Logger, dirs ...string) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fw: fw, log: log, dirs: make(map[string]bool), done: make(chan struct{})}
	for _, d := range dirs {
		if err := fw.Add(d); err != nil {
			log.Warn("discovery: not watching directory", zap.String("dir", d), zap.Error(err))
			continue
		}
		w.dirs[d] = true
	}
	return w, nil
}

// Start begins dispatching events to cb on a new goroutine; call Close to
// stop. Start may only be called once.
func (w *Watcher) Start(cb Callback) {
	w.mu.Lock()
	w.cb = cb
	w.mu.Unlock()

	go w.run()
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.dispatch(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("discovery: watch error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) dispatch(ev fsnotify.Event) {
	dir := filepath.Dir(ev.Name)
	name := filepath.Base(ev.Name)

	var kind EventKind
	switch {
	case ev.Op&fsnotify.Create != 0:
		kind = FileCreated
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		if w.dirs[ev.Name] {
			kind = DirDeleted
		} else {
			kind = FileDeleted
		}
	default:
		return
	}

	w.mu.Lock()
	cb := w.cb
	w.mu.Unlock()
	if cb != nil {
		cb(Event{Dir: dir, Filename: name, Kind: kind})
	}
}

// Close stops dispatching and releases the underlying fsnotify watcher.
// Idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	close(w.done)
	return w.fw.Close()
}
