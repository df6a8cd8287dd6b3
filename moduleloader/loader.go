// Copyright 2026 The Vision Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package moduleloader discovers, validates, loads and destroys vision
// modules backed by Go plugins, maintaining the set of available (scanned
// and validated) modules and the handle table of currently loaded ones.
//
// Validation follows the teacher's own concurrent driver bring-up in
// periph.go's Init()/loadStage: every candidate goes through the same
// construct-initialise-destroy round trip independently, and a failure in
// one candidate never affects another.
package moduleloader

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vision.io/x/vision/module"
)

// SymbolConstructor and SymbolDestructor name the two exported symbols every module
// plug-in must provide, the Go analogue of the spec's create/destroy
// extern C symbols.
const (
	SymbolConstructor = "New"
	SymbolDestructor  = "Destroy"
)

// ConstructorFunc is the signature the exported "New" symbol must have.
type ConstructorFunc func(*module.Environment) (module.Module, error)

// DestructorFunc is the signature the exported "Destroy" symbol must have,
// if present; a candidate without one falls back to calling the module's
// own Stop().
type DestructorFunc func(module.Module)

// Candidate describes one scanned library after its validation round
// trip. Only candidates with a nil Err belong to the "available" set.
type Candidate struct {
	Path       string
	FromSystem bool
	Name       string
	Parameters []*module.Parameter
	Err        error
}

type handle struct {
	plug      *plugin.Plugin
	ctor      ConstructorFunc
	dtor      DestructorFunc
	mod       module.Module
	wrapper   *module.Wrapper
	destroyed bool
}

// Loader holds the system and user load paths, the scanned candidate set,
// and the table of currently loaded modules.
type Loader struct {
	mu sync.Mutex

	systemPath string
	userPath   string
	env        module.Environment

	candidates map[string]*Candidate // keyed by absolute path
	loaded     map[module.ID]*handle
	nextID     module.ID

	log *zap.Logger
}

// New returns a Loader scanning systemPath and userPath, with env used as
// the template handed to every module's constructor and Init.
func New(systemPath, userPath string, env module.Environment, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		systemPath: systemPath,
		userPath:   userPath,
		env:        env,
		candidates: make(map[string]*Candidate),
		loaded:     make(map[module.ID]*handle),
		nextID:     module.PublicRangeStart,
		log:        log,
	}
}

// Discover scans both load paths for *.so candidates not yet seen and
// validates each concurrently, the way periph.go's loadStage validates an
// entire dependency stage's drivers in parallel. A candidate that fails to
// validate is still recorded, with its Err set, so Candidates() can report
// why it was rejected.
func (l *Loader) Discover() error {
	var found []string
	for _, dir := range []string{l.systemPath, l.userPath} {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("moduleloader: reading %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".so" {
				continue
			}
			found = append(found, filepath.Join(dir, e.Name()))
		}
	}

	l.mu.Lock()
	var toValidate []string
	for _, path := range found {
		if _, ok := l.candidates[path]; !ok {
			toValidate = append(toValidate, path)
		}
	}
	l.mu.Unlock()

	var g errgroup.Group
	results := make([]*Candidate, len(toValidate))
	for i, path := range toValidate {
		i, path := i, path
		g.Go(func() error {
			results[i] = l.validate(path)
			return nil
		})
	}
	_ = g.Wait()

	l.mu.Lock()
	for _, c := range results {
		l.candidates[c.Path] = c
	}
	l.mu.Unlock()
	return nil
}

func (l *Loader) validate(path string) *Candidate {
	c := &Candidate{
		Path:       path,
		FromSystem: filepath.Dir(path) == l.systemPath,
		Name:       candidateName(path),
	}

	plug, ctor, dtor, err := openSymbols(path)
	if err != nil {
		c.Err = err
		return c
	}

	envCopy := l.env
	mod, err := ctor(&envCopy)
	if err != nil {
		c.Err = fmt.Errorf("%w: %v", ErrConstructionFailed, err)
		return c
	}
	if err := mod.Init(&envCopy); err != nil {
		c.Err = fmt.Errorf("%w: %v", ErrInitialisationFailed, err)
		destroy(mod, dtor)
		return c
	}
	c.Parameters = mod.Parameters()
	destroy(mod, dtor)
	_ = plug // the *plugin.Plugin itself is cached by the runtime keyed on
	// path, so there is nothing further to release here; see DESIGN.md for
	// why Go's plugin package has no unload primitive to invoke.
	return c
}

func openSymbols(path string) (*plugin.Plugin, ConstructorFunc, DestructorFunc, error) {
	plug, err := plugin.Open(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	sym, err := plug.Lookup(SymbolConstructor)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: missing %s: %v", ErrSymbolLookupFailed, SymbolConstructor, err)
	}
	ctor, ok := sym.(func(*module.Environment) (module.Module, error))
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: %s has the wrong signature", ErrSymbolLookupFailed, SymbolConstructor)
	}

	var dtor DestructorFunc
	if dsym, err := plug.Lookup(SymbolDestructor); err == nil {
		if d, ok := dsym.(func(module.Module)); ok {
			dtor = d
		}
	}
	return plug, ConstructorFunc(ctor), dtor, nil
}

func destroy(mod module.Module, dtor DestructorFunc) {
	if dtor != nil {
		dtor(mod)
		return
	}
	_ = mod.Stop()
}

func candidateName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// Candidates returns every scanned candidate, valid or not.
func (l *Loader) Candidates() []*Candidate {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Candidate, 0, len(l.candidates))
	for _, c := range l.candidates {
		out = append(out, c)
	}
	return out
}

// Available returns the names of candidates that passed validation,
// preferring a user-path candidate over a same-named system-path one.
func (l *Loader) Available() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[string]bool)
	var names []string
	for _, c := range l.candidates {
		if c.Err != nil || c.FromSystem {
			continue
		}
		if !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	}
	for _, c := range l.candidates {
		if c.Err != nil || !c.FromSystem {
			continue
		}
		if !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	}
	return names
}

// LoadModuleFromLibrary resolves name against the user path first, then
// the system path, constructs a fresh module instance, initialises it,
// wraps it, and assigns it a new id.
func (l *Loader) LoadModuleFromLibrary(name string) (module.ID, *module.Wrapper, error) {
	l.mu.Lock()
	var chosen *Candidate
	for _, c := range l.candidates {
		if c.Err == nil && c.Name == name && !c.FromSystem {
			chosen = c
			break
		}
	}
	if chosen == nil {
		for _, c := range l.candidates {
			if c.Err == nil && c.Name == name && c.FromSystem {
				chosen = c
				break
			}
		}
	}
	l.mu.Unlock()

	if chosen == nil {
		return module.InvalidID, nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	plug, ctor, dtor, err := openSymbols(chosen.Path)
	if err != nil {
		return module.InvalidID, nil, err
	}
	envCopy := l.env
	mod, err := ctor(&envCopy)
	if err != nil {
		return module.InvalidID, nil, fmt.Errorf("%w: %v", ErrConstructionFailed, err)
	}
	if err := mod.Init(&envCopy); err != nil {
		destroy(mod, dtor)
		return module.InvalidID, nil, fmt.Errorf("%w: %v", ErrInitialisationFailed, err)
	}

	l.mu.Lock()
	id := l.nextID
	l.nextID++
	w := module.NewWrapper(id, chosen.Path, mod)
	w.MarkInitialised()
	l.loaded[id] = &handle{plug: plug, ctor: ctor, dtor: dtor, mod: mod, wrapper: w}
	l.mu.Unlock()

	l.log.Info("module loaded", zap.String("name", name), zap.Int16("id", int16(id)))
	return id, w, nil
}

// DestroyModule stops the module registered under id and releases its
// wrapper's bookkeeping. Go's plugin package has no unload primitive, so
// the library's memory mapping outlives this call for the process
// lifetime; what this guarantees is that Stop() runs exactly once per
// loaded instance, matching the spec's open-once/close-once invariant at
// the module level even though the dynamic-linker handle itself is never
// released.
//
// The handle stays in the table with destroyed set rather than being
// deleted, so a second DestroyModule(id) can be told apart from an id that
// was never loaded at all (ErrAlreadyDestroyed vs. ErrNotLoaded) — Reap
// removes destroyed handles once a caller is done distinguishing the two.
func (l *Loader) DestroyModule(id module.ID) error {
	l.mu.Lock()
	h, ok := l.loaded[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNotLoaded, id)
	}
	if h.destroyed {
		l.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrAlreadyDestroyed, id)
	}
	h.destroyed = true
	l.mu.Unlock()

	destroy(h.mod, h.dtor)
	l.log.Info("module destroyed", zap.Int16("id", int16(id)))
	return nil
}

// Reap permanently removes the handle for id once it has been destroyed.
// It is a no-op if id is unknown or not yet destroyed. Callers (the
// scheduler's ModuleRemove) call this right after a successful
// DestroyModule so the id can eventually be reused in the loaded table
// without growing it forever, while still letting a racing second
// DestroyModule(id) observe ErrAlreadyDestroyed first.
func (l *Loader) Reap(id module.ID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.loaded[id]; ok && h.destroyed {
		delete(l.loaded, id)
	}
}

// Loaded reports how many modules are currently loaded, excluding any
// destroyed handles kept around only so a second DestroyModule call can
// still observe ErrAlreadyDestroyed.
func (l *Loader) Loaded() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, h := range l.loaded {
		if !h.destroyed {
			n++
		}
	}
	return n
}
