package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/grove/pkg/kernel"
)

// ErrNotFound is returned when an index does not name a live repository entry.
var ErrNotFound = errors.New("scene: object not found")

// Repository is the host-owned object store that object-producing modules
// read base geometry from. Modules Retain the index they reference and
// Release it when they stop referencing it, including when they are removed
// from the graph.
type Repository interface {
	Lookup(index int32) (*Geometry, error)
	Retain(index int32)
	Release(index int32)
}

// Compile-time interface check.
var _ Repository = (*Store)(nil)

type storeEntry struct {
	name  string
	geom  *Geometry
	users int
}

// Store is an arena-indexed Repository. Indices are never reused, so a
// removed index stays invalid.
type Store struct {
	mu        sync.RWMutex
	entries   []*storeEntry
	onRelease func(index int32)
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add stores solid under name and returns its index.
func (s *Store) Add(name string, solid kernel.Solid) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &storeEntry{name: name, geom: NewGeometry(solid)})
	return int32(len(s.entries) - 1)
}

func (s *Store) entry(index int32) *storeEntry {
	if index < 0 || int(index) >= len(s.entries) {
		return nil
	}
	return s.entries[index]
}

// Lookup returns the geometry stored at index.
func (s *Store) Lookup(index int32) (*Geometry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entry(index)
	if e == nil {
		return nil, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	return e.geom, nil
}

// Name returns the name the entry at index was added under.
func (s *Store) Name(index int32) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e := s.entry(index)
	if e == nil {
		return "", fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	return e.name, nil
}

// Retain records a module referencing index. Unknown indices are ignored.
func (s *Store) Retain(index int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.entry(index); e != nil {
		e.users++
	}
}

// Release drops a module reference to index. When the last reference goes
// away the OnRelease hook, if any, is called outside the lock.
func (s *Store) Release(index int32) {
	s.mu.Lock()
	e := s.entry(index)
	if e == nil || e.users == 0 {
		s.mu.Unlock()
		return
	}
	e.users--
	fire := e.users == 0 && s.onRelease != nil
	hook := s.onRelease
	s.mu.Unlock()

	if fire {
		hook(index)
	}
}

// Users returns the number of module references to index.
func (s *Store) Users(index int32) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e := s.entry(index); e != nil {
		return e.users
	}
	return 0
}

// Remove deletes the entry at index.
func (s *Store) Remove(index int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry(index) == nil {
		return fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	s.entries[index] = nil
	return nil
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if e != nil {
			n++
		}
	}
	return n
}

// OnRelease installs fn to be called when an entry's last module reference
// is released. The host typically removes generated geometry there.
func (s *Store) OnRelease(fn func(index int32)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRelease = fn
}
