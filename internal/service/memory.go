package service

import (
	"github.com/smartcity/vehicle-counter/pkg/geometry"
)

type trackEntry struct {
	centroid geometry.Point
	lastSeen uint64
}

// PositionMemory stores the last known centroid of every tracked id.
// Entries live for the process lifetime unless MaxIdleFrames is set.
type PositionMemory struct {
	entries map[int64]*trackEntry
	frame   uint64

	// MaxIdleFrames evicts ids not seen for more than this many processed
	// frames. Zero disables eviction.
	MaxIdleFrames uint64
}

// NewPositionMemory creates an empty position memory
func NewPositionMemory(maxIdleFrames uint64) *PositionMemory {
	return &PositionMemory{
		entries:       make(map[int64]*trackEntry),
		MaxIdleFrames: maxIdleFrames,
	}
}

// GetOrInit returns the stored centroid for id. A fresh id is stored with
// current, so its first segment has zero length.
func (m *PositionMemory) GetOrInit(id int64, current geometry.Point) geometry.Point {
	if e, ok := m.entries[id]; ok {
		return e.centroid
	}
	m.entries[id] = &trackEntry{centroid: current, lastSeen: m.frame}
	return current
}

// Update overwrites the stored centroid for id
func (m *PositionMemory) Update(id int64, centroid geometry.Point) {
	e, ok := m.entries[id]
	if !ok {
		e = &trackEntry{}
		m.entries[id] = e
	}
	e.centroid = centroid
	e.lastSeen = m.frame
}

// Get returns the stored centroid and whether id is known
func (m *PositionMemory) Get(id int64) (geometry.Point, bool) {
	e, ok := m.entries[id]
	if !ok {
		return geometry.Point{}, false
	}
	return e.centroid, true
}

// Len returns the number of ids in memory
func (m *PositionMemory) Len() int {
	return len(m.entries)
}

// Tick advances the processed-frame counter used for idle tracking
func (m *PositionMemory) Tick() {
	m.frame++
}

// Evict removes ids idle for more than MaxIdleFrames and returns them
func (m *PositionMemory) Evict() []int64 {
	if m.MaxIdleFrames == 0 {
		return nil
	}

	var evicted []int64
	for id, e := range m.entries {
		if m.frame-e.lastSeen > m.MaxIdleFrames {
			delete(m.entries, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// CountedSet holds the ids that already produced a crossing event
type CountedSet struct {
	ids map[int64]struct{}
}

// NewCountedSet creates an empty set
func NewCountedSet() *CountedSet {
	return &CountedSet{ids: make(map[int64]struct{})}
}

// Add inserts id and reports whether it was newly added
func (s *CountedSet) Add(id int64) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Contains reports whether id has been counted
func (s *CountedSet) Contains(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// Remove drops id; only used by explicit eviction
func (s *CountedSet) Remove(id int64) {
	delete(s.ids, id)
}

// Len returns the number of counted ids
func (s *CountedSet) Len() int {
	return len(s.ids)
}
