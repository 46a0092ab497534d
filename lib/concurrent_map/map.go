package concurrent_map

import "sync"

type Map[K, V any] struct {
	cMap sync.Map
}

func NewMap[K, V any]() Map[K, V] {
	return Map[K, V]{}
}

func (m *Map[K, V]) Get(k K) (*V, bool) {
	v, exists := m.cMap.Load(k)
	if !exists {
		return nil, false
	}

	val := v.(V)
	return &val, true
}

func (m *Map[K, V]) Set(k K, v V) {

	m.cMap.Store(k, v)
}

func (m *Map[K, V]) Delete(k K) {
	m.cMap.Delete(k)
}

// LoadOrStore atomically returns the existing value for k if present,
// otherwise stores and returns v. The second return value is true if a value
// was already present (and is returned in place of v), false if v was just
// stored. Used where a
// caller needs to coalesce concurrent first-writers instead of racing a
// separate Get+Set.
func (m *Map[K, V]) LoadOrStore(k K, v V) (*V, bool) {
	actual, loaded := m.cMap.LoadOrStore(k, v)
	val := actual.(V)
	return &val, loaded
}

func (m *Map[K, V]) Range(f func(k any, v any) bool) {
	m.cMap.Range(f)
}
