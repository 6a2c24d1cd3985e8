package collections

// OrderedMap is a string-keyed map that remembers insertion order.
//
// Map iteration order in Go is randomized, so anything that needs a stable
// presentation order for runtime-discovered keys has to track that order
// separately. Set on an existing key replaces the value in place and never
// moves the key.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrderedMap creates an empty OrderedMap.
func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{
		keys:   []string{},
		values: map[string]V{},
	}
}

// Set stores value under key, appending key to the order on first insert.
func (m *OrderedMap[V]) Set(key string, value V) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it exists.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key exists.
func (m *OrderedMap[V]) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order. The returned slice is a copy.
func (m *OrderedMap[V]) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// ToMap returns a plain map copy of the entries, dropping order.
func (m *OrderedMap[V]) ToMap() map[string]V {
	out := make(map[string]V, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Each calls fn for every entry in insertion order.
func (m *OrderedMap[V]) Each(fn func(key string, value V)) {
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}
