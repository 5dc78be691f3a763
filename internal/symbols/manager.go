// Package symbols provides a generic label table used while resolving
// references between compiled data chunks.
package symbols

import (
	"fmt"

	"github.com/retroenv/retrogolib/set"
)

// Manager maps labels to items and tracks which labels were referenced.
// T is the type of the symbol information, for example a resolved location.
type Manager[T any] struct {
	items map[string]T
	order []string
	used  set.Set[string]
}

// New creates a new symbol manager.
func New[T any]() *Manager[T] {
	return &Manager[T]{
		items: make(map[string]T),
		used:  set.New[string](),
	}
}

// Add adds a new label. Adding a label twice returns an error.
func (m *Manager[T]) Add(label string, item T) error {
	if _, ok := m.items[label]; ok {
		return fmt.Errorf("duplicate label '%s'", label)
	}
	m.items[label] = item
	m.order = append(m.order, label)
	return nil
}

// Get returns the item of the given label.
func (m *Manager[T]) Get(label string) (T, bool) {
	item, ok := m.items[label]
	return item, ok
}

// Len returns the number of labels in the manager.
func (m *Manager[T]) Len() int {
	return len(m.items)
}

// MarkUsed marks a label as referenced.
func (m *Manager[T]) MarkUsed(label string) {
	m.used.Add(label)
}

// Unused returns the labels that were never marked as referenced,
// in insertion order.
func (m *Manager[T]) Unused() []string {
	var unused []string
	for _, label := range m.order {
		if !m.used.Contains(label) {
			unused = append(unused, label)
		}
	}
	return unused
}
