// Package cart holds the authoritative order line items of a session.
//
// A Manager is not safe for concurrent use. All mutation is expected to happen
// on the session's event loop.
package cart

import (
	"strings"

	"github.com/satriahrh/pesan/domain/entities"
)

// Observer receives the complete cart after every mutation
type Observer func(items []entities.CartLineItem, total float64)

type subscription struct {
	id       int
	observer Observer
}

// Manager owns the cart line items
type Manager struct {
	items     []entities.CartLineItem
	observers []subscription
	nextID    int
}

// NewManager creates an empty cart
func NewManager() *Manager {
	return &Manager{}
}

// AddItem increments the line for product.ID by quantity, or appends a new line.
// Callers default quantity to 1.
func (m *Manager) AddItem(product entities.Product, quantity int) {
	found := false
	for i := range m.items {
		if m.items[i].ID == product.ID {
			m.items[i].Quantity += quantity
			found = true
			break
		}
	}
	if !found {
		m.items = append(m.items, entities.CartLineItem{Product: product, Quantity: quantity})
	}
	m.notify()
}

// RemoveItem removes quantity from the first line whose name contains query,
// ignoring case. The line is dropped when quantity is not less than what is in
// the cart. It reports whether a line matched.
func (m *Manager) RemoveItem(query string, quantity int) bool {
	q := strings.ToLower(query)
	for i := range m.items {
		if !strings.Contains(strings.ToLower(m.items[i].Name), q) {
			continue
		}
		if quantity < m.items[i].Quantity {
			m.items[i].Quantity -= quantity
		} else {
			m.items = append(m.items[:i], m.items[i+1:]...)
		}
		m.notify()
		return true
	}
	return false
}

// Clear empties the cart
func (m *Manager) Clear() {
	m.items = nil
	m.notify()
}

// Total sums price times quantity over the current lines
func (m *Manager) Total() float64 {
	return entities.CartTotal(m.items)
}

// Items returns a copy of the current lines in insertion order
func (m *Manager) Items() []entities.CartLineItem {
	items := make([]entities.CartLineItem, len(m.items))
	copy(items, m.items)
	return items
}

// Len returns the number of lines
func (m *Manager) Len() int {
	return len(m.items)
}

// Subscribe registers observer and calls it right away with the current cart.
// The returned func removes the observer.
func (m *Manager) Subscribe(observer Observer) (unsubscribe func()) {
	m.nextID++
	id := m.nextID
	m.observers = append(m.observers, subscription{id: id, observer: observer})
	observer(m.Items(), m.Total())

	return func() {
		for i, s := range m.observers {
			if s.id == id {
				m.observers = append(m.observers[:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) notify() {
	total := m.Total()
	for _, s := range m.observers {
		s.observer(m.Items(), total)
	}
}
