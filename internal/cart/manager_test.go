package cart

import (
	"testing"

	"github.com/satriahrh/pesan/domain/entities"
)

var (
	spicyBurger = entities.Product{ID: "1", Name: "Spicy Chicken Burger", Price: 8.5}
	classic     = entities.Product{ID: "2", Name: "Classic Beef Burger", Price: 9}
	cola        = entities.Product{ID: "3", Name: "Cola", Price: 2.25}
)

func TestManager_AddItemAccumulates(t *testing.T) {
	m := NewManager()

	m.AddItem(spicyBurger, 1)
	m.AddItem(spicyBurger, 2)
	m.AddItem(spicyBurger, 4)

	items := m.Items()
	if len(items) != 1 {
		t.Fatalf("Expected 1 line item, got %d", len(items))
	}
	if items[0].Quantity != 7 {
		t.Errorf("Expected quantity 7, got %d", items[0].Quantity)
	}
}

func TestManager_InsertionOrder(t *testing.T) {
	m := NewManager()
	m.AddItem(cola, 1)
	m.AddItem(spicyBurger, 1)
	m.AddItem(cola, 1)

	items := m.Items()
	if len(items) != 2 {
		t.Fatalf("Expected 2 line items, got %d", len(items))
	}
	if items[0].ID != cola.ID || items[1].ID != spicyBurger.ID {
		t.Errorf("Expected order [cola, burger], got [%s, %s]", items[0].Name, items[1].Name)
	}
}

func TestManager_RemoveItem(t *testing.T) {
	t.Run("decrements when quantity is larger", func(t *testing.T) {
		m := NewManager()
		m.AddItem(spicyBurger, 3)

		if !m.RemoveItem("chicken", 2) {
			t.Fatal("Expected a match")
		}
		if got := m.Items()[0].Quantity; got != 1 {
			t.Errorf("Expected quantity 1, got %d", got)
		}
	})

	t.Run("removes the line when quantity is equal", func(t *testing.T) {
		m := NewManager()
		m.AddItem(spicyBurger, 2)

		if !m.RemoveItem("CHICKEN", 2) {
			t.Fatal("Expected a match")
		}
		if m.Len() != 0 {
			t.Errorf("Expected empty cart, got %d lines", m.Len())
		}
	})

	t.Run("removes the line when quantity is larger than the cart", func(t *testing.T) {
		m := NewManager()
		m.AddItem(spicyBurger, 1)
		m.RemoveItem("burger", 5)
		if m.Len() != 0 {
			t.Errorf("Expected empty cart, got %d lines", m.Len())
		}
	})

	t.Run("empty cart reports not found", func(t *testing.T) {
		m := NewManager()
		if m.RemoveItem("anything", 1) {
			t.Error("Expected no match on empty cart")
		}
	})

	t.Run("first match wins", func(t *testing.T) {
		m := NewManager()
		m.AddItem(spicyBurger, 1)
		m.AddItem(classic, 1)

		m.RemoveItem("burger", 1)

		items := m.Items()
		if len(items) != 1 || items[0].ID != classic.ID {
			t.Errorf("Expected only the classic burger to remain, got %+v", items)
		}
	})

	t.Run("miss does not notify", func(t *testing.T) {
		m := NewManager()
		m.AddItem(cola, 1)
		calls := 0
		m.Subscribe(func([]entities.CartLineItem, float64) { calls++ })

		m.RemoveItem("pizza", 1)
		if calls != 1 {
			t.Errorf("Expected only the subscribe callback, got %d calls", calls)
		}
	})
}

func TestManager_Total(t *testing.T) {
	m := NewManager()
	if m.Total() != 0 {
		t.Errorf("Expected total 0, got %v", m.Total())
	}

	m.AddItem(spicyBurger, 2)
	m.AddItem(cola, 2)
	if m.Total() != 21.5 {
		t.Errorf("Expected total 21.5, got %v", m.Total())
	}

	m.RemoveItem("cola", 2)
	if m.Total() != 17 {
		t.Errorf("Expected total 17, got %v", m.Total())
	}

	m.Clear()
	if m.Total() != 0 {
		t.Errorf("Expected total 0 after clear, got %v", m.Total())
	}
}

func TestManager_ChickenBurgerScenario(t *testing.T) {
	m := NewManager()

	m.AddItem(spicyBurger, 2)
	if items := m.Items(); len(items) != 1 || items[0].Quantity != 2 || m.Total() != 17.0 {
		t.Fatalf("Expected one line of 2 totalling 17, got %+v total %v", items, m.Total())
	}

	m.RemoveItem("chicken", 1)
	if items := m.Items(); len(items) != 1 || items[0].Quantity != 1 || m.Total() != 8.5 {
		t.Fatalf("Expected one line of 1 totalling 8.5, got %+v total %v", items, m.Total())
	}

	m.RemoveItem("chicken", 1)
	if m.Len() != 0 || m.Total() != 0 {
		t.Fatalf("Expected empty cart, got %+v total %v", m.Items(), m.Total())
	}
}

func TestManager_Subscribe(t *testing.T) {
	m := NewManager()
	m.AddItem(cola, 2)

	var gotItems []entities.CartLineItem
	var gotTotal float64
	calls := 0
	unsubscribe := m.Subscribe(func(items []entities.CartLineItem, total float64) {
		calls++
		gotItems = items
		gotTotal = total
	})

	if calls != 1 {
		t.Fatalf("Expected immediate callback, got %d calls", calls)
	}
	if len(gotItems) != 1 || gotTotal != 4.5 {
		t.Errorf("Expected current state on subscribe, got %+v total %v", gotItems, gotTotal)
	}

	m.AddItem(spicyBurger, 1)
	if calls != 2 || len(gotItems) != 2 || gotTotal != 13 {
		t.Errorf("Expected full state after add, got %d calls %+v total %v", calls, gotItems, gotTotal)
	}

	m.Clear()
	if calls != 3 || len(gotItems) != 0 || gotTotal != 0 {
		t.Errorf("Expected empty state after clear, got %d calls %+v total %v", calls, gotItems, gotTotal)
	}

	unsubscribe()
	m.AddItem(cola, 1)
	if calls != 3 {
		t.Errorf("Expected no callback after unsubscribe, got %d calls", calls)
	}
}

func TestManager_ObserversInRegistrationOrder(t *testing.T) {
	m := NewManager()
	var order []string
	m.Subscribe(func([]entities.CartLineItem, float64) { order = append(order, "a") })
	m.Subscribe(func([]entities.CartLineItem, float64) { order = append(order, "b") })
	order = nil

	m.AddItem(cola, 1)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("Expected [a b], got %v", order)
	}
}

func TestManager_ObserverGetsCopy(t *testing.T) {
	m := NewManager()
	m.AddItem(cola, 1)
	m.Subscribe(func(items []entities.CartLineItem, _ float64) {
		if len(items) > 0 {
			items[0].Quantity = 99
		}
	})

	if got := m.Items()[0].Quantity; got != 1 {
		t.Errorf("Expected observer mutation to be isolated, got quantity %d", got)
	}
}
