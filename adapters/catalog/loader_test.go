package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestDefault(t *testing.T) {
	c := Default()
	if len(c.Categories) == 0 {
		t.Fatal("Expected built-in categories")
	}
	p, ok := c.FindProduct("spicy chicken")
	if !ok || p.ID != "1" || p.Price != 8.5 {
		t.Errorf("Expected spicy chicken burger with id 1, got %+v", p)
	}
}

func TestParse_YAML(t *testing.T) {
	data := []byte(`
categories:
  - name: Pizza
    products:
      - id: p-1
        name: Margherita
        price: 11
        description: Tomato and basil
      - id: 2
        name: Pepperoni
        price: 12.5
        description: Spicy salami
`)

	c, err := Parse(data, ".yaml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	products := c.Categories[0].Products
	if products[0].ID != "p-1" || products[1].ID != "2" {
		t.Errorf("Expected ids p-1 and 2, got %s and %s", products[0].ID, products[1].ID)
	}
	if products[1].Price != 12.5 {
		t.Errorf("Expected price 12.5, got %v", products[1].Price)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
	}{
		{"negative price", `{"categories":[{"name":"A","products":[{"id":1,"name":"x","price":-1}]}]}`, ".json"},
		{"duplicate id", `{"categories":[{"name":"A","products":[{"id":1,"name":"x"},{"id":"1","name":"y"}]}]}`, ".json"},
		{"missing name", `{"categories":[{"name":"A","products":[{"id":1}]}]}`, ".json"},
		{"bad json", `{`, ".json"},
		{"unknown format", `<xml/>`, ".xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data), tt.ext); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestFileSource_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "menu.json")
	if err := os.WriteFile(path, []byte(`{"categories":[{"name":"Drinks","products":[{"id":1,"name":"Tea","price":1.5}]}]}`), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := NewFileSource(path, zaptest.NewLogger(t)).Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Categories[0].Products[0].Name != "Tea" {
		t.Errorf("Unexpected catalog: %+v", c)
	}

	if _, err := NewFileSource(filepath.Join(dir, "missing.json"), zaptest.NewLogger(t)).Load(context.Background()); err == nil {
		t.Error("Expected error for missing file")
	}

	builtin, err := NewFileSource("", zaptest.NewLogger(t)).Load(context.Background())
	if err != nil || len(builtin.Categories) == 0 {
		t.Errorf("Expected built-in catalog, got %v", err)
	}
}
