package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/satriahrh/pesan/domain/entities"
)

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"abcd", "****"},
		{"AIzaSecret1234", "**********1234"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := maskKey(tt.key); got != tt.want {
			t.Errorf("maskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestFormatOrders(t *testing.T) {
	if got := formatOrders(nil); got != "No orders yet\n" {
		t.Errorf("Expected the empty message, got %q", got)
	}

	order := &entities.Order{
		ID:        "order-1",
		Status:    entities.OrderStatusConfirmed,
		Total:     17,
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC),
		Items: []entities.CartLineItem{
			{Product: entities.Product{ID: "1", Name: "Spicy Chicken Burger", Price: 8.5}, Quantity: 2},
		},
	}
	got := formatOrders([]*entities.Order{order})
	for _, want := range []string{"2025-01-02 03:04", "order-1", "confirmed", "$17", "Spicy Chicken Burger"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in %q", want, got)
		}
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	for _, name := range []string{"serve", "talk", "chat", "menu", "key", "orders"} {
		if cmd, _, err := rootCmd.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("Expected subcommand %s, got %v (%v)", name, cmd, err)
		}
	}
}

func TestMenuCommandSearch(t *testing.T) {
	var out strings.Builder
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"menu", "lemonade"})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("menu failed: %v", err)
	}
	if !strings.Contains(out.String(), "Lemonade") {
		t.Errorf("Expected Lemonade in output, got %q", out.String())
	}
	if strings.Contains(out.String(), "Burger") {
		t.Errorf("Expected only matching products, got %q", out.String())
	}
}
