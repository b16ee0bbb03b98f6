package device

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/satriahrh/pesan/domain/entities"
)

// Terminal renders session state as plain text lines
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminal writes to w
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

func (t *Terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, format, args...)
}

// ShowStatus implements repositories.Presenter
func (t *Terminal) ShowStatus(text string) {
	t.printf("[status] %s\n", text)
}

// AppendTranscript implements repositories.Presenter
func (t *Terminal) AppendTranscript(entry entities.TranscriptEntry) {
	t.printf("%s: %s\n", entry.Role, entry.Text)
}

// ClearTranscript implements repositories.Presenter
func (t *Terminal) ClearTranscript() {
	t.printf("----\n")
}

// ShowCart implements repositories.Presenter
func (t *Terminal) ShowCart(items []entities.CartLineItem, total float64) {
	var b strings.Builder
	b.WriteString("[cart]")
	if len(items) == 0 {
		b.WriteString(" empty\n")
	} else {
		b.WriteString("\n")
		for _, item := range items {
			fmt.Fprintf(&b, "  %dx %s  $%s\n", item.Quantity, item.Name, entities.FormatPrice(item.Subtotal()))
		}
		fmt.Fprintf(&b, "  total $%s\n", entities.FormatPrice(total))
	}
	t.printf("%s", b.String())
}

// ShowMenu implements repositories.Presenter
func (t *Terminal) ShowMenu(categories []entities.Category) {
	t.printf("%s", FormatMenu(categories))
}

// FormatMenu renders categories as an indented list
func FormatMenu(categories []entities.Category) string {
	var b strings.Builder
	for _, category := range categories {
		fmt.Fprintf(&b, "%s\n", category.Name)
		for _, p := range category.Products {
			fmt.Fprintf(&b, "  %-28s $%s\n", p.Name, entities.FormatPrice(p.Price))
			if p.Description != "" {
				fmt.Fprintf(&b, "      %s\n", p.Description)
			}
		}
	}
	return b.String()
}
