package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ProductID identifies a product. Catalog files carry it either as a number or a string.
type ProductID string

// UnmarshalJSON accepts both `1` and `"1"`
func (id *ProductID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ProductID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id must be a number or string: %w", err)
	}
	*id = ProductID(n.String())
	return nil
}

// Image points at a product picture
type Image struct {
	URL string `json:"url" yaml:"url" bson:"url"`
}

// Product represents a menu item
type Product struct {
	ID          ProductID `json:"id" yaml:"id" bson:"id"`
	Name        string    `json:"name" yaml:"name" bson:"name"`
	Price       float64   `json:"price" yaml:"price" bson:"price"`
	Description string    `json:"description" yaml:"description" bson:"description"`
	Image       *Image    `json:"image,omitempty" yaml:"image,omitempty" bson:"image,omitempty"`
}

// Category groups products on the menu
type Category struct {
	Name     string    `json:"name" yaml:"name"`
	Products []Product `json:"products" yaml:"products"`
}

// Catalog is the read-only menu for a session
type Catalog struct {
	Categories []Category `json:"categories" yaml:"categories"`
}

// MenuProduct is the projection of a product returned to the assistant
type MenuProduct struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
}

// MenuCategory is a category projected for the assistant
type MenuCategory struct {
	Category string        `json:"category"`
	Products []MenuProduct `json:"products"`
}

// Validate checks the catalog invariants
func (c *Catalog) Validate() error {
	if c == nil {
		return errors.New("catalog cannot be nil")
	}

	seen := make(map[ProductID]bool)
	for _, category := range c.Categories {
		if category.Name == "" {
			return errors.New("category name is required")
		}
		for _, p := range category.Products {
			if p.ID == "" {
				return fmt.Errorf("product %q in category %q has no id", p.Name, category.Name)
			}
			if p.Name == "" {
				return fmt.Errorf("product %s has no name", p.ID)
			}
			if p.Price < 0 {
				return fmt.Errorf("product %s has negative price", p.ID)
			}
			if seen[p.ID] {
				return fmt.Errorf("duplicate product id %s", p.ID)
			}
			seen[p.ID] = true
		}
	}
	return nil
}

// FindProduct returns the first product whose name contains query, ignoring case
func (c *Catalog) FindProduct(query string) (Product, bool) {
	q := strings.ToLower(query)
	for _, category := range c.Categories {
		for _, p := range category.Products {
			if strings.Contains(strings.ToLower(p.Name), q) {
				return p, true
			}
		}
	}
	return Product{}, false
}

// Search returns the categories holding at least one product whose name or
// description contains query, each trimmed to the matching products.
func (c *Catalog) Search(query string) []Category {
	q := strings.ToLower(query)
	var results []Category
	for _, category := range c.Categories {
		var matches []Product
		for _, p := range category.Products {
			if strings.Contains(strings.ToLower(p.Name), q) ||
				strings.Contains(strings.ToLower(p.Description), q) {
				matches = append(matches, p)
			}
		}
		if len(matches) > 0 {
			results = append(results, Category{Name: category.Name, Products: matches})
		}
	}
	return results
}

// Menu projects the catalog to name, price and description per product
func (c *Catalog) Menu() []MenuCategory {
	menu := make([]MenuCategory, 0, len(c.Categories))
	for _, category := range c.Categories {
		products := make([]MenuProduct, 0, len(category.Products))
		for _, p := range category.Products {
			products = append(products, MenuProduct{
				Name:        p.Name,
				Price:       p.Price,
				Description: p.Description,
			})
		}
		menu = append(menu, MenuCategory{Category: category.Name, Products: products})
	}
	return menu
}

// FormatPrice renders a price the shortest way that round-trips, e.g. 17 or 8.5
func FormatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
