package tools

import "github.com/satriahrh/pesan/domain/entities"

// Tool names the assistant calls
const (
	GetMenu        = "getMenu"
	SearchMenu     = "searchMenu"
	AddToCart      = "addToCart"
	RemoveFromCart = "removeFromCart"
	Checkout       = "checkout"
)

// Definitions returns the declarations sent to the assistant at connect time
func Definitions() []entities.ToolDefinition {
	return []entities.ToolDefinition{
		{
			Name:        GetMenu,
			Description: "Get the list of available categories and products in the menu.",
		},
		{
			Name:        SearchMenu,
			Description: "Search for items in the menu based on a query.",
			Params: []entities.ToolParam{
				{Name: "query", Type: entities.ToolParamString, Description: "The search query (e.g., 'chicken', 'drinks').", Required: true},
			},
		},
		{
			Name:        AddToCart,
			Description: "Add a product to the shopping cart.",
			Params: []entities.ToolParam{
				{Name: "productName", Type: entities.ToolParamString, Description: "The name of the product to add.", Required: true},
				{Name: "quantity", Type: entities.ToolParamNumber, Description: "The quantity to add. Defaults to 1."},
			},
		},
		{
			Name:        RemoveFromCart,
			Description: "Remove a product from the shopping cart.",
			Params: []entities.ToolParam{
				{Name: "productName", Type: entities.ToolParamString, Description: "The name of the product to remove.", Required: true},
				{Name: "quantity", Type: entities.ToolParamNumber, Description: "The quantity to remove. Defaults to 1."},
			},
		},
		{
			Name:        Checkout,
			Description: "Checkout the current order.",
		},
	}
}
