package entities

// CartLineItem is one product plus its quantity in the cart
type CartLineItem struct {
	Product  `bson:",inline"`
	Quantity int `json:"quantity" bson:"quantity"`
}

// Subtotal returns price times quantity
func (li CartLineItem) Subtotal() float64 {
	return li.Price * float64(li.Quantity)
}

// CartTotal folds price times quantity over items
func CartTotal(items []CartLineItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}
