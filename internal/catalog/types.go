package catalog

// Product is the catalog document consulted when resolving order line items.
// Price and Name are the authoritative values; client-supplied ones are ignored.
type Product struct {
	ProductID string  `dynamodbav:"product_id" json:"product_id"` // PK
	Name      string  `dynamodbav:"name" json:"name"`
	Price     float64 `dynamodbav:"price" json:"price"`
	Image     string  `dynamodbav:"image,omitempty" json:"image,omitempty"`
	Active    bool    `dynamodbav:"active" json:"active"`
}
