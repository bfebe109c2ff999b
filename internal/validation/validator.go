package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// register struct-level validation for CreateOrderRequest to reject the same
	// product appearing on more than one line (clients should adjust quantity).
	v.RegisterStructValidation(createOrderStructValidation, CreateOrderRequest{})

	return v
}

func createOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(CreateOrderRequest)

	seen := make(map[string]bool, len(req.Items))
	for _, it := range req.Items {
		if seen[it.ProductID] {
			sl.ReportError(req.Items, "items", "Items", "unique_products", it.ProductID)
			return
		}
		seen[it.ProductID] = true
	}
}
