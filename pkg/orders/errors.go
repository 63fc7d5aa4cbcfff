package orders

import "errors"

var (
	ErrNotFound           = errors.New("order not found")
	ErrItemNotFound       = errors.New("order item not found")
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrInvalidStatus      = errors.New("invalid order status")
	ErrInvalidPayment     = errors.New("invalid payment method")
	ErrInvalidQuantity    = errors.New("quantity out of range")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrNoItems            = errors.New("order has no items")
	ErrDuplicateProduct   = errors.New("product listed twice")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrAddressOutOfBounds = errors.New("address length out of range")
)
