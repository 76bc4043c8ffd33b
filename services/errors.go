package services

import "errors"

var (
	ErrBranchNotFound     = errors.New("branch not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrInvalidOption      = errors.New("invalid option selection")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrTotalMismatch      = errors.New("order total does not match server calculation")
	ErrInvalidPromoCode   = errors.New("invalid or expired promo code")

	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrInvalidPrepTime   = errors.New("prep time must be a positive number of minutes")
	ErrBranchMismatch    = errors.New("order belongs to another branch")

	ErrPaymentNotPaid     = errors.New("payment was not successful")
	ErrPaymentMetadata    = errors.New("payment metadata missing order data")
	ErrPaymentUnavailable = errors.New("payment provider unavailable")

	ErrPromotionNotFound = errors.New("promotion not found")
	ErrDuplicatePromo    = errors.New("promo code already exists for this branch")
	ErrInvalidPromotion  = errors.New("invalid promotion")
)

var ErrInvalidCheckout = errors.New("invalid checkout request")
