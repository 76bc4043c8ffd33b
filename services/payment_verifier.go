package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentReference identifies the payment behind a checkout. Direct checkouts
// carry the order payload; provider callbacks carry only the payment id.
type PaymentReference struct {
	PaymentID string
	Checkout  *CheckoutInput
}

// VerifiedPayment is a confirmed payment together with the order it pays for.
// BranchID is zero when the payment does not name a branch.
type VerifiedPayment struct {
	TransactionID string
	Amount        decimal.Decimal
	Method        string
	BranchID      uint
	Order         CheckoutInput
}

type PaymentVerifier interface {
	Verify(ctx context.Context, ref PaymentReference) (*VerifiedPayment, error)
}

// MockPaymentVerifier accepts every direct checkout as paid.
type MockPaymentVerifier struct{}

func (MockPaymentVerifier) Verify(_ context.Context, ref PaymentReference) (*VerifiedPayment, error) {
	if ref.Checkout == nil {
		return nil, errors.New("mock payment requires the checkout payload")
	}
	return &VerifiedPayment{
		TransactionID: "MOCK_" + uuid.NewString(),
		Amount:        ref.Checkout.TotalAmount,
		Method:        ref.Checkout.PaymentMethod,
		Order:         *ref.Checkout,
	}, nil
}
