package domain

import "github.com/shopspring/decimal"

// Category groups transactions. ParentID is stored but not interpreted.
type Category struct {
	RemoteID     string `json:"id,omitempty"`
	Name         string `json:"name"`
	ParentID     string `json:"parent_id,omitempty"`
	IsPredefined bool   `json:"is_predefined"`
	UserID       string `json:"user_id,omitempty"`
}

// PaymentMethodType is the account flavour of a payment method.
type PaymentMethodType string

const (
	PaymentMethodCredit PaymentMethodType = "CreditAccount"
	PaymentMethodDebit  PaymentMethodType = "DebitAccount"
)

// NormalizePaymentMethodType maps raw onto a known type, defaulting to DebitAccount.
func NormalizePaymentMethodType(raw string) PaymentMethodType {
	if PaymentMethodType(raw) == PaymentMethodCredit {
		return PaymentMethodCredit
	}
	return PaymentMethodDebit
}

// DisplayName is the human label of the type.
func (p PaymentMethodType) DisplayName() string {
	if p == PaymentMethodCredit {
		return "Credit Account"
	}
	return "Debit Account"
}

// PaymentMethod is an account transactions can be paid from.
type PaymentMethod struct {
	RemoteID       string            `json:"id,omitempty"`
	Name           string            `json:"name"`
	Type           PaymentMethodType `json:"type"`
	InitialBalance decimal.Decimal   `json:"initial_balance"`
}
