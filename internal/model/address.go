package model

import "github.com/shopspring/decimal"

// AddressField names one field of a shipping address.
type AddressField string

const (
	AddressCEP          AddressField = "cep"
	AddressStreet       AddressField = "street"
	AddressNumber       AddressField = "number"
	AddressNeighborhood AddressField = "neighborhood"
	AddressComplement   AddressField = "complement"
	AddressCity         AddressField = "city"
	AddressState        AddressField = "state"
)

// Address is a Brazilian shipping address. It is stored on orders as a
// snapshot, so later edits to a customer's address never reach old orders.
type Address struct {
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood"`
	Complement   string `json:"complement"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// AddressLocks records which fields were filled by the postal code service.
// Locked fields are read-only for the shopper. CEP, number and complement
// are never locked.
type AddressLocks struct {
	Street       bool `json:"street"`
	Neighborhood bool `json:"neighborhood"`
	City         bool `json:"city"`
	State        bool `json:"state"`
}

// IsLocked reports whether field is read-only under these locks.
func (l AddressLocks) IsLocked(field AddressField) bool {
	switch field {
	case AddressStreet:
		return l.Street
	case AddressNeighborhood:
		return l.Neighborhood
	case AddressCity:
		return l.City
	case AddressState:
		return l.State
	}
	return false
}

// Get returns the value of field.
func (a Address) Get(field AddressField) (string, bool) {
	switch field {
	case AddressCEP:
		return a.CEP, true
	case AddressStreet:
		return a.Street, true
	case AddressNumber:
		return a.Number, true
	case AddressNeighborhood:
		return a.Neighborhood, true
	case AddressComplement:
		return a.Complement, true
	case AddressCity:
		return a.City, true
	case AddressState:
		return a.State, true
	}
	return "", false
}

// Set assigns value to field. It returns false for unknown fields.
func (a *Address) Set(field AddressField, value string) bool {
	switch field {
	case AddressCEP:
		a.CEP = value
	case AddressStreet:
		a.Street = value
	case AddressNumber:
		a.Number = value
	case AddressNeighborhood:
		a.Neighborhood = value
	case AddressComplement:
		a.Complement = value
	case AddressCity:
		a.City = value
	case AddressState:
		a.State = value
	default:
		return false
	}
	return true
}

// Deliverable reports whether the address carries the minimum needed to ship.
func (a Address) Deliverable() bool {
	return a.Street != "" && a.Number != "" && a.City != ""
}

// ResolvedAddress is the outcome of a postal code lookup.
type ResolvedAddress struct {
	Address      Address         `json:"address"`
	Locks        AddressLocks    `json:"locks"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
}
