package address

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Tier is the flat-rate band a destination state falls into.
type Tier string

const (
	TierNone       Tier = ""
	TierSameState  Tier = "same_state"
	TierHighVolume Tier = "high_volume"
	TierDefault    Tier = "default"
)

// ShippingTable is a flat-rate freight estimate keyed on the destination
// state. It is a placeholder for a carrier quote.
type ShippingTable struct {
	HomeState        string
	HomeRate         decimal.Decimal
	HighVolumeStates []string
	HighVolumeRate   decimal.Decimal
	DefaultRate      decimal.Decimal
}

// DefaultShippingTable ships from Espírito Santo.
func DefaultShippingTable() ShippingTable {
	return ShippingTable{
		HomeState:        "ES",
		HomeRate:         decimal.RequireFromString("12.00"),
		HighVolumeStates: []string{"SP", "RJ"},
		HighVolumeRate:   decimal.RequireFromString("25.00"),
		DefaultRate:      decimal.RequireFromString("35.00"),
	}
}

// Tier classifies state. An empty state has no tier.
func (t ShippingTable) Tier(state string) Tier {
	state = strings.ToUpper(strings.TrimSpace(state))
	if state == "" {
		return TierNone
	}
	if state == strings.ToUpper(t.HomeState) {
		return TierSameState
	}
	for _, s := range t.HighVolumeStates {
		if state == strings.ToUpper(s) {
			return TierHighVolume
		}
	}
	return TierDefault
}

// Quote returns the freight for state; zero when the state is unknown.
func (t ShippingTable) Quote(state string) decimal.Decimal {
	switch t.Tier(state) {
	case TierSameState:
		return t.HomeRate
	case TierHighVolume:
		return t.HighVolumeRate
	case TierDefault:
		return t.DefaultRate
	}
	return decimal.Zero
}
