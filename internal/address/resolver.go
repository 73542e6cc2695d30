// Package address turns a Brazilian postal code (CEP) into a shipping address,
// decides which fields the shopper may still edit, and estimates freight.
package address

import (
	"context"
	"errors"
	"time"

	"paloma-store/internal/model"

	"github.com/rs/zerolog"
)

// Resolver resolves postal codes against a Lookup and prices shipping.
type Resolver struct {
	lookup   Lookup
	shipping ShippingTable
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewResolver creates a resolver. A non-positive timeout leaves the bound to
// the caller's context.
func NewResolver(lookup Lookup, shipping ShippingTable, timeout time.Duration, logger zerolog.Logger) *Resolver {
	return &Resolver{
		lookup:   lookup,
		shipping: shipping,
		timeout:  timeout,
		logger:   logger.With().Str("component", "address-resolver").Logger(),
	}
}

// Shipping returns the freight table used for quotes.
func (r *Resolver) Shipping() ShippingTable {
	return r.shipping
}

// Resolve looks up raw after stripping non-digits. Incomplete codes return
// model.ErrPostalCodeIncomplete without calling the lookup service.
//
// Street and neighborhood are locked only when the service returned them;
// city and state are always locked on success.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*model.ResolvedAddress, error) {
	cep := Normalize(raw)
	if !Complete(cep) {
		return nil, model.ErrPostalCodeIncomplete
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	res, err := r.lookup.Lookup(ctx, cep)
	if err != nil {
		if !errors.Is(err, model.ErrPostalCodeNotFound) {
			r.logger.Warn().Err(err).Str("postal_code", cep).Msg("postal code lookup failed")
		}
		var de *model.DomainError
		if !errors.As(err, &de) {
			err = model.ErrLookupFailed.Wrap(err)
		}
		return nil, err
	}

	out := &model.ResolvedAddress{
		Address: model.Address{
			CEP:          cep,
			Street:       res.Street,
			Neighborhood: res.Neighborhood,
			City:         res.City,
			State:        res.State,
		},
		Locks: model.AddressLocks{
			Street:       res.Street != "",
			Neighborhood: res.Neighborhood != "",
			City:         true,
			State:        true,
		},
		ShippingCost: r.shipping.Quote(res.State),
	}

	r.logger.Debug().
		Str("postal_code", cep).
		Str("city", res.City).
		Str("state", res.State).
		Msg("postal code resolved")

	return out, nil
}
