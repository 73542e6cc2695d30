package address

import (
	"context"
	"sync"

	"paloma-store/internal/generation"
	"paloma-store/internal/model"

	"github.com/shopspring/decimal"
)

// Status is where the form stands with respect to the postal code.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusResolved Status = "resolved"
	StatusFailed   Status = "failed"
)

const postalKey = "postal-code"

// State is a point-in-time copy of a Form.
type State struct {
	Address      model.Address      `json:"address"`
	Locks        model.AddressLocks `json:"locks"`
	ShippingCost decimal.Decimal    `json:"shippingCost"`
	Status       Status             `json:"status"`
}

// Form is the checkout address being filled in. Fields filled from a postal
// code lookup are locked; only the latest postal code entered may change the
// form, so a slow answer for an earlier code is discarded.
type Form struct {
	mu       sync.Mutex
	resolver *Resolver
	tracker  *generation.Tracker
	state    State
}

// NewForm creates an empty form.
func NewForm(resolver *Resolver) *Form {
	return &Form{
		resolver: resolver,
		tracker:  generation.NewTracker(),
		state:    State{Status: StatusIdle, ShippingCost: decimal.Zero},
	}
}

// State returns a copy of the form.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Address returns the current address.
func (f *Form) Address() model.Address {
	return f.State().Address
}

// SetPostalCode records raw and, when it is complete, resolves it. An
// incomplete code or a failed lookup unlocks every field and clears the
// shipping estimate. The returned error is the lookup failure, if any; a
// superseded lookup returns nil and leaves the form to the newer one.
func (f *Form) SetPostalCode(ctx context.Context, raw string) error {
	cep := Normalize(raw)
	ctx, tok := f.tracker.Begin(ctx, postalKey)
	defer f.tracker.Done(tok)

	f.mu.Lock()
	f.state.Address.CEP = cep
	if !Complete(cep) {
		f.unlockLocked(StatusIdle)
		f.mu.Unlock()
		return nil
	}
	f.mu.Unlock()

	resolved, err := f.resolver.Resolve(ctx, cep)

	var applied bool
	f.tracker.Commit(tok, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		applied = true
		if err != nil {
			f.unlockLocked(StatusFailed)
			return
		}
		a := &f.state.Address
		a.Street = resolved.Address.Street
		a.Neighborhood = resolved.Address.Neighborhood
		a.City = resolved.Address.City
		a.State = resolved.Address.State
		f.state.Locks = resolved.Locks
		f.state.ShippingCost = resolved.ShippingCost
		f.state.Status = StatusResolved
	})
	if !applied {
		return nil
	}
	return err
}

// SetField edits one field. Locked fields reject any change; writing the
// value they already hold is allowed. The postal code goes through
// SetPostalCode.
func (f *Form) SetField(field model.AddressField, value string) error {
	if field == model.AddressCEP {
		return model.NewValidationError("use the postal code lookup to change the CEP")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	current, ok := f.state.Address.Get(field)
	if !ok {
		return model.NewValidationError("unknown address field " + string(field))
	}
	if f.state.Locks.IsLocked(field) {
		if current == value {
			return nil
		}
		return model.ErrFieldLocked.WithMessage(string(field) + " was filled from the postal code and is read-only")
	}
	f.state.Address.Set(field, value)
	return nil
}

// Apply copies the editable fields of in onto the form, field by field, and
// stops at the first rejected edit. The CEP of in is ignored.
func (f *Form) Apply(in model.Address) error {
	fields := []model.AddressField{
		model.AddressStreet,
		model.AddressNumber,
		model.AddressNeighborhood,
		model.AddressComplement,
		model.AddressCity,
		model.AddressState,
	}
	for _, field := range fields {
		v, _ := in.Get(field)
		if err := f.SetField(field, v); err != nil {
			return err
		}
	}
	return nil
}

// unlockLocked clears every lock and the shipping estimate. Callers hold f.mu.
func (f *Form) unlockLocked(status Status) {
	f.state.Locks = model.AddressLocks{}
	f.state.ShippingCost = decimal.Zero
	f.state.Status = status
}
