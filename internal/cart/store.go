// Package cart holds the shopper's cart: the per-session item store, the
// reconciliation against live product records, and the storage contract the
// store persists through.
package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"paloma-store/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Storage is the durable place a cart is kept between requests.
// Load returns nil bytes when nothing has been saved yet.
type Storage interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// Store is a cart bound to one Storage. Every mutation is written through
// before it returns.
type Store struct {
	mu        sync.Mutex
	items     []model.CartItem
	storage   Storage
	now       func() time.Time
	lastStamp int64
	logger    zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the clock used to stamp cart ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads the cart from storage. Malformed stored data yields an empty cart.
func Open(storage Storage, logger zerolog.Logger, opts ...Option) (*Store, error) {
	s := &Store{
		storage: storage,
		now:     time.Now,
		logger:  logger.With().Str("component", "cart").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, err := storage.Load()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load cart")
		return nil, model.NewPersistenceError("failed to load cart", err)
	}
	if len(raw) == 0 {
		return s, nil
	}

	var items []model.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		s.logger.Warn().Err(err).Int("bytes", len(raw)).Msg("discarding malformed cart")
		return s, nil
	}
	s.items = items
	return s, nil
}

// Items returns a copy of the cart contents in insertion order.
func (s *Store) Items() []model.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// Len returns the number of units in the cart.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Total sums current prices.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CartTotal(s.items)
}

// View returns the cart with its derived amounts.
func (s *Store) View() model.CartView {
	return model.NewCartView(s.Items())
}

// Add puts one unit of product in the requested variant into the cart. The
// stock check is made against the product as passed in.
func (s *Store) Add(product model.Product, size, color string) (model.CartItem, error) {
	if err := checkVariant(product, size, color); err != nil {
		return model.CartItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	held := 0
	for _, item := range s.items {
		if item.ProductID == product.ID {
			held++
		}
	}
	if held >= product.Stock {
		s.logger.Debug().
			Str("product_id", product.ID.String()).
			Int("held", held).
			Int("stock", product.Stock).
			Msg("stock exceeded")
		return model.CartItem{}, model.ErrStockExceeded
	}

	item := snapshot(product)
	item.SelectedSize = size
	item.SelectedColor = color
	item.CartID = s.nextCartID(product, size, color)

	next := append(cloneItems(s.items), item)
	if err := s.persist(next); err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}

// Remove deletes the item with cartID.
func (s *Store) Remove(cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(cartID)
	if idx < 0 {
		return model.ErrCartItemNotFound
	}
	next := make([]model.CartItem, 0, len(s.items)-1)
	next = append(next, s.items[:idx]...)
	next = append(next, s.items[idx+1:]...)
	return s.persist(next)
}

// Update changes the variant selection of one item. Only the size and colour
// can be edited.
func (s *Store) Update(cartID string, field model.CartField, value string) (model.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(cartID)
	if idx < 0 {
		return model.CartItem{}, model.ErrCartItemNotFound
	}

	next := cloneItems(s.items)
	item := &next[idx]
	switch field {
	case model.FieldSelectedSize:
		if len(item.Sizes) > 0 && !contains(item.Sizes, value) {
			return model.CartItem{}, model.ErrInvalidVariant
		}
		item.SelectedSize = value
	case model.FieldSelectedColor:
		if len(item.Colors) > 0 && !contains(item.Colors, value) {
			return model.CartItem{}, model.ErrInvalidVariant
		}
		item.SelectedColor = value
	default:
		return model.CartItem{}, model.ErrInvalidCartField
	}

	if err := s.persist(next); err != nil {
		return model.CartItem{}, err
	}
	return next[idx], nil
}

// Clear empties the cart.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist([]model.CartItem{})
}

// Replace swaps the whole cart for items.
func (s *Store) Replace(items []model.CartItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(cloneItems(items))
}

// persist writes next to storage and makes it the current cart only when the
// write succeeded. Callers hold s.mu.
func (s *Store) persist(next []model.CartItem) error {
	if next == nil {
		next = []model.CartItem{}
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return model.NewPersistenceError("failed to encode cart", err)
	}
	if err := s.storage.Save(raw); err != nil {
		var de *model.DomainError
		if errors.As(err, &de) && de.Kind != model.KindPersistence {
			return err
		}
		s.logger.Error().Err(err).Int("items", len(next)).Msg("failed to save cart")
		return model.NewPersistenceError("failed to save cart", err)
	}
	s.items = next
	return nil
}

// nextCartID builds productId-size-color-<unix ms>. The stamp is bumped when
// the clock has not advanced since the last id or when it collides with a
// stored item.
func (s *Store) nextCartID(product model.Product, size, color string) string {
	stamp := s.now().UnixMilli()
	if stamp <= s.lastStamp {
		stamp = s.lastStamp + 1
	}
	for {
		id := fmt.Sprintf("%s-%s-%s-%s", product.ID, size, color, strconv.FormatInt(stamp, 10))
		if s.indexOf(id) < 0 {
			s.lastStamp = stamp
			return id
		}
		stamp++
	}
}

func (s *Store) indexOf(cartID string) int {
	for i, item := range s.items {
		if item.CartID == cartID {
			return i
		}
	}
	return -1
}

func checkVariant(product model.Product, size, color string) error {
	if len(product.Sizes) > 0 && !contains(product.Sizes, size) {
		return model.ErrInvalidVariant.WithMessage(fmt.Sprintf("size %q is not offered for this product", size))
	}
	if len(product.Colors) > 0 && !contains(product.Colors, color) {
		return model.ErrInvalidVariant.WithMessage(fmt.Sprintf("colour %q is not offered for this product", color))
	}
	return nil
}

// snapshot copies the product fields a cart line carries.
func snapshot(p model.Product) model.CartItem {
	item := model.CartItem{ProductID: p.ID}
	applyProduct(&item, p)
	item.Colors = append([]string(nil), p.Colors...)
	item.Sizes = append([]string(nil), p.Sizes...)
	return item
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func cloneItems(items []model.CartItem) []model.CartItem {
	out := make([]model.CartItem, len(items))
	copy(out, items)
	return out
}
