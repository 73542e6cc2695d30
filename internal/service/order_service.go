package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paloma-store/internal/address"
	"paloma-store/internal/cart"
	"paloma-store/internal/model"
	"paloma-store/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	resolver    *address.Resolver
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	resolver *address.Resolver,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		resolver:    resolver,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder places an order with one line of quantity 1 per cart item, in
// cart order. Prices and names are taken from the locked product rows, never
// from the cart copy. The cart is cleared only after the order and its items
// are committed.
func (s *orderService) CreateOrder(ctx context.Context, who *model.Session, store *cart.Store, req *model.CheckoutRequest) (*model.OrderResponse, error) {
	if req == nil {
		return nil, model.NewValidationError("checkout payload is required")
	}
	if who == nil {
		return nil, model.ErrUnauthorised
	}
	if who.Role == model.RoleAdmin {
		return nil, model.ErrForbidden.WithMessage("Admin accounts cannot place orders")
	}
	if store.Len() == 0 {
		return nil, model.ErrCartEmpty
	}
	if !req.PaymentMethod.Valid() {
		return nil, model.ErrInvalidPaymentMethod
	}
	if !req.Address.Deliverable() {
		return nil, model.ErrAddressIncomplete
	}

	shippingAddress, err := s.checkoutAddress(ctx, req.Address)
	if err != nil {
		return nil, err
	}
	shippingCost := s.resolver.Shipping().Quote(shippingAddress.State)

	items := store.Items()
	perProduct := make(map[uuid.UUID]int)
	for _, item := range items {
		perProduct[item.ProductID]++
	}

	order, orderItems, err := s.persistOrder(ctx, who.UserID, shippingAddress, shippingCost, req.PaymentMethod, items, perProduct)
	if err != nil {
		return nil, err
	}

	if clearErr := store.Clear(); clearErr != nil {
		s.logger.Error().Err(clearErr).Str("order_id", order.ID.String()).Msg("failed to clear cart after checkout")
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("user_id", who.UserID.String()).
		Int("item_count", len(orderItems)).
		Str("total", order.GrandTotal().StringFixed(2)).
		Msg("order created successfully")

	return model.NewOrderResponse(*order, orderItems), nil
}

// checkoutAddress runs the submitted address through a fresh form so fields
// the postal code service fills stay authoritative. An unknown or
// unreachable postal code leaves every field editable.
func (s *orderService) checkoutAddress(ctx context.Context, in model.Address) (model.Address, error) {
	if !address.Complete(address.Normalize(in.CEP)) {
		return model.Address{}, model.ErrPostalCodeIncomplete
	}

	form := address.NewForm(s.resolver)
	if err := form.SetPostalCode(ctx, in.CEP); err != nil {
		if !isLookupMiss(err) {
			return model.Address{}, err
		}
		s.logger.Warn().Err(err).Str("postal_code", in.CEP).Msg("checkout continuing without postal code lookup")
	}
	if err := form.Apply(in); err != nil {
		return model.Address{}, err
	}

	out := form.Address()
	if out.State == "" {
		return model.Address{}, model.NewValidationError("state is required")
	}
	return out, nil
}

func (s *orderService) persistOrder(
	ctx context.Context,
	userID uuid.UUID,
	shippingAddress model.Address,
	shippingCost decimal.Decimal,
	payment model.PaymentMethod,
	cartItems []model.CartItem,
	perProduct map[uuid.UUID]int,
) (order *model.Order, orderItems []model.OrderItem, err error) {
	productIDs := cart.ProductIDs(cartItems)

	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, nil, storeError("failed to create order", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	products, err := s.productRepo.GetByIDsForUpdate(ctx, tx, productIDs)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to lock products")
		return nil, nil, storeError("failed to create order", err)
	}
	byID := cart.IndexProducts(products)

	for _, id := range productIDs {
		p, ok := byID[id]
		if !ok {
			err = model.ErrProductNotFound.WithMessage(fmt.Sprintf("Product %s is no longer available", id))
			return nil, nil, err
		}
		if perProduct[id] > p.Stock {
			s.logger.Warn().
				Str("product_id", id.String()).
				Int("requested", perProduct[id]).
				Int("stock", p.Stock).
				Msg("insufficient stock at checkout")
			err = model.ErrStockExceeded.WithMessage(fmt.Sprintf("Only %d left of %s", p.Stock, p.Name))
			return nil, nil, err
		}
	}

	for _, id := range productIDs {
		if err = s.productRepo.DecrementStock(ctx, tx, id, perProduct[id]); err != nil {
			return nil, nil, storeError("failed to reserve stock", err)
		}
	}

	now := time.Now().UTC()
	order = &model.Order{
		ID:              uuid.New(),
		UserID:          userID,
		ShippingCost:    shippingCost,
		ShippingAddress: shippingAddress,
		PaymentMethod:   payment,
		Status:          model.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	orderItems = make([]model.OrderItem, 0, len(cartItems))
	for _, item := range cartItems {
		p := byID[item.ProductID]
		productID := p.ID
		orderItems = append(orderItems, model.OrderItem{
			ID:              uuid.New(),
			OrderID:         order.ID,
			ProductID:       &productID,
			ProductName:     p.Name,
			PriceAtPurchase: p.Price,
			Quantity:        1,
			SelectedSize:    item.SelectedSize,
			SelectedColor:   item.SelectedColor,
		})
	}
	order.TotalAmount = model.SumItems(orderItems)

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return nil, nil, storeError("failed to create order", err)
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, orderItems); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(orderItems)).
			Msg("failed to create order items")
		err = model.ErrOrderItemsNotPersisted.Wrap(err)
		return nil, nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return nil, nil, storeError("failed to create order", err)
	}

	return order, orderItems, nil
}

// GetByID retrieves an order with its items. A customer asking for someone
// else's order gets model.ErrOrderNotFound.
func (s *orderService) GetByID(ctx context.Context, who *model.Session, id uuid.UUID) (*model.OrderResponse, error) {
	if who == nil {
		return nil, model.ErrUnauthorised
	}

	var (
		order *model.Order
		items []model.OrderItem
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		order, err = s.orderRepo.GetByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.orderRepo.GetItems(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, storeError("failed to get order", err)
	}

	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}
	if who.Role != model.RoleAdmin && order.UserID != who.UserID {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("user_id", who.UserID.String()).
			Msg("customer asked for another customer's order")
		return nil, model.ErrOrderNotFound
	}

	return model.NewOrderResponse(*order, items), nil
}

// List returns orders newest first. Customers are always narrowed to their
// own orders whatever the filter says.
func (s *orderService) List(ctx context.Context, who *model.Session, filter model.OrderFilter) ([]model.Order, error) {
	if who == nil {
		return nil, model.ErrUnauthorised
	}
	if who.Role != model.RoleAdmin {
		userID := who.UserID
		filter.UserID = &userID
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}
	filter.Limit, filter.Offset = page(filter.Limit, filter.Offset)

	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list orders")
		return nil, storeError("failed to list orders", err)
	}
	return orders, nil
}

// UpdateStatus moves an order to next when the lifecycle allows it. A
// concurrent change between the read and the write fails with
// model.ErrStatusChanged.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, next model.OrderStatus) (*model.OrderResponse, error) {
	if !next.Valid() {
		return nil, model.ErrInvalidStatus
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, storeError("failed to update order", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, model.ErrInvalidTransition.WithMessage(
			fmt.Sprintf("Order cannot move from %s to %s", order.Status, next))
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, id, order.Status, next)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return nil, storeError("failed to update order", err)
	}
	if updated == nil {
		s.logger.Warn().Str("order_id", id.String()).Str("expected", string(order.Status)).Msg("order status changed concurrently")
		return nil, model.ErrStatusChanged
	}

	items, err := s.orderRepo.GetItems(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order items")
		return nil, storeError("failed to get order", err)
	}

	s.logger.Info().
		Str("order_id", id.String()).
		Str("from", string(order.Status)).
		Str("to", string(next)).
		Msg("order status updated")

	return model.NewOrderResponse(*updated, items), nil
}

// isLookupMiss reports whether err means the postal code service had no answer.
func isLookupMiss(err error) bool {
	return errors.Is(err, model.ErrPostalCodeNotFound) || errors.Is(err, model.ErrLookupFailed)
}
