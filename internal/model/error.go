package model

import "fmt"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorKind classifies domain errors so callers can react without string matching.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindStockExceeded ErrorKind = "stock_exceeded"
	KindNotFound      ErrorKind = "not_found"
	KindCapacity      ErrorKind = "capacity"
	KindConflict      ErrorKind = "conflict"
	KindPersistence   ErrorKind = "persistence"
	KindLookup        ErrorKind = "lookup"
	KindUnauthorised  ErrorKind = "unauthorised"
	KindForbidden     ErrorKind = "forbidden"
)

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON            = "INVALID_JSON"
	ErrCodeValidation             = "VALIDATION_FAILED"
	ErrCodeAddressIncomplete      = "ADDRESS_INCOMPLETE"
	ErrCodeCartEmpty              = "CART_EMPTY"
	ErrCodeInvalidPaymentMethod   = "INVALID_PAYMENT_METHOD"
	ErrCodeInvalidStatus          = "INVALID_STATUS"
	ErrCodeInvalidVariant         = "INVALID_VARIANT"
	ErrCodeInvalidCartField       = "INVALID_CART_FIELD"
	ErrCodeFieldLocked            = "ADDRESS_FIELD_LOCKED"
	ErrCodePostalCodeIncomplete   = "POSTAL_CODE_INCOMPLETE"
	ErrCodeStockExceeded          = "STOCK_EXCEEDED"
	ErrCodeProductNotFound        = "PRODUCT_NOT_FOUND"
	ErrCodeCategoryNotFound       = "CATEGORY_NOT_FOUND"
	ErrCodeOrderNotFound          = "ORDER_NOT_FOUND"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeCartItemNotFound       = "CART_ITEM_NOT_FOUND"
	ErrCodePostalCodeNotFound     = "POSTAL_CODE_NOT_FOUND"
	ErrCodeFeaturedCapacity       = "FEATURED_CAPACITY_REACHED"
	ErrCodeCartFull               = "CART_FULL"
	ErrCodeInvalidTransition      = "INVALID_STATUS_TRANSITION"
	ErrCodeStatusChanged          = "STATUS_CHANGED_CONCURRENTLY"
	ErrCodeProtectedCategory      = "PROTECTED_CATEGORY"
	ErrCodeCategoryInUse          = "CATEGORY_IN_USE"
	ErrCodeEmailTaken             = "EMAIL_TAKEN"
	ErrCodeCategoryTitleTaken     = "CATEGORY_TITLE_TAKEN"
	ErrCodePersistence            = "PERSISTENCE_FAILED"
	ErrCodeOrderItemsNotPersisted = "ORDER_ITEMS_NOT_PERSISTED"
	ErrCodeLookupFailed           = "POSTAL_LOOKUP_FAILED"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeUnauthorised           = "UNAUTHORIZED"
	ErrCodeForbidden              = "FORBIDDEN"
	ErrCodeInternalError          = "INTERNAL_ERROR"
)

// DomainError is the error type returned by services for business rule failures.
// Two DomainErrors match under errors.Is when their codes are equal, so a
// sentinel still matches after it has been decorated with a cause or a more
// specific message.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *DomainError) WithMessage(message string) *DomainError {
	c := *e
	c.Message = message
	return &c
}

// Wrap returns a copy of e carrying err as its cause.
func (e *DomainError) Wrap(err error) *DomainError {
	c := *e
	c.Err = err
	return &c
}

// NewValidationError creates a validation error with a free-form message.
func NewValidationError(message string) *DomainError {
	return NewDomainError(KindValidation, ErrCodeValidation, message)
}

// NewPersistenceError wraps a store failure.
func NewPersistenceError(message string, err error) *DomainError {
	return ErrPersistence.WithMessage(message).Wrap(err)
}

// Common domain errors
var (
	ErrAddressIncomplete    = NewDomainError(KindValidation, ErrCodeAddressIncomplete, "Street, number and city are required")
	ErrCartEmpty            = NewDomainError(KindValidation, ErrCodeCartEmpty, "Cart is empty")
	ErrInvalidPaymentMethod = NewDomainError(KindValidation, ErrCodeInvalidPaymentMethod, "Payment method must be pix or credit_card")
	ErrInvalidStatus        = NewDomainError(KindValidation, ErrCodeInvalidStatus, "Unknown order status")
	ErrInvalidVariant       = NewDomainError(KindValidation, ErrCodeInvalidVariant, "Selected size or colour is not offered for this product")
	ErrInvalidCartField     = NewDomainError(KindValidation, ErrCodeInvalidCartField, "Only selectedSize and selectedColor can be changed")
	ErrFieldLocked          = NewDomainError(KindValidation, ErrCodeFieldLocked, "Address field was filled from the postal code and is read-only")
	ErrPostalCodeIncomplete = NewDomainError(KindValidation, ErrCodePostalCodeIncomplete, "Postal code must have 8 digits")

	ErrStockExceeded = NewDomainError(KindStockExceeded, ErrCodeStockExceeded, "Not enough stock for this product")

	ErrProductNotFound    = NewDomainError(KindNotFound, ErrCodeProductNotFound, "Product not found")
	ErrCategoryNotFound   = NewDomainError(KindNotFound, ErrCodeCategoryNotFound, "Category not found")
	ErrOrderNotFound      = NewDomainError(KindNotFound, ErrCodeOrderNotFound, "Order not found")
	ErrUserNotFound       = NewDomainError(KindNotFound, ErrCodeUserNotFound, "User not found")
	ErrCartItemNotFound   = NewDomainError(KindNotFound, ErrCodeCartItemNotFound, "Cart item not found")
	ErrPostalCodeNotFound = NewDomainError(KindNotFound, ErrCodePostalCodeNotFound, "Postal code not found")

	ErrFeaturedCapacity = NewDomainError(KindCapacity, ErrCodeFeaturedCapacity, "At most 3 categories can be featured")
	ErrCartFull         = NewDomainError(KindCapacity, ErrCodeCartFull, "Cart is full; remove an item or check out first")

	ErrInvalidTransition = NewDomainError(KindConflict, ErrCodeInvalidTransition, "Order status transition not allowed")
	ErrStatusChanged     = NewDomainError(KindConflict, ErrCodeStatusChanged, "Order status was changed by someone else")
	ErrProtectedCategory = NewDomainError(KindConflict, ErrCodeProtectedCategory, "Promotional category cannot be removed")
	ErrCategoryInUse     = NewDomainError(KindConflict, ErrCodeCategoryInUse, "Category still has products")
	ErrEmailTaken        = NewDomainError(KindConflict, ErrCodeEmailTaken, "E-mail already registered")
	ErrCategoryExists    = NewDomainError(KindConflict, ErrCodeCategoryTitleTaken, "A category with this title already exists")

	ErrPersistence            = NewDomainError(KindPersistence, ErrCodePersistence, "Store operation failed")
	ErrOrderItemsNotPersisted = NewDomainError(KindPersistence, ErrCodeOrderItemsNotPersisted, "Order items could not be saved; the order was not placed")

	ErrLookupFailed = NewDomainError(KindLookup, ErrCodeLookupFailed, "Postal code service unavailable")

	ErrInvalidCredentials = NewDomainError(KindUnauthorised, ErrCodeInvalidCredentials, "Invalid e-mail or password")
	ErrUnauthorised       = NewDomainError(KindUnauthorised, ErrCodeUnauthorised, "Sign in required")
	ErrForbidden          = NewDomainError(KindForbidden, ErrCodeForbidden, "Not allowed for this account")
)
