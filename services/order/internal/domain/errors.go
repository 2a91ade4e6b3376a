package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrProductUnavailable  = errors.New("product unavailable")
	ErrCustomerInactive    = errors.New("customer inactive")
	ErrDependencyFailure   = errors.New("dependency failure")
	ErrRemoteUnavailable   = errors.New("remote service unavailable")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotEditable         = errors.New("order is not editable")
	ErrUnknownStatus       = errors.New("unknown order status")
	ErrOrderCreationFailed = errors.New("order creation failed")
	ErrConcurrentUpdate    = errors.New("order was modified concurrently")
)

type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (product %d): requested %d, available %d",
		e.ProductName, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

type ProductUnavailableError struct {
	ProductID int64
	Reason    string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %d unavailable: %s", e.ProductID, e.Reason)
}

func (e *ProductUnavailableError) Unwrap() error {
	return ErrProductUnavailable
}

// DependencyError names the remote dependency and operation that failed.
type DependencyError struct {
	Dependency string
	Op         string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Dependency, e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func (e *DependencyError) Is(target error) bool {
	return target == ErrDependencyFailure
}

type TransitionError struct {
	From     Status
	To       Status
	Terminal bool
}

func (e *TransitionError) Error() string {
	if e.Terminal {
		return fmt.Sprintf("order in %s is terminal, cannot move to %s", e.From, e.To)
	}

	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// OrderCreationError is returned after compensation for the reserved lines has run.
type OrderCreationError struct {
	Err error
}

func (e *OrderCreationError) Error() string {
	return fmt.Sprintf("order creation failed: %v", e.Err)
}

func (e *OrderCreationError) Unwrap() error {
	return e.Err
}

func (e *OrderCreationError) Is(target error) bool {
	return target == ErrOrderCreationFailed
}
