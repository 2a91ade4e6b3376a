package repository

import (
	"errors"
	"fmt"

	"github.com/sakashimaa/order-orchestrator/services/order/internal/domain"
)

var (
	ErrOrderNotFound        = fmt.Errorf("order %w", domain.ErrNotFound)
	ErrDuplicateOrderNumber = errors.New("order number already exists")
	ErrStaleOrder           = fmt.Errorf("stale order version: %w", domain.ErrConcurrentUpdate)
)
