package domain

import (
	"fmt"
	"slices"
	"strings"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// Effect is the inventory side effect of a transition.
type Effect int

const (
	EffectNone Effect = iota
	EffectReserve
	EffectRelease
)

func (e Effect) String() string {
	switch e {
	case EffectReserve:
		return "reserve"
	case EffectRelease:
		return "release"
	default:
		return "none"
	}
}

var statusTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusDelivered, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {StatusPending, StatusProcessing, StatusShipped},
}

func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := statusTransitions[status]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
	}

	return status, nil
}

func (s Status) Terminal() bool {
	return s == StatusDelivered
}

type Transition struct {
	From          Status
	To            Status
	Effect        Effect
	PaymentStatus PaymentStatus
}

func CanTransition(from, to Status) error {
	if from.Terminal() {
		return &TransitionError{From: from, To: to, Terminal: true}
	}

	next, ok := statusTransitions[from]
	if !ok || from == to || !slices.Contains(next, to) {
		return &TransitionError{From: from, To: to}
	}

	return nil
}

// Plan resolves the side effects of moving an order from one status to another.
func Plan(from, to Status) (Transition, error) {
	if err := CanTransition(from, to); err != nil {
		return Transition{}, err
	}

	t := Transition{
		From:          from,
		To:            to,
		PaymentStatus: PaymentStatusFor(to),
	}

	switch {
	case to == StatusCancelled:
		t.Effect = EffectRelease
	case from == StatusCancelled:
		t.Effect = EffectReserve
	}

	return t, nil
}

func PaymentStatusFor(status Status) PaymentStatus {
	switch status {
	case StatusProcessing, StatusShipped, StatusDelivered:
		return PaymentStatusPaid
	case StatusCancelled:
		return PaymentStatusRefunded
	default:
		return PaymentStatusPending
	}
}
