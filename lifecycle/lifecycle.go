// Package lifecycle holds the transition rules of an order:
//
//	Pending -> Cooking -> Plating -> Serving -> Completed
//	Pending -> Cancelled
//
// Completed and Cancelled are terminal.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/yeremiapane/tableorder/models"
)

var (
	ErrCannotCancel      = errors.New("cannot cancel once cooking has started")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTerminal          = errors.New("order is already finished")
	ErrNotEditable       = errors.New("order can only be changed while pending")
	ErrUnknownStatus     = errors.New("unknown order status")
)

var chain = []models.OrderStatus{
	models.StatusPending,
	models.StatusCooking,
	models.StatusPlating,
	models.StatusServing,
	models.StatusCompleted,
}

// Next returns the forward successor of s, if any.
func Next(s models.OrderStatus) (models.OrderStatus, bool) {
	for i := 0; i < len(chain)-1; i++ {
		if chain[i] == s {
			return chain[i+1], true
		}
	}
	return "", false
}

func IsTerminal(s models.OrderStatus) bool {
	return s == models.StatusCompleted || s == models.StatusCancelled
}

// Rank is the position of s along the forward chain, or -1 for Cancelled and unknown values.
func Rank(s models.OrderStatus) int {
	for i, c := range chain {
		if c == s {
			return i
		}
	}
	return -1
}

// CanAdvance allows exactly one forward step.
func CanAdvance(from, to models.OrderStatus) error {
	if !from.Valid() || !to.Valid() {
		return ErrUnknownStatus
	}
	if IsTerminal(from) {
		return fmt.Errorf("%w: %s", ErrTerminal, from)
	}
	next, _ := Next(from)
	if to != next {
		return fmt.Errorf("%w: %s -> %s (next is %s)", ErrInvalidTransition, from, to, next)
	}
	return nil
}

func CanCancel(from models.OrderStatus) error {
	if from != models.StatusPending {
		return ErrCannotCancel
	}
	return nil
}

func CanEdit(from models.OrderStatus) error {
	if from != models.StatusPending {
		return fmt.Errorf("%w: status is %s", ErrNotEditable, from)
	}
	return nil
}

// Validate dispatches on the requested target status.
func Validate(from, to models.OrderStatus) error {
	if to == models.StatusCancelled {
		if !from.Valid() {
			return ErrUnknownStatus
		}
		return CanCancel(from)
	}
	return CanAdvance(from, to)
}
