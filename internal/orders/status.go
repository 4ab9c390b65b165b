package orders

import "github.com/mandibook/mandibook-backend/pkg/enums"

// statusRank orders the fulfillment sequence. Orders only move forward
// through it; cancellation is reachable from any non-terminal state.
var statusRank = map[enums.OrderStatus]int{
	enums.OrderStatusPending:    0,
	enums.OrderStatusConfirmed:  1,
	enums.OrderStatusProcessing: 2,
	enums.OrderStatusPacked:     3,
	enums.OrderStatusShipped:    4,
	enums.OrderStatusDelivered:  5,
}

// CanTransition reports whether an order may move from one status to another.
// Same-state is not a transition; callers treat it as a no-op before asking.
func CanTransition(from, to enums.OrderStatus) bool {
	if from == to {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	if to == enums.OrderStatusCancelled {
		return true
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// AllowedNext lists every status reachable from the given one, used to build
// rejection messages for invalid transition requests.
func AllowedNext(from enums.OrderStatus) []enums.OrderStatus {
	if from.IsTerminal() {
		return nil
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return nil
	}

	var next []enums.OrderStatus
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusPacked,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
	} {
		if statusRank[status] > fromRank {
			next = append(next, status)
		}
	}
	return append(next, enums.OrderStatusCancelled)
}
