package fulfillment

import (
	"fmt"

	"github.com/angelmondragon/fulfillment-backend/pkg/db/models"
	"github.com/angelmondragon/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/fulfillment-backend/pkg/errors"
)

// Phase is where an order sits in fulfillment. The first four are derived
// from item decisions; the last two are entered by the customer or a
// delivery company and are never re-derived.
type Phase string

const (
	PhaseAwaitingVendors  Phase = "awaiting_vendors"
	PhaseReady            Phase = "ready"
	PhaseCustomerDecision Phase = "customer_decision"
	PhaseCancelled        Phase = "cancelled"
	PhaseProceeding       Phase = "proceeding"
	PhaseDispatched       Phase = "dispatched"
)

// Event is something that can move an order between phases.
type Event string

const (
	EventVendorDecision   Event = "vendor_decision"
	EventCustomerCancel   Event = "customer_cancel"
	EventCustomerProceed  Event = "customer_proceed"
	EventDeliveryAccepted Event = "delivery_accepted"
)

var derivedPhases = []Phase{PhaseAwaitingVendors, PhaseReady, PhaseCustomerDecision, PhaseCancelled}

// transitions lists every allowed move. A vendor decision lands wherever
// Derive says; the table bounds which of those landings are legal. Delivery
// is offered only once no live line is pending.
var transitions = map[Phase]map[Event][]Phase{
	PhaseAwaitingVendors: {
		EventVendorDecision: derivedPhases,
	},
	PhaseReady: {
		EventVendorDecision:   {PhaseReady, PhaseCustomerDecision, PhaseCancelled},
		EventDeliveryAccepted: {PhaseDispatched},
	},
	PhaseCustomerDecision: {
		EventVendorDecision:  derivedPhases,
		EventCustomerCancel:  {PhaseCancelled},
		EventCustomerProceed: {PhaseProceeding},
	},
	PhaseProceeding: {
		EventDeliveryAccepted: {PhaseDispatched},
	},
	PhaseCancelled:  {},
	PhaseDispatched: {},
}

// Counts tallies the live items of an order by vendor decision.
type Counts struct {
	Pending  int
	Accepted int
	Rejected int
}

// Total is the number of counted items.
func (c Counts) Total() int {
	return c.Pending + c.Accepted + c.Rejected
}

// CountItems tallies items, skipping lines dropped by the customer.
func CountItems(items []models.OrderItem) Counts {
	var c Counts
	for _, item := range items {
		if item.Dropped {
			continue
		}
		switch item.VendorStatus {
		case enums.VendorItemStatusAccepted:
			c.Accepted++
		case enums.VendorItemStatusRejected:
			c.Rejected++
		default:
			c.Pending++
		}
	}
	return c
}

// Derive maps item decisions onto one of the four derived phases.
func Derive(c Counts) Phase {
	switch {
	case c.Rejected > 0 && c.Rejected == c.Total():
		return PhaseCancelled
	case c.Rejected > 0:
		return PhaseCustomerDecision
	case c.Accepted > 0 && c.Pending == 0:
		return PhaseReady
	default:
		return PhaseAwaitingVendors
	}
}

// PhaseOf places a stored order. Counts only matter for requested orders
// the customer has not decided on.
func PhaseOf(order models.Order, c Counts) Phase {
	switch {
	case order.Status == enums.OrderStatusCancelled:
		return PhaseCancelled
	case order.Status == enums.OrderStatusAccepted || order.DeliveryCompanyID != nil:
		return PhaseDispatched
	case order.CustomerDecision != nil:
		return PhaseProceeding
	case order.Status == enums.OrderStatusAwaitingCustomerDecision:
		return PhaseCustomerDecision
	case c.Accepted > 0 && c.Pending == 0 && c.Rejected == 0:
		return PhaseReady
	default:
		return PhaseAwaitingVendors
	}
}

// Status is the stored order status for a phase.
func (p Phase) Status() enums.OrderStatus {
	switch p {
	case PhaseCustomerDecision:
		return enums.OrderStatusAwaitingCustomerDecision
	case PhaseCancelled:
		return enums.OrderStatusCancelled
	case PhaseDispatched:
		return enums.OrderStatusAccepted
	default:
		return enums.OrderStatusRequested
	}
}

// ActionRequired reports whether the customer has to choose.
func (p Phase) ActionRequired() bool {
	return p == PhaseCustomerDecision
}

// Permits reports whether event may fire in phase at all.
func (p Phase) Permits(event Event) bool {
	_, ok := transitions[p][event]
	return ok
}

// Allowed reports whether event may move the order from one phase to another.
func Allowed(from Phase, event Event, to Phase) bool {
	for _, candidate := range transitions[from][event] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Guard returns the conflict a client sees when event cannot fire in phase.
func Guard(phase Phase, event Event) error {
	if phase.Permits(event) {
		return nil
	}
	var msg string
	switch {
	case phase == PhaseCancelled:
		msg = "order is cancelled"
	case phase == PhaseDispatched:
		msg = "order already has a delivery company"
	case phase == PhaseProceeding:
		msg = "customer has already decided"
	case phase == PhaseCustomerDecision:
		msg = "order is waiting for the customer"
	case event == EventDeliveryAccepted:
		msg = "order items are still awaiting vendor decisions"
	default:
		msg = "order is not awaiting a customer decision"
	}
	return pkgerrors.New(pkgerrors.CodeConflict, msg).
		WithDetails(map[string]any{"phase": string(phase), "event": string(event)})
}

// Move checks that a computed landing phase is legal.
func Move(from Phase, event Event, to Phase) error {
	if err := Guard(from, event); err != nil {
		return err
	}
	if !Allowed(from, event, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", from, to))
	}
	return nil
}
