package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

type Action string

const (
	ActionCreate        Action = "create"
	ActionAccept        Action = "accept"
	ActionDecline       Action = "decline"
	ActionStartJourney  Action = "start-journey"
	ActionArrived       Action = "arrived"
	ActionStartPuja     Action = "start-puja"
	ActionComplete      Action = "complete"
	ActionSettle        Action = "settle"
	ActionCancelRequest Action = "cancel-request"
	ActionCancelApprove Action = "cancel-approve"
	ActionExpire        Action = "expire"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAgent    Role = "agent"
	RoleAdmin    Role = "admin"
	RoleSystem   Role = "system"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleAgent, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

var SystemActor = Actor{ID: uuid.Nil, Role: RoleSystem}

type rule struct {
	to    BookingStatus
	roles []Role
}

// transitions is the whole state machine. There are no edges back to a state already left.
var transitions = map[BookingStatus]map[Action]rule{
	BookingRequested: {
		ActionAccept:        {to: BookingConfirmed, roles: []Role{RoleAgent}},
		ActionDecline:       {to: BookingRejected, roles: []Role{RoleAgent}},
		ActionExpire:        {to: BookingExpired, roles: []Role{RoleSystem}},
		ActionCancelRequest: {to: BookingCancelled, roles: []Role{RoleCustomer, RoleAdmin}},
	},
	BookingConfirmed: {
		ActionStartJourney:  {to: BookingEnRoute, roles: []Role{RoleAgent}},
		ActionCancelRequest: {to: BookingCancelled, roles: []Role{RoleCustomer, RoleAdmin}},
	},
	BookingEnRoute: {
		ActionArrived: {to: BookingArrived, roles: []Role{RoleAgent}},
	},
	BookingArrived: {
		ActionStartPuja: {to: BookingInProgress, roles: []Role{RoleAgent}},
	},
	BookingInProgress: {
		ActionComplete: {to: BookingPujaCompleted, roles: []Role{RoleAgent}},
	},
	BookingPujaCompleted: {
		ActionSettle: {to: BookingCompleted, roles: []Role{RoleSystem}},
	},
	BookingCancelled: {
		ActionCancelApprove: {to: BookingRefunded, roles: []Role{RoleAdmin}},
	},
}

// Target returns the status an action leads to from the given status, if the edge exists.
func Target(from BookingStatus, action Action) (BookingStatus, bool) {
	r, ok := transitions[from][action]
	return r.to, ok
}

// Check validates an action against the current status, the actor and the request window
// without mutating the booking.
func (b *Booking) Check(action Action, actor Actor, now time.Time) error {
	r, ok := transitions[b.Status][action]
	if !ok {
		return transitionErr(b.Status, action, ErrInvalidTransition)
	}

	if !slices.Contains(r.roles, actor.Role) {
		return transitionErr(b.Status, action, ErrForbidden)
	}

	switch actor.Role {
	case RoleAgent:
		if b.AgentID == nil {
			if action != ActionAccept {
				return transitionErr(b.Status, action, ErrForbidden)
			}
		} else if !b.AssignedTo(actor.ID) {
			return transitionErr(b.Status, action, ErrForbidden)
		}
	case RoleCustomer:
		if actor.ID != b.CustomerID {
			return transitionErr(b.Status, action, ErrForbidden)
		}
	}

	if b.Status == BookingRequested {
		open := b.RequestOpen(now)
		if action == ActionExpire && open {
			return transitionErr(b.Status, action, ErrInvalidTransition)
		}
		if action != ActionExpire && !open {
			return transitionErr(b.Status, action, ErrRequestExpired)
		}
	}

	return nil
}

// AllowedActions lists what the actor may do right now. It is read-only.
func (b *Booking) AllowedActions(actor Actor, now time.Time) []Action {
	var out []Action
	for action := range transitions[b.Status] {
		if b.Check(action, actor, now) == nil {
			out = append(out, action)
		}
	}
	slices.Sort(out)
	return out
}

func (b *Booking) apply(action Action, actor Actor, now time.Time) error {
	if err := b.Check(action, actor, now); err != nil {
		return err
	}
	to, _ := Target(b.Status, action)
	b.record(to, action, actor, now)
	return nil
}

func (b *Booking) Accept(agent Actor, rates RateSheet, now time.Time) error {
	if err := b.Check(ActionAccept, agent, now); err != nil {
		return err
	}
	if err := rates.Validate(); err != nil {
		return transitionErr(b.Status, ActionAccept, fmt.Errorf("%w: capture rates: %w", ErrSettlementFailed, err))
	}

	if b.AgentID == nil {
		id := agent.ID
		b.AgentID = &id
	}
	captured := rates
	b.Rates = &captured
	confirmedAt := now
	b.ConfirmedAt = &confirmedAt

	return b.apply(ActionAccept, agent, now)
}

func (b *Booking) Decline(agent Actor, now time.Time) error {
	return b.apply(ActionDecline, agent, now)
}

func (b *Booking) StartJourney(agent Actor, now time.Time) error {
	return b.apply(ActionStartJourney, agent, now)
}

func (b *Booking) MarkArrived(agent Actor, now time.Time) error {
	return b.apply(ActionArrived, agent, now)
}

func (b *Booking) StartPuja(agent Actor, now time.Time) error {
	return b.apply(ActionStartPuja, agent, now)
}

// Complete records the end of the ceremony. travel, when set, replaces the agent's recorded
// travel cost with what was actually incurred.
func (b *Booking) Complete(agent Actor, travel *TravelCost, now time.Time) error {
	if err := b.Check(ActionComplete, agent, now); err != nil {
		return err
	}
	if travel != nil {
		if err := travel.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		b.Commercials.AgentTravel = *travel
	}
	return b.apply(ActionComplete, agent, now)
}

// AttachSettlement stores the breakdown and moves PUJA_COMPLETED to COMPLETED.
func (b *Booking) AttachSettlement(breakdown MoneyBreakdown, now time.Time) error {
	if b.Settlement != nil {
		return transitionErr(b.Status, ActionSettle, ErrAlreadySettled)
	}
	if err := b.Check(ActionSettle, SystemActor, now); err != nil {
		return err
	}
	settled := breakdown
	b.Settlement = &settled
	return b.apply(ActionSettle, SystemActor, now)
}

func (b *Booking) RequestCancellation(actor Actor, record CancellationRecord, now time.Time) error {
	if err := b.Check(ActionCancelRequest, actor, now); err != nil {
		return err
	}
	rec := record.clone()
	rec.ApprovedAt = nil
	rec.ApprovedBy = nil
	b.Cancellation = &rec
	return b.apply(ActionCancelRequest, actor, now)
}

func (b *Booking) ApproveCancellation(admin Actor, now time.Time) error {
	if b.Status == BookingRefunded && b.Cancellation != nil && b.Cancellation.Approved() {
		return transitionErr(b.Status, ActionCancelApprove, ErrAlreadyRefunded)
	}
	if err := b.Check(ActionCancelApprove, admin, now); err != nil {
		return err
	}
	if b.Cancellation == nil {
		return transitionErr(b.Status, ActionCancelApprove, ErrInvalidTransition)
	}

	approvedAt := now
	approvedBy := admin.ID
	b.Cancellation.ApprovedAt = &approvedAt
	b.Cancellation.ApprovedBy = &approvedBy

	return b.apply(ActionCancelApprove, admin, now)
}
