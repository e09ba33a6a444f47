package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/srgjo27/puja_booking/internal/core/domain"
)

// Command is the closed set of action payloads accepted by HandleAction.
type Command interface {
	Action() domain.Action
	validate() error
}

type AcceptCommand struct{}

type DeclineCommand struct {
	Reason string `json:"reason,omitempty"`
}

type StartJourneyCommand struct{}

type ArrivedCommand struct{}

type StartPujaCommand struct{}

type CompleteCommand struct {
	ActualTravel *domain.TravelCost `json:"actual_travel,omitempty"`
}

type CancelRequestCommand struct {
	Reason string `json:"reason"`
}

type CancelApproveCommand struct{}

func (AcceptCommand) Action() domain.Action { return domain.ActionAccept }
func (DeclineCommand) Action() domain.Action { return domain.ActionDecline }
func (StartJourneyCommand) Action() domain.Action { return domain.ActionStartJourney }
func (ArrivedCommand) Action() domain.Action { return domain.ActionArrived }
func (StartPujaCommand) Action() domain.Action { return domain.ActionStartPuja }
func (CompleteCommand) Action() domain.Action { return domain.ActionComplete }
func (CancelRequestCommand) Action() domain.Action { return domain.ActionCancelRequest }
func (CancelApproveCommand) Action() domain.Action { return domain.ActionCancelApprove }

func (AcceptCommand) validate() error { return nil }
func (DeclineCommand) validate() error { return nil }
func (StartJourneyCommand) validate() error { return nil }
func (ArrivedCommand) validate() error { return nil }
func (StartPujaCommand) validate() error { return nil }
func (CancelApproveCommand) validate() error { return nil }

func (c CompleteCommand) validate() error {
	if c.ActualTravel == nil {
		return nil
	}
	if err := c.ActualTravel.Validate(); err != nil {
		return fmt.Errorf("%w: actual travel: %w", domain.ErrInvalidPayload, err)
	}
	return nil
}

func (c CancelRequestCommand) validate() error {
	if strings.TrimSpace(c.Reason) == "" {
		return fmt.Errorf("%w: cancellation reason is required", domain.ErrInvalidPayload)
	}
	return nil
}

// ParseCommand decodes the payload for the named action. Unknown actions and unknown payload
// fields are rejected here, before anything reaches the state machine.
func ParseCommand(action string, payload json.RawMessage) (Command, error) {
	var cmd Command
	switch domain.Action(action) {
	case domain.ActionAccept:
		cmd = &AcceptCommand{}
	case domain.ActionDecline:
		cmd = &DeclineCommand{}
	case domain.ActionStartJourney:
		cmd = &StartJourneyCommand{}
	case domain.ActionArrived:
		cmd = &ArrivedCommand{}
	case domain.ActionStartPuja:
		cmd = &StartPujaCommand{}
	case domain.ActionComplete:
		cmd = &CompleteCommand{}
	case domain.ActionCancelRequest:
		cmd = &CancelRequestCommand{}
	case domain.ActionCancelApprove:
		cmd = &CancelApproveCommand{}
	default:
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidPayload, action)
	}

	if len(bytes.TrimSpace(payload)) > 0 && !bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cmd); err != nil {
			return nil, fmt.Errorf("%w: %s payload: %v", domain.ErrInvalidPayload, action, err)
		}
	}

	cmd = deref(cmd)
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func deref(cmd Command) Command {
	switch c := cmd.(type) {
	case *AcceptCommand:
		return *c
	case *DeclineCommand:
		return *c
	case *StartJourneyCommand:
		return *c
	case *ArrivedCommand:
		return *c
	case *StartPujaCommand:
		return *c
	case *CompleteCommand:
		return *c
	case *CancelRequestCommand:
		return *c
	case *CancelApproveCommand:
		return *c
	}
	return cmd
}

type ActionRequest struct {
	BookingID uuid.UUID
	Actor     domain.Actor
	Command   Command
}

func (r ActionRequest) validate() error {
	if r.BookingID == uuid.Nil {
		return fmt.Errorf("%w: booking id is required", domain.ErrInvalidPayload)
	}
	if r.Command == nil {
		return fmt.Errorf("%w: action is required", domain.ErrInvalidPayload)
	}
	switch r.Actor.Role {
	case domain.RoleCustomer, domain.RoleAgent, domain.RoleAdmin:
	default:
		return fmt.Errorf("%w: actor role %q may not submit actions", domain.ErrForbidden, r.Actor.Role)
	}
	if r.Actor.ID == uuid.Nil {
		return fmt.Errorf("%w: actor id is required", domain.ErrInvalidPayload)
	}
	return r.Command.validate()
}
