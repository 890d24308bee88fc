package services

import (
	"strings"

	"permit_flow_app_go/models"
)

// Transition describes one edge family of the case state machine
type Transition struct {
	Action Action
	// From lists the source states; empty means every state
	From []models.CaseState
	// Targets holds the possible destinations, the first being the default
	Targets []models.CaseState

	RequiresDocuments       bool
	RequiresVerifiedPayment bool
	// Payload marks transitions that need input only a dedicated operation can supply
	Payload bool
}

// transitions is the complete state machine. A state change outside this table never happens.
var transitions = map[Action]Transition{
	ActionStartAdminReview: {
		From:    []models.CaseState{models.CaseStateRegistered},
		Targets: []models.CaseState{models.CaseStateAdminReview},
	},
	ActionApproveAdminReview: {
		From:              []models.CaseState{models.CaseStateAdminReview},
		Targets:           []models.CaseState{models.CaseStateTechReview},
		RequiresDocuments: true,
	},
	ActionObserve: {
		From:    []models.CaseState{models.CaseStateAdminReview, models.CaseStateTechReview, models.CaseStateInInspection},
		Targets: []models.CaseState{models.CaseStateObserved},
	},
	ActionReject: {
		From: []models.CaseState{models.CaseStateAdminReview, models.CaseStateTechReview,
			models.CaseStateObserved, models.CaseStateInInspection},
		Targets: []models.CaseState{models.CaseStateRejected},
	},
	ActionSubmitCorrection: {
		From:    []models.CaseState{models.CaseStateObserved},
		Targets: []models.CaseState{models.CaseStateCorrection},
	},
	ActionResumeAdminReview: {
		From:    []models.CaseState{models.CaseStateCorrection},
		Targets: []models.CaseState{models.CaseStateAdminReview},
	},
	ActionResumeTechReview: {
		From:    []models.CaseState{models.CaseStateCorrection},
		Targets: []models.CaseState{models.CaseStateTechReview},
	},
	ActionRequestInspection: {
		From:    []models.CaseState{models.CaseStateTechReview},
		Targets: []models.CaseState{models.CaseStatePendingInspection},
	},
	ActionStartInspection: {
		From:    []models.CaseState{models.CaseStatePendingInspection},
		Targets: []models.CaseState{models.CaseStateInInspection},
	},
	ActionRecordInspectionResult: {
		From:    []models.CaseState{models.CaseStatePendingInspection, models.CaseStateInInspection},
		Targets: []models.CaseState{models.CaseStateTechReview, models.CaseStateObserved},
		Payload: true,
	},
	ActionApproveTechReview: {
		From:              []models.CaseState{models.CaseStateTechReview},
		Targets:           []models.CaseState{models.CaseStatePaymentPending},
		RequiresDocuments: true,
	},
	ActionConfirmPayment: {
		From:                    []models.CaseState{models.CaseStatePaymentPending},
		Targets:                 []models.CaseState{models.CaseStatePaid},
		RequiresVerifiedPayment: true,
	},
	ActionApprove: {
		From:                    []models.CaseState{models.CaseStatePaid},
		Targets:                 []models.CaseState{models.CaseStateApproved},
		RequiresDocuments:       true,
		RequiresVerifiedPayment: true,
	},
	// Licence upload short-circuits the approval chain from any state, terminal ones included
	ActionIssueLicence: {
		Targets:           []models.CaseState{models.CaseStateLicenseIssued},
		RequiresDocuments: true,
		Payload:           true,
	},
}

// TransitionFor looks up the state machine entry for an action
func TransitionFor(action Action) (Transition, bool) {
	t, ok := transitions[action]
	if ok {
		t.Action = action
	}
	return t, ok
}

// AllowsFrom reports whether the transition may start from the given state
func (t Transition) AllowsFrom(state models.CaseState) bool {
	if len(t.From) == 0 {
		return true
	}
	for _, s := range t.From {
		if s == state {
			return true
		}
	}
	return false
}

// allowsTarget reports whether the destination is one this transition can produce
func (t Transition) allowsTarget(state models.CaseState) bool {
	for _, s := range t.Targets {
		if s == state {
			return true
		}
	}
	return false
}

// HistoryAction is the ledger name for the transition
func (t Transition) HistoryAction() models.HistoryAction {
	return models.HistoryAction(strings.ToUpper(string(t.Action)))
}

// planTransition evaluates the source state and guards of an action against a case
// and returns the destination. target overrides the default destination when the
// transition has several.
func planTransition(c *models.Case, action Action, target models.CaseState) (models.CaseState, error) {
	t, ok := TransitionFor(action)
	if !ok {
		return "", ValidationError("unknown transition %q", action)
	}

	if !t.AllowsFrom(c.State) {
		return "", InvalidStateError("cannot %s a case in state %s", action, c.State)
	}

	if target == "" {
		target = t.Targets[0]
	} else if !t.allowsTarget(target) {
		return "", InvalidStateError("%s cannot lead to state %s", action, target)
	}

	if t.RequiresVerifiedPayment && c.Payment.Status != models.PaymentStatusVerified {
		return "", InvalidStateError("payment must be verified before %s", action)
	}

	if t.RequiresDocuments {
		if err := ensureDocumentComplete(c); err != nil {
			return "", err
		}
	}

	return target, nil
}

// AvailableActions lists the transitions the actor could request on the case right now
func AvailableActions(actor models.Actor, c *models.Case) []Action {
	var actions []Action
	for _, action := range transitionOrder {
		if !CanPerform(actor, action, c) {
			continue
		}
		if _, err := planTransition(c, action, ""); err == nil {
			actions = append(actions, action)
		}
	}
	return actions
}

// transitionOrder keeps AvailableActions deterministic
var transitionOrder = []Action{
	ActionStartAdminReview,
	ActionApproveAdminReview,
	ActionObserve,
	ActionReject,
	ActionSubmitCorrection,
	ActionResumeAdminReview,
	ActionResumeTechReview,
	ActionRequestInspection,
	ActionStartInspection,
	ActionRecordInspectionResult,
	ActionApproveTechReview,
	ActionConfirmPayment,
	ActionApprove,
	ActionIssueLicence,
}
