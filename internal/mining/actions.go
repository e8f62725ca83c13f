package mining

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/v4ex/minex/internal/auth"
)

// editPayload is the decoded payload of EDIT, SUBMIT and RESUBMIT.
type editPayload struct {
	Work json.RawMessage `json:"work"`
}

func decodeWork(payload json.RawMessage) json.RawMessage {
	var p editPayload
	if len(payload) == 0 || json.Unmarshal(payload, &p) != nil {
		return nil
	}
	return p.Work
}

// ─── VIEW ───────────────────────────────────────────────────────────────────
// Any authenticated caller may inspect the task; no mutation.

type viewAction struct{ actionBase }

func newViewAction(res *Resource, gate *auth.Gate, payload json.RawMessage) Action {
	return &viewAction{newActionBase(res, gate, payload)}
}

func (a *viewAction) Perform(ctx context.Context) *Response {
	if resp := a.guard(ctx); resp != nil {
		return resp
	}
	return a.succeed(http.StatusOK, "Mining task state attached.")
}

// ─── INITIALIZE / REVERT_INITIALIZE ─────────────────────────────────────────
// Situation: Miner is operating on his own mining task.

type initializeAction struct{ actionBase }

func newInitializeAction(res *Resource, gate *auth.Gate, payload json.RawMessage) Action {
	a := &initializeAction{newActionBase(res, gate, payload)}
	a.require(a.hasRole(auth.RoleMiner), a.ownsResource)
	return a
}

func (a *initializeAction) Perform(ctx context.Context) *Response {
	if resp := a.guard(ctx); resp != nil {
		return resp
	}

	ok, err := a.res.Initialize(ctx)
	if err != nil {
		return fault(err)
	}
	if !ok {
		return conflict("Mining task is already initialized.")
	}
	return a.succeed(http.StatusOK, "Mining task has been initialized.")
}

type revertInitializeAction struct{ actionBase }

func newRevertInitializeAction(res *Resource, gate *auth.Gate, payload json.RawMessage) Action {
	a := &revertInitializeAction{newActionBase(res, gate, payload)}
	a.require(a.hasRole(auth.RoleMiner), a.ownsResource)
	return a
}

func (a *revertInitializeAction) Perform(ctx context.Context) *Response {
	if resp := a.guard(ctx); resp != nil {
		return resp
	}

	ok, err := a.res.RevertInitialize(ctx)
	if err != nil {
		return fault(err)
	}
	if !ok {
		return conflict("Mining task is not initialized, or work details exist.")
	}
	return a.succeed(http.StatusOK, "Mining task initialization has been reverted.")
}

// ─── EDIT / CLEAR_EDIT ──────────────────────────────────────────────────────

type editAction struct{ actionBase }

func newEditAction(res *Resource, gate *auth.Gate, payload json.RawMessage) Action {
	a := &editAction{newActionBase(res, gate, payload)}
	a.require(a.hasRole(auth.RoleMiner), a.ownsResource)
	return a
}

func (a *editAction) Perform(ctx context.Context) *Response {
	if resp := a.guard(ctx); resp != nil {
		return resp
	}

	t := a.res.Task()
	if !t.IsInMinerStage() {
		return conflict("Mining task has left the Miner stage.")
	}
	if !t.IsInitialized() {
		return conflict("Mining task is not yet initialized, run INITIALIZE first.")
	}
	if t.IsSubmitted() {
		return conflict("Work details are already submitted, RESUBMIT can override.")
	}

	work := decodeWork(a.payload)
	if work == nil {
		return notAcceptable("Work details are required.")
	}

	ok, err := a.res.Edit(ctx, work)
	if err != nil {
		return fault(err)
	}
	if !ok {
		// Stage checks passed, so the schema check is what failed.
		return notAcceptable("Work details failed validation.")
	}
	return a.succeed(http.StatusOK, "Work details have been saved.")
}

type clearEditAction struct{ actionBase }

func newClearEditAction(res *Resource, gate *auth.Gate, payload json.RawMessage) Action {
	a := &clearEditAction{newActionBase(res, gate, payload)}
	a.require(a.hasRole(auth.RoleMiner), a.ownsResource)
	return a
}

func (a *clearEditAction) Perform(ctx context.Context) *Response {
	if resp := a.guard(ctx); resp != nil {
		return resp
	}

	if !a.res.Task().IsInMinerStage() {
		return conflict("Mining task has left the Miner stage.")
	}

	ok, err := a.res.ClearEdit(ctx)
	if err != nil {
		return fault(err)
	}
	if !ok {
		return conflict("No unsubmitted work details to clear.")
	}
	return a.succeed(http.StatusOK, "Work details have been cleared.")
}

// ─── SUBMIT / RESUBMIT ──────────────────────────────────────────────────────
// Situation: Miner hands edited work details to the Broker stage.

type submitAction struct{ actionBase }

func newSubmitAction(res *Resource, gate *auth.Gate, payload json.RawMessage) Action {
	a := &submitAction{newActionBase(res, gate, payload)}
	a.require(a.hasRole(auth.RoleMiner), a.ownsResource)
	return a
}

func (a *submitAction) Perform(ctx context.Context) *Response {
	if resp := a.guard(ctx); resp != nil {
		return resp
	}

	t := a.res.Task()
	if !t.IsInMinerStage() {
		return conflict("Mining task has left the Miner stage.")
	}
	if !t.IsInitialized() {
		return conflict("Mining task is not yet initialized, run INITIALIZE first.")
	}
	if t.IsSubmitted() {
		return conflict("Work details already submitted, RESUBMIT can override.")
	}
	if !t.IsEdited() {
		return conflict("No work details to submit, run EDIT first.")
	}

	ok, err := a.res.Submit(ctx)
	if err != nil {
		return fault(err)
	}
	if !ok {
		return conflict("Mining task is not ready for submission.")
	}
	return a.succeed(http.StatusCreated, "New work details have been submitted.")
}

type resubmitAction struct{ actionBase }

func newResubmitAction(res *Resource, gate *auth.Gate, payload json.RawMessage) Action {
	a := &resubmitAction{newActionBase(res, gate, payload)}
	a.require(a.hasRole(auth.RoleMiner), a.ownsResource)
	return a
}

// Perform runs the revert / edit / submit steps one by one. Each step
// persists on its own; the composite stops at the first failing step, so a
// concurrent reader may observe the intermediate withdrawn state.
func (a *resubmitAction) Perform(ctx context.Context) *Response {
	if resp := a.guard(ctx); resp != nil {
		return resp
	}

	t := a.res.Task()
	if !t.IsSubmitted() {
		return conflict("Nothing submitted yet, run SUBMIT instead.")
	}
	if t.IsProceeded() {
		return conflict("A broker has already proceeded with the submission.")
	}

	ok, err := a.res.RevertSubmit(ctx)
	if err != nil {
		return fault(err)
	}
	if !ok {
		return conflict("Submission could not be withdrawn.")
	}

	if work := decodeWork(a.payload); work != nil {
		ok, err = a.res.Edit(ctx, work)
		if err != nil {
			return fault(err)
		}
		if !ok {
			return notAcceptable("Replacement work details failed validation.")
		}
	}

	ok, err = a.res.Submit(ctx)
	if err != nil {
		return fault(err)
	}
	if !ok {
		return conflict("Mining task is not ready for submission.")
	}
	return a.succeed(http.StatusOK, "Work details have been resubmitted.")
}

// ─── PROCEED / REJECT / CONFIRM ─────────────────────────────────────────────
// Situation: Broker is judging a submitted mining task.

type proceedAction struct{ actionBase }

func newProceedAction(res *Resource, gate *auth.Gate, payload json.RawMessage) Action {
	a := &proceedAction{newActionBase(res, gate, payload)}
	a.require(a.hasRole(auth.RoleBroker))
	return a
}

func (a *proceedAction) Perform(ctx context.Context) *Response {
	if resp := a.guard(ctx); resp != nil {
		return resp
	}

	if !a.res.Task().IsInBrokerStage() {
		return conflict("Mining task is not in the Broker stage.")
	}

	ok, err := a.res.Proceed(ctx)
	if err != nil {
		return fault(err)
	}
	if !ok {
		return conflict("Mining task is already proceeded or confirmed.")
	}
	return a.succeed(http.StatusOK, "Mining task has been proceeded.")
}

type rejectAction struct{ actionBase }

func newRejectAction(res *Resource, gate *auth.Gate, payload json.RawMessage) Action {
	a := &rejectAction{newActionBase(res, gate, payload)}
	a.require(a.hasRole(auth.RoleBroker))
	return a
}

func (a *rejectAction) Perform(ctx context.Context) *Response {
	if resp := a.guard(ctx); resp != nil {
		return resp
	}

	if !a.res.Task().IsInBrokerStage() {
		return conflict("Mining task is not in the Broker stage.")
	}

	ok, err := a.res.Reject(ctx)
	if err != nil {
		return fault(err)
	}
	if !ok {
		return conflict("Mining task is already rejected or confirmed.")
	}
	return a.succeed(http.StatusOK, "Mining task has been rejected.")
}

// confirmAction requires, beyond the Broker role, that the task is the one
// the broker is currently brokering.
type confirmAction struct{ actionBase }

func newConfirmAction(res *Resource, gate *auth.Gate, payload json.RawMessage) Action {
	a := &confirmAction{newActionBase(res, gate, payload)}
	a.require(a.hasRole(auth.RoleBroker), a.matchedBrokering)
	return a
}

func (a *confirmAction) Perform(ctx context.Context) *Response {
	if resp := a.guard(ctx); resp != nil {
		return resp
	}

	ok, err := a.res.Confirm(ctx)
	if err != nil {
		return fault(err)
	}
	if !ok {
		return conflict("Mining task is already confirmed, rejected, or not proceeded.")
	}
	return a.succeed(http.StatusOK, "Mining task has been confirmed.")
}

// ─── ADMIT / DENY / UNSET ───────────────────────────────────────────────────
// Situation: Minter is settling a confirmed mining task.

type admitAction struct{ actionBase }

func newAdmitAction(res *Resource, gate *auth.Gate, payload json.RawMessage) Action {
	a := &admitAction{newActionBase(res, gate, payload)}
	a.require(a.hasRole(auth.RoleMinter))
	return a
}

func (a *admitAction) Perform(ctx context.Context) *Response {
	if resp := a.guard(ctx); resp != nil {
		return resp
	}

	ok, err := a.res.Admit(ctx)
	if err != nil {
		return fault(err)
	}
	if !ok {
		return conflict("Mining task is not in the Minter stage, or already admitted.")
	}
	return a.succeed(http.StatusOK, "Mining task has been admitted.")
}

type denyAction struct{ actionBase }

func newDenyAction(res *Resource, gate *auth.Gate, payload json.RawMessage) Action {
	a := &denyAction{newActionBase(res, gate, payload)}
	a.require(a.hasRole(auth.RoleMinter))
	return a
}

func (a *denyAction) Perform(ctx context.Context) *Response {
	if resp := a.guard(ctx); resp != nil {
		return resp
	}

	ok, err := a.res.Deny(ctx)
	if err != nil {
		return fault(err)
	}
	if !ok {
		return conflict("Mining task is not in the Minter stage, or already denied.")
	}
	return a.succeed(http.StatusOK, "Mining task has been denied.")
}

type unsetAction struct{ actionBase }

func newUnsetAction(res *Resource, gate *auth.Gate, payload json.RawMessage) Action {
	a := &unsetAction{newActionBase(res, gate, payload)}
	a.require(a.hasRole(auth.RoleMinter))
	return a
}

func (a *unsetAction) Perform(ctx context.Context) *Response {
	if resp := a.guard(ctx); resp != nil {
		return resp
	}

	ok, err := a.res.Unset(ctx)
	if err != nil {
		return fault(err)
	}
	if !ok {
		return conflict("Mining task is not in the Minter stage.")
	}
	return a.succeed(http.StatusOK, "Minting decision has been withdrawn.")
}

// ─── RESET ──────────────────────────────────────────────────────────────────
// Administrative: unconditional within the dispatcher's permission envelope.

type resetAction struct{ actionBase }

func newResetAction(res *Resource, gate *auth.Gate, payload json.RawMessage) Action {
	return &resetAction{newActionBase(res, gate, payload)}
}

func (a *resetAction) Perform(ctx context.Context) *Response {
	if resp := a.guard(ctx); resp != nil {
		return resp
	}

	ok, err := a.res.Reset(ctx)
	if err != nil {
		return fault(err)
	}
	if !ok {
		return conflict("Mining task could not be reset.")
	}
	return a.succeed(http.StatusOK, "Mining task has been reset.")
}
